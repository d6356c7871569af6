package store

import (
	"context"
	"fmt"
	"slices"

	filestore "github.com/passkey-wallet/go-sdk/store/file"
	inmemorystore "github.com/passkey-wallet/go-sdk/store/inmemory"
	kvstore "github.com/passkey-wallet/go-sdk/store/kv"
	sqlstore "github.com/passkey-wallet/go-sdk/store/sql"
	"github.com/passkey-wallet/go-sdk/types"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	StoreType string
	BaseDir   string
}

type service struct {
	kv          types.KeyValueStore
	credentials *credentialStore
}

func NewStore(storeConfig Config) (types.Store, error) {
	var (
		kv  types.KeyValueStore
		err error
	)

	switch storeConfig.StoreType {
	case types.InMemoryStore:
		kv = inmemorystore.NewStore()
	case types.FileStore:
		kv, err = filestore.NewStore(storeConfig.BaseDir)
	case types.KVStore:
		kv, err = kvstore.NewStore(storeConfig.BaseDir, log.StandardLogger())
	case types.SQLStore:
		kv, err = sqlstore.NewStore(storeConfig.BaseDir)
	default:
		return nil, fmt.Errorf("unknown store type %q", storeConfig.StoreType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", storeConfig.StoreType, err)
	}

	return NewStoreFromKV(kv), nil
}

// NewStoreFromKV wraps an already opened key-value backend.
func NewStoreFromKV(kv types.KeyValueStore) types.Store {
	return &service{
		kv:          kv,
		credentials: NewCredentialStore(kv),
	}
}

func (s *service) CredentialStore() types.CredentialStore {
	return s.credentials
}

func (s *service) ImportKeyStore() types.ImportKeyStore {
	return s.credentials
}

func (s *service) Clean(ctx context.Context) {
	s.credentials.Clean(ctx)
}

func (s *service) Close() {
	s.credentials.Close()
	s.kv.Close()
}

// ValidStoreType reports whether t names a supported backend.
func ValidStoreType(t string) bool {
	return slices.Contains(
		[]string{types.InMemoryStore, types.FileStore, types.KVStore, types.SQLStore}, t,
	)
}
