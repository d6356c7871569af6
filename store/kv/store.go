package kvstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/passkey-wallet/go-sdk/types"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"
)

const (
	credentialStoreDir = "credentials"
)

type entry struct {
	Value []byte
}

type store struct {
	db *badgerhold.Store
}

// NewStore opens a badger database under dir. An empty dir keeps the data in memory.
func NewStore(dir string, logger badger.Logger) (types.KeyValueStore, error) {
	if dir != "" {
		dir = filepath.Join(dir, credentialStoreDir)
	}
	badgerDb, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %s", err)
	}
	return &store{db: badgerDb}, nil
}

func (s *store) GetType() string {
	return types.KVStore
}

func (s *store) Get(_ context.Context, key string) ([]byte, error) {
	var e entry
	if err := s.db.Get(key, &e); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return e.Value, nil
}

func (s *store) Set(_ context.Context, key string, value []byte) error {
	return s.db.Upsert(key, &entry{Value: value})
}

func (s *store) Clear(_ context.Context, key string) error {
	if err := s.db.Delete(key, entry{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}

func (s *store) Close() {
	if err := s.db.Close(); err != nil {
		log.Debugf("error on closing credential db: %s", err)
	}
}

func createDB(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	}

	return badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
}
