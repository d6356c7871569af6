package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/passkey-wallet/go-sdk/codec"
	"github.com/passkey-wallet/go-sdk/internal/utils"
	"github.com/passkey-wallet/go-sdk/types"
	log "github.com/sirupsen/logrus"
)

const (
	currentCredentialKey   = "current_credential"
	walletsKey             = "wallets"
	encryptedImportKeysKey = "encrypted_import_keys"

	eventBufferSize = 100
)

type credentialStore struct {
	kv     types.KeyValueStore
	lock   *sync.Mutex
	events *utils.Feed[types.StoreEvent]
}

// NewCredentialStore returns the wallet registry persisted on kv. The returned value implements
// both types.CredentialStore and types.ImportKeyStore.
func NewCredentialStore(kv types.KeyValueStore) *credentialStore {
	return &credentialStore{
		kv:     kv,
		lock:   &sync.Mutex{},
		events: utils.NewFeed[types.StoreEvent](),
	}
}

func (s *credentialStore) ListWallets(ctx context.Context) ([]types.StoredWallet, error) {
	return s.readWallets(ctx)
}

func (s *credentialStore) GetWallet(
	ctx context.Context, credentialID string,
) (*types.StoredWallet, error) {
	wallets, err := s.readWallets(ctx)
	if err != nil {
		return nil, err
	}
	for _, w := range wallets {
		if w.CredentialID == credentialID {
			return &w, nil
		}
	}
	return nil, nil
}

func (s *credentialStore) UpsertWallet(ctx context.Context, wallet types.StoredWallet) error {
	if wallet.CredentialID == "" {
		return fmt.Errorf("missing credential id")
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	wallets, err := s.readWallets(ctx)
	if err != nil {
		return err
	}

	eventType := types.WalletAdded
	replaced := false
	for i, w := range wallets {
		if w.CredentialID == wallet.CredentialID {
			wallets[i] = wallet
			replaced = true
			eventType = types.WalletUpdated
			break
		}
	}
	if !replaced {
		wallets = append(wallets, wallet)
	}

	if err := s.writeJSON(ctx, walletsKey, wallets); err != nil {
		return err
	}
	s.sendEvent(types.StoreEvent{Type: eventType, CredentialID: wallet.CredentialID})
	return nil
}

// RemoveWallet drops the list entry and the encrypted key record sharing its id.
// Removing an unknown id is a no-op.
func (s *credentialStore) RemoveWallet(ctx context.Context, credentialID string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	wallets, err := s.readWallets(ctx)
	if err != nil {
		return err
	}

	kept := make([]types.StoredWallet, 0, len(wallets))
	for _, w := range wallets {
		if w.CredentialID != credentialID {
			kept = append(kept, w)
		}
	}
	removed := len(kept) != len(wallets)
	if removed {
		if err := s.writeJSON(ctx, walletsKey, kept); err != nil {
			return err
		}
	}

	if err := s.deleteEncryptedKey(ctx, credentialID); err != nil {
		return err
	}

	if removed {
		s.sendEvent(types.StoreEvent{Type: types.WalletRemoved, CredentialID: credentialID})
	}
	return nil
}

func (s *credentialStore) RenameWallet(ctx context.Context, credentialID, username string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	wallets, err := s.readWallets(ctx)
	if err != nil {
		return err
	}

	found := false
	for i := range wallets {
		if wallets[i].CredentialID == credentialID {
			wallets[i].Username = username
			found = true
		}
	}
	if !found {
		return fmt.Errorf("wallet %s: %w", credentialID, types.ErrNotFound)
	}
	if err := s.writeJSON(ctx, walletsKey, wallets); err != nil {
		return err
	}

	current, err := s.readCurrent(ctx)
	if err != nil {
		return err
	}
	if current != nil && current.CredentialID == credentialID {
		current.Username = username
		if err := s.writeJSON(ctx, currentCredentialKey, current); err != nil {
			return err
		}
	}

	s.sendEvent(types.StoreEvent{Type: types.WalletUpdated, CredentialID: credentialID})
	return nil
}

func (s *credentialStore) GetCurrent(ctx context.Context) (*types.Credential, error) {
	return s.readCurrent(ctx)
}

func (s *credentialStore) SetCurrent(ctx context.Context, credential types.Credential) error {
	if credential.CredentialID == "" {
		return fmt.Errorf("missing credential id")
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.writeJSON(ctx, currentCredentialKey, credential); err != nil {
		return err
	}
	s.sendEvent(types.StoreEvent{
		Type: types.CurrentChanged, CredentialID: credential.CredentialID,
	})
	return nil
}

func (s *credentialStore) ClearCurrent(ctx context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.kv.Clear(ctx, currentCredentialKey); err != nil {
		return fmt.Errorf("failed to clear current credential: %w", err)
	}
	s.sendEvent(types.StoreEvent{Type: types.CurrentCleared})
	return nil
}

func (s *credentialStore) GetEncryptedKey(
	ctx context.Context, credentialID string,
) (*types.EncryptedKeyRecord, error) {
	records, err := s.readEncryptedKeys(ctx)
	if err != nil {
		return nil, err
	}
	if rec, ok := records[credentialID]; ok {
		return &rec, nil
	}
	// records written before ids were kept in native form are keyed by hex
	if idHex, err := codec.IDToHex(credentialID); err == nil {
		if rec, ok := records[idHex]; ok {
			return &rec, nil
		}
	}
	return nil, nil
}

func (s *credentialStore) PutEncryptedKey(
	ctx context.Context, credentialID string, record types.EncryptedKeyRecord,
) error {
	if credentialID == "" {
		return fmt.Errorf("missing credential id")
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	records, err := s.readEncryptedKeys(ctx)
	if err != nil {
		return err
	}
	records[credentialID] = record
	return s.writeJSON(ctx, encryptedImportKeysKey, records)
}

func (s *credentialStore) DeleteEncryptedKey(ctx context.Context, credentialID string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.deleteEncryptedKey(ctx, credentialID)
}

// GetEventChannel subscribes to store changes until ctx is done or the store is closed.
func (s *credentialStore) GetEventChannel(ctx context.Context) <-chan types.StoreEvent {
	return s.events.Subscribe(ctx, eventBufferSize)
}

func (s *credentialStore) Clean(ctx context.Context) {
	s.lock.Lock()
	defer s.lock.Unlock()

	for _, key := range []string{currentCredentialKey, walletsKey, encryptedImportKeysKey} {
		if err := s.kv.Clear(ctx, key); err != nil {
			log.Debugf("failed to clear %s: %s", key, err)
		}
	}
}

func (s *credentialStore) Close() {
	s.events.Close()
}

func (s *credentialStore) deleteEncryptedKey(ctx context.Context, credentialID string) error {
	records, err := s.readEncryptedKeys(ctx)
	if err != nil {
		return err
	}

	keys := []string{credentialID}
	if idHex, err := codec.IDToHex(credentialID); err == nil {
		keys = append(keys, idHex)
	}
	deleted := false
	for _, key := range keys {
		if _, ok := records[key]; ok {
			delete(records, key)
			deleted = true
		}
	}
	if !deleted {
		return nil
	}
	return s.writeJSON(ctx, encryptedImportKeysKey, records)
}

func (s *credentialStore) readWallets(ctx context.Context) ([]types.StoredWallet, error) {
	buf, err := s.kv.Get(ctx, walletsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read wallets: %w", err)
	}
	wallets := make([]types.StoredWallet, 0)
	if len(buf) == 0 {
		return wallets, nil
	}
	if err := json.Unmarshal(buf, &wallets); err != nil {
		log.WithError(err).Debug("ignoring malformed wallet list")
		return make([]types.StoredWallet, 0), nil
	}

	for i := range wallets {
		id, idHex, converted := codec.NormalizeLegacyID(
			wallets[i].CredentialID, wallets[i].CredentialIDHex,
		)
		if converted {
			wallets[i].CredentialID, wallets[i].CredentialIDHex = id, idHex
		}
	}
	return wallets, nil
}

func (s *credentialStore) readCurrent(ctx context.Context) (*types.Credential, error) {
	buf, err := s.kv.Get(ctx, currentCredentialKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read current credential: %w", err)
	}
	if len(buf) == 0 {
		return nil, nil
	}

	var current types.Credential
	if err := json.Unmarshal(buf, &current); err != nil {
		log.WithError(err).Debug("ignoring malformed current credential")
		return nil, nil
	}
	if current.CredentialID == "" {
		return nil, nil
	}

	id, idHex, converted := codec.NormalizeLegacyID(current.CredentialID, current.CredentialIDHex)
	if converted {
		current.CredentialID, current.CredentialIDHex = id, idHex
	}
	return &current, nil
}

func (s *credentialStore) readEncryptedKeys(
	ctx context.Context,
) (map[string]types.EncryptedKeyRecord, error) {
	buf, err := s.kv.Get(ctx, encryptedImportKeysKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read encrypted keys: %w", err)
	}
	records := make(map[string]types.EncryptedKeyRecord)
	if len(buf) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(buf, &records); err != nil {
		log.WithError(err).Debug("ignoring malformed encrypted key records")
		return make(map[string]types.EncryptedKeyRecord), nil
	}
	return records, nil
}

func (s *credentialStore) writeJSON(ctx context.Context, key string, value any) error {
	buf, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, key, buf); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *credentialStore) sendEvent(event types.StoreEvent) {
	if dropped := s.events.Send(event); dropped > 0 {
		log.Debugf("%d slow listeners missed an event before %s", dropped, event.Type)
	}
}
