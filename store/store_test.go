package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/passkey-wallet/go-sdk/store"
	inmemorystore "github.com/passkey-wallet/go-sdk/store/inmemory"
	"github.com/passkey-wallet/go-sdk/types"
	"github.com/stretchr/testify/require"
)

var (
	ctx = context.Background()

	walletA = types.StoredWallet{
		CredentialID:    "AQID",
		CredentialIDHex: "010203",
		Username:        "alice",
		Address:         "0x1111111111111111111111111111111111111111",
		CreatedAt:       time.UnixMilli(1700000000000),
	}
	walletB = types.StoredWallet{
		CredentialID:    "BAUG",
		CredentialIDHex: "040506",
		Username:        "bob",
		Address:         "0x2222222222222222222222222222222222222222",
		CreatedAt:       time.UnixMilli(1700000001000),
		IsImported:      true,
	}
	record = types.EncryptedKeyRecord{
		Nonce:      []byte("123456789012"),
		Ciphertext: []byte("ciphertext-with-tag"),
	}
)

func TestStores(t *testing.T) {
	tests := []struct {
		name   string
		config func(t *testing.T) store.Config
	}{
		{"inmemory", func(*testing.T) store.Config {
			return store.Config{StoreType: types.InMemoryStore}
		}},
		{"file", func(t *testing.T) store.Config {
			return store.Config{StoreType: types.FileStore, BaseDir: t.TempDir()}
		}},
		{"kv", func(t *testing.T) store.Config {
			return store.Config{StoreType: types.KVStore, BaseDir: t.TempDir()}
		}},
		{"kv in memory", func(*testing.T) store.Config {
			return store.Config{StoreType: types.KVStore}
		}},
		{"sql", func(t *testing.T) store.Config {
			return store.Config{StoreType: types.SQLStore, BaseDir: t.TempDir()}
		}},
		{"sql in memory", func(*testing.T) store.Config {
			return store.Config{StoreType: types.SQLStore}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := store.NewStore(tt.config(t))
			require.NoError(t, err)
			require.NotNil(t, svc)
			defer svc.Close()

			testWalletList(t, svc.CredentialStore())
			svc.Clean(ctx)
			testCurrent(t, svc.CredentialStore())
			svc.Clean(ctx)
			testEncryptedKeys(t, svc.CredentialStore(), svc.ImportKeyStore())
		})
	}
}

func TestPersistence(t *testing.T) {
	for _, storeType := range []string{types.FileStore, types.KVStore, types.SQLStore} {
		t.Run(storeType, func(t *testing.T) {
			cfg := store.Config{StoreType: storeType, BaseDir: t.TempDir()}

			svc, err := store.NewStore(cfg)
			require.NoError(t, err)
			require.NoError(t, svc.CredentialStore().UpsertWallet(ctx, walletA))
			require.NoError(t, svc.CredentialStore().SetCurrent(ctx, walletA.Credential()))
			svc.Close()

			svc, err = store.NewStore(cfg)
			require.NoError(t, err)
			defer svc.Close()

			wallets, err := svc.CredentialStore().ListWallets(ctx)
			require.NoError(t, err)
			require.Equal(t, []types.StoredWallet{walletA}, wallets)

			current, err := svc.CredentialStore().GetCurrent(ctx)
			require.NoError(t, err)
			require.NotNil(t, current)
			require.Equal(t, walletA.CredentialID, current.CredentialID)
		})
	}
}

func TestUnknownStoreType(t *testing.T) {
	_, err := store.NewStore(store.Config{StoreType: "redis"})
	require.Error(t, err)
	require.False(t, store.ValidStoreType("redis"))
	require.True(t, store.ValidStoreType(types.SQLStore))
}

func TestMalformedData(t *testing.T) {
	kv := inmemorystore.NewStore()
	svc := store.NewStoreFromKV(kv)
	defer svc.Close()

	require.NoError(t, kv.Set(ctx, "wallets", []byte("{not json")))
	require.NoError(t, kv.Set(ctx, "current_credential", []byte("[]")))
	require.NoError(t, kv.Set(ctx, "encrypted_import_keys", []byte("42")))

	wallets, err := svc.CredentialStore().ListWallets(ctx)
	require.NoError(t, err)
	require.Empty(t, wallets)

	current, err := svc.CredentialStore().GetCurrent(ctx)
	require.NoError(t, err)
	require.Nil(t, current)

	rec, err := svc.ImportKeyStore().GetEncryptedKey(ctx, "AQID")
	require.NoError(t, err)
	require.Nil(t, rec)

	// a malformed list is replaced by the first successful write
	require.NoError(t, svc.CredentialStore().UpsertWallet(ctx, walletA))
	wallets, err = svc.CredentialStore().ListWallets(ctx)
	require.NoError(t, err)
	require.Len(t, wallets, 1)
}

func TestLegacyIDs(t *testing.T) {
	kv := inmemorystore.NewStore()
	svc := store.NewStoreFromKV(kv)
	defer svc.Close()

	require.NoError(t, kv.Set(ctx, "wallets", []byte(
		`[{"credentialId":"010203","username":"old","address":"0xabc","createdAt":1},`+
			`{"credentialId":"0a0b","credentialIdHex":"0a0b","username":"older","createdAt":2}]`,
	)))
	require.NoError(t, kv.Set(ctx, "current_credential", []byte(
		`{"credentialId":"010203","createdAt":1}`,
	)))
	require.NoError(t, kv.Set(ctx, "encrypted_import_keys", []byte(
		`{"010203":{"nonce":"MTIzNDU2Nzg5MDEy","ciphertext":"Y2lwaGVy"}}`,
	)))

	wallets, err := svc.CredentialStore().ListWallets(ctx)
	require.NoError(t, err)
	require.Len(t, wallets, 2)
	require.Equal(t, "AQID", wallets[0].CredentialID)
	require.Equal(t, "010203", wallets[0].CredentialIDHex)
	require.Equal(t, "Cgs", wallets[1].CredentialID)
	require.Equal(t, "0a0b", wallets[1].CredentialIDHex)

	current, err := svc.CredentialStore().GetCurrent(ctx)
	require.NoError(t, err)
	require.Equal(t, "AQID", current.CredentialID)
	require.Equal(t, "010203", current.CredentialIDHex)

	rec, err := svc.ImportKeyStore().GetEncryptedKey(ctx, "AQID")
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, []byte("cipher"), rec.Ciphertext)

	require.NoError(t, svc.CredentialStore().RemoveWallet(ctx, "AQID"))
	rec, err = svc.ImportKeyStore().GetEncryptedKey(ctx, "AQID")
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestStoreEvents(t *testing.T) {
	svc, err := store.NewStore(store.Config{StoreType: types.InMemoryStore})
	require.NoError(t, err)
	defer svc.Close()

	eventCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	ch := svc.CredentialStore().GetEventChannel(eventCtx)

	require.NoError(t, svc.CredentialStore().UpsertWallet(ctx, walletA))
	require.NoError(t, svc.CredentialStore().UpsertWallet(ctx, walletA))
	require.NoError(t, svc.CredentialStore().SetCurrent(ctx, walletA.Credential()))
	require.NoError(t, svc.CredentialStore().RemoveWallet(ctx, walletA.CredentialID))
	require.NoError(t, svc.CredentialStore().ClearCurrent(ctx))

	expected := []types.StoreEventType{
		types.WalletAdded, types.WalletUpdated, types.CurrentChanged,
		types.WalletRemoved, types.CurrentCleared,
	}
	for _, eventType := range expected {
		select {
		case event := <-ch:
			require.Equal(t, eventType, event.Type)
		case <-time.After(time.Second):
			t.Fatalf("missing %s event", eventType)
		}
	}
}

func testWalletList(t *testing.T, s types.CredentialStore) {
	wallets, err := s.ListWallets(ctx)
	require.NoError(t, err)
	require.Empty(t, wallets)

	require.NoError(t, s.UpsertWallet(ctx, walletA))
	require.NoError(t, s.UpsertWallet(ctx, walletB))

	// upserting the same wallet twice leaves a single entry
	require.NoError(t, s.UpsertWallet(ctx, walletA))
	wallets, err = s.ListWallets(ctx)
	require.NoError(t, err)
	require.Equal(t, []types.StoredWallet{walletA, walletB}, wallets)

	updated := walletA
	updated.Address = "0x3333333333333333333333333333333333333333"
	require.NoError(t, s.UpsertWallet(ctx, updated))
	w, err := s.GetWallet(ctx, walletA.CredentialID)
	require.NoError(t, err)
	require.Equal(t, updated, *w)

	w, err = s.GetWallet(ctx, "unknown")
	require.NoError(t, err)
	require.Nil(t, w)

	require.NoError(t, s.RemoveWallet(ctx, walletA.CredentialID))
	require.NoError(t, s.RemoveWallet(ctx, "unknown"))
	wallets, err = s.ListWallets(ctx)
	require.NoError(t, err)
	require.Equal(t, []types.StoredWallet{walletB}, wallets)
}

func testCurrent(t *testing.T, s types.CredentialStore) {
	current, err := s.GetCurrent(ctx)
	require.NoError(t, err)
	require.Nil(t, current)

	credential := walletA.Credential()
	credential.PublicKey = []byte{0x04, 0x01}
	require.NoError(t, s.UpsertWallet(ctx, walletA))
	require.NoError(t, s.SetCurrent(ctx, credential))

	current, err = s.GetCurrent(ctx)
	require.NoError(t, err)
	require.Equal(t, credential, *current)

	require.NoError(t, s.RenameWallet(ctx, walletA.CredentialID, "renamed"))
	current, err = s.GetCurrent(ctx)
	require.NoError(t, err)
	require.Equal(t, "renamed", current.Username)
	w, err := s.GetWallet(ctx, walletA.CredentialID)
	require.NoError(t, err)
	require.Equal(t, "renamed", w.Username)

	require.ErrorIs(t, s.RenameWallet(ctx, "unknown", "name"), types.ErrNotFound)

	require.NoError(t, s.ClearCurrent(ctx))
	current, err = s.GetCurrent(ctx)
	require.NoError(t, err)
	require.Nil(t, current)
}

func testEncryptedKeys(t *testing.T, s types.CredentialStore, keys types.ImportKeyStore) {
	rec, err := keys.GetEncryptedKey(ctx, walletB.CredentialID)
	require.NoError(t, err)
	require.Nil(t, rec)

	require.NoError(t, s.UpsertWallet(ctx, walletB))
	require.NoError(t, keys.PutEncryptedKey(ctx, walletB.CredentialID, record))

	rec, err = keys.GetEncryptedKey(ctx, walletB.CredentialID)
	require.NoError(t, err)
	require.Equal(t, record, *rec)

	// removing the wallet drops its record too
	require.NoError(t, s.RemoveWallet(ctx, walletB.CredentialID))
	rec, err = keys.GetEncryptedKey(ctx, walletB.CredentialID)
	require.NoError(t, err)
	require.Nil(t, rec)

	require.NoError(t, keys.PutEncryptedKey(ctx, walletB.CredentialID, record))
	require.NoError(t, keys.DeleteEncryptedKey(ctx, walletB.CredentialID))
	rec, err = keys.GetEncryptedKey(ctx, walletB.CredentialID)
	require.NoError(t, err)
	require.Nil(t, rec)
}
