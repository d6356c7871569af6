package types

import (
	"context"
)

// KeyValueStore is the persistence capability the credential store is built on.
// Get returns a nil value and no error when the key is absent.
type KeyValueStore interface {
	GetType() string
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Clear(ctx context.Context, key string) error
	Close()
}

type Store interface {
	CredentialStore() CredentialStore
	ImportKeyStore() ImportKeyStore
	Clean(ctx context.Context)
	Close()
}

type CredentialStore interface {
	ListWallets(ctx context.Context) ([]StoredWallet, error)
	GetWallet(ctx context.Context, credentialID string) (*StoredWallet, error)
	UpsertWallet(ctx context.Context, wallet StoredWallet) error
	RemoveWallet(ctx context.Context, credentialID string) error
	RenameWallet(ctx context.Context, credentialID, username string) error
	GetCurrent(ctx context.Context) (*Credential, error)
	SetCurrent(ctx context.Context, credential Credential) error
	ClearCurrent(ctx context.Context) error
	GetEventChannel(ctx context.Context) <-chan StoreEvent
	Close()
}

type ImportKeyStore interface {
	GetEncryptedKey(ctx context.Context, credentialID string) (*EncryptedKeyRecord, error)
	PutEncryptedKey(ctx context.Context, credentialID string, record EncryptedKeyRecord) error
	DeleteEncryptedKey(ctx context.Context, credentialID string) error
}

// CryptoProvider is the runtime's cryptographic capability surface.
type CryptoProvider interface {
	Hash(data ...[]byte) []byte
	RandomBytes(n int) ([]byte, error)
	Encrypt(key, nonce, plaintext []byte) ([]byte, error)
	Decrypt(key, nonce, ciphertext []byte) ([]byte, error)
}
