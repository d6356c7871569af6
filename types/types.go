package types

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
)

const (
	InMemoryStore = "inmemory"
	FileStore     = "file"
	KVStore       = "kv"
	SQLStore      = "sql"
)

// Credential is the record of a passkey bound to a wallet.
// CredentialID is the authenticator-issued id in its native url-safe base64 form and is the only
// secret input to wallet derivation.
type Credential struct {
	CredentialID    string
	CredentialIDHex string
	PublicKey       []byte
	CreatedAt       time.Time
	Username        string
	IsImported      bool
}

func (c Credential) String() string {
	return fmt.Sprintf("%s (%s)", c.Username, c.CredentialID)
}

// StoredWallet is the list-view projection of a Credential plus its derived address.
type StoredWallet struct {
	CredentialID    string
	CredentialIDHex string
	Username        string
	Address         string
	CreatedAt       time.Time
	IsImported      bool
}

func (w StoredWallet) Credential() Credential {
	return Credential{
		CredentialID:    w.CredentialID,
		CredentialIDHex: w.CredentialIDHex,
		CreatedAt:       w.CreatedAt,
		Username:        w.Username,
		IsImported:      w.IsImported,
	}
}

func NewStoredWallet(c Credential, address string) StoredWallet {
	return StoredWallet{
		CredentialID:    c.CredentialID,
		CredentialIDHex: c.CredentialIDHex,
		Username:        c.Username,
		Address:         address,
		CreatedAt:       c.CreatedAt,
		IsImported:      c.IsImported,
	}
}

// EncryptedKeyRecord holds an imported private key sealed with AES-GCM.
type EncryptedKeyRecord struct {
	Nonce      []byte
	Ciphertext []byte
}

// Wallet is a runtime value only. PrivateKey must never be persisted.
type Wallet struct {
	Credential Credential
	PrivateKey []byte
	Address    string
}

func (w *Wallet) PrivKey() *btcec.PrivateKey {
	prvkey, _ := btcec.PrivKeyFromBytes(w.PrivateKey)
	return prvkey
}

func (w *Wallet) PrivateKeyHex() string {
	return hex.EncodeToString(w.PrivateKey)
}

// Wipe zeroes the private key bytes held by the wallet.
func (w *Wallet) Wipe() {
	if w == nil {
		return
	}
	clear(w.PrivateKey)
	w.PrivateKey = nil
}

type StoreEventType int

const (
	WalletAdded StoreEventType = iota
	WalletUpdated
	WalletRemoved
	CurrentChanged
	CurrentCleared
)

func (e StoreEventType) String() string {
	return map[StoreEventType]string{
		WalletAdded:    "WALLET_ADDED",
		WalletUpdated:  "WALLET_UPDATED",
		WalletRemoved:  "WALLET_REMOVED",
		CurrentChanged: "CURRENT_CHANGED",
		CurrentCleared: "CURRENT_CLEARED",
	}[e]
}

type StoreEvent struct {
	Type         StoreEventType
	CredentialID string
}
