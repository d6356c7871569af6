package passkeysdk

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/passkey-wallet/go-sdk/internal/utils"
	"github.com/passkey-wallet/go-sdk/types"
	"github.com/passkey-wallet/go-sdk/wallet"
	log "github.com/sirupsen/logrus"
)

// ImportFromPrivateKey brings an external key under the custody of a new, dedicated passkey.
// The key is persisted only encrypted under a key derived from that passkey's id.
func (a *passkeyClient) ImportFromPrivateKey(
	ctx context.Context, privateKeyHex, username string,
) (*types.Wallet, error) {
	key, err := wallet.ParsePrivateKeyHex(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPrivateKey, err)
	}
	address, err := wallet.DeriveAddress(key)
	if err != nil {
		clear(key)
		return nil, fmt.Errorf("%w: %s", ErrInvalidPrivateKey, err)
	}

	credential, err := a.createCredential(ctx, username)
	if err != nil {
		clear(key)
		return nil, err
	}
	credential.IsImported = true

	record, err := a.seal(credential.CredentialIDHex, key)
	if err != nil {
		clear(key)
		return nil, err
	}

	credentialStore := a.store.CredentialStore()
	importKeyStore := a.store.ImportKeyStore()
	if err := importKeyStore.PutEncryptedKey(ctx, credential.CredentialID, *record); err != nil {
		clear(key)
		return nil, fmt.Errorf("failed to store encrypted key: %w", err)
	}
	if err := credentialStore.UpsertWallet(
		ctx, types.NewStoredWallet(*credential, address),
	); err != nil {
		if rollbackErr := importKeyStore.DeleteEncryptedKey(
			ctx, credential.CredentialID,
		); rollbackErr != nil {
			log.WithError(rollbackErr).Warn("failed to drop orphan encrypted key")
		}
		clear(key)
		return nil, fmt.Errorf("failed to store wallet: %w", err)
	}
	if err := credentialStore.SetCurrent(ctx, *credential); err != nil {
		// removing the entry cascades to its encrypted key
		a.dropWallet(ctx, credential.CredentialID)
		clear(key)
		return nil, fmt.Errorf("failed to set current wallet: %w", err)
	}

	a.setUnlocked(credential.CredentialID, key)
	log.Debugf("imported wallet %s with address %s", credential, address)

	return &types.Wallet{Credential: *credential, PrivateKey: key, Address: address}, nil
}

// Unlock decrypts the key of an imported wallet after a gate pass on its credential.
func (a *passkeyClient) Unlock(
	ctx context.Context, storedWallet types.StoredWallet,
) (*types.Wallet, error) {
	if !storedWallet.IsImported {
		return nil, ErrNotImported
	}
	if err := a.Authenticate(ctx, storedWallet.CredentialID); err != nil {
		return nil, err
	}
	return a.openImported(ctx, storedWallet.Credential(), storedWallet.Address)
}

// DeleteWithAuth removes a wallet after a gate pass on its own credential. A failed gate
// leaves everything untouched.
func (a *passkeyClient) DeleteWithAuth(ctx context.Context, credentialID string) error {
	if _, err := a.getWallet(ctx, credentialID); err != nil {
		return err
	}
	if err := a.Authenticate(ctx, credentialID); err != nil {
		return err
	}

	credentialStore := a.store.CredentialStore()
	if err := credentialStore.RemoveWallet(ctx, credentialID); err != nil {
		return fmt.Errorf("failed to remove wallet: %w", err)
	}
	current, err := credentialStore.GetCurrent(ctx)
	if err != nil {
		return err
	}
	if current != nil && current.CredentialID == credentialID {
		if err := credentialStore.ClearCurrent(ctx); err != nil {
			return fmt.Errorf("failed to clear current wallet: %w", err)
		}
	}
	a.Lock(credentialID)

	log.Debugf("deleted wallet %s", credentialID)
	return nil
}

func (a *passkeyClient) seal(credentialIDHex string, key []byte) (*types.EncryptedKeyRecord, error) {
	importKey, err := a.deriver.DeriveImportKey(credentialIDHex)
	if err != nil {
		return nil, err
	}
	defer clear(importKey)

	nonce, err := a.crypto.RandomBytes(utils.NonceSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	ciphertext, err := a.crypto.Encrypt(importKey, nonce, key)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt private key: %w", err)
	}
	return &types.EncryptedKeyRecord{Nonce: nonce, Ciphertext: ciphertext}, nil
}

// openImported decrypts the stored key of an imported wallet. Callers must have obtained a
// gate pass for the credential.
func (a *passkeyClient) openImported(
	ctx context.Context, credential types.Credential, expectedAddress string,
) (*types.Wallet, error) {
	record, err := a.store.ImportKeyStore().GetEncryptedKey(ctx, credential.CredentialID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("encrypted key for %s: %w", credential.CredentialID, ErrNotFound)
	}

	importKey, err := a.deriver.DeriveImportKey(credential.CredentialIDHex)
	if err != nil {
		return nil, err
	}
	defer clear(importKey)

	key, err := a.crypto.Decrypt(importKey, record.Nonce, record.Ciphertext)
	if err != nil {
		if !errors.Is(err, utils.ErrCipherAuth) {
			log.WithError(err).Debug("failed to decrypt imported key")
		}
		return nil, ErrCryptoMismatch
	}

	address, err := wallet.DeriveAddress(key)
	if err != nil || (expectedAddress != "" && !strings.EqualFold(address, expectedAddress)) {
		clear(key)
		return nil, ErrCryptoMismatch
	}

	a.setUnlocked(credential.CredentialID, key)
	return &types.Wallet{Credential: credential, PrivateKey: key, Address: address}, nil
}

// dropWallet undoes a partially persisted wallet.
func (a *passkeyClient) dropWallet(ctx context.Context, credentialID string) {
	if err := a.store.CredentialStore().RemoveWallet(ctx, credentialID); err != nil {
		log.WithError(err).Warnf("failed to drop partially stored wallet %s", credentialID)
	}
}
