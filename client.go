package passkeysdk

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/passkey-wallet/go-sdk/ceremony"
	"github.com/passkey-wallet/go-sdk/codec"
	"github.com/passkey-wallet/go-sdk/config"
	"github.com/passkey-wallet/go-sdk/types"
	"github.com/passkey-wallet/go-sdk/wallet"
	log "github.com/sirupsen/logrus"
)

const recoveredWalletName = "Recovered Wallet"

type passkeyClient struct {
	store         types.Store
	authenticator ceremony.Authenticator
	crypto        types.CryptoProvider
	deriver       *wallet.Deriver

	rpID    string
	rpName  string
	origin  string
	timeout time.Duration
	now     func() time.Time

	// decrypted keys of imported wallets, by credential id
	unlocked   map[string][]byte
	unlockedMu *sync.RWMutex
}

func NewPasskeyClient(
	sdkStore types.Store, authenticator ceremony.Authenticator, opts ...ClientOption,
) (PasskeyClient, error) {
	if sdkStore == nil {
		return nil, fmt.Errorf("missing sdk store")
	}
	if authenticator == nil {
		return nil, fmt.Errorf("missing authenticator")
	}

	client := &passkeyClient{
		store:         sdkStore,
		authenticator: authenticator,
		crypto:        NewCryptoProvider(),
		timeout:       ceremony.DefaultTimeout,
		now:           time.Now,
		unlocked:      make(map[string][]byte),
		unlockedMu:    &sync.RWMutex{},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.crypto == nil {
		return nil, fmt.Errorf("missing crypto provider")
	}
	client.deriver = wallet.NewDeriver(client.crypto)

	return client, nil
}

func (a *passkeyClient) GetVersion() string {
	return Version
}

func (a *passkeyClient) ListWallets(ctx context.Context) ([]types.StoredWallet, error) {
	return a.store.CredentialStore().ListWallets(ctx)
}

func (a *passkeyClient) GetCurrent(ctx context.Context) (*types.Credential, error) {
	return a.store.CredentialStore().GetCurrent(ctx)
}

func (a *passkeyClient) RenameWallet(ctx context.Context, credentialID, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return ErrInvalidUsername
	}
	return a.store.CredentialStore().RenameWallet(ctx, credentialID, username)
}

// SwitchWallet makes the given wallet current after a gate pass on its own credential.
func (a *passkeyClient) SwitchWallet(
	ctx context.Context, credentialID string,
) (*types.Wallet, error) {
	stored, err := a.getWallet(ctx, credentialID)
	if err != nil {
		return nil, err
	}
	if err := a.Authenticate(ctx, credentialID); err != nil {
		return nil, err
	}

	credential := stored.Credential()
	var w *types.Wallet
	if stored.IsImported {
		w, err = a.openImported(ctx, credential, stored.Address)
	} else {
		w, err = a.deriver.DeriveWallet(credential)
	}
	if err != nil {
		return nil, err
	}

	if err := a.store.CredentialStore().SetCurrent(ctx, credential); err != nil {
		w.Wipe()
		return nil, err
	}
	log.Debugf("switched to wallet %s", credential)
	return w, nil
}

// DeriveWallet recomputes the key of a derived wallet from its credential id alone. Imported
// wallets must have been unlocked first.
func (a *passkeyClient) DeriveWallet(
	_ context.Context, credential types.Credential,
) (*types.Wallet, error) {
	if credential.CredentialIDHex == "" {
		idHex, err := codec.IDToHex(credential.CredentialID)
		if err != nil {
			return nil, err
		}
		credential.CredentialIDHex = idHex
	}

	if credential.IsImported {
		key, ok := a.getUnlocked(credential.CredentialID)
		if !ok {
			return nil, ErrLocked
		}
		address, err := wallet.DeriveAddress(key)
		if err != nil {
			clear(key)
			return nil, err
		}
		return &types.Wallet{Credential: credential, PrivateKey: key, Address: address}, nil
	}

	return a.deriver.DeriveWallet(credential)
}

func (a *passkeyClient) GetEventChannel(ctx context.Context) <-chan types.StoreEvent {
	return a.store.CredentialStore().GetEventChannel(ctx)
}

func (a *passkeyClient) Lock(credentialID string) {
	a.unlockedMu.Lock()
	defer a.unlockedMu.Unlock()

	if key, ok := a.unlocked[credentialID]; ok {
		clear(key)
		delete(a.unlocked, credentialID)
	}
}

func (a *passkeyClient) LockAll() {
	a.unlockedMu.Lock()
	defer a.unlockedMu.Unlock()

	for id, key := range a.unlocked {
		clear(key)
		delete(a.unlocked, id)
	}
}

func (a *passkeyClient) IsLocked(credentialID string) bool {
	a.unlockedMu.RLock()
	defer a.unlockedMu.RUnlock()

	_, ok := a.unlocked[credentialID]
	return !ok
}

func (a *passkeyClient) Stop() {
	a.LockAll()
	a.store.Close()
}

func (a *passkeyClient) relyingParty() ceremony.RelyingParty {
	return ceremony.RelyingParty{
		ID:      config.ResolveRPID(a.rpID, a.origin),
		Name:    a.rpName,
		Timeout: a.timeout,
	}
}

func (a *passkeyClient) getWallet(
	ctx context.Context, credentialID string,
) (*types.StoredWallet, error) {
	stored, err := a.store.CredentialStore().GetWallet(ctx, credentialID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("wallet %s: %w", credentialID, ErrNotFound)
	}
	return stored, nil
}

func (a *passkeyClient) setUnlocked(credentialID string, key []byte) {
	a.unlockedMu.Lock()
	defer a.unlockedMu.Unlock()

	if prev, ok := a.unlocked[credentialID]; ok {
		clear(prev)
	}
	a.unlocked[credentialID] = append([]byte(nil), key...)
}

// getUnlocked returns a copy the caller may wipe.
func (a *passkeyClient) getUnlocked(credentialID string) ([]byte, bool) {
	a.unlockedMu.RLock()
	defer a.unlockedMu.RUnlock()

	key, ok := a.unlocked[credentialID]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), key...), true
}
