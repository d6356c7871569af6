package passkeysdk

import (
	"context"

	"github.com/passkey-wallet/go-sdk/types"
)

var Version string

type PasskeyClient interface {
	GetVersion() string
	Register(ctx context.Context, username string) (*types.Credential, error)
	Authenticate(ctx context.Context, credentialID string) error
	Recover(ctx context.Context) (*RecoveryResult, error)
	ImportFromPrivateKey(ctx context.Context, privateKeyHex, username string) (*types.Wallet, error)
	Unlock(ctx context.Context, wallet types.StoredWallet) (*types.Wallet, error)
	Lock(credentialID string)
	LockAll()
	IsLocked(credentialID string) bool
	DeleteWithAuth(ctx context.Context, credentialID string) error
	SwitchWallet(ctx context.Context, credentialID string) (*types.Wallet, error)
	DeriveWallet(ctx context.Context, credential types.Credential) (*types.Wallet, error)
	RenameWallet(ctx context.Context, credentialID, username string) error
	ListWallets(ctx context.Context) ([]types.StoredWallet, error)
	GetCurrent(ctx context.Context) (*types.Credential, error)
	GetEventChannel(ctx context.Context) <-chan types.StoreEvent
	Stop()
}

type RecoveryResult struct {
	Wallet         *types.Wallet
	AlreadyExisted bool
}
