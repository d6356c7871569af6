package passkeysdk

import (
	"context"
	"fmt"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/passkey-wallet/go-sdk/ceremony"
	"github.com/passkey-wallet/go-sdk/codec"
	"github.com/passkey-wallet/go-sdk/types"
	log "github.com/sirupsen/logrus"
)

// Recover lets the user pick any passkey of the relying party, possibly created on another
// device, and makes its wallet current. A wallet already in the list is left untouched.
func (a *passkeyClient) Recover(ctx context.Context) (*RecoveryResult, error) {
	challenge, err := a.newChallenge()
	if err != nil {
		return nil, fmt.Errorf("failed to generate challenge: %w", err)
	}

	options := ceremony.NewRequestOptions(a.relyingParty(), challenge)
	assertion, err := a.authenticator.Get(ctx, options)
	if err != nil {
		log.WithError(err).Debug("recovery ceremony failed")
		return nil, ceremonyError(err)
	}
	if len(assertion.RawID) == 0 {
		return nil, ceremonyError(fmt.Errorf("no credential id returned"))
	}
	if err := ceremony.VerifyClientData(
		assertion.ClientDataJSON, protocol.AssertCeremony, challenge,
	); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCredentialMismatch, err)
	}

	id, idHex := credentialIDs(assertion.RawID)
	credentialStore := a.store.CredentialStore()
	existing, err := credentialStore.GetWallet(ctx, id)
	if err != nil {
		return nil, err
	}

	credential := types.Credential{
		CredentialID:    id,
		CredentialIDHex: idHex,
		CreatedAt:       a.now(),
		Username:        recoveredUsername(assertion.UserHandle, existing),
	}

	var w *types.Wallet
	if existing != nil {
		credential.CreatedAt = existing.CreatedAt
		credential.IsImported = existing.IsImported
		// the assertion above already proved possession of the credential
		if existing.IsImported {
			w, err = a.openImported(ctx, credential, existing.Address)
		} else {
			w, err = a.deriver.DeriveWallet(credential)
		}
		if err != nil {
			return nil, err
		}
	} else {
		w, err = a.deriver.DeriveWallet(credential)
		if err != nil {
			return nil, err
		}
		if err := credentialStore.UpsertWallet(
			ctx, types.NewStoredWallet(credential, w.Address),
		); err != nil {
			w.Wipe()
			return nil, fmt.Errorf("failed to store wallet: %w", err)
		}
	}

	if err := credentialStore.SetCurrent(ctx, credential); err != nil {
		if existing == nil {
			a.dropWallet(ctx, credential.CredentialID)
		}
		w.Wipe()
		return nil, fmt.Errorf("failed to set current wallet: %w", err)
	}

	log.Debugf("recovered wallet %s (already known: %t)", credential, existing != nil)
	return &RecoveryResult{Wallet: w, AlreadyExisted: existing != nil}, nil
}

// recoveredUsername keeps the label of a known wallet so that a rename survives recovery.
// Unknown wallets take the label packed in the user handle.
func recoveredUsername(userHandle []byte, existing *types.StoredWallet) string {
	if existing != nil && existing.Username != "" {
		return existing.Username
	}
	if username, ok := codec.UnpackUserHandle(userHandle); ok && username != "" {
		return username
	}
	return recoveredWalletName
}
