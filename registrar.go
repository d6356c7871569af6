package passkeysdk

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/passkey-wallet/go-sdk/ceremony"
	"github.com/passkey-wallet/go-sdk/codec"
	"github.com/passkey-wallet/go-sdk/types"
	log "github.com/sirupsen/logrus"
)

// Register creates a new passkey and materializes the wallet derived from it as the current
// one. Nothing is written if the ceremony fails.
func (a *passkeyClient) Register(ctx context.Context, username string) (*types.Credential, error) {
	credential, err := a.createCredential(ctx, username)
	if err != nil {
		return nil, err
	}

	w, err := a.deriver.DeriveWallet(*credential)
	if err != nil {
		return nil, err
	}
	address := w.Address
	w.Wipe()

	credentialStore := a.store.CredentialStore()
	if err := credentialStore.UpsertWallet(
		ctx, types.NewStoredWallet(*credential, address),
	); err != nil {
		return nil, fmt.Errorf("failed to store wallet: %w", err)
	}
	if err := credentialStore.SetCurrent(ctx, *credential); err != nil {
		a.dropWallet(ctx, credential.CredentialID)
		return nil, fmt.Errorf("failed to set current wallet: %w", err)
	}

	log.Debugf("registered wallet %s with address %s", credential, address)
	return credential, nil
}

// createCredential runs the registration ceremony only.
func (a *passkeyClient) createCredential(
	ctx context.Context, username string,
) (*types.Credential, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrInvalidUsername
	}

	challenge, err := a.newChallenge()
	if err != nil {
		return nil, fmt.Errorf("failed to generate challenge: %w", err)
	}
	now := a.now()
	userHandle := codec.PackUserHandle(username, now.UnixMilli())

	options := ceremony.NewCreationOptions(a.relyingParty(), challenge, userHandle, username)
	attestation, err := a.authenticator.Create(ctx, options)
	if err != nil {
		log.WithError(err).Debug("registration ceremony failed")
		return nil, ceremonyError(err)
	}
	if len(attestation.RawID) == 0 {
		return nil, ceremonyError(fmt.Errorf("no credential id returned"))
	}
	if err := ceremony.VerifyClientData(
		attestation.ClientDataJSON, protocol.CreateCeremony, challenge,
	); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCredentialMismatch, err)
	}

	id, idHex := credentialIDs(attestation.RawID)
	return &types.Credential{
		CredentialID:    id,
		CredentialIDHex: idHex,
		PublicKey:       attestation.PublicKey,
		CreatedAt:       now,
		Username:        username,
	}, nil
}
