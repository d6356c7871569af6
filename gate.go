package passkeysdk

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/passkey-wallet/go-sdk/ceremony"
	"github.com/passkey-wallet/go-sdk/codec"
	log "github.com/sirupsen/logrus"
)

// Authenticate proves possession of the given credential. A nil error is a gate pass; it never
// yields key material.
func (a *passkeyClient) Authenticate(ctx context.Context, credentialID string) error {
	rawID, err := codec.DecodeID(credentialID)
	if err != nil {
		return err
	}
	challenge, err := a.newChallenge()
	if err != nil {
		return fmt.Errorf("failed to generate challenge: %w", err)
	}

	options := ceremony.NewRequestOptions(a.relyingParty(), challenge, rawID)
	assertion, err := a.authenticator.Get(ctx, options)
	if err != nil {
		log.WithError(err).Debug("authentication ceremony failed")
		return ceremonyError(err)
	}

	if !bytes.Equal(assertion.RawID, rawID) {
		return fmt.Errorf("%w: got credential %s", ErrCredentialMismatch, codec.EncodeID(assertion.RawID))
	}
	if err := ceremony.VerifyClientData(
		assertion.ClientDataJSON, protocol.AssertCeremony, challenge,
	); err != nil {
		return fmt.Errorf("%w: %s", ErrCredentialMismatch, err)
	}
	return nil
}
