// Package ceremony describes the platform authenticator ceremonies the wallet relies on.
// Requests reuse the WebAuthn option shapes so any bridge can hand them to the browser as is.
package ceremony

import (
	"context"
	"errors"
	"time"

	"github.com/ccoveille/go-safecast"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"
)

const (
	ChallengeSize = 32

	DefaultTimeout = 60 * time.Second
)

// ErrRejected covers every way a ceremony can end without a credential: the user cancelled,
// the authenticator refused, the request timed out or the platform is unsupported.
var ErrRejected = errors.New("ceremony rejected")

// Authenticator runs ceremonies against a platform authenticator.
// Implementations return an error wrapping ErrRejected when no credential was produced.
type Authenticator interface {
	Create(
		ctx context.Context, options protocol.PublicKeyCredentialCreationOptions,
	) (*Attestation, error)
	Get(ctx context.Context, options protocol.PublicKeyCredentialRequestOptions) (*Assertion, error)
}

// Attestation is what a creation ceremony returns.
type Attestation struct {
	RawID             []byte
	PublicKey         []byte
	ClientDataJSON    []byte
	AttestationObject []byte
}

// Assertion is what a request ceremony returns. UserHandle is the handle stored at
// registration, only present for discoverable credentials.
type Assertion struct {
	RawID             []byte
	ClientDataJSON    []byte
	AuthenticatorData []byte
	Signature         []byte
	UserHandle        []byte
}

type RelyingParty struct {
	ID      string
	Name    string
	Timeout time.Duration
}

func (rp RelyingParty) timeoutMillis() int {
	timeout := rp.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ms, err := safecast.ToInt(timeout.Milliseconds())
	if err != nil {
		return int(DefaultTimeout.Milliseconds())
	}
	return ms
}

// NewCreationOptions builds a registration request for a discoverable, user-verified,
// platform-bound credential.
func NewCreationOptions(
	rp RelyingParty, challenge, userHandle []byte, username string,
) protocol.PublicKeyCredentialCreationOptions {
	name := rp.Name
	if name == "" {
		name = rp.ID
	}
	return protocol.PublicKeyCredentialCreationOptions{
		RelyingParty: protocol.RelyingPartyEntity{
			CredentialEntity: protocol.CredentialEntity{Name: name},
			ID:               rp.ID,
		},
		User: protocol.UserEntity{
			CredentialEntity: protocol.CredentialEntity{Name: username},
			DisplayName:      username,
			ID:               protocol.URLEncodedBase64(userHandle),
		},
		Challenge: protocol.URLEncodedBase64(challenge),
		Parameters: []protocol.CredentialParameter{
			{Type: protocol.PublicKeyCredentialType, Algorithm: webauthncose.AlgES256},
			{Type: protocol.PublicKeyCredentialType, Algorithm: webauthncose.AlgRS256},
		},
		Timeout: rp.timeoutMillis(),
		AuthenticatorSelection: protocol.AuthenticatorSelection{
			AuthenticatorAttachment: protocol.Platform,
			RequireResidentKey:      protocol.ResidentKeyRequired(),
			ResidentKey:             protocol.ResidentKeyRequirementRequired,
			UserVerification:        protocol.VerificationRequired,
		},
		Attestation: protocol.PreferNoAttestation,
	}
}

// NewRequestOptions builds an authentication request. With no allowed ids the request is
// discoverable and the user picks any credential of the relying party.
func NewRequestOptions(
	rp RelyingParty, challenge []byte, allowed ...[]byte,
) protocol.PublicKeyCredentialRequestOptions {
	descriptors := make([]protocol.CredentialDescriptor, 0, len(allowed))
	for _, id := range allowed {
		descriptors = append(descriptors, protocol.CredentialDescriptor{
			Type:         protocol.PublicKeyCredentialType,
			CredentialID: protocol.URLEncodedBase64(id),
		})
	}
	return protocol.PublicKeyCredentialRequestOptions{
		Challenge:          protocol.URLEncodedBase64(challenge),
		Timeout:            rp.timeoutMillis(),
		RelyingPartyID:     rp.ID,
		AllowedCredentials: descriptors,
		UserVerification:   protocol.VerificationRequired,
	}
}
