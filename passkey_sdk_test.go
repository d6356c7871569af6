package passkeysdk_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"sync"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/passkey-wallet/go-sdk/ceremony"
)

const testOrigin = "https://wallet.example"

type fakeCredential struct {
	rawID      []byte
	userHandle []byte
}

// fakeAuthenticator stands in for the platform authenticator. Passkeys it creates are kept
// across clients so recovery on a fresh store can be exercised.
type fakeAuthenticator struct {
	mu          *sync.Mutex
	credentials []fakeCredential

	reject       error
	wrongID      bool
	noHandle     bool
	pick         int
	badClient    bool
	noClientData bool
	lastCreate   *protocol.PublicKeyCredentialCreationOptions
	lastGet      *protocol.PublicKeyCredentialRequestOptions
}

func newFakeAuthenticator() *fakeAuthenticator {
	return &fakeAuthenticator{mu: &sync.Mutex{}}
}

func (f *fakeAuthenticator) setReject(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reject = err
}

func (f *fakeAuthenticator) Create(
	_ context.Context, options protocol.PublicKeyCredentialCreationOptions,
) (*ceremony.Attestation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastCreate = &options
	if f.reject != nil {
		return nil, f.reject
	}

	rawID := make([]byte, 16)
	if _, err := rand.Read(rawID); err != nil {
		return nil, err
	}
	userHandle, _ := options.User.ID.(protocol.URLEncodedBase64)
	f.credentials = append(f.credentials, fakeCredential{rawID: rawID, userHandle: userHandle})

	return &ceremony.Attestation{
		RawID:          rawID,
		PublicKey:      []byte{0x04, 0x01, 0x02},
		ClientDataJSON: f.clientData(protocol.CreateCeremony, options.Challenge),
	}, nil
}

func (f *fakeAuthenticator) Get(
	_ context.Context, options protocol.PublicKeyCredentialRequestOptions,
) (*ceremony.Assertion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastGet = &options
	if f.reject != nil {
		return nil, f.reject
	}

	var chosen *fakeCredential
	if len(options.AllowedCredentials) > 0 {
		for i := range f.credentials {
			if bytes.Equal(f.credentials[i].rawID, options.AllowedCredentials[0].CredentialID) {
				chosen = &f.credentials[i]
				break
			}
		}
	} else if f.pick < len(f.credentials) {
		chosen = &f.credentials[f.pick]
	}
	if chosen == nil {
		return nil, fmt.Errorf("%w: NotAllowedError", ceremony.ErrRejected)
	}

	rawID := chosen.rawID
	if f.wrongID {
		rawID = append([]byte{0xff}, rawID...)
	}
	assertion := &ceremony.Assertion{
		RawID:          rawID,
		ClientDataJSON: f.clientData(protocol.AssertCeremony, options.Challenge),
	}
	if len(options.AllowedCredentials) == 0 && !f.noHandle {
		assertion.UserHandle = chosen.userHandle
	}
	return assertion, nil
}

func (f *fakeAuthenticator) clientData(typ protocol.CeremonyType, challenge []byte) []byte {
	if f.noClientData {
		return nil
	}
	if f.badClient {
		challenge = []byte("another challenge")
	}
	return ceremony.NewClientData(typ, challenge, testOrigin)
}
