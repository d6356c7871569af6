package passkeysdk

import (
	"errors"
	"fmt"

	"github.com/passkey-wallet/go-sdk/ceremony"
	"github.com/passkey-wallet/go-sdk/types"
)

var (
	// ErrCeremonyRejected is returned when the user cancels, the authenticator refuses or the
	// ceremony times out. Nothing is persisted on this path.
	ErrCeremonyRejected = ceremony.ErrRejected
	// ErrCredentialMismatch is returned when the authenticator answers with a credential or
	// client data that does not belong to the issued request.
	ErrCredentialMismatch = errors.New("credential does not match the request")

	ErrNotFound          = types.ErrNotFound
	ErrCryptoMismatch    = errors.New("failed to decrypt private key")
	ErrInvalidPrivateKey = errors.New("invalid private key")
	ErrInvalidUsername   = errors.New("invalid username")
	ErrNotImported       = errors.New("wallet is not imported")
	ErrLocked            = errors.New("wallet is locked")
)

func ceremonyError(err error) error {
	if errors.Is(err, ErrCeremonyRejected) {
		return err
	}
	return fmt.Errorf("%w: %s", ErrCeremonyRejected, err)
}
