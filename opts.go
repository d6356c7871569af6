package passkeysdk

import (
	"time"

	"github.com/passkey-wallet/go-sdk/types"
	log "github.com/sirupsen/logrus"
)

type ClientOption func(*passkeyClient)

// WithVerbose enables debug logs.
func WithVerbose() ClientOption {
	return func(c *passkeyClient) {
		log.SetLevel(log.DebugLevel)
	}
}

// WithCryptoProvider replaces the default sha256 and AES-GCM provider.
func WithCryptoProvider(crypto types.CryptoProvider) ClientOption {
	return func(c *passkeyClient) {
		c.crypto = crypto
	}
}

// WithRelyingParty pins the relying party id and display name. Wallets stay recoverable only
// as long as the id does not change.
func WithRelyingParty(id, name string) ClientOption {
	return func(c *passkeyClient) {
		c.rpID = id
		c.rpName = name
	}
}

// WithOrigin sets the origin whose host is the relying party id when none is pinned.
func WithOrigin(origin string) ClientOption {
	return func(c *passkeyClient) {
		c.origin = origin
	}
}

// WithCeremonyTimeout sets the timeout advertised to the authenticator.
// Default: 60 seconds.
func WithCeremonyTimeout(timeout time.Duration) ClientOption {
	return func(c *passkeyClient) {
		c.timeout = timeout
	}
}

func WithClock(now func() time.Time) ClientOption {
	return func(c *passkeyClient) {
		c.now = now
	}
}
