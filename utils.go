package passkeysdk

import (
	"encoding/hex"

	"github.com/passkey-wallet/go-sdk/ceremony"
	"github.com/passkey-wallet/go-sdk/codec"
)

func (a *passkeyClient) newChallenge() ([]byte, error) {
	return a.crypto.RandomBytes(ceremony.ChallengeSize)
}

// credentialIDs returns the native and hex forms of a raw credential id.
func credentialIDs(rawID []byte) (string, string) {
	return codec.EncodeID(rawID), hex.EncodeToString(rawID)
}
