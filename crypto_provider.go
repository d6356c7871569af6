package passkeysdk

import (
	"github.com/passkey-wallet/go-sdk/internal/utils"
	"github.com/passkey-wallet/go-sdk/types"
)

type cryptoProvider struct{}

// NewCryptoProvider returns the default provider: sha256 digests, crypto/rand and
// AES-256-GCM with 96 bit nonces.
func NewCryptoProvider() types.CryptoProvider {
	return cryptoProvider{}
}

func (cryptoProvider) Hash(data ...[]byte) []byte {
	return utils.Sha256(data...)
}

func (cryptoProvider) RandomBytes(n int) ([]byte, error) {
	return utils.RandomBytes(n)
}

func (cryptoProvider) Encrypt(key, nonce, plaintext []byte) ([]byte, error) {
	return utils.EncryptAESGCM(key, nonce, plaintext)
}

func (cryptoProvider) Decrypt(key, nonce, ciphertext []byte) ([]byte, error) {
	return utils.DecryptAESGCM(key, nonce, ciphertext)
}
