// Package wallet derives secp256k1 wallet keys from passkey credential ids.
package wallet

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/passkey-wallet/go-sdk/internal/utils"
	"github.com/passkey-wallet/go-sdk/types"
	"golang.org/x/crypto/sha3"
)

const (
	WalletDomain = "passkey-wallet/secp256k1-key/v1"
	ImportDomain = "passkey-wallet/import-encryption-key/v1"

	PrivateKeySize = 32
	addressSize    = 20

	// a digest outside the scalar range is re-hashed with a counter suffix
	maxDeriveAttempts = 256
)

type Deriver struct {
	crypto types.CryptoProvider
}

func NewDeriver(crypto types.CryptoProvider) *Deriver {
	return &Deriver{crypto: crypto}
}

// Derive maps a credential id (hex of its raw bytes) to a private key. The first digest is
// used as is whenever it is a valid scalar.
func (d *Deriver) Derive(credentialIDHex string) ([]byte, error) {
	raw, err := decodeCredentialHex(credentialIDHex)
	if err != nil {
		return nil, err
	}

	key := d.crypto.Hash([]byte(WalletDomain), raw)
	for ctr := uint32(1); !ValidPrivateKey(key); ctr++ {
		clear(key)
		if ctr > maxDeriveAttempts {
			return nil, fmt.Errorf("failed to derive a valid private key")
		}
		var suffix [4]byte
		binary.BigEndian.PutUint32(suffix[:], ctr)
		key = d.crypto.Hash([]byte(WalletDomain), raw, suffix[:])
	}
	return key, nil
}

// DeriveImportKey returns the symmetric key sealing an imported private key. It never equals
// the wallet key of the same credential because the domain prefixes differ.
func (d *Deriver) DeriveImportKey(credentialIDHex string) ([]byte, error) {
	raw, err := decodeCredentialHex(credentialIDHex)
	if err != nil {
		return nil, err
	}
	return d.crypto.Hash([]byte(ImportDomain), raw), nil
}

func (d *Deriver) DeriveWallet(credential types.Credential) (*types.Wallet, error) {
	key, err := d.Derive(credential.CredentialIDHex)
	if err != nil {
		return nil, err
	}
	address, err := DeriveAddress(key)
	if err != nil {
		clear(key)
		return nil, err
	}
	return &types.Wallet{
		Credential: credential,
		PrivateKey: key,
		Address:    address,
	}, nil
}

func ValidPrivateKey(key []byte) bool {
	if len(key) != PrivateKeySize {
		return false
	}
	var scalar btcec.ModNScalar
	if overflow := scalar.SetByteSlice(key); overflow {
		return false
	}
	return !scalar.IsZero()
}

// ParsePrivateKeyHex accepts 64 hex characters with or without a 0x prefix.
func ParsePrivateKeyHex(keyHex string) ([]byte, error) {
	keyHex = strings.TrimSpace(keyHex)
	keyHex = strings.TrimPrefix(strings.TrimPrefix(keyHex, "0x"), "0X")
	if len(keyHex) != 2*PrivateKeySize || !utils.IsHex(keyHex) {
		return nil, fmt.Errorf("private key must be %d hex characters", 2*PrivateKeySize)
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, err
	}
	if !ValidPrivateKey(key) {
		clear(key)
		return nil, fmt.Errorf("private key is out of range")
	}
	return key, nil
}

// DeriveAddress returns the EIP-55 checksummed address of the key.
func DeriveAddress(privateKey []byte) (string, error) {
	if !ValidPrivateKey(privateKey) {
		return "", fmt.Errorf("invalid private key")
	}
	_, pubkey := btcec.PrivKeyFromBytes(privateKey)
	uncompressed := pubkey.SerializeUncompressed()

	digest := keccak256(uncompressed[1:])
	return checksumAddress(digest[len(digest)-addressSize:]), nil
}

func IsAddress(address string) bool {
	if !strings.HasPrefix(address, "0x") {
		return false
	}
	raw := address[2:]
	return len(raw) == 2*addressSize && utils.IsHex(raw)
}

func checksumAddress(addr []byte) string {
	lower := hex.EncodeToString(addr)
	hash := keccak256([]byte(lower))

	out := make([]byte, len(lower))
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		nibble := hash[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if c >= 'a' && nibble&0x0f >= 8 {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return "0x" + string(out)
}

func keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

func decodeCredentialHex(credentialIDHex string) ([]byte, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(credentialIDHex))
	if err != nil {
		return nil, fmt.Errorf("invalid credential id hex: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("missing credential id")
	}
	return raw, nil
}
