package wallet_test

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/passkey-wallet/go-sdk/internal/utils"
	"github.com/passkey-wallet/go-sdk/types"
	"github.com/passkey-wallet/go-sdk/wallet"
	"github.com/stretchr/testify/require"
)

type sha256Provider struct{}

func (sha256Provider) Hash(data ...[]byte) []byte { return utils.Sha256(data...) }
func (sha256Provider) RandomBytes(n int) ([]byte, error) {
	return utils.RandomBytes(n)
}
func (sha256Provider) Encrypt(key, nonce, plaintext []byte) ([]byte, error) {
	return utils.EncryptAESGCM(key, nonce, plaintext)
}
func (sha256Provider) Decrypt(key, nonce, ciphertext []byte) ([]byte, error) {
	return utils.DecryptAESGCM(key, nonce, ciphertext)
}

// overflowingProvider returns an out of range digest for unsuffixed inputs.
type overflowingProvider struct {
	sha256Provider
	calls int
}

func (p *overflowingProvider) Hash(data ...[]byte) []byte {
	p.calls++
	if len(data) == 2 {
		return bytes.Repeat([]byte{0xff}, 32)
	}
	return utils.Sha256(data...)
}

func TestDerive(t *testing.T) {
	d := wallet.NewDeriver(sha256Provider{})

	key, err := d.Derive("0102030405")
	require.NoError(t, err)
	require.Len(t, key, wallet.PrivateKeySize)

	raw, _ := hex.DecodeString("0102030405")
	expected := sha256.Sum256(append([]byte(wallet.WalletDomain), raw...))
	require.Equal(t, expected[:], key)

	again, err := d.Derive("0102030405")
	require.NoError(t, err)
	require.Equal(t, key, again)

	upper, err := d.Derive("0A0B")
	require.NoError(t, err)
	lower, err := d.Derive("0a0b")
	require.NoError(t, err)
	require.Equal(t, lower, upper)

	other, err := d.Derive("0102030406")
	require.NoError(t, err)
	require.NotEqual(t, key, other)
}

func TestDeriveDistinct(t *testing.T) {
	d := wallet.NewDeriver(sha256Provider{})

	ids := make(map[string]struct{})
	keys := make(map[string]struct{})
	addresses := make(map[string]struct{})
	for len(ids) < 500 {
		raw, err := utils.RandomBytes(16 + len(ids)%49)
		require.NoError(t, err)
		idHex := hex.EncodeToString(raw)
		if _, ok := ids[idHex]; ok {
			continue
		}
		ids[idHex] = struct{}{}

		key, err := d.Derive(idHex)
		require.NoError(t, err)
		importKey, err := d.DeriveImportKey(idHex)
		require.NoError(t, err)
		require.NotEqual(t, key, importKey)

		address, err := wallet.DeriveAddress(key)
		require.NoError(t, err)

		require.NotContains(t, keys, hex.EncodeToString(key))
		require.NotContains(t, keys, hex.EncodeToString(importKey))
		require.NotContains(t, addresses, address)
		keys[hex.EncodeToString(key)] = struct{}{}
		keys[hex.EncodeToString(importKey)] = struct{}{}
		addresses[address] = struct{}{}
	}
	require.Len(t, keys, 1000)
	require.Len(t, addresses, 500)
}

func TestDeriveInvalidInput(t *testing.T) {
	d := wallet.NewDeriver(sha256Provider{})
	for _, in := range []string{"", "zz", "abc"} {
		_, err := d.Derive(in)
		require.Error(t, err, in)
		_, err = d.DeriveImportKey(in)
		require.Error(t, err, in)
	}
}

func TestDeriveOutOfRangeDigest(t *testing.T) {
	p := &overflowingProvider{}
	d := wallet.NewDeriver(p)

	key, err := d.Derive("01")
	require.NoError(t, err)
	require.True(t, wallet.ValidPrivateKey(key))

	expected := sha256.Sum256([]byte(wallet.WalletDomain + "\x01\x00\x00\x00\x01"))
	require.Equal(t, expected[:], key)
	require.Equal(t, 2, p.calls)
}

func TestImportKeyDomainSeparation(t *testing.T) {
	d := wallet.NewDeriver(sha256Provider{})
	require.NotEqual(t, wallet.WalletDomain, wallet.ImportDomain)

	for _, idHex := range []string{"00", "0102030405", strings.Repeat("ab", 32)} {
		walletKey, err := d.Derive(idHex)
		require.NoError(t, err)
		importKey, err := d.DeriveImportKey(idHex)
		require.NoError(t, err)
		require.Len(t, importKey, utils.KeySize)
		require.NotEqual(t, walletKey, importKey)

		again, err := d.DeriveImportKey(idHex)
		require.NoError(t, err)
		require.Equal(t, importKey, again)
	}
}

func TestDeriveAddress(t *testing.T) {
	tests := []struct {
		keyHex   string
		expected string
	}{
		{
			keyHex:   "0000000000000000000000000000000000000000000000000000000000000001",
			expected: "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf",
		},
		{
			keyHex:   "0000000000000000000000000000000000000000000000000000000000000002",
			expected: "0x2B5AD5c4795c026514f8317c7a215E218DcCD6cF",
		},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			key, err := hex.DecodeString(tt.keyHex)
			require.NoError(t, err)
			address, err := wallet.DeriveAddress(key)
			require.NoError(t, err)
			require.Equal(t, tt.expected, address)
			require.True(t, wallet.IsAddress(address))
		})
	}

	_, err := wallet.DeriveAddress(make([]byte, 32))
	require.Error(t, err)
}

func TestValidPrivateKey(t *testing.T) {
	order, _ := hex.DecodeString(
		"fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141",
	)
	belowOrder, _ := hex.DecodeString(
		"fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364140",
	)

	tests := []struct {
		name  string
		key   []byte
		valid bool
	}{
		{"zero", make([]byte, 32), false},
		{"one", append(make([]byte, 31), 1), true},
		{"order", order, false},
		{"order minus one", belowOrder, true},
		{"all ones", bytes.Repeat([]byte{0xff}, 32), false},
		{"short", []byte{1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.valid, wallet.ValidPrivateKey(tt.key))
		})
	}
}

func TestParsePrivateKeyHex(t *testing.T) {
	valid := strings.Repeat("11", 32)

	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"plain", valid, false},
		{"prefixed", "0x" + valid, false},
		{"upper prefix", "0X" + strings.ToUpper(valid), false},
		{"surrounding spaces", "  " + valid + "\n", false},
		{"short", valid[:62], true},
		{"long", valid + "11", true},
		{"not hex", strings.Repeat("zz", 32), true},
		{"zero", strings.Repeat("00", 32), true},
		{"out of range", strings.Repeat("ff", 32), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := wallet.ParsePrivateKeyHex(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, bytes.Repeat([]byte{0x11}, 32), key)
		})
	}
}

func TestDeriveWallet(t *testing.T) {
	d := wallet.NewDeriver(sha256Provider{})
	credential := types.Credential{CredentialID: "AQID", CredentialIDHex: "010203"}

	w, err := d.DeriveWallet(credential)
	require.NoError(t, err)
	require.Equal(t, credential, w.Credential)
	require.True(t, wallet.IsAddress(w.Address))

	address, err := wallet.DeriveAddress(w.PrivateKey)
	require.NoError(t, err)
	require.Equal(t, address, w.Address)
	require.Equal(t, w.PrivKey().Serialize(), w.PrivateKey)

	w.Wipe()
	require.Nil(t, w.PrivateKey)
}
