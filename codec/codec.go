// Package codec converts credential identifiers between the platform's native url-safe
// base64 form and the hex form used for derivation, and packs usernames into user handles.
package codec

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/passkey-wallet/go-sdk/internal/utils"
)

// EncodeID returns the native (url-safe, unpadded base64) form of a raw credential id.
func EncodeID(raw []byte) string {
	return protocol.URLEncodedBase64(raw).String()
}

// DecodeID accepts both padded and unpadded url-safe base64.
func DecodeID(id string) ([]byte, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("missing credential id")
	}
	if rem := len(id) % 4; rem != 0 {
		id += strings.Repeat("=", 4-rem)
	}
	raw, err := base64.URLEncoding.DecodeString(id)
	if err != nil {
		return nil, fmt.Errorf("invalid credential id: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("missing credential id")
	}
	return raw, nil
}

func IDToHex(id string) (string, error) {
	raw, err := DecodeID(id)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

func HexToID(idHex string) (string, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(idHex))
	if err != nil {
		return "", fmt.Errorf("invalid credential id hex: %w", err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("missing credential id")
	}
	return EncodeID(raw), nil
}

// NormalizeLegacyID migrates records persisted before ids were kept in their native form.
// Such records carry the hex string in the id field, either alone or duplicated in the hex
// field. The returned flag reports whether a conversion happened.
func NormalizeLegacyID(id, idHex string) (string, string, bool) {
	isLegacy := (idHex == "" && utils.IsHex(id)) || (idHex != "" && id == idHex)
	if !isLegacy {
		return id, idHex, false
	}
	native, err := HexToID(id)
	if err != nil {
		return id, idHex, false
	}
	return native, strings.ToLower(id), true
}

// PackUserHandle embeds the username and a millisecond timestamp in the registration user
// handle so a discoverable login on another device can recover the label.
func PackUserHandle(username string, tsMillis int64) []byte {
	return []byte(username + "-" + strconv.FormatInt(tsMillis, 10))
}

// UnpackUserHandle strips a trailing "-<digits>" suffix. A username that itself ends in
// "-<digits>" cannot be told apart from a packed suffix and is truncated.
func UnpackUserHandle(handle []byte) (string, bool) {
	if len(handle) == 0 || !utf8.Valid(handle) {
		return "", false
	}
	s := string(handle)
	idx := strings.LastIndex(s, "-")
	if idx < 0 || !isDigits(s[idx+1:]) {
		return s, true
	}
	return s[:idx], true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
