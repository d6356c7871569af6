package ceremony

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-webauthn/webauthn/protocol"
)

// VerifyClientData checks that the client data returned by the authenticator echoes the
// ceremony type and the challenge of the request.
func VerifyClientData(
	clientDataJSON []byte, ceremonyType protocol.CeremonyType, challenge []byte,
) error {
	if len(clientDataJSON) == 0 {
		return fmt.Errorf("missing client data")
	}

	var clientData protocol.CollectedClientData
	if err := json.Unmarshal(clientDataJSON, &clientData); err != nil {
		return fmt.Errorf("invalid client data: %w", err)
	}
	if clientData.Type != ceremonyType {
		return fmt.Errorf(
			"unexpected ceremony type: got %s, expected %s", clientData.Type, ceremonyType,
		)
	}

	var got protocol.URLEncodedBase64
	if err := got.UnmarshalJSON([]byte(`"` + clientData.Challenge + `"`)); err != nil {
		return fmt.Errorf("invalid client data challenge: %w", err)
	}
	if !bytes.Equal(got, challenge) {
		return fmt.Errorf("client data challenge does not match the request")
	}
	return nil
}

// NewClientData returns the client data json a browser would produce for the given request.
func NewClientData(ceremonyType protocol.CeremonyType, challenge []byte, origin string) []byte {
	//nolint:errchkjson
	buf, _ := json.Marshal(protocol.CollectedClientData{
		Type:      ceremonyType,
		Challenge: protocol.URLEncodedBase64(challenge).String(),
		Origin:    origin,
	})
	return buf
}
