package bridge

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/passkey-wallet/go-sdk/ceremony"
)

const (
	createRequest = "create"
	getRequest    = "get"
	cancelRequest = "cancel"
)

type request struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Options any    `json:"options,omitempty"`
}

type response struct {
	ID         string             `mapstructure:"id"`
	Error      *pageError         `mapstructure:"error"`
	Credential *credentialPayload `mapstructure:"credential"`
}

type pageError struct {
	Name    string `mapstructure:"name"`
	Message string `mapstructure:"message"`
}

func (e pageError) String() string {
	if e.Message == "" {
		return e.Name
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

// credentialPayload carries the binary fields of a PublicKeyCredential as base64url strings.
type credentialPayload struct {
	RawID             string `mapstructure:"rawId"`
	PublicKey         string `mapstructure:"publicKey"`
	ClientDataJSON    string `mapstructure:"clientDataJSON"`
	AttestationObject string `mapstructure:"attestationObject"`
	AuthenticatorData string `mapstructure:"authenticatorData"`
	Signature         string `mapstructure:"signature"`
	UserHandle        string `mapstructure:"userHandle"`
}

func decodeResponse(msg map[string]any) (*response, error) {
	var resp response
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &resp,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(msg); err != nil {
		return nil, fmt.Errorf("malformed page response: %w", err)
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("malformed page response: missing id")
	}
	return &resp, nil
}

func (p credentialPayload) toAttestation() (*ceremony.Attestation, error) {
	fields, err := decodeFields(map[string]string{
		"rawId":             p.RawID,
		"publicKey":         p.PublicKey,
		"clientDataJSON":    p.ClientDataJSON,
		"attestationObject": p.AttestationObject,
	})
	if err != nil {
		return nil, err
	}
	if len(fields["rawId"]) == 0 {
		return nil, fmt.Errorf("missing credential id")
	}
	return &ceremony.Attestation{
		RawID:             fields["rawId"],
		PublicKey:         fields["publicKey"],
		ClientDataJSON:    fields["clientDataJSON"],
		AttestationObject: fields["attestationObject"],
	}, nil
}

func (p credentialPayload) toAssertion() (*ceremony.Assertion, error) {
	fields, err := decodeFields(map[string]string{
		"rawId":             p.RawID,
		"clientDataJSON":    p.ClientDataJSON,
		"authenticatorData": p.AuthenticatorData,
		"signature":         p.Signature,
		"userHandle":        p.UserHandle,
	})
	if err != nil {
		return nil, err
	}
	if len(fields["rawId"]) == 0 {
		return nil, fmt.Errorf("missing credential id")
	}
	return &ceremony.Assertion{
		RawID:             fields["rawId"],
		ClientDataJSON:    fields["clientDataJSON"],
		AuthenticatorData: fields["authenticatorData"],
		Signature:         fields["signature"],
		UserHandle:        fields["userHandle"],
	}, nil
}

func decodeFields(encoded map[string]string) (map[string][]byte, error) {
	decoded := make(map[string][]byte, len(encoded))
	for name, value := range encoded {
		if value == "" {
			continue
		}
		buf, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(value, "="))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", name, err)
		}
		decoded[name] = buf
	}
	return decoded, nil
}
