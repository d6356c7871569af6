package ceremony_test

import (
	"testing"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"
	"github.com/passkey-wallet/go-sdk/ceremony"
	"github.com/stretchr/testify/require"
)

var rp = ceremony.RelyingParty{ID: "wallet.example", Name: "Wallet", Timeout: 30 * time.Second}

func TestNewCreationOptions(t *testing.T) {
	challenge := make([]byte, ceremony.ChallengeSize)
	challenge[0] = 1
	opts := ceremony.NewCreationOptions(rp, challenge, []byte("alice-1"), "alice")

	require.Equal(t, "wallet.example", opts.RelyingParty.ID)
	require.Equal(t, "Wallet", opts.RelyingParty.Name)
	require.Equal(t, "alice", opts.User.Name)
	require.Equal(t, "alice", opts.User.DisplayName)
	require.Equal(t, protocol.URLEncodedBase64("alice-1"), opts.User.ID)
	require.Equal(t, protocol.URLEncodedBase64(challenge), opts.Challenge)
	require.Equal(t, 30000, opts.Timeout)

	require.Len(t, opts.Parameters, 2)
	require.Equal(t, webauthncose.AlgES256, opts.Parameters[0].Algorithm)
	require.Equal(t, webauthncose.AlgRS256, opts.Parameters[1].Algorithm)

	selection := opts.AuthenticatorSelection
	require.Equal(t, protocol.Platform, selection.AuthenticatorAttachment)
	require.Equal(t, protocol.ResidentKeyRequirementRequired, selection.ResidentKey)
	require.NotNil(t, selection.RequireResidentKey)
	require.True(t, *selection.RequireResidentKey)
	require.Equal(t, protocol.VerificationRequired, selection.UserVerification)
	require.Equal(t, protocol.PreferNoAttestation, opts.Attestation)
}

func TestNewCreationOptionsDefaults(t *testing.T) {
	opts := ceremony.NewCreationOptions(
		ceremony.RelyingParty{ID: "localhost"}, []byte{1}, []byte("bob-1"), "bob",
	)
	require.Equal(t, "localhost", opts.RelyingParty.Name)
	require.Equal(t, int(ceremony.DefaultTimeout.Milliseconds()), opts.Timeout)
}

func TestNewRequestOptions(t *testing.T) {
	t.Run("allow list", func(t *testing.T) {
		opts := ceremony.NewRequestOptions(rp, []byte{9}, []byte{1, 2, 3})
		require.Equal(t, "wallet.example", opts.RelyingPartyID)
		require.Equal(t, protocol.VerificationRequired, opts.UserVerification)
		require.Len(t, opts.AllowedCredentials, 1)
		require.Equal(t, protocol.PublicKeyCredentialType, opts.AllowedCredentials[0].Type)
		require.Equal(
			t, protocol.URLEncodedBase64{1, 2, 3}, opts.AllowedCredentials[0].CredentialID,
		)
	})
	t.Run("discoverable", func(t *testing.T) {
		opts := ceremony.NewRequestOptions(rp, []byte{9})
		require.Empty(t, opts.AllowedCredentials)
	})
}

func TestVerifyClientData(t *testing.T) {
	challenge := []byte("0123456789abcdef0123456789abcdef")
	other := []byte("fedcba9876543210fedcba9876543210")

	tests := []struct {
		name       string
		clientData []byte
		typ        protocol.CeremonyType
		wantErr    bool
	}{
		{
			name:       "valid get",
			clientData: ceremony.NewClientData(protocol.AssertCeremony, challenge, "https://a"),
			typ:        protocol.AssertCeremony,
		},
		{
			name:       "valid create",
			clientData: ceremony.NewClientData(protocol.CreateCeremony, challenge, "https://a"),
			typ:        protocol.CreateCeremony,
		},
		{
			name:    "no client data",
			typ:     protocol.AssertCeremony,
			wantErr: true,
		},
		{
			name:       "empty client data",
			clientData: []byte{},
			typ:        protocol.CreateCeremony,
			wantErr:    true,
		},
		{
			name:       "wrong type",
			clientData: ceremony.NewClientData(protocol.CreateCeremony, challenge, "https://a"),
			typ:        protocol.AssertCeremony,
			wantErr:    true,
		},
		{
			name:       "wrong challenge",
			clientData: ceremony.NewClientData(protocol.AssertCeremony, other, "https://a"),
			typ:        protocol.AssertCeremony,
			wantErr:    true,
		},
		{
			name:       "malformed",
			clientData: []byte("{"),
			typ:        protocol.AssertCeremony,
			wantErr:    true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ceremony.VerifyClientData(tt.clientData, tt.typ, challenge)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}
