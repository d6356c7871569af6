package types

import (
	"encoding/json"
	"time"
)

// Persisted records keep timestamps as unix milliseconds.

type credentialJSON struct {
	CredentialID    string `json:"credentialId"`
	CredentialIDHex string `json:"credentialIdHex"`
	PublicKey       []byte `json:"publicKey,omitempty"`
	CreatedAt       int64  `json:"createdAt"`
	Username        string `json:"username,omitempty"`
	IsImported      bool   `json:"isImported,omitempty"`
}

func (c Credential) MarshalJSON() ([]byte, error) {
	return json.Marshal(credentialJSON{
		CredentialID:    c.CredentialID,
		CredentialIDHex: c.CredentialIDHex,
		PublicKey:       c.PublicKey,
		CreatedAt:       toMillis(c.CreatedAt),
		Username:        c.Username,
		IsImported:      c.IsImported,
	})
}

func (c *Credential) UnmarshalJSON(b []byte) error {
	var d credentialJSON
	if err := json.Unmarshal(b, &d); err != nil {
		return err
	}
	*c = Credential{
		CredentialID:    d.CredentialID,
		CredentialIDHex: d.CredentialIDHex,
		PublicKey:       d.PublicKey,
		CreatedAt:       fromMillis(d.CreatedAt),
		Username:        d.Username,
		IsImported:      d.IsImported,
	}
	return nil
}

type storedWalletJSON struct {
	CredentialID    string `json:"credentialId"`
	CredentialIDHex string `json:"credentialIdHex"`
	Username        string `json:"username"`
	Address         string `json:"address"`
	CreatedAt       int64  `json:"createdAt"`
	IsImported      bool   `json:"isImported,omitempty"`
}

func (w StoredWallet) MarshalJSON() ([]byte, error) {
	return json.Marshal(storedWalletJSON{
		CredentialID:    w.CredentialID,
		CredentialIDHex: w.CredentialIDHex,
		Username:        w.Username,
		Address:         w.Address,
		CreatedAt:       toMillis(w.CreatedAt),
		IsImported:      w.IsImported,
	})
}

func (w *StoredWallet) UnmarshalJSON(b []byte) error {
	var d storedWalletJSON
	if err := json.Unmarshal(b, &d); err != nil {
		return err
	}
	*w = StoredWallet{
		CredentialID:    d.CredentialID,
		CredentialIDHex: d.CredentialIDHex,
		Username:        d.Username,
		Address:         d.Address,
		CreatedAt:       fromMillis(d.CreatedAt),
		IsImported:      d.IsImported,
	}
	return nil
}

type encryptedKeyJSON struct {
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

func (r EncryptedKeyRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(encryptedKeyJSON(r))
}

func (r *EncryptedKeyRecord) UnmarshalJSON(b []byte) error {
	var d encryptedKeyJSON
	if err := json.Unmarshal(b, &d); err != nil {
		return err
	}
	*r = EncryptedKeyRecord(d)
	return nil
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
