// Package vault provides envelope encryption for PII columns and document
// references stored in the relational store.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

var (
	ErrKeyMissing      = errors.New("encryption_key_missing")
	ErrInvalidEnvelope = errors.New("invalid_envelope")
)

// Redacted is the sentinel value fields degrade to when decryption fails.
const Redacted = "[unreadable]"

type envelope struct {
	Version    int    `json:"version"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// Vault encrypts and decrypts short string fields with AES-GCM. The key is
// derived from the configured secret.
type Vault struct {
	key []byte
}

func New(secret string) *Vault {
	secret = strings.TrimSpace(secret)
	var key []byte
	if secret != "" {
		sum := sha256.Sum256([]byte(secret))
		key = sum[:]
	}
	return &Vault{key: key}
}

func (v *Vault) Encrypt(plaintext string) (string, error) {
	if len(v.key) == 0 {
		return "", ErrKeyMissing
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)

	out, err := json.Marshal(envelope{
		Version:    1,
		Nonce:      base64.RawStdEncoding.EncodeToString(nonce),
		Ciphertext: base64.RawStdEncoding.EncodeToString(sealed),
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (v *Vault) Decrypt(encrypted string) (string, error) {
	if len(v.key) == 0 {
		return "", ErrKeyMissing
	}
	if strings.TrimSpace(encrypted) == "" {
		return "", ErrInvalidEnvelope
	}

	var payload envelope
	if err := json.Unmarshal([]byte(encrypted), &payload); err != nil {
		return "", ErrInvalidEnvelope
	}
	if payload.Version != 1 {
		return "", ErrInvalidEnvelope
	}

	nonce, err := base64.RawStdEncoding.DecodeString(payload.Nonce)
	if err != nil {
		return "", ErrInvalidEnvelope
	}
	ciphertext, err := base64.RawStdEncoding.DecodeString(payload.Ciphertext)
	if err != nil {
		return "", ErrInvalidEnvelope
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrInvalidEnvelope
	}
	return string(plain), nil
}

// DecryptOrRedact never fails the caller: an unreadable field becomes the
// Redacted sentinel so reconciliation flows keep going.
func (v *Vault) DecryptOrRedact(encrypted string) string {
	if encrypted == "" {
		return ""
	}
	plain, err := v.Decrypt(encrypted)
	if err != nil {
		return Redacted
	}
	return plain
}
