// Package crypto seals integration credentials (API keys, webhook secrets) stored
// in integration_status.config with AES-256-GCM, so a database dump alone does
// not expose provider keys and tampered ciphertexts fail to open.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

var (
	// ErrKeyLengthInvalid is returned when a raw key is not 32 bytes.
	ErrKeyLengthInvalid = errors.New("crypto: key must be exactly 32 bytes for AES-256")
	// ErrCiphertextCorrupted is returned when a sealed value is not valid base64 or is shorter than a nonce.
	ErrCiphertextCorrupted = errors.New("crypto: ciphertext is corrupted or tampered")
	// ErrDecryptionFailed is returned when GCM authentication fails (tampering or wrong key).
	ErrDecryptionFailed = errors.New("crypto: decryption operation failed")
	// ErrSaltTooShort is returned when a PBKDF2 salt is under 16 bytes.
	ErrSaltTooShort = errors.New("crypto: salt must be at least 16 bytes")
	// ErrEmptySecret is returned by FromSecret for an empty ENCRYPTION_KEY.
	ErrEmptySecret = errors.New("crypto: encryption secret is empty")
)

// passphraseSalt is used when ENCRYPTION_KEY is a passphrase rather than a raw key.
// Changing it makes every stored credential unreadable.
var passphraseSalt = []byte("ekkle-integration-credentials-v1")

const minIterations = 100000

// SecretCipher seals and opens short secrets.
type SecretCipher struct {
	aead cipher.AEAD
}

// NewSecretCipher creates a cipher from a raw 32-byte key.
func NewSecretCipher(key []byte) (*SecretCipher, error) {
	if len(key) != 32 {
		return nil, ErrKeyLengthInvalid
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &SecretCipher{aead: aead}, nil
}

// DeriveSecretCipher derives the AES key from a passphrase with PBKDF2-SHA256.
// Fewer than 10000 iterations are raised to the default.
func DeriveSecretCipher(passphrase string, salt []byte, iterations int) (*SecretCipher, error) {
	if len(salt) < 16 {
		return nil, ErrSaltTooShort
	}
	if iterations < 10000 {
		iterations = minIterations
	}
	return NewSecretCipher(pbkdf2.Key([]byte(passphrase), salt, iterations, 32, sha256.New))
}

// FromSecret interprets ENCRYPTION_KEY: 64 hex characters or base64 of 32 bytes
// are used as the raw key, anything else is treated as a passphrase.
func FromSecret(secret string) (*SecretCipher, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if len(secret) == 64 {
		if key, err := hex.DecodeString(secret); err == nil {
			return NewSecretCipher(key)
		}
	}
	if key, err := base64.StdEncoding.DecodeString(secret); err == nil && len(key) == 32 {
		return NewSecretCipher(key)
	}
	return DeriveSecretCipher(secret, passphraseSalt, minIterations)
}

// Seal encrypts plaintext to URL-safe base64 of nonce||ciphertext. Empty in, empty out.
func (c *SecretCipher) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal.
func (c *SecretCipher) Open(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}
	raw, err := base64.URLEncoding.DecodeString(sealed)
	if err != nil {
		return "", ErrCiphertextCorrupted
	}
	n := c.aead.NonceSize()
	if len(raw) < n {
		return "", ErrCiphertextCorrupted
	}
	plaintext, err := c.aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}

// GenerateKey returns a random 32-byte key, hex encoded, suitable for ENCRYPTION_KEY.
func GenerateKey() (string, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", err
	}
	return hex.EncodeToString(key), nil
}
