package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidKey is returned when the configured key material is unusable
	ErrInvalidKey = errors.New("invalid encryption key")

	// ErrInvalidCiphertext is returned when ciphertext does not match the
	// iv:authTag:ciphertext serialization or fails authentication
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
)

const gcmNonceSize = 12 // 96-bit IV

// devKeyPassphrase seeds the deterministic development key. It is only used
// outside production; production requires explicit key material.
const devKeyPassphrase = "homeops-dev-encryption-key"

// SecretBox encrypts and decrypts short secrets with AES-256-GCM. The key id
// is recorded alongside encryptions to allow future rotation; it is not part
// of the serialized ciphertext.
type SecretBox struct {
	key   [32]byte
	keyID string
}

// NewSecretBox builds a SecretBox from hex- or raw-encoded key material.
// In production missing or short key material is an error; elsewhere a
// deterministic development key is derived from a fixed passphrase.
func NewSecretBox(keyMaterial, keyID, env string) (*SecretBox, error) {
	if keyMaterial == "" {
		if env == "production" {
			return nil, fmt.Errorf("encryption key is required in production: %w", ErrInvalidKey)
		}
		return &SecretBox{key: sha256.Sum256([]byte(devKeyPassphrase)), keyID: "dev"}, nil
	}

	if decoded, err := hex.DecodeString(keyMaterial); err == nil && len(decoded) >= 32 {
		var key [32]byte
		copy(key[:], decoded[:32])
		return &SecretBox{key: key, keyID: keyID}, nil
	}

	if len(keyMaterial) < 32 {
		return nil, fmt.Errorf("encryption key must be at least 32 bytes: %w", ErrInvalidKey)
	}

	var key [32]byte
	copy(key[:], keyMaterial[:32])
	return &SecretBox{key: key, keyID: keyID}, nil
}

// KeyID returns the identifier of the active key
func (b *SecretBox) KeyID() string {
	return b.keyID
}

// Encrypt encrypts plaintext and serializes the result as
// iv:authTag:ciphertext, each part hex-encoded
func (b *SecretBox) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(b.key[:])
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCMWithNonceSize(block, gcmNonceSize)
	if err != nil {
		return "", fmt.Errorf("failed to create gcm: %w", err)
	}

	iv := make([]byte, gcmNonceSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate iv: %w", err)
	}

	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	tagStart := len(sealed) - gcm.Overhead()
	ciphertext, tag := sealed[:tagStart], sealed[tagStart:]

	return fmt.Sprintf("%s:%s:%s",
		hex.EncodeToString(iv),
		hex.EncodeToString(tag),
		hex.EncodeToString(ciphertext),
	), nil
}

// Decrypt reverses Encrypt, validating the three-part shape first
func (b *SecretBox) Decrypt(serialized string) (string, error) {
	parts := strings.Split(serialized, ":")
	if len(parts) != 3 {
		return "", fmt.Errorf("expected iv:authTag:ciphertext: %w", ErrInvalidCiphertext)
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != gcmNonceSize {
		return "", fmt.Errorf("malformed iv: %w", ErrInvalidCiphertext)
	}

	tag, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("malformed auth tag: %w", ErrInvalidCiphertext)
	}

	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("malformed ciphertext: %w", ErrInvalidCiphertext)
	}

	block, err := aes.NewCipher(b.key[:])
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCMWithNonceSize(block, gcmNonceSize)
	if err != nil {
		return "", fmt.Errorf("failed to create gcm: %w", err)
	}

	if len(tag) != gcm.Overhead() {
		return "", fmt.Errorf("malformed auth tag: %w", ErrInvalidCiphertext)
	}

	plaintext, err := gcm.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("decryption failed: %w", ErrInvalidCiphertext)
	}

	return string(plaintext), nil
}
