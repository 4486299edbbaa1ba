package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"ebook-marketplace/internal/core/domain"
)

const (
	gcmNonceSize = 12
	gcmTagSize   = 16
)

// AESVault implements ports.Vault using AES-256-GCM.
// The AEAD is built once; cipher.AEAD is safe for concurrent use.
type AESVault struct {
	aead cipher.AEAD
}

// NewAESVault creates a vault from a 64-character hex key (32 bytes decoded).
// A wrong key is a configuration error and should stop the process.
func NewAESVault(hexKey string) (*AESVault, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decoding vault key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("vault key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, gcmNonceSize)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return &AESVault{aead: aead}, nil
}

// Seal encrypts plaintext under a fresh random IV.
func (v *AESVault) Seal(plaintext string) (domain.SealedSecret, error) {
	iv := make([]byte, gcmNonceSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return domain.SealedSecret{}, fmt.Errorf("generating iv: %w", err)
	}

	// GCM appends the tag to the ciphertext.
	out := v.aead.Seal(nil, iv, []byte(plaintext), nil)
	split := len(out) - gcmTagSize

	return domain.SealedSecret{
		IV:         iv,
		AuthTag:    out[split:],
		CipherText: out[:split],
	}, nil
}

// Open verifies the tag and returns the plaintext. Every failure is
// reported as domain.ErrIntegrity and no partial plaintext is returned.
func (v *AESVault) Open(sealed domain.SealedSecret) (string, error) {
	if len(sealed.IV) != gcmNonceSize || len(sealed.AuthTag) != gcmTagSize {
		return "", domain.ErrIntegrity
	}

	buf := make([]byte, 0, len(sealed.CipherText)+gcmTagSize)
	buf = append(buf, sealed.CipherText...)
	buf = append(buf, sealed.AuthTag...)

	plaintext, err := v.aead.Open(nil, sealed.IV, buf, nil)
	if err != nil {
		return "", domain.ErrIntegrity
	}
	return string(plaintext), nil
}

// Encrypt seals plaintext and packs it as base64(JSON{iv, authTag, cipherText}).
func (v *AESVault) Encrypt(plaintext string) (string, error) {
	sealed, err := v.Seal(plaintext)
	if err != nil {
		return "", err
	}
	return PackSecret(sealed)
}

// Decrypt unpacks and opens a value produced by Encrypt.
func (v *AESVault) Decrypt(packed string) (string, error) {
	sealed, err := UnpackSecret(packed)
	if err != nil {
		return "", err
	}
	return v.Open(sealed)
}

// PackSecret renders the self-describing at-rest form of a sealed secret.
func PackSecret(sealed domain.SealedSecret) (string, error) {
	raw, err := json.Marshal(sealed)
	if err != nil {
		return "", fmt.Errorf("packing secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// UnpackSecret parses the at-rest form. Malformed input is an integrity failure.
func UnpackSecret(packed string) (domain.SealedSecret, error) {
	raw, err := base64.StdEncoding.DecodeString(packed)
	if err != nil {
		return domain.SealedSecret{}, domain.ErrIntegrity
	}
	var sealed domain.SealedSecret
	if err := json.Unmarshal(raw, &sealed); err != nil {
		return domain.SealedSecret{}, domain.ErrIntegrity
	}
	return sealed, nil
}
