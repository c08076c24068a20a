// Package crypto seals visitor credentials before they leave the process.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// KeySize is the required AES-256 key length in bytes.
const KeySize = 32

var ErrCiphertextTooShort = errors.New("ciphertext too short")

type Sealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// NoopSealer stores payloads as-is (no TOKEN_ENCRYPTION_KEY configured).
type NoopSealer struct{}

func (NoopSealer) Seal(plaintext []byte) ([]byte, error) { return plaintext, nil }
func (NoopSealer) Open(sealed []byte) ([]byte, error)    { return sealed, nil }

type AESGCMSealer struct {
	gcm cipher.AEAD
}

func NewAESGCMSealer(hexKey string) (*AESGCMSealer, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key hex: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &AESGCMSealer{gcm: gcm}, nil
}

// Seal returns nonce || ciphertext || tag.
func (s *AESGCMSealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return s.gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *AESGCMSealer) Open(sealed []byte) ([]byte, error) {
	nonceSize := s.gcm.NonceSize()
	if len(sealed) < nonceSize {
		return nil, ErrCiphertextTooShort
	}

	nonce, body := sealed[:nonceSize], sealed[nonceSize:]
	plain, err := s.gcm.Open(nil, nonce, body, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plain, nil
}
