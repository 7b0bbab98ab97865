// Package crypto seals questionnaire payloads at rest with AES-256-GCM.
// Keys come either as a 32-byte hex/base64 value or are derived from a
// passphrase via Argon2id.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

const (
	// KeyLength is the AES-256 key size in bytes.
	KeyLength = 32
	// SaltSize is the Argon2 salt size in bytes.
	SaltSize = 16

	argon2Time    = 3
	argon2Memory  = 64 * 1024 // KiB
	argon2Threads = 4
)

var (
	ErrInvalidKey        = errors.New("invalid encryption key: must be 32 bytes")
	ErrInvalidCiphertext = errors.New("invalid ciphertext: too short or malformed")
	ErrDecryptionFailed  = errors.New("decryption failed: authentication tag mismatch")
)

// Encryptor seals and opens payloads with a fixed 256-bit key.
type Encryptor struct {
	key []byte
}

// NewEncryptor creates an Encryptor from a raw 32-byte key.
func NewEncryptor(key []byte) (*Encryptor, error) {
	if len(key) != KeyLength {
		return nil, ErrInvalidKey
	}
	keyCopy := make([]byte, KeyLength)
	copy(keyCopy, key)
	return &Encryptor{key: keyCopy}, nil
}

// NewEncryptorFromPassphrase derives a key from a passphrase with Argon2id.
// Pass nil for salt to generate one; keep the returned salt for decryption.
func NewEncryptorFromPassphrase(passphrase string, salt []byte) (*Encryptor, []byte, error) {
	if salt == nil {
		salt = make([]byte, SaltSize)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, nil, fmt.Errorf("failed to generate salt: %w", err)
		}
	} else if len(salt) < SaltSize {
		return nil, nil, fmt.Errorf("salt must be at least %d bytes", SaltSize)
	}

	key := argon2.IDKey([]byte(passphrase), salt[:SaltSize], argon2Time, argon2Memory, argon2Threads, KeyLength)

	encryptor, err := NewEncryptor(key)
	if err != nil {
		return nil, nil, err
	}
	return encryptor, salt[:SaltSize], nil
}

// NewEncryptorFromKeyString accepts a hex- or base64-encoded 32-byte key.
func NewEncryptorFromKeyString(encoded string) (*Encryptor, error) {
	if key, err := hex.DecodeString(encoded); err == nil && len(key) == KeyLength {
		return NewEncryptor(key)
	}
	if key, err := base64.StdEncoding.DecodeString(encoded); err == nil && len(key) == KeyLength {
		return NewEncryptor(key)
	}
	return nil, ErrInvalidKey
}

// Encrypt seals plaintext and returns base64(nonce || ciphertext).
func (e *Encryptor) Encrypt(plaintext []byte) (string, error) {
	gcm, err := e.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt opens a value produced by Encrypt.
func (e *Encryptor) Decrypt(encoded string) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	gcm, err := e.gcm()
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, ErrInvalidCiphertext
	}

	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

func (e *Encryptor) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// GenerateKeyHex returns a fresh random key, hex-encoded, suitable for the
// AUTH_ENCRYPTION_KEY setting.
func GenerateKeyHex() (string, error) {
	key := make([]byte, KeyLength)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return hex.EncodeToString(key), nil
}
