// Package codec implements the authenticated encryption scheme for
// individual variable values. Every value is sealed under a key derived
// from its owning project's id with a fresh salt and IV, so identical
// plaintexts never produce identical ciphertexts and no key/IV pair is
// ever reused.
package codec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha512"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltLen   = 64
	ivLen     = 16
	tagLen    = 16
	keyLen    = 32 // AES-256
	kdfRounds = 100_000
)

var (
	// ErrIntegrity is returned when the authentication tag does not verify:
	// the ciphertext was tampered with, corrupted, or decrypted with the
	// wrong project id.
	ErrIntegrity = errors.New("codec: message authentication failed")
	// ErrFormat is returned when an EncryptedValue is structurally invalid.
	ErrFormat = errors.New("codec: malformed encrypted value")
)

// EncryptedValue is a single sealed variable value. None of the fields are
// secret on their own; the owning project's id is the secret input. The
// json tags match the persisted store format ([]byte marshals as base64).
type EncryptedValue struct {
	Ciphertext []byte `json:"encrypted"`
	IV         []byte `json:"iv"`
	Tag        []byte `json:"tag"`
	Salt       []byte `json:"salt"`
}

// Encrypt seals plaintext under a key derived from projectID. A fresh salt
// and IV are drawn for every call.
func Encrypt(plaintext, projectID string) (EncryptedValue, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return EncryptedValue{}, fmt.Errorf("generating salt: %w", err)
	}
	iv := make([]byte, ivLen)
	if _, err := rand.Read(iv); err != nil {
		return EncryptedValue{}, fmt.Errorf("generating iv: %w", err)
	}

	aead, err := newAEAD(projectID, salt)
	if err != nil {
		return EncryptedValue{}, err
	}

	// Seal appends the tag to the ciphertext; store it as its own field.
	sealed := aead.Seal(nil, iv, []byte(plaintext), nil)
	n := len(sealed) - tagLen
	return EncryptedValue{
		Ciphertext: sealed[:n:n],
		IV:         iv,
		Tag:        sealed[n:],
		Salt:       salt,
	}, nil
}

// Decrypt re-derives the key from the stored salt and the supplied project
// id, verifies the authentication tag, and returns the plaintext. It
// returns ErrIntegrity on tag mismatch and ErrFormat if the value is
// structurally invalid. No partial plaintext is ever returned.
func Decrypt(v EncryptedValue, projectID string) (string, error) {
	if err := v.validate(); err != nil {
		return "", err
	}

	aead, err := newAEAD(projectID, v.Salt)
	if err != nil {
		return "", err
	}

	sealed := make([]byte, 0, len(v.Ciphertext)+tagLen)
	sealed = append(sealed, v.Ciphertext...)
	sealed = append(sealed, v.Tag...)

	plaintext, err := aead.Open(nil, v.IV, sealed, nil)
	if err != nil {
		return "", ErrIntegrity
	}
	return string(plaintext), nil
}

func (v EncryptedValue) validate() error {
	if len(v.IV) != ivLen {
		return fmt.Errorf("%w: iv must be %d bytes, got %d", ErrFormat, ivLen, len(v.IV))
	}
	if len(v.Salt) != saltLen {
		return fmt.Errorf("%w: salt must be %d bytes, got %d", ErrFormat, saltLen, len(v.Salt))
	}
	if len(v.Tag) != tagLen {
		return fmt.Errorf("%w: tag must be %d bytes, got %d", ErrFormat, tagLen, len(v.Tag))
	}
	return nil
}

func newAEAD(projectID string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(projectID), salt, kdfRounds, keyLen, sha512.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("initializing cipher: %w", err)
	}
	// 16-byte IVs rather than GCM's 12-byte default; the persisted format
	// records a full-block IV per value.
	aead, err := cipher.NewGCMWithNonceSize(block, ivLen)
	if err != nil {
		return nil, fmt.Errorf("initializing gcm: %w", err)
	}
	return aead, nil
}
