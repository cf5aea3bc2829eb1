// Package piicrypt provides reversible encryption for sensitive customer
// fields (phone, email).
//
// The construction is AES-256 in ECB mode with PKCS#7 padding and Base64
// ciphertext encoding, keyed by the configured secret truncated or
// zero-padded to 32 bytes. Identical plaintexts always produce identical
// ciphertext; duplicate detection on encrypted columns depends on this
// determinism. The scheme is NOT suitable as a standalone confidentiality
// boundary (no KDF, no per-message nonce); changing it requires re-encrypting
// all stored ciphertext.
package piicrypt

import (
	"bytes"
	"crypto/aes"
	"encoding/base64"
	"errors"

	apperrors "github.com/spec-kit/ops-hub/pkg/util"
)

const keySize = 32

// Cipher encrypts and decrypts PII strings with a fixed symmetric key.
type Cipher struct {
	key []byte
}

// New derives the fixed 256-bit key from the configured secret and returns
// a ready cipher. The secret's raw bytes are truncated to 32 bytes if
// longer, zero-padded if shorter; never hashed or stretched.
func New(secret string) *Cipher {
	key := make([]byte, keySize)
	copy(key, secret)
	return &Cipher{key: key}
}

// Encrypt returns the Base64-encoded AES-256-ECB encryption of plaintext.
// Repeated calls with the same key yield identical output.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", apperrors.NewCryptoError("unable to construct encryption key", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	encrypted := make([]byte, len(padded))
	for i := 0; i < len(padded); i += aes.BlockSize {
		block.Encrypt(encrypted[i:i+aes.BlockSize], padded[i:i+aes.BlockSize])
	}
	return base64.StdEncoding.EncodeToString(encrypted), nil
}

// Decrypt reverses Encrypt. Malformed encoding or a corrupted block yields
// a crypto failure; callers must not surface the raw cause to end users.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", apperrors.NewCryptoError("malformed ciphertext encoding", err)
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", apperrors.NewCryptoError("malformed ciphertext length", nil)
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", apperrors.NewCryptoError("unable to construct encryption key", err)
	}

	decrypted := make([]byte, len(raw))
	for i := 0; i < len(raw); i += aes.BlockSize {
		block.Decrypt(decrypted[i:i+aes.BlockSize], raw[i:i+aes.BlockSize])
	}

	unpadded, err := pkcs7Unpad(decrypted, aes.BlockSize)
	if err != nil {
		return "", apperrors.NewCryptoError("corrupted ciphertext block", err)
	}
	return string(unpadded), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize || padding > len(data) {
		return nil, errors.New("invalid padding byte")
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, errors.New("inconsistent padding")
		}
	}
	return data[:len(data)-padding], nil
}
