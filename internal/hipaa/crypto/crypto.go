// Package crypto is the PHI encryption engine: field-level authenticated
// encryption plus a keyed search hash for equality lookups without
// decryption. Keys are derived once at construction from the configured
// secret; per-field work is a single AES-GCM operation.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// blobPrefix versions the ciphertext format so a future key-rotation
	// scheme can coexist with existing rows.
	blobPrefix = "v1:"

	keyLen = 32

	// Derivation salts are fixed per purpose: the KDF input (the secret) is
	// deployment-wide, so distinct salts are what separates the cipher key
	// from the hash key.
	encryptionSalt = "vetdocs-field-encryption-v1"
	searchHashSalt = "vetdocs-search-hash-v1"
)

// Engine performs field-level encryption. The zero value is a disabled
// engine: every operation returns ErrUnavailable. Construct with New.
type Engine struct {
	aead    cipher.AEAD
	hashKey []byte
}

// DeriveKey stretches the shared secret with PBKDF2-HMAC-SHA256. Iteration
// count is the caller's cost knob; New enforces the floor.
func DeriveKey(secret, salt string, iterations int) []byte {
	return pbkdf2.Key([]byte(secret), []byte(salt), iterations, keyLen, sha256.New)
}

// New derives the cipher and hash keys from secret and builds the engine.
// Iterations below 100000 are rejected rather than silently raised.
func New(secret string, iterations int) (*Engine, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: no encryption secret configured", ErrUnavailable)
	}
	if iterations < 100000 {
		return nil, fmt.Errorf("kdf iterations %d below minimum 100000", iterations)
	}

	block, err := aes.NewCipher(DeriveKey(secret, encryptionSalt, iterations))
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	return &Engine{
		aead:    aead,
		hashKey: DeriveKey(secret, searchHashSalt, iterations),
	}, nil
}

// Enabled reports whether the engine can encrypt. Call sites gate PHI
// persistence on this instead of probing for errors.
func (e *Engine) Enabled() bool {
	return e != nil && e.aead != nil
}

// Encrypt seals plaintext with AES-256-GCM. The random nonce is prepended to
// the ciphertext and the blob is base64url-encoded with a format prefix.
// The empty string is a valid plaintext and round-trips like any other.
func (e *Engine) Encrypt(plaintext string) (string, error) {
	if !e.Enabled() {
		return "", ErrUnavailable
	}

	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("%w: generate nonce: %v", ErrEncrypt, err)
	}

	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return blobPrefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt is the inverse of Encrypt. A wrong key, truncated blob, or any
// tampered byte fails the GCM tag check and returns ErrDecrypt; corrupted
// plaintext is never returned.
func (e *Engine) Decrypt(blob string) (string, error) {
	if !e.Enabled() {
		return "", ErrUnavailable
	}

	encoded, ok := strings.CutPrefix(blob, blobPrefix)
	if !ok {
		return "", fmt.Errorf("%w: unrecognized blob format", ErrDecrypt)
	}
	sealed, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	if len(sealed) < e.aead.NonceSize() {
		return "", fmt.Errorf("%w: blob shorter than nonce", ErrDecrypt)
	}

	nonce, ciphertext := sealed[:e.aead.NonceSize()], sealed[e.aead.NonceSize():]
	plaintext, err := e.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", ErrDecrypt)
	}
	return string(plaintext), nil
}

// SearchHash returns a deterministic keyed digest of plaintext for equality
// lookups on encrypted columns. Input is lowercased first so lookups are
// case-insensitive. The HMAC key never leaves the engine, so the hash is
// useless for offline inversion.
func (e *Engine) SearchHash(plaintext string) (string, error) {
	if !e.Enabled() {
		return "", ErrUnavailable
	}
	mac := hmac.New(sha256.New, e.hashKey)
	mac.Write([]byte(strings.ToLower(plaintext)))
	return hex.EncodeToString(mac.Sum(nil)), nil
}
