package vaultcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// ErrAuthFailed is returned when decryption fails authentication — either a
// tampered ciphertext or the wrong key, never garbage output.
var ErrAuthFailed = errors.New("vaultcrypto: authentication failed")

const (
	KeySize   = 32 // AES-256
	NonceSize = 12 // standard GCM nonce
	TagSize   = 16 // GCM authentication tag
)

// Envelope is an AES-256-GCM authenticated-encryption envelope for the
// Wallet Vault's secret keys, per spec §4.1: the wire format is always
// nonce(12) || tag(16) || ct, with a fresh random nonce per encryption.
type Envelope struct {
	aead cipher.AEAD
	key  []byte
}

// NewEnvelope builds an Envelope from a 256-bit master key. The caller
// retains ownership of key; Envelope keeps its own copy so the caller may
// zero its buffer immediately after this call.
func NewEnvelope(key []byte) (*Envelope, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("vaultcrypto: master key must be %d bytes, got %d", KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vaultcrypto: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vaultcrypto: %w", err)
	}

	keyCopy := make([]byte, KeySize)
	copy(keyCopy, key)

	return &Envelope{aead: aead, key: keyCopy}, nil
}

// Seal encrypts plaintext, returning nonce(12) || tag(16) || ct.
func (e *Envelope) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("vaultcrypto: generate nonce: %w", err)
	}

	// GCM's Seal output is ct || tag (the tag trails the ciphertext); the tag
	// is moved ahead of the ciphertext to produce nonce || tag || ct.
	sealed := e.aead.Seal(nil, nonce, plaintext, nil)
	ctLen := len(sealed) - TagSize

	out := make([]byte, 0, len(nonce)+len(sealed))
	out = append(out, nonce...)
	out = append(out, sealed[ctLen:]...)
	out = append(out, sealed[:ctLen]...)
	return out, nil
}

// Open decrypts a nonce || tag || ct envelope produced by Seal.
func (e *Envelope) Open(envelope []byte) ([]byte, error) {
	if len(envelope) < NonceSize+TagSize {
		return nil, fmt.Errorf("vaultcrypto: envelope too short: %d bytes", len(envelope))
	}
	nonce := envelope[:NonceSize]
	tag := envelope[NonceSize : NonceSize+TagSize]
	sealed := make([]byte, 0, len(envelope)-NonceSize)
	sealed = append(sealed, envelope[NonceSize+TagSize:]...)
	sealed = append(sealed, tag...)

	plaintext, err := e.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

// Clear zeroes the Envelope's internal key copy. Call on shutdown.
func (e *Envelope) Clear() {
	Zero(e.key)
}

// Zero overwrites b with zeros in place. Secret buffers (decrypted seeds,
// master keys) must be explicitly wiped after use rather than left for GC,
// per spec §9.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
