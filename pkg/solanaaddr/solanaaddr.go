// Package solanaaddr encodes and decodes Solana base58 public keys, the
// same way the bitmarkd account package represents keys and addresses as
// base58 strings over raw 32-byte values.
package solanaaddr

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

// PublicKeySize is the byte length of an ed25519/Solana public key.
const PublicKeySize = ed25519.PublicKeySize

// Encode returns the base58 representation of a raw public key.
func Encode(pub ed25519.PublicKey) string {
	return base58.Encode(pub)
}

// Decode parses a base58 Solana address into its raw 32-byte public key,
// rejecting anything that isn't exactly PublicKeySize bytes.
func Decode(addr string) (ed25519.PublicKey, error) {
	raw, err := base58.Decode(addr)
	if err != nil {
		return nil, fmt.Errorf("solanaaddr: invalid base58: %w", err)
	}
	if len(raw) != PublicKeySize {
		return nil, fmt.Errorf("solanaaddr: expected %d bytes, got %d", PublicKeySize, len(raw))
	}
	return ed25519.PublicKey(raw), nil
}

// Valid reports whether addr decodes to a well-formed public key.
func Valid(addr string) bool {
	_, err := Decode(addr)
	return err == nil
}
