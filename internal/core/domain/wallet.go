package domain

import (
	"context"
	"time"
)

// IntermediateWallet is a single-use ed25519 keypair generated by the Vault.
// The secret key never leaves the Vault unencrypted except transiently while
// signing, and is zeroed immediately afterwards.
type IntermediateWallet struct {
	WalletId        string
	PublicKey       string // base58-encoded ed25519 public key
	EncryptedSecret []byte // nonce(12) || tag(16) || ct, AES-256-GCM over the 32-byte seed
	CreatedAt       time.Time
	UsedAt          *time.Time
	Active          bool
	ObservedBalance uint64 // advisory last-polled lamports, never authoritative
}

// WalletRepository persists IntermediateWallet rows. The Vault is the only
// component that reads EncryptedSecret; all other components (Coordinator,
// Control Surface) only ever see a WalletId + PublicKey.
type WalletRepository interface {
	Add(ctx context.Context, wallet IntermediateWallet) error
	Get(ctx context.Context, walletId string) (*IntermediateWallet, error)
	// Available lists Active, unused wallets (UsedAt == nil), capped at
	// limit when limit > 0. The Coordinator does not use it; it allocates
	// fresh wallets through the Vault.
	Available(ctx context.Context, limit int) ([]IntermediateWallet, error)
	MarkUsed(ctx context.Context, walletId string, usedAt time.Time) error
	SetObservedBalance(ctx context.Context, walletId string, lamports uint64) error
	Close()
}
