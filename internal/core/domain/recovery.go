package domain

import (
	"context"
	"time"
)

// RecoveryRecord snapshots the global DepositCounter at swap-creation time
// and stores the SHA-256 hash of the recovery key issued to the user.
type RecoveryRecord struct {
	TransactionId        string
	DepositCountAtCreate uint64
	RecoveryKeyHash      [32]byte
	RecoveryAvailable    bool
}

// RecoveryRepository is the Recovery Ledger's durable store for per-swap
// recovery bookkeeping.
type RecoveryRepository interface {
	Open(ctx context.Context, transactionId string, depositCountAtCreate uint64, keyHash [32]byte) error
	Get(ctx context.Context, transactionId string) (*RecoveryRecord, error)
	// MarkAvailable flips RecoveryAvailable to true. Idempotent.
	MarkAvailable(ctx context.Context, transactionId string) error
	Close()
}

// DepositCounter is the global, strictly monotonic singleton counter used by
// the Recovery Ledger's threshold rule.
type DepositCounter struct {
	Total       uint64
	LastUpdated time.Time
}

// CounterRepository exposes the single atomic `UPDATE ... RETURNING`-style
// increment the DepositCounter needs; no external locking is required.
type CounterRepository interface {
	Increment(ctx context.Context, at time.Time) (newCount uint64, err error)
	Get(ctx context.Context) (*DepositCounter, error)
	Close()
}
