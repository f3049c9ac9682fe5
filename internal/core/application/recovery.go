package application

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/ArkLabsHQ/sol-relayer/internal/core/domain"
	"github.com/ArkLabsHQ/sol-relayer/internal/core/ports"
)

// RecoveryLedger tracks the global deposit counter and per-swap recovery
// eligibility per spec §4.2: a swap becomes recoverable once either the
// counter has advanced RecoveryThreshold deposits past the swap's snapshot,
// or RecoveryTimeout has elapsed since creation.
type RecoveryLedger struct {
	recovery domain.RecoveryRepository
	counter  domain.CounterRepository
	clock    ports.Clock
}

func NewRecoveryLedger(recovery domain.RecoveryRepository, counter domain.CounterRepository, clock ports.Clock) *RecoveryLedger {
	return &RecoveryLedger{recovery: recovery, counter: counter, clock: clock}
}

// GenerateKey mints a fresh 32-byte recovery key, hex-encoded. It has no
// side effects and is not yet bound to any swap: §4.6 issues it at prepare,
// before the swap's transaction id exists, so binding happens later via
// Open once the Control Surface knows that id.
func (l *RecoveryLedger) GenerateKey() (recoveryKey string, err error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("recovery: generate key: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

// HashKey returns the hex-encoded SHA-256 hash of the decoded recoveryKey —
// the same value Open stores and Verify checks against, so a caller can
// advertise a hash that actually matches what gets persisted.
func (l *RecoveryLedger) HashKey(recoveryKey string) (string, error) {
	raw, err := hex.DecodeString(recoveryKey)
	if err != nil {
		return "", domain.NewError(domain.KindInvalidRecoveryKey, "malformed recovery key", nil)
	}
	hash := sha256.Sum256(raw)
	return hex.EncodeToString(hash[:]), nil
}

// Open binds recoveryKey to transactionId, snapshotting the current deposit
// count alongside the key's hash so Available can later measure the
// threshold trigger against it. Called once, at initiate, keyed by the
// swap's actual transaction id.
func (l *RecoveryLedger) Open(ctx context.Context, transactionId, recoveryKey string) error {
	counter, err := l.counter.Get(ctx)
	if err != nil {
		return fmt.Errorf("recovery: read counter: %w", err)
	}

	raw, err := hex.DecodeString(recoveryKey)
	if err != nil {
		return domain.NewError(domain.KindInvalidRecoveryKey, "malformed recovery key", nil)
	}
	hash := sha256.Sum256(raw)

	if err := l.recovery.Open(ctx, transactionId, counter.Total, hash); err != nil {
		return fmt.Errorf("recovery: open ledger entry: %w", err)
	}
	return nil
}

// RecordDeposit advances the global deposit counter. Service.Initiate calls
// this once per successfully initiated swap, independent of that swap's own
// recovery window.
func (l *RecoveryLedger) RecordDeposit(ctx context.Context) (uint64, error) {
	return l.counter.Increment(ctx, l.clock.Now())
}

// Available reports whether transactionId's swap may be recovered, per the
// two independent triggers in §4.2: threshold (counter has advanced
// RecoveryThreshold past the snapshot) or timeout (swap has existed longer
// than RecoveryTimeout). Once true, it is sticky: MarkAvailable persists the
// flag so a later counter reset can't revoke it.
func (l *RecoveryLedger) Available(ctx context.Context, transactionId string, swapCreatedAt time.Time) (bool, error) {
	rec, err := l.recovery.Get(ctx, transactionId)
	if err != nil {
		return false, domain.NotFoundf("no recovery record for %s", transactionId)
	}
	if rec.RecoveryAvailable {
		return true, nil
	}

	if l.clock.Now().Sub(swapCreatedAt) >= RecoveryTimeout {
		if err := l.recovery.MarkAvailable(ctx, transactionId); err != nil {
			return false, fmt.Errorf("recovery: mark available (timeout): %w", err)
		}
		return true, nil
	}

	counter, err := l.counter.Get(ctx)
	if err != nil {
		return false, fmt.Errorf("recovery: read counter: %w", err)
	}
	if counter.Total >= rec.DepositCountAtCreate+RecoveryThreshold {
		if err := l.recovery.MarkAvailable(ctx, transactionId); err != nil {
			return false, fmt.Errorf("recovery: mark available (threshold): %w", err)
		}
		return true, nil
	}

	return false, nil
}

// Verify checks a presented recovery key against the stored hash in
// constant time, returning InvalidRecoveryKey on mismatch.
func (l *RecoveryLedger) Verify(ctx context.Context, transactionId, presentedKey string) error {
	rec, err := l.recovery.Get(ctx, transactionId)
	if err != nil {
		return domain.NotFoundf("no recovery record for %s", transactionId)
	}

	raw, err := hex.DecodeString(presentedKey)
	if err != nil {
		return domain.NewError(domain.KindInvalidRecoveryKey, "malformed recovery key", nil)
	}
	hash := sha256.Sum256(raw)
	if subtle.ConstantTimeCompare(hash[:], rec.RecoveryKeyHash[:]) != 1 {
		return domain.NewError(domain.KindInvalidRecoveryKey, "recovery key does not match", nil)
	}
	if !rec.RecoveryAvailable {
		return domain.NewError(domain.KindRecoveryNotAvailable, "recovery window has not opened", nil)
	}
	return nil
}
