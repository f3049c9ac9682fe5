package application

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// LamportsPerSol is SOL's native integer unit: 1 SOL = 1_000_000_000 lamports.
const LamportsPerSol = 1_000_000_000

// Immutable constants (§6). These never change without a redeploy; they
// feed ConfigHash so a client can verify the deployed binary's policy.
const (
	RelayerFeePct      = 0.0005
	DepositFeePct      = 0
	MinSwapLamports    = uint64(0.03 * LamportsPerSol)
	MaxSwapLamports    = ^uint64(0) // unbounded, represented as max uint64
	MaxNotes           = 8
	DefaultNotes       = 6
	MinNotes           = 2
	MixingWindow       = 60 * time.Second
	MinSplitLamports   = uint64(0.01 * LamportsPerSol)
	ObfuscationRange   = uint64(0.001 * LamportsPerSol)
	RecoveryThreshold  = 50
	RecoveryTimeout    = 60 * time.Second // ~150 slots @ 0.4s/slot
	FeeReserveLamports = uint64(0.0001 * LamportsPerSol)
)

// ConfigHash returns the SHA-256 hex digest of the canonical encoding of the
// immutable constants above; it changes if and only if a constant changes,
// proving the deployed binary's policy matches what was audited.
func ConfigHash() string {
	canonical := fmt.Sprintf(
		"relayer_fee_pct=%v;deposit_fee_pct=%v;min_swap=%d;max_swap=%d;max_notes=%d;"+
			"default_notes=%d;min_notes=%d;mixing_window=%d;min_split=%d;obfuscation_range=%d;"+
			"recovery_threshold=%d;recovery_timeout=%d;fee_reserve=%d",
		RelayerFeePct, DepositFeePct, MinSwapLamports, MaxSwapLamports, MaxNotes,
		DefaultNotes, MinNotes, int64(MixingWindow/time.Second), MinSplitLamports, ObfuscationRange,
		RecoveryThreshold, int64(RecoveryTimeout/time.Second), FeeReserveLamports,
	)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// RelayerFee computes the deterministic relayer fee for amount at initiate
// time. Nothing downstream recomputes this from live constants.
func RelayerFee(amountLamports uint64) uint64 {
	return uint64(float64(amountLamports) * RelayerFeePct)
}
