package application

import (
	"math"

	"github.com/ArkLabsHQ/sol-relayer/internal/core/ports"
)

// splitPlan implements §4.4's split-plan algorithm: given amount A
// lamports, returns the randomized note values summing exactly to A.
func splitPlan(amountLamports uint64, rng ports.RandomSource) []uint64 {
	amount := float64(amountLamports) / LamportsPerSol
	minSplit := float64(MinSplitLamports) / LamportsPerSol

	if amount <= 2*minSplit {
		return []uint64{amountLamports}
	}

	n := noteCount(amount)

	values := make([]float64, n)
	remaining := amount
	for i := 0; i < n-1; i++ {
		p := rng.UniformFloat(0.15, 0.35)
		v := math.Max(minSplit, remaining*p)
		values[i] = roundTo9(v)
		remaining -= values[i]
	}
	values[n-1] = roundTo9(remaining)

	lamportValues := make([]uint64, n)
	var sum uint64
	for i, v := range values {
		lamportValues[i] = uint64(math.Round(v * LamportsPerSol))
		sum += lamportValues[i]
	}

	// Correct any rounding drift (bounded to ≤1 lamport per §4.4) onto the
	// last note so the sum is exact.
	if sum != amountLamports {
		diff := int64(amountLamports) - int64(sum)
		lamportValues[n-1] = uint64(int64(lamportValues[n-1]) + diff)
	}

	rng.Shuffle(n, func(i, j int) {
		lamportValues[i], lamportValues[j] = lamportValues[j], lamportValues[i]
	})

	return lamportValues
}

// noteCount picks N by band, clamped to [MinNotes, MaxNotes].
func noteCount(amountSol float64) int {
	var n int
	switch {
	case amountSol > 1.0:
		n = int(math.Min(8, math.Floor(amountSol/0.2)))
	case amountSol > 0.5:
		n = 6
	case amountSol > 0.1:
		n = 4
	default:
		n = 2
	}
	if n < MinNotes {
		n = MinNotes
	}
	if n > MaxNotes {
		n = MaxNotes
	}
	return n
}

func roundTo9(v float64) float64 {
	const scale = 1e9
	return math.Round(v*scale) / scale
}
