package ports

import (
	"context"
	"time"
)

// Clock is injected everywhere "now" is needed so the Coordinator, Monitor,
// and Recovery Ledger are testable per spec §8 ("RPC + clock + RNG are
// injected").
type Clock interface {
	Now() time.Time
	// Sleep blocks for d, honoring ctx cancellation. Used for every
	// randomized delay in the Coordinator's note lifecycle (§4.4).
	Sleep(ctx context.Context, d time.Duration)
}
