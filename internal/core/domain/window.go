package domain

import (
	"context"
	"time"
)

// MixingWindow is a wall-clock bucket that groups deposits for accounting and
// to modulate post-deposit dwell time. It has no write-back to a swap's
// funds; its only semantic role is to accumulate co-mingling peers.
type MixingWindow struct {
	WindowId    string // floor(now / W) * W, formatted as a decimal unix timestamp
	Start       time.Time
	End         time.Time
	TotalAmount uint64
	TxCount     int
}

// WindowRepository upserts and increments MixingWindow rows. Readers must
// tolerate mid-flight increments (§5 ordering guarantees): tx_count is
// eventually, not strictly, consistent with deposits assigned to it.
type WindowRepository interface {
	// UpsertAndIncrement creates the window if absent (with the given
	// start/end) and atomically adds amount/1 to TotalAmount/TxCount.
	UpsertAndIncrement(ctx context.Context, windowId string, start, end time.Time, amount uint64) error
	Get(ctx context.Context, windowId string) (*MixingWindow, error)
	Close()
}
