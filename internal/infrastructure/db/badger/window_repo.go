package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ArkLabsHQ/sol-relayer/internal/core/domain"
	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
)

const windowDir = "window"

type windowRepository struct {
	store *badgerhold.Store
}

// NewWindowRepository opens the Mixing Window aggregate store.
func NewWindowRepository(baseDir string, logger badger.Logger) (domain.WindowRepository, error) {
	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, windowDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open window store: %s", err)
	}
	return &windowRepository{store}, nil
}

type windowData struct {
	WindowId    string
	Start       time.Time
	End         time.Time
	TotalAmount uint64
	TxCount     int
}

func (d windowData) toWindow() domain.MixingWindow {
	return domain.MixingWindow{
		WindowId:    d.WindowId,
		Start:       d.Start,
		End:         d.End,
		TotalAmount: d.TotalAmount,
		TxCount:     d.TxCount,
	}
}

// UpsertAndIncrement creates the window if absent (with the given
// start/end), then atomically folds amount/1 into its running totals.
// Windows are keyed by windowId so repeated calls for the same bucket
// always target one row.
func (r *windowRepository) UpsertAndIncrement(ctx context.Context, windowId string, start, end time.Time, amount uint64) error {
	var existing windowData
	err := r.store.Get(windowId, &existing)
	if errors.Is(err, badgerhold.ErrNotFound) {
		data := windowData{WindowId: windowId, Start: start, End: end, TotalAmount: amount, TxCount: 1}
		return r.store.Insert(windowId, data)
	}
	if err != nil {
		return fmt.Errorf("failed to get window: %w", err)
	}
	existing.TotalAmount += amount
	existing.TxCount++
	return r.store.Update(windowId, existing)
}

func (r *windowRepository) Get(ctx context.Context, windowId string) (*domain.MixingWindow, error) {
	var data windowData
	err := r.store.Get(windowId, &data)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, fmt.Errorf("window %s not found", windowId)
	}
	if err != nil {
		return nil, err
	}
	w := data.toWindow()
	return &w, nil
}

func (r *windowRepository) Close() {
	// nolint:all
	r.store.Close()
}
