package application

import (
	"context"
	"fmt"

	"github.com/ArkLabsHQ/sol-relayer/internal/core/domain"
	"github.com/ArkLabsHQ/sol-relayer/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

// DefaultAdmissionCap is K, the per-tick admission cap NewMonitor uses when
// it is given a cap of zero or less.
const DefaultAdmissionCap = 10

// Monitor periodically scans pending swaps and hands admitted ones to the
// Coordinator, per spec §4.3. It never blocks on a swap's lifecycle: each
// admission spawns its own goroutine, bounded by a semaphore so a burst of
// pending swaps can't exceed the configured concurrency cap.
type Monitor struct {
	swaps        domain.SwapRepository
	vault        *Vault
	rpc          ports.RPCClient
	coordinator  *Coordinator
	admissionCap int
	sem          chan struct{}
}

func NewMonitor(swaps domain.SwapRepository, vault *Vault, rpc ports.RPCClient, coordinator *Coordinator, admissionCap int) *Monitor {
	if admissionCap <= 0 {
		admissionCap = DefaultAdmissionCap
	}
	return &Monitor{
		swaps:        swaps,
		vault:        vault,
		rpc:          rpc,
		coordinator:  coordinator,
		admissionCap: admissionCap,
		sem:          make(chan struct{}, admissionCap),
	}
}

// Tick is invoked by the SchedulerService every T_poll. It selects up to K
// pending swaps in the order the repository lists them (the list is not
// sorted by creation time), verifies each is both source-confirmed and funded,
// and admits it to the Coordinator. Verification is read-only and
// idempotent; a swap not yet ready simply waits for the next tick.
func (m *Monitor) Tick(ctx context.Context) {
	pending, err := m.swaps.ListByStatus(ctx, domain.SwapPending, m.admissionCap)
	if err != nil {
		log.WithError(err).Warn("monitor: list pending swaps failed")
		return
	}

	for _, swap := range pending {
		swap := swap
		select {
		case m.sem <- struct{}{}:
		default:
			// Admission cap reached this tick; remaining pending swaps are
			// picked up on the next tick.
			return
		}

		ready, err := m.isAdmissible(ctx, swap)
		if err != nil {
			log.WithError(err).WithField("swap_id", swap.TransactionId).Warn("monitor: admissibility check failed")
			<-m.sem
			continue
		}
		if !ready {
			<-m.sem
			continue
		}

		if err := m.swaps.TransitionStatus(ctx, swap.TransactionId, domain.SwapPending, domain.SwapProcessing); err != nil {
			log.WithError(err).WithField("swap_id", swap.TransactionId).Warn("monitor: admit transition failed")
			<-m.sem
			continue
		}

		log.WithField("swap_id", swap.TransactionId).Info("monitor: admitted swap")
		go func() {
			defer func() { <-m.sem }()
			m.coordinator.Run(context.Background(), swap.TransactionId)
		}()
	}
}

func (m *Monitor) isAdmissible(ctx context.Context, swap domain.Swap) (bool, error) {
	found, err := m.rpc.GetTransaction(ctx, swap.SourceSig)
	if err != nil {
		return false, fmt.Errorf("source tx lookup: %w", err)
	}
	if !found {
		return false, nil
	}

	current, err := m.swaps.Get(ctx, swap.TransactionId)
	if err != nil {
		return false, fmt.Errorf("reload swap: %w", err)
	}
	if current.IntermediateWalletId == "" {
		return false, nil
	}
	intermediate, err := m.vault.repo.Get(ctx, current.IntermediateWalletId)
	if err != nil {
		return false, fmt.Errorf("intermediate wallet lookup: %w", err)
	}

	balance, err := m.vault.Balance(ctx, intermediate.PublicKey)
	if err != nil {
		return false, err
	}
	required := swap.Amount + FeeReserveLamports
	return balance >= required, nil
}
