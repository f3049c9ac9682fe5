package application

import (
	"context"
	"fmt"
	"time"

	"github.com/ArkLabsHQ/sol-relayer/internal/core/domain"
	"github.com/ArkLabsHQ/sol-relayer/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

// StrategyProfile parameterizes the Coordinator's note lifecycle so the
// state machine is shared rather than duplicated across privacy modes (§9).
type StrategyProfile struct {
	Name             string
	WithdrawEnabled  bool
	HopRange         [2]int // inclusive bounds on H
	ObfuscationRange uint64 // lamports; R in v_i' = v_i + uniform(-R, R)
}

// DefaultProfile is the full split → deposit → window → withdraw → merge →
// hop → finalize lifecycle of §4.4.
var DefaultProfile = StrategyProfile{
	Name:             "default",
	WithdrawEnabled:  true,
	HopRange:         [2]int{1, 2},
	ObfuscationRange: ObfuscationRange,
}

// DirectProfile is the degenerate "basic" mode: no withdraw or hop
// sub-stages and no obfuscation. The amount is still split into notes, each
// note is deposited, and the notes are merged before finalize. It mirrors the
// original system's lighter-weight relay variant; it is never selected by
// the Control Surface (no spec.md operation exposes a profile choice) but
// exists so both behaviors are provably one state machine.
var DirectProfile = StrategyProfile{
	Name:             "direct",
	WithdrawEnabled:  false,
	HopRange:         [2]int{0, 0},
	ObfuscationRange: 0,
}

// Coordinator runs the Mixing Coordinator state machine of §4.4: one
// Run(ctx, transactionId) call drives a single swap from processing through
// completed or failed, persisting a SwapStep after every confirmed transfer.
type Coordinator struct {
	swaps   domain.SwapRepository
	windows domain.WindowRepository
	vault   *Vault
	clock   ports.Clock
	rng     ports.RandomSource
	profile StrategyProfile
}

func NewCoordinator(swaps domain.SwapRepository, windows domain.WindowRepository, vault *Vault, clock ports.Clock, rng ports.RandomSource) *Coordinator {
	return &Coordinator{swaps: swaps, windows: windows, vault: vault, clock: clock, rng: rng, profile: DefaultProfile}
}

// WithProfile returns a Coordinator sharing the same collaborators but
// driven by an alternate StrategyProfile.
func (c *Coordinator) WithProfile(profile StrategyProfile) *Coordinator {
	clone := *c
	clone.profile = profile
	return &clone
}

// Run drives transactionId's swap from processing to completed or failed.
// It is intended to be invoked in its own goroutine by the Deposit Monitor;
// it never panics on a failed transfer, it records the failure and returns.
func (c *Coordinator) Run(ctx context.Context, transactionId string) {
	logger := log.WithField("swap_id", transactionId)

	swap, err := c.swaps.Get(ctx, transactionId)
	if err != nil {
		logger.WithError(err).Error("coordinator: swap not found at run start")
		return
	}

	if err := c.run(ctx, swap, logger); err != nil {
		logger.WithError(err).Warn("coordinator: swap failed")
		if setErr := c.swaps.SetError(ctx, transactionId, err.Error()); setErr != nil {
			logger.WithError(setErr).Error("coordinator: failed to persist error")
		}
		if tErr := c.swaps.TransitionStatus(ctx, transactionId, domain.SwapProcessing, domain.SwapFailed); tErr != nil {
			logger.WithError(tErr).Error("coordinator: failed to transition to failed")
		}
	}
}

func (c *Coordinator) run(ctx context.Context, swap *domain.Swap, logger *log.Entry) error {
	notes := splitPlan(swap.Amount, c.rng)
	logger.WithField("note_count", len(notes)).Debug("coordinator: split plan computed")

	if err := c.assignWindow(ctx, swap.Amount); err != nil {
		return fmt.Errorf("window assignment: %w", err)
	}

	firstIntermediate := swap.IntermediateWalletId

	// stepIndex threads a single monotonically increasing counter across
	// every phase below: §3 makes (transaction_id, step_index) the step
	// identity, and §5 requires indices to strictly increase, so no phase
	// may reset it back to a per-phase local.
	stepIndex := 0

	depositWallets := make([]string, len(notes))
	for i, amount := range notes {
		walletId, publicKey, err := c.vault.Allocate(ctx)
		if err != nil {
			return fmt.Errorf("note %d: allocate deposit wallet: %w", i, err)
		}
		depositWallets[i] = walletId

		if err := c.prime(ctx, firstIntermediate, publicKey); err != nil {
			return domain.NewError(domain.KindCannotPrime, fmt.Sprintf("note %d: prime deposit wallet", i), err)
		}

		if _, err := c.transfer(ctx, swap.TransactionId, firstIntermediate, walletId, amount, stepIndex, logger); err != nil {
			return fmt.Errorf("note %d: deposit transfer: %w", i, err)
		}
		stepIndex++

		if i < len(notes)-1 {
			c.clock.Sleep(ctx, c.rng.UniformDuration(2*time.Second, 6*time.Second))
		}
	}
	if err := c.vault.MarkUsed(ctx, firstIntermediate); err != nil {
		logger.WithError(err).Warn("coordinator: mark first intermediate used failed")
	}

	window, err := c.windows.Get(ctx, windowId(c.clock.Now()))
	txCount := 1
	if err == nil && window != nil {
		txCount = window.TxCount
	}
	mixingDelay := 10*time.Second + minDuration(time.Duration(txCount)*2*time.Second, 30*time.Second) + c.rng.UniformDuration(0, 10*time.Second)
	c.clock.Sleep(ctx, mixingDelay)
	// §4.4's literal wording: an additional wait on top of the base delay.
	c.clock.Sleep(ctx, c.rng.UniformDuration(mixingDelay, mixingDelay+10*time.Second))

	currentWallets := depositWallets
	currentAmounts := append([]uint64(nil), notes...)

	if c.profile.WithdrawEnabled {
		withdrawWallets := make([]string, len(notes))
		for i, depositWalletId := range depositWallets {
			walletId, publicKey, err := c.vault.Allocate(ctx)
			if err != nil {
				return fmt.Errorf("note %d: allocate withdraw wallet: %w", i, err)
			}
			withdrawWallets[i] = walletId

			if err := c.prime(ctx, depositWalletId, publicKey); err != nil {
				return domain.NewError(domain.KindCannotPrime, fmt.Sprintf("note %d: prime withdraw wallet", i), err)
			}

			obfuscated := obfuscate(notes[i], c.profile.ObfuscationRange, c.rng)
			c.clock.Sleep(ctx, c.rng.UniformDuration(5*time.Second, 15*time.Second))

			if _, err := c.transfer(ctx, swap.TransactionId, depositWalletId, walletId, obfuscated, stepIndex, logger); err != nil {
				return fmt.Errorf("note %d: withdraw transfer: %w", i, err)
			}
			stepIndex++
			currentAmounts[i] = obfuscated

			if err := c.vault.MarkUsed(ctx, depositWalletId); err != nil {
				logger.WithError(err).Warn("coordinator: mark deposit wallet used failed")
			}
		}
		currentWallets = withdrawWallets
	}

	mergedWallet := currentWallets[0]
	if len(currentWallets) > 1 {
		mergeWalletId, _, err := c.vault.Allocate(ctx)
		if err != nil {
			return fmt.Errorf("merge: allocate merge wallet: %w", err)
		}
		for i, walletId := range currentWallets {
			if _, err := c.transferPayable(ctx, swap.TransactionId, walletId, mergeWalletId, stepIndex, logger); err != nil {
				return fmt.Errorf("merge: transfer from note %d: %w", i, err)
			}
			stepIndex++
			if err := c.vault.MarkUsed(ctx, walletId); err != nil {
				logger.WithError(err).Warn("coordinator: mark merged wallet used failed")
			}
			if i < len(currentWallets)-1 {
				c.clock.Sleep(ctx, c.rng.UniformDuration(3*time.Second, 8*time.Second))
			}
		}
		mergedWallet = mergeWalletId
	}

	current := mergedWallet
	hops := c.profile.HopRange[0]
	if c.profile.HopRange[1] > c.profile.HopRange[0] {
		hops = c.profile.HopRange[0] + c.rng.IntN(c.profile.HopRange[1]-c.profile.HopRange[0]+1)
	}
	for h := 0; h < hops; h++ {
		hopWalletId, publicKey, err := c.vault.Allocate(ctx)
		if err != nil {
			return fmt.Errorf("hop %d: allocate wallet: %w", h, err)
		}
		if err := c.prime(ctx, current, publicKey); err != nil {
			return domain.NewError(domain.KindCannotPrime, fmt.Sprintf("hop %d: prime wallet", h), err)
		}
		c.clock.Sleep(ctx, c.rng.UniformDuration(5*time.Second, 12*time.Second))
		if _, err := c.transferPayable(ctx, swap.TransactionId, current, hopWalletId, stepIndex, logger); err != nil {
			return fmt.Errorf("hop %d: transfer: %w", h, err)
		}
		stepIndex++
		if err := c.vault.MarkUsed(ctx, current); err != nil {
			logger.WithError(err).Warn("coordinator: mark hop source used failed")
		}
		current = hopWalletId
	}

	c.clock.Sleep(ctx, c.rng.UniformDuration(8*time.Second, 20*time.Second))

	finalWallet, err := c.vault.repo.Get(ctx, current)
	if err != nil {
		return fmt.Errorf("finalize: load current wallet: %w", err)
	}
	balance, err := c.vault.Balance(ctx, finalWallet.PublicKey)
	if err != nil {
		return fmt.Errorf("finalize: balance lookup: %w", err)
	}
	if balance < swap.RelayerFee {
		return domain.NewError(domain.KindInsufficientFunds, "final balance below relayer fee", nil)
	}
	net := balance - swap.RelayerFee

	var recipients []ports.TransferRecipient
	recipients = append(recipients, ports.TransferRecipient{Address: swap.DestAddr, Lamports: net})
	if feeWallet, ok := c.vault.TreasuryWalletId(); ok && swap.RelayerFee > 0 {
		feeWalletRecord, err := c.vault.repo.Get(ctx, feeWallet)
		if err == nil {
			recipients = append(recipients, ports.TransferRecipient{Address: feeWalletRecord.PublicKey, Lamports: swap.RelayerFee})
		}
	}

	result, err := c.vault.SignAndSubmitTransfer(ctx, current, recipients)
	if err != nil {
		return fmt.Errorf("finalize: transfer: %w", err)
	}

	if err := c.swaps.AppendStep(ctx, swap.TransactionId, domain.SwapStep{
		StepIndex: stepIndex, // finalize step, ordered after every prior phase
		FromAddr:  finalWallet.PublicKey,
		ToAddr:    swap.DestAddr,
		TxSig:     result.Signature,
		Timestamp: c.clock.Now(),
		Amount:    uint64(float64(net) * result.ScaleFactor),
	}); err != nil {
		return fmt.Errorf("finalize: append step: %w", err)
	}

	if err := c.swaps.SetFinalSig(ctx, swap.TransactionId, result.Signature, c.clock.Now()); err != nil {
		return fmt.Errorf("finalize: set final signature: %w", err)
	}
	if err := c.vault.MarkUsed(ctx, current); err != nil {
		logger.WithError(err).Warn("coordinator: mark final wallet used failed")
	}
	if err := c.swaps.TransitionStatus(ctx, swap.TransactionId, domain.SwapProcessing, domain.SwapCompleted); err != nil {
		return fmt.Errorf("finalize: transition to completed: %w", err)
	}

	logger.Info("coordinator: swap completed")
	return nil
}

// prime transfers the minimum rent-exempt + fee-reserve amount from source
// to target's public key, falling back to the configured treasury if
// source cannot cover it.
func (c *Coordinator) prime(ctx context.Context, sourceWalletId, targetPubkey string) error {
	reserve := RentExemptMinimumLamports + FeeReserveLamports
	_, err := c.vault.SignAndSubmitTransfer(ctx, sourceWalletId, []ports.TransferRecipient{
		{Address: targetPubkey, Lamports: reserve},
	})
	if err == nil {
		return nil
	}

	treasuryId, ok := c.vault.TreasuryWalletId()
	if !ok {
		return err
	}
	_, treasuryErr := c.vault.SignAndSubmitTransfer(ctx, treasuryId, []ports.TransferRecipient{
		{Address: targetPubkey, Lamports: reserve},
	})
	return treasuryErr
}

// transfer moves amount from sourceWalletId to targetWalletId and, on
// confirmation, appends a SwapStep. Used for steps whose value is a known
// note amount (deposit, withdraw).
func (c *Coordinator) transfer(ctx context.Context, transactionId, sourceWalletId, targetWalletId string, amount uint64, stepIndex int, logger *log.Entry) (*TransferResult, error) {
	targetWallet, err := c.vault.repo.Get(ctx, targetWalletId)
	if err != nil {
		return nil, fmt.Errorf("load target wallet: %w", err)
	}
	result, err := c.vault.SignAndSubmitTransfer(ctx, sourceWalletId, []ports.TransferRecipient{
		{Address: targetWallet.PublicKey, Lamports: amount},
	})
	if err != nil {
		return nil, err
	}
	sourceWallet, err := c.vault.repo.Get(ctx, sourceWalletId)
	if err != nil {
		return nil, fmt.Errorf("load source wallet: %w", err)
	}
	step := domain.SwapStep{
		StepIndex: stepIndex,
		FromAddr:  sourceWallet.PublicKey,
		ToAddr:    targetWallet.PublicKey,
		TxSig:     result.Signature,
		Timestamp: c.clock.Now(),
		Amount:    uint64(float64(amount) * result.ScaleFactor),
	}
	if err := c.swaps.AppendStep(ctx, transactionId, step); err != nil {
		return nil, fmt.Errorf("append step: %w", err)
	}
	logger.WithField("step_index", stepIndex).WithField("tx_sig", result.Signature).Debug("coordinator: step confirmed")
	return result, nil
}

// transferPayable moves the source wallet's full payable balance (per the
// Vault's fee/rent reservation policy) to target, never a remembered note
// value, so the sum-of-transfers invariant holds even after fee deduction.
func (c *Coordinator) transferPayable(ctx context.Context, transactionId, sourceWalletId, targetWalletId string, stepIndex int, logger *log.Entry) (*TransferResult, error) {
	sourceWallet, err := c.vault.repo.Get(ctx, sourceWalletId)
	if err != nil {
		return nil, fmt.Errorf("load source wallet: %w", err)
	}
	balance, err := c.vault.Balance(ctx, sourceWallet.PublicKey)
	if err != nil {
		return nil, err
	}
	payable := payableBalance(balance)
	return c.transfer(ctx, transactionId, sourceWalletId, targetWalletId, payable, stepIndex, logger)
}

func (c *Coordinator) assignWindow(ctx context.Context, amount uint64) error {
	now := c.clock.Now()
	id := windowId(now)
	start := now.Truncate(MixingWindow)
	end := start.Add(MixingWindow)
	return c.windows.UpsertAndIncrement(ctx, id, start, end, amount)
}

func windowId(t time.Time) string {
	floored := t.Truncate(MixingWindow).Unix()
	return fmt.Sprintf("%d", floored)
}

func obfuscate(amount uint64, r uint64, rng ports.RandomSource) uint64 {
	if r == 0 {
		return amount
	}
	delta := rng.UniformFloat(-float64(r), float64(r))
	v := int64(amount) + int64(delta)
	const floor = uint64(0.0001 * LamportsPerSol)
	if v < int64(floor) {
		return floor
	}
	return uint64(v)
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
