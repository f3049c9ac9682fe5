package application

import (
	"context"
	"fmt"
	"time"

	"github.com/ArkLabsHQ/sol-relayer/internal/core/domain"
	"github.com/ArkLabsHQ/sol-relayer/internal/core/ports"
	"github.com/ArkLabsHQ/sol-relayer/internal/infrastructure/vaultcrypto"
	"github.com/ArkLabsHQ/sol-relayer/pkg/solanaaddr"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// BuildInfo carries version metadata reported on /health.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// Service aggregates every collaborator of §2 behind the operations the
// Control Surface needs; it carries no business logic of its own beyond
// input shaping and delegation, per §4.6's "no business logic" rule.
type Service struct {
	BuildInfo BuildInfo
	Network   string

	repos       ports.RepoManager
	vault       *Vault
	recovery    *RecoveryLedger
	monitor     *Monitor
	coordinator *Coordinator
	scheduler   ports.SchedulerService
}

func NewService(buildInfo BuildInfo, network string, repos ports.RepoManager, rpc ports.RPCClient, envelope *vaultcrypto.Envelope, treasury Treasury, clock ports.Clock, rng ports.RandomSource, scheduler ports.SchedulerService) *Service {
	vault := NewVault(repos.Wallets(), rpc, envelope, treasury)
	recovery := NewRecoveryLedger(repos.Recovery(), repos.Counter(), clock)
	coordinator := NewCoordinator(repos.Swaps(), repos.Windows(), vault, clock, rng)
	monitor := NewMonitor(repos.Swaps(), vault, rpc, coordinator, DefaultAdmissionCap)

	return &Service{
		BuildInfo:   buildInfo,
		Network:     network,
		repos:       repos,
		vault:       vault,
		recovery:    recovery,
		monitor:     monitor,
		coordinator: coordinator,
		scheduler:   scheduler,
	}
}

// Start registers the Deposit Monitor's periodic tick and starts the
// scheduler. Call once at process startup.
func (s *Service) Start(ctx context.Context, pollInterval time.Duration) error {
	if err := s.scheduler.SchedulePeriodic(pollInterval, func() { s.monitor.Tick(ctx) }); err != nil {
		return fmt.Errorf("service: schedule monitor tick: %w", err)
	}
	s.scheduler.Start()
	log.WithField("poll_interval", pollInterval).Info("service: deposit monitor scheduled")
	return nil
}

func (s *Service) Stop() {
	s.scheduler.Stop()
	s.repos.Close()
}

// Health reports liveness for GET /health.
type HealthStatus struct {
	Status      string
	Timestamp   time.Time
	Network     string
	PrivacyMode string
}

func (s *Service) Health(now time.Time) HealthStatus {
	return HealthStatus{Status: "ok", Timestamp: now, Network: s.Network, PrivacyMode: DefaultProfile.Name}
}

// ConfigInfo is the GET /api/swap/config response: the immutable constants
// plus their SHA-256 config-hash.
type ConfigInfo struct {
	RelayerFeePct      float64
	DepositFeePct      float64
	MinSwapLamports    uint64
	MaxSwapLamports    uint64
	MaxNotes           int
	DefaultNotes       int
	MinNotes           int
	MixingWindow       time.Duration
	MinSplitLamports   uint64
	ObfuscationRange   uint64
	RecoveryThreshold  uint64
	RecoveryTimeout    time.Duration
	FeeReserveLamports uint64
	ConfigHash         string
}

func (s *Service) Config() ConfigInfo {
	return ConfigInfo{
		RelayerFeePct:      RelayerFeePct,
		DepositFeePct:      DepositFeePct,
		MinSwapLamports:    MinSwapLamports,
		MaxSwapLamports:    MaxSwapLamports,
		MaxNotes:           MaxNotes,
		DefaultNotes:       DefaultNotes,
		MinNotes:           MinNotes,
		MixingWindow:       MixingWindow,
		MinSplitLamports:   MinSplitLamports,
		ObfuscationRange:   ObfuscationRange,
		RecoveryThreshold:  RecoveryThreshold,
		RecoveryTimeout:    RecoveryTimeout,
		FeeReserveLamports: FeeReserveLamports,
		ConfigHash:         ConfigHash(),
	}
}

// PrepareResult is POST /api/swap/prepare's response.
type PrepareResult struct {
	IntermediateWalletId string
	IntermediatePubkey   string
	Fee                  uint64
	RecoveryKey          string
	RecoveryKeyHash      string
	RecoveryThreshold    uint64
}

// Prepare validates the requested amount, allocates an intermediate wallet,
// and issues a recovery key — all before any funds have moved, per §4.6.
func (s *Service) Prepare(ctx context.Context, sourceWallet, destinationWallet string, amountLamports uint64) (*PrepareResult, error) {
	if !solanaaddr.Valid(sourceWallet) {
		return nil, domain.ValidationErrorf("invalid source wallet address")
	}
	if !solanaaddr.Valid(destinationWallet) {
		return nil, domain.ValidationErrorf("invalid destination wallet address")
	}
	if amountLamports < MinSwapLamports {
		return nil, domain.ValidationErrorf("amount below minimum swap of %d lamports", MinSwapLamports)
	}
	if amountLamports > MaxSwapLamports {
		return nil, domain.ValidationErrorf("amount above maximum swap")
	}

	walletId, publicKey, err := s.vault.Allocate(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare: allocate intermediate wallet: %w", err)
	}

	// The recovery key is minted here, before the swap's transaction id
	// exists, but not yet bound to anything: the client echoes it back on
	// /api/swap/initiate, where it is opened under the real swap id.
	recoveryKey, err := s.recovery.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("prepare: generate recovery key: %w", err)
	}
	keyHash, err := s.recovery.HashKey(recoveryKey)
	if err != nil {
		return nil, fmt.Errorf("prepare: hash recovery key: %w", err)
	}

	fee := RelayerFee(amountLamports)

	return &PrepareResult{
		IntermediateWalletId: walletId,
		IntermediatePubkey:   publicKey,
		Fee:                  fee,
		RecoveryKey:          recoveryKey,
		RecoveryKeyHash:      keyHash,
		RecoveryThreshold:    RecoveryThreshold,
	}, nil
}

// InitiateRequest is POST /api/swap/initiate's body.
type InitiateRequest struct {
	SourceWallet          string
	DestinationWallet     string
	AmountLamports        uint64
	SourceTxSignature     string
	IntermediateWalletId  string
	RecoveryKey           string
	EncryptedMemo         []byte
	EncryptedMemoMetadata string
}

// Initiate creates the authoritative Swap row in `pending`, using the
// transaction id generated here end-to-end (the Coordinator never mints its
// own id, resolving the source system's duplicate-id ambiguity).
func (s *Service) Initiate(ctx context.Context, req InitiateRequest) (transactionId string, err error) {
	if !solanaaddr.Valid(req.SourceWallet) {
		return "", domain.ValidationErrorf("invalid source wallet address")
	}
	if !solanaaddr.Valid(req.DestinationWallet) {
		return "", domain.ValidationErrorf("invalid destination wallet address")
	}
	if req.AmountLamports < MinSwapLamports || req.AmountLamports > MaxSwapLamports {
		return "", domain.ValidationErrorf("amount out of bounds")
	}
	if req.SourceTxSignature == "" {
		return "", domain.ValidationErrorf("source transaction signature required")
	}
	if req.IntermediateWalletId == "" {
		return "", domain.ValidationErrorf("intermediate wallet id required")
	}
	if req.RecoveryKey == "" {
		return "", domain.ValidationErrorf("recovery key required")
	}

	transactionId = uuid.NewString()
	swap := domain.Swap{
		TransactionId:        transactionId,
		SourceAddr:           req.SourceWallet,
		DestAddr:             req.DestinationWallet,
		Amount:               req.AmountLamports,
		IntermediateWalletId: req.IntermediateWalletId,
		SourceSig:            req.SourceTxSignature,
		Status:               domain.SwapPending,
		RelayerFee:           RelayerFee(req.AmountLamports),
		CreatedAt:            s.recovery.clock.Now(),
	}
	if err := s.repos.Swaps().Create(ctx, swap); err != nil {
		return "", fmt.Errorf("initiate: create swap: %w", err)
	}

	// Binds the recovery key issued at prepare to this swap's real id, and
	// advances the global deposit counter — §3 counts this once per
	// successful initiate, independent of the Deposit Monitor's later
	// admission of the same swap.
	if err := s.recovery.Open(ctx, transactionId, req.RecoveryKey); err != nil {
		return "", fmt.Errorf("initiate: open recovery ledger entry: %w", err)
	}
	if _, err := s.recovery.RecordDeposit(ctx); err != nil {
		return "", fmt.Errorf("initiate: record deposit: %w", err)
	}

	if len(req.EncryptedMemo) > 0 {
		memo := domain.EncryptedMemo{
			MemoId:        uuid.NewString(),
			TransactionId: transactionId,
			Ciphertext:    req.EncryptedMemo,
			Metadata:      req.EncryptedMemoMetadata,
		}
		if err := s.repos.Memos().Store(ctx, memo); err != nil {
			log.WithError(err).WithField("swap_id", transactionId).Warn("initiate: store memo failed")
		}
	}

	return transactionId, nil
}

func (s *Service) Status(ctx context.Context, transactionId string) (*domain.Swap, error) {
	swap, err := s.repos.Swaps().Get(ctx, transactionId)
	if err != nil {
		return nil, domain.NotFoundf("swap %s not found", transactionId)
	}
	return swap, nil
}

// IntermediateInfo is GET /api/swap/intermediate/:walletId's response.
type IntermediateInfo struct {
	PublicKey string
	Balance   uint64
}

func (s *Service) Intermediate(ctx context.Context, walletId string) (*IntermediateInfo, error) {
	wallet, err := s.repos.Wallets().Get(ctx, walletId)
	if err != nil {
		return nil, domain.NotFoundf("wallet %s not found", walletId)
	}
	balance, err := s.vault.Balance(ctx, wallet.PublicKey)
	if err != nil {
		return nil, err
	}
	return &IntermediateInfo{PublicKey: wallet.PublicKey, Balance: balance}, nil
}

// RecoveryAvailability is GET /api/swap/recovery/:id's response.
type RecoveryAvailability struct {
	Available bool
	Reason    string
	Details   string
}

func (s *Service) RecoveryAvailability(ctx context.Context, transactionId string) (*RecoveryAvailability, error) {
	swap, err := s.repos.Swaps().Get(ctx, transactionId)
	if err != nil {
		return nil, domain.NotFoundf("swap %s not found", transactionId)
	}

	available, err := s.recovery.Available(ctx, transactionId, swap.CreatedAt)
	if err != nil {
		return nil, err
	}
	if !available {
		return &RecoveryAvailability{Available: false, Reason: "none"}, nil
	}

	rec, err := s.repos.Recovery().Get(ctx, transactionId)
	if err != nil {
		return nil, err
	}
	counter, err := s.repos.Counter().Get(ctx)
	if err != nil {
		return nil, err
	}

	reason := "timeout"
	if counter.Total >= rec.DepositCountAtCreate+RecoveryThreshold {
		reason = "threshold"
	}
	return &RecoveryAvailability{Available: true, Reason: reason}, nil
}

// Recover consumes a swap's recovery key, verifying it, checking the swap is
// still pending, and submitting a single direct transfer from the first
// intermediate wallet to destinationWallet.
func (s *Service) Recover(ctx context.Context, transactionId, presentedKey, destinationWallet string) (signature string, err error) {
	if !solanaaddr.Valid(destinationWallet) {
		return "", domain.ValidationErrorf("invalid destination wallet address")
	}

	swap, err := s.repos.Swaps().Get(ctx, transactionId)
	if err != nil {
		return "", domain.NotFoundf("swap %s not found", transactionId)
	}

	// Available is evaluated before Verify so the sticky flag gets set here
	// even if no prior GET /api/swap/recovery/:id poll has already flipped
	// it; Verify's own availability check then sees the up-to-date flag.
	available, err := s.recovery.Available(ctx, transactionId, swap.CreatedAt)
	if err != nil {
		return "", err
	}
	if !available {
		return "", domain.NewError(domain.KindRecoveryNotAvailable, "recovery window has not opened", nil)
	}

	if err := s.recovery.Verify(ctx, transactionId, presentedKey); err != nil {
		return "", err
	}

	// Atomically claims the swap out of `pending`; a concurrent Monitor
	// admission racing this call surfaces as StatusConflict, never a
	// silent double-spend.
	if err := s.repos.Swaps().TransitionStatus(ctx, transactionId, domain.SwapPending, domain.SwapRecovered); err != nil {
		return "", err
	}

	net := swap.Amount - swap.RelayerFee
	result, err := s.vault.SignAndSubmitTransfer(ctx, swap.IntermediateWalletId, []ports.TransferRecipient{
		{Address: destinationWallet, Lamports: net},
	})
	if err != nil {
		if setErr := s.repos.Swaps().SetError(ctx, transactionId, err.Error()); setErr != nil {
			log.WithError(setErr).WithField("swap_id", transactionId).Error("recover: failed to persist error")
		}
		return "", err
	}

	if err := s.repos.Swaps().SetFinalSig(ctx, transactionId, result.Signature, time.Now()); err != nil {
		log.WithError(err).WithField("swap_id", transactionId).Warn("recover: set final signature failed")
	}
	if err := s.vault.MarkUsed(ctx, swap.IntermediateWalletId); err != nil {
		log.WithError(err).WithField("swap_id", transactionId).Warn("recover: mark intermediate used failed")
	}

	return result.Signature, nil
}

func (s *Service) Memo(ctx context.Context, transactionId string) (*domain.EncryptedMemo, error) {
	memo, err := s.repos.Memos().Get(ctx, transactionId)
	if err != nil {
		return nil, domain.NotFoundf("memo for %s not found", transactionId)
	}
	return memo, nil
}
