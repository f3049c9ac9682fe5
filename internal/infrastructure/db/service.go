package db

import (
	"fmt"
	"strings"

	"github.com/ArkLabsHQ/sol-relayer/internal/core/domain"
	"github.com/ArkLabsHQ/sol-relayer/internal/core/ports"
	badgerdb "github.com/ArkLabsHQ/sol-relayer/internal/infrastructure/db/badger"
	"github.com/dgraph-io/badger/v4"
)

var allowedTypes = strings.Join([]string{"badger"}, ",")

type ServiceConfig struct {
	DbType   string
	DbConfig []any
}

type service struct {
	walletRepo   domain.WalletRepository
	swapRepo     domain.SwapRepository
	windowRepo   domain.WindowRepository
	recoveryRepo domain.RecoveryRepository
	counterRepo  domain.CounterRepository
	memoRepo     domain.MemoRepository
}

// NewService wires every domain repository behind a single ports.RepoManager,
// the same badger-only wiring point the teacher's db.service exposes.
func NewService(config ServiceConfig) (ports.RepoManager, error) {
	var (
		walletRepo   domain.WalletRepository
		swapRepo     domain.SwapRepository
		windowRepo   domain.WindowRepository
		recoveryRepo domain.RecoveryRepository
		counterRepo  domain.CounterRepository
		memoRepo     domain.MemoRepository
		err          error
	)

	switch config.DbType {
	case "badger":
		if len(config.DbConfig) != 2 {
			return nil, fmt.Errorf("badger db config must have 2 elements, got %d", len(config.DbConfig))
		}
		baseDir, ok := config.DbConfig[0].(string)
		if !ok {
			return nil, fmt.Errorf("invalid base directory")
		}
		var logger badger.Logger
		if config.DbConfig[1] != nil {
			logger, ok = config.DbConfig[1].(badger.Logger)
			if !ok {
				return nil, fmt.Errorf("invalid logger")
			}
		}

		if walletRepo, err = badgerdb.NewWalletRepository(baseDir, logger); err != nil {
			return nil, fmt.Errorf("failed to open wallet db: %s", err)
		}
		if swapRepo, err = badgerdb.NewSwapRepository(baseDir, logger); err != nil {
			return nil, fmt.Errorf("failed to open swap db: %s", err)
		}
		if windowRepo, err = badgerdb.NewWindowRepository(baseDir, logger); err != nil {
			return nil, fmt.Errorf("failed to open window db: %s", err)
		}
		if recoveryRepo, err = badgerdb.NewRecoveryRepository(baseDir, logger); err != nil {
			return nil, fmt.Errorf("failed to open recovery db: %s", err)
		}
		if counterRepo, err = badgerdb.NewCounterRepository(baseDir, logger); err != nil {
			return nil, fmt.Errorf("failed to open counter db: %s", err)
		}
		if memoRepo, err = badgerdb.NewMemoRepository(baseDir, logger); err != nil {
			return nil, fmt.Errorf("failed to open memo db: %s", err)
		}
	default:
		return nil, fmt.Errorf("unsupported db type %s, please select one of %s", config.DbType, allowedTypes)
	}

	return &service{
		walletRepo:   walletRepo,
		swapRepo:     swapRepo,
		windowRepo:   windowRepo,
		recoveryRepo: recoveryRepo,
		counterRepo:  counterRepo,
		memoRepo:     memoRepo,
	}, nil
}

func (s *service) Wallets() domain.WalletRepository    { return s.walletRepo }
func (s *service) Swaps() domain.SwapRepository        { return s.swapRepo }
func (s *service) Windows() domain.WindowRepository    { return s.windowRepo }
func (s *service) Recovery() domain.RecoveryRepository { return s.recoveryRepo }
func (s *service) Counter() domain.CounterRepository   { return s.counterRepo }
func (s *service) Memos() domain.MemoRepository        { return s.memoRepo }

func (s *service) Close() {
	s.walletRepo.Close()
	s.swapRepo.Close()
	s.windowRepo.Close()
	s.recoveryRepo.Close()
	s.counterRepo.Close()
	s.memoRepo.Close()
}
