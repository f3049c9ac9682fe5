package ports

import "github.com/ArkLabsHQ/sol-relayer/internal/core/domain"

// RepoManager aggregates every Registry/Vault/Ledger repository behind a
// single construction point, mirroring the teacher's repo-manager-per-db-
// backend wiring (internal/infrastructure/db/service.go).
type RepoManager interface {
	Wallets() domain.WalletRepository
	Swaps() domain.SwapRepository
	Windows() domain.WindowRepository
	Recovery() domain.RecoveryRepository
	Counter() domain.CounterRepository
	Memos() domain.MemoRepository
	Close()
}
