package domain

import (
	"context"
	"time"
)

type SwapStatus string

const (
	SwapPending    SwapStatus = "pending"
	SwapProcessing SwapStatus = "processing"
	SwapCompleted  SwapStatus = "completed"
	SwapFailed     SwapStatus = "failed"
	SwapRecovered  SwapStatus = "recovered"
)

// SwapStep is appended immediately after a confirmed on-chain transfer, never
// before. It is the durable record of where funds currently sit.
type SwapStep struct {
	StepIndex int
	FromAddr  string
	ToAddr    string
	TxSig     string
	Timestamp time.Time
	Amount    uint64 // lamports actually sent, after any Vault scaling; priming transfers are not recorded as steps
}

// Swap is the authoritative record of one custodial relay in flight.
type Swap struct {
	TransactionId        string
	SourceAddr           string
	DestAddr             string
	Amount               uint64 // requested amount in lamports, excluding relayer fee
	IntermediateWalletId string
	SourceSig            string
	Status               SwapStatus
	Steps                []SwapStep
	RelayerFee           uint64 // computed once at initiate, never recomputed
	FinalSig             string
	CreatedAt            time.Time
	CompletedAt          *time.Time
	Error                string
}

// SwapRepository is the Swap Registry's durable store. All Coordinator writes
// go through these operations; the Coordinator holds no cache of its own.
type SwapRepository interface {
	Create(ctx context.Context, swap Swap) error
	Get(ctx context.Context, transactionId string) (*Swap, error)
	GetAll(ctx context.Context) ([]Swap, error)
	ListByStatus(ctx context.Context, status SwapStatus, limit int) ([]Swap, error)
	AppendStep(ctx context.Context, transactionId string, step SwapStep) error
	// TransitionStatus performs an atomic `WHERE status = from` update. It
	// returns a *Error of KindStatusConflict if the swap's current status
	// isn't `from`.
	TransitionStatus(ctx context.Context, transactionId string, from, to SwapStatus) error
	SetError(ctx context.Context, transactionId string, errMsg string) error
	SetFinalSig(ctx context.Context, transactionId string, sig string, completedAt time.Time) error
	Close()
}
