package application

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/ArkLabsHQ/sol-relayer/internal/core/domain"
	"github.com/ArkLabsHQ/sol-relayer/internal/core/ports"
	"github.com/ArkLabsHQ/sol-relayer/internal/infrastructure/vaultcrypto"
	"github.com/ArkLabsHQ/sol-relayer/pkg/solanaaddr"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// RentExemptMinimumLamports is the minimum balance a zero-data account must
// hold to be exempt from rent. Solana mainnet's value as of this writing;
// exposed as a var so tests can override it.
var RentExemptMinimumLamports uint64 = 890_880

// Treasury is the Vault's optional fallback funding source, consulted only
// when a freshly allocated wallet cannot be primed from its caller. Absence
// is a legitimate configuration (§9 "Treasury as optional capability").
type Treasury interface {
	WalletId() string
}

type staticTreasury struct{ walletId string }

func (t staticTreasury) WalletId() string { return t.walletId }

// NewStaticTreasury wraps an already-allocated wallet id as a Treasury.
func NewStaticTreasury(walletId string) Treasury {
	return staticTreasury{walletId: walletId}
}

// Vault generates ed25519 keypairs, stores secret keys AEAD-encrypted, and
// builds/signs/submits/confirms SOL transfers with automatic fee/rent
// reservation, per spec §4.1.
type Vault struct {
	repo     domain.WalletRepository
	rpc      ports.RPCClient
	envelope *vaultcrypto.Envelope
	treasury Treasury // nil if unconfigured
}

// NewVault builds a Vault. envelope holds the process-wide AES-256-GCM
// master key; treasury may be nil.
func NewVault(repo domain.WalletRepository, rpc ports.RPCClient, envelope *vaultcrypto.Envelope, treasury Treasury) *Vault {
	return &Vault{repo: repo, rpc: rpc, envelope: envelope, treasury: treasury}
}

// Allocate generates a fresh ed25519 keypair, encrypts the seed under the
// master key, and persists an Active wallet row.
func (v *Vault) Allocate(ctx context.Context) (walletId string, publicKey string, err error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return "", "", fmt.Errorf("vault: generate keypair: %w", err)
	}
	seed := priv.Seed()
	defer vaultcrypto.Zero(seed)

	sealed, err := v.envelope.Seal(seed)
	if err != nil {
		return "", "", fmt.Errorf("vault: seal secret: %w", err)
	}

	walletId = uuid.NewString()
	publicKey = solanaaddr.Encode(pub)

	wallet := domain.IntermediateWallet{
		WalletId:        walletId,
		PublicKey:       publicKey,
		EncryptedSecret: sealed,
		CreatedAt:       time.Now(),
		Active:          true,
	}
	if err := v.repo.Add(ctx, wallet); err != nil {
		return "", "", fmt.Errorf("vault: persist wallet: %w", err)
	}
	log.WithField("wallet_id", walletId).Debug("vault: allocated wallet")
	return walletId, publicKey, nil
}

// Balance performs a live RPC lookup, never cached, per §4.1.
func (v *Vault) Balance(ctx context.Context, pubkey string) (uint64, error) {
	lamports, err := v.rpc.GetBalance(ctx, pubkey)
	if err != nil {
		return 0, domain.NewError(domain.KindRpcError, "balance lookup failed", err)
	}
	return lamports, nil
}

// MarkUsed flips a wallet's Active flag to false and stamps UsedAt.
func (v *Vault) MarkUsed(ctx context.Context, walletId string) error {
	return v.repo.MarkUsed(ctx, walletId, time.Now())
}

// TreasuryWalletId returns the configured fallback funding wallet, if any.
func (v *Vault) TreasuryWalletId() (string, bool) {
	if v.treasury == nil {
		return "", false
	}
	return v.treasury.WalletId(), true
}

// payableBalance is max(0, b - fee_reserve - rent_exempt_min), per GLOSSARY.
func payableBalance(balance uint64) uint64 {
	reserve := FeeReserveLamports + RentExemptMinimumLamports
	if balance <= reserve {
		return 0
	}
	return balance - reserve
}

// TransferResult reports what the Vault actually sent, since the fee/rent
// reservation policy may scale requested amounts down.
type TransferResult struct {
	Signature   string
	ScaleFactor float64 // 1.0 unless the Vault had to scale requested amounts down
}

// SignAndSubmitTransfer builds one system-transfer instruction per
// recipient, scales amounts if the requested sum exceeds the wallet's
// payable balance, signs with the wallet's decrypted secret (zeroed
// immediately after), and submits/confirms via the RPC client.
//
// InsufficientFunds is returned only when the wallet has no payable balance
// (callable == 0). Any request above callable, including a single-recipient
// request, is scaled down to callable and sent; it never fails for exceeding
// callable. TransferResult.ScaleFactor reports the factor applied.
func (v *Vault) SignAndSubmitTransfer(ctx context.Context, walletId string, recipients []ports.TransferRecipient) (*TransferResult, error) {
	wallet, err := v.repo.Get(ctx, walletId)
	if err != nil {
		return nil, domain.NotFoundf("wallet %s not found", walletId)
	}
	if !wallet.Active {
		// Defense-in-depth against Coordinator bugs: never sign from an
		// already-retired wallet.
		return nil, domain.NewError(domain.KindStatusConflict, fmt.Sprintf("wallet %s is not active", walletId), nil)
	}

	balance, err := v.rpc.GetBalance(ctx, wallet.PublicKey)
	if err != nil {
		return nil, domain.NewError(domain.KindRpcError, "balance lookup failed", err)
	}
	callable := payableBalance(balance)

	var requested uint64
	for _, r := range recipients {
		requested += r.Lamports
	}
	if callable == 0 {
		return nil, domain.NewError(domain.KindInsufficientFunds, fmt.Sprintf("wallet %s has no payable balance", walletId), nil)
	}

	scale := 1.0
	scaled := recipients
	if requested > callable {
		scale = float64(callable) / float64(requested)
		scaled = make([]ports.TransferRecipient, len(recipients))
		for i, r := range recipients {
			scaled[i] = ports.TransferRecipient{Address: r.Address, Lamports: uint64(float64(r.Lamports) * scale)}
		}
	}

	blockhash, err := v.rpc.GetRecentBlockhash(ctx)
	if err != nil {
		return nil, domain.NewError(domain.KindRpcError, "recent blockhash lookup failed", err)
	}

	signed, err := v.SignTransfer(ctx, walletId, ports.UnsignedTransfer{
		FeePayer:        wallet.PublicKey,
		RecentBlockhash: blockhash,
		Recipients:      scaled,
	})
	if err != nil {
		return nil, fmt.Errorf("vault: sign transfer: %w", err)
	}

	sig, err := v.rpc.SubmitAndConfirm(ctx, signed)
	if err != nil {
		return nil, domain.NewError(domain.KindRpcError, "submit/confirm failed", err)
	}

	return &TransferResult{Signature: sig, ScaleFactor: scale}, nil
}

// SignTransfer implements ports.Signer: it is the only place the Vault's
// decrypted secret key exists in memory, and only for the duration of one
// ed25519.Sign call.
func (v *Vault) SignTransfer(ctx context.Context, walletId string, transfer ports.UnsignedTransfer) (ports.SignedTransaction, error) {
	wallet, err := v.repo.Get(ctx, walletId)
	if err != nil {
		return ports.SignedTransaction{}, domain.NotFoundf("wallet %s not found", walletId)
	}

	seed, err := v.envelope.Open(wallet.EncryptedSecret)
	if err != nil {
		return ports.SignedTransaction{}, fmt.Errorf("vault: decrypt secret: %w", err)
	}
	defer vaultcrypto.Zero(seed)
	priv := ed25519.NewKeyFromSeed(seed)

	// Wire-format transaction construction (instruction encoding, message
	// serialization) is an RPCClient implementation detail out of scope per
	// spec §1; this signs the canonical recipient list so any RPCClient
	// backend can verify authenticity against the fee-payer pubkey.
	msg := []byte(transfer.FeePayer + transfer.RecentBlockhash)
	for _, r := range transfer.Recipients {
		msg = append(msg, []byte(fmt.Sprintf("|%s:%d", r.Address, r.Lamports))...)
	}
	sig := ed25519.Sign(priv, msg)
	raw := append(append([]byte{}, sig...), msg...)
	return ports.SignedTransaction{Raw: raw}, nil
}
