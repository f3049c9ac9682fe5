package ports

import "context"

// TransferRecipient is one (address, lamports) pair in a system-transfer
// instruction. RPCClient.SubmitAndConfirm accepts one or two recipients per
// §4.1's single/two-recipient transfer variants.
type TransferRecipient struct {
	Address string
	Lamports uint64
}

// UnsignedTransfer is the set of instructions the Vault builds before
// signing: one system-transfer instruction per recipient, fee-payer is
// always the sending wallet.
type UnsignedTransfer struct {
	FeePayer        string
	RecentBlockhash string
	Recipients      []TransferRecipient
}

// SignedTransaction is an opaque, already-signed wire-format transaction
// ready for submission. Its shape (base64/base58 encoding, instruction
// layout) is entirely an RPCClient implementation detail — the core never
// inspects it.
type SignedTransaction struct {
	Raw []byte
}

// RPCClient is the interface the core consumes for every blockchain
// interaction. Its construction (endpoint, commitment defaults, retry/backoff
// policy) is explicitly out of scope per spec §1 — only this interface is
// specified.
type RPCClient interface {
	// GetBalance performs a live lookup, never cached.
	GetBalance(ctx context.Context, pubkey string) (lamports uint64, err error)
	// GetRecentBlockhash returns a blockhash suitable as a transaction's
	// recent_blockhash and fee basis.
	GetRecentBlockhash(ctx context.Context) (blockhash string, err error)
	// GetTransaction resolves a signature to confirmed status. A nil error
	// with found=false means "not yet visible", distinct from a transport
	// failure.
	GetTransaction(ctx context.Context, signature string) (found bool, err error)
	// Sign is supplied by the caller (the Vault holds the key); RPCClient
	// only submits and confirms already-signed wire bytes.
	SubmitAndConfirm(ctx context.Context, signed SignedTransaction) (signature string, err error)
}

// Signer is implemented by the Vault: it knows how to turn an
// UnsignedTransfer into bytes ready for RPCClient.SubmitAndConfirm. Kept
// separate from RPCClient because signing requires the secret key, which
// only the Vault ever holds in memory.
type Signer interface {
	SignTransfer(ctx context.Context, walletId string, transfer UnsignedTransfer) (SignedTransaction, error)
}
