package domain

import "context"

// EncryptedMemo is opaque client-encrypted ciphertext the server stores and
// returns verbatim. The server never decrypts or inspects it.
type EncryptedMemo struct {
	MemoId        string
	TransactionId string
	Ciphertext    []byte
	Metadata      string
}

type MemoRepository interface {
	Store(ctx context.Context, memo EncryptedMemo) error
	Get(ctx context.Context, transactionId string) (*EncryptedMemo, error)
	Close()
}
