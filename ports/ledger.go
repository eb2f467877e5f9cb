package ports

import "context"

// TxStatus is the confirmation state of a ledger write.
type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxConfirmed TxStatus = "confirmed"
)

// LedgerBlobStore is the decentralized ledger seen as an opaque blob store
// with asynchronous confirmation. Writes return a transaction id that may be
// polled; reads are immutable once confirmed.
type LedgerBlobStore interface {
	// Store submits the blob and returns its transaction id.
	Store(ctx context.Context, blob []byte) (string, error)

	// Get fetches the blob for a transaction id.
	Get(ctx context.Context, txID string) ([]byte, error)

	// Status polls the confirmation state of a transaction.
	Status(ctx context.Context, txID string) (TxStatus, error)
}
