package ledger

import (
	"context"
	"io"

	"github.com/tendant/content-ledger/pkg/ledger/kv"
)

// Repository owns the two ledger tables. One repository is constructed at
// process start and shared by every operation.
type Repository interface {
	// Contents returns the content table, keyed by content ID
	Contents() kv.Table[ContentRegistration]

	// Payments returns the payment table, keyed by payment ID
	Payments() kv.Table[PaymentRecord]

	// CommitPayment stores a new payment and the content record carrying its
	// updated counters as a single unit. Durable backends must apply both
	// writes or neither.
	CommitPayment(ctx context.Context, payment PaymentRecord, content ContentRegistration) error

	// Close releases the underlying storage
	Close() error
}

// BlobStore holds the bytes of published content
type BlobStore interface {
	// Upload stores the content read from reader under objectKey
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// Download returns the content stored under objectKey
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// GetDownloadURL returns a URL for downloading content directly from the backend
	GetDownloadURL(ctx context.Context, objectKey string, downloadFilename string) (string, error)
}

// EventSink defines the interface for ledger event handling
type EventSink interface {
	// ContentRegistered is fired when content is registered or re-registered
	ContentRegistered(ctx context.Context, content *ContentRegistration) error

	// PaymentRecorded is fired after a payment and its counter update are committed
	PaymentRecorded(ctx context.Context, payment *PaymentRecord, content *ContentRegistration) error

	// ContentStatusChanged is fired when a creator toggles IsActive
	ContentStatusChanged(ctx context.Context, content *ContentRegistration) error
}
