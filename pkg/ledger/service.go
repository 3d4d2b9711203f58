package ledger

import (
	"context"
	"io"
)

// Service defines the main interface of the content ledger
type Service interface {
	// Registration and status
	RegisterContent(ctx context.Context, req RegisterContentRequest, caller Identity) (*ContentRegistration, error)
	UpdateContentStatus(ctx context.Context, contentID string, isActive bool, caller Identity) (*ContentRegistration, error)

	// Payments
	RecordPayment(ctx context.Context, req RecordPaymentRequest, caller Identity) (*PaymentRecord, error)

	// Queries
	GetContent(ctx context.Context, id string) (*ContentRegistration, error)
	GetContentByCreator(ctx context.Context, creator Identity) ([]*ContentRegistration, error)
	GetPaymentsForContent(ctx context.Context, contentID string) ([]*PaymentRecord, error)
	GetPaymentsByBuyer(ctx context.Context, buyer Identity) ([]*PaymentRecord, error)
	HasPurchasedContent(ctx context.Context, buyer Identity, contentID string) (bool, error)

	// Statistics
	GetStats(ctx context.Context) (*Stats, error)
	GetCreatorSummary(ctx context.Context, creator Identity) (*CreatorSummary, error)

	// Content bytes
	PublishContent(ctx context.Context, req PublishContentRequest, caller Identity) (*ContentRegistration, error)
	DownloadContent(ctx context.Context, contentID string, caller Identity) (io.ReadCloser, error)
	GetDownloadURL(ctx context.Context, contentID string, caller Identity) (string, error)
}
