package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tendant/content-ledger/pkg/ledger/kv"
)

// service implements the Service interface
type service struct {
	// mu serializes mutations against both tables; queries take the read lock
	mu sync.RWMutex
	// publishing holds a per-id lock from upload through registration
	publishing keyedMutex

	repository         Repository
	blobStore          BlobStore
	eventSink          EventSink
	logger             *slog.Logger
	now                func() time.Time
	rejectDuplicateIDs bool
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore sets the blob store used to publish and deliver content bytes
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.blobStore = store
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithClock overrides the time source used for created_at and timestamps
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// WithRejectDuplicateIDs makes registration and payment fail with
// ErrDuplicateID instead of overwriting an existing record.
func WithRejectDuplicateIDs(reject bool) Option {
	return func(s *service) {
		s.rejectDuplicateIDs = reject
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		eventSink: NewNoopEventSink(),
		logger:    slog.Default(),
		now:       func() time.Time { return time.Now().UTC() },
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.eventSink == nil {
		s.eventSink = NewNoopEventSink()
	}

	return s, nil
}

// Registration and status

func (s *service) RegisterContent(ctx context.Context, req RegisterContentRequest, caller Identity) (*ContentRegistration, error) {
	if caller.IsAnonymous() {
		return nil, &ContentError{ContentID: req.ID, Op: "register", Err: ErrUnauthorized}
	}

	content, err := func() (*ContentRegistration, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.rejectDuplicateIDs {
			_, exists, err := s.repository.Contents().Get(ctx, req.ID)
			if err != nil {
				return nil, &ContentError{ContentID: req.ID, Op: "register", Err: err}
			}
			if exists {
				return nil, &ContentError{ContentID: req.ID, Op: "register", Err: ErrDuplicateID}
			}
		}

		content := ContentRegistration{
			ID:           req.ID,
			Creator:      caller,
			Title:        req.Title,
			Description:  req.Description,
			ContentHash:  req.ContentHash,
			PriceE8s:     req.PriceE8s,
			CreatedAt:    s.now(),
			TotalSales:   0,
			TotalRevenue: 0,
			IsActive:     true,
		}
		if err := s.repository.Contents().Put(ctx, content.ID, content); err != nil {
			return nil, &ContentError{ContentID: req.ID, Op: "register", Err: err}
		}
		return &content, nil
	}()
	if err != nil {
		return nil, err
	}

	s.logger.Debug("content registered", "content_id", content.ID, "creator", content.Creator, "price_e8s", content.PriceE8s)
	if err := s.eventSink.ContentRegistered(ctx, content); err != nil {
		s.logger.Warn("event sink failed", "event", "content_registered", "content_id", content.ID, "error", err)
	}

	return content, nil
}

func (s *service) UpdateContentStatus(ctx context.Context, contentID string, isActive bool, caller Identity) (*ContentRegistration, error) {
	content, err := func() (*ContentRegistration, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		content, ok, err := s.repository.Contents().Get(ctx, contentID)
		if err != nil {
			return nil, &ContentError{ContentID: contentID, Op: "update_status", Err: err}
		}
		if !ok {
			return nil, &ContentError{ContentID: contentID, Op: "update_status", Err: ErrContentNotFound}
		}
		// Only identity mismatch is checked here; anonymous callers are not
		// rejected separately since no content can have an anonymous creator.
		if content.Creator != caller {
			return nil, &ContentError{ContentID: contentID, Op: "update_status", Err: ErrUnauthorized}
		}

		content.IsActive = isActive
		if err := s.repository.Contents().Put(ctx, contentID, content); err != nil {
			return nil, &ContentError{ContentID: contentID, Op: "update_status", Err: err}
		}
		return &content, nil
	}()
	if err != nil {
		return nil, err
	}

	if err := s.eventSink.ContentStatusChanged(ctx, content); err != nil {
		s.logger.Warn("event sink failed", "event", "content_status_changed", "content_id", content.ID, "error", err)
	}

	return content, nil
}

// Payments

func (s *service) RecordPayment(ctx context.Context, req RecordPaymentRequest, caller Identity) (*PaymentRecord, error) {
	fail := func(err error) error {
		return &PaymentError{PaymentID: req.PaymentID, ContentID: req.ContentID, Op: "record", Err: err}
	}

	if caller.IsAnonymous() {
		return nil, fail(ErrUnauthorized)
	}

	var updated ContentRegistration
	payment, err := func() (*PaymentRecord, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		content, ok, err := s.repository.Contents().Get(ctx, req.ContentID)
		if err != nil {
			return nil, fail(err)
		}
		if !ok {
			return nil, fail(ErrContentNotFound)
		}
		if !content.IsActive {
			return nil, fail(ErrInactiveContent)
		}
		if req.AmountE8s < content.PriceE8s {
			return nil, fail(ErrInsufficientPayment)
		}
		if content.TotalRevenue+req.AmountE8s < content.TotalRevenue {
			return nil, fail(ErrRevenueOverflow)
		}

		if s.rejectDuplicateIDs {
			_, exists, err := s.repository.Payments().Get(ctx, req.PaymentID)
			if err != nil {
				return nil, fail(err)
			}
			if exists {
				return nil, fail(ErrDuplicateID)
			}
		}

		payment := PaymentRecord{
			ID:              req.PaymentID,
			ContentID:       req.ContentID,
			Buyer:           caller,
			Creator:         content.Creator,
			AmountE8s:       req.AmountE8s,
			Timestamp:       s.now(),
			TransactionHash: req.TransactionHash,
		}

		content.TotalSales++
		content.TotalRevenue += req.AmountE8s

		if err := s.repository.CommitPayment(ctx, payment, content); err != nil {
			return nil, fail(err)
		}
		updated = content
		return &payment, nil
	}()
	if err != nil {
		return nil, err
	}

	s.logger.Debug("payment recorded",
		"payment_id", payment.ID,
		"content_id", payment.ContentID,
		"buyer", payment.Buyer,
		"amount_e8s", payment.AmountE8s,
	)
	if err := s.eventSink.PaymentRecorded(ctx, payment, &updated); err != nil {
		s.logger.Warn("event sink failed", "event", "payment_recorded", "payment_id", payment.ID, "error", err)
	}

	return payment, nil
}

// Queries

func (s *service) GetContent(ctx context.Context, id string) (*ContentRegistration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	content, ok, err := s.repository.Contents().Get(ctx, id)
	if err != nil {
		return nil, &ContentError{ContentID: id, Op: "get", Err: err}
	}
	if !ok {
		return nil, &ContentError{ContentID: id, Op: "get", Err: ErrContentNotFound}
	}
	return &content, nil
}

func (s *service) GetContentByCreator(ctx context.Context, creator Identity) ([]*ContentRegistration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	contents, err := kv.Collect(ctx, s.repository.Contents(), func(c ContentRegistration) bool {
		return c.Creator == creator
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list content by creator: %w", err)
	}
	return pointers(contents), nil
}

func (s *service) GetPaymentsForContent(ctx context.Context, contentID string) ([]*PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payments, err := kv.Collect(ctx, s.repository.Payments(), func(p PaymentRecord) bool {
		return p.ContentID == contentID
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list payments for content: %w", err)
	}
	return pointers(payments), nil
}

func (s *service) GetPaymentsByBuyer(ctx context.Context, buyer Identity) ([]*PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payments, err := kv.Collect(ctx, s.repository.Payments(), func(p PaymentRecord) bool {
		return p.Buyer == buyer
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list payments by buyer: %w", err)
	}
	return pointers(payments), nil
}

func (s *service) HasPurchasedContent(ctx context.Context, buyer Identity, contentID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.hasPurchasedLocked(ctx, buyer, contentID)
}

func (s *service) hasPurchasedLocked(ctx context.Context, buyer Identity, contentID string) (bool, error) {
	found, err := kv.Any(ctx, s.repository.Payments(), func(p PaymentRecord) bool {
		return p.Buyer == buyer && p.ContentID == contentID
	})
	if err != nil {
		return false, fmt.Errorf("failed to check purchase: %w", err)
	}
	return found, nil
}

// Statistics

func (s *service) GetStats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	contentCount, err := s.repository.Contents().Len(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count content: %w", err)
	}
	paymentCount, err := s.repository.Payments().Len(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count payments: %w", err)
	}

	return &Stats{
		ContentCount: uint64(contentCount),
		PaymentCount: uint64(paymentCount),
	}, nil
}

func (s *service) GetCreatorSummary(ctx context.Context, creator Identity) (*CreatorSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := &CreatorSummary{Creator: creator}
	err := s.repository.Contents().Iterate(ctx, func(_ string, c ContentRegistration) bool {
		if c.Creator != creator {
			return true
		}
		summary.ContentCount++
		if c.IsActive {
			summary.ActiveCount++
		}
		summary.TotalSales += c.TotalSales
		summary.TotalRevenueE8s += c.TotalRevenue
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to summarize creator: %w", err)
	}
	return summary, nil
}

func pointers[V any](values []V) []*V {
	out := make([]*V, len(values))
	for i := range values {
		out[i] = &values[i]
	}
	return out
}
