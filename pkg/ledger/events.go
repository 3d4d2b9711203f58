package ledger

import (
	"context"
	"errors"
	"log/slog"
)

// LogEventSink writes every ledger event to a structured logger
type LogEventSink struct {
	logger *slog.Logger
}

// NewLogEventSink creates an event sink logging at Info level. A nil logger
// uses slog.Default().
func NewLogEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEventSink{logger: logger}
}

func (l *LogEventSink) ContentRegistered(ctx context.Context, content *ContentRegistration) error {
	l.logger.InfoContext(ctx, "content registered",
		"content_id", content.ID,
		"creator", content.Creator,
		"price_e8s", content.PriceE8s,
	)
	return nil
}

func (l *LogEventSink) PaymentRecorded(ctx context.Context, payment *PaymentRecord, content *ContentRegistration) error {
	l.logger.InfoContext(ctx, "payment recorded",
		"payment_id", payment.ID,
		"content_id", payment.ContentID,
		"buyer", payment.Buyer,
		"creator", payment.Creator,
		"amount_e8s", payment.AmountE8s,
		"transaction_hash", payment.TransactionHash,
		"total_sales", content.TotalSales,
		"total_revenue", content.TotalRevenue,
	)
	return nil
}

func (l *LogEventSink) ContentStatusChanged(ctx context.Context, content *ContentRegistration) error {
	l.logger.InfoContext(ctx, "content status changed",
		"content_id", content.ID,
		"is_active", content.IsActive,
	)
	return nil
}

// MultiEventSink fans every event out to several sinks
type MultiEventSink []EventSink

// NewMultiEventSink combines sinks, skipping nil entries
func NewMultiEventSink(sinks ...EventSink) EventSink {
	var m MultiEventSink
	for _, sink := range sinks {
		if sink != nil {
			m = append(m, sink)
		}
	}
	return m
}

func (m MultiEventSink) ContentRegistered(ctx context.Context, content *ContentRegistration) error {
	var errs []error
	for _, sink := range m {
		errs = append(errs, sink.ContentRegistered(ctx, content))
	}
	return errors.Join(errs...)
}

func (m MultiEventSink) PaymentRecorded(ctx context.Context, payment *PaymentRecord, content *ContentRegistration) error {
	var errs []error
	for _, sink := range m {
		errs = append(errs, sink.PaymentRecorded(ctx, payment, content))
	}
	return errors.Join(errs...)
}

func (m MultiEventSink) ContentStatusChanged(ctx context.Context, content *ContentRegistration) error {
	var errs []error
	for _, sink := range m {
		errs = append(errs, sink.ContentStatusChanged(ctx, content))
	}
	return errors.Join(errs...)
}
