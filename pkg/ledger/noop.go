package ledger

import "context"

// NoopEventSink is a no-operation implementation of EventSink
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

// ContentRegistered does nothing and returns nil
func (n *NoopEventSink) ContentRegistered(ctx context.Context, content *ContentRegistration) error {
	return nil
}

// PaymentRecorded does nothing and returns nil
func (n *NoopEventSink) PaymentRecorded(ctx context.Context, payment *PaymentRecord, content *ContentRegistration) error {
	return nil
}

// ContentStatusChanged does nothing and returns nil
func (n *NoopEventSink) ContentStatusChanged(ctx context.Context, content *ContentRegistration) error {
	return nil
}
