package ledger

import "io"

// RegisterContentRequest contains parameters for registering content
type RegisterContentRequest struct {
	ID          string
	Title       string
	Description string
	ContentHash string
	PriceE8s    uint64
}

// RecordPaymentRequest contains parameters for recording a payment
type RecordPaymentRequest struct {
	PaymentID       string
	ContentID       string
	AmountE8s       uint64
	TransactionHash string
}

// PublishContentRequest contains parameters for uploading and registering
// content in one step. The content hash is computed from Body.
type PublishContentRequest struct {
	ID          string
	Title       string
	Description string
	PriceE8s    uint64
	Body        io.Reader
}
