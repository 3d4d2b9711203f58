package ledger

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrUnauthorized indicates the caller may not perform the operation
	ErrUnauthorized = errors.New("unauthorized")

	// ErrContentNotFound indicates the referenced content does not exist
	ErrContentNotFound = errors.New("content not found")

	// ErrInactiveContent indicates a payment against deactivated content
	ErrInactiveContent = errors.New("content is not active")

	// ErrInsufficientPayment indicates an amount below the listed price
	ErrInsufficientPayment = errors.New("insufficient payment amount")

	// ErrDuplicateID indicates an ID is already taken. Only returned when
	// duplicate rejection is enabled.
	ErrDuplicateID = errors.New("id already exists")

	// ErrRevenueOverflow indicates a payment would overflow the revenue counter
	ErrRevenueOverflow = errors.New("revenue counter overflow")

	// ErrBlobNotFound indicates the stored bytes of a content item are missing
	ErrBlobNotFound = errors.New("content object not found")

	// ErrNoBlobStore indicates publishing or delivery without a configured blob store
	ErrNoBlobStore = errors.New("no blob store configured")

	// ErrUploadFailed indicates the content bytes could not be stored
	ErrUploadFailed = errors.New("upload failed")

	// ErrDirectAccessRequired indicates the blob store cannot hand out URLs
	ErrDirectAccessRequired = errors.New("direct download required for this backend")
)

// ContentError represents an error related to content operations
type ContentError struct {
	ContentID string
	Op        string
	Err       error
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("content operation %s failed for content %q: %v", e.Op, e.ContentID, e.Err)
}

func (e *ContentError) Unwrap() error {
	return e.Err
}

// PaymentError represents an error related to payment operations
type PaymentError struct {
	PaymentID string
	ContentID string
	Op        string
	Err       error
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("payment operation %s failed for payment %q (content %q): %v", e.Op, e.PaymentID, e.ContentID, e.Err)
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}
