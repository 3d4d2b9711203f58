package ledger

import (
	"net/url"
	"time"
)

// Identity is an opaque principal representing the caller of an operation.
type Identity string

// Anonymous is the identity of unauthenticated callers. It is the textual
// form of the Internet Computer anonymous principal.
const Anonymous Identity = "2vxsx-fae"

// IsAnonymous reports whether i is the anonymous identity. The zero value is
// treated as anonymous as well.
func (i Identity) IsAnonymous() bool {
	return i == Anonymous || i == ""
}

// String returns the textual form of the identity
func (i Identity) String() string {
	return string(i)
}

// ContentRegistration is a piece of content offered for sale.
type ContentRegistration struct {
	ID           string    `json:"id"`
	Creator      Identity  `json:"creator"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	ContentHash  string    `json:"content_hash"`
	PriceE8s     uint64    `json:"price_icp"`
	CreatedAt    time.Time `json:"created_at"`
	TotalSales   uint64    `json:"total_sales"`
	TotalRevenue uint64    `json:"total_revenue"`
	IsActive     bool      `json:"is_active"`
}

// PaymentRecord records that a buyer paid for a piece of content. Records are
// immutable once written.
type PaymentRecord struct {
	ID              string    `json:"id"`
	ContentID       string    `json:"content_id"`
	Buyer           Identity  `json:"buyer"`
	Creator         Identity  `json:"creator"` // snapshot of the content creator at payment time
	AmountE8s       uint64    `json:"amount_icp"`
	Timestamp       time.Time `json:"timestamp"`
	TransactionHash string    `json:"transaction_hash"`
}

// Stats holds the cardinality of both ledger tables.
type Stats struct {
	ContentCount uint64 `json:"content_count"`
	PaymentCount uint64 `json:"payment_count"`
}

// CreatorSummary aggregates the content registered by a single creator.
type CreatorSummary struct {
	Creator         Identity `json:"creator"`
	ContentCount    uint64   `json:"content_count"`
	ActiveCount     uint64   `json:"active_count"`
	TotalSales      uint64   `json:"total_sales"`
	TotalRevenueE8s uint64   `json:"total_revenue"`
}

// ObjectKey returns the blob store key holding the bytes of a published
// content item.
func ObjectKey(contentID string) string {
	return "content/" + url.PathEscape(contentID)
}
