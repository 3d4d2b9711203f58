package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/tendant/content-ledger/pkg/ledger"
	"github.com/tendant/content-ledger/pkg/ledger/kv"
)

// Repository implements ledger.Repository using in-memory storage
type Repository struct {
	mu       sync.RWMutex
	contents *table[ledger.ContentRegistration]
	payments *table[ledger.PaymentRecord]
}

// New creates a new in-memory repository
func New() *Repository {
	r := &Repository{}
	r.contents = &table[ledger.ContentRegistration]{mu: &r.mu, records: make(map[string]ledger.ContentRegistration)}
	r.payments = &table[ledger.PaymentRecord]{mu: &r.mu, records: make(map[string]ledger.PaymentRecord)}
	return r
}

var _ ledger.Repository = (*Repository)(nil)

func (r *Repository) Contents() kv.Table[ledger.ContentRegistration] {
	return r.contents
}

func (r *Repository) Payments() kv.Table[ledger.PaymentRecord] {
	return r.payments
}

func (r *Repository) CommitPayment(ctx context.Context, payment ledger.PaymentRecord, content ledger.ContentRegistration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.payments.records[payment.ID] = payment
	r.contents.records[content.ID] = content
	return nil
}

func (r *Repository) Close() error {
	return nil
}

// table is an ordered map guarded by the repository lock. Records are stored
// by value so callers never share memory with the table.
type table[V any] struct {
	mu      *sync.RWMutex
	records map[string]V
}

func (t *table[V]) Get(ctx context.Context, key string) (V, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	value, ok := t.records[key]
	return value, ok, nil
}

func (t *table[V]) Put(ctx context.Context, key string, value V) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.records[key] = value
	return nil
}

func (t *table[V]) Iterate(ctx context.Context, fn func(key string, value V) bool) error {
	t.mu.RLock()
	keys := make([]string, 0, len(t.records))
	for key := range t.records {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	values := make([]V, len(keys))
	for i, key := range keys {
		values[i] = t.records[key]
	}
	t.mu.RUnlock()

	for i, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !fn(key, values[i]) {
			return nil
		}
	}
	return nil
}

func (t *table[V]) Len(ctx context.Context) (int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.records), nil
}
