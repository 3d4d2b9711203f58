// Package leveldb persists the ledger in a single LevelDB database. Each table
// owns a one-byte key prefix so both tables share one ordered keyspace and a
// payment commit can be written as one batch.
package leveldb

import (
	"context"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
	"github.com/tendant/content-ledger/pkg/ledger"
	"github.com/tendant/content-ledger/pkg/ledger/kv"
)

// Table prefixes. Changing either value orphans existing data.
const (
	contentPrefix byte = 0x00
	paymentPrefix byte = 0x01
)

// Record schemas written into every value envelope
const (
	ContentSchema  = "content_registration"
	PaymentSchema  = "payment_record"
	ContentVersion = 1
	PaymentVersion = 1
)

// Repository implements ledger.Repository on top of LevelDB
type Repository struct {
	db       *leveldb.DB
	contents *table[ledger.ContentRegistration]
	payments *table[ledger.PaymentRecord]
}

var _ ledger.Repository = (*Repository)(nil)

// Open opens or creates the database at path
func Open(path string) (*Repository, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb at %s: %w", path, err)
	}
	return New(db), nil
}

// OpenMemory opens a database backed by memory, for tests and ephemeral use
func OpenMemory() (*Repository, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory leveldb: %w", err)
	}
	return New(db), nil
}

// New wraps an open database. The repository takes ownership of db.
func New(db *leveldb.DB) *Repository {
	return &Repository{
		db: db,
		contents: &table[ledger.ContentRegistration]{
			db:     db,
			prefix: contentPrefix,
			codec:  kv.NewJSONCodec[ledger.ContentRegistration](ContentSchema, ContentVersion),
		},
		payments: &table[ledger.PaymentRecord]{
			db:     db,
			prefix: paymentPrefix,
			codec:  kv.NewJSONCodec[ledger.PaymentRecord](PaymentSchema, PaymentVersion),
		},
	}
}

func (r *Repository) Contents() kv.Table[ledger.ContentRegistration] {
	return r.contents
}

func (r *Repository) Payments() kv.Table[ledger.PaymentRecord] {
	return r.payments
}

// CommitPayment writes the payment and the updated content in one batch
func (r *Repository) CommitPayment(ctx context.Context, payment ledger.PaymentRecord, content ledger.ContentRegistration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	paymentValue, err := r.payments.codec.Encode(payment)
	if err != nil {
		return err
	}
	contentValue, err := r.contents.codec.Encode(content)
	if err != nil {
		return err
	}

	batch := new(leveldb.Batch)
	batch.Put(r.payments.key(payment.ID), paymentValue)
	batch.Put(r.contents.key(content.ID), contentValue)

	if err := r.db.Write(batch, &opt.WriteOptions{Sync: true}); err != nil {
		return fmt.Errorf("failed to commit payment %s: %w", payment.ID, err)
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

type table[V any] struct {
	db     *leveldb.DB
	prefix byte
	codec  kv.JSONCodec[V]
}

func (t *table[V]) key(id string) []byte {
	k := make([]byte, 1+len(id))
	k[0] = t.prefix
	copy(k[1:], id)
	return k
}

func (t *table[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	data, err := t.db.Get(t.key(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("failed to read %q: %w", key, err)
	}

	value, err := t.codec.Decode(data)
	if err != nil {
		return zero, false, fmt.Errorf("failed to decode %q: %w", key, err)
	}
	return value, true, nil
}

func (t *table[V]) Put(ctx context.Context, key string, value V) error {
	data, err := t.codec.Encode(value)
	if err != nil {
		return err
	}
	if err := t.db.Put(t.key(key), data, nil); err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	return nil
}

func (t *table[V]) Iterate(ctx context.Context, fn func(key string, value V) bool) error {
	iter := t.db.NewIterator(util.BytesPrefix([]byte{t.prefix}), nil)
	defer iter.Release()

	for iter.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}

		// iter.Key is only valid until the next call to Next
		key := string(iter.Key()[1:])
		value, err := t.codec.Decode(iter.Value())
		if err != nil {
			return fmt.Errorf("failed to decode %q: %w", key, err)
		}
		if !fn(key, value) {
			break
		}
	}
	return iter.Error()
}

func (t *table[V]) Len(ctx context.Context) (int, error) {
	iter := t.db.NewIterator(util.BytesPrefix([]byte{t.prefix}), nil)
	defer iter.Release()

	n := 0
	for iter.Next() {
		n++
	}
	return n, iter.Error()
}
