// Package sqlite persists the ledger in a SQLite database file. Both tables
// store opaque codec envelopes keyed by ID.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/tendant/content-ledger/pkg/ledger"
	"github.com/tendant/content-ledger/pkg/ledger/kv"
)

//go:embed schema.sql
var schemaSQL string

const (
	contentTable = "content_registry"
	paymentTable = "payment_records"
)

// Repository implements ledger.Repository using SQLite
type Repository struct {
	db       *sql.DB
	contents *table[ledger.ContentRegistration]
	payments *table[ledger.PaymentRecord]
}

var _ ledger.Repository = (*Repository)(nil)

// Open creates or opens a SQLite database at path and applies the schema.
//
// The connection runs in WAL mode with a single writer, so concurrent readers
// never observe a half-applied payment commit.
func Open(path string) (*Repository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Repository{
		db: db,
		contents: &table[ledger.ContentRegistration]{
			db:    db,
			name:  contentTable,
			codec: kv.NewJSONCodec[ledger.ContentRegistration]("content_registration", 1),
		},
		payments: &table[ledger.PaymentRecord]{
			db:    db,
			name:  paymentTable,
			codec: kv.NewJSONCodec[ledger.PaymentRecord]("payment_record", 1),
		},
	}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func (r *Repository) Contents() kv.Table[ledger.ContentRegistration] {
	return r.contents
}

func (r *Repository) Payments() kv.Table[ledger.PaymentRecord] {
	return r.payments
}

// CommitPayment writes the payment and the updated content in one transaction
func (r *Repository) CommitPayment(ctx context.Context, payment ledger.PaymentRecord, content ledger.ContentRegistration) (err error) {
	paymentValue, err := r.payments.codec.Encode(payment)
	if err != nil {
		return err
	}
	contentValue, err := r.contents.codec.Encode(content)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = upsert(ctx, tx, paymentTable, payment.ID, paymentValue); err != nil {
		return err
	}
	if err = upsert(ctx, tx, contentTable, content.ID, contentValue); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit payment %s: %w", payment.ID, err)
	}
	return nil
}

func (r *Repository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsert(ctx context.Context, db execer, name, key string, value []byte) error {
	query := fmt.Sprintf(`INSERT INTO %s (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, name)
	if _, err := db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", name, key, err)
	}
	return nil
}

type table[V any] struct {
	db    *sql.DB
	name  string
	codec kv.JSONCodec[V]
}

func (t *table[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	var data []byte
	query := fmt.Sprintf(`SELECT value FROM %s WHERE key = ?`, t.name)
	err := t.db.QueryRowContext(ctx, query, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("failed to read %s/%s: %w", t.name, key, err)
	}

	value, err := t.codec.Decode(data)
	if err != nil {
		return zero, false, fmt.Errorf("failed to decode %s/%s: %w", t.name, key, err)
	}
	return value, true, nil
}

func (t *table[V]) Put(ctx context.Context, key string, value V) error {
	data, err := t.codec.Encode(value)
	if err != nil {
		return err
	}
	return upsert(ctx, t.db, t.name, key, data)
}

func (t *table[V]) Iterate(ctx context.Context, fn func(key string, value V) bool) error {
	type row struct {
		key   string
		value V
	}

	// Rows are drained before fn runs so the single connection is free for
	// callers that query from inside fn.
	query := fmt.Sprintf(`SELECT key, value FROM %s ORDER BY key`, t.name)
	rows, err := t.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", t.name, err)
	}

	var all []row
	for rows.Next() {
		var key string
		var data []byte
		if err := rows.Scan(&key, &data); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan %s: %w", t.name, err)
		}
		value, err := t.codec.Decode(data)
		if err != nil {
			rows.Close()
			return fmt.Errorf("failed to decode %s/%s: %w", t.name, key, err)
		}
		all = append(all, row{key: key, value: value})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, r := range all {
		if !fn(r.key, r.value) {
			break
		}
	}
	return nil
}

func (t *table[V]) Len(ctx context.Context) (int, error) {
	var n int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, t.name)
	if err := t.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", t.name, err)
	}
	return n, nil
}
