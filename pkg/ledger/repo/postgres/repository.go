package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/content-ledger/pkg/ledger"
	"github.com/tendant/content-ledger/pkg/ledger/kv"
)

//go:embed schema.sql
var schemaSQL string

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
	Begin(context.Context) (pgx.Tx, error)
}

// Repository implements ledger.Repository using PostgreSQL
type Repository struct {
	db       DBTX
	close    func()
	contents *contentTable
	payments *paymentTable
}

var _ ledger.Repository = (*Repository)(nil)

// New creates a new PostgreSQL repository. The caller keeps ownership of db.
func New(db DBTX) *Repository {
	return &Repository{
		db:       db,
		contents: &contentTable{db: db},
		payments: &paymentTable{db: db},
	}
}

// NewWithPool creates a new PostgreSQL repository that closes pool on Close
func NewWithPool(pool *pgxpool.Pool) *Repository {
	r := New(pool)
	r.close = pool.Close
	return r
}

// Migrate creates the ledger tables if they do not exist
func Migrate(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return handlePostgresError("migrate", err)
	}
	return nil
}

// Error handling helper
func handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s", ledger.ErrDuplicateID, pgErr.ConstraintName)
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "22003": // numeric_value_out_of_range
			return fmt.Errorf("%w: %s", ledger.ErrRevenueOverflow, pgErr.Message)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

func (r *Repository) Contents() kv.Table[ledger.ContentRegistration] {
	return r.contents
}

func (r *Repository) Payments() kv.Table[ledger.PaymentRecord] {
	return r.payments
}

// CommitPayment writes the payment and bumps the content counters in one
// transaction. The content row is locked and the payment re-checked against
// it, so processes sharing the database cannot lose each other's updates.
// Counters are incremented in SQL; only the payment amount is taken from the
// caller, not content's precomputed totals.
func (r *Repository) CommitPayment(ctx context.Context, payment ledger.PaymentRecord, content ledger.ContentRegistration) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return handlePostgresError("begin payment", err)
	}
	defer tx.Rollback(ctx)

	var creator, price, revenue string
	var active bool
	err = tx.QueryRow(ctx, `
		SELECT creator, price_e8s::text, total_revenue::text, is_active
		FROM content_registry WHERE id = $1 FOR UPDATE`, content.ID).Scan(&creator, &price, &revenue, &active)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.ErrContentNotFound
	}
	if err != nil {
		return handlePostgresError("lock content", err)
	}

	priceE8s, err := parseUint(price)
	if err != nil {
		return err
	}
	revenueE8s, err := parseUint(revenue)
	if err != nil {
		return err
	}
	switch {
	case !active:
		return ledger.ErrInactiveContent
	case payment.AmountE8s < priceE8s:
		return ledger.ErrInsufficientPayment
	case revenueE8s+payment.AmountE8s < revenueE8s:
		return ledger.ErrRevenueOverflow
	}

	payment.Creator = ledger.Identity(creator)
	if err := upsertPayment(ctx, tx, payment); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE content_registry
		SET total_sales = total_sales + 1, total_revenue = total_revenue + $2::text::numeric
		WHERE id = $1`, content.ID, formatUint(payment.AmountE8s))
	if err != nil {
		return handlePostgresError("update content totals", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return handlePostgresError("commit payment", err)
	}
	return nil
}

func (r *Repository) Close() error {
	if r.close != nil {
		r.close()
	}
	return nil
}

// Content operations

const contentColumns = `id, creator, title, description, content_hash, price_e8s::text,
	created_at, total_sales::text, total_revenue::text, is_active`

type contentTable struct {
	db DBTX
}

func upsertContent(ctx context.Context, db DBTX, c ledger.ContentRegistration) error {
	query := `
		INSERT INTO content_registry (
			id, creator, title, description, content_hash, price_e8s,
			created_at, total_sales, total_revenue, is_active
		) VALUES ($1, $2, $3, $4, $5, $6::text::numeric, $7, $8::text::numeric, $9::text::numeric, $10)
		ON CONFLICT (id) DO UPDATE SET
			creator = EXCLUDED.creator, title = EXCLUDED.title,
			description = EXCLUDED.description, content_hash = EXCLUDED.content_hash,
			price_e8s = EXCLUDED.price_e8s, created_at = EXCLUDED.created_at,
			total_sales = EXCLUDED.total_sales, total_revenue = EXCLUDED.total_revenue,
			is_active = EXCLUDED.is_active`

	_, err := db.Exec(ctx, query,
		c.ID, string(c.Creator), c.Title, c.Description, c.ContentHash,
		formatUint(c.PriceE8s), c.CreatedAt, formatUint(c.TotalSales),
		formatUint(c.TotalRevenue), c.IsActive)
	if err != nil {
		return handlePostgresError("upsert content", err)
	}
	return nil
}

func scanContent(row pgx.Row) (ledger.ContentRegistration, error) {
	var c ledger.ContentRegistration
	var creator, price, sales, revenue string
	err := row.Scan(&c.ID, &creator, &c.Title, &c.Description, &c.ContentHash,
		&price, &c.CreatedAt, &sales, &revenue, &c.IsActive)
	if err != nil {
		return c, err
	}

	c.Creator = ledger.Identity(creator)
	if c.PriceE8s, err = parseUint(price); err != nil {
		return c, err
	}
	if c.TotalSales, err = parseUint(sales); err != nil {
		return c, err
	}
	if c.TotalRevenue, err = parseUint(revenue); err != nil {
		return c, err
	}
	return c, nil
}

func (t *contentTable) Get(ctx context.Context, key string) (ledger.ContentRegistration, bool, error) {
	query := `SELECT ` + contentColumns + ` FROM content_registry WHERE id = $1`

	c, err := scanContent(t.db.QueryRow(ctx, query, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.ContentRegistration{}, false, nil
	}
	if err != nil {
		return ledger.ContentRegistration{}, false, handlePostgresError("get content", err)
	}
	return c, true, nil
}

func (t *contentTable) Put(ctx context.Context, key string, value ledger.ContentRegistration) error {
	value.ID = key
	return upsertContent(ctx, t.db, value)
}

func (t *contentTable) Iterate(ctx context.Context, fn func(key string, value ledger.ContentRegistration) bool) error {
	query := `SELECT ` + contentColumns + ` FROM content_registry ORDER BY id COLLATE "C"`

	rows, err := t.db.Query(ctx, query)
	if err != nil {
		return handlePostgresError("list content", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return handlePostgresError("scan content", err)
		}
		if !fn(c.ID, c) {
			return nil
		}
	}
	return rows.Err()
}

func (t *contentTable) Len(ctx context.Context) (int, error) {
	var n int
	if err := t.db.QueryRow(ctx, `SELECT COUNT(*) FROM content_registry`).Scan(&n); err != nil {
		return 0, handlePostgresError("count content", err)
	}
	return n, nil
}

// Payment operations

const paymentColumns = `id, content_id, buyer, creator, amount_e8s::text, paid_at, transaction_hash`

type paymentTable struct {
	db DBTX
}

func upsertPayment(ctx context.Context, db DBTX, p ledger.PaymentRecord) error {
	query := `
		INSERT INTO payment_records (
			id, content_id, buyer, creator, amount_e8s, paid_at, transaction_hash
		) VALUES ($1, $2, $3, $4, $5::text::numeric, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			content_id = EXCLUDED.content_id, buyer = EXCLUDED.buyer,
			creator = EXCLUDED.creator, amount_e8s = EXCLUDED.amount_e8s,
			paid_at = EXCLUDED.paid_at, transaction_hash = EXCLUDED.transaction_hash`

	_, err := db.Exec(ctx, query,
		p.ID, p.ContentID, string(p.Buyer), string(p.Creator),
		formatUint(p.AmountE8s), p.Timestamp, p.TransactionHash)
	if err != nil {
		return handlePostgresError("upsert payment", err)
	}
	return nil
}

func scanPayment(row pgx.Row) (ledger.PaymentRecord, error) {
	var p ledger.PaymentRecord
	var buyer, creator, amount string
	err := row.Scan(&p.ID, &p.ContentID, &buyer, &creator, &amount, &p.Timestamp, &p.TransactionHash)
	if err != nil {
		return p, err
	}

	p.Buyer = ledger.Identity(buyer)
	p.Creator = ledger.Identity(creator)
	p.AmountE8s, err = parseUint(amount)
	return p, err
}

func (t *paymentTable) Get(ctx context.Context, key string) (ledger.PaymentRecord, bool, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_records WHERE id = $1`

	p, err := scanPayment(t.db.QueryRow(ctx, query, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.PaymentRecord{}, false, nil
	}
	if err != nil {
		return ledger.PaymentRecord{}, false, handlePostgresError("get payment", err)
	}
	return p, true, nil
}

func (t *paymentTable) Put(ctx context.Context, key string, value ledger.PaymentRecord) error {
	value.ID = key
	return upsertPayment(ctx, t.db, value)
}

func (t *paymentTable) Iterate(ctx context.Context, fn func(key string, value ledger.PaymentRecord) bool) error {
	query := `SELECT ` + paymentColumns + ` FROM payment_records ORDER BY id COLLATE "C"`

	rows, err := t.db.Query(ctx, query)
	if err != nil {
		return handlePostgresError("list payments", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return handlePostgresError("scan payment", err)
		}
		if !fn(p.ID, p) {
			return nil
		}
	}
	return rows.Err()
}

func (t *paymentTable) Len(ctx context.Context) (int, error) {
	var n int
	if err := t.db.QueryRow(ctx, `SELECT COUNT(*) FROM payment_records`).Scan(&n); err != nil {
		return 0, handlePostgresError("count payments", err)
	}
	return n, nil
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func parseUint(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: numeric %q", kv.ErrCorruptRecord, s)
	}
	return v, nil
}
