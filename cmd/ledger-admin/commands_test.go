package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/jwtauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-ledger/pkg/ledger"
	"github.com/tendant/content-ledger/pkg/ledger/config"
)

// seedLedger writes a small ledger to a sqlite file and points DATABASE_URL at it
func seedLedger(t *testing.T) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	t.Setenv("DATABASE_URL", "sqlite://"+path)
	t.Setenv("ENVIRONMENT", "testing")
	t.Setenv("JWT_SECRET", "admin-test-secret")

	cfg, err := config.Load(config.WithDatabase(config.DatabaseSQLite, path), config.WithEventLogging(false), config.WithMetrics(false))
	require.NoError(t, err)
	rt, err := cfg.Build(nil)
	require.NoError(t, err)
	defer rt.Close()

	ctx := context.Background()
	for _, c := range []struct {
		id    string
		price uint64
	}{{"c1", 100_000_000}, {"c2", 50_000_000}} {
		_, err := rt.Service.RegisterContent(ctx, ledger.RegisterContentRequest{ID: c.id, Title: "Title " + c.id, PriceE8s: c.price}, "creator-a")
		require.NoError(t, err)
	}
	_, err = rt.Service.RecordPayment(ctx, ledger.RecordPaymentRequest{PaymentID: "p1", ContentID: "c1", AmountE8s: 150_000_000, TransactionHash: "tx1"}, "buyer-b")
	require.NoError(t, err)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestStatsCommand(t *testing.T) {
	seedLedger(t)

	out, err := execute(t, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Contents: 2")
	assert.Contains(t, out, "Payments: 1")

	out, err = execute(t, "stats", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"content_count":2,"payment_count":1}`, out)
}

func TestContentsCommand(t *testing.T) {
	seedLedger(t)

	out, err := execute(t, "contents", "--creator", "creator-a")
	require.NoError(t, err)
	assert.Contains(t, out, "c1")
	assert.Contains(t, out, "c2")
	assert.Contains(t, out, "1.5")
	assert.Contains(t, out, "Total: 2")

	out, err = execute(t, "contents", "c1", "--json")
	require.NoError(t, err)
	var contents []ledger.ContentRegistration
	require.NoError(t, json.Unmarshal([]byte(out), &contents))
	require.Len(t, contents, 1)
	assert.Equal(t, uint64(1), contents[0].TotalSales)

	_, err = execute(t, "contents", "missing")
	assert.ErrorIs(t, err, ledger.ErrContentNotFound)

	_, err = execute(t, "contents")
	assert.Error(t, err)
}

func TestPaymentsCommand(t *testing.T) {
	seedLedger(t)

	out, err := execute(t, "payments", "--buyer", "buyer-b")
	require.NoError(t, err)
	assert.Contains(t, out, "p1")
	assert.Contains(t, out, "Total: 1 payments, 1.5 ICP")

	out, err = execute(t, "payments", "--content", "c2", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)

	_, err = execute(t, "payments", "--buyer", "buyer-b", "--content", "c1")
	assert.Error(t, err)
}

func TestPurchasedCommand(t *testing.T) {
	seedLedger(t)

	out, err := execute(t, "purchased", "--buyer", "buyer-b", "--content", "c1")
	require.NoError(t, err)
	assert.Equal(t, "true", strings.TrimSpace(out))

	out, err = execute(t, "purchased", "--buyer", "creator-a", "--content", "c1", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"purchased":false}`, out)
}

func TestSummaryCommand(t *testing.T) {
	seedLedger(t)

	out, err := execute(t, "summary", "--creator", "creator-a")
	require.NoError(t, err)
	assert.Contains(t, out, "Uploads:  2 (2 active)")
	assert.Contains(t, out, "Earnings: 1.5 ICP")
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("ENVIRONMENT", "testing")
	t.Setenv("JWT_SECRET", "admin-test-secret")

	out, err := execute(t, "token", "--subject", "creator-a")
	require.NoError(t, err)

	token, err := jwtauth.New("HS256", []byte("admin-test-secret"), nil).Decode(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "creator-a", token.Subject())
	assert.False(t, token.Expiration().IsZero())

	_, err = execute(t, "token", "--subject", string(ledger.Anonymous))
	assert.Error(t, err)
}

func TestEnvCommand(t *testing.T) {
	out, err := execute(t, "env")
	require.NoError(t, err)
	assert.Contains(t, out, "DATABASE_URL")
}
