// Package repotest holds the behavioural checks every ledger.Repository
// implementation is expected to pass.
package repotest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-ledger/pkg/ledger"
)

// Harness describes how to obtain repositories for a backend.
type Harness struct {
	// Open returns an empty repository. The harness closes it.
	Open func(t *testing.T) ledger.Repository

	// Reopen closes repo and opens a new handle over the same storage. Nil
	// for volatile backends.
	Reopen func(t *testing.T, repo ledger.Repository) ledger.Repository
}

// Content returns a content record with deterministic fields
func Content(id string, creator ledger.Identity) ledger.ContentRegistration {
	return ledger.ContentRegistration{
		ID:          id,
		Creator:     creator,
		Title:       "Title " + id,
		Description: "Description " + id,
		ContentHash: "sha256:" + id,
		PriceE8s:    100,
		CreatedAt:   time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC),
		IsActive:    true,
	}
}

// Payment returns a payment record with deterministic fields
func Payment(id, contentID string, buyer, creator ledger.Identity, amount uint64) ledger.PaymentRecord {
	return ledger.PaymentRecord{
		ID:              id,
		ContentID:       contentID,
		Buyer:           buyer,
		Creator:         creator,
		AmountE8s:       amount,
		Timestamp:       time.Date(2024, 5, 6, 8, 0, 0, 0, time.UTC),
		TransactionHash: "tx-" + id,
	}
}

// Run executes the repository checks against h.
func Run(t *testing.T, h Harness) {
	ctx := context.Background()

	open := func(t *testing.T) ledger.Repository {
		repo := h.Open(t)
		t.Cleanup(func() { _ = repo.Close() })
		return repo
	}

	t.Run("GetMissing", func(t *testing.T) {
		repo := open(t)

		_, ok, err := repo.Contents().Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)

		_, ok, err = repo.Payments().Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("PutAndGet", func(t *testing.T) {
		repo := open(t)
		content := Content("c1", "creator-a")

		require.NoError(t, repo.Contents().Put(ctx, content.ID, content))

		got, ok, err := repo.Contents().Get(ctx, "c1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, normalizeContent(content), normalizeContent(got))
	})

	t.Run("PutOverwritesWholesale", func(t *testing.T) {
		repo := open(t)
		first := Content("c1", "creator-a")
		first.TotalSales = 4
		first.TotalRevenue = 400
		require.NoError(t, repo.Contents().Put(ctx, first.ID, first))

		second := Content("c1", "creator-b")
		second.Title = "replaced"
		require.NoError(t, repo.Contents().Put(ctx, second.ID, second))

		got, ok, err := repo.Contents().Get(ctx, "c1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, normalizeContent(second), normalizeContent(got))

		n, err := repo.Contents().Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("IterateInKeyOrder", func(t *testing.T) {
		repo := open(t)
		for _, id := range []string{"b", "c", "a"} {
			c := Content(id, "creator-a")
			require.NoError(t, repo.Contents().Put(ctx, c.ID, c))
		}

		var keys []string
		err := repo.Contents().Iterate(ctx, func(key string, value ledger.ContentRegistration) bool {
			assert.Equal(t, key, value.ID)
			keys = append(keys, key)
			return true
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, keys)

		keys = nil
		err = repo.Contents().Iterate(ctx, func(key string, _ ledger.ContentRegistration) bool {
			keys = append(keys, key)
			return false
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, keys)
	})

	t.Run("TablesAreIndependent", func(t *testing.T) {
		repo := open(t)
		content := Content("same-id", "creator-a")
		payment := Payment("same-id", "same-id", "buyer-b", "creator-a", 100)

		require.NoError(t, repo.Contents().Put(ctx, content.ID, content))
		require.NoError(t, repo.Payments().Put(ctx, payment.ID, payment))

		contents, err := repo.Contents().Len(ctx)
		require.NoError(t, err)
		payments, err := repo.Payments().Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, contents)
		assert.Equal(t, 1, payments)

		got, ok, err := repo.Payments().Get(ctx, "same-id")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, normalizePayment(payment), normalizePayment(got))
	})

	t.Run("CommitPayment", func(t *testing.T) {
		repo := open(t)
		content := Content("c1", "creator-a")
		require.NoError(t, repo.Contents().Put(ctx, content.ID, content))

		payment := Payment("p1", "c1", "buyer-b", "creator-a", 150)
		content.TotalSales = 1
		content.TotalRevenue = 150
		require.NoError(t, repo.CommitPayment(ctx, payment, content))

		gotPayment, ok, err := repo.Payments().Get(ctx, "p1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, normalizePayment(payment), normalizePayment(gotPayment))

		gotContent, ok, err := repo.Contents().Get(ctx, "c1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.EqualValues(t, 1, gotContent.TotalSales)
		assert.EqualValues(t, 150, gotContent.TotalRevenue)
	})

	t.Run("ManyRecords", func(t *testing.T) {
		repo := open(t)
		for i := 0; i < 50; i++ {
			p := Payment(fmt.Sprintf("p%03d", i), "c1", "buyer-b", "creator-a", uint64(i))
			require.NoError(t, repo.Payments().Put(ctx, p.ID, p))
		}

		n, err := repo.Payments().Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, 50, n)

		count := 0
		require.NoError(t, repo.Payments().Iterate(ctx, func(string, ledger.PaymentRecord) bool {
			count++
			return true
		}))
		assert.Equal(t, 50, count)
	})

	if h.Reopen == nil {
		return
	}

	t.Run("SurvivesReopen", func(t *testing.T) {
		repo := h.Open(t)
		content := Content("c1", "creator-a")
		require.NoError(t, repo.Contents().Put(ctx, content.ID, content))
		payment := Payment("p1", "c1", "buyer-b", "creator-a", 100)
		content.TotalSales = 1
		content.TotalRevenue = 100
		require.NoError(t, repo.CommitPayment(ctx, payment, content))

		repo = h.Reopen(t, repo)
		t.Cleanup(func() { _ = repo.Close() })

		got, ok, err := repo.Contents().Get(ctx, "c1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, normalizeContent(content), normalizeContent(got))

		gotPayment, ok, err := repo.Payments().Get(ctx, "p1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, normalizePayment(payment), normalizePayment(gotPayment))
	})
}

func normalizeContent(c ledger.ContentRegistration) ledger.ContentRegistration {
	c.CreatedAt = c.CreatedAt.UTC()
	return c
}

func normalizePayment(p ledger.PaymentRecord) ledger.PaymentRecord {
	p.Timestamp = p.Timestamp.UTC()
	return p
}
