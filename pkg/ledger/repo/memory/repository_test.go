package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-ledger/pkg/ledger"
	"github.com/tendant/content-ledger/pkg/ledger/repo/memory"
	"github.com/tendant/content-ledger/pkg/ledger/repo/repotest"
)

func TestMemoryRepository(t *testing.T) {
	repotest.Run(t, repotest.Harness{
		Open: func(t *testing.T) ledger.Repository {
			return memory.New()
		},
	})
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	content := repotest.Content("c1", "creator-a")
	require.NoError(t, repo.Contents().Put(ctx, content.ID, content))

	got, ok, err := repo.Contents().Get(ctx, "c1")
	require.NoError(t, err)
	require.True(t, ok)
	got.TotalSales = 99

	again, _, err := repo.Contents().Get(ctx, "c1")
	require.NoError(t, err)
	assert.EqualValues(t, 0, again.TotalSales)
}

func TestMemoryRepository_IterateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	repo := memory.New()
	content := repotest.Content("c1", "creator-a")
	require.NoError(t, repo.Contents().Put(ctx, content.ID, content))

	cancel()
	err := repo.Contents().Iterate(ctx, func(string, ledger.ContentRegistration) bool { return true })
	assert.ErrorIs(t, err, context.Canceled)
}
