package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-ledger/pkg/ledger"
	"github.com/tendant/content-ledger/pkg/ledger/repo/repotest"
	"github.com/tendant/content-ledger/pkg/ledger/repo/sqlite"
)

func TestSQLiteRepository(t *testing.T) {
	paths := map[ledger.Repository]string{}

	repotest.Run(t, repotest.Harness{
		Open: func(t *testing.T) ledger.Repository {
			path := filepath.Join(t.TempDir(), "ledger.sqlite")
			repo, err := sqlite.Open(path)
			require.NoError(t, err)
			paths[repo] = path
			return repo
		},
		Reopen: func(t *testing.T, repo ledger.Repository) ledger.Repository {
			path := paths[repo]
			require.NoError(t, repo.Close())
			reopened, err := sqlite.Open(path)
			require.NoError(t, err)
			return reopened
		},
	})
}

func TestSQLiteRepository_OpenIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.sqlite")

	repo, err := sqlite.Open(path)
	require.NoError(t, err)
	content := repotest.Content("c1", "creator-a")
	require.NoError(t, repo.Contents().Put(ctx, content.ID, content))
	require.NoError(t, repo.Close())

	repo, err = sqlite.Open(path)
	require.NoError(t, err)
	defer repo.Close()

	n, err := repo.Contents().Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteRepository_QueryInsideIterate(t *testing.T) {
	ctx := context.Background()
	repo, err := sqlite.Open(filepath.Join(t.TempDir(), "ledger.sqlite"))
	require.NoError(t, err)
	defer repo.Close()

	for _, id := range []string{"a", "b"} {
		c := repotest.Content(id, "creator-a")
		require.NoError(t, repo.Contents().Put(ctx, c.ID, c))
	}

	var seen []string
	err = repo.Contents().Iterate(ctx, func(key string, _ ledger.ContentRegistration) bool {
		_, ok, err := repo.Contents().Get(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok)
		seen = append(seen, key)
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, seen)
}
