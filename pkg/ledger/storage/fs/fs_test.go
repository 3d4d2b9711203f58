package fs

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-ledger/pkg/ledger"
)

func TestFSBackend_BasicOps(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: tmp})
	require.NoError(t, err)

	ctx := context.Background()
	key := ledger.ObjectKey("c1")

	require.NoError(t, backend.Upload(ctx, key, bytes.NewReader([]byte("hello fs"))))

	_, err = os.Stat(filepath.Join(tmp, "content", "c1"))
	require.NoError(t, err)

	rc, err := backend.Download(ctx, key)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "hello fs", string(got))

	// no temporary files are left behind
	entries, err := os.ReadDir(filepath.Join(tmp, "content"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFSBackend_DownloadMissing(t *testing.T) {
	backend, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	_, err = backend.Download(context.Background(), "content/missing")
	assert.ErrorIs(t, err, ledger.ErrBlobNotFound)
}

func TestFSBackend_RejectsEscapingKeys(t *testing.T) {
	backend, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{"../outside", "content/../../outside", "", "."} {
		t.Run(key, func(t *testing.T) {
			err := backend.Upload(ctx, key, bytes.NewReader([]byte("x")))
			assert.ErrorIs(t, err, ErrInvalidKey)

			_, err = backend.Download(ctx, key)
			assert.ErrorIs(t, err, ErrInvalidKey)
		})
	}
}

func TestFSBackend_EscapedIDStaysInside(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: tmp})
	require.NoError(t, err)

	key := ledger.ObjectKey("../../etc/passwd")
	require.NoError(t, backend.Upload(context.Background(), key, bytes.NewReader([]byte("x"))))

	entries, err := os.ReadDir(filepath.Join(tmp, "content"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFSBackend_DownloadURL(t *testing.T) {
	ctx := context.Background()

	backend, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	_, err = backend.GetDownloadURL(ctx, "content/c1", "")
	assert.ErrorIs(t, err, ledger.ErrDirectAccessRequired)

	backend, err = New(Config{BaseDir: t.TempDir(), URLPrefix: "https://files.example.com/"})
	require.NoError(t, err)

	url, err := backend.GetDownloadURL(ctx, "content/c1", "")
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.com/download/content/c1", url)

	url, err = backend.GetDownloadURL(ctx, "content/c1", "my file")
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.com/download/content/c1?filename=my+file", url)
}
