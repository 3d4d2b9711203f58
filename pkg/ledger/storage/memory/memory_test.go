package memory

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-ledger/pkg/ledger"
)

func TestBackend_UploadDownload(t *testing.T) {
	backend := New()
	ctx := context.Background()

	require.NoError(t, backend.Upload(ctx, "content/c1", bytes.NewReader([]byte("hello world"))))

	rc, err := backend.Download(ctx, "content/c1")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
	assert.Equal(t, 1, backend.Len())
}

func TestBackend_UploadReplaces(t *testing.T) {
	backend := New()
	ctx := context.Background()

	require.NoError(t, backend.Upload(ctx, "k", bytes.NewReader([]byte("first"))))
	require.NoError(t, backend.Upload(ctx, "k", bytes.NewReader([]byte("second"))))

	rc, err := backend.Download(ctx, "k")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "second", string(data))
	assert.Equal(t, 1, backend.Len())
}

func TestBackend_DownloadMissing(t *testing.T) {
	backend := New()

	_, err := backend.Download(context.Background(), "missing")
	assert.ErrorIs(t, err, ledger.ErrBlobNotFound)
}

func TestBackend_NoDownloadURL(t *testing.T) {
	backend := New()

	_, err := backend.GetDownloadURL(context.Background(), "content/c1", "c1")
	assert.ErrorIs(t, err, ledger.ErrDirectAccessRequired)
}
