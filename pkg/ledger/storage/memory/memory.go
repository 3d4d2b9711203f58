package memory

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/tendant/content-ledger/pkg/ledger"
)

// Backend is an in-memory implementation of the ledger.BlobStore interface
type Backend struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

var _ ledger.BlobStore = (*Backend)(nil)

// New creates a new in-memory storage backend
func New() *Backend {
	return &Backend{
		objects: make(map[string][]byte),
	}
}

// Upload stores the full content of reader, replacing any previous object
func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[objectKey] = data
	return nil
}

// GetDownloadURL returns a URL for downloading content
// In-memory implementation doesn't use URLs
func (b *Backend) GetDownloadURL(ctx context.Context, objectKey string, downloadFilename string) (string, error) {
	return "", ledger.ErrDirectAccessRequired
}

// Download downloads content directly
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, ledger.ErrBlobNotFound
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// Len returns the number of stored objects
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.objects)
}
