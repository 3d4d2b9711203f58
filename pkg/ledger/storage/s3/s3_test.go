package s3

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-ledger/pkg/ledger"
)

func TestS3Backend_Configuration(t *testing.T) {
	t.Run("EmptyBucket", func(t *testing.T) {
		_, err := New(Config{Region: "us-east-1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket name is required")
	})

	t.Run("Defaults", func(t *testing.T) {
		backend, err := New(Config{
			Bucket:          "test-bucket",
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
		})
		require.NoError(t, err)
		assert.Equal(t, "us-east-1", backend.config.Region)
		assert.Equal(t, time.Hour, backend.presignDuration)
	})

	t.Run("CustomPresignDuration", func(t *testing.T) {
		backend, err := New(Config{
			Bucket:          "test-bucket",
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
			PresignDuration: 7200,
		})
		require.NoError(t, err)
		assert.Equal(t, 7200*time.Second, backend.presignDuration)
	})

	t.Run("InvalidSSEAlgorithm", func(t *testing.T) {
		_, err := New(Config{
			Bucket:       "test-bucket",
			EnableSSE:    true,
			SSEAlgorithm: "rot13",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid SSE algorithm")
	})
}

func TestS3Backend_PresignedDownloadURL(t *testing.T) {
	backend, err := New(Config{
		Bucket:          "test-bucket",
		Region:          "us-east-1",
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
		Endpoint:        "http://localhost:9000",
		UsePathStyle:    true,
		PresignDuration: 60,
	})
	require.NoError(t, err)

	url, err := backend.GetDownloadURL(context.Background(), ledger.ObjectKey("c1"), "c1")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(url, "http://localhost:9000/test-bucket/content/c1?"), url)
	assert.Contains(t, url, "X-Amz-Signature=")
	assert.Contains(t, url, "X-Amz-Expires=60")
	assert.Contains(t, url, "response-content-disposition=")
}

// TestS3Backend_MinIO runs against a live S3-compatible endpoint when
// S3_TEST_ENDPOINT is set.
func TestS3Backend_MinIO(t *testing.T) {
	endpoint := os.Getenv("S3_TEST_ENDPOINT")
	if endpoint == "" {
		t.Skip("S3_TEST_ENDPOINT not set")
	}

	backend, err := New(Config{
		Bucket:                 "ledger-test",
		Region:                 "us-east-1",
		AccessKeyID:            os.Getenv("S3_TEST_ACCESS_KEY_ID"),
		SecretAccessKey:        os.Getenv("S3_TEST_SECRET_ACCESS_KEY"),
		Endpoint:               endpoint,
		UsePathStyle:           true,
		CreateBucketIfNotExist: true,
	})
	require.NoError(t, err)

	ctx := context.Background()
	key := ledger.ObjectKey("minio-test")
	require.NoError(t, backend.Upload(ctx, key, bytes.NewReader([]byte("hello s3"))))

	rc, err := backend.Download(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello s3", string(data))

	_, err = backend.Download(ctx, ledger.ObjectKey("does-not-exist"))
	assert.ErrorIs(t, err, ledger.ErrBlobNotFound)
}
