package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"minisocial/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "uploads")
	s := NewLocalStorage(dir)
	require.NoError(t, s.EnsureBucket(ctx))

	payload := []byte("not really a webp")
	require.NoError(t, s.Put(ctx, "media/a.webp", bytes.NewReader(payload), int64(len(payload)), "image/webp"))

	_, err := os.Stat(filepath.Join(dir, "media", "a.webp"))
	require.NoError(t, err)

	rc, err := s.Get(ctx, "media/a.webp")
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, payload, got)

	require.NoError(t, s.Delete(ctx, "media/a.webp"))
	require.NoError(t, s.Delete(ctx, "media/a.webp"), "deleting twice is fine")
	assert.Equal(t, dir, s.Bucket())
}

func TestLocalStorage_RejectsEscapingKeys(t *testing.T) {
	s := NewLocalStorage(t.TempDir())
	for _, key := range []string{"../etc/passwd", "media/../../x", ""} {
		err := s.Put(context.Background(), key, bytes.NewReader(nil), 0, "")
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestNew_SelectsBackend(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "media-root")
	backend, err := New(context.Background(), &config.Config{MediaBackend: "local", MediaUploadDir: dir})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, backend)

	_, err = os.Stat(dir)
	assert.NoError(t, err)

	_, err = New(context.Background(), &config.Config{MediaBackend: "minio"})
	assert.ErrorContains(t, err, "minio endpoint is required")

	_, err = New(context.Background(), &config.Config{MediaBackend: "gcs"})
	assert.ErrorContains(t, err, "gcs bucket is required")
}

func TestNewMinioClient_Validation(t *testing.T) {
	_, err := NewMinioClient(MinioConfig{Endpoint: "localhost:9000"})
	assert.ErrorContains(t, err, "access key")

	c, err := NewMinioClient(MinioConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "media"})
	require.NoError(t, err)
	assert.Equal(t, "media", c.Bucket())
}
