package catalog

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/eser/ajan/logfx"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, batchSize int) *Service {
	t.Helper()

	logger, err := logfx.NewLoggerAsDefault(io.Discard, &logfx.Config{Level: "ERROR"})
	require.NoError(t, err)

	config := &Config{SupportedFormats: ".jpg,.jpeg,.png", BatchSize: batchSize}

	return NewService(config, logger)
}

func writeFile(t *testing.T, path string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("fake image bytes"), 0o644))
}

func TestIsImageFile(t *testing.T) {
	t.Parallel()

	service := newTestService(t, 100)

	require.True(t, service.IsImageFile("logo.jpg"))
	require.True(t, service.IsImageFile("logo.jpeg"))
	require.True(t, service.IsImageFile("LOGO.PNG"))
	require.False(t, service.IsImageFile("logo.gif"))
	require.False(t, service.IsImageFile("notes.txt"))
	require.False(t, service.IsImageFile("logo"))
}

func TestDiscover(t *testing.T) {
	t.Parallel()

	service := newTestService(t, 100)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.jpg"))
	writeFile(t, filepath.Join(dir, "b.jpeg"))
	writeFile(t, filepath.Join(dir, "c.PNG"))
	writeFile(t, filepath.Join(dir, "notes.txt"))
	writeFile(t, filepath.Join(dir, "nested", "d.png"))
	writeFile(t, filepath.Join(dir, "nested", "skip.gif"))

	refs, err := service.Discover(dir)
	require.NoError(t, err)
	require.Len(t, refs, 4)

	names := make([]string, len(refs))
	for i, ref := range refs {
		names[i] = ref.DisplayName
	}

	require.Equal(t, []string{"a.jpg", "b.jpeg", "c.PNG", "d.png"}, names)

	for _, ref := range refs {
		require.FileExists(t, ref.LocalPath)
	}
}

func TestDiscoverMissingDirectory(t *testing.T) {
	t.Parallel()

	service := newTestService(t, 100)

	_, err := service.Discover(filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)
}

func TestBatches(t *testing.T) {
	t.Parallel()

	service := newTestService(t, 2)

	refs := []ImageRef{
		{LocalPath: "a.jpg"},
		{LocalPath: "b.jpg"},
		{LocalPath: "c.jpg"},
		{LocalPath: "d.jpg"},
		{LocalPath: "e.jpg"},
	}

	batches := service.Batches(refs)
	require.Len(t, batches, 3)
	require.Len(t, batches[0], 2)
	require.Len(t, batches[1], 2)
	require.Len(t, batches[2], 1)
	require.Equal(t, "e.jpg", batches[2][0].LocalPath)
}

func TestBatchesMinimumSize(t *testing.T) {
	t.Parallel()

	service := newTestService(t, 0)

	batches := service.Batches([]ImageRef{{LocalPath: "a.jpg"}, {LocalPath: "b.jpg"}})
	require.Len(t, batches, 2)
}

func TestBatchesEmpty(t *testing.T) {
	t.Parallel()

	service := newTestService(t, 10)

	require.Empty(t, service.Batches(nil))
}
