package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// letterEmbedder embeds text as letter frequencies, so texts sharing
// letters are close.
type letterEmbedder struct {
	model string
	calls int
}

func (e *letterEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls++
	v := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	return v, nil
}

func (e *letterEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, _ := e.Embed(ctx, t)
		out[i] = v
	}
	return out, nil
}

func (e *letterEmbedder) Dimensions() int { return 26 }

func (e *letterEmbedder) ModelName() string {
	if e.model == "" {
		return "letters"
	}
	return e.model
}

func (e *letterEmbedder) Ping(context.Context) error { return nil }
func (e *letterEmbedder) Close() error               { return nil }

// setupTestDir creates a temporary data directory for a test database.
func setupTestDir(t *testing.T) (string, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "paperchat-test-*")
	require.NoError(t, err)

	return tempDir, func() {
		assert.NoError(t, os.RemoveAll(tempDir))
	}
}

func setupLedger(t *testing.T, namespace string) (*RecordManager, func()) {
	t.Helper()

	dir, cleanup := setupTestDir(t)
	m := NewRecordManager(filepath.Join(dir, "record_manager_cache.db"), namespace)
	require.NoError(t, m.CreateSchema(context.Background()))

	return m, func() {
		assert.NoError(t, m.Close())
		cleanup()
	}
}
