package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportObjectKey(t *testing.T) {
	now := time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "exports/2026/02/auth0_abc/e1.pdf", ExportObjectKey("auth0|abc", "e1", ".pdf", now))
	assert.Equal(t, "exports/2026/02/_/e1.md", ExportObjectKey("", "e1", ".md", now))
}

func TestLocalStore(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir, "/exports/")

	res, err := store.Put(context.Background(), "../exports/2026/02/u/e1.html", []byte("<h1>x</h1>"), "text/html")
	require.NoError(t, err)
	assert.Equal(t, "exports/2026/02/u/e1.html", res.ObjectKey)
	assert.Equal(t, "/exports/exports/2026/02/u/e1.html", res.URL)
	assert.Equal(t, int64(10), res.Size)

	data, err := os.ReadFile(filepath.Join(dir, "exports", "2026", "02", "u", "e1.html"))
	require.NoError(t, err)
	assert.Equal(t, "<h1>x</h1>", string(data))

	require.NoError(t, store.Delete(context.Background(), res.ObjectKey))
	require.NoError(t, store.Delete(context.Background(), res.ObjectKey))
}

func TestLoadConfig_RequiresCredentialsWhenEnabled(t *testing.T) {
	t.Setenv("S3_ENABLED", "true")
	t.Setenv("S3_ACCESS_KEY_ID", "")
	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("S3_ENABLED", "false")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.False(t, cfg.IsEnabled())

	store, err := New(cfg)
	require.NoError(t, err)
	_, ok := store.(*LocalStore)
	assert.True(t, ok)
}
