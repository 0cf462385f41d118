package dirsource_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalmas/kalmas-net/internal/content"
	"github.com/kalmas/kalmas-net/internal/content/dirsource"
)

func writeFile(t *testing.T, root, rel, body string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o750))
	require.NoError(t, os.WriteFile(full, []byte(body), 0o600))
}

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		f, err := dirsource.New(dirsource.Config{RootDir: t.TempDir()})
		require.NoError(t, err)
		assert.NotNil(t, f)
	})
	t.Run("MissingRootDir", func(t *testing.T) {
		_, err := dirsource.New(dirsource.Config{})
		assert.Error(t, err)
	})
	t.Run("RootIsAFile", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "file.txt", "x")
		_, err := dirsource.New(dirsource.Config{RootDir: filepath.Join(root, "file.txt")})
		assert.Error(t, err)
	})
}

func TestFetch(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, content.TOCPath, `{"content":[{"slug":"a"}]}`)
	f, err := dirsource.New(dirsource.Config{RootDir: root})
	require.NoError(t, err)

	data, err := f.Fetch(context.Background(), content.TOCPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":[{"slug":"a"}]}`, string(data))

	data, err = f.Fetch(context.Background(), "/"+content.TOCPath)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	_, err = f.Fetch(context.Background(), content.ProfilePath)
	require.ErrorIs(t, err, content.ErrNotFound)

	_, err = f.Fetch(context.Background(), "../etc/passwd")
	require.Error(t, err)
	assert.NotErrorIs(t, err, content.ErrNotFound)
}

func TestFetchCanceledContext(t *testing.T) {
	t.Parallel()

	f, err := dirsource.New(dirsource.Config{RootDir: t.TempDir()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.Fetch(ctx, content.TOCPath)
	require.ErrorIs(t, err, context.Canceled)
}
