package memory

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlobStorePutAndGet(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	payload := []byte("<html>")
	uri, err := store.PutObject(context.Background(), "blog/a.html", "text/html", bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, "memory://blog/a.html", uri)

	_, err = store.PutObject(context.Background(), "index.html", "text/html", bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, []string{"blog/a.html", "index.html"}, store.Paths())

	obj, ok := store.Get("blog/a.html")
	require.True(t, ok)
	assert.Equal(t, "text/html", obj.ContentType)
	obj.Data[0] = 'X'

	again, _ := store.Get("blog/a.html")
	assert.Equal(t, "<html>", string(again.Data))

	_, ok = store.Get("missing.html")
	assert.False(t, ok)
}

func TestBlobStoreRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := NewBlobStore().PutObject(context.Background(), "", "text/html", bytes.NewReader(nil))
	assert.Error(t, err)
}
