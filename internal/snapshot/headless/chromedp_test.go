package headless

import (
	"context"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(Config{MaxParallel: -1})
	require.Error(t, err)
	_, err = New(Config{Settle: -time.Second})
	require.Error(t, err)

	r, err := New(Config{MaxParallel: 2, Settle: time.Second})
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, 2, cap(r.limiter))
}

func TestNavTimeoutDefault(t *testing.T) {
	t.Parallel()

	r := &Renderer{}
	assert.Equal(t, 45*time.Second, r.navTimeout())
	r.cfg.NavigationTimeout = time.Second
	assert.Equal(t, time.Second, r.navTimeout())
}

func TestAcquireHonoursContext(t *testing.T) {
	t.Parallel()

	r := &Renderer{limiter: make(chan struct{}, 1)}
	require.NoError(t, r.acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, r.acquire(ctx), context.Canceled)

	r.release()
	require.NoError(t, r.acquire(context.Background()))
}

func TestDocumentStatusKeepsFirstDocument(t *testing.T) {
	t.Parallel()

	d := &documentStatus{}
	d.captureEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeScript,
		Response: &network.Response{Status: 500},
	})
	assert.Equal(t, 0, d.get())

	d.captureEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeDocument,
		Response: &network.Response{Status: 200},
	})
	d.captureEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeDocument,
		Response: &network.Response{Status: 404},
	})
	d.captureEvent("not an event")
	assert.Equal(t, 200, d.get())
}
