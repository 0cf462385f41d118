package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisherRecordsJSON(t *testing.T) {
	t.Parallel()

	pub := New()
	id, err := pub.Publish(context.Background(), "snapshots", map[string]int{"failed": 1})
	require.NoError(t, err)
	assert.Equal(t, "memory-1", id)

	id, err = pub.Publish(context.Background(), "other", "done")
	require.NoError(t, err)
	assert.Equal(t, "memory-2", id)

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "snapshots", msgs[0].Topic)
	assert.JSONEq(t, `{"failed":1}`, string(msgs[0].Payload))
	assert.JSONEq(t, `"done"`, string(msgs[1].Payload))

	msgs[0].Topic = "changed"
	assert.Equal(t, "snapshots", pub.Messages()[0].Topic)
}

func TestPublisherRejectsUnencodable(t *testing.T) {
	t.Parallel()

	pub := New()
	_, err := pub.Publish(context.Background(), "t", func() {})
	require.Error(t, err)
	assert.Empty(t, pub.Messages())
}
