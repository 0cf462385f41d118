package pubsub_test

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	gcppublisher "github.com/kalmas/kalmas-net/internal/publisher/pubsub"
)

func newClient(t *testing.T) (*pubsub.Client, *pstest.Server) {
	t.Helper()
	ctx := context.Background()

	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client, err := pubsub.NewClient(ctx, "project-id", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, srv
}

func TestPublisherPublishesJSON(t *testing.T) {
	ctx := context.Background()
	client, srv := newClient(t)

	_, err := client.CreateTopic(ctx, "snapshots")
	require.NoError(t, err)

	pub, err := gcppublisher.New(client)
	require.NoError(t, err)
	defer pub.Stop()

	id, err := pub.Publish(ctx, "snapshots", map[string]any{"run_id": "run-1", "failed": 0})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	var got map[string]any
	require.NoError(t, json.Unmarshal(msgs[0].Data, &got))
	assert.Equal(t, "run-1", got["run_id"])
	assert.Equal(t, "application/json", msgs[0].Attributes["content-type"])
}

func TestPublisherMissingTopic(t *testing.T) {
	client, _ := newClient(t)
	pub, err := gcppublisher.New(client)
	require.NoError(t, err)
	defer pub.Stop()

	_, err = pub.Publish(context.Background(), "absent", map[string]string{"k": "v"})
	assert.Error(t, err)
}

func TestPublisherValidation(t *testing.T) {
	_, err := gcppublisher.New(nil)
	require.Error(t, err)

	client, _ := newClient(t)
	pub, err := gcppublisher.New(client)
	require.NoError(t, err)

	_, err = pub.Publish(context.Background(), "", "x")
	assert.Error(t, err)

	_, err = pub.Publish(context.Background(), "t", make(chan int))
	assert.Error(t, err)
}
