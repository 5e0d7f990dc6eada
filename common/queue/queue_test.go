package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efarmer/subsidy/common/logger"
)

func TestMemoryQueue_PublishSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewMemoryQueue(logger.NewNop())
	defer q.Close()

	got := make(chan string, 1)
	require.NoError(t, q.Subscribe(ctx, "t", func(_ context.Context, key string, value []byte) error {
		got <- key + "=" + string(value)
		return nil
	}))

	require.NoError(t, q.Publish(ctx, "t", "k", []byte("v")))

	select {
	case msg := <-got:
		assert.Equal(t, "k=v", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestMemoryQueue_Closed(t *testing.T) {
	q := NewMemoryQueue(logger.NewNop())
	require.NoError(t, q.Close())
	require.NoError(t, q.Close())

	err := q.Publish(context.Background(), "t", "k", nil)
	assert.True(t, errors.Is(err, ErrClosed))
}

func TestPublisher_RoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewMemoryQueue(logger.NewNop())
	defer q.Close()
	p := NewPublisher(q, "subsidy")
	assert.Equal(t, "subsidy.case.flagged", p.Topic(TopicCaseFlagged))

	events := make(chan Event, 1)
	require.NoError(t, p.Subscribe(ctx, TopicCaseFlagged, func(_ context.Context, e Event) error {
		events <- e
		return nil
	}))

	require.NoError(t, p.Publish(ctx, TopicCaseFlagged, "EFN-A", map[string]string{"caseId": "CASE-1"}))

	select {
	case e := <-events:
		assert.Equal(t, TopicCaseFlagged, e.Type)
		assert.Equal(t, "EFN-A", e.FarmerID)
		var payload map[string]string
		require.NoError(t, json.Unmarshal(e.Payload, &payload))
		assert.Equal(t, "CASE-1", payload["caseId"])
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}
