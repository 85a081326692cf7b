package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	domainoutbox "eboto/internal/domain/outbox"
	"eboto/internal/events"
	"eboto/internal/repository/memstore"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu       sync.Mutex
	channels []string
	payloads [][]byte
	fail     error
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.channels = append(p.channels, channel)
	p.payloads = append(p.payloads, payload)
	return nil
}

func enqueue(t *testing.T, store *memstore.Store, eventType, aggregateType string, aggregateID uuid.UUID) {
	t.Helper()
	e, err := domainoutbox.New(eventType, aggregateType, aggregateID, map[string]string{"k": "v"}, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Outbox().Create(context.Background(), e))
}

func TestProcessBatchRoutesByEventType(t *testing.T) {
	store := memstore.New()
	electionID := uuid.New()
	enqueue(t, store, events.EventTypeTallyUpdated, events.AggregateElection, electionID)
	enqueue(t, store, events.EventTypeElectionStarted, events.AggregateElection, electionID)
	enqueue(t, store, "system.unknown", "system", uuid.New())

	pub := &recordingPublisher{}
	p := NewProcessor(store.Outbox(), pub, 10, time.Second, 3)

	delivered := p.ProcessBatch(context.Background())
	assert.Equal(t, 3, delivered)
	assert.ElementsMatch(t, []string{
		events.TallyChannel(electionID),
		events.ChannelNotificationsEmail,
		events.ChannelSystemOutbox,
	}, pub.channels)

	var env events.Envelope
	require.NoError(t, json.Unmarshal(pub.payloads[0], &env))
	assert.NotEmpty(t, env.EventType)
	assert.JSONEq(t, `{"k":"v"}`, string(env.Payload))

	pending, err := store.Outbox().GetPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestProcessBatchRetriesThenFails(t *testing.T) {
	store := memstore.New()
	enqueue(t, store, events.EventTypeBallotCast, events.AggregateBallot, uuid.New())

	pub := &recordingPublisher{fail: errors.New("redis down")}
	p := NewProcessor(store.Outbox(), pub, 10, time.Second, 2)
	ctx := context.Background()

	assert.Zero(t, p.ProcessBatch(ctx))
	assert.Zero(t, p.ProcessBatch(ctx))

	pending, err := store.Outbox().GetPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].RetryCount)

	p.ProcessBatch(ctx)
	pending, err = store.Outbox().GetPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
