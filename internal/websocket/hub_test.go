package websocket

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func TestHubJoinBroadcastLeave(t *testing.T) {
	hub := startHub(t)
	a := NewClient(nil, "e1")
	b := NewClient(nil, "e2")

	hub.Join(a, "channel:election:e1:tally")
	hub.Join(b, "channel:election:e2:tally")
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	hub.Broadcast("channel:election:e1:tally", []byte("refetch"))
	select {
	case msg := <-a.Send:
		assert.Equal(t, "refetch", string(msg))
	case <-time.After(time.Second):
		t.Fatal("expected a message for the subscribed client")
	}
	assert.Len(t, b.Send, 0)

	hub.Leave(a)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, hub.SubscriberCount("channel:election:e1:tally"))
	_, open := <-a.Send
	assert.False(t, open)

	hub.Leave(a)
	hub.Broadcast("channel:election:e1:tally", []byte("ignored"))
}

func TestHubSubscribeAfterLeaveIsIgnored(t *testing.T) {
	hub := startHub(t)
	c := NewClient(nil, "e1")

	hub.Join(c)
	hub.Leave(c)
	hub.Subscribe(c, "channel:election:e1:tally")

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, hub.SubscriberCount("channel:election:e1:tally"))
}

func TestHubConcurrentBroadcast(t *testing.T) {
	hub := startHub(t)
	const viewers = 20
	clients := make([]*Client, viewers)
	for i := range clients {
		clients[i] = NewClient(nil, "e1")
		hub.Join(clients[i], "channel:election:e1:tally")
	}
	require.Eventually(t, func() bool { return hub.SubscriberCount("channel:election:e1:tally") == viewers }, time.Second, 5*time.Millisecond)

	var wg sync.WaitGroup
	var sent int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Broadcast("channel:election:e1:tally", []byte("x"))
			atomic.AddInt32(&sent, 1)
		}()
	}
	for _, c := range clients {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			hub.Leave(c)
		}(c)
	}
	wg.Wait()

	assert.Equal(t, int32(10), sent)
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}
