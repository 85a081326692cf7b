package websocket

import (
	"context"
	"sync"
)

type opKind int

const (
	opJoin opKind = iota
	opLeave
	opSubscribe
	opUnsubscribe
)

type hubOp struct {
	kind    opKind
	client  *Client
	channel string
}

// Hub fans realtime election events out to the WebSocket viewers
// subscribed to each channel. Membership changes are queued in order and
// applied by Run.
type Hub struct {
	mu sync.RWMutex

	clients  map[string]*Client
	channels map[string]map[*Client]struct{}

	ops chan hubOp
}

func NewHub() *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		channels: make(map[string]map[*Client]struct{}),
		ops:      make(chan hubOp, 1024),
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case op := <-h.ops:
			switch op.kind {
			case opJoin:
				h.addClient(op.client)
			case opLeave:
				h.removeClient(op.client)
			case opSubscribe:
				h.subscribeToChannel(op.client, op.channel)
			case opUnsubscribe:
				h.unsubscribeFromChannel(op.client, op.channel)
			}
		}
	}
}

// Join registers a client together with its initial channels so it never
// exists half-subscribed.
func (h *Hub) Join(client *Client, channels ...string) {
	for _, ch := range channels {
		client.Subscribe(ch)
	}
	h.ops <- hubOp{kind: opJoin, client: client}
}

func (h *Hub) Leave(client *Client) {
	h.ops <- hubOp{kind: opLeave, client: client}
}

func (h *Hub) Subscribe(client *Client, channel string) {
	h.ops <- hubOp{kind: opSubscribe, client: client, channel: channel}
}

func (h *Hub) Unsubscribe(client *Client, channel string) {
	h.ops <- hubOp{kind: opUnsubscribe, client: client, channel: channel}
}

func (h *Hub) Broadcast(channel string, payload []byte) {
	h.mu.RLock()
	for c := range h.channels[channel] {
		c.SendMessage(payload)
	}
	h.mu.RUnlock()
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) SubscriberCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	for _, ch := range client.subscriptions() {
		h.join(client, ch)
	}
}

// removeClient drops the client from every channel before closing Send, so
// Broadcast never writes to a closed channel.
func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	for _, ch := range client.subscriptions() {
		h.leave(client, ch)
	}
	delete(h.clients, client.ID)
	close(client.Send)
}

func (h *Hub) subscribeToChannel(client *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	client.Subscribe(channel)
	h.join(client, channel)
}

func (h *Hub) unsubscribeFromChannel(client *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leave(client, channel)
	client.Unsubscribe(channel)
}

func (h *Hub) join(client *Client, channel string) {
	if _, ok := h.channels[channel]; !ok {
		h.channels[channel] = make(map[*Client]struct{})
	}
	h.channels[channel][client] = struct{}{}
}

func (h *Hub) leave(client *Client, channel string) {
	if subscribers, ok := h.channels[channel]; ok {
		delete(subscribers, client)
		if len(subscribers) == 0 {
			delete(h.channels, channel)
		}
	}
}
