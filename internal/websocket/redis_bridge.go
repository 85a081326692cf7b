package websocket

import (
	"context"

	"eboto/internal/events"
)

// RedisBridge forwards tally notifications published by the outbox
// processor on any instance to the viewers connected to this one.
type RedisBridge struct {
	subscriber events.Subscriber
	hub        *Hub
}

func NewRedisBridge(subscriber events.Subscriber, hub *Hub) *RedisBridge {
	return &RedisBridge{subscriber: subscriber, hub: hub}
}

func (b *RedisBridge) Run(ctx context.Context) error {
	return b.subscriber.Subscribe(ctx, []string{events.ChannelPatternElection}, func(channel string, payload []byte) {
		b.hub.Broadcast(channel, payload)
	})
}
