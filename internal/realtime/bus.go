package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is used when no bus channel is configured.
const DefaultChannel = "devconnect:realtime"

// busMessage is one broadcast crossing instances. An empty Room means every
// session.
type busMessage struct {
	Room    string          `json:"room,omitempty"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// RedisBus is a Broadcaster that publishes to a Redis channel so that every
// instance, including this one, delivers the event to its own sessions.
type RedisBus struct {
	rdb     *redis.Client
	channel string
	log     *slog.Logger
}

func NewRedisBus(rdb *redis.Client, channel string, log *slog.Logger) *RedisBus {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBus{rdb: rdb, channel: channel, log: log.With("component", "realtime-bus")}
}

func (b *RedisBus) ToRoom(ctx context.Context, room, event string, payload any) error {
	return b.publish(ctx, busMessage{Room: room, Event: event}, payload)
}

func (b *RedisBus) ToAll(ctx context.Context, event string, payload any) error {
	return b.publish(ctx, busMessage{Event: event}, payload)
}

func (b *RedisBus) publish(ctx context.Context, msg busMessage, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", msg.Event, err)
	}
	msg.Payload = raw

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, body).Err()
}

// Run subscribes to the channel and replays every message into local. It
// returns once the subscription is live; forwarding stops with ctx.
func (b *RedisBus) Run(ctx context.Context, local Broadcaster) error {
	sub := b.rdb.Subscribe(ctx, b.channel)

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				var msg busMessage
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					b.log.Warn("bad realtime bus payload", "err", err)
					continue
				}
				if err := b.forward(ctx, local, msg); err != nil {
					b.log.Warn("realtime bus forward failed", "event", msg.Event, "err", err)
				}
			}
		}
	}()
	return nil
}

func (b *RedisBus) forward(ctx context.Context, local Broadcaster, msg busMessage) error {
	if msg.Room == "" {
		return local.ToAll(ctx, msg.Event, msg.Payload)
	}
	return local.ToRoom(ctx, msg.Room, msg.Event, msg.Payload)
}
