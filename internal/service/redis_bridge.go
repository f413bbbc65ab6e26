package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/adrianoneco/app-chatapp/internal/logger"
	"github.com/adrianoneco/app-chatapp/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	realtimeChannel = "chatapp:realtime"
	// publishTimeout bounds the Redis round trip on the request path. The
	// client needs ContextTimeoutEnabled for it to apply.
	publishTimeout = 500 * time.Millisecond
)

// RedisBridge relays realtime events between server instances through a
// Redis pub/sub channel. Local delivery goes straight to the hub; events
// from other instances are replayed into it.
type RedisBridge struct {
	rdb    *redis.Client
	hub    *WSHub
	origin string
}

type bridgeMessage struct {
	Origin   string         `json:"origin"`
	Envelope model.Envelope `json:"envelope"`
}

func NewRedisBridge(rdb *redis.Client, hub *WSHub) *RedisBridge {
	return &RedisBridge{rdb: rdb, hub: hub, origin: uuid.NewString()}
}

func (b *RedisBridge) Publish(env *model.Envelope) {
	b.hub.Publish(env)

	data, err := json.Marshal(bridgeMessage{Origin: b.origin, Envelope: *env})
	if err != nil {
		logger.Log.Error("redis bridge marshal", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := b.rdb.Publish(ctx, realtimeChannel, data).Err(); err != nil {
		logger.Log.Warn("redis bridge publish failed", zap.String("type", env.Event.Type), zap.Error(err))
	}
}

// Run consumes events published by other instances until ctx is cancelled.
func (b *RedisBridge) Run(ctx context.Context) {
	sub := b.rdb.Subscribe(ctx, realtimeChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var bm bridgeMessage
			if err := json.Unmarshal([]byte(msg.Payload), &bm); err != nil {
				logger.Log.Warn("redis bridge decode", zap.Error(err))
				continue
			}
			if bm.Origin == b.origin {
				continue
			}
			b.hub.Publish(&bm.Envelope)
		}
	}
}
