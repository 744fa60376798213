package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/coursegraph-backend/internal/platform/logger"
)

const (
	defaultRedisPrefix = "coursegraph.events"
	redisPublishWait   = 2 * time.Second
)

type RedisConfig struct {
	Addr string
	// Channel prefixes the per-topic pub/sub channels: "<Channel>:catalog", "<Channel>:job".
	Channel string
}

type redisBus struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
}

// NewRedisBus connects and pings Redis; events of each topic travel on their own channel.
func NewRedisBus(ctx context.Context, log *logger.Logger, cfg RedisConfig) (Bus, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("redis event bus: missing address")
	}
	prefix := strings.TrimSpace(cfg.Channel)
	if prefix == "" {
		prefix = defaultRedisPrefix
	}

	rdb := goredis.NewClient(&goredis.Options{Addr: addr, DialTimeout: 5 * time.Second})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &redisBus{log: log.With("component", "redis_bus", "prefix", prefix), rdb: rdb, prefix: prefix}, nil
}

func (b *redisBus) channelFor(eventType string) string {
	return b.prefix + ":" + Topic(eventType)
}

func (b *redisBus) Publish(ctx context.Context, ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Type, err)
	}
	ctx, cancel := context.WithTimeout(ctx, redisPublishWait)
	defer cancel()
	if err := b.rdb.Publish(ctx, b.channelFor(ev.Type), raw).Err(); err != nil {
		return fmt.Errorf("publish %s event: %w", ev.Type, err)
	}
	return nil
}

// StartForwarder pattern-subscribes to every topic under the prefix and hands decoded
// events to onMsg until ctx ends.
func (b *redisBus) StartForwarder(ctx context.Context, onMsg func(ev Event)) error {
	if onMsg == nil {
		return fmt.Errorf("redis event bus: nil handler")
	}
	sub := b.rdb.PSubscribe(ctx, b.prefix+":*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis psubscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					b.log.Warn("dropping undecodable event", "channel", m.Channel, "error", err)
					continue
				}
				onMsg(ev)
			}
		}
	}()
	return nil
}

func (b *redisBus) Close() error {
	return b.rdb.Close()
}
