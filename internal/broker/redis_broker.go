package broker

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// historyLimit bounds the ring buffer, mirroring cron_node.go's
// LTrim(0, 99) 100-entry retention window.
const historyLimit = 100

// RedisBroker stores each task's fire history in a Redis list keyed
// "streamlet:executions:<task>", trimmed to historyLimit on every push,
// generalizing cron_node.go's "cron:executions:<job>" convention from
// one flow-runner job to one pipeline task.
type RedisBroker struct {
	client *redis.Client
}

// NewRedisBroker wraps an already-constructed client so tests can
// point it at a miniredis instance instead of a real server.
func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

func key(taskName string) string {
	return fmt.Sprintf("streamlet:executions:%s", taskName)
}

func (b *RedisBroker) Enqueue(ctx context.Context, rec FireRecord) error {
	payload, err := encode(rec)
	if err != nil {
		return fmt.Errorf("broker: encode failed: %w", err)
	}
	k := key(rec.TaskName)
	if err := b.client.LPush(ctx, k, payload).Err(); err != nil {
		return fmt.Errorf("broker: lpush failed: %w", err)
	}
	return b.client.LTrim(ctx, k, 0, historyLimit-1).Err()
}

func (b *RedisBroker) Recent(ctx context.Context, taskName string, limit int) ([]FireRecord, error) {
	if limit <= 0 || limit > historyLimit {
		limit = historyLimit
	}
	raw, err := b.client.LRange(ctx, key(taskName), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("broker: lrange failed: %w", err)
	}

	out := make([]FireRecord, 0, len(raw))
	for _, s := range raw {
		rec, err := decode(s)
		if err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}
