package modules

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/streamlet-go/streamlet/internal/errkind"
	"github.com/streamlet-go/streamlet/internal/metric"
	"github.com/streamlet-go/streamlet/internal/registry"
	"github.com/streamlet-go/streamlet/internal/schema"
)

func init() {
	registry.Register(registry.Registration{
		Variant: registry.Output,
		Type:    "redis",
		ConnectionSchema: schema.Object(
			schema.Optional("addr", schema.String(), "localhost:6379"),
			schema.Optional("password", schema.String(), ""),
			schema.Optional("db", schema.Int(), 0),
		),
		ParamsSchema: schema.Object(
			schema.Optional("key_prefix", schema.String(), "streamlet:metric:"),
			schema.Optional("ttl", schema.Duration(), 0*time.Second),
		),
		New: newRedisOutput,
	})
}

// redisOutput writes each metric as a JSON value keyed by task and
// metric name, grounded on cron_node.go's redis.NewClient/Ping setup
// and its "cron:job:*" key-naming convention, generalized to a
// "streamlet:metric:*" prefix for arbitrary metric frames.
type redisOutput struct {
	Base
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

func newRedisOutput(name string, config map[string]interface{}) (registry.Instance, error) {
	addr := stringParam(config, "addr", "localhost:6379")
	password := stringParam(config, "password", "")
	db := intParam(config, "db", 0)

	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	ttl := 0 * time.Second
	if raw, ok := config["ttl"]; ok {
		if d, err := schema.ParseDuration(raw); err == nil {
			ttl = d
		}
	}

	return &redisOutput{
		Base:      NewBase(name),
		client:    client,
		keyPrefix: stringParam(config, "key_prefix", "streamlet:metric:"),
		ttl:       ttl,
	}, nil
}

func (r *redisOutput) OnConnect() error {
	if err := r.client.Ping(context.Background()).Err(); err != nil {
		return errkind.New(errkind.StartupHookFailed, fmt.Errorf("redis ping failed: %w", err)).WithModule(r.Name())
	}
	return nil
}

func (r *redisOutput) OnShutdown() error {
	return r.client.Close()
}

type redisRecord struct {
	Timestamp  time.Time              `json:"timestamp"`
	Name       string                 `json:"name"`
	Value      interface{}            `json:"value,omitempty"`
	Attributes map[string]interface{} `json:"attributes"`
}

// Emit writes every metric in the frame as its own Redis key.
func (r *redisOutput) Emit(ctx context.Context, f *metric.MetricFrame) error {
	for _, m := range f.All() {
		rec := redisRecord{
			Timestamp:  f.Timestamp,
			Name:       m.Name,
			Attributes: make(map[string]interface{}, len(m.Attributes)),
		}
		if m.Value != nil {
			rec.Value = m.Value.Any()
		}
		for k, v := range m.Attributes {
			rec.Attributes[k] = v.Any()
		}

		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("redis output: marshal failed: %w", err)
		}

		key := fmt.Sprintf("%s%s:%s:%d", r.keyPrefix, f.TaskName, m.Name, f.Timestamp.UnixNano())
		if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil {
			return fmt.Errorf("redis output: set failed: %w", err)
		}
	}
	return nil
}
