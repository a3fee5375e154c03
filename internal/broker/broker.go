// Package broker persists a bounded history of dispatcher fires, so
// recent executions can be read back through Broker.Recent without
// re-reading logs; no CLI command displays it. Grounded on the
// "cron:executions:<job>" LPush/LTrim ring-buffer pattern in
// pkg/runtime/cron_node.go's cron_scheduler.
package broker

import (
	"context"
	"encoding/json"
	"time"
)

// FireRecord is one recorded task fire, enqueued after every
// internal/scheduler dispatch regardless of outcome. FireID uniquely
// identifies the fire, mirroring the execution-id stamped on every
// cron job run.
type FireRecord struct {
	FireID     string    `json:"fire_id"`
	TaskName   string    `json:"task_name"`
	InputName  string    `json:"input_name"`
	FiredAt    time.Time `json:"fired_at"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	MetricsLen int       `json:"metrics_len"`
}

// Broker records fires and answers recent-history queries.
type Broker interface {
	Enqueue(ctx context.Context, rec FireRecord) error
	Recent(ctx context.Context, taskName string, limit int) ([]FireRecord, error)
	Close() error
}

func encode(rec FireRecord) (string, error) {
	b, err := json.Marshal(rec)
	return string(b), err
}

func decode(s string) (FireRecord, error) {
	var rec FireRecord
	err := json.Unmarshal([]byte(s), &rec)
	return rec, err
}
