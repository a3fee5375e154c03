package modules

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/streamlet-go/streamlet/internal/errkind"
	"github.com/streamlet-go/streamlet/internal/metric"
	"github.com/streamlet-go/streamlet/internal/registry"
	"github.com/streamlet-go/streamlet/internal/schema"
)

func init() {
	registry.Register(registry.Registration{
		Variant: registry.Output,
		Type:    "websocket",
		ConnectionSchema: schema.Object(
			schema.Required("url", schema.String()),
			schema.Optional("handshake_timeout", schema.Duration(), 10*time.Second),
		),
		ParamsSchema: nil,
		New:          newWebSocketOutput,
	})
}

// websocketOutput dials one long-lived connection at startup and
// writes each frame as a JSON text message. gorilla/websocket is used
// here as an outbound sink client, adapted from the server-side
// broadcast role it plays in pkg/api/websocket.go's WebSocketManager
// (upgrader + per-connection write loop) into a single dial-out
// connection with the same library's Dialer/WriteJSON API.
type websocketOutput struct {
	Base
	url              string
	handshakeTimeout time.Duration

	mu   sync.Mutex
	conn *websocket.Conn
}

func newWebSocketOutput(name string, config map[string]interface{}) (registry.Instance, error) {
	url := stringParam(config, "url", "")
	timeout := 10 * time.Second
	if raw, ok := config["handshake_timeout"]; ok {
		if d, err := schema.ParseDuration(raw); err == nil {
			timeout = d
		}
	}
	return &websocketOutput{Base: NewBase(name), url: url, handshakeTimeout: timeout}, nil
}

func (w *websocketOutput) OnConnect() error {
	dialer := websocket.Dialer{HandshakeTimeout: w.handshakeTimeout}
	conn, _, err := dialer.Dial(w.url, nil)
	if err != nil {
		return errkind.New(errkind.StartupHookFailed, fmt.Errorf("websocket dial failed: %w", err)).WithModule(w.Name())
	}
	w.conn = conn
	return nil
}

func (w *websocketOutput) OnShutdown() error {
	if w.conn == nil {
		return nil
	}
	_ = w.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return w.conn.Close()
}

type websocketFrameMessage struct {
	Task      string                   `json:"task"`
	Timestamp time.Time                `json:"timestamp"`
	Metrics   []websocketMetricMessage `json:"metrics"`
}

type websocketMetricMessage struct {
	Name       string                 `json:"name"`
	Value      interface{}            `json:"value,omitempty"`
	Attributes map[string]interface{} `json:"attributes"`
}

// Emit writes the whole frame as one JSON text message, reconnecting
// once if the write fails against a stale connection.
func (w *websocketOutput) Emit(ctx context.Context, f *metric.MetricFrame) error {
	msg := websocketFrameMessage{
		Task:      f.TaskName,
		Timestamp: f.Timestamp,
		Metrics:   make([]websocketMetricMessage, 0, f.Len()),
	}
	for _, m := range f.All() {
		wm := websocketMetricMessage{Name: m.Name, Attributes: scalarMapToAny(m.Attributes)}
		if m.Value != nil {
			wm.Value = m.Value.Any()
		}
		msg.Metrics = append(msg.Metrics, wm)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("websocket output: marshal failed: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		if reErr := w.reconnectLocked(); reErr != nil {
			return fmt.Errorf("websocket output: write failed and reconnect failed: %w", err)
		}
		if err := w.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return fmt.Errorf("websocket output: write failed after reconnect: %w", err)
		}
	}
	return nil
}

func (w *websocketOutput) reconnectLocked() error {
	dialer := websocket.Dialer{HandshakeTimeout: w.handshakeTimeout}
	conn, _, err := dialer.Dial(w.url, nil)
	if err != nil {
		return err
	}
	if w.conn != nil {
		w.conn.Close()
	}
	w.conn = conn
	return nil
}
