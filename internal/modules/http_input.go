package modules

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/streamlet-go/streamlet/internal/registry"
	"github.com/streamlet-go/streamlet/internal/schema"
)

func init() {
	registry.Register(registry.Registration{
		Variant: registry.Input,
		Type:    "http",
		ConnectionSchema: schema.Object(
			schema.Optional("base_url", schema.String(), ""),
			schema.Optional("timeout", schema.Duration(), 30*time.Second),
			schema.Optional("headers", schema.Map(schema.String()), map[string]interface{}{}),
		),
		ParamsSchema: schema.Object(
			schema.Required("path", schema.String()),
			schema.Optional("method", schema.String(), "GET"),
			schema.Optional("query", schema.Map(schema.String()), map[string]interface{}{}),
			schema.Optional("json_path", schema.String(), ""),
			schema.Optional("paginate", schema.Bool(), false),
			schema.Optional("next_page_field", schema.String(), "next"),
			schema.Optional("max_pages", schema.Int(), 10),
		),
		New: newHTTPInput,
	})
}

// httpInput fetches JSON records from a REST endpoint, following
// pages via a `next` cursor field until exhaustion or max_pages,
// accumulating each page's records directly rather than staging them
// through flowlib's Node/Flow machinery.
type httpInput struct {
	Base
	client  *http.Client
	baseURL string
	headers map[string]interface{}
}

func newHTTPInput(name string, config map[string]interface{}) (registry.Instance, error) {
	timeout := 30 * time.Second
	if raw, ok := config["timeout"]; ok {
		if d, err := schema.ParseDuration(raw); err == nil {
			timeout = d
		}
	}
	headers, _ := config["headers"].(map[string]interface{})

	return &httpInput{
		Base:    NewBase(name),
		client:  &http.Client{Timeout: timeout},
		baseURL: stringParam(config, "base_url", ""),
		headers: headers,
	}, nil
}

func (h *httpInput) Fetch(ctx context.Context, params map[string]interface{}) ([]map[string]interface{}, error) {
	path, _ := params["path"].(string)
	method := stringParam(params, "method", "GET")
	jsonPath, _ := params["json_path"].(string)
	paginate := boolParam(params, "paginate", false)
	nextField := stringParam(params, "next_page_field", "next")
	maxPages := intParam(params, "max_pages", 10)

	url := h.baseURL + path
	var records []map[string]interface{}

	for page := 0; page < maxPages; page++ {
		body, err := h.doRequest(ctx, method, url)
		if err != nil {
			return nil, err
		}

		var decoded interface{}
		if err := json.Unmarshal(body, &decoded); err != nil {
			return nil, fmt.Errorf("http input: invalid JSON response: %w", err)
		}

		payload := decoded
		if jsonPath != "" {
			payload = navigateJSONPath(decoded, jsonPath)
		}
		records = append(records, toRecords(payload)...)

		if !paginate {
			break
		}
		next := extractNextURL(decoded, nextField)
		if next == "" {
			break
		}
		url = next
	}
	return records, nil
}

func (h *httpInput) doRequest(ctx context.Context, method, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("http input: bad request: %w", err)
	}
	for k, v := range h.headers {
		req.Header.Set(k, fmt.Sprintf("%v", v))
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http input: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("http input: reading body failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("http input: status %d from %s", resp.StatusCode, url)
	}
	return body, nil
}

func navigateJSONPath(v interface{}, path string) interface{} {
	current := v
	key := ""
	for _, r := range path {
		if r == '.' {
			if key != "" {
				current = lookupKey(current, key)
				key = ""
			}
			continue
		}
		key += string(r)
	}
	if key != "" {
		current = lookupKey(current, key)
	}
	return current
}

func lookupKey(v interface{}, key string) interface{} {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	return m[key]
}

func extractNextURL(v interface{}, field string) string {
	m, ok := v.(map[string]interface{})
	if !ok {
		return ""
	}
	next, _ := m[field].(string)
	return next
}

func toRecords(payload interface{}) []map[string]interface{} {
	switch t := payload.(type) {
	case []interface{}:
		out := make([]map[string]interface{}, 0, len(t))
		for _, item := range t {
			if m, ok := item.(map[string]interface{}); ok {
				out = append(out, m)
			}
		}
		return out
	case map[string]interface{}:
		return []map[string]interface{}{t}
	default:
		return nil
	}
}
