// Package apicompat checks a running streaming server against its
// external contract. The tests skip when no server is reachable; point
// QUALICAM_BASE_URL at a live instance to run them.
package apicompat

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

const (
	defaultBaseURL        = "http://localhost:6732"
	defaultRequestTimeout = 2 * time.Second
)

type specClient struct {
	baseURL string
	client  *http.Client
}

func newSpecClient(t *testing.T) *specClient {
	t.Helper()
	baseURL := os.Getenv("QUALICAM_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := &http.Client{Timeout: defaultRequestTimeout}

	if !isReachable(client, baseURL+"/health") {
		t.Skipf("streaming server not reachable at %s (set QUALICAM_BASE_URL to run)", baseURL)
	}

	return &specClient{
		baseURL: baseURL,
		client:  client,
	}
}

func isReachable(client *http.Client, url string) bool {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 500
}

func (c *specClient) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	_ = resp.Body.Close()
	return resp, body
}

// wsBaseURL rewrites the HTTP base URL to its WebSocket scheme.
func (c *specClient) wsBaseURL() string {
	if strings.HasPrefix(c.baseURL, "https") {
		return "wss" + strings.TrimPrefix(c.baseURL, "https")
	}
	return "ws" + strings.TrimPrefix(c.baseURL, "http")
}

func decodeJSONMap(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode JSON: %v\nbody: %s", err, body)
	}
	return payload
}

func requireMap(t *testing.T, v any, name string) map[string]any {
	t.Helper()
	m, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("%s is %T, want object", name, v)
	}
	return m
}

func requireNumber(t *testing.T, v any, name string) float64 {
	t.Helper()
	n, ok := v.(float64)
	if !ok {
		t.Fatalf("%s is %T, want number", name, v)
	}
	return n
}

func requireString(t *testing.T, v any, name string) string {
	t.Helper()
	s, ok := v.(string)
	if !ok {
		t.Fatalf("%s is %T, want string", name, v)
	}
	return s
}
