package apicompat

import (
	"net/http"
	"strings"
	"testing"
)

func TestCompatHealth(t *testing.T) {
	client := newSpecClient(t)
	resp, body := client.get(t, "/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /health status = %d", resp.StatusCode)
	}
	payload := decodeJSONMap(t, body)
	if requireString(t, payload["status"], "status") != "ok" {
		t.Fatalf("unexpected status: %v", payload["status"])
	}
	requireNumber(t, payload["uptime_seconds"], "uptime_seconds")
}

func TestCompatStats(t *testing.T) {
	client := newSpecClient(t)
	resp, body := client.get(t, "/stats")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /stats status = %d", resp.StatusCode)
	}
	payload := decodeJSONMap(t, body)
	requireNumber(t, payload["uptime_seconds"], "uptime_seconds")
	requireNumber(t, payload["active_clients"], "active_clients")
	requireMap(t, payload["demand"], "demand")

	counters := requireMap(t, payload["counters"], "counters")
	for _, field := range []string{
		"frames_captured", "capture_failures", "frames_encoded",
		"encode_failures", "broadcasts", "frames_sent", "send_failures",
	} {
		requireNumber(t, counters[field], "counters."+field)
	}
}

func TestCompatViewerPage(t *testing.T) {
	client := newSpecClient(t)
	resp, body := client.get(t, "/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET / status = %d", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		t.Fatalf("GET / content-type = %q", resp.Header.Get("Content-Type"))
	}
	if !strings.Contains(string(body), "/websocket/") {
		t.Fatalf("viewer page does not reference the websocket endpoint")
	}
}

func TestCompatPreviewHeaders(t *testing.T) {
	client := newSpecClient(t)
	req, err := http.NewRequest(http.MethodGet, client.baseURL+"/preview", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := client.client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /preview status = %d", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Content-Type"), "multipart/x-mixed-replace") {
		t.Fatalf("GET /preview content-type = %q", resp.Header.Get("Content-Type"))
	}
}
