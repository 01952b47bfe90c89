// Package config defines the runtime configuration for the streaming
// server.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/qualicam/streaming-server/pkg/quality"
)

// Config holds every tunable of the server. Values are populated from
// command-line flags in cmd/server; zero values are not meaningful, use
// DefaultConfig as the base.
type Config struct {
	Addr        string // main HTTP/WebSocket listen address
	MetricsAddr string // Prometheus listener, empty disables
	PprofAddr   string // pprof listener, empty disables

	CameraID int // capture device index
	FPS      int // capture cadence, cycles per second

	Workers        int // broadcast worker pool size
	MaxClients     int // subscriber admission cap, 0 means unlimited
	PreviewQuality int // JPEG quality used by the MJPEG preview

	Origins []string // allowed browser origins for CORS and upgrades

	ShutdownGrace time.Duration // budget for draining the HTTP server
}

// DefaultConfig returns the published service defaults.
func DefaultConfig() Config {
	return Config{
		Addr:           ":6732",
		MetricsAddr:    ":9090",
		PprofAddr:      ":6060",
		CameraID:       0,
		FPS:            34,
		Workers:        4,
		MaxClients:     0,
		PreviewQuality: 75,
		Origins:        []string{"http://localhost:5173"},
		ShutdownGrace:  5 * time.Second,
	}
}

// Interval returns the capture period derived from FPS.
func (c Config) Interval() time.Duration {
	return time.Second / time.Duration(c.FPS)
}

// Validate reports the first nonsensical setting.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %d", c.FPS)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.MaxClients < 0 {
		return fmt.Errorf("max-clients must not be negative, got %d", c.MaxClients)
	}
	if !quality.Valid(c.PreviewQuality) {
		return fmt.Errorf("preview quality %d outside [%d, %d]",
			c.PreviewQuality, quality.Min, quality.Max)
	}
	return nil
}

// ParseOrigins splits a comma-separated origin list, trimming whitespace
// and dropping empty entries.
func ParseOrigins(s string) []string {
	parts := strings.Split(s, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}
