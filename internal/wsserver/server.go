// Package wsserver exposes the service's network surface: the
// WebSocket subscription endpoint, the status/health JSON endpoints,
// the embedded viewer page, and the MJPEG preview.
package wsserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/qualicam/streaming-server/internal/config"
	"github.com/qualicam/streaming-server/internal/metrics"
	"github.com/qualicam/streaming-server/internal/stream"
)

// Server wires the HTTP handlers to the streaming core.
type Server struct {
	cfg       config.Config
	registry  *stream.Registry
	cache     *stream.Cache
	metrics   *metrics.Metrics
	upgrader  websocket.Upgrader
	startTime time.Time

	placeholder []byte // JPEG shown by the preview before a live frame

	clientsMu sync.RWMutex
	clients   map[string]*client
}

// NewServer returns a configured server.
func NewServer(cfg config.Config, registry *stream.Registry, cache *stream.Cache, m *metrics.Metrics) (*Server, error) {
	placeholder, err := placeholderJPEG(cfg.PreviewQuality)
	if err != nil {
		return nil, fmt.Errorf("render placeholder frame: %w", err)
	}

	s := &Server{
		cfg:         cfg,
		registry:    registry,
		cache:       cache,
		metrics:     m,
		startTime:   time.Now(),
		placeholder: placeholder,
		clients:     make(map[string]*client),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s, nil
}

// Handler exposes the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /websocket/{quality}", s.handleWebSocket)
	// No method in these patterns: CORS preflight OPTIONS must reach
	// the middleware rather than the mux's 405.
	mux.HandleFunc("/health", s.cors(s.handleHealth))
	mux.HandleFunc("/stats", s.cors(s.handleStats))
	mux.HandleFunc("/preview", s.cors(s.handlePreview))
	mux.HandleFunc("/{$}", s.handleIndex)

	return mux
}

// checkOrigin accepts requests with no Origin header (non-browser
// clients) and browser requests from the configured allow-list.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.Origins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// cors applies the configured origin allow-list to the plain HTTP
// endpoints.
func (s *Server) cors(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		for _, allowed := range s.cfg.Origins {
			if origin == allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
				break
			}
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthStatus{
		Status:        "ok",
		UptimeSeconds: time.Since(s.startTime).Seconds(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.clientsMu.RLock()
	clients := make([]ClientStatus, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, ClientStatus{
			ID:          c.id,
			Quality:     c.quality,
			RemoteAddr:  c.remoteAddr,
			ConnectedAt: float64(c.connectedAt.Unix()),
			FramesSent:  c.framesSent.Load(),
		})
	}
	s.clientsMu.RUnlock()
	sort.Slice(clients, func(i, j int) bool { return clients[i].ID < clients[j].ID })

	writeJSON(w, StatsSnapshot{
		UptimeSeconds: time.Since(s.startTime).Seconds(),
		ActiveClients: s.registry.Count(),
		Demand:        s.registry.DemandSnapshot(),
		Clients:       clients,
		Counters: CounterSnapshot{
			FramesCaptured:      s.metrics.FramesCaptured.Load(),
			CaptureFailures:     s.metrics.CaptureFailures.Load(),
			FramesEncoded:       s.metrics.FramesEncoded.Load(),
			EncodeFailures:      s.metrics.EncodeFailures.Load(),
			Broadcasts:          s.metrics.Broadcasts.Load(),
			BroadcastsCoalesced: s.metrics.BroadcastsCoalesced.Load(),
			FramesSent:          s.metrics.FramesSent.Load(),
			SendFailures:        s.metrics.SendFailures.Load(),
			ClientsConnected:    s.metrics.ClientsConnected.Load(),
			ClientsRejected:     s.metrics.ClientsRejected.Load(),
		},
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

func (s *Server) addClient(c *client) {
	s.clientsMu.Lock()
	s.clients[c.id] = c
	s.clientsMu.Unlock()
}

func (s *Server) removeClient(c *client) {
	s.clientsMu.Lock()
	delete(s.clients, c.id)
	s.clientsMu.Unlock()
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		_, _ = fmt.Fprintf(w, `{"error":"%s"}`, err.Error())
	}
}
