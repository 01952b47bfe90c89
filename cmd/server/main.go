package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // Enable pprof
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/qualicam/streaming-server/internal/camera"
	"github.com/qualicam/streaming-server/internal/config"
	"github.com/qualicam/streaming-server/internal/logger"
	"github.com/qualicam/streaming-server/internal/metrics"
	"github.com/qualicam/streaming-server/internal/stream"
	"github.com/qualicam/streaming-server/internal/wsserver"
)

var (
	// Command-line flags
	addr           = flag.String("addr", ":6732", "HTTP/WebSocket listen address")
	cameraID       = flag.Int("camera", 0, "Camera device index")
	fps            = flag.Int("fps", 34, "Capture cadence (cycles per second)")
	workers        = flag.Int("workers", 4, "Broadcast worker pool size")
	maxClients     = flag.Int("max-clients", 0, "Maximum subscribers, 0 = unlimited")
	previewQuality = flag.Int("preview-quality", 75, "JPEG quality for /preview")
	origins        = flag.String("origins", "http://localhost:5173", "Allowed browser origins (comma-separated)")
	metricsAddr    = flag.String("metrics-addr", ":9090", "Metrics server address, empty disables")
	pprofAddr      = flag.String("pprof-addr", ":6060", "pprof server address, empty disables")
	logLevel       = flag.String("log-level", "info", "Log level (debug, info, warn, error, silent)")
	logColor       = flag.Bool("log-color", true, "Enable colored log output")
)

// Server is the main streaming server
type Server struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	cfg         config.Config
	metrics     *metrics.Metrics
	camera      *camera.Camera
	registry    *stream.Registry
	cache       *stream.Cache
	broadcaster *stream.Broadcaster
	capture     *stream.CaptureLoop
	httpServer  *http.Server
}

func main() {
	flag.Parse()

	// Initialize logger
	level, err := logger.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	logger.Init(level, os.Stderr, *logColor)

	logger.Info("Main", "Streaming server starting...")
	logger.Info("Main", "Log level: %s", level)

	cfg := config.DefaultConfig()
	cfg.Addr = *addr
	cfg.MetricsAddr = *metricsAddr
	cfg.PprofAddr = *pprofAddr
	cfg.CameraID = *cameraID
	cfg.FPS = *fps
	cfg.Workers = *workers
	cfg.MaxClients = *maxClients
	cfg.PreviewQuality = *previewQuality
	cfg.Origins = config.ParseOrigins(*origins)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Create server. The camera must open before any listener starts;
	// without a capture source there is nothing to serve.
	srv, err := NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Start server
	if err := srv.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")

	// Graceful shutdown
	if err := srv.Shutdown(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// NewServer creates a new streaming server
func NewServer(cfg config.Config) (*Server, error) {
	ctx, cancel := context.WithCancel(context.Background())

	// Create metrics
	m := metrics.New()

	// Acquire the camera. Fatal if unavailable.
	cam, err := camera.Open(cfg.CameraID)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open camera: %w", err)
	}

	// Create the pipeline
	registry := stream.NewRegistry()
	cache := stream.NewCache()
	broadcaster := stream.NewBroadcaster(registry, cache, cfg.Workers, m)
	capture := stream.NewCaptureLoop(cam, registry, cache, broadcaster, cfg.Interval(), m)

	// Create the network surface
	ws, err := wsserver.NewServer(cfg, registry, cache, m)
	if err != nil {
		cancel()
		_ = cam.Close()
		return nil, fmt.Errorf("failed to create websocket server: %w", err)
	}

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: ws.Handler(),
	}

	return &Server{
		ctx:         ctx,
		cancel:      cancel,
		cfg:         cfg,
		metrics:     m,
		camera:      cam,
		registry:    registry,
		cache:       cache,
		broadcaster: broadcaster,
		capture:     capture,
		httpServer:  httpServer,
	}, nil
}

// Start starts all server components
func (s *Server) Start() error {
	log.Printf("Starting streaming server...")
	log.Printf("  HTTP/WebSocket server: %s", s.cfg.Addr)
	log.Printf("  Camera device: %d", s.cfg.CameraID)
	log.Printf("  Capture rate: %d fps (%v period)", s.cfg.FPS, s.cfg.Interval())
	log.Printf("  Broadcast workers: %d", s.cfg.Workers)

	// Start pprof server
	if s.cfg.PprofAddr != "" {
		go func() {
			log.Printf("Starting pprof server on %s", s.cfg.PprofAddr)
			if err := http.ListenAndServe(s.cfg.PprofAddr, nil); err != nil {
				log.Printf("pprof server error: %v", err)
			}
		}()
	}

	// Start metrics server
	if s.cfg.MetricsAddr != "" {
		go func() {
			log.Printf("Starting metrics server on %s", s.cfg.MetricsAddr)
			if err := s.metrics.StartServer(s.cfg.MetricsAddr); err != nil {
				log.Printf("Metrics server error: %v", err)
			}
		}()
	}

	// Start HTTP server
	go func() {
		log.Printf("Starting HTTP server on %s", s.cfg.Addr)
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	// Start broadcast workers and the capture loop. The capture
	// goroutine is the sole owner of the camera handle.
	s.broadcaster.Start(s.ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.capture.Run(s.ctx)
	}()

	log.Println("Server started successfully")
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() error {
	// Stop accepting and deliver pending frames
	s.cancel()
	s.wg.Wait()
	s.broadcaster.Wait()

	// The capture loop has exited; the camera can be released.
	if err := s.camera.Close(); err != nil {
		logger.Warn("Main", "Camera release: %v", err)
	}

	// Shutdown HTTP server; in-flight connection handlers terminate as
	// their transports close.
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGrace)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
