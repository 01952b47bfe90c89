package wsserver

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/qualicam/streaming-server/internal/logger"
)

// previewKeepalive caps how long the preview waits for a live frame
// before re-sending the placeholder to keep the connection open.
const previewKeepalive = 5 * time.Second

// previewSubscriber adapts an MJPEG HTTP response into a registry
// subscriber: delivered frames land in a small buffer, latest wins.
// Its sends never block a broadcast worker.
type previewSubscriber struct {
	mu     sync.Mutex
	closed bool
	frames chan []byte
}

func newPreviewSubscriber() *previewSubscriber {
	return &previewSubscriber{
		frames: make(chan []byte, 2),
	}
}

// SendFrame buffers a frame, dropping the oldest buffered frame when
// full. Only the latest frames matter to a live preview.
func (p *previewSubscriber) SendFrame(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return net.ErrClosed
	}

	for {
		select {
		case p.frames <- data:
			return nil
		default:
			select {
			case <-p.frames:
			default:
			}
		}
	}
}

// Close marks the subscriber dead; buffered frames are abandoned.
func (p *previewSubscriber) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

// handlePreview streams multipart MJPEG at the configured preview
// quality. It registers a real subscriber, so the preview exercises
// the same demand/encode/broadcast path as WebSocket clients. Before
// the first live frame it serves the generated placeholder.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")

	sub := newPreviewSubscriber()
	s.registry.Subscribe(sub, s.cfg.PreviewQuality)
	s.metrics.ActiveClients.Store(uint64(s.registry.Count()))
	logger.Debug("Preview", "Viewer %s subscribed at quality %d", r.RemoteAddr, s.cfg.PreviewQuality)

	defer func() {
		s.registry.Unsubscribe(sub)
		_ = sub.Close()
		s.metrics.ActiveClients.Store(uint64(s.registry.Count()))
		logger.Debug("Preview", "Viewer %s disconnected", r.RemoteAddr)
	}()

	// Prime with whatever is freshest: the cached frame if the quality
	// is already being encoded, the placeholder otherwise.
	first := s.cache.Get(s.cfg.PreviewQuality)
	if first == nil {
		first = s.placeholder
	}
	if err := writeMJPEGPart(w, first); err != nil {
		return
	}
	flusher.Flush()

	for {
		var frame []byte
		select {
		case frame = <-sub.frames:
		case <-time.After(previewKeepalive):
			frame = s.placeholder
		}

		if err := writeMJPEGPart(w, frame); err != nil {
			// Viewer went away; the deferred unsubscribe cleans up.
			return
		}
		flusher.Flush()
	}
}

func writeMJPEGPart(w http.ResponseWriter, jpegData []byte) error {
	if _, err := w.Write([]byte("--frame\r\nContent-Type: image/jpeg\r\n\r\n")); err != nil {
		return err
	}
	if _, err := w.Write(jpegData); err != nil {
		return err
	}
	_, err := w.Write([]byte("\r\n"))
	return err
}
