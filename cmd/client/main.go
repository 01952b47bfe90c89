// Command client is a smoke-test subscriber: it connects to a running
// streaming server at one quality, reports received frame sizes and
// rate, and can optionally dump frames to disk.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

var (
	serverURL = flag.String("url", "ws://localhost:6732", "Server base URL")
	quality   = flag.Int("quality", 75, "Requested JPEG quality [30, 95]")
	count     = flag.Int("count", 0, "Stop after this many frames, 0 = run until interrupted")
	dumpDir   = flag.String("dump", "", "Directory to write received frames into, empty disables")
)

func main() {
	flag.Parse()

	endpoint := fmt.Sprintf("%s/websocket/%d", *serverURL, *quality)
	conn, _, err := websocket.DefaultDialer.Dial(endpoint, nil)
	if err != nil {
		log.Fatalf("dial %s: %v", endpoint, err)
	}
	defer conn.Close()
	log.Printf("Connected to %s", endpoint)

	if *dumpDir != "" {
		if err := os.MkdirAll(*dumpDir, 0755); err != nil {
			log.Fatalf("create dump directory: %v", err)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		_ = conn.Close()
	}()

	var (
		frames     int
		totalBytes int64
		started    = time.Now()
		lastReport = started
	)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if closeErr, ok := err.(*websocket.CloseError); ok {
				log.Printf("Server closed connection: code=%d reason=%q", closeErr.Code, closeErr.Text)
			}
			break
		}
		if msgType != websocket.BinaryMessage {
			continue
		}

		frames++
		totalBytes += int64(len(data))

		if *dumpDir != "" {
			name := filepath.Join(*dumpDir, fmt.Sprintf("frame-%06d.jpg", frames))
			if err := os.WriteFile(name, data, 0644); err != nil {
				log.Fatalf("write %s: %v", name, err)
			}
		}

		if time.Since(lastReport) >= time.Second {
			elapsed := time.Since(started).Seconds()
			log.Printf("frames=%d rate=%.1f fps avg=%d bytes",
				frames, float64(frames)/elapsed, totalBytes/int64(frames))
			lastReport = time.Now()
		}

		if *count > 0 && frames >= *count {
			break
		}
	}

	elapsed := time.Since(started).Seconds()
	if frames > 0 && elapsed > 0 {
		log.Printf("Done: %d frames in %.1fs (%.1f fps, %d bytes total)",
			frames, elapsed, float64(frames)/elapsed, totalBytes)
	} else {
		log.Printf("Done: no frames received")
	}
}
