// Package stream implements the concurrent capture/encode/fan-out
// pipeline: the demand registry, the latest-wins frame cache, the paced
// capture loop, and the bounded broadcaster.
package stream

// Frame is one raw captured frame, encodable at any JPEG quality.
type Frame interface {
	EncodeJPEG(quality int) ([]byte, error)
}

// Source produces raw frames. A failed read (device hiccup) returns
// ok == false; the caller skips the cycle and tries again later.
type Source interface {
	Read() (Frame, bool)
}

// Subscriber receives encoded frames. SendFrame may block on a slow
// transport; a returned error marks the subscriber dead and it will be
// unsubscribed and closed. Close must be safe to call more than once.
type Subscriber interface {
	SendFrame(data []byte) error
	Close() error
}
