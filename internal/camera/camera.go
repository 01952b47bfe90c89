// Package camera owns the capture device. It implements stream.Source
// over a gocv VideoCapture and encodes frames through OpenCV's JPEG
// encoder, one encode per requested quality.
package camera

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/qualicam/streaming-server/internal/logger"
	"github.com/qualicam/streaming-server/internal/stream"
)

// Camera wraps one capture device. Read and Close must only be called
// from the capture-loop goroutine; the device handle is never shared.
type Camera struct {
	device *gocv.VideoCapture
	mat    gocv.Mat
}

// Open acquires the capture device. Failure here is fatal for the
// service: there is nothing to stream without a capture source.
func Open(deviceID int) (*Camera, error) {
	device, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, fmt.Errorf("open video capture device %d: %w", deviceID, err)
	}
	logger.Info("Camera", "Opened capture device %d", deviceID)
	return &Camera{
		device: device,
		mat:    gocv.NewMat(),
	}, nil
}

// Read grabs one raw frame. An empty mat counts as a failed read; the
// capture loop skips the cycle and retries next period. The returned
// frame borrows the camera's mat and is only valid until the next Read.
func (c *Camera) Read() (stream.Frame, bool) {
	if ok := c.device.Read(&c.mat); !ok || c.mat.Empty() {
		return nil, false
	}
	return &rawFrame{mat: &c.mat}, true
}

// Close releases the mat and the device.
func (c *Camera) Close() error {
	if err := c.mat.Close(); err != nil {
		return fmt.Errorf("release frame mat: %w", err)
	}
	if err := c.device.Close(); err != nil {
		return fmt.Errorf("release capture device: %w", err)
	}
	logger.Info("Camera", "Capture device released")
	return nil
}

type rawFrame struct {
	mat *gocv.Mat
}

// EncodeJPEG compresses the frame at the given quality. The bytes are
// copied out before the native buffer is released, so the result stays
// valid after the next capture overwrites the mat.
func (f *rawFrame) EncodeJPEG(quality int) ([]byte, error) {
	params := []int{gocv.IMWriteJpegQuality, quality}
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, *f.mat, params)
	if err != nil {
		return nil, fmt.Errorf("encode jpeg at quality %d: %w", quality, err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	return data, nil
}
