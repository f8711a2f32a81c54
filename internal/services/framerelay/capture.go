package framerelay

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"time"

	"gocv.io/x/gocv"

	"visionpulse-notifier-go/internal/config"
)

const maxConsecutiveReadErrors = 10

// capture reads frames from the local webcam and hands JPEG-encoded frames
// to the relay on the configured interval.
type capture struct {
	cfg    *config.Config
	relay  *Relay
	cancel context.CancelFunc
	done   chan struct{}
}

func newCapture(cfg *config.Config, relay *Relay) *capture {
	return &capture{cfg: cfg, relay: relay}
}

// start opens the webcam and launches the read loop
func (c *capture) start() error {
	cam, err := gocv.OpenVideoCapture(c.cfg.CameraDeviceID)
	if err != nil {
		return fmt.Errorf("open camera device %d: %w", c.cfg.CameraDeviceID, err)
	}
	if !cam.IsOpened() {
		cam.Close()
		return fmt.Errorf("camera device %d not opened", c.cfg.CameraDeviceID)
	}

	cam.Set(gocv.VideoCaptureFrameWidth, float64(c.cfg.FrameWidth))
	cam.Set(gocv.VideoCaptureFrameHeight, float64(c.cfg.FrameHeight))
	cam.Set(gocv.VideoCaptureBufferSize, 1)

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})

	c.relay.logger.Info().
		Int("device", c.cfg.CameraDeviceID).
		Int("width", c.cfg.FrameWidth).
		Int("height", c.cfg.FrameHeight).
		Msg("Camera capture started")

	go c.run(ctx, cam)
	return nil
}

// stop cancels the loop and waits for camera teardown
func (c *capture) stop() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
}

func (c *capture) run(ctx context.Context, cam *gocv.VideoCapture) {
	defer close(c.done)
	defer cam.Close()

	img := gocv.NewMat()
	defer img.Close()

	consecutiveErrors := 0
	ticker := time.NewTicker(c.cfg.UploadInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.relay.logger.Info().Msg("Camera capture stopped")
			return
		case <-ticker.C:
		}

		if ok := cam.Read(&img); !ok || img.Empty() {
			consecutiveErrors++
			if consecutiveErrors >= maxConsecutiveReadErrors {
				c.relay.logger.Error().
					Int("consecutive_errors", consecutiveErrors).
					Msg("Camera read failing persistently, stopping capture")
				return
			}
			continue
		}
		consecutiveErrors = 0

		frame, err := c.encodeFrame(img)
		if err != nil {
			c.relay.logger.Debug().Err(err).Msg("Frame encode failed")
			continue
		}

		c.relay.handleFrame(ctx, frame)
	}
}

// encodeFrame resizes if needed and produces a base64 JPEG data URL, the
// format the upload endpoint expects.
func (c *capture) encodeFrame(img gocv.Mat) (string, error) {
	src := img
	var resized gocv.Mat
	if img.Cols() != c.cfg.FrameWidth || img.Rows() != c.cfg.FrameHeight {
		resized = gocv.NewMat()
		gocv.Resize(img, &resized, image.Pt(c.cfg.FrameWidth, c.cfg.FrameHeight), 0, 0, gocv.InterpolationLinear)
		defer resized.Close()
		src = resized
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, src, []int{gocv.IMWriteJpegQuality, c.cfg.FrameQuality})
	if err != nil {
		return "", fmt.Errorf("jpeg encode: %w", err)
	}
	defer buf.Close()

	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.GetBytes()), nil
}
