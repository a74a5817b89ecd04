// Package capture adapts device capabilities (camera, microphone, file picker)
// into cancellable operations whose results feed the gateway or the chat input.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"savvybot-backend/internal/logging"
	"savvybot-backend/internal/notify"
)

var (
	// ErrPermissionDenied is returned by a device provider when the user refuses access.
	ErrPermissionDenied = errors.New("device permission denied")
	ErrNotReady         = errors.New("camera is not ready")
	ErrUploadInFlight   = errors.New("an upload is already in flight")
)

// User-facing camera error messages.
const (
	MsgCameraDenied      = "Camera access denied. Please allow camera permission."
	MsgCameraUnavailable = "Unable to access camera."
)

// Receipt capture notifications.
var (
	ReceiptUploaded      = notify.Notification{Title: "Upload successful", Description: "Your receipt has been uploaded."}
	ReceiptUploadFailed  = notify.Notification{Title: "Error", Description: "Could not upload receipt. Please try again."}
	ReceiptCaptureFailed = notify.Notification{Title: "Error", Description: "Could not capture receipt. Please try again."}
)

// The visible receipt frame and the margin trimmed from each edge before upload.
const (
	FrameWidth  = 340
	FrameHeight = 400
	FrameEdge   = 20
)

// FacingEnvironment requests the rear camera.
const FacingEnvironment = "environment"

// Track is one media track of a stream.
type Track interface {
	Stop()
}

// Stream is a live video stream.
type Stream interface {
	Tracks() []Track
	// Frame returns the image currently shown.
	Frame() (image.Image, error)
}

// Constraints describe the requested stream.
type Constraints struct {
	FacingMode string
}

// MediaDevices grants access to cameras. GetUserMedia should return an error
// wrapping ErrPermissionDenied when access is refused.
type MediaDevices interface {
	GetUserMedia(ctx context.Context, c Constraints) (Stream, error)
}

// ReceiptUploader accepts the captured still.
type ReceiptUploader interface {
	UploadReceipt(ctx context.Context, name string, r io.Reader) error
}

type CameraState int

const (
	CameraIdle CameraState = iota
	CameraRequesting
	CameraReady
	CameraError
)

func (s CameraState) String() string {
	switch s {
	case CameraIdle:
		return "idle"
	case CameraRequesting:
		return "requesting"
	case CameraReady:
		return "ready"
	case CameraError:
		return "error"
	default:
		return fmt.Sprintf("CameraState(%d)", int(s))
	}
}

// Camera drives the receipt camera: idle → requesting → ready | error.
type Camera struct {
	devices  MediaDevices
	uploader ReceiptUploader
	notifier notify.Sink
	log      zerolog.Logger
	now      func() time.Time

	mu        sync.Mutex
	state     CameraState
	errMsg    string
	stream    Stream
	stop      func()
	cancel    context.CancelFunc
	gen       uint64
	uploading bool
}

// NewCamera accepts a nil notifier.
func NewCamera(devices MediaDevices, uploader ReceiptUploader, notifier notify.Sink, log zerolog.Logger) *Camera {
	if notifier == nil {
		notifier = notify.Discard
	}
	return &Camera{
		devices:  devices,
		uploader: uploader,
		notifier: notifier,
		log:      logging.Component(log, "camera"),
		now:      time.Now,
	}
}

// State returns the current state and, in CameraError, the user-facing message.
func (c *Camera) State() (CameraState, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.errMsg
}

// CanCapture reports whether the capture button is enabled.
func (c *Camera) CanCapture() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == CameraReady && !c.uploading
}

// Mount starts acquiring the rear camera. The returned channel is closed once the
// request settles, whether it succeeded, failed or was abandoned by Unmount.
func (c *Camera) Mount(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})

	c.mu.Lock()
	if c.state != CameraIdle {
		c.mu.Unlock()
		close(done)
		return done
	}
	c.gen++
	gen := c.gen
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state = CameraRequesting
	c.errMsg = ""
	c.mu.Unlock()

	go func() {
		defer close(done)
		stream, err := c.devices.GetUserMedia(ctx, Constraints{FacingMode: FacingEnvironment})

		c.mu.Lock()
		if c.gen != gen {
			// Unmounted while the request was pending.
			c.mu.Unlock()
			if stream != nil {
				stopper(stream)()
			}
			return
		}
		defer c.mu.Unlock()

		if err != nil {
			c.state = CameraError
			c.errMsg = MsgCameraUnavailable
			if errors.Is(err, ErrPermissionDenied) {
				c.errMsg = MsgCameraDenied
			}
			c.log.Warn().Err(err).Msg("camera request failed")
			return
		}
		c.stream = stream
		c.stop = stopper(stream)
		c.state = CameraReady
	}()
	return done
}

// Unmount releases the camera from any state. Every track is stopped exactly once.
func (c *Camera) Unmount() {
	c.mu.Lock()
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	stop := c.stop
	c.stream = nil
	c.stop = nil
	c.state = CameraIdle
	c.errMsg = ""
	c.mu.Unlock()

	if stop != nil {
		stop()
	}
}

func stopper(s Stream) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			for _, t := range s.Tracks() {
				t.Stop()
			}
		})
	}
}

// Capture grabs the current frame, crops it to the receipt frame and uploads it as JPEG.
// Once the upload starts, the outcome is also reported as a notification.
func (c *Camera) Capture(ctx context.Context) error {
	c.mu.Lock()
	if c.state != CameraReady {
		c.mu.Unlock()
		return ErrNotReady
	}
	if c.uploading {
		c.mu.Unlock()
		return ErrUploadInFlight
	}
	c.uploading = true
	stream := c.stream
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.uploading = false
		c.mu.Unlock()
	}()

	frame, err := stream.Frame()
	if err != nil {
		c.notifier.Notify(ReceiptCaptureFailed)
		return fmt.Errorf("grab frame: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, CropToFrame(frame), &jpeg.Options{Quality: 90}); err != nil {
		c.notifier.Notify(ReceiptCaptureFailed)
		return fmt.Errorf("encode receipt: %w", err)
	}

	name := fmt.Sprintf("receipt-%d.jpg", c.now().UnixMilli())
	if err := c.uploader.UploadReceipt(ctx, name, &buf); err != nil {
		c.log.Warn().Err(err).Str("file", name).Msg("receipt upload failed")
		c.notifier.Notify(ReceiptUploadFailed)
		return fmt.Errorf("upload receipt: %w", err)
	}
	c.notifier.Notify(ReceiptUploaded)
	return nil
}

// CropToFrame returns the centered region of src that sits inside the receipt
// frame, minus its margins. Sources smaller than the region are padded.
func CropToFrame(src image.Image) *image.RGBA {
	w, h := FrameWidth-2*FrameEdge, FrameHeight-2*FrameEdge
	dst := image.NewRGBA(image.Rect(0, 0, w, h))

	b := src.Bounds()
	origin := image.Point{
		X: b.Min.X + (b.Dx()-w)/2,
		Y: b.Min.Y + (b.Dy()-h)/2,
	}
	draw.Draw(dst, dst.Bounds(), src, origin, draw.Src)
	return dst
}
