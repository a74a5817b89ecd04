package main

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/spf13/cobra"

	"savvybot-backend/internal/capture"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a document (PDF, DOCX or image, up to 10 MB)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return err
		}
		return capture.UploadDocument(cmd.Context(), a.gateway, a.notifier, args[0], info.Size(), f)
	},
}

var receiptCmd = &cobra.Command{
	Use:   "receipt <image>",
	Short: "Capture a receipt from an image file and upload it",
	Long: `Capture a receipt from an image file and upload it.

The image stands in for the camera frame: it is cropped to the receipt frame,
encoded as JPEG and sent to the backend's receipt upload endpoint.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		cam := capture.NewCamera(fileDevices{path: args[0]}, a.gateway, a.notifier, a.log)
		<-cam.Mount(cmd.Context())
		defer cam.Unmount()

		if state, msg := cam.State(); state != capture.CameraReady {
			return fmt.Errorf("camera %s: %s", state, msg)
		}
		return cam.Capture(cmd.Context())
	},
}

// fileDevices serves a still image as the camera stream.
type fileDevices struct {
	path string
}

func (d fileDevices) GetUserMedia(ctx context.Context, _ capture.Constraints) (capture.Stream, error) {
	f, err := os.Open(d.path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%s: %w", d.path, capture.ErrPermissionDenied)
		}
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", d.path, err)
	}
	return stillStream{img: img}, nil
}

type stillStream struct {
	img image.Image
}

func (s stillStream) Tracks() []capture.Track     { return nil }
func (s stillStream) Frame() (image.Image, error) { return s.img, nil }
