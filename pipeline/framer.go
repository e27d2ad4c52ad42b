package pipeline

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"time"

	"github.com/khaledhikmat/pose-go/model"
	"github.com/khaledhikmat/pose-go/service/lgr"
	"gocv.io/x/gocv"
)

const (
	WebcamFramerType    = "webcam"
	SyntheticFramerType = "synthetic"
)

// NewFrameSource picks the source for the camera's framer type. The device
// follows the requested facing mode.
func NewFrameSource(camera model.Camera, isBackCamera bool) FrameSource {
	if camera.FramerType == SyntheticFramerType {
		return NewSyntheticSource(camera, 30)
	}
	return NewWebcamSource(camera, isBackCamera)
}

type webcamSource struct {
	camera  model.Camera
	device  string
	capture *gocv.VideoCapture
}

func NewWebcamSource(camera model.Camera, isBackCamera bool) FrameSource {
	return &webcamSource{
		camera: camera,
		device: camera.Device(isBackCamera),
	}
}

func (s *webcamSource) Start(_ context.Context) error {
	capture, err := gocv.OpenVideoCapture(s.device)
	if err != nil {
		return fmt.Errorf("error opening camera %s: %w", s.device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("camera %s is not available", s.device)
	}

	if s.camera.Width > 0 && s.camera.Height > 0 {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(s.camera.Width))
		capture.Set(gocv.VideoCaptureFrameHeight, float64(s.camera.Height))
	}

	lgr.Logger.Info("camera started",
		slog.String("camera", s.camera.Name),
		slog.String("device", s.device),
	)

	s.capture = capture
	return nil
}

func (s *webcamSource) Read(img *gocv.Mat) bool {
	if s.capture == nil {
		return false
	}
	return s.capture.Read(img) && !img.Empty()
}

func (s *webcamSource) Close() error {
	if s.capture == nil {
		return nil
	}
	err := s.capture.Close()
	s.capture = nil
	return err
}

// syntheticSource paints a moving test pattern at a fixed rate. It lets the
// pipeline run without a camera.
type syntheticSource struct {
	camera model.Camera
	period time.Duration
	ctx    context.Context
	ticker *time.Ticker
	frames int
}

func NewSyntheticSource(camera model.Camera, fps int) FrameSource {
	if fps <= 0 {
		fps = 30
	}
	return &syntheticSource{
		camera: camera,
		period: time.Second / time.Duration(fps),
	}
}

func (s *syntheticSource) Start(ctx context.Context) error {
	s.ctx = ctx
	s.ticker = time.NewTicker(s.period)
	return nil
}

func (s *syntheticSource) Read(img *gocv.Mat) bool {
	if s.ticker == nil {
		return false
	}

	select {
	case <-s.ctx.Done():
		return false
	case <-s.ticker.C:
	}

	width, height := s.camera.Width, s.camera.Height
	if width <= 0 || height <= 0 {
		width, height = 640, 480
	}

	frame := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	defer frame.Close()
	frame.SetTo(gocv.NewScalar(40, 40, 40, 0))

	// A bar sweeping left to right makes mirroring visible.
	s.frames++
	x := int(float64(width) * (0.5 + 0.4*math.Sin(float64(s.frames)/30)))
	gocv.Rectangle(&frame, image.Rect(x-20, 0, x+20, height), color.RGBA{R: 0, G: 128, B: 255, A: 255}, -1)
	gocv.PutText(&frame, fmt.Sprintf("%s #%d", s.camera.Name, s.frames), image.Pt(20, 40),
		gocv.FontHersheySimplex, 1, color.RGBA{R: 255, G: 255, B: 255, A: 255}, 2)

	frame.CopyTo(img)
	return true
}

func (s *syntheticSource) Close() error {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	return nil
}
