package pipeline

import (
	"context"
	"image/color"
	"time"

	"github.com/khaledhikmat/pose-go/model"
	"gocv.io/x/gocv"
)

// FrameData is one captured image and the pose estimated on it. It is
// consumed by exactly one render pass.
type FrameData struct {
	Mat       gocv.Mat
	Landmarks []model.Landmark
	Timestamp time.Time
}

// Canvas is the drawing surface. Coordinates passed to Line and Circle are
// in canvas pixels and go through the current transform.
type Canvas interface {
	Size() (int, int)
	SetSize(width, height int)
	Clear()
	Save()
	Restore()
	Translate(x, y float64)
	Scale(x, y float64)
	DrawImage(img gocv.Mat, width, height int)
	Line(x1, y1, x2, y2 float64, c color.RGBA, width int)
	Circle(x, y, radius float64, c color.RGBA)
	Image() gocv.Mat
	Close() error
}

// FrameSource delivers camera frames. Start may fail, for example when the
// device is busy or access is denied.
type FrameSource interface {
	Start(ctx context.Context) error
	Read(img *gocv.Mat) bool
	Close() error
}

// Display receives the rendered canvas after every frame.
type Display interface {
	Show(img gocv.Mat)
	Close() error
}
