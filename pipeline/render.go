package pipeline

import (
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/pose-go/model"
	"github.com/khaledhikmat/pose-go/service/loader"
)

// SkeletonLineWidth is the stroke width of skeleton edges.
const SkeletonLineWidth = 4

// ErrDrawingUnavailable is returned when a frame carries landmarks but the
// drawing capability was never loaded. The camera image is still drawn.
var ErrDrawingUnavailable = xerrors.New("drawing functions not available")

// Render draws one frame and its pose onto the canvas and returns the number
// of keypoints drawn. The canvas transform is restored on every return.
func Render(canvas Canvas, frame FrameData, cfg model.RenderConfig, caps loader.Capabilities) (int, error) {
	width, height := canvas.Size()

	canvas.Clear()
	canvas.Save()
	defer canvas.Restore()

	if !cfg.IsBackCamera && cfg.FlipHorizontal {
		canvas.Translate(float64(width), 0)
		canvas.Scale(-1, 1)
	}

	canvas.DrawImage(frame.Mat, width, height)

	if len(frame.Landmarks) == 0 {
		return 0, nil
	}

	if !caps.Drawing {
		return 0, ErrDrawingUnavailable
	}

	if cfg.EnableSkeleton {
		drawSkeleton(canvas, frame.Landmarks, cfg, width, height)
	}

	if !cfg.EnableKeyPoints {
		return 0, nil
	}

	return drawKeypoints(canvas, frame.Landmarks, cfg, width, height), nil
}

func drawSkeleton(canvas Canvas, landmarks []model.Landmark, cfg model.RenderConfig, width, height int) {
	stroke := ResolveColor(cfg.Color)
	w, h := float64(width), float64(height)

	for _, conn := range model.PoseConnections {
		if conn[0] >= len(landmarks) || conn[1] >= len(landmarks) {
			continue
		}
		from, to := landmarks[conn[0]], landmarks[conn[1]]
		canvas.Line(from.X*w, from.Y*h, to.X*w, to.Y*h, stroke, SkeletonLineWidth)
	}
}

func drawKeypoints(canvas Canvas, landmarks []model.Landmark, cfg model.RenderConfig, width, height int) int {
	w, h := float64(width), float64(height)
	drawn := 0

	for index, lm := range landmarks {
		if lm.Visibility < cfg.ScoreThreshold {
			continue
		}

		id := model.IdentityOf(index)
		canvas.Circle(lm.X*w, lm.Y*h, cfg.LandmarkSize(id), ResolveColor(cfg.LandmarkColor(id)))
		drawn++
	}

	return drawn
}
