package pipeline

import (
	"log/slog"

	"github.com/khaledhikmat/pose-go/model"
	"github.com/khaledhikmat/pose-go/service/lgr"
)

// Surface keeps the canvas sized for the current display mode. It remembers
// the last viewport reported by the host so that switching to full screen
// can use it right away.
type Surface struct {
	canvas   Canvas
	base     model.Viewport
	viewport model.Viewport
}

func NewSurface(canvas Canvas, base, viewport model.Viewport) *Surface {
	return &Surface{
		canvas:   canvas,
		base:     base,
		viewport: viewport,
	}
}

func (s *Surface) Viewport() model.Viewport {
	return s.viewport
}

// Resize records the host viewport. In full-screen mode the canvas takes the
// viewport size; otherwise the canvas is left alone.
func (s *Surface) Resize(cfg model.RenderConfig, viewport model.Viewport) {
	if viewport.Width > 0 && viewport.Height > 0 {
		s.viewport = viewport
	}

	if !cfg.IsFullScreen {
		return
	}

	s.setSize(s.viewport)
}

// Apply sizes the canvas for a newly applied configuration: the viewport in
// full-screen mode, the base capture size otherwise.
func (s *Surface) Apply(cfg model.RenderConfig) {
	if cfg.IsFullScreen {
		s.setSize(s.viewport)
		return
	}
	s.setSize(s.base)
}

func (s *Surface) setSize(size model.Viewport) {
	if size.Width <= 0 || size.Height <= 0 {
		return
	}
	if w, h := s.canvas.Size(); w == size.Width && h == size.Height {
		return
	}

	lgr.Logger.Debug("resizing canvas",
		slog.Int("width", size.Width),
		slog.Int("height", size.Height),
	)
	s.canvas.SetSize(size.Width, size.Height)
}
