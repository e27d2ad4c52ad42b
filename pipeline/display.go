package pipeline

import (
	"log/slog"
	"sync"
	"time"

	"github.com/khaledhikmat/pose-go/service/lgr"
	"gocv.io/x/gocv"
)

type windowDisplay struct {
	title  string
	window *gocv.Window
}

// NewWindowDisplay shows the canvas in a desktop window. The window is
// created on the first frame, on the thread that renders.
func NewWindowDisplay(title string) Display {
	return &windowDisplay{
		title: title,
	}
}

func (d *windowDisplay) Show(img gocv.Mat) {
	if img.Empty() {
		return
	}
	if d.window == nil {
		d.window = gocv.NewWindow(d.title)
	}
	d.window.IMShow(img)
	d.window.WaitKey(1)
}

func (d *windowDisplay) Close() error {
	if d.window == nil {
		return nil
	}
	err := d.window.Close()
	d.window = nil
	return err
}

// Snapshot keeps the latest canvas as a JPEG for HTTP readers.
type Snapshot struct {
	quality  int
	interval time.Duration

	mu      sync.RWMutex
	jpeg    []byte
	encoded time.Time
}

func NewSnapshot(quality int, interval time.Duration) *Snapshot {
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	return &Snapshot{
		quality:  quality,
		interval: interval,
	}
}

func (s *Snapshot) Show(img gocv.Mat) {
	if img.Empty() {
		return
	}

	s.mu.RLock()
	fresh := time.Since(s.encoded) < s.interval
	s.mu.RUnlock()
	if fresh {
		return
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{int(gocv.IMWriteJpegQuality), s.quality})
	if err != nil {
		lgr.Logger.Warn("snapshot encoding failed", slog.Any("error", err))
		return
	}
	defer buf.Close()

	data := append([]byte(nil), buf.GetBytes()...)

	s.mu.Lock()
	s.jpeg = data
	s.encoded = time.Now()
	s.mu.Unlock()
}

// JPEG returns the latest encoded canvas, or nil before the first frame.
func (s *Snapshot) JPEG() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jpeg
}

func (s *Snapshot) Close() error {
	return nil
}
