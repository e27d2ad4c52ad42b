package pipeline

import (
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"
)

// transform is an axis-aligned affine transform: p' = s*p + t.
type transform struct {
	sx, sy float64
	tx, ty float64
}

var identity = transform{sx: 1, sy: 1}

func (t transform) apply(x, y float64) (float64, float64) {
	return t.sx*x + t.tx, t.sy*y + t.ty
}

// MatCanvas is a Canvas backed by a BGR OpenCV Mat.
type MatCanvas struct {
	mat   gocv.Mat
	cur   transform
	stack []transform
}

func NewMatCanvas(width, height int) *MatCanvas {
	return &MatCanvas{
		mat: gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3),
		cur: identity,
	}
}

func (c *MatCanvas) Size() (int, int) {
	return c.mat.Cols(), c.mat.Rows()
}

// SetSize reallocates the surface. Like resizing a browser canvas, it drops
// the pixels and the transform state.
func (c *MatCanvas) SetSize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	if w, h := c.Size(); w == width && h == height {
		return
	}
	c.mat.Close()
	c.mat = gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	c.cur = identity
	c.stack = nil
}

func (c *MatCanvas) Clear() {
	c.mat.SetTo(gocv.NewScalar(0, 0, 0, 0))
}

func (c *MatCanvas) Save() {
	c.stack = append(c.stack, c.cur)
}

// Restore pops the last saved transform. An unbalanced Restore is ignored.
func (c *MatCanvas) Restore() {
	if len(c.stack) == 0 {
		return
	}
	c.cur = c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
}

func (c *MatCanvas) Translate(x, y float64) {
	c.cur.tx += c.cur.sx * x
	c.cur.ty += c.cur.sy * y
}

func (c *MatCanvas) Scale(x, y float64) {
	c.cur.sx *= x
	c.cur.sy *= y
}

// DrawImage draws img scaled to width x height at the transformed origin.
func (c *MatCanvas) DrawImage(img gocv.Mat, width, height int) {
	if img.Empty() || width <= 0 || height <= 0 {
		return
	}

	bgr := gocv.NewMat()
	defer bgr.Close()
	switch img.Channels() {
	case 4:
		gocv.CvtColor(img, &bgr, gocv.ColorBGRAToBGR)
	case 1:
		gocv.CvtColor(img, &bgr, gocv.ColorGrayToBGR)
	default:
		img.CopyTo(&bgr)
	}

	scaled := gocv.NewMat()
	defer scaled.Close()
	gocv.Resize(bgr, &scaled, image.Pt(width, height), 0, 0, gocv.InterpolationLinear)

	if code, ok := flipCode(c.cur); ok {
		flipped := gocv.NewMat()
		defer flipped.Close()
		gocv.Flip(scaled, &flipped, code)
		scaled, flipped = flipped, scaled
	}

	x0, y0 := c.cur.apply(0, 0)
	x1, y1 := c.cur.apply(float64(width), float64(height))
	dst := image.Rect(
		int(math.Round(math.Min(x0, x1))), int(math.Round(math.Min(y0, y1))),
		int(math.Round(math.Max(x0, x1))), int(math.Round(math.Max(y0, y1))),
	)

	// Only scale factors of magnitude 1 are supported for images.
	if dst.Dx() != width || dst.Dy() != height {
		return
	}

	cw, ch := c.Size()
	visible := dst.Intersect(image.Rect(0, 0, cw, ch))
	if visible.Empty() {
		return
	}

	src := scaled.Region(visible.Sub(dst.Min))
	defer src.Close()
	target := c.mat.Region(visible)
	defer target.Close()
	src.CopyTo(&target)
}

func (c *MatCanvas) Line(x1, y1, x2, y2 float64, col color.RGBA, width int) {
	ax, ay := c.cur.apply(x1, y1)
	bx, by := c.cur.apply(x2, y2)
	gocv.Line(&c.mat, roundPt(ax, ay), roundPt(bx, by), col, width)
}

// Circle draws a filled circle.
func (c *MatCanvas) Circle(x, y, radius float64, col color.RGBA) {
	cx, cy := c.cur.apply(x, y)
	r := int(math.Round(radius * math.Abs(c.cur.sx)))
	if r < 1 {
		r = 1
	}
	gocv.Circle(&c.mat, roundPt(cx, cy), r, col, -1)
}

// Image returns the backing Mat. It stays owned by the canvas.
func (c *MatCanvas) Image() gocv.Mat {
	return c.mat
}

func (c *MatCanvas) Close() error {
	return c.mat.Close()
}

func flipCode(t transform) (int, bool) {
	switch {
	case t.sx < 0 && t.sy < 0:
		return -1, true
	case t.sx < 0:
		return 1, true
	case t.sy < 0:
		return 0, true
	}
	return 0, false
}

func roundPt(x, y float64) image.Point {
	return image.Pt(int(math.Round(x)), int(math.Round(y)))
}
