// Package canvas is the server-side drawing surface: pointer input is
// rasterized into an RGBA image that can be exported as a PNG data URI.
package canvas

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"sync"

	xdraw "golang.org/x/image/draw"

	"github.com/Surihub/handmath/api/internal/util"
)

const (
	DefaultWidth  = 500
	DefaultHeight = 400

	StrokeWidth = 2.5

	// MaxStrokePoints bounds one replayed stroke.
	MaxStrokePoints = 4096
)

var (
	Background = color.White
	Ink        = color.Black
)

// Handle is what the session shell is allowed to do with a surface.
type Handle interface {
	Clear()
	// ExportImage returns a PNG data URI, or "" when nothing was drawn.
	ExportImage() string
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Surface struct {
	mu         sync.Mutex
	img        *image.RGBA
	drawing    bool
	last       Point
	hasContent bool
}

var _ Handle = (*Surface)(nil)

func New(w, h int) *Surface {
	s := &Surface{}
	s.reset(w, h)
	return s
}

func (s *Surface) reset(w, h int) {
	if w <= 0 {
		w = DefaultWidth
	}
	if h <= 0 {
		h = DefaultHeight
	}
	s.img = image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(s.img, s.img.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)
	s.drawing = false
	s.hasContent = false
}

func (s *Surface) Size() (w, h int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

func (s *Surface) HasContent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasContent
}

// Resize reallocates the raster. Prior content is lost.
func (s *Surface) Resize(w, h int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset(w, h)
}

func (s *Surface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.img.Bounds()
	s.reset(b.Dx(), b.Dy())
}

func (s *Surface) PointerDown(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drawing = true
	s.last = Point{x, y}
	s.hasContent = true
}

func (s *Surface) PointerMove(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.drawing {
		return
	}
	p := Point{x, y}
	paintSegment(s.img, s.last, p, StrokeWidth, Ink)
	s.last = p
}

func (s *Surface) PointerUp() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drawing = false
}

func (s *Surface) PointerLeave() { s.PointerUp() }

// Stroke replays a completed stroke.
func (s *Surface) Stroke(points []Point) {
	if len(points) == 0 {
		return
	}
	s.PointerDown(points[0].X, points[0].Y)
	for _, p := range points[1:] {
		s.PointerMove(p.X, p.Y)
	}
	s.PointerUp()
}

// Paste scales src onto the whole surface and marks it as drawn on.
func (s *Surface) Paste(src image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	xdraw.CatmullRom.Scale(s.img, s.img.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	s.drawing = false
	s.hasContent = true
}

func (s *Surface) ExportImage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasContent {
		return ""
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, s.img); err != nil {
		return ""
	}
	return util.MakeDataURL("image/png", base64.StdEncoding.EncodeToString(buf.Bytes()))
}
