package canvas

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeExport(t *testing.T, uri string) image.Image {
	t.Helper()
	const prefix = "data:image/png;base64,"
	require.True(t, strings.HasPrefix(uri, prefix), uri)
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, prefix))
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	return img
}

func isDark(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r < 0x8000 && g < 0x8000 && b < 0x8000
}

func TestSurface_ExportLifecycle(t *testing.T) {
	s := New(100, 80)
	assert.Empty(t, s.ExportImage(), "fresh surface exports nothing")

	s.Stroke([]Point{{10, 40}, {50, 40}, {90, 40}})
	uri := s.ExportImage()
	require.NotEmpty(t, uri)

	img := decodeExport(t, uri)
	assert.Equal(t, image.Rect(0, 0, 100, 80), img.Bounds())
	assert.True(t, isDark(img.At(50, 40)), "stroke pixel painted")
	assert.False(t, isDark(img.At(50, 10)), "background stays white")

	s.Clear()
	assert.Empty(t, s.ExportImage())
	assert.False(t, s.HasContent())
}

func TestSurface_MoveWithoutDownPaintsNothing(t *testing.T) {
	s := New(50, 50)
	s.PointerMove(10, 10)
	s.PointerMove(40, 40)
	assert.False(t, s.HasContent())
	assert.Empty(t, s.ExportImage())
}

func TestSurface_DownMarksContent(t *testing.T) {
	s := New(50, 50)
	s.PointerDown(25, 25)
	s.PointerUp()
	assert.True(t, s.HasContent())
	assert.NotEmpty(t, s.ExportImage())
}

func TestSurface_StrokesEndOnLeave(t *testing.T) {
	s := New(100, 100)
	s.PointerDown(10, 10)
	s.PointerMove(20, 10)
	s.PointerLeave()
	s.PointerMove(90, 90)

	img := decodeExport(t, s.ExportImage())
	assert.True(t, isDark(img.At(15, 10)))
	assert.False(t, isDark(img.At(60, 55)), "move after leave must not extend the stroke")
}

func TestSurface_ResizeClears(t *testing.T) {
	s := New(100, 100)
	s.Stroke([]Point{{0, 0}, {99, 99}})
	s.Resize(200, 150)

	w, h := s.Size()
	assert.Equal(t, 200, w)
	assert.Equal(t, 150, h)
	assert.Empty(t, s.ExportImage())
}

func TestSurface_StrokeLeavingSurfaceIsClipped(t *testing.T) {
	s := New(400, 300)
	// up past the top edge, across outside, back down
	s.Stroke([]Point{{50, 50}, {50, -200}, {300, -200}, {300, 50}})
	img := decodeExport(t, s.ExportImage())

	assert.True(t, isDark(img.At(50, 20)), "inside part is painted")
	assert.True(t, isDark(img.At(300, 20)))
	for x := 60; x < 290; x += 10 {
		assert.False(t, isDark(img.At(x, 0)), "no ink dragged along the top edge at x=%d", x)
	}
}

func TestSurface_StrokeEntirelyOutsidePaintsNothing(t *testing.T) {
	s := New(200, 200)
	s.Stroke([]Point{{-100, 20}, {-100, 180}})
	img := decodeExport(t, s.ExportImage())
	for y := 0; y < 200; y += 5 {
		assert.False(t, isDark(img.At(0, y)), "left edge at y=%d", y)
	}
}

func TestSurface_LongStrokeCostFollowsShapeSize(t *testing.T) {
	s := New(600, 450)
	pts := make([]Point, MaxStrokePoints)
	for i := range pts {
		pts[i] = Point{X: float64(20 + i%560), Y: float64(20 + (i/560)*50)}
	}
	start := time.Now()
	s.Stroke(pts)
	elapsed := time.Since(start)
	assert.Less(t, elapsed, 2*time.Second, "%d-point stroke took %v", len(pts), elapsed)
	assert.True(t, s.HasContent())
}

func TestClipPolygon(t *testing.T) {
	r := image.Rect(0, 0, 10, 10)
	square := []Point{{-5, -5}, {5, -5}, {5, 5}, {-5, 5}}
	got := clipPolygon(square, r)
	require.NotEmpty(t, got)
	for _, p := range got {
		assert.True(t, p.X >= 0 && p.X <= 5 && p.Y >= 0 && p.Y <= 5, "%v", p)
	}
	assert.Empty(t, clipPolygon([]Point{{-9, -9}, {-8, -9}, {-8, -8}}, r))
}

func TestSurface_OutOfBoundsPointsDoNotPanic(t *testing.T) {
	s := New(40, 40)
	assert.NotPanics(t, func() {
		s.Stroke([]Point{{-100, -100}, {500, 500}})
	})
	assert.NotEmpty(t, s.ExportImage())
}

func TestSurface_Paste(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for x := 0; x < 10; x++ {
		for y := 0; y < 10; y++ {
			src.Set(x, y, color.Black)
		}
	}
	s := New(20, 20)
	s.Paste(src)
	img := decodeExport(t, s.ExportImage())
	assert.True(t, isDark(img.At(10, 10)))
}

func TestSurface_ImplementsHandle(t *testing.T) {
	var h Handle = New(0, 0)
	h.Clear()
	assert.Empty(t, h.ExportImage())
	w, hh := New(0, 0).Size()
	assert.Equal(t, DefaultWidth, w)
	assert.Equal(t, DefaultHeight, hh)
}
