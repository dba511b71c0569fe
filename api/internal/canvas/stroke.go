package canvas

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/vector"
)

const discSides = 24

// paintSegment paints a line of width w from a to b with round caps, which
// also gives round joins between consecutive segments of a stroke.
// Each shape is rasterized in its own pass so overlapping windings never cancel.
func paintSegment(dst *image.RGBA, a, b Point, w float64, c color.Color) {
	r := w / 2
	src := image.NewUniform(c)

	fillPolygon(dst, disc(a, r), src)
	if a != b {
		dx, dy := b.X-a.X, b.Y-a.Y
		l := math.Hypot(dx, dy)
		nx, ny := -dy/l*r, dx/l*r
		fillPolygon(dst, []Point{
			{a.X + nx, a.Y + ny},
			{b.X + nx, b.Y + ny},
			{b.X - nx, b.Y - ny},
			{a.X - nx, a.Y - ny},
		}, src)
		fillPolygon(dst, disc(b, r), src)
	}
}

// fillPolygon rasterizes pts into the part of dst it covers only, so the
// cost follows the shape's size rather than the surface's.
func fillPolygon(dst *image.RGBA, pts []Point, src image.Image) {
	box := polyBounds(pts).Intersect(dst.Bounds())
	if box.Empty() {
		return
	}
	poly := clipPolygon(pts, box)
	if len(poly) < 3 {
		return
	}
	ox, oy := float64(box.Min.X), float64(box.Min.Y)
	z := vector.NewRasterizer(box.Dx(), box.Dy())
	z.MoveTo(float32(poly[0].X-ox), float32(poly[0].Y-oy))
	for _, p := range poly[1:] {
		z.LineTo(float32(p.X-ox), float32(p.Y-oy))
	}
	z.ClosePath()
	z.Draw(dst, box, src, box.Min)
}

func polyBounds(pts []Point) image.Rectangle {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	if math.IsNaN(minX) || math.IsNaN(minY) || math.IsInf(minX, 0) || math.IsInf(maxX, 0) ||
		math.IsInf(minY, 0) || math.IsInf(maxY, 0) {
		return image.Rectangle{}
	}
	const lim = 1 << 30
	return image.Rect(
		int(math.Max(math.Floor(minX), -lim)), int(math.Max(math.Floor(minY), -lim)),
		int(math.Min(math.Ceil(maxX), lim)), int(math.Min(math.Ceil(maxY), lim)),
	)
}

// clipPolygon cuts a convex polygon to r (Sutherland-Hodgman). Parts
// outside r are dropped, not flattened onto its edges.
func clipPolygon(pts []Point, r image.Rectangle) []Point {
	x0, y0 := float64(r.Min.X), float64(r.Min.Y)
	x1, y1 := float64(r.Max.X), float64(r.Max.Y)
	edges := []struct {
		inside func(Point) bool
		cross  func(a, b Point) Point
	}{
		{func(p Point) bool { return p.X >= x0 }, func(a, b Point) Point { return atX(a, b, x0) }},
		{func(p Point) bool { return p.X <= x1 }, func(a, b Point) Point { return atX(a, b, x1) }},
		{func(p Point) bool { return p.Y >= y0 }, func(a, b Point) Point { return atY(a, b, y0) }},
		{func(p Point) bool { return p.Y <= y1 }, func(a, b Point) Point { return atY(a, b, y1) }},
	}
	out := pts
	for _, e := range edges {
		if len(out) == 0 {
			return nil
		}
		in := out
		out = make([]Point, 0, len(in)+2)
		prev := in[len(in)-1]
		for _, cur := range in {
			switch {
			case e.inside(cur) && e.inside(prev):
				out = append(out, cur)
			case e.inside(cur):
				out = append(out, e.cross(prev, cur), cur)
			case e.inside(prev):
				out = append(out, e.cross(prev, cur))
			}
			prev = cur
		}
	}
	return out
}

func atX(a, b Point, x float64) Point {
	t := (x - a.X) / (b.X - a.X)
	return Point{x, a.Y + t*(b.Y-a.Y)}
}

func atY(a, b Point, y float64) Point {
	t := (y - a.Y) / (b.Y - a.Y)
	return Point{a.X + t*(b.X-a.X), y}
}

func disc(c Point, r float64) []Point {
	pts := make([]Point, discSides)
	for i := range pts {
		t := 2 * math.Pi * float64(i) / discSides
		pts[i] = Point{c.X + r*math.Cos(t), c.Y + r*math.Sin(t)}
	}
	return pts
}
