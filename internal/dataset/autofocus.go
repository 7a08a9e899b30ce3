package dataset

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrNoFocus is returned when Autofocus cannot measure a depth.
var ErrNoFocus = errors.New("autofocus found no depth")

const (
	afTemplate = 64
	afWindow   = 128
)

// Autofocus measures the depth seen at output pixel at of the virtual camera
// in opts and returns it as a focus distance from the eye.
//
// The two views closest to where the pixel's ray crosses the camera plane are
// reprojected through the current focus plane. Their residual disparity is
// found by matching a block around at inside a larger search window, and the
// two rays through the matched points are triangulated.
func (a *Array) Autofocus(ctx context.Context, at image.Point, opts RefocusOptions) (float64, error) {
	if len(a.Views) < 2 {
		return 0, errors.Wrap(ErrNoFocus, "need at least two views")
	}
	cam, err := a.camera(opts)
	if err != nil {
		return 0, err
	}
	w, h := cam.size.X, cam.size.Y
	if !at.In(image.Rect(0, 0, w, h)) {
		return 0, fmt.Errorf("autofocus point %v outside %dx%d frame", at, w, h)
	}
	half := min(afTemplate/2, w/4, h/4)
	if half < 1 {
		return 0, errors.Wrapf(ErrNoFocus, "%dx%d frame is too small", w, h)
	}
	at.X = min(max(at.X, half), w-1-half)
	at.Y = min(max(at.Y, half), h-1-half)

	x, y := float64(at.X)+0.5, float64(at.Y)+0.5
	hit := cam.uvHit(x, y)
	first := a.Closest(hit, -1)
	second := a.Closest(hit, first)

	toView := a.reprojection(cam, opts.Slab)
	l := newLayer(image.Rect(0, 0, w, h))
	if err := l.render(ctx, a, first, toView); err != nil {
		return 0, err
	}
	ref := luminance(l)
	if err := l.render(ctx, a, second, toView); err != nil {
		return 0, err
	}
	cmp := luminance(l)

	off, ok := matchBlock(ref, cmp, w, h, at, half, (afWindow-afTemplate)/2)
	if !ok {
		return 0, errors.Wrap(ErrNoFocus, "no overlap between views")
	}

	c0 := viewPosition(a.Views[first])
	c1 := viewPosition(a.Views[second])
	f0 := cam.focusPoint(x, y)
	f1 := cam.focusPoint(x+float64(off.X), y+float64(off.Y))
	p := closestPointBetweenRays(c0, r3.Sub(f0, c0), c1, r3.Sub(f1, c1))

	d := cam.eye.Z - p.Z
	if math.IsNaN(d) || math.IsInf(d, 0) || d <= cam.eye.Z {
		return 0, errors.Wrapf(ErrNoFocus, "rays meet at z=%v", p.Z)
	}
	return d, nil
}

func viewPosition(v View) r3.Vec {
	return r3.Vec{X: v.UV.X, Y: v.UV.Y}
}

// gray is a luminance image with a coverage flag per pixel.
type gray struct {
	lum     []float64
	covered []bool
}

func luminance(l *layer) gray {
	n := len(l.cover.Pix)
	g := gray{lum: make([]float64, n), covered: make([]bool, n)}
	for k := range n {
		p := l.rgba.Pix[4*k : 4*k+3 : 4*k+3]
		g.lum[k] = 0.299*float64(p[0]) + 0.587*float64(p[1]) + 0.114*float64(p[2])
		g.covered[k] = l.cover.Pix[k] != 0
	}
	return g
}

// matchBlock returns the offset within radius that minimizes the mean
// absolute difference between the block of cmp and the block of ref centered
// on at. Offsets where less than half of the block is covered in both images
// are skipped. Ties go to the smaller offset.
func matchBlock(ref, cmp gray, w, h int, at image.Point, half, radius int) (image.Point, bool) {
	side := 2*half + 1
	best := math.Inf(1)
	var off image.Point
	found := false
	for dy := -radius; dy <= radius; dy++ {
		if at.Y+dy-half < 0 || at.Y+dy+half >= h {
			continue
		}
		for dx := -radius; dx <= radius; dx++ {
			if at.X+dx-half < 0 || at.X+dx+half >= w {
				continue
			}
			var sad float64
			n := 0
			for ty := -half; ty <= half; ty++ {
				for tx := -half; tx <= half; tx++ {
					i := (at.Y+ty)*w + at.X + tx
					j := (at.Y+dy+ty)*w + at.X + dx + tx
					if !ref.covered[i] || !cmp.covered[j] {
						continue
					}
					sad += math.Abs(ref.lum[i] - cmp.lum[j])
					n++
				}
			}
			if 2*n < side*side {
				continue
			}
			score := sad / float64(n)
			if score < best || score == best && abs(dx)+abs(dy) < abs(off.X)+abs(off.Y) {
				best, off, found = score, image.Pt(dx, dy), true
			}
		}
	}
	return off, found
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// closestPointBetweenRays returns the midpoint of the shortest segment between
// the lines p0 + s*d0 and p1 + t*d1, or the midpoint of the origins when the
// lines are parallel.
func closestPointBetweenRays(p0, d0, p1, d1 r3.Vec) r3.Vec {
	a := r3.Dot(d0, d0)
	b := r3.Dot(d0, d1)
	e := r3.Dot(d1, d1)
	d := a*e - b*b
	if d == 0 {
		return r3.Scale(0.5, r3.Add(p0, p1))
	}
	r := r3.Sub(p0, p1)
	c := r3.Dot(d0, r)
	f := r3.Dot(d1, r)
	s := (b*f - c*e) / d
	t := (a*f - c*b) / d
	return r3.Scale(0.5, r3.Add(r3.Add(p0, r3.Scale(s, d0)), r3.Add(p1, r3.Scale(t, d1))))
}
