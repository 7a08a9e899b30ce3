package dataset

import (
	"context"
	"fmt"
	"image"
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Slab describes the focal plane light-slab views were rendered onto.
type Slab struct {
	// Width of the plane in metres. Its height follows the view aspect.
	Width float64
	// Distance from the camera plane in metres.
	Distance float64
}

// RefocusOptions configures a synthetic-aperture render.
type RefocusOptions struct {
	// Eye is the virtual camera position. The views lie in the z = 0 plane and
	// every camera, the virtual one included, looks down -z. Eye.Z may not be
	// negative.
	Eye r3.Vec
	// FocalLength and SensorWidth describe the virtual lens in metres. Zero
	// takes them from the view closest to the eye, or from the slab's field
	// of view for light-slab arrays.
	FocalLength float64
	SensorWidth float64
	// FocusBreathing places the sensor at the thin-lens image distance
	// instead of the focal length, narrowing the view as focus moves closer.
	FocusBreathing bool
	// Size of the output image. Zero uses the size of the view closest to
	// the eye.
	Size image.Point
	// Aperture is the diameter in metres of the disk on the camera plane that
	// rays are averaged over. Zero selects only the closest view.
	Aperture float64
	// FocusDistance is the distance in metres from the eye, along -z, of the
	// plane that ends up sharp.
	FocusDistance float64
	// Slab is used for light-slab arrays.
	Slab Slab
}

// ApertureDiameter converts a focal length and f-number into an aperture
// diameter in the same unit as the focal length.
func ApertureDiameter(focalLength, fNumber float64) float64 {
	return focalLength / fNumber
}

// ThinLensImageDistance is the lens-to-sensor distance that brings an object
// at distance d into focus.
func ThinLensImageDistance(focalLength, d float64) float64 {
	return focalLength * d / (d - focalLength)
}

// virtualCamera maps output pixels onto the focus plane.
type virtualCamera struct {
	eye   r3.Vec
	size  image.Point
	focus float64
	// Half extents of the output frame on the focus plane.
	halfW, halfH float64
}

func (a *Array) camera(opts RefocusOptions) (virtualCamera, error) {
	d := opts.FocusDistance
	switch {
	case len(a.Views) == 0:
		return virtualCamera{}, ErrEmpty
	case d <= 0:
		return virtualCamera{}, fmt.Errorf("focus distance must be positive, got %v", d)
	case opts.Eye.Z < 0:
		return virtualCamera{}, fmt.Errorf("eye is behind the camera plane at z=%v", opts.Eye.Z)
	case d <= opts.Eye.Z:
		return virtualCamera{}, fmt.Errorf("focus distance %v does not reach past the camera plane from z=%v", d, opts.Eye.Z)
	case a.LightSlab && (opts.Slab.Width <= 0 || opts.Slab.Distance <= 0):
		return virtualCamera{}, fmt.Errorf("light slab needs a positive plane width and distance, got %+v", opts.Slab)
	}

	ref := a.Views[a.Closest(r2.Vec{X: opts.Eye.X, Y: opts.Eye.Y}, -1)]
	size := opts.Size
	if size == (image.Point{}) {
		size = ref.Size
	}
	if size.X <= 0 || size.Y <= 0 {
		return virtualCamera{}, fmt.Errorf("output size %v is empty", size)
	}

	f, sw := ref.FocalLength, ref.SensorWidth
	if a.LightSlab {
		f, sw = opts.Slab.Distance, opts.Slab.Width
	}
	if opts.FocalLength != 0 {
		f = opts.FocalLength
	}
	if opts.SensorWidth != 0 {
		sw = opts.SensorWidth
	}
	if f <= 0 || sw <= 0 {
		return virtualCamera{}, fmt.Errorf("virtual lens needs a positive focal length and sensor width, got %v/%v", f, sw)
	}

	sensor := f
	if opts.FocusBreathing {
		if d <= f {
			return virtualCamera{}, fmt.Errorf("focus distance %v is inside the focal length %v", d, f)
		}
		sensor = ThinLensImageDistance(f, d)
	}
	halfW := sw / 2 * d / sensor
	return virtualCamera{
		eye:   opts.Eye,
		size:  size,
		focus: d,
		halfW: halfW,
		halfH: halfW * float64(size.Y) / float64(size.X),
	}, nil
}

// focusPoint returns the focus plane point seen through continuous output
// coordinates (x, y), where pixel centers sit at +0.5.
func (c virtualCamera) focusPoint(x, y float64) r3.Vec {
	nx := 2*x/float64(c.size.X) - 1
	ny := 1 - 2*y/float64(c.size.Y)
	return r3.Vec{X: c.eye.X + nx*c.halfW, Y: c.eye.Y + ny*c.halfH, Z: c.eye.Z - c.focus}
}

// uvHit returns where the ray through (x, y) crosses the camera plane.
func (c virtualCamera) uvHit(x, y float64) r2.Vec {
	p := c.focusPoint(x, y)
	t := c.eye.Z / c.focus
	return r2.Vec{X: c.eye.X + (p.X-c.eye.X)*t, Y: c.eye.Y + (p.Y-c.eye.Y)*t}
}

// uvBounds is the rectangle of camera plane hits over the whole frame.
func (c virtualCamera) uvBounds() (lo, hi r2.Vec) {
	a := c.uvHit(0, 0)
	b := c.uvHit(float64(c.size.X), float64(c.size.Y))
	lo = r2.Vec{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)}
	hi = r2.Vec{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y)}
	return lo, hi
}

// Refocus renders the array as seen by the virtual camera in opts. Each output
// pixel averages the views whose position lies within half the aperture of
// where the pixel's ray crosses the camera plane, each reprojected through the
// focus plane. Pixels no view covers use the view closest to the frame center
// on its own.
func (a *Array) Refocus(ctx context.Context, opts RefocusOptions) (*image.RGBA, error) {
	cam, err := a.camera(opts)
	if err != nil {
		return nil, err
	}
	w, h := cam.size.X, cam.size.Y
	bounds := image.Rect(0, 0, w, h)
	toView := a.reprojection(cam, opts.Slab)
	l := newLayer(bounds)

	acc := make([][4]float64, w*h)
	weight := make([]float64, w*h)
	add := func(k int) {
		p := l.rgba.Pix[4*k : 4*k+4 : 4*k+4]
		for ch := range p {
			acc[k][ch] += float64(p[ch])
		}
		weight[k]++
	}

	r := opts.Aperture / 2
	lo, hi := cam.uvBounds()
	for i, v := range a.Views {
		if r <= 0 || rectDistance(v.UV, lo, hi) > r {
			continue
		}
		if err := l.render(ctx, a, i, toView); err != nil {
			return nil, err
		}
		for y := range h {
			for x := range w {
				k := y*w + x
				if l.cover.Pix[k] == 0 {
					continue
				}
				if r2.Norm(r2.Sub(cam.uvHit(float64(x)+0.5, float64(y)+0.5), v.UV)) > r {
					continue
				}
				add(k)
			}
		}
	}

	if slices.Contains(weight, 0) {
		i := a.Closest(cam.uvHit(float64(w)/2, float64(h)/2), -1)
		if err := l.render(ctx, a, i, toView); err != nil {
			return nil, err
		}
		for k := range weight {
			if weight[k] == 0 && l.cover.Pix[k] != 0 {
				add(k)
			}
		}
	}

	out := image.NewRGBA(bounds)
	for k := range weight {
		if weight[k] == 0 {
			continue
		}
		p := out.Pix[4*k : 4*k+4 : 4*k+4]
		for ch := range p {
			p[ch] = uint8(math.Round(acc[k][ch] / weight[k]))
		}
	}
	return out, nil
}

func rectDistance(p, lo, hi r2.Vec) float64 {
	dx := math.Max(0, math.Max(lo.X-p.X, p.X-hi.X))
	dy := math.Max(0, math.Max(lo.Y-p.Y, p.Y-hi.Y))
	return math.Hypot(dx, dy)
}

// layer is one view resampled into the output frame. cover marks the pixels
// the view actually reaches.
type layer struct {
	rgba  *image.RGBA
	cover *image.Alpha
}

func newLayer(r image.Rectangle) *layer {
	return &layer{rgba: image.NewRGBA(r), cover: image.NewAlpha(r)}
}

func (l *layer) render(ctx context.Context, a *Array, i int, toView func(View) (f64.Aff3, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	img, err := a.Image(i)
	if err != nil {
		return err
	}
	d2s, err := toView(a.Views[i])
	if err != nil {
		return err
	}
	s2d, ok := invert(d2s)
	if !ok {
		return fmt.Errorf("view %s: singular reprojection", a.Views[i].Path)
	}

	clear(l.rgba.Pix)
	clear(l.cover.Pix)
	draw.BiLinear.Transform(l.rgba, s2d, img, img.Bounds(), draw.Src, nil)
	draw.NearestNeighbor.Transform(l.cover, s2d, image.Opaque, img.Bounds(), draw.Src, nil)
	return nil
}

// reprojection returns, for a source view, the affine map from output image
// coordinates to that view's image coordinates through the focus plane. Both
// use continuous coordinates with pixel centers at +0.5. Every camera looks
// down the same axis at a plane parallel to the uv plane, so the map is affine.
func (a *Array) reprojection(cam virtualCamera, slab Slab) func(View) (f64.Aff3, error) {
	if a.LightSlab {
		sw, dist := slab.Width, slab.Distance
		return func(v View) (f64.Aff3, error) {
			vw, vh := float64(v.Size.X), float64(v.Size.Y)
			sh := sw * vh / vw
			return fitAffine(func(x, y float64) (float64, float64) {
				p := cam.focusPoint(x, y)
				// Where the ray from the view through p meets the slab.
				t := dist / -p.Z
				si := v.UV.X + (p.X-v.UV.X)*t
				ti := v.UV.Y + (p.Y-v.UV.Y)*t
				return (si/sw + 0.5) * vw, (0.5 - ti/sh) * vh
			}), nil
		}
	}

	return func(v View) (f64.Aff3, error) {
		vp, err := v.ViewProjection()
		if err != nil {
			return f64.Aff3{}, err
		}
		size := [2]int{v.Size.X, v.Size.Y}
		return fitAffine(func(x, y float64) (float64, float64) {
			p := cam.focusPoint(x, y)
			// The focus plane is in front of every view.
			sx, sy, _ := Project(vp, size, mgl64.Vec3{p.X, p.Y, p.Z})
			return sx + 0.5, sy + 0.5
		}), nil
	}
}

// fitAffine recovers an affine map from its values at three points.
func fitAffine(f func(x, y float64) (float64, float64)) f64.Aff3 {
	ox, oy := f(0, 0)
	ax, ay := f(1, 0)
	bx, by := f(0, 1)
	return f64.Aff3{
		ax - ox, bx - ox, ox,
		ay - oy, by - oy, oy,
	}
}

func invert(m f64.Aff3) (f64.Aff3, bool) {
	det := m[0]*m[4] - m[1]*m[3]
	if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
		return f64.Aff3{}, false
	}
	i00, i01 := m[4]/det, -m[1]/det
	i10, i11 := -m[3]/det, m[0]/det
	return f64.Aff3{
		i00, i01, -(i00*m[2] + i01*m[5]),
		i10, i11, -(i10*m[2] + i11*m[5]),
	}, true
}
