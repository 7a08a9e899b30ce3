// Package dataset reads a directory of rendered light-field views back into a
// camera array.
package dataset

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/linusmossberg/light-field-renderer/internal/lightfield"
)

// ErrEmpty is returned by Load when no usable view was found.
var ErrEmpty = errors.New("no light-field views found")

// UnitScale converts identifier offsets and lens fields (millimetres) to metres.
const UnitScale = 1e-3

// View is one camera of the array.
type View struct {
	Path       string
	Identifier lightfield.Identifier
	// UV is the camera position in metres, relative to the array center.
	UV   r2.Vec
	Size image.Point
	// FocalLength and SensorWidth are in metres; zero for light-slab views.
	FocalLength float64
	SensorWidth float64
}

// Aspect is the view's width over height.
func (v View) Aspect() float64 {
	return float64(v.Size.X) / float64(v.Size.Y)
}

// Array is a loaded camera array.
type Array struct {
	Dir   string
	Views []View
	// LightSlab is set when views carry no lens fields and are treated as
	// parallel projections onto a common plane.
	LightSlab bool
	// Size is the uv extent of the array in metres.
	Size r2.Vec

	logger *zap.SugaredLogger

	mu     sync.Mutex
	images map[int]*image.NRGBA
}

// Option configures Load.
type Option func(*Array)

// WithLogger sets the logger used to report skipped files.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(a *Array) { a.logger = logger }
}

var imageExtensions = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// IsImage reports whether path has a supported image extension.
func IsImage(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// Load scans dir for views named by lightfield identifiers.
//
// The first usable file decides whether the array is a light slab (5-field
// names) or perspective (7-field names); files of the other kind are skipped,
// as are files with unparseable names or undecodable headers. Positions are
// converted to metres and translated so the array is centered on the origin.
func Load(dir string, opts ...Option) (*Array, error) {
	a := &Array{Dir: dir, logger: zap.NewNop().Sugar(), images: map[int]*image.NRGBA{}}
	for _, opt := range opts {
		opt(a)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	minUV := r2.Vec{X: math.Inf(1), Y: math.Inf(1)}
	maxUV := r2.Vec{X: math.Inf(-1), Y: math.Inf(-1)}
	for _, e := range entries {
		if e.IsDir() || !IsImage(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		id, err := lightfield.ParseIdentifier(stem)
		if err != nil {
			a.logger.Debugw("skipping file", "path", path, "error", err)
			continue
		}
		if len(a.Views) > 0 && id.HasLens == a.LightSlab {
			a.logger.Debugw("skipping view of the other array kind", "path", path)
			continue
		}

		size, err := decodeSize(path)
		if err != nil {
			a.logger.Debugw("skipping unreadable image", "path", path, "error", err)
			continue
		}

		v := View{
			Path:       path,
			Identifier: id,
			// The stored v is the negated vertical offset; ParseIdentifier
			// already undid that.
			UV:   r2.Vec{X: id.U * UnitScale, Y: id.V * UnitScale},
			Size: size,
		}
		if id.HasLens {
			v.FocalLength = id.FocalLength * UnitScale
			v.SensorWidth = id.SensorWidth * UnitScale
		}
		if len(a.Views) == 0 {
			a.LightSlab = !id.HasLens
		}
		a.Views = append(a.Views, v)

		minUV = r2.Vec{X: math.Min(minUV.X, v.UV.X), Y: math.Min(minUV.Y, v.UV.Y)}
		maxUV = r2.Vec{X: math.Max(maxUV.X, v.UV.X), Y: math.Max(maxUV.Y, v.UV.Y)}
	}
	if len(a.Views) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrEmpty, dir)
	}

	a.Size = r2.Sub(maxUV, minUV)
	half := r2.Scale(0.5, a.Size)
	for i := range a.Views {
		a.Views[i].UV = r2.Sub(r2.Sub(a.Views[i].UV, minUV), half)
	}
	a.logger.Infow("dataset loaded", "dir", dir, "views", len(a.Views), "light_slab", a.LightSlab)
	return a, nil
}

func decodeSize(path string) (image.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Point{}, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return image.Point{}, err
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return image.Point{}, fmt.Errorf("empty image %dx%d", cfg.Width, cfg.Height)
	}
	return image.Point{X: cfg.Width, Y: cfg.Height}, nil
}

// Bounds returns the centered uv rectangle covered by the array.
func (a *Array) Bounds() (lo, hi r2.Vec) {
	half := r2.Scale(0.5, a.Size)
	return r2.Scale(-1, half), half
}

// Closest returns the index of the view nearest uv, ignoring exclude (pass -1
// to consider every view). It returns 0 when every view is excluded.
func (a *Array) Closest(uv r2.Vec, exclude int) int {
	idx := 0
	best := math.Inf(1)
	for i, v := range a.Views {
		if i == exclude {
			continue
		}
		if d := r2.Norm(r2.Sub(v.UV, uv)); d < best {
			idx, best = i, d
		}
	}
	return idx
}

// Image decodes view i. Decoded images are cached for the array's lifetime.
func (a *Array) Image(i int) (*image.NRGBA, error) {
	if i < 0 || i >= len(a.Views) {
		return nil, fmt.Errorf("view %d out of range [0, %d)", i, len(a.Views))
	}
	a.mu.Lock()
	img, ok := a.images[i]
	a.mu.Unlock()
	if ok {
		return img, nil
	}

	src, err := imaging.Open(a.Views[i].Path)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", a.Views[i].Path, err)
	}
	img = imaging.Clone(src)

	a.mu.Lock()
	a.images[i] = img
	a.mu.Unlock()
	return img, nil
}
