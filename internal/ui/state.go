package ui

import (
	"context"
	"fmt"
	"image"
	"math"
	"path/filepath"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/linusmossberg/light-field-renderer/internal/config"
	"github.com/linusmossberg/light-field-renderer/internal/dataset"
)

// Mode selects what the viewer shows.
type Mode int

const (
	// ModeClosest shows the captured view nearest the chosen uv.
	ModeClosest Mode = iota
	// ModeRefocus shows a synthetic-aperture render at the chosen uv.
	ModeRefocus
)

var modeNames = []string{"Closest view", "Refocus"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// state is everything the viewer renders from. It holds no fyne objects.
type state struct {
	arr       *dataset.Array
	cfg       *config.Viewer
	uv        r2.Vec
	mode      Mode
	breathing bool
	// afPoint is the autofocus point as a fraction of the frame.
	afPoint r2.Vec
}

func newState(arr *dataset.Array, cfg *config.Viewer) *state {
	s := &state{arr: arr, cfg: cfg, afPoint: r2.Vec{X: 0.5, Y: 0.5}}
	s.setUV(r2.Vec{X: cfg.X.Value(), Y: cfg.Y.Value()})
	return s
}

// setUV moves the virtual camera, clamped to the array.
func (s *state) setUV(uv r2.Vec) {
	lo, hi := s.arr.Bounds()
	s.uv = r2.Vec{
		X: math.Min(math.Max(uv.X, lo.X), hi.X),
		Y: math.Min(math.Max(uv.Y, lo.Y), hi.Y),
	}
}

// step is the uv distance moved per key press.
func (s *state) step() float64 {
	st := math.Max(s.arr.Size.X, s.arr.Size.Y) / 20
	if st == 0 {
		return 0.01
	}
	return st
}

func (s *state) move(du, dv float64) {
	st := s.step()
	s.setUV(r2.Add(s.uv, r2.Vec{X: du * st, Y: dv * st}))
}

func (s *state) refocusOptions() dataset.RefocusOptions {
	return dataset.RefocusOptions{
		Eye:            r3.Vec{X: s.uv.X, Y: s.uv.Y, Z: s.cfg.Z.Value()},
		FocalLength:    s.cfg.FocalLength.Value(),
		SensorWidth:    s.cfg.SensorWidth.Value(),
		FocusBreathing: s.breathing,
		Size:           s.arr.Views[s.arr.Closest(s.uv, -1)].Size,
		Aperture:       dataset.ApertureDiameter(s.cfg.FocalLength.Value(), s.cfg.FStop.Value()),
		FocusDistance:  s.cfg.FocusDistance.Value(),
		Slab:           dataset.Slab{Width: s.cfg.STWidth.Value(), Distance: s.cfg.STDistance.Value()},
	}
}

// autofocus measures the depth under the autofocus point and stores it as
// the focus distance, clamped to the property's range.
func (s *state) autofocus(ctx context.Context) (float64, error) {
	opts := s.refocusOptions()
	at := image.Pt(
		min(int(s.afPoint.X*float64(opts.Size.X)), opts.Size.X-1),
		min(int(s.afPoint.Y*float64(opts.Size.Y)), opts.Size.Y-1))
	d, err := s.arr.Autofocus(ctx, at, opts)
	if err != nil {
		return 0, err
	}
	s.cfg.FocusDistance.Set(d)
	return s.cfg.FocusDistance.Value(), nil
}

// frame renders the current state and describes it for the status line.
func (s *state) frame(ctx context.Context) (image.Image, string, error) {
	switch s.mode {
	case ModeRefocus:
		opts := s.refocusOptions()
		img, err := s.arr.Refocus(ctx, opts)
		if err != nil {
			return nil, "", err
		}
		return img, fmt.Sprintf("eye (%.3f, %.3f, %.3f)  focus %.2f m  f/%.1f",
			opts.Eye.X, opts.Eye.Y, opts.Eye.Z, opts.FocusDistance, s.cfg.FStop.Value()), nil
	default:
		i := s.arr.Closest(s.uv, -1)
		img, err := s.arr.Image(i)
		if err != nil {
			return nil, "", err
		}
		v := s.arr.Views[i]
		return img, fmt.Sprintf("%s  uv (%.3f, %.3f)", filepath.Base(v.Path), v.UV.X, v.UV.Y), nil
	}
}
