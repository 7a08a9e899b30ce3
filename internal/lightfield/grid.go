// Package lightfield describes the planar camera grid of a light-field capture
// and the identifiers used to name each captured view.
//
// Nothing in this package touches a renderer. A capture loop consumes the
// samples produced here and applies them to a host camera.
package lightfield

import (
	"iter"
	"math"

	"github.com/pkg/errors"
)

var (
	// ErrDegenerateAperture is returned when an axis has fewer than two samples,
	// which leaves the baseline undefined.
	ErrDegenerateAperture = errors.New("aperture needs at least 2 samples")
	// ErrInvalidExtent is returned for a non-positive or non-finite extent.
	ErrInvalidExtent = errors.New("aperture extent must be positive and finite")
)

// Aperture is one axis of the capture grid: its physical extent (for example
// millimetres) and the number of camera samples along it.
type Aperture struct {
	Extent float64 `json:"extent"`
	Count  int     `json:"count"`
}

// Validate reports whether the aperture can produce a baseline.
func (a Aperture) Validate() error {
	if a.Count < 2 {
		return errors.Wrapf(ErrDegenerateAperture, "count %d", a.Count)
	}
	if a.Extent <= 0 || math.IsNaN(a.Extent) || math.IsInf(a.Extent, 0) {
		return errors.Wrapf(ErrInvalidExtent, "extent %v", a.Extent)
	}
	return nil
}

// Baseline is the spacing between adjacent samples.
func (a Aperture) Baseline() float64 {
	return a.Extent / float64(a.Count-1)
}

// SameBaseline returns an aperture of count samples spaced like a. It is how an
// omitted vertical extent is filled in. a must have at least two samples.
func SameBaseline(a Aperture, count int) Aperture {
	return Aperture{Extent: a.Baseline() * float64(count-1), Count: count}
}

// Grid is a horizontal and a vertical aperture. The counts need not match.
type Grid struct {
	Horizontal Aperture `json:"horizontal"`
	Vertical   Aperture `json:"vertical"`
}

// NewGrid validates both axes and returns the grid.
func NewGrid(horizontal, vertical Aperture) (Grid, error) {
	if err := horizontal.Validate(); err != nil {
		return Grid{}, errors.Wrap(err, "horizontal")
	}
	if err := vertical.Validate(); err != nil {
		return Grid{}, errors.Wrap(err, "vertical")
	}
	return Grid{Horizontal: horizontal, Vertical: vertical}, nil
}

// Validate checks both axes.
func (g Grid) Validate() error {
	_, err := NewGrid(g.Horizontal, g.Vertical)
	return err
}

// Len is the number of samples in the grid.
func (g Grid) Len() int {
	return g.Horizontal.Count * g.Vertical.Count
}

// Sample is one camera position of the grid. U and V are measured from the grid
// center in the units of the aperture extents. Index is the row-major position
// of the sample and is stable for a given grid.
type Sample struct {
	Row    int
	Column int
	Index  int
	U      float64
	V      float64
}

// At returns the sample at the given row and column. The grid is assumed to be
// valid; use NewGrid or Validate first.
func (g Grid) At(row, column int) Sample {
	nx := float64(g.Horizontal.Count)
	ny := float64(g.Vertical.Count)

	// u decreases left to right and v increases bottom to top, so column 0 sits
	// on the +u edge and row 0 on the -v edge.
	u := ((nx - float64(column)) - (nx+1)/2) * g.Horizontal.Baseline()
	v := (float64(row) - (ny-1)/2) * g.Vertical.Baseline()

	return Sample{
		Row:    row,
		Column: column,
		Index:  row*g.Horizontal.Count + column,
		U:      u,
		V:      v,
	}
}

// Samples yields every sample in row-major order: rows (vertical) in the outer
// loop, columns (horizontal) in the inner loop. The sequence can be ranged over
// any number of times and always yields the same values.
func (g Grid) Samples() iter.Seq[Sample] {
	return func(yield func(Sample) bool) {
		for row := 0; row < g.Vertical.Count; row++ {
			for column := 0; column < g.Horizontal.Count; column++ {
				if !yield(g.At(row, column)) {
					return
				}
			}
		}
	}
}

// Enumerate validates the apertures and returns the lazy sample sequence of the
// grid they span. Invalid input is rejected before any sample is produced.
func Enumerate(horizontal, vertical Aperture) (iter.Seq[Sample], error) {
	g, err := NewGrid(horizontal, vertical)
	if err != nil {
		return nil, err
	}
	return g.Samples(), nil
}
