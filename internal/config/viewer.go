package config

import (
	"bufio"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ViewerFile is the property file looked up next to a dataset.
const ViewerFile = "config.cfg"

// ErrInvalidViewer is returned for malformed or out-of-range property lines.
var ErrInvalidViewer = errors.New("invalid viewer config")

// Property is a bounded value stored in internal units. Display values are the
// internal value divided by the property's scale.
type Property struct {
	value, min, max, scale float64
}

// NewProperty returns a property from display-unit value and bounds.
func NewProperty(value, min, max, scale float64) Property {
	return Property{value: value * scale, min: min * scale, max: max * scale, scale: scale}
}

// Value is the internal value.
func (p Property) Value() float64 { return p.value }

// Min and Max bound the internal value.
func (p Property) Min() float64 { return p.min }
func (p Property) Max() float64 { return p.max }

// Range is Max - Min.
func (p Property) Range() float64 { return p.max - p.min }

// Set clamps v into range.
func (p *Property) Set(v float64) {
	p.value = math.Min(math.Max(v, p.min), p.max)
}

// Display is the value in file units.
func (p Property) Display() float64 { return p.value / p.scale }

// SetDisplay sets the value from file units, clamped.
func (p *Property) SetDisplay(v float64) { p.Set(v * p.scale) }

// DisplayBounds are Min and Max in file units.
func (p Property) DisplayBounds() (lo, hi float64) { return p.min / p.scale, p.max / p.scale }

// Normalized maps the value to [0, 1].
func (p Property) Normalized() float64 { return (p.value - p.min) / p.Range() }

// SetNormalized sets the value from [0, 1].
func (p *Property) SetNormalized(v float64) { p.Set(p.min + v*p.Range()) }

func (p Property) valid() bool { return p.min <= p.value && p.value <= p.max }

// Viewer holds the interactive parameters of the dataset viewer. Lengths are
// metres. X, Y and Z place the virtual eye; Z is its height above the camera
// plane.
type Viewer struct {
	FocalLength   Property
	SensorWidth   Property
	FStop         Property
	FocusDistance Property
	STWidth       Property
	STDistance    Property
	X, Y, Z       Property

	// Dir is the dataset directory the config belongs to.
	Dir string
}

// DefaultViewer returns the built-in viewer parameters.
func DefaultViewer() *Viewer {
	return &Viewer{
		FocalLength:   NewProperty(50, 10, 100, 1e-3),
		SensorWidth:   NewProperty(36, 10, 100, 1e-3),
		FStop:         NewProperty(1, 0.4, 5.6, 1),
		FocusDistance: NewProperty(1, 0.5, 5, 1),
		STWidth:       NewProperty(1, 0.1, 2, 1),
		STDistance:    NewProperty(1, 0.1, 2, 1),
		X:             NewProperty(0, -3, 3, 1),
		Y:             NewProperty(0, -3, 3, 1),
		Z:             NewProperty(0.2, 0, 3, 1),
	}
}

// LoadViewer reads viewer properties. A path without a .cfg extension (a
// dataset directory or one of its images) selects config.cfg in that
// directory. A missing file yields the defaults.
//
// Each line is "name value min max"; unknown names are ignored.
func LoadViewer(path string) (*Viewer, error) {
	v := DefaultViewer()
	if filepath.Ext(path) == ".cfg" {
		v.Dir = filepath.Dir(path)
	} else {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			v.Dir = path
		} else {
			v.Dir = filepath.Dir(path)
		}
		path = filepath.Join(v.Dir, ViewerFile)
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return v, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open viewer config: %w", err)
	}
	defer f.Close()

	props := v.byName()
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		entry, ok := props[fields[0]]
		if !ok {
			continue
		}
		p, err := parseProperty(fields[1:], entry.scale)
		if err != nil {
			return nil, fmt.Errorf("%w: %s:%d: %s: %v", ErrInvalidViewer, path, line, fields[0], err)
		}
		*entry.dst = p
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read viewer config: %w", err)
	}
	return v, nil
}

type propertyEntry struct {
	dst   *Property
	scale float64
}

func (v *Viewer) byName() map[string]propertyEntry {
	return map[string]propertyEntry{
		"focal-length":   {&v.FocalLength, 1e-3},
		"sensor-size":    {&v.SensorWidth, 1e-3},
		"f-stop":         {&v.FStop, 1},
		"focus-distance": {&v.FocusDistance, 1},
		"st-width":       {&v.STWidth, 1},
		"st-distance":    {&v.STDistance, 1},
		"x":              {&v.X, 1},
		"y":              {&v.Y, 1},
		"z":              {&v.Z, 1},
	}
}

func parseProperty(fields []string, scale float64) (Property, error) {
	if len(fields) != 3 {
		return Property{}, fmt.Errorf("want value min max, got %d fields", len(fields))
	}
	var nums [3]float64
	for i, s := range fields {
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Property{}, err
		}
		nums[i] = n
	}
	p := NewProperty(nums[0], nums[1], nums[2], scale)
	if !p.valid() {
		return Property{}, fmt.Errorf("value %v outside [%v, %v]", nums[0], nums[1], nums[2])
	}
	return p, nil
}
