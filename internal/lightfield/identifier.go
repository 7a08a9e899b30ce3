package lightfield

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidIdentifier is returned when a file stem does not follow the
// capture naming scheme.
var ErrInvalidIdentifier = errors.New("invalid capture identifier")

const fieldSep = "_"

// Identifier holds everything encoded in the name of a captured view.
// FocalLength and SensorWidth are only meaningful when HasLens is set.
type Identifier struct {
	Name        string
	Row         int
	Column      int
	U           float64
	V           float64
	FocalLength float64
	SensorWidth float64
	HasLens     bool
}

// FormatPolicy controls how the numeric fields of an identifier are printed.
// A precision of -1 prints the shortest representation that parses back to the
// same value.
type FormatPolicy struct {
	OffsetPrecision int  `json:"offset_precision"`
	LensPrecision   int  `json:"lens_precision"`
	OmitLens        bool `json:"omit_lens"`
}

// DefaultFormat prints every number with six decimals.
var DefaultFormat = FormatPolicy{OffsetPrecision: 6, LensPrecision: 6}

// IntegerLensFormat prints offsets with six decimals and the lens fields as integers.
var IntegerLensFormat = FormatPolicy{OffsetPrecision: 6, LensPrecision: 0}

// LightSlabFormat leaves the lens fields out.
var LightSlabFormat = FormatPolicy{OffsetPrecision: 6, OmitLens: true}

// Validate checks the precisions.
func (p FormatPolicy) Validate() error {
	if p.OffsetPrecision < -1 {
		return fmt.Errorf("offset precision %d out of range", p.OffsetPrecision)
	}
	if !p.OmitLens && p.LensPrecision < -1 {
		return fmt.Errorf("lens precision %d out of range", p.LensPrecision)
	}
	return nil
}

// Format returns the file stem for id:
//
//	name_row_column_-v_u_focallength_sensorwidth
//
// Row and column are zero padded to two digits. The lens fields are dropped
// when the policy omits them. The output never contains a negative zero: the
// center row's negated v prints as 0.000000, not -0.000000.
func (p FormatPolicy) Format(id Identifier) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s_%02d_%02d", id.Name, id.Row, id.Column)

	b.WriteString(fieldSep)
	b.WriteString(formatFloat(-id.V, p.OffsetPrecision))
	b.WriteString(fieldSep)
	b.WriteString(formatFloat(id.U, p.OffsetPrecision))

	if !p.OmitLens {
		b.WriteString(fieldSep)
		b.WriteString(formatFloat(id.FocalLength, p.LensPrecision))
		b.WriteString(fieldSep)
		b.WriteString(formatFloat(id.SensorWidth, p.LensPrecision))
	}
	return b.String()
}

func formatFloat(x float64, prec int) string {
	// -0 + 0 is +0
	x += 0
	s := strconv.FormatFloat(x, 'f', prec, 64)
	if s[0] == '-' && strings.Trim(s[1:], "0.") == "" {
		// rounded to zero
		s = s[1:]
	}
	return s
}

// ValidateName reports whether name can prefix an identifier that parses back.
func ValidateName(name string) error {
	switch {
	case name == "":
		return errors.Wrap(ErrInvalidIdentifier, "empty camera name")
	case strings.Contains(name, fieldSep):
		return errors.Wrapf(ErrInvalidIdentifier, "camera name %q contains %q", name, fieldSep)
	case strings.ContainsAny(name, `/\`):
		return errors.Wrapf(ErrInvalidIdentifier, "camera name %q contains a path separator", name)
	}
	return nil
}

// ParseIdentifier reads a file stem written by FormatPolicy.Format. Stems with
// five fields are light-slab identifiers; seven fields carry the lens.
// Empty fields (repeated separators) are ignored.
func ParseIdentifier(stem string) (Identifier, error) {
	var fields []string
	for _, f := range strings.Split(stem, fieldSep) {
		if f != "" {
			fields = append(fields, f)
		}
	}
	if len(fields) != 5 && len(fields) != 7 {
		return Identifier{}, errors.Wrapf(ErrInvalidIdentifier, "%q has %d fields", stem, len(fields))
	}

	id := Identifier{Name: fields[0]}
	var err error
	if id.Row, err = strconv.Atoi(fields[1]); err != nil {
		return Identifier{}, errors.Wrapf(ErrInvalidIdentifier, "%q row: %v", stem, err)
	}
	if id.Column, err = strconv.Atoi(fields[2]); err != nil {
		return Identifier{}, errors.Wrapf(ErrInvalidIdentifier, "%q column: %v", stem, err)
	}

	nums := make([]float64, len(fields)-3)
	for i, f := range fields[3:] {
		if nums[i], err = strconv.ParseFloat(f, 64); err != nil {
			return Identifier{}, errors.Wrapf(ErrInvalidIdentifier, "%q field %d: %v", stem, i+3, err)
		}
	}
	id.V = -nums[0] + 0
	id.U = nums[1]
	if len(nums) == 4 {
		id.FocalLength = nums[2]
		id.SensorWidth = nums[3]
		id.HasLens = true
	}
	return id, nil
}
