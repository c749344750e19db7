package model

import (
	"errors"
	"fmt"
	"math"
)

// Field identifies one of the six design parameters.
type Field int

const (
	FieldSegmentCount Field = iota
	FieldObjectWidth
	FieldTwistAngle
	FieldTwistGrooveDepth
	FieldVerticalWaveFreq
	FieldVerticalWaveDepth
)

// Fields lists every field in canonical order.
var Fields = []Field{
	FieldSegmentCount,
	FieldObjectWidth,
	FieldTwistAngle,
	FieldTwistGrooveDepth,
	FieldVerticalWaveFreq,
	FieldVerticalWaveDepth,
}

var ErrMissingLabel = errors.New("parameter label missing from record")

// Label is the human-readable name used in persisted records.
func (f Field) Label() string {
	switch f {
	case FieldSegmentCount:
		return "Segment Count"
	case FieldObjectWidth:
		return "Object Width"
	case FieldTwistAngle:
		return "Twist Angle"
	case FieldTwistGrooveDepth:
		return "Twist Groove Depth"
	case FieldVerticalWaveFreq:
		return "Vertical Wave Frequency"
	case FieldVerticalWaveDepth:
		return "Vertical Wave Depth"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

// Name is the internal snake_case name.
func (f Field) Name() string {
	switch f {
	case FieldSegmentCount:
		return "segment_count"
	case FieldObjectWidth:
		return "object_width"
	case FieldTwistAngle:
		return "twist_angle"
	case FieldTwistGrooveDepth:
		return "twist_groove_depth"
	case FieldVerticalWaveFreq:
		return "vertical_wave_freq"
	case FieldVerticalWaveDepth:
		return "vertical_wave_depth"
	default:
		return fmt.Sprintf("field_%d", int(f))
	}
}

func (f Field) String() string {
	return f.Name()
}

// Integer reports whether the field only takes whole values.
func (f Field) Integer() bool {
	return f == FieldSegmentCount || f == FieldVerticalWaveFreq
}

// FieldByLabel resolves a human label or internal name.
func FieldByLabel(label string) (Field, bool) {
	for _, f := range Fields {
		if f.Label() == label || f.Name() == label {
			return f, true
		}
	}
	return 0, false
}

// Value returns the field as a float.
func (p DesignParameters) Value(f Field) float64 {
	switch f {
	case FieldSegmentCount:
		return float64(p.SegmentCount)
	case FieldObjectWidth:
		return p.ObjectWidth
	case FieldTwistAngle:
		return p.TwistAngle
	case FieldTwistGrooveDepth:
		return p.TwistGrooveDepth
	case FieldVerticalWaveFreq:
		return float64(p.VerticalWaveFreq)
	case FieldVerticalWaveDepth:
		return p.VerticalWaveDepth
	default:
		return math.NaN()
	}
}

// With returns a copy with one field replaced. Integer fields are rounded.
func (p DesignParameters) With(f Field, v float64) DesignParameters {
	switch f {
	case FieldSegmentCount:
		p.SegmentCount = int(math.Round(v))
	case FieldObjectWidth:
		p.ObjectWidth = v
	case FieldTwistAngle:
		p.TwistAngle = v
	case FieldTwistGrooveDepth:
		p.TwistGrooveDepth = v
	case FieldVerticalWaveFreq:
		p.VerticalWaveFreq = int(math.Round(v))
	case FieldVerticalWaveDepth:
		p.VerticalWaveDepth = v
	}
	return p
}

// ParameterBound is one ordered (label, interval, default) entry.
type ParameterBound struct {
	Field   Field
	Min     float64
	Max     float64
	Default float64
}

func (b ParameterBound) Label() string {
	return b.Field.Label()
}

// Span is Max - Min.
func (b ParameterBound) Span() float64 {
	return b.Max - b.Min
}

// Normalize maps v into unit-interval coordinates of the bound.
func (b ParameterBound) Normalize(v float64) float64 {
	return (v - b.Min) / b.Span()
}

// Denormalize maps u back to native units.
func (b ParameterBound) Denormalize(u float64) float64 {
	return b.Min + u*b.Span()
}

// Clamp limits v to [Min, Max].
func (b ParameterBound) Clamp(v float64) float64 {
	return math.Max(b.Min, math.Min(b.Max, v))
}

// Bounds is the ordered bound list of an object class. The order defines the
// gene layout and the repair sweep priority.
type Bounds []ParameterBound

// Defaults builds parameters from every bound's default value.
func (bs Bounds) Defaults() DesignParameters {
	var p DesignParameters
	for _, b := range bs {
		p = p.With(b.Field, b.Default)
	}
	return p
}

// Clamp limits every bounded field of p to its interval.
func (bs Bounds) Clamp(p DesignParameters) DesignParameters {
	for _, b := range bs {
		p = p.With(b.Field, b.Clamp(p.Value(b.Field)))
	}
	return p
}

// Lookup returns the bound of a field.
func (bs Bounds) Lookup(f Field) (ParameterBound, bool) {
	for _, b := range bs {
		if b.Field == f {
			return b, true
		}
	}
	return ParameterBound{}, false
}

// DesignRecord is the boundary form of a design: human labels, not internal names.
type DesignRecord struct {
	ObjectType string             `json:"object_type"`
	Rating     *int               `json:"rating,omitempty"`
	Parameters map[string]float64 `json:"parameters"`
}

// ToRecord labels p for persistence.
func ToRecord(objectType string, p DesignParameters) DesignRecord {
	params := make(map[string]float64, len(Fields))
	for _, f := range Fields {
		params[f.Label()] = p.Value(f)
	}
	return DesignRecord{ObjectType: objectType, Parameters: params}
}

// FromRecord translates a labeled record back into parameters. Internal names
// are accepted as aliases; every field must be present.
func FromRecord(rec DesignRecord) (DesignParameters, error) {
	var p DesignParameters
	seen := make(map[Field]bool, len(Fields))
	for key, v := range rec.Parameters {
		f, ok := FieldByLabel(key)
		if !ok {
			continue
		}
		p = p.With(f, v)
		seen[f] = true
	}
	for _, f := range Fields {
		if !seen[f] {
			return DesignParameters{}, fmt.Errorf("%w: %q", ErrMissingLabel, f.Label())
		}
	}
	return p, nil
}
