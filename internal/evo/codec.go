package evo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"lathe/internal/model"
)

// DefaultBitsPerField is the canonical gene width.
const DefaultBitsPerField = 6

var (
	ErrCodeLength = errors.New("genetic code length mismatch")
	ErrCodeSymbol = errors.New("genetic code contains a non-binary symbol")
	ErrBitWidth   = errors.New("invalid bit width")
)

// Code is a fixed-width binary string of '0' and '1'.
type Code string

func (c Code) Len() int {
	return len(c)
}

func (c Code) validate() error {
	for i := 0; i < len(c); i++ {
		if c[i] != '0' && c[i] != '1' {
			return fmt.Errorf("%w: %q at %d", ErrCodeSymbol, c[i], i)
		}
	}
	return nil
}

func levels(bits int) uint64 {
	return (uint64(1) << uint(bits)) - 1
}

// Encode quantizes x in [lo, hi] to a zero-padded code of the given width.
// Values outside the interval are clamped to the nearest end.
func Encode(x, lo, hi float64, bits int) Code {
	if bits <= 0 || bits > 63 {
		return ""
	}
	var level uint64
	if hi > lo {
		u := (x - lo) / (hi - lo)
		u = math.Max(0, math.Min(1, u))
		level = uint64(math.Round(u * float64(levels(bits))))
	}
	s := strconv.FormatUint(level, 2)
	return Code(strings.Repeat("0", bits-len(s)) + s)
}

// Decode maps a code of exactly bits symbols back into [lo, hi].
func Decode(code Code, lo, hi float64, bits int) (float64, error) {
	if bits <= 0 || bits > 63 {
		return 0, fmt.Errorf("%w: %d", ErrBitWidth, bits)
	}
	if len(code) != bits {
		return 0, fmt.Errorf("%w: got %d want %d", ErrCodeLength, len(code), bits)
	}
	if err := code.validate(); err != nil {
		return 0, err
	}
	level, err := strconv.ParseUint(string(code), 2, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCodeSymbol, err)
	}
	return lo + float64(level)/float64(levels(bits))*(hi-lo), nil
}

// Layout is the gene layout of one object class: one field code per bound,
// concatenated in bounds order.
type Layout struct {
	bounds model.Bounds
	bits   int
}

func NewLayout(bounds model.Bounds, bitsPerField int) (Layout, error) {
	if bitsPerField <= 0 || bitsPerField > 63 {
		return Layout{}, fmt.Errorf("%w: %d", ErrBitWidth, bitsPerField)
	}
	if len(bounds) == 0 {
		return Layout{}, errors.New("layout requires at least one bound")
	}
	return Layout{bounds: append(model.Bounds(nil), bounds...), bits: bitsPerField}, nil
}

func (l Layout) Bounds() model.Bounds {
	return l.bounds
}

func (l Layout) BitsPerField() int {
	return l.bits
}

// Width is the total code length.
func (l Layout) Width() int {
	return len(l.bounds) * l.bits
}

// Boundaries lists the interior positions between field codes.
func (l Layout) Boundaries() []int {
	out := make([]int, 0, len(l.bounds))
	for k := 1; k < len(l.bounds); k++ {
		out = append(out, k*l.bits)
	}
	return out
}

// Cuts returns the crossover cut candidates of the layout.
func (l Layout) Cuts() []int {
	return CandidateCuts(l.Boundaries(), l.Width())
}

// EncodeDesign clamps p into the layout bounds and concatenates its field codes.
func (l Layout) EncodeDesign(p model.DesignParameters) Code {
	var sb strings.Builder
	sb.Grow(l.Width())
	for _, b := range l.bounds {
		sb.WriteString(string(Encode(b.Clamp(p.Value(b.Field)), b.Min, b.Max, l.bits)))
	}
	return Code(sb.String())
}

// DecodeDesign splits code into field codes and decodes each. Integer fields
// are rounded to the nearest whole value.
func (l Layout) DecodeDesign(code Code) (model.DesignParameters, error) {
	if len(code) != l.Width() {
		return model.DesignParameters{}, fmt.Errorf("%w: got %d want %d", ErrCodeLength, len(code), l.Width())
	}
	var p model.DesignParameters
	for i, b := range l.bounds {
		field := code[i*l.bits : (i+1)*l.bits]
		v, err := Decode(field, b.Min, b.Max, l.bits)
		if err != nil {
			return model.DesignParameters{}, fmt.Errorf("decode %s: %w", b.Field, err)
		}
		p = p.With(b.Field, v)
	}
	return p, nil
}

// cutFractions are the positions, as fractions of the code width, that
// crossover prefers to cut near.
var cutFractions = [...]float64{1.0 / 6.0, 2.0 / 6.0, 4.0 / 6.0}

// CandidateCuts picks, for each preferred fraction of width, the nearest
// interior boundary (lower one on ties). When no boundary lies strictly inside
// (0, width), every interior bit position is a candidate.
func CandidateCuts(boundaries []int, width int) []int {
	interior := make([]int, 0, len(boundaries))
	for _, b := range boundaries {
		if b > 0 && b < width {
			interior = append(interior, b)
		}
	}
	if len(interior) == 0 {
		out := make([]int, 0, max(width-1, 0))
		for pos := 1; pos < width; pos++ {
			out = append(out, pos)
		}
		return out
	}

	seen := make(map[int]bool, len(cutFractions))
	out := make([]int, 0, len(cutFractions))
	for _, fraction := range cutFractions {
		target := fraction * float64(width)
		best := interior[0]
		for _, b := range interior[1:] {
			d := math.Abs(float64(b) - target)
			bestD := math.Abs(float64(best) - target)
			if d < bestD || (d == bestD && b < best) {
				best = b
			}
		}
		if !seen[best] {
			seen[best] = true
			out = append(out, best)
		}
	}
	return out
}
