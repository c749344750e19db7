package geometry

import (
	"fmt"
	"math"
)

// CapEnd selects which end of the shell is closed.
type CapEnd string

const (
	CapTop    CapEnd = "top"
	CapBottom CapEnd = "bottom"
)

// Resolution is the tessellation of the shell: Angular segments around the
// axis and Axial bands along it.
type Resolution struct {
	Angular int `yaml:"angular" json:"angular" validate:"gte=3"`
	Axial   int `yaml:"axial" json:"axial" validate:"gte=1"`
}

// DefaultResolution matches the resolution the printability threshold was
// tuned against.
var DefaultResolution = Resolution{Angular: 50, Axial: 40}

// ShellProfile holds everything about a shell except its design parameters.
type ShellProfile struct {
	Resolution    Resolution
	Height        float64
	WallThickness float64
	CapThickness  float64
	CapEnd        CapEnd
}

func (p ShellProfile) Validate() error {
	if p.Resolution.Angular < 3 {
		return fmt.Errorf("angular resolution must be >= 3, got %d", p.Resolution.Angular)
	}
	if p.Resolution.Axial < 1 {
		return fmt.Errorf("axial resolution must be >= 1, got %d", p.Resolution.Axial)
	}
	if p.Height <= 0 {
		return fmt.Errorf("height must be > 0")
	}
	if p.WallThickness <= 0 {
		return fmt.Errorf("wall thickness must be > 0")
	}
	if p.CapThickness < 0 || p.CapThickness >= p.Height {
		return fmt.Errorf("cap thickness must be in [0, height)")
	}
	switch p.CapEnd {
	case CapTop, CapBottom:
	default:
		return fmt.Errorf("unsupported cap end: %q", p.CapEnd)
	}
	return nil
}

// Angle is the azimuth of segment i; i wraps modulo the angular resolution.
func (p ShellProfile) Angle(i int) float64 {
	n := p.Resolution.Angular
	return (2.0 * math.Pi * float64(i%n)) / float64(n)
}

// Station returns z and the normalized height t of axial station h, where
// station 0 is the top of the shell and station Axial is the bottom.
func (p ShellProfile) Station(h int) (z, t float64) {
	n := float64(p.Resolution.Axial)
	half := p.Height / 2.0
	z = half - (p.Height*float64(h))/n
	t = 1.0 - float64(h)/n
	return z, t
}

// capStation is the station index of the closed end.
func (p ShellProfile) capStation() int {
	if p.CapEnd == CapBottom {
		return p.Resolution.Axial
	}
	return 0
}

// capSign is +1 when the cap faces up and -1 when it faces down.
func (p ShellProfile) capSign() float64 {
	if p.CapEnd == CapBottom {
		return -1
	}
	return 1
}
