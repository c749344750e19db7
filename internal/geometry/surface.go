package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"lathe/internal/model"
)

const (
	twistRate       = 0.067
	grooveAmplitude = 0.06
	waveAmplitude   = 0.15
)

// Surface is the modulation model of a double-walled solid of revolution.
// Every consumer of radii goes through it so that the mesh and the
// lightweight overhang check see identical vertex positions.
type Surface struct {
	Params        model.DesignParameters
	WallThickness float64
}

// modulate adds the twisted groove and the vertical wave to a base radius.
func (s Surface) modulate(base, phi, t float64) float64 {
	p := s.Params
	phi += p.TwistAngle * twistRate * math.Pi * t
	groove := p.TwistGrooveDepth * grooveAmplitude * math.Cos(float64(p.SegmentCount)*phi)
	wave := p.VerticalWaveDepth * waveAmplitude * math.Cos(float64(p.VerticalWaveFreq)*t)
	return base + groove + wave
}

// Outer is the outer radius at angle phi and normalized height t.
func (s Surface) Outer(phi, t float64) float64 {
	return s.modulate(s.Params.ObjectWidth, phi, t)
}

// Inner is the inner radius, offset inward by the wall thickness.
func (s Surface) Inner(phi, t float64) float64 {
	return s.modulate(s.Params.ObjectWidth-s.WallThickness, phi, t)
}

// OuterPoint places the outer-wall vertex for angle phi at station (z, t).
func (s Surface) OuterPoint(phi, t, z float64) r3.Vec {
	return polar(s.Outer(phi, t), phi, z)
}

// InnerPoint places the inner-wall vertex for angle phi at station (z, t).
func (s Surface) InnerPoint(phi, t, z float64) r3.Vec {
	return polar(s.Inner(phi, t), phi, z)
}

func polar(r, phi, z float64) r3.Vec {
	return r3.Vec{X: r * math.Cos(phi), Y: r * math.Sin(phi), Z: z}
}
