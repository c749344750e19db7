package overhang

import (
	"lathe/internal/geometry"
	"lathe/internal/model"
)

// Analyzer reports whether a design needs unsupported overhangs.
type Analyzer interface {
	Name() string
	HasOverhang(p model.DesignParameters) bool
}

// Config fixes everything about the check except the design parameters.
type Config struct {
	Profile          geometry.ShellProfile
	MaxOverhangAngle float64
}

func (c Config) maxAngle() float64 {
	if c.MaxOverhangAngle <= 0 {
		return geometry.DefaultMaxOverhangAngle
	}
	return c.MaxOverhangAngle
}

func (c Config) surface(p model.DesignParameters) geometry.Surface {
	return geometry.Surface{Params: p, WallThickness: c.Profile.WallThickness}
}

// MeshPath builds the full colored mesh and reads its overhang flag.
type MeshPath struct {
	Config Config
}

func (MeshPath) Name() string {
	return "mesh"
}

func (a MeshPath) HasOverhang(p model.DesignParameters) bool {
	m := geometry.Build(a.Config.surface(p), a.Config.Profile, geometry.BuildOptions{
		Colorize:         true,
		MaxOverhangAngle: a.Config.maxAngle(),
	})
	return m.HasOverhang
}

// LightPath scans the outer wall faces without allocating a mesh and stops
// at the first face over the limit. It must agree with MeshPath.
type LightPath struct {
	Config Config
}

func (LightPath) Name() string {
	return "light"
}

func (a LightPath) HasOverhang(p model.DesignParameters) bool {
	s := a.Config.surface(p)
	profile := a.Config.Profile
	maxAngle := a.Config.maxAngle()
	for h := 0; h < profile.Resolution.Axial; h++ {
		for i := 0; i < profile.Resolution.Angular; i++ {
			tilt, ok := geometry.FaceTilt(geometry.OuterFace(s, profile, h, i))
			if !ok {
				continue
			}
			if geometry.ExceedsOverhang(tilt, maxAngle) {
				return true
			}
		}
	}
	return false
}

// Worst returns the steepest downward tilt over all outer wall faces, in
// degrees, or 0 when no face points downward.
func Worst(cfg Config, p model.DesignParameters) float64 {
	s := cfg.surface(p)
	profile := cfg.Profile
	worst := 0.0
	for h := 0; h < profile.Resolution.Axial; h++ {
		for i := 0; i < profile.Resolution.Angular; i++ {
			tilt, ok := geometry.FaceTilt(geometry.OuterFace(s, profile, h, i))
			if ok && -tilt > worst {
				worst = -tilt
			}
		}
	}
	return worst
}

// Func adapts a plain predicate, mostly for tests.
type Func func(p model.DesignParameters) bool

func (Func) Name() string {
	return "func"
}

func (f Func) HasOverhang(p model.DesignParameters) bool {
	return f(p)
}
