package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// degenerateNormal is the cross-product length below which a face has no
// usable orientation and is skipped by every overhang evaluation.
const degenerateNormal = 1e-9

// FaceTilt returns the angle between the face plane and the vertical, in
// degrees: 0 for a vertical wall, negative when the face points downward.
// ok is false for degenerate faces.
func FaceTilt(v0, v1, v2 r3.Vec) (deg float64, ok bool) {
	n := r3.Cross(r3.Sub(v1, v0), r3.Sub(v2, v0))
	length := r3.Norm(n)
	if length <= degenerateNormal {
		return 0, false
	}
	nz := math.Max(-1, math.Min(1, n.Z/length))
	return 90.0 - math.Acos(nz)*(180.0/math.Pi), true
}

// OverhangMagnitude clamps a tilt to [-maxAngle, 0] and returns its magnitude.
func OverhangMagnitude(tilt, maxAngle float64) float64 {
	return math.Abs(math.Max(-maxAngle, math.Min(0.0, tilt)))
}

// ExceedsOverhang is the printability test shared by the mesh coloring pass
// and the lightweight check. The threshold itself counts as an overhang.
func ExceedsOverhang(tilt, maxAngle float64) bool {
	return OverhangMagnitude(tilt, maxAngle) >= maxAngle
}

// OuterFace returns the three vertices of the outer side-wall face at band h
// and segment i that the overhang evaluation uses.
func OuterFace(s Surface, p ShellProfile, h, i int) (v0, v1, v2 r3.Vec) {
	z1, t1 := p.Station(h)
	z2, t2 := p.Station(h + 1)
	a1 := p.Angle(i)
	a2 := p.Angle(i + 1)
	return s.OuterPoint(a1, t1, z1), s.OuterPoint(a1, t2, z2), s.OuterPoint(a2, t2, z2)
}
