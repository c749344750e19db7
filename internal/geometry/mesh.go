package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultMaxOverhangAngle is the printer's overhang limit in degrees.
const DefaultMaxOverhangAngle = 50.0

// yellowBand is how many degrees below the limit the warning ramp starts.
const yellowBand = 5.0

type Color struct {
	R, G, B, A float32
}

var (
	White = Color{R: 1, G: 1, B: 1, A: 1}
	Red   = Color{R: 1, G: 0, B: 0, A: 1}
)

// Material is the render hint handed to the viewer with a mesh.
type Material struct {
	Diffuse   Color   `json:"diffuse"`
	Shininess float64 `json:"shininess"`
}

var DefaultMaterial = Material{Diffuse: Color{R: 0.6, G: 0.8, B: 1.0, A: 1.0}, Shininess: 32.0}

// Mesh is a triangulated shell. Colors is nil unless the build was colorized.
type Mesh struct {
	Positions   []r3.Vec
	Normals     []r3.Vec
	Colors      []Color
	Triangles   [][3]int
	Material    Material
	HasOverhang bool
}

func (m Mesh) VertexCount() int {
	return len(m.Positions)
}

func (m Mesh) TriangleCount() int {
	return len(m.Triangles)
}

type BuildOptions struct {
	// Colorize paints outer wall vertices by overhang severity.
	Colorize bool
	// MaxOverhangAngle defaults to DefaultMaxOverhangAngle when <= 0.
	MaxOverhangAngle float64
}

// OverhangColor maps an overhang magnitude onto the white, yellow-to-red,
// red gradient.
func OverhangColor(magnitude, maxAngle float64) Color {
	yellowStart := maxAngle - yellowBand
	switch {
	case magnitude < yellowStart:
		return White
	case magnitude < maxAngle:
		t := (magnitude - yellowStart) / (maxAngle - yellowStart)
		return Color{R: 1, G: float32(1 - t), B: 0, A: 1}
	default:
		return Red
	}
}

// Build tessellates a capped, double-walled shell. The cap end is closed by a
// slab of CapThickness, the opposite end is open and joined by a ring wall.
// HasOverhang is set when any outer side-wall face reaches the overhang limit.
func Build(s Surface, p ShellProfile, opts BuildOptions) Mesh {
	if opts.MaxOverhangAngle <= 0 {
		opts.MaxOverhangAngle = DefaultMaxOverhangAngle
	}
	n := p.Resolution.Angular
	bands := p.Resolution.Axial
	b := &meshBuilder{opts: opts}
	b.reserve(n, bands)

	innerCap := b.buildCap(s, p)

	capStation := p.capStation()
	openSign := -p.capSign()

	outerUpper := make([]int, n)
	outerLower := make([]int, n)
	innerUpper := make([]int, n)
	innerLower := make([]int, n)

	for h := 0; h < bands; h++ {
		z1, t1 := p.Station(h)
		z2, t2 := p.Station(h + 1)

		for i := 0; i < n; i++ {
			angle := p.Angle(i)
			radial := r3.Vec{X: math.Cos(angle), Y: math.Sin(angle)}
			inward := r3.Scale(-1, radial)

			outerUpper[i] = b.addVertex(s.OuterPoint(angle, t1, z1), radial)
			outerLower[i] = b.addVertex(s.OuterPoint(angle, t2, z2), radial)

			if capStation == h {
				innerUpper[i] = innerCap[i]
			} else {
				innerUpper[i] = b.addVertex(s.InnerPoint(angle, t1, z1), inward)
			}
			if capStation == h+1 {
				innerLower[i] = innerCap[i]
			} else {
				innerLower[i] = b.addVertex(s.InnerPoint(angle, t2, z2), inward)
			}
		}

		for i := 0; i < n; i++ {
			next := (i + 1) % n
			b.shadeOuterFace(outerUpper[i], outerLower[i], outerLower[next], outerUpper[next])
			b.addTriangle(outerUpper[i], outerLower[i], outerLower[next])
			b.addTriangle(outerUpper[i], outerLower[next], outerUpper[next])
		}

		for i := 0; i < n; i++ {
			next := (i + 1) % n
			b.addTriangle(innerUpper[i], innerUpper[next], innerLower[i])
			b.addTriangle(innerLower[i], innerUpper[next], innerLower[next])
		}

		switch {
		case capStation == 0 && h == bands-1:
			b.buildRim(s, p, z2, t2, openSign)
		case capStation == bands && h == 0:
			b.buildRim(s, p, z1, t1, openSign)
		}
	}

	b.mesh.Material = DefaultMaterial
	return b.mesh
}

type meshBuilder struct {
	opts BuildOptions
	mesh Mesh
}

func (b *meshBuilder) reserve(n, bands int) {
	vertices := 4*n*bands + 4*n + 2
	b.mesh.Positions = make([]r3.Vec, 0, vertices)
	b.mesh.Normals = make([]r3.Vec, 0, vertices)
	if b.opts.Colorize {
		b.mesh.Colors = make([]Color, 0, vertices)
	}
	b.mesh.Triangles = make([][3]int, 0, 4*n*bands+4*n)
}

func (b *meshBuilder) addVertex(pos, normal r3.Vec) int {
	b.mesh.Positions = append(b.mesh.Positions, pos)
	b.mesh.Normals = append(b.mesh.Normals, normal)
	if b.opts.Colorize {
		b.mesh.Colors = append(b.mesh.Colors, White)
	}
	return len(b.mesh.Positions) - 1
}

func (b *meshBuilder) addTriangle(a, c, d int) {
	b.mesh.Triangles = append(b.mesh.Triangles, [3]int{a, c, d})
}

// fan adds a cap triangle wound so that its normal points up when up is set.
func (b *meshBuilder) fan(center, a, c int, up bool) {
	if up {
		b.addTriangle(center, a, c)
		return
	}
	b.addTriangle(center, c, a)
}

// buildCap closes the cap end with an outer disk and an inset inner disk and
// returns the inner ring, which the inner wall welds onto.
func (b *meshBuilder) buildCap(s Surface, p ShellProfile) []int {
	n := p.Resolution.Angular
	sign := p.capSign()
	z, t := p.Station(p.capStation())
	outward := r3.Vec{Z: sign}
	inward := r3.Vec{Z: -sign}

	outerRing := make([]int, n)
	for i := 0; i < n; i++ {
		outerRing[i] = b.addVertex(s.OuterPoint(p.Angle(i), t, z), outward)
	}
	center := b.addVertex(r3.Vec{Z: z}, outward)
	for i := 0; i < n; i++ {
		b.fan(center, outerRing[i], outerRing[(i+1)%n], sign > 0)
	}

	insetZ := z - sign*p.CapThickness
	innerRing := make([]int, n)
	for i := 0; i < n; i++ {
		innerRing[i] = b.addVertex(s.InnerPoint(p.Angle(i), t, insetZ), inward)
	}
	innerCenter := b.addVertex(r3.Vec{Z: insetZ}, inward)
	for i := 0; i < n; i++ {
		b.fan(innerCenter, innerRing[i], innerRing[(i+1)%n], sign < 0)
	}
	return innerRing
}

// buildRim joins the outer and inner walls across the open end.
func (b *meshBuilder) buildRim(s Surface, p ShellProfile, z, t, sign float64) {
	n := p.Resolution.Angular
	normal := r3.Vec{Z: sign}
	outer := make([]int, n)
	inner := make([]int, n)
	for i := 0; i < n; i++ {
		angle := p.Angle(i)
		outer[i] = b.addVertex(s.OuterPoint(angle, t, z), normal)
		inner[i] = b.addVertex(s.InnerPoint(angle, t, z), normal)
	}
	for i := 0; i < n; i++ {
		next := (i + 1) % n
		if sign < 0 {
			b.addTriangle(outer[i], inner[i], outer[next])
			b.addTriangle(inner[i], inner[next], outer[next])
			continue
		}
		b.addTriangle(outer[i], outer[next], inner[i])
		b.addTriangle(inner[i], outer[next], inner[next])
	}
}

// shadeOuterFace evaluates the overhang of the outer quad (upper, lower,
// lowerNext, upperNext) from its first triangle's vertex positions.
func (b *meshBuilder) shadeOuterFace(upper, lower, lowerNext, upperNext int) {
	pos := b.mesh.Positions
	tilt, ok := FaceTilt(pos[upper], pos[lower], pos[lowerNext])
	if !ok {
		return
	}
	maxAngle := b.opts.MaxOverhangAngle
	if ExceedsOverhang(tilt, maxAngle) {
		b.mesh.HasOverhang = true
	}
	if !b.opts.Colorize {
		return
	}
	color := OverhangColor(OverhangMagnitude(tilt, maxAngle), maxAngle)
	for _, idx := range [...]int{upper, lower, upperNext, lowerNext} {
		b.mesh.Colors[idx] = color
	}
}
