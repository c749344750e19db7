package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	cubicInchMM3 = 16387.064
	// DefaultFilamentDensity is PLA in g/cm^3.
	DefaultFilamentDensity = 1.20
)

// Metrics summarizes a mesh for display next to the viewer. Lengths are in
// model units (inches), mass in grams.
type Metrics struct {
	Diameter    float64 `json:"diameter"`
	Height      float64 `json:"height"`
	Volume      float64 `json:"volume"`
	MassGrams   float64 `json:"mass_grams"`
	WaterMetric float64 `json:"water_metric"`
	TrashMetric float64 `json:"trash_metric"`
	// ToyotaMetric and FordMetric are linear in mass.
	ToyotaMetric float64 `json:"toyota_metric"`
	FordMetric   float64 `json:"ford_metric"`
}

// Measure computes bounding box, enclosed volume and printed-mass figures.
func Measure(m Mesh, density float64) Metrics {
	if density <= 0 {
		density = DefaultFilamentDensity
	}
	box := BoundingBox(m)
	volume := Volume(m)
	mass := volume * cubicInchMM3 * density / 1000
	water := mass / 9.3767
	return Metrics{
		Diameter:     box.Max.X - box.Min.X,
		Height:       box.Max.Z - box.Min.Z,
		Volume:       volume,
		MassGrams:    mass,
		WaterMetric:  water,
		TrashMetric:  water * 13 / 104,
		ToyotaMetric: 0.0023*mass + 11,
		FordMetric:   0.00138*mass + 6.56,
	}
}

// BoundingBox is the axis-aligned box around every vertex.
func BoundingBox(m Mesh) r3.Box {
	if len(m.Positions) == 0 {
		return r3.Box{}
	}
	inf := math.Inf(1)
	box := r3.Box{
		Min: r3.Vec{X: inf, Y: inf, Z: inf},
		Max: r3.Vec{X: -inf, Y: -inf, Z: -inf},
	}
	for _, v := range m.Positions {
		box.Min = r3.Vec{X: math.Min(box.Min.X, v.X), Y: math.Min(box.Min.Y, v.Y), Z: math.Min(box.Min.Z, v.Z)}
		box.Max = r3.Vec{X: math.Max(box.Max.X, v.X), Y: math.Max(box.Max.Y, v.Y), Z: math.Max(box.Max.Z, v.Z)}
	}
	return box
}

// Volume is the absolute volume enclosed by a closed triangle mesh, summed
// as signed tetrahedra against the origin.
func Volume(m Mesh) float64 {
	total := 0.0
	for _, tri := range m.Triangles {
		v0 := m.Positions[tri[0]]
		v1 := m.Positions[tri[1]]
		v2 := m.Positions[tri[2]]
		total += r3.Dot(v0, r3.Cross(v1, v2)) / 6.0
	}
	return math.Abs(total)
}
