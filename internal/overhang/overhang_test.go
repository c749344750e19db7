package overhang

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lathe/internal/geometry"
	"lathe/internal/model"
)

func stoolConfig() Config {
	return Config{
		Profile: geometry.ShellProfile{
			Resolution:    geometry.DefaultResolution,
			Height:        7.0,
			WallThickness: 0.5,
			CapThickness:  0.2,
			CapEnd:        geometry.CapTop,
		},
		MaxOverhangAngle: 50,
	}
}

func vaseConfig() Config {
	cfg := stoolConfig()
	cfg.Profile.Height = 14.0
	cfg.Profile.CapEnd = geometry.CapBottom
	return cfg
}

func paths(cfg Config) (MeshPath, LightPath) {
	return MeshPath{Config: cfg}, LightPath{Config: cfg}
}

func TestPathsAgreeOnSeedExample(t *testing.T) {
	cfg := stoolConfig()
	p := model.DesignParameters{
		SegmentCount:      5,
		ObjectWidth:       1.0,
		TwistAngle:        60,
		TwistGrooveDepth:  1.0,
		VerticalWaveFreq:  3,
		VerticalWaveDepth: 1.0,
	}
	for _, segments := range []int{1, 2, 9, 16, 50} {
		p.SegmentCount = segments
		mesh, light := paths(cfg)
		assert.Equal(t, mesh.HasOverhang(p), light.HasOverhang(p), "segment_count=%d", segments)
	}
}

func TestPathsAgreeOnRandomDesigns(t *testing.T) {
	bounds := model.Bounds{
		{Field: model.FieldSegmentCount, Min: 1, Max: 12},
		{Field: model.FieldObjectWidth, Min: 1.0, Max: 4.0},
		{Field: model.FieldTwistAngle, Min: 0, Max: 70},
		{Field: model.FieldTwistGrooveDepth, Min: 0, Max: 8},
		{Field: model.FieldVerticalWaveFreq, Min: 0, Max: 20},
		{Field: model.FieldVerticalWaveDepth, Min: 0, Max: 5},
	}
	rng := rand.New(rand.NewSource(42))

	for _, cfg := range []Config{stoolConfig(), vaseConfig()} {
		mesh, light := paths(cfg)
		overhangs := 0
		for i := 0; i < 120; i++ {
			var p model.DesignParameters
			for _, b := range bounds {
				p = p.With(b.Field, b.Denormalize(rng.Float64()))
			}
			got := light.HasOverhang(p)
			require.Equal(t, mesh.HasOverhang(p), got, "design %d: %+v", i, p)
			if got {
				overhangs++
			}
		}
		assert.Positive(t, overhangs, "sample should exercise the overhang branch")
		assert.Less(t, overhangs, 120, "sample should exercise the printable branch")
	}
}

func TestPathsAgreeAtExactThreshold(t *testing.T) {
	cfg := stoolConfig()
	p := model.DesignParameters{
		SegmentCount:      6,
		ObjectWidth:       2.0,
		TwistAngle:        25,
		TwistGrooveDepth:  2.0,
		VerticalWaveFreq:  8,
		VerticalWaveDepth: 2.0,
	}
	worst := Worst(cfg, p)
	require.Positive(t, worst)

	cfg.MaxOverhangAngle = worst
	mesh, light := paths(cfg)
	assert.True(t, light.HasOverhang(p), "a face exactly at the limit is an overhang")
	assert.True(t, mesh.HasOverhang(p))

	cfg.MaxOverhangAngle = math.Nextafter(worst, math.Inf(1))
	mesh, light = paths(cfg)
	assert.False(t, light.HasOverhang(p))
	assert.False(t, mesh.HasOverhang(p))
}

func TestSteepDesignViolates(t *testing.T) {
	p := model.DesignParameters{
		SegmentCount:      9,
		ObjectWidth:       3.0,
		TwistAngle:        40,
		TwistGrooveDepth:  4,
		VerticalWaveFreq:  15,
		VerticalWaveDepth: 4,
	}
	for _, cfg := range []Config{stoolConfig(), vaseConfig()} {
		mesh, light := paths(cfg)
		assert.True(t, light.HasOverhang(p))
		assert.True(t, mesh.HasOverhang(p))
		assert.Greater(t, Worst(cfg, p), 50.0)
	}
}

func TestPlainCylinderIsPrintable(t *testing.T) {
	p := model.DesignParameters{SegmentCount: 5, ObjectWidth: 2.0, VerticalWaveFreq: 3}
	mesh, light := paths(stoolConfig())
	assert.False(t, light.HasOverhang(p))
	assert.False(t, mesh.HasOverhang(p))
	assert.InDelta(t, 0.0, Worst(stoolConfig(), p), 1e-9)
}

func TestZeroThresholdFallsBackToDefault(t *testing.T) {
	cfg := stoolConfig()
	cfg.MaxOverhangAngle = 0
	p := model.DesignParameters{SegmentCount: 5, ObjectWidth: 2.0, TwistAngle: 10, TwistGrooveDepth: 1, VerticalWaveFreq: 3, VerticalWaveDepth: 1}
	want := LightPath{Config: stoolConfig()}.HasOverhang(p)
	assert.Equal(t, want, LightPath{Config: cfg}.HasOverhang(p))
	assert.Equal(t, want, MeshPath{Config: cfg}.HasOverhang(p))
}
