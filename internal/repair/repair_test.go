package repair

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lathe/internal/geometry"
	"lathe/internal/model"
	"lathe/internal/overhang"
)

func vaseBounds() model.Bounds {
	return model.Bounds{
		{Field: model.FieldSegmentCount, Min: 2, Max: 9, Default: 5},
		{Field: model.FieldObjectWidth, Min: 2, Max: 3, Default: 2.5},
		{Field: model.FieldTwistAngle, Min: 0, Max: 45, Default: 20},
		{Field: model.FieldTwistGrooveDepth, Min: 0, Max: 8, Default: 1},
		{Field: model.FieldVerticalWaveFreq, Min: 0, Max: 15, Default: 3},
		{Field: model.FieldVerticalWaveDepth, Min: 0, Max: 5, Default: 1},
	}
}

func vaseAnalyzer() overhang.LightPath {
	return overhang.LightPath{Config: overhang.Config{
		Profile: geometry.ShellProfile{
			Resolution:    geometry.DefaultResolution,
			Height:        14,
			WallThickness: 0.5,
			CapThickness:  0.2,
			CapEnd:        geometry.CapBottom,
		},
		MaxOverhangAngle: 50,
	}}
}

func steepDesign() model.DesignParameters {
	return model.DesignParameters{
		SegmentCount:      9,
		ObjectWidth:       3.0,
		TwistAngle:        40,
		TwistGrooveDepth:  4,
		VerticalWaveFreq:  15,
		VerticalWaveDepth: 4,
	}
}

func TestRepairSteepVase(t *testing.T) {
	analyzer := vaseAnalyzer()
	p := steepDesign()
	require.True(t, analyzer.HasOverhang(p))

	res, err := Sweeper{Analyzer: analyzer, Bounds: vaseBounds()}.Repair(p)
	require.NoError(t, err)
	require.Equal(t, StatusRepaired, res.Status)
	assert.Equal(t, model.FieldTwistGrooveDepth, res.Changed)
	assert.InDelta(t, 2.0, res.Parameters.TwistGrooveDepth, 1e-9)
	assert.Equal(t, p, res.Original)

	changed := 0
	for _, f := range model.Fields {
		if res.Parameters.Value(f) != p.Value(f) {
			changed++
		}
	}
	assert.Equal(t, 1, changed)
	assert.False(t, analyzer.HasOverhang(res.Parameters))
	assert.False(t, overhang.MeshPath{Config: analyzer.Config}.HasOverhang(res.Parameters))

	require.Len(t, res.Axes, 6)
	width := res.Axes[1]
	assert.Equal(t, "Object Width", width.Label)
	assert.False(t, width.Feasible)
	assert.InDelta(t, 0.25, res.Axes[3].Displacement, 1e-9)
	for _, axis := range res.Axes {
		if axis.Feasible {
			assert.GreaterOrEqual(t, axis.Displacement, res.Axes[3].Displacement)
		}
	}
	assert.Contains(t, Describe(res), "Twist Groove Depth")
}

func TestRepairSegmentCountOnlyDecreases(t *testing.T) {
	analyzer := overhang.Func(func(p model.DesignParameters) bool {
		return p.SegmentCount > 4
	})
	res, err := Sweeper{Analyzer: analyzer, Bounds: vaseBounds()}.Repair(steepDesign())
	require.NoError(t, err)
	require.Equal(t, StatusRepaired, res.Status)
	assert.Equal(t, model.FieldSegmentCount, res.Changed)
	assert.Equal(t, 4, res.Parameters.SegmentCount)
	assert.Less(t, res.Parameters.SegmentCount, steepDesign().SegmentCount)
	assert.Equal(t, 5, res.Axes[0].Evaluations)
}

func TestRepairIntegerAxisNeverSearchesUpward(t *testing.T) {
	analyzer := overhang.Func(func(p model.DesignParameters) bool {
		return p.SegmentCount < 6
	})
	p := steepDesign()
	p.SegmentCount = 4
	res, err := Sweeper{Analyzer: analyzer, Bounds: vaseBounds()[:1]}.Repair(p)
	assert.True(t, errors.Is(err, ErrInfeasible))
	assert.Equal(t, StatusInfeasible, res.Status)
	assert.Equal(t, p, res.Parameters)
	assert.Equal(t, 2, res.Axes[0].Evaluations)
}

func TestRepairTieGoesToEarlierField(t *testing.T) {
	count := model.ParameterBound{Field: model.FieldSegmentCount, Min: 0, Max: 20}
	twist := model.ParameterBound{Field: model.FieldTwistAngle, Min: 0, Max: 1}
	analyzer := overhang.Func(func(p model.DesignParameters) bool {
		return p.SegmentCount > 19 && p.TwistAngle > 0.96
	})
	p := model.DesignParameters{SegmentCount: 20, TwistAngle: 1}

	res, err := Sweeper{Analyzer: analyzer, Bounds: model.Bounds{count, twist}}.Repair(p)
	require.NoError(t, err)
	require.Equal(t, res.Axes[0].Displacement, res.Axes[1].Displacement)
	assert.Equal(t, model.FieldSegmentCount, res.Changed)
	assert.Equal(t, 19, res.Parameters.SegmentCount)
	assert.Equal(t, 1.0, res.Parameters.TwistAngle)

	res, err = Sweeper{Analyzer: analyzer, Bounds: model.Bounds{twist, count}}.Repair(p)
	require.NoError(t, err)
	assert.Equal(t, model.FieldTwistAngle, res.Changed)
	assert.InDelta(t, 0.95, res.Parameters.TwistAngle, 1e-12)
	assert.Equal(t, 20, res.Parameters.SegmentCount)
}

func TestRepairContinuousSweepReachesMinimum(t *testing.T) {
	analyzer := overhang.Func(func(p model.DesignParameters) bool {
		return p.VerticalWaveDepth > 0
	})
	bounds := model.Bounds{{Field: model.FieldVerticalWaveDepth, Min: 0, Max: 5}}
	p := model.DesignParameters{VerticalWaveDepth: 0.12}

	res, err := Sweeper{Analyzer: analyzer, Bounds: bounds}.Repair(p)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Parameters.VerticalWaveDepth)
	assert.Equal(t, 1, res.Axes[0].Evaluations)
}

func TestRepairSkipsAxisAtMinimum(t *testing.T) {
	analyzer := overhang.Func(func(model.DesignParameters) bool { return true })
	bounds := model.Bounds{{Field: model.FieldTwistAngle, Min: 0, Max: 45}}
	p := model.DesignParameters{TwistAngle: 0}

	res, err := Sweeper{Analyzer: analyzer, Bounds: bounds}.Repair(p)
	require.ErrorIs(t, err, ErrInfeasible)
	require.Len(t, res.Axes, 1)
	assert.False(t, res.Axes[0].Searchable)
	assert.Zero(t, res.Axes[0].Evaluations)
	assert.Equal(t, p, res.Parameters)
}

func TestRepairInfeasibleLeavesDesignUnmodified(t *testing.T) {
	analyzer := overhang.Func(func(model.DesignParameters) bool { return true })
	p := steepDesign()
	res, err := Sweeper{Analyzer: analyzer, Bounds: vaseBounds(), StepFraction: 0.25}.Repair(p)
	require.ErrorIs(t, err, ErrInfeasible)
	assert.Equal(t, StatusInfeasible, res.Status)
	assert.Equal(t, p, res.Parameters)
	assert.Equal(t, "", res.ChangedLabel())
	for _, axis := range res.Axes {
		assert.False(t, axis.Feasible, axis.Label)
	}
	// 0.25 steps from u=0.5 reach zero in two evaluations
	assert.Equal(t, 2, res.Axes[3].Evaluations)
}

func TestRepairFeasibleDesignIsUntouched(t *testing.T) {
	analyzer := overhang.Func(func(model.DesignParameters) bool { return false })
	p := steepDesign()
	res, err := Sweeper{Analyzer: analyzer, Bounds: vaseBounds()}.Repair(p)
	require.NoError(t, err)
	assert.Equal(t, StatusFeasible, res.Status)
	assert.Equal(t, p, res.Parameters)
	assert.Empty(t, res.Axes)
	assert.Equal(t, "feasible", Describe(res))
}
