package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBounds() Bounds {
	return Bounds{
		{Field: FieldSegmentCount, Min: 2, Max: 9, Default: 5},
		{Field: FieldObjectWidth, Min: 1.5, Max: 4, Default: 3},
		{Field: FieldTwistAngle, Min: 0, Max: 45, Default: 20},
		{Field: FieldTwistGrooveDepth, Min: 0, Max: 5, Default: 1},
		{Field: FieldVerticalWaveFreq, Min: 0, Max: 20, Default: 3},
		{Field: FieldVerticalWaveDepth, Min: 0, Max: 5, Default: 1},
	}
}

func TestWithRoundsIntegerFields(t *testing.T) {
	p := DesignParameters{}.With(FieldSegmentCount, 4.6).With(FieldVerticalWaveFreq, 2.4)
	assert.Equal(t, 5, p.SegmentCount)
	assert.Equal(t, 2, p.VerticalWaveFreq)

	q := p.With(FieldTwistAngle, 12.5)
	assert.Equal(t, 0.0, p.TwistAngle, "With must not modify the receiver")
	assert.Equal(t, 12.5, q.TwistAngle)
}

func TestBoundsDefaultsAndClamp(t *testing.T) {
	bounds := testBounds()
	p := bounds.Defaults()
	assert.Equal(t, DesignParameters{
		SegmentCount:      5,
		ObjectWidth:       3,
		TwistAngle:        20,
		TwistGrooveDepth:  1,
		VerticalWaveFreq:  3,
		VerticalWaveDepth: 1,
	}, p)

	clamped := bounds.Clamp(DesignParameters{SegmentCount: 40, ObjectWidth: 0.2, TwistAngle: -3, VerticalWaveFreq: 21})
	assert.Equal(t, 9, clamped.SegmentCount)
	assert.Equal(t, 1.5, clamped.ObjectWidth)
	assert.Equal(t, 0.0, clamped.TwistAngle)
	assert.Equal(t, 20, clamped.VerticalWaveFreq)
}

func TestRecordUsesHumanLabels(t *testing.T) {
	p := DesignParameters{SegmentCount: 7, ObjectWidth: 2.5, TwistAngle: 30, TwistGrooveDepth: 2, VerticalWaveFreq: 4, VerticalWaveDepth: 1.5}
	rec := ToRecord("Vase", p)

	require.Len(t, rec.Parameters, 6)
	assert.Equal(t, 7.0, rec.Parameters["Segment Count"])
	assert.Equal(t, 4.0, rec.Parameters["Vertical Wave Frequency"])
	_, internal := rec.Parameters["segment_count"]
	assert.False(t, internal)

	back, err := FromRecord(rec)
	require.NoError(t, err)
	assert.Equal(t, p, back)
}

func TestFromRecordRejectsMissingLabel(t *testing.T) {
	rec := ToRecord("Stool", DesignParameters{SegmentCount: 3})
	delete(rec.Parameters, "Twist Angle")

	_, err := FromRecord(rec)
	require.ErrorIs(t, err, ErrMissingLabel)
	assert.Contains(t, err.Error(), "Twist Angle")
}

func TestFieldByLabelAcceptsInternalNames(t *testing.T) {
	f, ok := FieldByLabel("vertical_wave_depth")
	require.True(t, ok)
	assert.Equal(t, FieldVerticalWaveDepth, f)

	_, ok = FieldByLabel("Wall Thickness")
	assert.False(t, ok)
}
