package rhythm

import (
	"math"
	"testing"

	"github.com/fogleman/ease"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type constant float64

func (c constant) ValueAtTime(float64) float64 { return float64(c) }

func TestParamConstant(t *testing.T) {
	t.Parallel()

	p := NewParam(120)
	assert.Equal(t, 120.0, p.Value())
	assert.Equal(t, 120.0, p.ValueAtTime(0))
	assert.Equal(t, 120.0, p.ValueAtTime(1000))
}

func TestParamSetValueAtTime(t *testing.T) {
	t.Parallel()

	p := NewParam(120)
	require.NoError(t, p.SetValueAtTime(90, 2))

	assert.Equal(t, 120.0, p.ValueAtTime(1.999))
	assert.Equal(t, 90.0, p.ValueAtTime(2))
	assert.Equal(t, 90.0, p.ValueAtTime(10))

	p.SetValue(60)
	assert.Equal(t, 60.0, p.ValueAtTime(10))
}

func TestParamLinearRamp(t *testing.T) {
	t.Parallel()

	p := NewParam(100)
	require.NoError(t, p.SetValueAtTime(100, 1))
	require.NoError(t, p.LinearRampToValueAtTime(200, 3))

	assert.InDelta(t, 100, p.ValueAtTime(1), 1e-9)
	assert.InDelta(t, 150, p.ValueAtTime(2), 1e-9)
	assert.InDelta(t, 200, p.ValueAtTime(3), 1e-9)
	assert.InDelta(t, 200, p.ValueAtTime(4), 1e-9)
}

func TestParamRampWithoutAnchorStartsAtZero(t *testing.T) {
	t.Parallel()

	p := NewParam(0)
	require.NoError(t, p.LinearRampToValueAtTime(10, 10))
	assert.InDelta(t, 5, p.ValueAtTime(5), 1e-9)
}

func TestParamExponentialRamp(t *testing.T) {
	t.Parallel()

	p := NewParam(100)
	require.NoError(t, p.SetValueAtTime(100, 0))
	require.NoError(t, p.ExponentialRampToValueAtTime(400, 2))

	assert.InDelta(t, 200, p.ValueAtTime(1), 1e-9)
	require.ErrorIs(t, p.ExponentialRampToValueAtTime(0, 3), ErrInvalidValue)
	require.ErrorIs(t, p.ExponentialRampToValueAtTime(-1, 3), ErrInvalidValue)
}

func TestParamSetTarget(t *testing.T) {
	t.Parallel()

	p := NewParam(0)
	require.NoError(t, p.SetTargetAtTime(1, 1, 0.5))

	assert.Equal(t, 0.0, p.ValueAtTime(0.5))
	assert.InDelta(t, 1-math.Exp(-1), p.ValueAtTime(1.5), 1e-9)
	assert.InDelta(t, 1, p.ValueAtTime(100), 1e-9)
	require.ErrorIs(t, p.SetTargetAtTime(1, 2, 0), ErrInvalidValue)
}

func TestParamCurve(t *testing.T) {
	t.Parallel()

	p := NewParam(0)
	require.NoError(t, p.SetValueAtTime(0, 0))
	require.NoError(t, p.CurveToValueAtTime(10, 1, ease.InQuad))

	assert.InDelta(t, 2.5, p.ValueAtTime(0.5), 1e-9)
	assert.InDelta(t, 10, p.ValueAtTime(1), 1e-9)
}

func TestParamRampToAndCancel(t *testing.T) {
	t.Parallel()

	p := NewParam(120)
	require.NoError(t, p.RampTo(60, 4, 2))

	assert.InDelta(t, 120, p.ValueAtTime(2), 1e-9)
	assert.InDelta(t, 90, p.ValueAtTime(4), 1e-9)

	p.CancelScheduledValues(3)
	assert.InDelta(t, 120, p.ValueAtTime(4), 1e-9)
}

func TestParamRejectsNaN(t *testing.T) {
	t.Parallel()

	p := NewParam(1)
	require.ErrorIs(t, p.SetValueAtTime(math.NaN(), 1), ErrInvalidValue)
	require.Error(t, p.SetValueAtTime(1, math.NaN()))
}

func TestParamBind(t *testing.T) {
	t.Parallel()

	p := NewParam(5)
	p.Bind(constant(120), 0.5)

	require.True(t, p.Bound())
	assert.Equal(t, 0.0, p.Value())
	assert.Equal(t, 60.0, p.ValueAtTime(3))

	p.Bind(constant(100), 2)
	assert.Equal(t, 200.0, p.ValueAtTime(3))

	p.Unbind()
	require.False(t, p.Bound())
	assert.Equal(t, 5.0, p.Value())
	assert.Equal(t, 5.0, p.ValueAtTime(3))
}
