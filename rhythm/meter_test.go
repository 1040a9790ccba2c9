package rhythm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeter(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 4.0, CommonTime.BeatsPerMeasure())

	m, err := NewMeter(6, 8)
	require.NoError(t, err)
	assert.Equal(t, 3.0, m.BeatsPerMeasure())
	assert.Equal(t, "6/8", m.String())

	_, err = NewMeter(0, 4)
	require.Error(t, err)
}

func TestConversions(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.5, BeatsToSeconds(1, 120))
	assert.Equal(t, 2.0, SecondsToBeats(1, 120))
	assert.Equal(t, 0.5, TicksToSeconds(192, 120, 192))
	assert.Equal(t, 384.0, SecondsToTicks(1, 120, 192))
	assert.Equal(t, 384.0, TicksPerSecond(120, 192))
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	s := Snapshot{Ticks: 192*5 + 96, PPQ: 192, Meter: CommonTime}

	assert.Equal(t, int64(6), s.Beat())
	assert.Equal(t, int64(2), s.Bar())
	assert.Equal(t, 2, s.BeatWithinBar())
	assert.False(t, s.IsDownBeat())
	assert.InDelta(t, 0.5, s.BeatPhase(), 1e-9)
	assert.InDelta(t, 0.375, s.BarPhase(), 1e-9)

	bars, beats, sixteenths := s.BarsBeatsSixteenths()
	assert.Equal(t, int64(1), bars)
	assert.Equal(t, 1.0, beats)
	assert.Equal(t, 2.0, sixteenths)
}

func TestSnapshotWaltz(t *testing.T) {
	t.Parallel()

	m, err := NewMeter(3, 4)
	require.NoError(t, err)

	s := Snapshot{Ticks: 192 * 3, PPQ: 192, Meter: m}
	bars, beats, sixteenths := s.BarsBeatsSixteenths()
	assert.Equal(t, int64(1), bars)
	assert.Equal(t, 0.0, beats)
	assert.Equal(t, 0.0, sixteenths)
	assert.True(t, s.IsDownBeat())
}

func TestBarsBeatsSixteenthsOddMeter(t *testing.T) {
	t.Parallel()

	bars, beats, sixteenths := BarsBeatsSixteenths(5.25, 3.5)
	assert.Equal(t, int64(1), bars)
	assert.Equal(t, 1.5, beats)
	assert.Equal(t, 1.0, sixteenths)
}
