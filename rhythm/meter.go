package rhythm

import (
	"fmt"
	"math"
)

// Meter is a time signature, e.g. 3/4 or 6/8.
type Meter struct {
	Numerator   int
	Denominator int
}

// CommonTime is 4/4.
var CommonTime = Meter{Numerator: 4, Denominator: 4}

// NewMeter validates a time signature.
func NewMeter(numerator, denominator int) (Meter, error) {
	if numerator <= 0 || denominator <= 0 {
		return Meter{}, fmt.Errorf("rhythm: invalid time signature %d/%d", numerator, denominator)
	}
	return Meter{Numerator: numerator, Denominator: denominator}, nil
}

// BeatsPerMeasure is the length of a measure in quarter notes, so 6/8 has 3.
func (m Meter) BeatsPerMeasure() float64 {
	return float64(m.Numerator) / (float64(m.Denominator) / 4)
}

func (m Meter) String() string {
	return fmt.Sprintf("%d/%d", m.Numerator, m.Denominator)
}

// BeatsToSeconds calculates seconds for given beats and tempo.
func BeatsToSeconds(beats, bpm float64) float64 {
	return (60.0 / bpm) * beats
}

// SecondsToBeats is the inverse of BeatsToSeconds.
func SecondsToBeats(seconds, bpm float64) float64 {
	return seconds / (60.0 / bpm)
}

// TicksToSeconds converts a tick count at a constant tempo.
func TicksToSeconds(ticks, bpm float64, ppq int) float64 {
	return ticks * (60.0 / bpm) / float64(ppq)
}

// SecondsToTicks converts seconds to whole ticks at a constant tempo, rounding down.
func SecondsToTicks(seconds, bpm float64, ppq int) float64 {
	return math.Floor(SecondsToBeats(seconds, bpm) * float64(ppq))
}

// TicksPerSecond is the clock frequency needed to run at bpm with ppq ticks per beat.
func TicksPerSecond(bpm float64, ppq int) float64 {
	return bpm / 60.0 * float64(ppq)
}

// markerNumber calculates the one based number of the marker that contains elapsed.
func markerNumber(elapsed, interval float64) int64 {
	return int64(math.Floor(elapsed/interval)) + 1
}

// markerPhase calculates how far into its marker elapsed falls, in [0,1).
func markerPhase(elapsed, interval float64) float64 {
	ratio := elapsed / interval
	return ratio - math.Floor(ratio)
}
