package rhythm

import "math"

// Snapshot describes a position on the musical timeline, measured in ticks.
type Snapshot struct {
	Ticks int64
	PPQ   int
	Meter Meter
}

// Quarters returns the position in quarter notes, rounded to four decimals.
func (s Snapshot) Quarters() float64 {
	return math.Round(float64(s.Ticks)/float64(s.PPQ)*10000) / 10000
}

// Beat gets the one based beat number.
func (s Snapshot) Beat() int64 {
	return markerNumber(float64(s.Ticks), float64(s.PPQ))
}

// Bar gets the one based bar number.
func (s Snapshot) Bar() int64 {
	return markerNumber(float64(s.Ticks), s.barTicks())
}

// BeatPhase gets the progress through the current beat.
func (s Snapshot) BeatPhase() float64 {
	return markerPhase(float64(s.Ticks), float64(s.PPQ))
}

// BarPhase gets the progress through the current bar.
func (s Snapshot) BarPhase() float64 {
	return markerPhase(float64(s.Ticks), s.barTicks())
}

// BeatWithinBar returns the one based beat number relative to the start of the bar.
func (s Snapshot) BeatWithinBar() int {
	return int(math.Floor(s.Quarters()))%s.beatsPerBar() + 1
}

// IsDownBeat checks whether the snapshot falls within the first beat of its bar.
func (s Snapshot) IsDownBeat() bool {
	return s.BeatWithinBar() == 1
}

// BarsBeatsSixteenths splits the position into zero based measures, beats and
// sixteenths.
func (s Snapshot) BarsBeatsSixteenths() (int64, float64, float64) {
	return BarsBeatsSixteenths(float64(s.Ticks)/float64(s.PPQ), s.Meter.BeatsPerMeasure())
}

func (s Snapshot) barTicks() float64 {
	return s.Meter.BeatsPerMeasure() * float64(s.PPQ)
}

func (s Snapshot) beatsPerBar() int {
	beats := int(s.Meter.BeatsPerMeasure())
	if beats < 1 {
		return 1
	}
	return beats
}

// BarsBeatsSixteenths splits a number of quarter notes into measures, beats
// and sixteenths. Quarters are rounded to four decimals and sixteenths keep
// their fractional part, rounded to three. Beats are fractional when a measure
// is not a whole number of quarters, like 7/8.
func BarsBeatsSixteenths(quarters, beatsPerMeasure float64) (int64, float64, float64) {
	quarters = math.Round(quarters*10000) / 10000

	measures := int64(math.Floor(quarters / beatsPerMeasure))
	sixteenths := math.Round((quarters-math.Floor(quarters))*4*1000) / 1000
	beats := math.Mod(math.Floor(quarters), beatsPerMeasure)

	return measures, beats, sixteenths
}
