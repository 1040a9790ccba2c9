package transport

import (
	"math"

	"github.com/robmorgan/pulse/engine/scale"
	"github.com/robmorgan/pulse/rhythm"
	"github.com/robmorgan/pulse/timeexpr"
	"github.com/robmorgan/pulse/timeline"
)

// transportTime evaluates expressions relative to the transport position
// instead of the context time: "+4n" is a quarter note after the current
// position and "@1m" is the next measure boundary.
type transportTime struct {
	*Transport
}

func (p transportTime) Now() float64 {
	return p.Seconds()
}

func (p transportTime) NextSubdivision(subdivision float64) float64 {
	position := p.Seconds()
	if subdivision <= 0 {
		return position
	}
	return math.Ceil(position/subdivision) * subdivision
}

// ToSeconds evaluates a time expression against the context time, so "+1" is
// one second from now.
func (t *Transport) ToSeconds(v timeexpr.Value) (float64, error) {
	expr, err := timeexpr.Parse(v, timeexpr.Seconds)
	if err != nil {
		return 0, err
	}
	return expr.Seconds(t), nil
}

// ToTicks evaluates a time expression as a transport position in ticks, so
// "+4n" is a quarter note after the current position.
func (t *Transport) ToTicks(v timeexpr.Value) (int64, error) {
	expr, err := timeexpr.Parse(v, timeexpr.Seconds)
	if err != nil {
		return 0, err
	}
	return expr.Ticks(transportTime{t}), nil
}

// ToFrequency evaluates a time expression in hertz.
func (t *Transport) ToFrequency(v timeexpr.Value) (float64, error) {
	expr, err := timeexpr.Parse(v, timeexpr.Frequency)
	if err != nil {
		return 0, err
	}
	return expr.Value(t), nil
}

// Ticks returns the current position in ticks.
func (t *Transport) Ticks() int64 {
	return t.clock.Ticks()
}

// SetTicks moves the transport. While playing, listeners see a stop and a
// start at the current time so they can resynchronize.
func (t *Transport) SetTicks(ticks int64) {
	if t.clock.Ticks() == ticks {
		return
	}
	now := t.Now()
	if t.State() == timeline.Started {
		t.emitter.Emit(EventStop, now, 0)
		t.clock.SetTicks(ticks)
		t.emitter.Emit(EventStart, now, t.Seconds())
		return
	}
	t.clock.SetTicks(ticks)
}

// Seconds returns the current position in seconds at the current tempo.
func (t *Transport) Seconds() float64 {
	return t.ticksToSeconds(t.clock.Ticks())
}

func (t *Transport) SetSeconds(seconds float64) {
	t.SetTicks(int64(math.Round(rhythm.SecondsToBeats(seconds, t.BPM()) * float64(t.ppq))))
}

// Position returns the current position as "bars:beats:sixteenths".
func (t *Transport) Position() string {
	return timeexpr.FormatBarsBeatsSixteenths(float64(t.clock.Ticks())/float64(t.ppq), t.TimeSignature())
}

// SetPosition moves the transport to a position such as "2:1:0" or "3m".
func (t *Transport) SetPosition(position timeexpr.Value) error {
	return t.Seek(position)
}

// Seek moves the transport to the given transport time. Relative
// expressions like "+1m" move forward from the current position.
func (t *Transport) Seek(v timeexpr.Value) error {
	ticks, err := t.ToTicks(v)
	if err != nil {
		return err
	}
	t.SetTicks(ticks)
	return nil
}

// Snapshot returns the current position with the transport's resolution and meter.
func (t *Transport) Snapshot() rhythm.Snapshot {
	return rhythm.Snapshot{Ticks: t.clock.Ticks(), PPQ: t.ppq, Meter: t.meter}
}

// Progress returns how far through the loop the transport is, or 0 when not looping.
func (t *Transport) Progress() float64 {
	if !t.loop {
		return 0
	}
	return scale.Linear(float64(t.loopStart), float64(t.loopEnd), 0, 1)(float64(t.clock.Ticks()))
}

// NextSubdivision returns the context time of the next subdivision boundary
// of the transport position, or 0 when the transport is not playing.
func (t *Transport) NextSubdivision(subdivision float64) float64 {
	if t.State() != timeline.Started {
		return 0
	}
	now := t.clock.NextTickTime()
	position := t.Seconds()
	remaining := subdivision - math.Mod(position, subdivision)
	if remaining == 0 {
		remaining = subdivision
	}
	return now + remaining
}

func (t *Transport) ticksToSeconds(ticks int64) float64 {
	return rhythm.TicksToSeconds(float64(ticks), t.BPM(), t.ppq)
}
