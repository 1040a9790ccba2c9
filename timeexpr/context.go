package timeexpr

import (
	"math"

	"github.com/robmorgan/pulse/rhythm"
)

// Context supplies the tempo and position an expression is evaluated against.
// A transport is the usual implementation.
type Context interface {
	// BPM is the current tempo in quarter notes per minute.
	BPM() float64
	// PPQ is the number of ticks per quarter note.
	PPQ() int
	// TimeSignature is the length of a measure in quarter notes.
	TimeSignature() float64
	SampleRate() float64
	// Now is the current scheduling time in seconds.
	Now() float64
	// Ticks is the current transport position in ticks.
	Ticks() int64
	// NextSubdivision returns the time in seconds of the next boundary of the
	// given subdivision, or 0 when nothing is playing.
	NextSubdivision(subdivision float64) float64
}

// StaticContext is a Context with fixed values, for evaluating expressions
// without a running transport.
type StaticContext struct {
	Tempo      float64
	Resolution int
	Meter      rhythm.Meter
	Rate       float64
	Time       float64
	Position   int64
	Started    bool
}

// DefaultContext returns a stopped 4/4 context at 120 BPM with 192 PPQ.
func DefaultContext() *StaticContext {
	return &StaticContext{
		Tempo:      120,
		Resolution: 192,
		Meter:      rhythm.CommonTime,
		Rate:       44100,
	}
}

func (c *StaticContext) BPM() float64 { return c.Tempo }

func (c *StaticContext) PPQ() int { return c.Resolution }

func (c *StaticContext) TimeSignature() float64 { return c.Meter.BeatsPerMeasure() }

func (c *StaticContext) SampleRate() float64 { return c.Rate }

func (c *StaticContext) Now() float64 { return c.Time }

func (c *StaticContext) Ticks() int64 { return c.Position }

func (c *StaticContext) NextSubdivision(subdivision float64) float64 {
	if !c.Started {
		return 0
	}
	position := rhythm.TicksToSeconds(float64(c.Position), c.Tempo, c.Resolution)
	remaining := subdivision - math.Mod(position, subdivision)
	if remaining == 0 {
		remaining = subdivision
	}
	return c.Time + remaining
}
