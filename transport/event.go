package transport

import "math"

// Callback is invoked with the exact time an event fires, including swing.
type Callback func(time float64) error

// Kind identifies the variant of an Event.
type Kind int

const (
	KindOneShot Kind = iota
	KindRepeating
	KindOnce
)

func (k Kind) String() string {
	switch k {
	case KindRepeating:
		return "repeat"
	case KindOnce:
		return "once"
	default:
		return "oneshot"
	}
}

// Event is a scheduled callback: *OneShot, *Repeating or *Once.
type Event interface {
	ID() int
	Kind() Kind
	// Time is the first tick the event fires at.
	Time() float64
	isEvent()
}

// OneShot fires every time the transport passes Tick, until it is cleared.
type OneShot struct {
	id       int
	Tick     int64
	Callback Callback
}

// Repeating fires every IntervalTicks starting at StartTick, for
// DurationTicks (which may be infinite).
type Repeating struct {
	id            int
	StartTick     int64
	IntervalTicks int64
	DurationTicks float64
	Callback      Callback
}

// Once fires the first time the transport reaches or passes Tick and is then removed.
type Once struct {
	id       int
	Tick     int64
	Callback Callback
}

func (e *OneShot) ID() int { return e.id }

func (e *OneShot) Kind() Kind { return KindOneShot }

func (e *OneShot) Time() float64 { return float64(e.Tick) }

func (*OneShot) isEvent() {}

func (e *Repeating) ID() int { return e.id }

func (e *Repeating) Kind() Kind { return KindRepeating }

func (e *Repeating) Time() float64 { return float64(e.StartTick) }

func (*Repeating) isEvent() {}

func (e *Once) ID() int { return e.id }

func (e *Once) Kind() Kind { return KindOnce }

func (e *Once) Time() float64 { return float64(e.Tick) }

func (*Once) isEvent() {}

// Duration is the length of the repeat in ticks.
func (e *Repeating) Duration() float64 {
	return e.DurationTicks
}

// due reports whether the repeat fires at ticks.
func (e *Repeating) due(ticks int64) bool {
	if ticks < e.StartTick || float64(ticks-e.StartTick) >= e.DurationTicks {
		return false
	}
	return (ticks-e.StartTick)%e.IntervalTicks == 0
}

// EndTick is the first tick after the repeat, or +Inf.
func (e *Repeating) EndTick() float64 {
	if math.IsInf(e.DurationTicks, 1) {
		return e.DurationTicks
	}
	return float64(e.StartTick) + e.DurationTicks
}
