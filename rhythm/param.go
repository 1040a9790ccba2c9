package rhythm

import (
	"errors"
	"fmt"
	"math"

	"github.com/fogleman/ease"
	"github.com/robmorgan/pulse/timeline"
)

// ErrInvalidValue is returned for automation that cannot be evaluated, e.g. an
// exponential ramp towards zero.
var ErrInvalidValue = errors.New("rhythm: invalid automation value")

// Source is anything that has a value at a point in time.
type Source interface {
	ValueAtTime(time float64) float64
}

type automationKind int

const (
	kindSet automationKind = iota
	kindLinear
	kindExponential
	kindTarget
	kindCurve
)

type automation struct {
	kind         automationKind
	value        float64
	at           float64
	timeConstant float64
	curve        ease.Function
}

func (a *automation) Time() float64 {
	return a.at
}

func (a *automation) isRamp() bool {
	return a.kind == kindLinear || a.kind == kindExponential || a.kind == kindCurve
}

// Param is a value that can be scheduled to change over time: step changes,
// linear and exponential ramps, exponential approaches and eased curves. It is
// read at evaluation time so that anything derived from it, like the length
// of a tick, follows the automation.
type Param struct {
	value  float64
	events *timeline.Timeline[*automation]
	bound  *binding
}

type binding struct {
	source  Source
	ratio   float64
	initial float64
}

// NewParam creates a Param with a constant value.
func NewParam(value float64) *Param {
	return &Param{
		value:  value,
		events: timeline.New[*automation](),
	}
}

// Value returns the unscheduled value of the param.
func (p *Param) Value() float64 {
	return p.value
}

// SetValue discards all scheduled automation and sets a constant value.
func (p *Param) SetValue(value float64) {
	p.events.Cancel(math.Inf(-1))
	p.value = value
}

// SetValueAtTime schedules a step change.
func (p *Param) SetValueAtTime(value, time float64) error {
	return p.add(&automation{kind: kindSet, value: value, at: time})
}

// LinearRampToValueAtTime ramps linearly from the previous scheduled value, reaching value at time.
func (p *Param) LinearRampToValueAtTime(value, time float64) error {
	return p.add(&automation{kind: kindLinear, value: value, at: time, curve: ease.Linear})
}

// ExponentialRampToValueAtTime ramps exponentially from the previous scheduled value, reaching value at time.
func (p *Param) ExponentialRampToValueAtTime(value, time float64) error {
	if value <= 0 {
		return fmt.Errorf("%w: exponential ramps need a positive target, got %v", ErrInvalidValue, value)
	}
	return p.add(&automation{kind: kindExponential, value: value, at: time})
}

// SetTargetAtTime starts an exponential approach towards value at time.
// After one timeConstant the param has covered ~63% of the distance.
func (p *Param) SetTargetAtTime(value, time, timeConstant float64) error {
	if timeConstant <= 0 {
		return fmt.Errorf("%w: time constant must be positive, got %v", ErrInvalidValue, timeConstant)
	}
	return p.add(&automation{kind: kindTarget, value: value, at: time, timeConstant: timeConstant})
}

// CurveToValueAtTime ramps from the previous scheduled value to value, shaped by an easing function.
func (p *Param) CurveToValueAtTime(value, time float64, curve ease.Function) error {
	if curve == nil {
		curve = ease.Linear
	}
	return p.add(&automation{kind: kindCurve, value: value, at: time, curve: curve})
}

// RampTo holds the current value at start and ramps linearly to value over duration seconds.
func (p *Param) RampTo(value, duration, start float64) error {
	if err := p.SetValueAtTime(p.ValueAtTime(start), start); err != nil {
		return err
	}
	return p.LinearRampToValueAtTime(value, start+duration)
}

// CancelScheduledValues removes all automation at or after the given time.
func (p *Param) CancelScheduledValues(after float64) {
	p.events.Cancel(after)
}

// Bind makes the param follow source scaled by ratio until Unbind is called.
func (p *Param) Bind(source Source, ratio float64) {
	initial := p.value
	if p.bound != nil {
		initial = p.bound.initial
	}
	p.bound = &binding{source: source, ratio: ratio, initial: initial}
	p.value = 0
}

// Unbind detaches the param from its source and restores the value it had before Bind.
func (p *Param) Unbind() {
	if p.bound == nil {
		return
	}
	p.value = p.bound.initial
	p.bound = nil
}

// Bound reports whether the param currently follows another source.
func (p *Param) Bound() bool {
	return p.bound != nil
}

// ValueAtTime evaluates the automation at the given time.
func (p *Param) ValueAtTime(time float64) float64 {
	if p.bound != nil {
		return p.bound.ratio * p.bound.source.ValueAtTime(time)
	}

	before, hasBefore := p.events.Get(time)
	after, hasAfter := p.events.GetAfter(time)

	if !hasBefore {
		if hasAfter && after.isRamp() && time >= 0 {
			return ramp(0, p.value, after, time)
		}
		return p.value
	}

	if hasAfter && after.isRamp() {
		return ramp(before.at, p.startValue(before), after, time)
	}

	return p.valueFrom(before, time)
}

func (p *Param) add(event *automation) error {
	if math.IsNaN(event.value) || math.IsInf(event.value, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidValue, event.value)
	}
	return p.events.Add(event)
}

// startValue is the value of the param at the moment event takes effect.
func (p *Param) startValue(event *automation) float64 {
	if event.kind != kindTarget {
		return event.value
	}
	return p.valueBefore(event)
}

// valueFrom is the value at time when event is the last automation and no ramp follows it.
func (p *Param) valueFrom(event *automation, time float64) float64 {
	if event.kind != kindTarget {
		return event.value
	}
	start := p.valueBefore(event)
	return event.value + (start-event.value)*math.Exp(-(time-event.at)/event.timeConstant)
}

func (p *Param) valueBefore(event *automation) float64 {
	previous, ok := p.events.GetBefore(event.at)
	if !ok {
		return p.value
	}
	return p.valueFrom(previous, event.at)
}

func ramp(t0, v0 float64, to *automation, time float64) float64 {
	if to.at <= t0 {
		return to.value
	}
	progress := (time - t0) / (to.at - t0)

	switch to.kind {
	case kindExponential:
		if v0 <= 0 {
			return v0
		}
		return v0 * math.Pow(to.value/v0, progress)
	default:
		return v0 + (to.value-v0)*to.curve(progress)
	}
}
