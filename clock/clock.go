package clock

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/robmorgan/pulse/engine"
	"github.com/robmorgan/pulse/logger"
	"github.com/robmorgan/pulse/rhythm"
	"github.com/robmorgan/pulse/timeline"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

var (
	// ErrInvalidFrequency is returned by Tick when the rate is not a positive finite number.
	ErrInvalidFrequency = errors.New("clock: tick frequency must be positive and finite")
	// ErrOutOfOrder is returned when start or pause is scheduled before an
	// already scheduled state change.
	ErrOutOfOrder = errors.New("clock: state change scheduled out of order")
)

// Event names emitted by a Clock.
const (
	EventStart = "start"
	EventStop  = "stop"
	EventPause = "pause"
)

// Context is the part of an engine context a Clock needs.
type Context interface {
	Now() float64
	UpdateInterval() float64
	OnTick(fn func() error) int
	RemoveTick(id int)
}

// Callback is invoked once per tick with the exact time of the tick and the
// tick count before it is incremented.
type Callback func(time float64, ticks int64) error

// Clock counts ticks at a rate that may change over time. It is driven by
// the heartbeat of its context: every beat, all ticks that fall within the
// lookahead window are fired with their precise timestamps.
type Clock struct {
	ctx      Context
	rate     rhythm.Source
	callback Callback

	states    *timeline.StateTimeline
	pending   []*timeline.StateEvent
	lastState timeline.State
	ticks     int64
	nextTick  float64
	tickID    int

	emitter engine.Emitter
	log     *logrus.Entry
}

// New creates a stopped clock and registers it with ctx. rate is evaluated
// in ticks per second at the time of every tick.
func New(ctx Context, rate rhythm.Source, callback Callback) *Clock {
	c := &Clock{
		ctx:      ctx,
		rate:     rate,
		callback: callback,
		states:   timeline.NewStateTimeline(timeline.Stopped),
		log:      logger.GetComponentLogger("clock"),
	}
	c.tickID = ctx.OnTick(c.Tick)
	return c
}

// SetLogger replaces the clock's logger.
func (c *Clock) SetLogger(log *logrus.Entry) {
	c.log = log
}

// Start schedules the clock to start at time, resuming from the current tick count.
func (c *Clock) Start(time float64) error {
	return c.start(&timeline.StateEvent{State: timeline.Started, At: time})
}

// StartFrom schedules the clock to start at time with the tick count set to ticks.
func (c *Clock) StartFrom(time float64, ticks int64) error {
	return c.start(&timeline.StateEvent{State: timeline.Started, At: time, Offset: ticks, HasOffset: true})
}

func (c *Clock) start(event *timeline.StateEvent) error {
	if err := c.checkOrder(event.At); err != nil {
		return err
	}
	if c.states.StateAtTime(event.At) == timeline.Started {
		return nil
	}
	if err := c.states.Add(event); err != nil {
		return err
	}
	c.schedule(event)
	return nil
}

// Stop schedules the clock to stop at time. Any state change scheduled at or
// after time is discarded.
func (c *Clock) Stop(time float64) error {
	if math.IsNaN(time) {
		return timeline.ErrMissingTime
	}
	c.states.Cancel(time)
	c.pending = c.pending[:sort.Search(len(c.pending), func(i int) bool {
		return c.pending[i].At >= time
	})]
	event, err := c.states.SetStateAtTime(timeline.Stopped, time)
	if err != nil {
		return err
	}
	c.schedule(event)
	return nil
}

// Pause schedules the clock to pause at time if it is running then.
func (c *Clock) Pause(time float64) error {
	if err := c.checkOrder(time); err != nil {
		return err
	}
	if c.states.StateAtTime(time) != timeline.Started {
		return nil
	}
	event, err := c.states.SetStateAtTime(timeline.Paused, time)
	if err != nil {
		return err
	}
	c.schedule(event)
	return nil
}

// schedule queues event for Tick, after any queued change at the same time.
func (c *Clock) schedule(event *timeline.StateEvent) {
	i := sort.Search(len(c.pending), func(i int) bool {
		return c.pending[i].At > event.At
	})
	c.pending = slices.Insert(c.pending, i, event)
}

func (c *Clock) checkOrder(time float64) error {
	last, ok := c.states.GetAfter(time)
	if !ok {
		return nil
	}
	return fmt.Errorf("%w: %v is before the %s at %v", ErrOutOfOrder, time, last.State, last.At)
}

// StateAtTime returns the scheduled state at time.
func (c *Clock) StateAtTime(time float64) timeline.State {
	return c.states.StateAtTime(time)
}

// State returns the state at the context's current time.
func (c *Clock) State() timeline.State {
	return c.states.StateAtTime(c.ctx.Now())
}

// Ticks returns the number of ticks fired since the clock last started from zero.
func (c *Clock) Ticks() int64 {
	return c.ticks
}

func (c *Clock) SetTicks(ticks int64) {
	c.ticks = ticks
}

// NextTickTime returns the time of the next tick the clock will consider.
func (c *Clock) NextTickTime() float64 {
	return c.nextTick
}

// On registers a listener for EventStart, EventStop or EventPause. Start
// listeners receive the tick count as their offset.
func (c *Clock) On(event string, fn engine.Listener) int {
	return c.emitter.On(event, fn)
}

func (c *Clock) Off(event string, id int) bool {
	return c.emitter.Off(event, id)
}

// Dispose unregisters the clock from its context.
func (c *Clock) Dispose() {
	c.ctx.RemoveTick(c.tickID)
	c.emitter.Dispose()
	c.states.Cancel(math.Inf(-1))
	c.pending = nil
}

// Tick processes one heartbeat: every state change and tick up to the end of
// the lookahead window. State changes are applied one by one in the order
// they were scheduled, so a stop and start at the same time both take
// effect. The tick count is incremented even when the callback fails, and
// the first callback error ends the pass.
func (c *Clock) Tick() error {
	endTime := c.ctx.Now() + c.ctx.UpdateInterval()

	for {
		c.applyStates(math.Min(c.nextTick, endTime))
		if c.nextTick > endTime {
			break
		}

		if c.lastState != timeline.Started {
			// Nothing fires until the next state change, skip straight to it.
			if len(c.pending) > 0 && c.pending[0].At <= endTime {
				c.nextTick = c.pending[0].At
				continue
			}
			c.nextTick = math.Nextafter(endTime, math.Inf(1))
			break
		}

		frequency := c.rate.ValueAtTime(c.nextTick)
		if !(frequency > 0) || math.IsInf(frequency, 1) {
			return fmt.Errorf("%w: %v at %v", ErrInvalidFrequency, frequency, c.nextTick)
		}

		tickTime := c.nextTick
		c.nextTick += 1 / frequency
		if err := c.fire(tickTime); err != nil {
			return err
		}
	}

	return nil
}

func (c *Clock) fire(tickTime float64) error {
	defer func() { c.ticks++ }()

	if c.log.Logger.IsLevelEnabled(logrus.TraceLevel) {
		c.log.WithFields(logrus.Fields{"tick": c.ticks, "time": tickTime}).Trace("Tick")
	}
	return c.callback(tickTime, c.ticks)
}

func (c *Clock) applyStates(until float64) {
	for len(c.pending) > 0 && c.pending[0].At <= until {
		event := c.pending[0]
		c.pending = c.pending[1:]
		c.apply(event)
	}
}

func (c *Clock) apply(event *timeline.StateEvent) {
	changed := event.State != c.lastState
	c.lastState = event.State

	switch event.State {
	case timeline.Started:
		c.nextTick = event.At
		if event.HasOffset {
			c.ticks = event.Offset
		}
		c.log.WithFields(logrus.Fields{"time": event.At, "tick": c.ticks}).Debug("Clock started")
		c.emitter.Emit(EventStart, event.At, float64(c.ticks))
	case timeline.Stopped:
		c.ticks = 0
		if changed {
			c.log.WithField("time", event.At).Debug("Clock stopped")
			c.emitter.Emit(EventStop, event.At, 0)
		}
	case timeline.Paused:
		if changed {
			c.log.WithFields(logrus.Fields{"time": event.At, "tick": c.ticks}).Debug("Clock paused")
			c.emitter.Emit(EventPause, event.At, float64(c.ticks))
		}
	}
}
