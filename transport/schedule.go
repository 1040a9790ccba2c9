package transport

import (
	"fmt"
	"math"

	"github.com/robmorgan/pulse/timeexpr"
	"github.com/sirupsen/logrus"
)

// Schedule fires callback every time the transport reaches time, which is a
// transport time like "1m" or "2:0:0". It returns an id for Clear.
func (t *Transport) Schedule(callback Callback, time timeexpr.Value) (int, error) {
	ticks, err := t.ToTicks(time)
	if err != nil {
		return 0, err
	}

	event := &OneShot{id: t.allocateID(), Tick: ticks, Callback: callback}
	if err := t.oneShots.Add(event); err != nil {
		return 0, err
	}
	t.track(event)
	return event.id, nil
}

// ScheduleRepeat fires callback every interval from start for duration. A
// nil start means the current position and a nil duration repeats forever.
func (t *Transport) ScheduleRepeat(callback Callback, interval, start, duration timeexpr.Value) (int, error) {
	intervalTicks, err := t.ToTicks(interval)
	if err != nil {
		return 0, err
	}
	if intervalTicks <= 0 {
		return 0, fmt.Errorf("%w: %v is %d ticks", ErrInvalidInterval, interval, intervalTicks)
	}

	startTicks := t.clock.Ticks()
	if start != nil {
		if startTicks, err = t.ToTicks(start); err != nil {
			return 0, err
		}
	}

	durationTicks := math.Inf(1)
	if duration != nil {
		d, err := t.ToTicks(duration)
		if err != nil {
			return 0, err
		}
		durationTicks = float64(d)
	}

	event := &Repeating{
		id:            t.allocateID(),
		StartTick:     startTicks,
		IntervalTicks: intervalTicks,
		DurationTicks: durationTicks,
		Callback:      callback,
	}
	if err := t.repeats.Add(event); err != nil {
		return 0, err
	}
	t.track(event)
	return event.id, nil
}

// ScheduleOnce fires callback the first time the transport reaches or passes
// time, then forgets it.
func (t *Transport) ScheduleOnce(callback Callback, time timeexpr.Value) (int, error) {
	ticks, err := t.ToTicks(time)
	if err != nil {
		return 0, err
	}

	event := &Once{id: t.allocateID(), Tick: ticks, Callback: callback}
	if err := t.onces.Add(event); err != nil {
		return 0, err
	}
	t.track(event)
	return event.id, nil
}

// Clear removes a scheduled event and reports whether it existed.
func (t *Transport) Clear(id int) bool {
	event, ok := t.scheduled[id]
	if !ok {
		return false
	}
	delete(t.scheduled, id)

	switch e := event.(type) {
	case *OneShot:
		t.oneShots.Remove(e)
	case *Repeating:
		t.repeats.Remove(e)
	case *Once:
		t.onces.Remove(e)
	}
	return true
}

// Cancel removes every event that starts at or after the transport time after.
// A nil after removes everything.
func (t *Transport) Cancel(after timeexpr.Value) error {
	ticks := math.Inf(-1)
	if after != nil {
		at, err := t.ToTicks(after)
		if err != nil {
			return err
		}
		ticks = float64(at)
	}

	t.oneShots.Cancel(ticks)
	t.onces.Cancel(ticks)
	t.repeats.Cancel(ticks)

	removed := 0
	for id, event := range t.scheduled {
		if event.Time() >= ticks {
			delete(t.scheduled, id)
			removed++
		}
	}
	t.log.WithFields(logrus.Fields{"after": ticks, "removed": removed}).Debug("Cancelled events")
	return nil
}

// Event returns a scheduled event by id.
func (t *Transport) Event(id int) (Event, bool) {
	event, ok := t.scheduled[id]
	return event, ok
}

// Len returns the number of scheduled events.
func (t *Transport) Len() int {
	return len(t.scheduled)
}

func (t *Transport) allocateID() int {
	t.nextID++
	return t.nextID
}

func (t *Transport) track(event Event) {
	t.scheduled[event.ID()] = event
	t.log.WithFields(logrus.Fields{"id": event.ID(), "kind": event.Kind(), "tick": event.Time()}).Trace("Scheduled event")
}
