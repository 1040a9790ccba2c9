// Package timeline stores time-stamped events in ascending order and answers
// nearest-neighbour queries with a binary search.
package timeline

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"golang.org/x/exp/slices"
)

// ErrMissingTime is returned when an event without a usable time is added.
var ErrMissingTime = errors.New("timeline: events must have a time")

// Event is anything that can be placed on a Timeline. Events are compared by
// identity when they are removed, so pointer types are the natural choice.
type Event interface {
	comparable
	Time() float64
}

// Sequence is the ordered-storage capability shared by every timeline.
type Sequence[E Event] interface {
	Add(event E) error
	Remove(event E)
	Get(time float64) (E, bool)
	Cancel(after float64)
	Len() int
}

// Timeline is an array backed, time sorted list of events. Events added at the
// same time keep their insertion order.
//
// Removing an event while the timeline is being iterated is deferred until the
// outermost iteration has finished.
type Timeline[E Event] struct {
	events    []E
	toRemove  []E
	iterating int

	// memory is the maximum number of events retained. Zero means unbounded.
	memory int
}

// New creates an empty, unbounded timeline.
func New[E Event]() *Timeline[E] {
	return &Timeline[E]{}
}

// NewWithMemory creates a timeline that evicts its oldest events once it holds more than memory events.
func NewWithMemory[E Event](memory int) *Timeline[E] {
	return &Timeline[E]{memory: memory}
}

// Len returns the number of events on the timeline.
func (t *Timeline[E]) Len() int {
	return len(t.events)
}

// Memory returns the retention limit, zero when unbounded.
func (t *Timeline[E]) Memory() int {
	return t.memory
}

// SetMemory changes the retention limit and evicts any excess events.
func (t *Timeline[E]) SetMemory(memory int) {
	t.memory = memory
	t.evict()
}

// Add inserts the event after every event with a time less than or equal to its own.
func (t *Timeline[E]) Add(event E) error {
	at := event.Time()
	if math.IsNaN(at) {
		return fmt.Errorf("%w: got NaN", ErrMissingTime)
	}

	index := t.search(at)
	t.events = slices.Insert(t.events, index+1, event)
	t.evict()

	return nil
}

func (t *Timeline[E]) evict() {
	if t.memory > 0 && len(t.events) > t.memory {
		diff := len(t.events) - t.memory
		t.events = slices.Delete(t.events, 0, diff)
	}
}

// Remove drops the event from the timeline. It is a no-op when the event is not present.
func (t *Timeline[E]) Remove(event E) {
	if t.iterating > 0 {
		t.toRemove = append(t.toRemove, event)
		return
	}

	if index := slices.Index(t.events, event); index != -1 {
		t.events = slices.Delete(t.events, index, index+1)
	}
}

// Get returns the latest event at or before the given time. When several
// events share that time the last one added wins.
func (t *Timeline[E]) Get(time float64) (E, bool) {
	index := t.search(time)
	if index == -1 {
		var zero E
		return zero, false
	}
	return t.events[index], true
}

// Peek returns the earliest event without removing it.
func (t *Timeline[E]) Peek() (E, bool) {
	if len(t.events) == 0 {
		var zero E
		return zero, false
	}
	return t.events[0], true
}

// Shift removes and returns the earliest event.
func (t *Timeline[E]) Shift() (E, bool) {
	event, ok := t.Peek()
	if ok {
		t.events = slices.Delete(t.events, 0, 1)
	}
	return event, ok
}

// GetAfter returns the first event strictly after the given time.
func (t *Timeline[E]) GetAfter(time float64) (E, bool) {
	index := t.search(time)
	if index+1 < len(t.events) {
		return t.events[index+1], true
	}

	var zero E
	return zero, false
}

// GetBefore returns the latest event strictly before the given time.
func (t *Timeline[E]) GetBefore(time float64) (E, bool) {
	index := sort.Search(len(t.events), func(i int) bool {
		return t.events[i].Time() >= time
	}) - 1
	if index < 0 {
		var zero E
		return zero, false
	}
	return t.events[index], true
}

// Cancel discards every event at or after the given time.
func (t *Timeline[E]) Cancel(after float64) {
	index := sort.Search(len(t.events), func(i int) bool {
		return t.events[i].Time() >= after
	})
	for i := index; i < len(t.events); i++ {
		var zero E
		t.events[i] = zero
	}
	t.events = t.events[:index]
}

// CancelBefore discards every event at or before the given time.
func (t *Timeline[E]) CancelBefore(time float64) {
	index := t.search(time)
	if index >= 0 {
		t.events = slices.Delete(t.events, 0, index+1)
	}
}

// search returns the index of the last event at or before time, or -1.
func (t *Timeline[E]) search(time float64) int {
	return sort.Search(len(t.events), func(i int) bool {
		return t.events[i].Time() > time
	}) - 1
}

// iterate invokes fn for events[lower:upper+1]. The range is copied first so
// callbacks may add events without shifting the traversal.
func (t *Timeline[E]) iterate(fn func(E) error, lower, upper int) error {
	if lower < 0 {
		lower = 0
	}
	if upper >= len(t.events) {
		upper = len(t.events) - 1
	}
	if lower > upper {
		return nil
	}

	batch := make([]E, upper-lower+1)
	copy(batch, t.events[lower:upper+1])

	t.iterating++
	defer t.finishIteration()

	for _, event := range batch {
		if err := fn(event); err != nil {
			return err
		}
	}

	return nil
}

func (t *Timeline[E]) finishIteration() {
	t.iterating--
	if t.iterating > 0 || len(t.toRemove) == 0 {
		return
	}

	pending := t.toRemove
	t.toRemove = nil
	for _, event := range pending {
		t.Remove(event)
	}
}

// ForEach visits every event in time order.
func (t *Timeline[E]) ForEach(fn func(E) error) error {
	return t.iterate(fn, 0, len(t.events)-1)
}

// ForEachBefore visits every event at or before the given time.
func (t *Timeline[E]) ForEachBefore(time float64, fn func(E) error) error {
	upper := t.search(time)
	if upper == -1 {
		return nil
	}
	return t.iterate(fn, 0, upper)
}

// ForEachAfter visits every event strictly after the given time.
func (t *Timeline[E]) ForEachAfter(time float64, fn func(E) error) error {
	lower := t.search(time)
	return t.iterate(fn, lower+1, len(t.events)-1)
}

// ForEachFrom visits every event at or after the given time.
func (t *Timeline[E]) ForEachFrom(time float64, fn func(E) error) error {
	lower := sort.Search(len(t.events), func(i int) bool {
		return t.events[i].Time() >= time
	})
	return t.iterate(fn, lower, len(t.events)-1)
}

// ForEachAtTime visits every event whose time is exactly the given time.
func (t *Timeline[E]) ForEachAtTime(time float64, fn func(E) error) error {
	upper := t.search(time)
	if upper == -1 {
		return nil
	}

	lower := upper
	for lower > 0 && t.events[lower-1].Time() == time {
		lower--
	}
	if t.events[lower].Time() != time {
		return nil
	}

	return t.iterate(fn, lower, upper)
}

// ForEachBetween visits every event in [start, end).
func (t *Timeline[E]) ForEachBetween(start, end float64, fn func(E) error) error {
	lower := sort.Search(len(t.events), func(i int) bool {
		return t.events[i].Time() >= start
	})
	upper := sort.Search(len(t.events), func(i int) bool {
		return t.events[i].Time() >= end
	}) - 1

	return t.iterate(fn, lower, upper)
}
