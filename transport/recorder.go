package transport

import "github.com/robmorgan/pulse/timeline"

// Recorder observes what a transport does. Implementations must be cheap:
// they are called from inside the tick loop.
type Recorder interface {
	TickProcessed()
	EventFired(kind Kind)
	StateChanged(state timeline.State)
	Looped()
}

type nopRecorder struct{}

func (nopRecorder) TickProcessed() {}

func (nopRecorder) EventFired(Kind) {}

func (nopRecorder) StateChanged(timeline.State) {}

func (nopRecorder) Looped() {}
