package timeline

// State is the playback state of a clock or transport.
type State int

const (
	Stopped State = iota
	Started
	Paused
)

func (s State) String() string {
	switch s {
	case Started:
		return "started"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

// StateEvent is a scheduled change of state. Offset, when set, is the tick
// position a clock resumes from.
type StateEvent struct {
	State     State
	At        float64
	Offset    int64
	HasOffset bool
}

// Time implements Event.
func (e *StateEvent) Time() float64 {
	return e.At
}

// StateQuery answers "what is the state at time t".
type StateQuery interface {
	StateAtTime(time float64) State
}

// StateTimeline is a Timeline of state changes that can also answer
// StateQuery. Times before the first change report the initial state.
type StateTimeline struct {
	*Timeline[*StateEvent]
	initial State
}

var (
	_ Sequence[*StateEvent] = (*StateTimeline)(nil)
	_ StateQuery            = (*StateTimeline)(nil)
)

// NewStateTimeline creates an empty state timeline.
func NewStateTimeline(initial State) *StateTimeline {
	return &StateTimeline{
		Timeline: New[*StateEvent](),
		initial:  initial,
	}
}

// StateAtTime returns the state in effect at the given time.
func (s *StateTimeline) StateAtTime(time float64) State {
	if event, ok := s.Get(time); ok {
		return event.State
	}
	return s.initial
}

// SetStateAtTime schedules a state change and returns the stored event.
func (s *StateTimeline) SetStateAtTime(state State, time float64) (*StateEvent, error) {
	event := &StateEvent{State: state, At: time}
	if err := s.Add(event); err != nil {
		return nil, err
	}
	return event, nil
}

// LastState returns the latest change to the given state at or before time.
func (s *StateTimeline) LastState(state State, time float64) (*StateEvent, bool) {
	index := s.search(time)
	for i := index; i >= 0; i-- {
		if s.events[i].State == state {
			return s.events[i], true
		}
	}
	return nil, false
}

// NextState returns the earliest change to the given state strictly after time.
func (s *StateTimeline) NextState(state State, time float64) (*StateEvent, bool) {
	index := s.search(time)
	for i := index + 1; i < len(s.events); i++ {
		if s.events[i].State == state {
			return s.events[i], true
		}
	}
	return nil, false
}
