package engine

// Listener receives a notification scheduled at time. offset is event specific,
// e.g. the transport position in seconds when playback starts.
type Listener func(time, offset float64)

// Emitter dispatches named events to listeners. Like everything driven by a
// Context it is not safe for concurrent use outside of Sync.
type Emitter struct {
	listeners map[string][]registration
	nextID    int
}

type registration struct {
	id int
	fn Listener
}

// On registers fn for event and returns an id for Off.
func (e *Emitter) On(event string, fn Listener) int {
	if e.listeners == nil {
		e.listeners = map[string][]registration{}
	}
	e.nextID++
	e.listeners[event] = append(e.listeners[event], registration{id: e.nextID, fn: fn})
	return e.nextID
}

// Off removes a listener and reports whether it was registered.
func (e *Emitter) Off(event string, id int) bool {
	regs := e.listeners[event]
	for i, r := range regs {
		if r.id == id {
			e.listeners[event] = append(regs[:i:i], regs[i+1:]...)
			return true
		}
	}
	return false
}

// Emit calls every listener of event in registration order. Listeners may
// register or remove listeners; changes apply from the next Emit.
func (e *Emitter) Emit(event string, time, offset float64) {
	for _, r := range append([]registration(nil), e.listeners[event]...) {
		r.fn(time, offset)
	}
}

// Dispose removes every listener.
func (e *Emitter) Dispose() {
	e.listeners = nil
}
