package transport

import (
	"errors"
	"fmt"
	"math"

	"github.com/robmorgan/pulse/clock"
	"github.com/robmorgan/pulse/engine"
	"github.com/robmorgan/pulse/engine/scale"
	"github.com/robmorgan/pulse/interval"
	"github.com/robmorgan/pulse/logger"
	"github.com/robmorgan/pulse/rhythm"
	"github.com/robmorgan/pulse/timeexpr"
	"github.com/robmorgan/pulse/timeline"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidInterval      = errors.New("transport: repeat interval must be greater than zero")
	ErrInvalidTempo         = errors.New("transport: bpm must be positive and finite")
	ErrInvalidPPQ           = errors.New("transport: ppq must be positive")
	ErrInvalidTimeSignature = errors.New("transport: invalid time signature")
)

// Event names emitted by a Transport.
const (
	EventStart     = "start"
	EventStop      = "stop"
	EventPause     = "pause"
	EventLoop      = "loop"
	EventLoopStart = "loopStart"
	EventLoopEnd   = "loopEnd"
)

const (
	DefaultBPM = 120
	DefaultPPQ = 192
)

// Context is the part of an engine context a Transport needs.
type Context interface {
	clock.Context
	SampleRate() float64
}

// Transport keeps musical time. It owns a clock whose rate follows the
// tempo and fires scheduled callbacks in tick order: single-fire events
// first, then one-shots, then repeats.
type Transport struct {
	ctx   Context
	clock *clock.Clock

	bpm   *rhythm.Param
	ppq   int
	meter rhythm.Meter

	swingAmount      float64
	swingSubdivision *timeexpr.Expr
	swingTicks       int64

	loop      bool
	loopStart int64
	loopEnd   int64

	oneShots  *timeline.Timeline[*OneShot]
	repeats   *interval.Tree[*Repeating]
	onces     *timeline.Timeline[*Once]
	scheduled map[int]Event
	nextID    int

	synced []*rhythm.Param

	emitter  engine.Emitter
	recorder Recorder
	log      *logrus.Entry
}

var _ timeexpr.Context = (*Transport)(nil)

// New creates a stopped transport at 120 BPM, 192 PPQ, in 4/4 and with an
// 8n swing subdivision, then applies opts in order.
func New(ctx Context, opts ...Option) (*Transport, error) {
	t := &Transport{
		ctx:       ctx,
		bpm:       rhythm.NewParam(DefaultBPM),
		ppq:       DefaultPPQ,
		meter:     rhythm.CommonTime,
		oneShots:  timeline.New[*OneShot](),
		repeats:   interval.New[*Repeating](),
		onces:     timeline.New[*Once](),
		scheduled: map[int]Event{},
		recorder:  nopRecorder{},
		log:       logger.GetComponentLogger("transport"),
	}
	t.clock = clock.New(ctx, tickRate{t}, t.processTick)
	t.clock.On(clock.EventStart, t.onClockStart)
	t.clock.On(clock.EventStop, t.onClockStop)
	t.clock.On(clock.EventPause, t.onClockPause)

	if err := t.SetSwingSubdivision("8n"); err != nil {
		return nil, err
	}
	if err := t.SetLoopPoints(0, "4m"); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		if err := opt(t); err != nil {
			t.clock.Dispose()
			return nil, err
		}
	}
	return t, nil
}

// tickRate converts the tempo into the clock frequency.
type tickRate struct {
	t *Transport
}

func (r tickRate) ValueAtTime(time float64) float64 {
	return rhythm.TicksPerSecond(r.t.bpm.ValueAtTime(time), r.t.ppq)
}

// Now is the scheduling time of the engine context.
func (t *Transport) Now() float64 {
	return t.ctx.Now()
}

func (t *Transport) SampleRate() float64 {
	return t.ctx.SampleRate()
}

// Tempo returns the automatable tempo in BPM.
func (t *Transport) Tempo() *rhythm.Param {
	return t.bpm
}

// BPM returns the tempo at the current time.
func (t *Transport) BPM() float64 {
	return t.bpm.ValueAtTime(t.Now())
}

// SetBPM sets a constant tempo, discarding any tempo automation.
func (t *Transport) SetBPM(bpm float64) error {
	if !(bpm > 0) || math.IsInf(bpm, 1) {
		return fmt.Errorf("%w: %v", ErrInvalidTempo, bpm)
	}
	t.bpm.SetValue(bpm)
	return nil
}

// RampBPM changes the tempo linearly over duration, starting now.
func (t *Transport) RampBPM(bpm float64, duration timeexpr.Value) error {
	if !(bpm > 0) || math.IsInf(bpm, 1) {
		return fmt.Errorf("%w: %v", ErrInvalidTempo, bpm)
	}
	seconds, err := t.ToSeconds(duration)
	if err != nil {
		return err
	}
	return t.bpm.RampTo(bpm, seconds, t.Now())
}

func (t *Transport) PPQ() int {
	return t.ppq
}

// SetPPQ changes the resolution. Scheduled events keep their tick positions,
// so it should be set before anything is scheduled.
func (t *Transport) SetPPQ(ppq int) error {
	if ppq <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPPQ, ppq)
	}
	t.ppq = ppq
	return t.SetSwingSubdivision(t.swingSubdivision)
}

// TimeSignature returns the length of a measure in quarter notes.
func (t *Transport) TimeSignature() float64 {
	return t.meter.BeatsPerMeasure()
}

func (t *Transport) Meter() rhythm.Meter {
	return t.meter
}

func (t *Transport) SetTimeSignature(numerator, denominator int) error {
	meter, err := rhythm.NewMeter(numerator, denominator)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTimeSignature, err)
	}
	t.meter = meter
	return nil
}

func (t *Transport) Swing() float64 {
	return t.swingAmount
}

// SetSwing sets the swing amount, clamped to [0,1].
func (t *Transport) SetSwing(amount float64) {
	t.swingAmount = scale.Clamp(amount, 0, 1)
}

// SwingSubdivision returns the subdivision swing applies to, e.g. "8n".
func (t *Transport) SwingSubdivision() string {
	return t.swingSubdivision.String()
}

func (t *Transport) SetSwingSubdivision(subdivision timeexpr.Value) error {
	expr, err := timeexpr.Parse(subdivision, timeexpr.Seconds)
	if err != nil {
		return err
	}
	ticks := expr.Ticks(t)
	if ticks <= 0 {
		return fmt.Errorf("transport: swing subdivision %q is shorter than a tick", expr)
	}
	t.swingSubdivision = expr
	t.swingTicks = ticks
	return nil
}

func (t *Transport) Loop() bool {
	return t.loop
}

func (t *Transport) SetLoop(loop bool) {
	t.loop = loop
}

// LoopStart returns the start of the loop in seconds.
func (t *Transport) LoopStart() float64 {
	return t.ticksToSeconds(t.loopStart)
}

// LoopEnd returns the end of the loop in seconds.
func (t *Transport) LoopEnd() float64 {
	return t.ticksToSeconds(t.loopEnd)
}

func (t *Transport) SetLoopStart(start timeexpr.Value) error {
	ticks, err := t.ToTicks(start)
	if err != nil {
		return err
	}
	t.loopStart = ticks
	return nil
}

func (t *Transport) SetLoopEnd(end timeexpr.Value) error {
	ticks, err := t.ToTicks(end)
	if err != nil {
		return err
	}
	t.loopEnd = ticks
	return nil
}

// SetLoopPoints sets both ends of the loop.
func (t *Transport) SetLoopPoints(start, end timeexpr.Value) error {
	if err := t.SetLoopStart(start); err != nil {
		return err
	}
	return t.SetLoopEnd(end)
}

// On registers a listener for one of the Event* names.
func (t *Transport) On(event string, fn engine.Listener) int {
	return t.emitter.On(event, fn)
}

func (t *Transport) Off(event string, id int) bool {
	return t.emitter.Off(event, id)
}

// Start starts the transport at time, resuming from the current position.
// A nil time means now.
func (t *Transport) Start(time timeexpr.Value) error {
	at, err := t.resolveTime(time)
	if err != nil {
		return err
	}
	return t.clock.Start(at)
}

// StartFrom starts the transport at time from the position offset.
func (t *Transport) StartFrom(time, offset timeexpr.Value) error {
	at, err := t.resolveTime(time)
	if err != nil {
		return err
	}
	ticks, err := t.ToTicks(offset)
	if err != nil {
		return err
	}
	return t.clock.StartFrom(at, ticks)
}

// Stop stops the transport at time and rewinds it to the beginning.
func (t *Transport) Stop(time timeexpr.Value) error {
	at, err := t.resolveTime(time)
	if err != nil {
		return err
	}
	return t.clock.Stop(at)
}

// Pause pauses the transport at time, keeping its position.
func (t *Transport) Pause(time timeexpr.Value) error {
	at, err := t.resolveTime(time)
	if err != nil {
		return err
	}
	return t.clock.Pause(at)
}

// Toggle starts the transport if it is not playing at time, and stops it otherwise.
func (t *Transport) Toggle(time timeexpr.Value) error {
	at, err := t.resolveTime(time)
	if err != nil {
		return err
	}
	if t.clock.StateAtTime(at) == timeline.Started {
		return t.clock.Stop(at)
	}
	return t.clock.Start(at)
}

// State returns the playback state now.
func (t *Transport) State() timeline.State {
	return t.clock.State()
}

// StateAtTime returns the scheduled playback state at time.
func (t *Transport) StateAtTime(time float64) timeline.State {
	return t.clock.StateAtTime(time)
}

// Dispose detaches the transport from its context, unsyncs all params and
// drops every scheduled event.
func (t *Transport) Dispose() {
	t.clock.Dispose()
	for len(t.synced) > 0 {
		t.UnsyncParam(t.synced[0])
	}
	t.oneShots.Cancel(math.Inf(-1))
	t.onces.Cancel(math.Inf(-1))
	t.repeats.Clear()
	t.scheduled = map[int]Event{}
	t.emitter.Dispose()
}

func (t *Transport) resolveTime(v timeexpr.Value) (float64, error) {
	if v == nil {
		return t.Now(), nil
	}
	return t.ToSeconds(v)
}

func (t *Transport) onClockStart(time, ticks float64) {
	t.log.WithFields(logrus.Fields{"time": time, "tick": int64(ticks)}).Debug("Transport started")
	t.recorder.StateChanged(timeline.Started)
	t.emitter.Emit(EventStart, time, t.ticksToSeconds(int64(ticks)))
}

func (t *Transport) onClockStop(time, _ float64) {
	t.log.WithField("time", time).Debug("Transport stopped")
	t.recorder.StateChanged(timeline.Stopped)
	t.emitter.Emit(EventStop, time, 0)
}

func (t *Transport) onClockPause(time, ticks float64) {
	t.log.WithFields(logrus.Fields{"time": time, "tick": int64(ticks)}).Debug("Transport paused")
	t.recorder.StateChanged(timeline.Paused)
	t.emitter.Emit(EventPause, time, t.ticksToSeconds(int64(ticks)))
}

// processTick is the clock callback. The order is fixed: swing, loop,
// single-fire events, one-shots, repeats.
func (t *Transport) processTick(tickTime float64, ticks int64) error {
	t.recorder.TickProcessed()

	if t.swingAmount > 0 && ticks%int64(t.ppq) != 0 && ticks%(2*t.swingTicks) != 0 {
		pair := 2 * t.swingTicks
		progress := float64(ticks%pair) / float64(pair)
		amount := math.Sin(progress*math.Pi) * t.swingAmount
		offset := rhythm.TicksToSeconds(float64(t.swingTicks)*2/3, t.bpm.ValueAtTime(tickTime), t.ppq)
		tickTime += offset * amount
	}

	if t.loop && ticks >= t.loopEnd {
		t.log.WithFields(logrus.Fields{"time": tickTime, "tick": ticks, "loop_start": t.loopStart}).Debug("Looping")
		t.emitter.Emit(EventLoopEnd, tickTime, 0)
		t.clock.SetTicks(t.loopStart)
		ticks = t.loopStart
		t.recorder.Looped()
		t.emitter.Emit(EventLoopStart, tickTime, t.Seconds())
		t.emitter.Emit(EventLoop, tickTime, 0)
	}

	err := t.onces.ForEachBefore(float64(ticks), func(e *Once) error {
		t.onces.Remove(e)
		delete(t.scheduled, e.id)
		t.recorder.EventFired(KindOnce)
		return e.Callback(tickTime)
	})
	if err != nil {
		return err
	}

	err = t.oneShots.ForEachAtTime(float64(ticks), func(e *OneShot) error {
		t.recorder.EventFired(KindOneShot)
		return e.Callback(tickTime)
	})
	if err != nil {
		return err
	}

	return t.repeats.ForEachAtTime(float64(ticks), func(e *Repeating) error {
		if !e.due(ticks) {
			return nil
		}
		t.recorder.EventFired(KindRepeating)
		return e.Callback(tickTime)
	})
}
