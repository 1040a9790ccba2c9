package transport

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/robmorgan/pulse/engine"
	"github.com/robmorgan/pulse/rhythm"
	"github.com/robmorgan/pulse/timeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tick = 1.0 / 384 // seconds per tick at 120 BPM and 192 PPQ

func newTestTransport(t *testing.T, opts ...Option) (*Transport, *engine.Context, *engine.VirtualHeartbeat) {
	t.Helper()

	hb := engine.NewVirtualHeartbeat()
	ctx := engine.NewContext(hb, hb.Seconds, engine.WithLookahead(0), engine.WithUpdateInterval(10*time.Millisecond))
	tr, err := New(ctx, opts...)
	require.NoError(t, err)
	ctx.Start()
	return tr, ctx, hb
}

func record(times *[]float64) Callback {
	return func(time float64) error {
		*times = append(*times, time)
		return nil
	}
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	tr, _, _ := newTestTransport(t)
	assert.Equal(t, 120.0, tr.BPM())
	assert.Equal(t, 192, tr.PPQ())
	assert.Equal(t, 4.0, tr.TimeSignature())
	assert.Equal(t, "8n", tr.SwingSubdivision())
	assert.Equal(t, 0.0, tr.Swing())
	assert.False(t, tr.Loop())
	assert.Equal(t, 0.0, tr.LoopStart())
	assert.InDelta(t, 8, tr.LoopEnd(), 1e-9)
	assert.Equal(t, timeline.Stopped, tr.State())
	assert.Equal(t, "0:0:0", tr.Position())
}

func TestOptionsValidate(t *testing.T) {
	t.Parallel()

	hb := engine.NewVirtualHeartbeat()
	ctx := engine.NewContext(hb, hb.Seconds)

	_, err := New(ctx, WithBPM(0))
	require.ErrorIs(t, err, ErrInvalidTempo)
	_, err = New(ctx, WithBPM(-10))
	require.ErrorIs(t, err, ErrInvalidTempo)
	_, err = New(ctx, WithBPM(math.NaN()))
	require.ErrorIs(t, err, ErrInvalidTempo)
	_, err = New(ctx, WithPPQ(0))
	require.ErrorIs(t, err, ErrInvalidPPQ)
	_, err = New(ctx, WithTimeSignature(0, 4))
	require.ErrorIs(t, err, ErrInvalidTimeSignature)
	_, err = New(ctx, WithSwingSubdivision("nonsense"))
	require.Error(t, err)

	tr, err := New(ctx, WithBPM(90), WithPPQ(96), WithTimeSignature(6, 8), WithSwing(2), WithLoop(0, "2m"))
	require.NoError(t, err)
	assert.Equal(t, 90.0, tr.BPM())
	assert.Equal(t, 96, tr.PPQ())
	assert.Equal(t, 3.0, tr.TimeSignature())
	assert.Equal(t, 1.0, tr.Swing())
	assert.True(t, tr.Loop())
	assert.InDelta(t, 4, tr.LoopEnd(), 1e-9)
}

func TestScheduleRepeatFiresEveryQuarterNote(t *testing.T) {
	t.Parallel()

	tr, _, hb := newTestTransport(t)

	var times []float64
	_, err := tr.ScheduleRepeat(record(&times), "4n", nil, nil)
	require.NoError(t, err)

	require.NoError(t, tr.Start(nil))
	hb.Advance(2100 * time.Millisecond)

	require.Len(t, times, 5)
	for i, at := range times {
		assert.InDelta(t, 0.5*float64(i), at, 1e-6)
	}
	assert.Equal(t, timeline.Started, tr.State())
}

func TestScheduleRepeatWithStartAndDuration(t *testing.T) {
	t.Parallel()

	tr, _, hb := newTestTransport(t)

	var times []float64
	_, err := tr.ScheduleRepeat(record(&times), "4n", "1m", "1m")
	require.NoError(t, err)

	require.NoError(t, tr.Start(0))
	hb.Advance(5 * time.Second)

	require.Len(t, times, 4)
	for i, at := range times {
		assert.InDelta(t, 2+0.5*float64(i), at, 1e-6)
	}
}

func TestScheduleRepeatRejectsNonPositiveInterval(t *testing.T) {
	t.Parallel()

	tr, _, _ := newTestTransport(t)
	noop := func(float64) error { return nil }

	_, err := tr.ScheduleRepeat(noop, 0, nil, nil)
	require.ErrorIs(t, err, ErrInvalidInterval)
	_, err = tr.ScheduleRepeat(noop, "-4n", nil, nil)
	require.ErrorIs(t, err, ErrInvalidInterval)
	assert.Equal(t, 0, tr.Len())

	_, err = tr.ScheduleRepeat(noop, "4x", nil, nil)
	require.Error(t, err)
}

func TestStopThenStartRewinds(t *testing.T) {
	t.Parallel()

	tr, _, hb := newTestTransport(t)

	var times []float64
	_, err := tr.Schedule(record(&times), 0)
	require.NoError(t, err)

	require.NoError(t, tr.Start(nil))
	hb.Advance(time.Second)
	require.Greater(t, tr.Ticks(), int64(0))

	require.NoError(t, tr.Stop(nil))
	hb.Advance(500 * time.Millisecond)
	assert.Equal(t, int64(0), tr.Ticks())
	assert.Equal(t, timeline.Stopped, tr.State())

	require.NoError(t, tr.Start(nil))
	hb.Advance(100 * time.Millisecond)

	require.Len(t, times, 2)
	assert.InDelta(t, 0, times[0], 1e-9)
	assert.InDelta(t, 1.5, times[1], 1e-9)
}

func TestStopAndStartAtTheSameTime(t *testing.T) {
	t.Parallel()

	tr, _, hb := newTestTransport(t)

	var times []float64
	_, err := tr.Schedule(record(&times), 0)
	require.NoError(t, err)

	var starts, stops int
	tr.On(EventStart, func(float64, float64) { starts++ })
	tr.On(EventStop, func(float64, float64) { stops++ })

	require.NoError(t, tr.Start(nil))
	hb.Advance(time.Second)
	require.Greater(t, tr.Ticks(), int64(300))

	require.NoError(t, tr.Stop(nil))
	require.NoError(t, tr.Start(nil))
	hb.Advance(100 * time.Millisecond)

	assert.Equal(t, 2, starts)
	assert.Equal(t, 1, stops)
	assert.Equal(t, timeline.Started, tr.State())
	assert.Less(t, tr.Ticks(), int64(60))

	require.Len(t, times, 2)
	assert.InDelta(t, 0, times[0], 1e-9)
	assert.InDelta(t, 1, times[1], 1e-9)
}

func TestPauseAndResumeWithinOneTick(t *testing.T) {
	t.Parallel()

	tr, _, hb := newTestTransport(t)

	var pausedAt []float64
	var starts int
	tr.On(EventStart, func(float64, float64) { starts++ })
	tr.On(EventPause, func(time, _ float64) { pausedAt = append(pausedAt, time) })

	require.NoError(t, tr.Start(0))
	require.NoError(t, tr.Pause(0.5+tick/4))
	require.NoError(t, tr.Start(0.5+tick/2))
	hb.Advance(time.Second)

	assert.Equal(t, 2, starts)
	require.Len(t, pausedAt, 1)
	assert.InDelta(t, 0.5+tick/4, pausedAt[0], 1e-12)
	assert.Equal(t, timeline.Started, tr.State())
}

func TestPauseKeepsPosition(t *testing.T) {
	t.Parallel()

	tr, _, hb := newTestTransport(t)

	require.NoError(t, tr.Start(0))
	require.NoError(t, tr.Pause(0.499))
	hb.Advance(time.Second)

	assert.Equal(t, timeline.Paused, tr.State())
	assert.Equal(t, int64(192), tr.Ticks())
	assert.Equal(t, "0:1:0", tr.Position())

	require.NoError(t, tr.Toggle(nil))
	hb.Advance(10 * time.Millisecond)
	assert.Equal(t, timeline.Started, tr.State())
	assert.Greater(t, tr.Ticks(), int64(192))

	require.NoError(t, tr.Toggle(nil))
	hb.Advance(20 * time.Millisecond)
	assert.Equal(t, timeline.Stopped, tr.State())
	assert.Equal(t, int64(0), tr.Ticks())
}

func TestSwing(t *testing.T) {
	t.Parallel()

	tr, _, hb := newTestTransport(t, WithSwing(0.5), WithSwingSubdivision("8n"))

	var offBeat, onBeat, pairBoundary []float64
	_, err := tr.Schedule(record(&offBeat), "8n")
	require.NoError(t, err)
	_, err = tr.Schedule(record(&onBeat), "4n")
	require.NoError(t, err)
	_, err = tr.Schedule(record(&pairBoundary), "2n")
	require.NoError(t, err)

	require.NoError(t, tr.Start(0))
	hb.Advance(2 * time.Second)

	require.Len(t, offBeat, 1)
	unswung := 0.25
	max := unswung + (2.0/3)*0.25*0.5
	assert.Greater(t, offBeat[0], unswung)
	assert.LessOrEqual(t, offBeat[0], max+1e-9)

	require.Len(t, onBeat, 1)
	assert.InDelta(t, 0.5, onBeat[0], 1e-9)
	require.Len(t, pairBoundary, 1)
	assert.InDelta(t, 1, pairBoundary[0], 1e-9)
}

func TestLoopEmitsInOrder(t *testing.T) {
	t.Parallel()

	tr, _, hb := newTestTransport(t, WithLoop(0, "4i"))

	type emitted struct {
		name string
		time float64
	}
	var events []emitted
	for _, name := range []string{EventLoopEnd, EventLoopStart, EventLoop} {
		name := name
		tr.On(name, func(time, _ float64) { events = append(events, emitted{name, time}) })
	}

	var atZero []float64
	_, err := tr.Schedule(record(&atZero), 0)
	require.NoError(t, err)

	require.NoError(t, tr.Start(0))
	hb.Advance(10 * time.Millisecond)

	require.GreaterOrEqual(t, len(events), 3)
	assert.Equal(t, EventLoopEnd, events[0].name)
	assert.Equal(t, EventLoopStart, events[1].name)
	assert.Equal(t, EventLoop, events[2].name)
	for _, e := range events[:3] {
		assert.InDelta(t, 4*tick, e.time, 1e-9)
	}

	// The one-shot at tick 0 fires again in the same pass as the loop.
	require.GreaterOrEqual(t, len(atZero), 2)
	assert.InDelta(t, 0, atZero[0], 1e-9)
	assert.InDelta(t, 4*tick, atZero[1], 1e-9)

	assert.Less(t, tr.Ticks(), int64(5))
	assert.GreaterOrEqual(t, tr.Progress(), 0.0)
	assert.Less(t, tr.Progress(), 1.25)
}

func TestScheduleOnceIsPurged(t *testing.T) {
	t.Parallel()

	tr, _, hb := newTestTransport(t)

	var times []float64
	id, err := tr.ScheduleOnce(record(&times), "4n")
	require.NoError(t, err)
	_, ok := tr.Event(id)
	require.True(t, ok)

	require.NoError(t, tr.Start(0))
	hb.Advance(2 * time.Second)

	require.Len(t, times, 1)
	assert.InDelta(t, 0.5, times[0], 1e-9)
	_, ok = tr.Event(id)
	assert.False(t, ok)
	assert.Equal(t, 0, tr.Len())

	// Events scheduled in the past fire on the next tick.
	var late []float64
	_, err = tr.ScheduleOnce(record(&late), 0)
	require.NoError(t, err)
	hb.Advance(20 * time.Millisecond)
	require.Len(t, late, 1)
	assert.Greater(t, late[0], 2.0)
}

func TestCategoryOrderWithinTick(t *testing.T) {
	t.Parallel()

	tr, _, hb := newTestTransport(t)

	var order []string
	mark := func(name string) Callback {
		return func(float64) error {
			order = append(order, name)
			return nil
		}
	}
	_, err := tr.ScheduleRepeat(mark("repeat"), "1m", "4n", nil)
	require.NoError(t, err)
	_, err = tr.Schedule(mark("oneshot"), "4n")
	require.NoError(t, err)
	_, err = tr.ScheduleOnce(mark("once"), "4n")
	require.NoError(t, err)

	require.NoError(t, tr.Start(0))
	hb.Advance(time.Second)

	assert.Equal(t, []string{"once", "oneshot", "repeat"}, order)
}

func TestClearAndCancel(t *testing.T) {
	t.Parallel()

	tr, _, hb := newTestTransport(t)

	var a, b, c, d []float64
	idA, err := tr.Schedule(record(&a), "4n")
	require.NoError(t, err)
	_, err = tr.ScheduleRepeat(record(&b), "4n", "1m", nil)
	require.NoError(t, err)
	_, err = tr.ScheduleOnce(record(&c), "2m")
	require.NoError(t, err)
	_, err = tr.Schedule(record(&d), "2n")
	require.NoError(t, err)
	require.Equal(t, 4, tr.Len())

	assert.True(t, tr.Clear(idA))
	assert.False(t, tr.Clear(idA))
	assert.False(t, tr.Clear(1000))

	require.NoError(t, tr.Cancel("1m"))
	assert.Equal(t, 1, tr.Len())

	require.NoError(t, tr.Start(0))
	hb.Advance(5 * time.Second)

	assert.Empty(t, a)
	assert.Empty(t, b)
	assert.Empty(t, c)
	assert.Len(t, d, 1)

	require.NoError(t, tr.Cancel(nil))
	assert.Equal(t, 0, tr.Len())
}

func TestCallbackErrorsAreReported(t *testing.T) {
	t.Parallel()

	tr, ctx, hb := newTestTransport(t)
	boom := errors.New("boom")

	_, err := tr.Schedule(func(float64) error { return boom }, "4n")
	require.NoError(t, err)
	var after []float64
	_, err = tr.Schedule(record(&after), "2n")
	require.NoError(t, err)

	require.NoError(t, tr.Start(0))
	hb.Advance(1100 * time.Millisecond)

	assert.Equal(t, 1, ctx.Failures())
	require.Len(t, after, 1)
	assert.InDelta(t, 1, after[0], 1e-6)
}

func TestPositionAccessors(t *testing.T) {
	t.Parallel()

	tr, _, _ := newTestTransport(t)

	require.NoError(t, tr.SetPosition("1:2:0"))
	assert.Equal(t, int64(1152), tr.Ticks())
	assert.Equal(t, "1:2:0", tr.Position())
	assert.InDelta(t, 3, tr.Seconds(), 1e-9)

	tr.SetSeconds(0.5)
	assert.Equal(t, int64(192), tr.Ticks())

	require.NoError(t, tr.Seek("+1m"))
	assert.Equal(t, int64(960), tr.Ticks())

	require.NoError(t, tr.Seek("@1m"))
	assert.Equal(t, int64(1536), tr.Ticks())

	snapshot := tr.Snapshot()
	assert.Equal(t, int64(3), snapshot.Bar())
	assert.True(t, snapshot.IsDownBeat())

	assert.Equal(t, 0.0, tr.Progress())
	tr.SetLoop(true)
	require.NoError(t, tr.SetLoopPoints(0, "4m"))
	assert.InDelta(t, 0.5, tr.Progress(), 1e-9)

	require.Error(t, tr.SetPosition("??"))
}

func TestSetTicksWhileStartedResyncsListeners(t *testing.T) {
	t.Parallel()

	tr, ctx, hb := newTestTransport(t)

	type emitted struct {
		name         string
		time, offset float64
	}
	var events []emitted
	for _, name := range []string{EventStart, EventStop} {
		name := name
		tr.On(name, func(time, offset float64) { events = append(events, emitted{name, time, offset}) })
	}

	require.NoError(t, tr.Start(0))
	hb.Advance(100 * time.Millisecond)
	require.Len(t, events, 1)

	now := ctx.Now()
	tr.SetTicks(384)

	require.Len(t, events, 3)
	assert.Equal(t, emitted{EventStop, now, 0}, events[1])
	assert.Equal(t, EventStart, events[2].name)
	assert.Equal(t, now, events[2].time)
	assert.InDelta(t, 1, events[2].offset, 1e-9)

	tr.SetTicks(384)
	assert.Len(t, events, 3)
}

func TestNextSubdivision(t *testing.T) {
	t.Parallel()

	tr, _, hb := newTestTransport(t)
	assert.Equal(t, 0.0, tr.NextSubdivision(0.5))

	require.NoError(t, tr.Start(0))
	hb.Advance(100 * time.Millisecond)

	next := tr.NextSubdivision(0.5)
	assert.Greater(t, next, 0.1)
	assert.InDelta(t, 0.5, next, 2*tick)

	seconds, err := tr.ToSeconds("@4n")
	require.NoError(t, err)
	assert.Equal(t, next, seconds)
}

func TestConversions(t *testing.T) {
	t.Parallel()

	tr, _, _ := newTestTransport(t)

	s, err := tr.ToSeconds("1m + 4n")
	require.NoError(t, err)
	assert.InDelta(t, 2.5, s, 1e-9)

	ticks, err := tr.ToTicks("1:0:2")
	require.NoError(t, err)
	assert.Equal(t, int64(768+96), ticks)

	hz, err := tr.ToFrequency("4n")
	require.NoError(t, err)
	assert.InDelta(t, 2, hz, 1e-9)

	_, err = tr.ToTicks("1:")
	require.Error(t, err)
}

func TestTempoChangeSpeedsUpTicks(t *testing.T) {
	t.Parallel()

	tr, _, hb := newTestTransport(t)

	var times []float64
	_, err := tr.ScheduleRepeat(record(&times), "4n", nil, nil)
	require.NoError(t, err)

	require.NoError(t, tr.Start(0))
	hb.Advance(1100 * time.Millisecond)
	require.NoError(t, tr.SetBPM(240))
	hb.Advance(time.Second)

	require.GreaterOrEqual(t, len(times), 5)
	assert.InDelta(t, 0.5, times[1]-times[0], 1e-6)
	last := len(times) - 1
	assert.InDelta(t, 0.25, times[last]-times[last-1], 1e-6)

	require.ErrorIs(t, tr.SetBPM(0), ErrInvalidTempo)
	require.NoError(t, tr.RampBPM(120, "1m"))
}

func TestSyncParam(t *testing.T) {
	t.Parallel()

	tr, _, _ := newTestTransport(t)

	p := rhythm.NewParam(10)
	tr.SyncParam(p, 0)
	assert.True(t, p.Bound())
	assert.Equal(t, 0.0, p.Value())
	assert.InDelta(t, 10, p.ValueAtTime(tr.Now()), 1e-9)

	require.NoError(t, tr.SetBPM(240))
	assert.InDelta(t, 20, p.ValueAtTime(tr.Now()), 1e-9)

	tr.UnsyncParam(p)
	assert.False(t, p.Bound())
	assert.Equal(t, 10.0, p.Value())

	zero := rhythm.NewParam(0)
	tr.SyncParam(zero, 0)
	assert.Equal(t, 0.0, zero.ValueAtTime(tr.Now()))

	fixed := rhythm.NewParam(3)
	tr.SyncParam(fixed, 0.5)
	assert.InDelta(t, 120, fixed.ValueAtTime(tr.Now()), 1e-9)

	tr.Dispose()
	assert.False(t, zero.Bound())
	assert.False(t, fixed.Bound())
	assert.Equal(t, 3.0, fixed.Value())
}

type countingRecorder struct {
	ticks  int
	fired  map[Kind]int
	states []timeline.State
	loops  int
}

func (r *countingRecorder) TickProcessed() { r.ticks++ }
func (r *countingRecorder) EventFired(kind Kind) { r.fired[kind]++ }
func (r *countingRecorder) StateChanged(state timeline.State) { r.states = append(r.states, state) }
func (r *countingRecorder) Looped() { r.loops++ }

func TestRecorder(t *testing.T) {
	t.Parallel()

	rec := &countingRecorder{fired: map[Kind]int{}}
	tr, _, hb := newTestTransport(t, WithRecorder(rec), WithLoop(0, "1m"))

	noop := func(float64) error { return nil }
	_, err := tr.ScheduleRepeat(noop, "4n", nil, nil)
	require.NoError(t, err)
	_, err = tr.Schedule(noop, "2n")
	require.NoError(t, err)
	_, err = tr.ScheduleOnce(noop, "2n")
	require.NoError(t, err)

	require.NoError(t, tr.Start(0))
	require.NoError(t, tr.Pause(2.9))
	hb.Advance(3 * time.Second)

	assert.Equal(t, 1, rec.loops)
	assert.Equal(t, 1, rec.fired[KindOnce])
	assert.Equal(t, 1, rec.fired[KindOneShot])
	assert.Equal(t, 6, rec.fired[KindRepeating])
	assert.Equal(t, []timeline.State{timeline.Started, timeline.Paused}, rec.states)
	assert.Positive(t, rec.ticks)
}
