package timeline

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct {
	at    float64
	label string
}

func (e *testEvent) Time() float64 {
	return e.at
}

func ev(at float64, label string) *testEvent {
	return &testEvent{at: at, label: label}
}

func times(tl *Timeline[*testEvent]) []float64 {
	out := make([]float64, 0, tl.Len())
	_ = tl.ForEach(func(e *testEvent) error {
		out = append(out, e.at)
		return nil
	})
	return out
}

func TestAddKeepsOrder(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewSource(42))
	tl := New[*testEvent]()
	for i := 0; i < 500; i++ {
		require.NoError(t, tl.Add(ev(math.Floor(r.Float64()*100), "")))
	}

	got := times(tl)
	require.Len(t, got, 500)
	for i := 1; i < len(got); i++ {
		require.LessOrEqual(t, got[i-1], got[i])
	}
}

func TestAddRejectsNaN(t *testing.T) {
	t.Parallel()

	tl := New[*testEvent]()
	err := tl.Add(ev(math.NaN(), "bad"))
	require.ErrorIs(t, err, ErrMissingTime)
	require.Equal(t, 0, tl.Len())
}

func TestGetTiesResolveToLastInserted(t *testing.T) {
	t.Parallel()

	tl := New[*testEvent]()
	require.NoError(t, tl.Add(ev(1, "a")))
	require.NoError(t, tl.Add(ev(2, "b")))
	require.NoError(t, tl.Add(ev(2, "c")))
	require.NoError(t, tl.Add(ev(3, "d")))

	got, ok := tl.Get(2)
	require.True(t, ok)
	assert.Equal(t, "c", got.label)

	got, ok = tl.Get(2.5)
	require.True(t, ok)
	assert.Equal(t, "c", got.label)

	_, ok = tl.Get(0.5)
	assert.False(t, ok)

	got, ok = tl.GetBefore(2)
	require.True(t, ok)
	assert.Equal(t, "a", got.label)

	got, ok = tl.GetAfter(2)
	require.True(t, ok)
	assert.Equal(t, "d", got.label)

	_, ok = tl.GetAfter(3)
	assert.False(t, ok)
}

func TestCancel(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewSource(7))
	for round := 0; round < 20; round++ {
		tl := New[*testEvent]()
		var all []float64
		for i := 0; i < 50; i++ {
			at := math.Floor(r.Float64() * 20)
			all = append(all, at)
			require.NoError(t, tl.Add(ev(at, "")))
		}

		after := math.Floor(r.Float64() * 20)
		tl.Cancel(after)

		want := 0
		for _, at := range all {
			if at < after {
				want++
			}
		}
		got := times(tl)
		require.Len(t, got, want)
		for _, at := range got {
			require.Less(t, at, after)
		}
	}
}

func TestCancelBefore(t *testing.T) {
	t.Parallel()

	tl := New[*testEvent]()
	for _, at := range []float64{0, 1, 1, 2, 3} {
		require.NoError(t, tl.Add(ev(at, "")))
	}

	tl.CancelBefore(1)
	require.Equal(t, []float64{2, 3}, times(tl))

	tl.CancelBefore(10)
	require.Equal(t, 0, tl.Len())
}

func TestMemoryEvictsOldest(t *testing.T) {
	t.Parallel()

	tl := NewWithMemory[*testEvent](3)
	for _, at := range []float64{1, 2, 3, 4, 5} {
		require.NoError(t, tl.Add(ev(at, "")))
	}
	require.Equal(t, []float64{3, 4, 5}, times(tl))

	tl.SetMemory(1)
	require.Equal(t, []float64{5}, times(tl))
}

func TestRemoveDuringIterationIsDeferred(t *testing.T) {
	t.Parallel()

	tl := New[*testEvent]()
	events := []*testEvent{ev(1, "a"), ev(2, "b"), ev(3, "c"), ev(4, "d")}
	for _, e := range events {
		require.NoError(t, tl.Add(e))
	}

	var visited []string
	err := tl.ForEach(func(e *testEvent) error {
		visited = append(visited, e.label)
		tl.Remove(e)
		// the traversal still sees every event
		require.Equal(t, 4, tl.Len())
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c", "d"}, visited)
	require.Equal(t, 0, tl.Len())
}

func TestAddDuringIteration(t *testing.T) {
	t.Parallel()

	tl := New[*testEvent]()
	require.NoError(t, tl.Add(ev(1, "a")))
	require.NoError(t, tl.Add(ev(2, "b")))

	var visited []string
	err := tl.ForEachBefore(2, func(e *testEvent) error {
		visited = append(visited, e.label)
		return tl.Add(ev(0, "early"))
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, visited)
	require.Equal(t, 4, tl.Len())
}

func TestForEachRanges(t *testing.T) {
	t.Parallel()

	tl := New[*testEvent]()
	for _, at := range []float64{0, 1, 2, 2, 3, 4} {
		require.NoError(t, tl.Add(ev(at, "")))
	}

	collect := func(fn func(func(*testEvent) error) error) []float64 {
		var out []float64
		require.NoError(t, fn(func(e *testEvent) error {
			out = append(out, e.at)
			return nil
		}))
		return out
	}

	assert.Equal(t, []float64{0, 1, 2, 2}, collect(func(f func(*testEvent) error) error { return tl.ForEachBefore(2, f) }))
	assert.Equal(t, []float64{3, 4}, collect(func(f func(*testEvent) error) error { return tl.ForEachAfter(2, f) }))
	assert.Equal(t, []float64{2, 2, 3, 4}, collect(func(f func(*testEvent) error) error { return tl.ForEachFrom(2, f) }))
	assert.Equal(t, []float64{2, 2}, collect(func(f func(*testEvent) error) error { return tl.ForEachAtTime(2, f) }))
	assert.Empty(t, collect(func(f func(*testEvent) error) error { return tl.ForEachAtTime(2.5, f) }))
	assert.Equal(t, []float64{1, 2, 2}, collect(func(f func(*testEvent) error) error { return tl.ForEachBetween(1, 3, f) }))
	assert.Nil(t, collect(func(f func(*testEvent) error) error { return tl.ForEachBefore(-1, f) }))
}

func TestPeekShift(t *testing.T) {
	t.Parallel()

	tl := New[*testEvent]()
	_, ok := tl.Shift()
	require.False(t, ok)

	require.NoError(t, tl.Add(ev(2, "b")))
	require.NoError(t, tl.Add(ev(1, "a")))

	first, ok := tl.Peek()
	require.True(t, ok)
	require.Equal(t, "a", first.label)

	first, ok = tl.Shift()
	require.True(t, ok)
	require.Equal(t, "a", first.label)
	require.Equal(t, 1, tl.Len())
}
