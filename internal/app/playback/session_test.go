package playback

import (
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	durations   map[string]time.Duration
	unavailable map[string]bool
}

func newFakeCatalog(ids ...string) *fakeCatalog {
	c := &fakeCatalog{
		durations:   make(map[string]time.Duration),
		unavailable: make(map[string]bool),
	}
	for _, id := range ids {
		c.durations[id] = time.Minute
	}
	return c
}

func (c *fakeCatalog) EstimatedDuration(id string) time.Duration {
	return c.durations[id]
}

func (c *fakeCatalog) ResolvePlayableHandle(id string) (string, error) {
	if c.unavailable[id] {
		return "", errors.Newf("file %s is unreadable", id)
	}
	if _, ok := c.durations[id]; !ok {
		return "", nil
	}
	return "/media/" + id, nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

func newTestSession(t *testing.T, autoplay, replay bool, ids ...string) (*Session, *fakeCatalog, *fakeClock) {
	t.Helper()
	catalog := newFakeCatalog(ids...)
	clock := newFakeClock()
	s := NewSession(catalog, Config{
		HistoryCapacity: 5,
		Autoplay:        autoplay,
		Replay:          replay,
		EventBuffer:     256,
		Now:             clock.Now,
	})
	t.Cleanup(s.Close)
	return s, catalog, clock
}

// drainAll returns all pending events.
func drainAll(s *Session) []Event {
	var events []Event
	for {
		select {
		case e, ok := <-s.Events():
			if !ok {
				return events
			}
			events = append(events, e)
		default:
			return events
		}
	}
}

// drainEvents returns the types of all pending events.
func drainEvents(s *Session) []EventType {
	return drainEventTypes(drainAll(s))
}

func drainEventTypes(events []Event) []EventType {
	var types []EventType
	for _, e := range events {
		types = append(types, e.Type)
	}
	return types
}

func countEvents(types []EventType, want EventType) int {
	n := 0
	for _, et := range types {
		if et == want {
			n++
		}
	}
	return n
}

// completeCurrent fires the heuristic for the current track.
func completeCurrent(t *testing.T, s *Session, clock *fakeClock) {
	t.Helper()
	assert.Equal(t, SignalCompleted, s.Tick(clock.Advance(time.Minute)))
}

func TestSession_PlayTrack(t *testing.T) {
	s, _, clock := newTestSession(t, false, false, "a")

	require.NoError(t, s.PlayTrack("a"))

	id, ok := s.NowPlayingID()
	assert.True(t, ok)
	assert.Equal(t, "a", id)
	assert.True(t, s.IsPlaying())
	assert.Equal(t, StatePlaying, s.State())
	assert.Equal(t, []string{"a"}, s.HistorySnapshot())

	snap := s.Snapshot()
	assert.Equal(t, clock.Now(), snap.StartedAt)
	assert.Equal(t, time.Minute, snap.Duration)

	e := <-s.Events()
	assert.Equal(t, EventTrackStarted, e.Type)
	assert.Equal(t, "/media/a", e.Handle)
	assert.Equal(t, time.Minute, e.Duration)
	assert.Equal(t, StatePlaying, e.State)
}

func TestSession_PlayTrackUnavailable(t *testing.T) {
	s, catalog, _ := newTestSession(t, true, false, "a", "b")
	catalog.unavailable["b"] = true
	require.NoError(t, s.PlayTrack("a"))
	s.Enqueue("b")
	before := s.Snapshot()

	for _, id := range []string{"b", "missing"} {
		err := s.PlayTrack(id)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrTrackUnavailable))
		assert.Contains(t, err.Error(), id)
	}

	after := s.Snapshot()
	assert.Equal(t, before.TrackID, after.TrackID)
	assert.Equal(t, before.State, after.State)
	assert.Equal(t, before.Queue, after.Queue)
	assert.Equal(t, before.History, after.History)
}

func TestSession_DefaultDurationWhenUnknown(t *testing.T) {
	s, catalog, _ := newTestSession(t, false, false, "a")
	catalog.durations["a"] = 0

	require.NoError(t, s.PlayTrack("a"))
	assert.Equal(t, 180*time.Second, s.Snapshot().Duration)
}

func TestSession_PlayFromQueue(t *testing.T) {
	tests := []struct {
		name      string
		replay    bool
		index     int
		wantTrack string
		wantQueue []string
	}{
		{name: "Consumes without replay", replay: false, index: 1, wantTrack: "b", wantQueue: []string{"a", "c"}},
		{name: "Keeps with replay", replay: true, index: 1, wantTrack: "b", wantQueue: []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, _ := newTestSession(t, false, tt.replay, "a", "b", "c")
			s.Enqueue("a")
			s.Enqueue("b")
			s.Enqueue("c")

			require.NoError(t, s.PlayFromQueue(tt.index))

			id, _ := s.NowPlayingID()
			assert.Equal(t, tt.wantTrack, id)
			assert.Equal(t, tt.wantQueue, s.QueueSnapshot())
		})
	}
}

func TestSession_PlayFromQueueInvalidIndex(t *testing.T) {
	s, _, _ := newTestSession(t, true, false, "a")
	s.Enqueue("a")

	for _, index := range []int{-1, 1, 10} {
		err := s.PlayFromQueue(index)
		assert.True(t, errors.Is(err, ErrIndexOutOfRange), "index %d", index)
	}

	_, playing := s.NowPlayingID()
	assert.False(t, playing)
	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, []string{"a"}, s.QueueSnapshot())
}

func TestSession_ManualOverrideIsOneShot(t *testing.T) {
	s, _, clock := newTestSession(t, true, true, "a", "b", "c", "d")
	for _, id := range []string{"a", "b", "c", "d"} {
		s.Enqueue(id)
	}

	require.NoError(t, s.Next())
	id, _ := s.NowPlayingID()
	assert.Equal(t, "a", id)
	assert.Equal(t, []string{"b", "c", "d"}, s.QueueSnapshot())
	assert.True(t, s.Replay())

	require.NoError(t, s.PlayFromQueueManual(0, false))
	id, _ = s.NowPlayingID()
	assert.Equal(t, "b", id)
	assert.Equal(t, []string{"b", "c", "d"}, s.QueueSnapshot())

	// Replay rotation still applies after the manual plays.
	completeCurrent(t, s, clock)
	id, _ = s.NowPlayingID()
	assert.Equal(t, "b", id)
	assert.Equal(t, []string{"c", "d", "b"}, s.QueueSnapshot())
}

func TestSession_ManualOverrideDiscardedOnFailure(t *testing.T) {
	s, catalog, _ := newTestSession(t, false, true, "a", "b")
	catalog.unavailable["a"] = true
	s.Enqueue("a")
	s.Enqueue("b")

	err := s.PlayFromQueueManual(0, true)
	require.True(t, errors.Is(err, ErrTrackUnavailable))
	assert.Equal(t, []string{"a", "b"}, s.QueueSnapshot())

	require.NoError(t, s.PlayFromQueue(1))
	assert.Equal(t, []string{"a", "b"}, s.QueueSnapshot(), "replay default applies again")
}

func TestSession_NextOnEmptyQueue(t *testing.T) {
	s, _, _ := newTestSession(t, true, false, "a")

	err := s.Next()
	assert.True(t, errors.Is(err, ErrQueueEmpty))
	assert.Equal(t, StateIdle, s.State())
}

func TestSession_AdvanceReplayRotation(t *testing.T) {
	s, _, clock := newTestSession(t, true, true, "a", "b", "c", "x")
	require.NoError(t, s.PlayTrack("x"))
	for _, id := range []string{"a", "b", "c"} {
		s.Enqueue(id)
	}

	completeCurrent(t, s, clock)

	id, _ := s.NowPlayingID()
	assert.Equal(t, "a", id)
	assert.Equal(t, []string{"b", "c", "a"}, s.QueueSnapshot())

	completeCurrent(t, s, clock)
	id, _ = s.NowPlayingID()
	assert.Equal(t, "b", id)
	assert.Equal(t, []string{"c", "a", "b"}, s.QueueSnapshot())
}

func TestSession_AdvanceConsumesWithoutReplay(t *testing.T) {
	s, _, clock := newTestSession(t, true, false, "a", "b", "x")
	require.NoError(t, s.PlayTrack("x"))
	s.Enqueue("a")
	s.Enqueue("b")

	completeCurrent(t, s, clock)

	id, _ := s.NowPlayingID()
	assert.Equal(t, "a", id)
	assert.Equal(t, []string{"b"}, s.QueueSnapshot())
	assert.Equal(t, []string{"x", "a"}, s.HistorySnapshot())
}

func TestSession_AdvanceAutoplayOff(t *testing.T) {
	s, _, clock := newTestSession(t, false, false, "a", "b")
	require.NoError(t, s.PlayTrack("a"))
	s.Enqueue("b")
	drainEvents(s)

	completeCurrent(t, s, clock)

	id, ok := s.NowPlayingID()
	assert.True(t, ok)
	assert.Equal(t, "a", id)
	assert.False(t, s.IsPlaying())
	assert.Equal(t, StateEnded, s.State())
	assert.Equal(t, []string{"b"}, s.QueueSnapshot())
	assert.Equal(t, []EventType{EventTrackEnded, EventPlaybackEnded}, drainEvents(s))

	// Later ticks do nothing.
	assert.Equal(t, SignalNone, s.Tick(clock.Advance(time.Hour)))
}

func TestSession_AtMostOnceCompletion(t *testing.T) {
	t.Run("Tick then event", func(t *testing.T) {
		s, _, clock := newTestSession(t, true, false, "a", "b", "c")
		require.NoError(t, s.PlayTrack("a"))
		s.Enqueue("b")
		s.Enqueue("c")
		drainEvents(s)

		completeCurrent(t, s, clock)
		assert.False(t, s.OnCompletionEvent("a"))

		id, _ := s.NowPlayingID()
		assert.Equal(t, "b", id)
		assert.Equal(t, []string{"c"}, s.QueueSnapshot())
		assert.Equal(t, 1, countEvents(drainEvents(s), EventTrackEnded))
	})

	t.Run("Event then tick", func(t *testing.T) {
		s, _, clock := newTestSession(t, true, false, "a", "b", "c")
		require.NoError(t, s.PlayTrack("a"))
		s.Enqueue("b")
		s.Enqueue("c")
		startedA := clock.Now()
		drainEvents(s)

		assert.True(t, s.OnCompletionEvent("a"))
		// A tick computed for track a, captured before b started.
		assert.Equal(t, SignalNone, s.Tick(startedA.Add(-time.Second)))

		id, _ := s.NowPlayingID()
		assert.Equal(t, "b", id)
		assert.Equal(t, []string{"c"}, s.QueueSnapshot())
		assert.Equal(t, 1, countEvents(drainEvents(s), EventTrackEnded))
	})

	t.Run("Duplicate event with autoplay off", func(t *testing.T) {
		s, _, _ := newTestSession(t, false, false, "a")
		require.NoError(t, s.PlayTrack("a"))

		assert.True(t, s.OnCompletionEvent("a"))
		assert.False(t, s.OnCompletionEvent("a"))
		assert.Equal(t, 1, s.Snapshot().DuplicateDiscards)
	})

	t.Run("Concurrent sources", func(t *testing.T) {
		s, _, clock := newTestSession(t, true, false, "a", "b", "c")
		require.NoError(t, s.PlayTrack("a"))
		s.Enqueue("b")
		s.Enqueue("c")
		// b starts at end, so ticks that lose the race see zero elapsed.
		end := clock.Advance(time.Minute)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				s.Tick(end)
			}()
			go func() {
				defer wg.Done()
				s.OnCompletionEvent("a")
			}()
		}
		wg.Wait()

		id, _ := s.NowPlayingID()
		assert.Equal(t, "b", id)
		assert.Equal(t, []string{"c"}, s.QueueSnapshot())
	})
}

func TestSession_StaleDiscard(t *testing.T) {
	s, _, clock := newTestSession(t, true, false, "a", "b", "c")
	require.NoError(t, s.PlayTrack("a"))
	s.Enqueue("c")
	staleTick := clock.Advance(time.Minute)

	// User switches to b before the tick for a is processed.
	clock.Advance(time.Second)
	require.NoError(t, s.PlayTrack("b"))

	assert.Equal(t, SignalNone, s.Tick(staleTick))
	assert.False(t, s.OnCompletionEvent("a"))

	id, _ := s.NowPlayingID()
	assert.Equal(t, "b", id)
	assert.True(t, s.IsPlaying())
	assert.Equal(t, []string{"c"}, s.QueueSnapshot())
	assert.Equal(t, 2, s.Snapshot().StaleDiscards)
}

func TestSession_StopInvalidatesCompletion(t *testing.T) {
	s, _, clock := newTestSession(t, true, false, "a", "b")
	require.NoError(t, s.PlayTrack("a"))
	s.Enqueue("b")

	s.Stop()

	_, ok := s.NowPlayingID()
	assert.False(t, ok)
	assert.Equal(t, StateIdle, s.State())
	assert.False(t, s.OnCompletionEvent("a"))
	assert.Equal(t, SignalNone, s.Tick(clock.Advance(time.Hour)))
	assert.Equal(t, []string{"b"}, s.QueueSnapshot())
}

func TestSession_EmptyQueueAutoplay(t *testing.T) {
	s, _, clock := newTestSession(t, true, false, "x")
	require.NoError(t, s.PlayTrack("x"))
	drainEvents(s)

	completeCurrent(t, s, clock)

	_, ok := s.NowPlayingID()
	assert.False(t, ok)
	assert.False(t, s.IsPlaying())
	assert.Equal(t, StateIdle, s.State())
	assert.Empty(t, s.QueueSnapshot())
	assert.Equal(t, []string{"x"}, s.HistorySnapshot())

	var notice *Event
	for _, e := range drainAll(s) {
		if e.Type == EventAutoplayQueueEmpty {
			e := e
			notice = &e
		}
	}
	require.NotNil(t, notice)
	assert.True(t, errors.Is(notice.Err, ErrEmptyQueueAutoplay))
	assert.Equal(t, StateIdle, notice.State, "notice reports the state the session settles in")
	assert.Equal(t, "x", notice.TrackID)
	assert.True(t, s.Snapshot().EmptyQueueWarned)
}

func TestSession_EmptyQueueNoticeLatch(t *testing.T) {
	s, _, clock := newTestSession(t, true, false, "x", "y")

	play := func(id string) []EventType {
		require.NoError(t, s.PlayTrack(id))
		completeCurrent(t, s, clock)
		return drainEvents(s)
	}

	assert.Equal(t, 1, countEvents(play("x"), EventAutoplayQueueEmpty))
	assert.Equal(t, 0, countEvents(play("y"), EventAutoplayQueueEmpty), "notice is not repeated")

	// Enqueue resets the latch; the queued track is consumed, then the queue is empty again.
	assert.True(t, s.Enqueue("y"))
	assert.False(t, s.Snapshot().EmptyQueueWarned)
	events := play("x")
	assert.Equal(t, 0, countEvents(events, EventAutoplayQueueEmpty))
	id, _ := s.NowPlayingID()
	assert.Equal(t, "y", id)

	completeCurrent(t, s, clock)
	assert.Equal(t, 1, countEvents(drainEvents(s), EventAutoplayQueueEmpty))
}

func TestSession_EmptyQueueAutoplayWithReplay(t *testing.T) {
	s, _, clock := newTestSession(t, true, true, "x")
	require.NoError(t, s.PlayTrack("x"))

	completeCurrent(t, s, clock)

	id, ok := s.NowPlayingID()
	assert.True(t, ok)
	assert.Equal(t, "x", id)
	assert.Equal(t, StatePlaying, s.State())
	assert.Equal(t, []string{"x"}, s.QueueSnapshot())
	assert.Equal(t, []string{"x"}, s.HistorySnapshot())

	// Keeps looping.
	completeCurrent(t, s, clock)
	id, _ = s.NowPlayingID()
	assert.Equal(t, "x", id)
	assert.Equal(t, []string{"x"}, s.QueueSnapshot())
}

func TestSession_LateEndedForEarlierPlayOfSameTrack(t *testing.T) {
	s, _, clock := newTestSession(t, true, true, "x")
	require.NoError(t, s.PlayTrack("x"))
	first := s.Snapshot().PlaySeq
	drainEvents(s)

	// The heuristic wins; replay starts x again.
	completeCurrent(t, s, clock)
	second := s.Snapshot().PlaySeq
	require.Greater(t, second, first)

	// The player's "ended" for the first play arrives late.
	assert.False(t, s.OnPlayEnded("x", first))

	events := drainAll(s)
	var started []Event
	for _, e := range events {
		if e.Type == EventTrackStarted {
			started = append(started, e)
		}
	}
	require.Len(t, started, 1)
	assert.Equal(t, second, started[0].PlaySeq)
	assert.Equal(t, 1, countEvents(drainEventTypes(events), EventTrackEnded))
	assert.Equal(t, StatePlaying, s.State())
	assert.Equal(t, 1, s.Snapshot().StaleDiscards)

	// The report for the current play is accepted once.
	assert.True(t, s.OnPlayEnded("x", second))
	assert.False(t, s.OnPlayEnded("x", second))
	assert.Greater(t, s.Snapshot().PlaySeq, second)
}

func TestSession_Previous(t *testing.T) {
	s, _, _ := newTestSession(t, true, false, "a", "b", "c", "d")

	err := s.Previous()
	assert.True(t, errors.Is(err, ErrNoPrevious), "empty history")

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.PlayTrack(id))
	}
	s.Enqueue("d")

	steps := []string{"b", "a"}
	for _, want := range steps {
		require.NoError(t, s.Previous())
		id, _ := s.NowPlayingID()
		assert.Equal(t, want, id)
		assert.Equal(t, StatePlaying, s.State())
	}

	err = s.Previous()
	assert.True(t, errors.Is(err, ErrNoPrevious), "oldest entry reached")
	id, _ := s.NowPlayingID()
	assert.Equal(t, "a", id)

	assert.Equal(t, []string{"a", "b", "c"}, s.HistorySnapshot())
	assert.Equal(t, []string{"d"}, s.QueueSnapshot())

	// A regular play records again and restarts the walk from the newest entry.
	require.NoError(t, s.PlayTrack("d"))
	require.NoError(t, s.Previous())
	id, _ = s.NowPlayingID()
	assert.Equal(t, "c", id)
	assert.Equal(t, []string{"a", "b", "c", "d"}, s.HistorySnapshot())
}

func TestSession_PreviousWhenStopped(t *testing.T) {
	s, catalog, _ := newTestSession(t, false, false, "a", "b")
	require.NoError(t, s.PlayTrack("a"))
	require.NoError(t, s.PlayTrack("b"))
	s.Stop()

	require.NoError(t, s.Previous())
	id, _ := s.NowPlayingID()
	assert.Equal(t, "b", id, "replays the newest entry")

	catalog.unavailable["a"] = true
	err := s.Previous()
	assert.True(t, errors.Is(err, ErrTrackUnavailable))
	id, _ = s.NowPlayingID()
	assert.Equal(t, "b", id)
}

func TestSession_AdvanceTrackUnavailable(t *testing.T) {
	s, catalog, clock := newTestSession(t, true, false, "a", "b", "c")
	catalog.unavailable["b"] = true
	require.NoError(t, s.PlayTrack("a"))
	s.Enqueue("b")
	s.Enqueue("c")
	drainEvents(s)

	completeCurrent(t, s, clock)

	assert.Equal(t, StateEnded, s.State())
	assert.False(t, s.IsPlaying())
	assert.Equal(t, []string{"b", "c"}, s.QueueSnapshot())
	assert.Equal(t, 1, countEvents(drainEvents(s), EventTrackUnavailable))
}

func TestSession_NearEnd(t *testing.T) {
	s, _, clock := newTestSession(t, true, false, "a", "b")
	require.NoError(t, s.PlayTrack("a"))
	s.Enqueue("b")
	drainEvents(s)

	assert.Equal(t, SignalNearEnd, s.Tick(clock.Advance(52*time.Second)))
	assert.Equal(t, SignalNone, s.Tick(clock.Advance(time.Second)))

	id, _ := s.NowPlayingID()
	assert.Equal(t, "a", id, "near-end never advances")
	assert.Equal(t, []string{"b"}, s.QueueSnapshot())
	assert.Equal(t, []EventType{EventNearEnd}, drainEvents(s))
}

func TestSession_HistoryDedupeAndCap(t *testing.T) {
	s, _, _ := newTestSession(t, false, false, "a", "b", "c", "d", "e", "f")

	require.NoError(t, s.PlayTrack("a"))
	require.NoError(t, s.PlayTrack("a"))
	assert.Equal(t, []string{"a"}, s.HistorySnapshot())

	for _, id := range []string{"b", "c", "d", "e", "f"} {
		require.NoError(t, s.PlayTrack(id))
	}
	assert.Equal(t, []string{"b", "c", "d", "e", "f"}, s.HistorySnapshot())
}

func TestSession_TogglesDoNotMutateQueue(t *testing.T) {
	s, _, _ := newTestSession(t, false, false, "a")
	s.Enqueue("a")
	drainEvents(s)

	s.SetAutoplay(true)
	s.SetReplay(true)
	s.SetReplay(true)

	assert.True(t, s.Autoplay())
	assert.True(t, s.Replay())
	assert.Equal(t, []string{"a"}, s.QueueSnapshot())
	assert.Empty(t, s.HistorySnapshot())
	assert.Equal(t, []EventType{EventModeChanged, EventModeChanged}, drainEvents(s))
}

func TestSession_QueueCommands(t *testing.T) {
	s, _, _ := newTestSession(t, false, false, "a", "b")

	assert.True(t, s.Enqueue("a"))
	assert.False(t, s.Enqueue("a"))
	assert.True(t, s.Enqueue("b"))

	id, err := s.DequeueAt(0)
	require.NoError(t, err)
	assert.Equal(t, "a", id)

	_, err = s.DequeueAt(3)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))

	s.ClearQueue()
	assert.Empty(t, s.QueueSnapshot())
}

func TestSession_CloseStopsEvents(t *testing.T) {
	s := NewSession(newFakeCatalog("a"), Config{})
	s.Close()
	s.Close()

	require.NoError(t, s.PlayTrack("a"))
	_, ok := <-s.Events()
	assert.False(t, ok)
}
