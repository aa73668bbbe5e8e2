package playback

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/osa030/solobox/internal/domain/track"
	zlog "github.com/rs/zerolog/log"
)

// Catalog is what the session needs from the track catalog.
type Catalog interface {
	EstimatedDuration(id string) time.Duration
	ResolvePlayableHandle(id string) (string, error)
}

// Config holds session configuration.
type Config struct {
	DefaultDuration time.Duration    // Used when the catalog has no duration
	EarlyMargin     time.Duration    // Near-end signal lead time
	HistoryCapacity int              // Max history entries
	Autoplay        bool             // Initial autoplay flag
	Replay          bool             // Initial replay flag
	EventBuffer     int              // Event channel capacity
	Now             func() time.Time // Clock used to stamp play starts (default time.Now)
}

// Snapshot is a consistent read-only copy of the session state.
type Snapshot struct {
	State             State
	TrackID           string
	PlaySeq           uint64
	Playing           bool
	StartedAt         time.Time
	Duration          time.Duration
	Autoplay          bool
	Replay            bool
	Queue             []string
	History           []string
	EmptyQueueWarned  bool
	StaleDiscards     int
	DuplicateDiscards int
}

// Elapsed returns the play time at now, clamped to [0, Duration].
func (s Snapshot) Elapsed(now time.Time) time.Duration {
	if s.TrackID == "" || s.StartedAt.IsZero() {
		return 0
	}
	elapsed := now.Sub(s.StartedAt)
	if elapsed < 0 {
		return 0
	}
	if elapsed > s.Duration {
		return s.Duration
	}
	return elapsed
}

// Session is the playback state machine. It owns the queue, the history and
// the completion detector; every command, tick and completion event runs
// under one mutex so completion is handled at most once per play.
type Session struct {
	mu sync.RWMutex

	catalog  Catalog
	config   Config
	queue    *Queue
	history  *History
	detector *Detector

	// Now playing
	state     State
	currentID string
	playing   bool
	startedAt time.Time
	duration  time.Duration

	autoplay bool
	replay   bool

	// One-shot removeAfterPlaying override, consumed by the next queue play
	manualRemove *bool

	// History index of the current track while stepping back with Previous;
	// -1 when the current track is the newest history entry
	historyCursor int

	// Empty-queue autoplay notice latch, reset by a successful enqueue
	emptyWarned bool

	staleDiscards     int
	duplicateDiscards int

	eventCh chan Event
	closed  bool
}

// NewSession creates a new playback session.
func NewSession(catalog Catalog, config Config) *Session {
	if config.DefaultDuration <= 0 {
		config.DefaultDuration = track.DefaultDuration
	}
	if config.EarlyMargin <= 0 {
		config.EarlyMargin = DefaultEarlyMargin
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = 32
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Session{
		catalog:       catalog,
		config:        config,
		queue:         NewQueue(),
		history:       NewHistory(config.HistoryCapacity),
		detector:      NewDetector(config.DefaultDuration, config.EarlyMargin),
		state:         StateIdle,
		historyCursor: -1,
		autoplay:      config.Autoplay,
		replay:        config.Replay,
		eventCh:       make(chan Event, config.EventBuffer),
	}
}

// Events returns the event channel. It is closed by Close.
func (s *Session) Events() <-chan Event {
	return s.eventCh
}

// Close closes the event channel. Commands keep working but emit nothing.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.eventCh)
}

// PlayTrack starts playing id. On ErrTrackUnavailable nothing changes.
func (s *Session) PlayTrack(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.playTrackLocked(id)
}

// PlayFromQueue plays the queue entry at index, removing it unless replay is on.
func (s *Session) PlayFromQueue(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.playFromQueueLocked(index)
	return err
}

// PlayFromQueueManual plays the queue entry at index with an explicit remove
// decision. The decision applies to this call only.
func (s *Session) PlayFromQueueManual(index int, remove bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.playFromQueueManualLocked(index, remove)
}

// Next plays the head of the queue and consumes it, even in replay mode.
func (s *Session) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queue.IsEmpty() {
		return ErrQueueEmpty
	}
	return s.playFromQueueManualLocked(0, true)
}

// Previous plays the history entry before the current track. Repeated calls
// keep stepping back. History is not rewritten and the queue is untouched.
// With nothing playing it replays the newest entry.
func (s *Session) Previous() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// index is the history position of the current track
	index := s.history.Len()
	switch {
	case s.historyCursor >= 0 && s.currentID != "":
		index = s.historyCursor
	case s.currentID != "":
		if last, ok := s.history.MostRecent(); ok && last == s.currentID {
			index--
		}
	}
	index--

	id, ok := s.history.At(index)
	if !ok {
		return ErrNoPrevious
	}
	if err := s.startLocked(id, false); err != nil {
		return err
	}
	s.historyCursor = index
	return nil
}

// Stop stops playback and invalidates any in-flight completion.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	stopped := s.currentID
	s.playing = false
	s.currentID = ""
	s.startedAt = time.Time{}
	s.duration = 0
	s.detector.Disarm()
	s.historyCursor = -1
	s.state = StateIdle

	zlog.Info().Msgf("playback: stopped track=%s", stopped)
	s.sendEventLocked(Event{Type: EventStopped, TrackID: stopped})
}

// SetAutoplay sets the autoplay flag. It never touches the queue or history.
func (s *Session) SetAutoplay(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.autoplay == enabled {
		return
	}
	s.autoplay = enabled
	zlog.Info().Msgf("playback: autoplay=%v", enabled)
	s.sendEventLocked(Event{Type: EventModeChanged, TrackID: s.currentID})
}

// SetReplay sets the replay flag. It never touches the queue or history.
func (s *Session) SetReplay(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.replay == enabled {
		return
	}
	s.replay = enabled
	zlog.Info().Msgf("playback: replay=%v", enabled)
	s.sendEventLocked(Event{Type: EventModeChanged, TrackID: s.currentID})
}

// Enqueue appends id to the queue. Returns false if it is already queued.
func (s *Session) Enqueue(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.enqueueLocked(id)
}

// DequeueAt removes the queue entry at index.
func (s *Session) DequeueAt(index int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.queue.DequeueAt(index)
	if err != nil {
		return "", err
	}
	s.sendEventLocked(Event{Type: EventQueueChanged, TrackID: id})
	return id, nil
}

// ClearQueue empties the queue.
func (s *Session) ClearQueue() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queue.IsEmpty() {
		return
	}
	s.queue.Clear()
	s.sendEventLocked(Event{Type: EventQueueChanged})
}

// OnCompletionEvent handles an "ended" event reported by the audio player.
// Returns true if it was accepted as the completion of the current track.
func (s *Session) OnCompletionEvent(trackID string) bool {
	return s.OnPlayEnded(trackID, 0)
}

// OnPlayEnded is OnCompletionEvent for hosts that echo the PlaySeq of the
// EventTrackStarted they played. An ended report for an earlier play of the
// same id is discarded as stale. playSeq 0 matches by id only.
func (s *Session) OnPlayEnded(trackID string, playSeq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sig, stale := s.detector.Ended(trackID, playSeq)
	if stale {
		s.staleDiscards++
		zlog.Debug().Msgf("playback: stale completion discarded track=%s play=%d current=%s play=%d",
			trackID, playSeq, s.currentID, s.detector.PlaySeq())
		return false
	}
	if sig != SignalCompleted {
		s.duplicateDiscards++
		zlog.Debug().Msgf("playback: duplicate completion discarded track=%s", trackID)
		return false
	}

	zlog.Debug().Msgf("playback: completion event track=%s", trackID)
	s.advanceLocked()
	return true
}

// Tick runs the elapsed-time heuristic at now.
func (s *Session) Tick(now time.Time) Signal {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.playing || !s.detector.Armed() {
		return SignalNone
	}
	if now.Before(s.detector.StartedAt()) {
		s.staleDiscards++
		zlog.Debug().Msgf("playback: stale tick discarded track=%s", s.currentID)
		return SignalNone
	}

	sig := s.detector.Evaluate(now)
	switch sig {
	case SignalNearEnd:
		s.sendEventLocked(Event{Type: EventNearEnd, TrackID: s.currentID})
	case SignalCompleted:
		zlog.Debug().Msgf("playback: heuristic completion track=%s", s.currentID)
		s.advanceLocked()
	}
	return sig
}

// NowPlayingID returns the current track id, if any.
func (s *Session) NowPlayingID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.currentID == "" {
		return "", false
	}
	return s.currentID, true
}

// IsPlaying reports whether a track is playing.
func (s *Session) IsPlaying() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playing
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Autoplay returns the autoplay flag.
func (s *Session) Autoplay() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.autoplay
}

// Replay returns the replay flag.
func (s *Session) Replay() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.replay
}

// QueueSnapshot returns a copy of the queue.
func (s *Session) QueueSnapshot() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queue.Snapshot()
}

// HistorySnapshot returns a copy of the history, oldest first.
func (s *Session) HistorySnapshot() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.Snapshot()
}

// Snapshot returns a consistent copy of the whole session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		State:             s.state,
		TrackID:           s.currentID,
		PlaySeq:           s.detector.PlaySeq(),
		Playing:           s.playing,
		StartedAt:         s.startedAt,
		Duration:          s.duration,
		Autoplay:          s.autoplay,
		Replay:            s.replay,
		Queue:             s.queue.Snapshot(),
		History:           s.history.Snapshot(),
		EmptyQueueWarned:  s.emptyWarned,
		StaleDiscards:     s.staleDiscards,
		DuplicateDiscards: s.duplicateDiscards,
	}
}

func (s *Session) enqueueLocked(id string) bool {
	if !s.queue.Enqueue(id) {
		return false
	}
	s.emptyWarned = false
	s.sendEventLocked(Event{Type: EventQueueChanged, TrackID: id})
	return true
}

func (s *Session) playTrackLocked(id string) error {
	return s.startLocked(id, true)
}

// startLocked starts id. record adds it to the history; Previous plays
// entries that are already there.
func (s *Session) startLocked(id string, record bool) error {
	handle, err := s.catalog.ResolvePlayableHandle(id)
	if err != nil {
		return trackUnavailable(id, err)
	}
	if handle == "" {
		return trackUnavailable(id, nil)
	}
	duration := track.ClampDuration(s.catalog.EstimatedDuration(id), s.config.DefaultDuration)

	s.state = StateLoading
	now := s.config.Now()
	s.detector.Arm(id, now, duration)
	s.currentID = id
	s.startedAt = now
	s.duration = duration
	s.playing = true
	if record {
		s.history.Record(id)
		s.historyCursor = -1
	}
	s.state = StatePlaying

	zlog.Info().Msgf("playback: track started id=%s play=%d duration=%s", id, s.detector.PlaySeq(), duration)
	s.sendEventLocked(Event{
		Type:     EventTrackStarted,
		TrackID:  id,
		Handle:   handle,
		Duration: duration,
	})
	return nil
}

func (s *Session) playFromQueueManualLocked(index int, remove bool) error {
	s.manualRemove = &remove
	defer func() { s.manualRemove = nil }()

	_, err := s.playFromQueueLocked(index)
	return err
}

// playFromQueueLocked is shared by explicit and autoplay-driven queue plays.
// It reports whether the entry was removed.
func (s *Session) playFromQueueLocked(index int) (bool, error) {
	id, err := s.queue.PeekAt(index)
	if err != nil {
		return false, err
	}

	remove := !s.replay
	if s.manualRemove != nil {
		remove = *s.manualRemove
		s.manualRemove = nil
	}

	if err := s.playTrackLocked(id); err != nil {
		return false, err
	}

	if !remove {
		return false, nil
	}
	if _, err := s.queue.DequeueAt(index); err != nil {
		return false, err
	}
	s.sendEventLocked(Event{Type: EventQueueChanged, TrackID: id})
	return true, nil
}

// advanceLocked applies the autoplay policy after an accepted completion.
func (s *Session) advanceLocked() {
	finished := s.currentID
	s.state = StateEnded
	s.playing = false
	s.sendEventLocked(Event{Type: EventTrackEnded, TrackID: finished})

	if !s.autoplay {
		zlog.Info().Msgf("playback: track ended, autoplay off track=%s", finished)
		s.sendEventLocked(Event{Type: EventPlaybackEnded, TrackID: finished})
		return
	}

	if !s.queue.IsEmpty() {
		s.advanceFromQueueLocked()
		return
	}

	if s.replay {
		if last, ok := s.history.MostRecent(); ok {
			s.enqueueLocked(last)
			s.advanceFromQueueLocked()
			return
		}
	}

	s.currentID = ""
	s.startedAt = time.Time{}
	s.duration = 0
	s.detector.Disarm()
	s.historyCursor = -1
	s.state = StateIdle

	if !s.emptyWarned {
		s.emptyWarned = true
		zlog.Info().Msg("playback: autoplay is on but the queue is empty")
		s.sendEventLocked(Event{Type: EventAutoplayQueueEmpty, TrackID: finished, Err: ErrEmptyQueueAutoplay})
	}
}

func (s *Session) advanceFromQueueLocked() {
	next, err := s.queue.PeekAt(0)
	if err != nil {
		return
	}

	removed, err := s.playFromQueueLocked(0)
	if err != nil {
		if errors.Is(err, ErrTrackUnavailable) {
			zlog.Warn().Err(err).Msgf("playback: autoplay stopped, track unavailable id=%s", next)
			s.sendEventLocked(Event{Type: EventTrackUnavailable, TrackID: next, Err: err})
		}
		return
	}

	if !removed {
		if err := s.queue.MoveToTail(0); err == nil && s.queue.Len() > 1 {
			s.sendEventLocked(Event{Type: EventQueueChanged, TrackID: next})
		}
	}
}

// sendEventLocked delivers e without blocking; events are dropped when the
// channel is full.
func (s *Session) sendEventLocked(e Event) {
	if s.closed {
		return
	}

	e.State = s.state
	e.PlaySeq = s.detector.PlaySeq()
	e.Autoplay = s.autoplay
	e.Replay = s.replay
	e.Queue = s.queue.Snapshot()

	select {
	case s.eventCh <- e:
	default:
		zlog.Warn().Msgf("playback: event channel full, dropped type=%s track=%s", e.Type, e.TrackID)
	}
}
