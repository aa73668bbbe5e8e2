// Package session provides the session manager that hosts the playback
// state machine: it drives ticks, validates requests and broadcasts events.
package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/osa030/solobox/internal/app/catalog"
	"github.com/osa030/solobox/internal/app/filter"
	"github.com/osa030/solobox/internal/app/notification"
	"github.com/osa030/solobox/internal/app/playback"
	"github.com/osa030/solobox/internal/domain/track"
	"github.com/osa030/solobox/internal/infra/config"
)

var (
	ErrAlreadyStarted = errors.New("session already started")
	ErrNoMediaFiles   = errors.New("catalog does not serve media files")
)

// NotificationCatalogChanged is broadcast after the catalog was rescanned.
const NotificationCatalogChanged = "catalog_changed"

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now for ticks and status.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// Manager manages the jukebox session.
type Manager struct {
	mu sync.RWMutex

	// Configuration
	config *config.Config
	id     string
	now    func() time.Time

	// Components
	catalog      catalog.Catalog
	playback     *playback.Session
	filterChain  *filter.Chain
	notification *notification.Manager

	startedAt time.Time
	started   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewManager creates a new session manager.
func NewManager(cfg *config.Config, cat catalog.Catalog, opts ...Option) (*Manager, error) {
	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		config:       cfg,
		id:           uuid.New().String(),
		now:          time.Now,
		catalog:      cat,
		notification: notification.NewManager(),
		filterChain:  filter.NewChain(),
		ctx:          ctx,
		cancel:       cancel,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.playback = playback.NewSession(cat, playback.Config{
		DefaultDuration: cfg.Playback.DefaultDuration(),
		EarlyMargin:     cfg.Playback.EarlyMargin(),
		HistoryCapacity: cfg.Playback.HistoryCapacity,
		Autoplay:        cfg.Playback.Autoplay,
		Replay:          cfg.Playback.Replay,
		EventBuffer:     cfg.Playback.EventBuffer,
		Now:             m.now,
	})

	if err := m.setupFilters(); err != nil {
		cancel()
		m.playback.Close()
		return nil, err
	}

	return m, nil
}

// setupFilters initializes the filter chain.
func (m *Manager) setupFilters() error {
	cfg := m.config

	// CatalogFilter always runs first
	m.filterChain.Add(filter.NewCatalogFilter(m.catalog))

	// DuplicateTrackFilter
	if cfg.IsFilterEnabled("duplicate_track_filter") {
		m.filterChain.Add(filter.NewDuplicateTrackFilter(m))
	}

	// Registered filters in name order
	registered := filter.GetRegistered()
	names := lo.Keys(registered)
	sort.Strings(names)
	for _, name := range names {
		if !cfg.IsFilterEnabled(name) {
			continue
		}
		f := registered[name]()
		if err := f.ValidateConfig(cfg.GetFilterSettings(name)); err != nil {
			return errors.Wrapf(err, "invalid settings for filter %s", name)
		}
		m.filterChain.Add(f)
	}

	zlog.Info().Msgf("session: filters=%v", lo.Map(m.filterChain.Filters(), func(f filter.Filter, _ int) string {
		return f.Name()
	}))
	return nil
}

// Start starts the tick loop, the event loop and, when configured, the
// catalog watcher.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return ErrAlreadyStarted
	}
	m.started = true
	m.startedAt = m.now()

	m.wg.Add(2)
	go m.eventLoop()
	go m.tickLoop(m.config.Playback.TickInterval())

	if w, ok := m.catalog.(catalog.Watcher); ok && m.config.Catalog.Directory.Watch {
		if err := w.Watch(m.ctx, m.onCatalogChanged); err != nil {
			// Playback works without the watcher.
			zlog.Warn().Err(err).Msg("session: catalog watch disabled")
		}
	}

	// Stop when the caller's context ends
	go func() {
		select {
		case <-ctx.Done():
			m.Close()
		case <-m.ctx.Done():
		}
	}()

	zlog.Info().Msgf("session: started id=%s autoplay=%t replay=%t tick=%v",
		m.id, m.playback.Autoplay(), m.playback.Replay(), m.config.Playback.TickInterval())
	return nil
}

// Close stops the loops and closes the playback session.
func (m *Manager) Close() {
	m.once.Do(func() {
		m.cancel()
		m.playback.Close()
		m.wg.Wait()
		m.notification.Close()
		zlog.Info().Msgf("session: closed id=%s", m.id)
	})
}

// ID returns the session ID.
func (m *Manager) ID() string {
	return m.id
}

// GetNotificationManager returns the notification manager.
func (m *Manager) GetNotificationManager() *notification.Manager {
	return m.notification
}

// Enqueue validates id with the filter chain and appends it to the queue.
// The code is empty on success and names the reason otherwise.
func (m *Manager) Enqueue(ctx context.Context, id string) (bool, string) {
	t, _ := m.catalog.Lookup(id)
	if t.ID != "" {
		id = t.ID
	}

	result := m.filterChain.Execute(ctx, filter.TrackRequest{TrackID: id}, t)
	if !result.Accepted {
		zlog.Info().Msgf("session: enqueue rejected track=%s filter=%s code=%s", id, result.Filter, result.Code)
		return false, result.Code
	}

	if !m.playback.Enqueue(id) {
		zlog.Debug().Msgf("session: enqueue skipped track=%s code=already_queued", id)
		return false, "already_queued"
	}
	zlog.Info().Msgf("session: enqueued track=%q", t.DisplayName)
	return true, ""
}

// DequeueAt removes the queue entry at index.
func (m *Manager) DequeueAt(index int) (string, error) {
	return m.playback.DequeueAt(index)
}

// ClearQueue empties the queue.
func (m *Manager) ClearQueue() {
	m.playback.ClearQueue()
}

// PlayTrack plays id immediately.
func (m *Manager) PlayTrack(id string) error {
	if t, ok := m.catalog.Lookup(id); ok {
		id = t.ID
	}
	return m.playback.PlayTrack(id)
}

// PlayFromQueue plays the queue entry at index. remove, when set, overrides
// the replay policy for this one play.
func (m *Manager) PlayFromQueue(index int, remove *bool) error {
	if remove != nil {
		return m.playback.PlayFromQueueManual(index, *remove)
	}
	return m.playback.PlayFromQueue(index)
}

// Next skips to the head of the queue.
func (m *Manager) Next() error {
	return m.playback.Next()
}

// Previous steps back through the play history.
func (m *Manager) Previous() error {
	return m.playback.Previous()
}

// Stop stops playback.
func (m *Manager) Stop() {
	m.playback.Stop()
}

// SetAutoplay sets the autoplay flag.
func (m *Manager) SetAutoplay(enabled bool) {
	m.playback.SetAutoplay(enabled)
}

// SetReplay sets the replay flag.
func (m *Manager) SetReplay(enabled bool) {
	m.playback.SetReplay(enabled)
}

// ReportEnded forwards an "ended" event of the audio player. playSeq is the
// play_seq of the track_started notification it played, or 0 when unknown.
func (m *Manager) ReportEnded(trackID string, playSeq uint64) bool {
	return m.playback.OnPlayEnded(trackID, playSeq)
}

// Tick drives the completion heuristic once.
func (m *Manager) Tick() playback.Signal {
	return m.playback.Tick(m.now())
}

// QueuedTracks returns the queued tracks that are still in the catalog.
func (m *Manager) QueuedTracks() []track.Track {
	return lo.FilterMap(m.playback.QueueSnapshot(), func(id string, _ int) (track.Track, bool) {
		return m.catalog.Lookup(id)
	})
}

// Tracks lists the catalog, filtered by query when it is not empty.
func (m *Manager) Tracks(ctx context.Context, query string) ([]track.Track, error) {
	if query == "" {
		return m.catalog.ListTracks(ctx)
	}
	return m.catalog.Search(query), nil
}

// Lookup returns the catalog track for id.
func (m *Manager) Lookup(id string) (track.Track, bool) {
	return m.catalog.Lookup(id)
}

// Lyrics returns the lyrics of id.
func (m *Manager) Lyrics(id string) (string, error) {
	return m.catalog.Lyrics(id)
}

// FilePath resolves id to a local file when the catalog serves files.
func (m *Manager) FilePath(id string) (string, error) {
	r, ok := m.catalog.(catalog.FileResolver)
	if !ok {
		return "", ErrNoMediaFiles
	}
	return r.FilePath(id)
}

// Message returns the configured user-facing message for code.
func (m *Manager) Message(code string) string {
	return m.config.GetMessage(code)
}

// Status represents the current session status with all information.
type Status struct {
	SessionID   string
	StartedAt   time.Time
	Playback    playback.Snapshot
	Current     *track.Track
	Elapsed     time.Duration
	Remaining   time.Duration
	Subscribers int
}

// GetStatus returns the current session status.
func (m *Manager) GetStatus() *Status {
	m.mu.RLock()
	startedAt := m.startedAt
	m.mu.RUnlock()

	snap := m.playback.Snapshot()
	now := m.now()
	status := &Status{
		SessionID:   m.id,
		StartedAt:   startedAt,
		Playback:    snap,
		Subscribers: m.notification.SubscriberCount(),
	}
	if snap.TrackID != "" {
		if t, ok := m.catalog.Lookup(snap.TrackID); ok {
			status.Current = &t
		}
	}
	if snap.Playing {
		status.Elapsed = snap.Elapsed(now)
		status.Remaining = max(snap.Duration-status.Elapsed, 0)
	}
	return status
}

// tickLoop calls Tick on every interval.
func (m *Manager) tickLoop(interval time.Duration) {
	defer m.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			if sig := m.Tick(); sig != playback.SignalNone {
				zlog.Debug().Msgf("session: tick signal=%s", sig)
			}
		}
	}
}

// eventLoop turns playback events into notifications.
func (m *Manager) eventLoop() {
	defer m.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("session: event loop panicked: %v", r)
			// Restart loop so notifications keep flowing
			zlog.Info().Msg("session: restarting event loop")
			m.wg.Add(1)
			go m.eventLoop()
		}
	}()

	events := m.playback.Events()
	for {
		select {
		case <-m.ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			m.handlePlaybackEvent(event)
		}
	}
}

// handlePlaybackEvent broadcasts the event to subscribers.
func (m *Manager) handlePlaybackEvent(event playback.Event) {
	zlog.Debug().Msgf("session: broadcast type=%s track=%s state=%s subscribers=%d",
		event.Type, event.TrackID, event.State, m.notification.SubscriberCount())
	m.notification.Broadcast(m.buildNotification(event))
}

func (m *Manager) buildNotification(event playback.Event) *notification.Notification {
	n := &notification.Notification{
		Type:       event.Type.String(),
		TrackID:    event.TrackID,
		PlaySeq:    event.PlaySeq,
		Handle:     event.Handle,
		DurationMs: event.Duration.Milliseconds(),
		State:      event.State.String(),
		Queue:      event.Queue,
		History:    m.playback.HistorySnapshot(),
		Autoplay:   event.Autoplay,
		Replay:     event.Replay,
	}

	switch event.Type {
	case playback.EventAutoplayQueueEmpty:
		n.Message = m.config.GetMessage("empty_queue_autoplay")
	case playback.EventPlaybackEnded:
		n.Message = m.config.GetMessage("autoplay_disabled")
	case playback.EventTrackUnavailable:
		n.Message = fmt.Sprintf("%s (%s)", m.config.GetMessage("track_unavailable"), m.displayName(event.TrackID))
	}
	return n
}

func (m *Manager) displayName(id string) string {
	if t, ok := m.catalog.Lookup(id); ok {
		return t.DisplayName
	}
	return id
}

// SnapshotNotification describes the current state as a notification of
// type typ, stamped with the last broadcast sequence number.
func (m *Manager) SnapshotNotification(typ string) *notification.Notification {
	snap := m.playback.Snapshot()
	n := &notification.Notification{
		SequenceNo: m.notification.SequenceNo(),
		Type:       typ,
		TrackID:    snap.TrackID,
		PlaySeq:    snap.PlaySeq,
		DurationMs: snap.Duration.Milliseconds(),
		State:      snap.State.String(),
		Queue:      snap.Queue,
		History:    snap.History,
		Autoplay:   snap.Autoplay,
		Replay:     snap.Replay,
	}
	if snap.TrackID != "" {
		if t, ok := m.catalog.Lookup(snap.TrackID); ok {
			n.Handle = t.Handle
		}
	}
	return n
}

func (m *Manager) onCatalogChanged() {
	m.notification.Broadcast(m.SnapshotNotification(NotificationCatalogChanged))
}
