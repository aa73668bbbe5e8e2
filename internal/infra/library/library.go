// Package library provides a track catalog backed by a local music directory.
package library

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/osa030/solobox/internal/domain/playlist"
	"github.com/osa030/solobox/internal/domain/track"
)

// MediaPrefix is the URL path under which the host serves library files.
const MediaPrefix = "/media/"

// Handle modes
const (
	HandleURL  = "url"  // "/media/<id>", served by the host
	HandlePath = "path" // absolute file path
)

// Config represents directory catalog configuration.
type Config struct {
	Dir             string
	Extensions      []string
	ReadDuration    bool
	HandleMode      string
	DefaultDuration time.Duration
}

// Library lists the audio files of one directory.
type Library struct {
	config Config
	root   string
	exts   map[string]bool

	mu     sync.RWMutex
	tracks playlist.Playlist

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// New creates a library and performs the initial scan.
func New(cfg Config) (*Library, error) {
	root, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve music directory %s", cfg.Dir)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrapf(err, "music directory %s is not accessible", root)
	}
	if !info.IsDir() {
		return nil, errors.Newf("%s is not a directory", root)
	}

	if len(cfg.Extensions) == 0 {
		cfg.Extensions = []string{".mp3"}
	}
	if cfg.HandleMode == "" {
		cfg.HandleMode = HandleURL
	}
	cfg.DefaultDuration = track.ClampDuration(cfg.DefaultDuration, track.DefaultDuration)

	l := &Library{
		config: cfg,
		root:   root,
		exts: lo.SliceToMap(cfg.Extensions, func(ext string) (string, bool) {
			return normalizeExt(ext), true
		}),
		done: make(chan struct{}),
	}

	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Dir returns the absolute music directory.
func (l *Library) Dir() string {
	return l.root
}

// Reload rescans the directory.
func (l *Library) Reload() error {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return errors.Wrapf(err, "failed to read music directory %s", l.root)
	}

	files := lo.Filter(entries, func(e os.DirEntry, _ int) bool {
		return !e.IsDir() && l.isAudioFile(e.Name())
	})

	pl := playlist.Playlist{
		ID:   l.root,
		Name: filepath.Base(l.root),
		Tracks: lo.Map(files, func(e os.DirEntry, _ int) track.Track {
			return readTrack(filepath.Join(l.root, e.Name()), l.config.ReadDuration, l.config.DefaultDuration)
		}),
	}
	pl.SortByDisplayName()

	l.mu.Lock()
	l.tracks = pl
	l.mu.Unlock()

	zlog.Debug().Msgf("library: scanned dir=%s tracks=%d", l.root, len(pl.Tracks))
	return nil
}

// Watch rescans the directory whenever audio files change, calling onChange
// after each rescan. It returns once the watcher is running; watching stops
// when ctx is done or Close is called.
func (l *Library) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create watcher")
	}
	if err := watcher.Add(l.root); err != nil {
		watcher.Close()
		return errors.Wrapf(err, "failed to watch %s", l.root)
	}

	l.wg.Add(1)
	go l.watchLoop(ctx, watcher, onChange)

	zlog.Info().Msgf("library: watching dir=%s", l.root)
	return nil
}

func (l *Library) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, onChange func()) {
	defer l.wg.Done()
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.done:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Write) {
				continue
			}
			if !l.isAudioFile(event.Name) {
				continue
			}
			zlog.Debug().Msgf("library: change detected op=%s file=%s", event.Op, filepath.Base(event.Name))
			if err := l.Reload(); err != nil {
				zlog.Error().Err(err).Msg("library: rescan failed")
				continue
			}
			if onChange != nil {
				onChange()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			zlog.Warn().Err(err).Msg("library: watcher error")
		}
	}
}

// Close stops watching.
func (l *Library) Close() error {
	l.once.Do(func() {
		close(l.done)
	})
	l.wg.Wait()
	return nil
}

// ListTracks returns the tracks sorted by display name.
func (l *Library) ListTracks(_ context.Context) ([]track.Track, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return lo.Map(l.tracks.Tracks, func(t track.Track, _ int) track.Track {
		return t.WithHandle(l.handle(t.ID))
	}), nil
}

// Lookup returns the track with the given id.
func (l *Library) Lookup(id string) (track.Track, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	t, ok := l.tracks.Find(id)
	if !ok {
		return track.Track{}, false
	}
	return t.WithHandle(l.handle(id)), true
}

// Search returns tracks whose name or file name contains query.
func (l *Library) Search(query string) []track.Track {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return lo.Map(l.tracks.Search(query), func(t track.Track, _ int) track.Track {
		return t.WithHandle(l.handle(t.ID))
	})
}

// EstimatedDuration returns the decoded or default duration of id.
func (l *Library) EstimatedDuration(id string) time.Duration {
	if t, ok := l.Lookup(id); ok {
		return t.Duration
	}
	return l.config.DefaultDuration
}

// ResolvePlayableHandle checks that the file is still readable and returns
// its handle.
func (l *Library) ResolvePlayableHandle(id string) (string, error) {
	path, err := l.FilePath(id)
	if err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "cannot open %s", filepath.Base(path))
	}
	f.Close()
	return l.handle(id), nil
}

// FilePath returns the absolute path of a listed track.
func (l *Library) FilePath(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", errors.Wrapf(track.ErrNotFound, "invalid track id %q", id)
	}
	if _, ok := l.Lookup(id); !ok {
		return "", errors.Wrapf(track.ErrNotFound, "track %q", id)
	}
	return filepath.Join(l.root, id), nil
}

// Lyrics reads the "<name>.txt" file stored next to the audio file.
func (l *Library) Lyrics(id string) (string, error) {
	path, err := l.FilePath(id)
	if err != nil {
		return "", err
	}
	lyricsPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".txt"
	data, err := os.ReadFile(lyricsPath)
	if errors.Is(err, os.ErrNotExist) {
		return "", track.ErrNoLyrics
	}
	if err != nil {
		return "", errors.Wrapf(err, "failed to read lyrics for %q", id)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", track.ErrNoLyrics
	}
	return text, nil
}

func (l *Library) handle(id string) string {
	if l.config.HandleMode == HandlePath {
		return filepath.Join(l.root, id)
	}
	return MediaPrefix + url.PathEscape(id)
}

func (l *Library) isAudioFile(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return l.exts[normalizeExt(filepath.Ext(base))]
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
