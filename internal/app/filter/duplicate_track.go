package filter

import (
	"context"
	"regexp"
	"strings"

	"github.com/samber/lo"

	"github.com/osa030/solobox/internal/domain/track"
)

// CodeDuplicateTrack is returned when another version of the track is queued.
const CodeDuplicateTrack = "duplicate_track"

// QueueSource gives access to the tracks currently queued.
type QueueSource interface {
	QueuedTracks() []track.Track
}

// DuplicateTrackFilter rejects a track when another version of it is queued.
// Display names are "Artist - Title", so a cover by a different artist keeps
// a different normalized name and is accepted. Exact id matches are left to
// the queue itself, which reports them as already queued.
type DuplicateTrackFilter struct {
	queue QueueSource
}

// NewDuplicateTrackFilter creates a new duplicate track filter.
func NewDuplicateTrackFilter(queue QueueSource) *DuplicateTrackFilter {
	return &DuplicateTrackFilter{queue: queue}
}

// Name returns the filter name.
func (f *DuplicateTrackFilter) Name() string {
	return "duplicate_track_filter"
}

// Description returns the filter description.
func (f *DuplicateTrackFilter) Description() string {
	return "Rejects other versions of a track that is already queued"
}

// ReturnCodes returns possible return codes.
func (f *DuplicateTrackFilter) ReturnCodes() []string {
	return []string{CodeDuplicateTrack}
}

// ValidateConfig validates the filter configuration.
func (f *DuplicateTrackFilter) ValidateConfig(map[string]any) error {
	// No configuration needed
	return nil
}

// Check checks if the track is a different version of a queued track.
func (f *DuplicateTrackFilter) Check(_ context.Context, _ TrackRequest, requested track.Track) Result {
	if requested.ID == "" {
		return Accept()
	}
	name := normalizeTrackName(requested.DisplayName)

	_, dup := lo.Find(f.queue.QueuedTracks(), func(queued track.Track) bool {
		return queued.ID != requested.ID && normalizeTrackName(queued.DisplayName) == name
	})
	if dup {
		return Reject(CodeDuplicateTrack)
	}
	return Accept()
}

var (
	remasterPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\s*-?\s*\d{4}\s+remaster(ed)?`),      // "- 2011 Remaster"
		regexp.MustCompile(`\s*\(remaster(ed)?\s*\d{0,4}\)`),     // "(Remastered 2023)"
		regexp.MustCompile(`\s*\[remaster(ed)?\s*\d{0,4}\]`),     // "[Remastered]"
		regexp.MustCompile(`\s*-?\s*remaster(ed)?(\s+version)?`), // "- Remastered"
		regexp.MustCompile(`\s*\(.*?remaster.*?\)`),              // "(Any Remaster text)"
		regexp.MustCompile(`\s*\[.*?remaster.*?\]`),              // "[Any Remaster text]"
	}
	versionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\s*\(.*?version\)`),        // "(Single Version)"
		regexp.MustCompile(`\s*\(.*?edit\)`),           // "(Radio Edit)"
		regexp.MustCompile(`\s*\(live\)`),              // "(Live)"
		regexp.MustCompile(`\s+-\s+live(\s+at\b.*)?$`), // "- Live", "- Live at Budokan"
		regexp.MustCompile(`\s*-?\s*radio\s+edit`),     // "- Radio Edit"
		regexp.MustCompile(`\s*-?\s*single\s+version`), // "- Single Version"
	}
	spaces = regexp.MustCompile(`\s+`)
)

// normalizeTrackName removes remaster information and version details.
func normalizeTrackName(name string) string {
	normalized := strings.ToLower(name)

	for _, pattern := range remasterPatterns {
		normalized = pattern.ReplaceAllString(normalized, "")
	}
	for _, pattern := range versionPatterns {
		normalized = pattern.ReplaceAllString(normalized, "")
	}

	normalized = strings.TrimSpace(normalized)
	normalized = spaces.ReplaceAllString(normalized, " ")

	// Remove trailing dashes
	return strings.TrimRight(normalized, " -")
}
