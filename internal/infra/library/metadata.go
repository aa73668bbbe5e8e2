package library

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/gopxl/beep/v2/mp3"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/solobox/internal/domain/track"
)

// readTrack builds a catalog track from an audio file. Metadata problems are
// never fatal: the name falls back to the file name and the duration to
// defaultDuration.
func readTrack(path string, measure bool, defaultDuration time.Duration) track.Track {
	id := filepath.Base(path)

	name := readTitle(path)
	if name == "" {
		name = strings.TrimSuffix(id, filepath.Ext(id))
	}

	var duration time.Duration
	if measure {
		d, err := decodeDuration(path)
		if err != nil {
			zlog.Debug().Msgf("library: duration unreadable file=%s err=%v", id, err)
		}
		duration = d
	}

	return track.New(id, name, duration).WithFallbackDuration(defaultDuration)
}

// readTitle returns "Artist - Title" from the file tags, or just the title
// when the artist is missing.
func readTitle(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return ""
	}

	title := strings.TrimSpace(m.Title())
	if title == "" {
		return ""
	}
	if artist := strings.TrimSpace(m.Artist()); artist != "" {
		return artist + " - " + title
	}
	return title
}

// decodeDuration decodes the MP3 stream header to compute its length.
// Non-MP3 files report zero.
func decodeDuration(path string) (time.Duration, error) {
	if strings.ToLower(filepath.Ext(path)) != ".mp3" {
		return 0, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return 0, err
	}
	defer streamer.Close()

	return format.SampleRate.D(streamer.Len()), nil
}
