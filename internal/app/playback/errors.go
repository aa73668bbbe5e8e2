package playback

import "github.com/cockroachdb/errors"

// Errors
var (
	ErrTrackUnavailable   = errors.New("track unavailable")
	ErrIndexOutOfRange    = errors.New("queue index out of range")
	ErrQueueEmpty         = errors.New("queue is empty")
	ErrNoPrevious         = errors.New("no previous track in history")
	ErrEmptyQueueAutoplay = errors.New("autoplay is on, but there are no songs in the queue")
)

func indexOutOfRange(index, length int) error {
	return errors.Wrapf(ErrIndexOutOfRange, "index %d (queue length %d)", index, length)
}

func trackUnavailable(id string, cause error) error {
	if cause == nil {
		cause = errors.Newf("no playable handle for %q", id)
	}
	return errors.Mark(errors.Wrapf(cause, "track %q unavailable", id), ErrTrackUnavailable)
}
