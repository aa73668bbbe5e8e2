package web

import (
	"net/http"
	"strings"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/solobox/internal/app/session"
	"github.com/osa030/solobox/internal/infra/library"
)

// MediaHandler serves the audio files of a directory catalog under
// library.MediaPrefix so the browser can open track handles.
type MediaHandler struct {
	session *session.Manager
}

// NewMediaHandler creates a new media handler.
func NewMediaHandler(sess *session.Manager) *MediaHandler {
	return &MediaHandler{session: sess}
}

func (h *MediaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, library.MediaPrefix)
	path, err := h.session.FilePath(id)
	if err != nil {
		zlog.Debug().Err(err).Msgf("media: not served id=%q", id)
		http.NotFound(w, r)
		return
	}

	// ServeFile handles Range requests, which <audio> uses for seeking.
	http.ServeFile(w, r, path)
}
