// Package web serves the browser side of the player: a websocket that
// pushes notifications and receives "ended" events, and the media files.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	zlog "github.com/rs/zerolog/log"

	apiconnect "github.com/osa030/solobox/internal/api/connect"
	"github.com/osa030/solobox/internal/app/notification"
	"github.com/osa030/solobox/internal/app/session"
	"github.com/osa030/solobox/internal/infra/config"
)

const (
	// WebSocketPath is where the websocket endpoint is mounted.
	WebSocketPath = "/ws"

	// NotificationInitialState is sent once after the websocket is accepted.
	NotificationInitialState = "initial_state"

	writeTimeout = 5 * time.Second
)

// ClientMessage is a message sent by the browser.
type ClientMessage struct {
	Type    string `json:"type"` // "ended"
	TrackID string `json:"track_id"`
	// PlaySeq echoes the play_seq of the track_started notification.
	// Zero matches by track id alone.
	PlaySeq uint64 `json:"play_seq,omitempty"`
}

// ServerAck answers a ClientMessage.
type ServerAck struct {
	Type     string `json:"type"` // "ended_ack"
	TrackID  string `json:"track_id"`
	PlaySeq  uint64 `json:"play_seq,omitempty"`
	Accepted bool   `json:"accepted"`
}

// WebSocketHandler pushes notifications to a browser and forwards the
// "ended" events of its audio element to the session.
type WebSocketHandler struct {
	session *session.Manager
	config  *config.Config
}

// NewWebSocketHandler creates a new websocket handler.
func NewWebSocketHandler(sess *session.Manager, cfg *config.Config) *WebSocketHandler {
	return &WebSocketHandler{session: sess, config: cfg}
}

func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = r.Header.Get(apiconnect.AdminTokenHeader)
	}
	if !apiconnect.ValidToken(h.config, token) {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // allow any origin
	})
	if err != nil {
		zlog.Warn().Err(err).Msg("ws: accept failed")
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := write(ctx, conn, h.session.SnapshotNotification(NotificationInitialState)); err != nil {
		zlog.Debug().Err(err).Msg("ws: initial state failed")
		return
	}

	notifications := h.session.GetNotificationManager()
	id := notifications.Subscribe(notification.StreamFunc(func(n *notification.Notification) error {
		return write(ctx, conn, n)
	}))
	defer notifications.Unsubscribe(id)
	zlog.Info().Msgf("ws: connected subscription=%s remote=%s", id, r.RemoteAddr)

	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				zlog.Info().Msgf("ws: disconnected subscription=%s", id)
			default:
				zlog.Debug().Err(err).Msgf("ws: read failed subscription=%s", id)
			}
			return
		}

		switch msg.Type {
		case "ended":
			accepted := h.session.ReportEnded(msg.TrackID, msg.PlaySeq)
			zlog.Debug().Msgf("ws: ended track=%s play=%d accepted=%t", msg.TrackID, msg.PlaySeq, accepted)
			ack := ServerAck{Type: "ended_ack", TrackID: msg.TrackID, PlaySeq: msg.PlaySeq, Accepted: accepted}
			if err := write(ctx, conn, ack); err != nil {
				return
			}
		default:
			zlog.Debug().Msgf("ws: ignored message type=%q", msg.Type)
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, v any) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, v)
}
