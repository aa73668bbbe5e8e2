package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/osa030/solobox/internal/api/web"
	"github.com/osa030/solobox/internal/app/notification"
)

// watch prints every notification until interrupted.
func watch(ctx context.Context, server, token string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wsURL, err := websocketURL(server, token)
	if err != nil {
		return err
	}

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to connect to %s", server)
	}
	defer conn.CloseNow()

	fmt.Fprintf(os.Stderr, "Watching %s (Ctrl+C to stop)\n", server)
	for {
		var n notification.Notification
		if err := wsjson.Read(ctx, conn, &n); err != nil {
			if ctx.Err() != nil || websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				conn.Close(websocket.StatusNormalClosure, "")
				return nil
			}
			return errors.Wrap(err, "connection lost")
		}
		printNotification(&n)
	}
}

// websocketURL turns the server base URL into the push endpoint URL.
func websocketURL(server, token string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", errors.Wrapf(err, "invalid server address %q", server)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + web.WebSocketPath
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func printNotification(n *notification.Notification) {
	line := fmt.Sprintf("#%d %-22s state=%-8s", n.SequenceNo, n.Type, n.State)
	if n.TrackID != "" {
		line += " track=" + n.TrackID
	}
	if n.PlaySeq != 0 {
		line += fmt.Sprintf(" play=%d", n.PlaySeq)
	}
	line += fmt.Sprintf(" queue=%d autoplay=%s replay=%s", len(n.Queue), onOff(n.Autoplay), onOff(n.Replay))
	if n.Message != "" {
		line += " msg=" + n.Message
	}
	fmt.Println(line)
}
