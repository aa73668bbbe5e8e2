// Package main provides the jukebox control CLI entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/solobox/internal/api/connect"
	jukeboxv1 "github.com/osa030/solobox/internal/api/jukeboxv1"
)

var (
	app     = kingpin.New("jukeboxctl", "solobox jukebox control client")
	server  = app.Flag("server", "Server address").Default("http://localhost:8080").Envar("SOLOBOX_SERVER").String()
	token   = app.Flag("token", "Control token (or set ADMIN_TOKEN env)").Envar("ADMIN_TOKEN").String()
	timeout = app.Flag("timeout", "Request timeout").Default("10s").Duration()

	// status command
	statusCmd = app.Command("status", "Show what is playing, the queue and the history")

	// tracks command
	tracksCmd   = app.Command("tracks", "List or search the catalog").Alias("ls")
	tracksQuery = tracksCmd.Arg("query", "Search text (name or ID)").String()

	// enqueue command
	enqueueCmd   = app.Command("enqueue", "Add a track to the queue").Alias("add")
	enqueueTrack = enqueueCmd.Arg("track-id", "Track ID").Required().String()

	// dequeue command
	dequeueCmd   = app.Command("dequeue", "Remove a queue entry").Alias("rm")
	dequeueIndex = dequeueCmd.Arg("index", "Queue position (0 = head)").Required().Int32()

	// clear command
	clearCmd = app.Command("clear", "Empty the queue")

	// play command
	playCmd   = app.Command("play", "Play a track now")
	playTrack = playCmd.Arg("track-id", "Track ID").Required().String()

	// play-queue command
	playQueueCmd    = app.Command("play-queue", "Play a queue entry")
	playQueueIndex  = playQueueCmd.Arg("index", "Queue position (0 = head)").Default("0").Int32()
	playQueueRemove = playQueueCmd.Flag("remove", "Remove the entry even when replay is on").Bool()
	playQueueKeep   = playQueueCmd.Flag("keep", "Keep the entry even when replay is off").Bool()

	// next command
	nextCmd = app.Command("next", "Skip to the head of the queue")

	// previous command
	previousCmd = app.Command("previous", "Step back through the play history").Alias("prev")

	// stop command
	stopCmd = app.Command("stop", "Stop playback")

	// autoplay command
	autoplayCmd   = app.Command("autoplay", "Turn autoplay on or off")
	autoplayValue = autoplayCmd.Arg("value", "on or off").Required().Enum("on", "off")

	// replay command
	replayCmd   = app.Command("replay", "Turn replay on or off")
	replayValue = replayCmd.Arg("value", "on or off").Required().Enum("on", "off")

	// ended command
	endedCmd   = app.Command("ended", "Report that the player finished a track")
	endedTrack = endedCmd.Arg("track-id", "Track ID").Required().String()
	endedPlay  = endedCmd.Flag("play-seq", "Play number from the track_started notification (0 = match by track ID)").Uint64()

	// lyrics command
	lyricsCmd   = app.Command("lyrics", "Show the lyrics of a track")
	lyricsTrack = lyricsCmd.Arg("track-id", "Track ID (default: now playing)").String()

	// watch command
	watchCmd = app.Command("watch", "Print notifications as they arrive")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == watchCmd.FullCommand() {
		if err := watch(context.Background(), *server, *token); err != nil {
			fail(err)
		}
		return
	}

	// Create client
	client := jukeboxv1.NewPlayerServiceClient(
		http.DefaultClient,
		*server,
		connect.WithInterceptors(tokenInterceptor(*token)),
	)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// Execute command
	var err error
	switch command {
	case statusCmd.FullCommand():
		err = status(ctx, client)
	case tracksCmd.FullCommand():
		err = tracks(ctx, client, *tracksQuery)
	case enqueueCmd.FullCommand():
		err = enqueue(ctx, client, *enqueueTrack)
	case dequeueCmd.FullCommand():
		err = dequeue(ctx, client, *dequeueIndex)
	case clearCmd.FullCommand():
		err = printStatus(client.ClearQueue(ctx, connect.NewRequest(&jukeboxv1.ClearQueueRequest{})))
	case playCmd.FullCommand():
		err = printStatus(client.PlayTrack(ctx, connect.NewRequest(&jukeboxv1.PlayTrackRequest{TrackID: *playTrack})))
	case playQueueCmd.FullCommand():
		err = playQueue(ctx, client, *playQueueIndex, *playQueueRemove, *playQueueKeep)
	case nextCmd.FullCommand():
		err = printStatus(client.Next(ctx, connect.NewRequest(&jukeboxv1.NextRequest{})))
	case previousCmd.FullCommand():
		err = printStatus(client.Previous(ctx, connect.NewRequest(&jukeboxv1.PreviousRequest{})))
	case stopCmd.FullCommand():
		err = printStatus(client.Stop(ctx, connect.NewRequest(&jukeboxv1.StopRequest{})))
	case autoplayCmd.FullCommand():
		err = printStatus(client.SetAutoplay(ctx, connect.NewRequest(&jukeboxv1.SetAutoplayRequest{Enabled: *autoplayValue == "on"})))
	case replayCmd.FullCommand():
		err = printStatus(client.SetReplay(ctx, connect.NewRequest(&jukeboxv1.SetReplayRequest{Enabled: *replayValue == "on"})))
	case endedCmd.FullCommand():
		err = ended(ctx, client, *endedTrack, *endedPlay)
	case lyricsCmd.FullCommand():
		err = lyrics(ctx, client, *lyricsTrack)
	}
	if err != nil {
		fail(err)
	}
}

// tokenInterceptor adds the control token to every request.
func tokenInterceptor(token string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if token != "" {
				req.Header().Set(apiconnect.AdminTokenHeader, token)
			}
			return next(ctx, req)
		}
	}
}

func fail(err error) {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		fmt.Fprintf(os.Stderr, "Error: %s (%s)\n", connectErr.Message(), connectErr.Code())
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}

func status(ctx context.Context, client jukeboxv1.PlayerServiceClient) error {
	return printStatus(client.GetStatus(ctx, connect.NewRequest(&jukeboxv1.GetStatusRequest{})))
}

func tracks(ctx context.Context, client jukeboxv1.PlayerServiceClient, query string) error {
	resp, err := client.ListTracks(ctx, connect.NewRequest(&jukeboxv1.ListTracksRequest{Query: query}))
	if err != nil {
		return err
	}
	renderTracks(os.Stdout, resp.Msg.Tracks)
	return nil
}

func enqueue(ctx context.Context, client jukeboxv1.PlayerServiceClient, trackID string) error {
	resp, err := client.Enqueue(ctx, connect.NewRequest(&jukeboxv1.EnqueueRequest{TrackID: trackID}))
	if err != nil {
		return err
	}
	if resp.Msg.Added {
		fmt.Printf("✓ %s\n", resp.Msg.Message)
	} else {
		fmt.Printf("✗ %s [%s]\n", resp.Msg.Message, resp.Msg.Code)
	}
	return nil
}

func dequeue(ctx context.Context, client jukeboxv1.PlayerServiceClient, index int32) error {
	resp, err := client.DequeueAt(ctx, connect.NewRequest(&jukeboxv1.DequeueAtRequest{Index: index}))
	if err != nil {
		return err
	}
	fmt.Printf("Removed %s\n", resp.Msg.TrackID)
	return nil
}

func playQueue(ctx context.Context, client jukeboxv1.PlayerServiceClient, index int32, remove, keep bool) error {
	if remove && keep {
		return errors.New("--remove and --keep are mutually exclusive")
	}
	req := &jukeboxv1.PlayFromQueueRequest{Index: index}
	switch {
	case remove:
		req.Remove = &remove
	case keep:
		req.Remove = new(bool)
	}
	return printStatus(client.PlayFromQueue(ctx, connect.NewRequest(req)))
}

func ended(ctx context.Context, client jukeboxv1.PlayerServiceClient, trackID string, playSeq uint64) error {
	resp, err := client.ReportEnded(ctx, connect.NewRequest(&jukeboxv1.ReportEndedRequest{TrackID: trackID, PlaySeq: playSeq}))
	if err != nil {
		return err
	}
	if resp.Msg.Accepted {
		fmt.Println("Completion accepted")
	} else {
		fmt.Println("Completion ignored (stale or already handled)")
	}
	return nil
}

func lyrics(ctx context.Context, client jukeboxv1.PlayerServiceClient, trackID string) error {
	if trackID == "" {
		st, err := client.GetStatus(ctx, connect.NewRequest(&jukeboxv1.GetStatusRequest{}))
		if err != nil {
			return err
		}
		if st.Msg.Status.Current == nil {
			return errors.New("nothing is playing; pass a track ID")
		}
		trackID = st.Msg.Status.Current.TrackID
	}

	resp, err := client.GetLyrics(ctx, connect.NewRequest(&jukeboxv1.GetLyricsRequest{TrackID: trackID}))
	if err != nil {
		return err
	}
	if !resp.Msg.Found {
		fmt.Println(resp.Msg.Message)
		return nil
	}
	fmt.Println(resp.Msg.Lyrics)
	return nil
}

func printStatus(resp *connect.Response[jukeboxv1.StatusResponse], err error) error {
	if err != nil {
		return err
	}
	renderStatus(os.Stdout, resp.Msg.Status, time.Now())
	return nil
}
