package connect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jukeboxv1 "github.com/osa030/solobox/internal/api/jukeboxv1"
	"github.com/osa030/solobox/internal/app/catalog"
	"github.com/osa030/solobox/internal/app/session"
	"github.com/osa030/solobox/internal/infra/config"
)

func newTestServer(t *testing.T, extraYAML string) (jukeboxv1.PlayerServiceClient, *session.Manager) {
	t.Helper()

	dir := t.TempDir()
	for name, content := range map[string]string{
		"alpha.mp3": "x",
		"bravo.mp3": "x",
		"alpha.txt": "la la la",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	cfg, err := config.Parse([]byte(`
catalog:
  directory:
    path: ` + dir + `
    read_duration: false
    watch: false
` + extraYAML))
	require.NoError(t, err)

	cat, err := catalog.NewFromConfig(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })

	mgr, err := session.NewManager(cfg, cat)
	require.NoError(t, err)
	t.Cleanup(mgr.Close)

	path, handler := jukeboxv1.NewPlayerServiceHandler(
		NewPlayerService(mgr, cfg),
		connect.WithInterceptors(NewAdminAuthInterceptor(cfg)),
	)
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return jukeboxv1.NewPlayerServiceClient(srv.Client(), srv.URL), mgr
}

func TestPlayerService_Enqueue(t *testing.T) {
	client, _ := newTestServer(t, "")
	ctx := context.Background()

	tests := []struct {
		name        string
		trackID     string
		wantAdded   bool
		wantCode    string
		wantMessage string
	}{
		{name: "added", trackID: "alpha.mp3", wantAdded: true, wantMessage: "Added to the queue."},
		{name: "already queued", trackID: "alpha.mp3", wantCode: "already_queued", wantMessage: "That song is already in the queue."},
		{name: "unknown", trackID: "zulu.mp3", wantCode: "track_not_found", wantMessage: "Song not found."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := client.Enqueue(ctx, connect.NewRequest(&jukeboxv1.EnqueueRequest{TrackID: tt.trackID}))
			require.NoError(t, err)
			assert.Equal(t, tt.wantAdded, resp.Msg.Added)
			assert.Equal(t, tt.wantCode, resp.Msg.Code)
			assert.Equal(t, tt.wantMessage, resp.Msg.Message)
		})
	}
}

func TestPlayerService_ErrorMapping(t *testing.T) {
	client, _ := newTestServer(t, "")
	ctx := context.Background()

	tests := []struct {
		name     string
		call     func() error
		wantCode connect.Code
	}{
		{
			name: "play from queue out of range",
			call: func() error {
				_, err := client.PlayFromQueue(ctx, connect.NewRequest(&jukeboxv1.PlayFromQueueRequest{Index: 5}))
				return err
			},
			wantCode: connect.CodeInvalidArgument,
		},
		{
			name: "dequeue out of range",
			call: func() error {
				_, err := client.DequeueAt(ctx, connect.NewRequest(&jukeboxv1.DequeueAtRequest{Index: -1}))
				return err
			},
			wantCode: connect.CodeInvalidArgument,
		},
		{
			name: "next with empty queue",
			call: func() error {
				_, err := client.Next(ctx, connect.NewRequest(&jukeboxv1.NextRequest{}))
				return err
			},
			wantCode: connect.CodeFailedPrecondition,
		},
		{
			name: "previous with empty history",
			call: func() error {
				_, err := client.Previous(ctx, connect.NewRequest(&jukeboxv1.PreviousRequest{}))
				return err
			},
			wantCode: connect.CodeFailedPrecondition,
		},
		{
			name: "play unknown track",
			call: func() error {
				_, err := client.PlayTrack(ctx, connect.NewRequest(&jukeboxv1.PlayTrackRequest{TrackID: "zulu.mp3"}))
				return err
			},
			wantCode: connect.CodeNotFound,
		},
		{
			name: "lyrics of unknown track",
			call: func() error {
				_, err := client.GetLyrics(ctx, connect.NewRequest(&jukeboxv1.GetLyricsRequest{TrackID: "zulu.mp3"}))
				return err
			},
			wantCode: connect.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, connect.CodeOf(err))
		})
	}
}

func TestPlayerService_UnavailableMessageNamesTrack(t *testing.T) {
	client, _ := newTestServer(t, "")

	_, err := client.PlayTrack(context.Background(), connect.NewRequest(&jukeboxv1.PlayTrackRequest{TrackID: "zulu.mp3"}))
	require.Error(t, err)

	var connectErr *connect.Error
	require.ErrorAs(t, err, &connectErr)
	assert.Contains(t, connectErr.Message(), "Song could not be played.")
	assert.Contains(t, connectErr.Message(), "zulu.mp3")
}

func TestPlayerService_PlaybackFlow(t *testing.T) {
	client, _ := newTestServer(t, "")
	ctx := context.Background()

	_, err := client.SetAutoplay(ctx, connect.NewRequest(&jukeboxv1.SetAutoplayRequest{Enabled: true}))
	require.NoError(t, err)
	_, err = client.Enqueue(ctx, connect.NewRequest(&jukeboxv1.EnqueueRequest{TrackID: "bravo.mp3"}))
	require.NoError(t, err)

	resp, err := client.PlayTrack(ctx, connect.NewRequest(&jukeboxv1.PlayTrackRequest{TrackID: "alpha.mp3"}))
	require.NoError(t, err)
	status := resp.Msg.Status
	assert.Equal(t, "playing", status.State)
	require.NotNil(t, status.Current)
	assert.Equal(t, "alpha.mp3", status.Current.TrackID)
	assert.Equal(t, "/media/alpha.mp3", status.Current.Handle)
	require.Len(t, status.Queue, 1)
	assert.Equal(t, "bravo", status.Queue[0].DisplayName)

	ended, err := client.ReportEnded(ctx, connect.NewRequest(&jukeboxv1.ReportEndedRequest{TrackID: "alpha.mp3"}))
	require.NoError(t, err)
	assert.True(t, ended.Msg.Accepted)

	// A second report for the same play is discarded.
	ended, err = client.ReportEnded(ctx, connect.NewRequest(&jukeboxv1.ReportEndedRequest{TrackID: "alpha.mp3"}))
	require.NoError(t, err)
	assert.False(t, ended.Msg.Accepted)

	st, err := client.GetStatus(ctx, connect.NewRequest(&jukeboxv1.GetStatusRequest{}))
	require.NoError(t, err)
	assert.Equal(t, "bravo.mp3", st.Msg.Status.Current.TrackID)
	assert.Empty(t, st.Msg.Status.Queue)
	assert.Len(t, st.Msg.Status.History, 2)
	assert.Equal(t, int32(1), st.Msg.Status.StaleDiscards)
	require.NotZero(t, st.Msg.Status.PlaySeq)

	// An ended report carrying an earlier play number is stale.
	ended, err = client.ReportEnded(ctx, connect.NewRequest(&jukeboxv1.ReportEndedRequest{
		TrackID: "bravo.mp3",
		PlaySeq: st.Msg.Status.PlaySeq - 1,
	}))
	require.NoError(t, err)
	assert.False(t, ended.Msg.Accepted)

	resp, err = client.Previous(ctx, connect.NewRequest(&jukeboxv1.PreviousRequest{}))
	require.NoError(t, err)
	assert.Equal(t, "alpha.mp3", resp.Msg.Status.Current.TrackID)
	assert.Equal(t, []string{"alpha.mp3", "bravo.mp3"}, historyIDs(resp.Msg.Status))
	assert.Greater(t, resp.Msg.Status.PlaySeq, st.Msg.Status.PlaySeq)

	remove := false
	_, err = client.Enqueue(ctx, connect.NewRequest(&jukeboxv1.EnqueueRequest{TrackID: "alpha.mp3"}))
	require.NoError(t, err)
	resp, err = client.PlayFromQueue(ctx, connect.NewRequest(&jukeboxv1.PlayFromQueueRequest{Index: 0, Remove: &remove}))
	require.NoError(t, err)
	assert.Equal(t, "alpha.mp3", resp.Msg.Status.Current.TrackID)
	assert.Len(t, resp.Msg.Status.Queue, 1)

	resp, err = client.Stop(ctx, connect.NewRequest(&jukeboxv1.StopRequest{}))
	require.NoError(t, err)
	assert.Equal(t, "idle", resp.Msg.Status.State)

	resp, err = client.ClearQueue(ctx, connect.NewRequest(&jukeboxv1.ClearQueueRequest{}))
	require.NoError(t, err)
	assert.Empty(t, resp.Msg.Status.Queue)
}

func TestPlayerService_TracksAndLyrics(t *testing.T) {
	client, _ := newTestServer(t, "")
	ctx := context.Background()

	all, err := client.ListTracks(ctx, connect.NewRequest(&jukeboxv1.ListTracksRequest{}))
	require.NoError(t, err)
	require.Len(t, all.Msg.Tracks, 2)
	assert.Equal(t, "alpha.mp3", all.Msg.Tracks[0].TrackID)

	found, err := client.ListTracks(ctx, connect.NewRequest(&jukeboxv1.ListTracksRequest{Query: "BRA"}))
	require.NoError(t, err)
	require.Len(t, found.Msg.Tracks, 1)
	assert.Equal(t, "bravo.mp3", found.Msg.Tracks[0].TrackID)

	lyrics, err := client.GetLyrics(ctx, connect.NewRequest(&jukeboxv1.GetLyricsRequest{TrackID: "alpha.mp3"}))
	require.NoError(t, err)
	assert.True(t, lyrics.Msg.Found)
	assert.Equal(t, "la la la", lyrics.Msg.Lyrics)

	lyrics, err = client.GetLyrics(ctx, connect.NewRequest(&jukeboxv1.GetLyricsRequest{TrackID: "bravo.mp3"}))
	require.NoError(t, err)
	assert.False(t, lyrics.Msg.Found)
	assert.Equal(t, "No lyrics available.", lyrics.Msg.Message)
}

func TestAdminAuthInterceptor(t *testing.T) {
	client, _ := newTestServer(t, "admin:\n  token: secret\n")
	ctx := context.Background()

	_, err := client.GetStatus(ctx, connect.NewRequest(&jukeboxv1.GetStatusRequest{}))
	require.Error(t, err)
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	req := connect.NewRequest(&jukeboxv1.GetStatusRequest{})
	req.Header().Set(AdminTokenHeader, "wrong")
	_, err = client.GetStatus(ctx, req)
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	req = connect.NewRequest(&jukeboxv1.GetStatusRequest{})
	req.Header().Set(AdminTokenHeader, "secret")
	_, err = client.GetStatus(ctx, req)
	assert.NoError(t, err)
}

func TestValidToken(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		token      string
		want       bool
	}{
		{name: "no token configured", configured: "", token: "", want: true},
		{name: "match", configured: "secret", token: "secret", want: true},
		{name: "mismatch", configured: "secret", token: "nope", want: false},
		{name: "missing", configured: "secret", token: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Admin: config.AdminConfig{Token: tt.configured}}
			assert.Equal(t, tt.want, ValidToken(cfg, tt.token))
		})
	}
}

func historyIDs(status *jukeboxv1.PlayerStatus) []string {
	ids := make([]string, 0, len(status.History))
	for _, info := range status.History {
		ids = append(ids, info.TrackID)
	}
	return ids
}
