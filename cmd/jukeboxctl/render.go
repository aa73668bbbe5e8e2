package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	jukeboxv1 "github.com/osa030/solobox/internal/api/jukeboxv1"
)

func renderStatus(w io.Writer, st *jukeboxv1.PlayerStatus, now time.Time) {
	if st == nil {
		fmt.Fprintln(w, "No status")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendRow(table.Row{"State", strings.ToUpper(st.State)})
	if st.Current != nil {
		t.AppendRow(table.Row{"Now playing", st.Current.DisplayName})
		t.AppendRow(table.Row{"Track ID", st.Current.TrackID})
		t.AppendRow(table.Row{"Play #", st.PlaySeq})
		t.AppendRow(table.Row{"Position", fmt.Sprintf("%s / %s",
			formatMs(st.ElapsedMs), formatMs(st.ElapsedMs+st.RemainingMs))})
		if started := relative(st.StartedAt, now); started != "" {
			t.AppendRow(table.Row{"Started", started})
		}
	}
	t.AppendRow(table.Row{"Autoplay", onOff(st.Autoplay)})
	t.AppendRow(table.Row{"Replay", onOff(st.Replay)})
	if st.EmptyQueueWarned {
		t.AppendRow(table.Row{"Notice", "queue ran out"})
	}
	t.AppendSeparator()
	t.AppendRow(table.Row{"Session", st.SessionID})
	if started := relative(st.ServerStartedAt, now); started != "" {
		t.AppendRow(table.Row{"Server up since", started})
	}
	t.AppendRow(table.Row{"Subscribers", st.Subscribers})
	t.AppendRow(table.Row{"Discarded (stale/dup)", fmt.Sprintf("%d/%d", st.StaleDiscards, st.DuplicateDiscards)})
	t.Render()

	fmt.Fprintln(w)
	renderList(w, "Queue", st.Queue)
	if len(st.History) > 0 {
		fmt.Fprintln(w)
		renderList(w, "History (newest first)", st.History)
	}
}

func renderList(w io.Writer, title string, tracks []*jukeboxv1.TrackInfo) {
	if len(tracks) == 0 {
		fmt.Fprintf(w, "%s: (empty)\n", title)
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"#", "Track", "Length", "ID"})
	for i, tr := range tracks {
		t.AppendRow(table.Row{i, tr.DisplayName, formatMs(tr.DurationMs), tr.TrackID})
	}
	t.Render()
}

func renderTracks(w io.Writer, tracks []*jukeboxv1.TrackInfo) {
	if len(tracks) == 0 {
		fmt.Fprintln(w, "No tracks found")
		return
	}

	var total int64
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Track", "Length", "ID"})
	for _, tr := range tracks {
		total += tr.DurationMs
		t.AppendRow(table.Row{tr.DisplayName, formatMs(tr.DurationMs), tr.TrackID})
	}
	t.AppendFooter(table.Row{humanize.Comma(int64(len(tracks))) + " tracks", formatMs(total), ""})
	t.Render()
}

// formatMs renders milliseconds as m:ss (or h:mm:ss).
func formatMs(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// relative renders an RFC3339 timestamp like "3 minutes ago".
func relative(value string, now time.Time) string {
	if value == "" {
		return ""
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return value
	}
	return humanize.RelTime(ts, now, "ago", "from now")
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
