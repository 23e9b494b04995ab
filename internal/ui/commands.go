package ui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/avrille/cadenza/internal/catalog"
	"github.com/avrille/cadenza/internal/errmsg"
	"github.com/avrille/cadenza/internal/playback"
)

const searchTimeout = 10 * time.Second

// waitEvent blocks on the subscription until the player reports anything,
// then resolves to a message. Update re-issues it to keep the stream going.
func waitEvent(sub *playback.Subscription) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-sub.Done:
			return subscriptionClosedMsg{}
		case <-sub.StateChanged:
			return playerEventMsg{}
		case <-sub.TrackChanged:
			return playerEventMsg{}
		case <-sub.PositionChanged:
			return playerEventMsg{}
		case <-sub.QueueChanged:
			return playerEventMsg{}
		case <-sub.ModeChanged:
			return playerEventMsg{}
		case <-sub.SessionChanged:
			return playerEventMsg{}
		case ev := <-sub.Error:
			msg := ev.Operation
			if ev.Err != nil {
				msg = fmt.Sprintf("%s: %v", ev.Operation, ev.Err)
			}
			if ev.TrackID != "" {
				msg = fmt.Sprintf("%s (%s)", msg, ev.TrackID)
			}
			return playerErrorMsg{message: msg}
		}
	}
}

// searchCmd queries the catalog for tracks matching the query.
func searchCmd(client *catalog.Client, query string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), searchTimeout)
		defer cancel()
		tracks, err := client.SearchTracks(ctx, query)
		if err != nil {
			return searchFailedMsg{message: errmsg.Format(errmsg.OpSearch, err)}
		}
		return searchResultsMsg{query: query, tracks: tracks}
	}
}
