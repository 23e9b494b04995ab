package ui

import (
	"github.com/avrille/cadenza/internal/catalog"
)

// playerEventMsg signals that the player published new state; the model
// re-reads the snapshot. The event payload itself is not carried because
// the snapshot is authoritative.
type playerEventMsg struct{}

// playerErrorMsg surfaces an engine error in the status line.
type playerErrorMsg struct {
	message string
}

// subscriptionClosedMsg means the engine shut down.
type subscriptionClosedMsg struct{}

// searchResultsMsg delivers catalog search results.
type searchResultsMsg struct {
	query  string
	tracks []catalog.Track
}

// searchFailedMsg reports a failed catalog search.
type searchFailedMsg struct {
	message string
}
