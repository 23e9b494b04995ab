// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Session operations
	OpSessionLoad    Op = "load session"
	OpSessionRefresh Op = "refresh session"
	OpSessionSave    Op = "save session token"
	OpReconnect      Op = "reconnect"

	// Catalog operations
	OpSearch         Op = "search catalog"
	OpPlaylistLoad   Op = "load playlists"
	OpPlaylistTracks Op = "load playlist tracks"

	// Queue operations
	OpQueueLoad Op = "restore queue"
	OpQueueSave Op = "save queue"
	OpQueueAdd  Op = "add to queue"

	// Playback operations
	OpPlaybackStart Op = "start playback"
	OpPlaybackLoad  Op = "load track"
	OpPlaybackSeek  Op = "seek"

	// Remote control operations
	OpRemoteListen Op = "listen on control socket"
	OpRemoteServe  Op = "serve control request"

	// Initialization
	OpInitialize Op = "initialize application"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}
