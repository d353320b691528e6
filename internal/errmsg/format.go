// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Playback operations
	OpPlaybackStart  Op = "start playback"
	OpPlaybackPause  Op = "pause playback"
	OpPlaybackResume Op = "resume playback"
	OpPlaybackSeek   Op = "seek"
	OpPlaybackNext   Op = "skip to next track"
	OpPlaybackPrev   Op = "skip to previous track"
	OpVolumeSet      Op = "set volume"

	// Resolution operations
	OpTrackResolve Op = "resolve track stream"
	OpPrefetch     Op = "prefetch next track"

	// Queue operations
	OpQueueLoad    Op = "restore queue"
	OpQueueSave    Op = "save queue"
	OpQueueAdd     Op = "add to queue"
	OpQueueRemove  Op = "remove from queue"
	OpQueueReorder Op = "reorder queue"
	OpQueueClear   Op = "clear queue"

	// Catalog operations
	OpCatalogLogin    Op = "log in to catalog"
	OpCatalogTrack    Op = "load track"
	OpCatalogAlbum    Op = "load album"
	OpCatalogPlaylist Op = "load playlist"
	OpCatalogSearch   Op = "search catalog"
	OpFavoriteToggle  Op = "update favorites"

	// Hardware operations
	OpRfidRead Op = "read RFID tag"
	OpRfidLink Op = "link RFID tag"
	OpGpioRead Op = "read GPIO pin"

	// Web operations
	OpWebServe Op = "serve web interface"

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
