package player

import (
	"time"

	"github.com/llehouerou/hifi/internal/catalog"
)

// Interface defines the backend adapter contract. It is the only boundary
// through which the native audio engine is driven.
//
// Commands are asynchronous: they return immediately and their outcome is
// delivered as Signals. Load returns a generation number; every signal
// carries the generation of the load that produced it, so a caller can
// discard signals from a superseded load.
//
// Signal ordering per load: zero or more Buffering, then Ready, then
// interleaved Position, then exactly one of EndOfStream or Error - unless
// a newer Load supersedes the previous one first.
type Interface interface {
	Load(desc catalog.StreamDescriptor, autoplay bool) uint64
	Play()
	Pause()
	Stop()
	SeekTo(pos time.Duration)
	SetVolume(level float64)
	Volume() float64
	Position() time.Duration
	Buffered() int64 // bytes of the current stream spooled locally
	Signals() <-chan Signal
	Close() error
}

// Verify implementations at compile time.
var (
	_ Interface = (*Engine)(nil)
	_ Interface = (*Mock)(nil)
)
