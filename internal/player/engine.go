package player

import (
	"fmt"
	"math"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"

	"github.com/llehouerou/hifi/internal/catalog"
)

const (
	signalBufferSize = 64
	positionInterval = 250 * time.Millisecond // ≤4 position ticks per second
)

// Engine drives beep's speaker from HTTP audio streams. Commands are
// dispatched to a single goroutine so callers never block on network or
// codec work; outcomes arrive as Signals.
type Engine struct {
	cmds      chan func()
	signals   chan Signal
	closed    chan struct{}
	closeOnce sync.Once

	http     *http.Client
	bufferMs int

	gen atomic.Uint64

	// owned by the dispatch goroutine
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	streamer beep.StreamSeekCloser
	format   beep.Format
	body     *spool
	duration time.Duration
	level    float64
	playing  bool

	speakerReady bool
	speakerRate  beep.SampleRate
}

// NewEngine creates an engine. bufferMs is the speaker buffer length.
func NewEngine(bufferMs int) *Engine {
	e := &Engine{
		cmds:     make(chan func(), 16),
		signals:  make(chan Signal, signalBufferSize),
		closed:   make(chan struct{}),
		http:     &http.Client{Timeout: 30 * time.Second},
		bufferMs: bufferMs,
		level:    1.0,
	}
	go e.run()
	go e.positionLoop()
	return e
}

func (e *Engine) run() {
	for {
		select {
		case fn := <-e.cmds:
			fn()
		case <-e.closed:
			return
		}
	}
}

// dispatch queues a command without blocking the caller.
func (e *Engine) dispatch(fn func()) {
	select {
	case e.cmds <- fn:
	case <-e.closed:
	}
}

func (e *Engine) emit(sig Signal) {
	select {
	case e.signals <- sig:
	default:
		// The coordinator drains promptly; dropping here only loses a
		// position tick under extreme load.
	}
}

// Signals returns the signal channel.
func (e *Engine) Signals() <-chan Signal { return e.signals }

// Load starts streaming the descriptor. Returns the generation identifying
// this load; signals from prior generations are superseded.
func (e *Engine) Load(desc catalog.StreamDescriptor, autoplay bool) uint64 {
	gen := e.gen.Add(1)
	e.dispatch(func() { e.doLoad(desc, autoplay, gen) })
	return gen
}

func (e *Engine) doLoad(desc catalog.StreamDescriptor, autoplay bool, gen uint64) {
	if gen != e.gen.Load() {
		return // superseded before it started
	}
	e.teardown()

	e.emit(Signal{Kind: SignalBuffering, Gen: gen, Buffering: true})

	resp, err := e.http.Get(desc.URL)
	if err != nil {
		e.emit(Signal{Kind: SignalError, Gen: gen, Err: fmt.Errorf("fetch stream: %w", err)})
		return
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		e.emit(Signal{Kind: SignalError, Gen: gen, Err: fmt.Errorf("fetch stream: status %d", resp.StatusCode)})
		return
	}

	body, err := newSpool(resp.Body)
	if err != nil {
		e.emit(Signal{Kind: SignalError, Gen: gen, Err: err})
		return
	}

	var streamer beep.StreamSeekCloser
	var format beep.Format
	switch desc.Codec {
	case "mp3":
		streamer, format, err = mp3.Decode(body)
	case "wav":
		streamer, format, err = wav.Decode(body)
	default:
		streamer, format, err = flac.Decode(body)
	}
	if err != nil {
		body.Close()
		e.emit(Signal{Kind: SignalError, Gen: gen, Err: fmt.Errorf("decode %s: %w", desc.Codec, err)})
		return
	}

	if gen != e.gen.Load() {
		// A newer load arrived while this one was buffering.
		streamer.Close()
		body.Close()
		return
	}

	if err := e.ensureSpeaker(format.SampleRate); err != nil {
		streamer.Close()
		body.Close()
		e.emit(Signal{Kind: SignalError, Gen: gen, Err: err})
		return
	}

	e.body = body
	e.streamer = streamer
	e.format = format
	e.duration = desc.Duration
	e.ctrl = &beep.Ctrl{Streamer: e.resampled(streamer, format), Paused: !autoplay}
	e.volume = &effects.Volume{Streamer: e.ctrl, Base: 2, Volume: levelToVolume(e.level)}
	e.playing = autoplay

	e.emit(Signal{Kind: SignalBuffering, Gen: gen, Buffering: false})
	e.emit(Signal{Kind: SignalReady, Gen: gen})

	speaker.Play(beep.Seq(e.volume, beep.Callback(func() {
		e.dispatch(func() {
			if gen != e.gen.Load() {
				return
			}
			e.playing = false
			e.emit(Signal{Kind: SignalEndOfStream, Gen: gen})
		})
	})))
}

// resampled adapts the decoded stream to the speaker's sample rate when a
// track's rate differs from the one the speaker was initialized with.
func (e *Engine) resampled(s beep.Streamer, format beep.Format) beep.Streamer {
	if format.SampleRate == e.speakerRate {
		return s
	}
	return beep.Resample(4, format.SampleRate, e.speakerRate, s)
}

func (e *Engine) ensureSpeaker(rate beep.SampleRate) error {
	if e.speakerReady {
		return nil
	}
	buf := time.Duration(e.bufferMs) * time.Millisecond
	if err := speaker.Init(rate, rate.N(buf)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}
	e.speakerReady = true
	e.speakerRate = rate
	return nil
}

// Play resumes the current stream.
func (e *Engine) Play() {
	e.dispatch(func() {
		if e.ctrl == nil {
			return
		}
		speaker.Lock()
		e.ctrl.Paused = false
		speaker.Unlock()
		e.playing = true
	})
}

// Pause pauses the current stream.
func (e *Engine) Pause() {
	e.dispatch(func() {
		if e.ctrl == nil {
			return
		}
		speaker.Lock()
		e.ctrl.Paused = true
		speaker.Unlock()
		e.playing = false
	})
}

// Stop tears down the current stream. Supersedes outstanding signals.
func (e *Engine) Stop() {
	e.gen.Add(1)
	e.dispatch(func() { e.teardown() })
}

func (e *Engine) teardown() {
	if e.streamer == nil {
		return
	}
	speaker.Clear()
	e.streamer.Close()
	e.streamer = nil
	if e.body != nil {
		e.body.Close()
		e.body = nil
	}
	e.ctrl = nil
	e.volume = nil
	e.playing = false
}

// SeekTo seeks to an absolute position in the current stream.
func (e *Engine) SeekTo(pos time.Duration) {
	e.dispatch(func() {
		if e.streamer == nil {
			return
		}
		target := e.format.SampleRate.N(pos)
		target = max(target, 0)
		if l := e.streamer.Len(); l > 0 && target >= l {
			target = l - 1
		}

		// Mute during the seek to avoid an audible glitch while the
		// decoder refills.
		speaker.Lock()
		if e.volume != nil {
			e.volume.Silent = true
		}
		err := e.streamer.Seek(target)
		speaker.Unlock()

		if err != nil {
			e.emit(Signal{Kind: SignalError, Gen: e.gen.Load(), Err: fmt.Errorf("seek: %w", err)})
			return
		}

		time.Sleep(50 * time.Millisecond)
		speaker.Lock()
		if e.volume != nil {
			e.volume.Silent = false
		}
		speaker.Unlock()
	})
}

// SetVolume sets the output level (0.0 to 1.0, clamped).
func (e *Engine) SetVolume(level float64) {
	e.dispatch(func() {
		level = min(max(level, 0), 1)
		e.level = level
		if e.volume == nil {
			return
		}
		speaker.Lock()
		e.volume.Volume = levelToVolume(level)
		e.volume.Silent = level <= 0
		speaker.Unlock()
	})
}

// Volume returns the last set level. Reads the dispatch-owned field via a
// round trip so it never races a concurrent SetVolume.
func (e *Engine) Volume() float64 {
	res := make(chan float64, 1)
	e.dispatch(func() { res <- e.level })
	select {
	case v := <-res:
		return v
	case <-e.closed:
		return 0
	}
}

// Buffered returns how much of the current stream is spooled locally.
func (e *Engine) Buffered() int64 {
	res := make(chan int64, 1)
	e.dispatch(func() {
		if e.body == nil {
			res <- 0
			return
		}
		res <- e.body.Buffered()
	})
	select {
	case n := <-res:
		return n
	case <-e.closed:
		return 0
	}
}

// Position returns the current playback position.
func (e *Engine) Position() time.Duration {
	res := make(chan time.Duration, 1)
	e.dispatch(func() {
		if e.streamer == nil {
			res <- 0
			return
		}
		speaker.Lock()
		pos := e.format.SampleRate.D(e.streamer.Position())
		speaker.Unlock()
		res <- pos
	})
	select {
	case p := <-res:
		return p
	case <-e.closed:
		return 0
	}
}

func (e *Engine) positionLoop() {
	ticker := time.NewTicker(positionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			e.dispatch(func() {
				if !e.playing || e.streamer == nil {
					return
				}
				speaker.Lock()
				pos := e.format.SampleRate.D(e.streamer.Position())
				speaker.Unlock()
				e.emit(Signal{Kind: SignalPosition, Gen: e.gen.Load(), Position: pos})
			})
		case <-e.closed:
			return
		}
	}
}

// Close tears down the current stream and stops the engine goroutines.
// Idempotent.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.gen.Add(1)
		// The teardown must complete before run exits, or the streamer
		// and its spool file leak.
		done := make(chan struct{})
		e.dispatch(func() {
			e.teardown()
			close(done)
		})
		<-done
		close(e.closed)
	})
	return nil
}

// levelToVolume converts a 0.0-1.0 level to beep's Volume value.
// beep uses a logarithmic scale with base 2: 0 means unchanged, -1 half
// volume, -2 quarter. 1.0 -> 0, 0.5 -> -1, 0 -> silent.
func levelToVolume(level float64) float64 {
	if level <= 0 {
		return -10
	}
	if level >= 1 {
		return 0
	}
	return math.Log2(level)
}
