// Package rfid turns scanned tags into playback commands. A tag can be
// bound to a track, album or playlist; scanning a bound tag starts it.
// Unbound tags can be claimed through the link flow: the web API arms the
// reader and the next scan creates the binding.
package rfid

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/llehouerou/hifi/internal/catalog"
	"github.com/llehouerou/hifi/internal/errmsg"
	"github.com/llehouerou/hifi/internal/playback"
	"github.com/llehouerou/hifi/internal/queue"
	"github.com/llehouerou/hifi/internal/state"
)

// Store is the slice of session state the reader needs.
type Store interface {
	GetRfidLink(tagID string) (*state.RfidLink, error)
	SaveRfidLink(link state.RfidLink) error
}

// Reader consumes tag ids from a line-oriented device (most USB RFID
// readers present as a keyboard-like serial device emitting one id per
// line) and drives the playback service.
type Reader struct {
	svc      playback.Service
	catalog  catalog.Client
	store    Store
	device   string
	debounce time.Duration

	// open is swapped in tests to read from a pipe instead of a device.
	open func(path string) (io.ReadCloser, error)

	mu       sync.Mutex
	pending  *state.RfidLink
	lastTag  string
	lastSeen time.Time
}

// Config carries the reader dependencies.
type Config struct {
	Service  playback.Service
	Catalog  catalog.Client
	Store    Store
	Device   string
	Debounce time.Duration
}

func New(cfg Config) *Reader {
	return &Reader{
		svc:      cfg.Service,
		catalog:  cfg.Catalog,
		store:    cfg.Store,
		device:   cfg.Device,
		debounce: cfg.Debounce,
		open: func(path string) (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}

// ArmLink arms the reader: the next scanned tag is bound to link's
// target instead of starting playback. Arming again replaces the pending
// target.
func (r *Reader) ArmLink(link state.RfidLink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = &link
}

// LinkArmed reports whether a link request is waiting for a tag.
func (r *Reader) LinkArmed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending != nil
}

// Run reads tags until ctx is cancelled or the device fails.
func (r *Reader) Run(ctx context.Context) error {
	src, err := r.open(r.device)
	if err != nil {
		return fmt.Errorf("open rfid device %s: %w", r.device, err)
	}
	defer src.Close()

	// Close the device on cancellation so the blocking read returns.
	go func() {
		<-ctx.Done()
		src.Close()
	}()

	scanner := bufio.NewScanner(src)
	for scanner.Scan() {
		tag := strings.TrimSpace(scanner.Text())
		if tag == "" {
			continue
		}
		r.handleTag(ctx, tag)
	}
	if ctx.Err() != nil {
		return nil
	}
	return scanner.Err()
}

func (r *Reader) handleTag(ctx context.Context, tag string) {
	now := time.Now()

	r.mu.Lock()
	// A reader held against a tag repeats the id; collapse the repeats.
	if tag == r.lastTag && now.Sub(r.lastSeen) < r.debounce {
		r.lastSeen = now
		r.mu.Unlock()
		return
	}
	r.lastTag = tag
	r.lastSeen = now
	pending := r.pending
	r.pending = nil
	r.mu.Unlock()

	if pending != nil {
		r.link(tag, *pending)
		return
	}
	r.play(ctx, tag)
}

// link binds the tag to the armed target.
func (r *Reader) link(tag string, link state.RfidLink) {
	link.TagID = tag
	if err := r.store.SaveRfidLink(link); err != nil {
		r.svc.Notify(playback.LevelError, errmsg.FormatWith(errmsg.OpRfidLink, link.Label, err))
		return
	}
	label := link.Label
	if label == "" {
		label = link.TargetID
	}
	r.svc.Notify(playback.LevelSuccess, fmt.Sprintf("Tag linked to %s", label))
}

// play starts whatever the tag is bound to.
func (r *Reader) play(ctx context.Context, tag string) {
	link, err := r.store.GetRfidLink(tag)
	if err != nil {
		r.svc.Notify(playback.LevelError, errmsg.Format(errmsg.OpRfidRead, err))
		return
	}
	if link == nil {
		r.svc.Notify(playback.LevelWarning, fmt.Sprintf("Unknown tag %s; link it from the web interface", tag))
		return
	}

	tracks, err := r.resolveTarget(ctx, *link)
	if err != nil {
		r.svc.Notify(playback.LevelError, errmsg.FormatWith(errmsg.OpRfidRead, link.Label, err))
		return
	}
	if err := r.svc.PlayTracks(tracks); err != nil {
		r.svc.Notify(playback.LevelError, errmsg.Format(errmsg.OpPlaybackStart, err))
	}
}

func (r *Reader) resolveTarget(ctx context.Context, link state.RfidLink) ([]queue.Track, error) {
	switch link.Kind {
	case "track":
		t, err := r.catalog.Track(ctx, link.TargetID)
		if err != nil {
			return nil, err
		}
		return []queue.Track{queue.FromCatalog(*t)}, nil
	case "album":
		album, err := r.catalog.Album(ctx, link.TargetID)
		if err != nil {
			return nil, err
		}
		return fromCatalog(album.Tracks), nil
	case "playlist":
		pl, err := r.catalog.Playlist(ctx, link.TargetID)
		if err != nil {
			return nil, err
		}
		return fromCatalog(pl.Tracks), nil
	default:
		return nil, fmt.Errorf("unknown link kind %q", link.Kind)
	}
}

func fromCatalog(in []catalog.Track) []queue.Track {
	out := make([]queue.Track, len(in))
	for i, t := range in {
		out[i] = queue.FromCatalog(t)
	}
	return out
}
