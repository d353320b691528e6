package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Verify Mock implements Client at compile time.
var _ Client = (*Mock)(nil)

// Mock is a test double for the catalog client.
type Mock struct {
	mu sync.Mutex

	Tracks       map[string]Track
	Albums       map[string]Album
	Playlists    map[string]Playlist
	Descriptors  map[string]StreamDescriptor
	StreamErr    error
	LoginErr     error
	ResolveDelay time.Duration

	loginCalls  int
	streamCalls []string
}

// NewMock creates an empty mock catalog.
func NewMock() *Mock {
	return &Mock{
		Tracks:      make(map[string]Track),
		Albums:      make(map[string]Album),
		Playlists:   make(map[string]Playlist),
		Descriptors: make(map[string]StreamDescriptor),
	}
}

// AddTrack registers a track and a matching stream descriptor.
func (m *Mock) AddTrack(t Track) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tracks[t.ID] = t
	m.Descriptors[t.ID] = StreamDescriptor{
		TrackID:    t.ID,
		URL:        fmt.Sprintf("https://streams.example.com/%s.flac", t.ID),
		Codec:      "flac",
		SampleRate: 44100,
		BitDepth:   16,
		Duration:   t.Duration,
		ExpiresAt:  time.Now().Add(20 * time.Minute),
	}
}

func (m *Mock) Login(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loginCalls++
	return m.LoginErr
}

func (m *Mock) Track(_ context.Context, id string) (*Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.Tracks[id]
	if !ok {
		return nil, fmt.Errorf("%w: track %s", ErrNotFound, id)
	}
	return &t, nil
}

func (m *Mock) Album(_ context.Context, id string) (*Album, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.Albums[id]
	if !ok {
		return nil, fmt.Errorf("%w: album %s", ErrNotFound, id)
	}
	return &a, nil
}

func (m *Mock) Playlist(_ context.Context, id string) (*Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Playlists[id]
	if !ok {
		return nil, fmt.Errorf("%w: playlist %s", ErrNotFound, id)
	}
	return &p, nil
}

func (m *Mock) Search(_ context.Context, _ string) (*SearchResults, error) {
	return &SearchResults{}, nil
}

func (m *Mock) Favorites(_ context.Context) (*Favorites, error) {
	return &Favorites{}, nil
}

func (m *Mock) SetFavorite(_ context.Context, _ FavoriteKind, _ string, _ bool) error {
	return nil
}

func (m *Mock) StreamURL(ctx context.Context, trackID string) (*StreamDescriptor, error) {
	m.mu.Lock()
	delay := m.ResolveDelay
	m.streamCalls = append(m.streamCalls, trackID)
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StreamErr != nil {
		return nil, m.StreamErr
	}
	d, ok := m.Descriptors[trackID]
	if !ok {
		return nil, fmt.Errorf("%w: track %s", ErrNotFound, trackID)
	}
	return &d, nil
}

// Test helpers

func (m *Mock) LoginCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loginCalls
}

func (m *Mock) StreamCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.streamCalls...)
}
