package state

import (
	"database/sql"
	"sync"
)

// Verify Mock implements Interface at compile time.
var _ Interface = (*Mock)(nil)

// Mock is an in-memory test double for the state manager.
type Mock struct {
	mu sync.Mutex

	Queue     *QueueState
	Volume    VolumeState
	Favs      map[string]Favorite
	Links     map[string]RfidLink
	SaveErr   error // returned by SaveQueue when set
	saveCalls int
}

// NewMock creates an empty mock state manager.
func NewMock() *Mock {
	return &Mock{
		Volume: VolumeState{Volume: 1.0},
		Favs:   make(map[string]Favorite),
		Links:  make(map[string]RfidLink),
	}
}

func (m *Mock) DB() *sql.DB { return nil }

func (m *Mock) SaveQueue(state QueueState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	copied := state
	copied.Tracks = append([]QueueTrack(nil), state.Tracks...)
	m.Queue = &copied
	return nil
}

func (m *Mock) GetQueue() (*QueueState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Queue == nil {
		return &QueueState{CurrentIndex: -1}, nil
	}
	copied := *m.Queue
	copied.Tracks = append([]QueueTrack(nil), m.Queue.Tracks...)
	return &copied, nil
}

func (m *Mock) SaveVolume(volume float64, muted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Volume = VolumeState{Volume: volume, Muted: muted}
	return nil
}

func (m *Mock) GetVolume() (*VolumeState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.Volume
	return &v, nil
}

func (m *Mock) ListFavorites(kind string) ([]Favorite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var favs []Favorite
	for _, f := range m.Favs {
		if kind == "" || f.Kind == kind {
			favs = append(favs, f)
		}
	}
	return favs, nil
}

func (m *Mock) AddFavorite(f Favorite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Favs[f.Kind+"/"+f.TargetID] = f
	return nil
}

func (m *Mock) RemoveFavorite(kind, targetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Favs, kind+"/"+targetID)
	return nil
}

func (m *Mock) GetRfidLink(tagID string) (*RfidLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.Links[tagID]
	if !ok {
		return nil, nil
	}
	return &link, nil
}

func (m *Mock) SaveRfidLink(link RfidLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Links[link.TagID] = link
	return nil
}

func (m *Mock) DeleteRfidLink(tagID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Links, tagID)
	return nil
}

func (m *Mock) ListRfidLinks() ([]RfidLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var links []RfidLink
	for _, l := range m.Links {
		links = append(links, l)
	}
	return links, nil
}

func (m *Mock) Close() error { return nil }

// SaveQueueCalls returns how many times SaveQueue was invoked.
func (m *Mock) SaveQueueCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveCalls
}
