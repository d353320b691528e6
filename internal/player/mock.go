package player

import (
	"sync"
	"time"

	"github.com/llehouerou/hifi/internal/catalog"
)

// Mock is an in-memory backend for tests. It records every command and
// lets the test drive the signal channel by hand.
type Mock struct {
	mu sync.Mutex

	gen      uint64
	level    float64
	position time.Duration
	buffered int64
	signals  chan Signal

	loads   []MockLoad
	plays   int
	pauses  int
	stops   int
	seeks   []time.Duration
	volumes []float64
}

// MockLoad records one Load call.
type MockLoad struct {
	Desc     catalog.StreamDescriptor
	Autoplay bool
	Gen      uint64
}

func NewMock() *Mock {
	return &Mock{
		level:   1.0,
		signals: make(chan Signal, 64),
	}
}

func (m *Mock) Load(desc catalog.StreamDescriptor, autoplay bool) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.loads = append(m.loads, MockLoad{Desc: desc, Autoplay: autoplay, Gen: m.gen})
	return m.gen
}

func (m *Mock) Play() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plays++
}

func (m *Mock) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauses++
}

func (m *Mock) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.stops++
}

func (m *Mock) SeekTo(pos time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seeks = append(m.seeks, pos)
	m.position = pos
}

func (m *Mock) SetVolume(level float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.level = min(max(level, 0), 1)
	m.volumes = append(m.volumes, m.level)
}

func (m *Mock) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

func (m *Mock) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *Mock) Buffered() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buffered
}

// SetBuffered primes the value Buffered returns.
func (m *Mock) SetBuffered(n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buffered = n
}

func (m *Mock) Signals() <-chan Signal { return m.signals }

func (m *Mock) Close() error { return nil }

// Emit pushes a signal as if the engine produced it.
func (m *Mock) Emit(sig Signal) { m.signals <- sig }

// EmitReady pushes the buffering-off and ready signals for gen.
func (m *Mock) EmitReady(gen uint64) {
	m.signals <- Signal{Kind: SignalBuffering, Gen: gen, Buffering: false}
	m.signals <- Signal{Kind: SignalReady, Gen: gen}
}

// Gen returns the current generation counter.
func (m *Mock) Gen() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}

// SetPosition primes the value Position returns.
func (m *Mock) SetPosition(pos time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = pos
}

func (m *Mock) Loads() []MockLoad {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockLoad(nil), m.loads...)
}

// LastLoad returns the most recent Load call, or nil.
func (m *Mock) LastLoad() *MockLoad {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.loads) == 0 {
		return nil
	}
	l := m.loads[len(m.loads)-1]
	return &l
}

func (m *Mock) PlayCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.plays
}

func (m *Mock) PauseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pauses
}

func (m *Mock) StopCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops
}

func (m *Mock) Seeks() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.seeks...)
}
