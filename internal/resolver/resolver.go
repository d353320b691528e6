// Package resolver turns track identifiers into playable stream
// descriptors, caching them until their signed URLs approach expiry.
package resolver

import (
	"context"
	"sync"
	"time"

	"github.com/llehouerou/hifi/internal/catalog"
)

// expiryMargin is subtracted from a descriptor's lifetime so a track is
// never started on a URL about to expire mid-load.
const expiryMargin = 30 * time.Second

// Resolver caches stream descriptors per track id.
type Resolver struct {
	client catalog.Client

	mu    sync.Mutex
	cache map[string]catalog.StreamDescriptor

	now func() time.Time // injectable clock for tests
}

// New creates a resolver backed by the given catalog client.
func New(client catalog.Client) *Resolver {
	return &Resolver{
		client: client,
		cache:  make(map[string]catalog.StreamDescriptor),
		now:    time.Now,
	}
}

// Resolve returns a playable descriptor for the track, from cache when the
// cached entry is still fresh, otherwise from the catalog service.
func (r *Resolver) Resolve(ctx context.Context, trackID string) (*catalog.StreamDescriptor, error) {
	r.mu.Lock()
	if d, ok := r.cache[trackID]; ok && !d.Expired(r.now(), expiryMargin) {
		r.mu.Unlock()
		return &d, nil
	}
	delete(r.cache, trackID)
	r.mu.Unlock()

	d, err := r.client.StreamURL(ctx, trackID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[trackID] = *d
	r.mu.Unlock()

	return d, nil
}

// Invalidate drops the cached descriptor for a track, forcing the next
// Resolve to hit the catalog. Used after a backend error on a stream URL.
func (r *Resolver) Invalidate(trackID string) {
	r.mu.Lock()
	delete(r.cache, trackID)
	r.mu.Unlock()
}
