package draft

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/orderdeskhq/orderdesk-backend/pkg/debounce"
	"github.com/orderdeskhq/orderdesk-backend/pkg/errors"
)

// Registry owns every live draft on this instance. Drafts are purely
// in-memory; an abandoned draft is reclaimed by the expiry sweep once it
// has been idle past the TTL.
type Registry struct {
	mu          sync.RWMutex
	drafts      map[string]*Draft
	ttl         time.Duration
	searchDelay time.Duration
	now         func() time.Time
}

func NewRegistry(ttl, searchDelay time.Duration) *Registry {
	return &Registry{
		drafts:      map[string]*Draft{},
		ttl:         ttl,
		searchDelay: searchDelay,
		now:         time.Now,
	}
}

// Create starts a fresh draft in domestic mode with an empty cart.
func (r *Registry) Create() *Draft {
	now := r.now().UTC()
	d := &Draft{
		ID:             uuid.NewString(),
		CreatedAt:      now,
		UpdatedAt:      now,
		Address:        AddressState{Mode: DestinationDomestic},
		SearchDebounce: debounce.NewDebouncer(r.searchDelay),
	}

	r.mu.Lock()
	r.drafts[d.ID] = d
	r.mu.Unlock()
	return d
}

// Get returns the draft or a not-found error.
func (r *Registry) Get(id string) (*Draft, error) {
	r.mu.RLock()
	d, ok := r.drafts[id]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.New(errors.CodeNotFound, "draft not found")
	}
	return d, nil
}

// Delete removes the draft and invalidates any in-flight lookups so late
// responses have nothing to land on.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	d, ok := r.drafts[id]
	if ok {
		delete(r.drafts, id)
	}
	r.mu.Unlock()

	if ok {
		d.SearchDebounce.Cancel()
		d.AddressGuard.Invalidate()
		d.ShippingGuard.Invalidate()
		d.CouponGuard.Invalidate()
	}
}

// Len reports the number of live drafts.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.drafts)
}

// SweepExpired removes drafts idle past the TTL and returns their ids.
func (r *Registry) SweepExpired(now time.Time) []string {
	cutoff := now.UTC().Add(-r.ttl)

	r.mu.RLock()
	expired := []string{}
	for id, d := range r.drafts {
		d.Lock()
		idle := d.UpdatedAt.Before(cutoff)
		d.Unlock()
		if idle {
			expired = append(expired, id)
		}
	}
	r.mu.RUnlock()

	for _, id := range expired {
		r.Delete(id)
	}
	return expired
}
