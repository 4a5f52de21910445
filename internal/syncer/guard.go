package syncer

import (
	"sync"
	"time"

	"github.com/dealerlink/easysync/internal/models"
)

// Guard prevents overlapping syncs for the same dealership. One Guard
// is shared by the stock and lead engines so any two syncs for a
// dealership exclude each other. Overlap fails fast rather than
// queueing; a run older than the lease is treated as stale (crashed or
// hung) and its slot is stolen.
type Guard struct {
	mu     sync.Mutex
	active map[string]slot
	lease  time.Duration
	gen    uint64

	now func() time.Time
}

// slot stamps each acquisition with a generation so a release from a
// run whose slot was stolen cannot clear the stealing run's claim.
type slot struct {
	started time.Time
	gen     uint64
}

// NewGuard creates a guard with the given staleness lease.
func NewGuard(lease time.Duration) *Guard {
	return &Guard{
		active: make(map[string]slot),
		lease:  lease,
		now:    time.Now,
	}
}

// Acquire claims the dealership's sync slot. The returned release
// function must be called when the run ends.
func (g *Guard) Acquire(dealershipID string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if s, ok := g.active[dealershipID]; ok {
		if g.now().Sub(s.started) < g.lease {
			return nil, models.ErrSyncInProgress
		}
		// Stale run; steal the slot.
	}
	g.gen++
	gen := g.gen
	g.active[dealershipID] = slot{started: g.now(), gen: gen}

	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		// The slot may have been stolen while this run was presumed
		// dead; only the current owner may clear it.
		if s, ok := g.active[dealershipID]; ok && s.gen == gen {
			delete(g.active, dealershipID)
		}
	}, nil
}
