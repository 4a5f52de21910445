package syncer

import "time"

// SetNow overrides the guard clock in tests.
func (g *Guard) SetNow(now func() time.Time) { g.now = now }
