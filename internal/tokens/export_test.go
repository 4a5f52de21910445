package tokens

import "time"

// SetNow overrides the broker clock in tests.
func (b *Broker) SetNow(now func() time.Time) { b.now = now }
