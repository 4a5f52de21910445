package tokens

import (
	"context"
	"sync"
	"time"

	"github.com/dealerlink/easysync/internal/events"
	"github.com/dealerlink/easysync/internal/models"
)

// Key identifies one cached token. Tokens are scoped per dealership,
// environment and account so a credential rotation or environment
// switch never serves a stale token.
type Key struct {
	DealershipID string
	Environment  models.Environment
	AccountID    string
}

// AcquireFunc requests a fresh token from the remote token endpoint.
// It returns the token and the remote expiry (zero when the remote
// does not report one).
type AcquireFunc func(ctx context.Context, env models.Environment, accountID, accountSecret string) (string, time.Time, error)

type entry struct {
	token      string
	acquiredAt time.Time
	expiresAt  time.Time
}

func (e *entry) valid(now time.Time) bool {
	return e != nil && now.Before(e.expiresAt)
}

// Broker caches bearer tokens and serializes acquisition per key.
// Different keys never block each other; concurrent callers for the
// same key share a single in-flight acquisition.
type Broker struct {
	acquire AcquireFunc
	ttl     time.Duration
	logger  *events.Logger

	mu    sync.Mutex
	cache map[Key]*entry
	locks map[Key]*sync.Mutex

	// now is swappable for tests.
	now func() time.Time
}

// NewBroker creates a broker with the given cache TTL.
func NewBroker(acquire AcquireFunc, ttl time.Duration, logger *events.Logger) *Broker {
	return &Broker{
		acquire: acquire,
		ttl:     ttl,
		logger:  logger.WithField("component", "token_broker"),
		cache:   make(map[Key]*entry),
		locks:   make(map[Key]*sync.Mutex),
		now:     time.Now,
	}
}

// GetOrRefresh returns a valid token for the key, acquiring one when
// the cache misses or the entry expired.
func (b *Broker) GetOrRefresh(ctx context.Context, key Key, accountSecret string) (string, error) {
	if tok, ok := b.cached(key); ok {
		return tok, nil
	}

	lock := b.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	// Another caller may have finished acquiring while we waited.
	if tok, ok := b.cached(key); ok {
		return tok, nil
	}

	b.logger.WithFields(map[string]interface{}{
		"dealership":  key.DealershipID,
		"environment": key.Environment,
	}).Debug("Acquiring token")

	token, remoteExpiry, err := b.acquire(ctx, key.Environment, key.AccountID, accountSecret)
	if err != nil {
		return "", err
	}

	now := b.now()
	expiresAt := now.Add(b.ttl)
	// Never cache past the remote's own expiry; keep a safety margin.
	if !remoteExpiry.IsZero() {
		if capped := remoteExpiry.Add(-30 * time.Second); capped.Before(expiresAt) {
			expiresAt = capped
		}
	}

	b.mu.Lock()
	b.cache[key] = &entry{token: token, acquiredAt: now, expiresAt: expiresAt}
	b.mu.Unlock()

	return token, nil
}

// Invalidate drops a cached token. Called after a downstream 401 so the
// next GetOrRefresh performs exactly one re-acquisition.
func (b *Broker) Invalidate(key Key) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.cache[key]; ok {
		delete(b.cache, key)
		b.logger.WithField("dealership", key.DealershipID).Debug("Token invalidated")
	}
}

func (b *Broker) cached(key Key) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e := b.cache[key]; e.valid(b.now()) {
		return e.token, true
	}
	return "", false
}

// keyLock returns the acquisition mutex for a key, creating it on
// demand. Locks are per key so unrelated dealerships never serialize
// on each other.
func (b *Broker) keyLock(key Key) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	lock, ok := b.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		b.locks[key] = lock
	}
	return lock
}
