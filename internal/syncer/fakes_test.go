package syncer_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dealerlink/easysync/internal/events"
	"github.com/dealerlink/easysync/internal/models"
)

func testLogger() *events.Logger {
	return events.NewTestLogger(events.ErrorLevel, io.Discard)
}

// plainSecrets is a pass-through vault for tests; credentials are
// stored unencrypted.
type plainSecrets struct{}

func (plainSecrets) Decrypt(ciphertext string) (string, error) { return ciphertext, nil }

type failingSecrets struct{}

func (failingSecrets) Decrypt(string) (string, error) {
	return "", &models.DecryptError{Err: models.ErrDecryptionFailed}
}

type fakeCredentialRepo struct {
	mu          sync.Mutex
	credentials map[string]*models.Credential
	touched     map[string]time.Time
}

func newFakeCredentialRepo(creds ...*models.Credential) *fakeCredentialRepo {
	r := &fakeCredentialRepo{
		credentials: make(map[string]*models.Credential),
		touched:     make(map[string]time.Time),
	}
	for _, c := range creds {
		r.credentials[c.DealershipID] = c
	}
	return r
}

func (r *fakeCredentialRepo) CredentialByDealership(ctx context.Context, dealershipID string) (*models.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.credentials[dealershipID]
	if !ok {
		return nil, models.ErrCredentialNotFound
	}
	return c, nil
}

func (r *fakeCredentialRepo) TouchLastSynced(ctx context.Context, dealershipID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touched[dealershipID] = at
	return nil
}

type fakeVehicleRepo struct {
	mu       sync.Mutex
	vehicles map[int64]*models.Vehicle
	byStock  map[string]*models.Vehicle
	upserts  []string
	failFor  map[string]error
	nextID   int64
}

func newFakeVehicleRepo() *fakeVehicleRepo {
	return &fakeVehicleRepo{
		vehicles: make(map[int64]*models.Vehicle),
		byStock:  make(map[string]*models.Vehicle),
		failFor:  make(map[string]error),
	}
}

func (r *fakeVehicleRepo) UpsertVehicle(ctx context.Context, v *models.Vehicle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.failFor[v.StockNumber]; ok {
		return err
	}
	r.upserts = append(r.upserts, v.StockNumber)
	if existing, ok := r.byStock[v.StockNumber]; ok {
		v.ID = existing.ID
	} else {
		r.nextID++
		v.ID = r.nextID
	}
	r.vehicles[v.ID] = v
	r.byStock[v.StockNumber] = v
	return nil
}

func (r *fakeVehicleRepo) VehicleByID(ctx context.Context, id int64) (*models.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vehicles[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return v, nil
}

func (r *fakeVehicleRepo) add(v *models.Vehicle) *models.Vehicle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	v.ID = r.nextID
	r.vehicles[v.ID] = v
	r.byStock[v.StockNumber] = v
	return v
}

type fakeLeadRepo struct {
	mu             sync.Mutex
	leads          map[int64]*models.Lead
	linkedNumbers  map[int64]string
	statusWrites   map[int64]models.LeadStatus
	metadataWrites []int64
	nextID         int64
}

func newFakeLeadRepo() *fakeLeadRepo {
	return &fakeLeadRepo{
		leads:         make(map[int64]*models.Lead),
		linkedNumbers: make(map[int64]string),
		statusWrites:  make(map[int64]models.LeadStatus),
	}
}

func (r *fakeLeadRepo) add(l *models.Lead) *models.Lead {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	l.ID = r.nextID
	r.leads[l.ID] = l
	return l
}

func (r *fakeLeadRepo) LeadByID(ctx context.Context, id int64) (*models.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *l
	return &copied, nil
}

func (r *fakeLeadRepo) LinkedLeads(ctx context.Context, dealershipID string) ([]*models.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Lead
	for id := int64(1); id <= r.nextID; id++ {
		l, ok := r.leads[id]
		if !ok || l.DealershipID != dealershipID || l.RemoteLeadNumber == "" {
			continue
		}
		copied := *l
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeLeadRepo) SetRemoteLeadNumber(ctx context.Context, id int64, leadNumber string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	if !ok {
		return models.ErrNotFound
	}
	l.RemoteLeadNumber = leadNumber
	r.linkedNumbers[id] = leadNumber
	return nil
}

func (r *fakeLeadRepo) UpdateLeadMetadata(ctx context.Context, lead *models.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.leads[lead.ID]
	if !ok {
		return models.ErrNotFound
	}
	stored.FirstName = lead.FirstName
	stored.LastName = lead.LastName
	stored.Email = lead.Email
	stored.Phone = lead.Phone
	stored.Comments = lead.Comments
	r.metadataWrites = append(r.metadataWrites, lead.ID)
	return nil
}

func (r *fakeLeadRepo) SetLeadStatus(ctx context.Context, id int64, status models.LeadStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	if !ok {
		return models.ErrNotFound
	}
	l.Status = status
	r.statusWrites[id] = status
	return nil
}

type fakeConflictRepo struct {
	mu        sync.Mutex
	conflicts map[int64]*models.LeadStatusConflict
	nextID    int64
}

func newFakeConflictRepo() *fakeConflictRepo {
	return &fakeConflictRepo{conflicts: make(map[int64]*models.LeadStatusConflict)}
}

func (r *fakeConflictRepo) CreateConflict(ctx context.Context, c *models.LeadStatusConflict) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c.ID = r.nextID
	r.conflicts[c.ID] = c
	return nil
}

func (r *fakeConflictRepo) ConflictByID(ctx context.Context, id int64) (*models.LeadStatusConflict, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conflicts[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *fakeConflictRepo) UnresolvedConflictForLead(ctx context.Context, leadID int64) (*models.LeadStatusConflict, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.conflicts {
		if c.LeadID == leadID && !c.Resolved {
			copied := *c
			return &copied, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *fakeConflictRepo) MarkConflictResolved(ctx context.Context, id int64, resolution models.Resolution, by string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conflicts[id]
	if !ok {
		return models.ErrNotFound
	}
	if c.Resolved {
		return models.ErrConflictResolved
	}
	c.Resolved = true
	c.Resolution = resolution
	c.ResolvedBy = by
	c.ResolvedAt = &at
	return nil
}

func (r *fakeConflictRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conflicts)
}

type fakeAuditLog struct {
	mu      sync.Mutex
	entries []*models.SyncLog
	err     error
}

func (a *fakeAuditLog) AppendSyncLog(ctx context.Context, log *models.SyncLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.entries = append(a.entries, log)
	return nil
}

func (a *fakeAuditLog) last() *models.SyncLog {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.entries) == 0 {
		return nil
	}
	return a.entries[len(a.entries)-1]
}

func (a *fakeAuditLog) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

type fakeSettings struct {
	enabled bool
	err     error
}

func (s *fakeSettings) SyncEnabled(ctx context.Context) (bool, error) {
	return s.enabled, s.err
}

// fakeDownloader stores nothing; it reports a configurable number of
// failures per item.
type fakeDownloader struct {
	mu       sync.Mutex
	failPer  map[string]int // owner -> how many URLs fail
	failAll  bool
	requests []string
}

func newFakeDownloader() *fakeDownloader {
	return &fakeDownloader{failPer: make(map[string]int)}
}

func (d *fakeDownloader) Download(ctx context.Context, urls []string, ownerID string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.requests = append(d.requests, ownerID)
	failures := d.failPer[ownerID]
	if d.failAll {
		failures = len(urls)
	}
	var stored []string
	for i := range urls {
		if i < failures {
			continue
		}
		stored = append(stored, fmt.Sprintf("images/%s/%03d.jpg", ownerID, i))
	}
	return stored, nil
}

func testCredential(dealershipID string) *models.Credential {
	cred, err := models.NewCredential(dealershipID,
		"client-id", "client-secret", "account-id", "account-secret",
		models.EnvTest, "")
	if err != nil {
		panic(err)
	}
	return cred
}

var errBoom = errors.New("boom")
