package syncer

import (
	"context"
	"time"

	"github.com/dealerlink/easysync/internal/models"
)

// The engines consume their collaborators through narrow interfaces so
// persistence and transport stay swappable in tests.

// CredentialRepo loads and timestamps dealership credentials.
type CredentialRepo interface {
	CredentialByDealership(ctx context.Context, dealershipID string) (*models.Credential, error)
	TouchLastSynced(ctx context.Context, dealershipID string, at time.Time) error
}

// VehicleRepo persists mapped inventory records.
type VehicleRepo interface {
	UpsertVehicle(ctx context.Context, v *models.Vehicle) error
	VehicleByID(ctx context.Context, id int64) (*models.Vehicle, error)
}

// LeadRepo reads and writes local leads.
type LeadRepo interface {
	LeadByID(ctx context.Context, id int64) (*models.Lead, error)
	LinkedLeads(ctx context.Context, dealershipID string) ([]*models.Lead, error)
	SetRemoteLeadNumber(ctx context.Context, id int64, leadNumber string) error
	UpdateLeadMetadata(ctx context.Context, l *models.Lead) error
	SetLeadStatus(ctx context.Context, id int64, status models.LeadStatus) error
}

// ConflictRepo records and resolves lead status conflicts.
type ConflictRepo interface {
	CreateConflict(ctx context.Context, c *models.LeadStatusConflict) error
	ConflictByID(ctx context.Context, id int64) (*models.LeadStatusConflict, error)
	UnresolvedConflictForLead(ctx context.Context, leadID int64) (*models.LeadStatusConflict, error)
	MarkConflictResolved(ctx context.Context, id int64, resolution models.Resolution, by string, at time.Time) error
}

// AuditLog appends immutable sync records.
type AuditLog interface {
	AppendSyncLog(ctx context.Context, log *models.SyncLog) error
}

// SettingsRepo exposes the scheduling settings the engines honor.
type SettingsRepo interface {
	SyncEnabled(ctx context.Context) (bool, error)
}

// ImageDownloader fetches remote images and returns stored locations.
type ImageDownloader interface {
	Download(ctx context.Context, urls []string, ownerID string) ([]string, error)
}

// Secrets decrypts stored credential blobs.
type Secrets interface {
	Decrypt(ciphertext string) (string, error)
}
