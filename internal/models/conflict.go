package models

import "time"

// Resolution names the winning side of a lead status conflict.
type Resolution string

const (
	ResolveLocal  Resolution = "local"
	ResolveRemote Resolution = "remote"
)

// ParseResolution validates a resolution value.
func ParseResolution(s string) (Resolution, error) {
	switch Resolution(s) {
	case ResolveLocal, ResolveRemote:
		return Resolution(s), nil
	default:
		return "", &InputError{Field: "resolution", Reason: "must be \"local\" or \"remote\""}
	}
}

// LeadStatusConflict records a detected divergence between the local
// lead status and the remote one. It is resolved exactly once, by a
// human or an explicit resolution call; the sync engine never
// auto-merges.
type LeadStatusConflict struct {
	ID               int64
	DealershipID     string
	LeadID           int64
	RemoteLeadNumber string
	LocalStatus      LeadStatus
	RemoteStatus     int
	DetectedAt       time.Time
	Resolved         bool
	Resolution       Resolution
	ResolvedAt       *time.Time
	ResolvedBy       string
}

// NewLeadStatusConflict records a divergence found during inbound
// status reconciliation.
func NewLeadStatusConflict(dealershipID string, leadID int64, remoteLeadNumber string, local LeadStatus, remote int) *LeadStatusConflict {
	return &LeadStatusConflict{
		DealershipID:     dealershipID,
		LeadID:           leadID,
		RemoteLeadNumber: remoteLeadNumber,
		LocalStatus:      local,
		RemoteStatus:     remote,
		DetectedAt:       time.Now().UTC(),
	}
}
