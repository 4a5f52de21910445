package models

import "time"

// SyncStatus classifies the outcome of one sync invocation.
type SyncStatus string

const (
	SyncSuccess        SyncStatus = "Success"
	SyncPartialSuccess SyncStatus = "PartialSuccess"
	SyncFailed         SyncStatus = "Failed"
)

// SyncType distinguishes stock runs from lead runs in the audit log.
type SyncType string

const (
	SyncTypeStock SyncType = "Stock"
	SyncTypeLead  SyncType = "Lead"
)

// SyncResult is the ephemeral outcome of one engine invocation.
// Invariant: ItemsSucceeded + ItemsFailed == ItemsProcessed, except
// when the run failed before processing anything (ItemsProcessed == 0).
type SyncResult struct {
	Status           SyncStatus
	ItemsProcessed   int
	ItemsSucceeded   int
	ItemsFailed      int
	ImagesDownloaded int
	ImagesFailed     int
	Errors           []string
	Duration         time.Duration

	fetchFailed bool
}

// NewSyncResult returns an empty result; callers record item outcomes
// and call Finalize once.
func NewSyncResult() *SyncResult {
	return &SyncResult{}
}

// RecordSuccess counts one item as processed and succeeded.
func (r *SyncResult) RecordSuccess() {
	r.ItemsProcessed++
	r.ItemsSucceeded++
}

// RecordFailure counts one item as processed and failed, keeping the
// error text for the audit trail.
func (r *SyncResult) RecordFailure(msg string) {
	r.ItemsProcessed++
	r.ItemsFailed++
	r.Errors = append(r.Errors, msg)
}

// Fail marks the whole run as failed before any items were processed.
func (r *SyncResult) Fail(msg string) {
	r.fetchFailed = true
	r.Errors = append(r.Errors, msg)
}

// Finalize sets the duration and classifies the run.
func (r *SyncResult) Finalize(start time.Time) *SyncResult {
	r.Duration = time.Since(start)
	switch {
	case r.fetchFailed:
		r.Status = SyncFailed
	case r.ItemsFailed == 0:
		r.Status = SyncSuccess
	case r.ItemsSucceeded == 0:
		r.Status = SyncFailed
	default:
		r.Status = SyncPartialSuccess
	}
	return r
}

// SyncLog is the durable copy of a SyncResult, append-only.
type SyncLog struct {
	ID               int64
	DealershipID     string
	Type             SyncType
	Status           SyncStatus
	ItemsProcessed   int
	ItemsSucceeded   int
	ItemsFailed      int
	ImagesDownloaded int
	ImagesFailed     int
	Errors           []string
	Duration         time.Duration
	CreatedAt        time.Time
}

// NewSyncLog snapshots a finished result for persistence.
func NewSyncLog(dealershipID string, syncType SyncType, r *SyncResult) *SyncLog {
	return &SyncLog{
		DealershipID:     dealershipID,
		Type:             syncType,
		Status:           r.Status,
		ItemsProcessed:   r.ItemsProcessed,
		ItemsSucceeded:   r.ItemsSucceeded,
		ItemsFailed:      r.ItemsFailed,
		ImagesDownloaded: r.ImagesDownloaded,
		ImagesFailed:     r.ImagesFailed,
		Errors:           append([]string(nil), r.Errors...),
		Duration:         r.Duration,
		CreatedAt:        time.Now().UTC(),
	}
}
