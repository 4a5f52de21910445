package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dealerlink/easysync/internal/events"
	"github.com/dealerlink/easysync/internal/models"
	"github.com/dealerlink/easysync/internal/transport"
)

// LeadEngine synchronizes leads in both directions and reconciles
// status divergence into explicit conflicts. It never auto-merges: a
// mismatch always becomes a conflict record for a human to resolve.
type LeadEngine struct {
	api       transport.API
	secrets   Secrets
	creds     CredentialRepo
	leads     LeadRepo
	vehicles  VehicleRepo
	conflicts ConflictRepo
	audit     AuditLog
	settings  SettingsRepo
	guard     *Guard
	logger    *events.Logger
}

// NewLeadEngine creates a lead sync engine. The guard is shared with
// the stock engine so any two syncs for a dealership exclude each
// other.
func NewLeadEngine(
	api transport.API,
	secrets Secrets,
	creds CredentialRepo,
	leads LeadRepo,
	vehicles VehicleRepo,
	conflicts ConflictRepo,
	audit AuditLog,
	settings SettingsRepo,
	guard *Guard,
	logger *events.Logger,
) *LeadEngine {
	return &LeadEngine{
		api:       api,
		secrets:   secrets,
		creds:     creds,
		leads:     leads,
		vehicles:  vehicles,
		conflicts: conflicts,
		audit:     audit,
		settings:  settings,
		guard:     guard,
		logger:    logger.WithField("component", "lead_engine"),
	}
}

// SyncLeadToRemote pushes one local lead. An unlinked lead is created
// remotely and the returned lead number is stored; a linked lead is
// updated in place. The outcome is recorded as a one-item audit entry.
//
// Single-lead pushes are explicit operator actions, so they bypass the
// run guard and the kill-switch; both gate only the scheduled batch
// passes (SyncLeadsFromRemote, SyncLeadStatusesFromRemote, SyncStock).
func (e *LeadEngine) SyncLeadToRemote(ctx context.Context, dealershipID string, leadID int64) error {
	start := time.Now()
	result := models.NewSyncResult()
	log := e.logger.WithFields(map[string]interface{}{
		"dealership": dealershipID,
		"lead":       leadID,
	})

	err := e.pushLead(ctx, dealershipID, leadID)
	if err != nil {
		result.RecordFailure(fmt.Sprintf("lead %d: %v", leadID, err))
	} else {
		result.RecordSuccess()
	}
	e.finish(ctx, dealershipID, result, start)

	if err != nil {
		log.WithError(err).Error("Lead push failed")
		return err
	}
	log.Info("Lead pushed")
	return nil
}

func (e *LeadEngine) pushLead(ctx context.Context, dealershipID string, leadID int64) error {
	lead, err := e.leads.LeadByID(ctx, leadID)
	if err != nil {
		return fmt.Errorf("load lead: %w", err)
	}
	if lead.DealershipID != dealershipID {
		return &models.InputError{Field: "leadId", Reason: "lead belongs to a different dealership"}
	}

	_, apiCred, failMsg := loadCredentials(ctx, e.creds, e.secrets, dealershipID)
	if failMsg != "" {
		return errors.New(failMsg)
	}

	payload, err := e.buildPayload(ctx, lead)
	if err != nil {
		return err
	}

	if !lead.Linked() {
		leadNumber, err := e.api.CreateLead(ctx, apiCred, payload)
		if err != nil {
			return err
		}
		if err := e.leads.SetRemoteLeadNumber(ctx, lead.ID, leadNumber); err != nil {
			// The remote lead exists but the link was lost; the next
			// push would create a duplicate, so surface this loudly.
			return fmt.Errorf("store remote lead number %q: %w", leadNumber, err)
		}
		return nil
	}
	return e.api.UpdateLead(ctx, apiCred, lead.RemoteLeadNumber, payload)
}

// buildPayload maps a local lead to the outbound wire shape. The
// vehicle link travels as a stock number, resolved from the plain
// identifier at push time.
func (e *LeadEngine) buildPayload(ctx context.Context, lead *models.Lead) (*models.LeadPayload, error) {
	payload := &models.LeadPayload{
		FirstName: lead.FirstName,
		LastName:  lead.LastName,
		Email:     lead.Email,
		Phone:     lead.Phone,
		Comments:  lead.Comments,
	}
	code, err := lead.Status.RemoteCode()
	if err != nil {
		return nil, err
	}
	payload.Status = code
	if lead.VehicleID != nil {
		vehicle, err := e.vehicles.VehicleByID(ctx, *lead.VehicleID)
		if err != nil {
			return nil, fmt.Errorf("resolve vehicle %d: %w", *lead.VehicleID, err)
		}
		payload.StockNumber = vehicle.StockNumber
	}
	return payload, nil
}

// SyncLeadStatusToRemote pushes a status-only change for one lead. An
// unlinked lead has no remote counterpart to update, so the call is a
// no-op rather than an error. Like SyncLeadToRemote, this is an
// operator action and skips the run guard and the kill-switch.
func (e *LeadEngine) SyncLeadStatusToRemote(ctx context.Context, dealershipID string, leadID int64) error {
	lead, err := e.leads.LeadByID(ctx, leadID)
	if err != nil {
		return fmt.Errorf("load lead: %w", err)
	}
	if lead.DealershipID != dealershipID {
		return &models.InputError{Field: "leadId", Reason: "lead belongs to a different dealership"}
	}
	if !lead.Linked() {
		e.logger.WithField("lead", leadID).Debug("Lead not linked; skipping status push")
		return nil
	}

	code, err := lead.Status.RemoteCode()
	if err != nil {
		return err
	}

	_, apiCred, failMsg := loadCredentials(ctx, e.creds, e.secrets, dealershipID)
	if failMsg != "" {
		return errors.New(failMsg)
	}

	start := time.Now()
	result := models.NewSyncResult()
	if err := e.api.UpdateLeadStatus(ctx, apiCred, lead.RemoteLeadNumber, code); err != nil {
		result.RecordFailure(fmt.Sprintf("lead %d: push status: %v", leadID, err))
		e.finish(ctx, dealershipID, result, start)
		return err
	}
	result.RecordSuccess()
	e.finish(ctx, dealershipID, result, start)
	return nil
}

// SyncLeadsFromRemote refreshes the metadata of every linked lead from
// its remote counterpart. Remote metadata wins for the mapped contact
// fields; status is never touched here, that is the reconciliation
// pass's job.
func (e *LeadEngine) SyncLeadsFromRemote(ctx context.Context, dealershipID string) (*models.SyncResult, error) {
	return e.runBatch(ctx, dealershipID, "lead pull", e.pullLeadItem)
}

// SyncLeadStatusesFromRemote compares each linked lead's status with
// the remote one and records a conflict for every divergence. A lead
// with an unresolved conflict is skipped, so repeated runs never stack
// duplicates.
func (e *LeadEngine) SyncLeadStatusesFromRemote(ctx context.Context, dealershipID string) (*models.SyncResult, error) {
	return e.runBatch(ctx, dealershipID, "status reconciliation", e.reconcileStatusItem)
}

type leadItemFunc func(ctx context.Context, cred transport.Credentials, lead *models.Lead, result *models.SyncResult) error

// runBatch is the shared skeleton of the two inbound passes: guard,
// kill-switch, credentials, then the per-lead loop with item-level
// error isolation and an audit record at the end.
func (e *LeadEngine) runBatch(ctx context.Context, dealershipID, name string, item leadItemFunc) (*models.SyncResult, error) {
	release, err := e.guard.Acquire(dealershipID)
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	result := models.NewSyncResult()
	log := e.logger.WithFields(map[string]interface{}{
		"dealership": dealershipID,
		"pass":       name,
	})
	log.Info("Starting lead sync")

	if enabled, err := e.settings.SyncEnabled(ctx); err != nil {
		result.Fail(fmt.Sprintf("check sync kill-switch: %v", err))
		return e.finish(ctx, dealershipID, result, start), nil
	} else if !enabled {
		result.Fail(models.ErrSyncDisabled.Error())
		return e.finish(ctx, dealershipID, result, start), nil
	}

	_, apiCred, failMsg := loadCredentials(ctx, e.creds, e.secrets, dealershipID)
	if failMsg != "" {
		result.Fail(failMsg)
		return e.finish(ctx, dealershipID, result, start), nil
	}

	leads, err := e.leads.LinkedLeads(ctx, dealershipID)
	if err != nil {
		result.Fail(fmt.Sprintf("list linked leads: %v", err))
		return e.finish(ctx, dealershipID, result, start), nil
	}

	for _, lead := range leads {
		if ctx.Err() != nil {
			break
		}
		if err := item(ctx, apiCred, lead, result); err != nil {
			result.RecordFailure(fmt.Sprintf("lead %d: %v", lead.ID, err))
		} else {
			result.RecordSuccess()
		}
	}

	finished := e.finish(ctx, dealershipID, result, start)
	log.WithFields(map[string]interface{}{
		"status":    finished.Status,
		"processed": finished.ItemsProcessed,
		"failed":    finished.ItemsFailed,
	}).Info("Lead sync finished")
	return finished, ctx.Err()
}

func (e *LeadEngine) pullLeadItem(ctx context.Context, cred transport.Credentials, lead *models.Lead, result *models.SyncResult) error {
	remote, err := e.api.GetLead(ctx, cred, lead.RemoteLeadNumber)
	if err != nil {
		return err
	}

	lead.FirstName = remote.FirstName
	lead.LastName = remote.LastName
	lead.Email = remote.Email
	lead.Phone = remote.Phone
	lead.Comments = remote.Comments
	if err := e.leads.UpdateLeadMetadata(ctx, lead); err != nil {
		return fmt.Errorf("persist lead: %w", err)
	}
	return nil
}

func (e *LeadEngine) reconcileStatusItem(ctx context.Context, cred transport.Credentials, lead *models.Lead, result *models.SyncResult) error {
	remoteCode, err := e.api.GetLeadStatus(ctx, cred, lead.RemoteLeadNumber)
	if err != nil {
		return err
	}

	localCode, err := lead.Status.RemoteCode()
	if err != nil {
		return err
	}
	if remoteCode == localCode {
		return nil
	}

	// Divergence. Record a conflict unless an unresolved one already
	// exists for this lead.
	_, err = e.conflicts.UnresolvedConflictForLead(ctx, lead.ID)
	if err == nil {
		e.logger.WithField("lead", lead.ID).Debug("Unresolved conflict already recorded")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("check existing conflict: %w", err)
	}

	conflict := models.NewLeadStatusConflict(lead.DealershipID, lead.ID, lead.RemoteLeadNumber, lead.Status, remoteCode)
	if err := e.conflicts.CreateConflict(ctx, conflict); err != nil {
		return fmt.Errorf("record conflict: %w", err)
	}
	e.logger.WithFields(map[string]interface{}{
		"lead":          lead.ID,
		"local_status":  lead.Status,
		"remote_status": remoteCode,
	}).Warn("Lead status conflict recorded")
	return nil
}

// ResolveConflict applies a human decision to a recorded conflict.
// "local" pushes the local status to the remote side; "remote" applies
// the remote status locally. A conflict resolves exactly once.
func (e *LeadEngine) ResolveConflict(ctx context.Context, conflictID int64, resolution models.Resolution, resolvedBy string) error {
	conflict, err := e.conflicts.ConflictByID(ctx, conflictID)
	if err != nil {
		return fmt.Errorf("load conflict: %w", err)
	}
	if conflict.Resolved {
		return models.ErrConflictResolved
	}

	lead, err := e.leads.LeadByID(ctx, conflict.LeadID)
	if err != nil {
		return fmt.Errorf("load lead: %w", err)
	}

	switch resolution {
	case models.ResolveLocal:
		code, err := lead.Status.RemoteCode()
		if err != nil {
			return err
		}
		_, apiCred, failMsg := loadCredentials(ctx, e.creds, e.secrets, conflict.DealershipID)
		if failMsg != "" {
			return errors.New(failMsg)
		}
		if err := e.api.UpdateLeadStatus(ctx, apiCred, conflict.RemoteLeadNumber, code); err != nil {
			return fmt.Errorf("push local status: %w", err)
		}
	case models.ResolveRemote:
		status, err := models.LeadStatusFromRemote(conflict.RemoteStatus)
		if err != nil {
			return err
		}
		if err := e.leads.SetLeadStatus(ctx, lead.ID, status); err != nil {
			return fmt.Errorf("apply remote status: %w", err)
		}
	default:
		return &models.InputError{Field: "resolution", Reason: "must be \"local\" or \"remote\""}
	}

	// Marking after the winning side is applied means a failed apply
	// leaves the conflict open for a retry. The guarded update keeps a
	// concurrent second resolution from applying twice.
	if err := e.conflicts.MarkConflictResolved(ctx, conflictID, resolution, resolvedBy, time.Now().UTC()); err != nil {
		return err
	}

	e.logger.WithFields(map[string]interface{}{
		"conflict":   conflictID,
		"lead":       conflict.LeadID,
		"resolution": resolution,
		"by":         resolvedBy,
	}).Info("Conflict resolved")
	return nil
}

// finish classifies the result and appends the audit record with a
// detached context, matching the stock engine.
func (e *LeadEngine) finish(ctx context.Context, dealershipID string, result *models.SyncResult, start time.Time) *models.SyncResult {
	result.Finalize(start)
	auditCtx := context.WithoutCancel(ctx)
	if err := e.audit.AppendSyncLog(auditCtx, models.NewSyncLog(dealershipID, models.SyncTypeLead, result)); err != nil {
		e.logger.WithError(err).WithField("dealership", dealershipID).Error("Failed to append sync log")
	}
	return result
}
