package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/dealerlink/easysync/internal/events"
	"github.com/dealerlink/easysync/internal/models"
	"github.com/dealerlink/easysync/internal/transport"
)

// StockEngine synchronizes the remote advertisement inventory into
// local vehicle records.
type StockEngine struct {
	api      transport.API
	secrets  Secrets
	creds    CredentialRepo
	vehicles VehicleRepo
	images   ImageDownloader
	audit    AuditLog
	settings SettingsRepo
	guard    *Guard
	logger   *events.Logger
}

// NewStockEngine creates a stock sync engine.
func NewStockEngine(
	api transport.API,
	secrets Secrets,
	creds CredentialRepo,
	vehicles VehicleRepo,
	images ImageDownloader,
	audit AuditLog,
	settings SettingsRepo,
	guard *Guard,
	logger *events.Logger,
) *StockEngine {
	return &StockEngine{
		api:      api,
		secrets:  secrets,
		creds:    creds,
		vehicles: vehicles,
		images:   images,
		audit:    audit,
		settings: settings,
		guard:    guard,
		logger:   logger.WithField("component", "stock_engine"),
	}
}

// SyncStock runs one full inventory sync for a dealership. Per-item
// failures are recorded without aborting the batch; the result is
// always written to the audit log. An overlapping run for the same
// dealership fails fast with models.ErrSyncInProgress.
func (e *StockEngine) SyncStock(ctx context.Context, dealershipID string) (*models.SyncResult, error) {
	release, err := e.guard.Acquire(dealershipID)
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	result := models.NewSyncResult()
	log := e.logger.WithField("dealership", dealershipID)
	log.Info("Starting stock sync")

	if enabled, err := e.settings.SyncEnabled(ctx); err != nil {
		result.Fail(fmt.Sprintf("check sync kill-switch: %v", err))
		return e.finish(ctx, dealershipID, result, start), nil
	} else if !enabled {
		result.Fail(models.ErrSyncDisabled.Error())
		return e.finish(ctx, dealershipID, result, start), nil
	}

	cred, apiCred, failMsg := loadCredentials(ctx, e.creds, e.secrets, dealershipID)
	if failMsg != "" {
		result.Fail(failMsg)
		return e.finish(ctx, dealershipID, result, start), nil
	}

	stocks, err := e.api.FetchStocks(ctx, apiCred, cred.YardCode)
	if err != nil {
		if ctx.Err() != nil {
			result.Fail(fmt.Sprintf("fetch stocks: %v", err))
			return e.finish(ctx, dealershipID, result, start), ctx.Err()
		}
		result.Fail(fmt.Sprintf("fetch stocks: %v", err))
		return e.finish(ctx, dealershipID, result, start), nil
	}

	log.WithField("items", len(stocks)).Info("Fetched remote inventory")

	// Items are processed one at a time in remote order; sequential
	// processing keeps remote load bounded.
	for i := range stocks {
		if ctx.Err() != nil {
			// Stop issuing work but keep what was already recorded.
			break
		}
		if err := e.syncItem(ctx, dealershipID, &stocks[i], result); err != nil {
			result.RecordFailure(fmt.Sprintf("stock %s: %v", stocks[i].StockNumber, err))
		} else {
			result.RecordSuccess()
		}
	}

	finished := e.finish(ctx, dealershipID, result, start)

	if finished.Status != models.SyncFailed {
		if err := e.creds.TouchLastSynced(ctx, dealershipID, time.Now().UTC()); err != nil {
			log.WithError(err).Warn("Failed to update last-synced timestamp")
		}
	}

	log.WithFields(map[string]interface{}{
		"status":    finished.Status,
		"processed": finished.ItemsProcessed,
		"failed":    finished.ItemsFailed,
		"duration":  finished.Duration.String(),
	}).Info("Stock sync finished")

	return finished, ctx.Err()
}

// syncItem maps one remote stock item to a vehicle record and downloads
// its images. Image failures count separately and never fail the item.
func (e *StockEngine) syncItem(ctx context.Context, dealershipID string, rs *models.RemoteStock, result *models.SyncResult) error {
	if rs.StockNumber == "" {
		return &models.InputError{Field: "stockNumber", Reason: "missing in remote item"}
	}

	stored, err := e.images.Download(ctx, rs.ImageURLs, rs.StockNumber)
	if err != nil {
		// Only context cancellation surfaces here.
		return err
	}
	result.ImagesDownloaded += len(stored)
	result.ImagesFailed += len(rs.ImageURLs) - len(stored)

	vehicle := mapStock(dealershipID, rs, stored)
	if err := e.vehicles.UpsertVehicle(ctx, vehicle); err != nil {
		return fmt.Errorf("persist vehicle: %w", err)
	}
	return nil
}

// mapStock translates a remote stock item field by field, keeping the
// raw remote JSON for auditing.
func mapStock(dealershipID string, rs *models.RemoteStock, storedImages []string) *models.Vehicle {
	return &models.Vehicle{
		DealershipID: dealershipID,
		StockNumber:  rs.StockNumber,
		YardCode:     rs.YardCode,
		Make:         rs.Make,
		Model:        rs.Model,
		Variant:      rs.Variant,
		Year:         rs.Year,
		Price:        rs.Price,
		Odometer:     rs.Odometer,
		Colour:       rs.Colour,
		VIN:          rs.VIN,
		Registration: rs.Registration,
		Transmission: rs.Transmission,
		FuelType:     rs.FuelType,
		BodyType:     rs.BodyType,
		Description:  rs.Description,
		ImageURLs:    storedImages,
		RawPayload:   models.RawJSON(rs),
	}
}

// finish classifies the result and appends the audit record. Audit
// writes use a detached context so a cancelled sync still leaves its
// trace.
func (e *StockEngine) finish(ctx context.Context, dealershipID string, result *models.SyncResult, start time.Time) *models.SyncResult {
	result.Finalize(start)
	auditCtx := context.WithoutCancel(ctx)
	if err := e.audit.AppendSyncLog(auditCtx, models.NewSyncLog(dealershipID, models.SyncTypeStock, result)); err != nil {
		e.logger.WithError(err).WithField("dealership", dealershipID).Error("Failed to append sync log")
	}
	return result
}

// loadCredentials loads and decrypts a dealership's credential set.
// A non-empty failMsg means the sync must fail before any remote call.
func loadCredentials(ctx context.Context, repo CredentialRepo, secrets Secrets, dealershipID string) (*models.Credential, transport.Credentials, string) {
	cred, err := repo.CredentialByDealership(ctx, dealershipID)
	if err != nil {
		return nil, transport.Credentials{}, fmt.Sprintf("load credential: %v", err)
	}
	if !cred.Active {
		return nil, transport.Credentials{}, models.ErrCredentialInactive.Error()
	}

	accountID, err := secrets.Decrypt(cred.AccountID)
	if err != nil {
		return nil, transport.Credentials{}, fmt.Sprintf("decrypt account id: %v", err)
	}
	accountSecret, err := secrets.Decrypt(cred.AccountSecret)
	if err != nil {
		return nil, transport.Credentials{}, fmt.Sprintf("decrypt account secret: %v", err)
	}

	return cred, transport.Credentials{
		DealershipID:  cred.DealershipID,
		Environment:   cred.Environment,
		AccountID:     accountID,
		AccountSecret: accountSecret,
	}, ""
}
