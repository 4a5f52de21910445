package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dealerlink/easysync/internal/models"
)

// AppendSyncLog writes an immutable audit record. Rows are never
// updated after creation.
func (s *Store) AppendSyncLog(ctx context.Context, log *models.SyncLog) error {
	errsJSON, err := json.Marshal(log.Errors)
	if err != nil {
		return fmt.Errorf("marshal errors: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
        INSERT INTO sync_logs
            (dealership_id, sync_type, status, items_processed, items_succeeded,
             items_failed, images_downloaded, images_failed, errors, duration_ms, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, log.DealershipID, string(log.Type), string(log.Status),
		log.ItemsProcessed, log.ItemsSucceeded, log.ItemsFailed,
		log.ImagesDownloaded, log.ImagesFailed, string(errsJSON),
		log.Duration.Milliseconds(), log.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert sync log: %w", err)
	}
	log.ID, _ = res.LastInsertId()
	return nil
}

// LastSync returns the most recent sync log for a dealership,
// optionally filtered by sync type.
func (s *Store) LastSync(ctx context.Context, dealershipID string, syncType *models.SyncType) (*models.SyncLog, error) {
	query := `
        SELECT id, dealership_id, sync_type, status, items_processed, items_succeeded,
               items_failed, images_downloaded, images_failed, errors, duration_ms, created_at
        FROM sync_logs WHERE dealership_id = ?`
	args := []any{dealershipID}
	if syncType != nil {
		query += " AND sync_type = ?"
		args = append(args, string(*syncType))
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT 1"

	log, err := scanSyncLog(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return log, err
}

// SyncHistory returns a page of sync logs, newest first. Page numbers
// start at 1.
func (s *Store) SyncHistory(ctx context.Context, dealershipID string, page, pageSize int, syncType *models.SyncType) ([]*models.SyncLog, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	query := `
        SELECT id, dealership_id, sync_type, status, items_processed, items_succeeded,
               items_failed, images_downloaded, images_failed, errors, duration_ms, created_at
        FROM sync_logs WHERE dealership_id = ?`
	args := []any{dealershipID}
	if syncType != nil {
		query += " AND sync_type = ?"
		args = append(args, string(*syncType))
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sync history: %w", err)
	}
	defer rows.Close()

	var logs []*models.SyncLog
	for rows.Next() {
		log, err := scanSyncLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSyncLog(row rowScanner) (*models.SyncLog, error) {
	var log models.SyncLog
	var syncType, status, errsJSON string
	var durationMs int64
	err := row.Scan(&log.ID, &log.DealershipID, &syncType, &status,
		&log.ItemsProcessed, &log.ItemsSucceeded, &log.ItemsFailed,
		&log.ImagesDownloaded, &log.ImagesFailed, &errsJSON, &durationMs, &log.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan sync log: %w", err)
	}
	log.Type = models.SyncType(syncType)
	log.Status = models.SyncStatus(status)
	log.Duration = time.Duration(durationMs) * time.Millisecond
	if err := json.Unmarshal([]byte(errsJSON), &log.Errors); err != nil {
		return nil, fmt.Errorf("parse sync log errors: %w", err)
	}
	return &log, nil
}
