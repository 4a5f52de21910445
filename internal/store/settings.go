package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const syncEnabledKey = "sync_enabled"

// AutoSyncDealerships lists dealerships eligible for scheduled sync.
func (s *Store) AutoSyncDealerships(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT dealership_id FROM dealership_settings
        WHERE auto_sync_enabled = 1 ORDER BY dealership_id
    `)
	if err != nil {
		return nil, fmt.Errorf("query auto-sync dealerships: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan dealership id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetAutoSync enables or disables scheduled sync for a dealership.
func (s *Store) SetAutoSync(ctx context.Context, dealershipID string, enabled bool) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO dealership_settings (dealership_id, auto_sync_enabled)
        VALUES (?, ?)
        ON CONFLICT(dealership_id) DO UPDATE SET auto_sync_enabled = excluded.auto_sync_enabled
    `, dealershipID, enabled)
	if err != nil {
		return fmt.Errorf("set auto-sync: %w", err)
	}
	return nil
}

// SyncEnabled reports the global kill-switch. Absent setting means
// enabled.
func (s *Store) SyncEnabled(ctx context.Context) (bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM system_settings WHERE key = ?", syncEnabledKey).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return true, nil
		}
		return false, fmt.Errorf("query sync kill-switch: %w", err)
	}
	return value != "false", nil
}

// SetSyncEnabled flips the global kill-switch.
func (s *Store) SetSyncEnabled(ctx context.Context, enabled bool) error {
	value := "true"
	if !enabled {
		value = "false"
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO system_settings (key, value) VALUES (?, ?)
        ON CONFLICT(key) DO UPDATE SET value = excluded.value
    `, syncEnabledKey, value)
	if err != nil {
		return fmt.Errorf("set sync kill-switch: %w", err)
	}
	return nil
}
