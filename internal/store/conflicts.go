package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dealerlink/easysync/internal/models"
)

// CreateConflict records a newly detected status divergence.
func (s *Store) CreateConflict(ctx context.Context, c *models.LeadStatusConflict) error {
	res, err := s.db.ExecContext(ctx, `
        INSERT INTO lead_status_conflicts
            (dealership_id, lead_id, remote_lead_number, local_status, remote_status, detected_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `, c.DealershipID, c.LeadID, c.RemoteLeadNumber, string(c.LocalStatus), c.RemoteStatus, c.DetectedAt)
	if err != nil {
		return fmt.Errorf("insert conflict: %w", err)
	}
	c.ID, _ = res.LastInsertId()
	return nil
}

// ConflictByID loads a conflict.
func (s *Store) ConflictByID(ctx context.Context, id int64) (*models.LeadStatusConflict, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, dealership_id, lead_id, remote_lead_number, local_status, remote_status,
               detected_at, resolved, resolution, resolved_at, resolved_by
        FROM lead_status_conflicts WHERE id = ?
    `, id)
	return scanConflict(row)
}

// UnresolvedConflictForLead returns the open conflict for a lead, or
// models.ErrNotFound. At most one unresolved conflict exists per lead;
// reconciliation checks here before creating a new row.
func (s *Store) UnresolvedConflictForLead(ctx context.Context, leadID int64) (*models.LeadStatusConflict, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, dealership_id, lead_id, remote_lead_number, local_status, remote_status,
               detected_at, resolved, resolution, resolved_at, resolved_by
        FROM lead_status_conflicts WHERE lead_id = ? AND resolved = 0
        ORDER BY detected_at DESC LIMIT 1
    `, leadID)
	return scanConflict(row)
}

// UnresolvedConflicts lists open conflicts for a dealership.
func (s *Store) UnresolvedConflicts(ctx context.Context, dealershipID string) ([]*models.LeadStatusConflict, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, dealership_id, lead_id, remote_lead_number, local_status, remote_status,
               detected_at, resolved, resolution, resolved_at, resolved_by
        FROM lead_status_conflicts WHERE dealership_id = ? AND resolved = 0
        ORDER BY detected_at
    `, dealershipID)
	if err != nil {
		return nil, fmt.Errorf("query conflicts: %w", err)
	}
	defer rows.Close()

	var conflicts []*models.LeadStatusConflict
	for rows.Next() {
		c, err := scanConflict(rows)
		if err != nil {
			return nil, err
		}
		conflicts = append(conflicts, c)
	}
	return conflicts, rows.Err()
}

// MarkConflictResolved resolves a conflict exactly once. The guarded
// update makes a second resolution fail even under concurrent callers.
func (s *Store) MarkConflictResolved(ctx context.Context, id int64, resolution models.Resolution, by string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
        UPDATE lead_status_conflicts
        SET resolved = 1, resolution = ?, resolved_at = ?, resolved_by = ?
        WHERE id = ? AND resolved = 0
    `, string(resolution), at, by, id)
	if err != nil {
		return fmt.Errorf("resolve conflict: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve conflict: %w", err)
	}
	if n == 0 {
		// Distinguish missing from already-resolved.
		if _, err := s.ConflictByID(ctx, id); errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		return models.ErrConflictResolved
	}
	return nil
}

func scanConflict(row rowScanner) (*models.LeadStatusConflict, error) {
	var c models.LeadStatusConflict
	var localStatus string
	var resolution sql.NullString
	var resolvedAt sql.NullTime
	err := row.Scan(&c.ID, &c.DealershipID, &c.LeadID, &c.RemoteLeadNumber, &localStatus,
		&c.RemoteStatus, &c.DetectedAt, &c.Resolved, &resolution, &resolvedAt, &c.ResolvedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan conflict: %w", err)
	}
	c.LocalStatus = models.LeadStatus(localStatus)
	if resolution.Valid {
		c.Resolution = models.Resolution(resolution.String)
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		c.ResolvedAt = &t
	}
	return &c, nil
}
