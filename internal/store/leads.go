package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dealerlink/easysync/internal/models"
)

// CreateLead inserts a local lead.
func (s *Store) CreateLead(ctx context.Context, l *models.Lead) error {
	now := time.Now().UTC()
	if l.Status == "" {
		l.Status = models.LeadNew
	}
	res, err := s.db.ExecContext(ctx, `
        INSERT INTO leads
            (dealership_id, remote_lead_number, first_name, last_name, email, phone,
             comments, vehicle_id, status, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, l.DealershipID, l.RemoteLeadNumber, l.FirstName, l.LastName, l.Email, l.Phone,
		l.Comments, l.VehicleID, string(l.Status), now, now)
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	l.ID, _ = res.LastInsertId()
	l.CreatedAt = now
	l.UpdatedAt = now
	return nil
}

// LeadByID loads a lead.
func (s *Store) LeadByID(ctx context.Context, id int64) (*models.Lead, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, dealership_id, remote_lead_number, first_name, last_name, email,
               phone, comments, vehicle_id, status, created_at, updated_at
        FROM leads WHERE id = ?
    `, id)
	return scanLead(row)
}

// LinkedLeads returns the dealership's leads that already have an
// EasyCars counterpart, in insertion order.
func (s *Store) LinkedLeads(ctx context.Context, dealershipID string) ([]*models.Lead, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, dealership_id, remote_lead_number, first_name, last_name, email,
               phone, comments, vehicle_id, status, created_at, updated_at
        FROM leads WHERE dealership_id = ? AND remote_lead_number != ''
        ORDER BY id
    `, dealershipID)
	if err != nil {
		return nil, fmt.Errorf("query linked leads: %w", err)
	}
	defer rows.Close()

	var leads []*models.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

// SetRemoteLeadNumber stores the EasyCars identifier returned by a
// create call.
func (s *Store) SetRemoteLeadNumber(ctx context.Context, id int64, leadNumber string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE leads SET remote_lead_number = ?, updated_at = ? WHERE id = ?",
		leadNumber, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set remote lead number: %w", err)
	}
	return nil
}

// UpdateLeadMetadata overwrites the metadata fields from a remote
// detail record. Status is deliberately untouched; status changes flow
// through reconciliation and conflict resolution only.
func (s *Store) UpdateLeadMetadata(ctx context.Context, l *models.Lead) error {
	_, err := s.db.ExecContext(ctx, `
        UPDATE leads SET
            first_name = ?, last_name = ?, email = ?, phone = ?, comments = ?, updated_at = ?
        WHERE id = ?
    `, l.FirstName, l.LastName, l.Email, l.Phone, l.Comments, time.Now().UTC(), l.ID)
	if err != nil {
		return fmt.Errorf("update lead metadata: %w", err)
	}
	return nil
}

// SetLeadStatus applies a status change.
func (s *Store) SetLeadStatus(ctx context.Context, id int64, status models.LeadStatus) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE leads SET status = ?, updated_at = ? WHERE id = ?",
		string(status), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set lead status: %w", err)
	}
	return nil
}

func scanLead(row rowScanner) (*models.Lead, error) {
	var l models.Lead
	var status string
	var vehicleID sql.NullInt64
	err := row.Scan(&l.ID, &l.DealershipID, &l.RemoteLeadNumber, &l.FirstName,
		&l.LastName, &l.Email, &l.Phone, &l.Comments, &vehicleID, &status,
		&l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan lead: %w", err)
	}
	l.Status = models.LeadStatus(status)
	if vehicleID.Valid {
		id := vehicleID.Int64
		l.VehicleID = &id
	}
	return &l, nil
}
