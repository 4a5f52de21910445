package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dealerlink/easysync/internal/models"
)

// CreateCredential inserts a new credential. One per dealership.
func (s *Store) CreateCredential(ctx context.Context, c *models.Credential) error {
	res, err := s.db.ExecContext(ctx, `
        INSERT INTO credentials
            (dealership_id, client_id, client_secret, account_id, account_secret,
             environment, active, yard_code, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, c.DealershipID, c.ClientID, c.ClientSecret, c.AccountID, c.AccountSecret,
		string(c.Environment), c.Active, c.YardCode, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert credential: %w", err)
	}
	c.ID, _ = res.LastInsertId()
	return nil
}

// UpdateCredential persists changes made through Credential.Update.
func (s *Store) UpdateCredential(ctx context.Context, c *models.Credential) error {
	_, err := s.db.ExecContext(ctx, `
        UPDATE credentials SET
            client_id = ?, client_secret = ?, account_id = ?, account_secret = ?,
            environment = ?, active = ?, yard_code = ?, updated_at = ?
        WHERE dealership_id = ?
    `, c.ClientID, c.ClientSecret, c.AccountID, c.AccountSecret,
		string(c.Environment), c.Active, c.YardCode, c.UpdatedAt, c.DealershipID)
	if err != nil {
		return fmt.Errorf("update credential: %w", err)
	}
	return nil
}

// CredentialByDealership loads the credential for a dealership.
func (s *Store) CredentialByDealership(ctx context.Context, dealershipID string) (*models.Credential, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, dealership_id, client_id, client_secret, account_id, account_secret,
               environment, active, yard_code, last_synced_at, created_at, updated_at
        FROM credentials WHERE dealership_id = ?
    `, dealershipID)

	var c models.Credential
	var env string
	var lastSynced sql.NullTime
	err := row.Scan(&c.ID, &c.DealershipID, &c.ClientID, &c.ClientSecret, &c.AccountID,
		&c.AccountSecret, &env, &c.Active, &c.YardCode, &lastSynced, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrCredentialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query credential: %w", err)
	}
	c.Environment = models.Environment(env)
	if lastSynced.Valid {
		t := lastSynced.Time
		c.LastSyncedAt = &t
	}
	return &c, nil
}

// CredentialExists checks whether a dealership has a stored credential.
func (s *Store) CredentialExists(ctx context.Context, dealershipID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM credentials WHERE dealership_id = ?", dealershipID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query credential: %w", err)
	}
	return n > 0, nil
}

// DeleteCredential removes a dealership's credential.
func (s *Store) DeleteCredential(ctx context.Context, dealershipID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM credentials WHERE dealership_id = ?", dealershipID)
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}

// TouchLastSynced records a successful (or partially successful) sync.
func (s *Store) TouchLastSynced(ctx context.Context, dealershipID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE credentials SET last_synced_at = ? WHERE dealership_id = ?", at, dealershipID)
	if err != nil {
		return fmt.Errorf("touch last synced: %w", err)
	}
	return nil
}
