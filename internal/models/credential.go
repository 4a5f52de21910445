package models

import (
	"fmt"
	"time"
)

// Environment selects which EasyCars endpoint set a credential targets.
type Environment string

const (
	EnvTest       Environment = "Test"
	EnvProduction Environment = "Production"
)

// ParseEnvironment validates an environment name.
func ParseEnvironment(s string) (Environment, error) {
	switch Environment(s) {
	case EnvTest, EnvProduction:
		return Environment(s), nil
	default:
		return "", &InputError{Field: "environment", Reason: fmt.Sprintf("must be %q or %q, got %q", EnvTest, EnvProduction, s)}
	}
}

// Credential holds a dealership's encrypted EasyCars secrets. Each
// secret field is an independent base64(nonce||tag||ciphertext) blob;
// decrypted values never leave the vault's callers.
type Credential struct {
	ID            int64
	DealershipID  string
	ClientID      string // encrypted
	ClientSecret  string // encrypted
	AccountID     string // encrypted
	AccountSecret string // encrypted
	Environment   Environment
	Active        bool
	YardCode      string
	LastSyncedAt  *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewCredential builds a credential from already-encrypted fields.
func NewCredential(dealershipID, clientID, clientSecret, accountID, accountSecret string, env Environment, yardCode string) (*Credential, error) {
	if dealershipID == "" {
		return nil, &InputError{Field: "dealershipId", Reason: "must not be empty"}
	}
	for field, v := range map[string]string{
		"clientId":      clientID,
		"clientSecret":  clientSecret,
		"accountId":     accountID,
		"accountSecret": accountSecret,
	} {
		if v == "" {
			return nil, &InputError{Field: field, Reason: "must not be empty"}
		}
	}
	if _, err := ParseEnvironment(string(env)); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Credential{
		DealershipID:  dealershipID,
		ClientID:      clientID,
		ClientSecret:  clientSecret,
		AccountID:     accountID,
		AccountSecret: accountSecret,
		Environment:   env,
		Active:        true,
		YardCode:      yardCode,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Update replaces the mutable fields, re-validating the environment.
func (c *Credential) Update(clientID, clientSecret, accountID, accountSecret string, env Environment, yardCode string, active bool) error {
	if _, err := ParseEnvironment(string(env)); err != nil {
		return err
	}
	if clientID != "" {
		c.ClientID = clientID
	}
	if clientSecret != "" {
		c.ClientSecret = clientSecret
	}
	if accountID != "" {
		c.AccountID = accountID
	}
	if accountSecret != "" {
		c.AccountSecret = accountSecret
	}
	c.Environment = env
	c.YardCode = yardCode
	c.Active = active
	c.UpdatedAt = time.Now().UTC()
	return nil
}
