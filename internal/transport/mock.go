package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/dealerlink/easysync/internal/models"
)

// MockAPI is a scripted API implementation for tests. Responses are
// registered up front; every call is recorded.
type MockAPI struct {
	mu sync.Mutex

	Stocks       []models.RemoteStock
	StocksErr    error
	CreateResult string
	CreateErr    error
	UpdateErr    error
	StatusErr    error
	Leads        map[string]*models.RemoteLead
	LeadErrs     map[string]error
	Statuses     map[string]int
	StatusesErr  map[string]error
	TestErr      error

	FetchCalls        []string // yard codes
	CreateCalls       []*models.LeadPayload
	UpdateCalls       []string // lead numbers
	StatusPushCalls   []models.LeadStatusPayload
	GetLeadCalls      []string
	GetStatusCalls    []string
	TestCalls         []string // account ids
	FailStatusPushFor map[string]error
}

// NewMockAPI creates an empty mock.
func NewMockAPI() *MockAPI {
	return &MockAPI{
		Leads:             make(map[string]*models.RemoteLead),
		LeadErrs:          make(map[string]error),
		Statuses:          make(map[string]int),
		StatusesErr:       make(map[string]error),
		FailStatusPushFor: make(map[string]error),
	}
}

func (m *MockAPI) FetchStocks(ctx context.Context, cred Credentials, yardCode string) ([]models.RemoteStock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchCalls = append(m.FetchCalls, yardCode)
	if m.StocksErr != nil {
		return nil, m.StocksErr
	}
	return m.Stocks, nil
}

func (m *MockAPI) CreateLead(ctx context.Context, cred Credentials, payload *models.LeadPayload) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls = append(m.CreateCalls, payload)
	if m.CreateErr != nil {
		return "", m.CreateErr
	}
	if m.CreateResult == "" {
		return fmt.Sprintf("EC-%d", len(m.CreateCalls)), nil
	}
	return m.CreateResult, nil
}

func (m *MockAPI) UpdateLead(ctx context.Context, cred Credentials, leadNumber string, payload *models.LeadPayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls = append(m.UpdateCalls, leadNumber)
	return m.UpdateErr
}

func (m *MockAPI) UpdateLeadStatus(ctx context.Context, cred Credentials, leadNumber string, statusCode int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StatusPushCalls = append(m.StatusPushCalls, models.LeadStatusPayload{LeadNumber: leadNumber, Status: statusCode})
	if err, ok := m.FailStatusPushFor[leadNumber]; ok {
		return err
	}
	return m.StatusErr
}

func (m *MockAPI) GetLead(ctx context.Context, cred Credentials, leadNumber string) (*models.RemoteLead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetLeadCalls = append(m.GetLeadCalls, leadNumber)
	if err, ok := m.LeadErrs[leadNumber]; ok {
		return nil, err
	}
	lead, ok := m.Leads[leadNumber]
	if !ok {
		return nil, &models.ValidationError{Op: "get lead", Message: "unknown lead number " + leadNumber}
	}
	return lead, nil
}

func (m *MockAPI) GetLeadStatus(ctx context.Context, cred Credentials, leadNumber string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetStatusCalls = append(m.GetStatusCalls, leadNumber)
	if err, ok := m.StatusesErr[leadNumber]; ok {
		return 0, err
	}
	status, ok := m.Statuses[leadNumber]
	if !ok {
		return 0, &models.ValidationError{Op: "get lead status", Message: "unknown lead number " + leadNumber}
	}
	return status, nil
}

func (m *MockAPI) TestCredential(ctx context.Context, env models.Environment, accountID, accountSecret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TestCalls = append(m.TestCalls, accountID)
	return m.TestErr
}
