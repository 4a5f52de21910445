package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dealerlink/easysync/internal/models"
)

// EasyCars endpoints.
const (
	pathRequestToken     = "/RequestToken"
	pathGetStocks        = "/Stock/GetAdvertisementStocks"
	pathCreateLead       = "/Lead/CreateLead"
	pathUpdateLead       = "/Lead/UpdateLead"
	pathUpdateLeadStatus = "/Lead/UpdateLeadStatus"
	pathGetLead          = "/Lead/GetLead"
	pathGetLeadStatus    = "/Lead/GetLeadStatus"
)

// API is the remote surface the sync engines consume.
type API interface {
	FetchStocks(ctx context.Context, cred Credentials, yardCode string) ([]models.RemoteStock, error)
	CreateLead(ctx context.Context, cred Credentials, payload *models.LeadPayload) (string, error)
	UpdateLead(ctx context.Context, cred Credentials, leadNumber string, payload *models.LeadPayload) error
	UpdateLeadStatus(ctx context.Context, cred Credentials, leadNumber string, statusCode int) error
	GetLead(ctx context.Context, cred Credentials, leadNumber string) (*models.RemoteLead, error)
	GetLeadStatus(ctx context.Context, cred Credentials, leadNumber string) (int, error)
	TestCredential(ctx context.Context, env models.Environment, accountID, accountSecret string) error
}

// FetchStocks retrieves the full advertisement inventory, optionally
// filtered by yard code.
func (c *Client) FetchStocks(ctx context.Context, cred Credentials, yardCode string) ([]models.RemoteStock, error) {
	query := url.Values{}
	if yardCode != "" {
		query.Set("yardCode", yardCode)
	}
	resp, err := call[models.StockListResponse](ctx, c, cred, request{
		op:     "fetch stocks",
		method: http.MethodGet,
		path:   pathGetStocks,
		query:  query,
	})
	if err != nil {
		return nil, err
	}
	return resp.Stocks, nil
}

// CreateLead pushes a new lead and returns the remote lead number.
func (c *Client) CreateLead(ctx context.Context, cred Credentials, payload *models.LeadPayload) (string, error) {
	resp, err := call[models.LeadResponse](ctx, c, cred, request{
		op:     "create lead",
		method: http.MethodPost,
		path:   pathCreateLead,
		body:   payload,
	})
	if err != nil {
		return "", err
	}
	if resp.LeadNumber == "" {
		return "", &models.FatalError{Op: "create lead", Message: "response missing lead number"}
	}
	return resp.LeadNumber, nil
}

// UpdateLead pushes changed fields for an already-linked lead.
func (c *Client) UpdateLead(ctx context.Context, cred Credentials, leadNumber string, payload *models.LeadPayload) error {
	query := url.Values{"leadNumber": {leadNumber}}
	_, err := call[models.LeadResponse](ctx, c, cred, request{
		op:     "update lead",
		method: http.MethodPut,
		path:   pathUpdateLead,
		query:  query,
		body:   payload,
	})
	return err
}

// UpdateLeadStatus pushes a status-only change.
func (c *Client) UpdateLeadStatus(ctx context.Context, cred Credentials, leadNumber string, statusCode int) error {
	_, err := call[models.LeadResponse](ctx, c, cred, request{
		op:     "update lead status",
		method: http.MethodPut,
		path:   pathUpdateLeadStatus,
		body:   &models.LeadStatusPayload{LeadNumber: leadNumber, Status: statusCode},
	})
	return err
}

// GetLead fetches the current remote detail for a linked lead.
func (c *Client) GetLead(ctx context.Context, cred Credentials, leadNumber string) (*models.RemoteLead, error) {
	resp, err := call[models.LeadDetailResponse](ctx, c, cred, request{
		op:     "get lead",
		method: http.MethodGet,
		path:   pathGetLead,
		query:  url.Values{"leadNumber": {leadNumber}},
	})
	if err != nil {
		return nil, err
	}
	if resp.Lead == nil {
		return nil, &models.FatalError{Op: "get lead", Message: "response missing lead detail"}
	}
	return resp.Lead, nil
}

// GetLeadStatus fetches the current remote status code for a linked
// lead.
func (c *Client) GetLeadStatus(ctx context.Context, cred Credentials, leadNumber string) (int, error) {
	resp, err := call[models.LeadStatusResponse](ctx, c, cred, request{
		op:     "get lead status",
		method: http.MethodGet,
		path:   pathGetLeadStatus,
		query:  url.Values{"leadNumber": {leadNumber}},
	})
	if err != nil {
		return 0, err
	}
	return resp.Status, nil
}

// TestCredential verifies an account id and secret against the token
// endpoint without touching the token cache, so admins testing new
// secrets never get a cached answer.
func (c *Client) TestCredential(ctx context.Context, env models.Environment, accountID, accountSecret string) error {
	_, _, err := c.requestToken(ctx, env, accountID, accountSecret)
	return err
}

// requestToken is the broker's acquire path: a single unauthenticated
// POST to /RequestToken. Transient-vs-auth classification happens here
// so callers can decide whether a retry is worthwhile.
func (c *Client) requestToken(ctx context.Context, env models.Environment, accountID, accountSecret string) (string, time.Time, error) {
	const op = "request token"

	body, err := json.Marshal(&models.TokenRequest{AccountID: accountID, AccountSecret: accountSecret})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: marshal payload: %w", op, err)
	}
	endpoint := c.baseURL(env) + pathRequestToken
	c.logPayload(op, http.MethodPost, endpoint, body)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: create request: %w", op, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", time.Time{}, classifyTransportError(op, ctx, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", time.Time{}, &models.NetworkError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		if isRetryableStatus(resp.StatusCode) {
			return "", time.Time{}, &models.TemporaryError{Op: op, Message: fmt.Sprintf("server error %d", resp.StatusCode)}
		}
		return "", time.Time{}, &models.AuthError{Op: op, Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}

	var tokenResp models.TokenResponse
	if err := json.Unmarshal(respBody, &tokenResp); err != nil {
		return "", time.Time{}, &models.FatalError{Op: op, Message: fmt.Sprintf("malformed response: %v", err)}
	}
	if err := statusError(op, tokenResp.ResponseCode, tokenResp.ResponseMessage); err != nil {
		return "", time.Time{}, err
	}
	if tokenResp.Token == "" {
		return "", time.Time{}, &models.AuthError{Op: op, Message: "response missing token"}
	}

	var expiresAt time.Time
	if tokenResp.ExpiresAt != "" {
		if parsed, err := time.Parse(time.RFC3339, tokenResp.ExpiresAt); err == nil {
			expiresAt = parsed
		}
	}
	return tokenResp.Token, expiresAt, nil
}
