package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/http2"

	"github.com/dealerlink/easysync/internal/config"
	"github.com/dealerlink/easysync/internal/events"
	"github.com/dealerlink/easysync/internal/models"
	"github.com/dealerlink/easysync/internal/tokens"
)

// Credentials is a decrypted, ephemeral credential set used for one
// batch of remote calls. It is built by the engines from vault output
// and never persisted.
type Credentials struct {
	DealershipID  string
	Environment   models.Environment
	AccountID     string
	AccountSecret string
}

func (c Credentials) cacheKey() tokens.Key {
	return tokens.Key{
		DealershipID: c.DealershipID,
		Environment:  c.Environment,
		AccountID:    c.AccountID,
	}
}

// errUnauthorized marks an HTTP 401. It is handled by the single
// invalidate-and-reacquire step, outside the backoff policy.
var errUnauthorized = errors.New("unauthorized")

// Client executes authenticated EasyCars calls with retry, backoff and
// token lifecycle handling.
type Client struct {
	http        *http.Client
	testBaseURL string
	prodBaseURL string
	userAgent   string
	maxRetries  int
	retryDelay  time.Duration
	broker      *tokens.Broker
	logger      *events.Logger
}

// NewClient creates a client. The token broker is owned by the client;
// its acquire path is the client's own /RequestToken call.
func NewClient(cfg *config.APIConfig, tokenTTL time.Duration, logger *events.Logger) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		logger.WithError(err).Warn("Failed to configure HTTP/2")
	}

	c := &Client{
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		testBaseURL: cfg.TestBaseURL,
		prodBaseURL: cfg.ProductionBaseURL,
		userAgent:   cfg.UserAgent,
		maxRetries:  cfg.MaxRetries,
		retryDelay:  cfg.RetryDelay,
		logger:      logger.WithField("component", "api_client"),
	}
	c.broker = tokens.NewBroker(c.requestToken, tokenTTL, logger)
	return c
}

func (c *Client) baseURL(env models.Environment) string {
	if env == models.EnvProduction {
		return c.prodBaseURL
	}
	return c.testBaseURL
}

// envelopePtr constrains a response type to the envelope contract.
type envelopePtr[T any] interface {
	*T
	models.Envelope
}

// request describes one remote call.
type request struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
}

// call runs one authenticated request to completion: token, backoff
// retries for transient failures, and a single 401 reauthentication.
func call[T any, PT envelopePtr[T]](ctx context.Context, c *Client, cred Credentials, req request) (*T, error) {
	key := cred.cacheKey()
	token, err := c.broker.GetOrRefresh(ctx, key, cred.AccountSecret)
	if err != nil {
		return nil, err
	}

	var lastErr error
	reauthed := false
	attempt := 0
	for {
		env, err := doEnvelope[T, PT](ctx, c, c.baseURL(cred.Environment), req, token)
		if err == nil {
			return env, nil
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if errors.Is(err, errUnauthorized) {
			if reauthed {
				return nil, &models.AuthError{Op: req.op, Message: "token rejected after reauthentication"}
			}
			reauthed = true
			c.broker.Invalidate(key)
			token, err = c.broker.GetOrRefresh(ctx, key, cred.AccountSecret)
			if err != nil {
				return nil, err
			}
			// The reauth retry is immediate and does not consume a
			// backoff attempt.
			continue
		}

		if !models.IsRetryable(err) {
			return nil, err
		}
		lastErr = err

		attempt++
		if attempt > c.maxRetries {
			return nil, fmt.Errorf("%s: max retries exceeded: %w", req.op, lastErr)
		}

		delay := c.retryDelay << (attempt - 1)
		c.logger.WithFields(map[string]interface{}{
			"op":      req.op,
			"attempt": attempt,
			"delay":   delay.String(),
			"error":   lastErr.Error(),
		}).Debug("Retrying request")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// doEnvelope performs a single HTTP attempt and classifies the result.
func doEnvelope[T any, PT envelopePtr[T]](ctx context.Context, c *Client, baseURL string, req request, token string) (*T, error) {
	endpoint := baseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	var bodyReader io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("%s: marshal payload: %w", req.op, err)
		}
		bodyReader = bytes.NewReader(data)
		c.logPayload(req.op, req.method, endpoint, data)
	} else {
		c.logger.WithFields(map[string]interface{}{
			"op":     req.op,
			"method": req.method,
			"url":    endpoint,
		}).Debug("Sending request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", req.op, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(req.op, ctx, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &models.NetworkError{Op: req.op, Err: fmt.Errorf("read response: %w", err)}
	}

	c.logger.WithFields(map[string]interface{}{
		"op":     req.op,
		"status": resp.StatusCode,
		"size":   len(respBody),
	}).Debug("Received response")

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, errUnauthorized
	case isRetryableStatus(resp.StatusCode):
		return nil, &models.TemporaryError{Op: req.op, Message: fmt.Sprintf("server error %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return nil, &models.FatalError{Op: req.op, Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, respBody)}
	}

	env := PT(new(T))
	if err := json.Unmarshal(respBody, env); err != nil {
		return nil, &models.FatalError{Op: req.op, Message: fmt.Sprintf("malformed response: %v", err)}
	}

	if err := classifyEnvelope(req.op, env); err != nil {
		return nil, err
	}
	return (*T)(env), nil
}

// classifyEnvelope maps the application response codes onto the error
// taxonomy. Endpoints with an operation-level Code succeed only when
// both codes are zero.
func classifyEnvelope(op string, env models.Envelope) error {
	if err := statusError(op, env.OuterCode(), env.Message()); err != nil {
		return err
	}
	return statusError(op, env.InnerCode(), env.Message())
}

func statusError(op string, code int, msg string) error {
	switch models.ClassifyResponseCode(code) {
	case models.RemoteSuccess:
		return nil
	case models.RemoteAuth:
		return &models.AuthError{Op: op, Message: msg}
	case models.RemoteTemporary:
		return &models.TemporaryError{Op: op, Message: msg}
	case models.RemoteValidation:
		return &models.ValidationError{Op: op, Message: msg}
	case models.RemoteFatal:
		return &models.FatalError{Op: op, Message: msg}
	default:
		return &models.UnknownError{Op: op, Code: code, Message: msg}
	}
}

func classifyTransportError(op string, ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &models.TimeoutError{Op: op, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &models.TimeoutError{Op: op, Err: err}
	}
	return &models.NetworkError{Op: op, Err: err}
}

func isRetryableStatus(status int) bool {
	switch status {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// logPayload logs an outbound body with credential-bearing fields
// redacted.
func (c *Client) logPayload(op, method, endpoint string, body []byte) {
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		payload = map[string]interface{}{"size": len(body)}
	}
	c.logger.WithFields(map[string]interface{}{
		"op":     op,
		"method": method,
		"url":    endpoint,
		"body":   events.Redact(payload),
	}).Debug("Sending request")
}
