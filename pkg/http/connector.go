package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// maxResponseBytes caps how much of a service response is read into memory.
const maxResponseBytes = 1 << 20

// Connector is a JSON client bound to one service base URL.
type Connector struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

type ConnectorConfig struct {
	BaseURL string
	Logger  *zap.Logger
}

func NewConnector(config *ConnectorConfig, options ...HttpOpts) *Connector {
	return &Connector{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: newClient(options...),
		logger:     config.Logger,
	}
}

type RequestOpt func(*requestConfig)

type requestConfig struct {
	headers http.Header
}

// WithHeader sets a header on a single request, overriding connector-level defaults.
func WithHeader(key, value string) RequestOpt {
	return func(c *requestConfig) {
		c.headers.Set(key, value)
	}
}

// DoRequest sends reqBody as JSON to endpoint and decodes a 2xx response into respBody.
// Non-2xx answers return *HTTPError; transport failures return *NetworkError.
func (c *Connector) DoRequest(ctx context.Context, method, endpoint string, reqBody, respBody any, opts ...RequestOpt) error {
	cfg := &requestConfig{headers: http.Header{}}
	for _, opt := range opts {
		opt(cfg)
	}

	req, err := c.newRequest(ctx, method, endpoint, reqBody)
	if err != nil {
		return err
	}
	for key, values := range cfg.headers {
		req.Header[key] = values
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &NetworkError{Err: fmt.Errorf("read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	if respBody == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, respBody); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Connector) newRequest(ctx context.Context, method, endpoint string, reqBody any) (*http.Request, error) {
	var body io.Reader
	if reqBody != nil {
		payload, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(payload)
		ctx = context.WithValue(ctx, payloadContextKey{}, payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// HTTPError is a non-2xx response from the remote service.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// HasStatus reports whether err is an HTTPError with one of the given status codes.
func HasStatus(err error, codes ...int) bool {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}
	for _, code := range codes {
		if httpErr.StatusCode == code {
			return true
		}
	}
	return false
}

// NetworkError wraps connection-level failures: dial, TLS, timeouts.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
