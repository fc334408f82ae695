// Package predict talks to the external house price prediction service.
package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kartoza/boston-price/internal/contract"
	"github.com/kartoza/boston-price/internal/features"
)

// ErrPredictionFailed covers every way a prediction can fail: transport
// errors, non-2xx statuses, malformed bodies and inputs that cannot be sent.
var ErrPredictionFailed = errors.New("prediction failed")

// ErrCatalogFailed covers failures of the area catalog calls
var ErrCatalogFailed = errors.New("area catalog request failed")

const maxBodyBytes = 1 << 20

// Result is a successful prediction
type Result struct {
	Price float64 `json:"price"`
}

// AreaStats summarises prices for one radial highway index
type AreaStats struct {
	Count  int       `json:"count"`
	Mean   float64   `json:"mean"`
	Median float64   `json:"median"`
	Std    *float64  `json:"std"`
	Sample []float64 `json:"sample"`
}

// Client calls the prediction service. It holds no per-call state and does
// not serialise calls; concurrent Predict calls go out concurrently.
type Client struct {
	mu         sync.RWMutex
	baseURL    string
	httpClient *http.Client
	contract   *contract.Contract
	logger     *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds each request. Zero means no bound beyond the transport.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Transport: c.httpClient.Transport, Timeout: d}
		}
	}
}

// WithContract validates outgoing and incoming bodies against ct
func WithContract(ct *contract.Contract) Option {
	return func(c *Client) { c.contract = ct }
}

// WithLogger sets the logger used for failure details
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for the service at baseURL
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    normalizeBaseURL(baseURL),
		httpClient: &http.Client{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service address in use
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// SetBaseURL points the client at another service. Calls already in
// progress keep the old address.
func (c *Client) SetBaseURL(u string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = normalizeBaseURL(u)
}

// Predict sends the vector to POST /predict and returns the price. Exactly
// one request is made; nothing is retried. Vectors holding NaN or an
// infinity are refused without a request since JSON cannot carry them.
func (c *Client) Predict(ctx context.Context, inputs features.InputVector) (Result, error) {
	if err := inputs.CheckFinite(); err != nil {
		return Result{}, c.fail(ErrPredictionFailed, "predict", err)
	}

	body, err := json.Marshal(inputs)
	if err != nil {
		return Result{}, c.fail(ErrPredictionFailed, "predict", err)
	}
	if c.contract != nil {
		if err := c.contract.ValidateRequest(http.MethodPost, "/predict", body); err != nil {
			return Result{}, c.fail(ErrPredictionFailed, "predict", err)
		}
	}

	respBody, err := c.do(ctx, http.MethodPost, "/predict", "/predict", body)
	if err != nil {
		return Result{}, c.fail(ErrPredictionFailed, "predict", err)
	}

	var payload struct {
		Price *float64 `json:"price"`
	}
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return Result{}, c.fail(ErrPredictionFailed, "predict", fmt.Errorf("decode response: %w", err))
	}
	if payload.Price == nil {
		return Result{}, c.fail(ErrPredictionFailed, "predict", errors.New("response has no price"))
	}
	return Result{Price: *payload.Price}, nil
}

// Areas lists the radial highway indexes known to the service
func (c *Client) Areas(ctx context.Context) ([]int, error) {
	respBody, err := c.do(ctx, http.MethodGet, "/areas", "/areas", nil)
	if err != nil {
		return nil, c.fail(ErrCatalogFailed, "areas", err)
	}
	var payload struct {
		Rads []int `json:"rads"`
	}
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return nil, c.fail(ErrCatalogFailed, "areas", fmt.Errorf("decode response: %w", err))
	}
	return payload.Rads, nil
}

// AreaStats returns price statistics for one radial highway index
func (c *Client) AreaStats(ctx context.Context, rad int) (AreaStats, error) {
	path := "/area/" + strconv.Itoa(rad)
	respBody, err := c.do(ctx, http.MethodGet, path, "/area/{rad}", nil)
	if err != nil {
		return AreaStats{}, c.fail(ErrCatalogFailed, "area stats", err)
	}
	var stats AreaStats
	if err := json.Unmarshal(respBody, &stats); err != nil {
		return AreaStats{}, c.fail(ErrCatalogFailed, "area stats", fmt.Errorf("decode response: %w", err))
	}
	return stats, nil
}

// do performs one request and returns the body of a 2xx response. route is
// the templated path used for contract checks.
func (c *Client) do(ctx context.Context, method, path, route string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL()+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if c.contract != nil {
		if err := c.contract.ValidateResponse(method, route, resp.StatusCode, respBody); err != nil {
			return nil, err
		}
	}
	return respBody, nil
}

func (c *Client) fail(kind error, op string, cause error) error {
	c.logger.Warn("prediction service call failed",
		zap.String("op", op),
		zap.String("endpoint", c.BaseURL()),
		zap.Error(cause))
	return fmt.Errorf("%w: %v", kind, cause)
}

func normalizeBaseURL(u string) string {
	return strings.TrimRight(strings.TrimSpace(u), "/")
}
