// Package catalog implements the Kurso course-catalog API client.
// This package handles all communication with the catalog service,
// including fetching course snapshots and material counts.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/course"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
	"github.com/kurso-hub/kurso-learning-hub/pkg/circuitbreaker"
	"github.com/kurso-hub/kurso-learning-hub/pkg/logger"
	"github.com/kurso-hub/kurso-learning-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the catalog API client.
type ClientConfig struct {
	// BaseURL is the catalog service base URL
	BaseURL string

	// APIKey is the API key for service-to-service authentication
	APIKey string

	// Timeout is the HTTP request timeout
	Timeout time.Duration

	// RateLimiterConfig for API rate limiting
	RateLimiterConfig RateLimiterConfig

	// Logger for structured logging
	Logger *logger.Logger

	// Debug enables debug logging of every request
	Debug bool
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:           baseURL,
		Timeout:           10 * time.Second,
		RateLimiterConfig: DefaultRateLimiterConfig(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the course-catalog API client. It implements course.CatalogReader.
type Client struct {
	config      ClientConfig
	httpClient  *http.Client
	logger      *logger.Logger
	rateLimiter *RateLimiter
	breaker     *circuitbreaker.CircuitBreaker
	retrier     *retry.Retrier
	mapper      *Mapper
}

// compile-time interface check
var _ course.CatalogReader = (*Client)(nil)

// NewClient creates a new catalog API client.
func NewClient(config ClientConfig) *Client {
	log := config.Logger
	if log == nil {
		log = logger.Default()
	}
	log = log.With(logger.Component("catalog_client"))

	breaker := circuitbreaker.CatalogAPIBreaker(func(name string, from, to circuitbreaker.State) {
		log.Warn("circuit breaker state changed",
			logger.String("breaker", name),
			logger.String("from", from.String()),
			logger.String("to", to.String()),
		)
	})

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger:      log,
		rateLimiter: NewRateLimiter(config.RateLimiterConfig),
		breaker:     breaker,
		retrier:     retry.CatalogAPIRetrier(),
		mapper:      NewMapper(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// COURSE OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// GetSnapshot fetches a course with its full material list in author order.
// Returns shared.ErrCourseNotFound if the course does not exist.
func (c *Client) GetSnapshot(ctx context.Context, courseID shared.CourseID) (course.Snapshot, error) {
	path := fmt.Sprintf("/api/v1/courses/%s", url.PathEscape(courseID.String()))

	var response APIResponse[CourseDTO]
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &response); err != nil {
		return course.Snapshot{}, fmt.Errorf("get course %s: %w", courseID, err)
	}

	if !response.Success {
		return course.Snapshot{}, fmt.Errorf("%w: %s", shared.ErrCatalogInvalidResponse, response.Error)
	}

	return c.mapper.SnapshotFromDTO(&response.Data)
}

// GetMaterialCount fetches the current material count of a course without
// transferring the full material list.
// Returns shared.ErrCourseNotFound if the course does not exist.
func (c *Client) GetMaterialCount(ctx context.Context, courseID shared.CourseID) (int, error) {
	path := fmt.Sprintf("/api/v1/courses/%s/material-count", url.PathEscape(courseID.String()))

	var response APIResponse[CourseCountDTO]
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &response); err != nil {
		return 0, fmt.Errorf("get material count %s: %w", courseID, err)
	}

	if !response.Success {
		return 0, fmt.Errorf("%w: %s", shared.ErrCatalogInvalidResponse, response.Error)
	}

	if response.Data.MaterialCount < 0 {
		return 0, fmt.Errorf("%w: negative material count", shared.ErrCatalogInvalidResponse)
	}

	return response.Data.MaterialCount, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// doRequest performs an HTTP request with rate limiting, circuit breaking, and retries.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			if err := c.rateLimiter.Allow(ctx); err != nil {
				var rateLimitErr *RateLimitError
				if errors.As(err, &rateLimitErr) {
					return retry.Retryable(shared.ErrCatalogRateLimited)
				}
				return err
			}

			err := c.doSingleRequest(ctx, method, path, body, result)
			if err == nil {
				return nil
			}

			var rateLimitErr *RateLimitError
			if errors.As(err, &rateLimitErr) {
				c.rateLimiter.RecordRateLimitHit(rateLimitErr.RetryAfter)
				return retry.Retryable(shared.ErrCatalogRateLimited)
			}

			if isTransient(err) {
				return retry.Retryable(err)
			}
			return err
		})
	})
	if err == nil {
		return nil
	}

	if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", shared.ErrCatalogUnavailable, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", shared.ErrCatalogTimeout, err)
	}
	return err
}

// doSingleRequest performs a single HTTP request.
func (c *Client) doSingleRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	fullURL := c.config.BaseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	if c.config.Debug {
		c.logger.Debug("catalog api request",
			logger.String("method", method),
			logger.String("path", path),
		)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", shared.ErrCatalogTimeout, err)
		}
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return shared.ErrCourseNotFound

	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := 10 * time.Second
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if seconds, err := strconv.Atoi(ra); err == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return &RateLimitError{
			RetryAfter: retryAfter,
			Message:    "rate limit exceeded",
		}

	case resp.StatusCode >= 400:
		var apiErr APIErrorDTO
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Message != "" {
			apiErr.StatusCode = resp.StatusCode
			return &apiErr
		}
		return fmt.Errorf("api error: status %d", resp.StatusCode)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrCatalogInvalidResponse, err)
		}
	}

	return nil
}

// isTransient checks if an error is worth retrying.
func isTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, shared.ErrCourseNotFound) {
		return false
	}

	var apiErr *APIErrorDTO
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}

	errStr := err.Error()
	for _, marker := range []string{"timeout", "connection refused", "temporary", "reset", "EOF"} {
		if strings.Contains(errStr, marker) {
			return true
		}
	}
	return false
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH AND STATUS
// ══════════════════════════════════════════════════════════════════════════════

// Available reports whether the circuit breaker currently admits
// requests. Unlike IsHealthy it generates no catalog traffic.
func (c *Client) Available() bool {
	return c.breaker.State() != circuitbreaker.StateOpen
}

// IsHealthy checks if the catalog API is reachable.
func (c *Client) IsHealthy(ctx context.Context) bool {
	var response APIResponse[map[string]interface{}]
	err := c.doSingleRequest(ctx, http.MethodGet, "/health", nil, &response)
	return err == nil && response.Success
}

// ClientStatus contains the current status of the client.
type ClientStatus struct {
	RateLimiter    RateLimiterStatus
	CircuitBreaker circuitbreaker.State
	IsHealthy      bool
}

// Status returns the current status of the client.
func (c *Client) Status(ctx context.Context) ClientStatus {
	return ClientStatus{
		RateLimiter:    c.rateLimiter.Status(),
		CircuitBreaker: c.breaker.State(),
		IsHealthy:      c.IsHealthy(ctx),
	}
}

// Reset resets the rate limiter and circuit breaker.
func (c *Client) Reset() {
	c.rateLimiter.Reset()
	c.breaker.Reset()
}
