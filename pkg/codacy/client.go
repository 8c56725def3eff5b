// Package codacy provides the Codacy analysis API client used to walk the
// paginated repository issue search endpoint, with retry, rate pacing,
// optional response caching, and error classification.
package codacy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gadwant/codacy-report/pkg/cache"
	"github.com/gadwant/codacy-report/pkg/ratelimit"
)

// Prometheus metrics for issue search operations.
var (
	codacyRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codacy_requests_total",
		Help: "Total issue search requests by status",
	}, []string{"status"})

	codacyRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "codacy_request_duration_seconds",
		Help:    "Issue search request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	})

	codacyErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codacy_errors_total",
		Help: "Total issue search errors by class",
	}, []string{"class"})
)

// DefaultBaseURL is the production Codacy API host.
const DefaultBaseURL = "https://app.codacy.com"

// DefaultPageLimit is the page size requested when none is configured.
const DefaultPageLimit = 100

// Client is the Codacy issue search client.
type Client struct {
	httpClient *http.Client
	cache      *cache.Manager
	pacer      *ratelimit.Pacer
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the Codacy API (default DefaultBaseURL).
	BaseURL string

	// APIToken sent in the api-token header (REQUIRED).
	APIToken string

	// Repository coordinates: provider (gh, gl, bb), organization name and
	// repository name (all REQUIRED).
	Provider     string
	Organization string
	Repository   string

	// PageLimit is the page size passed as the limit query parameter.
	PageLimit int

	// Timeout per HTTP request.
	Timeout time.Duration

	// Retry configuration for retryable failures (429, 5xx, network).
	Retry RetryConfig

	// Cache is an optional page-response cache. Nil disables caching.
	Cache *cache.Manager

	// Pacer is an optional request pacer. Nil disables pacing.
	Pacer *ratelimit.Pacer
}

// DefaultConfig returns a safe default configuration for the given
// repository coordinates.
func DefaultConfig(apiToken, provider, organization, repository string) Config {
	return Config{
		BaseURL:      DefaultBaseURL,
		APIToken:     apiToken,
		Provider:     provider,
		Organization: organization,
		Repository:   repository,
		PageLimit:    DefaultPageLimit,
		Timeout:      30 * time.Second,
		Retry:        DefaultRetryConfig(),
	}
}

// New creates a new Codacy client.
func New(cfg Config) (*Client, error) {
	if cfg.APIToken == "" {
		return nil, fmt.Errorf("api token is required")
	}
	if cfg.Provider == "" {
		return nil, fmt.Errorf("provider is required")
	}
	if cfg.Organization == "" {
		return nil, fmt.Errorf("organization is required")
	}
	if cfg.Repository == "" {
		return nil, fmt.Errorf("repository is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = DefaultPageLimit
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	logger := log.With().Str("component", "codacy-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cache:  cfg.Cache,
		pacer:  cfg.Pacer,
		config: cfg,
		logger: logger,
	}, nil
}

// SearchIssues fetches one page of the repository issue search. The cursor
// is the opaque token from the previous page; empty requests the first
// page. The request body is empty JSON, meaning no server-side filter.
func (c *Client) SearchIssues(ctx context.Context, cursor string) (*Page, error) {
	startTime := time.Now()
	defer func() {
		codacyRequestDuration.Observe(time.Since(startTime).Seconds())
	}()

	key := cache.Key{
		Provider:     c.config.Provider,
		Organization: c.config.Organization,
		Repository:   c.config.Repository,
		Limit:        c.config.PageLimit,
		Cursor:       cursor,
	}

	if c.cache != nil {
		entry, err := c.cache.Get(ctx, key)
		if err != nil && err != cache.ErrCacheMiss {
			c.logger.Warn().Err(err).Msg("Cache get error")
		}
		if entry != nil {
			page, err := decodePage(entry.Data)
			if err == nil {
				c.logger.Debug().
					Str("cursor", cursor).
					Msg("Serving page from cache")
				return page, nil
			}
			c.logger.Warn().Err(err).Msg("Discarding undecodable cache entry")
		}
	}

	var body []byte
	retryErr := retryWithBackoff(ctx, c.config.Retry, c.logger, func() error {
		// The pacer gates every attempt, so a Retry-After recorded on a
		// 429 holds off the retry itself, not just the next page.
		if c.pacer != nil {
			if err := c.pacer.Wait(ctx); err != nil {
				return err
			}
		}

		data, err := c.fetchOnce(ctx, cursor)
		if err != nil {
			return err
		}
		body = data
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}

	page, err := decodePage(body)
	if err != nil {
		return nil, fmt.Errorf("decode issue search response: %w", err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, body); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache page")
		}
	}

	c.logger.Debug().
		Str("cursor", cursor).
		Int("issues", len(page.Issues)).
		Bool("has_next", page.NextCursor != "").
		Msg("Fetched issue page")

	return page, nil
}

// fetchOnce performs a single search request and returns the response body.
func (c *Client) fetchOnce(ctx context.Context, cursor string) ([]byte, error) {
	req, err := c.newSearchRequest(ctx, cursor)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		codacyErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		codacyRequestsTotal.WithLabelValues("network_error").Inc()
		c.logger.Error().Err(err).Msg("Issue search request failed")
		return nil, fmt.Errorf("issue search request: %w", err)
	}
	defer resp.Body.Close()

	if c.pacer != nil {
		c.pacer.ObserveResponse(resp.StatusCode, resp.Header)
	}

	// Body read is best-effort for error responses: the diagnostic must
	// tolerate an absent body.
	data, readErr := io.ReadAll(resp.Body)
	codacyRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errClass := classifyStatus(resp.StatusCode)
		codacyErrorsTotal.WithLabelValues(string(errClass)).Inc()

		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("Issue search error")

		return nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    resp.Status,
			Body:       strings.TrimSpace(string(data)),
		}
	}

	if readErr != nil {
		codacyErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, fmt.Errorf("read issue search response: %w", readErr)
	}

	return data, nil
}

// newSearchRequest builds one POST to the fixed issue search endpoint.
func (c *Client) newSearchRequest(ctx context.Context, cursor string) (*http.Request, error) {
	endpoint := fmt.Sprintf("%s/api/v3/analysis/organizations/%s/%s/repositories/%s/issues/search",
		c.config.BaseURL,
		url.PathEscape(c.config.Provider),
		url.PathEscape(c.config.Organization),
		url.PathEscape(c.config.Repository))

	query := url.Values{}
	query.Set("limit", strconv.Itoa(c.config.PageLimit))
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		endpoint+"?"+query.Encode(), bytes.NewReader([]byte("{}")))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("api-token", c.config.APIToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return req, nil
}

// searchResponse is the wire shape of one issue search page.
type searchResponse struct {
	Data       []Issue `json:"data"`
	Pagination struct {
		Cursor string `json:"cursor"`
	} `json:"pagination"`
}

// decodePage decodes a search response body into a Page.
func decodePage(data []byte) (*Page, error) {
	var resp searchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return &Page{
		Issues:     resp.Data,
		NextCursor: resp.Pagination.Cursor,
	}, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
