// Package catalog is the TMDB client: discovery, search, details, watch
// providers and genre lists.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"cinesorte/apperr"
	"cinesorte/config"
	"cinesorte/logging"
)

const (
	defaultTimeout = 15 * time.Second
	defaultPages   = 5
	maxBodyBytes   = 4 << 20

	// breakerTrip is above the failures one bootstrap (2 lists x 5 attempts)
	// or a few failed discoveries can produce, so the breaker only opens on a
	// sustained outage and never stands in for the callers' own retries.
	breakerTrip = 25
	// breakerTimeout is shorter than the bootstrap retry delay.
	breakerTimeout = 2 * time.Second
)

// StatusError is a non-2xx answer from TMDB.
type StatusError struct {
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("tmdb %s: HTTP %d: %s", e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("tmdb %s: HTTP %d", e.Path, e.StatusCode)
}

// Client talks to the TMDB v3 API. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	language   string
	region     string
	pages      int
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]byte]
}

// NewClient creates a TMDB client from cfg.
func NewClient(cfg config.TMDBConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("catalog: TMDB_API_KEY is not set")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("catalog: TMDB base URL is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	pages := cfg.DiscoverPages
	if pages <= 0 {
		pages = defaultPages
	}
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		language:   cfg.Language,
		region:     cfg.Region,
		pages:      pages,
		limiter:    rate.NewLimiter(limit, burst),
		breaker:    newBreaker("tmdb", uint32(pages)),
	}, nil
}

// newBreaker opens after breakerTrip consecutive upstream failures and lets
// halfOpen requests through again after breakerTimeout. Client errors (4xx
// other than 429) and cancellations do not count against TMDB.
func newBreaker(name string, halfOpen uint32) *gobreaker.CircuitBreaker[[]byte] {
	log := logging.With("catalog")
	if halfOpen == 0 {
		halfOpen = 1
	}
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: halfOpen,
		Interval:    time.Minute,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTrip
		},
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			var se *StatusError
			if errors.As(err, &se) {
				return se.StatusCode < 500 && se.StatusCode != http.StatusTooManyRequests
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})
}

// Region returns the watch-provider region used by the client.
func (c *Client) Region() string { return c.region }

// get issues a GET to path and decodes the JSON body into out. Every
// failure is reported as an apperr network error tagged with op.
func (c *Client) get(ctx context.Context, op, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return apperr.Network(op, err)
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.fetch(ctx, path, params)
	})
	if err != nil {
		logging.Ctx(ctx).Debug().Err(err).Str("path", path).Msg("tmdb request failed")
		return apperr.Network(op, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperr.Network(op, fmt.Errorf("decode %s: %w", path, err))
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, path string, params url.Values) ([]byte, error) {
	q := url.Values{}
	for k, vs := range params {
		q[k] = vs
	}
	q.Set("api_key", c.apiKey)
	if c.language != "" && q.Get("language") == "" {
		q.Set("language", c.language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			StatusMessage string `json:"status_message"`
		}
		_ = json.Unmarshal(body, &apiErr)
		return nil, &StatusError{Path: path, StatusCode: resp.StatusCode, Message: apiErr.StatusMessage}
	}
	return body, nil
}
