// Package checker looks up live seat availability for a course section.
package checker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"seatwatch-backend/config"
)

// ErrSectionNotFound is returned when the term/CRN pair does not exist upstream.
var ErrSectionNotFound = errors.New("section not found")

// Section is the checker's view of a course section.
type Section struct {
	AvailableSeats int
	Title          string
}

// Checker reports current seat availability for a section.
type Checker interface {
	GetSection(ctx context.Context, term, crn int) (Section, error)
}

// HTTPChecker queries the registrar's section endpoint.
type HTTPChecker struct {
	cfg     config.CheckerConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPChecker creates a checker for the configured upstream.
func NewHTTPChecker(cfg config.CheckerConfig) *HTTPChecker {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Printf("Warning: Invalid proxy URL %q: %v. Checker will not use a proxy.", cfg.HTTPProxy, err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RateLimitPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitPerSec), 1)
	}

	return &HTTPChecker{
		cfg: cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		limiter: limiter,
	}
}

// GetSection fetches the seat count and title for a section.
func (c *HTTPChecker) GetSection(ctx context.Context, term, crn int) (Section, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Section{}, fmt.Errorf("rate limiter: %w", err)
	}

	endpoint, err := url.Parse(c.cfg.URL)
	if err != nil {
		return Section{}, fmt.Errorf("invalid checker url: %w", err)
	}
	q := endpoint.Query()
	q.Set("term", strconv.Itoa(term))
	q.Set("crn", strconv.Itoa(crn))
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return Section{}, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range c.cfg.Headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Section{}, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Section{}, fmt.Errorf("term %d crn %d: %w", term, crn, ErrSectionNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return Section{}, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Section{}, fmt.Errorf("failed to read response body: %w", err)
	}

	var apiResp ApiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return Section{}, fmt.Errorf("failed to unmarshal api response: %w", err)
	}

	switch apiResp.Code {
	case 0:
	case codeNotFound:
		return Section{}, fmt.Errorf("term %d crn %d: %w", term, crn, ErrSectionNotFound)
	default:
		return Section{}, fmt.Errorf("API returned non-zero application code: %d", apiResp.Code)
	}

	if apiResp.Data.AvailableSeats < 0 {
		return Section{}, fmt.Errorf("API returned negative seat count: %d", apiResp.Data.AvailableSeats)
	}

	return Section{
		AvailableSeats: apiResp.Data.AvailableSeats,
		Title:          apiResp.Data.Title,
	}, nil
}
