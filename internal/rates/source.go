// Package rates fetches the current exchange rate table from the configured
// rate endpoint.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"costs/internal/core"
	"costs/internal/currency"
)

const maxBodyBytes = 1 << 20

// Source returns the current rate table.
type Source interface {
	Fetch(ctx context.Context) (currency.RateTable, error)
}

// URLProvider resolves the rate endpoint at fetch time, so a changed
// preference applies to the next report without rebuilding the source.
type URLProvider interface {
	RatesURL() string
}

// StaticURL is a URLProvider that always returns itself.
type StaticURL string

func (u StaticURL) RatesURL() string { return string(u) }

// DefaultTable is the table served by the built-in rate endpoint.
func DefaultTable() currency.RateTable {
	return currency.RateTable{
		core.USD:  1,
		core.GBP:  0.6,
		core.EURO: 0.7,
		core.ILS:  3.4,
	}
}

// HTTPSource fetches the rate table with a GET request.
type HTTPSource struct {
	urls   URLProvider
	client *http.Client
}

// NewHTTPSource creates a source reading its endpoint from urls.
func NewHTTPSource(urls URLProvider, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		urls: urls,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// URL returns the endpoint the next fetch will use.
func (s *HTTPSource) URL() string {
	return s.urls.RatesURL()
}

// Fetch performs one GET request; there is no retry. Network failures and
// non-2xx responses are fetch failures, a body that is not a JSON object of
// numbers is a parse failure. Both are reported as core.ErrRatesUnavailable.
func (s *HTTPSource) Fetch(ctx context.Context) (currency.RateTable, error) {
	url := s.URL()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request for %s: %w", core.ErrRatesUnavailable, url, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %w", core.ErrRatesUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status code %d from %s", core.ErrRatesUnavailable, resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", core.ErrRatesUnavailable, err)
	}

	table, err := parseTable(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrRatesUnavailable, err)
	}

	if err := table.Validate(); err != nil {
		// conversion surfaces the precise error for the codes actually used
		slog.WarnContext(ctx, "Rate table is incomplete", "url", url, "error", err)
	}
	slog.DebugContext(ctx, "Fetched exchange rates", "url", url, "codes", len(table))

	return table, nil
}

func parseTable(body []byte) (currency.RateTable, error) {
	var table currency.RateTable
	if err := json.Unmarshal(body, &table); err != nil {
		return nil, fmt.Errorf("parse rate table: %w", err)
	}
	if table == nil {
		return nil, fmt.Errorf("parse rate table: not a JSON object")
	}
	return table, nil
}
