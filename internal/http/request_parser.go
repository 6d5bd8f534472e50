package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"costs/internal/core"
)

const maxBodyBytes = 64 << 10

// errBadRequest marks malformed requests, as opposed to well-formed requests
// carrying invalid values.
var errBadRequest = errors.New("bad request")

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams extracts year and month from query parameters, using the
// month of now for missing values. Non-numeric values are rejected; range
// checks are left to the service.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	params := MonthParams{
		Year:  now.Year(),
		Month: int(now.Month()),
	}

	var err error
	if params.Year, err = intParam(query, "year", params.Year); err != nil {
		return MonthParams{}, err
	}
	if params.Month, err = intParam(query, "month", params.Month); err != nil {
		return MonthParams{}, err
	}
	return params, nil
}

// ParseYearParam extracts the year, defaulting to the year of now.
func ParseYearParam(query url.Values, now time.Time) (int, error) {
	return intParam(query, "year", now.Year())
}

// ParseCurrencyParam returns the upper-cased target currency, USD when absent.
func ParseCurrencyParam(query url.Values) string {
	if v := strings.TrimSpace(query.Get("currency")); v != "" {
		return strings.ToUpper(v)
	}
	return core.USD
}

func intParam(query url.Values, key string, def int) (int, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number, got %q", errBadRequest, key, v)
	}
	return i, nil
}

// costRequest is the body of POST /costs.
type costRequest struct {
	Sum         float64 `json:"sum"`
	Currency    string  `json:"currency"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
}

func (c costRequest) toNewCost() core.NewCost {
	return core.NewCost{
		Sum:         c.Sum,
		Currency:    strings.ToUpper(strings.TrimSpace(c.Currency)),
		Category:    sanitizeInput(c.Category),
		Description: sanitizeInput(c.Description),
	}
}

// ratesURLRequest is the body of PUT /settings/rates-url.
type ratesURLRequest struct {
	URL string `json:"url"`
}

// decodeJSON reads a single JSON object into dst. Unknown fields, trailing
// data and oversized bodies are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: body must contain a single JSON object", errBadRequest)
	}
	return nil
}

// sanitizeInput drops control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
