// Package prefs persists user preferences outside the cost database. The only
// preference today is the exchange rate endpoint.
package prefs

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"costs/internal/core"
)

const keyRatesURL = "rates.url"

// Store is a toml-file backed preference store.
type Store struct {
	mu         sync.Mutex
	v          *viper.Viper
	path       string
	defaultURL string
}

// Open loads preferences from path. A missing file is an empty store.
func Open(path, defaultURL string) (*Store, error) {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetConfigFile(path)
	v.SetDefault(keyRatesURL, "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read preferences %s: %w", path, err)
		}
	}

	return &Store{v: v, path: path, defaultURL: defaultURL}, nil
}

// RatesURL returns the stored rate endpoint, or the default when none is set.
func (s *Store) RatesURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u := strings.TrimSpace(s.v.GetString(keyRatesURL)); u != "" {
		return u
	}
	return s.defaultURL
}

// IsDefault reports whether no custom rate endpoint is stored.
func (s *Store) IsDefault() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.TrimSpace(s.v.GetString(keyRatesURL)) == ""
}

// SetRatesURL stores a custom rate endpoint. An empty value clears it.
func (s *Store) SetRatesURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw != "" {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: rates url %q must be an absolute http(s) url", core.ErrInvalidInput, raw)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.v.GetString(keyRatesURL)
	s.v.Set(keyRatesURL, raw)
	if err := s.save(); err != nil {
		s.v.Set(keyRatesURL, previous)
		return err
	}
	return nil
}

// ClearRatesURL removes the custom endpoint so the default applies again.
func (s *Store) ClearRatesURL() error {
	return s.SetRatesURL("")
}

func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir preferences dir: %w", err)
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	return nil
}
