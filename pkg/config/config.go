// Package config resolves the runtime configuration once, from the
// process environment and an optional key=value overlay file, into an
// explicit struct. No other component reads ambient process state.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Required configuration keys.
const (
	EnvAPIToken    = "CODACY_API_TOKEN"
	EnvProvider    = "CODACY_ORGANIZATION_PROVIDER"
	EnvUsername    = "CODACY_USERNAME"
	EnvProjectName = "CODACY_PROJECT_NAME"
)

// Optional configuration keys.
const (
	EnvPageLimit   = "CODACY_PAGE_LIMIT"
	EnvMaxPages    = "CODACY_MAX_PAGES"
	EnvFetchBudget = "CODACY_FETCH_BUDGET"
	EnvRedisAddr   = "REDIS_ADDR"
	EnvCacheTTL    = "CODACY_CACHE_TTL"
	EnvLogLevel    = "LOG_LEVEL"
)

// Defaults for optional keys.
const (
	DefaultPageLimit   = 100
	DefaultMaxPages    = 1000
	DefaultFetchBudget = 10 * time.Minute
	DefaultCacheTTL    = 10 * time.Minute
	DefaultLogLevel    = "info"
)

// Config is the resolved configuration bundle handed to every component.
type Config struct {
	// Codacy credentials and repository coordinates.
	APIToken    string
	Provider    string
	Username    string
	ProjectName string

	// Pagination.
	PageLimit   int
	MaxPages    int
	FetchBudget time.Duration

	// Optional Redis page cache ("" disables it).
	RedisAddr string
	CacheTTL  time.Duration

	// Logging.
	LogLevel string
}

// MissingKeyError reports a required key absent from both the environment
// and the overlay file.
type MissingKeyError struct {
	Key string
}

// Error implements the error interface.
func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("environment variable %s is not set", e.Key)
}

// Resolver resolves keys from the environment first, then from an overlay
// file. The overlay never overwrites a key the environment already
// defines, so ambient variables take precedence over file defaults.
type Resolver struct {
	lookup  func(string) (string, bool)
	overlay map[string]string
}

// NewResolver creates a resolver. A nil lookup uses os.LookupEnv.
func NewResolver(lookup func(string) (string, bool)) *Resolver {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &Resolver{
		lookup:  lookup,
		overlay: make(map[string]string),
	}
}

// LoadOverlay reads a key=value overlay file. A missing file is not an
// error. Comment lines starting with # and lines without = are skipped
// silently. The first occurrence of a key wins within the file.
func (r *Resolver) LoadOverlay(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open overlay file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			continue
		}

		if _, exists := r.overlay[key]; !exists {
			r.overlay[key] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read overlay file: %w", err)
	}

	return nil
}

// value resolves one key: environment first (present wins, even if
// empty), then the overlay.
func (r *Resolver) value(key string) string {
	if v, ok := r.lookup(key); ok {
		return v
	}
	return r.overlay[key]
}

// required resolves one key or fails with a MissingKeyError naming it.
func (r *Resolver) required(key string) (string, error) {
	v := r.value(key)
	if v == "" {
		return "", &MissingKeyError{Key: key}
	}
	return v, nil
}

// Resolve produces the validated configuration bundle or the first
// resolution error.
func (r *Resolver) Resolve() (*Config, error) {
	cfg := &Config{
		PageLimit:   DefaultPageLimit,
		MaxPages:    DefaultMaxPages,
		FetchBudget: DefaultFetchBudget,
		CacheTTL:    DefaultCacheTTL,
		LogLevel:    DefaultLogLevel,
	}

	var err error
	if cfg.APIToken, err = r.required(EnvAPIToken); err != nil {
		return nil, err
	}
	if cfg.Provider, err = r.required(EnvProvider); err != nil {
		return nil, err
	}
	if cfg.Username, err = r.required(EnvUsername); err != nil {
		return nil, err
	}
	if cfg.ProjectName, err = r.required(EnvProjectName); err != nil {
		return nil, err
	}

	if v := r.value(EnvPageLimit); v != "" {
		if cfg.PageLimit, err = parsePositiveInt(EnvPageLimit, v); err != nil {
			return nil, err
		}
	}
	if v := r.value(EnvMaxPages); v != "" {
		if cfg.MaxPages, err = parsePositiveInt(EnvMaxPages, v); err != nil {
			return nil, err
		}
	}
	if v := r.value(EnvFetchBudget); v != "" {
		if cfg.FetchBudget, err = parseDuration(EnvFetchBudget, v); err != nil {
			return nil, err
		}
	}
	if v := r.value(EnvCacheTTL); v != "" {
		if cfg.CacheTTL, err = parseDuration(EnvCacheTTL, v); err != nil {
			return nil, err
		}
	}

	cfg.RedisAddr = r.value(EnvRedisAddr)
	if v := r.value(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}

	return cfg, nil
}

func parsePositiveInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, value)
	}
	return n, nil
}

func parseDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, value)
	}
	return d, nil
}
