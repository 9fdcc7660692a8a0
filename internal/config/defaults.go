package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/imamik/k8stack/internal/util/retry"
)

// Defaults holds process-wide settings that the stack file may override.
type Defaults struct {
	CacheDir     string
	FetchTimeout time.Duration
	Concurrency  int
	// ApplyRetries bounds retries of a node apply in the SSA engine.
	ApplyRetries int
	// ApplyRetryDelay is the first backoff step, doubling up to
	// ApplyRetryMaxDelay.
	ApplyRetryDelay    time.Duration
	ApplyRetryMaxDelay time.Duration
	// ReadyTimeout bounds waits for sub-resource readiness.
	ReadyTimeout time.Duration
}

// LoadDefaults reads defaults from the environment.
//
// Environment Variables:
//   - K8STACK_CACHE_DIR (default: $XDG_CACHE_HOME/k8stack)
//   - K8STACK_FETCH_TIMEOUT (default: 5m)
//   - K8STACK_CONCURRENCY (default: 4)
//   - K8STACK_APPLY_RETRIES (default: 5)
//   - K8STACK_APPLY_RETRY_DELAY (default: 1s)
//   - K8STACK_APPLY_RETRY_MAX_DELAY (default: 30s)
//   - K8STACK_READY_TIMEOUT (default: 5m)
func LoadDefaults() Defaults {
	return Defaults{
		CacheDir:     parseString("K8STACK_CACHE_DIR", defaultCacheDir()),
		FetchTimeout: parseDuration("K8STACK_FETCH_TIMEOUT", 5*time.Minute),
		Concurrency:  parseInt("K8STACK_CONCURRENCY", 4),
		ApplyRetries: parseInt("K8STACK_APPLY_RETRIES", 5),
		ReadyTimeout: parseDuration("K8STACK_READY_TIMEOUT", 5*time.Minute),

		ApplyRetryDelay:    parseDuration("K8STACK_APPLY_RETRY_DELAY", time.Second),
		ApplyRetryMaxDelay: parseDuration("K8STACK_APPLY_RETRY_MAX_DELAY", 30*time.Second),
	}
}

// ApplyRetry returns the backoff the SSA engine uses around node applies.
func (d Defaults) ApplyRetry() []retry.Option {
	opts := []retry.Option{retry.WithMaxRetries(d.ApplyRetries)}
	if d.ApplyRetryDelay > 0 {
		opts = append(opts, retry.WithInitialDelay(d.ApplyRetryDelay))
	}
	if d.ApplyRetryMaxDelay > 0 {
		opts = append(opts, retry.WithMaxDelay(d.ApplyRetryMaxDelay))
	}
	return opts
}

// Merge applies the stack's overrides on top of d.
func (d Defaults) Merge(s *Stack) (Defaults, error) {
	if s == nil {
		return d, nil
	}
	if s.CacheDir != "" {
		d.CacheDir = s.Path(s.CacheDir)
	}
	timeout, err := s.Timeout(d.FetchTimeout)
	if err != nil {
		return d, err
	}
	d.FetchTimeout = timeout
	if s.Concurrency > 0 {
		d.Concurrency = s.Concurrency
	}
	return d, nil
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "k8stack")
	}
	return filepath.Join(dir, "k8stack")
}

func parseString(envVar, defaultVal string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return defaultVal
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i <= 0 {
		return defaultVal
	}
	return i
}
