// Package config assembles the engine configuration by merging environment
// variables and an optional JSON file, in that order of precedence, then
// validating the result.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config is the top-level configuration container for the fieldsync engine.
//
// Struct tags:
//   - envPrefix — prefix applied to nested env lookups (caarlos0/env).
//   - env       — direct environment variable name for scalar fields.
type Config struct {
	// Backend holds the remote API connection settings.
	Backend Backend `envPrefix:"BACKEND_" json:"backend"`

	// Realtime holds the push-subscription transport settings.
	Realtime Realtime `envPrefix:"REALTIME_" json:"realtime"`

	// Sync holds debounce, circuit breaker and periodic pass settings.
	Sync Sync `envPrefix:"SYNC_" json:"sync"`

	// Storage holds local store settings.
	Storage Storage `envPrefix:"STORAGE_" json:"storage"`

	// JSONFilePath is the optional path to a JSON configuration file used to
	// fill in values the environment left unset.
	JSONFilePath string `env:"CONFIG" json:"-"`
}

type Backend struct {
	// BaseURL is the root of the backend REST API.
	BaseURL string `env:"BASE_URL" json:"base_url"`

	// Timeout bounds every push/pull request.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"15s" json:"timeout"`
}

type Realtime struct {
	// URL is the websocket endpoint for the change-event subscription.
	URL string `env:"URL" json:"url"`

	// MaxReconnectAttempts bounds the fast reconnect loop before the
	// manager degrades.
	MaxReconnectAttempts int `env:"MAX_RECONNECT_ATTEMPTS" envDefault:"5" json:"max_reconnect_attempts"`

	// ReconnectBase is the first reconnect backoff step; subsequent steps
	// double up to ReconnectCap.
	ReconnectBase time.Duration `env:"RECONNECT_BASE" envDefault:"1s" json:"reconnect_base"`
	ReconnectCap  time.Duration `env:"RECONNECT_CAP" envDefault:"30s" json:"reconnect_cap"`

	// DegradedRetryInterval is the low-frequency retry tick while degraded.
	DegradedRetryInterval time.Duration `env:"DEGRADED_RETRY_INTERVAL" envDefault:"60s" json:"degraded_retry_interval"`

	// PingInterval keeps the websocket alive; must be shorter than the
	// server's read deadline.
	PingInterval time.Duration `env:"PING_INTERVAL" envDefault:"25s" json:"ping_interval"`
}

type Sync struct {
	// Debounce coalesces RequestSync calls arriving within the window into
	// a single pass.
	Debounce time.Duration `env:"DEBOUNCE" envDefault:"500ms" json:"debounce"`

	// BreakerThreshold is the number of consecutive pass failures after
	// which the circuit breaker opens.
	BreakerThreshold int `env:"BREAKER_THRESHOLD" envDefault:"3" json:"breaker_threshold"`

	// BreakerBase is the first backoff window; it doubles per additional
	// failure up to BreakerCap.
	BreakerBase time.Duration `env:"BREAKER_BASE" envDefault:"5s" json:"breaker_base"`
	BreakerCap  time.Duration `env:"BREAKER_CAP" envDefault:"4m" json:"breaker_cap"`

	// Interval, when positive, runs a periodic background pass in addition
	// to debounced requests.
	Interval time.Duration `env:"INTERVAL" json:"interval"`
}

type Storage struct {
	// SQLitePath is the local store database file. ":memory:" is accepted
	// for tests.
	SQLitePath string `env:"SQLITE_PATH" envDefault:"fieldsync.db" json:"sqlite_path"`
}

var (
	ErrNoBackendURL     = errors.New("backend base url is required")
	ErrBadBreakerWindow = errors.New("breaker base must not exceed breaker cap")
	ErrBadReconnect     = errors.New("reconnect base must not exceed reconnect cap")
)

func (c *Config) validate() error {
	if c.Backend.BaseURL == "" {
		return ErrNoBackendURL
	}
	if c.Sync.BreakerThreshold <= 0 {
		return fmt.Errorf("breaker threshold must be positive, got %d", c.Sync.BreakerThreshold)
	}
	if c.Sync.BreakerBase > c.Sync.BreakerCap {
		return ErrBadBreakerWindow
	}
	if c.Realtime.ReconnectBase > c.Realtime.ReconnectCap {
		return ErrBadReconnect
	}
	return nil
}
