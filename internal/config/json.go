package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Duration parses JSON values like "15s" or raw nanosecond numbers into a
// time.Duration.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		*d = Duration(parsed)
	default:
		return fmt.Errorf("invalid duration value %v", v)
	}
	return nil
}

// jsonConfig mirrors Config with JSON-friendly duration fields.
type jsonConfig struct {
	Backend struct {
		BaseURL string   `json:"base_url"`
		Timeout Duration `json:"timeout"`
	} `json:"backend,omitempty"`

	Realtime struct {
		URL                   string   `json:"url"`
		MaxReconnectAttempts  int      `json:"max_reconnect_attempts"`
		ReconnectBase         Duration `json:"reconnect_base"`
		ReconnectCap          Duration `json:"reconnect_cap"`
		DegradedRetryInterval Duration `json:"degraded_retry_interval"`
		PingInterval          Duration `json:"ping_interval"`
	} `json:"realtime,omitempty"`

	Sync struct {
		Debounce         Duration `json:"debounce"`
		BreakerThreshold int      `json:"breaker_threshold"`
		BreakerBase      Duration `json:"breaker_base"`
		BreakerCap       Duration `json:"breaker_cap"`
		Interval         Duration `json:"interval"`
	} `json:"sync,omitempty"`

	Storage struct {
		SQLitePath string `json:"sqlite_path"`
	} `json:"storage,omitempty"`
}

func parseJSON(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	defer f.Close()

	var jc jsonConfig
	if err = json.NewDecoder(f).Decode(&jc); err != nil {
		return nil, fmt.Errorf("decoding config file %s: %w", path, err)
	}

	return &Config{
		Backend: Backend{
			BaseURL: jc.Backend.BaseURL,
			Timeout: time.Duration(jc.Backend.Timeout),
		},
		Realtime: Realtime{
			URL:                   jc.Realtime.URL,
			MaxReconnectAttempts:  jc.Realtime.MaxReconnectAttempts,
			ReconnectBase:         time.Duration(jc.Realtime.ReconnectBase),
			ReconnectCap:          time.Duration(jc.Realtime.ReconnectCap),
			DegradedRetryInterval: time.Duration(jc.Realtime.DegradedRetryInterval),
			PingInterval:          time.Duration(jc.Realtime.PingInterval),
		},
		Sync: Sync{
			Debounce:         time.Duration(jc.Sync.Debounce),
			BreakerThreshold: jc.Sync.BreakerThreshold,
			BreakerBase:      time.Duration(jc.Sync.BreakerBase),
			BreakerCap:       time.Duration(jc.Sync.BreakerCap),
			Interval:         time.Duration(jc.Sync.Interval),
		},
		Storage: Storage{
			SQLitePath: jc.Storage.SQLitePath,
		},
	}, nil
}
