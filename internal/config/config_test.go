package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_EnvWithDefaults(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "https://api.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.Backend.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Sync.Debounce)
	assert.Equal(t, 3, cfg.Sync.BreakerThreshold)
	assert.Equal(t, 5*time.Second, cfg.Sync.BreakerBase)
	assert.Equal(t, 4*time.Minute, cfg.Sync.BreakerCap)
	assert.Equal(t, 5, cfg.Realtime.MaxReconnectAttempts)
	assert.Equal(t, time.Second, cfg.Realtime.ReconnectBase)
	assert.Equal(t, 30*time.Second, cfg.Realtime.ReconnectCap)
	assert.Equal(t, "fieldsync.db", cfg.Storage.SQLitePath)
	assert.Zero(t, cfg.Sync.Interval)
}

func TestLoad_JSONFillsWhatEnvLeftUnset(t *testing.T) {
	path := writeConfigFile(t, `{
		"backend": {"base_url": "https://json.example.com"},
		"realtime": {"url": "wss://json.example.com/ws"},
		"sync": {"interval": "1m"}
	}`)
	t.Setenv("CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://json.example.com", cfg.Backend.BaseURL)
	assert.Equal(t, "wss://json.example.com/ws", cfg.Realtime.URL)
	assert.Equal(t, time.Minute, cfg.Sync.Interval)
}

func TestLoad_EnvWinsOverJSON(t *testing.T) {
	path := writeConfigFile(t, `{"backend": {"base_url": "https://json.example.com"}}`)
	t.Setenv("CONFIG", path)
	t.Setenv("BACKEND_BASE_URL", "https://env.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.Backend.BaseURL)
}

func TestLoad_RequiresBackendURL(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "")

	_, err := Load()
	require.ErrorIs(t, err, ErrNoBackendURL)
}

func TestLoad_RejectsInvertedBreakerWindow(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "https://api.example.com")
	t.Setenv("SYNC_BREAKER_BASE", "10m")

	_, err := Load()
	require.ErrorIs(t, err, ErrBadBreakerWindow)
}

func TestLoad_RejectsInvertedReconnectWindow(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "https://api.example.com")
	t.Setenv("REALTIME_RECONNECT_BASE", "5m")

	_, err := Load()
	require.ErrorIs(t, err, ErrBadReconnect)
}

func TestLoad_UnreadableJSONFile(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "https://api.example.com")
	t.Setenv("CONFIG", filepath.Join(t.TempDir(), "missing.json"))

	_, err := Load()
	require.Error(t, err)
}

func TestDuration_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{"duration string", `"1m30s"`, 90 * time.Second, false},
		{"raw nanoseconds", `1500000000`, 1500 * time.Millisecond, false},
		{"garbage string", `"soon"`, 0, true},
		{"wrong type", `true`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalJSON([]byte(tt.raw))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, time.Duration(d))
		})
	}
}
