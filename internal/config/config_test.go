package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("SERPAPI_KEY", "")
	t.Setenv("SERP_API_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://serpapi.com/search.json", cfg.SerpAPI.BaseURL)
	assert.Equal(t, 3, cfg.SerpAPI.Retries)
	assert.InDelta(t, 5.0, cfg.SerpAPI.RateLimit, 1e-9)
	assert.Equal(t, "cascade", cfg.Geocode.Provider)
	assert.Equal(t, 60, cfg.Geocode.CacheTTLMins)
	assert.Equal(t, 6, cfg.Search.PagesPerPoint)
	assert.Equal(t, 100, cfg.Search.MaxResults)
	assert.Equal(t, 2, cfg.Search.BudgetMultiplier)
	assert.Equal(t, 20, cfg.Search.PageSize)
	assert.InDelta(t, 0.4, cfg.Search.SpacingFactor, 1e-9)
	assert.InDelta(t, 1.2, cfg.Search.OvershootFactor, 1e-9)
	assert.InDelta(t, 100, cfg.Search.MinRadius, 1e-9)
	assert.InDelta(t, 50000, cfg.Search.MaxRadius, 1e-9)
	assert.Equal(t, 500, cfg.Resolve.DelayMs)
	assert.Equal(t, []string{"支店", "本店", "店"}, cfg.Resolve.BranchQualifiers)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "no phone", cfg.Output.NoPhoneText)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Empty(t, cfg.SerpAPI.Key)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
serpapi:
  key: file-key
search:
  max_results: 40
  workers: 4
output:
  no_phone_text: "-"
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "file-key", cfg.SerpAPI.Key)
	assert.Equal(t, 40, cfg.Search.MaxResults)
	assert.Equal(t, 4, cfg.Search.Workers)
	assert.Equal(t, "-", cfg.Output.NoPhoneText)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	// Untouched keys keep their defaults
	assert.Equal(t, 6, cfg.Search.PagesPerPoint)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("PHONEFINDER_STORE_DRIVER", "postgres")
	t.Setenv("PHONEFINDER_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("search: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadAPIKeyFallbacks(t *testing.T) {
	t.Run("prefixed env wins", func(t *testing.T) {
		chdirTemp(t)
		t.Setenv("PHONEFINDER_SERPAPI_KEY", "prefixed")
		t.Setenv("SERPAPI_KEY", "bare")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "prefixed", cfg.SerpAPI.Key)
	})

	t.Run("SERPAPI_KEY", func(t *testing.T) {
		chdirTemp(t)
		t.Setenv("SERPAPI_KEY", "bare")
		t.Setenv("SERP_API_KEY", "other")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "bare", cfg.SerpAPI.Key)
	})

	t.Run("SERP_API_KEY", func(t *testing.T) {
		chdirTemp(t)
		t.Setenv("SERPAPI_KEY", "")
		t.Setenv("SERP_API_KEY", "other")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "other", cfg.SerpAPI.Key)
	})
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PHONEFINDER_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.SerpAPI.Key = "serp-key"
	cfg.SerpAPI.Retries = 3
	cfg.Geocode.Provider = "cascade"
	cfg.Search.PagesPerPoint = 6
	cfg.Search.MaxResults = 100
	cfg.Search.MinRadius = 100
	cfg.Search.MaxRadius = 50000
	cfg.Search.SpacingFactor = 0.4
	cfg.Search.OvershootFactor = 1.2
	cfg.Resolve.DelayMs = 500
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "phone-finder.db"
	cfg.Server.Port = 8080
	return cfg
}

func TestValidate_AllModesValid(t *testing.T) {
	cfg := validDefaults()
	for _, mode := range []string{ModeSearch, ModeResolve, ModeGeocode, ModeServe, ModeStore} {
		assert.NoError(t, cfg.Validate(mode), mode)
	}
}

func TestValidateSearch_MissingKey(t *testing.T) {
	cfg := validDefaults()
	cfg.SerpAPI.Key = ""

	err := cfg.Validate(ModeSearch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "serpapi.key is required")
}

func TestValidateGeocode_NoKeyNeeded(t *testing.T) {
	cfg := validDefaults()
	cfg.SerpAPI.Key = ""

	assert.NoError(t, cfg.Validate(ModeGeocode))
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := validDefaults()
	cfg.SerpAPI.Key = ""
	cfg.Search.PagesPerPoint = 0
	cfg.Search.MaxRadius = 10
	cfg.Server.Port = 0

	err := cfg.Validate(ModeServe)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "serpapi.key is required")
	assert.Contains(t, err.Error(), "search.pages_per_point")
	assert.Contains(t, err.Error(), "search.min_radius")
	assert.Contains(t, err.Error(), "server.port")
}

func TestValidateGeocode_GoogleNeedsKey(t *testing.T) {
	cfg := validDefaults()
	cfg.Geocode.Provider = "google"

	err := cfg.Validate(ModeGeocode)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "geocode.google_key")

	cfg.Geocode.GoogleKey = "g-key"
	assert.NoError(t, cfg.Validate(ModeGeocode))
}

func TestValidateGeocode_UnknownProvider(t *testing.T) {
	cfg := validDefaults()
	cfg.Geocode.Provider = "bing"

	err := cfg.Validate(ModeGeocode)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "geocode.provider")
}

func TestValidateStore_Driver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"
	cfg.Store.DatabaseURL = ""

	err := cfg.Validate(ModeStore)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
	assert.Contains(t, err.Error(), "store.database_url is required")
}

func TestValidateStore_CheckedWhenEnabled(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"

	assert.NoError(t, cfg.Validate(ModeResolve))

	cfg.Store.Enabled = true
	err := cfg.Validate(ModeResolve)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
