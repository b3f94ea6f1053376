package config

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	SerpAPI SerpAPIConfig `yaml:"serpapi" mapstructure:"serpapi"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Search  SearchConfig  `yaml:"search" mapstructure:"search"`
	Resolve ResolveConfig `yaml:"resolve" mapstructure:"resolve"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// SerpAPIConfig holds SerpApi credentials and client tuning.
type SerpAPIConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Retries     int     `yaml:"retries" mapstructure:"retries"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	Language    string  `yaml:"language" mapstructure:"language"`
}

// GeocodeConfig configures place-name and address geocoding.
type GeocodeConfig struct {
	// Provider is "nominatim", "google", or "cascade" (nominatim then google).
	Provider          string `yaml:"provider" mapstructure:"provider"`
	UserAgent         string `yaml:"user_agent" mapstructure:"user_agent"`
	NominatimURL      string `yaml:"nominatim_url" mapstructure:"nominatim_url"`
	GoogleKey         string `yaml:"google_key" mapstructure:"google_key"`
	TimeoutSecs       int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	FilterTimeoutSecs int    `yaml:"filter_timeout_secs" mapstructure:"filter_timeout_secs"`
	CacheTTLMins      int    `yaml:"cache_ttl_mins" mapstructure:"cache_ttl_mins"`
	CacheMaxEntries   int    `yaml:"cache_max_entries" mapstructure:"cache_max_entries"`
}

// SearchConfig configures area searches.
type SearchConfig struct {
	PagesPerPoint    int     `yaml:"pages_per_point" mapstructure:"pages_per_point"`
	MaxResults       int     `yaml:"max_results" mapstructure:"max_results"`
	BudgetMultiplier int     `yaml:"budget_multiplier" mapstructure:"budget_multiplier"`
	PageSize         int     `yaml:"page_size" mapstructure:"page_size"`
	SpacingFactor    float64 `yaml:"spacing_factor" mapstructure:"spacing_factor"`
	OvershootFactor  float64 `yaml:"overshoot_factor" mapstructure:"overshoot_factor"`
	MinRadius        float64 `yaml:"min_radius" mapstructure:"min_radius"`
	MaxRadius        float64 `yaml:"max_radius" mapstructure:"max_radius"`
	Workers          int     `yaml:"workers" mapstructure:"workers"`
}

// ResolveConfig configures name resolution.
type ResolveConfig struct {
	DelayMs               int      `yaml:"delay_ms" mapstructure:"delay_ms"`
	Workers               int      `yaml:"workers" mapstructure:"workers"`
	FallbackResults       int      `yaml:"fallback_results" mapstructure:"fallback_results"`
	FallbackQueryTemplate string   `yaml:"fallback_query_template" mapstructure:"fallback_query_template"`
	BranchQualifiers      []string `yaml:"branch_qualifiers" mapstructure:"branch_qualifiers"`
}

// StoreConfig configures the run-history database.
type StoreConfig struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// OutputConfig configures result rendering.
type OutputConfig struct {
	NoPhoneText string `yaml:"no_phone_text" mapstructure:"no_phone_text"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// legacyKeyEnv lists bare environment variables also accepted for the SerpApi key.
var legacyKeyEnv = []string{"SERPAPI_KEY", "SERP_API_KEY"}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PHONEFINDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("serpapi.key", "")
	v.SetDefault("serpapi.base_url", "https://serpapi.com/search.json")
	v.SetDefault("serpapi.timeout_secs", 30)
	v.SetDefault("serpapi.retries", 3)
	v.SetDefault("serpapi.rate_limit", 5)
	v.SetDefault("serpapi.language", "")
	v.SetDefault("geocode.provider", "cascade")
	v.SetDefault("geocode.user_agent", "phone-finder/1.0")
	v.SetDefault("geocode.nominatim_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.google_key", "")
	v.SetDefault("geocode.timeout_secs", 10)
	v.SetDefault("geocode.filter_timeout_secs", 5)
	v.SetDefault("geocode.cache_ttl_mins", 60)
	v.SetDefault("geocode.cache_max_entries", 1000)
	v.SetDefault("search.pages_per_point", 6)
	v.SetDefault("search.max_results", 100)
	v.SetDefault("search.budget_multiplier", 2)
	v.SetDefault("search.page_size", 20)
	v.SetDefault("search.spacing_factor", 0.4)
	v.SetDefault("search.overshoot_factor", 1.2)
	v.SetDefault("search.min_radius", 100)
	v.SetDefault("search.max_radius", 50000)
	v.SetDefault("search.workers", 1)
	v.SetDefault("resolve.delay_ms", 500)
	v.SetDefault("resolve.workers", 1)
	v.SetDefault("resolve.fallback_results", 10)
	v.SetDefault("resolve.fallback_query_template", "%s official phone number")
	v.SetDefault("resolve.branch_qualifiers", []string{"支店", "本店", "店"})
	v.SetDefault("store.enabled", false)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "phone-finder.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("output.no_phone_text", "no phone")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if cfg.SerpAPI.Key == "" {
		for _, name := range legacyKeyEnv {
			if k := os.Getenv(name); k != "" {
				cfg.SerpAPI.Key = k
				break
			}
		}
	}

	return &cfg, nil
}

// Validation modes, one per command family.
const (
	ModeSearch  = "search"
	ModeResolve = "resolve"
	ModeGeocode = "geocode"
	ModeServe   = "serve"
	ModeStore   = "store"
)

// Validate checks that everything mode needs is configured. All problems
// are reported together.
func (c *Config) Validate(mode string) error {
	switch mode {
	case ModeSearch, ModeResolve, ModeGeocode, ModeServe, ModeStore:
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	var problems []string
	needKey := mode == ModeSearch || mode == ModeResolve || mode == ModeServe

	if needKey && c.SerpAPI.Key == "" {
		problems = append(problems, "serpapi.key is required (or set SERPAPI_KEY)")
	}
	if needKey && c.SerpAPI.Retries < 0 {
		problems = append(problems, "serpapi.retries must not be negative")
	}

	switch c.Geocode.Provider {
	case "nominatim", "cascade":
	case "google":
		if c.Geocode.GoogleKey == "" {
			problems = append(problems, "geocode.google_key is required for the google provider")
		}
	default:
		problems = append(problems, "geocode.provider must be nominatim, google, or cascade")
	}

	if mode == ModeSearch || mode == ModeServe {
		s := c.Search
		if s.PagesPerPoint < 1 {
			problems = append(problems, "search.pages_per_point must be at least 1")
		}
		if s.MaxResults < 1 {
			problems = append(problems, "search.max_results must be at least 1")
		}
		if s.MinRadius <= 0 || s.MaxRadius < s.MinRadius {
			problems = append(problems, "search.min_radius and search.max_radius must form a positive range")
		}
		if s.SpacingFactor < 0 || s.OvershootFactor < 0 {
			problems = append(problems, "search.spacing_factor and search.overshoot_factor must not be negative")
		}
	}

	if (mode == ModeResolve || mode == ModeServe) && c.Resolve.DelayMs < 0 {
		problems = append(problems, "resolve.delay_ms must not be negative")
	}

	if mode == ModeServe && (c.Server.Port < 1 || c.Server.Port > 65535) {
		problems = append(problems, "server.port must be between 1 and 65535")
	}

	if mode == ModeStore || c.Store.Enabled {
		switch c.Store.Driver {
		case "sqlite", "postgres":
		default:
			problems = append(problems, "store.driver must be sqlite or postgres")
		}
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid for %s: %s", mode, strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
