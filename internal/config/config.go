// Package config provides configuration loading for the harvester service.
//
// Configuration is resolved from three layers, highest precedence first:
// runtime overrides passed to Load, HARVESTER_* environment variables, and
// built-in defaults. An optional harvester.yaml file sits between the env
// layer and the defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config is the full service configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	NCBI    NCBIConfig    `mapstructure:"ncbi"`
	Harvest HarvestConfig `mapstructure:"harvest"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig configures the HTTP API listener.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// NCBIConfig configures the E-utilities client.
type NCBIConfig struct {
	// BaseURL is the E-utilities endpoint root.
	BaseURL string `mapstructure:"base_url"`

	// Tool identifies this client to NCBI on every request.
	Tool string `mapstructure:"tool"`

	// Email is the contact address NCBI asks clients to send.
	Email string `mapstructure:"email"`

	// APIKey raises the permitted request rate when set.
	APIKey string `mapstructure:"api_key"`

	// RateLimit is the requests-per-second budget. Zero means derive
	// from APIKey (10 with a key, 3 without).
	RateLimit float64 `mapstructure:"rate_limit"`

	MaxRetries     int           `mapstructure:"max_retries"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
	RetryMaxDelay  time.Duration `mapstructure:"retry_max_delay"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// HarvestConfig configures pipeline behavior.
type HarvestConfig struct {
	Concurrency  int `mapstructure:"concurrency"`
	BatchSize    int `mapstructure:"batch_size"`
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level is the minimum level emitted (debug, info, warn, error).
	Level string `mapstructure:"level"`

	// Profile selects the output encoding: "structured" for JSON,
	// "console" for human-readable.
	Profile string `mapstructure:"profile"`
}

// EnvPrefix is the prefix for environment variable overrides,
// e.g. HARVESTER_SERVER_PORT.
const EnvPrefix = "HARVESTER"

var (
	configMu  sync.RWMutex
	appConfig *Config
)

// setDefaults registers the built-in defaults on v.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("ncbi.base_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/")
	v.SetDefault("ncbi.tool", "ncbi-metadata-harvester")
	v.SetDefault("ncbi.email", "")
	v.SetDefault("ncbi.api_key", "")
	v.SetDefault("ncbi.rate_limit", 0.0)
	v.SetDefault("ncbi.max_retries", 3)
	v.SetDefault("ncbi.retry_base_delay", "500ms")
	v.SetDefault("ncbi.retry_max_delay", "8s")
	v.SetDefault("ncbi.request_timeout", "30s")

	v.SetDefault("harvest.concurrency", 6)
	v.SetDefault("harvest.batch_size", 20)
	v.SetDefault("harvest.default_limit", 20)
	v.SetDefault("harvest.max_limit", 100)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "structured")
}

// Load resolves the configuration and caches it for GetConfig.
//
// configFile is an optional explicit path to a YAML config file; when
// empty, harvester.yaml is searched for in the working directory. The
// optional overrides map is merged last and wins over every other layer.
func Load(configFile string, overrides ...map[string]any) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("harvester")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			// A missing default config file is fine; anything else is not.
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	// Overrides use Set so they outrank the env layer.
	for _, o := range overrides {
		applyOverrides(v, "", o)
	}

	var cfg Config
	decodeHook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook)); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configMu.Lock()
	appConfig = &cfg
	configMu.Unlock()

	return &cfg, nil
}

// applyOverrides flattens a nested override map into dotted keys.
func applyOverrides(v *viper.Viper, prefix string, m map[string]any) {
	for key, val := range m {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			applyOverrides(v, full, nested)
			continue
		}
		v.Set(full, val)
	}
}

// GetConfig returns the most recently loaded configuration, or nil if
// Load has not been called.
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// Validate checks the configuration for values no component can run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.NCBI.RateLimit < 0 {
		return fmt.Errorf("invalid ncbi rate limit: %g", c.NCBI.RateLimit)
	}
	if c.NCBI.MaxRetries < 0 {
		return fmt.Errorf("invalid ncbi max retries: %d", c.NCBI.MaxRetries)
	}
	if c.Harvest.Concurrency < 1 {
		return fmt.Errorf("invalid harvest concurrency: %d", c.Harvest.Concurrency)
	}
	if c.Harvest.BatchSize < 1 || c.Harvest.BatchSize > 100 {
		return fmt.Errorf("invalid harvest batch size: %d", c.Harvest.BatchSize)
	}
	if c.Harvest.MaxLimit < c.Harvest.DefaultLimit {
		return fmt.Errorf("harvest max_limit %d below default_limit %d",
			c.Harvest.MaxLimit, c.Harvest.DefaultLimit)
	}
	return nil
}
