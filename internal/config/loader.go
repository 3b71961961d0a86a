package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment key, e.g. STUDYSCHED_HTTP_ADDR.
const EnvPrefix = "STUDYSCHED"

const (
	keyHTTPAddr        = "http_addr"
	keyLogLevel        = "log_level"
	keyTokenTTL        = "token_ttl"
	keySnapshotDSN     = "snapshot_dsn"
	keyShutdownTimeout = "shutdown_timeout"
)

// Config captures environment driven configuration values for the study scheduler.
type Config struct {
	HTTPAddr        string
	LogLevel        slog.Level
	TokenTTL        time.Duration
	SnapshotDSN     string
	ShutdownTimeout time.Duration
}

// Load reads configuration from the process environment.
func Load() (Config, error) {
	return LoadFile("")
}

// LoadFile reads configuration from an optional YAML file overlaid by the
// process environment. Every invalid key is reported in one error.
func LoadFile(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault(keyHTTPAddr, ":8080")
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyTokenTTL, "24h")
	v.SetDefault(keySnapshotDSN, "")
	v.SetDefault(keyShutdownTimeout, "10s")

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	cfg := Config{
		HTTPAddr:    strings.TrimSpace(v.GetString(keyHTTPAddr)),
		SnapshotDSN: strings.TrimSpace(v.GetString(keySnapshotDSN)),
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 3)

	if cfg.HTTPAddr == "" {
		missing = append(missing, envName(keyHTTPAddr))
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(strings.TrimSpace(v.GetString(keyLogLevel)))); err != nil {
		invalid = append(invalid, envName(keyLogLevel))
	}

	if ttl, ok := positiveDuration(v, keyTokenTTL); ok {
		cfg.TokenTTL = ttl
	} else {
		invalid = append(invalid, envName(keyTokenTTL))
	}

	if timeout, ok := positiveDuration(v, keyShutdownTimeout); ok {
		cfg.ShutdownTimeout = timeout
	} else {
		invalid = append(invalid, envName(keyShutdownTimeout))
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("config: missing required values: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("config: invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func positiveDuration(v *viper.Viper, key string) (time.Duration, bool) {
	d, err := time.ParseDuration(strings.TrimSpace(v.GetString(key)))
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(key)
}
