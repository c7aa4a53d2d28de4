package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string `mapstructure:"mode"`
	Port       int    `mapstructure:"port"`
	LogLevel   string `mapstructure:"log_level"`
	LogConsole bool   `mapstructure:"log_console"`

	StoreURL       string        `mapstructure:"store_url"`
	Codec          string        `mapstructure:"codec"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	PublicURL      string        `mapstructure:"public_url"`

	ICEServers   []string      `mapstructure:"ice_servers"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	GatherGrace  time.Duration `mapstructure:"gather_grace"`

	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
	MetricsEnabled bool          `mapstructure:"metrics_enabled"`
	JoinRateLimit  int           `mapstructure:"join_rate_limit"`
	JoinRateWindow time.Duration `mapstructure:"join_rate_window"`
}

const EnvPrefix = "LIVECAST"

// Load layers, lowest first: defaults, config/config.<CONFIG_ENV>.yaml,
// LIVECAST_* environment variables, then any flags set in flags.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)
	v.SetConfigFile(fileName)

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_console", true)
	v.SetDefault("store_url", "http://localhost:8080")
	v.SetDefault("codec", "json")
	v.SetDefault("request_timeout", "10s")
	v.SetDefault("public_url", "")
	v.SetDefault("ice_servers", []string{"stun:stun.l.google.com:19302", "stun:stun1.l.google.com:19302"})
	v.SetDefault("poll_interval", "2s")
	v.SetDefault("gather_grace", "2s")
	v.SetDefault("session_ttl", "4h")
	v.SetDefault("sweep_interval", "1m")
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("join_rate_limit", 10)
	v.SetDefault("join_rate_window", "1m")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if v.IsSet(key) || hasDefault(v, key) {
				bindErr = errors.Join(bindErr, v.BindPFlag(key, f))
			}
		})
		if bindErr != nil {
			return nil, fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		log.Debug().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func hasDefault(v *viper.Viper, key string) bool {
	for _, k := range v.AllKeys() {
		if k == key {
			return true
		}
	}
	return false
}

func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, errors.New("poll_interval must be positive"))
	}
	if c.GatherGrace <= 0 {
		errs = append(errs, errors.New("gather_grace must be positive"))
	}
	if c.Codec != "json" && c.Codec != "msgpack" {
		errs = append(errs, fmt.Errorf("codec %q is not json or msgpack", c.Codec))
	}
	if c.JoinRateLimit < 0 {
		errs = append(errs, errors.New("join_rate_limit must not be negative"))
	}
	return errors.Join(errs...)
}
