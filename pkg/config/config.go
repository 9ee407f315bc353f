// Package config loads the assistant settings from a file and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. MISSIVE_MODEL_NAME.
const EnvPrefix = "MISSIVE"

type Config struct {
	Model        ModelConfig        `mapstructure:"model"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	Store        StoreConfig        `mapstructure:"store"`
	Google       GoogleConfig       `mapstructure:"google"`
	Calendar     CalendarConfig     `mapstructure:"calendar"`
	HTTP         HTTPConfig         `mapstructure:"http"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
	Log          LogConfig          `mapstructure:"log"`
}

type ModelConfig struct {
	Provider          string        `mapstructure:"provider" validate:"oneof=gemini script"`
	Name              string        `mapstructure:"name"`
	BaseURL           string        `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey            string        `mapstructure:"api_key"`
	Temperature       float64       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute" validate:"gte=0"`
	Timeout           time.Duration `mapstructure:"timeout" validate:"gte=0"`
	// Script is the YAML file replayed by the script provider.
	Script string `mapstructure:"script" validate:"required_if=Provider script"`
}

type OrchestratorConfig struct {
	MaxSteps      int           `mapstructure:"max_steps" validate:"gte=1"`
	TurnTimeout   time.Duration `mapstructure:"turn_timeout" validate:"gte=0"`
	HistoryWindow int           `mapstructure:"history_window" validate:"gte=1"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=memory file redis"`
	// Dir holds sessions and credentials for the file driver.
	Dir           string      `mapstructure:"dir" validate:"required_if=Driver file"`
	Redis         RedisConfig `mapstructure:"redis"`
	EncryptionKey string      `mapstructure:"encryption_key" validate:"omitempty,base64"`
	// FallbackKeys are retired encryption keys still accepted on read.
	FallbackKeys []string `mapstructure:"fallback_keys" validate:"dive,base64"`
	Redact       []string `mapstructure:"redact"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db" validate:"gte=0"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl" validate:"gte=0"`
	LockTTL  time.Duration `mapstructure:"lock_ttl" validate:"gte=0"`
	Enabled  bool          `mapstructure:"-"`
}

type GoogleConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	RedirectURL     string `mapstructure:"redirect_url" validate:"omitempty,url"`
}

type CalendarConfig struct {
	TimeZone   string `mapstructure:"time_zone" validate:"timezone"`
	CalendarID string `mapstructure:"calendar_id" validate:"required"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model.provider", "gemini")
	v.SetDefault("model.name", "gemini-2.0-flash")
	v.SetDefault("model.base_url", "")
	v.SetDefault("model.api_key", "")
	v.SetDefault("model.temperature", 0.0)
	v.SetDefault("model.requests_per_minute", 0)
	v.SetDefault("model.timeout", 120*time.Second)
	v.SetDefault("model.script", "")

	v.SetDefault("orchestrator.max_steps", 8)
	v.SetDefault("orchestrator.turn_timeout", 2*time.Minute)
	v.SetDefault("orchestrator.history_window", 8)

	v.SetDefault("store.driver", "file")
	v.SetDefault("store.dir", ".missive")
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.prefix", "missive:")
	v.SetDefault("store.redis.ttl", time.Duration(0))
	v.SetDefault("store.redis.lock_ttl", 2*time.Minute)
	v.SetDefault("store.encryption_key", "")
	v.SetDefault("store.fallback_keys", []string{})
	v.SetDefault("store.redact", []string{})

	v.SetDefault("google.credentials_file", "credentials.json")
	v.SetDefault("google.redirect_url", "http://localhost:8501/")

	v.SetDefault("calendar.time_zone", "UTC")
	v.SetDefault("calendar.calendar_id", "primary")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("metrics.enabled", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// New returns a viper instance with defaults and environment overrides bound.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("model.api_key", EnvPrefix+"_MODEL_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY")
	return v
}

// Load reads path (YAML, TOML or JSON, by extension). An empty path searches
// for missive.* in the working directory and $HOME/.config/missive, and
// runs on defaults when nothing is found.
func Load(path string) (Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("missive")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/missive")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	return Decode(v)
}

// Decode unmarshals and validates the settings held by v.
func Decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Store.Redis.Enabled = cfg.Store.Driver == "redis"

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	return validator.New(validator.WithRequiredStructEnabled()).Struct(c)
}

// Location returns the configured calendar time zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Calendar.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
