package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/mcdev12/wheelraffle/go/internal/natsbus"
	"github.com/mcdev12/wheelraffle/go/internal/raffle"
)

// Config is the process configuration: YAML file first, then environment overrides.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Store   StoreConfig   `yaml:"store"`
	Raffle  RaffleConfig  `yaml:"raffle"`
	NATS    NATSConfig    `yaml:"nats"`
	Gateway GatewayConfig `yaml:"gateway"`
}

type ServerConfig struct {
	Port            string        `yaml:"port" validate:"required,numeric"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Pretty bool   `yaml:"pretty"`
}

type StoreConfig struct {
	Kind string `yaml:"kind" validate:"oneof=memory postgres"`
	// SeedFile is a participants JSON file imported at startup.
	SeedFile string `yaml:"seed_file"`
}

type RaffleConfig struct {
	DefaultDuration float64       `yaml:"default_duration" validate:"gtfield=MinDuration"`
	MinDuration     float64       `yaml:"min_duration" validate:"gt=0"`
	NoticeWindow    time.Duration `yaml:"notice_window" validate:"gte=0"`
	HistoryLimit    int           `yaml:"history_limit" validate:"gt=0"`
	MaxHistoryLimit int           `yaml:"max_history_limit" validate:"gtefield=HistoryLimit"`
	RecordTimeout   time.Duration `yaml:"record_timeout" validate:"gt=0"`
}

type NATSConfig struct {
	Enabled       bool          `yaml:"enabled"`
	URL           string        `yaml:"url" validate:"required_if=Enabled true"`
	StreamName    string        `yaml:"stream_name" validate:"required"`
	SubjectPrefix string        `yaml:"subject_prefix" validate:"required"`
	MaxRetries    int           `yaml:"max_retries" validate:"gte=0"`
	RetryDelay    time.Duration `yaml:"retry_delay" validate:"gte=0"`
}

type GatewayConfig struct {
	// ConsumeFromBus runs the gateway as a relay of the NATS stream instead of the in-process app.
	ConsumeFromBus bool   `yaml:"consume_from_bus"`
	ConsumerName   string `yaml:"consumer_name"`
	RaffleAPIURL   string `yaml:"raffle_api_url" validate:"omitempty,url"`
}

// Settings converts to the raffle app's settings.
func (c RaffleConfig) Settings() raffle.Settings {
	return raffle.Settings{
		DefaultDuration: c.DefaultDuration,
		MinDuration:     c.MinDuration,
		NoticeWindow:    c.NoticeWindow,
		HistoryLimit:    c.HistoryLimit,
		MaxHistoryLimit: c.MaxHistoryLimit,
		RecordTimeout:   c.RecordTimeout,
	}
}

// Bus converts to the JetStream settings, keeping natsbus defaults for the rest.
func (c NATSConfig) Bus() natsbus.Config {
	bus := natsbus.DefaultConfig()
	bus.URL = c.URL
	bus.StreamName = c.StreamName
	bus.SubjectPrefix = c.SubjectPrefix
	bus.MaxRetries = c.MaxRetries
	bus.RetryDelay = c.RetryDelay
	return bus
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            "8080",
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Log: LogConfig{
			Level:  "info",
			Pretty: true,
		},
		Store: StoreConfig{
			Kind: "memory",
		},
		Raffle: RaffleConfig{
			DefaultDuration: 7,
			MinDuration:     1,
			NoticeWindow:    3 * time.Second,
			HistoryLimit:    10,
			MaxHistoryLimit: 100,
			RecordTimeout:   5 * time.Second,
		},
		NATS: NATSConfig{
			URL:           "nats://127.0.0.1:4222",
			StreamName:    "RAFFLE_EVENTS",
			SubjectPrefix: "raffle.events",
			MaxRetries:    3,
			RetryDelay:    200 * time.Millisecond,
		},
		Gateway: GatewayConfig{
			ConsumerName: "raffle-gateway",
		},
	}
}

// Load reads path (skipped when empty), applies environment overrides and validates.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Pretty = getEnvAsBool("LOG_PRETTY", cfg.Log.Pretty)
	cfg.Store.Kind = getEnv("STORE_KIND", cfg.Store.Kind)
	cfg.Store.SeedFile = getEnv("PARTICIPANTS_FILE", cfg.Store.SeedFile)
	cfg.NATS.Enabled = getEnvAsBool("NATS_ENABLED", cfg.NATS.Enabled)
	cfg.NATS.URL = getEnv("NATS_URL", cfg.NATS.URL)
	cfg.NATS.MaxRetries = getEnvAsInt("NATS_MAX_RETRIES", cfg.NATS.MaxRetries)
	cfg.Gateway.ConsumeFromBus = getEnvAsBool("GATEWAY_CONSUME_FROM_BUS", cfg.Gateway.ConsumeFromBus)
	cfg.Gateway.RaffleAPIURL = getEnv("RAFFLE_API_URL", cfg.Gateway.RaffleAPIURL)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
