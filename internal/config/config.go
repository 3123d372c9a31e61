package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is stripped from environment variables; VOCAB_DATABASE_DSN sets database.dsn
const EnvPrefix = "VOCAB_"

type Config struct {
	Database  DatabaseConfig  `koanf:"database"`
	Log       LogConfig       `koanf:"log"`
	Telegram  TelegramConfig  `koanf:"telegram"`
	OpenAI    OpenAIConfig    `koanf:"openai"`
	Redis     RedisConfig     `koanf:"redis"`
	Reminders RemindersConfig `koanf:"reminders"`
	Library   LibraryConfig   `koanf:"library"`
}

type DatabaseConfig struct {
	Driver  string        `koanf:"driver" validate:"oneof=sqlite3 postgres"`
	DSN     string        `koanf:"dsn" validate:"required"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

type LogConfig struct {
	Mode string `koanf:"mode" validate:"oneof=dev development prod production"`
}

type TelegramConfig struct {
	Token  string  `koanf:"token"`
	Admins []int64 `koanf:"admins"`
}

type OpenAIConfig struct {
	Key   string `koanf:"key"`
	Model string `koanf:"model" validate:"required"`
	URL   string `koanf:"url" validate:"required,url"`
}

// RedisConfig is optional; an empty Addr disables the shared lookup cache
type RedisConfig struct {
	Addr string        `koanf:"addr" validate:"omitempty,hostname_port"`
	TTL  time.Duration `koanf:"ttl" validate:"gt=0"`
}

type RemindersConfig struct {
	Enabled bool `koanf:"enabled"`
	// Reminders are only sent between these UTC hours
	StartHour int `koanf:"start" validate:"gte=0,lte=23"`
	EndHour   int `koanf:"end" validate:"gte=0,lte=23,gtefield=StartHour"`
}

type LibraryConfig struct {
	Dataset string `koanf:"dataset" validate:"required"`
}

// Default returns the configuration used when nothing overrides it
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			Driver:  "sqlite3",
			DSN:     "data/vocab.db",
			Timeout: 5 * time.Second,
		},
		Log: LogConfig{Mode: "dev"},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
			URL:   "https://api.openai.com/v1/chat/completions",
		},
		Redis:     RedisConfig{TTL: 24 * time.Hour},
		Reminders: RemindersConfig{Enabled: true, StartHour: 8, EndHour: 21},
		Library:   LibraryConfig{Dataset: "CET4_CORE"},
	}
}

// Load layers configuration: defaults, then the YAML file named by --config (if any),
// then .env and VOCAB_* environment variables, then explicitly set flags.
func Load(flags *pflag.FlagSet) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	k := koanf.New(".")

	if flags != nil {
		if path, err := flags.GetString("config"); err == nil && path != "" {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	// the conventional unprefixed names are honored too
	if tok := os.Getenv("TELEGRAM_BOT_TOKEN"); tok != "" && !k.Exists("telegram.token") {
		_ = k.Set("telegram.token", tok)
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && !k.Exists("openai.key") {
		_ = k.Set("openai.key", key)
	}

	if flags != nil {
		// only flags the user actually set override the layers above
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			return f.Name, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// envKey maps VOCAB_DATABASE_DSN to database.dsn
func envKey(s string) string {
	return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".", 1)
}
