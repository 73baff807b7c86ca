// Package config loads gateway configuration from an optional YAML file and
// ASSISTANT_-prefixed environment variables, env taking precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Retry   RetryConfig   `koanf:"retry"`
	Breaker BreakerConfig `koanf:"breaker"`
	History HistoryConfig `koanf:"history"`
	Storage StorageConfig `koanf:"storage"`
	Bedrock BedrockConfig `koanf:"bedrock"`
}

type ServerConfig struct {
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

type RetryConfig struct {
	MaxAttempts    int           `koanf:"max_attempts"`
	InitialBackoff time.Duration `koanf:"initial_backoff"`
	MaxBackoff     time.Duration `koanf:"max_backoff"`
}

type BreakerConfig struct {
	FailureThreshold int           `koanf:"failure_threshold"`
	Cooldown         time.Duration `koanf:"cooldown"`
}

type HistoryConfig struct {
	Window int `koanf:"window"`
}

type StorageConfig struct {
	Driver   string         `koanf:"driver"` // memory, sqlite, dynamodb
	SQLite   SQLiteConfig   `koanf:"sqlite"`
	DynamoDB DynamoDBConfig `koanf:"dynamodb"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

type DynamoDBConfig struct {
	Table  string `koanf:"table"`
	Region string `koanf:"region"`
}

type BedrockConfig struct {
	Region string `koanf:"region"`
}

// Load reads configuration. path names an optional YAML file; a missing
// file is ignored so the defaults and environment stand alone.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]any{
		"server.port":               8080,
		"server.timeout":            "60s",
		"retry.max_attempts":        3,
		"retry.initial_backoff":     "1s",
		"retry.max_backoff":         "16s",
		"breaker.failure_threshold": 5,
		"breaker.cooldown":          "60s",
		"history.window":            10,
		"storage.driver":            "sqlite",
		"storage.sqlite.path":       "./data/assistant.db",
		"storage.dynamodb.table":    "chat-sessions",
		"storage.dynamodb.region":   "us-east-2",
		"bedrock.region":            "us-east-2",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		}
	}

	// Double underscore separates nesting levels so snake_case keys like
	// retry.max_attempts stay addressable: ASSISTANT_RETRY__MAX_ATTEMPTS.
	if err := k.Load(env.Provider("ASSISTANT_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "ASSISTANT_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
			WeaklyTypedInput: true,
			Result:           &cfg,
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
