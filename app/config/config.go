package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log     Log     `yaml:"log"`
	Server  Server  `yaml:"server"`
	Memory  Memory  `yaml:"memory"`
	Catalog Catalog `yaml:"catalog"`
}

type Server struct {
	// Address the HTTP API listens on
	Addr string `yaml:"addr" example:":8080"`
}

type Memory struct {
	// Maximum number of concurrently tracked sessions
	Capacity int `yaml:"capacity" example:"1000" validate:"required,min=1"`
	// Session inactivity TTL in seconds
	TTLSeconds int `yaml:"ttl_seconds" example:"3600" validate:"required,min=1"`
}

type Catalog struct {
	// Path to the bloc catalog file, empty uses the embedded default
	Path string `yaml:"path" example:"blocs.yaml"`
}

type Log struct {
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

func Load() (*Config, error) {
	var result Config

	data, err := os.ReadFile("config.yaml")
	if err != nil {
		return nil, oops.Errorf("failed to read config file: %w", err)
	}

	if err = yaml.Unmarshal(data, &result); err != nil {
		return nil, oops.Errorf("failed to parse YAML config: %w", err)
	}

	if result.Server.Addr == "" {
		result.Server.Addr = ":8080"
	}
	if result.Memory.Capacity == 0 {
		result.Memory.Capacity = 1000
	}
	if result.Memory.TTLSeconds == 0 {
		result.Memory.TTLSeconds = 3600
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}
