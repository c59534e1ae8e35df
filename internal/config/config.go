package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Prefix is the environment variable prefix.
const Prefix = "GRIDFLOW"

// DefaultEnvFile is read by Load when no file is named and it exists.
const DefaultEnvFile = ".env"

// Engine holds the engine-wide knobs.
type Engine struct {
	// Workers bounds concurrent nodes per layer; 0 means GOMAXPROCS.
	Workers        int           `envconfig:"WORKERS" default:"0" validate:"gte=0"`
	NodeTimeout    time.Duration `envconfig:"NODE_TIMEOUT" default:"5m" validate:"gte=0"`
	MaxOutputBytes int64         `envconfig:"MAX_OUTPUT_BYTES" default:"1048576" validate:"gte=0"`
	MaxMemoryBytes uint64        `envconfig:"MAX_MEMORY_BYTES" default:"0"`
	MaxCPUSeconds  uint64        `envconfig:"MAX_CPU_SECONDS" default:"0"`
	FailFast       bool          `envconfig:"FAIL_FAST" default:"false"`
	// DenyList replaces the built-in command deny-list when set.
	DenyList []string `envconfig:"DENY_LIST"`
	TempDir  string   `envconfig:"TEMP_DIR"`

	LogLevel        string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat       string `envconfig:"LOG_FORMAT" default:"text" validate:"oneof=text json"`
	HealthcheckPort int    `envconfig:"HEALTHCHECK_PORT" default:"0" validate:"gte=0,lte=65535"`
	EventsAddr      string `envconfig:"EVENTS_ADDR" default:":8090" validate:"required"`

	// RedisURL enables the Redis run archive.
	RedisURL   string        `envconfig:"REDIS_URL" validate:"omitempty,url"`
	ArchiveTTL time.Duration `envconfig:"ARCHIVE_TTL" default:"24h" validate:"gte=0"`
}

// Load reads envFile (or DefaultEnvFile if it exists and envFile is empty),
// then the environment, and validates the result.
func Load(envFile string) (*Engine, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	var cfg Engine
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("error processing environment configuration: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(DefaultEnvFile); errors.Is(err, os.ErrNotExist) {
			return nil
		}
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to read env file %s: %w", path, err)
	}
	return nil
}
