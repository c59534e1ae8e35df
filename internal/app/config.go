package app

import (
	"errors"

	"github.com/specialistvlad/gridflow/internal/config"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// GraphPath is a graph document or a directory of them.
	GraphPath string
	Engine    config.Engine
	// NoColor disables colored summaries.
	NoColor bool
}

// NewConfig checks the fields the environment cannot supply.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.GraphPath == "" {
		return nil, errors.New("GraphPath is a required configuration field and cannot be empty")
	}
	if err := config.Validate(&cfg.Engine); err != nil {
		return nil, err
	}
	return &cfg, nil
}
