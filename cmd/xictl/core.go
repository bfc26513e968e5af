package main

import (
	"fmt"

	"github.com/xi-lua/sentinel/pkg/config"
	"github.com/xi-lua/sentinel/pkg/core"
)

// openCore loads configuration from the environment and wires a Core,
// starting its background loops. Callers must Stop+Close when done.
func openCore() (*core.Core, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c, err := core.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open core: %w", err)
	}
	return c, nil
}
