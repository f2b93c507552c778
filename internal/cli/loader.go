package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"craftworks.ai/internal/sim/catalogs"
	"craftworks.ai/internal/sim/recipes"
	"craftworks.ai/internal/sim/tuning"
)

// engine is everything loaded from a config directory.
type engine struct {
	cats *catalogs.Catalogs
	tune tuning.Tuning
	regs recipes.Registries
}

func loadEngine(opts *RootOptions) (*engine, error) {
	cats, err := catalogs.Load(opts.Configs)
	if err != nil {
		return nil, fmt.Errorf("load catalogs: %w", err)
	}
	tp := strings.TrimSpace(opts.Tuning)
	if tp == "" {
		tp = filepath.Join(opts.Configs, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		return nil, fmt.Errorf("load tuning: %w", err)
	}
	regs, err := recipes.Setup(cats, tune)
	if err != nil {
		return nil, fmt.Errorf("register recipes: %w", err)
	}
	return &engine{cats: cats, tune: tune, regs: regs}, nil
}
