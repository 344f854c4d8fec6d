package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/bracket"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/export"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/geom"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/script"
)

// design is a built bracket and where its parameters came from.
type design struct {
	Params bracket.Params `json:"params"`
	// Script is the design script that ran, if any.
	Script    string             `json:"script,omitempty"`
	Profile   string             `json:"profile,omitempty"`
	Overrides map[string]float64 `json:"overrides,omitempty"`
	// Sections are the extra cuts requested by the script.
	Sections []export.Section `json:"sections,omitempty"`
	Solid    *geom.Solid      `json:"-"`
}

// loadDesign resolves the parameters from the config, runs the design
// script and builds the solid. An explicit script must exist; the configured
// default script is only used when present.
func loadDesign(ctx context.Context, cmdCtx *CommandContext, scriptPath string) (*design, error) {
	cfg := cmdCtx.Cfg
	p, err := cfg.Params()
	if err != nil {
		return nil, err
	}
	d := &design{Params: p, Profile: cfg.Profile}

	if scriptPath == "" && cfg.Script != "" {
		if _, err := os.Stat(cfg.Script); err == nil {
			scriptPath = cfg.Script
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read script: %w", err)
		}
	}

	if scriptPath != "" {
		res, err := script.RunFile(ctx, scriptPath, script.Options{
			Params:  p,
			Profile: cfg.Profile,
			Logger:  cmdCtx.Logger,
		})
		if err != nil {
			return nil, err
		}
		d.Params = res.Params
		d.Script = scriptPath
		d.Overrides = res.Overrides
		d.Sections = res.Sections
		cmdCtx.Logger.Debug("design script applied", "script", scriptPath, "overrides", len(res.Overrides))
	}

	solid, err := bracket.Build(d.Params)
	if err != nil {
		return nil, fmt.Errorf("failed to build bracket: %w", err)
	}
	d.Solid = solid
	return d, nil
}
