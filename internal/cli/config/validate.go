package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/cli/output"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/geom"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/verify"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	if c.OutputDir == "" {
		errs = append(errs, errors.New("output_dir is required"))
	}
	if !output.Mode(c.OutputFormat).Valid() {
		errs = append(errs, fmt.Errorf("invalid output format %q (expected one of %s)",
			c.OutputFormat, strings.Join(output.Modes(), ", ")))
	}
	if c.Profile != "" {
		if _, ok := c.Profiles[c.Profile]; !ok {
			errs = append(errs, fmt.Errorf("unknown profile %q%s", c.Profile, c.availableProfiles()))
		}
	}
	for id, sev := range c.Verify.Severity {
		if _, ok := verify.ParseSeverity(sev); !ok {
			errs = append(errs, fmt.Errorf("verify.severity.%s: invalid severity %q", id, sev))
		}
	}
	if c.Preview.Port < 0 || c.Preview.Port > 65535 {
		errs = append(errs, fmt.Errorf("preview.port %d out of range", c.Preview.Port))
	}
	if c.Render.Display < 0 {
		errs = append(errs, fmt.Errorf("render.display %d must not be negative", c.Render.Display))
	}
	if c.Render.Timeout < 0 {
		errs = append(errs, errors.New("render.timeout must not be negative"))
	}

	sections := c.Export.Sections
	for _, p := range c.Profiles {
		sections = append(sections, p.Sections...)
	}
	for _, s := range sections {
		if err := validateSection(s.Name, s.Plane); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

func validateSection(name, plane string) error {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("section name %q is invalid", name)
	}
	if _, err := geom.NamedPlane(strings.ToUpper(plane), 0); err != nil {
		return fmt.Errorf("section %s: %w", name, err)
	}
	return nil
}

// ProfileNames returns the configured profile names, sorted.
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Config) availableProfiles() string {
	names := c.ProfileNames()
	if len(names) == 0 {
		return "\nHint: define profiles under 'profiles:' in cadsandbox.yaml"
	}
	return " (available: " + strings.Join(names, ", ") + ")"
}
