// Package shorten rewrites a profile stylesheet and its custom HTML to use
// short identifiers, and analyzes a stylesheet for further savings.
package shorten

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultPlanYAML []byte

// Mapping renames From to To.
type Mapping struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// LegendEntry documents one custom property introduced by the plan.
type LegendEntry struct {
	Property string `yaml:"property"`
	UsedBy   string `yaml:"usedBy"`
	Pattern  string `yaml:"pattern"`
}

// Plan is the full set of rewrites. The zero Plan changes nothing.
type Plan struct {
	Animations []Mapping `yaml:"animations"`
	// Variables are custom property names without the leading "--".
	Variables       []Mapping `yaml:"variables"`
	RemoveKeyframes []string  `yaml:"removeKeyframes"`
	// Properties are @property declarations prepended to the stylesheet.
	Properties []string `yaml:"properties"`
	// Rules are inserted before the first @media block.
	Rules []string `yaml:"rules"`
	// Keyframes are appended to the stylesheet.
	Keyframes []string  `yaml:"keyframes"`
	HTML      []Mapping `yaml:"html"`
	// Marquees maps a marquee direction to the custom property that drives
	// its replacement.
	Marquees      map[string]string `yaml:"marquees"`
	LegendEntries []LegendEntry     `yaml:"legend"`
	// Patterns are counted by Analyze.
	Patterns []string `yaml:"patterns"`
}

// DefaultPlan returns the built-in plan.
func DefaultPlan() Plan {
	p, err := ParsePlan(defaultPlanYAML)
	if err != nil {
		panic("shorten: embedded plan: " + err.Error())
	}
	return p
}

// ParsePlan decodes a YAML plan.
func ParsePlan(b []byte) (Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(b, &p); err != nil {
		return Plan{}, fmt.Errorf("parse plan: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Plan{}, err
	}
	return p, nil
}

// LoadPlan reads a plan file. An empty path yields DefaultPlan.
func LoadPlan(path string) (Plan, error) {
	if path == "" {
		return DefaultPlan(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, fmt.Errorf("read plan: %w", err)
	}
	return ParsePlan(b)
}

// Validate rejects mappings that would erase or duplicate names.
func (p Plan) Validate() error {
	check := func(kind string, ms []Mapping) error {
		seen := make(map[string]bool)
		for _, m := range ms {
			if m.From == "" || m.To == "" {
				return fmt.Errorf("%s mapping %q -> %q: empty name", kind, m.From, m.To)
			}
			if seen[m.From] {
				return fmt.Errorf("%s mapping %q listed twice", kind, m.From)
			}
			seen[m.From] = true
		}
		return nil
	}
	if err := check("animation", p.Animations); err != nil {
		return err
	}
	if err := check("variable", p.Variables); err != nil {
		return err
	}
	for i, m := range p.HTML {
		if m.From == "" {
			return fmt.Errorf("html replacement %d: empty source", i)
		}
	}
	return nil
}
