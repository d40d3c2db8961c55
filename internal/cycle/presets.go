package cycle

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"moodcal/internal/core"
)

//go:embed presets.yaml
var builtinPresets []byte

// Preset is a named template with its suggested cycle length.
type Preset struct {
	Name   string            `json:"name" yaml:"name"`
	Length int               `json:"length" yaml:"length"`
	Phases []core.CyclePhase `json:"phases" yaml:"phases"`
}

// Template returns the preset as a cycle template.
func (p Preset) Template() core.CycleTemplate {
	return core.CycleTemplate{Name: p.Name, Phases: append([]core.CyclePhase(nil), p.Phases...)}
}

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// Catalog is an immutable set of presets keyed by name.
type Catalog struct {
	byName map[string]Preset
	order  []string
}

// LoadCatalog parses the built-in presets and, when overridePath is
// set, merges that file on top. Presets in the override replace
// built-ins with the same name.
func LoadCatalog(overridePath string) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]Preset)}
	if err := c.merge(builtinPresets, "builtin"); err != nil {
		return nil, err
	}
	if overridePath == "" {
		return c, nil
	}

	data, err := os.ReadFile(overridePath)
	if err != nil {
		return nil, fmt.Errorf("read presets file: %w", err)
	}
	if err := c.merge(data, overridePath); err != nil {
		return nil, err
	}
	return c, nil
}

// MustBuiltin returns the embedded presets and panics if they are broken.
func MustBuiltin() *Catalog {
	c, err := LoadCatalog("")
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) merge(data []byte, source string) error {
	var f presetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse presets %s: %w", source, err)
	}
	for _, p := range f.Presets {
		if p.Name == "" {
			return fmt.Errorf("preset in %s has no name", source)
		}
		if p.Length <= 0 {
			return fmt.Errorf("preset %q in %s: length must be positive", p.Name, source)
		}
		if err := p.Template().Validate(); err != nil {
			return fmt.Errorf("preset %q in %s: %w", p.Name, source, err)
		}
		if _, exists := c.byName[p.Name]; !exists {
			c.order = append(c.order, p.Name)
		}
		c.byName[p.Name] = p
	}
	return nil
}

// Get looks a preset up by exact name.
func (c *Catalog) Get(name string) (Preset, error) {
	p, ok := c.byName[name]
	if !ok {
		return Preset{}, fmt.Errorf("%q: %w", name, core.ErrPresetNotFound)
	}
	return p, nil
}

// List returns presets in definition order.
func (c *Catalog) List() []Preset {
	out := make([]Preset, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.byName[name])
	}
	return out
}

// Names returns preset names sorted alphabetically.
func (c *Catalog) Names() []string {
	names := append([]string(nil), c.order...)
	sort.Strings(names)
	return names
}
