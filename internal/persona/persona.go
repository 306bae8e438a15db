// Package persona holds the fixed advisor registry.
package persona

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// PanelSize is the maximum number of personas on a panel.
const PanelSize = 3

//go:embed personas.yaml
var builtinYAML []byte

// Persona is a simulated advisor with an immutable behavioral instruction.
type Persona struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Avatar      string `yaml:"avatar" json:"avatar"`
	Color       string `yaml:"color" json:"color"`
	Instruction string `yaml:"instruction" json:"-"`
}

// Registry is an ordered, read-only set of personas keyed by ID.
// It is built once at startup and never mutated afterwards.
type Registry struct {
	personas []Persona
	index    map[string]int
}

// New validates personas and builds a registry preserving their order.
func New(personas []Persona) (*Registry, error) {
	if len(personas) == 0 {
		return nil, fmt.Errorf("persona registry is empty")
	}

	r := &Registry{
		personas: make([]Persona, 0, len(personas)),
		index:    make(map[string]int, len(personas)),
	}
	for i, p := range personas {
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			return nil, fmt.Errorf("persona %d: id is required", i)
		}
		if _, dup := r.index[p.ID]; dup {
			return nil, fmt.Errorf("persona %q: duplicate id", p.ID)
		}
		if strings.TrimSpace(p.Instruction) == "" {
			return nil, fmt.Errorf("persona %q: instruction is required", p.ID)
		}
		if p.Name == "" {
			p.Name = p.ID
		}
		r.index[p.ID] = len(r.personas)
		r.personas = append(r.personas, p)
	}
	return r, nil
}

// Parse builds a registry from a YAML list of personas.
func Parse(data []byte) (*Registry, error) {
	var personas []Persona
	if err := yaml.Unmarshal(data, &personas); err != nil {
		return nil, fmt.Errorf("parse personas: %w", err)
	}
	return New(personas)
}

// Builtin returns the registry shipped with the binary.
func Builtin() *Registry {
	r, err := Parse(builtinYAML)
	if err != nil {
		panic(fmt.Sprintf("builtin personas: %v", err))
	}
	return r
}

// Load returns the registry from path, or the built-in one when path is empty.
func Load(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return Builtin(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read personas file: %w", err)
	}
	return Parse(data)
}

// All returns a copy of the personas in registry order.
func (r *Registry) All() []Persona {
	out := make([]Persona, len(r.personas))
	copy(out, r.personas)
	return out
}

// Len returns the number of personas.
func (r *Registry) Len() int {
	return len(r.personas)
}

// Get looks up a persona by ID.
func (r *Registry) Get(id string) (Persona, bool) {
	i, ok := r.index[id]
	if !ok {
		return Persona{}, false
	}
	return r.personas[i], true
}

// Has reports whether id is a registered persona.
func (r *Registry) Has(id string) bool {
	_, ok := r.index[id]
	return ok
}

// Name returns the display name for id, or "" if unknown.
func (r *Registry) Name(id string) string {
	if p, ok := r.Get(id); ok {
		return p.Name
	}
	return ""
}

// Defaults returns the fallback panel: the first PanelSize personas in registry order.
func (r *Registry) Defaults() []string {
	n := min(PanelSize, len(r.personas))
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		ids[i] = r.personas[i].ID
	}
	return ids
}

// Catalog renders "id: name (description)" lines for the recommendation prompt.
func (r *Registry) Catalog() string {
	var b strings.Builder
	for i, p := range r.personas {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %s (%s)", p.ID, p.Name, p.Description)
	}
	return b.String()
}
