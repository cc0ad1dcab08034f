// Package catalog holds the module types a dungeon is assembled from.
//
// A ModuleType is immutable once added to a Catalog: its connectors are
// expressed in module-local space and its solids are never transformed in
// place. Placement happens in the scene layer.
package catalog

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/warren/pkg/geom"
	"github.com/chazu/warren/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrDuplicateModule is returned by Add when a name is already taken.
	ErrDuplicateModule = errors.New("catalog: duplicate module name")
	// ErrUnnamedModule is returned by Add for nil or unnamed entries.
	ErrUnnamedModule = errors.New("catalog: module has no name")
	// ErrUnknownFormat is returned for manifests in a format other than
	// TOML or YAML.
	ErrUnknownFormat = errors.New("catalog: unknown manifest format")
)

// ConnectorSpec is a connector in module-local space.
type ConnectorSpec struct {
	Name  string
	Frame geom.Frame
}

// ModuleType is a catalog entry.
type ModuleType struct {
	Name       string
	Weight     float64
	Connectors []ConnectorSpec
	Visuals    []kernel.Solid
	Colliders  []kernel.Solid
	Tags       []string
}

// ConnectorCount returns the number of connectors the module exposes.
func (m *ModuleType) ConnectorCount() int {
	return len(m.Connectors)
}

// Terminal reports whether the module caps a branch (at most one connector).
func (m *ModuleType) Terminal() bool {
	return len(m.Connectors) <= 1
}

// Usable reports whether the module has geometry the generator can place.
func (m *ModuleType) Usable() bool {
	if m == nil || m.Name == "" || math.IsNaN(m.Weight) || math.IsInf(m.Weight, 0) {
		return false
	}
	for _, cs := range m.Connectors {
		if !geom.IsFinite(cs.Frame.Position) || r3.Norm(cs.Frame.Forward) < 1e-9 {
			return false
		}
	}
	return len(m.Visuals) > 0 || len(m.Colliders) > 0
}

// LocalBounds returns the union of the visual solids' bounds. A module with
// no visuals has a zero-size box at its origin.
func (m *ModuleType) LocalBounds() geom.Box {
	if len(m.Visuals) == 0 {
		return geom.Box{}
	}
	b := kernel.Bounds(m.Visuals[0])
	for _, v := range m.Visuals[1:] {
		b = b.Union(kernel.Bounds(v))
	}
	return b
}

// Catalog is an ordered set of uniquely named module types.
type Catalog struct {
	entries []*ModuleType
	byName  map[string]*ModuleType
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{byName: make(map[string]*ModuleType)}
}

// Add appends a module type. Names must be unique.
func (c *Catalog) Add(m *ModuleType) error {
	if m == nil || m.Name == "" {
		return ErrUnnamedModule
	}
	if _, exists := c.byName[m.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateModule, m.Name)
	}
	c.entries = append(c.entries, m)
	c.byName[m.Name] = m
	return nil
}

// MustAdd is Add for catalogs built in code; it panics on error.
func (c *Catalog) MustAdd(m *ModuleType) *Catalog {
	if err := c.Add(m); err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the module type with the given name.
func (c *Catalog) Lookup(name string) (*ModuleType, bool) {
	m, ok := c.byName[name]
	return m, ok
}

// Entries returns every module type in insertion order.
func (c *Catalog) Entries() []*ModuleType {
	out := make([]*ModuleType, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Usable returns the entries the generator may place, in insertion order.
func (c *Catalog) Usable() []*ModuleType {
	var out []*ModuleType
	for _, m := range c.entries {
		if m.Usable() {
			out = append(out, m)
		}
	}
	return out
}
