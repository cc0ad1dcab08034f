package catalog

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/chazu/warren/pkg/geom"
	"github.com/chazu/warren/pkg/kernel"
	"gopkg.in/yaml.v3"
)

// Manifest formats accepted by DecodeManifest.
const (
	FormatTOML = "toml"
	FormatYAML = "yaml"
)

// Manifest is the declarative form of a catalog.
type Manifest struct {
	Modules []ModuleSpec `toml:"module" yaml:"modules"`
}

// ModuleSpec declares one module type.
type ModuleSpec struct {
	Name       string          `toml:"name" yaml:"name"`
	Weight     *float64        `toml:"weight" yaml:"weight"`
	Tags       []string        `toml:"tags" yaml:"tags"`
	Visuals    []ShapeSpec     `toml:"visual" yaml:"visuals"`
	Colliders  []ShapeSpec     `toml:"collider" yaml:"colliders"`
	Connectors []ConnectorDecl `toml:"connector" yaml:"connectors"`
}

// ShapeSpec declares a primitive solid placed in module-local space.
type ShapeSpec struct {
	Shape  string     `toml:"shape" yaml:"shape"` // "box" or "cylinder"
	Size   [3]float64 `toml:"size" yaml:"size"`
	Radius float64    `toml:"radius" yaml:"radius"`
	Height float64    `toml:"height" yaml:"height"`
	At     [3]float64 `toml:"at" yaml:"at"`
	Rotate [3]float64 `toml:"rotate" yaml:"rotate"` // Euler degrees
}

// ConnectorDecl declares a connector frame.
type ConnectorDecl struct {
	Name    string      `toml:"name" yaml:"name"`
	At      [3]float64  `toml:"at" yaml:"at"`
	Forward *[3]float64 `toml:"forward" yaml:"forward"`
	Up      *[3]float64 `toml:"up" yaml:"up"`
}

// FormatFromPath guesses a manifest format from a file extension.
func FormatFromPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w for extension %q", ErrUnknownFormat, filepath.Ext(path))
	}
}

// DecodeManifest reads a manifest and builds its solids with k.
func DecodeManifest(r io.Reader, format string, k kernel.Kernel) (*Catalog, error) {
	var m Manifest
	switch format {
	case FormatTOML:
		if _, err := toml.NewDecoder(r).Decode(&m); err != nil {
			return nil, fmt.Errorf("catalog: decoding toml: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&m); err != nil {
			return nil, fmt.Errorf("catalog: decoding yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownFormat, format)
	}
	return m.Build(k)
}

// Build turns the manifest into a catalog.
func (m *Manifest) Build(k kernel.Kernel) (*Catalog, error) {
	c := New()
	for i, spec := range m.Modules {
		mt, err := spec.build(k)
		if err != nil {
			return nil, fmt.Errorf("catalog: module %d (%q): %w", i, spec.Name, err)
		}
		if err := c.Add(mt); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (s ModuleSpec) build(k kernel.Kernel) (*ModuleType, error) {
	weight := 1.0
	if s.Weight != nil {
		weight = *s.Weight
	}
	mt := &ModuleType{Name: s.Name, Weight: weight, Tags: s.Tags}
	for _, v := range s.Visuals {
		solid, err := v.build(k)
		if err != nil {
			return nil, fmt.Errorf("visual: %w", err)
		}
		mt.Visuals = append(mt.Visuals, solid)
	}
	for _, v := range s.Colliders {
		solid, err := v.build(k)
		if err != nil {
			return nil, fmt.Errorf("collider: %w", err)
		}
		mt.Colliders = append(mt.Colliders, solid)
	}
	for _, c := range s.Connectors {
		mt.Connectors = append(mt.Connectors, c.spec())
	}
	return mt, nil
}

func (s ShapeSpec) build(k kernel.Kernel) (kernel.Solid, error) {
	var solid kernel.Solid
	switch s.Shape {
	case "box", "":
		if s.Size[0] <= 0 || s.Size[1] <= 0 || s.Size[2] <= 0 {
			return nil, fmt.Errorf("box size %v must be positive", s.Size)
		}
		solid = k.Box(s.Size[0], s.Size[1], s.Size[2])
	case "cylinder":
		if s.Radius <= 0 || s.Height <= 0 {
			return nil, fmt.Errorf("cylinder radius %g and height %g must be positive", s.Radius, s.Height)
		}
		solid = k.Cylinder(s.Height, s.Radius, 32)
	default:
		return nil, fmt.Errorf("unknown shape %q", s.Shape)
	}
	if s.Rotate != [3]float64{} {
		solid = k.Rotate(solid, s.Rotate[0], s.Rotate[1], s.Rotate[2])
	}
	if s.At != [3]float64{} {
		solid = k.Translate(solid, s.At[0], s.At[1], s.At[2])
	}
	return solid, nil
}

func (c ConnectorDecl) spec() ConnectorSpec {
	f := geom.Frame{
		Position: vec(c.At),
		Forward:  geom.Forward,
		Up:       geom.Up,
	}
	if c.Forward != nil {
		f.Forward = vec(*c.Forward)
	}
	if c.Up != nil {
		f.Up = vec(*c.Up)
	}
	return ConnectorSpec{Name: c.Name, Frame: f}
}

func vec(a [3]float64) geom.Vec {
	return geom.V(a[0], a[1], a[2])
}
