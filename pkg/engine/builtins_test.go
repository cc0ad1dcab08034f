package engine

import (
	"strings"
	"testing"

	"github.com/chazu/warren/pkg/catalog"
	"github.com/chazu/warren/pkg/geom"
	"github.com/chazu/warren/pkg/kernel/analytic"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(connector :name "north")`,
			expect: `(connector "__kw_name" "north")`,
		},
		{
			name:   "multiple keywords",
			input:  `(cylinder :radius 1 :height 3)`,
			expect: `(cylinder "__kw_radius" 1 "__kw_height" 3)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(def dead-end (box 1 1 1))`,
			expect: `(def dead_end (box 1 1 1))`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "negative literal preserved",
			input:  `(vec3 0 0 -2)`,
			expect: `(vec3 0 0 -2)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "hyphen in keyword preserved",
			input:  `:dead-end`,
			expect: `"__kw_dead-end"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Builtin tests
// ---------------------------------------------------------------------------

func evalCatalog(t *testing.T, source string) *catalog.Catalog {
	t.Helper()
	eng := NewEngine(analytic.New())
	c, evalErrs, err := eng.Evaluate(source)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if c == nil {
		t.Fatal("expected non-nil catalog")
	}
	return c
}

func evalFails(t *testing.T, source, want string) {
	t.Helper()
	eng := NewEngine(analytic.New())
	c, evalErrs, err := eng.Evaluate(source)
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if c != nil {
		t.Fatal("expected nil catalog on eval error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error")
	}
	if !strings.Contains(evalErrs[0].Message, want) {
		t.Errorf("error %q does not mention %q", evalErrs[0].Message, want)
	}
}

func TestDefmoduleCorridor(t *testing.T) {
	c := evalCatalog(t, `
; a straight corridor, open at both ends
(defmodule "corridor"
  :weight 2
  :visual (box 2 3 4 :at (vec3 0 1.5 0))
  :connectors (list
    (connector :name "front" :at (vec3 0 0 2))
    (connector :name "back" :at (vec3 0 0 -2) :forward (vec3 0 0 -1))))
`)
	m, ok := c.Lookup("corridor")
	if !ok {
		t.Fatal("corridor not defined")
	}
	if m.Weight != 2 {
		t.Errorf("weight = %f, want 2", m.Weight)
	}
	if m.ConnectorCount() != 2 {
		t.Fatalf("connector count = %d, want 2", m.ConnectorCount())
	}
	front := m.Connectors[0]
	if front.Name != "front" || front.Frame.Position != geom.V(0, 0, 2) {
		t.Errorf("front connector = %+v", front)
	}
	if front.Frame.Forward != geom.Forward || front.Frame.Up != geom.Up {
		t.Errorf("front connector should default to +Z forward, +Y up: %+v", front.Frame)
	}
	if got := m.Connectors[1].Frame.Forward; got != geom.V(0, 0, -1) {
		t.Errorf("back forward = %v", got)
	}
	b := m.LocalBounds()
	if !geom.ApproxEqual(b.Min, geom.V(-1, 0, -2), 1e-9) || !geom.ApproxEqual(b.Max, geom.V(1, 3, 2), 1e-9) {
		t.Errorf("bounds = %+v", b)
	}
	if !m.Usable() {
		t.Error("corridor should be usable")
	}
}

func TestDefmoduleVariables(t *testing.T) {
	c := evalCatalog(t, `
(def hall-size (vec3 4 3 4))
(def slab (box :size hall-size))
(def pillar (cylinder :radius 0.25 :height 3 :at (vec3 1 0 1)))
(defmodule "hall"
  :visual (list slab pillar)
  :collider (union slab pillar)
  :tags (list "hall" :lit))
`)
	m, _ := c.Lookup("hall")
	if len(m.Visuals) != 2 {
		t.Errorf("visuals = %d, want 2", len(m.Visuals))
	}
	if len(m.Colliders) != 1 {
		t.Errorf("colliders = %d, want 1", len(m.Colliders))
	}
	if len(m.Tags) != 2 || m.Tags[0] != "hall" || m.Tags[1] != "lit" {
		t.Errorf("tags = %v, want [hall lit]", m.Tags)
	}
	if m.Weight != 1 {
		t.Errorf("default weight = %f, want 1", m.Weight)
	}
	if m.ConnectorCount() != 0 || !m.Terminal() {
		t.Error("hall has no connectors and should be terminal")
	}
}

func TestDefmoduleFrom(t *testing.T) {
	c := evalCatalog(t, `
(defmodule "room" :weight 3 :visual (box 6 3 6)
  :connectors (list (connector :at (vec3 0 0 3))))
(defmodule "rare-room" :from (module "room") :weight 0.5)
`)
	rare, ok := c.Lookup("rare-room")
	if !ok {
		t.Fatal("rare-room not defined")
	}
	if rare.Weight != 0.5 {
		t.Errorf("weight = %f, want 0.5", rare.Weight)
	}
	if rare.ConnectorCount() != 1 || len(rare.Visuals) != 1 {
		t.Errorf("rare-room should inherit geometry and connectors: %+v", rare)
	}
	if names := c.Entries(); names[0].Name != "room" || names[1].Name != "rare-room" {
		t.Error("catalog order should follow definition order")
	}
}

func TestRotateTranslate(t *testing.T) {
	c := evalCatalog(t, `
(defmodule "beam"
  :visual (translate (rotate (box 10 1 1) (vec3 0 0 90)) (vec3 5 0 0)))
`)
	m, _ := c.Lookup("beam")
	min, max := m.Visuals[0].BoundingBox()
	if x := max[0] - min[0]; x < 0.99 || x > 1.01 {
		t.Errorf("rotated X extent = %f, want 1", x)
	}
	if cx := (min[0] + max[0]) / 2; cx < 4.99 || cx > 5.01 {
		t.Errorf("translated X center = %f, want 5", cx)
	}
}

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"vec3 arity", `(vec3 1 2)`, "exactly 3"},
		{"box without size", `(box)`, "three dimensions"},
		{"box negative", `(box 1 -1 1)`, "positive"},
		{"cylinder missing radius", `(cylinder :height 2)`, "positive"},
		{"union of non-solids", `(union 1 2)`, "expected solid"},
		{"duplicate module", `(defmodule "a" :visual (box 1 1 1)) (defmodule "a" :visual (box 1 1 1))`, "duplicate"},
		{"unknown module", `(module "nope")`, "no module named"},
		{"connector list entry", `(defmodule "a" :visual (box 1 1 1) :connectors (list 1))`, "expected connector"},
		{"defmodule without name", `(defmodule :weight 1)`, "requires a name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evalFails(t, tt.source, tt.want)
		})
	}
}

func TestArithmeticStillWorks(t *testing.T) {
	c := evalCatalog(t, `
(def w (* 2 3))
(defmodule "wide" :visual (box w 3 2))
`)
	m, _ := c.Lookup("wide")
	min, max := m.Visuals[0].BoundingBox()
	if max[0]-min[0] != 6 {
		t.Errorf("width = %f, want 6", max[0]-min[0])
	}
}
