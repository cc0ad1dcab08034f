package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/warren/pkg/catalog"
	"github.com/chazu/warren/pkg/geom"
	"github.com/chazu/warren/pkg/kernel"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms catalog Lisp source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: dead-end -> dead_end
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a geom.Vec.
type sexpVec3 struct {
	vec geom.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpSolid wraps a kernel.Solid built by a primitive or transform.
type sexpSolid struct {
	solid kernel.Solid
	desc  string
}

func (s *sexpSolid) SexpString(ps *zygo.PrintState) string {
	return "(" + s.desc + ")"
}
func (s *sexpSolid) Type() *zygo.RegisteredType { return nil }

// sexpConnector wraps a connector in module-local space.
type sexpConnector struct {
	spec catalog.ConnectorSpec
}

func (c *sexpConnector) SexpString(ps *zygo.PrintState) string {
	p := c.spec.Frame.Position
	return fmt.Sprintf("(connector %q :at (vec3 %g %g %g))", c.spec.Name, p.X, p.Y, p.Z)
}
func (c *sexpConnector) Type() *zygo.RegisteredType { return nil }

// sexpModule refers to a module type already added to the catalog.
type sexpModule struct {
	module *catalog.ModuleType
}

func (m *sexpModule) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(module %q)", m.module.Name)
}
func (m *sexpModule) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value: treat as flag with nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_z) and plain strings ("z").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toVec3 extracts a geom.Vec from a sexpVec3.
func toVec3(s zygo.Sexp) (geom.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return geom.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toSolid extracts a kernel.Solid from a sexpSolid.
func toSolid(s zygo.Sexp) (kernel.Solid, error) {
	if v, ok := s.(*sexpSolid); ok {
		return v.solid, nil
	}
	return nil, fmt.Errorf("expected solid, got %T (%s)", s, s.SexpString(nil))
}

// toSolids accepts a single solid or a list of solids.
func toSolids(s zygo.Sexp) ([]kernel.Solid, error) {
	if v, ok := s.(*sexpSolid); ok {
		return []kernel.Solid{v.solid}, nil
	}
	items, err := sexpListToSlice(s)
	if err != nil {
		return nil, fmt.Errorf("expected solid or list of solids: %w", err)
	}
	out := make([]kernel.Solid, 0, len(items))
	for i, item := range items {
		solid, err := toSolid(item)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, solid)
	}
	return out, nil
}

// toModule extracts a module type from a sexpModule.
func toModule(s zygo.Sexp) (*catalog.ModuleType, error) {
	if m, ok := s.(*sexpModule); ok {
		return m.module, nil
	}
	return nil, fmt.Errorf("expected module reference, got %T (%s)", s, s.SexpString(nil))
}

// kwFloat reads an optional numeric keyword argument.
func kwFloat(pa kwArgs, key string, def float64) (float64, error) {
	v, ok := pa.kw[key]
	if !ok {
		return def, nil
	}
	return toFloat64(v)
}

// kwVec reads an optional vec3 keyword argument.
func kwVec(pa kwArgs, key string, def geom.Vec) (geom.Vec, error) {
	v, ok := pa.kw[key]
	if !ok {
		return def, nil
	}
	return toVec3(v)
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs all catalog DSL builtins into a zygomys environment.
// Primitives are built with k; defmodule adds entries to c during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, k kernel.Kernel, c *catalog.Catalog) {

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}

		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: x: %w", err)
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: y: %w", err)
		}
		z, err := toFloat64(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: z: %w", err)
		}

		return &sexpVec3{vec: geom.V(x, y, z)}, nil
	})

	// -----------------------------------------------------------------------
	// (box 4 3 6) or (box :size (vec3 4 3 6) :at (vec3 0 1.5 0))
	// -----------------------------------------------------------------------
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)

		var size geom.Vec
		switch {
		case len(pa.positional) == 3:
			dims := make([]float64, 3)
			for i, a := range pa.positional {
				f, err := toFloat64(a)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("box: dimension %d: %w", i, err)
				}
				dims[i] = f
			}
			size = geom.V(dims[0], dims[1], dims[2])
		case pa.kw["size"] != nil:
			v, err := toVec3(pa.kw["size"])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("box: size: %w", err)
			}
			size = v
		default:
			return zygo.SexpNull, fmt.Errorf("box requires three dimensions or :size")
		}
		if size.X <= 0 || size.Y <= 0 || size.Z <= 0 {
			return zygo.SexpNull, fmt.Errorf("box: dimensions must be positive, got %g %g %g", size.X, size.Y, size.Z)
		}

		at, err := kwVec(pa, "at", geom.Zero)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box: at: %w", err)
		}
		s := k.Box(size.X, size.Y, size.Z)
		if at != geom.Zero {
			s = k.Translate(s, at.X, at.Y, at.Z)
		}
		return &sexpSolid{solid: s, desc: fmt.Sprintf("box %gx%gx%g", size.X, size.Y, size.Z)}, nil
	})

	// -----------------------------------------------------------------------
	// (cylinder :radius 1 :height 3 :at (vec3 0 0 0))
	// -----------------------------------------------------------------------
	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)

		radius, err := kwFloat(pa, "radius", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: radius: %w", err)
		}
		height, err := kwFloat(pa, "height", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: height: %w", err)
		}
		if radius <= 0 || height <= 0 {
			return zygo.SexpNull, fmt.Errorf("cylinder requires positive :radius and :height")
		}
		at, err := kwVec(pa, "at", geom.Zero)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: at: %w", err)
		}

		s := k.Cylinder(height, radius, 32)
		if at != geom.Zero {
			s = k.Translate(s, at.X, at.Y, at.Z)
		}
		return &sexpSolid{solid: s, desc: fmt.Sprintf("cylinder r%g h%g", radius, height)}, nil
	})

	// -----------------------------------------------------------------------
	// (union a b c ...)
	// -----------------------------------------------------------------------
	env.AddFunction("union", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("union requires at least one solid")
		}
		acc, err := toSolid(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("union: operand 0: %w", err)
		}
		for i := 1; i < len(args); i++ {
			s, err := toSolid(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("union: operand %d: %w", i, err)
			}
			acc = k.Union(acc, s)
		}
		return &sexpSolid{solid: acc, desc: fmt.Sprintf("union of %d", len(args))}, nil
	})

	// -----------------------------------------------------------------------
	// (translate solid (vec3 1 0 0))
	// -----------------------------------------------------------------------
	env.AddFunction("translate", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("translate requires a solid and a vec3")
		}
		s, err := toSolid(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("translate: %w", err)
		}
		v, err := toVec3(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("translate: offset: %w", err)
		}
		return &sexpSolid{solid: k.Translate(s, v.X, v.Y, v.Z), desc: "translated solid"}, nil
	})

	// -----------------------------------------------------------------------
	// (rotate solid (vec3 0 90 0))   ; Euler degrees
	// -----------------------------------------------------------------------
	env.AddFunction("rotate", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("rotate requires a solid and a vec3 of degrees")
		}
		s, err := toSolid(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rotate: %w", err)
		}
		v, err := toVec3(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rotate: angles: %w", err)
		}
		return &sexpSolid{solid: k.Rotate(s, v.X, v.Y, v.Z), desc: "rotated solid"}, nil
	})

	// -----------------------------------------------------------------------
	// (connector :name "north" :at (vec3 0 0 3) :forward (vec3 0 0 1) :up (vec3 0 1 0))
	// -----------------------------------------------------------------------
	env.AddFunction("connector", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		spec := catalog.ConnectorSpec{}

		if v, ok := pa.kw["name"]; ok {
			s, err := toString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("connector: name: %w", err)
			}
			spec.Name = s
		}
		var err error
		if spec.Frame.Position, err = kwVec(pa, "at", geom.Zero); err != nil {
			return zygo.SexpNull, fmt.Errorf("connector: at: %w", err)
		}
		if spec.Frame.Forward, err = kwVec(pa, "forward", geom.Forward); err != nil {
			return zygo.SexpNull, fmt.Errorf("connector: forward: %w", err)
		}
		if spec.Frame.Up, err = kwVec(pa, "up", geom.Up); err != nil {
			return zygo.SexpNull, fmt.Errorf("connector: up: %w", err)
		}

		return &sexpConnector{spec: spec}, nil
	})

	// -----------------------------------------------------------------------
	// (defmodule "hall" :weight 2 :visual (box 2 3 6) :collider (list ...)
	//            :connectors (list (connector ...) ...) :tags (list "hall")
	//            :from (module "other"))
	// -----------------------------------------------------------------------
	env.AddFunction("defmodule", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("defmodule requires a name")
		}
		modName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defmodule: name: %w", err)
		}

		mt := &catalog.ModuleType{Name: modName, Weight: 1}

		// :from copies geometry and connectors from an earlier module.
		if v, ok := pa.kw["from"]; ok {
			base, err := toModule(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("defmodule %q: from: %w", modName, err)
			}
			mt.Weight = base.Weight
			mt.Visuals = append(mt.Visuals, base.Visuals...)
			mt.Colliders = append(mt.Colliders, base.Colliders...)
			mt.Connectors = append(mt.Connectors, base.Connectors...)
			mt.Tags = append(mt.Tags, base.Tags...)
		}

		if mt.Weight, err = kwFloat(pa, "weight", mt.Weight); err != nil {
			return zygo.SexpNull, fmt.Errorf("defmodule %q: weight: %w", modName, err)
		}
		if v, ok := pa.kw["visual"]; ok {
			solids, err := toSolids(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("defmodule %q: visual: %w", modName, err)
			}
			mt.Visuals = solids
		}
		if v, ok := pa.kw["collider"]; ok {
			solids, err := toSolids(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("defmodule %q: collider: %w", modName, err)
			}
			mt.Colliders = solids
		}
		if v, ok := pa.kw["connectors"]; ok {
			items, err := sexpListToSlice(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("defmodule %q: connectors: %w", modName, err)
			}
			mt.Connectors = nil
			for i, item := range items {
				conn, ok := item.(*sexpConnector)
				if !ok {
					return zygo.SexpNull, fmt.Errorf("defmodule %q: connector %d: expected connector, got %T (%s)",
						modName, i, item, item.SexpString(nil))
				}
				mt.Connectors = append(mt.Connectors, conn.spec)
			}
		}
		if v, ok := pa.kw["tags"]; ok {
			items, err := sexpListToSlice(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("defmodule %q: tags: %w", modName, err)
			}
			mt.Tags = nil
			for _, item := range items {
				tag, err := toKeywordString(item)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("defmodule %q: tag: %w", modName, err)
				}
				mt.Tags = append(mt.Tags, tag)
			}
		}

		if err := c.Add(mt); err != nil {
			return zygo.SexpNull, fmt.Errorf("defmodule: %w", err)
		}
		return &sexpModule{module: mt}, nil
	})

	// -----------------------------------------------------------------------
	// (module "hall")
	// -----------------------------------------------------------------------
	env.AddFunction("module", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("module requires a name argument")
		}
		modName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("module: name: %w", err)
		}
		mt, ok := c.Lookup(modName)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("module: no module named %q", modName)
		}
		return &sexpModule{module: mt}, nil
	})
}
