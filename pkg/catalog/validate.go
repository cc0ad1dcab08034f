package catalog

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Severity indicates whether a problem makes a module unusable.
type Severity int

const (
	SeverityError   Severity = iota // module will be skipped
	SeverityWarning                 // informational
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Problem describes a single catalog finding.
type Problem struct {
	Module    string
	Connector int // -1 if module-level
	Message   string
	Severity  Severity
}

func (p Problem) Error() string {
	if p.Connector < 0 {
		return fmt.Sprintf("[%s] module %q: %s", p.Severity, p.Module, p.Message)
	}
	return fmt.Sprintf("[%s] module %q connector %d: %s", p.Severity, p.Module, p.Connector, p.Message)
}

// Validate inspects every entry and reports problems. It never mutates the
// catalog. An empty result means every entry is usable and well formed.
func (c *Catalog) Validate() []Problem {
	var problems []Problem
	if len(c.entries) == 0 {
		return []Problem{{Connector: -1, Message: "catalog is empty", Severity: SeverityError}}
	}
	usable := 0
	for _, m := range c.entries {
		ps := validateModule(m)
		problems = append(problems, ps...)
		if m.Usable() {
			usable++
		}
	}
	if usable == 0 {
		problems = append(problems, Problem{
			Connector: -1,
			Message:   "no usable modules",
			Severity:  SeverityError,
		})
	}
	return problems
}

func validateModule(m *ModuleType) []Problem {
	var problems []Problem
	add := func(conn int, sev Severity, format string, args ...any) {
		problems = append(problems, Problem{
			Module:    m.Name,
			Connector: conn,
			Message:   fmt.Sprintf(format, args...),
			Severity:  sev,
		})
	}

	if len(m.Visuals) == 0 && len(m.Colliders) == 0 {
		add(-1, SeverityError, "no visual or collider geometry")
	}
	switch {
	case math.IsNaN(m.Weight):
		add(-1, SeverityError, "weight is NaN")
	case math.IsInf(m.Weight, 0):
		add(-1, SeverityError, "weight %g is not finite", m.Weight)
	case m.Weight <= 0:
		add(-1, SeverityWarning, "weight %g is never drawn unless every weight in its pool is zero", m.Weight)
	}
	if len(m.Connectors) == 0 {
		add(-1, SeverityWarning, "no connectors; only usable as a starting module")
	}

	names := make(map[string]int)
	for i, cs := range m.Connectors {
		f := cs.Frame
		if r3.Norm(f.Forward) < 1e-9 {
			add(i, SeverityError, "forward direction is zero")
			continue
		}
		if r3.Norm(r3.Cross(f.Forward, f.Up)) < 1e-9 {
			add(i, SeverityWarning, "up is parallel to forward; roll is arbitrary")
		}
		if cs.Name == "" {
			continue
		}
		if prev, dup := names[cs.Name]; dup {
			add(i, SeverityWarning, "name %q already used by connector %d", cs.Name, prev)
		} else {
			names[cs.Name] = i
		}
	}
	return problems
}
