package graph

import "fmt"

// ValidationSeverity indicates whether a finding invalidates the layout or
// is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // layout is invalid
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	NodeID   NodeID             // which node has the problem (zero if graph-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.NodeID.IsZero() {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] node %s: %s", e.Severity, e.NodeID.Short(), e.Message)
}

// ValidationResult bundles errors and warnings from all validation tiers.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// OK reports whether no error-severity finding was made.
func (r ValidationResult) OK() bool {
	return len(r.Errors) == 0
}

// Validate runs the structural checks on g and returns every finding. An
// empty slice means the graph is a well-formed layout of at most
// maxModules modules. Validate never mutates the graph.
func Validate(g *LayoutGraph, maxModules int) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateRoots(g)...)
	errs = append(errs, validateTree(g)...)
	errs = append(errs, validateReferences(g)...)
	errs = append(errs, validatePorts(g)...)
	errs = append(errs, validateBudget(g, maxModules)...)
	return errs
}

// ValidateAll runs the structural and geometric tiers and separates errors
// from warnings.
func ValidateAll(g *LayoutGraph, maxModules int) ValidationResult {
	var result ValidationResult
	findings := Validate(g, maxModules)
	findings = append(findings, validateGeometry(g)...)
	for _, e := range findings {
		if e.Severity == SeverityWarning {
			result.Warnings = append(result.Warnings, e)
		} else {
			result.Errors = append(result.Errors, e)
		}
	}
	return result
}

// validateRoots checks that the layout grows from exactly one start module.
func validateRoots(g *LayoutGraph) []ValidationError {
	if g.NodeCount() == 0 {
		return []ValidationError{{Message: "layout has no modules", Severity: SeverityError}}
	}
	switch len(g.Roots) {
	case 1:
		return nil
	case 0:
		return []ValidationError{{Message: "layout has no start module", Severity: SeverityError}}
	default:
		return []ValidationError{{
			Message:  fmt.Sprintf("layout has %d start modules, want 1", len(g.Roots)),
			Severity: SeverityError,
		}}
	}
}

// validateTree walks the attachment tree with 3-colour DFS. A gray node met
// again is a cycle among attach edges; a node never reached from a root is
// detached from the layout.
func validateTree(g *LayoutGraph) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make(map[NodeID]int)
	var errs []ValidationError

	var visit func(id NodeID) bool // returns true if a cycle was found
	visit = func(id NodeID) bool {
		switch color[id] {
		case black:
			return false
		case gray:
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("attachment cycle through node %s", id.Short()),
				Severity: SeverityError,
			})
			return true
		}
		color[id] = gray
		node, ok := g.Nodes[id]
		if !ok {
			// Dangling reference; handled by validateReferences.
			color[id] = black
			return false
		}
		for _, child := range node.Children {
			if visit(child) {
				return true
			}
		}
		color[id] = black
		return false
	}

	for _, root := range g.Roots {
		if visit(root) {
			return errs
		}
	}
	for _, id := range g.Order {
		if color[id] == white {
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  "module is not attached to the start module",
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateReferences checks that every NodeID referenced by a node, an
// edge or an open port exists, and that parent and child links agree.
func validateReferences(g *LayoutGraph) []ValidationError {
	var errs []ValidationError
	missing := func(owner, ref NodeID, what string) {
		errs = append(errs, ValidationError{
			NodeID:   owner,
			Message:  fmt.Sprintf("%s reference %s does not exist", what, ref.Short()),
			Severity: SeverityError,
		})
	}

	for _, id := range g.Order {
		node := g.Nodes[id]
		if !node.Parent.IsZero() {
			parent, ok := g.Nodes[node.Parent]
			if !ok {
				missing(id, node.Parent, "parent")
			} else if !contains(parent.Children, id) {
				errs = append(errs, ValidationError{
					NodeID:   id,
					Message:  fmt.Sprintf("parent %s does not list this node as a child", node.Parent.Short()),
					Severity: SeverityError,
				})
			}
		}
		for _, child := range node.Children {
			if _, ok := g.Nodes[child]; !ok {
				missing(id, child, "child")
			}
		}
	}
	for _, e := range g.Edges {
		if _, ok := g.Nodes[e.A]; !ok {
			missing("", e.A, e.Kind.String()+" edge")
		}
		if _, ok := g.Nodes[e.B]; !ok {
			missing("", e.B, e.Kind.String()+" edge")
		}
	}
	for _, o := range g.Open {
		if _, ok := g.Nodes[o.Node]; !ok {
			missing("", o.Node, "open port")
		}
	}
	return errs
}

type portKey struct {
	node NodeID
	port int
}

// validatePorts checks that no connector is used twice, that every attach
// edge matches a parent link and that port indices are in range.
func validatePorts(g *LayoutGraph) []ValidationError {
	var errs []ValidationError
	used := make(map[portKey]string)
	claim := func(k portKey, by string) {
		if n := g.Nodes[k.node]; n != nil && len(n.Ports) > 0 && (k.port < 0 || k.port >= len(n.Ports)) {
			errs = append(errs, ValidationError{
				NodeID:   k.node,
				Message:  fmt.Sprintf("%s uses connector %d of a module with %d", by, k.port, len(n.Ports)),
				Severity: SeverityError,
			})
			return
		}
		if prev, ok := used[k]; ok {
			errs = append(errs, ValidationError{
				NodeID:   k.node,
				Message:  fmt.Sprintf("connector %d used by both %s and %s", k.port, prev, by),
				Severity: SeverityError,
			})
			return
		}
		used[k] = by
	}

	attach := 0
	for _, e := range g.Edges {
		if e.A == e.B {
			errs = append(errs, ValidationError{
				NodeID:   e.A,
				Message:  fmt.Sprintf("%s edge joins a module to itself", e.Kind),
				Severity: SeverityError,
			})
			continue
		}
		if e.Kind == EdgeAttach {
			attach++
			if b := g.Nodes[e.B]; b != nil && (b.Parent != e.A || b.Attach != e.PortB) {
				errs = append(errs, ValidationError{
					NodeID:   e.B,
					Message:  "attach edge disagrees with the parent link",
					Severity: SeverityError,
				})
			}
		}
		claim(portKey{e.A, e.PortA}, e.Kind.String()+" edge")
		claim(portKey{e.B, e.PortB}, e.Kind.String()+" edge")
	}
	for _, o := range g.Open {
		claim(portKey{o.Node, o.Port}, "open list")
	}

	if n := g.NodeCount(); n > 0 && attach != n-1 {
		errs = append(errs, ValidationError{
			Message:  fmt.Sprintf("%d attach edges for %d modules, want %d", attach, n, n-1),
			Severity: SeverityError,
		})
	}
	return errs
}

// validateBudget checks the module count against maxModules. A layout
// that stopped short of its budget only draws a warning.
func validateBudget(g *LayoutGraph, maxModules int) []ValidationError {
	if maxModules < 1 {
		return []ValidationError{{
			Message:  fmt.Sprintf("module budget %d is below 1", maxModules),
			Severity: SeverityError,
		}}
	}
	n := g.NodeCount()
	switch {
	case n > maxModules:
		return []ValidationError{{
			Message:  fmt.Sprintf("%d modules exceed the budget of %d", n, maxModules),
			Severity: SeverityError,
		}}
	case n < maxModules:
		return []ValidationError{{
			Message:  fmt.Sprintf("%d of %d budgeted modules placed", n, maxModules),
			Severity: SeverityWarning,
		}}
	}
	return nil
}

func contains(ids []NodeID, id NodeID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
