package graph

import (
	"strings"

	"github.com/chazu/warren/pkg/geom"
	"github.com/google/uuid"
)

// namespace scopes node IDs so equal content yields equal IDs across runs.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("warren/layout"))

// NodeID is a content-addressed identifier for a placed module.
type NodeID string

// NewNodeID derives an ID from the given parts.
func NewNodeID(parts ...string) NodeID {
	return NodeID(uuid.NewSHA1(namespace, []byte(strings.Join(parts, "/"))).String())
}

// IsZero reports whether the ID is unset.
func (id NodeID) IsZero() bool {
	return id == ""
}

// Short returns the first eight characters for messages.
func (id NodeID) Short() string {
	if len(id) > 8 {
		return string(id[:8])
	}
	return string(id)
}

func (id NodeID) String() string {
	return string(id)
}

// Port is a module connector in world space.
type Port struct {
	Name     string   `json:"name,omitempty"`
	Position geom.Vec `json:"position"`
	Forward  geom.Vec `json:"forward"`
}

// Node is one placed module.
type Node struct {
	ID       NodeID    `json:"id"`
	Index    int       `json:"index"`
	Module   string    `json:"module"`
	Pose     geom.Pose `json:"pose"`
	Parent   NodeID    `json:"parent,omitempty"`
	Attach   int       `json:"attach"`
	Children []NodeID  `json:"children,omitempty"`

	// Ports is empty when the module type was not resolved.
	Ports []Port `json:"ports,omitempty"`
}

// EdgeKind distinguishes tree attachments from loop closures.
type EdgeKind int

const (
	EdgeAttach EdgeKind = iota // child docked onto parent
	EdgeLoop                   // two open connectors closed together
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeAttach:
		return "attach"
	case EdgeLoop:
		return "loop"
	default:
		return "unknown"
	}
}

// Edge joins connector PortA of A with connector PortB of B.
type Edge struct {
	Kind  EdgeKind `json:"kind"`
	A     NodeID   `json:"a"`
	PortA int      `json:"port_a"`
	B     NodeID   `json:"b"`
	PortB int      `json:"port_b"`
	// Flexed attach edges were stretched by a loop closure.
	Flexed bool `json:"flexed,omitempty"`
}

// OpenPort names a connector nothing was docked onto.
type OpenPort struct {
	Node NodeID `json:"node"`
	Port int    `json:"port"`
}
