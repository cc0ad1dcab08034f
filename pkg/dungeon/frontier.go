package dungeon

import (
	"github.com/chazu/warren/pkg/catalog"
	"github.com/chazu/warren/pkg/geom"
	"github.com/chazu/warren/pkg/scene"
)

// Instance is a module placed during the search. Instances form a tree by
// attachment: every instance but the start module has the parent it was
// docked onto.
type Instance struct {
	Handle   scene.Handle
	Module   *catalog.ModuleType
	Index    int // position in placement order
	Parent   *Instance
	Children []*Instance
	Attach   int // connector docked onto the parent, -1 for the start module
}

// isAncestor reports whether a is inst or one of its ancestors.
func (a *Instance) isAncestor(inst *Instance) bool {
	for cur := inst; cur != nil; cur = cur.Parent {
		if cur == a {
			return true
		}
	}
	return false
}

// subtree returns a and all of its descendants, parents first.
func (a *Instance) subtree() []*Instance {
	out := []*Instance{a}
	for i := 0; i < len(out); i++ {
		out = append(out, out[i].Children...)
	}
	return out
}

// Connector refers to one connector of a placed instance.
type Connector struct {
	Owner *Instance
	Index int
}

// Frame returns the connector's current world frame.
func (c *Connector) Frame(a scene.Adapter) geom.Frame {
	return a.Connectors(c.Owner.Handle)[c.Index]
}

// Frontier is the ordered set of open connectors. Insertion order matters:
// the depth-first policy always picks the most recently added connector.
type Frontier struct {
	items []*Connector
}

// Len returns the number of open connectors.
func (f *Frontier) Len() int {
	return len(f.items)
}

// At returns the i'th open connector.
func (f *Frontier) At(i int) *Connector {
	return f.items[i]
}

// Last returns the most recently added open connector, or nil.
func (f *Frontier) Last() *Connector {
	if len(f.items) == 0 {
		return nil
	}
	return f.items[len(f.items)-1]
}

// Items returns a copy of the open connectors in order.
func (f *Frontier) Items() []*Connector {
	out := make([]*Connector, len(f.items))
	copy(out, f.items)
	return out
}

// Index returns c's position, or -1.
func (f *Frontier) Index(c *Connector) int {
	for i, it := range f.items {
		if it == c {
			return i
		}
	}
	return -1
}

// Push appends connectors.
func (f *Frontier) Push(cs ...*Connector) {
	f.items = append(f.items, cs...)
}

// Take removes c and returns the undo that reinserts it at its original
// position. Taking a connector that is not open is a no-op.
func (f *Frontier) Take(c *Connector) (restore func()) {
	idx := f.Index(c)
	if idx < 0 {
		return func() {}
	}
	f.removeAt(idx)
	return func() { f.insertAt(idx, c) }
}

// DropOwner removes every connector owned by inst and returns how many
// were removed.
func (f *Frontier) DropOwner(inst *Instance) int {
	kept := f.items[:0]
	for _, c := range f.items {
		if c.Owner != inst {
			kept = append(kept, c)
		}
	}
	n := len(f.items) - len(kept)
	for i := len(kept); i < len(f.items); i++ {
		f.items[i] = nil
	}
	f.items = kept
	return n
}

func (f *Frontier) removeAt(i int) {
	f.items = append(f.items[:i], f.items[i+1:]...)
}

func (f *Frontier) insertAt(i int, c *Connector) {
	if i > len(f.items) {
		i = len(f.items)
	}
	f.items = append(f.items, nil)
	copy(f.items[i+1:], f.items[i:])
	f.items[i] = c
}
