package dungeon

import (
	"math"

	"github.com/chazu/warren/pkg/catalog"
)

// Default connector policy thresholds: below DefaultDepthFirst the newest
// open connector is taken, below DefaultRandom a uniformly random one, and
// otherwise the most constrained.
const (
	DefaultDepthFirst = 0.80
	DefaultRandom     = 0.95
)

// selectConnector picks the open connector to resolve next.
func (s *search) selectConnector() *Connector {
	roll := s.rng.Float64()
	switch {
	case roll < s.opts.DepthFirst:
		return s.frontier.Last()
	case roll < s.opts.Random:
		return s.frontier.At(s.rng.Intn(s.frontier.Len()))
	default:
		return s.mostConstrained()
	}
}

// mostConstrained returns the open connector with the fewest viable
// entries, the first one on ties. It stops early at a connector with none.
func (s *search) mostConstrained() *Connector {
	var best *Connector
	least := math.MaxInt
	for _, c := range s.frontier.Items() {
		n := len(s.viable(c))
		if n < least {
			best, least = c, n
			if n == 0 {
				break
			}
		}
	}
	if best == nil {
		return s.frontier.Last()
	}
	return best
}

// viable returns the entries that admit an overlap-free placement at c, in
// catalog order. Results are memoised until the search state next changes.
func (s *search) viable(c *Connector) []*catalog.ModuleType {
	if v, ok := s.memo[c]; ok {
		return v
	}
	v := ViableEntries(s.adapter, s.oracle, s.handles(), c.Frame(s.adapter), s.entries)
	if s.memo == nil {
		s.memo = make(map[*Connector][]*catalog.ModuleType)
	}
	s.memo[c] = v
	return v
}

// growthPool prefers entries with more than one connector so a branch is
// not capped while it can still grow.
func growthPool(viable []*catalog.ModuleType) []*catalog.ModuleType {
	var growth, terminal []*catalog.ModuleType
	for _, m := range viable {
		if m.Terminal() {
			terminal = append(terminal, m)
		} else {
			growth = append(growth, m)
		}
	}
	if len(growth) > 0 {
		return growth
	}
	return terminal
}

// pickWeighted draws an index from pool with probability proportional to
// max(0, weight). When no entry has positive weight the draw is uniform.
func (s *search) pickWeighted(pool []*catalog.ModuleType) int {
	total := 0.0
	for _, m := range pool {
		total += math.Max(0, m.Weight)
	}
	if total <= 0 {
		return s.rng.Intn(len(pool))
	}
	roll := s.rng.Float64() * total
	for i, m := range pool {
		roll -= math.Max(0, m.Weight)
		if roll <= 0 {
			return i
		}
	}
	return len(pool) - 1
}
