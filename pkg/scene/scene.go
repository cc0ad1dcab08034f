// Package scene is the geometry adapter the generator drives: it creates,
// moves and destroys module instances and answers world-space queries about
// them. Every call takes effect immediately.
package scene

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/chazu/warren/pkg/catalog"
	"github.com/chazu/warren/pkg/geom"
	"github.com/chazu/warren/pkg/kernel"
)

var (
	// ErrInvalidModule is returned when instantiating an unusable module type.
	ErrInvalidModule = errors.New("scene: invalid module type")
	// ErrUnknownHandle is returned for handles that were never issued or
	// have been destroyed.
	ErrUnknownHandle = errors.New("scene: unknown handle")
)

// Handle identifies a module instance. The zero Handle is never issued.
type Handle uint64

// Adapter is the set of primitives the generator needs from a host scene.
// Query methods return zero values for unknown handles.
type Adapter interface {
	Instantiate(m *catalog.ModuleType) (Handle, error)
	Destroy(h Handle) error
	SetPose(h Handle, p geom.Pose) error
	Pose(h Handle) geom.Pose
	Module(h Handle) *catalog.ModuleType

	// Connectors returns the instance's connector frames in world space,
	// in the module type's connector order.
	Connectors(h Handle) []geom.Frame
	// Colliders returns the instance's collision solids in world space.
	Colliders(h Handle) []kernel.Solid
	// WorldBounds returns the axis-aligned bounds of the visual geometry.
	WorldBounds(h Handle) geom.Box
	// Penetration is the kernel's exact test between two world solids.
	Penetration(a, b kernel.Solid) (float64, bool)
}

// Container is an Adapter that can enumerate and clear its instances.
type Container interface {
	Adapter
	Handles() []Handle
	Clear()
}

type instance struct {
	module *catalog.ModuleType
	pose   geom.Pose

	// world-space caches, rebuilt lazily after SetPose
	colliders []kernel.Solid
	dirty     bool
}

// Scene is an in-memory Container backed by a geometry kernel.
type Scene struct {
	kernel    kernel.Kernel
	logger    *slog.Logger
	next      Handle
	instances map[Handle]*instance
	order     []Handle
}

// Compile-time interface check.
var _ Container = (*Scene)(nil)

// Option configures a Scene.
type Option func(*Scene)

// WithLogger sets the scene's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scene) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns an empty scene over k.
func New(k kernel.Kernel, opts ...Option) *Scene {
	s := &Scene{
		kernel:    k,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		instances: make(map[Handle]*instance),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Kernel returns the kernel the scene places solids with.
func (s *Scene) Kernel() kernel.Kernel {
	return s.kernel
}

// Instantiate creates an instance of m at the identity pose.
func (s *Scene) Instantiate(m *catalog.ModuleType) (Handle, error) {
	if !m.Usable() {
		name := "<nil>"
		if m != nil {
			name = m.Name
		}
		return 0, fmt.Errorf("%w: %q", ErrInvalidModule, name)
	}
	s.next++
	h := s.next
	s.instances[h] = &instance{module: m, pose: geom.Identity(), dirty: true}
	s.order = append(s.order, h)
	s.logger.Debug("instantiate", "handle", uint64(h), "module", m.Name)
	return h, nil
}

// Destroy removes an instance immediately.
func (s *Scene) Destroy(h Handle) error {
	if _, ok := s.instances[h]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	delete(s.instances, h)
	for i, o := range s.order {
		if o == h {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.logger.Debug("destroy", "handle", uint64(h))
	return nil
}

// SetPose moves an instance.
func (s *Scene) SetPose(h Handle, p geom.Pose) error {
	inst, ok := s.instances[h]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	inst.pose = p
	inst.dirty = true
	return nil
}

// Pose returns an instance's current pose.
func (s *Scene) Pose(h Handle) geom.Pose {
	if inst, ok := s.instances[h]; ok {
		return inst.pose
	}
	return geom.Pose{}
}

// Module returns the module type an instance was created from.
func (s *Scene) Module(h Handle) *catalog.ModuleType {
	if inst, ok := s.instances[h]; ok {
		return inst.module
	}
	return nil
}

// Connectors returns world-space connector frames.
func (s *Scene) Connectors(h Handle) []geom.Frame {
	inst, ok := s.instances[h]
	if !ok {
		return nil
	}
	out := make([]geom.Frame, len(inst.module.Connectors))
	for i, c := range inst.module.Connectors {
		out[i] = inst.pose.Frame(c.Frame)
	}
	return out
}

// Colliders returns world-space collision solids.
func (s *Scene) Colliders(h Handle) []kernel.Solid {
	inst, ok := s.instances[h]
	if !ok {
		return nil
	}
	if inst.dirty {
		placed := make([]kernel.Solid, 0, len(inst.module.Colliders))
		for _, c := range inst.module.Colliders {
			placed = append(placed, s.kernel.Place(c, inst.pose))
		}
		inst.colliders = placed
		inst.dirty = false
	}
	return inst.colliders
}

// WorldBounds returns the visual bounds transformed by the instance pose.
// A module without visuals yields a zero-size box at its position.
func (s *Scene) WorldBounds(h Handle) geom.Box {
	inst, ok := s.instances[h]
	if !ok {
		return geom.Box{}
	}
	if len(inst.module.Visuals) == 0 {
		return geom.PointBox(inst.pose.Position)
	}
	return inst.module.LocalBounds().Transform(inst.pose)
}

// Penetration delegates to the kernel.
func (s *Scene) Penetration(a, b kernel.Solid) (float64, bool) {
	return s.kernel.Penetration(a, b)
}

// Handles returns live instances in creation order.
func (s *Scene) Handles() []Handle {
	out := make([]Handle, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of live instances.
func (s *Scene) Len() int {
	return len(s.order)
}

// Clear destroys every instance.
func (s *Scene) Clear() {
	if len(s.order) > 0 {
		s.logger.Debug("clear", "instances", len(s.order))
	}
	s.instances = make(map[Handle]*instance)
	s.order = nil
}
