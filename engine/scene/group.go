package scene

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-peel/engine/game_object"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/material"
)

type group struct {
	name    string
	visible atomic.Bool
	mu      sync.RWMutex
	objects []game_object.GameObject
}

// Group is a named, independently visible set of GameObjects.
type Group interface {
	// Name returns the group's label.
	Name() string

	// Visible reports whether the group takes part in traversal.
	Visible() bool

	// SetVisible shows or hides the whole group.
	//
	// Parameters:
	//   - visible: the new visibility
	SetVisible(visible bool)

	// Add appends objects to the group.
	//
	// Parameters:
	//   - objs: the objects to add
	Add(objs ...game_object.GameObject)

	// Remove drops the object with the given ID.
	//
	// Parameters:
	//   - id: the object ID
	//
	// Returns:
	//   - bool: true if an object was removed
	Remove(id uint64) bool

	// Objects returns a snapshot of the group's objects in insertion order.
	//
	// Returns:
	//   - []game_object.GameObject: the objects
	Objects() []game_object.GameObject

	// Len returns the number of objects in the group.
	Len() int

	// Materials returns the distinct non-nil materials of the group's objects, in first-use order.
	// Objects without a material are skipped.
	//
	// Returns:
	//   - []material.Material: the materials
	Materials() []material.Material
}

var _ Group = &group{}

// NewGroup creates an empty, visible Group.
//
// Parameters:
//   - name: the group label
//
// Returns:
//   - Group: the new group
func NewGroup(name string) Group {
	g := &group{name: name}
	g.visible.Store(true)
	return g
}

func (g *group) Name() string {
	return g.name
}

func (g *group) Visible() bool {
	return g.visible.Load()
}

func (g *group) SetVisible(visible bool) {
	g.visible.Store(visible)
}

func (g *group) Add(objs ...game_object.GameObject) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, o := range objs {
		if o != nil {
			g.objects = append(g.objects, o)
		}
	}
}

func (g *group) Remove(id uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := slices.IndexFunc(g.objects, func(o game_object.GameObject) bool { return o.ID() == id })
	if i < 0 {
		return false
	}
	g.objects = slices.Delete(g.objects, i, i+1)
	return true
}

func (g *group) Objects() []game_object.GameObject {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.objects)
}

func (g *group) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.objects)
}

func (g *group) Materials() []material.Material {
	g.mu.RLock()
	defer g.mu.RUnlock()
	seen := make(map[uint64]struct{}, len(g.objects))
	var out []material.Material
	for _, o := range g.objects {
		m := o.Material()
		if m == nil {
			continue
		}
		if _, ok := seen[m.ID()]; ok {
			continue
		}
		seen[m.ID()] = struct{}{}
		out = append(out, m)
	}
	return out
}
