package scene

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-peel/engine/game_object"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/material"
)

func TestTraverseHonorsGroupVisibility(t *testing.T) {
	s := NewDepthPeelDemo(1, 1)
	count := func() int {
		n := 0
		s.Traverse(func(game_object.GameObject) { n++ })
		return n
	}
	if got := count(); got != DemoSphereCount+1 {
		t.Fatalf("traversed %d objects, want %d", got, DemoSphereCount+1)
	}
	s.TransparentGroup().SetVisible(false)
	if got := count(); got != 1 {
		t.Errorf("with transparent hidden traversed %d, want 1", got)
	}
	s.OpaqueGroup().SetVisible(false)
	s.TransparentGroup().SetVisible(true)
	if got := count(); got != DemoSphereCount {
		t.Errorf("with opaque hidden traversed %d, want %d", got, DemoSphereCount)
	}
}

func TestDemoDeterministic(t *testing.T) {
	a := NewDepthPeelDemo(7, 1).TransparentGroup().Objects()
	b := NewDepthPeelDemo(7, 1).TransparentGroup().Objects()
	for i := range a {
		ax, ay, az := a[i].Position()
		bx, by, bz := b[i].Position()
		if ax != bx || ay != by || az != bz {
			t.Fatalf("object %d differs between runs", i)
		}
		if a[i].Material().Opacity() != b[i].Material().Opacity() {
			t.Fatalf("opacity %d differs between runs", i)
		}
	}
}

func TestDemoTransparentMaterials(t *testing.T) {
	s := NewDepthPeelDemo(3, 1)
	mats := s.TransparentGroup().Materials()
	if len(mats) != DemoSphereCount {
		t.Fatalf("materials = %d", len(mats))
	}
	for _, m := range mats {
		if _, ok := material.AsPeelable(m); !ok {
			t.Fatalf("%s is not peelable", m.Name())
		}
		if o := m.Opacity(); o < 0.25 || o > 0.75 {
			t.Errorf("%s opacity = %v", m.Name(), o)
		}
		if m.DepthWrite() {
			t.Errorf("%s writes depth", m.Name())
		}
	}
	for _, obj := range s.TransparentGroup().Objects() {
		x, y, z := obj.Position()
		for _, c := range []float32{x, y, z} {
			if c < -1 || c > 1 {
				t.Fatalf("%s position out of range: %v %v %v", obj.Name(), x, y, z)
			}
		}
	}
	env := s.LightEnvironment()
	if len(env.Directional) != 1 || env.Ambient.X() != 0.5 {
		t.Errorf("light environment = %+v", env)
	}
}

func TestGroupMaterialsSkipsMissing(t *testing.T) {
	g := NewGroup("g")
	shared := material.NewMaterial()
	g.Add(
		game_object.NewGameObject(game_object.WithMaterial(shared)),
		game_object.NewGameObject(game_object.WithMaterial(shared)),
		game_object.NewGameObject(),
	)
	if got := len(g.Materials()); got != 1 {
		t.Errorf("Materials() = %d, want 1", got)
	}
	obj := g.Objects()[2]
	if !g.Remove(obj.ID()) || g.Len() != 2 {
		t.Errorf("Remove failed, len = %d", g.Len())
	}
}
