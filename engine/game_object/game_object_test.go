package game_object

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-peel/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

func TestGameObjectTransform(t *testing.T) {
	g := NewGameObject(
		WithModel(model.NewSphere(1, 8, 4)),
		WithPosition(1, 2, 3),
		WithScale(0.5, 2, 1),
	)
	if !g.Enabled() {
		t.Fatal("new object should be enabled")
	}
	got := g.ModelMatrix().Mul4x1(mgl32.Vec4{1, 1, 1, 1})
	want := mgl32.Vec4{1.5, 4, 4, 1}
	if !got.ApproxEqual(want) {
		t.Errorf("ModelMatrix * (1,1,1) = %v, want %v", got, want)
	}
	c, r := g.Bounds()
	if c != (mgl32.Vec3{1, 2, 3}) || r != 2 {
		t.Errorf("Bounds = %v, %v", c, r)
	}
	if g.Material() != nil {
		t.Error("material should default to nil")
	}
}

func TestGameObjectIDsUnique(t *testing.T) {
	a, b := NewGameObject(), NewGameObject()
	if a.ID() == b.ID() {
		t.Errorf("ids collide: %d", a.ID())
	}
}
