package camera

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestDefaultCameraProjectsOriginToCenter(t *testing.T) {
	c := NewCamera()
	clip := c.ViewProjectionMatrix().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	ndc := clip.Vec3().Mul(1 / clip.W())
	if math.Abs(float64(ndc.X())) > 1e-6 || math.Abs(float64(ndc.Y())) > 1e-6 {
		t.Errorf("origin projects to %v, want screen center", ndc)
	}
	if ndc.Z() <= 0 || ndc.Z() >= 1 {
		t.Errorf("origin depth %v outside (0, 1)", ndc.Z())
	}
}

func TestSetAspectUpdatesProjection(t *testing.T) {
	c := NewCamera(WithAspect(1))
	before := c.ProjectionMatrix()
	c.SetAspect(2)
	if c.Aspect() != 2 {
		t.Fatalf("Aspect = %v, want 2", c.Aspect())
	}
	after := c.ProjectionMatrix()
	if after[0] != before[0]/2 {
		t.Errorf("x scale = %v, want %v", after[0], before[0]/2)
	}
	c.SetAspect(0)
	if c.Aspect() != 2 {
		t.Error("non-positive aspect must be ignored")
	}
}

func TestCameraUniformLayout(t *testing.T) {
	c := NewCamera(WithPosition(mgl32.Vec3{1, 2, 3}))
	u := NewGPUCameraUniform(c)
	if u.Size() != 80 || len(u.Marshal()) != 80 {
		t.Errorf("uniform size = %d, want 80", u.Size())
	}
	if u.Position != [4]float32{1, 2, 3, 1} {
		t.Errorf("Position = %v", u.Position)
	}
}
