package common

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-5
}

func TestClipZeroToOneMapsNearAndFar(t *testing.T) {
	near, far := float32(0.25), float32(20)
	proj := ClipZeroToOne.Mul4(mgl32.Perspective(mgl32.DegToRad(45), 1, near, far))

	n := proj.Mul4x1(mgl32.Vec4{0, 0, -near, 1})
	if z := n.Z() / n.W(); !approx(z, 0) {
		t.Errorf("near plane depth = %v, want 0", z)
	}
	f := proj.Mul4x1(mgl32.Vec4{0, 0, -far, 1})
	if z := f.Z() / f.W(); !approx(z, 1) {
		t.Errorf("far plane depth = %v, want 1", z)
	}
}

func TestFrustumSphereVisible(t *testing.T) {
	proj := ClipZeroToOne.Mul4(mgl32.Perspective(mgl32.DegToRad(45), 1, 0.25, 20))
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 10}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	f := ExtractFrustum(proj.Mul4(view))

	tests := []struct {
		name   string
		center mgl32.Vec3
		radius float32
		want   bool
	}{
		{"origin", mgl32.Vec3{}, 1, true},
		{"behind camera", mgl32.Vec3{0, 0, 12}, 1, false},
		{"beyond far", mgl32.Vec3{0, 0, -15}, 1, false},
		{"far left", mgl32.Vec3{-50, 0, 0}, 1, false},
		{"straddling near", mgl32.Vec3{0, 0, 10}, 0.5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.SphereVisible(tt.center, tt.radius); got != tt.want {
				t.Errorf("SphereVisible(%v, %v) = %v, want %v", tt.center, tt.radius, got, tt.want)
			}
		})
	}
}

func TestHSLToRGB(t *testing.T) {
	tests := []struct {
		h    float32
		want [3]float32
	}{
		{0, [3]float32{1, 0, 0}},
		{1.0 / 3.0, [3]float32{0, 1, 0}},
		{2.0 / 3.0, [3]float32{0, 0, 1}},
	}
	for _, tt := range tests {
		got := HSLToRGB(tt.h, 1, 0.5)
		for i := range got {
			if !approx(got[i], tt.want[i]) {
				t.Errorf("HSLToRGB(%v) = %v, want %v", tt.h, got, tt.want)
				break
			}
		}
	}
}

func TestBuildModelMatrixTranslatesAndScales(t *testing.T) {
	m := BuildModelMatrix(mgl32.Vec3{1, 2, 3}, mgl32.Vec3{}, mgl32.Vec3{2, 2, 2})
	p := m.Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	if !approx(p.X(), 3) || !approx(p.Y(), 2) || !approx(p.Z(), 3) {
		t.Errorf("transformed point = %v, want (3,2,3)", p)
	}
}
