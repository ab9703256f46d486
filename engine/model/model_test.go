package model

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestNewSphere(t *testing.T) {
	s := NewSphere(1, 32, 16)
	if got, want := len(s.Vertices()), 33*17; got != want {
		t.Fatalf("vertices = %d, want %d", got, want)
	}
	// 16 rows * 32 columns * 2 triangles, minus one triangle per column at each pole
	if got, want := s.IndexCount(), (32*16*2-2*32)*3; got != want {
		t.Fatalf("indices = %d, want %d", got, want)
	}
	if s.BoundingRadius() != 1 {
		t.Errorf("BoundingRadius = %v", s.BoundingRadius())
	}
	for i, v := range s.Vertices() {
		p := mgl32.Vec3(v.Position)
		if d := math.Abs(float64(p.Len() - 1)); d > 1e-5 {
			t.Fatalf("vertex %d off the sphere by %v", i, d)
		}
	}
}

func TestSphereWindingFacesOutward(t *testing.T) {
	s := NewSphere(1, 8, 6)
	v := s.Vertices()
	idx := s.Indices()
	for i := 0; i < len(idx); i += 3 {
		a, b, c := mgl32.Vec3(v[idx[i]].Position), mgl32.Vec3(v[idx[i+1]].Position), mgl32.Vec3(v[idx[i+2]].Position)
		n := b.Sub(a).Cross(c.Sub(a))
		centroid := a.Add(b).Add(c).Mul(1.0 / 3)
		if n.Dot(centroid) <= 0 {
			t.Fatalf("triangle %d winds inward", i/3)
		}
	}
}

func TestModelData(t *testing.T) {
	s := NewQuad(2)
	if len(s.VertexData()) != 4*24 || len(s.IndexData()) != 6*4 {
		t.Errorf("data sizes = %d, %d", len(s.VertexData()), len(s.IndexData()))
	}
	if r := s.BoundingRadius(); math.Abs(float64(r)-math.Sqrt2) > 1e-6 {
		t.Errorf("BoundingRadius = %v", r)
	}
	md := NewGPUModelData(mgl32.Scale3D(2, 2, 2))
	if md.Size() != 128 || md.Normal[0] != 0.5 {
		t.Errorf("model data = %d bytes, normal[0] = %v", md.Size(), md.Normal[0])
	}
}
