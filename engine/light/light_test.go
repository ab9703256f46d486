package light

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestEnvironmentLambert(t *testing.T) {
	env := NewEnvironment([]Light{
		NewLight(LightTypeDirectional, WithPosition(0, 0, 1), WithIntensity(3)),
		NewLight(LightTypeAmbient, WithIntensity(0.5)),
		NewLight(LightTypeDirectional, WithEnabled(false)),
	})
	if len(env.Directional) != 1 {
		t.Fatalf("directional lights = %d, want 1", len(env.Directional))
	}

	tests := []struct {
		name   string
		normal mgl32.Vec3
		want   float32
	}{
		{"facing", mgl32.Vec3{0, 0, 1}, 3.5},
		{"grazing", mgl32.Vec3{1, 0, 0}, 0.5},
		{"away", mgl32.Vec3{0, 0, -1}, 0.5},
	}
	for _, tt := range tests {
		got := env.Lambert(tt.normal)
		if math.Abs(float64(got.X()-tt.want)) > 1e-6 {
			t.Errorf("%s: Lambert = %v, want %v", tt.name, got.X(), tt.want)
		}
	}
}

func TestEnvironmentCapsDirectionalLights(t *testing.T) {
	var lights []Light
	for range MaxDirectionalLights + 2 {
		lights = append(lights, NewLight(LightTypeDirectional))
	}
	env := NewEnvironment(lights)
	if len(env.Directional) != MaxDirectionalLights {
		t.Errorf("directional = %d, want %d", len(env.Directional), MaxDirectionalLights)
	}
	g := env.GPU()
	if g.Size() != 160 || len(g.Marshal()) != 160 {
		t.Errorf("GPULights size = %d, want 160", g.Size())
	}
	if g.Count[0] != MaxDirectionalLights {
		t.Errorf("Count = %d", g.Count[0])
	}
}
