package camera

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func vecNear(a, b mgl32.Vec3) bool {
	return a.Sub(b).Len() < 1e-4
}

func TestOrbitControllerPosition(t *testing.T) {
	tests := []struct {
		name      string
		azimuth   float32
		elevation float32
		want      mgl32.Vec3
	}{
		{"front", 0, 0, mgl32.Vec3{0, 1, 10}},
		{"quarter turn", math.Pi / 2, 0, mgl32.Vec3{10, 1, 0}},
		{"half turn", math.Pi, 0, mgl32.Vec3{0, 1, -10}},
		{"raised", 0, math.Pi / 6, mgl32.Vec3{0, 1 + 5, 10 * float32(math.Sqrt(3)/2)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oc := NewOrbitController(
				WithPivot(mgl32.Vec3{0, 1, 0}),
				WithAzimuth(tt.azimuth),
				WithElevation(tt.elevation),
			)
			if got := oc.Position(); !vecNear(got, tt.want) {
				t.Errorf("Position() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOrbitControllerZoomClamp(t *testing.T) {
	oc := NewOrbitController(WithRadius(10), WithRadiusBounds(4, 30), WithZoomSpeed(1))

	oc.Zoom(2)
	if got := oc.Radius(); got != 8 {
		t.Fatalf("Radius after Zoom(2) = %v, want 8", got)
	}
	oc.Zoom(100)
	if got := oc.Radius(); got != 4 {
		t.Errorf("Radius after zooming past the pivot = %v, want min 4", got)
	}
	oc.Zoom(-100)
	if got := oc.Radius(); got != 30 {
		t.Errorf("Radius after zooming out = %v, want max 30", got)
	}
	oc.SetRadius(1)
	if got := oc.Radius(); got != oc.MinRadius() {
		t.Errorf("SetRadius(1) = %v, want %v", got, oc.MinRadius())
	}
	if got := NewOrbitController(WithRadius(100)).Radius(); got != 30 {
		t.Errorf("initial radius not clamped: %v", got)
	}
}

func TestOrbitControllerElevationClamp(t *testing.T) {
	oc := NewOrbitController(WithElevationBounds(-0.5, 0.5), WithOrbitSpeed(0.2))
	for range 10 {
		oc.OrbitUp()
	}
	if got := oc.Elevation(); got != 0.5 {
		t.Errorf("Elevation after OrbitUp = %v, want 0.5", got)
	}
	oc.Rotate(0, -5)
	if got := oc.Elevation(); got != -0.5 {
		t.Errorf("Elevation after Rotate = %v, want -0.5", got)
	}
	oc.OrbitRight()
	oc.OrbitRight()
	oc.OrbitLeft()
	if got := oc.Azimuth(); math.Abs(float64(got-0.2)) > 1e-6 {
		t.Errorf("Azimuth = %v, want 0.2", got)
	}
}

func TestOrbitControllerApply(t *testing.T) {
	cam := NewCamera()
	oc := NewOrbitController(WithPivot(mgl32.Vec3{1, 2, 3}), WithRadius(5), WithAzimuth(math.Pi/2))
	oc.Apply(cam)
	if got := cam.Target(); got != (mgl32.Vec3{1, 2, 3}) {
		t.Errorf("camera target = %v, want pivot", got)
	}
	if got, want := cam.Position(), (mgl32.Vec3{6, 2, 3}); !vecNear(got, want) {
		t.Errorf("camera position = %v, want %v", got, want)
	}
	if d := cam.Position().Sub(cam.Target()).Len(); math.Abs(float64(d-5)) > 1e-4 {
		t.Errorf("camera distance = %v, want radius 5", d)
	}
}
