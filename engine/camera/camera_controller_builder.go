package camera

import "github.com/go-gl/mathgl/mgl32"

// OrbitControllerOption is a functional option for configuring an OrbitController.
type OrbitControllerOption func(*orbitController)

// WithRadius sets the initial distance from the pivot. It is clamped to the radius bounds.
//
// Parameters:
//   - radius: distance from the pivot
//
// Returns:
//   - OrbitControllerOption: option function to apply
func WithRadius(radius float32) OrbitControllerOption {
	return func(oc *orbitController) {
		oc.radius = radius
	}
}

// WithAzimuth sets the initial horizontal angle around the Y axis, 0 being +Z.
func WithAzimuth(azimuth float32) OrbitControllerOption {
	return func(oc *orbitController) {
		oc.azimuth = azimuth
	}
}

// WithElevation sets the initial vertical angle from the horizontal plane.
func WithElevation(elevation float32) OrbitControllerOption {
	return func(oc *orbitController) {
		oc.elevation = elevation
	}
}

// WithPivot sets the point the camera orbits and looks at.
func WithPivot(p mgl32.Vec3) OrbitControllerOption {
	return func(oc *orbitController) {
		oc.pivot = p
	}
}

// WithRadiusBounds limits how far Zoom and SetRadius can move the camera.
//
// Parameters:
//   - min: closest distance to the pivot
//   - max: farthest distance from the pivot
//
// Returns:
//   - OrbitControllerOption: option function to apply
func WithRadiusBounds(min, max float32) OrbitControllerOption {
	return func(oc *orbitController) {
		oc.minRadius, oc.maxRadius = min, max
	}
}

// WithElevationBounds limits the vertical angle so the camera never flips over a pole.
func WithElevationBounds(min, max float32) OrbitControllerOption {
	return func(oc *orbitController) {
		oc.minElevation, oc.maxElevation = min, max
	}
}

// WithOrbitSpeed sets the step in radians of the Orbit* methods.
func WithOrbitSpeed(speed float32) OrbitControllerOption {
	return func(oc *orbitController) {
		oc.orbitSpeed = speed
	}
}

// WithZoomSpeed scales Zoom input into world units.
func WithZoomSpeed(speed float32) OrbitControllerOption {
	return func(oc *orbitController) {
		oc.zoomSpeed = speed
	}
}
