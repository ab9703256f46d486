package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-peel/common"
	"github.com/go-gl/mathgl/mgl32"
)

// OrbitController positions a camera on a sphere around a pivot using spherical coordinates
// (radius, azimuth, elevation). Azimuth 0 with elevation 0 looks down -Z from +Z.
// It is safe for concurrent use, so input callbacks and the tick loop may drive it together.
type OrbitController interface {
	// Rotate moves the camera around the pivot. Elevation is clamped to its bounds.
	//
	// Parameters:
	//   - dAzimuth: horizontal change in radians
	//   - dElevation: vertical change in radians
	Rotate(dAzimuth, dElevation float32)

	// OrbitLeft and OrbitRight step the azimuth by the orbit speed.
	OrbitLeft()
	OrbitRight()

	// OrbitUp and OrbitDown step the elevation by the orbit speed.
	OrbitUp()
	OrbitDown()

	// Zoom moves toward the pivot for positive delta, scaled by the zoom speed. The radius is
	// clamped to its bounds.
	//
	// Parameters:
	//   - delta: zoom input, typically a scroll wheel offset
	Zoom(delta float32)

	Radius() float32

	// SetRadius sets the distance to the pivot, clamped to [MinRadius, MaxRadius].
	SetRadius(radius float32)

	MinRadius() float32
	MaxRadius() float32

	Azimuth() float32
	SetAzimuth(azimuth float32)

	Elevation() float32

	// SetElevation sets the vertical angle, clamped to its bounds.
	SetElevation(elevation float32)

	Pivot() mgl32.Vec3
	SetPivot(p mgl32.Vec3)

	// Position returns the eye position implied by the current coordinates.
	//
	// Returns:
	//   - mgl32.Vec3: the world-space eye position
	Position() mgl32.Vec3

	// Apply moves cam to Position and points it at the pivot.
	//
	// Parameters:
	//   - cam: the camera to update
	Apply(cam Camera)
}

type orbitController struct {
	mu *sync.Mutex

	pivot     mgl32.Vec3
	radius    float32
	azimuth   float32
	elevation float32

	minRadius, maxRadius       float32
	minElevation, maxElevation float32

	orbitSpeed float32
	zoomSpeed  float32
}

var _ OrbitController = &orbitController{}

// NewOrbitController creates an orbit controller. The defaults frame the demo scene: radius 10
// around the origin in the XZ plane, zoomable between 4 and 30.
//
// Parameters:
//   - options: variadic list of OrbitControllerOption functions
//
// Returns:
//   - OrbitController: the controller
func NewOrbitController(options ...OrbitControllerOption) OrbitController {
	oc := &orbitController{
		mu:           &sync.Mutex{},
		radius:       10,
		minRadius:    4,
		maxRadius:    30,
		minElevation: -math.Pi/2 + 0.1,
		maxElevation: math.Pi/2 - 0.1,
		orbitSpeed:   0.03,
		zoomSpeed:    0.5,
	}
	for _, opt := range options {
		opt(oc)
	}
	oc.radius = common.Clamp(oc.radius, oc.minRadius, oc.maxRadius)
	oc.elevation = common.Clamp(oc.elevation, oc.minElevation, oc.maxElevation)
	return oc
}

func (oc *orbitController) Rotate(dAzimuth, dElevation float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.azimuth += dAzimuth
	oc.elevation = common.Clamp(oc.elevation+dElevation, oc.minElevation, oc.maxElevation)
}

func (oc *orbitController) OrbitLeft() {
	oc.Rotate(-oc.orbitSpeed, 0)
}

func (oc *orbitController) OrbitRight() {
	oc.Rotate(oc.orbitSpeed, 0)
}

func (oc *orbitController) OrbitUp() {
	oc.Rotate(0, oc.orbitSpeed)
}

func (oc *orbitController) OrbitDown() {
	oc.Rotate(0, -oc.orbitSpeed)
}

func (oc *orbitController) Zoom(delta float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.radius = common.Clamp(oc.radius-delta*oc.zoomSpeed, oc.minRadius, oc.maxRadius)
}

func (oc *orbitController) Radius() float32 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.radius
}

func (oc *orbitController) SetRadius(radius float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.radius = common.Clamp(radius, oc.minRadius, oc.maxRadius)
}

func (oc *orbitController) MinRadius() float32 {
	return oc.minRadius
}

func (oc *orbitController) MaxRadius() float32 {
	return oc.maxRadius
}

func (oc *orbitController) Azimuth() float32 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.azimuth
}

func (oc *orbitController) SetAzimuth(azimuth float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.azimuth = azimuth
}

func (oc *orbitController) Elevation() float32 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.elevation
}

func (oc *orbitController) SetElevation(elevation float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.elevation = common.Clamp(elevation, oc.minElevation, oc.maxElevation)
}

func (oc *orbitController) Pivot() mgl32.Vec3 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.pivot
}

func (oc *orbitController) SetPivot(p mgl32.Vec3) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.pivot = p
}

func (oc *orbitController) Position() mgl32.Vec3 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.positionLocked()
}

func (oc *orbitController) Apply(cam Camera) {
	oc.mu.Lock()
	pos, pivot := oc.positionLocked(), oc.pivot
	oc.mu.Unlock()
	cam.SetTarget(pivot)
	cam.SetPosition(pos)
}

func (oc *orbitController) positionLocked() mgl32.Vec3 {
	sinA, cosA := math.Sincos(float64(oc.azimuth))
	sinE, cosE := math.Sincos(float64(oc.elevation))
	offset := mgl32.Vec3{
		float32(cosE * sinA),
		float32(sinE),
		float32(cosE * cosA),
	}
	return oc.pivot.Add(offset.Mul(oc.radius))
}
