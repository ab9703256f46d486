package scene

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-peel/engine/camera"
	"github.com/Carmen-Shannon/oxy-peel/engine/game_object"
	"github.com/Carmen-Shannon/oxy-peel/engine/light"
)

// Scene holds the objects to draw, partitioned into a disjoint opaque and transparent Group,
// together with the lights, the camera and the background clear color.
// Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Active returns whether this scene is currently active for rendering.
	Active() bool

	// SetActive sets whether this scene is active for rendering.
	SetActive(active bool)

	// Camera returns the scene's camera.
	Camera() camera.Camera

	// SetCamera replaces the scene's camera.
	//
	// Parameters:
	//   - cam: the new camera
	SetCamera(cam camera.Camera)

	// OpaqueGroup returns the group drawn by the opaque pass.
	OpaqueGroup() Group

	// TransparentGroup returns the group drawn by the peel passes.
	TransparentGroup() Group

	// Groups returns the opaque and transparent groups in that order.
	Groups() []Group

	// AddLight adds a light to the scene.
	//
	// Parameters:
	//   - l: the light to add
	AddLight(l light.Light)

	// RemoveLight removes a light from the scene.
	//
	// Parameters:
	//   - l: the light to remove
	RemoveLight(l light.Light)

	// Lights returns a snapshot of the scene's lights.
	//
	// Returns:
	//   - []light.Light: the lights
	Lights() []light.Light

	// LightEnvironment flattens the enabled lights for shading.
	//
	// Returns:
	//   - light.Environment: the flattened lights
	LightEnvironment() light.Environment

	// ClearColor returns the background RGBA used when the default output is cleared.
	//
	// Returns:
	//   - [4]float32: the clear color
	ClearColor() [4]float32

	// SetClearColor sets the background RGBA.
	//
	// Parameters:
	//   - c: the clear color
	SetClearColor(c [4]float32)

	// Traverse calls fn for every enabled object of every visible group, opaque group first.
	//
	// Parameters:
	//   - fn: the visitor
	Traverse(fn func(obj game_object.GameObject))

	// Count returns the number of objects across both groups, visible or not.
	//
	// Returns:
	//   - int: the object count
	Count() int
}

type scene struct {
	mu          sync.RWMutex
	name        string
	active      atomic.Bool
	cam         camera.Camera
	opaque      Group
	transparent Group
	lights      []light.Light
	clearColor  [4]float32
}

var _ Scene = &scene{}

// NewScene creates an active, empty scene with a black opaque background.
//
// Parameters:
//   - name: the scene identifier
//   - cam: the camera used to view the scene
//   - options: variadic list of SceneBuilderOption functions
//
// Returns:
//   - Scene: the new scene
func NewScene(name string, cam camera.Camera, options ...SceneBuilderOption) Scene {
	s := &scene{
		name:        name,
		cam:         cam,
		opaque:      NewGroup("opaque"),
		transparent: NewGroup("transparent"),
		clearColor:  [4]float32{0, 0, 0, 1},
	}
	s.active.Store(true)
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Active() bool {
	return s.active.Load()
}

func (s *scene) SetActive(active bool) {
	s.active.Store(active)
}

func (s *scene) Camera() camera.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cam
}

func (s *scene) SetCamera(cam camera.Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cam = cam
}

func (s *scene) OpaqueGroup() Group {
	return s.opaque
}

func (s *scene) TransparentGroup() Group {
	return s.transparent
}

func (s *scene) Groups() []Group {
	return []Group{s.opaque, s.transparent}
}

func (s *scene) AddLight(l light.Light) {
	if l == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lights = append(s.lights, l)
}

func (s *scene) RemoveLight(l light.Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lights = slices.DeleteFunc(s.lights, func(x light.Light) bool { return x == l })
}

func (s *scene) Lights() []light.Light {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.lights)
}

func (s *scene) LightEnvironment() light.Environment {
	return light.NewEnvironment(s.Lights())
}

func (s *scene) ClearColor() [4]float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clearColor
}

func (s *scene) SetClearColor(c [4]float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearColor = c
}

func (s *scene) Traverse(fn func(obj game_object.GameObject)) {
	for _, g := range s.Groups() {
		if !g.Visible() {
			continue
		}
		for _, obj := range g.Objects() {
			if obj.Enabled() {
				fn(obj)
			}
		}
	}
}

func (s *scene) Count() int {
	return s.opaque.Len() + s.transparent.Len()
}
