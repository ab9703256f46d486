package scene

import (
	"github.com/Carmen-Shannon/oxy-peel/engine/game_object"
	"github.com/Carmen-Shannon/oxy-peel/engine/light"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithActive sets whether the scene is active for rendering.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active.Store(active)
	}
}

// WithOpaqueObjects adds initial objects to the opaque group.
//
// Parameters:
//   - objects: the objects to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithOpaqueObjects(objects ...game_object.GameObject) SceneBuilderOption {
	return func(s *scene) {
		s.opaque.Add(objects...)
	}
}

// WithTransparentObjects adds initial objects to the transparent group.
//
// Parameters:
//   - objects: the objects to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithTransparentObjects(objects ...game_object.GameObject) SceneBuilderOption {
	return func(s *scene) {
		s.transparent.Add(objects...)
	}
}

// WithLights adds initial lights.
//
// Parameters:
//   - lights: the lights to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLights(lights ...light.Light) SceneBuilderOption {
	return func(s *scene) {
		for _, l := range lights {
			if l != nil {
				s.lights = append(s.lights, l)
			}
		}
	}
}

// WithClearColor sets the background RGBA.
//
// Parameters:
//   - c: the clear color
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithClearColor(c [4]float32) SceneBuilderOption {
	return func(s *scene) {
		s.clearColor = c
	}
}
