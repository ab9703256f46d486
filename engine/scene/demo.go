package scene

import (
	"fmt"
	"math/rand/v2"

	"github.com/Carmen-Shannon/oxy-peel/common"
	"github.com/Carmen-Shannon/oxy-peel/engine/camera"
	"github.com/Carmen-Shannon/oxy-peel/engine/game_object"
	"github.com/Carmen-Shannon/oxy-peel/engine/light"
	"github.com/Carmen-Shannon/oxy-peel/engine/model"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/material"
	"github.com/go-gl/mathgl/mgl32"
)

// DemoSphereCount is the number of transparent spheres in the depth peeling demo.
const DemoSphereCount = 20

// NewDepthPeelDemo builds the depth peeling showcase: one opaque sphere at the origin inside a
// cloud of randomly colored, randomly sized transparent spheres, lit by a white directional light
// and a soft ambient term. The same seed always yields the same scene.
//
// Parameters:
//   - seed: the random seed
//   - aspect: the camera aspect ratio
//
// Returns:
//   - Scene: the demo scene
func NewDepthPeelDemo(seed int64, aspect float32) Scene {
	rng := rand.New(rand.NewPCG(uint64(seed), 0x9e3779b97f4a7c15))
	sphere := model.NewSphere(1, 32, 16)

	cam := camera.NewCamera(
		camera.WithFovDegrees(45),
		camera.WithAspect(aspect),
		camera.WithClipPlanes(0.25, 20),
		camera.WithPosition(mgl32.Vec3{0, 0, 10}),
	)

	core := game_object.NewGameObject(
		game_object.WithName("core"),
		game_object.WithModel(sphere),
		game_object.WithMaterial(material.NewMaterial(material.WithName("core"))),
		game_object.WithScale(0.5, 0.5, 0.5),
	)

	spheres := make([]game_object.GameObject, 0, DemoSphereCount)
	for i := range DemoSphereCount {
		opacity := rng.Float32()*0.5 + 0.25
		color := common.HSLToRGB(rng.Float32(), 1, 0.5)
		x := (rng.Float32() - 0.5) * 2
		y := (rng.Float32() - 0.5) * 2
		z := (rng.Float32() - 0.5) * 2
		s := rng.Float32()*0.5 + 0.25

		mat := material.NewPeelMaterial(
			material.WithName(fmt.Sprintf("bubble-%d", i)),
			material.WithColor(color),
			material.WithOpacity(opacity),
			material.WithTransparent(true),
			material.WithDepthWrite(false),
		)
		spheres = append(spheres, game_object.NewGameObject(
			game_object.WithName(fmt.Sprintf("bubble-%d", i)),
			game_object.WithModel(sphere),
			game_object.WithMaterial(mat),
			game_object.WithPosition(x, y, z),
			game_object.WithScale(s, s, s),
		))
	}

	return NewScene("depth-peel-demo", cam,
		WithOpaqueObjects(core),
		WithTransparentObjects(spheres...),
		WithLights(
			light.NewLight(light.LightTypeDirectional, light.WithPosition(1, 2, 3), light.WithIntensity(3)),
			light.NewLight(light.LightTypeAmbient, light.WithIntensity(0.5)),
		),
		WithClearColor([4]float32{0, 0, 0, 1}),
	)
}
