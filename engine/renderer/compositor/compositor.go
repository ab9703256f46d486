package compositor

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/texture"
)

// QuadDrawer draws a texture over the whole bound render target.
type QuadDrawer interface {
	DrawFullscreenQuad(src texture.Texture, state pipeline.RenderState) error
}

type compositor struct {
	drawer QuadDrawer
	draws  int
}

// Compositor blends full-viewport layers onto whatever target the drawer has bound.
type Compositor interface {
	// Draw draws src over the bound target with the caller's blending, depth and tone mapping
	// state. The quad lies on the near plane: with depth test on it passes wherever the bound
	// depth is farther, and with depth write on it stores the near plane. Depth flags have no
	// effect on a target without a depth attachment.
	//
	// Parameters:
	//   - src: the color texture
	//   - state: the render state
	//
	// Returns:
	//   - error: the drawer error
	Draw(src texture.Texture, state pipeline.RenderState) error

	// Copy overwrites the bound target with src.
	//
	// Parameters:
	//   - src: the color texture
	//
	// Returns:
	//   - error: the drawer error
	Copy(src texture.Texture) error

	// Accumulate blends layers back to front: the last layer first, layer 0 last, each with
	// straight source-over blending.
	//
	// Parameters:
	//   - layers: the layer targets, nearest first
	//
	// Returns:
	//   - error: the first failed draw, wrapped with its layer index
	Accumulate(layers []texture.RenderTarget) error

	// Draws retrieves the number of quads drawn.
	//
	// Returns:
	//   - int: the quad count
	Draws() int
}

var _ Compositor = &compositor{}

// NewCompositor creates a Compositor drawing through d.
//
// Parameters:
//   - d: the quad drawer, usually the renderer
//
// Returns:
//   - Compositor: the compositor
func NewCompositor(d QuadDrawer) Compositor {
	return &compositor{drawer: d}
}

func (c *compositor) Draw(src texture.Texture, state pipeline.RenderState) error {
	if err := c.drawer.DrawFullscreenQuad(src, state); err != nil {
		return err
	}
	c.draws++
	return nil
}

func (c *compositor) Copy(src texture.Texture) error {
	return c.Draw(src, pipeline.Overwrite())
}

func (c *compositor) Accumulate(layers []texture.RenderTarget) error {
	for i := len(layers) - 1; i >= 0; i-- {
		if err := c.Draw(layers[i].ColorTexture(), pipeline.Over()); err != nil {
			return fmt.Errorf("composite layer %d: %w", i, err)
		}
	}
	return nil
}

func (c *compositor) Draws() int {
	return c.draws
}
