package reference

import "github.com/mrjoshuak/go-openexr/exr"

// ReferenceBuilderOption is a function that configures a reference render.
type ReferenceBuilderOption func(*reference)

// WithSize sets the image size in pixels. Non-positive sizes are ignored.
//
// Parameters:
//   - width: the image width
//   - height: the image height
//
// Returns:
//   - ReferenceBuilderOption: a function that applies the size option
func WithSize(width, height int) ReferenceBuilderOption {
	return func(r *reference) {
		if width > 0 && height > 0 {
			r.width, r.height = width, height
		}
	}
}

// WithClearColor sets the color of pixels no opaque surface covers.
//
// Parameters:
//   - c: the straight-alpha clear color
//
// Returns:
//   - ReferenceBuilderOption: a function that applies the clear color option
func WithClearColor(c [4]float32) ReferenceBuilderOption {
	return func(r *reference) {
		r.clearColor = c
	}
}

// WithCompositing replaces the deep compositing engine that sorts and merges the transparent
// samples of each pixel.
//
// Parameters:
//   - c: the compositing engine
//
// Returns:
//   - ReferenceBuilderOption: a function that applies the compositing option
func WithCompositing(c exr.DeepCompositing) ReferenceBuilderOption {
	return func(r *reference) {
		if c != nil {
			r.compositor = c
		}
	}
}
