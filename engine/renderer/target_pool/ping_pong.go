package target_pool

import "github.com/Carmen-Shannon/oxy-peel/engine/renderer/texture"

// PingPong is an indexed pair of depth textures that alternate between the "write" role
// (attached to the current peel pass) and the "near" role (read by the current pass as the
// depth of the previously peeled layer).
//
// For pass i the write texture is index (i+1) mod 2 and the near texture is index i mod 2.
// Pass 0 has no near reference.
type PingPong struct {
	textures [2]texture.Texture
	read     int
	write    int
	pass     int
}

// NewPingPong creates a ping-pong pair positioned at pass 0.
//
// Parameters:
//   - a: the depth texture at index 0
//   - b: the depth texture at index 1
//
// Returns:
//   - *PingPong: the pair
func NewPingPong(a, b texture.Texture) *PingPong {
	p := &PingPong{textures: [2]texture.Texture{a, b}}
	p.Reset()
	return p
}

// Reset rewinds the pair to pass 0.
func (p *PingPong) Reset() {
	p.pass = 0
	p.read = 0
	p.write = 1
}

// Pass retrieves the index of the current peel pass.
//
// Returns:
//   - int: the pass index
func (p *PingPong) Pass() int {
	return p.pass
}

// Write retrieves the texture the current pass writes depth into.
//
// Returns:
//   - texture.Texture: the write texture
func (p *PingPong) Write() texture.Texture {
	return p.textures[p.write]
}

// Near retrieves the depth of the previous pass, or nil on pass 0.
//
// Returns:
//   - texture.Texture: the near reference, or nil
func (p *PingPong) Near() texture.Texture {
	if p.pass == 0 {
		return nil
	}
	return p.textures[p.read]
}

// Swap advances to the next pass, exchanging the read and write roles.
func (p *PingPong) Swap() {
	p.read, p.write = p.write, p.read
	p.pass++
}

// At retrieves the texture at index i (0 or 1).
//
// Parameters:
//   - i: the index
//
// Returns:
//   - texture.Texture: the texture at that index
func (p *PingPong) At(i int) texture.Texture {
	return p.textures[i&1]
}
