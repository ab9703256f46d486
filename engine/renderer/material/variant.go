package material

import (
	"fmt"
	"sync"
)

// VariantKey identifies a shader program variant. It is derived only from whether peeling is
// enabled and whether a near-depth reference is bound; which textures are bound never changes it.
type VariantKey struct {
	Enabled   bool
	NearIsNil bool
}

var (
	// VariantDisabled is the plain alpha-blended program. Every material with peeling disabled
	// reports this key regardless of its depth bindings.
	VariantDisabled = VariantKey{Enabled: false, NearIsNil: true}

	// VariantFirstPass tests against opaque depth only (peel pass 0).
	VariantFirstPass = VariantKey{Enabled: true, NearIsNil: true}

	// VariantPeel tests against opaque depth and the previous layer's depth.
	VariantPeel = VariantKey{Enabled: true, NearIsNil: false}
)

// AllVariants lists every reachable variant key.
//
// Returns:
//   - []VariantKey: the three variant keys
func AllVariants() []VariantKey {
	return []VariantKey{VariantDisabled, VariantFirstPass, VariantPeel}
}

// String formats the key as "<enabled>|<near-is-nil>" with 0/1 digits.
func (k VariantKey) String() string {
	return fmt.Sprintf("%d|%d", b2i(k.Enabled), b2i(k.NearIsNil))
}

// Defines returns the preprocessor flags that select this variant in shader source.
//
// Returns:
//   - map[string]bool: DEPTH_PEELING and FIRST_PASS flags
func (k VariantKey) Defines() map[string]bool {
	return map[string]bool{
		"DEPTH_PEELING": k.Enabled,
		"FIRST_PASS":    k.NearIsNil,
	}
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// binding records which program a material was last resolved to.
type binding[P any] struct {
	version uint64
	key     VariantKey
	program P
}

// ProgramCache holds one compiled program per VariantKey and tracks, per material, which
// program is currently bound. A material is re-resolved only when its version changes, and
// a program is built only the first time its key is seen.
type ProgramCache[P any] struct {
	mu         sync.Mutex
	build      func(VariantKey) (P, error)
	programs   map[VariantKey]P
	bindings   map[uint64]binding[P]
	compiles   int
	selections int
}

// NewProgramCache creates a ProgramCache that builds programs with the given function.
//
// Parameters:
//   - build: compiles the program for a variant key
//
// Returns:
//   - *ProgramCache[P]: an empty cache
func NewProgramCache[P any](build func(VariantKey) (P, error)) *ProgramCache[P] {
	return &ProgramCache[P]{
		build:    build,
		programs: make(map[VariantKey]P),
		bindings: make(map[uint64]binding[P]),
	}
}

// Precompile builds the programs for the given keys up front.
//
// Parameters:
//   - keys: the variant keys to build
//
// Returns:
//   - error: the first build error
func (c *ProgramCache[P]) Precompile(keys ...VariantKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		if _, err := c.variantLocked(k); err != nil {
			return err
		}
	}
	return nil
}

// Variant retrieves the program for a key, building it if this is the first request.
//
// Parameters:
//   - key: the variant key
//
// Returns:
//   - P: the program
//   - error: an error if the build fails
func (c *ProgramCache[P]) Variant(key VariantKey) (P, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.variantLocked(key)
}

// Program retrieves the program bound to a material, reselecting it when the material's
// version differs from the last resolution.
//
// Parameters:
//   - m: the material about to be drawn
//
// Returns:
//   - P: the program
//   - error: an error if the build fails
func (c *ProgramCache[P]) Program(m Material) (P, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if b, ok := c.bindings[m.ID()]; ok && b.version == m.Version() {
		return b.program, nil
	}
	key := m.VariantKey()
	p, err := c.variantLocked(key)
	if err != nil {
		var zero P
		return zero, err
	}
	c.bindings[m.ID()] = binding[P]{version: m.Version(), key: key, program: p}
	c.selections++
	return p, nil
}

// BoundKey retrieves the variant key a material was last resolved to.
//
// Parameters:
//   - id: the material ID
//
// Returns:
//   - VariantKey: the bound key
//   - bool: false if the material has never been resolved
func (c *ProgramCache[P]) BoundKey(id uint64) (VariantKey, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.bindings[id]
	return b.key, ok
}

// Forget drops the binding record of a material.
//
// Parameters:
//   - id: the material ID
func (c *ProgramCache[P]) Forget(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.bindings, id)
}

// Compiles retrieves how many programs have been built.
//
// Returns:
//   - int: the build count
func (c *ProgramCache[P]) Compiles() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.compiles
}

// Selections retrieves how many times a material had to be re-resolved to a program.
//
// Returns:
//   - int: the selection count
func (c *ProgramCache[P]) Selections() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selections
}

// Programs retrieves a snapshot of the built programs.
//
// Returns:
//   - map[VariantKey]P: programs keyed by variant
func (c *ProgramCache[P]) Programs() map[VariantKey]P {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[VariantKey]P, len(c.programs))
	for k, p := range c.programs {
		out[k] = p
	}
	return out
}

func (c *ProgramCache[P]) variantLocked(key VariantKey) (P, error) {
	if p, ok := c.programs[key]; ok {
		return p, nil
	}
	p, err := c.build(key)
	if err != nil {
		var zero P
		return zero, fmt.Errorf("failed to build program variant %s: %w", key, err)
	}
	c.programs[key] = p
	c.compiles++
	return p, nil
}
