package shader

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/naga"
)

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

// Validate compiles the pre-processed source of a shader to SPIR-V and checks the module header.
// It catches WGSL errors before a device is involved.
//
// Parameters:
//   - s: the shader to validate
//
// Returns:
//   - error: the compiler diagnostic, or nil
func Validate(s Shader) error {
	spirv, err := naga.Compile(s.Source())
	if err != nil {
		return fmt.Errorf("shader %s: %w", s.Key(), err)
	}
	if len(spirv) < 4 || binary.LittleEndian.Uint32(spirv) != spirvMagic {
		return fmt.Errorf("shader %s: compiler produced an invalid SPIR-V module", s.Key())
	}
	return nil
}

// ValidateAll validates every shader of a variant set.
//
// Parameters:
//   - v: the variant set
//
// Returns:
//   - error: the first failure, or nil
func ValidateAll(v *Variants) error {
	for _, s := range v.All() {
		if err := Validate(s); err != nil {
			return err
		}
	}
	return nil
}
