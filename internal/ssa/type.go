// Package ssa is the minimal IR builder surface the translator (component H
// and its collaborators E/F/G, spec.md §4) emits into. spec.md is explicit
// that "the underlying SSA codegen backend" — the optimizer, instruction
// selector and register allocator that consume this IR — is assumed to
// exist and is out of scope for this core; this package only defines the
// construction-time API surface spec.md §6 enumerates (basic blocks, SSA
// values, the specific instruction set, and proof-carrying-code facts), not
// a full compiler pipeline.
//
// Grounded on _examples/tetratelabs-wazero/internal/engine/wazevo/ssa's
// type.go/vs.go/instructions.go naming and Value/Type tagging scheme; the
// teacher's own optimization passes, register-allocator-facing basic block
// layout and machine-code emission (pass.go, pass_cfg.go, the backend/
// subtree) are the assumed-external codegen backend and are not
// reimplemented here.
package ssa

// Type is an IR value's type.
type Type byte

const (
	typeInvalid Type = iota

	TypeI32
	TypeI64
	TypeF32
	TypeF64
	// TypeV128 is wasm's v128, represented the way the translator's local
	// initialization table names it: sixteen i8 lanes (spec.md §4.H).
	TypeV128
)

func (t Type) String() string {
	switch t {
	case TypeI32:
		return "i32"
	case TypeI64:
		return "i64"
	case TypeF32:
		return "f32"
	case TypeF64:
		return "f64"
	case TypeV128:
		return "i8x16"
	default:
		return "invalid"
	}
}

func (t Type) IsInt() bool { return t == TypeI32 || t == TypeI64 }

func (t Type) Bits() byte {
	switch t {
	case TypeI32, TypeF32:
		return 32
	case TypeI64, TypeF64:
		return 64
	case TypeV128:
		return 128
	default:
		panic("ssa: invalid type")
	}
}
