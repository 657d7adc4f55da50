// Package wasm is the data model the core operates on (spec.md §3): a
// validated module's type/import/export/function/memory/table/global
// sections, trimmed to exactly what the translator (internal/compiler) and
// the VM-context planner (internal/vmctx) need. Binary decoding and
// structural validation are both external collaborators (spec.md §1) — this
// package only defines the shapes they produce and this core consumes.
package wasm

import "fmt"

// ValueType mirrors api.ValueType; duplicated here (rather than imported)
// because the data model must not depend on the public api package, only
// the other way around.
type ValueType = byte

const (
	ValueTypeI32 ValueType = iota
	ValueTypeI64
	ValueTypeF32
	ValueTypeF64
	ValueTypeV128
	ValueTypeFuncref
	ValueTypeExternref
)

func ValueTypeName(v ValueType) string {
	switch v {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	case ValueTypeV128:
		return "v128"
	case ValueTypeFuncref:
		return "funcref"
	case ValueTypeExternref:
		return "externref"
	default:
		return fmt.Sprintf("unknown(%d)", v)
	}
}

// IsReference reports whether v is one of the reference types (funcref,
// externref), which need the null-initialization and stack-map handling
// spec.md §4.H's local-initialization table describes.
func IsReference(v ValueType) bool {
	return v == ValueTypeFuncref || v == ValueTypeExternref
}

// Index is a 0-based index into one of a module's sections.
type Index = uint32

// FunctionType is a function signature.
type FunctionType struct {
	Params  []ValueType
	Results []ValueType
}

func (t *FunctionType) String() string {
	return fmt.Sprintf("%v -> %v", t.Params, t.Results)
}

// Equal reports structural equality, used for call_indirect signature
// checks (TRAP_INDIRECT_CALL_SIGNATURE_MISMATCH).
func (t *FunctionType) Equal(o *FunctionType) bool {
	if len(t.Params) != len(o.Params) || len(t.Results) != len(o.Results) {
		return false
	}
	for i, p := range t.Params {
		if p != o.Params[i] {
			return false
		}
	}
	for i, r := range t.Results {
		if r != o.Results[i] {
			return false
		}
	}
	return true
}
