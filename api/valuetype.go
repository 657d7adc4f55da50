// Package api is this core's public value model (SPEC_FULL.md §3): the
// Wasm value-type vocabulary and the raw uint64-lane encoding host code
// uses to pass arguments and results across the Go<->compiled-code
// boundary, since every VMContext slot and every Instance.Call argument is
// carried as a plain 64-bit lane regardless of its Wasm type.
//
// Grounded on _examples/tetratelabs-wazero's api/wasm.go ValueType
// constants and its "API" value-encoding convention (float bits reinterpreted
// as integers, references as raw uintptr-sized lanes).
package api

import "math"

// ValueType is a Wasm value's type, mirrored by internal/wasm.ValueType:
// the two are kept in exact numeric lockstep (see internal/wasm/types.go's
// own comment) so conversions between them are a plain type conversion,
// never a switch.
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

// EncodeI32 widens a signed i32 into the uint64 lane Instance.Call expects.
func EncodeI32(v int32) uint64 { return uint64(uint32(v)) }

// DecodeI32 narrows a uint64 lane back to its low 32 bits.
func DecodeI32(v uint64) int32 { return int32(uint32(v)) }

// EncodeI64 is the identity encoding for i64 (already lane-width).
func EncodeI64(v int64) uint64 { return uint64(v) }

func DecodeI64(v uint64) int64 { return int64(v) }

// EncodeF32 reinterprets an f32's bits into the low 32 bits of a lane.
func EncodeF32(v float32) uint64 { return uint64(math.Float32bits(v)) }

func DecodeF32(v uint64) float32 { return math.Float32frombits(uint32(v)) }

// EncodeF64 reinterprets an f64's bits into a full 64-bit lane.
func EncodeF64(v float64) uint64 { return math.Float64bits(v) }

func DecodeF64(v uint64) float64 { return math.Float64frombits(v) }

// ValueTypeName renders a ValueType the way diagnostics and Trap messages
// do (mirrors internal/wasm.ValueTypeName, kept separate so the public api
// package never imports the internal data model).
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
		return "unknown"
	}
}
