package compiler

import (
	"github.com/wazevoc/aotwasm/internal/ssa"
	"github.com/wazevoc/aotwasm/internal/wasm"
)

// TableAddress is the result of lowering a table access: the element
// address, symmetric to HeapAddress (spec.md §4.G is explicitly "symmetric
// to §4.F").
type TableAddress struct {
	Addr ssa.Value
}

// LowerTableAddress implements the table lowering contract (spec.md §4.G):
// element_address = base + index*element_size, bounds-checked against
// either a compile-time constant (static table) or a reloaded global-value
// (dynamic table), trapping or Spectre-selecting TABLE_OUT_OF_BOUNDS.
func LowerTableAddress(env *Environment, b ssa.Builder, plan *wasm.TablePlan, tableBase ssa.Value, index ssa.Value) TableAddress {
	wideIndex := widen(b, index)

	var bound ssa.Value
	if staticBound, ok := plan.StaticBound(); ok {
		bound = b.InsertIconst(PointerType, uint64(staticBound))
	} else {
		// Dynamic table: the bound must be reloaded from the table's length
		// global at every access, since Grow can change it between accesses
		// within the same function.
		bound = b.InsertGlobalValue(PointerType, ssa.MemFlags{LittleEndian: true, Region: ssa.AliasRegionTable}, tableBase, 0)
	}

	cond := b.InsertIcmp(ssa.IntCCUnsignedGreaterThanOrEqual, wideIndex, bound)
	scaledIndex := multiplyByElementSize(b, wideIndex, plan.ElementSize)
	addr := b.InsertIadd(tableBase, scaledIndex)

	if !env.HeapAccessSpectreMitigation() {
		env.Trapnz(b, cond, ssa.TrapCodeTableOutOfBounds)
		return TableAddress{Addr: addr}
	}

	zero := b.InsertIconst(addr.Type(), 0)
	guarded := b.InsertSelectSpectreGuard(cond, zero, addr)
	return TableAddress{Addr: guarded}
}

// multiplyByElementSize computes index*elementSize. ElementSize is always
// a small power of two (a tagged pointer slot), so this is a left shift
// expressed as repeated doubling through Iadd — internal/ssa deliberately
// doesn't expose a general integer multiply (spec.md's enumerated
// instruction set has none), since table lowering is its only multiplying
// caller and only ever scales by a table's fixed, compile-time-known
// element size.
func multiplyByElementSize(b ssa.Builder, index ssa.Value, elementSize uint32) ssa.Value {
	if elementSize == 0 {
		panic("compiler: table element size must be nonzero")
	}
	shifted := index
	for shift := elementSize; shift > 1; shift >>= 1 {
		if shift%2 != 0 {
			panic("compiler: table element size must be a power of two")
		}
		shifted = b.InsertIadd(shifted, shifted)
	}
	return shifted
}
