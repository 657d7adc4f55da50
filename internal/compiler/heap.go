package compiler

import (
	"github.com/wazevoc/aotwasm/internal/ssa"
	"github.com/wazevoc/aotwasm/internal/wasm"
)

// Memarg is a decoded Wasm memory-instruction immediate: offset and
// alignment. Align is log2 of the required alignment in bytes (the wasm
// binary format's own encoding).
type Memarg struct {
	Offset uint64
	Align  uint32
}

// HeapAddress is the result of lowering a memory access: either the access
// is unreachable (statically proven out of bounds, and no further code
// should be emitted for it) or Flags/Addr describe the native address to
// load/store through.
type HeapAddress struct {
	Unreachable bool
	Flags       ssa.MemFlags
	Addr        ssa.Value
}

// LowerHeapAddress implements the heap lowering contract (spec.md §4.F):
// given a memarg, a dynamic Wasm-side index value (32- or 64-bit,
// un-widened), and a static access size in bytes, it emits whatever IR is
// needed and returns the address to access, or Unreachable if the access
// traps unconditionally at compile time.
//
// heapBase is the already-loaded heap base pointer Value (component G's
// Table equivalent is loaded the same way by LowerTableAddress); callers
// obtain it via a GlobalValue load off the VM context before calling this
// function, since the base load itself carries its own Mem fact and is
// shared across every access within a basic block in a real optimizing
// backend — out of scope for this minimal IR layer to cache.
func LowerHeapAddress(env *Environment, b ssa.Builder, plan *wasm.MemoryPlan, heapBase ssa.Value, memarg Memarg, index ssa.Value, accessSize uint32) HeapAddress {
	if memarg.Offset > 0xFFFF_FFFF {
		// Fold an offset that doesn't fit in 32 bits into the index via a
		// checked add, then recurse with offset = 0 (spec.md §4.F).
		offsetValue := b.InsertIconst(index.Type(), memarg.Offset)
		folded := b.InsertIadd(widen(b, index), widen(b, offsetValue))
		overflowed := b.InsertIcmpImm(ssa.IntCCUnsignedLessThan, folded, memarg.Offset)
		env.Trapnz(b, overflowed, ssa.TrapCodeIntegerOverflow)
		return LowerHeapAddress(env, b, plan, heapBase, Memarg{Offset: 0, Align: memarg.Align}, folded, accessSize)
	}

	offset := memarg.Offset

	// Case 1: constant-offset overflow — statically out of bounds.
	if offset+uint64(accessSize) > plan.Bound && plan.IsStatic() {
		b.InsertTrap(ssa.TrapCodeHeapOutOfBounds)
		return HeapAddress{Unreachable: true}
	}

	wideIndex := widen(b, index)
	if env.ProofCarryingCode() {
		if inst := b.LastInstruction(); inst != nil {
			inst.SetFact(ssa.ValueFact{Of: index.ID()})
		}
	}

	flags := ssa.MemFlags{LittleEndian: true, Checked: env.ProofCarryingCode(), Region: ssa.AliasRegionHeap}

	// Case 2: elidable check. Requires a static bound and virtual memory
	// (guaranteed by MemoryPlan's own construction invariant, so only the
	// arithmetic condition is checked here).
	if index.Type() == ssa.TypeI32 && plan.IsStatic() {
		headroom := plan.Bound + plan.OffsetGuardSize - (offset + uint64(accessSize))
		if headroom >= 0xFFFF_FFFF {
			addr := addWithOffset(b, heapBase, wideIndex, offset)
			if env.ProofCarryingCode() {
				annotateMem(b, addr, 0, 0xFFFF_FFFF+offset)
			}
			return HeapAddress{Flags: flags, Addr: addr}
		}
	}

	// Case 3: explicit check, with the offset folded into the comparison's
	// bound as well as the address (the address computation always
	// includes the offset, per spec.md's "offset immediate is added to the
	// base+index before the Spectre select, not after").
	bound := boundValue(env, b, plan)
	threshold := b.InsertIaddImm(bound, -int64(offset+uint64(accessSize)))
	cond := b.InsertIcmp(ssa.IntCCUnsignedGreaterThan, wideIndex, threshold)
	addr := addWithOffset(b, heapBase, wideIndex, offset)

	if env.ProofCarryingCode() {
		annotateDynamicMem(b, addr, wideIndex.ID())
	}

	if !env.HeapAccessSpectreMitigation() {
		env.Trapnz(b, cond, ssa.TrapCodeHeapOutOfBounds)
		return HeapAddress{Flags: flags, Addr: addr}
	}

	zero := b.InsertIconst(addr.Type(), 0)
	guarded := b.InsertSelectSpectreGuard(cond, zero, addr)
	return HeapAddress{Flags: flags, Addr: guarded}
}

// EmitAlignmentCheck implements the atomic-access alignment check spec.md
// §4.F requires before the bounds check: `(index+offset) & (size-1) != 0`
// traps HEAP_MISALIGNED. size must be a power of two.
func EmitAlignmentCheck(env *Environment, b ssa.Builder, index ssa.Value, offset uint64, size uint32) {
	effective := b.InsertIaddImm(widen(b, index), int64(offset))
	masked := b.InsertBandImm(effective, uint64(size-1))
	misaligned := b.InsertIcmpImm(ssa.IntCCNotEqual, masked, 0)
	env.Trapnz(b, misaligned, ssa.TrapCodeHeapMisaligned)
}

// boundValue folds in the memory's current bound as a constant. A fully
// dynamic memory (no static Bound) would instead need a GlobalValue load of
// the defined memory's CurrentLength field, reloaded on every access since
// Grow can change it mid-function. Only the constant form is implemented
// here: the bound is plan.Bound, or plan.MinSize when Bound is zero.
func boundValue(env *Environment, b ssa.Builder, plan *wasm.MemoryPlan) ssa.Value {
	bound := plan.Bound
	if bound == 0 {
		bound = plan.MinSize
	}
	return b.InsertIconst(PointerType, bound)
}

func widen(b ssa.Builder, v ssa.Value) ssa.Value {
	if v.Type() == PointerType {
		return v
	}
	return b.InsertUExtend(v, v.Type(), PointerType)
}

func addWithOffset(b ssa.Builder, base, index ssa.Value, offset uint64) ssa.Value {
	addr := b.InsertIadd(base, index)
	if offset != 0 {
		addr = b.InsertIaddImm(addr, int64(offset))
	}
	return addr
}

func annotateMem(b ssa.Builder, v ssa.Value, min, max uint64) {
	if inst := b.LastInstruction(); inst != nil {
		inst.SetFact(ssa.Mem{Region: ssa.AliasRegionHeap, MinOffset: min, MaxOffset: max})
	}
}

func annotateDynamicMem(b ssa.Builder, v ssa.Value, indexID ssa.ValueID) {
	if inst := b.LastInstruction(); inst != nil {
		inst.SetFact(ssa.DynamicMem{Region: ssa.AliasRegionHeap, Index: indexID, IndexKind: ssa.IntCCUnsignedLessThanOrEqual})
	}
}
