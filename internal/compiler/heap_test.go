package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wazevoc/aotwasm/internal/ssa"
	"github.com/wazevoc/aotwasm/internal/vmctx"
	"github.com/wazevoc/aotwasm/internal/wasm"
)

func newTestEnv(cfg Config) (*Environment, ssa.Builder, ssa.Value) {
	plan := vmctx.NewPlan(0, 0, 0, 0, 0, 0, 0, 0)
	env := NewEnvironment(cfg, &wasm.Module{}, plan)
	b := ssa.NewBuilder()
	blk := b.CreateBlock()
	b.SetCurrentBlock(blk)
	heapBase := b.InsertIconst(PointerType, 0x1000)
	return env, b, heapBase
}

// lastInstructions returns the current block's instructions for
// opcode/fact assertions.
func lastInstructions(b ssa.Builder) []*ssa.Instruction {
	return b.CurrentBlock().Instructions()
}

func TestLowerHeapAddressCase1StaticallyOutOfBoundsTrapsUnconditionally(t *testing.T) {
	env, b, heapBase := newTestEnv(Config{})
	plan := &wasm.MemoryPlan{Bound: 100, MinSize: 100}
	index := b.InsertIconst(ssa.TypeI32, 5)

	addr := LowerHeapAddress(env, b, plan, heapBase, Memarg{Offset: 200, Align: 0}, index, 4)

	require.True(t, addr.Unreachable)
	insts := lastInstructions(b)
	require.Equal(t, ssa.OpcodeTrap, insts[len(insts)-1].Opcode())
	require.Equal(t, uint64(ssa.TrapCodeHeapOutOfBounds), insts[len(insts)-1].Imm64())
}

func TestLowerHeapAddressCase2ElidesCheckWhenHeadroomCoversTheWholeI32Range(t *testing.T) {
	env, b, heapBase := newTestEnv(Config{})
	plan := &wasm.MemoryPlan{Bound: 1 << 32, OffsetGuardSize: 1 << 31, MinSize: 1 << 32}
	index := b.InsertIconst(ssa.TypeI32, 5)

	addr := LowerHeapAddress(env, b, plan, heapBase, Memarg{}, index, 4)

	require.False(t, addr.Unreachable)
	for _, inst := range lastInstructions(b) {
		require.NotEqual(t, ssa.OpcodeTrapnz, inst.Opcode())
		require.NotEqual(t, ssa.OpcodeSelectSpectreGuard, inst.Opcode())
	}
}

func TestLowerHeapAddressCase3EmitsPlainTrapnzWithoutSpectreMitigation(t *testing.T) {
	env, b, heapBase := newTestEnv(Config{HeapAccessSpectreMitigation: false})
	plan := &wasm.MemoryPlan{MinSize: 1 << 16, OffsetGuardSize: 1 << 16}
	index := b.InsertIconst(ssa.TypeI64, 5)

	addr := LowerHeapAddress(env, b, plan, heapBase, Memarg{}, index, 4)

	require.False(t, addr.Unreachable)
	var sawTrapnz bool
	for _, inst := range lastInstructions(b) {
		if inst.Opcode() == ssa.OpcodeTrapnz {
			sawTrapnz = true
			require.Equal(t, uint64(ssa.TrapCodeHeapOutOfBounds), inst.Imm64())
		}
		require.NotEqual(t, ssa.OpcodeSelectSpectreGuard, inst.Opcode())
	}
	require.True(t, sawTrapnz)
	require.Equal(t, addr.Addr, insAfterTrapnzReturn(lastInstructions(b)))
}

func TestLowerHeapAddressCase3EmitsSelectSpectreGuardWhenMitigationEnabled(t *testing.T) {
	env, b, heapBase := newTestEnv(Config{HeapAccessSpectreMitigation: true})
	plan := &wasm.MemoryPlan{MinSize: 1 << 16, OffsetGuardSize: 1 << 16}
	index := b.InsertIconst(ssa.TypeI64, 5)

	addr := LowerHeapAddress(env, b, plan, heapBase, Memarg{}, index, 4)

	require.False(t, addr.Unreachable)
	var sawGuard bool
	for _, inst := range lastInstructions(b) {
		require.NotEqual(t, ssa.OpcodeTrapnz, inst.Opcode())
		if inst.Opcode() == ssa.OpcodeSelectSpectreGuard {
			sawGuard = true
			require.Equal(t, addr.Addr, inst.Return())
		}
	}
	require.True(t, sawGuard)
}

func TestLowerHeapAddressAnnotatesProofCarryingCodeFactsWhenEnabled(t *testing.T) {
	env, b, heapBase := newTestEnv(Config{ProofCarryingCode: true})
	plan := &wasm.MemoryPlan{MinSize: 1 << 16, OffsetGuardSize: 1 << 16}
	index := b.InsertIconst(ssa.TypeI64, 5)

	LowerHeapAddress(env, b, plan, heapBase, Memarg{}, index, 4)

	var sawDynamicMem bool
	for _, inst := range lastInstructions(b) {
		if _, ok := inst.Fact().(ssa.DynamicMem); ok {
			sawDynamicMem = true
		}
	}
	require.True(t, sawDynamicMem)
}

func TestLowerHeapAddressAnnotatesStaticMemFactForTheElidedCase(t *testing.T) {
	env, b, heapBase := newTestEnv(Config{ProofCarryingCode: true})
	plan := &wasm.MemoryPlan{Bound: 1 << 32, OffsetGuardSize: 1 << 31, MinSize: 1 << 32}
	index := b.InsertIconst(ssa.TypeI32, 5)

	LowerHeapAddress(env, b, plan, heapBase, Memarg{}, index, 4)

	var sawMem bool
	for _, inst := range lastInstructions(b) {
		if _, ok := inst.Fact().(ssa.Mem); ok {
			sawMem = true
		}
	}
	require.True(t, sawMem)
}

func TestLowerHeapAddressFoldsOversizedOffsetIntoACheckedIndexAdd(t *testing.T) {
	env, b, heapBase := newTestEnv(Config{})
	plan := &wasm.MemoryPlan{MinSize: 1 << 16, OffsetGuardSize: 1 << 16}
	index := b.InsertIconst(ssa.TypeI32, 5)

	LowerHeapAddress(env, b, plan, heapBase, Memarg{Offset: 1 << 33}, index, 4)

	var sawOverflowCheck bool
	for _, inst := range lastInstructions(b) {
		if inst.Opcode() == ssa.OpcodeTrapnz && inst.Imm64() == uint64(ssa.TrapCodeIntegerOverflow) {
			sawOverflowCheck = true
		}
	}
	require.True(t, sawOverflowCheck)
}

func TestEmitAlignmentCheckTrapsOnMisalignedAtomicAccess(t *testing.T) {
	env, b, _ := newTestEnv(Config{})
	index := b.InsertIconst(ssa.TypeI32, 3)

	EmitAlignmentCheck(env, b, index, 1, 4)

	var sawTrapnz bool
	for _, inst := range lastInstructions(b) {
		if inst.Opcode() == ssa.OpcodeTrapnz {
			sawTrapnz = true
			require.Equal(t, uint64(ssa.TrapCodeHeapMisaligned), inst.Imm64())
		}
	}
	require.True(t, sawTrapnz)
}

// insAfterTrapnzReturn locates the address-producing Iadd/IaddImm that
// precedes a plain-trap Trapnz, mirroring how the real translator would read
// back HeapAddress.Addr off the emitted instruction stream.
func insAfterTrapnzReturn(insts []*ssa.Instruction) ssa.Value {
	for i, inst := range insts {
		if inst.Opcode() == ssa.OpcodeTrapnz {
			for j := i - 1; j >= 0; j-- {
				if insts[j].Return().Valid() {
					return insts[j].Return()
				}
			}
		}
	}
	return ssa.ValueInvalid
}
