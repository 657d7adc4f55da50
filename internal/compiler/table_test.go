package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wazevoc/aotwasm/internal/ssa"
	"github.com/wazevoc/aotwasm/internal/wasm"
)

func TestLowerTableAddressStaticBoundComparesAgainstAConstant(t *testing.T) {
	env, b, tableBase := newTestEnv(Config{})
	plan := &wasm.TablePlan{BoundKind: wasm.TableBoundStatic, Minimum: 16, ElementSize: 8}
	index := b.InsertIconst(ssa.TypeI32, 3)

	LowerTableAddress(env, b, plan, tableBase, index)

	var sawConstBound bool
	for _, inst := range lastInstructions(b) {
		if inst.Opcode() == ssa.OpcodeIconst && inst.Imm64() == 16 {
			sawConstBound = true
		}
		require.NotEqual(t, ssa.OpcodeGlobalValue, inst.Opcode())
	}
	require.True(t, sawConstBound)
}

func TestLowerTableAddressDynamicBoundReloadsTheLengthGlobal(t *testing.T) {
	env, b, tableBase := newTestEnv(Config{})
	plan := &wasm.TablePlan{BoundKind: wasm.TableBoundDynamic, Minimum: 4, ElementSize: 8}
	index := b.InsertIconst(ssa.TypeI32, 3)

	LowerTableAddress(env, b, plan, tableBase, index)

	var sawGlobalLoad bool
	for _, inst := range lastInstructions(b) {
		if inst.Opcode() == ssa.OpcodeGlobalValue {
			sawGlobalLoad = true
			require.Equal(t, ssa.AliasRegionTable, inst.MemFlags().Region)
		}
	}
	require.True(t, sawGlobalLoad)
}

func TestLowerTableAddressEmitsPlainTrapnzWithoutSpectreMitigation(t *testing.T) {
	env, b, tableBase := newTestEnv(Config{HeapAccessSpectreMitigation: false})
	plan := &wasm.TablePlan{BoundKind: wasm.TableBoundStatic, Minimum: 16, ElementSize: 8}
	index := b.InsertIconst(ssa.TypeI32, 3)

	addr := LowerTableAddress(env, b, plan, tableBase, index)

	var sawTrapnz bool
	for _, inst := range lastInstructions(b) {
		if inst.Opcode() == ssa.OpcodeTrapnz {
			sawTrapnz = true
			require.Equal(t, uint64(ssa.TrapCodeTableOutOfBounds), inst.Imm64())
		}
		require.NotEqual(t, ssa.OpcodeSelectSpectreGuard, inst.Opcode())
	}
	require.True(t, sawTrapnz)
	require.True(t, addr.Addr.Valid())
}

func TestLowerTableAddressEmitsSelectSpectreGuardWhenMitigationEnabled(t *testing.T) {
	env, b, tableBase := newTestEnv(Config{HeapAccessSpectreMitigation: true})
	plan := &wasm.TablePlan{BoundKind: wasm.TableBoundStatic, Minimum: 16, ElementSize: 8}
	index := b.InsertIconst(ssa.TypeI32, 3)

	addr := LowerTableAddress(env, b, plan, tableBase, index)

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

func TestMultiplyByElementSizeDoublesForEachPowerOfTwoFactor(t *testing.T) {
	b := ssa.NewBuilder()
	blk := b.CreateBlock()
	b.SetCurrentBlock(blk)
	index := b.InsertIconst(ssa.TypeI64, 3)

	multiplyByElementSize(b, index, 8)

	var adds int
	for _, inst := range blk.Instructions() {
		if inst.Opcode() == ssa.OpcodeIadd {
			adds++
		}
	}
	require.Equal(t, 3, adds) // 8 == 2^3, three doublings.
}

func TestMultiplyByElementSizePanicsOnNonPowerOfTwo(t *testing.T) {
	b := ssa.NewBuilder()
	blk := b.CreateBlock()
	b.SetCurrentBlock(blk)
	index := b.InsertIconst(ssa.TypeI64, 3)

	require.Panics(t, func() { multiplyByElementSize(b, index, 3) })
}
