package vmctx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewContextStampsMagic(t *testing.T) {
	plan := NewPlan(1, 1, 1, 1, 1, 1, 16, 2)
	ctx := NewContext(plan)
	require.True(t, ctx.CheckMagic())
	require.Len(t, ctx.Base(), int(plan.Size()))
}

func TestContextRoundTripsEntries(t *testing.T) {
	plan := NewPlan(2, 1, 1, 1, 1, 1, 0, 1)
	ctx := NewContext(plan)

	ctx.SetImportedFunction(0, FuncRef{CodePtr: 0x1000, VMContext: 0x2000})
	ctx.SetImportedFunction(1, FuncRef{CodePtr: 0x3000, VMContext: 0x4000})
	require.Equal(t, FuncRef{CodePtr: 0x1000, VMContext: 0x2000}, ctx.ImportedFunction(0))
	require.Equal(t, FuncRef{CodePtr: 0x3000, VMContext: 0x4000}, ctx.ImportedFunction(1))

	ctx.SetImportedTable(0, TableRef{Definition: 0x10, VMContext: 0x20})
	require.Equal(t, TableRef{Definition: 0x10, VMContext: 0x20}, ctx.ImportedTable(0))

	ctx.SetImportedMemory(0, MemoryRef{Definition: 0x30, VMContext: 0x40})
	require.Equal(t, MemoryRef{Definition: 0x30, VMContext: 0x40}, ctx.ImportedMemory(0))

	ctx.SetImportedGlobal(0, GlobalRef{Definition: 0x50, VMContext: 0x60})
	require.Equal(t, GlobalRef{Definition: 0x50, VMContext: 0x60}, ctx.ImportedGlobal(0))

	ctx.SetDefinedMemory(0, MemoryDefinition{Base: 0x7000, CurrentLength: 65536})
	require.Equal(t, MemoryDefinition{Base: 0x7000, CurrentLength: 65536}, ctx.DefinedMemory(0))

	ctx.SetDefinedTable(0, TableDefinition{Base: 0x8000, CurrentElements: 10})
	require.Equal(t, TableDefinition{Base: 0x8000, CurrentElements: 10}, ctx.DefinedTable(0))

	ctx.SetBuiltinFunction(0, 0x9000)
	require.Equal(t, uint64(0x9000), ctx.BuiltinFunction(0))

	ctx.SetLastWasmExitFP(1)
	ctx.SetLastWasmExitPC(2)
	ctx.SetLastWasmEntryFP(3)
	require.Equal(t, uint64(1), ctx.LastWasmExitFP())
	require.Equal(t, uint64(2), ctx.LastWasmExitPC())
	require.Equal(t, uint64(3), ctx.LastWasmEntryFP())
}

func TestContextDefinedGlobalBytesIsWithinBounds(t *testing.T) {
	plan := NewPlan(0, 0, 0, 0, 0, 0, 24, 0)
	ctx := NewContext(plan)

	b := ctx.DefinedGlobalBytes(8, 8)
	require.Len(t, b, 8)
	copy(b, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	require.Equal(t, byte(1), ctx.Base()[plan.DefinedGlobalsBaseOffset()+8])
}

func TestContextPanicsOnOutOfRangeIndex(t *testing.T) {
	plan := NewPlan(1, 0, 0, 0, 0, 0, 0, 0)
	ctx := NewContext(plan)
	require.Panics(t, func() { ctx.ImportedFunction(1) })
}
