package ssa

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuilderIaddImmAndIcmpProduceTypedValues(t *testing.T) {
	b := NewBuilder()
	blk := b.CreateBlock()
	b.SetCurrentBlock(blk)

	base := b.InsertIconst(TypeI32, 4)
	sum := b.InsertIaddImm(base, 8)
	require.Equal(t, TypeI32, sum.Type())

	cmp := b.InsertIcmpImm(IntCCUnsignedGreaterThanOrEqual, sum, 100)
	require.Equal(t, TypeI32, cmp.Type())
	require.Len(t, blk.Instructions(), 3)
}

func TestBuilderSelectSpectreGuardCarriesOperandType(t *testing.T) {
	b := NewBuilder()
	blk := b.CreateBlock()
	b.SetCurrentBlock(blk)

	cond := b.InsertIconst(TypeI32, 0)
	zero := b.InsertIconst(TypeI64, 0)
	addr := b.InsertIconst(TypeI64, 0xdead)
	guarded := b.InsertSelectSpectreGuard(cond, zero, addr)
	require.Equal(t, TypeI64, guarded.Type())
}

func TestBuilderJumpRecordsPredecessor(t *testing.T) {
	b := NewBuilder()
	entry := b.CreateBlock()
	target := b.CreateBlock()
	b.SetCurrentBlock(entry)
	b.InsertJump(target, nil)

	require.Equal(t, []BasicBlockID{entry.ID()}, target.Preds())
}

func TestBuilderVariableDefAndFind(t *testing.T) {
	b := NewBuilder()
	blk := b.CreateBlock()
	b.SetCurrentBlock(blk)

	local := b.DeclareVariable(TypeI32)
	v := b.InsertIconst(TypeI32, 42)
	b.DefVar(local, v, blk)
	require.Equal(t, v, b.FindValue(local, blk))
}

func TestInstructionSetFactRoundTrips(t *testing.T) {
	b := NewBuilder()
	blk := b.CreateBlock()
	b.SetCurrentBlock(blk)
	b.InsertIconst(TypeI32, 1)

	inst := b.LastInstruction()
	inst.SetFact(Def{Value: inst.Return()})
	_, ok := inst.Fact().(Def)
	require.True(t, ok)
}

func TestBranchTargetIdentificationFlagPerBlock(t *testing.T) {
	b := NewBuilder()
	blk := b.CreateBlock()
	require.False(t, blk.BranchTargetIdentification())
	blk.SetBranchTargetIdentification(true)
	require.True(t, blk.BranchTargetIdentification())

	require.False(t, b.BranchTargetIdentification())
	b.SetBranchTargetIdentification(true)
	require.True(t, b.BranchTargetIdentification())
}
