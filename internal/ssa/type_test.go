package ssa

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTypeBits(t *testing.T) {
	require.Equal(t, byte(32), TypeI32.Bits())
	require.Equal(t, byte(64), TypeI64.Bits())
	require.True(t, TypeI32.IsInt())
	require.False(t, TypeF64.IsInt())
}

func TestValueTypeTagging(t *testing.T) {
	b := NewBuilder()
	blk := b.CreateBlock()
	b.SetCurrentBlock(blk)
	v := b.InsertIconst(TypeI64, 7)
	require.Equal(t, TypeI64, v.Type())
	require.True(t, v.Valid())
}
