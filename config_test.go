package aotwasm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRuntimeConfigDefaults(t *testing.T) {
	c := NewRuntimeConfig()
	require.True(t, c.HeapAccessSpectreMitigation())
	require.False(t, c.ProofCarryingCode())
	require.True(t, c.BranchProtection())
	require.Equal(t, uint64(1<<31), c.MemoryGuardSize())
}

func TestWithMethodsCloneRatherThanMutate(t *testing.T) {
	base := NewRuntimeConfig()
	derived := base.WithProofCarryingCode(true).WithHeapAccessSpectreMitigation(false)

	require.False(t, base.ProofCarryingCode())
	require.True(t, base.HeapAccessSpectreMitigation())

	require.True(t, derived.ProofCarryingCode())
	require.False(t, derived.HeapAccessSpectreMitigation())
}

func TestWithMemoryGuardSizeAndInitialStackSize(t *testing.T) {
	c := NewRuntimeConfig().WithMemoryGuardSize(1 << 16).WithInitialStackSize(4096)
	require.Equal(t, uint64(1<<16), c.MemoryGuardSize())
	require.Equal(t, uint32(4096), c.InitialStackSize())
}
