package wasm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTablePlanStaticWhenMinimumEqualsMaximum(t *testing.T) {
	max := uint32(4)
	plan, err := NewTablePlan(ValueTypeFuncref, 4, &max, 8)
	require.NoError(t, err)
	bound, ok := plan.StaticBound()
	require.True(t, ok)
	require.Equal(t, uint32(4), bound)
}

func TestNewTablePlanDynamicWhenUnbounded(t *testing.T) {
	plan, err := NewTablePlan(ValueTypeFuncref, 4, nil, 8)
	require.NoError(t, err)
	_, ok := plan.StaticBound()
	require.False(t, ok)
}

func TestNewTablePlanRejectsNonReferenceElementType(t *testing.T) {
	_, err := NewTablePlan(ValueTypeI32, 0, nil, 8)
	require.Error(t, err)
}

func TestNewTablePlanRejectsMaximumBelowMinimum(t *testing.T) {
	max := uint32(1)
	_, err := NewTablePlan(ValueTypeFuncref, 4, &max, 8)
	require.Error(t, err)
}
