package platform

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegionState_MonotoneTransitions(t *testing.T) {
	pageSize := hostPageSize()

	t.Run("none to rw to rx is allowed", func(t *testing.T) {
		s := newRegionState(4 * pageSize)
		require.NoError(t, s.request(0, pageSize, ProtRW, ProtNone))
		require.NoError(t, s.request(0, pageSize, ProtRX, ProtRW))
	})

	t.Run("rw to ro is allowed", func(t *testing.T) {
		s := newRegionState(4 * pageSize)
		require.NoError(t, s.request(0, pageSize, ProtRW, ProtNone))
		require.NoError(t, s.request(0, pageSize, ProtRO, ProtRW))
	})

	t.Run("rx back to rw is rejected", func(t *testing.T) {
		s := newRegionState(4 * pageSize)
		require.NoError(t, s.request(0, pageSize, ProtRW, ProtNone))
		require.NoError(t, s.request(0, pageSize, ProtRX, ProtRW))
		require.Error(t, s.request(0, pageSize, ProtRW, ProtRW))
	})

	t.Run("ro back to rw is rejected", func(t *testing.T) {
		s := newRegionState(4 * pageSize)
		require.NoError(t, s.request(0, pageSize, ProtRW, ProtNone))
		require.NoError(t, s.request(0, pageSize, ProtRO, ProtRW))
		require.Error(t, s.request(0, pageSize, ProtRW, ProtRO))
	})

	t.Run("disjoint ranges transition independently", func(t *testing.T) {
		s := newRegionState(4 * pageSize)
		require.NoError(t, s.request(0, pageSize, ProtRW, ProtNone))
		require.NoError(t, s.request(pageSize, 2*pageSize, ProtRW, ProtNone))
		require.NoError(t, s.request(0, pageSize, ProtRX, ProtRW))
		require.NoError(t, s.request(pageSize, 2*pageSize, ProtRO, ProtRW))
	})

	t.Run("start must be page aligned", func(t *testing.T) {
		s := newRegionState(4 * pageSize)
		require.Error(t, s.request(1, pageSize, ProtRW, ProtNone))
	})

	t.Run("out of bounds range rejected", func(t *testing.T) {
		s := newRegionState(pageSize)
		require.Error(t, s.request(0, 2*pageSize, ProtRW, ProtNone))
	})
}

func TestRoundUpToPage(t *testing.T) {
	pageSize := hostPageSize()
	require.Equal(t, 0, RoundUpToPage(0))
	require.Equal(t, pageSize, RoundUpToPage(1))
	require.Equal(t, pageSize, RoundUpToPage(pageSize))
	require.Equal(t, 2*pageSize, RoundUpToPage(pageSize+1))
}

func TestHostPageSizeLog2IsPowerOfTwoExponent(t *testing.T) {
	require.Equal(t, hostPageSize(), 1<<HostPageSizeLog2())
}
