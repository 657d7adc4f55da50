package trap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wazevoc/aotwasm/internal/vmctx"
)

func TestCatchTrapsReturnsNilOnNormalReturn(t *testing.T) {
	ctx := vmctx.NewContext(vmctx.NewPlan(0, 0, 0, 0, 0, 0, 0, 0))
	trapped := CatchTraps(ctx, func(*vmctx.Context) {})
	require.Nil(t, trapped)
}

func TestCatchTrapsConvertsRaiseTrapToTrap(t *testing.T) {
	ctx := vmctx.NewContext(vmctx.NewPlan(0, 0, 0, 0, 0, 0, 0, 0))
	trapped := CatchTraps(ctx, func(c *vmctx.Context) {
		RaiseTrap(c, CodeIntegerDivisionByZero)
	})
	require.NotNil(t, trapped)
	require.Equal(t, CodeIntegerDivisionByZero, trapped.Reason)
}

func TestCatchTrapsRestoresLastWasmFieldsOnTrap(t *testing.T) {
	ctx := vmctx.NewContext(vmctx.NewPlan(0, 0, 0, 0, 0, 0, 0, 0))
	ctx.SetLastWasmExitFP(0xAAAA)
	ctx.SetLastWasmExitPC(0xBBBB)
	ctx.SetLastWasmEntryFP(0xCCCC)

	trapped := CatchTraps(ctx, func(c *vmctx.Context) {
		c.SetLastWasmExitFP(1)
		c.SetLastWasmExitPC(2)
		c.SetLastWasmEntryFP(3)
		RaiseTrap(c, CodeUnreachable)
	})
	require.NotNil(t, trapped)
	require.Equal(t, uint64(0xAAAA), ctx.LastWasmExitFP())
	require.Equal(t, uint64(0xBBBB), ctx.LastWasmExitPC())
	require.Equal(t, uint64(0xCCCC), ctx.LastWasmEntryFP())
}

func TestCatchTrapsRepropagatesForeignPanics(t *testing.T) {
	ctx := vmctx.NewContext(vmctx.NewPlan(0, 0, 0, 0, 0, 0, 0, 0))
	require.Panics(t, func() {
		CatchTraps(ctx, func(*vmctx.Context) {
			panic("not a trap")
		})
	})
}

func TestCatchTrapsNestedInnerTrapOnlyUnwindsToItsOwnFrame(t *testing.T) {
	outerCtx := vmctx.NewContext(vmctx.NewPlan(0, 0, 0, 0, 0, 0, 0, 0))
	innerCtx := vmctx.NewContext(vmctx.NewPlan(0, 0, 0, 0, 0, 0, 0, 0))

	var innerTrap *Trap
	outerTrap := CatchTraps(outerCtx, func(*vmctx.Context) {
		innerTrap = CatchTraps(innerCtx, func(c *vmctx.Context) {
			RaiseTrap(c, CodeStackOverflow)
		})
	})
	require.Nil(t, outerTrap)
	require.NotNil(t, innerTrap)
	require.Equal(t, CodeStackOverflow, innerTrap.Reason)
}

func TestRaiseTrapWithoutCatchTrapsPanics(t *testing.T) {
	ctx := vmctx.NewContext(vmctx.NewPlan(0, 0, 0, 0, 0, 0, 0, 0))
	require.Panics(t, func() { RaiseTrap(ctx, CodeUnreachable) })
}
