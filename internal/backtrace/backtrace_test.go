package backtrace

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wazevoc/aotwasm/internal/trap"
	"github.com/wazevoc/aotwasm/internal/vmctx"
)

type fakeWalker struct{ base int }

func (w fakeWalker) FunctionIndexOf(codeOffset int) (uint32, bool) {
	if codeOffset < w.base {
		return 0, false
	}
	return uint32(codeOffset - w.base), true
}

func TestCaptureProducesOneFrameForOneNestedTrappingCall(t *testing.T) {
	ctx := vmctx.NewContext(vmctx.NewPlan(0, 0, 0, 0, 0, 0, 0, 0))

	var bt *Backtrace
	trapped := trap.CatchTraps(ctx, func(c *vmctx.Context) {
		c.SetLastWasmExitPC(42)
		trap.RaiseTrap(c, trap.CodeUnreachable)
	})
	require.NotNil(t, trapped)
	bt, _ = trapped.Backtrace.(*Backtrace)
	require.NotNil(t, bt)
	require.Len(t, bt.Frames, 1)
}

func TestCaptureSkipsFramesWithNoRecordedExitPC(t *testing.T) {
	ctx := vmctx.NewContext(vmctx.NewPlan(0, 0, 0, 0, 0, 0, 0, 0))
	trapped := trap.CatchTraps(ctx, func(c *vmctx.Context) {
		trap.RaiseTrap(c, trap.CodeUnreachable)
	})
	require.NotNil(t, trapped)
	bt, _ := trapped.Backtrace.(*Backtrace)
	require.NotNil(t, bt)
	require.Empty(t, bt.Frames)
}

func TestCaptureResolvesFunctionIndexViaWalker(t *testing.T) {
	ctx := vmctx.NewContext(vmctx.NewPlan(0, 0, 0, 0, 0, 0, 0, 0))
	ctx.SetLastWasmExitPC(105)

	var bt *Backtrace
	trapped := trap.CatchTraps(ctx, func(c *vmctx.Context) {
		bt = Capture(trap.Current(), fakeWalker{base: 100})
	})
	require.Nil(t, trapped)
	require.NotNil(t, bt)
	require.Len(t, bt.Frames, 1)
	require.Equal(t, uint32(5), bt.Frames[0].FunctionIndex)
	require.Equal(t, 105, bt.Frames[0].CodeOffset)
}

func TestCaptureDropsFrameWhenWalkerCannotResolveIt(t *testing.T) {
	ctx := vmctx.NewContext(vmctx.NewPlan(0, 0, 0, 0, 0, 0, 0, 0))
	ctx.SetLastWasmExitPC(5)

	var bt *Backtrace
	trapped := trap.CatchTraps(ctx, func(c *vmctx.Context) {
		bt = Capture(trap.Current(), fakeWalker{base: 100})
	})
	require.Nil(t, trapped)
	require.NotNil(t, bt)
	require.Empty(t, bt.Frames)
}
