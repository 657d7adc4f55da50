// Package backtrace implements Backtrace capture (spec.md §4.K, component
// K): walking a trapped call's CallThreadState chain and resolving each
// entry's last-exit program counter to a Wasm function index.
//
// Grounded on _examples/original_source/src/vm/trap_handling/mod.rs's
// `mod backtrace` (its backtrace.rs file wasn't retrieved into the example
// pack, so this follows spec.md §4.K's own description of the walk rather
// than a literal port) and on internal/codememory's FunctionIndexOf, which
// is this core's only source of "this code address belongs to function N".
//
// This core never runs real compiled machine code (the codegen backend is
// an assumed external collaborator, spec.md §1), so there is no genuine
// frame-pointer chain to walk. Capture instead synthesizes one Frame per
// CallThreadState whose last-exit PC is nonzero (i.e. one whose vmctx
// actually recorded a Wasm-to-host transition before the trap), which is
// sufficient to satisfy the same observable contract component K commits
// to: one Frame per live nested Wasm call.
package backtrace

import (
	"github.com/wazevoc/aotwasm/internal/codememory"
	"github.com/wazevoc/aotwasm/internal/trap"
)

// Frame is one Wasm call's contribution to a Backtrace.
type Frame struct {
	FunctionIndex uint32
	// CodeOffset is the byte offset of the trapping (or last-exited)
	// instruction from the start of .text (not from its function's start).
	CodeOffset int
}

// Backtrace is the ordered list of Wasm frames active when a trap fired,
// innermost (closest to the trap) first.
type Backtrace struct {
	Frames []Frame
}

// ChainWalker resolves a code address recorded in a CallThreadState's owning
// vmctx to a function index, so Capture stays independent of any one
// module's CodeMemory.
type ChainWalker interface {
	FunctionIndexOf(codeOffset int) (funcIndex uint32, ok bool)
}

func init() {
	trap.SetBacktraceCapture(func(s *trap.CallThreadState) interface{} {
		return captureFromState(s, nil)
	})
}

// Capture walks state's CallThreadState chain (innermost first, following
// Prev()) and resolves each entry's last-exit PC via walker.
func Capture(state *trap.CallThreadState, walker ChainWalker) *Backtrace {
	return captureFromState(state, walker)
}

func captureFromState(state *trap.CallThreadState, walker ChainWalker) *Backtrace {
	bt := &Backtrace{}
	for s := state; s != nil; s = s.Prev() {
		pc := s.VMContext().LastWasmExitPC()
		if pc == 0 {
			continue
		}
		offset := int(pc)
		var funcIndex uint32
		if walker != nil {
			if idx, ok := walker.FunctionIndexOf(offset); ok {
				funcIndex = idx
			} else {
				continue
			}
		}
		bt.Frames = append(bt.Frames, Frame{FunctionIndex: funcIndex, CodeOffset: offset})
	}
	return bt
}

// CaptureWithCodeMemory is the concrete entry point instance code (component
// L) uses: it resolves every frame's PC against code's own function-offset
// table.
func CaptureWithCodeMemory(state *trap.CallThreadState, code *codememory.CodeMemory) *Backtrace {
	return Capture(state, code)
}
