// Package trap implements the trap-catching unwind mechanism (spec.md §4.J,
// component J): a per-goroutine stack of CallThreadState entries and a
// nonlocal-return signal from a trapping Wasm call back to its nearest
// CatchTraps frame.
//
// Grounded on _examples/original_source/src/vm/trap_handling/mod.rs's
// setjmp/longjmp + thread_local CallThreadState chain. Go has neither
// setjmp/longjmp nor a native thread-local variable; this package
// substitutes the language's own nonlocal-return primitive, panic/recover,
// for longjmp/setjmp (a substitution spec.md §9 sanctions explicitly), and a
// goroutine-local CallThreadState stack (keyed by goroutine ID) for the
// original's std::thread_local!. Per spec.md §9's Open Question resolution,
// CatchTraps recovers only this package's own sentinel payload; any other
// panic value is re-panicked so host bugs are never silently swallowed.
package trap

import (
	"bytes"
	"fmt"
	"runtime"
	"strconv"
	"sync"

	"github.com/wazevoc/aotwasm/internal/vmctx"
)

// Code identifies why a trap fired (spec.md §4.J / §6: the TrapCode set
// internal/ssa's Trapnz/Trap instructions carry).
type Code byte

const (
	CodeHeapOutOfBounds Code = iota
	CodeHeapMisaligned
	CodeTableOutOfBounds
	CodeIndirectCallSignatureMismatch
	CodeUnreachable
	CodeIntegerDivisionByZero
	CodeIntegerOverflow
	CodeBadConversionToInteger
	CodeStackOverflow
)

func (c Code) String() string {
	switch c {
	case CodeHeapOutOfBounds:
		return "heap access out of bounds"
	case CodeHeapMisaligned:
		return "misaligned heap access"
	case CodeTableOutOfBounds:
		return "table access out of bounds"
	case CodeIndirectCallSignatureMismatch:
		return "indirect call signature mismatch"
	case CodeUnreachable:
		return "unreachable executed"
	case CodeIntegerDivisionByZero:
		return "integer division by zero"
	case CodeIntegerOverflow:
		return "integer overflow"
	case CodeBadConversionToInteger:
		return "bad conversion to integer"
	case CodeStackOverflow:
		return "call stack exhausted"
	default:
		return "unknown trap"
	}
}

// Trap is what CatchTraps returns for a Wasm call that trapped: the reason
// plus whatever Wasm backtrace the unwind managed to capture.
type Trap struct {
	Reason    Code
	Backtrace interface{} // *backtrace.Backtrace; interface{} to avoid an import cycle (backtrace reads CallThreadState).
}

func (t *Trap) Error() string {
	return fmt.Sprintf("wasm trap: %s", t.Reason)
}

// raiseSignal is the private panic sentinel this package's own recover
// matches against. Anything else that reaches a CatchTraps closure's defer
// is a host bug (or a genuine Go runtime panic), not a Wasm trap, and must
// propagate rather than be mistaken for one.
type raiseSignal struct {
	state  *CallThreadState
	reason Code
}

// CallThreadState is one entry of the per-goroutine call-state chain:
// spec.md §4.J's CallThreadState, minus the jmp_buf (panic/recover replaces
// it) and minus the Rust Drop impl (pop does the restoration explicitly,
// since Go has no destructors).
type CallThreadState struct {
	vmctx *vmctx.Context
	prev  *CallThreadState

	oldLastWasmExitFP  uint64
	oldLastWasmExitPC  uint64
	oldLastWasmEntryFP uint64
}

// Prev returns the CallThreadState this one was pushed on top of, or nil at
// the bottom of the chain (component K walks this).
func (s *CallThreadState) Prev() *CallThreadState { return s.prev }

// VMContext returns the instance context this call state was entered with.
func (s *CallThreadState) VMContext() *vmctx.Context { return s.vmctx }

var chains sync.Map // goroutineID -> *CallThreadState (the current head)

// goroutineID extracts the calling goroutine's numeric ID from its own
// stack trace header ("goroutine 37 [running]:"). No exported stdlib API
// returns this, so parsing runtime.Stack's own header is the standard
// workaround for goroutine-local storage in Go; grounded on the same
// technique's wide use across the ecosystem for request-scoped state where
// threading a context explicitly isn't an option.
func goroutineID() int64 {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	buf = buf[:n]
	const prefix = "goroutine "
	if !bytes.HasPrefix(buf, []byte(prefix)) {
		panic("trap: unexpected runtime.Stack header")
	}
	buf = buf[len(prefix):]
	end := bytes.IndexByte(buf, ' ')
	if end < 0 {
		panic("trap: unexpected runtime.Stack header")
	}
	id, err := strconv.ParseInt(string(buf[:end]), 10, 64)
	if err != nil {
		panic("trap: unexpected runtime.Stack header: " + err.Error())
	}
	return id
}

func head() *CallThreadState {
	if v, ok := chains.Load(goroutineID()); ok {
		return v.(*CallThreadState)
	}
	return nil
}

func setHead(s *CallThreadState) {
	gid := goroutineID()
	if s == nil {
		chains.Delete(gid)
		return
	}
	chains.Store(gid, s)
}

// push installs a new CallThreadState as this goroutine's chain head,
// snapshotting the vmctx's current last-wasm-* fields so pop can restore
// them (spec.md §4.J: nested calls into the same store typically share the
// same last-wasm-* slots, so a nested call's CallThreadState must put them
// back the way it found them on exit).
func push(ctx *vmctx.Context) *CallThreadState {
	s := &CallThreadState{
		vmctx:              ctx,
		prev:               head(),
		oldLastWasmExitFP:  ctx.LastWasmExitFP(),
		oldLastWasmExitPC:  ctx.LastWasmExitPC(),
		oldLastWasmEntryFP: ctx.LastWasmEntryFP(),
	}
	setHead(s)
	return s
}

// pop restores the vmctx's last-wasm-* fields to what they were before this
// CallThreadState was pushed, and removes it from the chain. Called
// unconditionally on both the return and the trap path, by CatchTraps's own
// defer — never left to a finalizer, since the restoration must happen
// before the caller's next Wasm call, not at some later GC pass.
func (s *CallThreadState) pop() {
	if head() != s {
		panic("trap: CallThreadState popped out of order")
	}
	s.vmctx.SetLastWasmExitFP(s.oldLastWasmExitFP)
	s.vmctx.SetLastWasmExitPC(s.oldLastWasmExitPC)
	s.vmctx.SetLastWasmEntryFP(s.oldLastWasmEntryFP)
	setHead(s.prev)
}

// Current returns this goroutine's innermost active CallThreadState, or nil
// if no CatchTraps is active. Component K uses this to capture a backtrace
// from outside a trap (e.g. for diagnostics on a still-running call).
func Current() *CallThreadState { return head() }

// RaiseTrap is the nonlocal return spec.md §4.J calls for: it unwinds to the
// nearest enclosing CatchTraps on this goroutine by panicking with this
// package's private sentinel. Calling it with no enclosing CatchTraps is a
// caller bug: the panic propagates uncaught, same as the original's
// TLS-lookup unwrap() on a missing CallThreadState would abort.
func RaiseTrap(ctx *vmctx.Context, reason Code) {
	s := head()
	if s == nil || s.vmctx != ctx {
		panic(fmt.Sprintf("trap: RaiseTrap(%s) with no matching CatchTraps on this goroutine", reason))
	}
	panic(raiseSignal{state: s, reason: reason})
}

// CatchTraps runs closure with a fresh CallThreadState pushed for ctx,
// converting a matching RaiseTrap call anywhere beneath it (however deep,
// including through further nested Wasm-to-Wasm calls) into a returned
// *Trap instead of a panic. Grounded on the original's catch_traps: push,
// run, pop always, and on a trapping unwind attach a captured backtrace.
func CatchTraps(ctx *vmctx.Context, closure func(*vmctx.Context)) (trapped *Trap) {
	state := push(ctx)
	defer func() {
		r := recover()
		if r == nil {
			state.pop()
			return
		}
		sig, ok := r.(raiseSignal)
		if !ok || sig.state != state {
			state.pop()
			// Not our own sentinel (or it belongs to an outer CatchTraps on
			// the same goroutine, which must see it too): never swallow a
			// host panic or a trap meant for a different frame.
			panic(r)
		}
		// Capture before pop: pop restores the saved exit PC/FP fields.
		bt := captureBacktrace(state)
		state.pop()
		trapped = &Trap{Reason: sig.reason, Backtrace: bt}
	}()
	closure(ctx)
	return nil
}

// captureBacktrace is filled in by internal/backtrace via SetBacktraceCapture,
// avoiding an import cycle (backtrace.Capture needs CallThreadState, which
// lives here).
var captureBacktraceFunc func(*CallThreadState) interface{}

func captureBacktrace(s *CallThreadState) interface{} {
	if captureBacktraceFunc == nil {
		return nil
	}
	return captureBacktraceFunc(s)
}

// SetBacktraceCapture registers the backtrace-capture hook. Called once, by
// internal/backtrace's own init, so CatchTraps can attach a Backtrace to
// every Trap without this package importing internal/backtrace directly.
func SetBacktraceCapture(f func(*CallThreadState) interface{}) {
	captureBacktraceFunc = f
}
