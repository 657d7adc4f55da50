package aotwasm

import (
	"fmt"
	"unsafe"

	"github.com/wazevoc/aotwasm/internal/backtrace"
	"github.com/wazevoc/aotwasm/internal/platform"
	"github.com/wazevoc/aotwasm/internal/trap"
	"github.com/wazevoc/aotwasm/internal/vmctx"
	"github.com/wazevoc/aotwasm/internal/wasm"
)

// Imports supplies every entry a module's import section declared, already
// resolved by the host (cross-module linking is linker policy, outside
// this core's scope per spec.md §1 — Imports is where that policy hands
// its results to Instantiate). Each slice's length must equal the
// corresponding CompiledModule.Module().NumImported* count.
type Imports struct {
	Functions []vmctx.FuncRef
	Tables    []vmctx.TableRef
	Memories  []vmctx.MemoryRef
	Globals   []vmctx.GlobalRef
}

// FunctionInvoker is the assumed call mechanism for entering compiled code
// (spec.md §1's codegen backend, on its execution side): given a function's
// starting offset into Code Memory's .text and a vmctx, it runs the
// function and returns its results. A genuine implementation sets up the
// native calling convention and jumps into internal/codememory's executable
// bytes; this core supplies only the surrounding call/trap/backtrace
// machinery (J/K) that every such implementation needs regardless of ISA.
type FunctionInvoker interface {
	Invoke(ctx *vmctx.Context, codeOffset int, args []uint64) ([]uint64, error)
}

// Instance is one instantiation of a CompiledModule: a live VMContext with
// its imports installed and its own defined memories/tables allocated.
type Instance struct {
	compiled *CompiledModule
	ctx      *vmctx.Context
	invoker  FunctionInvoker

	memoryRegions []*platform.MappedRegion
	tableRegions  []*platform.MappedRegion

	// stack is a Go-owned call stack sized from RuntimeConfig's
	// InitialStackSize, handed to a FunctionInvoker via StackTop the way
	// the teacher's callEngine hands its own stack's aligned top address
	// to the compiled entrypoint (call_engine.go's alignedStackTop).
	stack []byte
}

// Instantiate builds a VMContext for compiled sized by its Plan, installs
// imports into the import tables, allocates and maps every defined memory
// and table, then (if the module declares one) runs the start function
// inside CatchTraps (component J), matching spec.md §4.L.
func (rt *Runtime) Instantiate(compiled *CompiledModule, imports Imports, invoker FunctionInvoker) (*Instance, error) {
	m := compiled.module
	if uint32(len(imports.Functions)) != m.NumImportedFunctions ||
		uint32(len(imports.Tables)) != m.NumImportedTables ||
		uint32(len(imports.Memories)) != m.NumImportedMemories ||
		uint32(len(imports.Globals)) != m.NumImportedGlobals {
		return nil, fmt.Errorf("aotwasm: imports do not match module's import counts")
	}

	ctx := vmctx.NewContext(compiled.plan)
	for i, ref := range imports.Functions {
		ctx.SetImportedFunction(uint32(i), ref)
	}
	for i, ref := range imports.Tables {
		ctx.SetImportedTable(uint32(i), ref)
	}
	for i, ref := range imports.Memories {
		ctx.SetImportedMemory(uint32(i), ref)
	}
	for i, ref := range imports.Globals {
		ctx.SetImportedGlobal(uint32(i), ref)
	}

	inst := &Instance{compiled: compiled, ctx: ctx, invoker: invoker, stack: make([]byte, compiled.cfg.InitialStackSize())}

	for i, plan := range m.Memories {
		region, def, err := allocateMemory(plan)
		if err != nil {
			inst.Close()
			return nil, fmt.Errorf("aotwasm: allocating memory %d: %w", i, err)
		}
		inst.memoryRegions = append(inst.memoryRegions, region)
		ctx.SetDefinedMemory(uint32(i), def)
	}

	for i, plan := range m.Tables {
		region, def, err := allocateTable(plan)
		if err != nil {
			inst.Close()
			return nil, fmt.Errorf("aotwasm: allocating table %d: %w", i, err)
		}
		inst.tableRegions = append(inst.tableRegions, region)
		ctx.SetDefinedTable(uint32(i), def)
	}

	if m.StartFunction != nil {
		if trapped := inst.callIndex(*m.StartFunction, nil); trapped != nil {
			inst.Close()
			return nil, trapped
		}
	}

	return inst, nil
}

// allocateMemory reserves plan's full address-space bound (or, for a
// dynamic-style plan, its current minimum plus guard) and commits its
// guaranteed-accessible prefix, per spec.md §3's Memory region model.
func allocateMemory(plan *wasm.MemoryPlan) (*platform.MappedRegion, vmctx.MemoryDefinition, error) {
	reserveSize := plan.Bound
	if reserveSize == 0 {
		reserveSize = plan.MinSize
	}
	reserveSize += plan.OffsetGuardSize
	region := platform.NewReservedRegion(platform.RoundUpToPage(int(reserveSize)))
	if plan.MinSize > 0 {
		if err := region.MakeAccessible(0, platform.RoundUpToPage(int(plan.MinSize))); err != nil {
			return nil, vmctx.MemoryDefinition{}, err
		}
	}
	return region, vmctx.MemoryDefinition{Base: regionAddress(region), CurrentLength: plan.MinSize}, nil
}

// allocateTable maps a plain RW region sized for the table's minimum
// element count; Grow (out of scope for this core's facade, spec.md's
// Non-goals) would remap a larger region the same way a real embedder's
// linker step does.
func allocateTable(plan *wasm.TablePlan) (*platform.MappedRegion, vmctx.TableDefinition, error) {
	size := uint64(plan.Minimum) * uint64(plan.ElementSize)
	region := platform.NewRegion(platform.RoundUpToPage(int(size)))
	return region, vmctx.TableDefinition{Base: regionAddress(region), CurrentElements: uint64(plan.Minimum)}, nil
}

// StackTop is the 16-byte-aligned address of the top of this instance's
// reserved call stack (RuntimeConfig.InitialStackSize bytes), the value a
// FunctionInvoker hands to compiled code as its initial stack pointer.
// Grounded on the teacher's call_engine.go alignedStackTop, which takes
// the address of its stack slice's last byte and masks off the low bits.
func (inst *Instance) StackTop() uintptr {
	if len(inst.stack) == 0 {
		return 0
	}
	addr := uintptr(unsafe.Pointer(&inst.stack[len(inst.stack)-1]))
	return addr &^ 15
}

// regionAddress is the address compiled code would load as a
// MemoryDefinition/TableDefinition's base pointer. Grounded on the
// teacher's own call_engine.go, which likewise takes the address of a Go
// slice's first element to hand to compiled/assembly code
// (uintptr(unsafe.Pointer(&s[0]))).
func regionAddress(region *platform.MappedRegion) uint64 {
	b := region.Bytes()
	if len(b) == 0 {
		return 0
	}
	return uint64(uintptr(unsafe.Pointer(&b[0])))
}

// Call looks up name among the module's exports and invokes it through
// CatchTraps, returning its results or the Trap that unwound it.
func (inst *Instance) Call(name string, args ...uint64) ([]uint64, *Trap) {
	export, ok := inst.compiled.exportIndex(name)
	if !ok {
		panic(fmt.Sprintf("aotwasm: no such export %q", name))
	}
	if export.Kind != wasm.ImportKindFunction {
		panic(fmt.Sprintf("aotwasm: export %q is not a function", name))
	}
	var results []uint64
	trapped := inst.callIndexResults(export.Index, args, &results)
	return results, trapped
}

func (inst *Instance) callIndex(fnIndex wasm.Index, args []uint64) *Trap {
	var discard []uint64
	return inst.callIndexResults(fnIndex, args, &discard)
}

func (inst *Instance) callIndexResults(fnIndex wasm.Index, args []uint64, out *[]uint64) *Trap {
	codeOffset, ok := inst.compiled.offsets[fnIndex]
	if !ok {
		panic(fmt.Sprintf("aotwasm: function %d has no compiled body", fnIndex))
	}
	t := trap.CatchTraps(inst.ctx, func(ctx *vmctx.Context) {
		results, err := inst.invoker.Invoke(ctx, codeOffset, args)
		if err != nil {
			trap.RaiseTrap(ctx, trap.CodeUnreachable)
			return
		}
		*out = results
	})
	if t == nil {
		return nil
	}
	if bt, ok := t.Backtrace.(*backtrace.Backtrace); ok {
		for i := range bt.Frames {
			if idx, ok := inst.compiled.code.FunctionIndexOf(bt.Frames[i].CodeOffset); ok {
				bt.Frames[i].FunctionIndex = idx
			}
		}
	}
	return &Trap{reason: t.Reason, backtrace: t.Backtrace}
}

// Trap is the public form of internal/trap.Trap, with its Backtrace
// resolved to this instance's own CodeMemory (component K).
type Trap struct {
	reason    trap.Code
	backtrace interface{}
}

func (t *Trap) Error() string { return fmt.Sprintf("wasm trap: %s", t.reason) }

// Backtrace returns the Wasm call chain active when the trap fired.
func (t *Trap) Backtrace() *backtrace.Backtrace {
	bt, _ := t.backtrace.(*backtrace.Backtrace)
	return bt
}

// Close releases every resource this instance owns: its memories, tables
// and (if it's the module's last live instance) nothing else — Code Memory
// is owned by the CompiledModule, not the Instance, since it's shared
// across instances.
func (inst *Instance) Close() error {
	var firstErr error
	for _, r := range inst.memoryRegions {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, r := range inst.tableRegions {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
