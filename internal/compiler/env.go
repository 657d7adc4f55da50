// Package compiler implements the translation environment, the heap and
// table lowering algorithms, and the per-function translator skeleton
// (spec.md §4.E–4.H): the part of the pipeline that turns one Wasm
// function body into IR built through internal/ssa.
//
// Grounded on _examples/original_source's translate_cranelift/{heap,table,
// func_translator}.rs and translate/{table,memory,global}.rs, adapted to
// internal/ssa's Builder instead of cranelift's FunctionBuilder, and on
// this module's own internal/wasm data model for memory/table/global
// descriptors instead of cranelift-wasm's ModuleTranslation.
package compiler

import (
	"github.com/wazevoc/aotwasm/internal/ssa"
	"github.com/wazevoc/aotwasm/internal/vmctx"
	"github.com/wazevoc/aotwasm/internal/wasm"
)

// PointerType is the IR type used for addresses; this module targets
// 64-bit hosts only (spec.md's Non-goals exclude 32-bit ISAs).
const PointerType = ssa.TypeI64

// Config is the target/feature knob set a TranslationEnvironment is built
// from — heap_access_spectre_mitigation and proof_carrying_code are
// RuntimeConfig-level choices (component N, SPEC_FULL.md §2), not per-function state.
type Config struct {
	HeapAccessSpectreMitigation bool
	ProofCarryingCode           bool
	BranchProtection            bool
}

// Environment is the Translation Environment (component E): the read-only
// context H/F/G query while translating one function. It is built once per
// module compile and shared read-only across that module's functions.
type Environment struct {
	cfg     Config
	module  *wasm.Module
	plan    *vmctx.Plan
	vmctxVar ssa.Variable // the implicit vmctx parameter's Variable, once declared by the translator.
}

// NewEnvironment builds a Translation Environment for one module compile.
func NewEnvironment(cfg Config, module *wasm.Module, plan *vmctx.Plan) *Environment {
	return &Environment{cfg: cfg, module: module, plan: plan}
}

func (e *Environment) PointerType() ssa.Type { return PointerType }

// IsWasmParameter distinguishes a function's normal Wasm parameter
// positions from the implicit leading VMContext parameter every compiled
// function actually takes (spec.md §4.H step 2).
func (e *Environment) IsWasmParameter(signatureIndex int) bool {
	return signatureIndex > 0
}

// ReferenceType maps a Wasm reference type to its IR representation and
// whether values of it need a stack map entry for precise GC/backtrace
// scanning. This core has no garbage collector (funcref/externref are
// opaque pointers to host-owned state), so nothing currently needs a stack
// map; the bit is still threaded through so a host embedding with managed
// references can turn it on without changing this package's contract.
func (e *Environment) ReferenceType(t wasm.ValueType) (ssa.Type, bool) {
	switch t {
	case wasm.ValueTypeFuncref, wasm.ValueTypeExternref:
		return PointerType, false
	default:
		panic("compiler: ReferenceType called with a non-reference type")
	}
}

// TranslateRefNull emits the null value for a typed nullable reference: a
// zero pointer-width constant, since references carry no inline tag this
// core's translator needs to special-case.
func (e *Environment) TranslateRefNull(b ssa.Builder, t wasm.ValueType) ssa.Value {
	irType, _ := e.ReferenceType(t)
	return b.InsertIconst(irType, 0)
}

func (e *Environment) HeapAccessSpectreMitigation() bool { return e.cfg.HeapAccessSpectreMitigation }

func (e *Environment) ProofCarryingCode() bool { return e.cfg.ProofCarryingCode }

// Trapnz emits a conditional trap matching spec.md's `trapnz(builder, cond,
// code)` entry in the Translation Environment's contract: a thin pass-
// through to the Builder, kept on Environment so heap/table lowering call a
// single collaborator rather than two.
func (e *Environment) Trapnz(b ssa.Builder, cond ssa.Value, code ssa.TrapCode) {
	b.InsertTrapnz(cond, code)
}

// Memory looks up memory index i's plan.
func (e *Environment) Memory(i wasm.Index) *wasm.MemoryPlan { return e.module.Memories[i] }

// Table looks up table index i's plan.
func (e *Environment) Table(i wasm.Index) *wasm.TablePlan { return e.module.Tables[i] }

// Global looks up global index i's declaration.
func (e *Environment) Global(i wasm.Index) wasm.Global { return e.module.Globals[i] }

// VMContextPlan is the VM-context field-offset plan this module's
// translation targets.
func (e *Environment) VMContextPlan() *vmctx.Plan { return e.plan }

// SetVMContextVariable records the Variable the translator bound the
// implicit vmctx parameter to, so heap/table lowering (which both need to
// load fields off vmctx) can retrieve it without threading an extra
// parameter through every call.
func (e *Environment) SetVMContextVariable(v ssa.Variable) { e.vmctxVar = v }

func (e *Environment) VMContextVariable() ssa.Variable { return e.vmctxVar }
