// Package aotwasm is the public facade (component L, SPEC_FULL.md §4.L):
// compile a validated wasm.Module into a CompiledModule, instantiate it
// into an Instance, call its exports. It is deliberately thin glue over
// A-K, not a general linker — wasm binary decoding, structural validation
// and the actual per-opcode IR lowering are external collaborators this
// package only calls into through the FunctionCompiler/CodeGenerator seams
// below (spec.md §1's scope boundary).
//
// Grounded on _examples/tetratelabs-wazero's root runtime.go/engine.go
// split: Runtime owns RuntimeConfig and hands out CompiledModules;
// CompiledModule is reusable across many Instantiate calls.
package aotwasm

import (
	"fmt"

	"github.com/wazevoc/aotwasm/internal/codememory"
	"github.com/wazevoc/aotwasm/internal/compiler"
	"github.com/wazevoc/aotwasm/internal/mmapvec"
	"github.com/wazevoc/aotwasm/internal/ssa"
	"github.com/wazevoc/aotwasm/internal/vmctx"
	"github.com/wazevoc/aotwasm/internal/wasm"
)

// FunctionCompiler supplies the parts of one function's compilation this
// core assumes exist upstream (spec.md §1: binary decoding, structural
// validation and the actual per-Wasm-opcode IR lowering are all external).
// CompileModule calls back into it once per function.
type FunctionCompiler interface {
	// NewBodyReader returns a stream over fn's operator sequence.
	NewBodyReader(fn *wasm.Function, sig *wasm.FunctionType) compiler.BodyReader
	// NewValidator returns the streaming validator CompileModule feeds
	// every local declaration and operator through.
	NewValidator(fn *wasm.Function, sig *wasm.FunctionType) compiler.Validator
	// TranslateOperator lowers one decoded operator into t's IR (spec.md
	// §4.H step 5's "external ... not specified here").
	TranslateOperator(t *compiler.FunctionTranslator, pos uint32, op compiler.Operator) error
}

// CodeGenerator is the assumed SSA codegen backend (spec.md §1): given one
// function's finished IR, it produces that function's compiled object
// bytes, ready to append to the module's mapped vector (component B).
type CodeGenerator interface {
	Emit(b ssa.Builder) (object []byte, err error)
}

// Runtime owns a RuntimeConfig and compiles modules against it. A zero
// Runtime is not valid; use NewRuntime.
type Runtime struct {
	cfg *RuntimeConfig
}

// NewRuntime returns a Runtime configured by cfg. A nil cfg uses
// NewRuntimeConfig()'s defaults, mirroring the teacher's own permissive
// nil-config handling at the Runtime-construction boundary.
func NewRuntime(cfg *RuntimeConfig) *Runtime {
	if cfg == nil {
		cfg = NewRuntimeConfig()
	}
	return &Runtime{cfg: cfg}
}

// CompileModule translates every function of module into a published,
// executable artifact (components A-H): a VMContextPlan sized to module's
// import/definition counts, and one compiled body per defined function,
// concatenated into Code Memory.
func (rt *Runtime) CompileModule(module *wasm.Module, fc FunctionCompiler, codegen CodeGenerator) (*CompiledModule, error) {
	for i, memPlan := range module.Memories {
		if err := memPlan.SetGuardSize(rt.cfg.MemoryGuardSize()); err != nil {
			return nil, fmt.Errorf("aotwasm: memory %d: %w", i, err)
		}
	}

	plan := vmctx.NewPlan(
		module.NumImportedFunctions, module.NumImportedTables, module.NumImportedMemories, module.NumImportedGlobals,
		uint32(len(module.Memories)), uint32(len(module.Tables)), definedGlobalBytes(module), numBuiltinFunctions,
	)

	envCfg := compiler.Config{
		HeapAccessSpectreMitigation: rt.cfg.HeapAccessSpectreMitigation(),
		ProofCarryingCode:           rt.cfg.ProofCarryingCode(),
		BranchProtection:            rt.cfg.BranchProtection(),
	}

	// Translation and codegen run first, producing every function's object
	// bytes before any of them touch the mapped vector: Vec.Reserve (spec.md
	// §4.B) must be given its final capacity up front and is a caller
	// defect to exceed, so the total size has to be known before the first
	// byte is written.
	objects := make([][]byte, len(module.Functions))
	offsets := make([]codememory.FunctionOffset, len(module.Functions))
	textLen := 0
	for i, fn := range module.Functions {
		fnIndex := module.NumImportedFunctions + uint32(i)
		sig := module.Types[fn.TypeIndex]

		env := compiler.NewEnvironment(envCfg, module, plan)
		b := ssa.NewBuilder()
		ft := compiler.NewFunctionTranslator(env, b)

		body := fc.NewBodyReader(&module.Functions[i], sig)
		v := fc.NewValidator(&module.Functions[i], sig)
		if err := ft.Translate(sig, body, v, fc.TranslateOperator); err != nil {
			return nil, fmt.Errorf("aotwasm: translating function %d: %w", fnIndex, err)
		}

		object, err := codegen.Emit(b)
		if err != nil {
			return nil, fmt.Errorf("aotwasm: code generation for function %d: %w", fnIndex, err)
		}

		objects[i] = object
		offsets[i] = codememory.FunctionOffset{FunctionIndex: fnIndex, Offset: textLen}
		textLen += len(object)
	}

	vec := mmapvec.WithReserve(codememory.AlignedTextEnd(textLen))
	for _, object := range objects {
		vec.WriteBytes(object)
	}
	vec.Resize(codememory.AlignedTextEnd(textLen))

	code, err := codememory.New(vec, textLen, offsets, rt.cfg.BranchProtection())
	if err != nil {
		return nil, fmt.Errorf("aotwasm: publishing code memory: %w", err)
	}

	offsetByIndex := make(map[wasm.Index]int, len(offsets))
	for _, o := range offsets {
		offsetByIndex[o.FunctionIndex] = o.Offset
	}

	return &CompiledModule{module: module, cfg: rt.cfg, plan: plan, code: code, offsets: offsetByIndex}, nil
}

// numBuiltinFunctions is the fixed count of host-provided builtin function
// slots every VMContext reserves (spec.md §3): memory.grow, table.grow and
// the two the trap/backtrace machinery needs to call back into the host.
const numBuiltinFunctions = 4

func definedGlobalBytes(module *wasm.Module) uint32 {
	var total uint32
	for _, g := range module.Globals {
		total += globalByteSize(g.Type)
	}
	return total
}

func globalByteSize(t wasm.ValueType) uint32 {
	switch t {
	case wasm.ValueTypeI32, wasm.ValueTypeF32:
		return 4
	case wasm.ValueTypeV128:
		return 16
	default:
		return 8 // i64, f64, funcref, externref (pointer-sized on this core's 64-bit-only target).
	}
}
