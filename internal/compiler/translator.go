package compiler

import (
	"fmt"

	"github.com/wazevoc/aotwasm/internal/ssa"
	"github.com/wazevoc/aotwasm/internal/wasm"
)

// LocalDecl is one `(count, val_type)` group of the local-declaration
// prefix a function body starts with (spec.md §4.H step 3).
type LocalDecl struct {
	Count   uint32
	ValType wasm.ValueType
}

// Validator is the streaming operator validator spec.md §6 describes: it
// is fed every operator and local declaration as the translator walks the
// body, and is the sole authority on whether the body is well-formed.
// Structural validation itself is out of scope for this core (spec.md
// §1); Validator is the interface this package calls into, not an
// implementation.
type Validator interface {
	ValidateOperator(pos uint32, op Operator) error
	DefineLocals(pos uint32, count uint32, t wasm.ValueType) error
	Finish(pos uint32) error
}

// Operator is one decoded operator from a function body's operator
// stream. Opcode distinguishes the function-terminating `end` from every
// other operator; this package never interprets any other opcode's
// operands — lowering one Wasm operator to IR is the per-operator code
// translator spec.md §4.H step 5 calls "external... not specified here".
type Operator struct {
	Opcode byte
	Raw    []byte // the operator's encoded operand bytes, opaque to this package.
}

// OpcodeEnd is the wasm binary format's `end` opcode (0x0B): the only
// opcode value this package itself recognizes, since it both closes the
// function's implicit block (step 6) and terminates the reader loop.
const OpcodeEnd = 0x0B

// BodyReader streams the decoded local-declaration prefix and operator
// sequence of one function body.
type BodyReader interface {
	// Position is the current byte offset as the reader counts it.
	// Translate labels instructions with it unchanged and hands it to
	// Validator/OperatorTranslator, so source positions are offsets from
	// the start of the module only when the reader counts from there.
	Position() uint32

	// ReadLocalDecls consumes the `(count, val_type)*` prefix, emitting one
	// LocalDecl per group.
	ReadLocalDecls() ([]LocalDecl, error)

	// ReadOperator decodes the next operator. EOF is reported by ok ==
	// false with op.Opcode == OpcodeEnd, once the function's own
	// terminating `end` has been consumed (spec.md step 5's "while not
	// EOF").
	ReadOperator() (op Operator, ok bool, err error)
}

// OperatorTranslator is the external per-opcode code translator this
// package delegates every non-structural operator to (spec.md §4.H step
// 5). It receives the FunctionTranslator itself (for Builder/Environment
// access, local-variable lookup and reachability bookkeeping) plus the
// decoded operator. It opens and closes nested block/loop/if frames through
// PushControlFrame/PopControlFrame; FunctionTranslator itself pushes only
// the single function-level frame spec.md step 4 describes.
type OperatorTranslator func(t *FunctionTranslator, pos uint32, op Operator) error

// ControlFrame is the translator's control-stack entry. FunctionTranslator
// pushes exactly one, representing the whole function (spec.md step 4);
// an OperatorTranslator lowering nested blocks/loops/ifs pushes and pops
// its own frames on top. Translate uses the stack depth to tell the
// function's own closing `end` from a nested one.
type ControlFrame struct {
	ExitBlock   *ssa.BasicBlock
	ReturnTypes []wasm.ValueType
	Reachable   bool
}

// FunctionTranslator drives one function body's translation end to end
// (component H): entry/exit block setup, parameter and local binding, the
// read-validate-translate loop, and the final return on the function's
// closing `end`.
type FunctionTranslator struct {
	env     *Environment
	b       ssa.Builder
	locals  []ssa.Variable
	control []ControlFrame
}

// NewFunctionTranslator returns a translator for one function, sharing env
// and b with the heap/table lowering this function's operators will call
// into.
func NewFunctionTranslator(env *Environment, b ssa.Builder) *FunctionTranslator {
	return &FunctionTranslator{env: env, b: b}
}

// Translate runs spec.md §4.H's six-step procedure over one function body.
func (t *FunctionTranslator) Translate(sig *wasm.FunctionType, body BodyReader, v Validator, translateOp OperatorTranslator) error {
	entry := t.b.CreateBlock()
	t.b.SetCurrentBlock(entry)

	// Step 1: the implicit VMContext parameter always occupies signature
	// position 0; every other position is a normal Wasm parameter
	// (env.IsWasmParameter mirrors this convention for F/G's lookups).
	vmctxParam := t.b.DeclareBlockParam(entry, PointerType)
	t.b.AnnotateValue(vmctxParam, "vmctx")
	vmctxVar := t.b.DeclareVariable(PointerType)
	t.b.DefVar(vmctxVar, vmctxParam, entry)
	t.env.SetVMContextVariable(vmctxVar)

	// Step 2: bind each normal Wasm parameter to a local variable.
	t.locals = make([]ssa.Variable, 0, len(sig.Params))
	for i, wt := range sig.Params {
		signatureIndex := i + 1 // position 0 is the implicit vmctx.
		if !t.env.IsWasmParameter(signatureIndex) {
			continue
		}
		irType := wasmValueIRType(t.env, wt)
		param := t.b.DeclareBlockParam(entry, irType)
		local := t.b.DeclareVariable(irType)
		t.b.DefVar(local, param, entry)
		t.locals = append(t.locals, local)
	}
	t.b.SealBlock(entry)

	// Step 3: the local-declaration prefix.
	decls, err := body.ReadLocalDecls()
	if err != nil {
		return fmt.Errorf("compiler: reading local declarations: %w", err)
	}
	for _, d := range decls {
		if err := v.DefineLocals(body.Position(), d.Count, d.ValType); err != nil {
			return fmt.Errorf("compiler: invalid local declaration: %w", err)
		}
		for i := uint32(0); i < d.Count; i++ {
			local, err := t.declareLocal(entry, d.ValType)
			if err != nil {
				return err
			}
			t.locals = append(t.locals, local)
		}
	}

	// Step 4: exit block, the function-level control frame, reachability.
	exit := t.b.CreateBlock()
	for _, rt := range sig.Results {
		t.b.DeclareBlockParam(exit, wasmValueIRType(t.env, rt))
	}
	t.control = []ControlFrame{{ExitBlock: exit, ReturnTypes: sig.Results, Reachable: true}}

	// Step 5: read-validate-translate loop.
	for {
		pos := body.Position()
		op, ok, err := body.ReadOperator()
		if err != nil {
			return fmt.Errorf("compiler: decoding operator at %d: %w", pos, err)
		}
		if !ok {
			break
		}
		if err := v.ValidateOperator(pos, op); err != nil {
			return fmt.Errorf("compiler: invalid operator at %d: %w", pos, err)
		}
		t.b.SetSourcePosition(pos)
		if op.Opcode == OpcodeEnd && len(t.control) == 1 {
			break
		}
		if err := translateOp(t, pos, op); err != nil {
			return fmt.Errorf("compiler: translating operator at %d: %w", pos, err)
		}
	}
	if err := v.Finish(body.Position()); err != nil {
		return fmt.Errorf("compiler: validator finish: %w", err)
	}

	// Step 6: on the function's own End, emit the return if reachable.
	frame := t.control[len(t.control)-1]
	if frame.Reachable {
		// No bitcast is emitted: this minimal translator has no
		// separately-tracked value stack, so the exit block's own
		// parameters, already typed by the declared return types, stand in
		// for "the stack at function end" and are returned as they are (an
		// OperatorTranslator populates them via a jump to exit on every
		// reachable return-equivalent path).
		results := make([]ssa.Value, len(frame.ReturnTypes))
		copy(results, exit.Params())
		t.b.SetCurrentBlock(exit)
		t.b.InsertReturn(results)
	}
	t.control = t.control[:0]
	return nil
}

// declareLocal implements the local-initialization table (spec.md §4.H):
// i32/i64 -> iconst 0, f32/f64 -> fconst 0, v128 -> vconst 0,
// funcref/externref -> env.TranslateRefNull. Only these two nullable
// reference types are accepted; there is no non-null reference type, so
// every declared local gets an initial value.
func (t *FunctionTranslator) declareLocal(entry *ssa.BasicBlock, wt wasm.ValueType) (ssa.Variable, error) {
	switch wt {
	case wasm.ValueTypeI32, wasm.ValueTypeI64:
		irType := wasmValueIRType(t.env, wt)
		local := t.b.DeclareVariable(irType)
		t.b.DefVar(local, t.b.InsertIconst(irType, 0), entry)
		return local, nil
	case wasm.ValueTypeF32, wasm.ValueTypeF64:
		irType := wasmValueIRType(t.env, wt)
		local := t.b.DeclareVariable(irType)
		t.b.DefVar(local, t.b.InsertFconst(irType, 0), entry)
		return local, nil
	case wasm.ValueTypeV128:
		local := t.b.DeclareVariable(ssa.TypeV128)
		t.b.DefVar(local, t.b.InsertVconst(0, 0), entry)
		return local, nil
	case wasm.ValueTypeFuncref, wasm.ValueTypeExternref:
		irType, _ := t.env.ReferenceType(wt)
		local := t.b.DeclareVariable(irType)
		t.b.DefVar(local, t.env.TranslateRefNull(t.b, wt), entry)
		return local, nil
	default:
		return 0, fmt.Errorf("compiler: unsupported local type %s", wasm.ValueTypeName(wt))
	}
}

// LocalVariable returns the Variable bound to Wasm local index i (Wasm
// parameters first, then declared locals, in declaration order), for an
// OperatorTranslator to read/write via local.get/local.set/local.tee.
func (t *FunctionTranslator) LocalVariable(i wasm.Index) ssa.Variable {
	return t.locals[i]
}

// Env exposes the Translation Environment, for an OperatorTranslator's own
// memory/table/global lookups (it calls internal/compiler's LowerHeapAddress
// / LowerTableAddress directly with this).
func (t *FunctionTranslator) Env() *Environment { return t.env }

// Builder exposes the shared Builder an OperatorTranslator emits IR into.
func (t *FunctionTranslator) Builder() ssa.Builder { return t.b }

// Reachable reports whether the innermost control frame (the one an
// OperatorTranslator is currently lowering into) is reachable.
func (t *FunctionTranslator) Reachable() bool {
	return t.control[len(t.control)-1].Reachable
}

// SetReachable updates the innermost control frame's reachability, e.g.
// after an unconditional `unreachable`/`br`/`return` (unreachable) or upon
// entering a block via a live edge (reachable).
func (t *FunctionTranslator) SetReachable(r bool) {
	t.control[len(t.control)-1].Reachable = r
}

// PushControlFrame lets an OperatorTranslator open a nested block/loop/if;
// FunctionTranslator itself never pushes more than the function-level
// frame (step 4) and only ever pops down to it.
func (t *FunctionTranslator) PushControlFrame(f ControlFrame) {
	t.control = append(t.control, f)
}

// PopControlFrame closes the innermost non-function-level frame. Popping
// the function-level frame itself is Translate's own job (step 6), not an
// OperatorTranslator's.
func (t *FunctionTranslator) PopControlFrame() ControlFrame {
	n := len(t.control)
	if n <= 1 {
		panic("compiler: cannot pop the function-level control frame")
	}
	f := t.control[n-1]
	t.control = t.control[:n-1]
	return f
}

// ControlFrameAt returns the control frame `depth` levels up from the
// innermost (0 is innermost), the addressing scheme Wasm's branch targets
// (`br`/`br_if`/`br_table`) use.
func (t *FunctionTranslator) ControlFrameAt(depth uint32) ControlFrame {
	return t.control[len(t.control)-1-int(depth)]
}

func wasmValueIRType(env *Environment, wt wasm.ValueType) ssa.Type {
	switch wt {
	case wasm.ValueTypeI32:
		return ssa.TypeI32
	case wasm.ValueTypeI64:
		return ssa.TypeI64
	case wasm.ValueTypeF32:
		return ssa.TypeF32
	case wasm.ValueTypeF64:
		return ssa.TypeF64
	case wasm.ValueTypeV128:
		return ssa.TypeV128
	case wasm.ValueTypeFuncref, wasm.ValueTypeExternref:
		t, _ := env.ReferenceType(wt)
		return t
	default:
		panic(fmt.Sprintf("compiler: unsupported value type %s", wasm.ValueTypeName(wt)))
	}
}
