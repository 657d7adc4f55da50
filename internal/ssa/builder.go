package ssa

import "fmt"

// TrapCode identifies why a Trap/Trapnz instruction fires. Values mirror
// internal/trap's Code constants; duplicated here (rather than
// imported) to keep this package free of a dependency on the trap package,
// matching the layering direction spec.md §4 implies (translator depends on
// trap code identity, not trap unwind machinery).
type TrapCode byte

const (
	TrapCodeHeapOutOfBounds TrapCode = iota
	TrapCodeHeapMisaligned
	TrapCodeTableOutOfBounds
	TrapCodeIndirectCallSignatureMismatch
	TrapCodeUnreachable
	TrapCodeIntegerDivisionByZero
	TrapCodeIntegerOverflow
	TrapCodeBadConversionToInteger
)

// Builder assembles one function's IR: basic blocks, SSA values and the
// instruction set spec.md §6 lists. A Builder is used for exactly one
// function and discarded (or handed to the assumed codegen backend) once
// InsertReturn is called on its last reachable block.
//
// Grounded on _examples/tetratelabs-wazero/internal/engine/wazevo/ssa's
// Builder interface, trimmed to the construction-time methods the
// translator (component H) and its collaborators (E/F/G) actually call;
// the teacher's optimization-pass and layout methods belong to the assumed
// codegen backend and aren't reproduced.
type Builder interface {
	CreateBlock() *BasicBlock
	CurrentBlock() *BasicBlock
	SetCurrentBlock(*BasicBlock)
	SealBlock(*BasicBlock)
	DeclareBlockParam(b *BasicBlock, t Type) Value

	DeclareVariable(t Type) Variable
	DefVar(v Variable, value Value, b *BasicBlock)
	FindValue(v Variable, b *BasicBlock) Value

	InsertIconst(t Type, v uint64) Value
	// InsertFconst emits a floating-point constant: bits carries the value's
	// raw bit pattern (TypeF32 in the low 32 bits, TypeF64 in all 64),
	// since this minimal IR has no floating-point literal type of its own.
	InsertFconst(t Type, bits uint64) Value
	// InsertVconst emits a v128 constant from its two 64-bit lane halves.
	InsertVconst(lo, hi uint64) Value
	InsertIadd(x, y Value) Value
	InsertIaddImm(x Value, imm int64) Value
	InsertUExtend(x Value, from, to Type) Value
	InsertBand(x, y Value) Value
	InsertBandImm(x Value, imm uint64) Value
	InsertIcmp(cond IntCC, x, y Value) Value
	InsertIcmpImm(cond IntCC, x Value, imm uint64) Value
	InsertSelect(cond, x, y Value) Value
	InsertSelectSpectreGuard(cond, x, y Value) Value
	InsertGlobalValue(t Type, flags MemFlags, base Value, offset int64) Value
	InsertLoad(flags MemFlags, addr Value, offset int32, t Type) Value
	InsertStore(flags MemFlags, addr Value, offset int32, v Value)

	InsertTrap(code TrapCode)
	InsertTrapnz(cond Value, code TrapCode)
	InsertReturn(results []Value)
	InsertJump(target *BasicBlock, args []Value)
	InsertBrz(cond Value, target *BasicBlock, args []Value)
	InsertBrnz(cond Value, target *BasicBlock, args []Value)

	SetBranchTargetIdentification(enabled bool)
	BranchTargetIdentification() bool

	// AnnotateValue attaches a human-readable debug label to v (spec.md
	// §4.H step 1: "Tag the VM-context parameter with a debug value
	// label"). Purely diagnostic; never consulted by lowering.
	AnnotateValue(v Value, label string)
	ValueLabel(v Value) (string, bool)

	// SetSourcePosition is the byte offset (spec.md §4.H step 5) stamped
	// onto every instruction inserted until the next call changes it.
	SetSourcePosition(pos uint32)

	LastInstruction() *Instruction
	Blocks() []*BasicBlock
}

type builder struct {
	blocks       []*BasicBlock
	current      *BasicBlock
	nextValueID  ValueID
	nextVariable Variable
	varDefs      map[Variable]map[BasicBlockID]Value
	varTypes     map[Variable]Type
	bti          bool
	labels       map[ValueID]string
	srcPos       uint32
}

// NewBuilder returns a fresh Builder for one function.
func NewBuilder() Builder {
	return &builder{
		varDefs:  make(map[Variable]map[BasicBlockID]Value),
		varTypes: make(map[Variable]Type),
		labels:   make(map[ValueID]string),
	}
}

func (b *builder) newValue(t Type) Value {
	id := b.nextValueID
	b.nextValueID++
	return Value(id).setType(t)
}

func (b *builder) CreateBlock() *BasicBlock {
	blk := newBasicBlock(BasicBlockID(len(b.blocks)))
	b.blocks = append(b.blocks, blk)
	return blk
}

func (b *builder) CurrentBlock() *BasicBlock { return b.current }

func (b *builder) SetCurrentBlock(blk *BasicBlock) { b.current = blk }

func (b *builder) SealBlock(blk *BasicBlock) { blk.sealed = true }

func (b *builder) DeclareBlockParam(blk *BasicBlock, t Type) Value {
	return blk.addParam(b.newValue, t)
}

func (b *builder) DeclareVariable(t Type) Variable {
	v := b.nextVariable
	b.nextVariable++
	b.varTypes[v] = t
	b.varDefs[v] = make(map[BasicBlockID]Value)
	return v
}

func (b *builder) DefVar(v Variable, value Value, blk *BasicBlock) {
	b.varDefs[v][blk.id] = value
}

// FindValue returns the Value currently bound to Variable v as of block
// blk. Translation is structured (spec.md §4.H), so every read of a local
// is dominated by some earlier write in the same or an enclosing block;
// unlike the teacher's general Builder this never needs to synthesize a
// block-parameter phi for a value defined in a sibling branch.
func (b *builder) FindValue(v Variable, blk *BasicBlock) Value {
	if val, ok := b.varDefs[v][blk.id]; ok {
		return val
	}
	panic(fmt.Sprintf("ssa: variable %d has no definition reaching block %d", v, blk.id))
}

func (b *builder) emit(inst *Instruction) {
	inst.srcPos = b.srcPos
	b.current.instructions = append(b.current.instructions, inst)
}

func (b *builder) InsertIconst(t Type, v uint64) Value {
	rv := b.newValue(t)
	b.emit(&Instruction{opcode: OpcodeIconst, imm64: v, typ: t, rv: rv})
	return rv
}

func (b *builder) InsertFconst(t Type, bits uint64) Value {
	rv := b.newValue(t)
	b.emit(&Instruction{opcode: OpcodeFconst, imm64: bits, typ: t, rv: rv})
	return rv
}

func (b *builder) InsertVconst(lo, hi uint64) Value {
	rv := b.newValue(TypeV128)
	b.emit(&Instruction{opcode: OpcodeVconst, imm64: lo, imm64Hi: hi, typ: TypeV128, rv: rv})
	return rv
}

func (b *builder) InsertIadd(x, y Value) Value {
	rv := b.newValue(x.Type())
	b.emit(&Instruction{opcode: OpcodeIadd, args: []Value{x, y}, rv: rv})
	return rv
}

func (b *builder) InsertIaddImm(x Value, imm int64) Value {
	rv := b.newValue(x.Type())
	b.emit(&Instruction{opcode: OpcodeIaddImm, args: []Value{x}, imm64: uint64(imm), rv: rv})
	return rv
}

func (b *builder) InsertUExtend(x Value, from, to Type) Value {
	rv := b.newValue(to)
	b.emit(&Instruction{opcode: OpcodeUExtend, args: []Value{x}, typ: to, rv: rv})
	return rv
}

func (b *builder) InsertBand(x, y Value) Value {
	rv := b.newValue(x.Type())
	b.emit(&Instruction{opcode: OpcodeBand, args: []Value{x, y}, rv: rv})
	return rv
}

func (b *builder) InsertBandImm(x Value, imm uint64) Value {
	rv := b.newValue(x.Type())
	b.emit(&Instruction{opcode: OpcodeBandImm, args: []Value{x}, imm64: imm, rv: rv})
	return rv
}

func (b *builder) InsertIcmp(cond IntCC, x, y Value) Value {
	rv := b.newValue(TypeI32)
	b.emit(&Instruction{opcode: OpcodeIcmp, args: []Value{x, y}, cond: cond, rv: rv})
	return rv
}

func (b *builder) InsertIcmpImm(cond IntCC, x Value, imm uint64) Value {
	rv := b.newValue(TypeI32)
	b.emit(&Instruction{opcode: OpcodeIcmpImm, args: []Value{x}, cond: cond, imm64: imm, rv: rv})
	return rv
}

func (b *builder) InsertSelect(cond, x, y Value) Value {
	rv := b.newValue(x.Type())
	b.emit(&Instruction{opcode: OpcodeSelect, args: []Value{cond, x, y}, rv: rv})
	return rv
}

// InsertSelectSpectreGuard is select_spectre_guard(cond, 0, addr): spec.md
// §4.F requires this exact shape (address on the "safe" branch is the
// zero/null address) so a mispredicted out-of-bounds access reads from an
// always-unmapped location rather than attacker-chosen memory.
func (b *builder) InsertSelectSpectreGuard(cond, x, y Value) Value {
	rv := b.newValue(y.Type())
	b.emit(&Instruction{opcode: OpcodeSelectSpectreGuard, args: []Value{cond, x, y}, rv: rv})
	return rv
}

func (b *builder) InsertGlobalValue(t Type, flags MemFlags, base Value, offset int64) Value {
	rv := b.newValue(t)
	b.emit(&Instruction{opcode: OpcodeGlobalValue, args: []Value{base}, imm64: uint64(offset), typ: t, flags: flags, rv: rv})
	return rv
}

func (b *builder) InsertLoad(flags MemFlags, addr Value, offset int32, t Type) Value {
	rv := b.newValue(t)
	b.emit(&Instruction{opcode: OpcodeLoad, args: []Value{addr}, imm64: uint64(uint32(offset)), typ: t, flags: flags, rv: rv})
	return rv
}

func (b *builder) InsertStore(flags MemFlags, addr Value, offset int32, v Value) {
	b.emit(&Instruction{opcode: OpcodeStore, args: []Value{addr, v}, imm64: uint64(uint32(offset)), flags: flags})
}

func (b *builder) InsertTrap(code TrapCode) {
	b.emit(&Instruction{opcode: OpcodeTrap, imm64: uint64(code)})
}

func (b *builder) InsertTrapnz(cond Value, code TrapCode) {
	b.emit(&Instruction{opcode: OpcodeTrapnz, args: []Value{cond}, imm64: uint64(code)})
}

func (b *builder) InsertReturn(results []Value) {
	b.emit(&Instruction{opcode: OpcodeReturn, args: results})
}

func (b *builder) InsertJump(target *BasicBlock, args []Value) {
	target.addPred(b.current.id)
	b.emit(&Instruction{opcode: OpcodeJump, args: args, block: target.id})
}

func (b *builder) InsertBrz(cond Value, target *BasicBlock, args []Value) {
	target.addPred(b.current.id)
	b.emit(&Instruction{opcode: OpcodeBrz, args: append([]Value{cond}, args...), block: target.id})
}

func (b *builder) InsertBrnz(cond Value, target *BasicBlock, args []Value) {
	target.addPred(b.current.id)
	b.emit(&Instruction{opcode: OpcodeBrnz, args: append([]Value{cond}, args...), block: target.id})
}

func (b *builder) SetBranchTargetIdentification(enabled bool) { b.bti = enabled }

func (b *builder) BranchTargetIdentification() bool { return b.bti }

func (b *builder) AnnotateValue(v Value, label string) { b.labels[v.ID()] = label }

func (b *builder) ValueLabel(v Value) (string, bool) {
	l, ok := b.labels[v.ID()]
	return l, ok
}

func (b *builder) SetSourcePosition(pos uint32) { b.srcPos = pos }

func (b *builder) LastInstruction() *Instruction {
	if b.current == nil || len(b.current.instructions) == 0 {
		return nil
	}
	return b.current.instructions[len(b.current.instructions)-1]
}

func (b *builder) Blocks() []*BasicBlock { return b.blocks }
