package ssa

// IntCC is an integer comparison condition code, the Cond operand of
// Icmp/IcmpImm (spec.md: "integer comparisons").
type IntCC byte

const (
	IntCCEqual IntCC = iota
	IntCCNotEqual
	IntCCUnsignedLessThan
	IntCCUnsignedLessThanOrEqual
	IntCCUnsignedGreaterThan
	IntCCUnsignedGreaterThanOrEqual
	IntCCSignedLessThan
	IntCCSignedLessThanOrEqual
	IntCCSignedGreaterThan
	IntCCSignedGreaterThanOrEqual
)

// AliasRegion names the memory region a load/store/global-value aliases,
// so the assumed codegen backend's alias analysis never reorders a heap
// access across a table or vmctx access (spec.md §4.F: "alias region =
// Heap").
type AliasRegion byte

const (
	AliasRegionHeap AliasRegion = iota
	AliasRegionTable
	AliasRegionVmctx
	AliasRegionStack
)

// MemFlags qualifies a memory instruction: byte order, whether it carries a
// PCC fact obligation, and the alias region it targets.
type MemFlags struct {
	LittleEndian bool
	Checked      bool
	Region       AliasRegion
}

// Opcode identifies an Instruction's operation. Only the set spec.md §6
// enumerates is represented — this is not a general-purpose instruction
// set, since the assumed codegen backend (not this package) owns the rest
// of it.
type Opcode byte

const (
	OpcodeInvalid Opcode = iota

	OpcodeIconst
	OpcodeFconst
	OpcodeVconst
	OpcodeIadd
	OpcodeIaddImm
	OpcodeUExtend
	OpcodeBand
	OpcodeBandImm
	OpcodeIcmp
	OpcodeIcmpImm
	OpcodeSelect
	OpcodeSelectSpectreGuard
	OpcodeGlobalValue
	OpcodeLoad
	OpcodeStore
	OpcodeTrap
	OpcodeTrapnz
	OpcodeReturn
	OpcodeCall
	OpcodeCallIndirect
	OpcodeJump
	OpcodeBrz
	OpcodeBrnz
)

// Instruction is one IR instruction: an opcode, its operands, and (for
// value-producing opcodes) the Value it defines.
type Instruction struct {
	opcode  Opcode
	args    []Value
	imm64   uint64
	imm64Hi uint64 // second immediate half, valid for OpcodeVconst (its high lane word).
	typ     Type
	cond    IntCC
	flags   MemFlags
	block   BasicBlockID // jump/branch target, valid for control instructions.
	rv      Value        // the value this instruction defines, if any.
	fact    Fact
	srcPos  uint32 // byte offset of the operator that produced this instruction (spec.md §4.H step 5).
}

func (i *Instruction) Opcode() Opcode             { return i.opcode }
func (i *Instruction) Args() []Value              { return i.args }
func (i *Instruction) Imm64() uint64              { return i.imm64 }
func (i *Instruction) Imm64Hi() uint64            { return i.imm64Hi }
func (i *Instruction) Cond() IntCC                { return i.cond }
func (i *Instruction) MemFlags() MemFlags         { return i.flags }
func (i *Instruction) BranchTarget() BasicBlockID { return i.block }
func (i *Instruction) Return() Value              { return i.rv }
func (i *Instruction) Fact() Fact                 { return i.fact }

// SetFact attaches a proof-carrying-code fact to this instruction's result,
// per spec.md §4.F's PCC annotation contract.
func (i *Instruction) SetFact(f Fact) { i.fact = f }

// SetSourcePosition records the byte offset (from the start of the module)
// of the operator this instruction was translated from (spec.md §4.H step
// 5: "record source location = byte offset ... truncated to 32 bits").
func (i *Instruction) SetSourcePosition(pos uint32) { i.srcPos = pos }

func (i *Instruction) SourcePosition() uint32 { return i.srcPos }

// IsTerminator reports whether this instruction ends its basic block.
func (i *Instruction) IsTerminator() bool {
	switch i.opcode {
	case OpcodeReturn, OpcodeJump, OpcodeBrz, OpcodeBrnz, OpcodeTrap:
		return true
	default:
		return false
	}
}
