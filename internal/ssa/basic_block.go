package ssa

// BasicBlockID identifies a BasicBlock within a function.
type BasicBlockID uint32

// BasicBlock is a single-entry, single-exit straight-line instruction
// sequence ending in a terminator (a branch or Return). Block parameters
// stand in for the teacher's full phi-based SSA construction: the
// translator (component H) only ever branches to a block with the values
// live at that point already in hand, so parameters are enough.
type BasicBlock struct {
	id           BasicBlockID
	params       []Value
	paramTypes   []Type
	instructions []*Instruction
	preds        []BasicBlockID
	sealed       bool

	// bti marks that this block is an indirect-branch landing pad and must
	// get a branch-target-identification instruction at its head when the
	// codegen backend emits it (spec.md §6's "branch-target-identification
	// flag"; consumed together with internal/platform's BTI support).
	bti bool
}

func newBasicBlock(id BasicBlockID) *BasicBlock {
	return &BasicBlock{id: id}
}

func (b *BasicBlock) ID() BasicBlockID { return b.id }

// addParam declares a block parameter of type t and returns the Value that
// refers to it inside the block.
func (b *BasicBlock) addParam(newValueID func(Type) Value, t Type) Value {
	v := newValueID(t)
	b.params = append(b.params, v)
	b.paramTypes = append(b.paramTypes, t)
	return v
}

func (b *BasicBlock) Params() []Value { return b.params }

func (b *BasicBlock) Instructions() []*Instruction { return b.instructions }

func (b *BasicBlock) Preds() []BasicBlockID { return b.preds }

// Sealed reports whether every predecessor of this block has already been
// identified; the teacher's Builder uses this to decide when a block's
// param list is final. A block starts unsealed, is sealed by the Builder's
// SealBlock, and becomes unsealed again when a new predecessor is added.
func (b *BasicBlock) Sealed() bool { return b.sealed }

// SetBranchTargetIdentification marks the block as an indirect-branch
// target, for ISAs (arm64 with BTI) where such targets need a landing-pad
// instruction.
func (b *BasicBlock) SetBranchTargetIdentification(v bool) { b.bti = v }

func (b *BasicBlock) BranchTargetIdentification() bool { return b.bti }

func (b *BasicBlock) addPred(id BasicBlockID) {
	for _, p := range b.preds {
		if p == id {
			return
		}
	}
	b.preds = append(b.preds, id)
	b.sealed = false
}
