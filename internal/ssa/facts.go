package ssa

// Fact is a proof-carrying-code annotation attached to a Value (spec.md
// §4.F, §6): a claim the downstream codegen backend's verifier checks
// before trusting a memory access is in bounds. Facts are the core's only
// obligation when PCC is enabled — the verifier itself lives in the
// assumed codegen backend.
//
// Grounded on cranelift's ir::pcc::Fact, reduced to the six variants spec.md
// §6 names (Def, Mem, DynamicMem, Compare, Constant, Value).
type Fact interface {
	isFact()
}

// Def marks v as the original, trusted definition site of a quantity (the
// raw Wasm index before extension), the root that Compare facts reference.
type Def struct {
	Value Value
}

// Constant records that the value is known to equal exactly N at compile
// time.
type Constant struct {
	N uint64
}

// ValueFact asserts the fact-bearing value is symbolically equal to
// another already-proven value, optionally plus a static offset — used
// when the same Wasm index is extended/rebound across instructions. Named
// ValueFact rather than spec.md's bare "Value" to avoid colliding with this
// package's own Value (the SSA value type).
type ValueFact struct {
	Of     ValueID
	Offset int64
}

// Compare records the result of a bounds comparison: lhs is index+lhsOffset
// and rhs is either a compile-time constant or another symbolic value plus
// rhsOffset. Kind names which comparison produced it (spec.md's `icmp`
// conditions).
type Compare struct {
	Kind      IntCC
	LHS       ValueID
	LHSOffset int64
	RHSConst  *uint64
	RHSValue  ValueID
	RHSOffset int64
}

// Mem records that a value is a valid pointer into a memory region of type
// Region, offset somewhere in [MinOffset, MaxOffset] from the region's
// base — the heap-base fact (spec.md §4.F: `Mem{ty, min_offset=0,
// max_offset=0}` for the raw base, `Mem{0..u32::MAX}` for statically
// elided accesses).
type Mem struct {
	Region    AliasRegion
	MinOffset uint64
	MaxOffset uint64
}

// DynamicMem is Mem's counterpart for an address whose offset from the
// region base is a runtime (symbolic) value rather than a compile-time
// range — emitted for the explicit-check heap lowering case (spec.md
// §4.F case 3) when the index is not already known constant.
type DynamicMem struct {
	Region    AliasRegion
	Index     ValueID
	IndexKind IntCC
}

func (Def) isFact()        {}
func (Constant) isFact()   {}
func (ValueFact) isFact()  {}
func (Compare) isFact()    {}
func (Mem) isFact()        {}
func (DynamicMem) isFact() {}
