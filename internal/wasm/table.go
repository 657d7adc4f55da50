package wasm

import "fmt"

// TableBoundKind distinguishes a table whose bound is fixed at compile time
// from one whose current size must be reloaded from a global at every
// access (component G's two lowering shapes).
type TableBoundKind byte

const (
	// TableBoundStatic: the bound is a compile-time constant (the table's
	// declared maximum equals its minimum, so it can never grow).
	TableBoundStatic TableBoundKind = iota
	// TableBoundDynamic: the bound must be loaded from the table's length
	// global at every access, since Grow can change it.
	TableBoundDynamic
)

// TablePlan is the compile-time description of a table: element type, size
// bounds and an element_size used to compute `base + index*element_size`
// addresses (component G), grounded on
// _examples/original_source/src/translate/table.rs and
// .../translate_cranelift/table.rs.
type TablePlan struct {
	ElementType ValueType // ValueTypeFuncref or ValueTypeExternref.
	Minimum     uint32
	Maximum     *uint32

	// ElementSize is the byte size of one table slot: a tagged pointer on
	// 64-bit hosts (8 bytes), used by the index*element_size multiply in
	// the address computation.
	ElementSize uint32

	BoundKind TableBoundKind
}

// NewTablePlan validates and constructs a TablePlan.
func NewTablePlan(elementType ValueType, minimum uint32, maximum *uint32, elementSize uint32) (*TablePlan, error) {
	if !IsReference(elementType) {
		return nil, fmt.Errorf("wasm: table element type %s is not a reference type", ValueTypeName(elementType))
	}
	if maximum != nil && *maximum < minimum {
		return nil, fmt.Errorf("wasm: table maximum %d is smaller than minimum %d", *maximum, minimum)
	}
	kind := TableBoundDynamic
	if maximum != nil && *maximum == minimum {
		kind = TableBoundStatic
	}
	return &TablePlan{
		ElementType: elementType,
		Minimum:     minimum,
		Maximum:     maximum,
		ElementSize: elementSize,
		BoundKind:   kind,
	}, nil
}

// StaticBound returns (minimum, true) when BoundKind is TableBoundStatic,
// the fixed bound the lowering can fold into a constant comparison.
func (p *TablePlan) StaticBound() (uint32, bool) {
	if p.BoundKind == TableBoundStatic {
		return p.Minimum, true
	}
	return 0, false
}
