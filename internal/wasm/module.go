package wasm

// Module is the validated, decoded shape of a wasm module that the
// translator (internal/compiler) and VM-context planner (internal/vmctx)
// consume. Decoding the wasm binary format and structural validation both
// happen upstream of this package (spec.md §1, Non-goals); Module is simply
// the product of that work.
type Module struct {
	Strings *StringsTable

	Types []*FunctionType

	// Imports, in the order they must occupy the front of each imported
	// kind's index space (functions imported before defined, etc. per
	// the wasm core spec).
	Imports []Import

	Functions []Function
	Memories  []*MemoryPlan
	Tables    []*TablePlan
	Globals   []Global

	Exports []Export

	// StartFunction is the module start function's index, if declared.
	StartFunction *Index

	DataSegments []DataSegment
	ElemSegments []ElemSegment

	// NumImportedFunctions/Memories/Tables/Globals let callers split an
	// index space into its imported prefix and defined suffix without
	// re-scanning Imports; internal/vmctx's offset planner needs exactly
	// these counts.
	NumImportedFunctions uint32
	NumImportedMemories  uint32
	NumImportedTables    uint32
	NumImportedGlobals   uint32
}

// ImportKind discriminates an Import's Index field.
type ImportKind byte

const (
	ImportKindFunction ImportKind = iota
	ImportKindMemory
	ImportKindTable
	ImportKindGlobal
)

// Import is one imported function, memory, table or global.
type Import struct {
	Module StringID
	Name   StringID
	Kind   ImportKind

	// TypeIndex is valid when Kind == ImportKindFunction.
	TypeIndex Index
}

// Function is a module-defined (non-imported) function: its signature and
// its raw operator-stream body, left undecoded until the translator walks
// it (component H) — decoding the body is the translator's job, not this
// package's.
type Function struct {
	TypeIndex Index
	Body      []byte
}

// GlobalInit is a constant-expression global initializer. Only the forms
// spec.md's translator needs are represented: an immediate value or a read
// of another (already-defined, necessarily imported) global.
type GlobalInit struct {
	IsGlobalGet bool
	GlobalIndex Index // valid when IsGlobalGet.
	I32         int32
	I64         int64
	F32         uint32 // bit pattern.
	F64         uint64 // bit pattern.
}

// Global is a module-defined global variable.
type Global struct {
	Type    ValueType
	Mutable bool
	Init    GlobalInit
}

// ExportKind mirrors ImportKind for the exported index spaces.
type ExportKind = ImportKind

// Export is one exported function, memory, table or global.
type Export struct {
	Name  StringID
	Kind  ExportKind
	Index Index
}

// DataSegment initializes a range of a memory at instantiation time.
type DataSegment struct {
	MemoryIndex Index
	Offset      GlobalInit // active segment's constant offset expression.
	Passive     bool
	Bytes       []byte
}

// ElemSegment initializes a range of a table at instantiation time.
type ElemSegment struct {
	TableIndex  Index
	Offset      GlobalInit
	Passive     bool
	FuncIndexes []Index
}

// FunctionSignature resolves fn's FunctionType by looking up its TypeIndex.
func (m *Module) FunctionSignature(fn Index) *FunctionType {
	idx := int(fn)
	if idx < int(m.NumImportedFunctions) {
		return m.Types[m.Imports[m.importFunctionSlot(idx)].TypeIndex]
	}
	return m.Types[m.Functions[idx-int(m.NumImportedFunctions)].TypeIndex]
}

// importFunctionSlot finds the i-th (0-based, in declaration order) function
// import's slot within Imports. Imports of different kinds are interleaved
// in declaration order, so this is a linear scan; module import counts are
// small enough in practice that this is not a hot path.
func (m *Module) importFunctionSlot(i int) int {
	count := 0
	for slot, imp := range m.Imports {
		if imp.Kind == ImportKindFunction {
			if count == i {
				return slot
			}
			count++
		}
	}
	panic("wasm: function import index out of range")
}
