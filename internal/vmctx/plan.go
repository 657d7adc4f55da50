// Package vmctx lays out the per-instance VM context record (spec.md §3,
// "VM context"; component I) and computes its field offsets deterministically
// from a module's import/definition counts. Every access — from compiled
// code and from the host — goes through a VMContextPlan offset, never
// through a Go struct's field layout, so the compiled machine code's view
// and the host's view agree bit-for-bit (spec.md §7: "Raw pointers into the
// VM context are an ABI").
//
// Grounded on _examples/original_source/src/vm/mod.rs's VMContext/VMOffsets
// split and on _examples/tetratelabs-wazero/internal/engine/wazevo's
// frontend use of a similarly fixed vmctx prefix.
package vmctx

import "fmt"

// VMCONTEXT_MAGIC begins every VMContext record so a misdirected pointer
// (e.g. a host bug passing the wrong record) is caught by a debug
// assertion rather than silently misinterpreted.
const VMCONTEXT_MAGIC uint32 = 0x76_6d_63_78 // "vmcx"

// PointerSize is the host pointer width this plan lays out for. The core
// targets 64-bit hosts exclusively (spec.md's Non-goals exclude 32-bit
// ISAs), so this is a constant, not a per-plan field.
const PointerSize = 8

// FuncRef is one entry of the imported-function table: a code pointer and
// the callee's own VMContext pointer, since an imported function may
// belong to a different instance entirely.
type FuncRef struct{ CodePtr, VMContext uint64 }

// TableRef and MemoryRef/GlobalRef are the symmetric imported-table /
// imported-memory / imported-global entry shapes spec.md §3 describes:
// a pointer to the definition plus the owning instance's VMContext.
type TableRef struct{ Definition, VMContext uint64 }
type MemoryRef struct{ Definition, VMContext uint64 }
type GlobalRef struct{ Definition, VMContext uint64 }

// MemoryDefinition is a defined memory's live state: base address and
// current byte length (spec.md §3: "base pointer, current length").
type MemoryDefinition struct{ Base uint64; CurrentLength uint64 }

// TableDefinition is a defined table's live state.
type TableDefinition struct{ Base uint64; CurrentElements uint64 }

// Plan computes the byte offset of every VMContext field from a module's
// import/definition counts. Two modules with identical counts (and
// identical ordering convention) produce identical plans; the plan is
// purely a function of those counts, never of instance-specific state.
type Plan struct {
	NumImportedFunctions  uint32
	NumImportedTables     uint32
	NumImportedMemories   uint32
	NumImportedGlobals    uint32
	NumDefinedMemories    uint32
	NumDefinedTables      uint32
	NumDefinedGlobalBytes uint32 // sum of each defined global's storage size.
	NumBuiltinFunctions   uint32

	// offsets, computed once by NewPlan.
	magicOffset             uint32
	importedFunctionsOffset uint32
	importedTablesOffset    uint32
	importedMemoriesOffset  uint32
	importedGlobalsOffset   uint32
	definedMemoriesOffset   uint32
	definedTablesOffset     uint32
	definedGlobalsOffset    uint32
	builtinFunctionsOffset  uint32
	lastWasmExitFPOffset    uint32
	lastWasmExitPCOffset    uint32
	lastWasmEntryFPOffset   uint32
	size                    uint32
}

// NewPlan lays out a VMContext record for a module with the given
// import/definition counts.
func NewPlan(
	numImportedFunctions, numImportedTables, numImportedMemories, numImportedGlobals uint32,
	numDefinedMemories, numDefinedTables, numDefinedGlobalBytes, numBuiltinFunctions uint32,
) *Plan {
	p := &Plan{
		NumImportedFunctions:  numImportedFunctions,
		NumImportedTables:     numImportedTables,
		NumImportedMemories:   numImportedMemories,
		NumImportedGlobals:    numImportedGlobals,
		NumDefinedMemories:    numDefinedMemories,
		NumDefinedTables:      numDefinedTables,
		NumDefinedGlobalBytes: numDefinedGlobalBytes,
		NumBuiltinFunctions:   numBuiltinFunctions,
	}

	offset := uint32(0)
	p.magicOffset = offset
	offset += 4
	offset = align(offset, PointerSize)

	p.importedFunctionsOffset = offset
	offset += numImportedFunctions * entrySize

	p.importedTablesOffset = offset
	offset += numImportedTables * entrySize

	p.importedMemoriesOffset = offset
	offset += numImportedMemories * entrySize

	p.importedGlobalsOffset = offset
	offset += numImportedGlobals * entrySize

	p.definedMemoriesOffset = offset
	offset += numDefinedMemories * entrySize

	p.definedTablesOffset = offset
	offset += numDefinedTables * entrySize

	p.definedGlobalsOffset = offset
	offset += numDefinedGlobalBytes

	offset = align(offset, PointerSize)
	p.builtinFunctionsOffset = offset
	offset += numBuiltinFunctions * PointerSize

	p.lastWasmExitFPOffset = offset
	offset += PointerSize
	p.lastWasmExitPCOffset = offset
	offset += PointerSize
	p.lastWasmEntryFPOffset = offset
	offset += PointerSize

	p.size = offset
	return p
}

func align(off, to uint32) uint32 {
	return (off + to - 1) &^ (to - 1)
}

// entrySize is the fixed wire size of one FuncRef/TableRef/MemoryRef/
// GlobalRef/MemoryDefinition/TableDefinition entry: a pair of pointer-sized
// fields, laid out explicitly rather than via unsafe.Sizeof so the layout
// stays independent of Go's own (platform-varying) struct packing.
const entrySize = 2 * PointerSize

// Size is the total record size in bytes.
func (p *Plan) Size() uint32 { return p.size }

func (p *Plan) MagicOffset() uint32 { return p.magicOffset }

// ImportedFunctionOffset is the byte offset of imported function i's
// FuncRef entry.
func (p *Plan) ImportedFunctionOffset(i uint32) uint32 {
	p.checkIndex(i, p.NumImportedFunctions, "imported function")
	return p.importedFunctionsOffset + i*entrySize
}

func (p *Plan) ImportedTableOffset(i uint32) uint32 {
	p.checkIndex(i, p.NumImportedTables, "imported table")
	return p.importedTablesOffset + i*entrySize
}

func (p *Plan) ImportedMemoryOffset(i uint32) uint32 {
	p.checkIndex(i, p.NumImportedMemories, "imported memory")
	return p.importedMemoriesOffset + i*entrySize
}

func (p *Plan) ImportedGlobalOffset(i uint32) uint32 {
	p.checkIndex(i, p.NumImportedGlobals, "imported global")
	return p.importedGlobalsOffset + i*entrySize
}

func (p *Plan) DefinedMemoryOffset(i uint32) uint32 {
	p.checkIndex(i, p.NumDefinedMemories, "defined memory")
	return p.definedMemoriesOffset + i*entrySize
}

func (p *Plan) DefinedTableOffset(i uint32) uint32 {
	p.checkIndex(i, p.NumDefinedTables, "defined table")
	return p.definedTablesOffset + i*entrySize
}

// DefinedGlobalsBaseOffset is the start of the defined-globals storage
// region; individual global offsets within it are computed by the caller
// (internal/compiler) from each global's own byte size, since globals are
// not uniformly sized (spec.md's value model includes i32 through v128).
func (p *Plan) DefinedGlobalsBaseOffset() uint32 { return p.definedGlobalsOffset }

// BuiltinFunctionOffset is the byte offset of builtin function i's
// pointer-sized slot.
func (p *Plan) BuiltinFunctionOffset(i uint32) uint32 {
	p.checkIndex(i, p.NumBuiltinFunctions, "builtin function")
	return p.builtinFunctionsOffset + i*PointerSize
}

func (p *Plan) LastWasmExitFPOffset() uint32  { return p.lastWasmExitFPOffset }
func (p *Plan) LastWasmExitPCOffset() uint32  { return p.lastWasmExitPCOffset }
func (p *Plan) LastWasmEntryFPOffset() uint32 { return p.lastWasmEntryFPOffset }

func (p *Plan) checkIndex(i, n uint32, what string) {
	if i >= n {
		panic(fmt.Sprintf("vmctx: %s index %d out of range (have %d)", what, i, n))
	}
}
