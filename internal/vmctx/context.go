package vmctx

import (
	"encoding/binary"
	"fmt"
)

// Context is one instance's live VM context record: Plan's offsets applied
// to an actual byte buffer. Every accessor reads/writes through a Plan
// offset, never through a Go struct field, so the layout compiled code
// would address and the layout this type reads agree by construction
// (spec.md §7).
//
// Grounded on _examples/original_source/src/vm/mod.rs's VMContext, whose
// fields are likewise only ever reached through VMOffsets-computed byte
// offsets into a single allocation.
type Context struct {
	plan *Plan
	buf  []byte
}

// NewContext allocates a zeroed record sized by plan and stamps its magic.
func NewContext(plan *Plan) *Context {
	c := &Context{plan: plan, buf: make([]byte, plan.Size())}
	binary.LittleEndian.PutUint32(c.buf[plan.MagicOffset():], VMCONTEXT_MAGIC)
	return c
}

// Plan returns the layout this Context was allocated from.
func (c *Context) Plan() *Plan { return c.plan }

// Base is the record's backing storage. Its address is what compiled code
// receives as its vmctx parameter; this package never hands out less than
// the whole slice, since a sub-slice could be reallocated independently
// and break the single-allocation ABI invariant.
func (c *Context) Base() []byte { return c.buf }

// CheckMagic reports whether the record still begins with VMCONTEXT_MAGIC,
// the debug assertion spec.md §3 calls for against a misdirected pointer.
func (c *Context) CheckMagic() bool {
	return binary.LittleEndian.Uint32(c.buf[c.plan.MagicOffset():]) == VMCONTEXT_MAGIC
}

func (c *Context) readEntry(offset uint32) (uint64, uint64) {
	lo := binary.LittleEndian.Uint64(c.buf[offset:])
	hi := binary.LittleEndian.Uint64(c.buf[offset+PointerSize:])
	return lo, hi
}

func (c *Context) writeEntry(offset uint32, lo, hi uint64) {
	binary.LittleEndian.PutUint64(c.buf[offset:], lo)
	binary.LittleEndian.PutUint64(c.buf[offset+PointerSize:], hi)
}

func (c *Context) ImportedFunction(i uint32) FuncRef {
	codePtr, vmctx := c.readEntry(c.plan.ImportedFunctionOffset(i))
	return FuncRef{CodePtr: codePtr, VMContext: vmctx}
}

func (c *Context) SetImportedFunction(i uint32, ref FuncRef) {
	c.writeEntry(c.plan.ImportedFunctionOffset(i), ref.CodePtr, ref.VMContext)
}

func (c *Context) ImportedTable(i uint32) TableRef {
	def, vmctx := c.readEntry(c.plan.ImportedTableOffset(i))
	return TableRef{Definition: def, VMContext: vmctx}
}

func (c *Context) SetImportedTable(i uint32, ref TableRef) {
	c.writeEntry(c.plan.ImportedTableOffset(i), ref.Definition, ref.VMContext)
}

func (c *Context) ImportedMemory(i uint32) MemoryRef {
	def, vmctx := c.readEntry(c.plan.ImportedMemoryOffset(i))
	return MemoryRef{Definition: def, VMContext: vmctx}
}

func (c *Context) SetImportedMemory(i uint32, ref MemoryRef) {
	c.writeEntry(c.plan.ImportedMemoryOffset(i), ref.Definition, ref.VMContext)
}

func (c *Context) ImportedGlobal(i uint32) GlobalRef {
	def, vmctx := c.readEntry(c.plan.ImportedGlobalOffset(i))
	return GlobalRef{Definition: def, VMContext: vmctx}
}

func (c *Context) SetImportedGlobal(i uint32, ref GlobalRef) {
	c.writeEntry(c.plan.ImportedGlobalOffset(i), ref.Definition, ref.VMContext)
}

func (c *Context) DefinedMemory(i uint32) MemoryDefinition {
	base, length := c.readEntry(c.plan.DefinedMemoryOffset(i))
	return MemoryDefinition{Base: base, CurrentLength: length}
}

func (c *Context) SetDefinedMemory(i uint32, def MemoryDefinition) {
	c.writeEntry(c.plan.DefinedMemoryOffset(i), def.Base, def.CurrentLength)
}

func (c *Context) DefinedTable(i uint32) TableDefinition {
	base, elems := c.readEntry(c.plan.DefinedTableOffset(i))
	return TableDefinition{Base: base, CurrentElements: elems}
}

func (c *Context) SetDefinedTable(i uint32, def TableDefinition) {
	c.writeEntry(c.plan.DefinedTableOffset(i), def.Base, def.CurrentElements)
}

// DefinedGlobalBytes exposes the raw storage for defined global i, whose
// byte offset within the defined-globals region the caller (internal/
// compiler, which already tracks each global's size and position) must
// supply — Plan itself only knows the region's base (spec.md: globals
// aren't uniformly sized).
func (c *Context) DefinedGlobalBytes(regionOffset uint32, size uint32) []byte {
	base := c.plan.DefinedGlobalsBaseOffset() + regionOffset
	return c.buf[base : base+size]
}

func (c *Context) BuiltinFunction(i uint32) uint64 {
	off := c.plan.BuiltinFunctionOffset(i)
	return binary.LittleEndian.Uint64(c.buf[off:])
}

func (c *Context) SetBuiltinFunction(i uint32, ptr uint64) {
	off := c.plan.BuiltinFunctionOffset(i)
	binary.LittleEndian.PutUint64(c.buf[off:], ptr)
}

func (c *Context) LastWasmExitFP() uint64 {
	return binary.LittleEndian.Uint64(c.buf[c.plan.LastWasmExitFPOffset():])
}

func (c *Context) SetLastWasmExitFP(v uint64) {
	binary.LittleEndian.PutUint64(c.buf[c.plan.LastWasmExitFPOffset():], v)
}

func (c *Context) LastWasmExitPC() uint64 {
	return binary.LittleEndian.Uint64(c.buf[c.plan.LastWasmExitPCOffset():])
}

func (c *Context) SetLastWasmExitPC(v uint64) {
	binary.LittleEndian.PutUint64(c.buf[c.plan.LastWasmExitPCOffset():], v)
}

func (c *Context) LastWasmEntryFP() uint64 {
	return binary.LittleEndian.Uint64(c.buf[c.plan.LastWasmEntryFPOffset():])
}

func (c *Context) SetLastWasmEntryFP(v uint64) {
	binary.LittleEndian.PutUint64(c.buf[c.plan.LastWasmEntryFPOffset():], v)
}

// String summarizes the record for diagnostics, never for ABI purposes.
func (c *Context) String() string {
	return fmt.Sprintf("vmctx.Context{size=%d, magicOK=%v}", len(c.buf), c.CheckMagic())
}
