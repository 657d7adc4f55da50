package aotwasm

// RuntimeConfig controls translation/instantiation behavior, with the
// default produced by NewRuntimeConfig. Every With... method returns a
// clone, so a shared base config can be specialized per call site without
// the two ever aliasing each other's state (component N, SPEC_FULL.md §2).
//
// Grounded on _examples/tetratelabs-wazero's root config.go functional-
// options/clone pattern (NewRuntimeConfig{JIT,Interpreter}, With... chain).
type RuntimeConfig struct {
	heapAccessSpectreMitigation bool
	proofCarryingCode           bool
	branchProtection            bool
	memoryGuardSize             uint64
	initialStackSize            uint32
}

// defaultConfig mirrors the teacher's engineLessConfig: a package-level base
// every NewRuntimeConfig clone starts from, so the defaults live in exactly
// one place.
var defaultConfig = &RuntimeConfig{
	heapAccessSpectreMitigation: true,
	proofCarryingCode:           false,
	branchProtection:            true,
	memoryGuardSize:             1 << 31, // 2GiB, matching internal/wasm's static memory plan default.
	initialStackSize:            1 << 20, // 1MiB, the original's default Wasm operand/control stack reservation.
}

// NewRuntimeConfig returns a RuntimeConfig with this module's defaults:
// Spectre mitigation and branch protection on, PCC off (it exists for
// verifier integrations a host may not have), a 2GiB memory guard and a
// 1MiB initial Wasm stack.
func NewRuntimeConfig() *RuntimeConfig {
	return defaultConfig.clone()
}

func (c *RuntimeConfig) clone() *RuntimeConfig {
	cp := *c
	return &cp
}

// WithHeapAccessSpectreMitigation toggles component F's select_spectre_guard
// lowering for explicit bounds checks. Disabling it trades speculative-
// execution safety for slightly smaller/faster bounds-checked code; hosts
// that trust their Wasm guests' provenance may choose to.
func (c *RuntimeConfig) WithHeapAccessSpectreMitigation(enabled bool) *RuntimeConfig {
	ret := c.clone()
	ret.heapAccessSpectreMitigation = enabled
	return ret
}

// WithProofCarryingCode toggles whether component F annotates lowered heap
// addresses with verifiable facts (spec.md's PCC annotation contract);
// component G's table lowering attaches no facts either way.
func (c *RuntimeConfig) WithProofCarryingCode(enabled bool) *RuntimeConfig {
	ret := c.clone()
	ret.proofCarryingCode = enabled
	return ret
}

// WithBranchProtection toggles BTI landing pads on indirect-call targets
// (spec.md §9 resolution 3: decided once, at MakeExecutable time, from this
// flag and a runtime capability probe — never toggled after publication).
func (c *RuntimeConfig) WithBranchProtection(enabled bool) *RuntimeConfig {
	ret := c.clone()
	ret.branchProtection = enabled
	return ret
}

// WithMemoryGuardSize overrides the unmapped guard region reserved past
// every memory's bound. Runtime.CompileModule applies it to each memory
// plan via wasm.MemoryPlan.SetGuardSize before compiling, overriding
// whatever default NewMemoryPlan picked; Instance.allocateMemory then
// reserves Bound+OffsetGuardSize of address space per memory, so this
// knob changes actual reservation size, not just a label. Smaller guards
// reduce address-space reservation at the cost of requiring an explicit
// check for offsets the guard would otherwise have absorbed.
func (c *RuntimeConfig) WithMemoryGuardSize(bytes uint64) *RuntimeConfig {
	ret := c.clone()
	ret.memoryGuardSize = bytes
	return ret
}

// WithInitialStackSize overrides the Go-owned call stack an Instance
// allocates up front and exposes through Instance.StackTop for a
// FunctionInvoker to hand to compiled code as its initial stack pointer
// (mirroring the teacher's callEngine.stack/stackTop pair in
// call_engine.go, which likewise sizes a []byte from a package-level
// initialStackSize before taking its aligned top address).
func (c *RuntimeConfig) WithInitialStackSize(bytes uint32) *RuntimeConfig {
	ret := c.clone()
	ret.initialStackSize = bytes
	return ret
}

func (c *RuntimeConfig) HeapAccessSpectreMitigation() bool { return c.heapAccessSpectreMitigation }
func (c *RuntimeConfig) ProofCarryingCode() bool           { return c.proofCarryingCode }
func (c *RuntimeConfig) BranchProtection() bool            { return c.branchProtection }
func (c *RuntimeConfig) MemoryGuardSize() uint64           { return c.memoryGuardSize }
func (c *RuntimeConfig) InitialStackSize() uint32          { return c.initialStackSize }
