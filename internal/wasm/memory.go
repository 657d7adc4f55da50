package wasm

import (
	"fmt"

	"github.com/wazevoc/aotwasm/internal/platform"
)

// IndexType is the address width of a memory or table (wasm64, spec.md §3).
type IndexType byte

const (
	IndexTypeI32 IndexType = iota
	IndexTypeI64
)

// MemoryPlan is the compile-time description of a linear memory: everything
// the heap lowering (internal/compiler, component F) needs to pick a bounds
// check strategy without touching the live instance. Constructed once, at
// module-compile time, and shared by every instance of the module.
//
// Grounded on _examples/original_source's memory.rs MemoryPlan/MemoryStyle
// split and wasmtime/cranelift's heap.rs callers; the exact field set is
// spec.md §3's Data Model, which takes precedence where the two disagree.
type MemoryPlan struct {
	// IndexType selects i32 or i64 addressing.
	IndexType IndexType

	// Minimum and Maximum are in units of 64KiB pages. Maximum is nil if
	// the module declared no upper bound.
	Minimum uint64
	Maximum *uint64

	// PageSizeLog2 is log2 of the memory's page size; wasm's default page
	// size is 64KiB (PageSizeLog2 == 16), but the custom-page-sizes
	// proposal allows log2 == 0 (1-byte pages). Must be >= the host's own
	// page size log2 for the mmap-backed heap strategy to apply (spec.md
	// §3's first Memory invariant); smaller page sizes fall back to a
	// bounds-checked (non-static) heap with the 64KiB dynamic guard region.
	PageSizeLog2 uint8

	// Bound is the static byte size of the heap's address-space
	// reservation: for a "static" memory this covers at least Minimum (the
	// guard region lies past it, see OffsetGuardSize) and permits eliding
	// explicit bounds checks within it (internal/compiler's heap.go,
	// case 2). Bound is 0 for "dynamic"
	// memories, which always emit an explicit check (case 3).
	Bound uint64

	// MinSize is the byte size of the guaranteed-accessible prefix: pages
	// [0, MinSize) are always mapped RW, even before any explicit Grow.
	MinSize uint64

	// OffsetGuardSize is the number of unmapped/PROT_NONE guard bytes
	// reserved past Bound (or past the dynamic heap's live size), letting
	// small constant offsets fault instead of needing their own check.
	OffsetGuardSize uint64

	// Shared marks a memory importable/growable from multiple instances
	// concurrently. Shared memories are accepted and the flag is recorded
	// as declared; this module implements neither shared-memory atomics
	// nor memory growth, for shared or non-shared memories.
	Shared bool
}

// NewMemoryPlan validates and constructs a MemoryPlan. It returns an error
// (never panics) on invariant violation, per SPEC_FULL.md §4.M: a
// malformed plan is an ordinary module-validation failure, not a host
// defect.
func NewMemoryPlan(indexType IndexType, minimum uint64, maximum *uint64, pageSizeLog2 uint8, shared bool) (*MemoryPlan, error) {
	if pageSizeLog2 > 16 {
		return nil, fmt.Errorf("wasm: memory page_size_log2 %d exceeds wasm's maximum of 16", pageSizeLog2)
	}
	hostLog2 := uint8(platform.HostPageSizeLog2())
	useStatic := pageSizeLog2 >= hostLog2

	pageSize := uint64(1) << pageSizeLog2
	minBytes, overflow := mulOverflow(minimum, pageSize)
	if overflow {
		return nil, fmt.Errorf("wasm: memory minimum %d pages at page size %d overflows", minimum, pageSize)
	}

	const staticBound = uint64(1) << 32      // 4GiB static reservation for 32-bit memories with a usable page size.
	const staticGuardSize = uint64(1) << 31  // 2GiB guard, matching wasmtime's default.
	const dynamicGuardSize = uint64(1) << 16 // 64KiB guard for dynamic-style memories.

	plan := &MemoryPlan{
		IndexType:    indexType,
		Minimum:      minimum,
		Maximum:      maximum,
		PageSizeLog2: pageSizeLog2,
		MinSize:      minBytes,
		Shared:       shared,
	}

	if indexType == IndexTypeI32 && useStatic {
		bound := staticBound
		if maximum != nil {
			if maxBytes, of := mulOverflow(*maximum, pageSize); !of && maxBytes < bound {
				bound = maxBytes
			}
		}
		if _, of := addOverflow(bound, staticGuardSize); of {
			return nil, fmt.Errorf("wasm: memory bound %d plus guard %d overflows", bound, staticGuardSize)
		}
		plan.Bound = bound
		plan.OffsetGuardSize = staticGuardSize
	} else {
		plan.Bound = 0
		plan.OffsetGuardSize = dynamicGuardSize
		if _, of := addOverflow(minBytes, dynamicGuardSize); of {
			return nil, fmt.Errorf("wasm: memory min_size %d plus guard %d overflows", minBytes, dynamicGuardSize)
		}
	}
	return plan, nil
}

// IsStatic reports whether the plan uses a fixed address-space reservation
// (Bound > 0), enabling the heap lowering's constant/elided-check cases.
func (p *MemoryPlan) IsStatic() bool { return p.Bound > 0 }

// SetGuardSize overrides OffsetGuardSize with a host-chosen value
// (RuntimeConfig.MemoryGuardSize, component N in SPEC_FULL.md §2), re-checking the same
// overflow invariant NewMemoryPlan itself enforces for its own default
// guard. Called once per memory by Runtime.CompileModule, before any
// Instance reserves address space against this plan.
func (p *MemoryPlan) SetGuardSize(bytes uint64) error {
	base := p.Bound
	if base == 0 {
		base = p.MinSize
	}
	if _, of := addOverflow(base, bytes); of {
		return fmt.Errorf("wasm: memory bound %d plus guard %d overflows", base, bytes)
	}
	p.OffsetGuardSize = bytes
	return nil
}

func mulOverflow(a, b uint64) (uint64, bool) {
	if a == 0 || b == 0 {
		return 0, false
	}
	r := a * b
	return r, r/b != a
}

func addOverflow(a, b uint64) (uint64, bool) {
	r := a + b
	return r, r < a
}

// MemoryPageSize is wasm's default page size in bytes.
const MemoryPageSize = uint64(1) << 16

// MemoryMaxPagesAbsolute is the largest page count any wasm32 memory can
// declare (2^16 pages == 4GiB of address space).
const MemoryMaxPagesAbsolute = uint64(1) << 16
