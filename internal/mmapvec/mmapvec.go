// Package mmapvec implements the append-only mapped vector (spec.md §4.B):
// a growing typed buffer backed by a platform.MappedRegion, lazily
// committing pages as its logical length advances. It is the writable sink
// the object-file emitter (the codegen backend, §6) appends compiled
// function bytes into before Code Memory (internal/codememory) publishes
// them.
//
// Grounded on _examples/original_source/src/guest_memory/vec.rs (MmapVec),
// including its object.write.WritableBuffer-shaped contract
// (Reserve/Resize/WriteBytes here).
package mmapvec

import "github.com/wazevoc/aotwasm/internal/platform"

// Vec is a growing byte buffer whose capacity is reserved up front as a
// PROT_NONE mapping and whose accessible (RW) prefix grows with Len.
type Vec struct {
	region   *platform.MappedRegion
	len      int
	reserved int
}

// New returns an empty Vec with no reservation.
func New() *Vec {
	return &Vec{region: platform.NewEmptyRegion()}
}

// WithReserve reserves `capacity` bytes (rounded up to a whole number of
// host pages) with no accessible pages yet.
func WithReserve(capacity int) *Vec {
	reserved := platform.RoundUpToPage(capacity)
	return &Vec{region: platform.NewReservedRegion(reserved), reserved: reserved}
}

// Len is the logical (written) length.
func (v *Vec) Len() int { return v.len }

// Cap is the reserved capacity; writing beyond it is a caller defect.
func (v *Vec) Cap() int { return v.reserved }

// Bytes returns the written prefix.
func (v *Vec) Bytes() []byte { return v.region.Bytes()[:v.len] }

// Reserve implements the object-file sink's reserve(size) operation: it is
// idempotent and requires the vec be empty (spec.md §4.B).
func (v *Vec) Reserve(size int) {
	if v.len != 0 {
		panic("mmapvec: Reserve called on a non-empty Vec")
	}
	if v.reserved != 0 {
		if v.reserved >= size {
			return // idempotent: already reserved enough.
		}
		panic("mmapvec: Reserve called again with a larger size")
	}
	*v = *WithReserve(size)
}

// Resize implements the sink's resize(new_len) operation: a zero-fill
// extend. newLen must be >= the current length.
func (v *Vec) Resize(newLen int) {
	if newLen < v.len {
		panic("mmapvec: Resize to a length shorter than the current length")
	}
	v.TryExtendWith(newLen-v.len, 0)
}

// WriteBytes implements the sink's write_bytes(bytes) operation: append.
func (v *Vec) WriteBytes(b []byte) {
	v.TryExtendFromSlice(b)
}

// TryExtendFromSlice appends `other` to the vec, committing pages as
// needed. Exceeding the reserved capacity is a caller defect (the caller
// reserved a wrong upper bound) and panics rather than erroring, matching
// spec.md §4.B ("Out-of-capacity is a defect").
func (v *Vec) TryExtendFromSlice(other []byte) {
	oldLen := v.tryGrow(len(other))
	copy(v.region.Bytes()[oldLen:oldLen+len(other)], other)
}

// TryExtendWith appends `count` copies of `elem`.
func (v *Vec) TryExtendWith(count int, elem byte) {
	oldLen := v.tryGrow(count)
	buf := v.region.Bytes()[oldLen : oldLen+count]
	for i := range buf {
		buf[i] = elem
	}
}

// tryGrow is the transactional core: it only commits the new length (and
// the pages backing it) after the accessibility change succeeds, so a
// failed commit leaves Len() unchanged.
func (v *Vec) tryGrow(additional int) (oldLen int) {
	oldLen = v.len
	newLen := oldLen + additional
	if newLen > v.reserved {
		panic("mmapvec: write exceeds reserved capacity")
	}

	oldAccessible := platform.RoundUpToPage(oldLen)
	newAccessible := platform.RoundUpToPage(newLen)
	if newAccessible > oldAccessible {
		if err := v.region.MakeAccessible(oldAccessible, newAccessible); err != nil {
			panic(err) // commit failed; v.len is untouched above this point.
		}
	}
	v.len = newLen
	return oldLen
}

// Close releases the underlying mapping.
func (v *Vec) Close() error { return v.region.Close() }

// IntoParts exposes the raw region and length, for Code Memory to take
// ownership of a finished object-byte buffer without copying.
func (v *Vec) IntoParts() (region *platform.MappedRegion, length int) {
	return v.region, v.len
}
