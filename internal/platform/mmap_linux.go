//go:build linux

package platform

import (
	"fmt"
	"syscall"
)

// CompilerSupported is true wherever this module knows how to mmap/mprotect
// anonymous executable pages.
const CompilerSupported = true

// MappedRegion is an anonymous virtual-memory mapping with page-granular
// protection transitions (spec.md §4.A). A zero-value MappedRegion (from
// NewEmptyRegion) is the "Empty" state of Code Memory's lifecycle and owns no
// pages; closing it is a no-op.
type MappedRegion struct {
	data  []byte
	state *regionState
}

// NewEmptyRegion returns a MappedRegion owning no pages.
func NewEmptyRegion() *MappedRegion {
	return &MappedRegion{}
}

// NewRegion maps `size` bytes RW. size must be host-page aligned; the host
// OS contract is absolute at this layer, so failures here panic rather than
// return an error (spec.md §4.A, §7).
func NewRegion(size int) *MappedRegion {
	requirePageAligned(size)
	if size == 0 {
		return NewEmptyRegion()
	}
	data, err := syscall.Mmap(-1, 0, size, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_PRIVATE|syscall.MAP_ANON)
	if err != nil {
		panic(fmt.Sprintf("platform: mmap(size=%d, RW) failed: %v", size, err))
	}
	st := newRegionState(size)
	if err := st.request(0, size, ProtRW, ProtNone); err != nil {
		panic(err)
	}
	return &MappedRegion{data: data, state: st}
}

// NewReservedRegion reserves `size` bytes with no access, for a caller that
// will selectively commit sub-ranges with MakeAccessible.
func NewReservedRegion(size int) *MappedRegion {
	requirePageAligned(size)
	if size == 0 {
		return NewEmptyRegion()
	}
	data, err := syscall.Mmap(-1, 0, size, syscall.PROT_NONE, syscall.MAP_PRIVATE|syscall.MAP_ANON)
	if err != nil {
		panic(fmt.Sprintf("platform: mmap(size=%d, reserve) failed: %v", size, err))
	}
	return &MappedRegion{data: data, state: newRegionState(size)}
}

func requirePageAligned(size int) {
	if size%hostPageSize() != 0 {
		panic(fmt.Sprintf("platform: size %d is not host-page aligned", size))
	}
}

// Len returns the total reserved/mapped size in bytes.
func (r *MappedRegion) Len() int { return len(r.data) }

// Bytes exposes the full backing slice. Callers must only read/write within
// ranges they have made accessible.
func (r *MappedRegion) Bytes() []byte { return r.data }

// MakeAccessible transitions [start,end) to RW. The range must be a
// reservation (None) sub-range; start must be host-page aligned.
func (r *MappedRegion) MakeAccessible(start, end int) error {
	if end == start {
		return nil
	}
	if err := r.state.request(start, end, ProtRW, ProtNone); err != nil {
		return err
	}
	return mprotectRange(r.data, start, end, syscall.PROT_READ|syscall.PROT_WRITE)
}

// MakeExecutable transitions [start,end) RW -> RX. When branchProtection is
// requested and the host supports it, the BTI/PAC-compatible protection bit
// is OR'd in (arm64 only; see bti_*.go).
func (r *MappedRegion) MakeExecutable(start, end int, branchProtection bool) error {
	if end == start {
		return nil
	}
	if err := r.state.request(start, end, ProtRX, ProtRW); err != nil {
		return err
	}
	prot := syscall.PROT_READ | syscall.PROT_EXEC
	if branchProtection && btiSupported() {
		prot |= protBTI
	}
	return mprotectRange(r.data, start, end, prot)
}

// MakeReadonly transitions [start,end) RW -> RO.
func (r *MappedRegion) MakeReadonly(start, end int) error {
	if end == start {
		return nil
	}
	if err := r.state.request(start, end, ProtRO, ProtRW); err != nil {
		return err
	}
	return mprotectRange(r.data, start, end, syscall.PROT_READ)
}

// Close unmaps the region. A zero-length region is a no-op, matching
// spec.md §4.A ("Drop of a zero-length region is a no-op").
func (r *MappedRegion) Close() error {
	if len(r.data) == 0 {
		return nil
	}
	data := r.data
	r.data = nil
	return syscall.Munmap(data)
}

func mprotectRange(data []byte, start, end, prot int) error {
	if start%hostPageSize() != 0 {
		panic(fmt.Sprintf("platform: mprotect range start %d is not host-page aligned", start))
	}
	if err := syscall.Mprotect(data[start:end], prot); err != nil {
		panic(fmt.Sprintf("platform: mprotect([%d,%d), prot=%#x) failed: %v", start, end, prot, err))
	}
	return nil
}
