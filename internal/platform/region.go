// Package platform is the thin host-OS portability layer: anonymous memory
// mappings with page-granular protection transitions, and the handful of
// CPU/OS facts the compiler needs (page size, branch-target-identification
// support). Everything else about the host is out of scope (spec.md §1).
package platform

import "fmt"

// Protection is one of the page protection states a MappedRegion range can be
// in. The state machine is one-way: None -> RW -> RX|RO. There is no path
// back to RW once a range has been made executable or read-only.
type Protection int

const (
	ProtNone Protection = iota
	ProtRW
	ProtRX
	ProtRO
)

func (p Protection) String() string {
	switch p {
	case ProtNone:
		return "none"
	case ProtRW:
		return "rw"
	case ProtRX:
		return "rx"
	case ProtRO:
		return "ro"
	default:
		return "invalid"
	}
}

// allowedTransition reports whether a range may move from `from` to `to`.
// This is the pure form of the §8 testable property "protection transitions
// are monotone in {None -> RW, RW -> RX, RW -> RO}; never RX -> RW".
func allowedTransition(from, to Protection) bool {
	switch from {
	case ProtNone:
		return to == ProtRW
	case ProtRW:
		return to == ProtRX || to == ProtRO
	default:
		// RX and RO are terminal.
		return false
	}
}

type protRange struct {
	start, end int // byte offsets, [start, end)
	prot       Protection
}

// regionState tracks the protection of every byte range of a MappedRegion
// that has had its protection set explicitly, independent of any actual
// syscall. It exists so the monotonicity invariant can be unit tested
// without mapping real memory.
type regionState struct {
	size   int
	ranges []protRange
}

func newRegionState(size int) *regionState {
	return &regionState{size: size}
}

// request validates and records a transition of [start,end) to `to`,
// returning an error if it would violate monotonicity or bounds. A byte
// range with no prior entry is implicitly ProtNone (or ProtRW, for ranges
// created via newRegionState(size) backed by an anonymous RW mapping — the
// caller picks which by the `implicit` parameter).
func (s *regionState) request(start, end int, to Protection, implicit Protection) error {
	if start < 0 || end < start || end > s.size {
		return fmt.Errorf("platform: range [%d,%d) out of bounds for region of size %d", start, end, s.size)
	}
	if start%hostPageSize() != 0 {
		return fmt.Errorf("platform: range start %d is not host-page-aligned", start)
	}
	for _, r := range s.ranges {
		if r.start < end && start < r.end {
			if !allowedTransition(r.prot, to) {
				return fmt.Errorf("platform: illegal protection transition %s -> %s on [%d,%d)", r.prot, to, start, end)
			}
		}
	}
	if !overlapsAny(s.ranges, start, end) {
		if !allowedTransition(implicit, to) {
			return fmt.Errorf("platform: illegal protection transition %s -> %s on [%d,%d)", implicit, to, start, end)
		}
	}
	s.ranges = append(s.ranges, protRange{start: start, end: end, prot: to})
	return nil
}

func overlapsAny(ranges []protRange, start, end int) bool {
	for _, r := range ranges {
		if r.start < end && start < r.end {
			return true
		}
	}
	return false
}
