package platform

import (
	"math/bits"
	"os"
)

var hostPageSizeLog2 = computeHostPageSizeLog2()

func computeHostPageSizeLog2() int {
	size := os.Getpagesize()
	if size <= 0 || size&(size-1) != 0 {
		// Every real host page size is a power of two; fall back to the
		// common default rather than trust a broken runtime value.
		size = 4096
	}
	return bits.TrailingZeros(uint(size))
}

// HostPageSizeLog2 returns log2 of the host's page size, e.g. 12 for 4KiB
// pages. Memory plans require page_size_log2 >= HostPageSizeLog2() so that
// virtual-memory-backed bounds-check elision (spec.md §4.F case 2) is sound.
func HostPageSizeLog2() int { return hostPageSizeLog2 }

func hostPageSize() int { return 1 << hostPageSizeLog2 }

// RoundUpToPage rounds n up to the next multiple of the host page size.
func RoundUpToPage(n int) int {
	pageSize := hostPageSize()
	return (n + pageSize - 1) &^ (pageSize - 1)
}
