// Package codememory implements Code Memory (spec.md §4.C): it owns the
// final RX image of a compiled module and publishes it by flipping
// protection atomically (per the region's own one-way state machine,
// internal/platform).
//
// Lifecycle: Empty -> Writable (RW, while the object-file emitter is still
// appending bytes via internal/mmapvec) -> Published (RX .text, optional RO
// .rodata) -> Dropped (unmapped). Transitions are one-way per region.
package codememory

import (
	"fmt"

	"github.com/wazevoc/aotwasm/internal/mmapvec"
	"github.com/wazevoc/aotwasm/internal/platform"
)

// FunctionOffset records where one function's compiled body starts in the
// .text section, for the code-offset -> function-index map spec.md's Module
// data model requires.
type FunctionOffset struct {
	FunctionIndex uint32
	Offset        int
}

// CodeMemory is the published (or not-yet-published) RX image of a module.
type CodeMemory struct {
	region    *platform.MappedRegion
	textEnd   int // page-aligned end of the executable .text range
	dataEnd   int // page-aligned end of the read-only .rodata range (>= textEnd)
	offsets   []FunctionOffset
	published bool
}

// AlignedTextEnd rounds a raw .text byte length up to the next host page
// boundary. Callers writing the object-file sink (internal/mmapvec) must pad
// .text to this length with trap-filler bytes before appending .rodata, so
// that MakeExecutable/MakeReadonly operate on disjoint, page-aligned ranges.
func AlignedTextEnd(textLen int) int { return platform.RoundUpToPage(textLen) }

// New takes ownership of a Vec's backing region — it must contain the object
// bytes laid out as [0, textLen) .text, padded to AlignedTextEnd(textLen),
// followed by the .rodata bytes — and publishes it: .text becomes RX,
// .rodata becomes RO. The Vec must not be used after this call.
func New(vec *mmapvec.Vec, textLen int, offsets []FunctionOffset, branchProtection bool) (*CodeMemory, error) {
	region, length := vec.IntoParts()
	textEnd := AlignedTextEnd(textLen)
	if textEnd > length {
		return nil, fmt.Errorf("codememory: aligned text end %d exceeds object length %d", textEnd, length)
	}
	dataEnd := platform.RoundUpToPage(length)

	if textEnd > 0 {
		if err := region.MakeExecutable(0, textEnd, branchProtection); err != nil {
			return nil, fmt.Errorf("codememory: publish .text: %w", err)
		}
	}
	if dataEnd > textEnd {
		if err := region.MakeReadonly(textEnd, dataEnd); err != nil {
			return nil, fmt.Errorf("codememory: publish .rodata: %w", err)
		}
	}

	cm := &CodeMemory{region: region, textEnd: textEnd, dataEnd: dataEnd, offsets: offsets, published: true}
	return cm, nil
}

// Published reports whether the image has been flipped to RX/RO.
func (c *CodeMemory) Published() bool { return c.published }

// TextLen is the page-aligned length of the executable range.
func (c *CodeMemory) TextLen() int { return c.textEnd }

// Executable returns the published .text bytes. The returned slice is
// immutable (the underlying pages are RX) until Close.
func (c *CodeMemory) Executable() []byte { return c.region.Bytes()[:c.textEnd] }

// Rodata returns the published .rodata bytes, if any.
func (c *CodeMemory) Rodata() []byte { return c.region.Bytes()[c.textEnd:c.dataEnd] }

// FunctionIndexOf resolves a code offset (relative to the start of .text) to
// the function index whose body contains it, for backtraces (component K).
// It returns (0, false) if the offset isn't covered by any function.
func (c *CodeMemory) FunctionIndexOf(codeOffset int) (uint32, bool) {
	var best *FunctionOffset
	for i := range c.offsets {
		o := &c.offsets[i]
		if o.Offset <= codeOffset && (best == nil || o.Offset > best.Offset) {
			best = o
		}
	}
	if best == nil {
		return 0, false
	}
	return best.FunctionIndex, true
}

// Close unmaps the image. Once closed no further access is valid.
func (c *CodeMemory) Close() error { return c.region.Close() }
