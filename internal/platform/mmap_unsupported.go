//go:build !linux

package platform

// CompilerSupported mirrors the teacher's own config_unsupported.go gate:
// the AOT pipeline needs a host that can mmap/mprotect anonymous pages, and
// this module only wires that up for Linux (spec.md targets "servers and
// bare-metal kernels", for which Linux is the overwhelmingly common host).
const CompilerSupported = false

// MappedRegion's non-Linux form still type-checks so the rest of the module
// builds everywhere, but every operation that needs a real mapping panics
// (creating a non-empty region, changing protection, closing a non-empty
// region); an empty region's Len, Bytes and Close work. Per spec.md §4.A,
// failure at this layer is always fatal, and "unsupported host" is just
// another broken OS contract.
type MappedRegion struct{ data []byte }

func NewEmptyRegion() *MappedRegion                          { return &MappedRegion{} }
func NewRegion(int) *MappedRegion                            { panic(unsupported) }
func NewReservedRegion(int) *MappedRegion                    { panic(unsupported) }
func (r *MappedRegion) Len() int                              { return len(r.data) }
func (r *MappedRegion) Bytes() []byte                         { return r.data }
func (r *MappedRegion) MakeAccessible(int, int) error         { panic(unsupported) }
func (r *MappedRegion) MakeExecutable(int, int, bool) error   { panic(unsupported) }
func (r *MappedRegion) MakeReadonly(int, int) error           { panic(unsupported) }
func (r *MappedRegion) Close() error {
	if len(r.data) == 0 {
		return nil
	}
	panic(unsupported)
}

const unsupported = "platform: anonymous mmap is only implemented for linux in this module"
