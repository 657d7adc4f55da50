package aotwasm

import (
	"github.com/wazevoc/aotwasm/internal/codememory"
	"github.com/wazevoc/aotwasm/internal/vmctx"
	"github.com/wazevoc/aotwasm/internal/wasm"
)

// CompiledModule is a published, executable artifact: every defined
// function's compiled body (component C) plus the VMContextPlan (component
// I) sized to this module's import/definition counts. It is reusable:
// Instantiate may be called on it any number of times.
type CompiledModule struct {
	module  *wasm.Module
	cfg     *RuntimeConfig
	plan    *vmctx.Plan
	code    *codememory.CodeMemory
	offsets map[wasm.Index]int // function index -> its body's start offset into code's .text.
}

// Module exposes the data model this artifact was compiled from, so a
// caller building Imports can resolve names via its StringsTable/Exports.
func (c *CompiledModule) Module() *wasm.Module { return c.module }

// Plan is this module's VMContext field layout, shared by every instance.
func (c *CompiledModule) Plan() *vmctx.Plan { return c.plan }

// Close releases the compiled artifact's executable pages. Every Instance
// produced from this CompiledModule becomes invalid; closing a module
// still in use by a live Instance is a caller defect, not guarded against
// here (the original's own artifact lifetime is likewise the embedder's
// responsibility, spec.md §1).
func (c *CompiledModule) Close() error { return c.code.Close() }

// exportIndex resolves name to the Export declaring it, or reports false.
func (c *CompiledModule) exportIndex(name string) (wasm.Export, bool) {
	for _, e := range c.module.Exports {
		if c.module.Strings.Get(e.Name) == name {
			return e, true
		}
	}
	return wasm.Export{}, false
}
