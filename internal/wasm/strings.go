package wasm

// StringsTable is a module-scoped string interner for import/export names
// (component D), so the translator and the facade can pass around a small
// integer instead of repeatedly hashing/copying the same name string.
//
// Grounded on _examples/original_source/src/translate/module_strings.rs:
// a dedup table populated during translation, queried afterward, never
// mutated again once the module is compiled.
type StringsTable struct {
	byID   []string
	byName map[string]StringID
}

// StringID is an index into a StringsTable.
type StringID uint32

// NewStringsTable returns an empty interner.
func NewStringsTable() *StringsTable {
	return &StringsTable{byName: make(map[string]StringID)}
}

// Intern returns the StringID for s, assigning a fresh one the first time s
// is seen and returning the same ID on every subsequent call (idempotent).
func (t *StringsTable) Intern(s string) StringID {
	if id, ok := t.byName[s]; ok {
		return id
	}
	id := StringID(len(t.byID))
	t.byID = append(t.byID, s)
	t.byName[s] = id
	return id
}

// Get resolves a StringID back to its string. It panics on an out-of-range
// ID: a valid ID is always produced by Intern on this same table, so an
// invalid one is a caller defect, not a recoverable condition.
func (t *StringsTable) Get(id StringID) string {
	return t.byID[id]
}

// Len is the number of distinct interned strings.
func (t *StringsTable) Len() int { return len(t.byID) }
