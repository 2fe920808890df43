// patch.go implements the three deferred patch tables of spec.md §4.3/§5:
// labels (scoped to the function currently being emitted, cleared after
// it), callee function offsets (unit-wide), and interned string offsets
// (unit-wide). Each placeholder is four zero bytes; final offsets are
// `dest - (patch_site + 4)`, written little-endian, per spec.md §9
// "Deferred patching". Grounded on the teacher's util/label.go naming idea
// (here turned into numeric patch-site offsets since we emit bytes, not
// assembly text) and golang.org/x/exp/slices for keeping patch sites in
// deterministic order when draining, matching mna/nenuphar's use of the
// same package for slice bookkeeping.

package amd64

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// patchSite is one 4-byte placeholder awaiting a RIP-relative offset.
type patchSite struct {
	offset int // byte offset of the 4-byte placeholder within the buffer
	target int // label id / function index / string index, depending on table
}

// LabelPatchTable resolves jmp/jmpf targets within a single function.
// Cleared after each function is emitted (spec.md §4.3).
type LabelPatchTable struct {
	sites []patchSite
}

// CallPatchTable resolves call targets against the unit's function offset
// table, populated only after every function has been emitted.
type CallPatchTable struct {
	sites []patchSite
}

// StringPatchTable resolves `lea rax, [rip+...]` sites against the string
// pool, populated only after the pool itself has been written.
type StringPatchTable struct {
	sites []patchSite
}

// ---------------------
// ----- Functions -----
// ---------------------

// NewLabelPatchTable returns an empty LabelPatchTable.
func NewLabelPatchTable() *LabelPatchTable { return &LabelPatchTable{} }

// Len reports the number of pending sites, for --verbose statistics
// reporting at drain time (SPEC_FULL.md §4).
func (t *LabelPatchTable) Len() int { return len(t.sites) }

// Add records a pending patch at offset for label id.
func (t *LabelPatchTable) Add(offset, label int) {
	t.sites = append(t.sites, patchSite{offset: offset, target: label})
}

// Resolve rewrites every pending site using labels (label id -> byte
// offset within the same function). It is a fatal internal error for a
// site to reference a label absent from labels (spec.md §5: "leaving any
// entry unresolved is a fatal internal error").
func (t *LabelPatchTable) Resolve(buf *Buf, labels map[int]int) error {
	slices.SortFunc(t.sites, func(a, b patchSite) int { return a.offset - b.offset })
	for _, s := range t.sites {
		destIns, ok := labels[s.target]
		if !ok {
			return fmt.Errorf("amd64: internal error: unresolved label %d at patch site %d", s.target, s.offset)
		}
		rel := int32(destIns - (s.offset + 4))
		buf.PatchI32(s.offset, rel)
	}
	t.sites = nil
	return nil
}

// NewCallPatchTable returns an empty CallPatchTable.
func NewCallPatchTable() *CallPatchTable { return &CallPatchTable{} }

// Len reports the number of pending sites, for --verbose statistics
// reporting at drain time (SPEC_FULL.md §4).
func (t *CallPatchTable) Len() int { return len(t.sites) }

// Add records a pending call-site patch at offset for callee function
// index.
func (t *CallPatchTable) Add(offset, funcIndex int) {
	t.sites = append(t.sites, patchSite{offset: offset, target: funcIndex})
}

// Resolve rewrites every pending call site against funcOffsets (function
// index -> byte offset of its first instruction).
func (t *CallPatchTable) Resolve(buf *Buf, funcOffsets []int) error {
	slices.SortFunc(t.sites, func(a, b patchSite) int { return a.offset - b.offset })
	for _, s := range t.sites {
		if s.target < 0 || s.target >= len(funcOffsets) {
			return fmt.Errorf("amd64: internal error: unresolved call to function %d at patch site %d", s.target, s.offset)
		}
		rel := int32(funcOffsets[s.target] - (s.offset + 4))
		buf.PatchI32(s.offset, rel)
	}
	t.sites = nil
	return nil
}

// NewStringPatchTable returns an empty StringPatchTable.
func NewStringPatchTable() *StringPatchTable { return &StringPatchTable{} }

// Len reports the number of pending sites, for --verbose statistics
// reporting at drain time (SPEC_FULL.md §4).
func (t *StringPatchTable) Len() int { return len(t.sites) }

// Add records a pending `lea rax, [rip+...]` patch at offset for string
// pool index.
func (t *StringPatchTable) Add(offset, stringIndex int) {
	t.sites = append(t.sites, patchSite{offset: offset, target: stringIndex})
}

// Resolve rewrites every pending string site against stringOffsets
// (pool index -> byte offset of the interned string's first byte).
func (t *StringPatchTable) Resolve(buf *Buf, stringOffsets []int) error {
	slices.SortFunc(t.sites, func(a, b patchSite) int { return a.offset - b.offset })
	for _, s := range t.sites {
		if s.target < 0 || s.target >= len(stringOffsets) {
			return fmt.Errorf("amd64: internal error: unresolved string reference %d at patch site %d", s.target, s.offset)
		}
		rel := int32(stringOffsets[s.target] - (s.offset + 4))
		buf.PatchI32(s.offset, rel)
	}
	t.sites = nil
	return nil
}
