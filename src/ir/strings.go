// strings.go implements the interned string pool spec.md §4.3 describes:
// each distinct literal string is stored once and referenced by its pool
// index from every const-string instruction. Deduplication uses a
// dolthub/swiss map keyed by the string's bytes, the same map package
// mna/nenuphar backs its runtime Map value type with (lang/machine/map.go).

package ir

import "github.com/dolthub/swiss"

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// StringPool deduplicates and orders the UTF-8 string literals of a
// compilation unit.
type StringPool struct {
	index   *swiss.Map[string, int]
	Entries []string
}

// ---------------------
// ----- Functions -----
// ---------------------

// NewStringPool returns an empty StringPool.
func NewStringPool() *StringPool {
	return &StringPool{index: swiss.NewMap[string, int](16)}
}

// Intern returns the pool index for s, adding it if not already present.
func (p *StringPool) Intern(s string) int {
	if i1, ok := p.index.Get(s); ok {
		return i1
	}
	i1 := len(p.Entries)
	p.Entries = append(p.Entries, s)
	p.index.Put(s, i1)
	return i1
}
