// symtab.go implements spec.md §3/§4.4's Scope: parent pointer, a local
// name table, a sibling-function table for the current def-group, slot
// accounting, and inherited loop labels. Name tables are backed by
// dolthub/swiss maps keyed by name/mangled-key instead of a builtin Go
// map — the same swiss-table package mna/nenuphar wires into its runtime
// Map value type (its own resolver uses a plain builtin map). Scope
// structure is grounded on the teacher's scope-stack traversal inlined in
// ir/validate.go's validate/GetEntry, generalized here into an explicit
// Scope type (the teacher never factors scope walking out of its
// validator).

package ir

import (
	"fmt"

	"github.com/dolthub/swiss"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// VarSymbol is a resolved local variable: its type and data-stack slot.
type VarSymbol struct {
	Type TypeDef
	Slot int
}

// Scope is one lexical block within a function: push on entry, pop on
// exit, per spec.md §4.4.
type Scope struct {
	parent *Scope
	fn     *Function

	names *swiss.Map[string, VarSymbol]
	funcs *swiss.Map[string, int]

	nLocal        int
	savedStackTop int

	loopStart, loopEnd int // label ids, -1 when not inside a loop
}

// ---------------------
// ----- Functions -----
// ---------------------

// NewScope pushes a new Scope for fn, inheriting the loop labels of parent
// (or none, if parent is nil or has none of its own).
func NewScope(parent *Scope, fn *Function) *Scope {
	loopStart, loopEnd := -1, -1
	if parent != nil {
		loopStart, loopEnd = parent.loopStart, parent.loopEnd
	}
	return &Scope{
		parent:        parent,
		fn:            fn,
		names:         swiss.NewMap[string, VarSymbol](8),
		funcs:         swiss.NewMap[string, int](4),
		savedStackTop: fn.StackTop,
		loopStart:     loopStart,
		loopEnd:       loopEnd,
	}
}

// Parent returns s's enclosing scope, or nil at a function's outermost
// scope.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Function returns the function s belongs to.
func (s *Scope) Function() *Function {
	return s.fn
}

// SetLoopLabels records loop_start/loop_end on s, to be inherited by every
// scope nested within the loop body.
func (s *Scope) SetLoopLabels(start, end int) {
	s.loopStart, s.loopEnd = start, end
}

// LoopLabels returns the nearest enclosing loop's labels, or false if s is
// not inside a loop.
func (s *Scope) LoopLabels() (start, end int, ok bool) {
	return s.loopStart, s.loopEnd, s.loopStart >= 0
}

// Declare registers a new named local in s, allocating it a fresh slot.
// Duplicate names within the same scope are a hard error.
func (s *Scope) Declare(name string, t TypeDef) (VarSymbol, error) {
	sym := VarSymbol{Type: t, Slot: s.fn.AllocLocal()}
	if err := s.bindSlot(name, sym); err != nil {
		return VarSymbol{}, err
	}
	return sym, nil
}

// bindSlot records name -> sym in s's local name table without allocating
// a new slot, for callers (such as a (var ...) statement) that must
// reserve the slot themselves before lowering the initializer expression.
func (s *Scope) bindSlot(name string, sym VarSymbol) error {
	if _, ok := s.names.Get(name); ok {
		return fmt.Errorf("duplicate name %q in scope", name)
	}
	s.names.Put(name, sym)
	s.nLocal++
	return nil
}

// DeclareFunc registers mangled key as resolving to function index idx
// within the current def-group. Duplicate keys are a hard error.
func (s *Scope) DeclareFunc(key string, idx int) error {
	if _, ok := s.funcs.Get(key); ok {
		return fmt.Errorf("duplicate function signature %q", key)
	}
	s.funcs.Put(key, idx)
	return nil
}

// Resolve searches s's scope chain for name, returning the owning
// function alongside the symbol so the caller can compute the lexical
// level difference for get_env/set_env/ref_env.
func (s *Scope) Resolve(name string) (VarSymbol, *Function, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if sym, ok := cur.names.Get(name); ok {
			return sym, cur.fn, true
		}
	}
	return VarSymbol{}, nil, false
}

// ResolveFunc searches s's scope chain for mangled key, following the
// parent-function chain the same way Resolve does for variables.
func (s *Scope) ResolveFunc(key string) (int, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if idx, ok := cur.funcs.Get(key); ok {
			return idx, true
		}
	}
	return 0, false
}

// Close applies the scope-exit var_count invariant of spec.md §3
// (var_count drops by the scope's own local count) and returns the
// stack_top value saved at scope entry, so the caller can decide whether
// to revert to it directly or to one slot above it (when the scope yields
// a value that must survive the pop).
func (s *Scope) Close() int {
	s.fn.VarCount -= s.nLocal
	return s.savedStackTop
}
