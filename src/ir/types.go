// types.go implements spec.md §4.1's type validator: TypeDef, its
// structural equality, and the cast table. Grounded on the teacher's
// ir/validate.go compatibility lookup tables (lutExp, lutAssign), which are
// themselves small fixed compatibility tables; here the table is expressed
// as a switch over (Scalar, IsPointer) pairs since sxc's scalar set is only
// {void, int, byte} plus a pointer-level counter, rather than VSL's richer
// type lattice.

package ir

import "strings"

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Scalar is the base scalar kind underlying a TypeDef.
type Scalar int

const (
	Void Scalar = iota
	Int
	Byte
)

// TypeDef is an immutable value type: a scalar plus a pointer nesting
// level. TypeDef equality is structural (Go struct ==).
type TypeDef struct {
	Scalar       Scalar
	PointerLevel int
}

// ---------------------
// ----- Constants -----
// ---------------------

var (
	VoidType = TypeDef{Scalar: Void}
	IntType  = TypeDef{Scalar: Int}
	ByteType = TypeDef{Scalar: Byte}
)

// ---------------------
// ----- Functions -----
// ---------------------

// IsPointer reports whether t has at least one level of pointer
// indirection.
func (t TypeDef) IsPointer() bool {
	return t.PointerLevel > 0
}

// PointerTo returns the type one level more indirect than t.
func (t TypeDef) PointerTo() TypeDef {
	return TypeDef{Scalar: t.Scalar, PointerLevel: t.PointerLevel + 1}
}

// scalarName renders the bare scalar name, ignoring pointer level.
func (s Scalar) scalarName() string {
	switch s {
	case Void:
		return "void"
	case Int:
		return "int"
	case Byte:
		return "byte"
	default:
		return "?"
	}
}

// String renders t as source syntax, e.g. "ptr ptr int".
func (t TypeDef) String() string {
	return strings.Repeat("ptr ", t.PointerLevel) + t.Scalar.scalarName()
}

// Key returns the stable string used in function-name mangling:
// identical for structurally equal types, distinct otherwise.
func (t TypeDef) Key() string {
	return strings.Repeat("p", t.PointerLevel) + t.Scalar.scalarName()
}

// CanCastTo reports whether t can be cast to dst, and whether that cast is
// the narrowing int→byte case that must emit an explicit cast8 instruction
// (spec.md §4.1's cast table).
func (t TypeDef) CanCastTo(dst TypeDef) (ok bool, narrowing bool) {
	switch {
	case t.IsPointer():
		return dst.IsPointer() || dst.Scalar == Int, false
	case t.Scalar == Int:
		if dst.IsPointer() || dst.Scalar == Int {
			return true, false
		}
		if dst.Scalar == Byte {
			return true, true
		}
		return false, false
	case t.Scalar == Byte:
		return !dst.IsPointer() && (dst.Scalar == Int || dst.Scalar == Byte), false
	default:
		return false, false
	}
}
