// Package llvm implements the optional --emit-llvm textual IR dump of a
// lowered function table, mirroring the teacher's -ll flag and its own
// ir/llvm/transform.go LLVM wiring. Unlike the teacher, this is a
// debug-only introspection aid: it never feeds sxc's amd64 backend, which
// always consumes the ir.Unit's virtual instruction stream directly.
package llvm

import (
	"fmt"
	"strings"

	"tinygo.org/x/go-llvm"

	"sxc/src/ir"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// moduleBuilder accumulates a single LLVM module for one compilation unit.
type moduleBuilder struct {
	mod     llvm.Module
	builder llvm.Builder
	i64     llvm.Type
	i8      llvm.Type
	void    llvm.Type
}

// ---------------------
// ----- functions -----
// ---------------------

// Dump renders u's function table as textual LLVM IR. Every function gets
// a correctly-typed declaration and a single entry block that returns a
// zero value of its return type; the lowered instruction stream itself is
// not rendered, since sxc's virtual ISA has no LLVM-instruction-level
// translation (it targets raw x86-64 bytes directly, per spec.md §4.3).
func Dump(u *ir.Unit) (string, error) {
	b := newModuleBuilder()
	defer b.dispose()

	for _, f := range u.Functions {
		if err := b.declareFunction(f); err != nil {
			return "", err
		}
	}
	return b.mod.String(), nil
}

func newModuleBuilder() *moduleBuilder {
	ctx := llvm.GlobalContext()
	return &moduleBuilder{
		mod:     llvm.NewModule("sxc"),
		builder: ctx.NewBuilder(),
		i64:     llvm.Int64Type(),
		i8:      llvm.Int8Type(),
		void:    llvm.VoidType(),
	}
}

func (b *moduleBuilder) dispose() {
	b.builder.Dispose()
}

func (b *moduleBuilder) llvmType(t ir.TypeDef) llvm.Type {
	if t.IsPointer() {
		return llvm.PointerType(b.llvmType(ir.TypeDef{Scalar: t.Scalar, PointerLevel: t.PointerLevel - 1}), 0)
	}
	switch t.Scalar {
	case ir.Byte:
		return b.i8
	case ir.Void:
		return b.void
	default:
		return b.i64
	}
}

// declareFunction adds fn's signature and a placeholder entry block to the
// module. sxc's virtual ISA operates over a slot-indexed data stack with
// no SSA form of its own, so --emit-llvm only reconstructs signatures and
// types for introspection; it does not translate instruction semantics.
func (b *moduleBuilder) declareFunction(fn *ir.Function) error {
	paramTypes := make([]llvm.Type, len(fn.ParamTypes))
	for i1, p := range fn.ParamTypes {
		paramTypes[i1] = b.llvmType(p)
	}
	fnType := llvm.FunctionType(b.llvmType(fn.ReturnType), paramTypes, false)
	name := fmt.Sprintf("sxc_%s_%d", sanitize(fn.Name), fn.Index)
	llvmFn := llvm.AddFunction(b.mod, name, fnType)

	entry := llvm.AddBasicBlock(llvmFn, "entry")
	b.builder.SetInsertPointAtEnd(entry)

	if fn.ReturnType.Scalar == ir.Void && !fn.ReturnType.IsPointer() {
		b.builder.CreateRetVoid()
	} else {
		b.builder.CreateRet(llvm.ConstNull(b.llvmType(fn.ReturnType)))
	}
	return nil
}

func sanitize(name string) string {
	r := strings.NewReplacer("+", "plus", "-", "minus", "*", "star", "/", "slash",
		"%", "pct", "<", "lt", ">", "gt", "=", "eq", "!", "bang", "?", "q")
	return r.Replace(name)
}
