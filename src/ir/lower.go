// lower.go implements the form-by-form lowering contract of spec.md §4.2:
// walking the parsed tree, resolving scopes, checking types, allocating a
// virtual stack slot for every value, and emitting a linear stream of
// typed virtual instructions per function. Grounded on the teacher's
// ir/validate.go recursive-descent switch over node types and its
// "%d:%d: ..." positioned error message style; the type system and node
// shapes themselves are sxc's own (spec.md §3-§4), since VSL's grammar and
// type lattice differ substantially from this language's.

package ir

import (
	"fmt"

	"sxc/src/frontend"
	"sxc/src/util"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Lowerer walks a parsed tree and fills in a Unit's function table.
type Lowerer struct {
	unit     *Unit
	defFuncs map[*frontend.Node]*Function
}

var (
	arithOps = map[string]bool{"+": true, "-": true, "*": true, "/": true, "%": true}
	cmpOps   = map[string]bool{"eq": true, "ne": true, "ge": true, "gt": true, "le": true, "lt": true}
	logicOps = map[string]bool{"and": true, "or": true}
	unaryOps = map[string]bool{"-": true, "not": true}
)

// ---------------------
// ----- Functions -----
// ---------------------

// Lower is the lowerer's single entry point (spec.md §4.2): root must be
// the parser's (def (main int) () (do ...)) wrapper. It returns the
// shared function table for the whole compilation unit.
func Lower(root *frontend.Node) (*Unit, error) {
	if !isForm(root, "def") || len(root.Children) != 4 {
		return nil, fmt.Errorf("%d:%d: program root must be a (def ...) form", root.Line, root.Pos)
	}

	u := NewUnit()
	l := &Lowerer{unit: u, defFuncs: make(map[*frontend.Node]*Function)}

	util.Log.Debug("lowering compilation unit")
	if _, err := l.registerDefSignature(nil, root); err != nil {
		return nil, err
	}
	if err := l.lowerDefBody(nil, root); err != nil {
		return nil, err
	}
	return u, nil
}

// isForm reports whether n is a list whose first child is the identifier
// name.
func isForm(n *frontend.Node, name string) bool {
	return n.Kind == frontend.List && len(n.Children) > 0 &&
		n.Children[0].Kind == frontend.Identifier && n.Children[0].Name == name
}

// registerDefSignature pre-scans a (def (name retType) (params...) body)
// form, allocating its Function in the unit and registering its mangled
// key into scope (nil for the top-level main, which is never called).
func (l *Lowerer) registerDefSignature(scope *Scope, n *frontend.Node) (*Function, error) {
	if len(n.Children) != 4 {
		return nil, fmt.Errorf("%d:%d: def requires a (name return-type), a parameter list and a body", n.Line, n.Pos)
	}
	header := n.Children[1]
	if header.Kind != frontend.List || len(header.Children) != 2 || header.Children[0].Kind != frontend.Identifier {
		return nil, fmt.Errorf("%d:%d: def header must be (name return-type)", header.Line, header.Pos)
	}
	name := header.Children[0].Name
	retType, err := ParseType(header.Children[1])
	if err != nil {
		return nil, err
	}

	paramsNode := n.Children[2]
	if paramsNode.Kind != frontend.List {
		return nil, fmt.Errorf("%d:%d: def parameter list must be a list", paramsNode.Line, paramsNode.Pos)
	}
	paramTypes := make([]TypeDef, len(paramsNode.Children))
	for i1, p := range paramsNode.Children {
		if p.Kind != frontend.List || len(p.Children) != 2 || p.Children[0].Kind != frontend.Identifier {
			return nil, fmt.Errorf("%d:%d: parameter must be (name type)", p.Line, p.Pos)
		}
		t, err := ParseType(p.Children[1])
		if err != nil {
			return nil, err
		}
		paramTypes[i1] = t
	}

	level := 1
	if scope != nil {
		level = scope.Function().Level + 1
	}

	f := l.unit.NewFunction()
	f.Name = name
	f.ReturnType = retType
	f.ParamTypes = paramTypes
	f.Level = level

	key := name
	sig := name + "("
	for i1, t := range paramTypes {
		key += t.Key()
		if i1 > 0 {
			sig += ", "
		}
		sig += t.String()
	}
	f.MangledKey = key
	f.Signature = sig + ") " + retType.String()

	if scope != nil {
		if err := scope.DeclareFunc(key, f.Index); err != nil {
			return nil, fmt.Errorf("%d:%d: %s", n.Line, n.Pos, err)
		}
	}

	l.defFuncs[n] = f
	util.Log.Debugw("registered function", "name", f.Signature, "level", f.Level)
	return f, nil
}

// lowerDefBody lowers the previously registered def node's body, closing
// with the mandatory final ret instruction.
func (l *Lowerer) lowerDefBody(scope *Scope, n *frontend.Node) error {
	f := l.defFuncs[n]
	body := NewScope(scope, f)

	paramsNode := n.Children[2]
	for i1, p := range paramsNode.Children {
		if _, err := body.Declare(p.Children[0].Name, f.ParamTypes[i1]); err != nil {
			return fmt.Errorf("%d:%d: %s", p.Line, p.Pos, err)
		}
	}

	stmts := statementsOf(n.Children[3])
	lastType, lastSlot, sawReturn, err := l.lowerStatements(body, stmts)
	if err != nil {
		return err
	}
	body.Close()

	if !sawReturn {
		if lastType != f.ReturnType {
			return fmt.Errorf("%d:%d: function %q must return %s, body yields %s", n.Line, n.Pos, f.Name, f.ReturnType, lastType)
		}
		f.emit(Instruction{Op: OpRet, A: lastSlot})
	}
	util.Log.Debugw("lowered function body", "name", f.Signature, "instructions", len(f.Instructions))
	return nil
}

// statementsOf returns the statement list of a function/scope body: the
// children of a (do ...)/(then ...)/(else ...) wrapper, or the single node
// itself if it is a bare expression.
func statementsOf(n *frontend.Node) []*frontend.Node {
	if isForm(n, "do") || isForm(n, "then") || isForm(n, "else") {
		return n.Children[1:]
	}
	return []*frontend.Node{n}
}

// lowerStatements lowers stmts in order inside scope, honoring the
// forward-reference def-group contract of spec.md §3/§9: statements are
// partitioned on var boundaries, and every def within a partition is
// registered before any statement in that partition is lowered.
func (l *Lowerer) lowerStatements(scope *Scope, stmts []*frontend.Node) (TypeDef, int, bool, error) {
	lastType, lastSlot := VoidType, -1
	sawReturn := false

	var group []*frontend.Node
	flush := func() error {
		if len(group) == 0 {
			return nil
		}
		for _, st := range group {
			if isForm(st, "def") {
				if _, err := l.registerDefSignature(scope, st); err != nil {
					return err
				}
			}
		}
		for _, st := range group {
			if isForm(st, "def") {
				if err := l.lowerDefBody(scope, st); err != nil {
					return err
				}
				lastType, lastSlot, sawReturn = VoidType, -1, false
				continue
			}
			t, s, err := l.lowerForm(scope, st, true)
			if err != nil {
				return err
			}
			lastType, lastSlot = t, s
			sawReturn = isForm(st, "return")
		}
		group = nil
		return nil
	}

	for _, st := range stmts {
		if isForm(st, "var") {
			if err := flush(); err != nil {
				return VoidType, -1, false, err
			}
			t, s, err := l.lowerForm(scope, st, true)
			if err != nil {
				return VoidType, -1, false, err
			}
			lastType, lastSlot, sawReturn = t, s, false
			continue
		}
		group = append(group, st)
	}
	if err := flush(); err != nil {
		return VoidType, -1, false, err
	}
	return lastType, lastSlot, sawReturn, nil
}

// lowerForm lowers a single Value node in expression position, returning
// its (type, slot). allowVar indicates n appears in a statement position
// where a (var ...) declaration is legal (spec.md §4.2).
func (l *Lowerer) lowerForm(scope *Scope, n *frontend.Node, allowVar bool) (TypeDef, int, error) {
	f := scope.Function()

	switch n.Kind {
	case frontend.Int:
		dst := f.AllocTemp()
		f.emit(Instruction{Op: OpConst, A: dst, Imm: n.IntVal, Str: -1})
		return IntType, dst, nil
	case frontend.Byte:
		dst := f.AllocTemp()
		f.emit(Instruction{Op: OpConst, A: dst, Imm: int64(n.ByteVal), Str: -1})
		return ByteType, dst, nil
	case frontend.String:
		idx := l.unit.Strings.Intern(n.Str)
		dst := f.AllocTemp()
		f.emit(Instruction{Op: OpConst, A: dst, Str: idx})
		return ByteType.PointerTo(), dst, nil
	case frontend.Identifier:
		return l.lowerIdentifier(scope, n)
	case frontend.List:
		return l.lowerList(scope, n, allowVar)
	default:
		return VoidType, -1, fmt.Errorf("%d:%d: unknown form", n.Line, n.Pos)
	}
}

// lowerIdentifier resolves a bare identifier as a variable reference.
func (l *Lowerer) lowerIdentifier(scope *Scope, n *frontend.Node) (TypeDef, int, error) {
	sym, owner, ok := scope.Resolve(n.Name)
	if !ok {
		return VoidType, -1, fmt.Errorf("%d:%d: undefined identifier %q", n.Line, n.Pos, n.Name)
	}
	f := scope.Function()
	if owner == f {
		return sym.Type, sym.Slot, nil
	}
	level := owner.Level
	dst := f.AllocTemp()
	f.emit(Instruction{Op: OpGetEnv, A: level, B: sym.Slot, C: dst})
	return sym.Type, dst, nil
}

// lowerList dispatches a parenthesized form by its operator identifier.
func (l *Lowerer) lowerList(scope *Scope, n *frontend.Node, allowVar bool) (TypeDef, int, error) {
	if n.Children[0].Kind != frontend.Identifier {
		return VoidType, -1, fmt.Errorf("%d:%d: form must begin with an identifier", n.Line, n.Pos)
	}
	op := n.Children[0].Name

	switch op {
	case "do", "then", "else":
		return l.lowerScope(scope, n)
	case "var":
		if !allowVar {
			return VoidType, -1, fmt.Errorf("%d:%d: var is not allowed here", n.Line, n.Pos)
		}
		return l.lowerVar(scope, n)
	case "set":
		return l.lowerSet(scope, n)
	case "if", "?":
		return l.lowerIf(scope, n)
	case "loop":
		return l.lowerLoop(scope, n)
	case "break":
		_, end, ok := scope.LoopLabels()
		if !ok {
			return VoidType, -1, fmt.Errorf("%d:%d: break outside of a loop", n.Line, n.Pos)
		}
		scope.Function().emit(Instruction{Op: OpJmp, Label: end})
		return VoidType, -1, nil
	case "continue":
		start, _, ok := scope.LoopLabels()
		if !ok {
			return VoidType, -1, fmt.Errorf("%d:%d: continue outside of a loop", n.Line, n.Pos)
		}
		scope.Function().emit(Instruction{Op: OpJmp, Label: start})
		return VoidType, -1, nil
	case "call":
		return l.lowerCall(scope, n)
	case "syscall":
		return l.lowerSyscall(scope, n)
	case "return":
		return l.lowerReturn(scope, n)
	case "ptr":
		return l.lowerPtr(scope, n)
	case "cast":
		return l.lowerCast(scope, n)
	case "peek":
		return l.lowerPeek(scope, n, false)
	case "peek8":
		return l.lowerPeek(scope, n, true)
	case "poke":
		return l.lowerPoke(scope, n, false)
	case "poke8":
		return l.lowerPoke(scope, n, true)
	case "ref":
		return l.lowerRef(scope, n)
	case "debug":
		scope.Function().emit(Instruction{Op: OpDebug})
		return VoidType, -1, nil
	case "def":
		return VoidType, -1, fmt.Errorf("%d:%d: def is only legal as a direct statement of a scope body", n.Line, n.Pos)
	}

	switch {
	case len(n.Children) == 2 && unaryOps[op]:
		return l.lowerUnary(scope, n, op)
	case len(n.Children) == 3 && (arithOps[op] || cmpOps[op] || logicOps[op]):
		return l.lowerBinary(scope, n, op)
	default:
		return VoidType, -1, fmt.Errorf("%d:%d: unknown form %q", n.Line, n.Pos, op)
	}
}

// lowerScope lowers a (do ...)/(then ...)/(else ...) block in its own
// child scope, moving the result (if any) into a fresh temporary at the
// caller's stack level so it survives the scope pop.
func (l *Lowerer) lowerScope(scope *Scope, n *frontend.Node) (TypeDef, int, error) {
	f := scope.Function()
	child := NewScope(scope, f)

	lastType, lastSlot, _, err := l.lowerStatements(child, n.Children[1:])
	if err != nil {
		return VoidType, -1, err
	}
	saved := child.Close()

	if lastType == VoidType {
		f.StackTop = saved
		return VoidType, -1, nil
	}
	if lastSlot != saved {
		f.emit(Instruction{Op: OpMov, A: lastSlot, B: saved})
	}
	f.StackTop = saved + 1
	return lastType, saved, nil
}

// lowerVar lowers (var name expr): the named slot is reserved before the
// initializer is lowered, so the initializer's own temporaries cannot
// collide with it.
func (l *Lowerer) lowerVar(scope *Scope, n *frontend.Node) (TypeDef, int, error) {
	if len(n.Children) != 3 || n.Children[1].Kind != frontend.Identifier {
		return VoidType, -1, fmt.Errorf("%d:%d: var requires a name and an initializer expression", n.Line, n.Pos)
	}
	name := n.Children[1].Name
	f := scope.Function()

	dst := f.VarCount
	f.StackTop = dst + 1

	t, s, err := l.lowerForm(scope, n.Children[2], false)
	if err != nil {
		return VoidType, -1, err
	}
	if t == VoidType {
		return VoidType, -1, fmt.Errorf("%d:%d: cannot initialize %q from a void expression", n.Line, n.Pos, name)
	}
	if s != dst {
		f.emit(Instruction{Op: OpMov, A: s, B: dst})
	}
	f.StackTop = dst + 1
	f.VarCount = dst + 1

	if err := scope.bindSlot(name, VarSymbol{Type: t, Slot: dst}); err != nil {
		return VoidType, -1, fmt.Errorf("%d:%d: %s", n.Line, n.Pos, err)
	}
	return VoidType, -1, nil
}

// lowerSet lowers (set name expr).
func (l *Lowerer) lowerSet(scope *Scope, n *frontend.Node) (TypeDef, int, error) {
	if len(n.Children) != 3 || n.Children[1].Kind != frontend.Identifier {
		return VoidType, -1, fmt.Errorf("%d:%d: set requires a name and an expression", n.Line, n.Pos)
	}
	name := n.Children[1].Name
	sym, owner, ok := scope.Resolve(name)
	if !ok {
		return VoidType, -1, fmt.Errorf("%d:%d: undefined identifier %q", n.Line, n.Pos, name)
	}
	t, s, err := l.lowerForm(scope, n.Children[2], false)
	if err != nil {
		return VoidType, -1, err
	}
	if t != sym.Type {
		return VoidType, -1, fmt.Errorf("%d:%d: cannot assign %s to %q of type %s", n.Line, n.Pos, t, name, sym.Type)
	}
	f := scope.Function()
	if owner == f {
		if s != sym.Slot {
			f.emit(Instruction{Op: OpMov, A: s, B: sym.Slot})
		}
	} else {
		level := owner.Level
		f.emit(Instruction{Op: OpSetEnv, A: level, B: sym.Slot, C: s})
	}
	return VoidType, -1, nil
}

// lowerIf lowers (if cond then [else]) / (? cond then [else]).
func (l *Lowerer) lowerIf(scope *Scope, n *frontend.Node) (TypeDef, int, error) {
	if len(n.Children) != 3 && len(n.Children) != 4 {
		return VoidType, -1, fmt.Errorf("%d:%d: if requires a condition, a then-branch and an optional else-branch", n.Line, n.Pos)
	}
	f := scope.Function()

	condT, condS, err := l.lowerForm(scope, n.Children[1], true)
	if err != nil {
		return VoidType, -1, err
	}
	if condT != IntType && condT != ByteType {
		return VoidType, -1, fmt.Errorf("%d:%d: if condition must be int or byte, got %s", n.Children[1].Line, n.Children[1].Pos, condT)
	}

	hasElse := len(n.Children) == 4
	falseLabel := f.NewLabel()
	f.emit(Instruction{Op: OpJmpf, A: condS, Label: falseLabel})

	dst := f.StackTop
	f.StackTop = dst + 1

	thenT, thenS, err := l.lowerForm(scope, n.Children[2], false)
	if err != nil {
		return VoidType, -1, err
	}
	if thenT != VoidType && thenS != dst {
		f.emit(Instruction{Op: OpMov, A: thenS, B: dst})
	}
	f.StackTop = dst + 1

	var trueLabel int
	if hasElse {
		trueLabel = f.NewLabel()
		f.emit(Instruction{Op: OpJmp, Label: trueLabel})
	}
	f.PlaceLabel(falseLabel)

	elseT := VoidType
	if hasElse {
		var elseS int
		elseT, elseS, err = l.lowerForm(scope, n.Children[3], false)
		if err != nil {
			return VoidType, -1, err
		}
		if elseT != VoidType && elseS != dst {
			f.emit(Instruction{Op: OpMov, A: elseS, B: dst})
		}
		f.StackTop = dst + 1
		f.PlaceLabel(trueLabel)
	}

	if hasElse && thenT != VoidType && thenT == elseT {
		return thenT, dst, nil
	}
	f.StackTop = dst
	return VoidType, -1, nil
}

// lowerLoop lowers (loop cond body).
func (l *Lowerer) lowerLoop(scope *Scope, n *frontend.Node) (TypeDef, int, error) {
	if len(n.Children) != 3 {
		return VoidType, -1, fmt.Errorf("%d:%d: loop requires a condition and a body", n.Line, n.Pos)
	}
	f := scope.Function()
	start, end := f.NewLabel(), f.NewLabel()

	loopScope := NewScope(scope, f)
	loopScope.SetLoopLabels(start, end)

	f.PlaceLabel(start)
	condT, condS, err := l.lowerForm(loopScope, n.Children[1], true)
	if err != nil {
		return VoidType, -1, err
	}
	if condT == VoidType {
		return VoidType, -1, fmt.Errorf("%d:%d: loop condition must not be void", n.Children[1].Line, n.Children[1].Pos)
	}
	f.emit(Instruction{Op: OpJmpf, A: condS, Label: end})

	if _, _, err := l.lowerForm(loopScope, n.Children[2], false); err != nil {
		return VoidType, -1, err
	}
	f.emit(Instruction{Op: OpJmp, Label: start})
	f.PlaceLabel(end)

	f.StackTop = loopScope.Close()
	return VoidType, -1, nil
}

// lowerCall lowers (call name arg...).
func (l *Lowerer) lowerCall(scope *Scope, n *frontend.Node) (TypeDef, int, error) {
	if len(n.Children) < 2 || n.Children[1].Kind != frontend.Identifier {
		return VoidType, -1, fmt.Errorf("%d:%d: call requires a function name", n.Line, n.Pos)
	}
	name := n.Children[1].Name
	args := n.Children[2:]
	f := scope.Function()

	base := f.StackTop
	argTypes := make([]TypeDef, len(args))
	for i1, a := range args {
		dst := base + i1
		f.StackTop = dst + 1
		t, s, err := l.lowerForm(scope, a, false)
		if err != nil {
			return VoidType, -1, err
		}
		if t == VoidType {
			return VoidType, -1, fmt.Errorf("%d:%d: call argument must not be void", a.Line, a.Pos)
		}
		if s != dst {
			f.emit(Instruction{Op: OpMov, A: s, B: dst})
		}
		f.StackTop = dst + 1
		argTypes[i1] = t
	}

	key := name
	for _, t := range argTypes {
		key += t.Key()
	}
	idx, ok := scope.ResolveFunc(key)
	if !ok {
		return VoidType, -1, fmt.Errorf("%d:%d: undefined function %q for the given argument types", n.Line, n.Pos, name)
	}
	callee := l.unit.Functions[idx]

	f.StackTop = base
	f.emit(Instruction{Op: OpCall, FuncIndex: idx, ArgBase: base, CallerLevel: f.Level, CalleeLevel: callee.Level})

	if callee.ReturnType == VoidType {
		return VoidType, -1, nil
	}
	dst := f.AllocTemp()
	return callee.ReturnType, dst, nil
}

// lowerSyscall lowers (syscall number arg...).
func (l *Lowerer) lowerSyscall(scope *Scope, n *frontend.Node) (TypeDef, int, error) {
	if len(n.Children) < 2 {
		return VoidType, -1, fmt.Errorf("%d:%d: syscall requires a number", n.Line, n.Pos)
	}
	numNode := n.Children[1]
	var num int64
	switch numNode.Kind {
	case frontend.Int:
		num = numNode.IntVal
	case frontend.Byte:
		num = int64(numNode.ByteVal)
	default:
		return VoidType, -1, fmt.Errorf("%d:%d: syscall number must be a literal integer or byte", numNode.Line, numNode.Pos)
	}

	args := n.Children[2:]
	if len(args) > 6 {
		return VoidType, -1, fmt.Errorf("%d:%d: syscall accepts at most 6 arguments", n.Line, n.Pos)
	}
	f := scope.Function()
	base := f.StackTop
	argSlots := make([]int, len(args))
	for i1, a := range args {
		dst := base + i1
		f.StackTop = dst + 1
		t, s, err := l.lowerForm(scope, a, false)
		if err != nil {
			return VoidType, -1, err
		}
		if t == VoidType {
			return VoidType, -1, fmt.Errorf("%d:%d: syscall argument must not be void", a.Line, a.Pos)
		}
		if s != dst {
			f.emit(Instruction{Op: OpMov, A: s, B: dst})
		}
		f.StackTop = dst + 1
		argSlots[i1] = dst
	}

	f.StackTop = base
	dst := f.AllocTemp()
	f.emit(Instruction{Op: OpSyscall, A: dst, ArgBase: base, Imm: num, Args: argSlots})
	return IntType, dst, nil
}

// lowerReturn lowers (return [expr]).
func (l *Lowerer) lowerReturn(scope *Scope, n *frontend.Node) (TypeDef, int, error) {
	f := scope.Function()
	if len(n.Children) == 1 {
		if f.ReturnType != VoidType {
			return VoidType, -1, fmt.Errorf("%d:%d: function must return %s, got return with no value", n.Line, n.Pos, f.ReturnType)
		}
		f.emit(Instruction{Op: OpRet, A: -1})
		return VoidType, -1, nil
	}
	if len(n.Children) != 2 {
		return VoidType, -1, fmt.Errorf("%d:%d: return takes at most one expression", n.Line, n.Pos)
	}
	t, s, err := l.lowerForm(scope, n.Children[1], false)
	if err != nil {
		return VoidType, -1, err
	}
	if t != f.ReturnType {
		return VoidType, -1, fmt.Errorf("%d:%d: function must return %s, got %s", n.Line, n.Pos, f.ReturnType, t)
	}
	f.emit(Instruction{Op: OpRet, A: s})
	return VoidType, -1, nil
}

// lowerPtr lowers (ptr T): a null pointer literal of pointer type T.
func (l *Lowerer) lowerPtr(scope *Scope, n *frontend.Node) (TypeDef, int, error) {
	if len(n.Children) != 2 {
		return VoidType, -1, fmt.Errorf("%d:%d: ptr requires a type", n.Line, n.Pos)
	}
	t, err := ParseType(n.Children[1])
	if err != nil {
		return VoidType, -1, err
	}
	f := scope.Function()
	dst := f.AllocTemp()
	f.emit(Instruction{Op: OpConst, A: dst, Imm: 0, Str: -1})
	return t.PointerTo(), dst, nil
}

// lowerCast lowers (cast T expr).
func (l *Lowerer) lowerCast(scope *Scope, n *frontend.Node) (TypeDef, int, error) {
	if len(n.Children) != 3 {
		return VoidType, -1, fmt.Errorf("%d:%d: cast requires a type and an expression", n.Line, n.Pos)
	}
	dst, err := ParseType(n.Children[1])
	if err != nil {
		return VoidType, -1, err
	}
	srcT, srcS, err := l.lowerForm(scope, n.Children[2], false)
	if err != nil {
		return VoidType, -1, err
	}
	ok, narrowing := srcT.CanCastTo(dst)
	if !ok {
		return VoidType, -1, fmt.Errorf("%d:%d: cannot cast %s to %s", n.Line, n.Pos, srcT, dst)
	}
	if narrowing {
		scope.Function().emit(Instruction{Op: OpCast8, A: srcS})
	}
	return dst, srcS, nil
}

// lowerPeek lowers (peek p) / (peek8 p).
func (l *Lowerer) lowerPeek(scope *Scope, n *frontend.Node, is8 bool) (TypeDef, int, error) {
	if len(n.Children) != 2 {
		return VoidType, -1, fmt.Errorf("%d:%d: peek requires a pointer expression", n.Line, n.Pos)
	}
	t, s, err := l.lowerForm(scope, n.Children[1], false)
	if err != nil {
		return VoidType, -1, err
	}
	if !t.IsPointer() {
		return VoidType, -1, fmt.Errorf("%d:%d: peek requires a pointer, got %s", n.Children[1].Line, n.Children[1].Pos, t)
	}
	pointee := TypeDef{Scalar: t.Scalar, PointerLevel: t.PointerLevel - 1}
	if is8 != (pointee.Scalar == Byte && !pointee.IsPointer()) {
		return VoidType, -1, fmt.Errorf("%d:%d: use %s for pointee type %s", n.Line, n.Pos, peekMnemonic(!is8), pointee)
	}
	f := scope.Function()
	dst := f.AllocTemp()
	op := OpPeek
	if is8 {
		op = OpPeek8
	}
	f.emit(Instruction{Op: op, A: s, B: dst})
	return pointee, dst, nil
}

func peekMnemonic(is8 bool) string {
	if is8 {
		return "peek8"
	}
	return "peek"
}

// lowerPoke lowers (poke p v) / (poke8 p v). Evaluation order is value
// first, then pointer, though the pointer appears first syntactically.
func (l *Lowerer) lowerPoke(scope *Scope, n *frontend.Node, is8 bool) (TypeDef, int, error) {
	if len(n.Children) != 3 {
		return VoidType, -1, fmt.Errorf("%d:%d: poke requires a pointer and a value", n.Line, n.Pos)
	}
	f := scope.Function()
	preTop := f.StackTop

	valT, valS, err := l.lowerForm(scope, n.Children[2], false)
	if err != nil {
		return VoidType, -1, err
	}
	ptrT, ptrS, err := l.lowerForm(scope, n.Children[1], false)
	if err != nil {
		return VoidType, -1, err
	}
	if !ptrT.IsPointer() {
		return VoidType, -1, fmt.Errorf("%d:%d: poke requires a pointer, got %s", n.Children[1].Line, n.Children[1].Pos, ptrT)
	}
	pointee := TypeDef{Scalar: ptrT.Scalar, PointerLevel: ptrT.PointerLevel - 1}
	if pointee != valT {
		return VoidType, -1, fmt.Errorf("%d:%d: poke value of type %s does not match pointee type %s", n.Line, n.Pos, valT, pointee)
	}
	if is8 != (pointee.Scalar == Byte && !pointee.IsPointer()) {
		return VoidType, -1, fmt.Errorf("%d:%d: use %s for pointee type %s", n.Line, n.Pos, peekMnemonic(!is8), pointee)
	}

	op := OpPoke
	if is8 {
		op = OpPoke8
	}
	f.emit(Instruction{Op: op, A: ptrS, B: valS})

	f.StackTop = preTop
	dst := f.AllocTemp()
	if valS != dst {
		f.emit(Instruction{Op: OpMov, A: valS, B: dst})
	}
	return valT, dst, nil
}

// lowerRef lowers (ref name).
func (l *Lowerer) lowerRef(scope *Scope, n *frontend.Node) (TypeDef, int, error) {
	if len(n.Children) != 2 || n.Children[1].Kind != frontend.Identifier {
		return VoidType, -1, fmt.Errorf("%d:%d: ref requires a variable name", n.Line, n.Pos)
	}
	name := n.Children[1].Name
	sym, owner, ok := scope.Resolve(name)
	if !ok {
		return VoidType, -1, fmt.Errorf("%d:%d: undefined identifier %q", n.Line, n.Pos, name)
	}
	f := scope.Function()
	dst := f.AllocTemp()
	if owner == f {
		f.emit(Instruction{Op: OpRefVar, A: sym.Slot, B: dst})
	} else {
		level := owner.Level
		f.emit(Instruction{Op: OpRefEnv, A: level, B: sym.Slot, C: dst})
	}
	return sym.Type.PointerTo(), dst, nil
}

// lowerUnary lowers a unary "-" or "not" application.
func (l *Lowerer) lowerUnary(scope *Scope, n *frontend.Node, op string) (TypeDef, int, error) {
	f := scope.Function()
	preTop := f.StackTop
	t, s, err := l.lowerForm(scope, n.Children[1], false)
	if err != nil {
		return VoidType, -1, err
	}
	f.StackTop = preTop
	dst := f.AllocTemp()

	var result TypeDef
	switch op {
	case "-":
		if t != IntType && t != ByteType {
			return VoidType, -1, fmt.Errorf("%d:%d: unary - requires int or byte, got %s", n.Line, n.Pos, t)
		}
		result = t
	case "not":
		if t != IntType && t != ByteType && !t.IsPointer() {
			return VoidType, -1, fmt.Errorf("%d:%d: not requires int, byte or pointer, got %s", n.Line, n.Pos, t)
		}
		result = IntType
	}
	f.emit(Instruction{Op: OpUnop, Sub: op, A: s, B: dst})
	return result, dst, nil
}

// lowerBinary lowers a two-operand arithmetic/comparison/logic form.
func (l *Lowerer) lowerBinary(scope *Scope, n *frontend.Node, op string) (TypeDef, int, error) {
	f := scope.Function()
	preTop := f.StackTop

	ta, sa, err := l.lowerForm(scope, n.Children[1], false)
	if err != nil {
		return VoidType, -1, err
	}
	tb, sb, err := l.lowerForm(scope, n.Children[2], false)
	if err != nil {
		return VoidType, -1, err
	}

	if op == "+" && !ta.IsPointer() && tb.IsPointer() {
		ta, tb = tb, ta
		sa, sb = sb, sa
	}

	f.StackTop = preTop
	dst := f.AllocTemp()

	switch {
	case ta.IsPointer() && (op == "+" || op == "-") && !tb.IsPointer():
		if tb != IntType {
			return VoidType, -1, fmt.Errorf("%d:%d: pointer arithmetic requires an int offset, got %s", n.Line, n.Pos, tb)
		}
		scale := 8
		if ta.PointerLevel == 1 && ta.Scalar == Byte {
			scale = 1
		}
		if op == "-" {
			scale = -scale
		}
		f.emit(Instruction{Op: OpLea, A: sa, B: sb, C: dst, Scale: scale})
		return ta, dst, nil

	case op == "-" && ta.IsPointer() && tb.IsPointer():
		if ta != tb {
			return VoidType, -1, fmt.Errorf("%d:%d: pointer subtraction requires identical pointer types, got %s and %s", n.Line, n.Pos, ta, tb)
		}
		if !(ta.PointerLevel == 1 && ta.Scalar == Byte) {
			return VoidType, -1, fmt.Errorf("%d:%d: not implemented: subtraction of %s pointers", n.Line, n.Pos, ta)
		}
		f.emit(Instruction{Op: OpBinop, Sub: "-", A: sa, B: sb, C: dst})
		return IntType, dst, nil

	case cmpOps[op]:
		if ta != tb {
			return VoidType, -1, fmt.Errorf("%d:%d: cannot compare %s and %s", n.Line, n.Pos, ta, tb)
		}
		iop := OpBinop
		if ta.Scalar == Byte && !ta.IsPointer() {
			iop = OpBinop8
		}
		f.emit(Instruction{Op: iop, Sub: op, A: sa, B: sb, C: dst})
		return IntType, dst, nil

	case logicOps[op]:
		if ta != IntType || tb != IntType {
			return VoidType, -1, fmt.Errorf("%d:%d: %s requires int operands, got %s and %s", n.Line, n.Pos, op, ta, tb)
		}
		f.emit(Instruction{Op: OpBinop, Sub: op, A: sa, B: sb, C: dst})
		return IntType, dst, nil

	case arithOps[op]:
		if ta != tb || (ta != IntType && ta != ByteType) {
			return VoidType, -1, fmt.Errorf("%d:%d: %s requires matching int or byte operands, got %s and %s", n.Line, n.Pos, op, ta, tb)
		}
		iop := OpBinop
		if ta == ByteType {
			iop = OpBinop8
		}
		f.emit(Instruction{Op: iop, Sub: op, A: sa, B: sb, C: dst})
		return ta, dst, nil

	default:
		return VoidType, -1, fmt.Errorf("%d:%d: unknown operator %q", n.Line, n.Pos, op)
	}
}
