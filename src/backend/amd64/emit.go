// emit.go is the native code emitter of spec.md §4.3: a single pass over
// every function of a lowered Unit, translating each virtual instruction
// into the fixed byte template its opcode catalogue entry describes, and
// draining the label/call/string patch tables at the documented points.
// Grounded on the teacher's per-function worker shape in
// backend/riscv/riscv.go's GenRiscv (there one goroutine per function
// feeding a shared output; despined of its parallelism, since spec.md's
// concurrency model is strictly single-threaded) and the label-table
// idea in util/label.go.

package amd64

import (
	"fmt"

	"sxc/src/ir"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Mode selects which prolog Emit writes ahead of the function table.
type Mode int

const (
	// ModeInMemory emits the C-callable `int64_t fn(void *data_stack)`
	// prolog for JIT invocation.
	ModeInMemory Mode = iota
	// ModeELF emits the mmap/mprotect/exit prolog for a standalone ELF
	// executable (Linux only, per spec.md §4.3/§8 scenario F).
	ModeELF
)

// Emitter owns the output buffer and the three patch tables of spec.md
// §4.3: label (per function, drained in emitFunction), call (unit-wide,
// drained after every function is emitted), and string (unit-wide,
// drained after the string pool is written).
type Emitter struct {
	unit    *ir.Unit
	buf     *Buf
	calls   *CallPatchTable
	strings *StringPatchTable

	// argReg is the first-argument register of the in-memory prolog's
	// calling convention: RDI under System-V, RCX under Microsoft x64.
	argReg Reg

	// alignment is the function padding boundary of spec.md §6's
	// `--alignment <n>` (default 16), validated as a power of two by
	// util.ParseArgs before it ever reaches the emitter.
	alignment int

	funcOffsets []int
	stats       Stats
}

// Stats is the set of compiler statistics SPEC_FULL.md §4's --verbose
// mode reports: total instruction count, function count, string pool
// size, and the three patch tables' site counts, all sampled at the
// point each table drains (not after, since Resolve clears them).
type Stats struct {
	Functions        int
	Instructions     int
	StringPoolBytes  int
	LabelPatchSites  int
	CallPatchSites   int
	StringPatchSites int
}

// Stats returns the statistics gathered by the most recent Emit call.
func (e *Emitter) Stats() Stats { return e.stats }

// ---------------------
// ----- Functions -----
// ---------------------

// NewEmitter returns an Emitter over u defaulting to the System-V
// argument register (RDI) and 16-byte function alignment. Call
// UseWindowsABI before Emit to target Microsoft x64 instead, or
// SetAlignment to change the padding boundary.
func NewEmitter(u *ir.Unit) *Emitter {
	return &Emitter{unit: u, buf: &Buf{}, calls: NewCallPatchTable(), strings: NewStringPatchTable(), argReg: RDI, alignment: 16}
}

// SetAlignment overrides the function padding boundary Emit pads to. n
// must be a power of two; callers are expected to validate this
// themselves (util.ParseArgs already does, for the CLI's --alignment).
func (e *Emitter) SetAlignment(n int) { e.alignment = n }

// UseWindowsABI switches the in-memory prolog's argument register to RCX.
func (e *Emitter) UseWindowsABI() { e.argReg = RCX }

// Emit lays out the prolog, every function body aligned and padded with
// 0xCC (spec.md §4.3), and the string pool, resolving all three patch
// tables at their documented points. It returns the finished byte buffer
// and the byte offset callers should treat as the entry point.
func (e *Emitter) Emit(mode Mode) ([]byte, int, error) {
	entry := e.buf.Len()
	switch mode {
	case ModeInMemory:
		e.emitInMemoryProlog()
	case ModeELF:
		e.emitELFProlog()
	default:
		return nil, 0, fmt.Errorf("amd64: internal error: unknown emission mode %d", mode)
	}

	e.stats = Stats{Functions: len(e.unit.Functions)}
	e.funcOffsets = make([]int, len(e.unit.Functions))
	for _, f := range e.unit.Functions {
		e.padToAlignment()
		e.funcOffsets[f.Index] = e.buf.Len()
		e.stats.Instructions += len(f.Instructions)
		if err := e.emitFunction(f); err != nil {
			return nil, 0, err
		}
	}
	e.stats.CallPatchSites = e.calls.Len()
	if err := e.calls.Resolve(e.buf, e.funcOffsets); err != nil {
		return nil, 0, err
	}

	e.padToAlignment()
	stringOffsets := e.emitStringPool()
	e.stats.StringPatchSites = e.strings.Len()
	if err := e.strings.Resolve(e.buf, stringOffsets); err != nil {
		return nil, 0, err
	}
	return e.buf.Bytes(), entry, nil
}

// padToAlignment pads the output buffer with 0xCC up to the next
// e.alignment boundary (spec.md §6's --alignment, default 16).
func (e *Emitter) padToAlignment() {
	if pad := (e.alignment - e.buf.Len()%e.alignment) % e.alignment; pad != 0 {
		e.buf.Pad(pad, 0xCC)
	}
}

func (e *Emitter) emitInMemoryProlog() {
	Push(e.buf, RBX)
	MovRegReg(e.buf, true, RBX, e.argReg)
	site := CallRel32(e.buf)
	e.calls.Add(site, 0)
	_ = Mem(e.buf, true, 0x8B, RAX, RBX, 0) // mov rax, [rbx]
	Pop(e.buf, RBX)
	Ret(e.buf)
}

// emitELFProlog obtains an 8 MiB data stack via mmap+mprotect (Linux
// syscalls 9 and 10), calls function 0, and exits via syscall 60 with
// the call's result as status (spec.md §4.3, §8 scenario F).
func (e *Emitter) emitELFProlog() {
	const dataStackSize = 8 << 20
	MovImm32Zx(e.buf, RAX, 9) // mmap
	XorSelf(e.buf, RDI)       // addr = NULL
	MovImm32Zx(e.buf, RSI, dataStackSize)
	MovImm32Zx(e.buf, RDX, 0x3)  // PROT_READ|PROT_WRITE
	MovImm32Zx(e.buf, R10, 0x22) // MAP_PRIVATE|MAP_ANONYMOUS
	MovImm32Sx(e.buf, R8, -1)    // fd = -1
	XorSelf(e.buf, R9)           // offset = 0
	Syscall(e.buf)
	MovRegReg(e.buf, true, RBX, RAX)

	MovImm32Zx(e.buf, RAX, 10) // mprotect
	MovRegReg(e.buf, true, RDI, RBX)
	MovImm32Zx(e.buf, RSI, dataStackSize)
	MovImm32Zx(e.buf, RDX, 0x3)
	Syscall(e.buf)

	site := CallRel32(e.buf)
	e.calls.Add(site, 0)
	_ = Mem(e.buf, true, 0x8B, RAX, RBX, 0) // mov rax, [rbx]
	MovRegReg(e.buf, true, RDI, RAX)
	MovImm32Zx(e.buf, RAX, 60) // exit
	Syscall(e.buf)
}

// emitFunction appends f's instruction stream, resolving its own label
// patch table (cleared on return, spec.md §4.3 "cleared after each
// function") against the byte offsets its instructions actually land at.
func (e *Emitter) emitFunction(f *ir.Function) error {
	lt := NewLabelPatchTable()

	instrLabels := make(map[int][]int, len(f.Labels))
	for labelID, idx := range f.Labels {
		instrLabels[idx] = append(instrLabels[idx], labelID)
	}
	labelOffsets := make(map[int]int, len(f.Labels))

	for i, ins := range f.Instructions {
		for _, labelID := range instrLabels[i] {
			labelOffsets[labelID] = e.buf.Len()
		}
		if err := e.emitInstruction(ins, lt); err != nil {
			return fmt.Errorf("function %s: %w", f.Name, err)
		}
	}
	for _, labelID := range instrLabels[len(f.Instructions)] {
		labelOffsets[labelID] = e.buf.Len()
	}

	e.stats.LabelPatchSites += lt.Len()
	return lt.Resolve(e.buf, labelOffsets)
}

func (e *Emitter) loadSlot(dst Reg, slot int) { _ = Mem(e.buf, true, 0x8B, dst, RBX, SlotAddr(slot)) }
func (e *Emitter) storeSlot(slot int, src Reg) {
	_ = Mem(e.buf, true, 0x89, src, RBX, SlotAddr(slot))
}

func (e *Emitter) emitInstruction(ins ir.Instruction, lt *LabelPatchTable) error {
	switch ins.Op {
	case ir.OpConst:
		return e.emitConst(ins)
	case ir.OpMov:
		if ins.A != ins.B {
			e.loadSlot(RAX, ins.A)
			e.storeSlot(ins.B, RAX)
		}
		return nil
	case ir.OpBinop:
		return e.emitBinop(ins, false)
	case ir.OpBinop8:
		return e.emitBinop(ins, true)
	case ir.OpUnop:
		return e.emitUnop(ins)
	case ir.OpJmpf:
		e.loadSlot(RAX, ins.A)
		Test(e.buf, RAX)
		lt.Add(Je(e.buf), ins.Label)
		return nil
	case ir.OpJmp:
		lt.Add(Jmp(e.buf), ins.Label)
		return nil
	case ir.OpLabel:
		return nil
	case ir.OpCall:
		return e.emitCall(ins)
	case ir.OpRet:
		if ins.A > 0 {
			e.loadSlot(RAX, ins.A)
			e.storeSlot(0, RAX)
		}
		Ret(e.buf)
		return nil
	case ir.OpGetEnv:
		RspMem(e.buf, true, 0x8B, RAX, int32(ins.A*8))
		if err := Mem(e.buf, true, 0x8B, RAX, RAX, SlotAddr(ins.B)); err != nil {
			return err
		}
		e.storeSlot(ins.C, RAX)
		return nil
	case ir.OpSetEnv:
		RspMem(e.buf, true, 0x8B, RAX, int32(ins.A*8))
		e.loadSlot(RDX, ins.C)
		return Mem(e.buf, true, 0x89, RDX, RAX, SlotAddr(ins.B))
	case ir.OpLea:
		return e.emitLea(ins)
	case ir.OpPeek:
		e.loadSlot(RDX, ins.A)
		if err := Mem(e.buf, true, 0x8B, RAX, RDX, 0); err != nil {
			return err
		}
		e.storeSlot(ins.B, RAX)
		return nil
	case ir.OpPeek8:
		e.loadSlot(RDX, ins.A)
		if err := memOp(e.buf, true, []byte{0x0F, 0xB6}, RAX, RDX, 0); err != nil {
			return err
		}
		e.storeSlot(ins.B, RAX)
		return nil
	case ir.OpPoke:
		e.loadSlot(RAX, ins.B)
		e.loadSlot(RDX, ins.A)
		return Mem(e.buf, true, 0x89, RAX, RDX, 0)
	case ir.OpPoke8:
		e.loadSlot(RAX, ins.B)
		e.loadSlot(RDX, ins.A)
		return memOp(e.buf, false, []byte{0x88}, RAX, RDX, 0)
	case ir.OpRefVar:
		if err := Mem(e.buf, true, 0x8D, RAX, RBX, SlotAddr(ins.A)); err != nil {
			return err
		}
		e.storeSlot(ins.B, RAX)
		return nil
	case ir.OpRefEnv:
		RspMem(e.buf, true, 0x8B, RAX, int32(ins.A*8))
		AddImm32(e.buf, RAX, int32(ins.B*8))
		e.storeSlot(ins.C, RAX)
		return nil
	case ir.OpCast8:
		return MemImm32(e.buf, true, 0x81, digitAnd, RBX, SlotAddr(ins.A), 0xFF)
	case ir.OpSyscall:
		return e.emitSyscall(ins)
	case ir.OpDebug:
		Int3(e.buf)
		return nil
	default:
		return fmt.Errorf("amd64: internal error: unknown opcode %d", ins.Op)
	}
}

func (e *Emitter) emitConst(ins ir.Instruction) error {
	if ins.Str >= 0 {
		site := LeaRip(e.buf, RAX)
		e.strings.Add(site, ins.Str)
		e.storeSlot(ins.A, RAX)
		return nil
	}
	v := ins.Imm
	switch {
	case v == 0:
		XorSelf(e.buf, RAX)
	case v == -1:
		OrRaxAllOnes(e.buf)
	case v > 0 && v <= 0xFFFFFFFF:
		MovImm32Zx(e.buf, RAX, uint32(v))
	case v >= -(1<<31) && v < (1<<31):
		MovImm32Sx(e.buf, RAX, int32(v))
	default:
		MovImm64(e.buf, RAX, v)
	}
	e.storeSlot(ins.A, RAX)
	return nil
}

func (e *Emitter) emitBinop(ins ir.Instruction, is8 bool) error {
	e.loadSlot(RAX, ins.A)
	e.loadSlot(RDX, ins.B)
	switch ins.Sub {
	case "+":
		AddRegReg(e.buf, true, RAX, RDX)
	case "-":
		SubRegReg(e.buf, true, RAX, RDX)
	case "*":
		IMulRegReg(e.buf, true, RAX, RDX)
	case "/", "%":
		MovRegReg(e.buf, true, RCX, RDX)
		Cqo(e.buf)
		Idiv(e.buf, RCX)
		if ins.Sub == "%" {
			MovRegReg(e.buf, true, RAX, RDX)
		}
	case "eq", "ne", "ge", "gt", "le", "lt":
		CmpRegReg(e.buf, true, RAX, RDX)
		SetccMovzx(e.buf, ccFor(ins.Sub), RAX)
	case "and":
		AndRegReg(e.buf, true, RAX, RDX)
		Test(e.buf, RAX)
		SetccMovzx(e.buf, ccNE, RAX)
	case "or":
		OrRegReg(e.buf, true, RAX, RDX)
		Test(e.buf, RAX)
		SetccMovzx(e.buf, ccNE, RAX)
	default:
		return fmt.Errorf("amd64: internal error: unknown binop %q", ins.Sub)
	}
	if is8 {
		AndImm32(e.buf, RAX, 0xFF)
	}
	e.storeSlot(ins.C, RAX)
	return nil
}

func (e *Emitter) emitUnop(ins ir.Instruction) error {
	e.loadSlot(RAX, ins.A)
	switch ins.Sub {
	case "-":
		Neg(e.buf, RAX)
	case "not":
		Test(e.buf, RAX)
		SetccMovzx(e.buf, ccEQ, RAX)
	default:
		return fmt.Errorf("amd64: internal error: unknown unop %q", ins.Sub)
	}
	e.storeSlot(ins.B, RAX)
	return nil
}

// emitLea implements `lea a, b, scale, d`: RAX<-slot a, RDX<-slot b,
// negating RDX for a negative scale, then scaling RDX by a left shift
// before adding (spec.md §4.3's lea row, realized via shift+add rather
// than a second SIB-indexed addressing path alongside RspMem).
func (e *Emitter) emitLea(ins ir.Instruction) error {
	e.loadSlot(RAX, ins.A)
	e.loadSlot(RDX, ins.B)
	scale := ins.Scale
	if scale < 0 {
		scale = -scale
		Neg(e.buf, RDX)
	}
	switch scale {
	case 1:
	case 2:
		Shl(e.buf, RDX, 1)
	case 4:
		Shl(e.buf, RDX, 2)
	case 8:
		Shl(e.buf, RDX, 3)
	default:
		return fmt.Errorf("amd64: internal error: invalid lea scale %d", ins.Scale)
	}
	AddRegReg(e.buf, true, RAX, RDX)
	e.storeSlot(ins.C, RAX)
	return nil
}

// emitCall implements spec.md §4.3's call row: build the callee's
// environment chain of length `callee_level-1` on RSP (the caller's own
// frame base for the one new level, ancestor entries copied from the
// caller's existing chain), bias RBX by the argument base, call, unbias,
// then discard the pushed chain entries.
func (e *Emitter) emitCall(ins ir.Instruction) error {
	chainLen := ins.CalleeLevel - 1
	if chainLen > 0 {
		MovRegReg(e.buf, true, R11, RSP) // snapshot before any pushes shift RSP
	}
	for level := chainLen; level >= 1; level-- {
		if level == ins.CallerLevel {
			Push(e.buf, RBX)
			continue
		}
		if err := Mem(e.buf, true, 0x8B, RAX, R11, int32(level*8)); err != nil {
			return err
		}
		Push(e.buf, RAX)
	}

	if ins.ArgBase != 0 {
		AddImm32(e.buf, RBX, int32(ins.ArgBase*8))
	}
	site := CallRel32(e.buf)
	e.calls.Add(site, ins.FuncIndex)
	if ins.ArgBase != 0 {
		AddImm32(e.buf, RBX, int32(-ins.ArgBase*8))
	}
	if chainLen > 0 {
		AddImm32(e.buf, RSP, int32(chainLen*8))
	}
	return nil
}

func (e *Emitter) emitSyscall(ins ir.Instruction) error {
	argRegs := [...]Reg{RDI, RSI, RDX, R10, R8, R9}
	if len(ins.Args) > len(argRegs) {
		return fmt.Errorf("amd64: internal error: syscall takes at most %d arguments, got %d", len(argRegs), len(ins.Args))
	}
	MovImm32Zx(e.buf, RAX, uint32(ins.Imm))
	for i, slot := range ins.Args {
		e.loadSlot(argRegs[i], slot)
	}
	Syscall(e.buf)
	e.storeSlot(ins.ArgBase, RAX)
	return nil
}

// emitStringPool writes every interned string with a trailing NUL,
// returning each entry's byte offset for StringPatchTable.Resolve.
func (e *Emitter) emitStringPool() []int {
	offsets := make([]int, len(e.unit.Strings.Entries))
	for i, s := range e.unit.Strings.Entries {
		offsets[i] = e.buf.Len()
		for j := 0; j < len(s); j++ {
			e.buf.U8(s[j])
		}
		e.buf.U8(0)
		e.stats.StringPoolBytes += len(s) + 1
	}
	return offsets
}
