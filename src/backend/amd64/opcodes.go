// opcodes.go is the mnemonic-level layer above encoder.go's raw ModRM
// plumbing: push/pop, control transfer with patch-site placeholders,
// immediate loads sized to the minimal encoding spec.md §4.3 names
// (`xor eax,eax` / `or rax,-1` / `mov eax,imm32` / `movabs`), and the
// arithmetic/compare/setcc primitives the per-instruction templates in
// emit.go compose. Grounded the same way as encoder.go: hand-encoded
// from the x86-64 SDM, following the opcode catalogue's idiom column,
// since no teacher file performs byte-level emission.

package amd64

// digit aliases: the ModRM reg field doubles as an opcode-extension
// digit for single-operand and immediate-group instructions (AND, SHL,
// IDIV, NEG, ...). Reusing Reg here is safe because digits are always
// 0-7 and never need the REX.R/X extension bit Reg.IsExtended() would
// otherwise signal.
const (
	digitAdd  = Reg(0)
	digitOr   = Reg(1)
	digitAnd  = Reg(4)
	digitShl  = Reg(4)
	digitNeg  = Reg(3)
	digitTest = Reg(0)
	digitIdiv = Reg(7)
)

// Second opcode bytes of the 0F-prefixed SETcc instructions, signed
// comparisons (spec.md's int is always signed 64-bit).
const (
	ccEQ = 0x94
	ccNE = 0x95
	ccLT = 0x9C
	ccGE = 0x9D
	ccLE = 0x9E
	ccGT = 0x9F
)

func ccFor(op string) byte {
	switch op {
	case "eq":
		return ccEQ
	case "ne":
		return ccNE
	case "lt":
		return ccLT
	case "ge":
		return ccGE
	case "le":
		return ccLE
	case "gt":
		return ccGT
	default:
		return ccNE
	}
}

// Push appends `push r64`.
func Push(buf *Buf, r Reg) {
	if r.IsExtended() {
		buf.U8(rex(false, false, false, true))
	}
	buf.U8(0x50 + r.Low3())
}

// Pop appends `pop r64`.
func Pop(buf *Buf, r Reg) {
	if r.IsExtended() {
		buf.U8(rex(false, false, false, true))
	}
	buf.U8(0x58 + r.Low3())
}

// Ret appends a near return.
func Ret(buf *Buf) { buf.U8(0xC3) }

// Int3 appends a debugger trap (spec.md's `debug` opcode).
func Int3(buf *Buf) { buf.U8(0xCC) }

// Syscall appends the SYSCALL instruction.
func Syscall(buf *Buf) { buf.U8(0x0F); buf.U8(0x05) }

// Cqo sign-extends RAX into RDX:RAX, ahead of a signed IDIV.
func Cqo(buf *Buf) { buf.U8(rex(true, false, false, false)); buf.U8(0x99) }

// CallRel32 appends `call rel32` with a zeroed placeholder and returns
// the byte offset of that 4-byte placeholder, for registration with a
// CallPatchTable.
func CallRel32(buf *Buf) int {
	buf.U8(0xE8)
	site := buf.Len()
	buf.I32(0)
	return site
}

// Jmp appends `jmp rel32` with a placeholder, returning its offset.
func Jmp(buf *Buf) int {
	buf.U8(0xE9)
	site := buf.Len()
	buf.I32(0)
	return site
}

// Je appends `je rel32` (jump if ZF set) with a placeholder, returning
// its offset.
func Je(buf *Buf) int {
	buf.U8(0x0F)
	buf.U8(0x84)
	site := buf.Len()
	buf.I32(0)
	return site
}

// MovRegReg appends `mov dst, src` (register-to-register).
func MovRegReg(buf *Buf, w bool, dst, src Reg) {
	RegReg(buf, w, 0x89, src, dst)
}

// XorSelf appends `xor r32, r32`, the minimal zeroing idiom.
func XorSelf(buf *Buf, r Reg) {
	RegReg(buf, false, 0x31, r, r)
}

// OrRaxAllOnes appends `or rax, -1`, the minimal all-ones idiom.
func OrRaxAllOnes(buf *Buf) {
	buf.U8(rex(true, false, false, false))
	buf.U8(0x83)
	buf.U8(modrm(3, byte(digitOr), 0))
	buf.U8(0xFF)
}

// MovImm32Zx appends `mov r32, imm32`, which zero-extends into the full
// 64-bit register: the minimal encoding for non-negative values that fit
// in 32 bits.
func MovImm32Zx(buf *Buf, dst Reg, imm uint32) {
	if dst.IsExtended() {
		buf.U8(rex(false, false, false, true))
	}
	buf.U8(0xB8 + dst.Low3())
	buf.U32(imm)
}

// MovImm32Sx appends `mov r64, imm32` (opcode C7 /0), which sign-extends
// imm into the full 64-bit register: used for negative values whose
// magnitude still fits 32 bits.
func MovImm32Sx(buf *Buf, dst Reg, imm int32) {
	emitRexIfNeeded(buf, true, digitAdd, dst)
	buf.U8(0xC7)
	buf.U8(modrm(3, byte(digitAdd), dst.Low3()))
	buf.I32(imm)
}

// MovImm64 appends `movabs r64, imm64`, the fallback for values needing
// the full 64 bits.
func MovImm64(buf *Buf, dst Reg, imm int64) {
	buf.U8(rex(true, false, false, dst.IsExtended()))
	buf.U8(0xB8 + dst.Low3())
	buf.U64(uint64(imm))
}

// LeaRip appends `lea dst, [rip+disp32]` with a zeroed placeholder,
// returning its offset for registration with a StringPatchTable.
func LeaRip(buf *Buf, dst Reg) int {
	buf.U8(rex(true, dst.IsExtended(), false, false))
	buf.U8(0x8D)
	buf.U8(modrm(0, dst.Low3(), 5))
	site := buf.Len()
	buf.I32(0)
	return site
}

// AddRegReg appends `add dst, src`.
func AddRegReg(buf *Buf, w bool, dst, src Reg) { RegReg(buf, w, 0x01, src, dst) }

// SubRegReg appends `sub dst, src`.
func SubRegReg(buf *Buf, w bool, dst, src Reg) { RegReg(buf, w, 0x29, src, dst) }

// AndRegReg appends `and dst, src`.
func AndRegReg(buf *Buf, w bool, dst, src Reg) { RegReg(buf, w, 0x21, src, dst) }

// OrRegReg appends `or dst, src`.
func OrRegReg(buf *Buf, w bool, dst, src Reg) { RegReg(buf, w, 0x09, src, dst) }

// CmpRegReg appends `cmp dst, src` (computes dst-src, sets flags).
func CmpRegReg(buf *Buf, w bool, dst, src Reg) { RegReg(buf, w, 0x39, src, dst) }

// IMulRegReg appends `imul dst, src` (two-operand form, opcode 0F AF).
func IMulRegReg(buf *Buf, w bool, dst, src Reg) { RegReg2(buf, w, 0x0F, 0xAF, dst, src) }

// Test appends `test r, r` (same register twice), setting ZF from r's
// value.
func Test(buf *Buf, r Reg) { RegReg(buf, true, 0x85, r, r) }

// Neg appends `neg r` (two's-complement negation in place).
func Neg(buf *Buf, r Reg) {
	emitRexIfNeeded(buf, true, digitNeg, r)
	buf.U8(0xF7)
	buf.U8(modrm(3, byte(digitNeg), r.Low3()))
}

// Idiv appends `idiv divisor` (signed division of RDX:RAX by divisor;
// quotient in RAX, remainder in RDX).
func Idiv(buf *Buf, divisor Reg) {
	emitRexIfNeeded(buf, true, digitIdiv, divisor)
	buf.U8(0xF7)
	buf.U8(modrm(3, byte(digitIdiv), divisor.Low3()))
}

// Shl appends `shl dst, imm8`.
func Shl(buf *Buf, dst Reg, imm byte) {
	emitRexIfNeeded(buf, true, digitShl, dst)
	buf.U8(0xC1)
	buf.U8(modrm(3, byte(digitShl), dst.Low3()))
	buf.U8(imm)
}

// AddImm32 appends `add dst, imm32`.
func AddImm32(buf *Buf, dst Reg, imm int32) {
	emitRexIfNeeded(buf, true, digitAdd, dst)
	buf.U8(0x81)
	buf.U8(modrm(3, byte(digitAdd), dst.Low3()))
	buf.I32(imm)
}

// AndImm32 appends `and dst, imm32` (the 32-bit immediate form rather than
// the sign-extending 8-bit one, under which binop8's mask 0xFF would be
// read as -1).
func AndImm32(buf *Buf, dst Reg, imm int32) {
	emitRexIfNeeded(buf, true, digitAnd, dst)
	buf.U8(0x81)
	buf.U8(modrm(3, byte(digitAnd), dst.Low3()))
	buf.I32(imm)
}

// SetccMovzx appends `setcc al`-equivalent followed by a zero-extend
// into the full 64-bit dst, the boolean-materialization idiom spec.md
// names for comparisons, `not`, and normalized `and`/`or`.
func SetccMovzx(buf *Buf, cc byte, dst Reg) {
	if dst.IsExtended() {
		buf.U8(rex(false, false, false, true))
	}
	buf.U8(0x0F)
	buf.U8(cc)
	buf.U8(modrm(3, 0, dst.Low3()))
	buf.U8(rex(true, dst.IsExtended(), false, dst.IsExtended()))
	buf.U8(0x0F)
	buf.U8(0xB6)
	buf.U8(modrm(3, dst.Low3(), dst.Low3()))
}
