// describe.go renders a single Instruction as a terse one-line mnemonic,
// used only by --print-ir (main.go) and debug logging. Grounded on the
// teacher's Node.Print tree dump in frontend/tree.go, adapted from a
// recursive indented tree to a flat per-instruction line since there is
// no tree left to walk at this stage of the pipeline.

package ir

import "fmt"

var opNames = [...]string{
	OpConst:   "const",
	OpMov:     "mov",
	OpBinop:   "binop",
	OpBinop8:  "binop8",
	OpUnop:    "unop",
	OpJmpf:    "jmpf",
	OpJmp:     "jmp",
	OpLabel:   "label",
	OpCall:    "call",
	OpRet:     "ret",
	OpGetEnv:  "get_env",
	OpSetEnv:  "set_env",
	OpLea:     "lea",
	OpPeek:    "peek",
	OpPeek8:   "peek8",
	OpPoke:    "poke",
	OpPoke8:   "poke8",
	OpRefVar:  "ref_var",
	OpRefEnv:  "ref_env",
	OpCast8:   "cast8",
	OpSyscall: "syscall",
	OpDebug:   "debug",
}

// DescribeInstruction renders ins as a compact mnemonic line.
func DescribeInstruction(ins Instruction) string {
	name := "?"
	if int(ins.Op) >= 0 && int(ins.Op) < len(opNames) && opNames[ins.Op] != "" {
		name = opNames[ins.Op]
	}
	switch ins.Op {
	case OpConst:
		if ins.Str >= 0 {
			return fmt.Sprintf("%s str#%d -> %d", name, ins.Str, ins.A)
		}
		return fmt.Sprintf("%s %d -> %d", name, ins.Imm, ins.A)
	case OpMov:
		return fmt.Sprintf("%s %d -> %d", name, ins.A, ins.B)
	case OpBinop, OpBinop8:
		return fmt.Sprintf("%s %s %d, %d -> %d", name, ins.Sub, ins.A, ins.B, ins.C)
	case OpUnop:
		return fmt.Sprintf("%s %s %d -> %d", name, ins.Sub, ins.A, ins.B)
	case OpJmpf:
		return fmt.Sprintf("%s %d, L%d", name, ins.A, ins.Label)
	case OpJmp:
		return fmt.Sprintf("%s L%d", name, ins.Label)
	case OpCall:
		return fmt.Sprintf("%s fn#%d base=%d caller_level=%d callee_level=%d", name, ins.FuncIndex, ins.ArgBase, ins.CallerLevel, ins.CalleeLevel)
	case OpRet:
		return fmt.Sprintf("%s %d", name, ins.A)
	case OpGetEnv:
		return fmt.Sprintf("%s L%d, %d -> %d", name, ins.A, ins.B, ins.C)
	case OpSetEnv:
		return fmt.Sprintf("%s L%d, %d <- %d", name, ins.A, ins.B, ins.C)
	case OpLea:
		return fmt.Sprintf("%s %d, %d, x%d -> %d", name, ins.A, ins.B, ins.Scale, ins.C)
	case OpPeek, OpPeek8:
		return fmt.Sprintf("%s %d -> %d", name, ins.A, ins.B)
	case OpPoke, OpPoke8:
		return fmt.Sprintf("%s %d, %d", name, ins.A, ins.B)
	case OpRefVar:
		return fmt.Sprintf("%s %d -> %d", name, ins.A, ins.B)
	case OpRefEnv:
		return fmt.Sprintf("%s L%d, %d -> %d", name, ins.A, ins.B, ins.C)
	case OpCast8:
		return fmt.Sprintf("%s %d", name, ins.A)
	case OpSyscall:
		return fmt.Sprintf("%s base=%d num=%d args=%v", name, ins.ArgBase, ins.Imm, ins.Args)
	default:
		return name
	}
}
