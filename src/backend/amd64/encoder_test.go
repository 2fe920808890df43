package amd64_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/arch/x86/x86asm"

	"sxc/src/backend/amd64"
)

// decode is a thin oracle over golang.org/x/arch/x86/x86asm: it confirms
// the bytes amd64's encoders produce are at least well-formed 64-bit
// instructions, rather than hand-verifying every ModRM bit by eye.
func decode(t *testing.T, b []byte) x86asm.Inst {
	t.Helper()
	inst, err := x86asm.Decode(b, 64)
	require.NoError(t, err)
	return inst
}

func TestRegRegMovIsWellFormed(t *testing.T) {
	buf := &amd64.Buf{}
	amd64.RegReg(buf, true, 0x89, amd64.RDX, amd64.RAX)
	inst := decode(t, buf.Bytes())
	assert.Equal(t, buf.Len(), inst.Len)
	assert.Equal(t, x86asm.MOV, inst.Op)
}

func TestMemRejectsRSPBase(t *testing.T) {
	buf := &amd64.Buf{}
	err := amd64.Mem(buf, true, 0x8B, amd64.RAX, amd64.RSP, 0)
	require.Error(t, err)
}

func TestMemRejectsR12Base(t *testing.T) {
	buf := &amd64.Buf{}
	err := amd64.Mem(buf, true, 0x8B, amd64.RAX, amd64.R12, 8)
	require.Error(t, err)
}

func TestMemSlotLoadIsWellFormed(t *testing.T) {
	buf := &amd64.Buf{}
	err := amd64.Mem(buf, true, 0x8B, amd64.RAX, amd64.RBX, amd64.SlotAddr(3))
	require.NoError(t, err)
	inst := decode(t, buf.Bytes())
	assert.Equal(t, buf.Len(), inst.Len)
	assert.Equal(t, x86asm.MOV, inst.Op)
}

func TestMemChoosesDisp8ForSmallSlots(t *testing.T) {
	buf := &amd64.Buf{}
	require.NoError(t, amd64.Mem(buf, true, 0x8B, amd64.RAX, amd64.RBX, amd64.SlotAddr(1)))
	// REX.W + opcode + modrm + disp8 = 4 bytes.
	assert.Equal(t, 4, buf.Len())
}

func TestMemChoosesDisp32ForLargeSlots(t *testing.T) {
	buf := &amd64.Buf{}
	require.NoError(t, amd64.Mem(buf, true, 0x8B, amd64.RAX, amd64.RBX, amd64.SlotAddr(100)))
	// REX.W + opcode + modrm + disp32 = 7 bytes.
	assert.Equal(t, 7, buf.Len())
}

func TestSlotAddrFormula(t *testing.T) {
	assert.Equal(t, int32(0), amd64.SlotAddr(0))
	assert.Equal(t, int32(24), amd64.SlotAddr(3))
}

func TestPushPopAreSingleByteForLowRegisters(t *testing.T) {
	buf := &amd64.Buf{}
	amd64.Push(buf, amd64.RBX)
	amd64.Pop(buf, amd64.RBX)
	assert.Equal(t, []byte{0x53, 0x5B}, buf.Bytes())
}

func TestCallRel32PatchSiteIsZeroedPlaceholder(t *testing.T) {
	buf := &amd64.Buf{}
	site := amd64.CallRel32(buf)
	assert.Equal(t, []byte{0xE8, 0, 0, 0, 0}, buf.Bytes())
	buf.PatchI32(site, 10)
	assert.Equal(t, []byte{0xE8, 10, 0, 0, 0}, buf.Bytes())
}

func TestMovImm64UsesFullWidthEncoding(t *testing.T) {
	buf := &amd64.Buf{}
	amd64.MovImm64(buf, amd64.RAX, 0x7FFFFFFFFFFFFFFF)
	inst := decode(t, buf.Bytes())
	assert.Equal(t, buf.Len(), inst.Len)
	assert.Equal(t, x86asm.MOV, inst.Op)
}
