package elf_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"

	"sxc/src/backend/elf"
)

func TestBuildHeaderIdentifier(t *testing.T) {
	img := elf.Build([]byte{0x90, 0x90}, 0)
	assert.Equal(t, []byte{0x7F, 'E', 'L', 'F', 2, 1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0}, img[0:16])
}

func TestBuildFieldLayout(t *testing.T) {
	code := []byte{0x90, 0x90, 0x90}
	img := elf.Build(code, 1)
	le := binary.LittleEndian

	assert.EqualValues(t, 2, le.Uint16(img[16:18]))   // e_type = EXEC
	assert.EqualValues(t, 0x3E, le.Uint16(img[18:20])) // e_machine = x86-64
	assert.EqualValues(t, 0x1000+120+1, le.Uint64(img[24:32]))

	assert.EqualValues(t, 1, le.Uint32(img[64:68]))    // p_type = LOAD
	assert.EqualValues(t, 5, le.Uint32(img[68:72]))    // p_flags = R|X
	assert.EqualValues(t, 0x1000, le.Uint64(img[80:88]))  // p_vaddr
	assert.EqualValues(t, 0x1000, le.Uint64(img[88:96]))  // p_paddr
	assert.EqualValues(t, len(img), le.Uint64(img[96:104]))
	assert.Equal(t, code, img[120:])
}
