// elf.go wraps an emitted byte buffer in the minimal static ELF64
// executable envelope spec.md §6 specifies: one PT_LOAD segment,
// R|X permissions, a fixed load address, and e_entry pointed at the
// prolog's offset into that buffer. Grounded on the teacher's
// util/io.go Writer (buffer-then-flush idiom) since VSL itself never
// produces an executable; the header field layout is hand-encoded from
// spec.md §6's byte-for-byte description.

package elf

import "encoding/binary"

const (
	loadAddr = 0x1000
	// headerSize is the combined size of the ELF64 file header (64 bytes)
	// and a single 56-byte program header, i.e. where the code begins.
	headerSize = 64 + 56
)

// Build returns a complete ELF64 EXEC image: the fixed header identifying
// bytes spec.md §6 names, one PT_LOAD program header covering the whole
// file, and code appended verbatim starting at headerSize. entryOffset is
// the byte offset within code that the prolog begins at.
func Build(code []byte, entryOffset int) []byte {
	total := headerSize + len(code)
	buf := make([]byte, total)

	// e_ident
	copy(buf[0:16], []byte{0x7F, 'E', 'L', 'F', 2, 1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0})

	entry := uint64(loadAddr + headerSize + entryOffset)
	le := binary.LittleEndian
	le.PutUint16(buf[16:18], 2)                    // e_type = ET_EXEC
	le.PutUint16(buf[18:20], 0x3E)                 // e_machine = EM_X86_64
	le.PutUint32(buf[20:24], 1)                    // e_version
	le.PutUint64(buf[24:32], entry)                // e_entry
	le.PutUint64(buf[32:40], 64)                   // e_phoff
	le.PutUint64(buf[40:48], 0)                    // e_shoff
	le.PutUint32(buf[48:52], 0)                    // e_flags
	le.PutUint16(buf[52:54], 64)                   // e_ehsize
	le.PutUint16(buf[54:56], 56)                   // e_phentsize
	le.PutUint16(buf[56:58], 1)                    // e_phnum
	le.PutUint16(buf[58:60], 0)                    // e_shentsize
	le.PutUint16(buf[60:62], 0)                    // e_shnum
	le.PutUint16(buf[62:64], 0)                    // e_shstrndx

	// program header (Elf64_Phdr), at offset 64
	ph := buf[64:120]
	le.PutUint32(ph[0:4], 1)                  // p_type = PT_LOAD
	le.PutUint32(ph[4:8], 5)                  // p_flags = R|X
	le.PutUint64(ph[8:16], 0)                 // p_offset
	le.PutUint64(ph[16:24], loadAddr)         // p_vaddr
	le.PutUint64(ph[24:32], loadAddr)         // p_paddr
	le.PutUint64(ph[32:40], uint64(total))    // p_filesz
	le.PutUint64(ph[40:48], uint64(total))    // p_memsz
	le.PutUint64(ph[48:56], 0x1000)           // p_align

	copy(buf[headerSize:], code)
	return buf
}
