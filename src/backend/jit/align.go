package jit

import "unsafe"

// alignedBase returns the address of the first 16-byte-aligned byte
// within buf, per spec.md §5's data-stack alignment requirement. buf
// must have at least 16 bytes of slack beyond the size actually needed.
func alignedBase(buf []byte) uintptr {
	addr := uintptr(unsafe.Pointer(&buf[0]))
	if rem := addr % 16; rem != 0 {
		addr += 16 - rem
	}
	return addr
}
