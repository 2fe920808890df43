//go:build linux

// memexec_linux.go implements the scoped executable-memory resource
// spec.md §5 requires: one syscall-backed RWX-capable page obtained via
// mmap, made executable with mprotect, and released with munmap when the
// wrapping Program is closed. Grounded on golang.org/x/sys/unix, the
// same package other_examples' runtime-facing tools in the pack use for
// raw syscalls instead of hand-rolling them.

package jit

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

type executableRegion struct {
	mem []byte
}

// mapExecutable copies code into a fresh anonymous mapping and switches
// it from writable to executable, never leaving it both at once.
func mapExecutable(code []byte) (*executableRegion, error) {
	mem, err := unix.Mmap(-1, 0, len(code), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, err
	}
	copy(mem, code)
	if err := unix.Mprotect(mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		_ = unix.Munmap(mem)
		return nil, err
	}
	return &executableRegion{mem: mem}, nil
}

func (r *executableRegion) addr() uintptr {
	return uintptr(unsafe.Pointer(&r.mem[0]))
}

func (r *executableRegion) release() error {
	return unix.Munmap(r.mem)
}
