//go:build windows

// memexec_windows.go is memexec_linux.go's Microsoft x64 counterpart:
// the same scoped executable-memory resource built from
// VirtualAlloc/VirtualProtect/VirtualFree instead of mmap/mprotect/
// munmap, via golang.org/x/sys/windows.

package jit

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

type executableRegion struct {
	addr0 uintptr
	size  uintptr
}

func mapExecutable(code []byte) (*executableRegion, error) {
	size := uintptr(len(code))
	addr, err := windows.VirtualAlloc(0, size, windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, err
	}
	dst := unsafe.Slice((*byte)(unsafe.Pointer(addr)), len(code))
	copy(dst, code)

	var oldProtect uint32
	if err := windows.VirtualProtect(addr, size, windows.PAGE_EXECUTE_READ, &oldProtect); err != nil {
		_ = windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
		return nil, err
	}
	return &executableRegion{addr0: addr, size: size}, nil
}

func (r *executableRegion) addr() uintptr { return r.addr0 }

func (r *executableRegion) release() error {
	return windows.VirtualFree(r.addr0, 0, windows.MEM_RELEASE)
}
