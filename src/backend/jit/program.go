// program.go is the "in-memory program" wrapper spec.md §5 describes: a
// scoped resource that owns the mapped executable region and releases it
// via the platform's unmap/VirtualFree on the way out, whether or not
// invocation succeeded. Grounded on the teacher's util.Writer buffer-
// then-flush-then-release shape, adapted from buffered text output to a
// mapped memory region with a single Close point.

package jit

import (
	"fmt"
	"runtime"

	"sxc/src/backend/amd64"
	"sxc/src/ir"
	"sxc/src/util"
)

// DataStackSize is the minimum data stack size spec.md §5 requires: 8
// MiB, aligned to 16 bytes.
const DataStackSize = 8 << 20

// Program is a compiled unit mapped into executable memory, ready to be
// invoked repeatedly via Run. Close releases the mapping; a Program must
// not be used afterward.
type Program struct {
	region *executableRegion
	entry  uintptr
	stats  amd64.Stats
}

// Stats returns the compiler statistics gathered while compiling p, for
// --verbose reporting (SPEC_FULL.md §4).
func (p *Program) Stats() amd64.Stats { return p.stats }

// Compile emits u's native code in in-memory mode and maps it executable,
// honoring opt.Alignment and opt.TargetOS. Since invocation happens
// in-process via jitcall's host-specific assembly trampoline
// (jitcall_linux_amd64.s / jitcall_windows_amd64.s), opt.TargetOS must
// agree with the host the compiler is actually running on — it exists so
// callers that also emit ELF output can share one Options value, not to
// cross-target the JIT path.
func Compile(u *ir.Unit, opt util.Options) (*Program, error) {
	host := util.Linux
	if runtime.GOOS == "windows" {
		host = util.Windows
	}
	if opt.TargetOS != util.UnknownOS && opt.TargetOS != host {
		return nil, fmt.Errorf("jit: cannot run in-memory for target OS %d on host %s", opt.TargetOS, runtime.GOOS)
	}

	em := amd64.NewEmitter(u)
	if host == util.Windows {
		em.UseWindowsABI()
	}
	if opt.Alignment != 0 {
		em.SetAlignment(opt.Alignment)
	}
	code, entryOffset, err := em.Emit(amd64.ModeInMemory)
	if err != nil {
		return nil, fmt.Errorf("jit: emit: %w", err)
	}
	region, err := mapExecutable(code)
	if err != nil {
		return nil, fmt.Errorf("jit: map executable region: %w", err)
	}
	return &Program{region: region, entry: region.addr() + uintptr(entryOffset), stats: em.Stats()}, nil
}

// Run allocates a fresh 8 MiB, 16-byte-aligned data stack and invokes the
// program's entry point against it, returning the callee's return slot
// value (spec.md §6's `int64_t (*)(void *data_stack)`).
func (p *Program) Run() int64 {
	stack := make([]byte, DataStackSize+16)
	base := alignedBase(stack)
	result := jitcall(p.entry, base)
	runtime.KeepAlive(stack)
	return result
}

// Close releases the executable mapping. It is a fatal resource leak to
// skip calling Close once a Program is no longer needed (spec.md §5).
func (p *Program) Close() error {
	return p.region.release()
}
