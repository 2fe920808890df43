// jitcall_amd64.go declares the assembly trampoline that transfers
// control from Go into a mapped, executable byte buffer and back. The
// call signature matches spec.md §6's in-memory entry point exactly:
// `int64_t (*)(void *data_stack)`. Grounded on the jitcall pattern in
// other_examples' tetratelabs/wazero JIT engine (there: a zero-body Go
// func backed by a hand-written .s trampoline that jumps into mapped
// native code and returns its result); sxc's version is simplified to
// the single scalar argument/return pair the language needs, with no
// engine-context struct to thread through.
//
// The declaration is shared, but its body is not: jitcall_linux_amd64.s
// delivers dataStack via RDI (System V) and jitcall_windows_amd64.s via
// RCX (Microsoft x64), matching whichever convention Emitter.Emit used
// for the prolog it mapped.

package jit

// jitcall transfers control to the native code at codeAddr, passing
// dataStack as its single argument, and returns the callee's RAX.
// Implemented per-OS in jitcall_linux_amd64.s / jitcall_windows_amd64.s.
func jitcall(codeAddr, dataStack uintptr) int64
