// Package wasm exposes a registry to WebAssembly guests through wazero.
//
// Every export becomes one function of a host import module (default name
// "strffi"):
//
//	(import "strffi" "add" (func (param $argv i32) (param $argc i32) (param $ret i32)))
//
// argv points to argc little-endian {ptr u32, len u32} pairs in the guest's
// memory, each describing one UTF-8 argument. The host dispatches the call,
// allocates the result text with the guest's exported cabi_realloc and writes
// its {ptr, len} pair to ret. The guest owns the result. An empty result is
// written as {0, 0} without allocating.
//
// Failures use the same wire diagnostics as every other ABI; only a broken
// calling convention (pointers outside memory, a missing allocator, argc over
// Config.MaxArgs) traps the guest.
//
// GuestBuilder emits a minimal guest module that re-exports the imports and
// provides a bump allocator, and Guest drives such a module from Go. Both
// exist for tests and for cmd/run.
package wasm
