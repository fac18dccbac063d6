// Package cstr adapts registry exports to the C string calling convention:
//
//	char *name(int argc, char **argv);
//
// Arguments are NUL-terminated UTF-8 strings owned by the host for the
// duration of the call. The result is allocated with malloc and owned by the
// host afterwards; it can be released with Free (exported by generated code
// as <prefix>free). Results are cut at their first NUL byte and an empty
// result is an empty C string, never a null pointer.
//
// Generated //export stubs convert their cgo types to unsafe.Pointer and call
// Call; see package gen.
package cstr

/*
#include <stdlib.h>
#include <string.h>
*/
import "C"

import (
	"context"
	"strings"
	"unsafe"

	"github.com/wippyai/strffi/errors"
	"github.com/wippyai/strffi/runtime"
)

// MaxArgs bounds argc; larger counts are treated as a broken call.
const MaxArgs = 1 << 16

// MustLookup resolves an export at library load time.
func MustLookup(reg *runtime.Registry, symbol string) *runtime.Export {
	e, ok := reg.Lookup(symbol)
	if !ok {
		panic(errors.NotFound(errors.PhaseABI, "export", symbol))
	}
	return e
}

// Call dispatches one host call. argv is a char** with argc entries.
func Call(e *runtime.Export, argc int, argv unsafe.Pointer) unsafe.Pointer {
	return Result(e.Call(context.Background(), Args(argc, argv)).Wire())
}

// Args copies argv into Go strings. A negative or oversized argc yields an
// argument count the dispatcher rejects, without touching argv.
func Args(argc int, argv unsafe.Pointer) []string {
	if argc <= 0 || argv == nil {
		return nil
	}
	if argc > MaxArgs {
		return make([]string, MaxArgs+1)
	}
	ptrs := unsafe.Slice((**C.char)(argv), argc)
	args := make([]string, argc)
	for i, p := range ptrs {
		if p != nil {
			args[i] = C.GoString(p)
		}
	}
	return args
}

// Result allocates s as a C string, cut at its first NUL byte.
func Result(s string) unsafe.Pointer {
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return unsafe.Pointer(C.CString(s))
}

// Free releases a string returned by Call or Result. Nil is ignored.
func Free(p unsafe.Pointer) {
	if p != nil {
		C.free(p)
	}
}

// GoString copies a C string returned by Call.
func GoString(p unsafe.Pointer) string {
	if p == nil {
		return ""
	}
	return C.GoString((*C.char)(p))
}

// NewArgv builds a malloc'd char** for args, for driving Call from Go. The
// returned function frees it.
func NewArgv(args []string) (unsafe.Pointer, func()) {
	if len(args) == 0 {
		return nil, func() {}
	}
	size := C.size_t(len(args)) * C.size_t(unsafe.Sizeof((*C.char)(nil)))
	argv := C.malloc(size)
	C.memset(argv, 0, size)
	ptrs := unsafe.Slice((**C.char)(argv), len(args))
	for i, a := range args {
		ptrs[i] = C.CString(a)
	}
	return argv, func() {
		for _, p := range ptrs {
			C.free(unsafe.Pointer(p))
		}
		C.free(argv)
	}
}
