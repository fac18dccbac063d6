package wasm

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"github.com/wippyai/strffi/errors"
)

const (
	sectionType     = 0x01
	sectionImport   = 0x02
	sectionFunction = 0x03
	sectionMemory   = 0x05
	sectionGlobal   = 0x06
	sectionExport   = 0x07
	sectionCode     = 0x0a

	valI32 = 0x7f

	opBlock      = 0x02
	opEnd        = 0x0b
	opBrIf       = 0x0d
	opCall       = 0x10
	opDrop       = 0x1a
	opLocalGet   = 0x20
	opLocalTee   = 0x22
	opGlobalGet  = 0x23
	opGlobalSet  = 0x24
	opMemorySize = 0x3f
	opMemoryGrow = 0x40
	opI32Const   = 0x41
	opI32LeU     = 0x4d
	opI32Add     = 0x6a
	opI32Sub     = 0x6b
	opI32And     = 0x71
	opI32Shl     = 0x74
	opI32ShrU    = 0x76

	// heap starts past the first kilobyte so that a zero pointer never
	// names an allocation
	heapBase = 1024
)

// GuestBuilder builds a minimal guest module. For every added symbol it
// imports the host function and re-exports it under the same name; it also
// exports "memory" and a bump-allocating cabi_realloc that grows memory on
// demand and never frees.
type GuestBuilder struct {
	moduleName string
	symbols    []string
	pages      uint32
}

// NewGuestBuilder creates a builder importing from moduleName.
func NewGuestBuilder(moduleName string) *GuestBuilder {
	return &GuestBuilder{moduleName: moduleName, pages: 1}
}

// Add adds a host function to import and re-export.
func (b *GuestBuilder) Add(symbols ...string) *GuestBuilder {
	b.symbols = append(b.symbols, symbols...)
	return b
}

// SetPages sets the initial memory size in 64KiB pages.
func (b *GuestBuilder) SetPages(pages uint32) *GuestBuilder {
	b.pages = pages
	return b
}

// Build generates the module bytes.
func (b *GuestBuilder) Build() []byte {
	n := uint32(len(b.symbols))

	wasm := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	wasm = appendSection(wasm, sectionType, b.typeSection())
	if n > 0 {
		wasm = appendSection(wasm, sectionImport, b.importSection())
	}
	wasm = appendSection(wasm, sectionFunction, b.funcSection())
	wasm = appendSection(wasm, sectionMemory, b.memorySection())
	wasm = appendSection(wasm, sectionGlobal, globalSection())
	wasm = appendSection(wasm, sectionExport, b.exportSection())
	wasm = appendSection(wasm, sectionCode, b.codeSection())
	return wasm
}

// type 0: (i32 i32 i32) -> ()        call shape
// type 1: (i32 i32 i32 i32) -> i32   cabi_realloc
func (b *GuestBuilder) typeSection() []byte {
	s := appendULEB128(nil, 2)
	s = append(s, 0x60, 3, valI32, valI32, valI32, 0)
	s = append(s, 0x60, 4, valI32, valI32, valI32, valI32, 1, valI32)
	return s
}

func (b *GuestBuilder) importSection() []byte {
	s := appendULEB128(nil, uint32(len(b.symbols)))
	for _, sym := range b.symbols {
		s = appendName(s, b.moduleName)
		s = appendName(s, sym)
		s = append(s, 0x00, 0x00) // func, type 0
	}
	return s
}

// Defined functions: one forwarder per import, then cabi_realloc.
func (b *GuestBuilder) funcSection() []byte {
	s := appendULEB128(nil, uint32(len(b.symbols))+1)
	for range b.symbols {
		s = append(s, 0x00)
	}
	return append(s, 0x01)
}

func (b *GuestBuilder) memorySection() []byte {
	s := appendULEB128(nil, 1)
	s = append(s, 0x00)
	return appendULEB128(s, b.pages)
}

// global 0: mutable i32 heap pointer
func globalSection() []byte {
	s := appendULEB128(nil, 1)
	s = append(s, valI32, 0x01, opI32Const)
	s = appendSLEB128(s, heapBase)
	return append(s, opEnd)
}

func (b *GuestBuilder) exportSection() []byte {
	n := uint32(len(b.symbols))
	s := appendULEB128(nil, n+2)
	for i, sym := range b.symbols {
		s = appendName(s, sym)
		s = append(s, 0x00)
		s = appendULEB128(s, n+uint32(i))
	}
	s = appendName(s, CabiRealloc)
	s = append(s, 0x00)
	s = appendULEB128(s, 2*n)
	s = appendName(s, "memory")
	return append(s, 0x02, 0x00)
}

func (b *GuestBuilder) codeSection() []byte {
	s := appendULEB128(nil, uint32(len(b.symbols))+1)
	for i := range b.symbols {
		body := []byte{0x00} // no locals
		body = append(body, opLocalGet, 0, opLocalGet, 1, opLocalGet, 2, opCall)
		body = appendULEB128(body, uint32(i))
		body = append(body, opEnd)
		s = appendULEB128(s, uint32(len(body)))
		s = append(s, body...)
	}
	body := reallocBody()
	s = appendULEB128(s, uint32(len(body)))
	return append(s, body...)
}

// reallocBody implements
//
//	ptr = (heap + align - 1) & -align
//	heap = ptr + size
//	if heap > memory.size << 16 { memory.grow(((heap - (memory.size << 16)) >> 16) + 1) }
//	return ptr
//
// params: 0 old_ptr, 1 old_size, 2 align, 3 new_size; local 4 ptr
func reallocBody() []byte {
	body := []byte{0x01, 0x01, valI32}
	body = append(body,
		opGlobalGet, 0,
		opLocalGet, 2,
		opI32Add,
		opI32Const, 1,
		opI32Sub,
		opI32Const, 0,
		opLocalGet, 2,
		opI32Sub,
		opI32And,
		opLocalTee, 4,
		opLocalGet, 3,
		opI32Add,
		opGlobalSet, 0,

		opBlock, 0x40,
		opGlobalGet, 0,
		opMemorySize, 0x00,
		opI32Const, 16,
		opI32Shl,
		opI32LeU,
		opBrIf, 0,
		opGlobalGet, 0,
		opMemorySize, 0x00,
		opI32Const, 16,
		opI32Shl,
		opI32Sub,
		opI32Const, 16,
		opI32ShrU,
		opI32Const, 1,
		opI32Add,
		opMemoryGrow, 0x00,
		opDrop,
		opEnd,

		opLocalGet, 4,
		opEnd,
	)
	return body
}

// Guest calls host exports through a module built by GuestBuilder, or any
// module with the same exports.
type Guest struct {
	mod api.Module
}

// NewGuest checks that mod exports memory and cabi_realloc.
func NewGuest(mod api.Module) (*Guest, error) {
	if mod.Memory() == nil {
		return nil, errors.NotFound(errors.PhaseABI, "export", "memory")
	}
	if mod.ExportedFunction(CabiRealloc) == nil {
		return nil, errors.NotFound(errors.PhaseABI, "export", CabiRealloc)
	}
	return &Guest{mod: mod}, nil
}

// Call copies args into guest memory, calls symbol and reads back the result.
func (g *Guest) Call(ctx context.Context, symbol string, args []string) (string, error) {
	fn := g.mod.ExportedFunction(symbol)
	if fn == nil {
		return "", errors.NotFound(errors.PhaseABI, "export", symbol)
	}
	mem := g.mod.Memory()

	argv, err := allocate(ctx, g.mod, uint32(len(args))*pairSize, 4)
	if err != nil {
		return "", err
	}
	for i, arg := range args {
		p, err := allocate(ctx, g.mod, uint32(len(arg)), 1)
		if err != nil {
			return "", err
		}
		slot := argv + uint32(i)*pairSize
		if !mem.WriteString(p, arg) || !mem.WriteUint32Le(slot, p) || !mem.WriteUint32Le(slot+4, uint32(len(arg))) {
			return "", errors.InvalidInput(errors.PhaseABI, "argument outside memory")
		}
	}
	ret, err := allocate(ctx, g.mod, pairSize, 4)
	if err != nil {
		return "", err
	}

	if _, err := fn.Call(ctx, uint64(argv), uint64(len(args)), uint64(ret)); err != nil {
		return "", errors.Wrap(errors.PhaseABI, errors.KindInternalFault, err, "call "+symbol)
	}

	p, ok1 := mem.ReadUint32Le(ret)
	n, ok2 := mem.ReadUint32Le(ret + 4)
	if !ok1 || !ok2 {
		return "", errors.InvalidInput(errors.PhaseABI, "return pointer outside memory")
	}
	if n == 0 {
		return "", nil
	}
	data, ok := mem.Read(p, n)
	if !ok {
		return "", errors.InvalidInput(errors.PhaseABI, "result outside memory")
	}
	return string(data), nil
}
