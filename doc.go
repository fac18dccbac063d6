// Package strffi adapts typed Go functions to hosts that can only call
// exported symbols with a list of text arguments and read back one text result.
//
// Such hosts (a game engine's external-call mechanism, for instance) pass every
// argument as a null-terminated string and expect a single string in return.
// strffi derives, from a function's declared signature, the translation between
// those strings and typed values and guarantees that no failure ever unwinds
// across the exported entry point.
//
// # Architecture Overview
//
//	strffi/              Root package with the codec interfaces
//	├── signature/       Signature model, WIT parsing, analysis into a Plan
//	├── transcoder/      Primitive and structured (JSON) codecs, decoder, encoder
//	├── dispatch/        Per-call state machine with fault recovery
//	├── runtime/         Export registry, configuration and logging
//	├── abi/cstr/        C string calling convention (cgo, c-shared)
//	├── abi/wasm/        WebAssembly host module (wazero)
//	├── gen/             Export stub generator
//	├── errors/          Structured errors and wire diagnostics
//	└── cmd/             strffi-gen and the interactive runner
//
// # Quick Start
//
// Declare the exports in WIT and bind handlers:
//
//	sigs, err := signature.ParseWIT(`
//	    add: func(a: s32, b: s32) -> s32;
//	    greet: func(name: string, times: option<u32>) -> string;
//	`)
//
//	reg := runtime.NewRegistry(runtime.DefaultConfig())
//	reg.Register(sigs[0], func(ctx context.Context, args dispatch.Args) (any, error) {
//	    return args.Int32(0) + args.Int32(1), nil
//	})
//
//	reg.Call(ctx, "add", []string{"2", "2"}) // "4"
//	reg.Call(ctx, "add", []string{"2"})      // "@@ERR@@|FFI|WRONG_ARG_COUNT|expected 2 arguments, got 1"
//
// Or bind a Go function directly and let reflection derive the signature:
//
//	reg.Bind("greet", func(name string, times *uint32) string { ... })
//
// # Decode Strategies
//
// Primitive WIT types (bool, integers, floats, char, string) are parsed from
// and formatted to plain text. Every other type (record, list, tuple, option,
// result, variant, enum, flags) travels as a JSON document. Structured
// transport is compiled in by default; the strffi_nojson build tag removes it
// and makes signatures that need it fail analysis.
//
// # Optional Parameters
//
// Trailing parameters may be optional. A call may omit them; the handler then
// sees them as absent, never as a decoded zero value. A required parameter
// after an optional one is rejected when the signature is analyzed.
//
// # Failures
//
// Every call yields exactly one string. Failures are rendered as wire
// diagnostics (see package errors), including panics raised by the handler.
package strffi
