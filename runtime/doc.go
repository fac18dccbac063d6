// Package runtime is the export registry of a library built on strffi.
//
// # Quick Start
//
//	reg := runtime.NewRegistry(runtime.DefaultConfig())
//
//	// Bind a Go function; the signature is derived by reflection
//	reg.Bind("add", func(a, b int32) int32 { return a + b }, "a", "b")
//
//	// Or declare the signature in WIT and supply a handler
//	reg.RegisterWIT(`greet: func(name: string, times: option<u8>) -> string;`,
//	    map[string]dispatch.Handler{"greet": greet})
//
//	res, err := reg.Call(ctx, "add", []string{"2", "3"})
//	fmt.Println(res.Wire()) // "5"
//
// # Libraries
//
// A struct implementing Library registers every exported method:
//
//	type Math struct{}
//
//	func (Math) Prefix() string          { return "" }
//	func (Math) Add(a, b int32) int32    { return a + b }
//	func (Math) AddOptional(a int32, b *int32) int32 { ... }
//
//	reg.RegisterLibrary(Math{}) // exports add, add-optional
//
// Export names are WIT kebab-case; the host-facing symbol replaces dashes
// with underscores (add-optional -> add_optional). Lookup accepts either.
//
// # Configuration
//
// Config is usually read from the [runtime] table of strffi.toml:
//
//	[runtime]
//	structured_transport = true
//
//	[runtime.log]
//	level = "debug"
//	file  = "strffi.log"
//
// NewLogger turns the log table into a zap logger writing JSON to a rotated
// file.
//
// # Thread Safety
//
// Register everything before the first call. After that the registry is
// read-only and Call may be used from any number of goroutines.
package runtime
