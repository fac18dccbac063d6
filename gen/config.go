package gen

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/wippyai/strffi/transcoder"
)

// ABI selects the shape of the generated exports.
type ABI string

const (
	// ABICstr emits cgo //export stubs for a c-shared library.
	ABICstr ABI = "cstr"
	// ABIWasm emits a wazero host module constructor.
	ABIWasm ABI = "wasm"
)

// Config is the [generate] table of strffi.toml.
type Config struct {
	Package  string `toml:"package"`
	Output   string `toml:"output"`
	WIT      string `toml:"wit"`
	ABI      ABI    `toml:"abi"`
	Prefix   string `toml:"prefix"`
	Registry string `toml:"registry"`
	// Module is the wasm import module name.
	Module string `toml:"module"`
	// Exports names exported functions when no WIT file declares them.
	Exports   []string `toml:"exports"`
	BuildTags []string `toml:"build_tags"`
	// GOARCH restricts the generated file to these architectures, e.g.
	// ["386"] for hosts that only load 32-bit libraries.
	GOARCH              []string `toml:"goarch"`
	StructuredTransport bool     `toml:"structured_transport"`
}

func DefaultConfig() Config {
	return Config{
		Package:             "main",
		Output:              "strffi_exports.go",
		ABI:                 ABICstr,
		Prefix:              "strffi_",
		Registry:            "Registry",
		Module:              "strffi",
		StructuredTransport: transcoder.StructuredTransport,
	}
}

// LoadConfig reads the [generate] table of path over the defaults. Relative
// output and wit paths are resolved against the file's directory.
func LoadConfig(path string) (Config, error) {
	var raw struct {
		Generate toml.Primitive `toml:"generate"`
	}
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load generator config: %w", err)
	}

	cfg := DefaultConfig()
	if meta.IsDefined("generate") {
		if err := meta.PrimitiveDecode(raw.Generate, &cfg); err != nil {
			return Config{}, fmt.Errorf("load generator config: %w", err)
		}
	}

	dir := filepath.Dir(path)
	if cfg.WIT != "" && !filepath.IsAbs(cfg.WIT) {
		cfg.WIT = filepath.Join(dir, cfg.WIT)
	}
	if cfg.Output != "" && !filepath.IsAbs(cfg.Output) && cfg.Output != "-" {
		cfg.Output = filepath.Join(dir, cfg.Output)
	}
	return cfg, cfg.Validate()
}

// Validate checks the settings that do not depend on the declarations.
func (c Config) Validate() error {
	switch c.ABI {
	case ABICstr, ABIWasm:
	default:
		return fmt.Errorf("abi: unknown ABI %q (expected %q or %q)", c.ABI, ABICstr, ABIWasm)
	}
	if !isGoIdent(c.Package) {
		return fmt.Errorf("package: %q is not a Go identifier", c.Package)
	}
	if !isGoIdent(c.Registry) {
		return fmt.Errorf("registry: %q is not a Go identifier", c.Registry)
	}
	if c.ABI == ABICstr && (c.Prefix == "" || !isGoIdent(c.Prefix+"free")) {
		// a bare "free" would shadow the C library's
		return fmt.Errorf("prefix: %q does not form a valid free symbol", c.Prefix)
	}
	if c.ABI == ABIWasm && strings.TrimSpace(c.Module) == "" {
		return fmt.Errorf("module: required for the wasm ABI")
	}
	if c.StructuredTransport && !transcoder.StructuredTransport {
		return fmt.Errorf("structured_transport: disabled in this build")
	}
	if c.WIT == "" && len(c.Exports) == 0 {
		return fmt.Errorf("either wit or exports must be set")
	}
	return nil
}
