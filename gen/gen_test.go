package gen

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wippyai/strffi/errors"
)

const testWIT = `
record point { x: s32, y: s32 }

/// Adds two numbers.
add: func(a: s32, b: s32) -> s32;
add-optional: func(a: s32, b: option<s32>) -> s32;
greet: func(name: string);
shift: func(p: point, dx: s32) -> point;
`

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.WIT = "exports.wit"
	cfg.StructuredTransport = true
	return cfg
}

// parseGenerated parses src and returns the exported symbols found in
// //export directives.
func parseGenerated(t *testing.T, src []byte) (*ast.File, []string) {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "gen.go", src, parser.ParseComments)
	require.NoError(t, err, string(src))

	var exports []string
	for _, group := range f.Comments {
		for _, c := range group.List {
			if sym, ok := strings.CutPrefix(c.Text, "//export "); ok {
				exports = append(exports, sym)
			}
		}
	}
	return f, exports
}

func TestGenerate_Cstr(t *testing.T) {
	cfg := testConfig()
	exports, err := Resolve(cfg, testWIT)
	require.NoError(t, err)
	require.Len(t, exports, 4)

	src, err := Generate(cfg, exports)
	require.NoError(t, err)

	f, syms := parseGenerated(t, src)
	assert.Equal(t, "main", f.Name.Name)
	assert.Equal(t, []string{"add", "add_optional", "greet", "shift", "strffi_free"}, syms)

	text := string(src)
	assert.True(t, strings.HasPrefix(text, "// Code generated by strffi-gen. DO NOT EDIT."))
	assert.Contains(t, text, "//go:build cgo\n")
	assert.Contains(t, text, `import "C"`)
	assert.Contains(t, text, "var strffiRegistry = Registry()")
	assert.Contains(t, text, `cstr.MustLookup(strffiRegistry, "add_optional")`)
	assert.Contains(t, text, "func add_optional(argc C.int, argv **C.char) *C.char {")
	assert.Contains(t, text, "// add_optional exports add-optional: func(a: s32, b: option<s32>) -> s32;")
	assert.Contains(t, text, "// Host call: add_optional(a, [b])")
}

func TestGenerate_ExportsWithoutWIT(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Exports = []string{"add", "greet"}
	cfg.Prefix = "lib_"

	exports, err := Resolve(cfg, "")
	require.NoError(t, err)
	src, err := Generate(cfg, exports)
	require.NoError(t, err)

	_, syms := parseGenerated(t, src)
	assert.Equal(t, []string{"add", "greet", "lib_free"}, syms)
}

func TestGenerate_BuildConstraint(t *testing.T) {
	cfg := testConfig()
	cfg.BuildTags = []string{"byond"}
	cfg.GOARCH = []string{"386"}

	exports, err := Resolve(cfg, testWIT)
	require.NoError(t, err)
	src, err := Generate(cfg, exports)
	require.NoError(t, err)
	assert.Contains(t, string(src), "//go:build cgo && byond && 386\n")

	cfg.GOARCH = []string{"arm", "386"}
	assert.Equal(t, "cgo && byond && (386 || arm)", buildConstraint(cfg))
}

func TestGenerate_Wasm(t *testing.T) {
	cfg := testConfig()
	cfg.ABI = ABIWasm
	cfg.Package = "mylib"

	exports, err := Resolve(cfg, testWIT)
	require.NoError(t, err)
	src, err := Generate(cfg, exports)
	require.NoError(t, err)

	f, syms := parseGenerated(t, src)
	assert.Equal(t, "mylib", f.Name.Name)
	assert.Empty(t, syms)

	text := string(src)
	assert.NotContains(t, text, `import "C"`)
	assert.NotContains(t, text, "//go:build")
	assert.Contains(t, text, `const StrffiModule = "strffi"`)
	assert.Contains(t, text, `"add_optional",`)
	assert.Contains(t, text, "func StrffiInstantiate(ctx context.Context, rt wazero.Runtime) (api.Module, error) {")
}

func TestResolve_AnalysisFailsGeneration(t *testing.T) {
	cfg := testConfig()

	_, err := Resolve(cfg, `f: func(a: option<s32>, b: s32);`)
	assert.True(t, errors.Is(err, &errors.Error{Phase: errors.PhaseAnalyze, Kind: errors.KindOrdering}))

	cfg.StructuredTransport = false
	_, err = Resolve(cfg, testWIT)
	assert.True(t, errors.Is(err, &errors.Error{Phase: errors.PhaseAnalyze, Kind: errors.KindTransportDisabled}))

	_, err = Resolve(cfg, `f: func(a: s32`)
	assert.Error(t, err)
}

func TestResolve_SymbolProblems(t *testing.T) {
	cfg := testConfig()

	_, err := Resolve(cfg, `go: func();`)
	assert.Error(t, err, "Go keyword")

	_, err = Resolve(cfg, "a-b: func();\na_b: func();")
	assert.Error(t, err, "shared symbol")

	_, err = Resolve(cfg, `strffi-free: func();`)
	assert.Error(t, err, "free collision")

	cfg.Exports = []string{"bad name"}
	_, err = Resolve(cfg, "")
	assert.Error(t, err)
}

func TestGenerate_Rejects(t *testing.T) {
	cfg := testConfig()
	exports, err := Resolve(cfg, testWIT)
	require.NoError(t, err)

	_, err = Generate(cfg, nil)
	assert.Error(t, err)

	bad := cfg
	bad.ABI = "jni"
	_, err = Generate(bad, exports)
	assert.Error(t, err)

	bad = cfg
	bad.Prefix = ""
	_, err = Generate(bad, exports)
	assert.Error(t, err)

	bad = cfg
	bad.Package = "not a package"
	_, err = Generate(bad, exports)
	assert.Error(t, err)
}

func TestLoadConfigAndRun(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "exports.wit"), []byte(testWIT), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "strffi.toml"), []byte(`
[generate]
package = "main"
wit = "exports.wit"
output = "exports_gen.go"
goarch = ["386"]
structured_transport = true

[runtime]
structured_transport = true
`), 0o644))

	cfg, err := LoadConfig(filepath.Join(dir, "strffi.toml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "exports.wit"), cfg.WIT)
	assert.Equal(t, ABICstr, cfg.ABI)
	assert.Equal(t, []string{"386"}, cfg.GOARCH)

	require.NoError(t, Run(cfg))
	src, err := os.ReadFile(filepath.Join(dir, "exports_gen.go"))
	require.NoError(t, err)
	_, syms := parseGenerated(t, src)
	assert.Len(t, syms, 5)
	assert.Contains(t, string(src), "//go:build cgo && 386\n")
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "strffi.toml")

	require.NoError(t, os.WriteFile(path, []byte("[generate]\nabi = \"cstr\"\n"), 0o644))
	_, err := LoadConfig(path)
	assert.Error(t, err, "neither wit nor exports")

	require.NoError(t, os.WriteFile(path, []byte("[generate\n"), 0o644))
	_, err = LoadConfig(path)
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.WIT = filepath.Join(dir, "missing.wit")
	assert.Error(t, Run(cfg))
}
