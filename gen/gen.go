// Package gen emits the Go source that exposes a registry through one of the
// host ABIs. For the cstr ABI that is one cgo //export stub per function plus
// a <prefix>free export; for the wasm ABI a constructor for the wazero host
// module.
//
// Declarations come from a WIT file, which is analyzed so that invalid
// signatures (a required parameter after an optional one, structured types
// with the transport disabled) fail generation, or from a bare list of names.
package gen

import (
	"bytes"
	"fmt"
	"go/format"
	"go/token"
	"os"
	"sort"
	"strings"
	"text/template"

	"github.com/wippyai/strffi/errors"
	"github.com/wippyai/strffi/signature"
)

// Export is one function to expose.
type Export struct {
	// Signature is nil for exports named without a declaration.
	Signature *signature.Signature
	Name      string
	Symbol    string
}

// Decl renders the WIT declaration, or "" when there is none.
func (e Export) Decl() string {
	if e.Signature == nil {
		return ""
	}
	return signature.String(*e.Signature)
}

// Usage renders the host-facing call shape, or "" when undeclared.
func (e Export) Usage() string {
	if e.Signature == nil {
		return ""
	}
	return signature.Usage(*e.Signature)
}

// Var is the Go variable holding the resolved export.
func (e Export) Var() string {
	return "strffiExport_" + e.Symbol
}

// Resolve builds the export list from witText, or from cfg.Exports when
// witText is empty.
func Resolve(cfg Config, witText string) ([]Export, error) {
	var exports []Export

	if strings.TrimSpace(witText) != "" {
		sigs, err := signature.ParseWIT(witText)
		if err != nil {
			return nil, err
		}
		opts := signature.Options{StructuredTransport: cfg.StructuredTransport}
		for i := range sigs {
			plan, err := signature.Analyze(sigs[i], opts)
			if err != nil {
				return nil, err
			}
			exports = append(exports, Export{Signature: &sigs[i], Name: sigs[i].Name, Symbol: plan.Symbol()})
		}
	} else {
		for _, name := range cfg.Exports {
			sig := signature.Signature{Name: name}
			if _, err := signature.Analyze(sig, signature.Options{}); err != nil {
				return nil, err
			}
			exports = append(exports, Export{Name: name, Symbol: sig.Symbol()})
		}
	}

	seen := make(map[string]string, len(exports))
	for _, e := range exports {
		if token.IsKeyword(e.Symbol) {
			return nil, errors.New(errors.PhaseGenerate, errors.KindInvalidInput).
				Detail("export %s: symbol %q is a Go keyword", e.Name, e.Symbol).
				Build()
		}
		if other, dup := seen[e.Symbol]; dup {
			return nil, errors.New(errors.PhaseGenerate, errors.KindInvalidInput).
				Detail("exports %s and %s share symbol %q", other, e.Name, e.Symbol).
				Build()
		}
		if e.Symbol == cfg.Prefix+"free" && cfg.ABI == ABICstr {
			return nil, errors.New(errors.PhaseGenerate, errors.KindInvalidInput).
				Detail("export %s collides with the free function", e.Name).
				Build()
		}
		seen[e.Symbol] = e.Name
	}
	return exports, nil
}

type templateData struct {
	Config
	Exports    []Export
	Constraint string
}

// Generate renders and formats the source for exports.
func Generate(cfg Config, exports []Export) ([]byte, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(errors.PhaseGenerate, errors.KindInvalidInput, err, "invalid config")
	}
	if len(exports) == 0 {
		return nil, errors.InvalidInput(errors.PhaseGenerate, "nothing to export")
	}

	tmpl := cstrTemplate
	if cfg.ABI == ABIWasm {
		tmpl = wasmTemplate
	}

	var buf bytes.Buffer
	data := templateData{Config: cfg, Exports: exports, Constraint: buildConstraint(cfg)}
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, errors.Wrap(errors.PhaseGenerate, errors.KindInternalFault, err, "render template")
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, errors.Wrap(errors.PhaseGenerate, errors.KindSyntax, err, "format generated source")
	}
	return src, nil
}

// Run loads the WIT file named by cfg, generates the source and writes it to
// cfg.Output ("-" for stdout).
func Run(cfg Config) error {
	var witText string
	if cfg.WIT != "" {
		data, err := os.ReadFile(cfg.WIT)
		if err != nil {
			return errors.Wrap(errors.PhaseGenerate, errors.KindNotFound, err, "read "+cfg.WIT)
		}
		witText = string(data)
	}

	exports, err := Resolve(cfg, witText)
	if err != nil {
		return err
	}
	src, err := Generate(cfg, exports)
	if err != nil {
		return err
	}

	if cfg.Output == "-" {
		_, err = os.Stdout.Write(src)
		return err
	}
	if err := os.WriteFile(cfg.Output, src, 0o644); err != nil {
		return errors.Wrap(errors.PhaseGenerate, errors.KindInvalidInput, err, "write "+cfg.Output)
	}
	return nil
}

// buildConstraint combines the ABI requirement with build_tags and goarch.
func buildConstraint(cfg Config) string {
	var terms []string
	if cfg.ABI == ABICstr {
		terms = append(terms, "cgo")
	}
	terms = append(terms, cfg.BuildTags...)
	if len(cfg.GOARCH) > 0 {
		arches := append([]string(nil), cfg.GOARCH...)
		sort.Strings(arches)
		if len(arches) == 1 {
			terms = append(terms, arches[0])
		} else {
			terms = append(terms, "("+strings.Join(arches, " || ")+")")
		}
	}
	return strings.Join(terms, " && ")
}

func isGoIdent(s string) bool {
	return token.IsIdentifier(s)
}

var funcs = template.FuncMap{
	"quote": func(s string) string { return fmt.Sprintf("%q", s) },
}

var cstrTemplate = template.Must(template.New("cstr").Funcs(funcs).Parse(`// Code generated by strffi-gen. DO NOT EDIT.

{{if .Constraint}}//go:build {{.Constraint}}
{{end}}
package {{.Package}}

/*
#include <stdlib.h>
*/
import "C"

import (
	"unsafe"

	"github.com/wippyai/strffi/abi/cstr"
)

var strffiRegistry = {{.Registry}}()

var (
{{- range .Exports}}
	{{.Var}} = cstr.MustLookup(strffiRegistry, {{quote .Symbol}})
{{- end}}
)
{{range .Exports}}
{{- if .Decl}}
// {{.Symbol}} exports {{.Decl}}
// Host call: {{.Usage}}
//
{{- end}}
//export {{.Symbol}}
func {{.Symbol}}(argc C.int, argv **C.char) *C.char {
	return (*C.char)(cstr.Call({{.Var}}, int(argc), unsafe.Pointer(argv)))
}
{{end}}
// {{.Prefix}}free releases a string returned by any export.
//
//export {{.Prefix}}free
func {{.Prefix}}free(p *C.char) {
	cstr.Free(unsafe.Pointer(p))
}
`))

var wasmTemplate = template.Must(template.New("wasm").Funcs(funcs).Parse(`// Code generated by strffi-gen. DO NOT EDIT.

{{if .Constraint}}//go:build {{.Constraint}}
{{end}}
package {{.Package}}

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	strffiwasm "github.com/wippyai/strffi/abi/wasm"
)

// StrffiModule is the import module guests link against.
const StrffiModule = {{quote .Module}}

// StrffiImports lists the functions of StrffiModule:
{{- range .Exports}}
{{- if .Decl}}
//
//	{{.Decl}}
{{- end}}
{{- end}}
var StrffiImports = []string{
{{- range .Exports}}
	{{quote .Symbol}},
{{- end}}
}

// StrffiInstantiate defines StrffiModule in rt.
func StrffiInstantiate(ctx context.Context, rt wazero.Runtime) (api.Module, error) {
	reg := {{.Registry}}()
	for _, symbol := range StrffiImports {
		if _, ok := reg.Lookup(symbol); !ok {
			panic("strffi: export " + symbol + " is not registered")
		}
	}
	return strffiwasm.NewBridge(reg, strffiwasm.Config{ModuleName: StrffiModule}).Instantiate(ctx, rt)
}
`))
