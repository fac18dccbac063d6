package signature

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/wippyai/strffi/errors"
	"github.com/wippyai/strffi/transcoder"
	"go.bytecodealliance.org/wit"
)

// Signature is the declared shape of one exported function.
type Signature struct {
	// Result is nil for a function that returns nothing.
	Result wit.Type
	// ResultGoType binds the result to a Go type; nil means canonical values.
	ResultGoType reflect.Type
	Name         string
	Doc          string
	Params       []Param
	// Fallible functions may report their own failure instead of a value.
	Fallible bool
}

// Param is one positional parameter. Position is its index in Params.
type Param struct {
	Type wit.Type
	// GoType binds decoded values to a Go type; nil means canonical values.
	GoType   reflect.Type
	Name     string
	Optional bool
}

// Arity is the accepted argument count range.
type Arity struct {
	Min int
	Max int
}

// Accepts reports whether n arguments are within bounds.
func (a Arity) Accepts(n int) bool {
	return n >= a.Min && n <= a.Max
}

// Plan is an analyzed signature: arity bounds plus one compiled type per
// parameter and for the result. It is immutable and shared by all calls.
type Plan struct {
	Result    *transcoder.CompiledType
	Signature Signature
	Params    []*transcoder.CompiledType
	Arity     Arity
}

// Symbol returns the exported symbol name of the plan's function.
func (p *Plan) Symbol() string {
	return p.Signature.Symbol()
}

// Options configures analysis.
type Options struct {
	// Compiler compiles parameter types; nil uses the shared compiler.
	Compiler *transcoder.Compiler
	// StructuredTransport allows structured parameter and result types. It
	// cannot enable what the build disabled.
	StructuredTransport bool
}

// DefaultOptions follows the build configuration.
func DefaultOptions() Options {
	return Options{StructuredTransport: transcoder.StructuredTransport}
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Symbol maps a WIT name to a C identifier: dashes become underscores.
func (s Signature) Symbol() string {
	return strings.ReplaceAll(s.Name, "-", "_")
}

// Analyze validates sig and compiles it into a Plan. It never reorders
// parameters: a required parameter after an optional one is an error.
func Analyze(sig Signature, opts Options) (*Plan, error) {
	compiler := opts.Compiler
	if compiler == nil {
		compiler = defaultCompiler
	}

	if err := validateNames(sig); err != nil {
		return nil, err
	}

	arity := Arity{Max: len(sig.Params)}
	seenOptional := false
	for i, p := range sig.Params {
		if p.Optional {
			seenOptional = true
			continue
		}
		if seenOptional {
			return nil, errors.Ordering(sig.Name, i, p.Name)
		}
		arity.Min++
	}

	structured := opts.StructuredTransport && transcoder.StructuredTransport

	plan := &Plan{
		Signature: sig,
		Arity:     arity,
		Params:    make([]*transcoder.CompiledType, len(sig.Params)),
	}

	for i, p := range sig.Params {
		if p.Type == nil {
			return nil, errors.New(errors.PhaseAnalyze, errors.KindUnsupported).
				At(i, p.Name).
				Detail("%s: parameter has no type", sig.Name).
				Build()
		}
		ct, err := compiler.Compile(p.Type, p.GoType)
		if err != nil {
			return nil, errors.New(errors.PhaseAnalyze, kindOf(err)).
				At(i, p.Name).
				WitType(transcoder.TypeName(p.Type)).
				Detail("%s: cannot compile parameter type", sig.Name).
				Cause(err).
				Build()
		}
		if ct.Strategy() == transcoder.StrategyStructured && !structured {
			return nil, errors.TransportDisabled(sig.Name, i, p.Name, ct.Name)
		}
		plan.Params[i] = ct
	}

	if sig.Result != nil {
		ct, err := compiler.Compile(sig.Result, sig.ResultGoType)
		if err != nil {
			return nil, errors.New(errors.PhaseAnalyze, kindOf(err)).
				WitType(transcoder.TypeName(sig.Result)).
				Detail("%s: cannot compile result type", sig.Name).
				Cause(err).
				Build()
		}
		if ct.Strategy() == transcoder.StrategyStructured && !structured {
			return nil, errors.TransportDisabled(sig.Name, -1, "", ct.Name)
		}
		plan.Result = ct
	}

	return plan, nil
}

var defaultCompiler = transcoder.NewCompiler()

func validateNames(sig Signature) error {
	if sig.Name == "" {
		return errors.InvalidInput(errors.PhaseAnalyze, "function name cannot be empty")
	}
	if !identPattern.MatchString(sig.Symbol()) {
		return errors.InvalidInput(errors.PhaseAnalyze, "function name "+sig.Name+" is not a valid export symbol")
	}
	seen := make(map[string]bool, len(sig.Params))
	for i, p := range sig.Params {
		if p.Name == "" {
			return errors.New(errors.PhaseAnalyze, errors.KindInvalidInput).
				At(i, "").
				Detail("%s: parameter name cannot be empty", sig.Name).
				Build()
		}
		if seen[p.Name] {
			return errors.New(errors.PhaseAnalyze, errors.KindInvalidInput).
				At(i, p.Name).
				Detail("%s: duplicate parameter name", sig.Name).
				Build()
		}
		seen[p.Name] = true
	}
	return nil
}

func kindOf(err error) errors.Kind {
	var fe *errors.Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return errors.KindUnsupported
}
