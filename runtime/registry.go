package runtime

import (
	"context"
	"reflect"
	"sort"
	"sync"

	"github.com/wippyai/strffi/dispatch"
	"github.com/wippyai/strffi/errors"
	"github.com/wippyai/strffi/signature"
	"go.uber.org/zap"
)

// Library is the struct-based registration pattern. All exported methods
// (except Prefix) are registered; method names become kebab-case exports
// prefixed with Prefix() (AddOptional -> add-optional).
type Library interface {
	Prefix() string
}

// ExplicitLibrary provides exact export names when automatic PascalCase to
// kebab-case conversion doesn't apply.
type ExplicitLibrary interface {
	Exports() map[string]any
}

// Export is one registered function.
type Export struct {
	dispatcher *dispatch.Dispatcher
	Name       string
	Symbol     string
}

// Plan returns the analyzed signature.
func (e *Export) Plan() *signature.Plan {
	return e.dispatcher.Plan()
}

// Signature returns the declared signature.
func (e *Export) Signature() signature.Signature {
	return e.dispatcher.Plan().Signature
}

// Usage renders the host-facing call shape.
func (e *Export) Usage() string {
	return signature.Usage(e.Signature())
}

// Call dispatches one call.
func (e *Export) Call(ctx context.Context, args []string) dispatch.Result {
	return e.dispatcher.Call(ctx, args)
}

// Registry holds the exports of one library. Registration happens at start
// up; calls only read it.
type Registry struct {
	exports map[string]*Export
	symbols map[string]*Export
	logger  *zap.Logger
	order   []string
	config  Config
	mu      sync.RWMutex
}

func NewRegistry(cfg Config) *Registry {
	return &Registry{
		exports: make(map[string]*Export),
		symbols: make(map[string]*Export),
		logger:  zap.NewNop(),
		config:  cfg,
	}
}

// SetLogger sets the logger handed to every dispatcher registered afterwards.
func (r *Registry) SetLogger(l *zap.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = l
}

func (r *Registry) analyzeOptions() signature.Options {
	return signature.Options{StructuredTransport: r.config.StructuredTransport}
}

// Register adds an export for an explicit signature.
func (r *Registry) Register(sig signature.Signature, handler dispatch.Handler) error {
	plan, err := signature.Analyze(sig, r.analyzeOptions())
	if err != nil {
		return errors.Registration(sig.Name, err)
	}
	d, err := dispatch.New(plan, handler, dispatch.WithLogger(r.currentLogger()))
	if err != nil {
		return errors.Registration(sig.Name, err)
	}
	return r.add(d)
}

// Bind adds an export for a Go function; see signature.FromFunc for the
// accepted shapes.
func (r *Registry) Bind(name string, fn any, paramNames ...string) error {
	d, err := dispatch.Bind(name, fn,
		dispatch.WithParamNames(paramNames...),
		dispatch.WithAnalyzeOptions(r.analyzeOptions()),
		dispatch.WithLogger(r.currentLogger()))
	if err != nil {
		return errors.Registration(name, err)
	}
	return r.add(d)
}

// RegisterWIT parses WIT declarations and binds each function to the
// handler of the same name. Every declared function needs a handler.
func (r *Registry) RegisterWIT(witText string, handlers map[string]dispatch.Handler) error {
	sigs, err := signature.ParseWIT(witText)
	if err != nil {
		return err
	}
	for _, sig := range sigs {
		h, ok := handlers[sig.Name]
		if !ok {
			return errors.NotFound(errors.PhaseRegister, "handler", sig.Name)
		}
		if err := r.Register(sig, h); err != nil {
			return err
		}
	}
	return nil
}

// RegisterLibrary registers the exported methods of lib. Explicit exports are
// registered in name order.
func (r *Registry) RegisterLibrary(lib Library) error {
	prefix := lib.Prefix()

	if el, ok := lib.(ExplicitLibrary); ok {
		exports := el.Exports()
		names := make([]string, 0, len(exports))
		for name := range exports {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if err := r.Bind(prefix+name, exports[name]); err != nil {
				return err
			}
		}
		return nil
	}

	rv := reflect.ValueOf(lib)
	rt := rv.Type()
	for i := 0; i < rt.NumMethod(); i++ {
		method := rt.Method(i)
		if !method.IsExported() || method.Name == "Prefix" {
			continue
		}
		if err := r.Bind(prefix+signature.KebabCase(method.Name), rv.Method(i).Interface()); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) currentLogger() *zap.Logger {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.logger
}

func (r *Registry) add(d *dispatch.Dispatcher) error {
	sig := d.Plan().Signature
	e := &Export{dispatcher: d, Name: sig.Name, Symbol: sig.Symbol()}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.exports[e.Name]; dup {
		return errors.Registration(e.Name, errors.InvalidInput(errors.PhaseRegister, "export already registered"))
	}
	if other, dup := r.symbols[e.Symbol]; dup {
		return errors.Registration(e.Name, errors.InvalidInput(errors.PhaseRegister, "symbol "+e.Symbol+" already used by "+other.Name))
	}
	r.exports[e.Name] = e
	r.symbols[e.Symbol] = e
	r.order = append(r.order, e.Name)

	r.logger.Debug("export registered",
		zap.String("name", e.Name),
		zap.String("symbol", e.Symbol),
		zap.Int("min_args", d.Plan().Arity.Min),
		zap.Int("max_args", d.Plan().Arity.Max))
	return nil
}

// Lookup finds an export by WIT name or by symbol.
func (r *Registry) Lookup(name string) (*Export, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.exports[name]; ok {
		return e, true
	}
	e, ok := r.symbols[name]
	return e, ok
}

// Exports returns all exports in registration order.
func (r *Registry) Exports() []*Export {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Export, len(r.order))
	for i, name := range r.order {
		out[i] = r.exports[name]
	}
	return out
}

// Call dispatches to the named export. The error is only for an unknown
// name; call failures are in the Result.
func (r *Registry) Call(ctx context.Context, name string, args []string) (dispatch.Result, error) {
	e, ok := r.Lookup(name)
	if !ok {
		return dispatch.Result{}, errors.NotFound(errors.PhaseInvoke, "export", name)
	}
	return e.Call(ctx, args), nil
}
