package dispatch

import (
	"context"
	"runtime/debug"

	"github.com/wippyai/strffi/errors"
	"github.com/wippyai/strffi/signature"
	"github.com/wippyai/strffi/transcoder"
	"go.uber.org/zap"
)

// Handler is the wrapped function. It receives decoded arguments and returns
// a value of the plan's result type, or an error reported to the host as the
// function's own failure.
type Handler func(ctx context.Context, args Args) (any, error)

// Result is the outcome of one call. Exactly one of Text or Err is meaningful.
type Result struct {
	Err  *errors.Error
	Text string
}

// OK reports whether the call succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Wire returns the single string handed back to the host.
func (r Result) Wire() string {
	if r.Err != nil {
		return r.Err.Wire()
	}
	return r.Text
}

// Dispatcher adapts one Handler to the string calling convention. It holds
// no per-call state; Call is safe for concurrent use.
type Dispatcher struct {
	plan    *signature.Plan
	handler Handler
	decoder *transcoder.Decoder
	encoder *transcoder.Encoder
	logger  *zap.Logger
}

// Option configures a Dispatcher.
type Option func(*config)

type config struct {
	decoder    *transcoder.Decoder
	encoder    *transcoder.Encoder
	logger     *zap.Logger
	paramNames []string
	analyze    signature.Options
}

// WithDecoder replaces the argument decoder.
func WithDecoder(d *transcoder.Decoder) Option {
	return func(c *config) { c.decoder = d }
}

// WithEncoder replaces the result encoder.
func WithEncoder(e *transcoder.Encoder) Option {
	return func(c *config) { c.encoder = e }
}

// WithLogger sets the logger; the package logger is used otherwise.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithParamNames names the parameters of a function passed to Bind.
func WithParamNames(names ...string) Option {
	return func(c *config) { c.paramNames = names }
}

// WithAnalyzeOptions sets the analysis options used by Bind.
func WithAnalyzeOptions(opts signature.Options) Option {
	return func(c *config) { c.analyze = opts }
}

func newConfig(opts []Option) *config {
	c := &config{analyze: signature.DefaultOptions()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// New creates a Dispatcher for an analyzed plan.
func New(plan *signature.Plan, handler Handler, opts ...Option) (*Dispatcher, error) {
	if plan == nil {
		return nil, errors.InvalidInput(errors.PhaseRegister, "plan cannot be nil")
	}
	if handler == nil {
		return nil, errors.InvalidInput(errors.PhaseRegister, plan.Signature.Name+": handler cannot be nil")
	}

	c := newConfig(opts)
	d := &Dispatcher{
		plan:    plan,
		handler: handler,
		decoder: c.decoder,
		encoder: c.encoder,
		logger:  c.logger,
	}
	if d.decoder == nil {
		d.decoder = transcoder.NewDecoder()
	}
	if d.encoder == nil {
		d.encoder = transcoder.NewEncoder()
	}
	if d.logger == nil {
		d.logger = Logger()
	}
	d.logger = d.logger.With(zap.String("function", plan.Signature.Name))
	return d, nil
}

// Bind derives a signature from fn, analyzes it and wraps fn in a Dispatcher.
func Bind(name string, fn any, opts ...Option) (*Dispatcher, error) {
	c := newConfig(opts)

	sig, binding, err := signature.FromFunc(name, fn, c.paramNames...)
	if err != nil {
		return nil, err
	}
	plan, err := signature.Analyze(sig, c.analyze)
	if err != nil {
		return nil, err
	}

	handler := func(ctx context.Context, args Args) (any, error) {
		values := args.Values()
		present := make([]bool, len(values))
		for i := range values {
			present[i] = args.Present(i)
		}
		return binding.Call(ctx, values, present)
	}
	return New(plan, handler, opts...)
}

// Plan returns the analyzed signature.
func (d *Dispatcher) Plan() *signature.Plan {
	return d.plan
}

// Call runs one call: arity check, decoding each supplied argument in order,
// invoking the handler and encoding its result. Every failure, including a
// panic, becomes a Result carrying the diagnostic.
func (d *Dispatcher) Call(ctx context.Context, args []string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("recovered panic at call boundary",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			res = d.fail(errors.InternalFault(d.plan.Signature.Name, r))
		}
	}()

	arity := d.plan.Arity
	if !arity.Accepts(len(args)) {
		return d.fail(errors.Arity(arity.Min, arity.Max, len(args)))
	}

	values := make([]any, arity.Max)
	for i, text := range args {
		v, err := d.decoder.DecodeParam(i, d.plan.Signature.Params[i].Name, d.plan.Params[i], text)
		if err != nil {
			return d.fail(err)
		}
		values[i] = v
	}
	for i := len(args); i < arity.Max; i++ {
		values[i] = Absent
	}

	out, err := d.handler(ctx, Args{values: values})
	if err != nil {
		return d.fail(errors.WrappedFailure(err))
	}

	text, encErr := d.encoder.EncodeResult(d.plan.Result, out)
	if encErr != nil {
		return d.fail(encErr)
	}
	if errors.IsWire(text) {
		d.logger.Warn("result starts with the diagnostic header and will read as a failure")
	}
	return Result{Text: text}
}

// CallWire is Call rendered to the host string.
func (d *Dispatcher) CallWire(ctx context.Context, args []string) string {
	return d.Call(ctx, args).Wire()
}

func (d *Dispatcher) fail(err *errors.Error) Result {
	if ce := d.logger.Check(zap.DebugLevel, "call failed"); ce != nil {
		ce.Write(
			zap.String("phase", string(err.Phase)),
			zap.String("kind", string(err.Kind)),
			zap.Error(err))
	}
	return Result{Err: err}
}
