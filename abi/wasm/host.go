package wasm

import (
	"context"
	"encoding/binary"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/wippyai/strffi/errors"
	"github.com/wippyai/strffi/runtime"
	"go.uber.org/zap"
)

const (
	// DefaultModuleName is the import module guests link against.
	DefaultModuleName = "strffi"
	// CabiRealloc is the guest allocator export.
	CabiRealloc = "cabi_realloc"

	pairSize = 8
)

var callParams = []api.ValueType{api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32}

// Config configures the host module.
type Config struct {
	ModuleName string
	// MaxArgs bounds argc before any memory is read.
	MaxArgs uint32
}

func DefaultConfig() Config {
	return Config{ModuleName: DefaultModuleName, MaxArgs: 64}
}

// Bridge serves the exports of a registry to wasm guests.
type Bridge struct {
	reg *runtime.Registry
	cfg Config
}

func NewBridge(reg *runtime.Registry, cfg Config) *Bridge {
	if cfg.ModuleName == "" {
		cfg.ModuleName = DefaultModuleName
	}
	if cfg.MaxArgs == 0 {
		cfg.MaxArgs = DefaultConfig().MaxArgs
	}
	return &Bridge{reg: reg, cfg: cfg}
}

// ModuleName returns the import module name.
func (b *Bridge) ModuleName() string {
	return b.cfg.ModuleName
}

// Instantiate defines the host module in rt. Register every export first;
// later registrations are not visible to guests.
func (b *Bridge) Instantiate(ctx context.Context, rt wazero.Runtime) (api.Module, error) {
	builder := rt.NewHostModuleBuilder(b.cfg.ModuleName)
	for _, e := range b.reg.Exports() {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(b.hostFunc(e), callParams, nil).
			WithParameterNames("argv", "argc", "ret").
			Export(e.Symbol)
	}
	mod, err := builder.Instantiate(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseABI, errors.KindRegistration, err, "instantiate host module "+b.cfg.ModuleName)
	}
	Logger().Debug("host module instantiated",
		zap.String("module", b.cfg.ModuleName),
		zap.Int("exports", len(b.reg.Exports())))
	return mod, nil
}

// Symbols lists the functions of the host module.
func (b *Bridge) Symbols() []string {
	exports := b.reg.Exports()
	out := make([]string, len(exports))
	for i, e := range exports {
		out[i] = e.Symbol
	}
	return out
}

func (b *Bridge) hostFunc(e *runtime.Export) api.GoModuleFunc {
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		argv := api.DecodeU32(stack[0])
		argc := api.DecodeU32(stack[1])
		ret := api.DecodeU32(stack[2])

		mem := mod.Memory()
		if mem == nil {
			panic(abiError(e.Symbol, "guest has no memory"))
		}
		if argc > b.cfg.MaxArgs {
			panic(abiError(e.Symbol, "argc exceeds the configured maximum"))
		}

		args, err := readArgs(mem, argv, argc)
		if err != nil {
			panic(abiError(e.Symbol, err.Error()))
		}

		out := e.Call(ctx, args).Wire()

		var ptr uint32
		if len(out) > 0 {
			ptr, err = allocate(ctx, mod, uint32(len(out)), 1)
			if err != nil {
				panic(abiError(e.Symbol, err.Error()))
			}
			if !mem.WriteString(ptr, out) {
				panic(abiError(e.Symbol, "result allocation outside memory"))
			}
		}
		if !mem.WriteUint32Le(ret, ptr) || !mem.WriteUint32Le(ret+4, uint32(len(out))) {
			panic(abiError(e.Symbol, "return pointer outside memory"))
		}
	}
}

func readArgs(mem api.Memory, argv, argc uint32) ([]string, error) {
	if argc == 0 {
		return nil, nil
	}
	pairs, ok := mem.Read(argv, argc*pairSize)
	if !ok {
		return nil, errors.InvalidInput(errors.PhaseABI, "argv outside memory")
	}
	args := make([]string, argc)
	for i := range args {
		p := binary.LittleEndian.Uint32(pairs[i*pairSize:])
		n := binary.LittleEndian.Uint32(pairs[i*pairSize+4:])
		data, ok := mem.Read(p, n)
		if !ok {
			return nil, errors.InvalidInput(errors.PhaseABI, "argument outside memory")
		}
		args[i] = string(data)
	}
	return args, nil
}

// allocate calls the guest's cabi_realloc(0, 0, align, size).
func allocate(ctx context.Context, mod api.Module, size, align uint32) (uint32, error) {
	fn := mod.ExportedFunction(CabiRealloc)
	if fn == nil {
		return 0, errors.NotFound(errors.PhaseABI, "export", CabiRealloc)
	}
	res, err := fn.Call(ctx, 0, 0, uint64(align), uint64(size))
	if err != nil {
		return 0, errors.Wrap(errors.PhaseABI, errors.KindInternalFault, err, CabiRealloc)
	}
	return api.DecodeU32(res[0]), nil
}

func abiError(symbol, detail string) *errors.Error {
	return errors.New(errors.PhaseABI, errors.KindInvalidInput).
		Detail("%s: %s", symbol, detail).
		Build()
}
