package main

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	strffiwasm "github.com/wippyai/strffi/abi/wasm"
	"github.com/wippyai/strffi/runtime"
)

// caller runs one export by name and returns the host string.
type caller interface {
	Call(ctx context.Context, name string, args []string) (string, error)
	Close(ctx context.Context) error
}

// directCaller calls the registry in-process.
type directCaller struct {
	reg *runtime.Registry
}

func (c *directCaller) Call(ctx context.Context, name string, args []string) (string, error) {
	res, err := c.reg.Call(ctx, name, args)
	if err != nil {
		return "", err
	}
	return res.Wire(), nil
}

func (c *directCaller) Close(context.Context) error { return nil }

// wasmCaller routes every call through a guest module that imports the
// registry's host module, so arguments and results cross linear memory.
type wasmCaller struct {
	reg   *runtime.Registry
	rt    wazero.Runtime
	guest *strffiwasm.Guest
}

func newWasmCaller(ctx context.Context, reg *runtime.Registry) (*wasmCaller, error) {
	rt := wazero.NewRuntime(ctx)

	bridge := strffiwasm.NewBridge(reg, strffiwasm.DefaultConfig())
	if _, err := bridge.Instantiate(ctx, rt); err != nil {
		rt.Close(ctx)
		return nil, err
	}

	guestBytes := strffiwasm.NewGuestBuilder(bridge.ModuleName()).Add(bridge.Symbols()...).Build()
	mod, err := rt.InstantiateWithConfig(ctx, guestBytes, wazero.NewModuleConfig().WithName("guest"))
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("instantiate guest: %w", err)
	}

	guest, err := strffiwasm.NewGuest(mod)
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}
	return &wasmCaller{reg: reg, rt: rt, guest: guest}, nil
}

func (c *wasmCaller) Call(ctx context.Context, name string, args []string) (string, error) {
	e, ok := c.reg.Lookup(name)
	if !ok {
		return "", fmt.Errorf("unknown export %q", name)
	}
	return c.guest.Call(ctx, e.Symbol, args)
}

func (c *wasmCaller) Close(ctx context.Context) error {
	return c.rt.Close(ctx)
}
