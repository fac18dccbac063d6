// Command run calls the exports of the example library the way a host would:
// every argument is a string and every call yields one string.
//
//	run -list
//	run -call add 2 40
//	run -wasm -call greet bob 2
//	printf 'add\t1\t2\n' | run
//	run -i
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/wippyai/strffi/errors"
	"github.com/wippyai/strffi/examples/basic"
	"github.com/wippyai/strffi/runtime"
	"github.com/wippyai/strffi/signature"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Path to strffi.toml")
		funcName    = flag.String("call", "", "Export to call; remaining arguments are passed as strings")
		viaWasm     = flag.Bool("wasm", false, "Route calls through a wasm guest")
		list        = flag.Bool("list", false, "List exports and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	reg, err := loadRegistry(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	var c caller = &directCaller{reg: reg}
	if *viaWasm {
		wc, err := newWasmCaller(ctx, reg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		c = wc
	}
	defer c.Close(ctx)

	switch {
	case *list:
		listExports(os.Stdout, reg)
	case *interactive:
		err = runInteractive(reg, c)
	case *funcName != "":
		var failed bool
		failed, err = callOnce(ctx, os.Stdout, c, *funcName, flag.Args())
		if err == nil && failed {
			c.Close(ctx)
			os.Exit(2)
		}
	case !term.IsTerminal(int(os.Stdin.Fd())):
		err = runBatch(ctx, os.Stdin, os.Stdout, c)
	default:
		fmt.Fprintln(os.Stderr, "Usage: run -call <name> [args...]")
		fmt.Fprintln(os.Stderr, "       run -list")
		fmt.Fprintln(os.Stderr, "       run -i  (interactive mode)")
		fmt.Fprintln(os.Stderr, "       <tab-separated calls> | run")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		c.Close(ctx)
		os.Exit(1)
	}
}

func loadRegistry(configFile string) (*runtime.Registry, error) {
	cfg := runtime.DefaultConfig()
	if configFile != "" {
		var err error
		if cfg, err = runtime.LoadConfig(configFile); err != nil {
			return nil, err
		}
	}
	return basic.NewRegistry(cfg)
}

func listExports(w io.Writer, reg *runtime.Registry) {
	for _, e := range reg.Exports() {
		plan := e.Plan()
		fmt.Fprintf(w, "%-28s %s\n", e.Usage(), signature.String(e.Signature()))
		if plan.Arity.Min != plan.Arity.Max {
			fmt.Fprintf(w, "%-28s accepts %d to %d arguments\n", "", plan.Arity.Min, plan.Arity.Max)
		}
	}
}

// callOnce prints the result of one call. failed reports a diagnostic result.
func callOnce(ctx context.Context, w io.Writer, c caller, name string, args []string) (failed bool, err error) {
	out, err := c.Call(ctx, name, args)
	if err != nil {
		return false, err
	}
	fmt.Fprintln(w, out)
	return errors.IsWire(out), nil
}

// runBatch reads one call per line: the export name and its arguments,
// separated by tabs. Blank lines and lines starting with # are skipped.
func runBatch(ctx context.Context, r io.Reader, w io.Writer, c caller) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if _, err := callOnce(ctx, w, c, fields[0], fields[1:]); err != nil {
			return err
		}
	}
	return sc.Err()
}
