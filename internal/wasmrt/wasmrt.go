// Package wasmrt hosts service instances as sandboxed WebAssembly modules
// using an embedded wazero runtime, mirroring the native process
// supervisor's contract: start N instances, forward virtual stdio into the
// log store, cap memory, inject the WR_RUNNER_* environment variables, and
// guarantee the instance is torn down on runner shutdown.
package wasmrt

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// PagesPerMemoryLimitMB is the Wasm linear-memory page conversion factor:
// memory_limit_mb * 16 pages (each page is 64KiB, so 16 pages == 1MiB).
const PagesPerMemoryLimitMB = 16

// WasmTarget and Profile name the build output layout consumed in Wasm
// mode: services/<name>/target/<WasmTarget>/<Profile>/<name>.wasm.
const (
	WasmTarget = "wasm32-wasi"
	Profile    = "release"
)

// Instance describes one Wasm module execution to launch.
type Instance struct {
	ServiceName   string
	ServiceDir    string
	URL           string // this instance's own base URL, for WR_RUNNER_PORT
	Index         int
	InstanceCount int
	MemoryLimitMB int
}

// engine pairs one wazero.Runtime with its own compiled-module cache; a
// CompiledModule is bound to the runtime that compiled it, so every distinct
// memory-page limit needs its own engine.
type engine struct {
	mu    sync.Mutex
	rt    wazero.Runtime
	cache map[string]wazero.CompiledModule
}

func newEngine(ctx context.Context, cfg wazero.RuntimeConfig) (*engine, error) {
	rt := wazero.NewRuntimeWithConfig(ctx, cfg)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("instantiating WASI preview1: %w", err)
	}
	return &engine{rt: rt, cache: make(map[string]wazero.CompiledModule)}, nil
}

func (e *engine) compiled(ctx context.Context, path string) (wazero.CompiledModule, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if mod, ok := e.cache[path]; ok {
		return mod, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading wasm module %s: %w", path, err)
	}
	mod, err := e.rt.CompileModule(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("compiling wasm module %s: %w", path, err)
	}
	e.cache[path] = mod
	return mod, nil
}

// Runtime owns the unlimited engine shared by every hosted instance that
// declares no memory cap, plus one additional engine per distinct
// memory_limit_mb value so those instances get an enforced Wasm linear-memory
// page limit (wazero caps memory per-Runtime, not per-module).
type Runtime struct {
	ctx context.Context

	base *engine

	mu      sync.Mutex
	limited map[int]*engine // keyed by memory_limit_mb
}

// New creates a Wasm hosting runtime. Close must be called on runner
// shutdown to release the embedded engine(s).
func New(ctx context.Context) (*Runtime, error) {
	base, err := newEngine(ctx, wazero.NewRuntimeConfig())
	if err != nil {
		return nil, err
	}
	return &Runtime{
		ctx:     ctx,
		base:    base,
		limited: make(map[int]*engine),
	}, nil
}

// Close releases every engine and every compiled module.
func (r *Runtime) Close() error {
	err := r.base.rt.Close(r.ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.limited {
		if cerr := e.rt.Close(r.ctx); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// WasmPath computes the expected module path for a service.
func WasmPath(serviceDir, serviceName string) string {
	return filepath.Join(serviceDir, "target", WasmTarget, Profile, serviceName+".wasm")
}

// engineFor returns the engine an instance should compile and run under:
// the shared unlimited engine when it declares no memory cap, otherwise a
// memoized per-limit engine built with a matching Wasm page ceiling.
func (r *Runtime) engineFor(memoryLimitMB int) (*engine, error) {
	if memoryLimitMB <= 0 {
		return r.base, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.limited[memoryLimitMB]; ok {
		return e, nil
	}

	pages := uint32(memoryLimitMB * PagesPerMemoryLimitMB)
	cfg := wazero.NewRuntimeConfig().WithMemoryLimitPages(pages)
	e, err := newEngine(r.ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("starting memory-limited wasm engine (%d pages): %w", pages, err)
	}
	r.limited[memoryLimitMB] = e
	return e, nil
}

// Handle owns one running Wasm instance. Runtime.Start executes it on its
// own goroutine; Wait blocks until the module's _start returns.
type Handle struct {
	inst Instance
	done chan struct{}
	err  error
}

// Start compiles (if not cached) and instantiates one Wasm instance on its
// own goroutine, binding stdout on the caller-supplied writers (expected to
// be *logs.Forwarder or equivalent line-splitting io.Writer). A fatal
// runtime error is captured on the Handle and logged by the caller; it does
// not propagate to other instances or the runner itself.
func (r *Runtime) Start(inst Instance, stdout, stderr interface {
	Write([]byte) (int, error)
}) *Handle {
	h := &Handle{inst: inst, done: make(chan struct{})}

	go func() {
		defer close(h.done)
		h.err = r.run(inst, stdout, stderr)
	}()

	return h
}

func (r *Runtime) run(inst Instance, stdout, stderr interface {
	Write([]byte) (int, error)
}) error {
	e, err := r.engineFor(inst.MemoryLimitMB)
	if err != nil {
		return err
	}

	path := WasmPath(inst.ServiceDir, inst.ServiceName)
	mod, err := e.compiled(r.ctx, path)
	if err != nil {
		return err
	}

	port, err := portOf(inst.URL)
	if err != nil {
		return fmt.Errorf("parsing instance url: %w", err)
	}

	cfg := wazero.NewModuleConfig().
		WithStdout(stdout).
		WithStderr(stderr).
		WithEnv("WR_RUNNER_PORT", port).
		WithEnv("WR_RUNNER_INDEX", fmt.Sprintf("%d", inst.Index)).
		WithEnv("WR_RUNNER_INSTANCES", fmt.Sprintf("%d", inst.InstanceCount)).
		WithName(fmt.Sprintf("%s-%d", inst.ServiceName, inst.Index))

	instance, err := e.rt.InstantiateModule(r.ctx, mod, cfg)
	if err != nil {
		return fmt.Errorf("instantiating module %s: %w", inst.ServiceName, err)
	}
	defer instance.Close(r.ctx)

	fn := instance.ExportedFunction("_start")
	if fn == nil {
		return fmt.Errorf("module %s does not export _start", inst.ServiceName)
	}

	_, err = fn.Call(r.ctx)
	if err != nil {
		if exitErr, ok := asExitError(err); ok && exitErr == 0 {
			return nil
		}
		return fmt.Errorf("module %s exited: %w", inst.ServiceName, err)
	}
	return nil
}

// Wait blocks until the instance's _start call returns, and reports any
// fatal error it produced.
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}

// Err returns the instance's terminal error without blocking, or nil if it
// has not finished or exited cleanly.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

type exitCoder interface {
	ExitCode() uint32
}

func asExitError(err error) (uint32, bool) {
	var ec exitCoder
	for e := err; e != nil; {
		if x, ok := e.(exitCoder); ok {
			ec = x
			break
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	if ec == nil {
		return 0, false
	}
	return ec.ExitCode(), true
}

func portOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return u.Port(), nil
}
