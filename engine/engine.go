package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/wippyai/ribosome/errors"
	"github.com/wippyai/ribosome/wasm"
)

var (
	sharedCache     wazero.CompilationCache
	sharedCacheOnce sync.Once
)

// SharedCache returns the process-wide compilation cache used when a Config
// does not name one.
func SharedCache() wazero.CompilationCache {
	sharedCacheOnce.Do(func() {
		sharedCache = wazero.NewCompilationCache()
	})
	return sharedCache
}

// Config holds configuration for engine creation
type Config struct {
	// Cache is shared between engines so identical bytecode is compiled once.
	// nil means SharedCache().
	Cache wazero.CompilationCache

	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	MemoryLimitPages uint32

	// CloseOnContextDone lets context cancellation interrupt running guest code.
	CloseOnContextDone bool
}

// Engine is a wazero runtime with its host module registry.
type Engine struct {
	runtime wazero.Runtime
	hosts   map[string]struct{}
	hostsMu sync.Mutex
}

// New creates an engine. A nil config uses defaults.
func New(ctx context.Context, cfg *Config) *Engine {
	runtimeCfg := wazero.NewRuntimeConfig()
	cache := SharedCache()

	if cfg != nil {
		if cfg.Cache != nil {
			cache = cfg.Cache
		}
		if cfg.MemoryLimitPages > 0 {
			runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
		}
		if cfg.CloseOnContextDone {
			runtimeCfg = runtimeCfg.WithCloseOnContextDone(true)
		}
	}
	runtimeCfg = runtimeCfg.WithCompilationCache(cache)

	return &Engine{
		runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		hosts:   make(map[string]struct{}),
	}
}

// Runtime exposes the underlying wazero runtime for host module builders.
func (e *Engine) Runtime() wazero.Runtime {
	return e.runtime
}

// InitHost runs init once per host module name for this engine.
// Safe for concurrent calls; a failed init may be retried.
func (e *Engine) InitHost(ctx context.Context, name string, init func(context.Context, wazero.Runtime) error) error {
	e.hostsMu.Lock()
	defer e.hostsMu.Unlock()

	if _, ok := e.hosts[name]; ok {
		return nil
	}
	if e.runtime.Module(name) == nil {
		if err := init(ctx, e.runtime); err != nil {
			return fmt.Errorf("instantiate host module %q: %w", name, err)
		}
		Logger().Debug("host module instantiated", zap.String("module", name))
	}
	e.hosts[name] = struct{}{}
	return nil
}

// Compile validates bytecode and compiles it into a Module.
// Any start section is removed before compilation.
func (e *Engine) Compile(ctx context.Context, data []byte) (*Module, error) {
	stripped, didStrip, err := wasm.StripStart(data)
	if err != nil {
		return nil, errors.BytecodeInvalid("scan module", err)
	}
	summary, err := wasm.Scan(stripped)
	if err != nil {
		return nil, errors.BytecodeInvalid("scan stripped module", err)
	}

	compiled, err := e.runtime.CompileModule(ctx, stripped)
	if err != nil {
		return nil, errors.BytecodeInvalid("compile module", err)
	}

	if didStrip {
		Logger().Debug("start section stripped", zap.Int("size", len(data)))
	}

	imports, err := collectImports(summary, compiled)
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, errors.BytecodeInvalid("read imports", err)
	}

	return &Module{
		engine:   e,
		compiled: compiled,
		imports:  imports,
		exports:  summary.Exports,
		stripped: didStrip,
	}, nil
}

// Close releases the runtime and every module compiled or instantiated by it.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}
