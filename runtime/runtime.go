package runtime

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/wippyai/ribosome/action"
	"github.com/wippyai/ribosome/engine"
	"github.com/wippyai/ribosome/errors"
	"github.com/wippyai/ribosome/host"
)

// Runtime runs guest calls. It is safe for concurrent use: every call owns
// its module, instance and ExecutionContext; only the engine is shared.
type Runtime struct {
	engine *engine.Engine
	logger *zap.Logger
	cfg    Config
}

type options struct {
	cache  wazero.CompilationCache
	logger *zap.Logger
	cfg    Config
}

// Option configures a Runtime.
type Option func(*options)

// WithConfig replaces DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.cfg = cfg
	}
}

// WithLogger sets the logger for calls made through the Runtime.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithCompilationCache shares compiled code with other runtimes.
func WithCompilationCache(cache wazero.CompilationCache) Option {
	return func(o *options) {
		o.cache = cache
	}
}

// New creates a Runtime with the env host module installed.
func New(ctx context.Context, opts ...Option) (*Runtime, error) {
	o := options{cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = Logger()
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}

	eng := engine.New(ctx, &engine.Config{
		Cache:              o.cache,
		MemoryLimitPages:   o.cfg.MemoryLimitPages,
		CloseOnContextDone: o.cfg.CloseOnContextDone,
	})
	if err := eng.InitHost(ctx, host.Namespace, host.Instantiate); err != nil {
		_ = eng.Close(ctx)
		return nil, errors.Wrap(errors.PhaseInstantiate, errors.KindInstantiationFailed, err, "install host module")
	}

	return &Runtime{
		engine: eng,
		logger: o.logger,
		cfg:    o.cfg,
	}, nil
}

// Config returns the configuration the Runtime was built with.
func (r *Runtime) Config() Config {
	return r.cfg
}

// Call loads bytecode, runs the export name with args and returns its Outcome.
//
// Every stage failure aborts the call with an error tagged with its phase and
// no Outcome. Commits made by the guest are forwarded on actions, observed on
// observers and applied before the guest continues.
func (r *Runtime) Call(ctx context.Context, actions *action.Sender[action.Action], observers *action.Sender[*action.Observer], bytecode []byte, name string, args ...uint64) (*Outcome, error) {
	if actions == nil || observers == nil {
		return nil, errors.InvalidInput(errors.PhaseDispatch, "action and observer channels are required")
	}

	iv := &invoker{
		rt:  r,
		ec:  NewExecutionContext(actions, observers, r.cfg, r.logger),
		log: r.logger.With(zap.String("export", name)),
	}
	return iv.run(ctx, bytecode, name, args)
}

// Close releases the engine. Calls in flight fail.
func (r *Runtime) Close(ctx context.Context) error {
	return r.engine.Close(ctx)
}

var (
	defaultRuntime    *Runtime
	defaultRuntimeErr error
	defaultOnce       sync.Once
)

// Call runs one export on the process-wide default Runtime.
func Call(ctx context.Context, actions *action.Sender[action.Action], observers *action.Sender[*action.Observer], bytecode []byte, name string, args ...uint64) (*Outcome, error) {
	defaultOnce.Do(func() {
		defaultRuntime, defaultRuntimeErr = New(context.Background())
	})
	if defaultRuntimeErr != nil {
		return nil, defaultRuntimeErr
	}
	return defaultRuntime.Call(ctx, actions, observers, bytecode, name, args...)
}
