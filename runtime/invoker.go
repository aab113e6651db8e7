package runtime

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/ribosome/engine"
	"github.com/wippyai/ribosome/errors"
	"github.com/wippyai/ribosome/host"
)

// Stage is a step of the call state machine.
type Stage int

const (
	StageNotStarted Stage = iota
	StageLoaded
	StageResolved
	StageInstantiated
	StageMemoryPrimed
	StageExecuting
	StageCompleted
	StageFailed
)

var stageNames = [...]string{
	StageNotStarted:   "not_started",
	StageLoaded:       "loaded",
	StageResolved:     "resolved",
	StageInstantiated: "instantiated",
	StageMemoryPrimed: "memory_primed",
	StageExecuting:    "executing",
	StageCompleted:    "completed",
	StageFailed:       "failed",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "stage(" + strconv.Itoa(int(s)) + ")"
	}
	return stageNames[s]
}

// invoker drives one call through its stages. It is used once.
type invoker struct {
	rt     *Runtime
	ec     *ExecutionContext
	log    *zap.Logger
	module *engine.Module
	inst   *engine.Instance
	fn     api.Function
	stage  Stage
}

func (iv *invoker) advance(s Stage) {
	iv.stage = s
	iv.log.Debug("stage", zap.Stringer("stage", s))
}

func (iv *invoker) fail(err error) error {
	failedAt := iv.stage
	iv.stage = StageFailed
	iv.log.Warn("call failed", zap.Stringer("after", failedAt), zap.Error(err))
	return err
}

func (iv *invoker) run(ctx context.Context, bytecode []byte, name string, args []uint64) (*Outcome, error) {
	defer iv.close(ctx)

	if err := iv.load(ctx, bytecode); err != nil {
		return nil, iv.fail(err)
	}
	if err := iv.resolve(); err != nil {
		return nil, iv.fail(err)
	}
	if err := iv.instantiate(ctx); err != nil {
		return nil, iv.fail(err)
	}
	if err := iv.prime(); err != nil {
		return nil, iv.fail(err)
	}
	def, err := iv.lookup(name, args)
	if err != nil {
		return nil, iv.fail(err)
	}
	results, err := iv.execute(ctx, name, args)
	if err != nil {
		return nil, iv.fail(err)
	}
	result, err := encodeResult(name, def.ResultTypes(), results)
	if err != nil {
		return nil, iv.fail(err)
	}

	out, err := iv.ec.Finish(result)
	if err != nil {
		return nil, iv.fail(err)
	}
	iv.advance(StageCompleted)
	return out, nil
}

func (iv *invoker) load(ctx context.Context, bytecode []byte) error {
	m, err := iv.rt.engine.Compile(ctx, bytecode)
	if err != nil {
		return err
	}
	iv.module = m
	iv.advance(StageLoaded)
	return nil
}

func (iv *invoker) resolve() error {
	bindings, err := host.ResolveModule(iv.module)
	if err != nil {
		return err
	}
	iv.log.Debug("imports resolved", zap.Int("count", len(bindings)))
	iv.advance(StageResolved)
	return nil
}

func (iv *invoker) instantiate(ctx context.Context) error {
	inst, err := iv.module.Instantiate(ctx)
	if err != nil {
		return err
	}
	iv.inst = inst
	iv.advance(StageInstantiated)
	return nil
}

func (iv *invoker) prime() error {
	cfg := iv.rt.cfg
	mem, ok := iv.inst.Memory(cfg.MemoryName)
	if !ok {
		return errors.MemoryExportMissing(cfg.MemoryName)
	}
	if err := mem.Write(cfg.PrimeOffset, cfg.PrimeBytes); err != nil {
		return errors.MemoryNotWritable(cfg.PrimeOffset, len(cfg.PrimeBytes), err)
	}
	iv.ec.setMemory(mem)
	iv.advance(StageMemoryPrimed)
	return nil
}

// lookup finds the export and checks its signature before anything runs.
func (iv *invoker) lookup(name string, args []uint64) (api.FunctionDefinition, error) {
	def, ok := iv.module.Function(name)
	if !ok {
		return nil, errors.ExportNotFound(name)
	}
	if want := len(def.ParamTypes()); want != len(args) {
		return nil, errors.ArgumentMismatch(name, want, len(args))
	}
	if err := checkResults(name, def.ResultTypes()); err != nil {
		return nil, err
	}
	iv.fn = iv.inst.Function(name)
	if iv.fn == nil {
		return nil, errors.ExportNotFound(name)
	}
	return def, nil
}

func (iv *invoker) execute(ctx context.Context, name string, args []uint64) ([]uint64, error) {
	iv.advance(StageExecuting)

	results, err := iv.fn.Call(host.WithSession(ctx, iv.ec), args...)
	if err == nil {
		return results, nil
	}

	// Host faults are thrown as *errors.Error and come back wrapped by wazero.
	var fault *errors.Error
	if stderrors.As(err, &fault) {
		iv.log.Debug("host fault", zap.String("trace", err.Error()))
		return nil, fault
	}
	return nil, errors.ExecutionFault(name, err)
}

func (iv *invoker) close(ctx context.Context) {
	if iv.inst != nil {
		if err := iv.inst.Close(ctx); err != nil {
			iv.log.Warn("close instance", zap.Error(err))
		}
	}
	if iv.module != nil {
		if err := iv.module.Close(ctx); err != nil {
			iv.log.Warn("close module", zap.Error(err))
		}
	}
}

func checkResults(name string, types []api.ValueType) error {
	if len(types) != 1 {
		return errors.ReturnTypeMismatch(name, fmt.Sprintf("export must return exactly one value, declares %d", len(types)))
	}
	switch types[0] {
	case api.ValueTypeI32, api.ValueTypeI64, api.ValueTypeF32, api.ValueTypeF64:
		return nil
	default:
		return errors.ReturnTypeMismatch(name, fmt.Sprintf("cannot encode %s result", api.ValueTypeName(types[0])))
	}
}

// encodeResult renders a single numeric result: integers in signed decimal,
// floats in the shortest 'g' form.
func encodeResult(name string, types []api.ValueType, results []uint64) (string, error) {
	if err := checkResults(name, types); err != nil {
		return "", err
	}
	if len(results) != 1 {
		return "", errors.New(errors.PhaseExtract, errors.KindReturnTypeMismatch).
			Name(name).
			Detail("expected 1 result, got %d", len(results)).
			Build()
	}

	v := results[0]
	switch types[0] {
	case api.ValueTypeI32:
		return strconv.FormatInt(int64(api.DecodeI32(v)), 10), nil
	case api.ValueTypeI64:
		return strconv.FormatInt(int64(v), 10), nil
	case api.ValueTypeF32:
		return strconv.FormatFloat(float64(api.DecodeF32(v)), 'g', -1, 32), nil
	default:
		return strconv.FormatFloat(api.DecodeF64(v), 'g', -1, 64), nil
	}
}
