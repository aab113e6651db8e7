package runtime

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/ribosome/action"
	"github.com/wippyai/ribosome/errors"
	"github.com/wippyai/ribosome/host"
	"github.com/wippyai/ribosome/state"
)

// channels is the ribosome side of the worker boundary plus the receivers,
// so tests can check what was dispatched.
type channels struct {
	actions     *action.Sender[action.Action]
	actionsRx   *action.Receiver[action.Action]
	observers   *action.Sender[*action.Observer]
	observersRx *action.Receiver[*action.Observer]
}

func newChannels() *channels {
	c := &channels{}
	c.actions, c.actionsRx = action.NewChannel[action.Action](16)
	c.observers, c.observersRx = action.NewChannel[*action.Observer](16)
	return c
}

// withWorker starts a memdb-backed state worker on c.
func (c *channels) withWorker(t *testing.T) *state.Store {
	t.Helper()
	store, err := state.NewStore(state.BackendMemDB, "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = state.NewWorker(store, c.actionsRx, c.observersRx).Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return store
}

func newRuntime(t *testing.T, opts ...Option) *Runtime {
	t.Helper()
	ctx := context.Background()
	rt, err := New(ctx, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { rt.Close(ctx) })
	return rt
}

func (c *channels) call(t *testing.T, rt *Runtime, bytecode []byte, name string, args ...uint64) (*Outcome, error) {
	t.Helper()
	return rt.Call(context.Background(), c.actions, c.observers, bytecode, name, args...)
}

func TestCall_TestPrintScenario(t *testing.T) {
	rt := newRuntime(t)
	c := newChannels()

	out, err := c.call(t, rt, testPrintModule(), "test_print")
	require.NoError(t, err)
	assert.Equal(t, []int32{1337}, out.DebugOutput())
	assert.Equal(t, "0", out.Result())
	assert.Empty(t, out.Commits())
	assert.Len(t, c.actionsRx.C(), 0, "print must not dispatch")
	assert.Len(t, c.observersRx.C(), 0)
}

func TestCall_PackageLevel(t *testing.T) {
	c := newChannels()

	out, err := Call(context.Background(), c.actions, c.observers, testPrintModule(), "test_print")
	require.NoError(t, err)
	assert.Equal(t, []int32{1337}, out.DebugOutput())
	assert.Equal(t, "0", out.Result())
}

func TestCall_PrintAnyValue(t *testing.T) {
	rt := newRuntime(t)
	c := newChannels()
	bin := kitchenSinkModule()

	values := []int32{0, 1, -1, 1337, math.MaxInt32, math.MinInt32, 0x55555555}
	for _, v := range values {
		t.Run(fmt.Sprint(v), func(t *testing.T) {
			out, err := c.call(t, rt, bin, "print_param", api.EncodeI32(v))
			require.NoError(t, err)
			assert.Equal(t, []int32{v}, out.DebugOutput())
			assert.Equal(t, "0", out.Result())
		})
	}
	assert.Len(t, c.actionsRx.C(), 0)
}

func TestCall_NoHostCalls(t *testing.T) {
	rt := newRuntime(t)
	c := newChannels()

	out, err := c.call(t, rt, kitchenSinkModule(), "answer")
	require.NoError(t, err)
	assert.Empty(t, out.DebugOutput())
	assert.Equal(t, "42", out.Result())
}

func TestCall_ResultEncoding(t *testing.T) {
	rt := newRuntime(t)
	c := newChannels()
	bin := kitchenSinkModule()

	tests := []struct {
		export string
		want   string
	}{
		{"neg_i32", "-1"},
		{"neg_i64", "-5"},
		{"big_i64", "1099511627776"},
		{"half_f64", "1.5"},
		{"quarter_f32", "0.25"},
	}

	for _, tt := range tests {
		t.Run(tt.export, func(t *testing.T) {
			out, err := c.call(t, rt, bin, tt.export)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Result())
		})
	}
}

func TestCall_PrimedMemory(t *testing.T) {
	c := newChannels()
	bin := kitchenSinkModule()

	out, err := c.call(t, newRuntime(t), bin, "primed")
	require.NoError(t, err)
	assert.Equal(t, "7", out.Result())

	cfg := DefaultConfig()
	cfg.PrimeBytes = []uint8{0, 200}
	out, err = c.call(t, newRuntime(t, WithConfig(cfg)), bin, "primed")
	require.NoError(t, err)
	assert.Equal(t, "200", out.Result())
}

func TestCall_StartSectionNotRun(t *testing.T) {
	rt := newRuntime(t)
	c := newChannels()

	out, err := c.call(t, rt, startModule(), "run")
	require.NoError(t, err)
	assert.Equal(t, []int32{1}, out.DebugOutput())
}

func TestCall_PreExecutionFailures(t *testing.T) {
	bin := kitchenSinkModule()

	tests := []struct {
		want     error
		name     string
		export   string
		bytecode []byte
		args     []uint64
		phase    errors.Phase
	}{
		{name: "invalid bytecode", bytecode: []byte("nope"), export: "run", want: errors.ErrBytecodeInvalid, phase: errors.PhaseLoad},
		{name: "unknown import", bytecode: unknownImportModule(), export: "test_print", want: errors.ErrImportUnresolved, phase: errors.PhaseResolve},
		{name: "missing memory", bytecode: noMemoryModule(), export: "test_print", want: errors.ErrMemoryExportMissing, phase: errors.PhasePrime},
		{name: "memory not writable", bytecode: zeroPageModule(), export: "run", want: errors.ErrMemoryNotWritable, phase: errors.PhasePrime},
		{name: "missing export", bytecode: bin, export: "does_not_exist", want: errors.ErrExportNotFound, phase: errors.PhaseInvoke},
		{name: "memory is not a function", bytecode: bin, export: "memory", want: errors.ErrExportNotFound, phase: errors.PhaseInvoke},
		{name: "missing argument", bytecode: bin, export: "print_param", want: errors.ErrArgumentMismatch, phase: errors.PhaseInvoke},
		{name: "extra argument", bytecode: bin, export: "answer", args: []uint64{1}, want: errors.ErrArgumentMismatch, phase: errors.PhaseInvoke},
		{name: "no result", bytecode: bin, export: "nothing", want: errors.ErrReturnTypeMismatch, phase: errors.PhaseInvoke},
		{name: "two results", bytecode: bin, export: "pair", want: errors.ErrReturnTypeMismatch, phase: errors.PhaseInvoke},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.DebugLevel)
			rt := newRuntime(t, WithLogger(zap.New(core)))
			c := newChannels()

			out, err := c.call(t, rt, tt.bytecode, tt.export, tt.args...)
			require.Error(t, err)
			assert.Nil(t, out)
			assert.ErrorIs(t, err, tt.want)

			var e *errors.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tt.phase, e.Phase)

			executing := logs.FilterMessage("stage").FilterField(zap.Stringer("stage", StageExecuting))
			assert.Zero(t, executing.Len(), "guest code must not run")
			assert.Equal(t, 1, logs.FilterMessage("call failed").Len())
		})
	}
}

func TestCall_UnknownImportStopsBeforePriming(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	rt := newRuntime(t, WithLogger(zap.New(core)))
	c := newChannels()

	_, err := c.call(t, rt, unknownImportModule(), "test_print")
	require.ErrorIs(t, err, errors.ErrImportUnresolved)
	assert.Contains(t, err.Error(), `"env.foo"`)

	for _, s := range []Stage{StageResolved, StageInstantiated, StageMemoryPrimed} {
		reached := logs.FilterMessage("stage").FilterField(zap.Stringer("stage", s))
		assert.Zero(t, reached.Len(), "reached %s", s)
	}
	assert.Equal(t, 1, logs.FilterMessage("stage").FilterField(zap.Stringer("stage", StageLoaded)).Len())
}

func TestCall_Trap(t *testing.T) {
	rt := newRuntime(t)
	c := newChannels()

	_, err := c.call(t, rt, kitchenSinkModule(), "trap")
	require.ErrorIs(t, err, errors.ErrExecutionFault)

	var e *errors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "trap", e.Name)
}

func TestCall_CloseOnContextDone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CloseOnContextDone = true
	rt := newRuntime(t, WithConfig(cfg))
	c := newChannels()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := rt.Call(ctx, c.actions, c.observers, kitchenSinkModule(), "spin")
	assert.ErrorIs(t, err, errors.ErrExecutionFault)
}

func TestCall_Commit(t *testing.T) {
	rt := newRuntime(t)
	c := newChannels()
	store := c.withWorker(t)

	out, err := c.call(t, rt, kitchenSinkModule(), "commit")
	require.NoError(t, err)

	want, err := action.Entry{Type: "post", Content: "hello, world"}.Address()
	require.NoError(t, err)

	require.Equal(t, []action.Address{want}, out.Commits())
	assert.Equal(t, fmt.Sprint(int32(host.EncodeAddress(want))), out.Result())
	assert.Equal(t, []int32{1}, out.DebugOutput())

	got, ok, err := store.Get(want)
	require.NoError(t, err)
	require.True(t, ok, "entry must be applied before the call returns")
	assert.Equal(t, "hello, world", got.Content)
}

func TestCall_CommitReadsConfiguredMemory(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MemoryName = "heap"
	rt := newRuntime(t, WithConfig(cfg))
	c := newChannels()
	store := c.withWorker(t)

	out, err := c.call(t, rt, heapModule(), "commit")
	require.NoError(t, err)
	require.Len(t, out.Commits(), 1)

	got, ok, err := store.Get(out.Commits()[0])
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, action.Entry{Type: "post", Content: "from the heap"}, got)

	_, err = c.call(t, newRuntime(t), heapModule(), "commit")
	assert.ErrorIs(t, err, errors.ErrMemoryExportMissing)
}

func TestCall_CommitTwice(t *testing.T) {
	rt := newRuntime(t)
	c := newChannels()
	store := c.withWorker(t)

	out, err := c.call(t, rt, kitchenSinkModule(), "commit_twice")
	require.NoError(t, err)
	require.Len(t, out.Commits(), 2)

	entries, err := store.Entries()
	require.NoError(t, err)
	assert.ElementsMatch(t, out.Commits(), entries)
}

func TestCall_CommitChannelClosed(t *testing.T) {
	rt := newRuntime(t)
	c := newChannels()
	c.actionsRx.Close()

	out, err := c.call(t, rt, kitchenSinkModule(), "commit")
	assert.Nil(t, out)
	require.ErrorIs(t, err, errors.ErrDispatchChannelClosed)

	var e *errors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errors.PhaseDispatch, e.Phase)
}

func TestCall_CommitAfterWorkerStopped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DispatchTimeout = 5 * time.Second
	rt := newRuntime(t, WithConfig(cfg))
	c := newChannels()

	store, err := state.NewStore(state.BackendMemDB, "")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- state.NewWorker(store, c.actionsRx, c.observersRx).Run(ctx) }()
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	start := time.Now()
	out, err := c.call(t, rt, kitchenSinkModule(), "commit")
	assert.Nil(t, out)
	require.ErrorIs(t, err, errors.ErrDispatchChannelClosed)
	assert.Less(t, time.Since(start), time.Second, "a stopped worker must not run out the dispatch timeout")
}

func TestCall_CommitTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DispatchTimeout = 30 * time.Millisecond
	rt := newRuntime(t, WithConfig(cfg))
	c := newChannels() // nobody answers

	start := time.Now()
	_, err := c.call(t, rt, kitchenSinkModule(), "commit")
	require.ErrorIs(t, err, errors.ErrDispatchTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Len(t, c.actionsRx.C(), 1, "the action was still forwarded")
}

func TestCall_NilChannels(t *testing.T) {
	rt := newRuntime(t)
	_, err := rt.Call(context.Background(), nil, nil, testPrintModule(), "test_print")
	assert.Error(t, err)
}

func TestCall_ConcurrentIndependent(t *testing.T) {
	rt := newRuntime(t)
	c := newChannels()
	bin := kitchenSinkModule()

	const n = 16
	outs := make([]*Outcome, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outs[i], errs[i] = rt.Call(context.Background(), c.actions.Clone(), c.observers.Clone(),
				bin, "emit", api.EncodeI32(int32(i*100)))
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		p := int32(i * 100)
		assert.Equal(t, []int32{p, p + 1, p + 2}, outs[i].DebugOutput(), "call %d", i)
	}
}

func TestCall_ConcurrentCommits(t *testing.T) {
	rt := newRuntime(t)
	c := newChannels()
	store := c.withWorker(t)
	bin := kitchenSinkModule()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := rt.Call(context.Background(), c.actions, c.observers, bin, "commit_twice")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	entries, err := store.Entries()
	require.NoError(t, err)
	assert.Len(t, entries, 2, "identical entries share an address")
}

func TestStage_String(t *testing.T) {
	assert.Equal(t, "memory_primed", StageMemoryPrimed.String())
	assert.Equal(t, "failed", StageFailed.String())
	assert.Equal(t, "stage(42)", Stage(42).String())
}
