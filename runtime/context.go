package runtime

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/ribosome/action"
	"github.com/wippyai/ribosome/engine"
	"github.com/wippyai/ribosome/errors"
	"github.com/wippyai/ribosome/host"
)

// ExecutionContext is the mutable state of one call. It is created fresh for
// every call and consumed exactly once into an Outcome.
type ExecutionContext struct {
	bridge   *action.Bridge
	memory   *engine.Memory
	logger   *zap.Logger
	debug    []int32
	commits  []action.Address
	maxEntry uint32
	consumed bool
}

// NewExecutionContext creates a context holding its own clones of both senders.
func NewExecutionContext(actions *action.Sender[action.Action], observers *action.Sender[*action.Observer], cfg Config, logger *zap.Logger) *ExecutionContext {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecutionContext{
		bridge:   action.NewBridge(actions, observers, cfg.DispatchTimeout, logger),
		logger:   logger,
		maxEntry: cfg.MaxEntrySize,
	}
}

// Print records one debug value.
func (c *ExecutionContext) Print(v int32) {
	c.debug = append(c.debug, v)
}

// Commit dispatches entry and blocks until the state worker applied it.
func (c *ExecutionContext) Commit(ctx context.Context, entry action.Entry) (action.Address, error) {
	addr, err := entry.Address()
	if err != nil {
		return 0, errors.MarshalFailed(errors.PhaseExecute, "address entry", err)
	}

	a := action.NewCommit(entry)
	if err := c.bridge.DispatchAndWait(ctx, a); err != nil {
		return 0, err
	}
	c.commits = append(c.commits, addr)
	c.logger.Debug("commit applied",
		zap.Stringer("address", addr),
		zap.String("type", entry.Type),
		zap.Int("size", len(entry.Content)))
	return addr, nil
}

// MaxEntrySize bounds commit arguments.
func (c *ExecutionContext) MaxEntrySize() uint32 {
	return c.maxEntry
}

// Memory returns the primed guest memory, or nil before priming.
func (c *ExecutionContext) Memory() *engine.Memory {
	return c.memory
}

func (c *ExecutionContext) setMemory(m *engine.Memory) {
	c.memory = m
}

// Finish consumes the context into an Outcome. It fails on a second call.
func (c *ExecutionContext) Finish(result string) (*Outcome, error) {
	if c.consumed {
		return nil, errors.InvalidInput(errors.PhaseExtract, "execution context already consumed")
	}
	c.consumed = true

	out := &Outcome{
		debug:   c.debug,
		commits: c.commits,
		result:  result,
	}
	c.debug, c.commits, c.memory = nil, nil, nil
	return out, nil
}

var _ host.Session = (*ExecutionContext)(nil)

// Outcome is the immutable result of a successful call.
type Outcome struct {
	result  string
	debug   []int32
	commits []action.Address
}

// DebugOutput returns the values printed by the guest, in order.
func (o *Outcome) DebugOutput() []int32 {
	out := make([]int32, len(o.debug))
	copy(out, o.debug)
	return out
}

// Result returns the export's return value in decimal form.
func (o *Outcome) Result() string {
	return o.result
}

// Commits returns the addresses of applied entries, in commit order.
func (o *Outcome) Commits() []action.Address {
	out := make([]action.Address, len(o.commits))
	copy(out, o.commits)
	return out
}
