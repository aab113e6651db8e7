package action

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/ribosome/errors"
)

// Channel names used in dispatch errors.
const (
	ChannelActions   = "actions"
	ChannelObservers = "observers"
)

// Bridge forwards actions to the state worker and waits for their observers.
// A Bridge holds its own clones of both senders.
type Bridge struct {
	actions   *Sender[Action]
	observers *Sender[*Observer]
	logger    *zap.Logger
	timeout   time.Duration
}

// NewBridge creates a bridge. A zero timeout waits forever; a nil logger logs nothing.
func NewBridge(actions *Sender[Action], observers *Sender[*Observer], timeout time.Duration, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		actions:   actions.Clone(),
		observers: observers.Clone(),
		timeout:   timeout,
		logger:    logger,
	}
}

// DispatchAndWait sends a, registers an observer for it and blocks until the
// worker signals that the mutation is applied.
func (b *Bridge) DispatchAndWait(ctx context.Context, a Action) error {
	waitCtx := ctx
	if b.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	log := b.logger.With(zap.Stringer("action", a.ID), zap.String("kind", string(a.Kind)))
	start := time.Now()

	if err := b.actions.Send(waitCtx, a); err != nil {
		return b.sendError(ctx, ChannelActions, err)
	}

	obs := NewObserver(a.ID)
	if err := b.observers.Send(waitCtx, obs); err != nil {
		return b.sendError(ctx, ChannelObservers, err)
	}
	log.Debug("action dispatched")

	select {
	case err := <-obs.Done():
		return b.settled(log, err, start)
	case <-b.observers.Closed():
		// The worker may have signaled right before hanging up.
		select {
		case err := <-obs.Done():
			return b.settled(log, err, start)
		default:
		}
		log.Warn("observer channel closed while waiting")
		return errors.DispatchChannelClosed(ChannelObservers, ErrClosed)
	case <-waitCtx.Done():
		log.Warn("dispatch wait aborted", zap.Duration("elapsed", time.Since(start)), zap.Error(waitCtx.Err()))
		return b.timeoutError(ctx, waitCtx.Err())
	}
}

func (b *Bridge) settled(log *zap.Logger, err error, start time.Time) error {
	if err != nil {
		log.Warn("action rejected", zap.Error(err))
		return errors.DispatchRejected(err)
	}
	log.Debug("action applied", zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (b *Bridge) sendError(ctx context.Context, channel string, err error) error {
	if stderrors.Is(err, ErrClosed) {
		b.logger.Warn("dispatch channel closed", zap.String("channel", channel))
		return errors.DispatchChannelClosed(channel, err)
	}
	return b.timeoutError(ctx, err)
}

func (b *Bridge) timeoutError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return errors.DispatchTimeout("call context done", err)
	}
	return errors.DispatchTimeout(fmt.Sprintf("observer not signaled within %s", b.timeout), err)
}
