package state

import (
	"container/list"
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/ribosome/action"
)

// Worker applies actions to a Store and signals their observers.
// Observers may arrive before or after their action.
type Worker struct {
	store     *Store
	actions   *action.Receiver[action.Action]
	observers *action.Receiver[*action.Observer]
	logger    *zap.Logger

	// outcome of applied actions whose observer has not arrived yet,
	// oldest first in appliedOrder
	applied      map[uuid.UUID]*list.Element
	appliedOrder *list.List
	maxApplied   int
	// observers whose action has not arrived yet
	pending map[uuid.UUID]*action.Observer
}

type appliedEntry struct {
	id  uuid.UUID
	err error
}

// DefaultRetention is how many unobserved outcomes a Worker keeps.
const DefaultRetention = 4096

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithLogger sets the worker's logger.
func WithLogger(l *zap.Logger) WorkerOption {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithRetention bounds the outcomes kept for actions whose observer has not
// arrived. Beyond n the oldest is dropped. n <= 0 means DefaultRetention.
func WithRetention(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.maxApplied = n
		}
	}
}

// NewWorker creates a worker reading from both receivers.
func NewWorker(store *Store, actions *action.Receiver[action.Action], observers *action.Receiver[*action.Observer], opts ...WorkerOption) *Worker {
	w := &Worker{
		store:     store,
		actions:   actions,
		observers: observers,
		logger:    zap.NewNop(),
		pending:   make(map[uuid.UUID]*action.Observer),

		applied:      make(map[uuid.UUID]*list.Element),
		appliedOrder: list.New(),
		maxApplied:   DefaultRetention,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run processes messages until ctx is done or both receivers are closed.
// Actions are applied one at a time in arrival order. Both receivers are
// closed when Run returns, so later sends fail with action.ErrClosed.
func (w *Worker) Run(ctx context.Context) error {
	defer w.actions.Close()
	defer w.observers.Close()

	actionsC, actionsClosed := w.actions.C(), w.actions.Closed()
	observersC, observersClosed := w.observers.C(), w.observers.Closed()

	for actionsC != nil || observersC != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case a := <-actionsC:
			w.apply(a)
		case o := <-observersC:
			w.observe(o)
		case <-actionsClosed:
			actionsC, actionsClosed = nil, nil
		case <-observersClosed:
			observersC, observersClosed = nil, nil
		}
	}
	w.logger.Debug("state worker stopped", zap.Int("pending", len(w.pending)))
	return nil
}

func (w *Worker) apply(a action.Action) {
	var err error
	switch a.Kind {
	case action.KindCommit:
		var addr action.Address
		if addr, err = w.store.Put(a.Entry); err == nil {
			w.logger.Debug("entry committed",
				zap.Stringer("action", a.ID),
				zap.Stringer("address", addr),
				zap.String("type", a.Entry.Type))
		}
	default:
		err = fmt.Errorf("unsupported action kind %q", a.Kind)
	}
	if err != nil {
		w.logger.Warn("action failed", zap.Stringer("action", a.ID), zap.Error(err))
	}

	if o, ok := w.pending[a.ID]; ok {
		delete(w.pending, a.ID)
		o.Signal(err)
		return
	}
	w.retain(a.ID, err)
}

func (w *Worker) observe(o *action.Observer) {
	if el, ok := w.applied[o.ActionID]; ok {
		w.appliedOrder.Remove(el)
		delete(w.applied, o.ActionID)
		o.Signal(el.Value.(*appliedEntry).err)
		return
	}
	w.pending[o.ActionID] = o
}

// retain keeps the outcome of id until its observer arrives.
func (w *Worker) retain(id uuid.UUID, err error) {
	w.applied[id] = w.appliedOrder.PushBack(&appliedEntry{id: id, err: err})
	for w.appliedOrder.Len() > w.maxApplied {
		oldest := w.appliedOrder.Front()
		e := w.appliedOrder.Remove(oldest).(*appliedEntry)
		delete(w.applied, e.id)
		w.logger.Debug("dropped unobserved outcome", zap.Stringer("action", e.id))
	}
}
