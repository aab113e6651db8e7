package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/ribosome/action"
)

type fixture struct {
	store       *Store
	actions     *action.Sender[action.Action]
	actionsRx   *action.Receiver[action.Action]
	observers   *action.Sender[*action.Observer]
	observersRx *action.Receiver[*action.Observer]
	done        chan error
}

func startWorker(t *testing.T, opts ...WorkerOption) *fixture {
	t.Helper()

	store, err := NewStore(BackendMemDB, "")
	require.NoError(t, err)

	f := &fixture{store: store, done: make(chan error, 1)}
	f.actions, f.actionsRx = action.NewChannel[action.Action](8)
	f.observers, f.observersRx = action.NewChannel[*action.Observer](8)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	w := NewWorker(store, f.actionsRx, f.observersRx, opts...)
	go func() { f.done <- w.Run(ctx) }()
	return f
}

func wait(t *testing.T, o *action.Observer) error {
	t.Helper()
	select {
	case err := <-o.Done():
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("observer was not signaled")
		return nil
	}
}

func TestWorker_ActionThenObserver(t *testing.T) {
	f := startWorker(t)
	ctx := context.Background()

	e := action.Entry{Type: "post", Content: "first"}
	a := action.NewCommit(e)
	require.NoError(t, f.actions.Send(ctx, a))
	o := action.NewObserver(a.ID)
	require.NoError(t, f.observers.Send(ctx, o))

	require.NoError(t, wait(t, o))

	addr, err := e.Address()
	require.NoError(t, err)
	has, err := f.store.Has(addr)
	require.NoError(t, err)
	assert.True(t, has, "entry must be visible once the observer fired")
}

func TestWorker_ObserverThenAction(t *testing.T) {
	f := startWorker(t)
	ctx := context.Background()

	a := action.NewCommit(action.Entry{Type: "post", Content: "early observer"})
	o := action.NewObserver(a.ID)
	require.NoError(t, f.observers.Send(ctx, o))

	select {
	case <-o.Done():
		t.Fatal("observer signaled before its action arrived")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, f.actions.Send(ctx, a))
	require.NoError(t, wait(t, o))
}

func TestWorker_UnsupportedKind(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	f := startWorker(t, WithLogger(zap.New(core)))
	ctx := context.Background()

	a := action.Action{ID: action.NewCommit(action.Entry{}).ID, Kind: "delete"}
	require.NoError(t, f.actions.Send(ctx, a))
	o := action.NewObserver(a.ID)
	require.NoError(t, f.observers.Send(ctx, o))

	err := wait(t, o)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported action kind")
	assert.Equal(t, 1, logs.FilterMessage("action failed").Len())
}

func TestWorker_ManyActions(t *testing.T) {
	f := startWorker(t)
	ctx := context.Background()

	var observers []*action.Observer
	for _, c := range []string{"a", "b", "c", "d", "e"} {
		a := action.NewCommit(action.Entry{Type: "letter", Content: c})
		require.NoError(t, f.actions.Send(ctx, a))
		o := action.NewObserver(a.ID)
		require.NoError(t, f.observers.Send(ctx, o))
		observers = append(observers, o)
	}
	for _, o := range observers {
		require.NoError(t, wait(t, o))
	}

	entries, err := f.store.Entries()
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}

func TestWorker_StopsWhenReceiversClosed(t *testing.T) {
	f := startWorker(t)

	f.actionsRx.Close()
	f.observersRx.Close()

	select {
	case err := <-f.done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestWorker_StopsOnContext(t *testing.T) {
	store, err := NewStore(BackendMemDB, "")
	require.NoError(t, err)
	atx, arx := action.NewChannel[action.Action](4)
	otx, orx := action.NewChannel[*action.Observer](4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewWorker(store, arx, orx).Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}

	// a stopped worker hangs up both channels
	bg := context.Background()
	a := action.NewCommit(action.Entry{Type: "post", Content: "late"})
	assert.ErrorIs(t, atx.Send(bg, a), action.ErrClosed)
	assert.ErrorIs(t, otx.Send(bg, action.NewObserver(a.ID)), action.ErrClosed)
}

func TestWorker_Retention(t *testing.T) {
	f := startWorker(t, WithRetention(2))
	ctx := context.Background()

	var sent []action.Action
	for _, c := range []string{"a", "b", "c"} {
		a := action.NewCommit(action.Entry{Type: "letter", Content: c})
		require.NoError(t, f.actions.Send(ctx, a))
		sent = append(sent, a)
	}
	// actions are applied in order, so once the last one is observed the
	// first three have been applied too
	last := action.NewCommit(action.Entry{Type: "letter", Content: "d"})
	require.NoError(t, f.actions.Send(ctx, last))
	lastObs := action.NewObserver(last.ID)
	require.NoError(t, f.observers.Send(ctx, lastObs))
	require.NoError(t, wait(t, lastObs))

	dropped := action.NewObserver(sent[0].ID)
	require.NoError(t, f.observers.Send(ctx, dropped))
	select {
	case <-dropped.Done():
		t.Fatal("outcome beyond the retention bound was kept")
	case <-time.After(20 * time.Millisecond):
	}

	kept := action.NewObserver(sent[2].ID)
	require.NoError(t, f.observers.Send(ctx, kept))
	require.NoError(t, wait(t, kept))
}
