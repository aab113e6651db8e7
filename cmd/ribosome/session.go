package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/wippyai/ribosome/action"
	"github.com/wippyai/ribosome/runtime"
	"github.com/wippyai/ribosome/state"
)

// session bundles a runtime with an in-process state worker.
type session struct {
	rt        *runtime.Runtime
	store     *state.Store
	actions   *action.Sender[action.Action]
	observers *action.Sender[*action.Observer]
	stop      context.CancelFunc
	done      chan struct{}
}

func openSession(ctx context.Context) (*session, error) {
	store, err := state.NewStore(state.Backend(storeKind), storeDir)
	if err != nil {
		return nil, err
	}

	rt, err := runtime.New(ctx, runtime.WithConfig(config), runtime.WithLogger(logger.Named("runtime")))
	if err != nil {
		store.Close()
		return nil, err
	}

	actions, actionsRx := action.NewChannel[action.Action](64)
	observers, observersRx := action.NewChannel[*action.Observer](64)
	worker := state.NewWorker(store, actionsRx, observersRx, state.WithLogger(logger.Named("state")))

	workerCtx, stop := context.WithCancel(context.Background())
	s := &session{
		rt:        rt,
		store:     store,
		actions:   actions,
		observers: observers,
		stop:      stop,
		done:      make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		if err := worker.Run(workerCtx); err != nil && workerCtx.Err() == nil {
			logger.Error("state worker stopped", zap.Error(err))
		}
	}()
	return s, nil
}

func (s *session) call(ctx context.Context, bytecode []byte, name string, args []uint64) (*runtime.Outcome, error) {
	return s.rt.Call(ctx, s.actions, s.observers, bytecode, name, args...)
}

func (s *session) Close(ctx context.Context) {
	s.stop()
	<-s.done
	if err := s.rt.Close(ctx); err != nil {
		logger.Warn("close runtime", zap.Error(err))
	}
	if err := s.store.Close(); err != nil {
		logger.Warn("close store", zap.Error(err))
	}
}

func readModule(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read module: %w", err)
	}
	return data, nil
}
