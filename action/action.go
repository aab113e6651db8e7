package action

import (
	"sync"

	"github.com/google/uuid"
)

// Kind tags what an Action asks the worker to do.
type Kind string

const (
	// KindCommit stores an Entry.
	KindCommit Kind = "commit"
)

// Action is a state mutation request. The ribosome builds and forwards it but
// never interprets it.
type Action struct {
	Entry Entry
	Kind  Kind
	ID    uuid.UUID
}

// NewCommit wraps an entry in a commit action with a fresh ID.
func NewCommit(entry Entry) Action {
	return Action{
		ID:    uuid.New(),
		Kind:  KindCommit,
		Entry: entry,
	}
}

// Observer is a completion registration for one action.
type Observer struct {
	done     chan error
	ActionID uuid.UUID
	once     sync.Once
}

// NewObserver creates an unsignaled observer for the action with this ID.
func NewObserver(id uuid.UUID) *Observer {
	return &Observer{
		ActionID: id,
		done:     make(chan error, 1),
	}
}

// Signal reports the outcome of the action. A nil error means the mutation is
// applied and visible. Only the first signal counts.
func (o *Observer) Signal(err error) {
	o.once.Do(func() {
		o.done <- err
		close(o.done)
	})
}

// Done delivers the signaled outcome.
func (o *Observer) Done() <-chan error {
	return o.done
}
