package host

import (
	"context"

	"github.com/wippyai/ribosome/action"
	"github.com/wippyai/ribosome/engine"
)

// Session is the per-call state host functions act on.
type Session interface {
	// Print records a debug value.
	Print(v int32)
	// Commit dispatches an entry and blocks until the store applied it.
	Commit(ctx context.Context, entry action.Entry) (action.Address, error)
	// MaxEntrySize bounds each blob read from guest memory.
	MaxEntrySize() uint32
	// Memory is the guest memory handlers read from. nil falls back to the
	// calling module's own memory.
	Memory() *engine.Memory
}

// Call is what a handler sees of the running guest.
type Call struct {
	Session Session
	Memory  *engine.Memory
}

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const sessionKey contextKey = "session"

// WithSession attaches the session host functions will use for calls made
// with the returned context.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFrom returns the session attached to ctx, or nil.
func SessionFrom(ctx context.Context) Session {
	s, _ := ctx.Value(sessionKey).(Session)
	return s
}
