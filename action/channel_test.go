package action

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannel_SendReceive(t *testing.T) {
	tx, rx := NewChannel[int](2)
	ctx := context.Background()

	require.NoError(t, tx.Send(ctx, 1))
	require.NoError(t, tx.Clone().Send(ctx, 2))

	assert.Equal(t, 1, <-rx.C())
	assert.Equal(t, 2, <-rx.C())
}

func TestChannel_SendAfterClose(t *testing.T) {
	tx, rx := NewChannel[int](1)
	clone := tx.Clone()
	rx.Close()
	rx.Close()

	assert.ErrorIs(t, tx.Send(context.Background(), 1), ErrClosed)
	assert.ErrorIs(t, clone.Send(context.Background(), 1), ErrClosed)

	select {
	case <-tx.Closed():
	default:
		t.Fatal("sender should observe the hang-up")
	}
}

func TestChannel_CloseUnblocksSender(t *testing.T) {
	tx, rx := NewChannel[int](0)

	errc := make(chan error, 1)
	go func() {
		errc <- tx.Send(context.Background(), 1)
	}()

	time.Sleep(10 * time.Millisecond)
	rx.Close()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("Send did not return after Close")
	}
}

func TestChannel_SendContext(t *testing.T) {
	tx, _ := NewChannel[int](0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, tx.Send(ctx, 1), context.DeadlineExceeded)
}
