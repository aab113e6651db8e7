// Package action carries guest state mutations to the external state worker.
//
// An Entry is the unit a guest commits. Its Address is the farm hash of its
// msgpack encoding. A commit is wrapped in an Action and forwarded on the action
// channel; an Observer with the same ID is registered on the observer channel
// and signaled by the worker once the mutation is applied.
//
// Channels are split into a send-only Sender and a Receiver. Senders can be
// cloned freely; once the Receiver is closed every send fails with ErrClosed.
//
// Bridge turns this asynchronous protocol into a blocking call:
//
//	bridge := action.NewBridge(actions, observers, 30*time.Second, logger)
//	if err := bridge.DispatchAndWait(ctx, action.NewCommit(entry)); err != nil {
//		// dispatch_channel_closed, dispatch_rejected or dispatch_timeout
//	}
package action
