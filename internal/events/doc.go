// Package events relays session lifecycle events to a caller-supplied sink.
//
// A [Dispatcher] buffers events and delivers them from one goroutine, so a
// slow sink never stalls sign-in, sign-out or renewal. When the buffer is full
// it either drops the event (counted in [Dispatcher.Dropped]) or blocks the
// emitter until space frees up or its context ends.
//
// The package does not decide which events exist beyond the [Type] constants;
// the root client emits them.
package events
