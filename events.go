package goSession

import (
	"io"

	"github.com/MrEthical07/goSession/internal/events"
)

// Event is one session lifecycle record delivered to an EventSink.
type Event = events.Event

// EventType names a lifecycle transition.
type EventType = events.Type

// EventSink receives lifecycle events from a background goroutine.
type EventSink = events.Sink

// NoOpSink discards events.
type NoOpSink = events.NoOpSink

// ChannelSink exposes events on a buffered channel.
type ChannelSink = events.ChannelSink

// JSONWriterSink writes events as JSON lines.
type JSONWriterSink = events.JSONWriterSink

const (
	EventSignedIn      = events.TypeSignedIn
	EventSignedUp      = events.TypeSignedUp
	EventSignedOut     = events.TypeSignedOut
	EventRenewed       = events.TypeRenewed
	EventRenewalFailed = events.TypeRenewalFailed
	EventRestored      = events.TypeRestored
)

// NewChannelSink returns a ChannelSink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return events.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink writing one JSON object per line to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return events.NewJSONWriterSink(w)
}
