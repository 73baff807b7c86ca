// Package inference defines the gateway's view of a text-generation backend:
// an opaque invocation that yields a finite stream of partial-output events,
// plus the aggregation that folds those events into one response.
package inference

import "context"

// Request is the generation request handed to a backend. Body is the
// model-family-specific payload, already serialized; the gateway treats it as
// opaque past this point.
type Request struct {
	ModelID string
	Body    []byte
}

// Event is one partial-output event from a generation stream. Events without
// a text delta carry an empty Delta. A non-nil Err terminates the stream.
type Event struct {
	Delta string
	Err   error
}

// Stream is a finite, non-restartable sequence of events. The producer
// closes the channel when the stream ends.
type Stream <-chan Event

// Invoker starts one generation call. Implementations classify raw backend
// errors into the domain error kinds before returning them.
type Invoker interface {
	Invoke(ctx context.Context, req *Request) (Stream, error)
}
