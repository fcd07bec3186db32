// Package transport carries GraphQL operations to the dclist.net API. It
// defines the Transport interface the client depends on and two bindings:
// HTTP request/response and a WebSocket binding that also serves
// subscriptions.
package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
)

// Default dclist.net endpoints.
const (
	DefaultHTTPURL      = "https://api.dclist.net/graphql"
	DefaultWebSocketURL = "wss://api.dclist.net/subscribe"
)

// ErrSubscriptionsUnsupported is returned by bindings that cannot stream.
var ErrSubscriptionsUnsupported = errors.New("transport: subscriptions are not supported by this binding")

// Request is a single GraphQL operation.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`

	// Kind is informational; bindings do not branch on it.
	Kind ast.Operation `json:"-"`
}

// Transport executes GraphQL operations. Each call owns its own connection
// and releases it before returning (Execute) or when the stream is closed,
// exhausted, or its context is cancelled (Subscribe). Implementations make
// exactly one attempt per call.
type Transport interface {
	// Execute performs one round trip and returns the raw response body.
	Execute(ctx context.Context, req Request) ([]byte, error)
	// Subscribe opens a long-lived operation that yields raw payloads.
	Subscribe(ctx context.Context, req Request) (Stream, error)
}

// Stream is an order-preserving sequence of raw payloads.
//
//	for s.Next() {
//		use(s.Payload())
//	}
//	if err := s.Err(); err != nil { ... }
type Stream interface {
	Next() bool
	Payload() []byte
	Err() error
	Close() error
}

// Error is a failure reported by the remote side: a non-2xx HTTP response or
// a protocol-level error message. Body holds whatever the server sent and is
// decoded by the caller.
type Error struct {
	StatusCode int
	Body       []byte
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("transport: %v", e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("transport: HTTP %d: %s", e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("transport: %s", e.Body)
	}
}

func (e *Error) Unwrap() error { return e.Err }
