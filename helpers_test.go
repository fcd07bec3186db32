package dclist

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/bwmarrin/snowflake"

	"github.com/jamesprial/dclist-go/transport"
)

// ---------------------------------------------------------------------------
// Mock transport
// ---------------------------------------------------------------------------

// mockTransport is a configurable transport.Transport for tests. Nil funcs
// fail the test when called.
type mockTransport struct {
	t             *testing.T
	executeFunc   func(ctx context.Context, req transport.Request) ([]byte, error)
	subscribeFunc func(ctx context.Context, req transport.Request) (transport.Stream, error)

	mu       sync.Mutex
	requests []transport.Request
}

var _ transport.Transport = (*mockTransport)(nil)

func (m *mockTransport) Execute(ctx context.Context, req transport.Request) ([]byte, error) {
	m.record(req)
	if m.executeFunc == nil {
		m.t.Fatalf("unexpected Execute(%s)", req.OperationName)
	}
	return m.executeFunc(ctx, req)
}

func (m *mockTransport) Subscribe(ctx context.Context, req transport.Request) (transport.Stream, error) {
	m.record(req)
	if m.subscribeFunc == nil {
		m.t.Fatalf("unexpected Subscribe(%s)", req.OperationName)
	}
	return m.subscribeFunc(ctx, req)
}

func (m *mockTransport) record(req transport.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
}

func (m *mockTransport) calls() []transport.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]transport.Request(nil), m.requests...)
}

// respond returns an executeFunc that always answers body.
func respond(body string) func(context.Context, transport.Request) ([]byte, error) {
	return func(context.Context, transport.Request) ([]byte, error) {
		return []byte(body), nil
	}
}

// ---------------------------------------------------------------------------
// Mock stream
// ---------------------------------------------------------------------------

// mockStream yields payloads in order, then ends with err.
type mockStream struct {
	payloads []string
	err      error

	pos     int
	current []byte
	closed  int
}

var _ transport.Stream = (*mockStream)(nil)

func (s *mockStream) Next() bool {
	if s.closed > 0 || s.pos >= len(s.payloads) {
		return false
	}
	s.current = []byte(s.payloads[s.pos])
	s.pos++
	return true
}

func (s *mockStream) Payload() []byte { return s.current }

func (s *mockStream) Err() error {
	if s.pos < len(s.payloads) {
		return nil
	}
	return s.err
}

func (s *mockStream) Close() error {
	s.closed++
	return nil
}

// ---------------------------------------------------------------------------
// Mock host
// ---------------------------------------------------------------------------

type mockHost struct {
	StaticHost
	readyErr   error
	readyCalls int
}

func (h *mockHost) WaitUntilReady(context.Context) error {
	h.readyCalls++
	return h.readyErr
}

var _ Host = (*mockHost)(nil)

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

const (
	testBotID   snowflake.ID = 297343587538960384
	testOwnerID snowflake.ID = 272442568275525634
)

// newTestLogger returns a debug-level logger writing text to buf.
func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	var w io.Writer = io.Discard
	if buf != nil {
		w = buf
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// newTestClient builds a Client over mock transports with a token.
func newTestClient(t *testing.T, host Host, httpT, wsT *mockTransport, opts ...Option) *Client {
	t.Helper()
	if httpT == nil {
		httpT = &mockTransport{t: t}
	}
	if wsT == nil {
		wsT = &mockTransport{t: t}
	}
	all := append([]Option{
		WithToken("test-token"),
		WithHTTPTransport(httpT),
		WithWebSocketTransport(wsT),
		WithLogger(newTestLogger(nil)),
	}, opts...)
	c, err := New(host, all...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}
