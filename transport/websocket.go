package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Subprotocols spoken by the WebSocket binding, in preference order.
const (
	ProtocolTransportWS = "graphql-transport-ws"
	ProtocolLegacyWS    = "graphql-ws"
)

// message types shared by both subprotocols
const (
	msgConnectionInit  = "connection_init"
	msgConnectionAck   = "connection_ack"
	msgConnectionError = "connection_error"
	msgKeepAlive       = "ka"
	msgPing            = "ping"
	msgPong            = "pong"
	msgError           = "error"
	msgComplete        = "complete"
)

// vocabulary holds the message names that differ between subprotocols.
type vocabulary struct {
	subscribe string
	next      string
	stop      string
}

var vocabularies = map[string]vocabulary{
	ProtocolTransportWS: {subscribe: "subscribe", next: "next", stop: "complete"},
	ProtocolLegacyWS:    {subscribe: "start", next: "data", stop: "stop"},
}

type wsMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WebSocket runs GraphQL operations over a persistent socket. Every call dials
// its own connection.
type WebSocket struct {
	dialer *websocket.Dialer
	url    string
	auth   string
}

var _ Transport = (*WebSocket)(nil)

// WebSocketOption configures a WebSocket binding.
type WebSocketOption func(*WebSocket)

// WithWebSocketURL overrides the endpoint.
func WithWebSocketURL(url string) WebSocketOption { return func(w *WebSocket) { w.url = url } }

// WithDialer replaces the gorilla dialer. Its Subprotocols are overwritten.
func WithDialer(d *websocket.Dialer) WebSocketOption {
	return func(w *WebSocket) { w.dialer = d }
}

// WithWebSocketAuth sets the Authorization value sent both as a handshake
// header and inside the connection_init payload. The dclist.net socket
// endpoint expects the Sdk scheme.
func WithWebSocketAuth(scheme, token string) WebSocketOption {
	return func(w *WebSocket) { w.auth = authHeader(scheme, token) }
}

// NewWebSocket returns a WebSocket binding for DefaultWebSocketURL.
func NewWebSocket(opts ...WebSocketOption) *WebSocket {
	w := &WebSocket{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 45 * time.Second,
		},
		url: DefaultWebSocketURL,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Execute runs req as a single-result operation: the first result payload is
// returned and the connection is closed.
func (w *WebSocket) Execute(ctx context.Context, req Request) ([]byte, error) {
	s, err := w.Subscribe(ctx, req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = s.Close() }()

	if s.Next() {
		return s.Payload(), nil
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return nil, &Error{Err: errors.New("operation completed without a result")}
}

// Subscribe dials, performs the connection_init handshake, and starts req.
// The returned stream owns the connection.
func (w *WebSocket) Subscribe(ctx context.Context, req Request) (Stream, error) {
	dialer := *w.dialer
	dialer.Subprotocols = []string{ProtocolTransportWS, ProtocolLegacyWS}

	header := http.Header{}
	if w.auth != "" {
		header.Set("Authorization", w.auth)
	}

	conn, resp, err := dialer.DialContext(ctx, w.url, header)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, dialError(resp, err)
	}

	s := &wsStream{
		conn: conn,
		ctx:  ctx,
		id:   uuid.NewString(),
	}
	// Unblocks any pending read once ctx is done.
	s.stopWatch = context.AfterFunc(ctx, func() { _ = conn.Close() })

	vocab, ok := vocabularies[conn.Subprotocol()]
	if !ok {
		// Servers that do not echo a subprotocol speak the legacy one.
		vocab = vocabularies[ProtocolLegacyWS]
	}
	s.vocab = vocab

	if err := s.handshake(w.initPayload()); err != nil {
		_ = s.Close()
		return nil, err
	}

	payload, err := json.Marshal(req)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("transport: marshal request: %w", err)
	}
	if err := s.write(wsMessage{ID: s.id, Type: vocab.subscribe, Payload: payload}); err != nil {
		_ = s.Close()
		return nil, s.readErr(err)
	}
	return s, nil
}

func (w *WebSocket) initPayload() json.RawMessage {
	if w.auth == "" {
		return nil
	}
	b, _ := json.Marshal(map[string]any{
		"headers": map[string]string{"Authorization": w.auth},
	})
	return b
}

func dialError(resp *http.Response, err error) error {
	if resp == nil {
		return fmt.Errorf("transport: dial: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)
	return &Error{StatusCode: resp.StatusCode, Body: body, Err: err}
}

// wsStream reads results for one operation on one connection.
type wsStream struct {
	conn      *websocket.Conn
	ctx       context.Context
	id        string
	vocab     vocabulary
	stopWatch func() bool

	payload   []byte
	err       error
	done      bool
	closeOnce sync.Once
}

func (s *wsStream) handshake(init json.RawMessage) error {
	if err := s.write(wsMessage{Type: msgConnectionInit, Payload: init}); err != nil {
		return s.readErr(err)
	}
	for {
		msg, err := s.read()
		if err != nil {
			if err == io.EOF {
				return &Error{Err: errors.New("connection closed before connection_ack")}
			}
			return err
		}
		switch msg.Type {
		case msgConnectionAck:
			return nil
		case msgConnectionError, msgError:
			return &Error{Body: msg.Payload}
		case msgPing:
			if err := s.write(wsMessage{Type: msgPong}); err != nil {
				return s.readErr(err)
			}
		}
	}
}

func (s *wsStream) write(msg wsMessage) error {
	return s.conn.WriteJSON(msg)
}

// read returns the next protocol message, io.EOF on a normal close, or the
// failure that ended the connection.
func (s *wsStream) read() (wsMessage, error) {
	var msg wsMessage
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && s.ctx.Err() == nil {
			return msg, io.EOF
		}
		return msg, s.readErr(err)
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, &Error{Body: data}
	}
	return msg, nil
}

func (s *wsStream) readErr(err error) error {
	if ctxErr := s.ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return &Error{Err: err}
}

// Next blocks until the next result arrives. It returns false once the
// server completes the operation, closes the connection, or reports an error,
// and when the context is cancelled.
func (s *wsStream) Next() bool {
	if s.done {
		return false
	}
	for {
		msg, err := s.read()
		if err != nil {
			if err == io.EOF {
				err = nil
			}
			s.finish(err)
			return false
		}
		if msg.ID != "" && msg.ID != s.id {
			continue
		}
		switch msg.Type {
		case s.vocab.next:
			s.payload = msg.Payload
			return true
		case msgError, msgConnectionError:
			s.finish(&Error{Body: msg.Payload})
			return false
		case msgComplete:
			s.finish(nil)
			return false
		case msgPing:
			if err := s.write(wsMessage{Type: msgPong}); err != nil {
				s.finish(s.readErr(err))
				return false
			}
		case msgKeepAlive, msgPong, msgConnectionAck:
		}
	}
}

func (s *wsStream) finish(err error) {
	s.err = err
	s.done = true
	s.payload = nil
}

func (s *wsStream) Payload() []byte { return s.payload }

func (s *wsStream) Err() error { return s.err }

// Close stops the operation if it is still running and closes the
// connection. It is safe to call more than once.
func (s *wsStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.stopWatch()
		if !s.done && s.ctx.Err() == nil {
			_ = s.write(wsMessage{ID: s.id, Type: s.vocab.stop})
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
		}
		s.done = true
		err = s.conn.Close()
	})
	return err
}
