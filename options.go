package dclist

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jamesprial/dclist-go/transport"
)

// EnvToken is consulted when no token is passed with WithToken.
const EnvToken = "DCLIST_TOKEN"

// Authorization schemes expected by each dclist.net endpoint.
const (
	HTTPAuthScheme      = "Bearer"
	WebSocketAuthScheme = "Sdk"
)

type options struct {
	token          string
	httpTransport  transport.Transport
	wsTransport    transport.Transport
	forceWebSocket bool
	logger         *slog.Logger
	registerer     prometheus.Registerer
}

// Option configures a Client.
type Option func(*options)

// WithToken sets the dclist.net API token. An empty token is ignored.
func WithToken(token string) Option {
	return func(o *options) {
		if token != "" {
			o.token = token
		}
	}
}

// WithHTTPTransport replaces the request/response binding. The transport is
// used as given; it is responsible for its own authentication.
func WithHTTPTransport(t transport.Transport) Option {
	return func(o *options) { o.httpTransport = t }
}

// WithWebSocketTransport replaces the binding used for subscriptions and,
// with WithForceWebSocket, for every operation.
func WithWebSocketTransport(t transport.Transport) Option {
	return func(o *options) { o.wsTransport = t }
}

// WithForceWebSocket routes queries and mutations over the WebSocket
// binding too.
func WithForceWebSocket(force bool) Option {
	return func(o *options) { o.forceWebSocket = force }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics registers the client's Prometheus collectors on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}
