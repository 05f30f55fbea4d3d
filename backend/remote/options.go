package remote

import (
	"net/http"
	"time"

	"github.com/jonwraymond/toolgate/backend"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Defaults for remote providers.
const (
	DefaultTerminateTimeout = 3 * time.Second
	DefaultClientName       = "toolgate"
	DefaultClientVersion    = "dev"
)

// Option configures a remote provider.
type Option func(*options)

type options struct {
	connectTimeout   time.Duration
	terminateTimeout time.Duration
	httpClient       *http.Client
	clientName       string
	clientVersion    string
	logger           backend.Logger
	transport        mcp.Transport
}

func defaultOptions() options {
	return options{
		terminateTimeout: DefaultTerminateTimeout,
		clientName:       DefaultClientName,
		clientVersion:    DefaultClientVersion,
	}
}

// WithConnectTimeout bounds Connect, including the handshake and tool
// listing. Zero leaves only the caller's context in charge.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *options) {
		o.connectTimeout = d
	}
}

// WithTerminateTimeout sets how long a stdio child may take to exit after its
// stdin is closed before it is signalled.
func WithTerminateTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.terminateTimeout = d
		}
	}
}

// WithHTTPClient sets the HTTP client used for sse and http transports.
// Descriptor headers are layered on top of its transport.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithClientInfo sets the implementation name and version sent during the
// handshake.
func WithClientInfo(name, version string) Option {
	return func(o *options) {
		if name != "" {
			o.clientName = name
		}
		if version != "" {
			o.clientVersion = version
		}
	}
}

// WithLogger sets the logger for connection events.
func WithLogger(l backend.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithTransport overrides the transport built from the descriptor.
func WithTransport(t mcp.Transport) Option {
	return func(o *options) {
		o.transport = t
	}
}
