// Package client implements the session-managing qbXML client for the
// QuickBooks Online Edition AppGateway. It owns exactly one session ticket
// at a time, checks its dual expirations lazily, renews it on demand, and
// wraps caller-supplied request bodies in the appropriate sign-on envelope
// before handing them to the transport.
//
// A Client is NOT safe for concurrent use: session operations read and then
// write ticket state without internal locking. Callers sharing one Client
// across goroutines must serialize access themselves.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/inercia/qbconnect/internal/logging"
	"github.com/inercia/qbconnect/internal/qbxml"
	"github.com/inercia/qbconnect/internal/transport"
)

const (
	// DefaultURL is the production AppGateway endpoint.
	DefaultURL = "https://webapps.quickbooks.com/j/AppGateway"

	// DefaultAppVer is the application version reported during sign-on.
	DefaultAppVer = "1"

	// DefaultLanguage is the language reported during sign-on.
	DefaultLanguage = "English"

	// Default session windows. Both are shaved by ten seconds so a ticket
	// that is valid when a request leaves the client is still valid when
	// it reaches the gateway, even with modest clock skew.
	DefaultIssueWindow = 24*time.Hour - 10*time.Second
	DefaultUseWindow   = time.Hour - 10*time.Second

	// clientDateTimeLayout is the timestamp format the gateway expects in
	// ClientDateTime elements.
	clientDateTimeLayout = "2006-01-02T15:04:05"
)

// Poster is the HTTP leg of the exchange. *transport.Transport implements
// it; tests substitute a stub.
type Poster interface {
	Post(ctx context.Context, body []byte) (*transport.Response, error)
}

// Config identifies the calling application and its TLS material. All
// fields are fixed at construction except the connection ticket, which may
// be rotated later via SetConnectionTicket.
type Config struct {
	// URL is the gateway endpoint. Empty means DefaultURL.
	URL string

	// CertFile and KeyFile hold the client certificate issued for this
	// application. Required.
	CertFile string
	KeyFile  string

	// CAFile is the CA bundle for verifying the gateway. Empty means the
	// system root pool.
	CAFile string

	// ApplicationLogin and AppID identify the application. Required.
	ApplicationLogin string
	AppID            string

	// AppVer defaults to DefaultAppVer, Language to DefaultLanguage.
	AppVer   string
	Language string

	// ConnectionTicket is the long-lived credential issued out of band.
	// It may also be supplied later via SetConnectionTicket.
	ConnectionTicket string
}

// Client performs qbXML exchanges against a single gateway endpoint.
type Client struct {
	cfg       Config
	qbVersion string

	transport Poster
	limiter   *rate.Limiter
	logger    *slog.Logger

	connectionTicket string
	session          Session

	issueWindow time.Duration
	useWindow   time.Duration
	now         func() time.Time
}

// Option configures a Client beyond its Config.
type Option func(*Client)

// WithTransport substitutes the HTTPS collaborator. The client then skips
// building its own mutual-TLS transport, so the certificate files in Config
// are not touched.
func WithTransport(p Poster) Option {
	return func(c *Client) {
		c.transport = p
	}
}

// WithQBXMLVersion overrides the qbXML protocol version (default
// qbxml.DefaultVersion).
func WithQBXMLVersion(version string) Option {
	return func(c *Client) {
		c.qbVersion = version
	}
}

// WithSessionWindows overrides the default issue and use expiry windows.
// Mostly useful in tests and for gateways with non-standard session policy.
func WithSessionWindows(issue, use time.Duration) Option {
	return func(c *Client) {
		c.issueWindow = issue
		c.useWindow = use
	}
}

// WithRateLimit throttles outgoing exchanges to rps requests per second
// with the given burst. The AppGateway rate-limits aggressively; a local
// limiter turns hard 5xx failures into short waits.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger used for exchange tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New validates cfg, applies defaults, and builds a Client. Configuration
// problems (missing required fields, URL without a hostname, unloadable TLS
// material) are reported eagerly, wrapped in ErrConfig.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.AppVer == "" {
		cfg.AppVer = DefaultAppVer
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}

	if cfg.ApplicationLogin == "" {
		return nil, fmt.Errorf("%w: application login is required", ErrConfig)
	}
	if cfg.AppID == "" {
		return nil, fmt.Errorf("%w: app id is required", ErrConfig)
	}
	if cfg.CertFile == "" {
		return nil, fmt.Errorf("%w: certificate file is required", ErrConfig)
	}
	if cfg.KeyFile == "" {
		return nil, fmt.Errorf("%w: key file is required", ErrConfig)
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: gateway URL %q: %v", ErrConfig, cfg.URL, err)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: gateway URL %q has no hostname", ErrConfig, cfg.URL)
	}

	c := &Client{
		cfg:              cfg,
		qbVersion:        qbxml.DefaultVersion,
		connectionTicket: cfg.ConnectionTicket,
		issueWindow:      DefaultIssueWindow,
		useWindow:        DefaultUseWindow,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.Client()
	}

	if c.transport == nil {
		t, err := transport.New(transport.Config{
			URL:      cfg.URL,
			CertFile: cfg.CertFile,
			KeyFile:  cfg.KeyFile,
			CAFile:   cfg.CAFile,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfig, err)
		}
		c.transport = t
	}

	return c, nil
}

// SetConnectionTicket installs a new connection ticket and clears any
// current session: a session negotiated under the old connection identity
// is meaningless under the new one. The clear is an explicit call here, not
// a side effect hidden in a property observer.
func (c *Client) SetConnectionTicket(ticket string) {
	c.connectionTicket = ticket
	c.ClearSession()
}

// post runs one HTTP exchange, honoring the optional rate limiter.
func (c *Client) post(ctx context.Context, body []byte) (*transport.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}
	return c.transport.Post(ctx, body)
}
