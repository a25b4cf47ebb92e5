// Package transport implements the HTTPS leg of the qbXML exchange:
// a POST-only client with client-certificate mutual TLS and a peer
// certificate subject check pinned to the gateway operator.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/inercia/qbconnect/internal/logging"
)

// ContentType is the media type the AppGateway expects for qbXML bodies.
const ContentType = "application/x-qbxml"

// DefaultTimeout bounds a single POST exchange end to end.
const DefaultTimeout = 60 * time.Second

// Expected subject fields of the gateway's server certificate. The pattern
// is /C=US/ST=*/L=*/O=Intuit/OU=*/CN=<hostname>: country and organization
// are fixed, the common name must match the endpoint hostname, and the
// remaining fields are wildcards.
const (
	peerCountry      = "US"
	peerOrganization = "Intuit"
)

// Config holds the construction-time transport settings. All TLS material
// is loaded once, up front: a misconfigured identity is a constructor
// error, never a per-request surprise.
type Config struct {
	// URL is the gateway endpoint to POST to.
	URL string

	// CertFile and KeyFile are the PEM files holding the client
	// certificate and its private key.
	CertFile string
	KeyFile  string

	// CAFile is the PEM bundle used to verify the server. Empty means
	// the system root pool.
	CAFile string

	// Timeout bounds each exchange. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Response is the outcome of one HTTP exchange.
type Response struct {
	StatusCode int
	Status     string
	Body       []byte
}

// OK reports whether the exchange succeeded at the HTTP level.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Transport posts qbXML documents to a fixed endpoint over mutual TLS.
// The TLS identity is baked into the underlying http.Client at
// construction, so a Transport is safe for concurrent use.
type Transport struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// New builds a Transport from cfg. It fails if the URL has no parseable
// hostname, if the client keypair cannot be loaded, or if the CA bundle
// cannot be read.
func New(cfg Config) (*Transport, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse gateway URL %q: %w", cfg.URL, err)
	}
	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("gateway URL %q has no hostname", cfg.URL)
	}

	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load client keypair: %w", err)
	}

	var roots *x509.CertPool
	if cfg.CAFile != "" {
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read CA bundle %s: %w", cfg.CAFile, err)
		}
		roots = x509.NewCertPool()
		if !roots.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("CA bundle %s contains no certificates", cfg.CAFile)
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	tlsConfig := &tls.Config{
		Certificates:          []tls.Certificate{cert},
		RootCAs:               roots,
		VerifyPeerCertificate: verifyPeerSubject(host),
	}

	return &Transport{
		url: cfg.URL,
		client: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{TLSClientConfig: tlsConfig},
		},
		logger: logging.Transport(),
	}, nil
}

// verifyPeerSubject returns a chain verifier that rejects any peer whose
// leaf certificate subject does not match the expected gateway identity.
// Chain validity itself has already been checked by the TLS stack.
func verifyPeerSubject(host string) func([][]byte, [][]*x509.Certificate) error {
	return func(rawCerts [][]byte, verifiedChains [][]*x509.Certificate) error {
		var leaf *x509.Certificate
		if len(verifiedChains) > 0 && len(verifiedChains[0]) > 0 {
			leaf = verifiedChains[0][0]
		} else {
			if len(rawCerts) == 0 {
				return fmt.Errorf("peer presented no certificate")
			}
			var err error
			leaf, err = x509.ParseCertificate(rawCerts[0])
			if err != nil {
				return fmt.Errorf("parse peer certificate: %w", err)
			}
		}

		subject := leaf.Subject
		if !contains(subject.Country, peerCountry) {
			return fmt.Errorf("peer certificate country %v, want %s", subject.Country, peerCountry)
		}
		if !contains(subject.Organization, peerOrganization) {
			return fmt.Errorf("peer certificate organization %v, want %s", subject.Organization, peerOrganization)
		}
		if subject.CommonName != host {
			return fmt.Errorf("peer certificate CN %q, want %q", subject.CommonName, host)
		}
		return nil
	}
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

// Post sends one qbXML document and returns the raw HTTP outcome. Transport
// errors (connect, TLS, timeout) are returned as errors; HTTP-level failure
// is reported through Response.StatusCode so the caller can decide.
func (t *Transport) Post(ctx context.Context, body []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", ContentType)

	t.logger.Debug("posting qbXML document", "url", t.url, "bytes", len(body))

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post to %s: %w", t.url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	t.logger.Debug("gateway responded", "status", resp.Status, "bytes", len(data))

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       data,
	}, nil
}
