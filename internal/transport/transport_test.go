package transport_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"io"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/inercia/qbconnect/internal/transport"
)

// testPKI holds a throwaway CA plus server and client identities for
// exercising the mutual-TLS path against a local httptest server.
type testPKI struct {
	caPEM      []byte
	caPool     *x509.CertPool
	serverCert tls.Certificate
	clientCert []byte
	clientKey  []byte
}

func newTestPKI(t *testing.T, serverSubject pkix.Name) *testPKI {
	t.Helper()

	caKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate CA key: %v", err)
	}
	caTemplate := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "qbconnect test CA"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}
	caDER, err := x509.CreateCertificate(rand.Reader, caTemplate, caTemplate, &caKey.PublicKey, caKey)
	if err != nil {
		t.Fatalf("create CA certificate: %v", err)
	}
	caCert, err := x509.ParseCertificate(caDER)
	if err != nil {
		t.Fatalf("parse CA certificate: %v", err)
	}

	issue := func(serial int64, subject pkix.Name, usage x509.ExtKeyUsage, ips []net.IP) ([]byte, []byte) {
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			t.Fatalf("generate key: %v", err)
		}
		template := &x509.Certificate{
			SerialNumber: big.NewInt(serial),
			Subject:      subject,
			NotBefore:    time.Now().Add(-time.Hour),
			NotAfter:     time.Now().Add(time.Hour),
			KeyUsage:     x509.KeyUsageDigitalSignature,
			ExtKeyUsage:  []x509.ExtKeyUsage{usage},
			IPAddresses:  ips,
		}
		der, err := x509.CreateCertificate(rand.Reader, template, caCert, &key.PublicKey, caKey)
		if err != nil {
			t.Fatalf("create certificate: %v", err)
		}
		keyDER, err := x509.MarshalECPrivateKey(key)
		if err != nil {
			t.Fatalf("marshal key: %v", err)
		}
		certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
		keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
		return certPEM, keyPEM
	}

	serverPEM, serverKeyPEM := issue(2, serverSubject, x509.ExtKeyUsageServerAuth, []net.IP{net.ParseIP("127.0.0.1")})
	serverCert, err := tls.X509KeyPair(serverPEM, serverKeyPEM)
	if err != nil {
		t.Fatalf("load server keypair: %v", err)
	}

	clientPEM, clientKeyPEM := issue(3, pkix.Name{CommonName: "qbconnect test client"}, x509.ExtKeyUsageClientAuth, nil)

	caPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: caDER})
	caPool := x509.NewCertPool()
	caPool.AddCert(caCert)

	return &testPKI{
		caPEM:      caPEM,
		caPool:     caPool,
		serverCert: serverCert,
		clientCert: clientPEM,
		clientKey:  clientKeyPEM,
	}
}

// writeFiles drops the client-side TLS material into a temp dir and returns
// the three paths.
func (p *testPKI) writeFiles(t *testing.T) (certFile, keyFile, caFile string) {
	t.Helper()
	dir := t.TempDir()
	certFile = filepath.Join(dir, "client.pem")
	keyFile = filepath.Join(dir, "client.key")
	caFile = filepath.Join(dir, "ca.pem")
	for path, data := range map[string][]byte{
		certFile: p.clientCert,
		keyFile:  p.clientKey,
		caFile:   p.caPEM,
	} {
		if err := os.WriteFile(path, data, 0600); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	return certFile, keyFile, caFile
}

// startServer runs a TLS server requiring a client certificate.
func (p *testPKI) startServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	ts := httptest.NewUnstartedServer(handler)
	ts.TLS = &tls.Config{
		Certificates: []tls.Certificate{p.serverCert},
		ClientCAs:    p.caPool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
	}
	ts.StartTLS()
	t.Cleanup(ts.Close)
	return ts
}

// gatewaySubject builds a server subject matching the expected pattern for
// the given hostname.
func gatewaySubject(host string) pkix.Name {
	return pkix.Name{
		Country:            []string{"US"},
		Province:           []string{"California"},
		Locality:           []string{"Mountain View"},
		Organization:       []string{"Intuit"},
		OrganizationalUnit: []string{"WebApps"},
		CommonName:         host,
	}
}

func TestPost_MutualTLS(t *testing.T) {
	pki := newTestPKI(t, gatewaySubject("127.0.0.1"))

	var gotContentType string
	var gotBody []byte
	ts := pki.startServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte("<QBXML></QBXML>"))
	}))

	certFile, keyFile, caFile := pki.writeFiles(t)
	tr, err := transport.New(transport.Config{
		URL:      ts.URL,
		CertFile: certFile,
		KeyFile:  keyFile,
		CAFile:   caFile,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	resp, err := tr.Post(context.Background(), []byte("<QBXML><QBXMLMsgsRq></QBXMLMsgsRq></QBXML>"))
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	if !resp.OK() {
		t.Errorf("response not OK: %s", resp.Status)
	}
	if string(resp.Body) != "<QBXML></QBXML>" {
		t.Errorf("response body = %q", resp.Body)
	}
	if gotContentType != transport.ContentType {
		t.Errorf("Content-Type = %q, want %q", gotContentType, transport.ContentType)
	}
	if string(gotBody) != "<QBXML><QBXMLMsgsRq></QBXMLMsgsRq></QBXML>" {
		t.Errorf("server saw body %q", gotBody)
	}
}

func TestPost_RejectsWrongSubject(t *testing.T) {
	tests := []struct {
		name    string
		subject pkix.Name
	}{
		{
			name: "wrong organization",
			subject: pkix.Name{
				Country:      []string{"US"},
				Organization: []string{"Impostor Inc"},
				CommonName:   "127.0.0.1",
			},
		},
		{
			name: "wrong country",
			subject: pkix.Name{
				Country:      []string{"XX"},
				Organization: []string{"Intuit"},
				CommonName:   "127.0.0.1",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pki := newTestPKI(t, tt.subject)
			ts := pki.startServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

			certFile, keyFile, caFile := pki.writeFiles(t)
			tr, err := transport.New(transport.Config{
				URL:      ts.URL,
				CertFile: certFile,
				KeyFile:  keyFile,
				CAFile:   caFile,
			})
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}

			if _, err := tr.Post(context.Background(), []byte("<QBXML></QBXML>")); err == nil {
				t.Error("expected TLS handshake to fail against impostor subject")
			}
		})
	}
}

func TestPost_HTTPFailureIsNotAnError(t *testing.T) {
	pki := newTestPKI(t, gatewaySubject("127.0.0.1"))
	ts := pki.startServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway busy", http.StatusServiceUnavailable)
	}))

	certFile, keyFile, caFile := pki.writeFiles(t)
	tr, err := transport.New(transport.Config{
		URL:      ts.URL,
		CertFile: certFile,
		KeyFile:  keyFile,
		CAFile:   caFile,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	resp, err := tr.Post(context.Background(), []byte("<QBXML></QBXML>"))
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	if resp.OK() {
		t.Error("expected non-OK response")
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want 503", resp.StatusCode)
	}
}

func TestNew_ConfigurationErrors(t *testing.T) {
	pki := newTestPKI(t, gatewaySubject("127.0.0.1"))
	certFile, keyFile, caFile := pki.writeFiles(t)

	tests := []struct {
		name string
		cfg  transport.Config
	}{
		{"no hostname", transport.Config{URL: "https://", CertFile: certFile, KeyFile: keyFile, CAFile: caFile}},
		{"unparseable URL", transport.Config{URL: "https://host\x7f/", CertFile: certFile, KeyFile: keyFile}},
		{"missing keypair", transport.Config{URL: "https://example.com", CertFile: filepath.Join(t.TempDir(), "nope.pem"), KeyFile: keyFile}},
		{"empty CA bundle", transport.Config{URL: "https://example.com", CertFile: certFile, KeyFile: keyFile, CAFile: func() string {
			p := filepath.Join(t.TempDir(), "empty.pem")
			os.WriteFile(p, []byte("not pem"), 0600)
			return p
		}()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := transport.New(tt.cfg); err == nil {
				t.Error("expected construction error")
			}
		})
	}
}
