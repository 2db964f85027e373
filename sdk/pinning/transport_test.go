package pinning

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// pinnedClient builds a client that trusts the test server's certificate and
// routes handshakes through the validator. The httptest certificate is valid
// for example.com, so the client verifies under that name to exercise the
// SNI-keyed pinning path against a loopback listener.
func pinnedClient(t *testing.T, server *httptest.Server, validator *Validator) *http.Client {
	t.Helper()
	pool := x509.NewCertPool()
	pool.AddCert(server.Certificate())
	transport := NewTransport(validator)
	transport.TLSClientConfig = &tls.Config{
		RootCAs:          pool,
		ServerName:       "example.com",
		MinVersion:       tls.VersionTLS12,
		VerifyConnection: validator.VerifyConnection,
	}
	return &http.Client{Transport: transport}
}

func TestTransportAllowsPinnedCertificate(t *testing.T) {
	t.Parallel()

	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}))
	defer server.Close()

	validator := NewValidator(NewPolicy(
		[]string{"example.com"},
		[]string{SPKIHash(server.Certificate())},
		true,
	))
	client := pinnedClient(t, server, validator)

	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("Get() error = %v, want nil", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestTransportRejectsUnpinnedCertificate(t *testing.T) {
	t.Parallel()

	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}))
	defer server.Close()

	// Pin a hash that cannot match the server's key.
	wrongPin := SPKIHash(testCert(t, "someone else"))
	validator := NewValidator(NewPolicy([]string{"example.com"}, []string{wrongPin}, true))
	client := pinnedClient(t, server, validator)

	_, err := client.Get(server.URL) //nolint:bodyclose // request must fail
	if err == nil {
		t.Fatal("Get() error = nil, want pinning rejection")
	}
	var pinErr *Error
	if !errors.As(err, &pinErr) {
		t.Fatalf("Get() error = %v, want *pinning.Error in chain", err)
	}
	if pinErr.Host != "example.com" {
		t.Errorf("pinErr.Host = %q, want %q", pinErr.Host, "example.com")
	}
}
