package pinning

import (
	"crypto/tls"
	"fmt"
	"net/http"
)

// Error reports a connection rejected by the pinning policy. It surfaces to
// the request layer as a transport-level failure.
type Error struct {
	Host string
}

func (e *Error) Error() string {
	return fmt.Sprintf("pinning: connection to %s rejected by certificate pinning policy", e.Host)
}

// VerifyConnection adapts the validator to tls.Config.VerifyConnection. It runs
// after the standard chain verification, so pinning narrows rather than replaces
// the usual WebPKI checks. The connection is keyed by SNI, so pinned hosts must
// be DNS names; IP-literal targets carry no server name and pass through.
func (v *Validator) VerifyConnection(cs tls.ConnectionState) error {
	if v.Validate(cs.PeerCertificates, cs.ServerName) {
		return nil
	}
	return &Error{Host: cs.ServerName}
}

// NewTransport clones the default HTTP transport and gates every TLS handshake
// through the validator. Transparent gzip is disabled because the request layer
// negotiates and decodes content encodings itself.
func NewTransport(v *Validator) *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DisableCompression = true
	tlsCfg := transport.TLSClientConfig
	if tlsCfg == nil {
		tlsCfg = &tls.Config{}
	} else {
		tlsCfg = tlsCfg.Clone()
	}
	tlsCfg.MinVersion = tls.VersionTLS12
	tlsCfg.VerifyConnection = v.VerifyConnection
	transport.TLSClientConfig = tlsCfg
	return transport
}
