// Package pinning restricts acceptable TLS server identities to a known set of
// public key hashes. A Policy names the hosts subject to pinning and the SPKI
// SHA-256 digests it accepts; the Validator decides per handshake whether a
// presented chain may proceed. Pinning is opt-in per host: hosts outside the
// policy are never checked.
package pinning

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Policy is the immutable pinning configuration, constructed once at client
// build time.
type Policy struct {
	hosts    map[string]struct{}
	accepted map[string]struct{}
	enforce  bool
}

// NewPolicy builds a Policy from host names and lowercase-hex SPKI SHA-256
// digests. Inputs are normalized to lowercase; comparisons afterwards are
// case-sensitive against that normalized form.
func NewPolicy(hosts, acceptedHashes []string, enforce bool) Policy {
	p := Policy{
		hosts:    make(map[string]struct{}, len(hosts)),
		accepted: make(map[string]struct{}, len(acceptedHashes)),
		enforce:  enforce,
	}
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			p.hosts[h] = struct{}{}
		}
	}
	for _, sum := range acceptedHashes {
		sum = strings.ToLower(strings.TrimSpace(sum))
		if sum != "" {
			p.accepted[sum] = struct{}{}
		}
	}
	return p
}

// Enforce reports whether violations reject the connection rather than only
// being logged.
func (p Policy) Enforce() bool { return p.enforce }

// PinnedHost reports whether the given host is subject to pinning.
func (p Policy) PinnedHost(host string) bool {
	_, ok := p.hosts[strings.ToLower(strings.TrimSpace(host))]
	return ok
}

// SPKIHash returns the lowercase hex SHA-256 digest of the certificate's
// DER-encoded public key. This is the value accepted-hash lists are built from.
func SPKIHash(cert *x509.Certificate) string {
	sum := sha256.Sum256(cert.RawSubjectPublicKeyInfo)
	return hex.EncodeToString(sum[:])
}

// Validator decides whether a presented certificate chain may be used for a
// given host. It is a pure decision function over the policy; safe for
// concurrent use.
type Validator struct {
	policy Policy
}

// NewValidator constructs a Validator for the given policy.
func NewValidator(policy Policy) *Validator {
	return &Validator{policy: policy}
}

// Validate reports whether the connection may proceed. It never returns an
// error; the transport layer translates false into an aborted handshake.
//
// Hosts outside the policy pass unconditionally. For pinned hosts, every
// certificate in the chain is hashed, not only the leaf, so a pin may target a
// stable intermediate CA key and survive automated leaf rotation. An empty
// chain, or a chain with no accepted hash, succeeds only when enforcement is
// disabled; non-enforcing violations are logged so they stay observable during
// soft rollout.
func (v *Validator) Validate(chain []*x509.Certificate, host string) bool {
	if !v.policy.PinnedHost(host) {
		return true
	}
	if len(chain) == 0 {
		if v.policy.enforce {
			log.WithField("host", host).Error("pinning: no certificate chain presented, rejecting")
			return false
		}
		log.WithField("host", host).Warn("pinning: no certificate chain presented")
		return true
	}
	for _, cert := range chain {
		if cert == nil {
			continue
		}
		if _, ok := v.policy.accepted[SPKIHash(cert)]; ok {
			return true
		}
	}
	if v.policy.enforce {
		log.WithField("host", host).Error("pinning: no accepted public key in chain, rejecting")
		return false
	}
	log.WithField("host", host).Warn("pinning: no accepted public key in chain")
	return true
}
