// Package auth supplies the credential plumbing for the Focusmate client core:
// the provider contract the request layer reads bearer tokens through, the
// single-flight refresh coordinator, JWT expiry inspection, and file-backed
// token persistence.
package auth

import (
	"context"
	"sync"
)

// CredentialProvider exposes the session credentials owned by the caller.
// Reads are synchronous; OnRefreshed reports new tokens back after a
// successful refresh exchange. The core never persists credentials itself,
// only reads and reports them through this interface.
type CredentialProvider interface {
	// AccessToken returns the current access token, or "" when signed out.
	AccessToken() string

	// RefreshToken returns the current refresh token, or "" when refresh is
	// not available.
	RefreshToken() string

	// OnRefreshed stores freshly minted tokens. An empty refreshToken keeps
	// the existing one.
	OnRefreshed(ctx context.Context, accessToken, refreshToken string) error
}

// MemoryProvider is a mutex-guarded in-memory CredentialProvider. It backs
// tests and short-lived tooling; long-lived processes use FileProvider.
type MemoryProvider struct {
	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

// NewMemoryProvider seeds a provider with the given tokens.
func NewMemoryProvider(accessToken, refreshToken string) *MemoryProvider {
	return &MemoryProvider{accessToken: accessToken, refreshToken: refreshToken}
}

func (p *MemoryProvider) AccessToken() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.accessToken
}

func (p *MemoryProvider) RefreshToken() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refreshToken
}

func (p *MemoryProvider) OnRefreshed(_ context.Context, accessToken, refreshToken string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accessToken = accessToken
	if refreshToken != "" {
		p.refreshToken = refreshToken
	}
	return nil
}

// Clear drops both tokens, e.g. after a terminal unauthorized outcome.
func (p *MemoryProvider) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accessToken = ""
	p.refreshToken = ""
}
