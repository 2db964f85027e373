// Package util provides helper functions shared across the client core:
// proxy-aware HTTP client construction, log level management, and path
// normalization for the auth directory.
package util

import (
	"context"
	"net"
	"net/http"
	"net/url"

	"github.com/focusmate-app/focusmate-go/internal/config"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/proxy"
)

// SetProxy configures the provided HTTP client with proxy settings from the configuration.
// It supports SOCKS5, HTTP, and HTTPS proxies. The function modifies the client's transport
// to route requests through the configured proxy server, preserving any TLS settings
// already present on the transport.
func SetProxy(cfg *config.Config, httpClient *http.Client) *http.Client {
	if cfg == nil || cfg.ProxyURL == "" {
		return httpClient
	}
	proxyURL, errParse := url.Parse(cfg.ProxyURL)
	if errParse != nil {
		log.Errorf("parse proxy url failed: %v", errParse)
		return httpClient
	}

	base, _ := httpClient.Transport.(*http.Transport)
	if base == nil {
		base = &http.Transport{}
	}

	switch proxyURL.Scheme {
	case "socks5":
		// Configure SOCKS5 proxy with optional authentication.
		var proxyAuth *proxy.Auth
		if proxyURL.User != nil {
			username := proxyURL.User.Username()
			password, _ := proxyURL.User.Password()
			proxyAuth = &proxy.Auth{User: username, Password: password}
		}
		dialer, errSOCKS5 := proxy.SOCKS5("tcp", proxyURL.Host, proxyAuth, proxy.Direct)
		if errSOCKS5 != nil {
			log.Errorf("create SOCKS5 dialer failed: %v", errSOCKS5)
			return httpClient
		}
		base.Proxy = nil
		base.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	case "http", "https":
		base.Proxy = http.ProxyURL(proxyURL)
	default:
		log.Errorf("unsupported proxy scheme %q", proxyURL.Scheme)
		return httpClient
	}
	httpClient.Transport = base
	return httpClient
}
