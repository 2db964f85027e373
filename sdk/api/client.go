package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/focusmate-app/focusmate-go/internal/buildinfo"
	"github.com/focusmate-app/focusmate-go/sdk/auth"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// DefaultRefreshLead is the window before access-token expiry inside which the
// pipeline refreshes proactively instead of waiting for a 401.
const DefaultRefreshLead = 30 * time.Second

// RefreshFunc exchanges a refresh token for new credentials. The returned
// refresh token may be empty when the server does not rotate it.
type RefreshFunc func(ctx context.Context, refreshToken string) (accessToken, newRefreshToken string, err error)

// Options configures a Client. BaseURL is required; everything else has
// sensible defaults.
type Options struct {
	// BaseURL is the absolute root the descriptor paths resolve against.
	BaseURL string
	// HTTPClient performs the exchange. Inject a client whose transport
	// carries the pinning validator and proxy settings; defaults to a plain
	// client with a 30 second timeout.
	HTTPClient *http.Client
	// Credentials supplies bearer tokens for protected endpoints. Nil means
	// only public endpoints can succeed.
	Credentials auth.CredentialProvider
	// RefreshLead overrides DefaultRefreshLead.
	RefreshLead time.Duration
	// RequestLog enables per-request debug logging.
	RequestLog bool
	// OnReauthRequired is invoked exactly once per terminal unauthorized
	// outcome on a protected endpoint, so the session layer can route to
	// sign-in without duplicate prompts.
	OnReauthRequired func()
	// UserAgent overrides the default build-derived User-Agent header.
	UserAgent string
}

// Client orchestrates a single logical call per Execute invocation: build the
// request, attach or refresh credentials, send, classify, and retry exactly
// once after a successful reactive refresh. Safe for concurrent use; the only
// shared mutable state is the refresh coordinator.
type Client struct {
	base             *url.URL
	httpClient       *http.Client
	creds            auth.CredentialProvider
	coordinator      *auth.Coordinator
	refreshLead      time.Duration
	requestLog       bool
	onReauthRequired func()
	userAgent        string

	refreshMu sync.RWMutex
	refreshFn RefreshFunc
}

// NewClient validates the options and constructs a Client.
func NewClient(opts Options) (*Client, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("api client: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("api client: base url %q is not absolute", opts.BaseURL)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	refreshLead := opts.RefreshLead
	if refreshLead <= 0 {
		refreshLead = DefaultRefreshLead
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = buildinfo.UserAgent()
	}
	return &Client{
		base:             base,
		httpClient:       httpClient,
		creds:            opts.Credentials,
		coordinator:      auth.NewCoordinator(),
		refreshLead:      refreshLead,
		requestLog:       opts.RequestLog,
		onReauthRequired: opts.OnReauthRequired,
		userAgent:        userAgent,
	}, nil
}

// SetRefreshFunc installs the refresh exchange. It is set after construction
// because the session service performing the exchange is itself built on this
// client.
func (c *Client) SetRefreshFunc(fn RefreshFunc) {
	c.refreshMu.Lock()
	c.refreshFn = fn
	c.refreshMu.Unlock()
}

func (c *Client) refreshFunc() RefreshFunc {
	c.refreshMu.RLock()
	defer c.refreshMu.RUnlock()
	return c.refreshFn
}

func (c *Client) refreshable() bool {
	return c.creds != nil && c.refreshFunc() != nil
}

// Execute runs the described call and decodes a 2xx response body into out.
// A nil out discards the body. The returned error is always nil or an *Error
// from the closed taxonomy; no other error shape crosses this boundary.
func (c *Client) Execute(ctx context.Context, desc Descriptor, out any) error {
	body, apiErr := c.do(ctx, desc)
	if apiErr != nil {
		return apiErr
	}
	if out == nil {
		return nil
	}
	if len(body) == 0 {
		return &Error{Kind: KindDecoding, Message: "empty response body"}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Kind: KindDecoding, Message: "decode response body", cause: err}
	}
	return nil
}

// Do is the generic form of Execute. NoContent as the type parameter accepts
// an empty success body.
func Do[T any](ctx context.Context, c *Client, desc Descriptor) (T, error) {
	var value T
	if _, ok := any(value).(NoContent); ok {
		if err := c.Execute(ctx, desc, nil); err != nil {
			return value, err
		}
		return value, nil
	}
	if err := c.Execute(ctx, desc, &value); err != nil {
		return value, err
	}
	return value, nil
}

// do drives the per-call state machine and returns the raw 2xx body.
func (c *Client) do(ctx context.Context, desc Descriptor) ([]byte, *Error) {
	requestID := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	logger := log.WithFields(log.Fields{
		"request_id": requestID,
		"method":     desc.Method,
		"path":       desc.Path,
	})

	target, buildErr := c.buildURL(desc)
	if buildErr != nil {
		return nil, &Error{Kind: KindBadURL, Message: "build request url", cause: buildErr}
	}
	var payload []byte
	if desc.Body != nil {
		encoded, err := json.Marshal(desc.Body)
		if err != nil {
			return nil, &Error{Kind: KindDecoding, Message: "encode request body", cause: err}
		}
		payload = encoded
	}

	retried := false
	for {
		token := ""
		if !desc.Public && c.creds != nil {
			token = c.creds.AccessToken()
			// Proactive refresh avoids sending a request doomed to 401. A
			// failure here is non-fatal: the reactive path below is the
			// safety net.
			if !retried && token != "" && c.refreshable() && c.creds.RefreshToken() != "" &&
				auth.ExpiresWithin(token, c.refreshLead, time.Now()) {
				if err := c.refresh(ctx); err != nil {
					logger.Warnf("proactive token refresh failed, proceeding with current token: %v", err)
				} else {
					token = c.creds.AccessToken()
				}
			}
		}

		req, err := c.newRequest(ctx, desc, target, payload, token, requestID)
		if err != nil {
			return nil, &Error{Kind: KindBadURL, Message: "build request", cause: err}
		}

		start := time.Now()
		resp, doErr := c.httpClient.Do(req)
		if doErr != nil {
			apiErr := ClassifyTransportError(doErr)
			logger.WithField("kind", apiErr.Kind).Debugf("request failed in %s: %v", time.Since(start).Round(time.Millisecond), doErr)
			return nil, apiErr
		}
		body, readErr := readBody(resp)
		_ = resp.Body.Close()
		if c.requestLog {
			logger.WithField("status", resp.StatusCode).Debugf("request completed in %s", time.Since(start).Round(time.Millisecond))
		}
		if readErr != nil {
			return nil, readErr
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return body, nil
		}

		if resp.StatusCode == http.StatusUnauthorized && !retried && !desc.Public && c.refreshable() {
			refreshErr := c.refresh(ctx)
			if refreshErr == nil {
				// Exactly one retry, rebuilt with the post-refresh token.
				retried = true
				continue
			}
			logger.Warnf("token refresh after 401 failed: %v", refreshErr)
		}

		apiErr := ClassifyResponse(resp.StatusCode, resp.Header, body)
		if apiErr.Kind == KindUnauthorized && !desc.Public {
			c.signalReauthRequired(logger)
		}
		return nil, apiErr
	}
}

func (c *Client) buildURL(desc Descriptor) (*url.URL, error) {
	if _, err := url.Parse(desc.Path); err != nil {
		return nil, err
	}
	target := *c.base
	target.Path = strings.TrimRight(c.base.Path, "/") + "/" + strings.TrimLeft(desc.Path, "/")
	if len(desc.Query) > 0 {
		target.RawQuery = desc.Query.Encode()
	}
	return &target, nil
}

func (c *Client) newRequest(ctx context.Context, desc Descriptor, target *url.URL, payload []byte, token, requestID string) (*http.Request, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, desc.Method, target.String(), bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", acceptedEncodings)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-Id", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if desc.IdempotencyKey != "" {
		req.Header.Set("Idempotency-Key", desc.IdempotencyKey)
	}
	if !desc.Public && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// refresh funnels every refresh request through the coordinator so concurrent
// calls share one network exchange. New tokens are reported to the credential
// provider before any waiter proceeds to retry.
func (c *Client) refresh(ctx context.Context) error {
	return c.coordinator.Refresh(ctx, func(rctx context.Context) error {
		refreshToken := c.creds.RefreshToken()
		if refreshToken == "" {
			return errors.New("no refresh token available")
		}
		fn := c.refreshFunc()
		if fn == nil {
			return errors.New("no refresh exchange configured")
		}
		accessToken, newRefreshToken, err := fn(rctx, refreshToken)
		if err != nil {
			return fmt.Errorf("refresh exchange failed: %w", err)
		}
		if accessToken == "" {
			return errors.New("refresh exchange returned an empty access token")
		}
		if err = c.creds.OnRefreshed(rctx, accessToken, newRefreshToken); err != nil {
			return fmt.Errorf("store refreshed tokens: %w", err)
		}
		return nil
	})
}

func (c *Client) signalReauthRequired(logger *log.Entry) {
	logger.Info("credentials rejected, reauthentication required")
	if c.onReauthRequired != nil {
		c.onReauthRequired()
	}
}
