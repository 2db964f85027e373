package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"testing"
	"time"

	"github.com/focusmate-app/focusmate-go/sdk/pinning"
)

// timeoutErr satisfies net.Error the way http.Client deadline failures do.
type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return false }

func TestClassifyTransportError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"pinning rejection", fmt.Errorf("Get %q: %w", "https://x", &pinning.Error{Host: "api.example.com"}), KindTransport},
		{"context deadline", fmt.Errorf("Get %q: %w", "https://x", context.DeadlineExceeded), KindTimeout},
		{"net timeout", fmt.Errorf("Get %q: %w", "https://x", timeoutErr{}), KindTimeout},
		{"dns failure", &net.DNSError{Err: "no such host", Name: "api.example.com", IsNotFound: true}, KindNoConnectivity},
		{"connection refused", fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED), KindNoConnectivity},
		{"network unreachable", fmt.Errorf("dial tcp: %w", syscall.ENETUNREACH), KindNoConnectivity},
		{"anything else", errors.New("unexpected EOF"), KindTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ClassifyTransportError(tt.err)
			if got.Kind != tt.want {
				t.Errorf("ClassifyTransportError() kind = %v, want %v", got.Kind, tt.want)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("ClassifyTransportError() does not wrap the cause %v", tt.err)
			}
		})
	}
}

func TestClassifyResponseStatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		want   Kind
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"code":"token_expired","message":"Token has expired"}}`, KindUnauthorized},
		{"validation with details", http.StatusUnprocessableEntity, `{"error":{"message":"Validation failed","details":{"title":["can't be blank"]}}}`, KindValidation},
		{"422 without details", http.StatusUnprocessableEntity, `{"message":"nope"}`, KindBadStatus},
		{"server error", http.StatusInternalServerError, "", KindServer},
		{"bad gateway", http.StatusBadGateway, "<html>oops</html>", KindServer},
		{"not found", http.StatusNotFound, `{"error":{"code":"not_found"}}`, KindBadStatus},
		{"conflict", http.StatusConflict, "", KindBadStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ClassifyResponse(tt.status, http.Header{}, []byte(tt.body))
			if got.Kind != tt.want {
				t.Errorf("ClassifyResponse(%d) kind = %v, want %v", tt.status, got.Kind, tt.want)
			}
			if got.Status != tt.status {
				t.Errorf("ClassifyResponse(%d) status = %d", tt.status, got.Status)
			}
		})
	}
}

func TestClassifyResponseValidationDetails(t *testing.T) {
	t.Parallel()

	body := `{"error":{"code":"validation_failed","message":"Validation failed","details":{"title":["can't be blank"],"due_on":["is not a valid date"]}}}`
	got := ClassifyResponse(http.StatusUnprocessableEntity, http.Header{}, []byte(body))

	if got.Kind != KindValidation {
		t.Fatalf("kind = %v, want %v", got.Kind, KindValidation)
	}
	if got.Code != "validation_failed" {
		t.Errorf("code = %q, want %q", got.Code, "validation_failed")
	}
	if len(got.FieldErrors) != 2 {
		t.Fatalf("FieldErrors = %v, want 2 fields", got.FieldErrors)
	}
	if msgs := got.FieldErrors["title"]; len(msgs) != 1 || msgs[0] != "can't be blank" {
		t.Errorf(`FieldErrors["title"] = %v, want ["can't be blank"]`, msgs)
	}
}

func TestClassifyResponseRetryAfter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"delay seconds", "45", 45},
		{"zero seconds", "0", 0},
		{"absent", "", DefaultRetryAfterSeconds},
		{"garbage", "soon", DefaultRetryAfterSeconds},
		{"negative", "-5", DefaultRetryAfterSeconds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			header := http.Header{}
			if tt.header != "" {
				header.Set("Retry-After", tt.header)
			}
			got := ClassifyResponse(http.StatusTooManyRequests, header, nil)
			if got.Kind != KindRateLimited {
				t.Fatalf("kind = %v, want %v", got.Kind, KindRateLimited)
			}
			if got.RetryAfterSeconds != tt.want {
				t.Errorf("RetryAfterSeconds = %d, want %d", got.RetryAfterSeconds, tt.want)
			}
		})
	}
}

func TestClassifyResponseRetryAfterHTTPDate(t *testing.T) {
	t.Parallel()

	header := http.Header{}
	header.Set("Retry-After", time.Now().Add(90*time.Second).UTC().Format(http.TimeFormat))
	got := ClassifyResponse(http.StatusTooManyRequests, header, nil)

	if got.RetryAfterSeconds < 85 || got.RetryAfterSeconds > 91 {
		t.Errorf("RetryAfterSeconds = %d, want roughly 90", got.RetryAfterSeconds)
	}
}

func TestClassifyResponseRetryAfterPastDate(t *testing.T) {
	t.Parallel()

	header := http.Header{}
	header.Set("Retry-After", time.Now().Add(-time.Minute).UTC().Format(http.TimeFormat))
	got := ClassifyResponse(http.StatusTooManyRequests, header, nil)

	if got.RetryAfterSeconds != 0 {
		t.Errorf("RetryAfterSeconds = %d, want 0 for a date already passed", got.RetryAfterSeconds)
	}
}

func TestParseErrorBodyShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		body        string
		wantCode    string
		wantMessage string
		wantReqID   string
	}{
		{
			"nested error object",
			`{"error":{"code":"not_found","message":"List not found","request_id":"r-1"}}`,
			"not_found", "List not found", "r-1",
		},
		{
			"top level fields",
			`{"code":"rate_limited","message":"Slow down","request_id":"r-2"}`,
			"rate_limited", "Slow down", "r-2",
		},
		{
			"nested takes priority over top level",
			`{"message":"outer","error":{"message":"inner"}}`,
			"", "inner", "",
		},
		{
			"nested gaps filled from top level",
			`{"request_id":"r-3","error":{"message":"inner"}}`,
			"", "inner", "r-3",
		},
		{
			"plain string error",
			`{"error":"Something broke"}`,
			"", "Something broke", "",
		},
		{
			"not json at all",
			`<html>502</html>`,
			"", "", "",
		},
		{
			"empty body",
			``,
			"", "", "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := parseErrorBody([]byte(tt.body))
			if got.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("message = %q, want %q", got.Message, tt.wantMessage)
			}
			if got.RequestID != tt.wantReqID {
				t.Errorf("request_id = %q, want %q", got.RequestID, tt.wantReqID)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	t.Parallel()

	validation := &Error{Kind: KindValidation, FieldErrors: map[string][]string{"title": {"can't be blank"}}}
	if got := validation.UserMessage(); got != "title can't be blank" {
		t.Errorf("UserMessage() = %q, want %q", got, "title can't be blank")
	}

	limited := &Error{Kind: KindRateLimited, RetryAfterSeconds: 45}
	if got := limited.UserMessage(); got != "Too many requests. Try again in 45 seconds." {
		t.Errorf("UserMessage() = %q", got)
	}
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("call failed: %w", &Error{Kind: KindServer, Status: 503})
	kind, ok := KindOf(wrapped)
	if !ok || kind != KindServer {
		t.Errorf("KindOf() = (%v, %v), want (%v, true)", kind, ok, KindServer)
	}
	if _, ok = KindOf(errors.New("plain")); ok {
		t.Error("KindOf(plain error) ok = true, want false")
	}
}
