package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/focusmate-app/focusmate-go/sdk/pinning"
	"github.com/tidwall/gjson"
)

// DefaultRetryAfterSeconds is reported for 429 responses whose Retry-After
// header is absent or unparsable.
const DefaultRetryAfterSeconds = 60

// errorBody mirrors the best-effort wire contract for error payloads: the
// fields may appear at the top level or nested under an "error" key.
type errorBody struct {
	Code      string              `json:"code"`
	Message   string              `json:"message"`
	Details   map[string][]string `json:"details"`
	Timestamp string              `json:"timestamp"`
	RequestID string              `json:"request_id"`
	Err       *errorBody          `json:"error"`
}

// ClassifyTransportError maps a failure from the HTTP exchange into the
// taxonomy. Timeouts (including context deadlines) become KindTimeout, DNS
// and unreachable-host failures become KindNoConnectivity, and everything
// else, including connections rejected by the pinning policy, becomes
// KindTransport.
func ClassifyTransportError(err error) *Error {
	var pinErr *pinning.Error
	if errors.As(err, &pinErr) {
		return &Error{Kind: KindTransport, Message: pinErr.Error(), cause: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Message: "request timed out", cause: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Message: "request timed out", cause: err}
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &Error{Kind: KindNoConnectivity, Message: "host could not be resolved", cause: err}
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ENETUNREACH) || errors.Is(err, syscall.EHOSTUNREACH) {
		return &Error{Kind: KindNoConnectivity, Message: "host unreachable", cause: err}
	}
	return &Error{Kind: KindTransport, cause: err}
}

// ClassifyResponse maps a non-2xx HTTP response into the taxonomy. The body is
// parsed best-effort for a structured error payload; callers hand in the fully
// read body so the decision never races the connection.
func ClassifyResponse(status int, header http.Header, body []byte) *Error {
	parsed := parseErrorBody(body)
	apiErr := &Error{
		Status:    status,
		Message:   parsed.Message,
		Code:      parsed.Code,
		RequestID: parsed.RequestID,
	}
	switch {
	case status == http.StatusUnauthorized:
		apiErr.Kind = KindUnauthorized
	case status == http.StatusUnprocessableEntity:
		if len(parsed.Details) > 0 {
			apiErr.Kind = KindValidation
			apiErr.FieldErrors = parsed.Details
		} else {
			apiErr.Kind = KindBadStatus
		}
	case status == http.StatusTooManyRequests:
		apiErr.Kind = KindRateLimited
		apiErr.RetryAfterSeconds = parseRetryAfter(header)
	case status >= 500 && status <= 599:
		apiErr.Kind = KindServer
	default:
		apiErr.Kind = KindBadStatus
	}
	return apiErr
}

// parseErrorBody attempts a structured decode first and falls back to a loose
// key lookup so minor backend error-shape drift degrades to a best-effort
// message rather than an opaque failure. When both a nested error object and
// top-level keys are present, the nested object takes priority.
func parseErrorBody(body []byte) errorBody {
	if len(body) == 0 {
		return errorBody{}
	}
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Err != nil {
			nested := *parsed.Err
			if nested.Code == "" {
				nested.Code = parsed.Code
			}
			if nested.Message == "" {
				nested.Message = parsed.Message
			}
			if len(nested.Details) == 0 {
				nested.Details = parsed.Details
			}
			if nested.RequestID == "" {
				nested.RequestID = parsed.RequestID
			}
			return nested
		}
		if parsed.Code != "" || parsed.Message != "" || len(parsed.Details) > 0 {
			return parsed
		}
	}
	// Loose lookup for payloads that do not match the expected schema.
	var loose errorBody
	for _, path := range []string{"error.code", "code"} {
		if v := gjson.GetBytes(body, path); v.Type == gjson.String {
			loose.Code = v.String()
			break
		}
	}
	for _, path := range []string{"error.message", "message", "error"} {
		if v := gjson.GetBytes(body, path); v.Type == gjson.String {
			loose.Message = v.String()
			break
		}
	}
	for _, path := range []string{"error.request_id", "request_id"} {
		if v := gjson.GetBytes(body, path); v.Type == gjson.String {
			loose.RequestID = v.String()
			break
		}
	}
	return loose
}

// parseRetryAfter reads the Retry-After header as either delay seconds or an
// HTTP-date, defaulting to DefaultRetryAfterSeconds.
func parseRetryAfter(header http.Header) int {
	value := strings.TrimSpace(header.Get("Retry-After"))
	if value == "" {
		return DefaultRetryAfterSeconds
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return DefaultRetryAfterSeconds
		}
		return seconds
	}
	if when, err := http.ParseTime(value); err == nil {
		seconds := int(time.Until(when).Round(time.Second).Seconds())
		if seconds < 0 {
			return 0
		}
		return seconds
	}
	return DefaultRetryAfterSeconds
}
