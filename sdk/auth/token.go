package auth

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
)

// TokenRecord is the persisted shape of a session's credentials. The embedded
// oauth2.Token carries the access token, refresh token, and server-reported
// expiry; Email identifies the signed-in account for display purposes.
type TokenRecord struct {
	oauth2.Token

	Email     string    `json:"email,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TokenExpiry extracts the exp claim embedded in a JWT access token without
// verifying the signature. Verification belongs to the server; the client only
// needs the expiry to decide whether a proactive refresh is worthwhile.
func TokenExpiry(token string) (time.Time, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		// Some issuers pad the segment.
		payload, err = base64.URLEncoding.DecodeString(parts[1])
		if err != nil {
			return time.Time{}, false
		}
	}
	exp := gjson.GetBytes(payload, "exp")
	if !exp.Exists() || exp.Int() <= 0 {
		return time.Time{}, false
	}
	return time.Unix(exp.Int(), 0), true
}

// ExpiresWithin reports whether the JWT access token expires before now+lead.
// Tokens without a readable exp claim report false; the reactive 401 path
// covers them.
func ExpiresWithin(token string, lead time.Duration, now time.Time) bool {
	expiry, ok := TokenExpiry(token)
	if !ok {
		return false
	}
	return !now.Add(lead).Before(expiry)
}
