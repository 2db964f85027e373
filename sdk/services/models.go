// Package services provides thin typed wrappers over the Focusmate API
// endpoints. Each service routes every call through the shared request
// pipeline; all auth, pinning, and error classification behavior lives there.
package services

import "time"

// User identifies the signed-in account.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Session is the sign-in response: a token pair plus the account it belongs to.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// TokenPair is the refresh-exchange response. RefreshToken is empty when the
// server does not rotate refresh tokens.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// List is a named collection of items.
type List struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Position   int       `json:"position"`
	ItemsCount int       `json:"items_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Item is a single task inside a list.
type Item struct {
	ID          int64      `json:"id"`
	ListID      int64      `json:"list_id"`
	Title       string     `json:"title"`
	Notes       string     `json:"notes,omitempty"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	DueOn       *time.Time `json:"due_on,omitempty"`
	Position    int        `json:"position"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ListParams carries the writable fields of a list.
type ListParams struct {
	Name     string `json:"name"`
	Position *int   `json:"position,omitempty"`
}

// ItemParams carries the writable fields of an item.
type ItemParams struct {
	Title    string     `json:"title"`
	Notes    string     `json:"notes,omitempty"`
	DueOn    *time.Time `json:"due_on,omitempty"`
	Position *int       `json:"position,omitempty"`
}
