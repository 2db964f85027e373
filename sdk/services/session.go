package services

import (
	"context"
	"net/http"

	"github.com/focusmate-app/focusmate-go/sdk/api"
)

// SessionService handles sign-in, sign-out, and the refresh-token exchange.
// Sign-in and refresh are public endpoints: they never attach credentials and
// a 401 from them never triggers the reauthentication signal.
type SessionService struct {
	client *api.Client
}

// NewSessionService constructs a SessionService on the shared client.
func NewSessionService(client *api.Client) *SessionService {
	return &SessionService{client: client}
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// SignIn exchanges account credentials for a session token pair.
func (s *SessionService) SignIn(ctx context.Context, email, password string) (Session, error) {
	return api.Do[Session](ctx, s.client, api.Descriptor{
		Method: http.MethodPost,
		Path:   "api/v1/session",
		Body:   signInRequest{Email: email, Password: password},
		Public: true,
	})
}

// Refresh exchanges a refresh token for a new token pair.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	return api.Do[TokenPair](ctx, s.client, api.Descriptor{
		Method: http.MethodPost,
		Path:   "api/v1/session/refresh",
		Body:   refreshRequest{RefreshToken: refreshToken},
		Public: true,
	})
}

// SignOut revokes the current session server-side.
func (s *SessionService) SignOut(ctx context.Context) error {
	_, err := api.Do[api.NoContent](ctx, s.client, api.Descriptor{
		Method: http.MethodDelete,
		Path:   "api/v1/session",
	})
	return err
}

// RefreshFunc adapts the refresh exchange to the pipeline's refresh hook.
// Install it with Client.SetRefreshFunc after constructing the service.
func (s *SessionService) RefreshFunc() api.RefreshFunc {
	return func(ctx context.Context, refreshToken string) (string, string, error) {
		pair, err := s.Refresh(ctx, refreshToken)
		if err != nil {
			return "", "", err
		}
		return pair.AccessToken, pair.RefreshToken, nil
	}
}
