package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/focusmate-app/focusmate-go/sdk/api"
	"github.com/google/uuid"
)

// ListService wraps the list CRUD endpoints.
type ListService struct {
	client *api.Client
}

// NewListService constructs a ListService on the shared client.
func NewListService(client *api.Client) *ListService {
	return &ListService{client: client}
}

// All fetches every list for the signed-in account.
func (s *ListService) All(ctx context.Context) ([]List, error) {
	return api.Do[[]List](ctx, s.client, api.Descriptor{
		Method: http.MethodGet,
		Path:   "api/v1/lists",
	})
}

// Get fetches a single list.
func (s *ListService) Get(ctx context.Context, id int64) (List, error) {
	return api.Do[List](ctx, s.client, api.Descriptor{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("api/v1/lists/%d", id),
	})
}

// Create adds a new list. The call carries an idempotency key so a retried
// submission cannot create duplicates.
func (s *ListService) Create(ctx context.Context, params ListParams) (List, error) {
	return api.Do[List](ctx, s.client, api.Descriptor{
		Method:         http.MethodPost,
		Path:           "api/v1/lists",
		Body:           params,
		IdempotencyKey: uuid.NewString(),
	})
}

// Update modifies an existing list.
func (s *ListService) Update(ctx context.Context, id int64, params ListParams) (List, error) {
	return api.Do[List](ctx, s.client, api.Descriptor{
		Method: http.MethodPatch,
		Path:   fmt.Sprintf("api/v1/lists/%d", id),
		Body:   params,
	})
}

// Delete removes a list and its items.
func (s *ListService) Delete(ctx context.Context, id int64) error {
	_, err := api.Do[api.NoContent](ctx, s.client, api.Descriptor{
		Method: http.MethodDelete,
		Path:   fmt.Sprintf("api/v1/lists/%d", id),
	})
	return err
}
