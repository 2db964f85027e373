package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/focusmate-app/focusmate-go/sdk/api"
	"github.com/google/uuid"
)

// ItemService wraps the item (task) CRUD endpoints.
type ItemService struct {
	client *api.Client
}

// NewItemService constructs an ItemService on the shared client.
func NewItemService(client *api.Client) *ItemService {
	return &ItemService{client: client}
}

// ForList fetches the items of one list. completed filters by completion state
// when non-nil.
func (s *ItemService) ForList(ctx context.Context, listID int64, completed *bool) ([]Item, error) {
	query := url.Values{}
	if completed != nil {
		query.Set("completed", strconv.FormatBool(*completed))
	}
	return api.Do[[]Item](ctx, s.client, api.Descriptor{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("api/v1/lists/%d/items", listID),
		Query:  query,
	})
}

// Create adds an item to a list, idempotently.
func (s *ItemService) Create(ctx context.Context, listID int64, params ItemParams) (Item, error) {
	return api.Do[Item](ctx, s.client, api.Descriptor{
		Method:         http.MethodPost,
		Path:           fmt.Sprintf("api/v1/lists/%d/items", listID),
		Body:           params,
		IdempotencyKey: uuid.NewString(),
	})
}

// Update modifies an existing item.
func (s *ItemService) Update(ctx context.Context, listID, id int64, params ItemParams) (Item, error) {
	return api.Do[Item](ctx, s.client, api.Descriptor{
		Method: http.MethodPatch,
		Path:   fmt.Sprintf("api/v1/lists/%d/items/%d", listID, id),
		Body:   params,
	})
}

type completeRequest struct {
	Completed bool `json:"completed"`
}

// SetCompleted toggles an item's completion state.
func (s *ItemService) SetCompleted(ctx context.Context, listID, id int64, completed bool) (Item, error) {
	return api.Do[Item](ctx, s.client, api.Descriptor{
		Method: http.MethodPatch,
		Path:   fmt.Sprintf("api/v1/lists/%d/items/%d/complete", listID, id),
		Body:   completeRequest{Completed: completed},
	})
}

// Delete removes an item.
func (s *ItemService) Delete(ctx context.Context, listID, id int64) error {
	_, err := api.Do[api.NoContent](ctx, s.client, api.Descriptor{
		Method: http.MethodDelete,
		Path:   fmt.Sprintf("api/v1/lists/%d/items/%d", listID, id),
	})
	return err
}
