package repository

import (
	"context"

	"gallery-backend/internal/domains/item/model"
)

// UpdateFunc mutates the locked row. Returning an error aborts the update.
type UpdateFunc func(it *model.Item) error

// RepositoryInterface is the items data access contract.
type RepositoryInterface interface {
	// Create fills ID and timestamps. A missing collection returns model.ErrCollectionNotFound.
	Create(ctx context.Context, it *model.Item) error
	FindByID(ctx context.Context, id int64) (*model.Item, error)
	// List orders by upload_date DESC, id DESC.
	List(ctx context.Context, q model.ListQuery) ([]model.Item, int64, error)
	// Update locks the row, applies fn and writes every column back in one transaction.
	Update(ctx context.Context, id int64, fn UpdateFunc) (*model.Item, error)
	// Delete removes the row and returns it as it was.
	Delete(ctx context.Context, id int64) (*model.Item, error)
	// ReferencedKeys returns the subset of keys still referenced by an item row.
	ReferencedKeys(ctx context.Context, keys []string) (map[string]struct{}, error)
}
