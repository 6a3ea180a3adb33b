package repository

import (
	"context"

	"github.com/google/uuid"

	"gallery-backend/internal/domains/collection/model"
	"gallery-backend/internal/shared"
)

// RepositoryInterface is the collections data access contract.
type RepositoryInterface interface {
	// Create fills ID and timestamps. A second flagged Favorites for the same owner
	// returns model.ErrFavoritesExists.
	Create(ctx context.Context, c *model.Collection) error
	FindByID(ctx context.Context, id int64) (*model.Collection, error)
	// List returns the collections visible to actor, newest first.
	List(ctx context.Context, actor shared.Actor, skip, limit int) ([]model.Collection, int64, error)
	Update(ctx context.Context, c *model.Collection) error
	// DeleteCascade removes the collection and its items in one transaction
	// and returns the payload keys of the removed items. A Favorites collection
	// that still holds items returns model.ErrFavoritesNotEmpty.
	DeleteCascade(ctx context.Context, id int64) ([]string, error)

	FindFavorites(ctx context.Context, owner uuid.UUID) (*model.Collection, error)
	// FindByNameFold matches name case-insensitively among owner's collections.
	FindByNameFold(ctx context.Context, owner uuid.UUID, name string) ([]model.Collection, error)
	MarkFavorites(ctx context.Context, id int64) error

	CatalogRows(ctx context.Context, id int64) ([]model.CatalogRow, error)
}
