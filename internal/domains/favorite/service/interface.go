package service

import (
	"context"

	"github.com/google/uuid"

	collectionModel "gallery-backend/internal/domains/collection/model"
	"gallery-backend/internal/domains/favorite/model"
	itemModel "gallery-backend/internal/domains/item/model"
	"gallery-backend/internal/shared"
)

type ServiceInterface interface {
	ResolveFavoritesCollection(ctx context.Context, actor shared.Actor) (*collectionModel.Collection, error)
	IsFavorited(ctx context.Context, actor shared.Actor, item *itemModel.Item) (bool, error)
	// Toggle moves the item into Favorites, or back to where it came from.
	Toggle(ctx context.Context, actor shared.Actor, itemID int64) (*model.ToggleResult, error)
	Status(ctx context.Context, actor shared.Actor, itemID int64) (*model.Status, error)
}

// CollectionFinder is the read side of the collection repository.
type CollectionFinder interface {
	FindFavorites(ctx context.Context, owner uuid.UUID) (*collectionModel.Collection, error)
	FindByNameFold(ctx context.Context, owner uuid.UUID, name string) ([]collectionModel.Collection, error)
}
