package service

import (
	"context"

	"github.com/google/uuid"

	collectionModel "gallery-backend/internal/domains/collection/model"
	"gallery-backend/internal/domains/item/model"
	"gallery-backend/internal/infrastructure/events"
	"gallery-backend/internal/shared"
)

// ServiceInterface is the item store and gallery query layer.
type ServiceInterface interface {
	Upload(ctx context.Context, actor shared.Actor, req model.UploadRequest) (*model.Item, error)
	UpdateMetadata(ctx context.Context, actor shared.Actor, id int64, req model.UpdateRequest) (*model.Item, error)
	List(ctx context.Context, actor shared.Actor, req model.ListItemsRequest) (*model.ListItemsResult, error)
	Related(ctx context.Context, actor shared.Actor, id int64, limit int) ([]model.Item, error)
	Get(ctx context.Context, actor shared.Actor, id int64) (*model.Item, error)
	OpenImage(ctx context.Context, actor shared.Actor, id int64) (*model.Image, error)
	Delete(ctx context.Context, actor shared.Actor, id int64) (*model.DeleteItemResult, error)
	// Move reassigns an item to target in one row update.
	Move(ctx context.Context, actor shared.Actor, id, target int64, opts MoveOptions) (*model.Item, error)
}

// MoveOptions controls how a move records the item's previous collection.
type MoveOptions struct {
	// RememberPrevious stores the current collection as previous_collection_id;
	// otherwise it is cleared.
	RememberPrevious bool
	// ExpectFrom, when non-zero, aborts with model.ErrConcurrentMove if the item
	// is no longer in that collection once its row is locked.
	ExpectFrom int64
	Kind       events.Kind
}

// CollectionReader is the part of the collection repository items need.
type CollectionReader interface {
	FindByID(ctx context.Context, id int64) (*collectionModel.Collection, error)
	FindFavorites(ctx context.Context, owner uuid.UUID) (*collectionModel.Collection, error)
	FindByNameFold(ctx context.Context, owner uuid.UUID, name string) ([]collectionModel.Collection, error)
}
