package service

import (
	"context"

	"github.com/xuri/excelize/v2"

	"gallery-backend/internal/domains/collection/model"
	"gallery-backend/internal/shared"
)

// ServiceInterface is the collection store.
type ServiceInterface interface {
	Create(ctx context.Context, actor shared.Actor, req model.CreateCollectionRequest) (*model.Collection, error)
	List(ctx context.Context, actor shared.Actor, req model.ListCollectionsRequest) (*model.ListCollectionsResult, error)
	Get(ctx context.Context, actor shared.Actor, id int64) (*model.Collection, error)
	Update(ctx context.Context, actor shared.Actor, id int64, req model.UpdateCollectionRequest) (*model.Collection, error)
	Delete(ctx context.Context, actor shared.Actor, id int64) (*model.DeleteCollectionResult, error)
	// EnsureFavorites returns the actor's Favorites collection, creating it when missing.
	// The bool reports whether it was created.
	EnsureFavorites(ctx context.Context, actor shared.Actor) (*model.Collection, bool, error)
	ExportToExcel(ctx context.Context, actor shared.Actor, id int64) (*excelize.File, *model.Collection, error)
}
