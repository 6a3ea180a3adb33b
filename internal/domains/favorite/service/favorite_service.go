package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	collectionModel "gallery-backend/internal/domains/collection/model"
	"gallery-backend/internal/domains/favorite/model"
	itemModel "gallery-backend/internal/domains/item/model"
	itemService "gallery-backend/internal/domains/item/service"
	"gallery-backend/internal/infrastructure/events"
	"gallery-backend/internal/shared"
	"gallery-backend/internal/shared/metrics"
)

type FavoriteService struct {
	collections CollectionFinder
	items       itemService.ServiceInterface
}

func NewFavoriteService(collections CollectionFinder, items itemService.ServiceInterface) ServiceInterface {
	return &FavoriteService{collections: collections, items: items}
}

func (s *FavoriteService) ResolveFavoritesCollection(ctx context.Context, actor shared.Actor) (*collectionModel.Collection, error) {
	fav, err := s.collections.FindFavorites(ctx, actor.UserID)
	if err == nil {
		return fav, nil
	}
	if !errors.Is(err, collectionModel.ErrCollectionNotFound) {
		return nil, err
	}

	legacy, err := s.collections.FindByNameFold(ctx, actor.UserID, collectionModel.FavoritesName)
	if err != nil {
		return nil, err
	}
	switch len(legacy) {
	case 0:
		return nil, model.ErrFavoritesNotFound
	case 1:
		return &legacy[0], nil
	default:
		log.Warn().
			Str("user_id", actor.UserID.String()).
			Int("matches", len(legacy)).
			Msg("ambiguous legacy favorites collections")
		return nil, model.ErrFavoritesAmbiguous
	}
}

func (s *FavoriteService) IsFavorited(ctx context.Context, actor shared.Actor, item *itemModel.Item) (bool, error) {
	fav, err := s.ResolveFavoritesCollection(ctx, actor)
	if err != nil {
		if errors.Is(err, model.ErrFavoritesNotFound) {
			return false, nil
		}
		return false, err
	}
	return item.CollectionID == fav.ID, nil
}

func (s *FavoriteService) Toggle(ctx context.Context, actor shared.Actor, itemID int64) (res *model.ToggleResult, err error) {
	defer func() { metrics.RecordOperation("favorite", "toggle", err) }()

	it, err := s.items.Get(ctx, actor, itemID)
	if err != nil {
		return nil, err
	}
	fav, err := s.ResolveFavoritesCollection(ctx, actor)
	if err != nil {
		return nil, err
	}

	if it.CollectionID != fav.ID {
		moved, err := s.items.Move(ctx, actor, itemID, fav.ID, itemService.MoveOptions{
			RememberPrevious: true,
			ExpectFrom:       it.CollectionID,
			Kind:             events.ItemFavorited,
		})
		if err != nil {
			if errors.Is(err, itemModel.ErrCollectionNotFound) {
				// deleted after it was resolved
				return nil, model.ErrFavoritesNotFound
			}
			return nil, err
		}
		return &model.ToggleResult{Item: moved, Favorited: true, FavoritesCollectionID: fav.ID}, nil
	}

	if it.PreviousCollectionID == nil || *it.PreviousCollectionID == fav.ID {
		return nil, model.ErrNoPreviousCollection
	}

	moved, err := s.items.Move(ctx, actor, itemID, *it.PreviousCollectionID, itemService.MoveOptions{
		ExpectFrom: fav.ID,
		Kind:       events.ItemUnfavorited,
	})
	if err != nil {
		if errors.Is(err, itemModel.ErrCollectionNotFound) || errors.Is(err, itemModel.ErrCollectionDenied) {
			log.Info().
				Int64("item_id", itemID).
				Int64("previous_collection_id", *it.PreviousCollectionID).
				Msg("previous collection is gone or inaccessible")
			return nil, model.ErrNoPreviousCollection
		}
		return nil, err
	}
	return &model.ToggleResult{Item: moved, Favorited: false, FavoritesCollectionID: fav.ID}, nil
}

func (s *FavoriteService) Status(ctx context.Context, actor shared.Actor, itemID int64) (*model.Status, error) {
	it, err := s.items.Get(ctx, actor, itemID)
	if err != nil {
		return nil, err
	}

	status := &model.Status{ItemID: itemID}
	fav, err := s.ResolveFavoritesCollection(ctx, actor)
	switch {
	case errors.Is(err, model.ErrFavoritesNotFound):
		return status, nil
	case err != nil:
		return nil, err
	}

	status.FavoritesCollectionID = &fav.ID
	status.Favorited = it.CollectionID == fav.ID
	return status, nil
}
