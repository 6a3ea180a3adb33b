package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"gallery-backend/internal/config"
	"gallery-backend/internal/domains/collection/model"
	"gallery-backend/internal/domains/collection/repository"
	"gallery-backend/internal/infrastructure/events"
	"gallery-backend/internal/infrastructure/queue"
	"gallery-backend/internal/shared"
	"gallery-backend/internal/shared/metrics"
	"gallery-backend/internal/shared/utils"
)

type CollectionService struct {
	repo     repository.RepositoryInterface
	queue    queue.Enqueuer
	bus      events.Publisher
	gallery  config.GalleryConfig
	maxRetry int
}

func NewCollectionService(
	repo repository.RepositoryInterface,
	q queue.Enqueuer,
	bus events.Publisher,
	gallery config.GalleryConfig,
	worker config.WorkerConfig,
) ServiceInterface {
	return &CollectionService{
		repo:     repo,
		queue:    q,
		bus:      bus,
		gallery:  gallery,
		maxRetry: worker.ReleaseMaxRetry,
	}
}

func (s *CollectionService) Create(ctx context.Context, actor shared.Actor, req model.CreateCollectionRequest) (c *model.Collection, err error) {
	defer func() { metrics.RecordOperation("collection", "create", err) }()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	c = &model.Collection{
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    req.Public(),
		CreatedBy:   actor.UserID,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	s.bus.Publish(ctx, events.CollectionChange(events.CollectionCreated, c.ID, c.CreatedBy, c.IsPublic))
	return c, nil
}

func (s *CollectionService) List(ctx context.Context, actor shared.Actor, req model.ListCollectionsRequest) (*model.ListCollectionsResult, error) {
	skip := req.Skip
	if skip < 0 {
		skip = 0
	}
	limit := utils.ClampLimit(req.Limit, s.gallery.DefaultPageLimit, s.gallery.MaxPageLimit)

	collections, total, err := s.repo.List(ctx, actor, skip, limit)
	if err != nil {
		return nil, err
	}

	return &model.ListCollectionsResult{
		Collections: collections,
		Total:       total,
		Skip:        skip,
		Limit:       limit,
	}, nil
}

func (s *CollectionService) Get(ctx context.Context, actor shared.Actor, id int64) (*model.Collection, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.VisibleTo(actor) {
		return nil, model.ErrForbidden
	}
	return c, nil
}

func (s *CollectionService) Update(ctx context.Context, actor shared.Actor, id int64, req model.UpdateCollectionRequest) (c *model.Collection, err error) {
	defer func() { metrics.RecordOperation("collection", "update", err) }()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	c, err = s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.ManageableBy(actor) {
		return nil, model.ErrForbidden
	}
	if req.IsEmpty() {
		return c, nil
	}

	wasPublic := c.IsPublic
	req.Apply(c)
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.CollectionChange(events.CollectionUpdated, c.ID, c.CreatedBy, c.IsPublic || wasPublic))
	return c, nil
}

// Delete cascades to the collection's items. Their payloads are released by the worker.
// A Favorites collection must be emptied first.
func (s *CollectionService) Delete(ctx context.Context, actor shared.Actor, id int64) (res *model.DeleteCollectionResult, err error) {
	defer func() { metrics.RecordOperation("collection", "delete", err) }()

	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.ManageableBy(actor) {
		return nil, model.ErrForbidden
	}

	keys, err := s.repo.DeleteCascade(ctx, id)
	if err != nil {
		return nil, err
	}

	res = &model.DeleteCollectionResult{CollectionID: id, ItemsDeleted: len(keys)}
	if err := queue.EnqueueReleasePayload(ctx, s.queue, keys, "collection_deleted", s.maxRetry); err != nil {
		// Rows are gone; the orphan sweep picks the payloads up later.
		log.Error().Err(err).Int64("collection_id", id).Int("keys", len(keys)).Msg("failed to enqueue payload release")
	} else {
		res.PayloadsQueued = len(keys)
	}

	log.Info().
		Int64("collection_id", id).
		Int("items_deleted", len(keys)).
		Str("actor", actor.UserID.String()).
		Msg("collection deleted")

	s.bus.Publish(ctx, events.CollectionChange(events.CollectionDeleted, id, c.CreatedBy, c.IsPublic))
	return res, nil
}

func (s *CollectionService) EnsureFavorites(ctx context.Context, actor shared.Actor) (*model.Collection, bool, error) {
	fav, err := s.repo.FindFavorites(ctx, actor.UserID)
	if err == nil {
		return fav, false, nil
	}
	if !errors.Is(err, model.ErrCollectionNotFound) {
		return nil, false, err
	}

	// Adopt a single legacy collection named "Favorites" instead of creating a second one.
	legacy, err := s.repo.FindByNameFold(ctx, actor.UserID, model.FavoritesName)
	if err != nil {
		return nil, false, err
	}
	if len(legacy) == 1 {
		fav = &legacy[0]
		if err := s.repo.MarkFavorites(ctx, fav.ID); err != nil && !errors.Is(err, model.ErrFavoritesExists) {
			return nil, false, err
		}
		return s.reloadFavorites(ctx, actor)
	}

	desc := model.FavoritesDescription
	fav = &model.Collection{
		Name:        model.FavoritesName,
		Description: &desc,
		IsPublic:    false,
		IsFavorites: true,
		CreatedBy:   actor.UserID,
	}
	if err := s.repo.Create(ctx, fav); err != nil {
		if errors.Is(err, model.ErrFavoritesExists) {
			// Lost a race with a concurrent request.
			return s.reloadFavorites(ctx, actor)
		}
		return nil, false, fmt.Errorf("create favorites: %w", err)
	}

	log.Info().Int64("collection_id", fav.ID).Str("owner", actor.UserID.String()).Msg("favorites collection created")
	s.bus.Publish(ctx, events.CollectionChange(events.CollectionCreated, fav.ID, fav.CreatedBy, fav.IsPublic))
	return fav, true, nil
}

func (s *CollectionService) reloadFavorites(ctx context.Context, actor shared.Actor) (*model.Collection, bool, error) {
	fav, err := s.repo.FindFavorites(ctx, actor.UserID)
	if err != nil {
		return nil, false, err
	}
	return fav, false, nil
}
