package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"gallery-backend/internal/config"
	collectionModel "gallery-backend/internal/domains/collection/model"
	"gallery-backend/internal/domains/item/model"
	"gallery-backend/internal/domains/item/repository"
	"gallery-backend/internal/infrastructure/events"
	"gallery-backend/internal/infrastructure/queue"
	"gallery-backend/internal/infrastructure/storage"
	"gallery-backend/internal/shared"
	"gallery-backend/internal/shared/metrics"
	"gallery-backend/internal/shared/utils"
	"gallery-backend/pkg/cache"
)

const defaultRelatedLimit = 12

// Payload release outcomes reported by Delete.
const (
	ReleaseInline   = "released"
	ReleaseQueued   = "queued"
	ReleaseDeferred = "deferred"
)

type ItemService struct {
	repo        repository.RepositoryInterface
	collections CollectionReader
	store       storage.ObjectStore
	images      *storage.ImageProcessor
	cache       cache.Cache
	queue       queue.Enqueuer
	bus         events.Publisher
	gallery     config.GalleryConfig
	maxRetry    int
}

func NewItemService(
	repo repository.RepositoryInterface,
	collections CollectionReader,
	store storage.ObjectStore,
	images *storage.ImageProcessor,
	c cache.Cache,
	q queue.Enqueuer,
	bus events.Publisher,
	gallery config.GalleryConfig,
	worker config.WorkerConfig,
) *ItemService {
	return &ItemService{
		repo:        repo,
		collections: collections,
		store:       store,
		images:      images,
		cache:       c,
		queue:       q,
		bus:         bus,
		gallery:     gallery,
		maxRetry:    worker.ReleaseMaxRetry,
	}
}

var _ ServiceInterface = (*ItemService)(nil)

// ========================================
// WRITES
// ========================================

// Upload stores the payload first and then commits the row. If the row cannot be
// committed the payload is removed again, so a failed upload leaves nothing behind.
func (s *ItemService) Upload(ctx context.Context, actor shared.Actor, req model.UploadRequest) (it *model.Item, err error) {
	defer func() { metrics.RecordOperation("item", "upload", err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	patch, err := req.Metadata.Patch()
	if err != nil {
		return nil, err
	}

	target, err := s.accessibleCollection(ctx, actor, *patch.CollectionID)
	if err != nil {
		return nil, err
	}

	payload, err := s.storePayload(ctx, req.File)
	if err != nil {
		return nil, err
	}

	it = &model.Item{
		OwnerID:      actor.UserID,
		CollectionID: target.ID,
	}
	patch.Apply(it)
	it.SetPayload(*payload)

	if err := s.repo.Create(ctx, it); err != nil {
		s.discardPayload(ctx, payload.Key)
		return nil, err
	}

	metrics.RecordUpload(payload.Size)
	log.Info().
		Int64("item_id", it.ID).
		Int64("collection_id", it.CollectionID).
		Int64("size", it.FileSize).
		Str("mime", it.MimeType).
		Msg("item uploaded")

	s.bus.Publish(ctx, events.ItemChange(events.ItemCreated, it.ID, it.OwnerID, it.CollectionPublic, it.CollectionID))
	return it, nil
}

// UpdateMetadata merges the provided fields. A replacement payload is stored before the
// row is touched and the old one is released only after the row commit.
func (s *ItemService) UpdateMetadata(ctx context.Context, actor shared.Actor, id int64, req model.UpdateRequest) (updated *model.Item, err error) {
	defer func() { metrics.RecordOperation("item", "update", err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	patch, err := req.Metadata.Patch()
	if err != nil {
		return nil, err
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.EditableBy(actor) {
		return nil, model.ErrForbidden
	}
	if patch.IsEmpty() && req.File == nil {
		return current, nil
	}

	var (
		target        *collectionModel.Collection
		intoFavorites bool
	)
	if patch.CollectionID != nil && *patch.CollectionID != current.CollectionID {
		if target, err = s.accessibleCollection(ctx, actor, *patch.CollectionID); err != nil {
			return nil, err
		}
		if intoFavorites, err = s.isFavoritesOf(ctx, target, current.OwnerID); err != nil {
			return nil, err
		}
	}

	var payload *model.Payload
	if req.File != nil {
		if payload, err = s.storePayload(ctx, req.File); err != nil {
			return nil, err
		}
	}

	var (
		oldKey string
		from   int64
	)
	updated, err = s.repo.Update(ctx, id, func(it *model.Item) error {
		if !it.EditableBy(actor) {
			return model.ErrForbidden
		}
		from = it.CollectionID
		patch.Apply(it)
		if target != nil && it.CollectionID != target.ID {
			moveTo(it, target.ID, intoFavorites)
		}
		if payload != nil {
			oldKey = it.FileKey
			it.SetPayload(*payload)
		}
		return nil
	})
	if err != nil {
		if payload != nil {
			s.discardPayload(ctx, payload.Key)
		}
		return nil, err
	}

	if payload != nil && oldKey != "" && oldKey != payload.Key {
		s.releasePayload(ctx, oldKey, "payload_replaced")
	}

	kind := events.ItemUpdated
	if updated.CollectionID != from {
		kind = events.ItemMoved
	}
	s.bus.Publish(ctx, events.ItemChange(kind, updated.ID, updated.OwnerID,
		updated.CollectionPublic || current.CollectionPublic, from, updated.CollectionID))
	return updated, nil
}

func (s *ItemService) Move(ctx context.Context, actor shared.Actor, id, target int64, opts MoveOptions) (moved *model.Item, err error) {
	defer func() { metrics.RecordOperation("item", "move", err) }()

	col, err := s.accessibleCollection(ctx, actor, target)
	if err != nil {
		return nil, err
	}

	var (
		from       int64
		fromPublic bool
	)
	moved, err = s.repo.Update(ctx, id, func(it *model.Item) error {
		if !it.EditableBy(actor) {
			return model.ErrForbidden
		}
		if opts.ExpectFrom != 0 && it.CollectionID != opts.ExpectFrom {
			return model.ErrConcurrentMove
		}
		from = it.CollectionID
		fromPublic = it.CollectionPublic
		moveTo(it, col.ID, opts.RememberPrevious)
		return nil
	})
	if err != nil {
		return nil, err
	}

	kind := opts.Kind
	if kind == "" {
		kind = events.ItemMoved
	}
	s.bus.Publish(ctx, events.ItemChange(kind, moved.ID, moved.OwnerID, moved.CollectionPublic || fromPublic, from, moved.CollectionID))
	return moved, nil
}

// isFavoritesOf reports whether c is owner's Favorites: the flagged collection or,
// when none is flagged, the only one named like it.
func (s *ItemService) isFavoritesOf(ctx context.Context, c *collectionModel.Collection, owner uuid.UUID) (bool, error) {
	if c.IsFavorites {
		return true, nil
	}
	if c.CreatedBy != owner || !c.LooksLikeFavorites() {
		return false, nil
	}

	if _, err := s.collections.FindFavorites(ctx, owner); err == nil {
		return false, nil
	} else if !errors.Is(err, collectionModel.ErrCollectionNotFound) {
		return false, err
	}

	legacy, err := s.collections.FindByNameFold(ctx, owner, collectionModel.FavoritesName)
	if err != nil {
		return false, err
	}
	return len(legacy) == 1 && legacy[0].ID == c.ID, nil
}

// moveTo reassigns the single collection reference and keeps previous_collection_id in step.
func moveTo(it *model.Item, target int64, rememberPrevious bool) {
	if rememberPrevious {
		if it.CollectionID != target {
			prev := it.CollectionID
			it.PreviousCollectionID = &prev
		}
	} else {
		it.PreviousCollectionID = nil
	}
	it.CollectionID = target
}

func (s *ItemService) Delete(ctx context.Context, actor shared.Actor, id int64) (res *model.DeleteItemResult, err error) {
	defer func() { metrics.RecordOperation("item", "delete", err) }()

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.EditableBy(actor) {
		return nil, model.ErrForbidden
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	release := s.releasePayload(ctx, deleted.FileKey, "item_deleted")
	log.Info().Int64("item_id", id).Str("payload_release", release).Msg("item deleted")

	s.bus.Publish(ctx, events.ItemChange(events.ItemDeleted, deleted.ID, deleted.OwnerID, deleted.CollectionPublic, deleted.CollectionID))
	return &model.DeleteItemResult{ItemID: id, PayloadRelease: release}, nil
}

// ========================================
// READS
// ========================================

type listPage struct {
	Items []model.Item `json:"items"`
	Total int64        `json:"total"`
}

func (s *ItemService) List(ctx context.Context, actor shared.Actor, req model.ListItemsRequest) (*model.ListItemsResult, error) {
	skip := req.Skip
	if skip < 0 {
		skip = 0
	}
	limit := utils.ClampLimit(req.Limit, s.gallery.DefaultPageLimit, s.gallery.MaxPageLimit)
	collectionID := req.CollectionID
	if collectionID != nil && *collectionID <= 0 {
		collectionID = nil
	}

	key := listCacheKey(actor, collectionID, skip, limit)
	page, err := s.cachedPage(ctx, "items_list", key, model.ListQuery{
		ViewerID:     actor.UserID,
		ViewAll:      actor.IsAdmin(),
		CollectionID: collectionID,
		Skip:         skip,
		Limit:        limit,
	})
	if err != nil {
		return nil, err
	}

	return &model.ListItemsResult{Items: page.Items, Total: page.Total, Skip: skip, Limit: limit}, nil
}

// Related lists other items of the same collection that actor may see.
func (s *ItemService) Related(ctx context.Context, actor shared.Actor, id int64, limit int) ([]model.Item, error) {
	it, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	limit = utils.ClampLimit(limit, defaultRelatedLimit, s.gallery.MaxPageLimit)

	collectionID := it.CollectionID
	key := relatedCacheKey(actor, collectionID, id, limit)
	page, err := s.cachedPage(ctx, "items_related", key, model.ListQuery{
		ViewerID:     actor.UserID,
		ViewAll:      actor.IsAdmin(),
		CollectionID: &collectionID,
		ExcludeID:    id,
		Limit:        limit,
	})
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

func (s *ItemService) cachedPage(ctx context.Context, name, key string, q model.ListQuery) (*listPage, error) {
	var page listPage
	hit, err := s.cache.Get(ctx, key, &page)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}
	metrics.RecordCacheLookup(name, hit)
	if hit {
		return &page, nil
	}

	items, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, err
	}
	page = listPage{Items: items, Total: total}

	if err := s.cache.Set(ctx, key, page, s.gallery.CacheTTL); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
	return &page, nil
}

// cachedItem keeps the object key that the public JSON form hides.
type cachedItem struct {
	model.Item
	FileKey string `json:"file_key"`
}

func (s *ItemService) Get(ctx context.Context, actor shared.Actor, id int64) (*model.Item, error) {
	it, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !it.VisibleTo(actor) {
		return nil, model.ErrForbidden
	}
	return it, nil
}

func (s *ItemService) load(ctx context.Context, id int64) (*model.Item, error) {
	key := detailCacheKey(id)

	var ci cachedItem
	hit, err := s.cache.Get(ctx, key, &ci)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}
	metrics.RecordCacheLookup("items_detail", hit)
	if hit && ci.FileKey != "" {
		it := ci.Item
		it.FileKey = ci.FileKey
		return &it, nil
	}

	it, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, cachedItem{Item: *it, FileKey: it.FileKey}, s.gallery.CacheTTL); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
	return it, nil
}

// OpenImage returns the payload stream. The caller closes Body.
func (s *ItemService) OpenImage(ctx context.Context, actor shared.Actor, id int64) (*model.Image, error) {
	it, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	body, info, err := s.store.Get(ctx, it.FileKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, model.ErrImageNotFound
		}
		return nil, fmt.Errorf("%w: %v", model.ErrStorage, err)
	}

	contentType := it.MimeType
	if contentType == "" {
		contentType = info.ContentType
	}
	return &model.Image{Item: it, Body: body, Size: info.Size, ContentType: contentType}, nil
}

// ========================================
// HELPERS
// ========================================

func (s *ItemService) accessibleCollection(ctx context.Context, actor shared.Actor, id int64) (*collectionModel.Collection, error) {
	c, err := s.collections.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, collectionModel.ErrCollectionNotFound) {
			return nil, model.ErrCollectionNotFound
		}
		return nil, err
	}
	if !c.VisibleTo(actor) {
		return nil, model.ErrCollectionDenied
	}
	return c, nil
}

func (s *ItemService) storePayload(ctx context.Context, file *model.FileInput) (*model.Payload, error) {
	info, err := s.images.Probe(file.Data)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrEmptyPayload):
			return nil, validation.Errors{"file": errors.New("file is empty")}
		case errors.Is(err, storage.ErrTooLarge):
			return nil, validation.Errors{"file": fmt.Errorf("file exceeds %d bytes", s.images.MaxSize)}
		case errors.Is(err, storage.ErrNotAnImage):
			return nil, validation.Errors{"file": errors.New("file must be an image")}
		}
		return nil, err
	}

	key := shared.ObjectKeyPrefix + uuid.NewString() + info.Extension
	if err := s.store.Put(ctx, key, bytes.NewReader(file.Data), info.Size, info.MimeType); err != nil {
		log.Error().Err(err).Str("key", key).Msg("payload write failed")
		return nil, fmt.Errorf("%w: %v", model.ErrStorage, err)
	}

	return &model.Payload{
		Filename: displayFilename(file.Filename, info.Extension),
		Key:      key,
		Size:     info.Size,
		MimeType: info.MimeType,
		Width:    info.Width,
		Height:   info.Height,
	}, nil
}

func displayFilename(name, ext string) string {
	name = utils.SanitizeFilename(name)
	if filepath.Ext(name) == "" && ext != "" && !strings.HasSuffix(name, ext) {
		// sanitized names are ASCII, byte slicing is safe
		if len(name)+len(ext) > utils.MaxFilenameLen {
			name = strings.TrimRight(name[:utils.MaxFilenameLen-len(ext)], " .")
		}
		name += ext
	}
	return name
}

// discardPayload removes a payload whose row was never committed.
func (s *ItemService) discardPayload(ctx context.Context, key string) {
	ctx = context.WithoutCancel(ctx)
	if err := s.store.Delete(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to discard uncommitted payload, left for orphan sweep")
	}
}

// releasePayload deletes a payload whose row is gone, falling back to the worker queue.
func (s *ItemService) releasePayload(ctx context.Context, key, reason string) string {
	ctx = context.WithoutCancel(ctx)

	err := s.store.Delete(ctx, key)
	if err == nil {
		metrics.RecordPayloadsReleased("inline", 1)
		return ReleaseInline
	}
	log.Warn().Err(err).Str("key", key).Msg("inline payload release failed, queueing")

	if err := queue.EnqueueReleasePayload(ctx, s.queue, []string{key}, reason, s.maxRetry); err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to queue payload release, left for orphan sweep")
		return ReleaseDeferred
	}
	return ReleaseQueued
}
