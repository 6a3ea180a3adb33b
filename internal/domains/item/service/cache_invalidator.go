package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"gallery-backend/internal/infrastructure/events"
	"gallery-backend/internal/shared"
	"gallery-backend/pkg/cache"
)

const cachePrefix = "gallery:items:"

// viewerKey partitions cached pages by what the viewer may see.
func viewerKey(actor shared.Actor) string {
	if actor.IsAdmin() {
		return "admin"
	}
	return actor.UserID.String()
}

func listCacheKey(actor shared.Actor, collectionID *int64, skip, limit int) string {
	scope := "all"
	if collectionID != nil {
		scope = "collection:" + strconv.FormatInt(*collectionID, 10)
	}
	return fmt.Sprintf("%slist:%s:%s:%d:%d", cachePrefix, scope, viewerKey(actor), skip, limit)
}

func relatedCacheKey(actor shared.Actor, collectionID, itemID int64, limit int) string {
	return fmt.Sprintf("%slist:collection:%d:related:%d:%s:%d", cachePrefix, collectionID, itemID, viewerKey(actor), limit)
}

func detailCacheKey(id int64) string {
	return cachePrefix + "detail:" + strconv.FormatInt(id, 10)
}

// CacheInvalidator drops cached item reads for every scope a change touches.
type CacheInvalidator struct {
	cache cache.Cache
}

func NewCacheInvalidator(c cache.Cache) *CacheInvalidator {
	return &CacheInvalidator{cache: c}
}

// OnChange is an events.Handler.
func (inv *CacheInvalidator) OnChange(ctx context.Context, c events.Change) {
	var patterns, keys []string

	for _, scope := range c.Scopes {
		switch {
		case scope == events.ScopeItems:
			patterns = append(patterns, cachePrefix+"list:all:*")
		case strings.HasPrefix(scope, "collection:"):
			patterns = append(patterns, cachePrefix+"list:"+scope+":*")
		case strings.HasPrefix(scope, "item:"):
			keys = append(keys, cachePrefix+"detail:"+strings.TrimPrefix(scope, "item:"))
		}
	}

	// Cached details carry the collection's visibility and vanish with it.
	switch c.Kind {
	case events.CollectionUpdated:
		patterns = append(patterns, cachePrefix+"list:all:*", cachePrefix+"detail:*")
	case events.CollectionDeleted:
		patterns = append(patterns, cachePrefix+"detail:*")
	}

	if len(keys) > 0 {
		if err := inv.cache.Delete(ctx, keys...); err != nil {
			log.Warn().Err(err).Strs("keys", keys).Msg("cache invalidation failed")
		}
	}
	for _, p := range patterns {
		if err := inv.cache.DeletePattern(ctx, p); err != nil {
			log.Warn().Err(err).Str("pattern", p).Msg("cache invalidation failed")
		}
	}
}
