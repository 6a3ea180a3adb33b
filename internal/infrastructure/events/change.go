package events

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	ItemCreated       Kind = "item.created"
	ItemUpdated       Kind = "item.updated"
	ItemMoved         Kind = "item.moved"
	ItemDeleted       Kind = "item.deleted"
	ItemFavorited     Kind = "item.favorited"
	ItemUnfavorited   Kind = "item.unfavorited"
	CollectionCreated Kind = "collection.created"
	CollectionUpdated Kind = "collection.updated"
	CollectionDeleted Kind = "collection.deleted"
)

// ScopeItems covers every cached item list that is not collection scoped.
const ScopeItems = "items"

func CollectionScope(id int64) string {
	return "collection:" + strconv.FormatInt(id, 10)
}

func ItemScope(id int64) string {
	return "item:" + strconv.FormatInt(id, 10)
}

// Change is published once per committed mutation.
type Change struct {
	Kind          Kind      `json:"kind"`
	ItemID        int64     `json:"item_id,omitempty"`
	CollectionIDs []int64   `json:"collection_ids"`
	Scopes        []string  `json:"scopes"`
	OwnerID       uuid.UUID `json:"owner_id"`
	// Public is true when any affected collection is visible to everyone.
	Public bool      `json:"public"`
	Origin string    `json:"origin,omitempty"`
	At     time.Time `json:"at"`
}

// ItemChange builds the change for an item mutation touching the given collections.
// Duplicate and zero collection ids are dropped.
func ItemChange(kind Kind, itemID int64, ownerID uuid.UUID, public bool, collectionIDs ...int64) Change {
	ids := uniqueIDs(collectionIDs)

	scopes := []string{ScopeItems, ItemScope(itemID)}
	for _, id := range ids {
		scopes = append(scopes, CollectionScope(id))
	}

	return Change{
		Kind:          kind,
		ItemID:        itemID,
		CollectionIDs: ids,
		Scopes:        scopes,
		OwnerID:       ownerID,
		Public:        public,
	}
}

// CollectionChange builds the change for a collection mutation.
// Deleting a collection also drops its items from every list.
func CollectionChange(kind Kind, collectionID int64, ownerID uuid.UUID, public bool) Change {
	scopes := []string{CollectionScope(collectionID)}
	if kind == CollectionDeleted {
		scopes = append(scopes, ScopeItems)
	}

	return Change{
		Kind:          kind,
		CollectionIDs: []int64{collectionID},
		Scopes:        scopes,
		OwnerID:       ownerID,
		Public:        public,
	}
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
