package model

import (
	"errors"

	itemModel "gallery-backend/internal/domains/item/model"
)

const (
	ErrCodeFavoritesMissing     = "FAVORITES_MISSING"
	ErrCodeFavoritesAmbiguous   = "FAVORITES_AMBIGUOUS"
	ErrCodeNoPreviousCollection = "NO_PREVIOUS_COLLECTION"
)

var (
	ErrFavoritesNotFound = errors.New("favorites collection not found, create it first")
	// ErrFavoritesAmbiguous: several legacy collections are named "Favorites" and none is flagged.
	ErrFavoritesAmbiguous   = errors.New("more than one collection is named Favorites")
	ErrNoPreviousCollection = errors.New("item has no previous collection to return to")
)

// Status reports whether an item currently sits in the actor's Favorites collection.
type Status struct {
	ItemID                int64  `json:"item_id"`
	Favorited             bool   `json:"favorited"`
	FavoritesCollectionID *int64 `json:"favorites_collection_id"`
}

type ToggleResult struct {
	Item                  *itemModel.Item `json:"item"`
	Favorited             bool            `json:"favorited"`
	FavoritesCollectionID int64           `json:"favorites_collection_id"`
}
