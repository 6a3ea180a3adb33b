package model

import "errors"

// Error codes surfaced to clients
const (
	ErrCodeCollectionNotFound = "COLLECTION_NOT_FOUND"
	ErrCodeFavoritesNotEmpty  = "FAVORITES_NOT_EMPTY"
	ErrCodeFavoritesExists    = "FAVORITES_EXISTS"
)

var (
	ErrCollectionNotFound = errors.New("collection not found")
	ErrForbidden          = errors.New("not allowed to modify this collection")
	ErrFavoritesNotEmpty  = errors.New("favorites collection still holds items")
	ErrFavoritesExists    = errors.New("favorites collection already exists for this user")
)
