package model

import "errors"

const (
	ErrCodeItemNotFound       = "ITEM_NOT_FOUND"
	ErrCodeImageNotFound      = "IMAGE_NOT_FOUND"
	ErrCodeCollectionNotFound = "COLLECTION_NOT_FOUND"
	ErrCodeConcurrentMove     = "CONCURRENT_MOVE"
)

var (
	ErrItemNotFound       = errors.New("item not found")
	ErrImageNotFound      = errors.New("image payload not found")
	ErrCollectionNotFound = errors.New("target collection not found")
	ErrForbidden          = errors.New("not enough permissions")
	ErrCollectionDenied   = errors.New("cannot use this collection")
	ErrConcurrentMove     = errors.New("item was moved by another request")
	// ErrStorage wraps payload write and read failures.
	ErrStorage = errors.New("payload storage failure")
)
