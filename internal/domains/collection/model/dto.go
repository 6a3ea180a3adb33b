package model

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"gallery-backend/internal/shared/utils"
)

const (
	MaxNameLength        = 255
	MaxDescriptionLength = 1000
)

type CreateCollectionRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	IsPublic    *bool   `json:"is_public"`
}

// Normalize trims whitespace; an empty description becomes nil.
func (r *CreateCollectionRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = utils.TrimPtr(r.Description)
}

func (r CreateCollectionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name,
			validation.Required.Error("name is required"),
			validation.RuneLength(1, MaxNameLength).Error("name must be 1-255 characters"),
		),
		validation.Field(&r.Description,
			validation.NilOrNotEmpty,
			validation.RuneLength(0, MaxDescriptionLength).Error("description must be at most 1000 characters"),
		),
	)
}

// Public defaults to true like the original collection form.
func (r CreateCollectionRequest) Public() bool {
	if r.IsPublic == nil {
		return true
	}
	return *r.IsPublic
}

// UpdateCollectionRequest merges only the fields that are present.
type UpdateCollectionRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsPublic    *bool   `json:"is_public"`
}

func (r *UpdateCollectionRequest) Normalize() {
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		r.Name = &name
	}
	if r.Description != nil {
		desc := strings.TrimSpace(*r.Description)
		r.Description = &desc
	}
}

func (r UpdateCollectionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name,
			validation.NilOrNotEmpty.Error("name cannot be empty"),
			validation.RuneLength(1, MaxNameLength).Error("name must be 1-255 characters"),
		),
		validation.Field(&r.Description,
			validation.RuneLength(0, MaxDescriptionLength).Error("description must be at most 1000 characters"),
		),
	)
}

func (r UpdateCollectionRequest) IsEmpty() bool {
	return r.Name == nil && r.Description == nil && r.IsPublic == nil
}

// Apply merges the request into c. An empty description clears it.
func (r UpdateCollectionRequest) Apply(c *Collection) {
	if r.Name != nil {
		c.Name = *r.Name
	}
	if r.Description != nil {
		if *r.Description == "" {
			c.Description = nil
		} else {
			desc := *r.Description
			c.Description = &desc
		}
	}
	if r.IsPublic != nil {
		c.IsPublic = *r.IsPublic
	}
}

type ListCollectionsRequest struct {
	Skip  int `form:"skip"`
	Limit int `form:"limit"`
}

type ListCollectionsResult struct {
	Collections []Collection
	Total       int64
	Skip        int
	Limit       int
}

// DeleteCollectionResult reports what a cascade delete removed.
type DeleteCollectionResult struct {
	CollectionID   int64 `json:"collection_id"`
	ItemsDeleted   int   `json:"items_deleted"`
	PayloadsQueued int   `json:"payloads_queued"`
}
