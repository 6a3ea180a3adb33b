package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"gallery-backend/internal/shared"
)

// FavoritesName is the legacy name used to recognise a Favorites collection
// created before the is_favorites flag existed.
const FavoritesName = "Favorites"

const FavoritesDescription = "Your favorite items saved from other collections"

type Collection struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`
	IsPublic    bool      `json:"is_public" db:"is_public"`
	IsFavorites bool      `json:"is_favorites" db:"is_favorites"`
	CreatedBy   uuid.UUID `json:"created_by" db:"created_by"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// VisibleTo: admins see everything, others see their own and public collections.
func (c *Collection) VisibleTo(actor shared.Actor) bool {
	return actor.IsAdmin() || actor.Owns(c.CreatedBy) || c.IsPublic
}

// ManageableBy reports whether the actor may update or delete the collection.
func (c *Collection) ManageableBy(actor shared.Actor) bool {
	return actor.IsAdmin() || actor.Owns(c.CreatedBy)
}

// LooksLikeFavorites matches the legacy case-insensitive name convention.
func (c *Collection) LooksLikeFavorites() bool {
	return strings.EqualFold(strings.TrimSpace(c.Name), FavoritesName)
}

// CatalogRow is one exported item line.
type CatalogRow struct {
	ItemID         int64
	Title          string
	Description    *string
	AltText        *string
	Veneration     *string
	CommissionDate *time.Time
	OwnedSince     *time.Time
	MonitoryValue  *string
	Filename       string
	MimeType       string
	FileSize       int64
	Width          *int
	Height         *int
	UploadDate     time.Time
}
