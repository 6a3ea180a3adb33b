package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gallery-backend/internal/shared"
)

// Item is one uploaded image and its metadata. It always belongs to exactly one collection.
type Item struct {
	ID             int64            `json:"id" db:"id"`
	Title          string           `json:"title" db:"title"`
	Description    *string          `json:"description,omitempty" db:"description"`
	AltText        *string          `json:"alt_text,omitempty" db:"alt_text"`
	Veneration     *string          `json:"veneration,omitempty" db:"veneration"`
	CommissionDate *time.Time       `json:"commission_date,omitempty" db:"commission_date"`
	OwnedSince     *time.Time       `json:"owned_since,omitempty" db:"owned_since"`
	MonitoryValue  *decimal.Decimal `json:"monitory_value,omitempty" db:"monitory_value"`

	Filename string `json:"filename" db:"filename"`
	FileKey  string `json:"-" db:"file_key"`
	FileSize int64  `json:"file_size" db:"file_size"`
	MimeType string `json:"mime_type" db:"mime_type"`
	Width    *int   `json:"width,omitempty" db:"width"`
	Height   *int   `json:"height,omitempty" db:"height"`

	OwnerID              uuid.UUID `json:"owner_id" db:"owner_id"`
	CollectionID         int64     `json:"collection_id" db:"collection_id"`
	PreviousCollectionID *int64    `json:"previous_collection_id,omitempty" db:"previous_collection_id"`
	UploadDate           time.Time `json:"upload_date" db:"upload_date"`
	UpdatedAt            time.Time `json:"updated_at" db:"updated_at"`

	// CollectionPublic is joined from the owning collection.
	CollectionPublic bool `json:"collection_public" db:"collection_public"`
}

func (it *Item) VisibleTo(actor shared.Actor) bool {
	return actor.IsAdmin() || actor.Owns(it.OwnerID) || it.CollectionPublic
}

// EditableBy: only the owner or an admin may change or delete an item.
func (it *Item) EditableBy(actor shared.Actor) bool {
	return actor.IsAdmin() || actor.Owns(it.OwnerID)
}

// Payload describes a stored image, derived from its bytes.
type Payload struct {
	Filename string
	Key      string
	Size     int64
	MimeType string
	Width    *int
	Height   *int
}

func (it *Item) SetPayload(p Payload) {
	it.Filename = p.Filename
	it.FileKey = p.Key
	it.FileSize = p.Size
	it.MimeType = p.MimeType
	it.Width = p.Width
	it.Height = p.Height
}
