package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gallery-backend/internal/shared/utils"
)

const (
	MaxTitleLength       = 255
	MaxDescriptionLength = 1000
	MaxAltTextLength     = 500
	MaxVenerationLength  = 255
)

// NUMERIC(14,2)
var maxMonitoryValue = decimal.New(1, 12)

// LooseString accepts either a JSON string or a bare JSON number.
type LooseString string

func (s *LooseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = LooseString(v)
		return nil
	}
	*s = LooseString(b)
	return nil
}

func (s *LooseString) String() string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(string(*s))
}

// MetadataInput is the item metadata as submitted by a form or JSON body.
// nil means "not provided"; an empty string clears an optional field.
type MetadataInput struct {
	Title          *string      `json:"title"`
	Description    *string      `json:"description"`
	AltText        *string      `json:"alt_text"`
	Veneration     *string      `json:"veneration"`
	CommissionDate *string      `json:"commission_date"`
	OwnedSince     *string      `json:"owned_since"`
	MonitoryValue  *LooseString `json:"monitory_value"`
	CollectionID   *LooseString `json:"collection_id"`
}

func (m MetadataInput) Validate() error {
	err := validation.ValidateStruct(&m,
		validation.Field(&m.Title,
			validation.By(notBlank("title cannot be empty")),
			validation.RuneLength(0, MaxTitleLength).Error("title must be at most 255 characters"),
		),
		validation.Field(&m.Description,
			validation.RuneLength(0, MaxDescriptionLength).Error("description must be at most 1000 characters"),
		),
		validation.Field(&m.AltText,
			validation.RuneLength(0, MaxAltTextLength).Error("alt_text must be at most 500 characters"),
		),
		validation.Field(&m.Veneration,
			validation.RuneLength(0, MaxVenerationLength).Error("veneration must be at most 255 characters"),
		),
	)

	errs := validation.Errors{}
	if err != nil {
		var verrs validation.Errors
		if !errors.As(err, &verrs) {
			return err
		}
		errs = verrs
	}
	if _, perrs := m.parse(); perrs != nil {
		for k, v := range perrs {
			if _, exists := errs[k]; !exists {
				errs[k] = v
			}
		}
	}
	return errs.Filter()
}

// Patch converts validated input into typed changes.
func (m MetadataInput) Patch() (Patch, error) {
	p, errs := m.parse()
	if errs != nil {
		return Patch{}, errs
	}
	return p, nil
}

func (m MetadataInput) parse() (Patch, validation.Errors) {
	var (
		p    Patch
		errs = validation.Errors{}
	)

	if m.Title != nil {
		title := strings.TrimSpace(*m.Title)
		p.Title = &title
	}
	p.Description = textField(m.Description)
	p.AltText = textField(m.AltText)
	p.Veneration = textField(m.Veneration)

	var err error
	if p.CommissionDate, err = dateField(m.CommissionDate); err != nil {
		errs["commission_date"] = errors.New("invalid commission_date format, use ISO 8601")
	}
	if p.OwnedSince, err = dateField(m.OwnedSince); err != nil {
		errs["owned_since"] = errors.New("invalid owned_since format, use ISO 8601")
	}

	if m.MonitoryValue != nil {
		p.MonitoryValue.Set = true
		if raw := m.MonitoryValue.String(); raw != "" {
			d, err := utils.ParseDecimal(raw)
			switch {
			case err != nil:
				errs["monitory_value"] = errors.New("monitory_value must be a decimal number")
			case d.Abs().GreaterThanOrEqual(maxMonitoryValue):
				errs["monitory_value"] = errors.New("monitory_value is out of range")
			default:
				d = d.Round(2)
				p.MonitoryValue.Value = &d
			}
		}
	}

	if m.CollectionID != nil {
		id, err := utils.ParseID(m.CollectionID.String())
		if err != nil {
			errs["collection_id"] = errors.New("collection_id must be a positive integer")
		} else {
			p.CollectionID = &id
		}
	}

	if len(errs) > 0 {
		return Patch{}, errs
	}
	return p, nil
}

// Field is a tri-state patch value: untouched (Set false), cleared (Value nil) or set.
type Field[T any] struct {
	Set   bool
	Value *T
}

func (f Field[T]) apply(dst **T) {
	if f.Set {
		*dst = f.Value
	}
}

// Patch holds the typed metadata changes of one request.
type Patch struct {
	Title          *string
	Description    Field[string]
	AltText        Field[string]
	Veneration     Field[string]
	CommissionDate Field[time.Time]
	OwnedSince     Field[time.Time]
	MonitoryValue  Field[decimal.Decimal]
	CollectionID   *int64
}

func (p Patch) IsEmpty() bool {
	return p.Title == nil &&
		!p.Description.Set &&
		!p.AltText.Set &&
		!p.Veneration.Set &&
		!p.CommissionDate.Set &&
		!p.OwnedSince.Set &&
		!p.MonitoryValue.Set &&
		p.CollectionID == nil
}

// Apply merges the metadata fields into it. Collection moves are applied by the service.
func (p Patch) Apply(it *Item) {
	if p.Title != nil {
		it.Title = *p.Title
	}
	p.Description.apply(&it.Description)
	p.AltText.apply(&it.AltText)
	p.Veneration.apply(&it.Veneration)
	p.CommissionDate.apply(&it.CommissionDate)
	p.OwnedSince.apply(&it.OwnedSince)
	p.MonitoryValue.apply(&it.MonitoryValue)
}

// FileInput is an uploaded image as received.
type FileInput struct {
	Filename string
	Data     []byte
}

// UploadRequest is a new item: file, title and collection_id are required.
type UploadRequest struct {
	Metadata MetadataInput
	File     *FileInput
}

func (r UploadRequest) Validate() error {
	errs := validation.Errors{}
	if r.File == nil || len(r.File.Data) == 0 {
		errs["file"] = errors.New("file is required")
	}
	if r.Metadata.Title == nil || strings.TrimSpace(*r.Metadata.Title) == "" {
		errs["title"] = errors.New("title is required")
	}
	if r.Metadata.CollectionID == nil || r.Metadata.CollectionID.String() == "" {
		errs["collection_id"] = errors.New("collection_id is required")
	}
	mergeErrors(errs, r.Metadata.Validate())
	return errs.Filter()
}

// UpdateRequest changes metadata and optionally replaces the payload.
type UpdateRequest struct {
	Metadata MetadataInput
	File     *FileInput
}

func (r UpdateRequest) Validate() error {
	errs := validation.Errors{}
	if r.File != nil && len(r.File.Data) == 0 {
		errs["file"] = errors.New("file is empty")
	}
	mergeErrors(errs, r.Metadata.Validate())
	return errs.Filter()
}

type ListItemsRequest struct {
	Skip         int    `form:"skip"`
	Limit        int    `form:"limit"`
	CollectionID *int64 `form:"collection_id"`
}

type ListItemsResult struct {
	Items []Item `json:"data"`
	Total int64  `json:"count"`
	Skip  int    `json:"-"`
	Limit int    `json:"-"`
}

// ListQuery is what the repository filters on.
type ListQuery struct {
	ViewerID     uuid.UUID
	ViewAll      bool
	CollectionID *int64
	ExcludeID    int64
	Skip         int
	Limit        int
}

// Image is an opened payload ready to stream.
type Image struct {
	Item        *Item
	Body        io.ReadCloser
	Size        int64
	ContentType string
}

// DeleteItemResult reports how the payload was released.
type DeleteItemResult struct {
	ItemID         int64  `json:"item_id"`
	PayloadRelease string `json:"payload_release"`
}

func mergeErrors(dst validation.Errors, err error) {
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return
	}
	for k, v := range verrs {
		if _, exists := dst[k]; !exists {
			dst[k] = v
		}
	}
}

func notBlank(msg string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(*string)
		if s != nil && strings.TrimSpace(*s) == "" {
			return errors.New(msg)
		}
		return nil
	}
}

func textField(s *string) Field[string] {
	if s == nil {
		return Field[string]{}
	}
	return Field[string]{Set: true, Value: utils.TrimPtr(s)}
}

func dateField(s *string) (Field[time.Time], error) {
	if s == nil {
		return Field[time.Time]{}, nil
	}
	raw := strings.TrimSpace(*s)
	if raw == "" {
		return Field[time.Time]{Set: true}, nil
	}
	t, err := utils.ParseFlexibleTime(raw)
	if err != nil {
		return Field[time.Time]{}, err
	}
	return Field[time.Time]{Set: true, Value: &t}, nil
}
