package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog/log"

	"gallery-backend/internal/domains/item/model"
	"gallery-backend/internal/domains/item/service"
	"gallery-backend/internal/shared"
	"gallery-backend/internal/shared/middleware"
	"gallery-backend/internal/shared/response"
	"gallery-backend/internal/shared/utils"
)

// multipart overhead allowed on top of the payload itself
const formOverhead = 1 << 20

type ItemHandler struct {
	service   service.ServiceInterface
	maxUpload int64
}

func NewItemHandler(service service.ServiceInterface, maxUpload int64) *ItemHandler {
	return &ItemHandler{service: service, maxUpload: maxUpload}
}

// Upload handles POST /items/upload (multipart/form-data)
func (h *ItemHandler) Upload(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	meta, file, ok := h.parseForm(c)
	if !ok {
		return
	}

	it, err := h.service.Upload(c.Request.Context(), actor, model.UploadRequest{Metadata: meta, File: file})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Location", fmt.Sprintf("/api/v1/items/%d", it.ID))
	response.Success(c, http.StatusCreated, "Item uploaded", it)
}

// List handles GET /items?skip=&limit=&collection_id=
func (h *ItemHandler) List(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req model.ListItemsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "skip, limit and collection_id must be integers")
		return
	}

	res, err := h.service.List(c.Request.Context(), actor, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.List(c, res.Items, res.Total, res.Skip, res.Limit)
}

// Get handles GET /items/:id
func (h *ItemHandler) Get(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := itemID(c)
	if !ok {
		return
	}

	it, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "", it)
}

// Update handles PUT /items/:id (multipart/form-data, file optional)
func (h *ItemHandler) Update(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := itemID(c)
	if !ok {
		return
	}

	meta, file, ok := h.parseForm(c)
	if !ok {
		return
	}

	it, err := h.service.UpdateMetadata(c.Request.Context(), actor, id, model.UpdateRequest{Metadata: meta, File: file})
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Item updated", it)
}

// PatchMetadata handles PATCH /items/:id (JSON, metadata only)
func (h *ItemHandler) PatchMetadata(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := itemID(c)
	if !ok {
		return
	}

	var meta model.MetadataInput
	if err := c.ShouldBindJSON(&meta); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	it, err := h.service.UpdateMetadata(c.Request.Context(), actor, id, model.UpdateRequest{Metadata: meta})
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Item updated", it)
}

// Delete handles DELETE /items/:id
func (h *ItemHandler) Delete(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := itemID(c)
	if !ok {
		return
	}

	res, err := h.service.Delete(c.Request.Context(), actor, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Item deleted", res)
}

// Image handles GET /items/:id/image
func (h *ItemHandler) Image(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := itemID(c)
	if !ok {
		return
	}

	img, err := h.service.OpenImage(c.Request.Context(), actor, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	defer img.Body.Close()

	c.DataFromReader(http.StatusOK, img.Size, img.ContentType, img.Body, map[string]string{
		"Content-Disposition": fmt.Sprintf(`inline; filename="%s"`, img.Item.Filename),
		"Cache-Control":       "private, max-age=300",
	})
}

// Related handles GET /items/:id/related?limit=
func (h *ItemHandler) Related(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := itemID(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(c, "limit must be an integer")
			return
		}
		limit = n
	}

	items, err := h.service.Related(c.Request.Context(), actor, id, limit)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "", items)
}

// ========================================
// HELPER FUNCTIONS
// ========================================

var formFields = []string{
	"title", "description", "alt_text", "veneration",
	"commission_date", "owned_since", "monitory_value", "collection_id",
}

// parseForm reads the multipart metadata fields and the optional "file" part.
// Absent fields stay nil so updates only touch what was sent.
func (h *ItemHandler) parseForm(c *gin.Context) (model.MetadataInput, *model.FileInput, bool) {
	var meta model.MetadataInput

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+formOverhead)
	if err := c.Request.ParseMultipartForm(formOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE",
				fmt.Sprintf("upload exceeds %d bytes", h.maxUpload))
			return meta, nil, false
		}
		response.BadRequest(c, "Expected multipart/form-data body")
		return meta, nil, false
	}

	values := make(map[string]*string, len(formFields))
	for _, name := range formFields {
		if v, ok := c.GetPostForm(name); ok {
			v := v
			values[name] = &v
		}
	}
	meta.Title = values["title"]
	meta.Description = values["description"]
	meta.AltText = values["alt_text"]
	meta.Veneration = values["veneration"]
	meta.CommissionDate = values["commission_date"]
	meta.OwnedSince = values["owned_since"]
	meta.MonitoryValue = loose(values["monitory_value"])
	meta.CollectionID = loose(values["collection_id"])

	header, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return meta, nil, true
		}
		response.BadRequest(c, "Invalid file part")
		return meta, nil, false
	}

	f, err := header.Open()
	if err != nil {
		response.BadRequest(c, "Invalid file part")
		return meta, nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUpload+1))
	if err != nil {
		response.BadRequest(c, "Failed to read uploaded file")
		return meta, nil, false
	}

	return meta, &model.FileInput{Filename: header.Filename, Data: data}, true
}

func loose(s *string) *model.LooseString {
	if s == nil {
		return nil
	}
	v := model.LooseString(*s)
	return &v
}

func requireActor(c *gin.Context) (shared.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
	}
	return actor, ok
}

func itemID(c *gin.Context) (int64, bool) {
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid item ID")
		return 0, false
	}
	return id, true
}

func (h *ItemHandler) handleError(c *gin.Context, err error) {
	var verrs validation.Errors

	switch {
	case errors.As(err, &verrs):
		response.ValidationError(c, "Validation failed", verrs)

	case errors.Is(err, model.ErrItemNotFound):
		response.Error(c, http.StatusNotFound, model.ErrCodeItemNotFound, err.Error())

	case errors.Is(err, model.ErrImageNotFound):
		response.Error(c, http.StatusNotFound, model.ErrCodeImageNotFound, err.Error())

	case errors.Is(err, model.ErrCollectionNotFound):
		response.Error(c, http.StatusNotFound, model.ErrCodeCollectionNotFound, err.Error())

	case errors.Is(err, model.ErrForbidden), errors.Is(err, model.ErrCollectionDenied):
		response.Forbidden(c, err.Error())

	case errors.Is(err, model.ErrConcurrentMove):
		response.Error(c, http.StatusConflict, model.ErrCodeConcurrentMove, err.Error())

	case errors.Is(err, model.ErrStorage):
		log.Error().Err(err).Str("request_id", c.GetString("request_id")).Msg("item handler: storage failure")
		response.StorageError(c, "Image storage is unavailable")

	default:
		log.Error().Err(err).Str("request_id", c.GetString("request_id")).Msg("item handler: internal error")
		response.InternalServerError(c, "Internal server error")
	}
}
