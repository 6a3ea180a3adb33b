package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog/log"

	"gallery-backend/internal/domains/collection/model"
	"gallery-backend/internal/domains/collection/service"
	"gallery-backend/internal/shared"
	"gallery-backend/internal/shared/middleware"
	"gallery-backend/internal/shared/response"
	"gallery-backend/internal/shared/utils"
)

type CollectionHandler struct {
	service service.ServiceInterface
}

func NewCollectionHandler(service service.ServiceInterface) *CollectionHandler {
	return &CollectionHandler{service: service}
}

// Create handles POST /collections
func (h *CollectionHandler) Create(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req model.CreateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	created, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Location", fmt.Sprintf("/api/v1/collections/%d", created.ID))
	response.Success(c, http.StatusCreated, "Collection created", created)
}

// List handles GET /collections?skip=&limit=
func (h *CollectionHandler) List(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req model.ListCollectionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "skip and limit must be integers")
		return
	}

	res, err := h.service.List(c.Request.Context(), actor, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.List(c, res.Collections, res.Total, res.Skip, res.Limit)
}

// Get handles GET /collections/:id
func (h *CollectionHandler) Get(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := collectionID(c)
	if !ok {
		return
	}

	col, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "", col)
}

// Update handles PUT /collections/:id
func (h *CollectionHandler) Update(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := collectionID(c)
	if !ok {
		return
	}

	var req model.UpdateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	col, err := h.service.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Collection updated", col)
}

// Delete handles DELETE /collections/:id
func (h *CollectionHandler) Delete(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := collectionID(c)
	if !ok {
		return
	}

	res, err := h.service.Delete(c.Request.Context(), actor, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Collection deleted", res)
}

// EnsureFavorites handles POST /collections/favorites
func (h *CollectionHandler) EnsureFavorites(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	fav, created, err := h.service.EnsureFavorites(c.Request.Context(), actor)
	if err != nil {
		h.handleError(c, err)
		return
	}

	if created {
		response.Success(c, http.StatusCreated, "Favorites collection created", fav)
		return
	}
	response.Success(c, http.StatusOK, "Favorites collection already exists", fav)
}

// Export handles GET /collections/:id/export
func (h *CollectionHandler) Export(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := collectionID(c)
	if !ok {
		return
	}

	f, col, err := h.service.ExportToExcel(c.Request.Context(), actor, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	defer f.Close()

	filename := utils.SanitizeFilename(col.Name) + ".xlsx"
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		log.Error().Err(err).Int64("collection_id", id).Msg("failed to write export")
	}
}

// ========================================
// HELPER FUNCTIONS
// ========================================

func requireActor(c *gin.Context) (shared.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
	}
	return actor, ok
}

func collectionID(c *gin.Context) (int64, bool) {
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid collection ID")
		return 0, false
	}
	return id, true
}

func (h *CollectionHandler) handleError(c *gin.Context, err error) {
	var verrs validation.Errors

	switch {
	case errors.As(err, &verrs):
		response.ValidationError(c, "Validation failed", verrs)

	case errors.Is(err, model.ErrCollectionNotFound):
		response.Error(c, http.StatusNotFound, model.ErrCodeCollectionNotFound, err.Error())

	case errors.Is(err, model.ErrForbidden):
		response.Forbidden(c, err.Error())

	case errors.Is(err, model.ErrFavoritesNotEmpty):
		response.Error(c, http.StatusConflict, model.ErrCodeFavoritesNotEmpty, err.Error())

	case errors.Is(err, model.ErrFavoritesExists):
		response.Error(c, http.StatusConflict, model.ErrCodeFavoritesExists, err.Error())

	default:
		log.Error().Err(err).Str("request_id", c.GetString("request_id")).Msg("collection handler: internal error")
		response.InternalServerError(c, "Internal server error")
	}
}
