package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"gallery-backend/internal/domains/favorite/model"
	"gallery-backend/internal/domains/favorite/service"
	itemModel "gallery-backend/internal/domains/item/model"
	"gallery-backend/internal/shared/middleware"
	"gallery-backend/internal/shared/response"
	"gallery-backend/internal/shared/utils"
)

type FavoriteHandler struct {
	service service.ServiceInterface
}

func NewFavoriteHandler(service service.ServiceInterface) *FavoriteHandler {
	return &FavoriteHandler{service: service}
}

// GetFavoritesCollection handles GET /collections/favorites
func (h *FavoriteHandler) GetFavoritesCollection(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	fav, err := h.service.ResolveFavoritesCollection(c.Request.Context(), actor)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "", fav)
}

// Status handles GET /items/:id/favorite
func (h *FavoriteHandler) Status(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid item ID")
		return
	}

	status, err := h.service.Status(c.Request.Context(), actor, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "", status)
}

// Toggle handles POST /items/:id/favorite
func (h *FavoriteHandler) Toggle(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid item ID")
		return
	}

	res, err := h.service.Toggle(c.Request.Context(), actor, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	msg := "Removed from favorites"
	if res.Favorited {
		msg = "Added to favorites"
	}
	response.Success(c, http.StatusOK, msg, res)
}

func (h *FavoriteHandler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrFavoritesNotFound):
		response.Error(c, http.StatusConflict, model.ErrCodeFavoritesMissing, err.Error())

	case errors.Is(err, model.ErrFavoritesAmbiguous):
		response.Error(c, http.StatusConflict, model.ErrCodeFavoritesAmbiguous, err.Error())

	case errors.Is(err, model.ErrNoPreviousCollection):
		response.Error(c, http.StatusConflict, model.ErrCodeNoPreviousCollection, err.Error())

	case errors.Is(err, itemModel.ErrConcurrentMove):
		response.Error(c, http.StatusConflict, itemModel.ErrCodeConcurrentMove, err.Error())

	case errors.Is(err, itemModel.ErrItemNotFound):
		response.Error(c, http.StatusNotFound, itemModel.ErrCodeItemNotFound, err.Error())

	case errors.Is(err, itemModel.ErrCollectionNotFound):
		response.Error(c, http.StatusNotFound, itemModel.ErrCodeCollectionNotFound, err.Error())

	case errors.Is(err, itemModel.ErrForbidden), errors.Is(err, itemModel.ErrCollectionDenied):
		response.Forbidden(c, err.Error())

	default:
		log.Error().Err(err).Str("request_id", c.GetString("request_id")).Msg("favorite handler: internal error")
		response.InternalServerError(c, "Internal server error")
	}
}
