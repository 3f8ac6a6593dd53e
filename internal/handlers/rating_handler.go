package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/luct-edu/lecture-reporting-service/internal/models"
	"github.com/luct-edu/lecture-reporting-service/internal/services"
	"github.com/luct-edu/lecture-reporting-service/internal/utils"
)

type RatingHandler struct {
	BaseHandler
	service services.RatingService
}

func NewRatingHandler(service services.RatingService, logger utils.Logger) *RatingHandler {
	return &RatingHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// CreateRating
// @Summary Rate a class or lecture
// @Tags ratings
// @Accept json
// @Produce json
// @Param request body services.RatingRequest true "Rating"
// @Success 201 {object} models.Rating
// @Failure 403 {object} ErrorResponse "Not enrolled in class"
// @Failure 409 {object} ErrorResponse "Already rated"
// @Router /ratings [post]
func (h *RatingHandler) CreateRating(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req services.RatingRequest
	if !h.bindJSON(c, &req) {
		return
	}

	rating, err := h.service.Create(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rating)
}

func (h *RatingHandler) ListRatings(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	q := &queryParser{c: c}
	params := models.ListRatingsParams{
		Page:    h.parseIntQuery(c, "page", 1),
		Size:    h.parseIntQuery(c, "size", 20),
		ClassID: q.uintPtr("class_id"),
	}
	if !q.done() {
		return
	}

	ratings, err := h.service.List(c.Request.Context(), actor, params)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ratings)
}
