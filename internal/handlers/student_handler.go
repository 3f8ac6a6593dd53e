package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/luct-edu/lecture-reporting-service/internal/models"
	"github.com/luct-edu/lecture-reporting-service/internal/services"
	"github.com/luct-edu/lecture-reporting-service/internal/utils"
)

type StudentHandler struct {
	BaseHandler
	service services.StudentService
}

func NewStudentHandler(service services.StudentService, logger utils.Logger) *StudentHandler {
	return &StudentHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// ===== STUDENT ENDPOINTS =====

// GetMyClasses returns the classes the current student is enrolled in
// @Summary Get my classes
// @Tags students
// @Produce json
// @Success 200 {array} models.Class
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /students/me/classes [get]
func (h *StudentHandler) GetMyClasses(c *gin.Context) {
	h.LogRequest(c, "Getting student classes")

	actor, ok := h.actor(c)
	if !ok {
		return
	}

	classes, err := h.service.GetMyClasses(c.Request.Context(), actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, classes)
}

// GetMyAttendance returns attendance per enrolled class plus the overall average
// @Summary Get my attendance
// @Tags students
// @Produce json
// @Success 200 {object} models.StudentAttendance
// @Router /students/me/attendance [get]
func (h *StudentHandler) GetMyAttendance(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	attendance, err := h.service.GetMyAttendance(c.Request.Context(), actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attendance)
}

func (h *StudentHandler) GetMyRatings(c *gin.Context) {
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

	ratings, err := h.service.GetMyRatings(c.Request.Context(), actor, params)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ratings)
}
