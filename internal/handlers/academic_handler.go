package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/luct-edu/lecture-reporting-service/internal/models"
	"github.com/luct-edu/lecture-reporting-service/internal/services"
	"github.com/luct-edu/lecture-reporting-service/internal/utils"
)

// FacultyHandler serves /faculties
type FacultyHandler struct {
	BaseHandler
	service services.FacultyService
}

func NewFacultyHandler(service services.FacultyService, logger utils.Logger) *FacultyHandler {
	return &FacultyHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// ListFaculties
// @Summary List faculties
// @Tags faculties
// @Produce json
// @Param q query string false "Name or code search"
// @Success 200 {object} models.PaginatedResponse
// @Router /faculties [get]
func (h *FacultyHandler) ListFaculties(c *gin.Context) {
	faculties, err := h.service.List(c.Request.Context(),
		c.Query("q"),
		h.parseIntQuery(c, "page", 1),
		h.parseIntQuery(c, "size", 20),
	)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, faculties)
}

func (h *FacultyHandler) GetFaculty(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	faculty, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, faculty)
}

func (h *FacultyHandler) CreateFaculty(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req services.FacultyRequest
	if !h.bindJSON(c, &req) {
		return
	}

	faculty, err := h.service.Create(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, faculty)
}

func (h *FacultyHandler) UpdateFaculty(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.FacultyRequest
	if !h.bindJSON(c, &req) {
		return
	}

	faculty, err := h.service.Update(c.Request.Context(), actor, id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, faculty)
}

// DeleteFaculty
// @Summary Delete faculty
// @Tags faculties
// @Param id path int true "Faculty ID"
// @Success 204
// @Failure 409 {object} ErrorResponse "Faculty still has courses"
// @Router /faculties/{id} [delete]
func (h *FacultyHandler) DeleteFaculty(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), actor, id); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CourseHandler serves /courses
type CourseHandler struct {
	BaseHandler
	service services.CourseService
}

func NewCourseHandler(service services.CourseService, logger utils.Logger) *CourseHandler {
	return &CourseHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// ListCourses
// @Summary List courses
// @Tags courses
// @Produce json
// @Param faculty_id query int false "Faculty filter"
// @Param q query string false "Name or code search"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 20, max: 100)"
// @Success 200 {object} models.PaginatedResponse
// @Router /courses [get]
func (h *CourseHandler) ListCourses(c *gin.Context) {
	q := &queryParser{c: c}
	params := models.ListCoursesParams{
		Page:      h.parseIntQuery(c, "page", 1),
		Size:      h.parseIntQuery(c, "size", 20),
		FacultyID: q.uintPtr("faculty_id"),
		Search:    c.Query("q"),
	}
	if !q.done() {
		return
	}

	courses, err := h.service.List(c.Request.Context(), params)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, courses)
}

func (h *CourseHandler) GetCourse(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	course, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

func (h *CourseHandler) CreateCourse(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req services.CourseRequest
	if !h.bindJSON(c, &req) {
		return
	}

	course, err := h.service.Create(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, course)
}

func (h *CourseHandler) UpdateCourse(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.CourseRequest
	if !h.bindJSON(c, &req) {
		return
	}

	course, err := h.service.Update(c.Request.Context(), actor, id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), actor, id); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
