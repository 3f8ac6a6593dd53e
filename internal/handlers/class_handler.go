package handlers

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/luct-edu/lecture-reporting-service/internal/models"
	"github.com/luct-edu/lecture-reporting-service/internal/services"
	"github.com/luct-edu/lecture-reporting-service/internal/utils"
)

const maxImportSize = 5 << 20

type ClassHandler struct {
	BaseHandler
	service services.ClassService
	ratings services.RatingService
}

func NewClassHandler(service services.ClassService, ratings services.RatingService, logger utils.Logger) *ClassHandler {
	return &ClassHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
		ratings:     ratings,
	}
}

// ListClasses lists the classes visible to the caller
// @Summary List classes
// @Description Lecturers see their classes, students their enrollments, reviewers their faculty
// @Tags classes
// @Produce json
// @Param course_id query int false "Course filter"
// @Param lecturer_id query int false "Lecturer filter"
// @Param q query string false "Class code search"
// @Success 200 {object} models.PaginatedResponse
// @Router /classes [get]
func (h *ClassHandler) ListClasses(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	q := &queryParser{c: c}
	params := models.ListClassesParams{
		Page:       h.parseIntQuery(c, "page", 1),
		Size:       h.parseIntQuery(c, "size", 20),
		CourseID:   q.uintPtr("course_id"),
		LecturerID: q.uintPtr("lecturer_id"),
		Search:     c.Query("q"),
	}
	if !q.done() {
		return
	}

	classes, err := h.service.List(c.Request.Context(), actor, params)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, classes)
}

func (h *ClassHandler) GetClass(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	class, err := h.service.GetByID(c.Request.Context(), actor, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, class)
}

// CreateClass
// @Summary Create class
// @Tags classes
// @Accept json
// @Produce json
// @Param request body services.ClassRequest true "Class"
// @Success 201 {object} models.Class
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Class code taken"
// @Router /classes [post]
func (h *ClassHandler) CreateClass(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req services.ClassRequest
	if !h.bindJSON(c, &req) {
		return
	}

	class, err := h.service.Create(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, class)
}

func (h *ClassHandler) UpdateClass(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.ClassRequest
	if !h.bindJSON(c, &req) {
		return
	}

	class, err := h.service.Update(c.Request.Context(), actor, id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, class)
}

func (h *ClassHandler) DeleteClass(c *gin.Context) {
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

// Enroll adds students to a class
// @Summary Enroll students
// @Tags classes
// @Accept json
// @Produce json
// @Param id path int true "Class ID"
// @Param request body services.EnrollmentRequest true "Student IDs"
// @Success 200 {object} models.EnrollmentResult
// @Router /classes/{id}/enrollments [post]
func (h *ClassHandler) Enroll(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.EnrollmentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.service.Enroll(c.Request.Context(), actor, id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ClassHandler) Unenroll(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	studentID, ok := h.parseIDParam(c, "student_id")
	if !ok {
		return
	}

	if err := h.service.Unenroll(c.Request.Context(), actor, id, studentID); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ImportEnrollments enrolls the students listed in an uploaded workbook
// @Summary Import enrollments from Excel
// @Description First column holds student emails, first row is a header
// @Tags classes
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Class ID"
// @Param file formData file true "Workbook (.xlsx)"
// @Success 200 {object} models.EnrollmentImportResult
// @Router /classes/{id}/enrollments/import [post]
func (h *ClassHandler) ImportEnrollments(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Missing file", Details: err.Error()})
		return
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "File must be an .xlsx workbook"})
		return
	}
	if header.Size > maxImportSize {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Message: "File too large"})
		return
	}

	file, err := header.Open()
	if err != nil {
		h.LogError(c, err, "Failed to open upload")
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Unreadable file"})
		return
	}
	defer file.Close()

	result, err := h.service.ImportEnrollments(c.Request.Context(), actor, id, file)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.log(c).Info("Enrollments imported", "class_id", id, "enrolled", result.Enrolled, "skipped", len(result.Skipped))
	c.JSON(http.StatusOK, result)
}

func (h *ClassHandler) ListStudents(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	students, err := h.service.ListStudents(c.Request.Context(), actor, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, students)
}

// RatingSummary
// @Summary Rating summary of a class
// @Tags classes
// @Produce json
// @Param id path int true "Class ID"
// @Success 200 {object} models.RatingSummary
// @Router /classes/{id}/ratings/summary [get]
func (h *ClassHandler) RatingSummary(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	summary, err := h.ratings.Summary(c.Request.Context(), actor, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
