package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/luct-edu/lecture-reporting-service/internal/models"
	"github.com/luct-edu/lecture-reporting-service/internal/services"
	"github.com/luct-edu/lecture-reporting-service/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportHandler struct {
	BaseHandler
	service services.ReportService
}

func NewReportHandler(service services.ReportService, logger utils.Logger) *ReportHandler {
	return &ReportHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// listParams reads the filters shared by list and export
func (h *ReportHandler) listParams(c *gin.Context) (models.ListReportsParams, bool) {
	q := &queryParser{c: c}
	params := models.ListReportsParams{
		Page:       h.parseIntQuery(c, "page", 1),
		Size:       h.parseIntQuery(c, "size", 20),
		Status:     models.ReportStatus(strings.ToLower(strings.TrimSpace(c.Query("status")))),
		Week:       q.intPtr("week"),
		ClassID:    q.uintPtr("class_id"),
		CourseID:   q.uintPtr("course_id"),
		LecturerID: q.uintPtr("lecturer_id"),
		FacultyID:  q.uintPtr("faculty_id"),
		DateFrom:   q.date("date_from"),
		DateTo:     q.date("date_to"),
		Search:     c.Query("q"),
		SortBy:     c.DefaultQuery("sort_by", "lecture_date"),
		SortDir:    c.DefaultQuery("sort_order", "desc"),
	}
	return params, q.done()
}

// CreateReport submits a weekly lecture report
// @Summary Submit report
// @Tags reports
// @Accept json
// @Produce json
// @Param request body services.CreateReportRequest true "Report"
// @Success 201 {object} models.Report
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse "Class not assigned to caller"
// @Failure 409 {object} ErrorResponse "Report for this week exists"
// @Router /reports [post]
func (h *ReportHandler) CreateReport(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req services.CreateReportRequest
	if !h.bindJSON(c, &req) {
		return
	}

	report, err := h.service.Create(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.log(c).Info("Report submitted", "report_id", report.ID, "class_id", report.ClassID, "week", report.Week)
	c.JSON(http.StatusCreated, report)
}

// ListReports
// @Summary List reports
// @Description Scoped by role: lecturers see their own, reviewers their faculty
// @Tags reports
// @Produce json
// @Param status query string false "pending, reviewed or approved"
// @Param week query int false "Week number"
// @Param class_id query int false "Class filter"
// @Param course_id query int false "Course filter"
// @Param lecturer_id query int false "Lecturer filter"
// @Param faculty_id query int false "Faculty filter"
// @Param date_from query string false "YYYY-MM-DD"
// @Param date_to query string false "YYYY-MM-DD"
// @Param q query string false "Topic, class code or course name"
// @Param sort_by query string false "lecture_date, week, created_at, students_present"
// @Param sort_order query string false "asc or desc"
// @Success 200 {object} models.PaginatedResponse
// @Router /reports [get]
func (h *ReportHandler) ListReports(c *gin.Context) {
	h.LogRequest(c, "Listing reports")

	actor, ok := h.actor(c)
	if !ok {
		return
	}
	params, ok := h.listParams(c)
	if !ok {
		return
	}

	reports, err := h.service.List(c.Request.Context(), actor, params)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

func (h *ReportHandler) GetReport(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	report, err := h.service.GetByID(c.Request.Context(), actor, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// UpdateReport
// @Summary Update pending report
// @Tags reports
// @Accept json
// @Produce json
// @Param id path int true "Report ID"
// @Param request body services.UpdateReportRequest true "Changes"
// @Success 200 {object} models.Report
// @Failure 409 {object} ErrorResponse "Report already reviewed"
// @Router /reports/{id} [put]
func (h *ReportHandler) UpdateReport(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.UpdateReportRequest
	if !h.bindJSON(c, &req) {
		return
	}

	report, err := h.service.Update(c.Request.Context(), actor, id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *ReportHandler) DeleteReport(c *gin.Context) {
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

// ExportReports downloads the filtered reports as a workbook
// @Summary Export reports to Excel
// @Tags reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} file
// @Router /reports/export [get]
func (h *ReportHandler) ExportReports(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	params, ok := h.listParams(c)
	if !ok {
		return
	}

	// Buffered so a failure halfway still gets a JSON error
	var buf bytes.Buffer
	if err := h.service.Export(c.Request.Context(), actor, params, &buf); err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("lecture-reports-%s.xlsx", time.Now().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// AddFeedback records reviewer feedback and moves a pending report to reviewed
// @Summary Add feedback
// @Tags reports
// @Accept json
// @Produce json
// @Param id path int true "Report ID"
// @Param request body services.FeedbackRequest true "Comment"
// @Success 201 {object} models.Feedback
// @Failure 409 {object} ErrorResponse "Report already approved"
// @Router /reports/{id}/feedback [post]
func (h *ReportHandler) AddFeedback(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.FeedbackRequest
	if !h.bindJSON(c, &req) {
		return
	}

	feedback, err := h.service.AddFeedback(c.Request.Context(), actor, id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, feedback)
}

func (h *ReportHandler) ListFeedback(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	feedback, err := h.service.ListFeedback(c.Request.Context(), actor, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, feedback)
}

// ApproveReport
// @Summary Approve reviewed report
// @Tags reports
// @Produce json
// @Param id path int true "Report ID"
// @Success 200 {object} models.Report
// @Failure 422 {object} ErrorResponse "Feedback required first, or already approved"
// @Router /reports/{id}/approve [post]
func (h *ReportHandler) ApproveReport(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	report, err := h.service.Approve(c.Request.Context(), actor, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.log(c).Info("Report approved", "report_id", id, "approved_by", actor.ID)
	c.JSON(http.StatusOK, report)
}
