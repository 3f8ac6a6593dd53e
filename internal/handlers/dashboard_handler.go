package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/luct-edu/lecture-reporting-service/internal/services"
	"github.com/luct-edu/lecture-reporting-service/internal/utils"
)

type DashboardHandler struct {
	BaseHandler
	service services.DashboardService
}

func NewDashboardHandler(service services.DashboardService, logger utils.Logger) *DashboardHandler {
	return &DashboardHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// ===== DASHBOARD ENDPOINTS =====

// GetDashboardStats returns the monitoring totals for the caller's faculty
// @Summary Get dashboard statistics
// @Description Report, course, class and lecturer totals, reports by status, average attendance and rating
// @Tags dashboard
// @Produce json
// @Param faculty_id query int false "Faculty (ignored for faculty-bound reviewers)"
// @Param period query int false "Days counted as recent submissions (default: 7)"
// @Success 200 {object} models.DashboardStats
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Router /dashboard/stats [get]
func (h *DashboardHandler) GetDashboardStats(c *gin.Context) {
	h.LogRequest(c, "Getting dashboard stats")

	actor, ok := h.actor(c)
	if !ok {
		return
	}

	// Get period parameter (optional, defaults to 7 days)
	period, err := strconv.Atoi(c.DefaultQuery("period", "7"))
	if err != nil || period < 1 {
		period = 7
	}

	q := &queryParser{c: c}
	facultyID := q.uintPtr("faculty_id")
	if !q.done() {
		return
	}

	stats, err := h.service.GetStats(c.Request.Context(), actor, facultyID, period)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetAttendanceTrends returns the average attendance rate per week
// @Summary Get attendance trends
// @Tags dashboard
// @Produce json
// @Param faculty_id query int false "Faculty"
// @Success 200 {array} models.AttendanceTrend
// @Router /dashboard/attendance-trends [get]
func (h *DashboardHandler) GetAttendanceTrends(c *gin.Context) {
	h.LogRequest(c, "Getting attendance trends")

	actor, ok := h.actor(c)
	if !ok {
		return
	}
	q := &queryParser{c: c}
	facultyID := q.uintPtr("faculty_id")
	if !q.done() {
		return
	}

	trends, err := h.service.GetAttendanceTrends(c.Request.Context(), actor, facultyID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, trends)
}

// GetLecturerPerformance
// @Summary Per-lecturer report count, attendance, rating and pending reports
// @Tags dashboard
// @Produce json
// @Param faculty_id query int false "Faculty"
// @Success 200 {array} models.LecturerPerformance
// @Router /dashboard/lecturers [get]
func (h *DashboardHandler) GetLecturerPerformance(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	q := &queryParser{c: c}
	facultyID := q.uintPtr("faculty_id")
	if !q.done() {
		return
	}

	lecturers, err := h.service.GetLecturerPerformance(c.Request.Context(), actor, facultyID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, lecturers)
}

// GetRecentReports returns the latest submissions
// @Summary Get recent reports
// @Tags dashboard
// @Produce json
// @Param limit query int false "Number of reports to return (default: 10, max: 50)"
// @Success 200 {array} models.Report
// @Router /dashboard/recent-reports [get]
func (h *DashboardHandler) GetRecentReports(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	// Get limit parameter (optional, defaults to 10)
	limit := h.parseIntQuery(c, "limit", 10)
	if limit < 1 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	q := &queryParser{c: c}
	facultyID := q.uintPtr("faculty_id")
	if !q.done() {
		return
	}

	reports, err := h.service.GetRecentReports(c.Request.Context(), actor, facultyID, limit)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, reports)
}
