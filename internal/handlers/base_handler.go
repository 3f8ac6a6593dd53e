package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/luct-edu/lecture-reporting-service/internal/services"
	"github.com/luct-edu/lecture-reporting-service/internal/utils"
	"github.com/luct-edu/lecture-reporting-service/internal/validator"
)

// ErrorResponse is the body of every non-2xx answer
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// BaseHandler carries what every resource handler shares
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) log(c *gin.Context) utils.Logger {
	return utils.GetLogger(c, h.logger)
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	h.log(c).Debug(msg, append(args, "path", c.FullPath())...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	h.log(c).Error(msg, append(args, "error", err, "path", c.FullPath())...)
}

// actor returns the authenticated caller; AuthMiddleware guarantees one on /api/v1 routes
func (h *BaseHandler) actor(c *gin.Context) (services.Actor, bool) {
	actor, err := ActorFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return services.Actor{}, false
	}
	return actor, true
}

// bindJSON decodes the body and answers 400 on malformed JSON
func (h *BaseHandler) bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request body",
			Details: err.Error(),
		})
		return false
	}
	return true
}

func (h *BaseHandler) parseIDParam(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: "must be a positive integer",
		})
		return 0, false
	}
	return uint(id), true
}

func (h *BaseHandler) parseIntQuery(c *gin.Context, param string, defaultValue int) int {
	value, err := strconv.Atoi(c.Query(param))
	if err != nil {
		return defaultValue
	}
	return value
}

// queryParser collects the first malformed query parameter
type queryParser struct {
	c   *gin.Context
	err *validator.ValidationError
}

func (q *queryParser) fail(param, msg, value string) {
	if q.err == nil {
		q.err = &validator.ValidationError{Field: param, Message: msg, Value: value, Rule: "query"}
	}
}

func (q *queryParser) intPtr(param string) *int {
	raw := strings.TrimSpace(q.c.Query(param))
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		q.fail(param, "must be an integer", raw)
		return nil
	}
	return &v
}

func (q *queryParser) uintPtr(param string) *uint {
	raw := strings.TrimSpace(q.c.Query(param))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || v == 0 {
		q.fail(param, "must be a positive integer", raw)
		return nil
	}
	id := uint(v)
	return &id
}

func (q *queryParser) date(param string) *time.Time {
	raw := strings.TrimSpace(q.c.Query(param))
	if raw == "" {
		return nil
	}
	d, err := validator.ParseDate(raw)
	if err != nil {
		q.fail(param, "must be a date in YYYY-MM-DD format", raw)
		return nil
	}
	return &d
}

// done answers 400 when any parameter was malformed
func (q *queryParser) done() bool {
	if q.err == nil {
		return true
	}
	q.c.JSON(http.StatusBadRequest, ErrorResponse{
		Message: "Validation failed",
		Details: validator.ValidationErrors{*q.err},
	})
	return false
}
