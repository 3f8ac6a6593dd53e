package services

import (
	"errors"
	"fmt"

	"github.com/luct-edu/lecture-reporting-service/internal/validator"
)

// Base errors. Resource specific errors wrap one of these so handlers can map them by class.
var (
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrConflict         = errors.New("conflict")
	ErrValidationFailed = errors.New("validation failed")
	ErrNotImplemented   = errors.New("not implemented")
)

var (
	ErrReportNotFound     = fmt.Errorf("report %w", ErrNotFound)
	ErrClassNotFound      = fmt.Errorf("class %w", ErrNotFound)
	ErrCourseNotFound     = fmt.Errorf("course %w", ErrNotFound)
	ErrFacultyNotFound    = fmt.Errorf("faculty %w", ErrNotFound)
	ErrUserNotFound       = fmt.Errorf("user %w", ErrNotFound)
	ErrEnrollmentNotFound = fmt.Errorf("enrollment %w", ErrNotFound)
)

var (
	ErrInvalidCredentials = fmt.Errorf("invalid email or password: %w", ErrUnauthorized)
	ErrInvalidToken       = fmt.Errorf("invalid or expired token: %w", ErrUnauthorized)
	ErrAccountDisabled    = fmt.Errorf("account is disabled: %w", ErrForbidden)
	ErrNotEnrolled        = fmt.Errorf("student is not enrolled in this class: %w", ErrForbidden)
	ErrSSODisabled        = fmt.Errorf("single sign-on is not configured: %w", ErrNotImplemented)
)

var (
	ErrDuplicateReport = fmt.Errorf("a report for this class and week already exists: %w", ErrConflict)
	ErrReportLocked    = fmt.Errorf("report can no longer be changed: %w", ErrConflict)
	ErrReportApproved  = fmt.Errorf("report is already approved: %w", ErrConflict)
	ErrAlreadyRated    = fmt.Errorf("rating already submitted: %w", ErrConflict)
	ErrEmailTaken      = fmt.Errorf("email is already registered: %w", ErrConflict)
	ErrCodeTaken       = fmt.Errorf("code is already in use: %w", ErrConflict)
	ErrFacultyInUse    = fmt.Errorf("faculty still has courses: %w", ErrConflict)
	ErrCourseInUse     = fmt.Errorf("course still has classes: %w", ErrConflict)
	ErrClassInUse      = fmt.Errorf("class already has reports: %w", ErrConflict)
)

// ValidationErrors is re-exported so handlers only import services
type ValidationErrors = validator.ValidationErrors
type ValidationError = validator.ValidationError

func fieldError(field, message string, value interface{}) ValidationErrors {
	return ValidationErrors{{Field: field, Message: message, Value: value, Rule: "invalid"}}
}

// PermissionError is returned when a user may not act on a resource
type PermissionError struct {
	UserID     uint   `json:"user_id"`
	ResourceID uint   `json:"resource_id,omitempty"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func NewPermissionError(userID, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %d may not %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func (e *PermissionError) Unwrap() error { return ErrForbidden }

// BusinessRuleError is a request that is well formed but breaks a workflow rule
type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Message: message, Context: context}
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule %s violated: %s", e.Rule, e.Message)
}
