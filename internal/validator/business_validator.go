package validator

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/luct-edu/lecture-reporting-service/internal/models"
)

// DateLayout is the wire format of lecture dates
const DateLayout = "2006-01-02"

const DefaultMaxWeek = 16

var (
	classCodePattern   = regexp.MustCompile(`^[A-Z0-9]+(-[A-Z0-9]+)*$`)
	facultyCodePattern = regexp.MustCompile(`^[A-Z0-9]{2,20}$`)
)

// BusinessValidator handles request and business rule validation
type BusinessValidator struct {
	validate *validator.Validate
	maxWeek  int
	now      func() time.Time
}

// NewBusinessValidator creates a business validator; maxWeek < 1 falls back to DefaultMaxWeek
func NewBusinessValidator(maxWeek int, now func() time.Time) *BusinessValidator {
	if maxWeek < 1 {
		maxWeek = DefaultMaxWeek
	}
	if now == nil {
		now = time.Now
	}

	bv := &BusinessValidator{validate: validator.New(), maxWeek: maxWeek, now: now}
	bv.validate.RegisterTagNameFunc(jsonFieldName)
	bv.registerBusinessRules()

	return bv
}

func (bv *BusinessValidator) MaxWeek() int {
	return bv.maxWeek
}

// Validate validates struct tags for any request
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	if err := bv.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateReportCreate checks the request and the attendance limit of the class
func (bv *BusinessValidator) ValidateReportCreate(req *ReportCreateRequest, class *models.Class) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)
	// whitespace-only values pass the required tag
	if req.Topic != "" && strings.TrimSpace(req.Topic) == "" {
		errors = append(errors, ValidationError{Field: "topic", Message: "is required", Rule: "required"})
	}
	if req.LearningOutcomes != "" && strings.TrimSpace(req.LearningOutcomes) == "" {
		errors = append(errors, ValidationError{Field: "learning_outcomes", Message: "is required", Rule: "required"})
	}
	if req.StudentsPresent != nil && class != nil {
		errors = append(errors, bv.validateAttendance(*req.StudentsPresent, class.TotalRegistered)...)
	}

	return errors
}

// ValidateReportUpdate checks a partial update against the stored report
func (bv *BusinessValidator) ValidateReportUpdate(req *ReportUpdateRequest, existing *models.Report) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)
	if req.Topic != nil && strings.TrimSpace(*req.Topic) == "" {
		errors = append(errors, ValidationError{Field: "topic", Message: "is required", Rule: "required"})
	}
	if req.LearningOutcomes != nil && strings.TrimSpace(*req.LearningOutcomes) == "" {
		errors = append(errors, ValidationError{Field: "learning_outcomes", Message: "is required", Rule: "required"})
	}
	if req.StudentsPresent != nil && existing != nil {
		errors = append(errors, bv.validateAttendance(*req.StudentsPresent, existing.TotalRegistered)...)
	}

	return errors
}

func (bv *BusinessValidator) validateAttendance(present, registered int) ValidationErrors {
	if present > registered {
		return ValidationErrors{{
			Field:   "students_present",
			Message: fmt.Sprintf("cannot exceed total registered students (%d)", registered),
			Value:   present,
			Rule:    "attendance_limit",
		}}
	}
	return nil
}

// ValidateStatusTransition enforces pending -> reviewed -> approved
func (bv *BusinessValidator) ValidateStatusTransition(current, next models.ReportStatus) ValidationErrors {
	allowed := map[models.ReportStatus][]models.ReportStatus{
		models.ReportPending:  {models.ReportReviewed},
		models.ReportReviewed: {models.ReportReviewed, models.ReportApproved},
		models.ReportApproved: {},
	}

	for _, s := range allowed[current] {
		if s == next {
			return nil
		}
	}

	return ValidationErrors{{
		Field:   "status",
		Message: fmt.Sprintf("cannot transition from %s to %s", current, next),
		Value:   next,
		Rule:    "status_transition",
	}}
}

// ParseDate parses a lecture date in DateLayout
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// registerBusinessRules registers custom business rule validators
func (bv *BusinessValidator) registerBusinessRules() {
	// Teaching week 1..maxWeek
	bv.validate.RegisterValidation("report_week", func(fl validator.FieldLevel) bool {
		week := fl.Field().Int()
		return week >= 1 && week <= int64(bv.maxWeek)
	})

	bv.validate.RegisterValidation("class_code", func(fl validator.FieldLevel) bool {
		return classCodePattern.MatchString(fl.Field().String())
	})

	bv.validate.RegisterValidation("faculty_code", func(fl validator.FieldLevel) bool {
		return facultyCodePattern.MatchString(fl.Field().String())
	})

	bv.validate.RegisterValidation("lecture_date", func(fl validator.FieldLevel) bool {
		_, err := ParseDate(fl.Field().String())
		return err == nil
	})

	// Dates are compared as calendar days in the server's zone
	bv.validate.RegisterValidation("not_future_date", func(fl validator.FieldLevel) bool {
		d, err := ParseDate(fl.Field().String())
		if err != nil {
			return true // reported by lecture_date
		}
		today := bv.now().Format(DateLayout)
		return d.Format(DateLayout) <= today
	})

	bv.validate.RegisterValidation("user_role", func(fl validator.FieldLevel) bool {
		return models.UserRole(fl.Field().String()).IsValid()
	})

	bv.validate.RegisterValidation("self_register_role", func(fl validator.FieldLevel) bool {
		role := models.UserRole(fl.Field().String())
		return role == models.RoleStudent || role == models.RoleLecturer
	})

	bv.validate.RegisterValidation("rating_score", func(fl validator.FieldLevel) bool {
		score := fl.Field().Int()
		return score >= models.MinRatingScore && score <= models.MaxRatingScore
	})
}
