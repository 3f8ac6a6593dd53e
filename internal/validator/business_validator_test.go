package validator

import (
	"testing"
	"time"

	"github.com/luct-edu/lecture-reporting-service/internal/models"
)

func fixedClock() time.Time {
	return time.Date(2026, 3, 20, 10, 0, 0, 0, time.UTC)
}

func intPtr(i int) *int { return &i }

func strPtr(s string) *string { return &s }

func hasRule(errs ValidationErrors, field, rule string) bool {
	for _, e := range errs {
		if e.Field == field && e.Rule == rule {
			return true
		}
	}
	return false
}

func validReport() *ReportCreateRequest {
	return &ReportCreateRequest{
		ClassID:          1,
		Week:             6,
		LectureDate:      "2026-03-18",
		StudentsPresent:  intPtr(32),
		Topic:            "Normalisation",
		LearningOutcomes: "Students can normalise to 3NF",
	}
}

func TestValidateReportCreate(t *testing.T) {
	bv := New(WithMaxWeek(16), WithClock(fixedClock)).GetBusinessValidator()
	class := &models.Class{ID: 1, TotalRegistered: 40}

	tests := []struct {
		name      string
		mutate    func(r *ReportCreateRequest)
		wantField string
		wantRule  string
	}{
		{name: "valid", mutate: func(r *ReportCreateRequest) {}},
		{name: "week zero", mutate: func(r *ReportCreateRequest) { r.Week = 0 }, wantField: "week", wantRule: "required"},
		{name: "week above max", mutate: func(r *ReportCreateRequest) { r.Week = 17 }, wantField: "week", wantRule: "report_week"},
		{name: "last week ok", mutate: func(r *ReportCreateRequest) { r.Week = 16 }},
		{name: "future date", mutate: func(r *ReportCreateRequest) { r.LectureDate = "2026-03-21" }, wantField: "lecture_date", wantRule: "not_future_date"},
		{name: "today ok", mutate: func(r *ReportCreateRequest) { r.LectureDate = "2026-03-20" }},
		{name: "bad date format", mutate: func(r *ReportCreateRequest) { r.LectureDate = "20/03/2026" }, wantField: "lecture_date", wantRule: "lecture_date"},
		{name: "missing attendance", mutate: func(r *ReportCreateRequest) { r.StudentsPresent = nil }, wantField: "students_present", wantRule: "required"},
		{name: "negative attendance", mutate: func(r *ReportCreateRequest) { r.StudentsPresent = intPtr(-1) }, wantField: "students_present", wantRule: "gte"},
		{name: "zero attendance ok", mutate: func(r *ReportCreateRequest) { r.StudentsPresent = intPtr(0) }},
		{name: "attendance over registered", mutate: func(r *ReportCreateRequest) { r.StudentsPresent = intPtr(41) }, wantField: "students_present", wantRule: "attendance_limit"},
		{name: "full attendance ok", mutate: func(r *ReportCreateRequest) { r.StudentsPresent = intPtr(40) }},
		{name: "short topic", mutate: func(r *ReportCreateRequest) { r.Topic = "ab" }, wantField: "topic", wantRule: "min"},
		{name: "blank topic", mutate: func(r *ReportCreateRequest) { r.Topic = "     " }, wantField: "topic", wantRule: "required"},
		{name: "missing outcomes", mutate: func(r *ReportCreateRequest) { r.LearningOutcomes = "" }, wantField: "learning_outcomes", wantRule: "required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validReport()
			tt.mutate(req)
			errs := bv.ValidateReportCreate(req, class)

			if tt.wantField == "" {
				if len(errs) != 0 {
					t.Fatalf("expected no errors, got %v", errs)
				}
				return
			}
			if !hasRule(errs, tt.wantField, tt.wantRule) {
				t.Fatalf("expected %s/%s, got %+v", tt.wantField, tt.wantRule, errs)
			}
		})
	}
}

func TestValidateReportUpdate(t *testing.T) {
	bv := New(WithClock(fixedClock)).GetBusinessValidator()
	existing := &models.Report{TotalRegistered: 20}

	if errs := bv.ValidateReportUpdate(&ReportUpdateRequest{Topic: strPtr("Joins and views")}, existing); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if errs := bv.ValidateReportUpdate(&ReportUpdateRequest{StudentsPresent: intPtr(21)}, existing); !hasRule(errs, "students_present", "attendance_limit") {
		t.Fatalf("expected attendance_limit, got %v", errs)
	}
	if errs := bv.ValidateReportUpdate(&ReportUpdateRequest{LearningOutcomes: strPtr("  ")}, existing); !hasRule(errs, "learning_outcomes", "required") {
		t.Fatalf("expected learning_outcomes required, got %v", errs)
	}
}

func TestDefaultMaxWeek(t *testing.T) {
	bv := NewBusinessValidator(0, nil)
	if bv.MaxWeek() != DefaultMaxWeek {
		t.Errorf("MaxWeek() = %d, want %d", bv.MaxWeek(), DefaultMaxWeek)
	}
}

func TestClassCode(t *testing.T) {
	bv := New().GetBusinessValidator()
	tests := map[string]bool{
		"BSCSEM1-A":   true,
		"DIT2":        true,
		"BSC-IT-Y2-B": true,
		"bscsem1-a":   false,
		"BSCSEM1-":    false,
		"-A":          false,
		"BSC SEM":     false,
	}
	for code, ok := range tests {
		errs := bv.Validate(&ClassRequest{ClassCode: code, CourseID: 1})
		if got := !hasRule(errs, "class_code", "class_code"); got != ok {
			t.Errorf("class code %q valid = %v, want %v (%v)", code, got, ok, errs)
		}
	}
}

func TestRolesAndScores(t *testing.T) {
	bv := New().GetBusinessValidator()

	reg := &RegisterRequest{FullName: "Thabo M", Email: "thabo@uni.example", Password: "password1", Role: models.RolePL}
	if errs := bv.Validate(reg); !hasRule(errs, "role", "self_register_role") {
		t.Errorf("self registration as pl should fail, got %v", errs)
	}
	reg.Role = models.RoleLecturer
	if errs := bv.Validate(reg); len(errs) != 0 {
		t.Errorf("lecturer self registration should pass, got %v", errs)
	}

	create := &UserCreateRequest{FullName: "Admin Two", Email: "a2@uni.example", Password: "password1", Role: "dean"}
	if errs := bv.Validate(create); !hasRule(errs, "role", "user_role") {
		t.Errorf("unknown role should fail, got %v", errs)
	}

	for score, ok := range map[int]bool{0: false, 1: true, 5: true, 6: false} {
		errs := bv.Validate(&RatingRequest{ClassID: 1, Score: score})
		if (len(errs) == 0) != ok {
			t.Errorf("score %d valid = %v, want %v", score, len(errs) == 0, ok)
		}
	}
}

func TestValidateStatusTransition(t *testing.T) {
	bv := New().GetBusinessValidator()
	tests := []struct {
		from, to models.ReportStatus
		ok       bool
	}{
		{models.ReportPending, models.ReportReviewed, true},
		{models.ReportPending, models.ReportApproved, false},
		{models.ReportReviewed, models.ReportReviewed, true},
		{models.ReportReviewed, models.ReportApproved, true},
		{models.ReportApproved, models.ReportReviewed, false},
		{models.ReportApproved, models.ReportApproved, false},
	}
	for _, tt := range tests {
		errs := bv.ValidateStatusTransition(tt.from, tt.to)
		if (len(errs) == 0) != tt.ok {
			t.Errorf("%s -> %s allowed = %v, want %v", tt.from, tt.to, len(errs) == 0, tt.ok)
		}
	}
}

func TestValidationErrorsError(t *testing.T) {
	if (ValidationErrors{}).Error() != "validation failed" {
		t.Error("empty error message")
	}
	one := ValidationErrors{{Field: "week", Message: "is required"}}
	if one.Error() != "validation failed: week is required" {
		t.Errorf("single error message = %q", one.Error())
	}
}
