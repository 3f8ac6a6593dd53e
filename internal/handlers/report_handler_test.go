package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/luct-edu/lecture-reporting-service/internal/models"
	"github.com/luct-edu/lecture-reporting-service/internal/services"
)

func reportRouter(svc *stubReports, user *models.User) *gin.Engine {
	h := NewReportHandler(svc, testLogger())
	r := gin.New()
	api := r.Group("", asUser(user))
	api.GET("/reports", h.ListReports)
	api.POST("/reports", h.CreateReport)
	api.GET("/reports/export", h.ExportReports)
	api.POST("/reports/:id/approve", h.ApproveReport)
	return r
}

func TestReportHandler_ListParams(t *testing.T) {
	prl := &models.User{ID: 3, Role: models.RolePRL, FacultyID: uintPtr(1)}
	svc := &stubReports{}
	r := reportRouter(svc, prl)

	w := do(t, r, http.MethodGet, "/reports?status=Reviewed&week=4&class_id=9&date_from=2025-03-01&q=sql&page=2&size=5", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	p := svc.lastParams
	if p.Status != models.ReportReviewed {
		t.Errorf("status = %q", p.Status)
	}
	if p.Week == nil || *p.Week != 4 || p.ClassID == nil || *p.ClassID != 9 {
		t.Errorf("week/class_id not parsed: %+v", p)
	}
	if p.DateFrom == nil || p.DateFrom.Format("2006-01-02") != "2025-03-01" || p.DateTo != nil {
		t.Errorf("dates = %v %v", p.DateFrom, p.DateTo)
	}
	if p.Page != 2 || p.Size != 5 || p.Search != "sql" {
		t.Errorf("paging/search = %+v", p)
	}
	if p.SortBy != "lecture_date" || p.SortDir != "desc" {
		t.Errorf("default sort = %s %s", p.SortBy, p.SortDir)
	}
	if svc.lastActor.ID != 3 || svc.lastActor.FacultyID == nil {
		t.Errorf("actor = %+v", svc.lastActor)
	}
}

func TestReportHandler_BadQuery(t *testing.T) {
	r := reportRouter(&stubReports{}, &models.User{ID: 3, Role: models.RolePRL})

	for _, q := range []string{"week=four", "class_id=-1", "date_to=17/03/2025"} {
		w := do(t, r, http.MethodGet, "/reports?"+q, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, w.Code)
		}
	}
}

func TestReportHandler_Create(t *testing.T) {
	lecturer := &models.User{ID: 5, Role: models.RoleLecturer}

	t.Run("created", func(t *testing.T) {
		svc := &stubReports{report: &models.Report{ID: 11, ClassID: 2, Week: 3}}
		w := do(t, reportRouter(svc, lecturer), http.MethodPost, "/reports", map[string]interface{}{
			"class_id": 2, "week": 3, "lecture_date": "2025-03-17", "students_present": 30,
			"topic": "Joins", "learning_outcomes": "Inner and outer joins",
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		w := do(t, reportRouter(&stubReports{}, lecturer), http.MethodPost, "/reports", "not an object")
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("duplicate week", func(t *testing.T) {
		svc := &stubReports{err: services.ErrDuplicateReport}
		w := do(t, reportRouter(svc, lecturer), http.MethodPost, "/reports", map[string]interface{}{"class_id": 2})
		if w.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", w.Code)
		}
	})
}

func TestReportHandler_Approve(t *testing.T) {
	pl := &models.User{ID: 4, Role: models.RolePL}

	svc := &stubReports{err: services.NewBusinessRuleError("feedback_required", "Feedback is required before approval", nil)}
	w := do(t, reportRouter(svc, pl), http.MethodPost, "/reports/8/approve", nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	details, ok := decodeError(t, w).Details.(map[string]interface{})
	if !ok || details["rule"] != "feedback_required" {
		t.Errorf("details = %v", decodeError(t, w).Details)
	}

	w = do(t, reportRouter(&stubReports{}, pl), http.MethodPost, "/reports/abc/approve", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", w.Code)
	}
}

func TestReportHandler_Export(t *testing.T) {
	svc := &stubReports{}
	w := do(t, reportRouter(svc, &models.User{ID: 1, Role: models.RoleAdmin}), http.MethodGet, "/reports/export?week=2", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("content type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, `attachment; filename="lecture-reports-`) {
		t.Errorf("content disposition = %q", cd)
	}
	if w.Body.String() != "PK-xlsx" {
		t.Errorf("body = %q", w.Body.String())
	}
	if svc.lastParams.Week == nil || *svc.lastParams.Week != 2 {
		t.Errorf("week filter not forwarded")
	}

	failing := &stubReports{err: &services.PermissionError{Resource: "report", Action: "export"}}
	w = do(t, reportRouter(failing, &models.User{ID: 9, Role: models.RoleLecturer}), http.MethodGet, "/reports/export", nil)
	if w.Code != http.StatusForbidden || w.Header().Get("Content-Disposition") != "" {
		t.Errorf("failed export status = %d, disposition = %q", w.Code, w.Header().Get("Content-Disposition"))
	}
}
