package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/luct-edu/lecture-reporting-service/internal/models"
	"github.com/luct-edu/lecture-reporting-service/internal/services"
	"github.com/luct-edu/lecture-reporting-service/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() utils.Logger {
	return utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func uintPtr(v uint) *uint { return &v }

// asUser injects an authenticated user the way AuthMiddleware does
func asUser(u *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		setUser(c, u)
		c.Next()
	}
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return resp
}

// stubAuth resolves tokens from a fixed table
type stubAuth struct {
	services.AuthService
	tokens map[string]*models.User
	err    error
}

func (s *stubAuth) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.tokens[token]
	if !ok {
		return nil, services.ErrInvalidToken
	}
	return u, nil
}

// stubReports records the last call and answers with canned values
type stubReports struct {
	services.ReportService

	lastParams models.ListReportsParams
	lastActor  services.Actor
	err        error
	report     *models.Report
}

func (s *stubReports) List(ctx context.Context, actor services.Actor, params models.ListReportsParams) (*models.PaginatedResponse, error) {
	s.lastActor, s.lastParams = actor, params
	if s.err != nil {
		return nil, s.err
	}
	return models.NewPaginatedResponse([]*models.Report{}, 0, params.Page, params.Size, 0), nil
}

func (s *stubReports) Create(ctx context.Context, actor services.Actor, req *services.CreateReportRequest) (*models.Report, error) {
	s.lastActor = actor
	if s.err != nil {
		return nil, s.err
	}
	return s.report, nil
}

func (s *stubReports) Approve(ctx context.Context, actor services.Actor, id uint) (*models.Report, error) {
	s.lastActor = actor
	if s.err != nil {
		return nil, s.err
	}
	return s.report, nil
}

func (s *stubReports) Export(ctx context.Context, actor services.Actor, params models.ListReportsParams, w io.Writer) error {
	s.lastActor, s.lastParams = actor, params
	if s.err != nil {
		return s.err
	}
	_, err := w.Write([]byte("PK-xlsx"))
	return err
}
