package postgres_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/luct-edu/lecture-reporting-service/internal/auth"
	"github.com/luct-edu/lecture-reporting-service/internal/cache"
	"github.com/luct-edu/lecture-reporting-service/internal/models"
	"github.com/luct-edu/lecture-reporting-service/internal/repositories"
	"github.com/luct-edu/lecture-reporting-service/internal/repositories/postgres"
	"github.com/luct-edu/lecture-reporting-service/internal/services"
	"github.com/luct-edu/lecture-reporting-service/internal/validator"
)

type testEnv struct {
	repo   repositories.Repository
	mr     *miniredis.Miniredis
	hasher auth.PasswordHasher

	faculty  *models.Faculty
	lecturer *models.User
	student  *models.User
	course   *models.Course
	class    *models.Class
}

// newTestEnv opens a private in-memory database behind a miniredis-backed cache
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	env := &testEnv{
		repo:   postgres.NewPostgreSQLRepository(postgres.RepositoryConfig{DB: db, Cache: cache.NewCacheManager(client)}),
		mr:     mr,
		hasher: auth.NewBcryptHasher(bcrypt.MinCost),
	}
	env.seed(t)
	return env
}

func (e *testEnv) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	e.faculty = &models.Faculty{Name: "Faculty of ICT", Code: "FICT"}
	mustCreate(t, e.repo.Faculty().Create(ctx, nil, e.faculty))

	e.lecturer = e.addUser(t, "lecturer@luct.test", models.RoleLecturer, &e.faculty.ID, "secret123")
	e.student = e.addUser(t, "student@luct.test", models.RoleStudent, &e.faculty.ID, "secret123")

	e.course = &models.Course{Code: "DIT101", Name: "Intro to IT", FacultyID: e.faculty.ID}
	mustCreate(t, e.repo.Course().Create(ctx, nil, e.course))

	e.class = e.addClass(t, "BSCSEM1-A", e.course.ID, &e.lecturer.ID)
}

func (e *testEnv) addUser(t *testing.T, email string, role models.UserRole, facultyID *uint, password string) *models.User {
	t.Helper()
	hash, err := e.hasher.Hash(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &models.User{FullName: email, Email: email, PasswordHash: hash, Role: role, FacultyID: facultyID, IsActive: true}
	mustCreate(t, e.repo.User().Create(context.Background(), nil, u))
	return u
}

func (e *testEnv) addClass(t *testing.T, code string, courseID uint, lecturerID *uint) *models.Class {
	t.Helper()
	c := &models.Class{ClassCode: code, CourseID: courseID, LecturerID: lecturerID, TotalRegistered: 40}
	mustCreate(t, e.repo.Class().Create(context.Background(), nil, c))
	return c
}

func (e *testEnv) addReport(t *testing.T, class *models.Class, facultyID, courseID uint, week int, date time.Time) *models.Report {
	t.Helper()
	r := &models.Report{
		FacultyID:        facultyID,
		ClassID:          class.ID,
		CourseID:         courseID,
		LecturerID:       *class.LecturerID,
		Week:             week,
		LectureDate:      datatypes.Date(date),
		StudentsPresent:  30,
		TotalRegistered:  40,
		Topic:            "Joins",
		LearningOutcomes: "Students can write inner joins",
		Status:           models.ReportPending,
	}
	mustCreate(t, e.repo.Report().Create(context.Background(), nil, r))
	return r
}

func mustCreate(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("create fixture: %v", err)
	}
}

func TestUserRepository_CachedUserHasNoHash(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// first call fills the cache, second is served from it
	for i := 0; i < 2; i++ {
		u, err := env.repo.User().GetByID(ctx, nil, env.student.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if u.PasswordHash != "" {
			t.Errorf("GetByID() call %d returned a password hash", i+1)
		}
	}

	creds, err := env.repo.User().GetCredentials(ctx, nil, env.student.ID)
	if err != nil {
		t.Fatalf("GetCredentials() error = %v", err)
	}
	if err := env.hasher.Compare(creds.PasswordHash, "secret123"); err != nil {
		t.Errorf("GetCredentials() hash does not match: %v", err)
	}
}

func TestAuthService_ChangePasswordAfterCachedLookup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// the auth middleware loads the user through the cache before the handler runs
	if _, err := env.repo.User().GetByID(ctx, nil, env.student.ID); err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	svc := services.NewAuthService(
		env.repo,
		auth.NewTokenManager("test-secret", "lecture-reporting-test", time.Hour),
		env.hasher,
		nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		validator.New(),
	)

	err := svc.ChangePassword(ctx, env.student.ID, &services.ChangePasswordRequest{OldPassword: "wrong-password", NewPassword: "newsecret123"})
	var verrs services.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("ChangePassword() with wrong old password error = %v, want ValidationErrors", err)
	}

	if err := svc.ChangePassword(ctx, env.student.ID, &services.ChangePasswordRequest{OldPassword: "secret123", NewPassword: "newsecret123"}); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}

	creds, err := env.repo.User().GetCredentials(ctx, nil, env.student.ID)
	if err != nil {
		t.Fatalf("GetCredentials() error = %v", err)
	}
	if err := env.hasher.Compare(creds.PasswordHash, "newsecret123"); err != nil {
		t.Errorf("new password not stored: %v", err)
	}
}

func TestRatingRepository_OneClassLevelRatingPerStudent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ratings := env.repo.Rating()

	first := &models.Rating{ClassID: env.class.ID, StudentID: env.student.ID, Score: 4}
	if err := ratings.Create(ctx, nil, first); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	second := &models.Rating{ClassID: env.class.ID, StudentID: env.student.ID, Score: 1}
	err := ratings.Create(ctx, nil, second)
	if !repositories.IsDuplicateError(err) {
		t.Fatalf("second class-level Create() error = %v, want duplicate", err)
	}

	// a report-level rating by the same student is a separate slot
	report := env.addReport(t, env.class, env.faculty.ID, env.course.ID, 1, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC))
	if err := ratings.Create(ctx, nil, &models.Rating{ClassID: env.class.ID, StudentID: env.student.ID, ReportID: &report.ID, Score: 5}); err != nil {
		t.Fatalf("report-level Create() error = %v", err)
	}

	summary, err := ratings.Summary(ctx, nil, env.class.ID)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if summary.Count != 2 || summary.Distribution[1] != 0 {
		t.Errorf("Summary() = %+v, want 2 ratings and no score of 1", summary)
	}
}

func TestReportRepository_DeleteRemovesReportRatings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	report := env.addReport(t, env.class, env.faculty.ID, env.course.ID, 1, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC))
	mustCreate(t, env.repo.Rating().Create(ctx, nil, &models.Rating{ClassID: env.class.ID, StudentID: env.student.ID, ReportID: &report.ID, Score: 3}))
	mustCreate(t, env.repo.Rating().Create(ctx, nil, &models.Rating{ClassID: env.class.ID, StudentID: env.student.ID, Score: 5}))

	err := env.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		return tx.Report().Delete(ctx, nil, report.ID)
	})
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	summary, err := env.repo.Rating().Summary(ctx, nil, env.class.ID)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if summary.Count != 1 || summary.Distribution[5] != 1 {
		t.Errorf("Summary() = %+v, want only the class-level rating left", summary)
	}

	// the student's class-level slot is still taken
	err = env.repo.Rating().Create(ctx, nil, &models.Rating{ClassID: env.class.ID, StudentID: env.student.ID, Score: 2})
	if !repositories.IsDuplicateError(err) {
		t.Errorf("Create() after report delete error = %v, want duplicate", err)
	}
}

func TestReportRepository_PagesDoNotOverlapOnTies(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const total = 30
	sameDay := time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)
	for week := 1; week <= total; week++ {
		env.addReport(t, env.class, env.faculty.ID, env.course.ID, week, sameDay)
	}

	for _, order := range []string{"asc", "desc"} {
		seen := make(map[uint]bool, total)
		for offset := 0; offset < total; offset += 7 {
			page, count, err := env.repo.Report().List(ctx, nil, repositories.ReportFilters{
				SortBy: "lecture_date", SortOrder: order, Limit: 7, Offset: offset,
			})
			if err != nil {
				t.Fatalf("List(%s, offset %d) error = %v", order, offset, err)
			}
			if count != total {
				t.Fatalf("List(%s) total = %d, want %d", order, count, total)
			}
			for _, r := range page {
				if seen[r.ID] {
					t.Errorf("List(%s) returned report %d on more than one page", order, r.ID)
				}
				seen[r.ID] = true
			}
		}
		if len(seen) != total {
			t.Errorf("List(%s) covered %d reports, want %d", order, len(seen), total)
		}
	}
}

func TestWithTransaction_InvalidatesAfterCommit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	report := env.addReport(t, env.class, env.faculty.ID, env.course.ID, 1, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC))

	const listKey = "report:list:cached"
	addFeedback := func(tx repositories.Repository) error {
		return tx.Report().AddFeedback(ctx, nil, &models.Feedback{
			ReportID: report.ID, ReviewerID: env.lecturer.ID, ReviewerRole: models.RoleLecturer, Comment: "noted",
		})
	}

	t.Run("commit", func(t *testing.T) {
		_ = env.mr.Set(listKey, "{}")
		err := env.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
			if err := addFeedback(tx); err != nil {
				return err
			}
			if !env.mr.Exists(listKey) {
				t.Error("cache invalidated before commit")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("WithTransaction() error = %v", err)
		}
		if env.mr.Exists(listKey) {
			t.Error("cache not invalidated after commit")
		}
	})

	t.Run("rollback", func(t *testing.T) {
		_ = env.mr.Set(listKey, "{}")
		errAbort := errors.New("abort")
		err := env.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
			if err := addFeedback(tx); err != nil {
				return err
			}
			return errAbort
		})
		if !errors.Is(err, errAbort) {
			t.Fatalf("WithTransaction() error = %v, want abort", err)
		}
		if !env.mr.Exists(listKey) {
			t.Error("cache invalidated for a rolled back transaction")
		}

		feedback, err := env.repo.Report().ListFeedback(ctx, nil, report.ID)
		if err != nil {
			t.Fatalf("ListFeedback() error = %v", err)
		}
		if len(feedback) != 1 {
			t.Errorf("ListFeedback() = %d entries, want only the committed one", len(feedback))
		}
	})
}

func TestClassRepository_EnrollmentDropsReportPages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	const listKey = "report:list:student"

	_ = env.mr.Set(listKey, "{}")
	added, err := env.repo.Class().Enroll(ctx, nil, env.class.ID, env.student.ID)
	if err != nil || !added {
		t.Fatalf("Enroll() = %v, %v", added, err)
	}
	if env.mr.Exists(listKey) {
		t.Error("Enroll() left cached report pages")
	}

	added, err = env.repo.Class().Enroll(ctx, nil, env.class.ID, env.student.ID)
	if err != nil || added {
		t.Errorf("second Enroll() = %v, %v, want false, nil", added, err)
	}

	_ = env.mr.Set(listKey, "{}")
	if err := env.repo.Class().Unenroll(ctx, nil, env.class.ID, env.student.ID); err != nil {
		t.Fatalf("Unenroll() error = %v", err)
	}
	if env.mr.Exists(listKey) {
		t.Error("Unenroll() left cached report pages")
	}
}

func TestDashboardRepository_LecturerPerformanceByFaculty(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	design := &models.Faculty{Name: "Faculty of Design", Code: "FDI"}
	mustCreate(t, env.repo.Faculty().Create(ctx, nil, design))
	designCourse := &models.Course{Code: "DES101", Name: "Design Basics", FacultyID: design.ID}
	mustCreate(t, env.repo.Course().Create(ctx, nil, designCourse))
	designClass := env.addClass(t, "DESSEM1-A", designCourse.ID, &env.lecturer.ID)

	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	env.addReport(t, env.class, env.faculty.ID, env.course.ID, 1, day)
	env.addReport(t, designClass, design.ID, designCourse.ID, 1, day)
	env.addReport(t, designClass, design.ID, designCourse.ID, 2, day)

	mustCreate(t, env.repo.Rating().Create(ctx, nil, &models.Rating{ClassID: env.class.ID, StudentID: env.student.ID, Score: 5}))
	mustCreate(t, env.repo.Rating().Create(ctx, nil, &models.Rating{ClassID: designClass.ID, StudentID: env.student.ID, Score: 1}))

	tests := []struct {
		name        string
		facultyID   *uint
		wantReports int64
		wantRating  float64
	}{
		{"own faculty", &env.faculty.ID, 1, 5},
		{"teaching in another faculty", &design.ID, 2, 1},
		{"all faculties", nil, 3, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := env.repo.Dashboard().LecturerPerformance(ctx, nil, tt.facultyID)
			if err != nil {
				t.Fatalf("LecturerPerformance() error = %v", err)
			}
			if len(rows) != 1 {
				t.Fatalf("LecturerPerformance() = %+v, want one lecturer", rows)
			}
			got := rows[0]
			if got.LecturerID != env.lecturer.ID || got.ReportCount != tt.wantReports || got.AverageRating != tt.wantRating {
				t.Errorf("LecturerPerformance() = %+v, want %d reports rated %.1f", got, tt.wantReports, tt.wantRating)
			}
			if got.PendingReports != tt.wantReports {
				t.Errorf("PendingReports = %d, want %d", got.PendingReports, tt.wantReports)
			}
		})
	}
}
