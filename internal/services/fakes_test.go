package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/luct-edu/lecture-reporting-service/internal/auth"
	"github.com/luct-edu/lecture-reporting-service/internal/events"
	"github.com/luct-edu/lecture-reporting-service/internal/models"
	"github.com/luct-edu/lecture-reporting-service/internal/repositories"
	"github.com/luct-edu/lecture-reporting-service/internal/validator"
)

// memStore is an in-memory stand-in for the postgres repositories
type memStore struct {
	mu sync.Mutex

	users       map[uint]*models.User
	faculties   map[uint]*models.Faculty
	courses     map[uint]*models.Course
	classes     map[uint]*models.Class
	enrollments map[[2]uint]bool
	reports     map[uint]*models.Report
	feedback    []*models.Feedback
	ratings     []*models.Rating
	events      []*models.DomainEventRecord

	nextID     uint
	statsCalls int
}

func newMemStore() *memStore {
	return &memStore{
		users:       map[uint]*models.User{},
		faculties:   map[uint]*models.Faculty{},
		courses:     map[uint]*models.Course{},
		classes:     map[uint]*models.Class{},
		enrollments: map[[2]uint]bool{},
		reports:     map[uint]*models.Report{},
	}
}

func (m *memStore) id() uint {
	m.nextID++
	return m.nextID
}

func notFound() error { return gorm.ErrRecordNotFound }

// ===== Repository =====

type memRepo struct{ s *memStore }

func (r *memRepo) User() repositories.UserRepository               { return &memUsers{r.s} }
func (r *memRepo) Faculty() repositories.FacultyRepository         { return &memFaculties{r.s} }
func (r *memRepo) Course() repositories.CourseRepository           { return &memCourses{r.s} }
func (r *memRepo) Class() repositories.ClassRepository             { return &memClasses{r.s} }
func (r *memRepo) Report() repositories.ReportRepository           { return &memReports{r.s} }
func (r *memRepo) Rating() repositories.RatingRepository           { return &memRatings{r.s} }
func (r *memRepo) Dashboard() repositories.DashboardRepository     { return &memDashboard{r.s} }
func (r *memRepo) DomainEvent() repositories.DomainEventRepository { return &memEvents{r.s} }
func (r *memRepo) DB() *gorm.DB                                    { return nil }
func (r *memRepo) Ping(ctx context.Context) error                  { return nil }
func (r *memRepo) Close() error                                    { return nil }

func (r *memRepo) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(r)
}

// ===== Users =====

type memUsers struct{ s *memStore }

func (u *memUsers) Create(ctx context.Context, tx *gorm.DB, user *models.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for _, existing := range u.s.users {
		if existing.Email == user.Email {
			return repositories.ErrDuplicate
		}
	}
	user.ID = u.s.id()
	user.CreatedAt = time.Now()
	u.s.users[user.ID] = user
	return nil
}

// GetByID hands back the cached shape, which has no password hash
func (u *memUsers) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.User, error) {
	user, err := u.GetCredentials(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

func (u *memUsers) GetCredentials(ctx context.Context, tx *gorm.DB, id uint) (*models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if user, ok := u.s.users[id]; ok {
		cp := *user
		return &cp, nil
	}
	return nil, notFound()
}

func (u *memUsers) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for _, user := range u.s.users {
		if user.Email == email {
			cp := *user
			return &cp, nil
		}
	}
	return nil, notFound()
}

func (u *memUsers) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	var out []*models.User
	for _, id := range ids {
		if user, ok := u.s.users[id]; ok {
			out = append(out, user)
		}
	}
	return out, nil
}

func (u *memUsers) Update(ctx context.Context, tx *gorm.DB, user *models.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if _, ok := u.s.users[user.ID]; !ok {
		return notFound()
	}
	cp := *user
	u.s.users[user.ID] = &cp
	return nil
}

func (u *memUsers) UpdatePassword(ctx context.Context, tx *gorm.DB, id uint, hash string) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	user, ok := u.s.users[id]
	if !ok {
		return notFound()
	}
	user.PasswordHash = hash
	return nil
}

func (u *memUsers) TouchLastLogin(ctx context.Context, tx *gorm.DB, id uint, at time.Time) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if user, ok := u.s.users[id]; ok {
		user.LastLoginAt = &at
	}
	return nil
}

func (u *memUsers) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	delete(u.s.users, id)
	return nil
}

func (u *memUsers) List(ctx context.Context, tx *gorm.DB, f repositories.UserFilters) ([]*models.User, int64, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	var out []*models.User
	for _, user := range u.s.users {
		if f.Role != nil && user.Role != *f.Role {
			continue
		}
		if f.FacultyID != nil && (user.FacultyID == nil || *user.FacultyID != *f.FacultyID) {
			continue
		}
		if f.Query != "" && !strings.Contains(strings.ToLower(user.FullName+user.Email), strings.ToLower(f.Query)) {
			continue
		}
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, f.Limit, f.Offset), int64(len(out)), nil
}

func (u *memUsers) ExistsByEmail(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
	_, err := u.GetByEmail(ctx, tx, email)
	return err == nil, nil
}

func (u *memUsers) CountByRole(ctx context.Context, tx *gorm.DB, role models.UserRole) (int64, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	var n int64
	for _, user := range u.s.users {
		if user.Role == role {
			n++
		}
	}
	return n, nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// ===== Faculties & courses =====

type memFaculties struct{ s *memStore }

func (f *memFaculties) Create(ctx context.Context, tx *gorm.DB, faculty *models.Faculty) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, existing := range f.s.faculties {
		if existing.Code == faculty.Code || existing.Name == faculty.Name {
			return repositories.ErrDuplicate
		}
	}
	faculty.ID = f.s.id()
	f.s.faculties[faculty.ID] = faculty
	return nil
}

func (f *memFaculties) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Faculty, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if faculty, ok := f.s.faculties[id]; ok {
		return faculty, nil
	}
	return nil, notFound()
}

func (f *memFaculties) Update(ctx context.Context, tx *gorm.DB, faculty *models.Faculty) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.faculties[faculty.ID] = faculty
	return nil
}

func (f *memFaculties) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	delete(f.s.faculties, id)
	return nil
}

func (f *memFaculties) List(ctx context.Context, tx *gorm.DB, filters repositories.FacultyFilters) ([]*models.Faculty, int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*models.Faculty
	for _, faculty := range f.s.faculties {
		out = append(out, faculty)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, filters.Limit, filters.Offset), int64(len(out)), nil
}

func (f *memFaculties) HasCourses(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, c := range f.s.courses {
		if c.FacultyID == id {
			return true, nil
		}
	}
	return false, nil
}

type memCourses struct{ s *memStore }

func (c *memCourses) Create(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	course.ID = c.s.id()
	c.s.courses[course.ID] = course
	return nil
}

func (c *memCourses) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if course, ok := c.s.courses[id]; ok {
		cp := *course
		return &cp, nil
	}
	return nil, notFound()
}

func (c *memCourses) Update(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.courses[course.ID] = course
	return nil
}

func (c *memCourses) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	delete(c.s.courses, id)
	return nil
}

func (c *memCourses) List(ctx context.Context, tx *gorm.DB, f repositories.CourseFilters) ([]*models.Course, int64, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	var out []*models.Course
	for _, course := range c.s.courses {
		if f.FacultyID != nil && course.FacultyID != *f.FacultyID {
			continue
		}
		out = append(out, course)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, f.Limit, f.Offset), int64(len(out)), nil
}

func (c *memCourses) ExistsByCode(ctx context.Context, tx *gorm.DB, code string, excludeID *uint) (bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	for _, course := range c.s.courses {
		if course.Code == code && (excludeID == nil || course.ID != *excludeID) {
			return true, nil
		}
	}
	return false, nil
}

func (c *memCourses) HasClasses(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	for _, class := range c.s.classes {
		if class.CourseID == id {
			return true, nil
		}
	}
	return false, nil
}

// ===== Classes =====

type memClasses struct{ s *memStore }

func (c *memClasses) withCourse(class *models.Class) *models.Class {
	cp := *class
	if course, ok := c.s.courses[cp.CourseID]; ok {
		cc := *course
		cp.Course = &cc
	}
	return &cp
}

func (c *memClasses) Create(ctx context.Context, tx *gorm.DB, class *models.Class) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	class.ID = c.s.id()
	c.s.classes[class.ID] = class
	return nil
}

func (c *memClasses) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Class, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if class, ok := c.s.classes[id]; ok {
		return c.withCourse(class), nil
	}
	return nil, notFound()
}

func (c *memClasses) Update(ctx context.Context, tx *gorm.DB, class *models.Class) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.classes[class.ID] = class
	return nil
}

func (c *memClasses) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	delete(c.s.classes, id)
	return nil
}

func (c *memClasses) List(ctx context.Context, tx *gorm.DB, f repositories.ClassFilters) ([]*models.Class, int64, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	var out []*models.Class
	for _, class := range c.s.classes {
		if f.Scope.LecturerID != nil && (class.LecturerID == nil || *class.LecturerID != *f.Scope.LecturerID) {
			continue
		}
		if f.Scope.StudentID != nil && !c.s.enrollments[[2]uint{class.ID, *f.Scope.StudentID}] {
			continue
		}
		if f.Scope.FacultyID != nil {
			if course, ok := c.s.courses[class.CourseID]; !ok || course.FacultyID != *f.Scope.FacultyID {
				continue
			}
		}
		if f.CourseID != nil && class.CourseID != *f.CourseID {
			continue
		}
		out = append(out, c.withCourse(class))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClassCode < out[j].ClassCode })
	return page(out, f.Limit, f.Offset), int64(len(out)), nil
}

func (c *memClasses) ExistsByCode(ctx context.Context, tx *gorm.DB, code string, excludeID *uint) (bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	for _, class := range c.s.classes {
		if class.ClassCode == code && (excludeID == nil || class.ID != *excludeID) {
			return true, nil
		}
	}
	return false, nil
}

func (c *memClasses) HasReports(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	for _, r := range c.s.reports {
		if r.ClassID == id {
			return true, nil
		}
	}
	return false, nil
}

func (c *memClasses) Enroll(ctx context.Context, tx *gorm.DB, classID, studentID uint) (bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	key := [2]uint{classID, studentID}
	if c.s.enrollments[key] {
		return false, nil
	}
	c.s.enrollments[key] = true
	return true, nil
}

func (c *memClasses) Unenroll(ctx context.Context, tx *gorm.DB, classID, studentID uint) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	key := [2]uint{classID, studentID}
	if !c.s.enrollments[key] {
		return notFound()
	}
	delete(c.s.enrollments, key)
	return nil
}

func (c *memClasses) IsEnrolled(ctx context.Context, tx *gorm.DB, classID, studentID uint) (bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.s.enrollments[[2]uint{classID, studentID}], nil
}

func (c *memClasses) ListStudents(ctx context.Context, tx *gorm.DB, classID uint) ([]*models.User, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	var out []*models.User
	for key := range c.s.enrollments {
		if key[0] == classID {
			out = append(out, c.s.users[key[1]])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *memClasses) ListByStudent(ctx context.Context, tx *gorm.DB, studentID uint) ([]*models.Class, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	var out []*models.Class
	for key := range c.s.enrollments {
		if key[1] == studentID {
			out = append(out, c.withCourse(c.s.classes[key[0]]))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClassCode < out[j].ClassCode })
	return out, nil
}

// ===== Reports =====

type memReports struct{ s *memStore }

func (r *memReports) Create(ctx context.Context, tx *gorm.DB, report *models.Report) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.reports {
		if existing.ClassID == report.ClassID && existing.Week == report.Week {
			return repositories.ErrDuplicate
		}
	}
	report.ID = r.s.id()
	report.CreatedAt = time.Now()
	cp := *report
	r.s.reports[report.ID] = &cp
	return nil
}

func (r *memReports) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Report, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if report, ok := r.s.reports[id]; ok {
		cp := *report
		return &cp, nil
	}
	return nil, notFound()
}

func (r *memReports) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.Report, error) {
	report, err := r.GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, fb := range r.s.feedback {
		if fb.ReportID == id {
			report.Feedback = append(report.Feedback, *fb)
		}
	}
	return report, nil
}

func (r *memReports) Update(ctx context.Context, tx *gorm.DB, report *models.Report) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *report
	r.s.reports[report.ID] = &cp
	return nil
}

func (r *memReports) UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, status models.ReportStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	report, ok := r.s.reports[id]
	if !ok {
		return notFound()
	}
	report.Status = status
	return nil
}

func (r *memReports) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.reports, id)
	kept := r.s.ratings[:0]
	for _, rating := range r.s.ratings {
		if rating.ReportID == nil || *rating.ReportID != id {
			kept = append(kept, rating)
		}
	}
	r.s.ratings = kept
	return nil
}

func (r *memReports) List(ctx context.Context, tx *gorm.DB, f repositories.ReportFilters) ([]*models.Report, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Report
	for _, report := range r.s.reports {
		if f.Scope.LecturerID != nil && report.LecturerID != *f.Scope.LecturerID {
			continue
		}
		if f.Scope.FacultyID != nil && report.FacultyID != *f.Scope.FacultyID {
			continue
		}
		if f.Scope.StudentID != nil && !r.s.enrollments[[2]uint{report.ClassID, *f.Scope.StudentID}] {
			continue
		}
		if f.Status != nil && report.Status != *f.Status {
			continue
		}
		if f.Week != nil && report.Week != *f.Week {
			continue
		}
		if f.ClassID != nil && report.ClassID != *f.ClassID {
			continue
		}
		cp := *report
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, f.Limit, f.Offset), int64(len(out)), nil
}

func (r *memReports) ExistsForWeek(ctx context.Context, tx *gorm.DB, classID uint, week int, excludeID *uint) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, report := range r.s.reports {
		if report.ClassID == classID && report.Week == week && (excludeID == nil || report.ID != *excludeID) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memReports) ListByClasses(ctx context.Context, tx *gorm.DB, classIDs []uint) ([]*models.Report, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	want := map[uint]bool{}
	for _, id := range classIDs {
		want[id] = true
	}
	var out []*models.Report
	for _, report := range r.s.reports {
		if want[report.ClassID] {
			out = append(out, report)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Week < out[j].Week })
	return out, nil
}

func (r *memReports) AddFeedback(ctx context.Context, tx *gorm.DB, feedback *models.Feedback) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	feedback.ID = r.s.id()
	feedback.CreatedAt = time.Now()
	r.s.feedback = append(r.s.feedback, feedback)
	return nil
}

func (r *memReports) ListFeedback(ctx context.Context, tx *gorm.DB, reportID uint) ([]*models.Feedback, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Feedback
	for _, fb := range r.s.feedback {
		if fb.ReportID == reportID {
			out = append(out, fb)
		}
	}
	return out, nil
}

func (r *memReports) CountFeedback(ctx context.Context, tx *gorm.DB, reportIDs []uint) (map[uint]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := map[uint]int64{}
	for _, fb := range r.s.feedback {
		counts[fb.ReportID]++
	}
	return counts, nil
}

// ===== Ratings =====

type memRatings struct{ s *memStore }

func sameReport(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (r *memRatings) Create(ctx context.Context, tx *gorm.DB, rating *models.Rating) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.ratings {
		if existing.ClassID == rating.ClassID && existing.StudentID == rating.StudentID && sameReport(existing.ReportID, rating.ReportID) {
			return repositories.ErrDuplicate
		}
	}
	rating.ID = r.s.id()
	rating.CreatedAt = time.Now()
	r.s.ratings = append(r.s.ratings, rating)
	return nil
}

func (r *memRatings) Exists(ctx context.Context, tx *gorm.DB, classID, studentID uint, reportID *uint) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rating := range r.s.ratings {
		if rating.ClassID == classID && rating.StudentID == studentID && sameReport(rating.ReportID, reportID) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRatings) List(ctx context.Context, tx *gorm.DB, f repositories.RatingFilters) ([]*models.Rating, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Rating
	for _, rating := range r.s.ratings {
		if f.Scope.StudentID != nil && rating.StudentID != *f.Scope.StudentID {
			continue
		}
		if f.Scope.LecturerID != nil {
			class := r.s.classes[rating.ClassID]
			if class == nil || class.LecturerID == nil || *class.LecturerID != *f.Scope.LecturerID {
				continue
			}
		}
		if f.ClassID != nil && rating.ClassID != *f.ClassID {
			continue
		}
		out = append(out, rating)
	}
	return page(out, f.Limit, f.Offset), int64(len(out)), nil
}

func (r *memRatings) Summary(ctx context.Context, tx *gorm.DB, classID uint) (*models.RatingSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	summary := &models.RatingSummary{ClassID: classID, Distribution: map[int]int64{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}}
	var sum int
	for _, rating := range r.s.ratings {
		if rating.ClassID == classID {
			summary.Count++
			summary.Distribution[rating.Score]++
			sum += rating.Score
		}
	}
	if summary.Count > 0 {
		summary.Average = float64(sum) / float64(summary.Count)
	}
	return summary, nil
}

// ===== Dashboard =====

type memDashboard struct{ s *memStore }

func (d *memDashboard) reportsOf(facultyID *uint) []*models.Report {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	var out []*models.Report
	for _, r := range d.s.reports {
		if facultyID == nil || r.FacultyID == *facultyID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (d *memDashboard) CountReports(ctx context.Context, tx *gorm.DB, facultyID *uint) (int64, error) {
	d.s.mu.Lock()
	d.s.statsCalls++
	d.s.mu.Unlock()
	return int64(len(d.reportsOf(facultyID))), nil
}

func (d *memDashboard) CountCourses(ctx context.Context, tx *gorm.DB, facultyID *uint) (int64, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	var n int64
	for _, c := range d.s.courses {
		if facultyID == nil || c.FacultyID == *facultyID {
			n++
		}
	}
	return n, nil
}

func (d *memDashboard) CountClasses(ctx context.Context, tx *gorm.DB, facultyID *uint) (int64, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	var n int64
	for _, class := range d.s.classes {
		if c, ok := d.s.courses[class.CourseID]; ok && (facultyID == nil || c.FacultyID == *facultyID) {
			n++
		}
	}
	return n, nil
}

func (d *memDashboard) CountLecturers(ctx context.Context, tx *gorm.DB, facultyID *uint) (int64, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	var n int64
	for _, u := range d.s.users {
		if u.Role == models.RoleLecturer && (facultyID == nil || (u.FacultyID != nil && *u.FacultyID == *facultyID)) {
			n++
		}
	}
	return n, nil
}

func (d *memDashboard) CountReportsSince(ctx context.Context, tx *gorm.DB, facultyID *uint, since time.Time) (int64, error) {
	var n int64
	for _, r := range d.reportsOf(facultyID) {
		if !r.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (d *memDashboard) ReportsByStatus(ctx context.Context, tx *gorm.DB, facultyID *uint) (map[models.ReportStatus]int64, error) {
	out := map[models.ReportStatus]int64{}
	for _, r := range d.reportsOf(facultyID) {
		out[r.Status]++
	}
	return out, nil
}

func (d *memDashboard) AverageAttendanceRate(ctx context.Context, tx *gorm.DB, facultyID *uint) (float64, error) {
	reports := d.reportsOf(facultyID)
	if len(reports) == 0 {
		return 0, nil
	}
	var sum float64
	for _, r := range reports {
		sum += r.AttendanceRate()
	}
	return sum / float64(len(reports)), nil
}

func (d *memDashboard) AverageRating(ctx context.Context, tx *gorm.DB, facultyID *uint) (float64, error) {
	return 0, nil
}

func (d *memDashboard) AttendanceTrends(ctx context.Context, tx *gorm.DB, facultyID *uint) ([]models.AttendanceTrend, error) {
	return nil, nil
}

func (d *memDashboard) LecturerPerformance(ctx context.Context, tx *gorm.DB, facultyID *uint) ([]models.LecturerPerformance, error) {
	return nil, nil
}

func (d *memDashboard) RecentReports(ctx context.Context, tx *gorm.DB, facultyID *uint, limit int) ([]*models.Report, error) {
	return page(d.reportsOf(facultyID), limit, 0), nil
}

type memEvents struct{ s *memStore }

func (e *memEvents) Record(ctx context.Context, tx *gorm.DB, record *models.DomainEventRecord) error {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	e.s.events = append(e.s.events, record)
	return nil
}

// ===== Fixture =====

// fixture seeds one faculty with a course, a class taught by a lecturer and an enrolled student
type fixture struct {
	store     *memStore
	repo      *memRepo
	logger    *slog.Logger
	validator *validator.Validator
	hasher    auth.PasswordHasher
	publisher *events.MockEventPublisher

	faculty  *models.Faculty
	course   *models.Course
	class    *models.Class
	admin    *models.User
	pl       *models.User
	prl      *models.User
	lecturer *models.User
	student  *models.User
	outsider *models.User
}

var fixedNow = time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)

func newFixture() *fixture {
	store := newMemStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		store:     store,
		repo:      &memRepo{s: store},
		logger:    logger,
		validator: validator.New(validator.WithClock(func() time.Time { return fixedNow })),
		hasher:    auth.NewBcryptHasher(bcrypt.MinCost),
		publisher: events.NewMockEventPublisher(logger),
	}

	ctx := context.Background()
	f.faculty = &models.Faculty{Name: "Faculty of ICT", Code: "FICT"}
	_ = f.repo.Faculty().Create(ctx, nil, f.faculty)
	other := &models.Faculty{Name: "Faculty of Design", Code: "FDI"}
	_ = f.repo.Faculty().Create(ctx, nil, other)

	f.admin = f.addUser("admin@luct.test", models.RoleAdmin, nil)
	f.pl = f.addUser("pl@luct.test", models.RolePL, &f.faculty.ID)
	f.prl = f.addUser("prl@luct.test", models.RolePRL, &f.faculty.ID)
	f.lecturer = f.addUser("lecturer@luct.test", models.RoleLecturer, &f.faculty.ID)
	f.student = f.addUser("student@luct.test", models.RoleStudent, &f.faculty.ID)
	f.outsider = f.addUser("prl2@luct.test", models.RolePRL, &other.ID)

	f.course = &models.Course{Code: "DIT101", Name: "Intro to IT", FacultyID: f.faculty.ID}
	_ = f.repo.Course().Create(ctx, nil, f.course)

	f.class = &models.Class{
		ClassCode:       "BSCSEM1-A",
		CourseID:        f.course.ID,
		LecturerID:      &f.lecturer.ID,
		Venue:           "Hall 6",
		ScheduledTime:   "Mon 08:30",
		TotalRegistered: 40,
	}
	_ = f.repo.Class().Create(ctx, nil, f.class)
	_, _ = f.repo.Class().Enroll(ctx, nil, f.class.ID, f.student.ID)

	return f
}

func (f *fixture) addUser(email string, role models.UserRole, facultyID *uint) *models.User {
	hash, _ := f.hasher.Hash("password1")
	u := &models.User{FullName: strings.Split(email, "@")[0], Email: email, PasswordHash: hash, Role: role, FacultyID: facultyID, IsActive: true}
	_ = f.repo.User().Create(context.Background(), nil, u)
	return u
}

func actorOf(u *models.User) Actor { return ActorFromUser(u) }

func intPtr(i int) *int       { return &i }
func uintPtr(u uint) *uint    { return &u }
func strPtr(s string) *string { return &s }
