package models

import (
	"math"
	"testing"
)

func TestAttendanceRate(t *testing.T) {
	tests := []struct {
		present, registered int
		want                float64
	}{
		{30, 40, 75},
		{0, 40, 0},
		{40, 40, 100},
		{5, 0, 0},
	}
	for _, tt := range tests {
		if got := AttendanceRate(tt.present, tt.registered); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("AttendanceRate(%d, %d) = %v, want %v", tt.present, tt.registered, got, tt.want)
		}
	}
}

func TestUserRole(t *testing.T) {
	for _, r := range AllRoles {
		if !r.IsValid() {
			t.Errorf("%s should be valid", r)
		}
	}
	if UserRole("teacher").IsValid() {
		t.Error("teacher is not a role")
	}
	if RoleLecturer.IsReviewer() || RoleStudent.IsReviewer() {
		t.Error("students and lecturers do not review")
	}
	if !RolePRL.IsReviewer() || !RolePL.IsReviewer() || !RoleAdmin.IsReviewer() {
		t.Error("prl, pl and admin review")
	}
}

func TestNormalize(t *testing.T) {
	page, size, offset := Normalize(0, 0)
	if page != 1 || size != 20 || offset != 0 {
		t.Errorf("Normalize(0,0) = %d,%d,%d", page, size, offset)
	}
	page, size, offset = Normalize(3, 500)
	if page != 3 || size != 100 || offset != 200 {
		t.Errorf("Normalize(3,500) = %d,%d,%d", page, size, offset)
	}
}

func TestNewPaginatedResponse(t *testing.T) {
	resp := NewPaginatedResponse([]int{1, 2}, 45, 3, 20, 5)
	if resp.TotalPages != 3 {
		t.Errorf("TotalPages = %d, want 3", resp.TotalPages)
	}
	if resp.First || !resp.Last {
		t.Errorf("First=%v Last=%v, want false/true", resp.First, resp.Last)
	}

	empty := NewPaginatedResponse([]int{}, 0, 1, 20, 0)
	if !empty.Empty || !empty.First || !empty.Last {
		t.Errorf("empty page flags wrong: %+v", empty)
	}
}

func TestReportEditable(t *testing.T) {
	r := &Report{Status: ReportPending}
	if !r.Editable() {
		t.Error("pending report should be editable")
	}
	r.Status = ReportReviewed
	if r.Editable() {
		t.Error("reviewed report should be locked")
	}
}
