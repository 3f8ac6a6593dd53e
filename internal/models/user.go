package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string
type Role = UserRole

const (
	RoleStudent  UserRole = "student"
	RoleLecturer UserRole = "lecturer"
	RolePRL      UserRole = "prl" // principal lecturer
	RolePL       UserRole = "pl"  // program leader
	RoleAdmin    UserRole = "admin"
)

// AllRoles lists every role in privilege order
var AllRoles = []UserRole{RoleStudent, RoleLecturer, RolePRL, RolePL, RoleAdmin}

func (r UserRole) IsValid() bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// IsReviewer reports whether the role may give feedback on reports
func (r UserRole) IsReviewer() bool {
	return r == RolePRL || r == RolePL || r == RoleAdmin
}

type User struct {
	ID           uint     `json:"id" gorm:"primaryKey"`
	FullName     string   `json:"full_name" gorm:"not null;size:100"`
	Email        string   `json:"email" gorm:"uniqueIndex;not null;size:255"`
	PasswordHash string   `json:"-" gorm:"not null;size:255"`
	Role         UserRole `json:"role" gorm:"not null;size:20;index"`

	FacultyID     *uint    `json:"faculty_id,omitempty" gorm:"index"`
	Faculty       *Faculty `json:"faculty,omitempty" gorm:"foreignKey:FacultyID"`
	StudentNumber *string  `json:"student_number,omitempty" gorm:"size:50;uniqueIndex"`

	// Status
	IsActive    bool       `json:"is_active" gorm:"not null;default:true"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}

// UserSummary is the embedded form of a user in other resources
type UserSummary struct {
	ID       uint     `json:"id"`
	FullName string   `json:"full_name"`
	Email    string   `json:"email"`
	Role     UserRole `json:"role"`
}

func (u *User) Summary() *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{ID: u.ID, FullName: u.FullName, Email: u.Email, Role: u.Role}
}
