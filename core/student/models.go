package student

import (
	"strings"
	"time"

	"github.com/trezcool/attendance/core"
)

type Student struct {
	ID            string     `json:"id" db:"id"`
	StudentNumber string     `json:"student_id" db:"student_number"`
	FirstName     string     `json:"first_name" db:"first_name"`
	LastName      string     `json:"last_name" db:"last_name"`
	Grade         int        `json:"grade" db:"grade"`
	DateOfBirth   *core.Date `json:"date_of_birth" db:"date_of_birth"`
	Email         string     `json:"email" db:"email"`
	Phone         string     `json:"phone" db:"phone"`
	ParentEmail   string     `json:"parent_email" db:"parent_email"`
	ParentPhone   string     `json:"parent_phone" db:"parent_phone"`
	ClassID       *string    `json:"class_id" db:"class_id"`
	Notes         string     `json:"notes" db:"notes"`
	IsActive      bool       `json:"is_active" db:"is_active"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

func (s Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

// InClass reports whether the student is enrolled in the given class.
func (s Student) InClass(classID string) bool {
	return s.ClassID != nil && *s.ClassID == classID
}

type NewStudent struct {
	StudentNumber string `json:"student_id" validate:"required,alphanum_,max=20"`
	FirstName     string `json:"first_name" validate:"required,notblank,max=100"`
	LastName      string `json:"last_name" validate:"required,notblank,max=100"`
	Grade         int    `json:"grade" validate:"required,min=1,max=12"`
	DateOfBirth   string `json:"date_of_birth" validate:"isodate"`
	Email         string `json:"email" validate:"omitempty,email"`
	Phone         string `json:"phone"`
	ParentEmail   string `json:"parent_email" validate:"omitempty,email"`
	ParentPhone   string `json:"parent_phone"`
	ClassID       string `json:"class_id" validate:"omitempty,uuid"`
	Notes         string `json:"notes"`
}

func (ns *NewStudent) Clean() {
	ns.StudentNumber = strings.ToUpper(core.CleanString(ns.StudentNumber))
	ns.FirstName = strings.Title(core.CleanString(ns.FirstName, true /* lower */))
	ns.LastName = strings.Title(core.CleanString(ns.LastName, true /* lower */))
	ns.DateOfBirth = core.CleanString(ns.DateOfBirth)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Phone = core.CleanString(ns.Phone)
	ns.ParentEmail = core.CleanString(ns.ParentEmail, true /* lower */)
	ns.ParentPhone = core.CleanString(ns.ParentPhone)
	ns.ClassID = core.CleanString(ns.ClassID)
	ns.Notes = core.CleanString(ns.Notes)
}

// UpdateStudent only changes the provided fields.
type UpdateStudent struct {
	FirstName   *string `json:"first_name" validate:"omitempty,notblank,max=100"`
	LastName    *string `json:"last_name" validate:"omitempty,notblank,max=100"`
	Grade       *int    `json:"grade" validate:"omitempty,min=1,max=12"`
	DateOfBirth *string `json:"date_of_birth" validate:"omitempty,isodate"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Phone       *string `json:"phone"`
	ParentEmail *string `json:"parent_email" validate:"omitempty,email"`
	ParentPhone *string `json:"parent_phone"`
	Notes       *string `json:"notes"`
	IsActive    *bool   `json:"is_active"`
}

type QueryFilter struct {
	Search   string `query:"search"`
	Grade    int    `query:"grade"`
	ClassID  string `query:"class_id"`
	IsActive *bool  `query:"is_active"`
}
