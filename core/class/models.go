package class

import (
	"strings"
	"time"

	"github.com/trezcool/attendance/core"
)

type Class struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Subject     string    `json:"subject" db:"subject"`
	Code        string    `json:"code" db:"code"`
	TeacherID   *string   `json:"teacher_id" db:"teacher_id"`
	TeacherName string    `json:"teacher_name" db:"teacher_name"`
	Grade       int       `json:"grade" db:"grade"`
	Room        string    `json:"room" db:"room"`
	MaxStudents int       `json:"max_students" db:"max_students"`
	SchoolYear  string    `json:"school_year" db:"school_year"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// TaughtBy reports whether the class is assigned to the given teacher.
func (c Class) TaughtBy(userID string) bool {
	return c.TeacherID != nil && *c.TeacherID == userID
}

type NewClass struct {
	Name        string `json:"name" validate:"required,notblank"`
	Subject     string `json:"subject" validate:"required,notblank"`
	Code        string `json:"code" validate:"required,alphanum_"`
	TeacherID   string `json:"teacher_id" validate:"omitempty,uuid"`
	TeacherName string `json:"teacher_name"`
	Grade       int    `json:"grade" validate:"required,min=1,max=12"`
	Room        string `json:"room"`
	MaxStudents int    `json:"max_students" validate:"omitempty,min=1,max=100"`
	SchoolYear  string `json:"school_year"`
}

func (nc *NewClass) Clean() {
	nc.Name = core.CleanString(nc.Name)
	nc.Subject = core.CleanString(nc.Subject)
	nc.Code = strings.ToUpper(core.CleanString(nc.Code))
	nc.TeacherID = core.CleanString(nc.TeacherID)
	nc.TeacherName = core.CleanString(nc.TeacherName)
	nc.Room = core.CleanString(nc.Room)
	nc.SchoolYear = core.CleanString(nc.SchoolYear)
	if nc.MaxStudents == 0 {
		nc.MaxStudents = DefaultMaxStudents
	}
}

type UpdateClass struct {
	Name        *string `json:"name" validate:"omitempty,notblank"`
	Subject     *string `json:"subject" validate:"omitempty,notblank"`
	TeacherID   *string `json:"teacher_id" validate:"omitempty,uuid"`
	TeacherName *string `json:"teacher_name"`
	Grade       *int    `json:"grade" validate:"omitempty,min=1,max=12"`
	Room        *string `json:"room"`
	MaxStudents *int    `json:"max_students" validate:"omitempty,min=1,max=100"`
	SchoolYear  *string `json:"school_year"`
}

type QueryFilter struct {
	Search    string `query:"search"`
	TeacherID string `query:"teacher_id"`
	Grade     int    `query:"grade"`
}
