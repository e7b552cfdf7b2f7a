// Package inmemdb holds map-backed repositories used by tests.
package inmemdb

import (
	"strings"
	"sync"

	"github.com/trezcool/attendance/core/alert"
	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/class"
	"github.com/trezcool/attendance/core/student"
	"github.com/trezcool/attendance/core/user"
)

type (
	DB struct {
		user       *userTable
		class      *classTable
		student    *studentTable
		attendance *attendanceTable
		alert      *alertTable
	}

	userTable struct {
		mutex sync.RWMutex
		table map[string]*user.User
	}

	classTable struct {
		mutex sync.RWMutex
		table map[string]*class.Class
	}

	studentTable struct {
		mutex sync.RWMutex
		table map[string]*student.Student
	}

	attendanceTable struct {
		mutex sync.RWMutex
		table map[string]*attendance.Record
	}

	alertTable struct {
		mutex sync.RWMutex
		table map[string]*alert.Alert
	}
)

func Open() *DB {
	return &DB{
		user:       &userTable{table: make(map[string]*user.User)},
		class:      &classTable{table: make(map[string]*class.Class)},
		student:    &studentTable{table: make(map[string]*student.Student)},
		attendance: &attendanceTable{table: make(map[string]*attendance.Record)},
		alert:      &alertTable{table: make(map[string]*alert.Alert)},
	}
}

// Repositories bundles every repository of db.
type Repositories struct {
	Users      user.Repository
	Classes    class.Repository
	Students   student.Repository
	Attendance attendance.Repository
	Alerts     alert.Repository
}

func (db *DB) Repositories() Repositories {
	return Repositories{
		Users:      NewUserRepository(db),
		Classes:    NewClassRepository(db),
		Students:   NewStudentRepository(db),
		Attendance: NewAttendanceRepository(db),
		Alerts:     NewAlertRepository(db),
	}
}

// containsFold is a case-insensitive strings.Contains, mirroring ILIKE '%sub%'.
func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
