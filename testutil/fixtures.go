// Package testutil holds fixtures shared by the package tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/class"
	"github.com/trezcool/attendance/core/student"
	"github.com/trezcool/attendance/core/user"
	"github.com/trezcool/attendance/storage/database/inmem"
)

// Env is an in-memory database with the services built on top of it.
type Env struct {
	DB         *inmemdb.DB
	Repos      inmemdb.Repositories
	Classes    *class.Service
	Students   *student.Service
	Attendance *attendance.Service
}

func NewEnv() *Env {
	db := inmemdb.Open()
	repos := db.Repositories()
	return &Env{
		DB:         db,
		Repos:      repos,
		Classes:    class.NewService(repos.Classes),
		Students:   student.NewService(repos.Students, repos.Classes),
		Attendance: attendance.NewService(repos.Attendance, repos.Students, repos.Classes),
	}
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	if roles == nil {
		roles = []string{}
	}
	usr := user.User{
		ID:        uuid.NewString(),
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateClass stores cls, filling the ID, code and timestamps when empty.
func CreateClass(t *testing.T, repo class.Repository, cls class.Class) class.Class {
	t.Helper()
	if cls.ID == "" {
		cls.ID = uuid.NewString()
	}
	if cls.Code == "" {
		cls.Code = "C" + cls.ID[:8]
	}
	if cls.MaxStudents == 0 {
		cls.MaxStudents = class.DefaultMaxStudents
	}
	if cls.CreatedAt.IsZero() {
		cls.CreatedAt = time.Now().UTC()
		cls.UpdatedAt = cls.CreatedAt
	}
	cls, err := repo.CreateClass(context.Background(), cls)
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return cls
}

// CreateStudent stores an active student, filling the ID, number and timestamps when empty.
func CreateStudent(t *testing.T, repo student.Repository, s student.Student) student.Student {
	t.Helper()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.StudentNumber == "" {
		s.StudentNumber = "S" + s.ID[:8]
	}
	if s.Grade == 0 {
		s.Grade = 10
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
		s.UpdatedAt = s.CreatedAt
	}
	s.IsActive = true
	s, err := repo.CreateStudent(context.Background(), s)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return s
}

// Mark stores one record per status on consecutive days starting at from.
func Mark(t *testing.T, repo attendance.Repository, studentID, classID string, from core.Date, statuses ...attendance.Status) []attendance.Record {
	t.Helper()
	out := make([]attendance.Record, 0, len(statuses))
	for i, st := range statuses {
		rec, err := repo.UpsertRecord(context.Background(), attendance.Record{
			ID:        uuid.NewString(),
			StudentID: studentID,
			ClassID:   classID,
			Date:      from.AddDays(i),
			Status:    st,
			MarkedAt:  time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("Mark() failed: %v", err)
		}
		out = append(out, rec)
	}
	return out
}

// Repeat returns n copies of status.
func Repeat(status attendance.Status, n int) []attendance.Status {
	out := make([]attendance.Status, n)
	for i := range out {
		out[i] = status
	}
	return out
}

// Fixed returns a clock stuck at t.
func Fixed(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
