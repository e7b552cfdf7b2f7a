// Package sqlxrepos implements the repositories on PostgreSQL with sqlx.
package sqlxrepos

import (
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// where accumulates AND-ed conditions written with `?` placeholders.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

// bind appends the conditions and suffix to query, rebound for db.
func (w *where) bind(db *sqlx.DB, query, suffix string) (string, []interface{}) {
	if len(w.conds) > 0 {
		query += " WHERE " + strings.Join(w.conds, " AND ")
	}
	return db.Rebind(query + suffix), w.args
}

func likeArg(s string) string { return "%" + s + "%" }

// trapNoRowsErr maps "no rows" to notFound.
func trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// validID reports whether id can be compared against a UUID column.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Repositories bundles every repository backed by db.
type Repositories struct {
	Users      *userRepository
	Classes    *classRepository
	Students   *studentRepository
	Attendance *attendanceRepository
	Alerts     *alertRepository
}

func NewRepositories(db *sqlx.DB) Repositories {
	return Repositories{
		Users:      NewUserRepository(db),
		Classes:    NewClassRepository(db),
		Students:   NewStudentRepository(db),
		Attendance: NewAttendanceRepository(db),
		Alerts:     NewAlertRepository(db),
	}
}
