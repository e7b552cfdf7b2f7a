package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/class"
)

const classColumns = "id, name, subject, code, teacher_id, teacher_name, grade, room, max_students, school_year, created_at, updated_at"

var classOrderColumns = map[string]string{
	"name":       "name",
	"code":       "code",
	"grade":      "grade",
	"created_at": "created_at",
}

type classRepository struct {
	db *sqlx.DB
}

var _ class.Repository = (*classRepository)(nil)

func NewClassRepository(db *sqlx.DB) *classRepository {
	return &classRepository{db: db}
}

// uniqueViolation reports whether err is a PostgreSQL unique constraint violation.
func uniqueViolation(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == "23505"
}

func (repo *classRepository) CreateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	q := `INSERT INTO classes (` + classColumns + `)
		VALUES (:id, :name, :subject, :code, :teacher_id, :teacher_name, :grade, :room, :max_students, :school_year, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, cls); err != nil {
		if uniqueViolation(err) {
			return class.Class{}, class.ErrCodeExists
		}
		return class.Class{}, errors.Wrap(err, "inserting class")
	}
	return cls, nil
}

func (repo *classRepository) GetClass(ctx context.Context, id string) (class.Class, error) {
	if !validID(id) {
		return class.Class{}, class.ErrNotFound
	}
	var cls class.Class
	if err := repo.db.GetContext(ctx, &cls, "SELECT "+classColumns+" FROM classes WHERE id = $1", id); err != nil {
		return class.Class{}, trapNoRowsErr(err, class.ErrNotFound, "finding class")
	}
	return cls, nil
}

func (repo *classRepository) GetClassByCode(ctx context.Context, code string) (class.Class, error) {
	var cls class.Class
	if err := repo.db.GetContext(ctx, &cls, "SELECT "+classColumns+" FROM classes WHERE code = $1", code); err != nil {
		return class.Class{}, trapNoRowsErr(err, class.ErrNotFound, "finding class by code")
	}
	return cls, nil
}

func (repo *classRepository) QueryClasses(ctx context.Context, filter class.QueryFilter, orderings []core.DBOrdering) ([]class.Class, error) {
	var w where
	if filter.Search != "" {
		val := likeArg(filter.Search)
		w.add("(name ILIKE ? OR subject ILIKE ? OR code ILIKE ?)", val, val, val)
	}
	if filter.TeacherID != "" {
		if !validID(filter.TeacherID) {
			return []class.Class{}, nil
		}
		w.add("teacher_id = ?", filter.TeacherID)
	}
	if filter.Grade != 0 {
		w.add("grade = ?", filter.Grade)
	}
	q, args := w.bind(repo.db, "SELECT "+classColumns+" FROM classes", core.OrderByClause(orderings, classOrderColumns, "name ASC"))

	classes := []class.Class{}
	if err := repo.db.SelectContext(ctx, &classes, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	return classes, nil
}

func (repo *classRepository) UpdateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	q := `UPDATE classes SET name = :name, subject = :subject, code = :code, teacher_id = :teacher_id,
		teacher_name = :teacher_name, grade = :grade, room = :room, max_students = :max_students,
		school_year = :school_year, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, cls)
	if err != nil {
		if uniqueViolation(err) {
			return class.Class{}, class.ErrCodeExists
		}
		return class.Class{}, errors.Wrap(err, "updating class")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return class.Class{}, class.ErrNotFound
	}
	return cls, nil
}
