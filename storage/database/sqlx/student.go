package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/student"
)

const studentColumns = `id, student_number, first_name, last_name, grade, date_of_birth, email, phone,
	parent_email, parent_phone, class_id, notes, is_active, created_at, updated_at`

var studentOrderColumns = map[string]string{
	"student_id": "student_number",
	"first_name": "first_name",
	"last_name":  "last_name",
	"grade":      "grade",
	"created_at": "created_at",
}

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *sqlx.DB) *studentRepository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) CreateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	q := `INSERT INTO students (` + studentColumns + `)
		VALUES (:id, :student_number, :first_name, :last_name, :grade, :date_of_birth, :email, :phone,
		:parent_email, :parent_phone, :class_id, :notes, :is_active, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, s); err != nil {
		if uniqueViolation(err) {
			return student.Student{}, student.ErrNumberExists
		}
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return s, nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, id string) (student.Student, error) {
	if !validID(id) {
		return student.Student{}, student.ErrNotFound
	}
	var s student.Student
	if err := repo.db.GetContext(ctx, &s, "SELECT "+studentColumns+" FROM students WHERE id = $1", id); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "finding student")
	}
	return s, nil
}

func (repo *studentRepository) GetStudentByNumber(ctx context.Context, number string) (student.Student, error) {
	var s student.Student
	if err := repo.db.GetContext(ctx, &s, "SELECT "+studentColumns+" FROM students WHERE student_number = $1", number); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "finding student by number")
	}
	return s, nil
}

func (repo *studentRepository) QueryStudents(ctx context.Context, filter student.QueryFilter, orderings []core.DBOrdering) ([]student.Student, error) {
	var w where
	if filter.Search != "" {
		val := likeArg(filter.Search)
		w.add("(first_name || ' ' || last_name ILIKE ? OR student_number ILIKE ?)", val, val)
	}
	if filter.Grade != 0 {
		w.add("grade = ?", filter.Grade)
	}
	if filter.ClassID != "" {
		if !validID(filter.ClassID) {
			return []student.Student{}, nil
		}
		w.add("class_id = ?", filter.ClassID)
	}
	if filter.IsActive != nil {
		w.add("is_active = ?", *filter.IsActive)
	}
	order := core.OrderByClause(orderings, studentOrderColumns, "last_name ASC, first_name ASC")
	q, args := w.bind(repo.db, "SELECT "+studentColumns+" FROM students", order)

	students := []student.Student{}
	if err := repo.db.SelectContext(ctx, &students, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return students, nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	q := `UPDATE students SET student_number = :student_number, first_name = :first_name, last_name = :last_name,
		grade = :grade, date_of_birth = :date_of_birth, email = :email, phone = :phone,
		parent_email = :parent_email, parent_phone = :parent_phone, class_id = :class_id, notes = :notes,
		is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, s)
	if err != nil {
		if uniqueViolation(err) {
			return student.Student{}, student.ErrNumberExists
		}
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return s, nil
}

func (repo *studentRepository) DeleteStudent(ctx context.Context, id string) error {
	if !validID(id) {
		return nil
	}
	if _, err := repo.db.ExecContext(ctx, "DELETE FROM students WHERE id = $1", id); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return nil
}

func (repo *studentRepository) CountByClass(ctx context.Context, classID string) (int, error) {
	if !validID(classID) {
		return 0, nil
	}
	var n int
	q := "SELECT COUNT(*) FROM students WHERE class_id = $1 AND is_active"
	if err := repo.db.GetContext(ctx, &n, q, classID); err != nil {
		return 0, errors.Wrap(err, "counting class students")
	}
	return n, nil
}
