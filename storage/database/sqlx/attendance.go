package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core/attendance"
)

const recordColumns = "id, student_id, class_id, date, status, notes, marked_by, marked_at"

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *sqlx.DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) UpsertRecord(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	q := `INSERT INTO attendance_records (` + recordColumns + `)
		VALUES (:id, :student_id, :class_id, :date, :status, :notes, :marked_by, :marked_at)
		ON CONFLICT (student_id, class_id, date) DO UPDATE
		SET status = EXCLUDED.status, notes = EXCLUDED.notes, marked_by = EXCLUDED.marked_by, marked_at = EXCLUDED.marked_at
		RETURNING ` + recordColumns
	rows, err := repo.db.NamedQueryContext(ctx, q, rec)
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "upserting record")
	}
	defer func() { _ = rows.Close() }()

	var saved attendance.Record
	if !rows.Next() {
		return attendance.Record{}, errors.New("upserting record: no row returned")
	}
	if err := rows.StructScan(&saved); err != nil {
		return attendance.Record{}, errors.Wrap(err, "scanning record")
	}
	return saved, rows.Err()
}

func (repo *attendanceRepository) GetRecord(ctx context.Context, id string) (attendance.Record, error) {
	if !validID(id) {
		return attendance.Record{}, attendance.ErrNotFound
	}
	var rec attendance.Record
	if err := repo.db.GetContext(ctx, &rec, "SELECT "+recordColumns+" FROM attendance_records WHERE id = $1", id); err != nil {
		return attendance.Record{}, trapNoRowsErr(err, attendance.ErrNotFound, "finding record")
	}
	return rec, nil
}

func (repo *attendanceRepository) UpdateRecord(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	q := `UPDATE attendance_records SET status = :status, notes = :notes, marked_by = :marked_by, marked_at = :marked_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, rec)
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "updating record")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return attendance.Record{}, attendance.ErrNotFound
	}
	return rec, nil
}

func (repo *attendanceRepository) QueryRecords(ctx context.Context, filter attendance.Filter) ([]attendance.Record, error) {
	var w where
	if len(filter.StudentIDs) > 0 {
		w.add("student_id::text = ANY(?)", pq.Array(filter.StudentIDs))
	}
	if filter.ClassID != "" {
		if !validID(filter.ClassID) {
			return []attendance.Record{}, nil
		}
		w.add("class_id = ?", filter.ClassID)
	}
	if filter.Status != "" {
		w.add("status = ?", filter.Status)
	}
	if !filter.From.IsZero() {
		w.add("date >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		w.add("date <= ?", filter.To)
	}
	q, args := w.bind(repo.db, "SELECT "+recordColumns+" FROM attendance_records", " ORDER BY date ASC, marked_at ASC, id ASC")

	recs := []attendance.Record{}
	if err := repo.db.SelectContext(ctx, &recs, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying records")
	}
	return recs, nil
}
