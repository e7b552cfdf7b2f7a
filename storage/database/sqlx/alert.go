package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core/alert"
)

const alertColumns = `id, student_id, student_name, type, message, parent_email, created_by, created_by_name,
	method, status, auto_generated, created_at, sent_at`

type alertRepository struct {
	db *sqlx.DB
}

var _ alert.Repository = (*alertRepository)(nil)

func NewAlertRepository(db *sqlx.DB) *alertRepository {
	return &alertRepository{db: db}
}

func (repo *alertRepository) CreateAlert(ctx context.Context, a alert.Alert) (alert.Alert, error) {
	q := `INSERT INTO alerts (` + alertColumns + `)
		VALUES (:id, :student_id, :student_name, :type, :message, :parent_email, :created_by, :created_by_name,
		:method, :status, :auto_generated, :created_at, :sent_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, a); err != nil {
		return alert.Alert{}, errors.Wrap(err, "inserting alert")
	}
	return a, nil
}

func (repo *alertRepository) UpdateAlert(ctx context.Context, a alert.Alert) (alert.Alert, error) {
	q := `UPDATE alerts SET message = :message, status = :status, sent_at = :sent_at WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, a)
	if err != nil {
		return alert.Alert{}, errors.Wrap(err, "updating alert")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return alert.Alert{}, alert.ErrNotFound
	}
	return a, nil
}

func (repo *alertRepository) QueryAlerts(ctx context.Context, filter alert.Filter) ([]alert.Alert, error) {
	var w where
	if filter.StudentID != "" {
		if !validID(filter.StudentID) {
			return []alert.Alert{}, nil
		}
		w.add("student_id = ?", filter.StudentID)
	}
	if filter.Type != "" {
		w.add("type = ?", filter.Type)
	}
	if filter.Status != "" {
		w.add("status = ?", filter.Status)
	}
	if !filter.Since.IsZero() {
		w.add("created_at >= ?", filter.Since.UTC())
	}
	q, args := w.bind(repo.db, "SELECT "+alertColumns+" FROM alerts", " ORDER BY created_at DESC, id ASC")

	alerts := []alert.Alert{}
	if err := repo.db.SelectContext(ctx, &alerts, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying alerts")
	}
	return alerts, nil
}
