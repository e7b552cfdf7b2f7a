package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/attendance/core/alert"
)

type alertRepository struct {
	db *alertTable
}

var _ alert.Repository = (*alertRepository)(nil)

func NewAlertRepository(db *DB) alert.Repository {
	return &alertRepository{db: db.alert}
}

func (repo *alertRepository) CreateAlert(_ context.Context, a alert.Alert) (alert.Alert, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.table[a.ID] = &a
	return a, nil
}

func (repo *alertRepository) UpdateAlert(_ context.Context, a alert.Alert) (alert.Alert, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[a.ID]; !ok {
		return alert.Alert{}, alert.ErrNotFound
	}
	repo.db.table[a.ID] = &a
	return a, nil
}

func (repo *alertRepository) QueryAlerts(_ context.Context, filter alert.Filter) ([]alert.Alert, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	alerts := make([]alert.Alert, 0)
	for _, a := range repo.db.table {
		if filter.Matches(*a) {
			alerts = append(alerts, *a)
		}
	}
	sort.Slice(alerts, func(i, j int) bool {
		if !alerts[i].CreatedAt.Equal(alerts[j].CreatedAt) {
			return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
		}
		return alerts[i].ID < alerts[j].ID
	})
	return alerts, nil
}
