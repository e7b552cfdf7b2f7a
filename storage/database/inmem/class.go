package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/class"
)

type classRepository struct {
	db *classTable
}

var _ class.Repository = (*classRepository)(nil)

func NewClassRepository(db *DB) class.Repository {
	return &classRepository{db: db.class}
}

func (repo *classRepository) CreateClass(_ context.Context, cls class.Class) (class.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, c := range repo.db.table {
		if c.Code == cls.Code {
			return class.Class{}, class.ErrCodeExists
		}
	}
	repo.db.table[cls.ID] = &cls
	return cls, nil
}

func (repo *classRepository) GetClass(_ context.Context, id string) (class.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if cls, ok := repo.db.table[id]; ok {
		return *cls, nil
	}
	return class.Class{}, class.ErrNotFound
}

func (repo *classRepository) GetClassByCode(_ context.Context, code string) (class.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, cls := range repo.db.table {
		if cls.Code == code {
			return *cls, nil
		}
	}
	return class.Class{}, class.ErrNotFound
}

func (repo *classRepository) QueryClasses(_ context.Context, filter class.QueryFilter, _ []core.DBOrdering) ([]class.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	classes := make([]class.Class, 0, len(repo.db.table))
	for _, cls := range repo.db.table {
		if filter.Search != "" && !containsFold(cls.Name, filter.Search) &&
			!containsFold(cls.Subject, filter.Search) && !containsFold(cls.Code, filter.Search) {
			continue
		}
		if filter.TeacherID != "" && !cls.TaughtBy(filter.TeacherID) {
			continue
		}
		if filter.Grade != 0 && cls.Grade != filter.Grade {
			continue
		}
		classes = append(classes, *cls)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })
	return classes, nil
}

func (repo *classRepository) UpdateClass(_ context.Context, cls class.Class) (class.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[cls.ID]; !ok {
		return class.Class{}, class.ErrNotFound
	}
	for id, c := range repo.db.table {
		if id != cls.ID && c.Code == cls.Code {
			return class.Class{}, class.ErrCodeExists
		}
	}
	repo.db.table[cls.ID] = &cls
	return cls, nil
}
