package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/attendance/core/attendance"
)

type attendanceRepository struct {
	db *attendanceTable
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db.attendance}
}

func (repo *attendanceRepository) UpsertRecord(_ context.Context, rec attendance.Record) (attendance.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for id, r := range repo.db.table {
		if r.StudentID == rec.StudentID && r.ClassID == rec.ClassID && r.Date.Equal(rec.Date) {
			rec.ID = id
			break
		}
	}
	repo.db.table[rec.ID] = &rec
	return rec, nil
}

func (repo *attendanceRepository) GetRecord(_ context.Context, id string) (attendance.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if r, ok := repo.db.table[id]; ok {
		return *r, nil
	}
	return attendance.Record{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) UpdateRecord(_ context.Context, rec attendance.Record) (attendance.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[rec.ID]; !ok {
		return attendance.Record{}, attendance.ErrNotFound
	}
	repo.db.table[rec.ID] = &rec
	return rec, nil
}

func (repo *attendanceRepository) QueryRecords(_ context.Context, filter attendance.Filter) ([]attendance.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	recs := make([]attendance.Record, 0)
	for _, r := range repo.db.table {
		if filter.Matches(*r) {
			recs = append(recs, *r)
		}
	}
	sortRecords(recs)
	return recs, nil
}

// sortRecords orders by date, then marking time, so map iteration order never leaks.
func sortRecords(recs []attendance.Record) {
	sort.Slice(recs, func(i, j int) bool { return recordLess(recs[i], recs[j]) })
}

func recordLess(a, b attendance.Record) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.Before(b.Date)
	}
	if !a.MarkedAt.Equal(b.MarkedAt) {
		return a.MarkedAt.Before(b.MarkedAt)
	}
	return a.ID < b.ID
}
