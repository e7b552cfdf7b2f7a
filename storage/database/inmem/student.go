package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/student"
)

type studentRepository struct {
	db *studentTable
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db.student}
}

func (repo *studentRepository) CreateStudent(_ context.Context, s student.Student) (student.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, std := range repo.db.table {
		if std.StudentNumber == s.StudentNumber {
			return student.Student{}, student.ErrNumberExists
		}
	}
	repo.db.table[s.ID] = &s
	return s, nil
}

func (repo *studentRepository) GetStudent(_ context.Context, id string) (student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.table[id]; ok {
		return *s, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) GetStudentByNumber(_ context.Context, number string) (student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, s := range repo.db.table {
		if s.StudentNumber == number {
			return *s, nil
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) QueryStudents(_ context.Context, filter student.QueryFilter, _ []core.DBOrdering) ([]student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	students := make([]student.Student, 0, len(repo.db.table))
	for _, s := range repo.db.table {
		if filter.Search != "" && !containsFold(s.FullName(), filter.Search) && !containsFold(s.StudentNumber, filter.Search) {
			continue
		}
		if filter.Grade != 0 && s.Grade != filter.Grade {
			continue
		}
		if filter.ClassID != "" && !s.InClass(filter.ClassID) {
			continue
		}
		if filter.IsActive != nil && s.IsActive != *filter.IsActive {
			continue
		}
		students = append(students, *s)
	}
	sort.Slice(students, func(i, j int) bool {
		if students[i].LastName != students[j].LastName {
			return students[i].LastName < students[j].LastName
		}
		return students[i].FirstName < students[j].FirstName
	})
	return students, nil
}

func (repo *studentRepository) UpdateStudent(_ context.Context, s student.Student) (student.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[s.ID]; !ok {
		return student.Student{}, student.ErrNotFound
	}
	for id, std := range repo.db.table {
		if id != s.ID && std.StudentNumber == s.StudentNumber {
			return student.Student{}, student.ErrNumberExists
		}
	}
	repo.db.table[s.ID] = &s
	return s, nil
}

func (repo *studentRepository) DeleteStudent(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.table, id)
	return nil
}

func (repo *studentRepository) CountByClass(_ context.Context, classID string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var n int
	for _, s := range repo.db.table {
		if s.IsActive && s.InClass(classID) {
			n++
		}
	}
	return n, nil
}
