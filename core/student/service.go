package student

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/class"
)

var (
	ErrNotFound     = core.NewNotFoundError("student")
	ErrNumberExists = errors.New("a student with this student ID already exists")
	ErrClassFull    = errors.New("class is at maximum capacity")
	ErrNotInClass   = errors.New("student is not enrolled in this class")
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, s Student) (Student, error)
		GetStudent(ctx context.Context, id string) (Student, error)
		GetStudentByNumber(ctx context.Context, number string) (Student, error)
		QueryStudents(ctx context.Context, filter QueryFilter, orderings []core.DBOrdering) ([]Student, error)
		UpdateStudent(ctx context.Context, s Student) (Student, error)
		DeleteStudent(ctx context.Context, id string) error
		CountByClass(ctx context.Context, classID string) (int, error)
	}

	Service struct {
		repo    Repository
		clsRepo class.Repository
	}
)

func NewService(repo Repository, clsRepo class.Repository) *Service {
	return &Service{repo: repo, clsRepo: clsRepo}
}

func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	ns.Clean()
	if err := core.Validate.Struct(ns); err != nil {
		return Student{}, err
	}
	if _, err := svc.repo.GetStudentByNumber(ctx, ns.StudentNumber); err == nil {
		return Student{}, core.NewValidationError(ErrNumberExists, core.FieldError{Field: "student_id", Error: ErrNumberExists.Error()})
	} else if !core.IsNotFound(err) {
		return Student{}, errors.Wrap(err, "checking student number")
	}

	now := time.Now().UTC()
	s := Student{
		ID:            uuid.NewString(),
		StudentNumber: ns.StudentNumber,
		FirstName:     ns.FirstName,
		LastName:      ns.LastName,
		Grade:         ns.Grade,
		Email:         ns.Email,
		Phone:         ns.Phone,
		ParentEmail:   ns.ParentEmail,
		ParentPhone:   ns.ParentPhone,
		Notes:         ns.Notes,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if ns.DateOfBirth != "" {
		dob, err := core.ParseDate(ns.DateOfBirth)
		if err != nil {
			return Student{}, core.NewValidationError(err, core.FieldError{Field: "date_of_birth", Error: err.Error()})
		}
		s.DateOfBirth = &dob
	}
	if ns.ClassID != "" {
		if err := svc.checkCapacity(ctx, ns.ClassID); err != nil {
			return Student{}, err
		}
		s.ClassID = &ns.ClassID
	}
	return svc.repo.CreateStudent(ctx, s)
}

func (svc *Service) Get(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, orderings []core.DBOrdering) ([]Student, error) {
	filter.Search = core.CleanString(filter.Search)
	return svc.repo.QueryStudents(ctx, filter, orderings)
}

// Active returns every active student.
func (svc *Service) Active(ctx context.Context) ([]Student, error) {
	active := true
	return svc.repo.QueryStudents(ctx, QueryFilter{IsActive: &active}, nil)
}

func (svc *Service) ByClass(ctx context.Context, classID string) ([]Student, error) {
	if _, err := svc.clsRepo.GetClass(ctx, classID); err != nil {
		return nil, err
	}
	active := true
	return svc.repo.QueryStudents(ctx, QueryFilter{ClassID: classID, IsActive: &active}, nil)
}

func (svc *Service) Update(ctx context.Context, id string, us UpdateStudent) (Student, error) {
	if err := core.Validate.Struct(us); err != nil {
		return Student{}, err
	}
	s, err := svc.repo.GetStudent(ctx, id)
	if err != nil {
		return Student{}, err
	}

	if us.FirstName != nil {
		s.FirstName = strings.Title(core.CleanString(*us.FirstName, true /* lower */))
	}
	if us.LastName != nil {
		s.LastName = strings.Title(core.CleanString(*us.LastName, true /* lower */))
	}
	if us.Grade != nil {
		s.Grade = *us.Grade
	}
	if us.DateOfBirth != nil {
		if *us.DateOfBirth == "" {
			s.DateOfBirth = nil
		} else {
			dob, err := core.ParseDate(*us.DateOfBirth)
			if err != nil {
				return Student{}, core.NewValidationError(err, core.FieldError{Field: "date_of_birth", Error: err.Error()})
			}
			s.DateOfBirth = &dob
		}
	}
	if us.Email != nil {
		s.Email = core.CleanString(*us.Email, true /* lower */)
	}
	if us.Phone != nil {
		s.Phone = core.CleanString(*us.Phone)
	}
	if us.ParentEmail != nil {
		s.ParentEmail = core.CleanString(*us.ParentEmail, true /* lower */)
	}
	if us.ParentPhone != nil {
		s.ParentPhone = core.CleanString(*us.ParentPhone)
	}
	if us.Notes != nil {
		s.Notes = core.CleanString(*us.Notes)
	}
	if us.IsActive != nil {
		s.IsActive = *us.IsActive
	}
	s.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStudent(ctx, s)
}

// Delete deactivates the student, attendance history is kept.
func (svc *Service) Delete(ctx context.Context, id string) error {
	s, err := svc.repo.GetStudent(ctx, id)
	if err != nil {
		return err
	}
	s.IsActive = false
	s.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateStudent(ctx, s)
	return err
}

// Enroll moves the student into the class, respecting the class capacity.
func (svc *Service) Enroll(ctx context.Context, classID, studentID string) (Student, error) {
	s, err := svc.repo.GetStudent(ctx, studentID)
	if err != nil {
		return Student{}, err
	}
	if s.InClass(classID) {
		return s, nil
	}
	if err := svc.checkCapacity(ctx, classID); err != nil {
		return Student{}, err
	}
	s.ClassID = &classID
	s.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStudent(ctx, s)
}

func (svc *Service) Unenroll(ctx context.Context, classID, studentID string) error {
	s, err := svc.repo.GetStudent(ctx, studentID)
	if err != nil {
		return err
	}
	if !s.InClass(classID) {
		return core.NewValidationError(ErrNotInClass)
	}
	s.ClassID = nil
	s.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateStudent(ctx, s)
	return err
}

func (svc *Service) checkCapacity(ctx context.Context, classID string) error {
	cls, err := svc.clsRepo.GetClass(ctx, classID)
	if err != nil {
		if core.IsNotFound(err) {
			return core.NewValidationError(err, core.FieldError{Field: "class_id", Error: err.Error()})
		}
		return errors.Wrap(err, "getting class")
	}
	count, err := svc.repo.CountByClass(ctx, classID)
	if err != nil {
		return errors.Wrap(err, "counting class students")
	}
	if count >= cls.MaxStudents {
		return core.NewValidationError(ErrClassFull, core.FieldError{Field: "class_id", Error: ErrClassFull.Error()})
	}
	return nil
}
