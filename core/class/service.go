package class

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core"
)

const DefaultMaxStudents = 30

var (
	ErrNotFound   = core.NewNotFoundError("class")
	ErrCodeExists = errors.New("a class with this code already exists")
)

type (
	Repository interface {
		CreateClass(ctx context.Context, cls Class) (Class, error)
		GetClass(ctx context.Context, id string) (Class, error)
		GetClassByCode(ctx context.Context, code string) (Class, error)
		QueryClasses(ctx context.Context, filter QueryFilter, orderings []core.DBOrdering) ([]Class, error)
		UpdateClass(ctx context.Context, cls Class) (Class, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nc NewClass) (Class, error) {
	nc.Clean()
	if err := core.Validate.Struct(nc); err != nil {
		return Class{}, err
	}
	if _, err := svc.repo.GetClassByCode(ctx, nc.Code); err == nil {
		return Class{}, core.NewValidationError(ErrCodeExists, core.FieldError{Field: "code", Error: ErrCodeExists.Error()})
	} else if !core.IsNotFound(err) {
		return Class{}, errors.Wrap(err, "checking class code")
	}

	now := time.Now().UTC()
	cls := Class{
		ID:          uuid.NewString(),
		Name:        nc.Name,
		Subject:     nc.Subject,
		Code:        nc.Code,
		TeacherName: nc.TeacherName,
		Grade:       nc.Grade,
		Room:        nc.Room,
		MaxStudents: nc.MaxStudents,
		SchoolYear:  nc.SchoolYear,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if nc.TeacherID != "" {
		cls.TeacherID = &nc.TeacherID
	}
	return svc.repo.CreateClass(ctx, cls)
}

func (svc *Service) Get(ctx context.Context, id string) (Class, error) {
	return svc.repo.GetClass(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, orderings []core.DBOrdering) ([]Class, error) {
	filter.Search = core.CleanString(filter.Search)
	return svc.repo.QueryClasses(ctx, filter, orderings)
}

func (svc *Service) ByTeacher(ctx context.Context, teacherID string) ([]Class, error) {
	return svc.repo.QueryClasses(ctx, QueryFilter{TeacherID: teacherID}, nil)
}

func (svc *Service) Update(ctx context.Context, id string, uc UpdateClass) (Class, error) {
	if err := core.Validate.Struct(uc); err != nil {
		return Class{}, err
	}
	cls, err := svc.repo.GetClass(ctx, id)
	if err != nil {
		return Class{}, err
	}

	if uc.Name != nil {
		cls.Name = core.CleanString(*uc.Name)
	}
	if uc.Subject != nil {
		cls.Subject = core.CleanString(*uc.Subject)
	}
	if uc.TeacherID != nil {
		if tid := core.CleanString(*uc.TeacherID); tid != "" {
			cls.TeacherID = &tid
		} else {
			cls.TeacherID = nil
		}
	}
	if uc.TeacherName != nil {
		cls.TeacherName = core.CleanString(*uc.TeacherName)
	}
	if uc.Grade != nil {
		cls.Grade = *uc.Grade
	}
	if uc.Room != nil {
		cls.Room = core.CleanString(*uc.Room)
	}
	if uc.MaxStudents != nil {
		cls.MaxStudents = *uc.MaxStudents
	}
	if uc.SchoolYear != nil {
		cls.SchoolYear = core.CleanString(*uc.SchoolYear)
	}
	cls.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateClass(ctx, cls)
}
