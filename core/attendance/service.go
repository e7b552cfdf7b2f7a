package attendance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/class"
	"github.com/trezcool/attendance/core/student"
)

var ErrNotFound = core.NewNotFoundError("attendance record")

type (
	// Repository is the attendance record store.
	Repository interface {
		// UpsertRecord creates the record or replaces the one with the same (student, class, date).
		UpsertRecord(ctx context.Context, rec Record) (Record, error)
		GetRecord(ctx context.Context, id string) (Record, error)
		UpdateRecord(ctx context.Context, rec Record) (Record, error)
		// QueryRecords returns matching records sorted ascending by date.
		QueryRecords(ctx context.Context, filter Filter) ([]Record, error)
	}

	Service struct {
		repo    Repository
		stdRepo student.Repository
		clsRepo class.Repository
		nowFunc func() time.Time
	}
)

func NewService(repo Repository, stdRepo student.Repository, clsRepo class.Repository) *Service {
	return &Service{repo: repo, stdRepo: stdRepo, clsRepo: clsRepo, nowFunc: time.Now}
}

// Mark records the status of a student for a class on a day.
// Teachers may only mark the classes they teach.
func (svc *Service) Mark(ctx context.Context, req MarkRequest, by core.Actor) (Record, error) {
	date, status, err := req.parse()
	if err != nil {
		return Record{}, err
	}

	cls, err := svc.clsRepo.GetClass(ctx, req.ClassID)
	if err != nil {
		return Record{}, err
	}
	if !by.IsAdmin && !cls.TaughtBy(by.ID) {
		return Record{}, core.ErrPermissionDenied
	}
	if _, err := svc.stdRepo.GetStudent(ctx, req.StudentID); err != nil {
		return Record{}, err
	}

	rec := Record{
		ID:        uuid.NewString(),
		StudentID: req.StudentID,
		ClassID:   req.ClassID,
		Date:      date,
		Status:    status,
		Notes:     req.Notes,
		MarkedBy:  by.ID,
		MarkedAt:  svc.nowFunc().UTC(),
	}
	rec, err = svc.repo.UpsertRecord(ctx, rec)
	return rec, errors.Wrap(err, "upserting attendance record")
}

// BulkMark marks every request independently, one failure does not stop the batch.
func (svc *Service) BulkMark(ctx context.Context, reqs []MarkRequest, by core.Actor) BulkResult {
	res := BulkResult{Records: []Record{}, Errors: []BulkError{}}
	for i, req := range reqs {
		rec, err := svc.Mark(ctx, req, by)
		if err != nil {
			res.Errors = append(res.Errors, BulkError{Index: i, StudentID: req.StudentID, Error: err.Error()})
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res
}

func (svc *Service) Get(ctx context.Context, id string) (Record, error) {
	return svc.repo.GetRecord(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id string, ur UpdateRequest, by core.Actor) (Record, error) {
	if err := core.Validate.Struct(ur); err != nil {
		return Record{}, err
	}
	rec, err := svc.repo.GetRecord(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if !by.IsAdmin {
		cls, err := svc.clsRepo.GetClass(ctx, rec.ClassID)
		if err != nil {
			return Record{}, err
		}
		if !cls.TaughtBy(by.ID) {
			return Record{}, core.ErrPermissionDenied
		}
	}

	if ur.Status != "" {
		if rec.Status, err = ParseStatus(ur.Status); err != nil {
			return Record{}, core.NewValidationError(err, core.FieldError{Field: "status", Error: err.Error()})
		}
	}
	if ur.Notes != nil {
		rec.Notes = core.CleanString(*ur.Notes)
	}
	rec.MarkedBy = by.ID
	rec.MarkedAt = svc.nowFunc().UTC()
	return svc.repo.UpdateRecord(ctx, rec)
}

func (svc *Service) Query(ctx context.Context, filter Filter) ([]Record, error) {
	return svc.repo.QueryRecords(ctx, filter)
}

// ClassDay returns the records of a class for one day.
func (svc *Service) ClassDay(ctx context.Context, classID string, date core.Date) ([]Record, error) {
	if _, err := svc.clsRepo.GetClass(ctx, classID); err != nil {
		return nil, err
	}
	return svc.repo.QueryRecords(ctx, Filter{ClassID: classID, From: date, To: date})
}

// History returns the records of a student in [from, to], sorted ascending by date.
func (svc *Service) History(ctx context.Context, studentID string, from, to core.Date) ([]Record, error) {
	if _, err := svc.stdRepo.GetStudent(ctx, studentID); err != nil {
		return nil, err
	}
	recs, err := svc.repo.QueryRecords(ctx, Filter{StudentIDs: []string{studentID}, From: from, To: to})
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance records")
	}
	SortByDate(recs)
	return recs, nil
}
