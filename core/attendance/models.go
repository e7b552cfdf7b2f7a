package attendance

import (
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core"
)

// Status is the outcome of one attendance mark.
type Status string

const (
	Present Status = "present"
	Absent  Status = "absent"
	Late    Status = "late"
	Excused Status = "excused"
)

// Statuses lists every valid Status.
var Statuses = []Status{Present, Absent, Late, Excused}

var (
	ErrInvalidStatus = errors.New("invalid status, expected one of present, absent, late, excused")
	ErrMalformedDate = core.ErrMalformedDate
)

func (s Status) Valid() bool {
	switch s {
	case Present, Absent, Late, Excused:
		return true
	}
	return false
}

// ParseStatus accepts any casing and surrounding whitespace.
func ParseStatus(s string) (Status, error) {
	st := Status(core.CleanString(s, true /* lower */))
	if !st.Valid() {
		return "", errors.Wrapf(ErrInvalidStatus, "%q", s)
	}
	return st, nil
}

// Record is a single attendance mark of a student, in a class, on a day.
type Record struct {
	ID        string    `json:"id" db:"id"`
	StudentID string    `json:"student_id" db:"student_id"`
	ClassID   string    `json:"class_id" db:"class_id"`
	Date      core.Date `json:"date" db:"date"`
	Status    Status    `json:"status" db:"status"`
	Notes     string    `json:"notes" db:"notes"`
	MarkedBy  string    `json:"marked_by" db:"marked_by"`
	MarkedAt  time.Time `json:"marked_at" db:"marked_at"`
}

// Validate checks the fields analytics rely on.
func (r Record) Validate() error {
	if !r.Status.Valid() {
		return errors.Wrapf(ErrInvalidStatus, "%q", r.Status)
	}
	if r.Date.IsZero() {
		return ErrMalformedDate
	}
	return nil
}

// SortByDate sorts records ascending by date, keeping the input order of same-day records.
func SortByDate(records []Record) {
	sort.SliceStable(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })
}

type MarkRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	ClassID   string `json:"class_id" validate:"required"`
	Date      string `json:"date" validate:"required,isodate"`
	Status    string `json:"status" validate:"required,attstatus"`
	Notes     string `json:"notes" validate:"max=500"`
}

// parse validates the request and returns its typed date and status.
func (mr *MarkRequest) parse() (core.Date, Status, error) {
	mr.StudentID = core.CleanString(mr.StudentID)
	mr.ClassID = core.CleanString(mr.ClassID)
	mr.Date = core.CleanString(mr.Date)
	mr.Notes = core.CleanString(mr.Notes)

	if err := core.Validate.Struct(mr); err != nil {
		return core.Date{}, "", err
	}
	status, err := ParseStatus(mr.Status)
	if err != nil {
		return core.Date{}, "", core.NewValidationError(err, core.FieldError{Field: "status", Error: err.Error()})
	}
	date, err := core.ParseDate(mr.Date)
	if err != nil {
		return core.Date{}, "", core.NewValidationError(err, core.FieldError{Field: "date", Error: err.Error()})
	}
	return date, status, nil
}

type UpdateRequest struct {
	Status string  `json:"status" validate:"omitempty,attstatus"`
	Notes  *string `json:"notes" validate:"omitempty,max=500"`
}

// BulkError reports why the item at Index of a bulk request failed.
type BulkError struct {
	Index     int    `json:"index"`
	StudentID string `json:"student_id"`
	Error     string `json:"error"`
}

type BulkResult struct {
	Records []Record    `json:"records"`
	Errors  []BulkError `json:"errors"`
}

func (br BulkResult) Partial() bool { return len(br.Errors) > 0 && len(br.Records) > 0 }

// Filter selects records; zero values are ignored and date bounds are inclusive.
type Filter struct {
	StudentIDs []string
	ClassID    string
	Status     Status
	From       core.Date
	To         core.Date
}

// Matches is the in-memory equivalent of a repository query.
func (f Filter) Matches(r Record) bool {
	if len(f.StudentIDs) > 0 {
		found := false
		for _, id := range f.StudentIDs {
			if id == r.StudentID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.ClassID != "" && r.ClassID != f.ClassID {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	return r.Date.Between(f.From, f.To)
}

// QueryParams is the HTTP shape of Filter.
type QueryParams struct {
	StudentID string `query:"student_id"`
	ClassID   string `query:"class_id"`
	Status    string `query:"status"`
	StartDate string `query:"start_date"`
	EndDate   string `query:"end_date"`
}

func (qp QueryParams) Filter() (Filter, error) {
	var f Filter
	var err error
	if id := core.CleanString(qp.StudentID); id != "" {
		f.StudentIDs = []string{id}
	}
	f.ClassID = core.CleanString(qp.ClassID)
	if qp.Status != "" {
		if f.Status, err = ParseStatus(qp.Status); err != nil {
			return Filter{}, core.NewValidationError(err, core.FieldError{Field: "status", Error: err.Error()})
		}
	}
	if qp.StartDate != "" {
		if f.From, err = core.ParseDate(strings.TrimSpace(qp.StartDate)); err != nil {
			return Filter{}, core.NewValidationError(err, core.FieldError{Field: "start_date", Error: err.Error()})
		}
	}
	if qp.EndDate != "" {
		if f.To, err = core.ParseDate(strings.TrimSpace(qp.EndDate)); err != nil {
			return Filter{}, core.NewValidationError(err, core.FieldError{Field: "end_date", Error: err.Error()})
		}
	}
	return f, nil
}
