// Package analytics turns a student's attendance record window into rates,
// streaks, risk assessments and pattern findings. Every function is pure.
package analytics

import (
	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/attendance"
)

// Window is a validated sequence of attendance records sorted ascending by date.
type Window struct {
	records []attendance.Record
}

// NewWindow validates every record and returns them as a date-ordered Window.
// Records of the same student on the same date (one per class) collapse into a
// single day whose status is the most severe one: absent, then late, then
// excused, then present. The input slice is not modified.
func NewWindow(records []attendance.Record) (Window, error) {
	sorted := make([]attendance.Record, len(records))
	copy(sorted, records)
	for i, rec := range sorted {
		if err := rec.Validate(); err != nil {
			return Window{}, errors.Wrapf(err, "record %d", i)
		}
	}
	attendance.SortByDate(sorted)
	return Window{records: collapseDays(sorted)}, nil
}

// severity orders statuses for same-day collapsing; higher wins.
var severity = map[attendance.Status]int{
	attendance.Present: 0,
	attendance.Excused: 1,
	attendance.Late:    2,
	attendance.Absent:  3,
}

type dayKey struct {
	studentID string
	date      string
}

// collapseDays keeps one record per student and date in date-sorted input.
func collapseDays(sorted []attendance.Record) []attendance.Record {
	out := sorted[:0]
	seen := make(map[dayKey]int, len(sorted))
	for _, rec := range sorted {
		key := dayKey{studentID: rec.StudentID, date: rec.Date.String()}
		if i, ok := seen[key]; ok {
			if severity[rec.Status] > severity[out[i].Status] {
				out[i] = rec
			}
			continue
		}
		seen[key] = len(out)
		out = append(out, rec)
	}
	return out
}

func (w Window) Len() int { return len(w.records) }

func (w Window) Records() []attendance.Record {
	out := make([]attendance.Record, len(w.records))
	copy(out, w.records)
	return out
}

// Between returns the records dated in [from, to]; zero bounds are open.
func (w Window) Between(from, to core.Date) Window {
	out := make([]attendance.Record, 0, len(w.records))
	for _, rec := range w.records {
		if rec.Date.Between(from, to) {
			out = append(out, rec)
		}
	}
	return Window{records: out}
}

// Split cuts the window in two halves at len/2.
func (w Window) Split() (Window, Window) {
	mid := len(w.records) / 2
	return Window{records: w.records[:mid]}, Window{records: w.records[mid:]}
}

func (w Window) Rates() Rates { return CalculateRates(w.records) }

func (w Window) Streaks() Streaks { return DetectStreaks(w.records) }

func (w Window) Count(status attendance.Status) int {
	var n int
	for _, rec := range w.records {
		if rec.Status == status {
			n++
		}
	}
	return n
}

// Fraction returns count/total, or 0 when total is 0.
func Fraction(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total)
}
