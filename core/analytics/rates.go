package analytics

import (
	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/attendance"
)

// Rates holds per-status counts and percentages over a set of records.
// Percentages are in [0, 100], rounded to 2 decimals.
type Rates struct {
	Total  int                       `json:"total"`
	Counts map[attendance.Status]int `json:"counts"`

	AttendanceRate float64 `json:"attendance_rate"`
	AbsenceRate    float64 `json:"absence_rate"`
	TardinessRate  float64 `json:"tardiness_rate"`
	ExcusedRate    float64 `json:"excused_rate"`
}

// CalculateRates counts the records by status.
// When statuses are given, only records with one of them are counted.
// An empty input yields all rates at 0.
func CalculateRates(records []attendance.Record, statuses ...attendance.Status) Rates {
	r := Rates{Counts: make(map[attendance.Status]int, len(attendance.Statuses))}
	for _, st := range attendance.Statuses {
		r.Counts[st] = 0
	}

	for _, rec := range records {
		if len(statuses) > 0 && !hasStatus(statuses, rec.Status) {
			continue
		}
		r.Counts[rec.Status]++
		r.Total++
	}

	r.AttendanceRate = percent(r.Counts[attendance.Present], r.Total)
	r.AbsenceRate = percent(r.Counts[attendance.Absent], r.Total)
	r.TardinessRate = percent(r.Counts[attendance.Late], r.Total)
	r.ExcusedRate = percent(r.Counts[attendance.Excused], r.Total)
	return r
}

func (r Rates) Present() int { return r.Counts[attendance.Present] }
func (r Rates) Absent() int  { return r.Counts[attendance.Absent] }
func (r Rates) Late() int   { return r.Counts[attendance.Late] }
func (r Rates) Excused() int { return r.Counts[attendance.Excused] }

func percent(count, total int) float64 {
	return core.Round(Fraction(count, total)*100, 2)
}

func hasStatus(statuses []attendance.Status, s attendance.Status) bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}
