package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/attendance/core/attendance"
)

func TestDetector_Detect(t *testing.T) {
	P, A, T := attendance.Present, attendance.Absent, attendance.Late
	detector := NewDetector(DetectorOptions{})

	t.Run("below min records", func(t *testing.T) {
		assert.Nil(t, detector.Detect(window(seq(A, A, A, A))))
		assert.Equal(t, DefaultMinRecords, detector.MinRecords())
	})

	t.Run("empty window", func(t *testing.T) {
		assert.Empty(t, NewDetector(DetectorOptions{MinRecords: 1}).Detect(window(nil)))
	})

	t.Run("clean window", func(t *testing.T) {
		assert.Empty(t, detector.Detect(window(seq(repeat(P, 10)...))))
	})

	tests := []struct {
		name     string
		statuses []attendance.Status
		typ      PatternType
		want     *Finding
	}{
		{name: "absence rate exactly 30%", statuses: spread(10, 3), typ: HighAbsenceRate},
		{
			name: "absence rate 31%", statuses: spread(100, 31), typ: HighAbsenceRate,
			want: &Finding{Type: HighAbsenceRate, Severity: RiskMedium, Description: "High absence rate: 31.0%", Value: 0.31},
		},
		{
			name: "absence rate 51%", statuses: append(spread(98, 49), A, A), typ: HighAbsenceRate,
			want: &Finding{Type: HighAbsenceRate, Severity: RiskHigh, Description: "High absence rate: 51.0%", Value: 0.51},
		},
		{name: "tardiness rate exactly 25%", statuses: append(repeat(P, 6), T, T), typ: HighTardinessRate},
		{
			name: "tardiness rate 30%", statuses: append(repeat(P, 7), T, T, T), typ: HighTardinessRate,
			want: &Finding{Type: HighTardinessRate, Severity: RiskMedium, Description: "High tardiness rate: 30.0%", Value: 0.3},
		},
		{name: "two consecutive absences", statuses: []attendance.Status{P, A, A, P, P, P, P, P, P, P}, typ: ConsecutiveAbsences},
		{
			name: "three consecutive absences", statuses: []attendance.Status{P, A, A, A, P, P, P, P, P, P}, typ: ConsecutiveAbsences,
			want: &Finding{Type: ConsecutiveAbsences, Severity: RiskMedium, Description: "Maximum consecutive absences: 3", Value: 3},
		},
		{
			name: "five consecutive absences", statuses: append(repeat(P, 10), repeat(A, 5)...), typ: ConsecutiveAbsences,
			want: &Finding{Type: ConsecutiveAbsences, Severity: RiskHigh, Description: "Maximum consecutive absences: 5", Value: 5},
		},
		{
			name: "absences tripled", statuses: append(spread(10, 1), spread(10, 3)...), typ: IncreasingAbsences,
			want: &Finding{Type: IncreasingAbsences, Severity: RiskMedium, Description: "Absence rate increased from 10.0% to 30.0%", Value: 0.2},
		},
		{name: "second half under 20%", statuses: append(spread(100, 10), spread(100, 19)...), typ: IncreasingAbsences},
		{name: "not doubled", statuses: append(spread(10, 2), spread(10, 3)...), typ: IncreasingAbsences},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := findType(detector.Detect(window(seq(tt.statuses...))), tt.typ)
			if tt.want == nil {
				assert.False(t, ok, "unexpected finding %+v", got)
				return
			}
			if assert.True(t, ok) {
				assert.Equal(t, tt.want.Severity, got.Severity)
				assert.Equal(t, tt.want.Description, got.Description)
				assert.InDelta(t, tt.want.Value, got.Value, 1e-9)
			}
		})
	}
}

func TestDetector_DayPatterns(t *testing.T) {
	P, A := attendance.Present, attendance.Absent

	// four Mondays, two of them absent, plus present Tuesdays
	mondays := func(statuses ...attendance.Status) []attendance.Record {
		var recs []attendance.Record
		for i, st := range statuses {
			recs = append(recs,
				attendance.Record{Date: day0.AddDays(7 * i), Status: st},
				attendance.Record{Date: day0.AddDays(7*i + 1), Status: P},
			)
		}
		return recs
	}

	withDays := NewDetector(DetectorOptions{DayPatterns: true})
	withoutDays := NewDetector(DetectorOptions{})

	w := window(mondays(A, P, A, P))
	got, ok := findType(withDays.Detect(w), DayPattern)
	if assert.True(t, ok) {
		assert.Equal(t, "High absence rate on Monday: 50.0%", got.Description)
		assert.Equal(t, RiskMedium, got.Severity)
		assert.InDelta(t, 0.5, got.Value, 1e-9)
	}
	_, ok = findType(withoutDays.Detect(w), DayPattern)
	assert.False(t, ok)

	// exactly 40% on Mondays
	_, ok = findType(withDays.Detect(window(mondays(A, P, A, P, P))), DayPattern)
	assert.False(t, ok)

	// fewer than 3 records on the weekday
	fewMondays := append(mondays(A, A),
		attendance.Record{Date: day0.AddDays(2), Status: P},
		attendance.Record{Date: day0.AddDays(9), Status: P},
	)
	_, ok = findType(withDays.Detect(window(fewMondays)), DayPattern)
	assert.False(t, ok)
}

func TestStudentFindings(t *testing.T) {
	P, A, T := attendance.Present, attendance.Absent, attendance.Late

	assert.Empty(t, StudentFindings(window(nil)))

	got := StudentFindings(window(seq(A, A, A, T, T, T, P, P, P, P)))
	types := make([]PatternType, 0, len(got))
	for _, f := range got {
		types = append(types, f.Type)
	}
	assert.Equal(t, []PatternType{ConsecutiveAbsences, FrequentTardiness}, types)
	assert.Equal(t, "Late 30.0% of the time", got[1].Description)

	// exactly 20% late is not frequent
	_, ok := findType(StudentFindings(window(seq(T, T, P, P, P, P, P, P, P, P))), FrequentTardiness)
	assert.False(t, ok)

	// absent every Monday: a weekday pattern, not a student report finding
	mondays := repeat(P, 21)
	mondays[0], mondays[7], mondays[14] = A, A, A
	w := window(seq(mondays...))
	assert.Len(t, DayFindings(w), 1)
	assert.Empty(t, StudentFindings(w))
}

func TestStats(t *testing.T) {
	P, A, T := attendance.Present, attendance.Absent, attendance.Late

	tests := []struct {
		name    string
		records []attendance.Record
		want    Statistics
	}{
		{name: "empty window", want: Statistics{}},
		{
			name:    "mixed window",
			records: seq(P, A, P, A, P, A, T, T, P, P),
			want:    Statistics{TotalRecords: 10, AbsenceRate: 0.3, TardinessRate: 0.2, AttendanceRate: 0.7},
		},
		{
			name:    "rounded to 3 decimals",
			records: seq(P, A, P),
			want:    Statistics{TotalRecords: 3, AbsenceRate: 0.333, TardinessRate: 0, AttendanceRate: 0.667},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Stats(window(tt.records)))
		})
	}
}

func TestRankBySeverity(t *testing.T) {
	high := Finding{Severity: RiskHigh}
	medium := Finding{Severity: RiskMedium}

	students := []StudentPatterns{
		{StudentID: "a", Patterns: []Finding{medium}},
		{StudentID: "b", Patterns: []Finding{high}},
		{StudentID: "c", Patterns: []Finding{medium, medium}},
		{StudentID: "d", Patterns: []Finding{high, high}},
		{StudentID: "e", Patterns: []Finding{high, medium}},
	}
	RankBySeverity(students)

	ids := make([]string, 0, len(students))
	for _, s := range students {
		ids = append(ids, s.StudentID)
	}
	assert.Equal(t, []string{"d", "b", "e", "a", "c"}, ids)
}
