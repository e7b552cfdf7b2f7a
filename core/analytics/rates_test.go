package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/attendance/core/attendance"
)

func TestCalculateRates(t *testing.T) {
	P, A, T, E := attendance.Present, attendance.Absent, attendance.Late, attendance.Excused

	tests := []struct {
		name     string
		records  []attendance.Record
		statuses []attendance.Status
		want     Rates
	}{
		{
			name: "empty window",
			want: Rates{Counts: map[attendance.Status]int{P: 0, A: 0, T: 0, E: 0}},
		},
		{
			name:    "mixed window",
			records: seq(P, P, P, P, P, P, P, A, A, T),
			want: Rates{
				Total:          10,
				Counts:         map[attendance.Status]int{P: 7, A: 2, T: 1, E: 0},
				AttendanceRate: 70,
				AbsenceRate:    20,
				TardinessRate:  10,
			},
		},
		{
			name:    "rounded to 2 decimals",
			records: seq(P, A, E),
			want: Rates{
				Total:          3,
				Counts:         map[attendance.Status]int{P: 1, A: 1, T: 0, E: 1},
				AttendanceRate: 33.33,
				AbsenceRate:    33.33,
				ExcusedRate:    33.33,
			},
		},
		{
			name:     "status filter",
			records:  seq(P, A, T, T, E),
			statuses: []attendance.Status{P, A},
			want: Rates{
				Total:          2,
				Counts:         map[attendance.Status]int{P: 1, A: 1, T: 0, E: 0},
				AttendanceRate: 50,
				AbsenceRate:    50,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateRates(tt.records, tt.statuses...)
			assert.Equal(t, tt.want, got)

			var sum int
			for _, c := range got.Counts {
				sum += c
			}
			assert.Equal(t, got.Total, sum)
		})
	}
}

func TestNewWindow(t *testing.T) {
	t.Run("sorts by date without touching input", func(t *testing.T) {
		recs := seq(attendance.Present, attendance.Absent, attendance.Late)
		reversed := []attendance.Record{recs[2], recs[1], recs[0]}

		w, err := NewWindow(reversed)
		assert.NoError(t, err)
		assert.Equal(t, recs, w.Records())
		assert.Equal(t, attendance.Late, reversed[0].Status)
	})

	t.Run("invalid status fails fast", func(t *testing.T) {
		recs := seq(attendance.Present, attendance.Status("tardy"))
		_, err := NewWindow(recs)
		assert.ErrorIs(t, err, attendance.ErrInvalidStatus)
	})

	t.Run("late is a valid status", func(t *testing.T) {
		w, err := NewWindow(seq(attendance.Present, attendance.Late))
		require.NoError(t, err)
		r := w.Rates()
		assert.Equal(t, 1, r.Counts[attendance.Late])
		assert.Equal(t, 1, r.Late())
		assert.Equal(t, 50.0, r.TardinessRate)
	})

	t.Run("missing date fails fast", func(t *testing.T) {
		recs := []attendance.Record{{Status: attendance.Present}}
		_, err := NewWindow(recs)
		assert.ErrorIs(t, err, attendance.ErrMalformedDate)
	})

	t.Run("same day records collapse", func(t *testing.T) {
		recs := []attendance.Record{
			{StudentID: "s1", ClassID: "math", Date: day0, Status: attendance.Absent},
			{StudentID: "s1", ClassID: "art", Date: day0, Status: attendance.Absent},
			{StudentID: "s1", ClassID: "math", Date: day0.AddDays(1), Status: attendance.Present},
		}
		w, err := NewWindow(recs)
		require.NoError(t, err)
		assert.Equal(t, 2, w.Len())
		assert.Equal(t, 1, w.Streaks().Max)
		assert.Equal(t, 50.0, w.Rates().AbsenceRate)
		assert.Len(t, recs, 3)
	})

	t.Run("most severe status wins the day", func(t *testing.T) {
		tests := []struct {
			name     string
			statuses []attendance.Status
			want     attendance.Status
		}{
			{name: "absent over late", statuses: []attendance.Status{attendance.Late, attendance.Absent}, want: attendance.Absent},
			{name: "late over excused", statuses: []attendance.Status{attendance.Excused, attendance.Late}, want: attendance.Late},
			{name: "excused over present", statuses: []attendance.Status{attendance.Present, attendance.Excused}, want: attendance.Excused},
			{name: "present alone", statuses: []attendance.Status{attendance.Present, attendance.Present}, want: attendance.Present},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				var recs []attendance.Record
				for i, st := range tt.statuses {
					recs = append(recs, attendance.Record{StudentID: "s1", ClassID: string(rune('a' + i)), Date: day0, Status: st})
				}
				w := window(recs)
				require.Equal(t, 1, w.Len())
				assert.Equal(t, tt.want, w.Records()[0].Status)
			})
		}
	})

	t.Run("other students keep their day", func(t *testing.T) {
		recs := []attendance.Record{
			{StudentID: "s1", ClassID: "c1", Date: day0, Status: attendance.Absent},
			{StudentID: "s2", ClassID: "c1", Date: day0, Status: attendance.Present},
		}
		assert.Equal(t, 2, window(recs).Len())
	})

	t.Run("between and split", func(t *testing.T) {
		w := window(seq(repeat(attendance.Present, 9)...))
		assert.Equal(t, 3, w.Between(day0.AddDays(2), day0.AddDays(4)).Len())
		first, second := w.Split()
		assert.Equal(t, 4, first.Len())
		assert.Equal(t, 5, second.Len())
	})
}
