package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/attendance/core/attendance"
)

func TestDetectStreaks(t *testing.T) {
	P, A, T := attendance.Present, attendance.Absent, attendance.Late

	gapped := seq(A, A, P)
	gapped[1].Date = gapped[1].Date.AddDays(10) // a hole in the calendar does not break the run
	gapped[2].Date = gapped[2].Date.AddDays(20)

	tests := []struct {
		name    string
		records []attendance.Record
		want    Streaks
	}{
		{name: "empty", want: Streaks{}},
		{name: "no absence", records: seq(P, T, P), want: Streaks{}},
		{name: "closed run", records: seq(P, A, A, P, A, A, A, P), want: Streaks{Max: 3, Current: 0}},
		{name: "open run", records: seq(A, A), want: Streaks{Max: 2, Current: 2}},
		{name: "open run shorter than max", records: seq(A, A, A, T, A), want: Streaks{Max: 3, Current: 1}},
		{name: "late breaks the run", records: seq(A, T, A), want: Streaks{Max: 1, Current: 1}},
		{name: "sequence adjacency", records: gapped[:2], want: Streaks{Max: 2, Current: 2}},
		{
			name:    "unsorted input",
			records: []attendance.Record{seq(P, A, A)[2], seq(P, A, A)[0], seq(P, A, A)[1]},
			want:    Streaks{Max: 2, Current: 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectStreaks(tt.records)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got.Max, got.Current)
		})
	}
}
