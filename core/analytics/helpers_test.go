package analytics

import (
	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/attendance"
)

// 2024-01-01 is a Monday.
var day0 = core.NewDate(2024, 1, 1)

// seq returns one record per day starting at day0, with the given statuses.
func seq(statuses ...attendance.Status) []attendance.Record {
	recs := make([]attendance.Record, len(statuses))
	for i, st := range statuses {
		recs[i] = attendance.Record{StudentID: "s1", ClassID: "c1", Date: day0.AddDays(i), Status: st}
	}
	return recs
}

// repeat returns n copies of status.
func repeat(status attendance.Status, n int) []attendance.Status {
	out := make([]attendance.Status, n)
	for i := range out {
		out[i] = status
	}
	return out
}

// spread returns n statuses with `absent` absences spread evenly (never adjacent when absent <= n/2).
func spread(n, absent int) []attendance.Status {
	out := repeat(attendance.Present, n)
	if absent == 0 {
		return out
	}
	step := n / absent
	for i := 0; i < absent; i++ {
		out[i*step] = attendance.Absent
	}
	return out
}

func window(recs []attendance.Record) Window {
	w, err := NewWindow(recs)
	if err != nil {
		panic(err)
	}
	return w
}

func findType(findings []Finding, typ PatternType) (Finding, bool) {
	for _, f := range findings {
		if f.Type == typ {
			return f, true
		}
	}
	return Finding{}, false
}
