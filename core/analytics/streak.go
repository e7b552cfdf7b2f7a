package analytics

import "github.com/trezcool/attendance/core/attendance"

// Streaks are runs of consecutive absent records.
// Adjacency is by position in the date-ordered sequence, so unmarked days
// neither break nor extend a streak.
type Streaks struct {
	Max     int `json:"max_consecutive_absences"`
	Current int `json:"current_consecutive_absences"`
}

// DetectStreaks sorts a copy of records by date and walks it once.
// Current is the run still open at the most recent record.
func DetectStreaks(records []attendance.Record) Streaks {
	sorted := make([]attendance.Record, len(records))
	copy(sorted, records)
	attendance.SortByDate(sorted)

	var s Streaks
	for _, rec := range sorted {
		if rec.Status == attendance.Absent {
			s.Current++
			if s.Current > s.Max {
				s.Max = s.Current
			}
		} else {
			s.Current = 0
		}
	}
	return s
}
