package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/attendance"
)

type PatternType string

const (
	HighAbsenceRate     PatternType = "high_absence_rate"
	HighTardinessRate   PatternType = "high_tardiness_rate"
	ConsecutiveAbsences PatternType = "consecutive_absences"
	IncreasingAbsences  PatternType = "increasing_absences"
	DayPattern          PatternType = "day_pattern"
	FrequentTardiness   PatternType = "frequent_tardiness"
)

// Severity reuses the risk levels.
type Severity = RiskLevel

// Finding is one detected pattern. Value is the fraction, count or delta that triggered it.
type Finding struct {
	Type        PatternType `json:"type"`
	Severity    Severity    `json:"severity"`
	Description string      `json:"description"`
	Value       float64     `json:"value"`
}

// Statistics summarizes a window with fractions rounded to 3 decimals.
// AttendanceRate is 1 - AbsenceRate, so late and excused records count as attending.
type Statistics struct {
	TotalRecords   int     `json:"total_records"`
	AbsenceRate    float64 `json:"absence_rate"`
	TardinessRate  float64 `json:"tardiness_rate"`
	AttendanceRate float64 `json:"attendance_rate"`
}

const DefaultMinRecords = 5

// Rule thresholds, all strict unless noted.
const (
	highAbsenceRate         = 0.3
	severeAbsenceRate       = 0.5
	highTardinessRate       = 0.25
	frequentTardinessRate   = 0.2
	minConsecutiveAbsences  = 3 // inclusive
	severeConsecutive       = 5 // inclusive
	increaseFactor          = 2.0
	minIncreasedAbsenceRate = 0.2
	minDayRecords           = 3 // inclusive
	highDayAbsenceRate      = 0.4
)

// weekdays in report order.
var weekdays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
}

type DetectorOptions struct {
	// MinRecords below which a window is not analyzed. Defaults to DefaultMinRecords.
	MinRecords int
	// DayPatterns enables the per-weekday rule.
	DayPatterns bool
}

// Detector applies the pattern rules to a student's window.
type Detector struct {
	opts DetectorOptions
}

func NewDetector(opts DetectorOptions) *Detector {
	if opts.MinRecords <= 0 {
		opts.MinRecords = DefaultMinRecords
	}
	return &Detector{opts: opts}
}

func (d *Detector) MinRecords() int { return d.opts.MinRecords }

// Eligible reports whether the window has enough records to be analyzed.
func (d *Detector) Eligible(w Window) bool {
	return w.Len() >= d.opts.MinRecords
}

// Detect returns the findings for w in rule order, or nil when w is not eligible.
func (d *Detector) Detect(w Window) []Finding {
	if w.Len() == 0 || !d.Eligible(w) {
		return nil
	}

	var findings []Finding
	total := w.Len()

	absenceRate := Fraction(w.Count(attendance.Absent), total)
	if absenceRate > highAbsenceRate {
		sev := RiskMedium
		if absenceRate > severeAbsenceRate {
			sev = RiskHigh
		}
		findings = append(findings, Finding{
			Type:        HighAbsenceRate,
			Severity:    sev,
			Description: fmt.Sprintf("High absence rate: %s", pct(absenceRate)),
			Value:       absenceRate,
		})
	}

	tardinessRate := Fraction(w.Count(attendance.Late), total)
	if tardinessRate > highTardinessRate {
		findings = append(findings, Finding{
			Type:        HighTardinessRate,
			Severity:    RiskMedium,
			Description: fmt.Sprintf("High tardiness rate: %s", pct(tardinessRate)),
			Value:       tardinessRate,
		})
	}

	if f, ok := consecutiveFinding(w.Streaks().Max); ok {
		findings = append(findings, f)
	}

	if f, ok := increasingFinding(w); ok {
		findings = append(findings, f)
	}

	if d.opts.DayPatterns {
		findings = append(findings, DayFindings(w)...)
	}
	return findings
}

func consecutiveFinding(maxStreak int) (Finding, bool) {
	if maxStreak < minConsecutiveAbsences {
		return Finding{}, false
	}
	sev := RiskMedium
	if maxStreak >= severeConsecutive {
		sev = RiskHigh
	}
	return Finding{
		Type:        ConsecutiveAbsences,
		Severity:    sev,
		Description: fmt.Sprintf("Maximum consecutive absences: %d", maxStreak),
		Value:       float64(maxStreak),
	}, true
}

// increasingFinding compares the absence rate of the two halves of the window.
func increasingFinding(w Window) (Finding, bool) {
	first, second := w.Split()
	if first.Len() == 0 {
		return Finding{}, false
	}
	firstRate := Fraction(first.Count(attendance.Absent), first.Len())
	secondRate := Fraction(second.Count(attendance.Absent), second.Len())
	if !(secondRate > firstRate*increaseFactor && secondRate > minIncreasedAbsenceRate) {
		return Finding{}, false
	}
	return Finding{
		Type:        IncreasingAbsences,
		Severity:    RiskMedium,
		Description: fmt.Sprintf("Absence rate increased from %s to %s", pct(firstRate), pct(secondRate)),
		Value:       secondRate - firstRate,
	}, true
}

// DayFindings flags weekdays with at least 3 records and an absence rate above 40%.
func DayFindings(w Window) []Finding {
	totals := make(map[time.Weekday]int, len(weekdays))
	absences := make(map[time.Weekday]int, len(weekdays))
	for _, rec := range w.records {
		day := rec.Date.Weekday()
		totals[day]++
		if rec.Status == attendance.Absent {
			absences[day]++
		}
	}

	var findings []Finding
	for _, day := range weekdays {
		if totals[day] < minDayRecords {
			continue
		}
		rate := Fraction(absences[day], totals[day])
		if rate > highDayAbsenceRate {
			findings = append(findings, Finding{
				Type:        DayPattern,
				Severity:    RiskMedium,
				Description: fmt.Sprintf("High absence rate on %s: %s", day, pct(rate)),
				Value:       rate,
			})
		}
	}
	return findings
}

// StudentFindings is the rule set of the single-student report:
// consecutive absences and frequent tardiness (> 20%). Weekday patterns are left to the scan.
func StudentFindings(w Window) []Finding {
	var findings []Finding
	if w.Len() == 0 {
		return findings
	}
	if f, ok := consecutiveFinding(w.Streaks().Max); ok {
		findings = append(findings, f)
	}
	if rate := Fraction(w.Count(attendance.Late), w.Len()); rate > frequentTardinessRate {
		findings = append(findings, Finding{
			Type:        FrequentTardiness,
			Severity:    RiskMedium,
			Description: fmt.Sprintf("Late %s of the time", pct(rate)),
			Value:       rate,
		})
	}
	return findings
}

// Stats computes the statistics block of w.
func Stats(w Window) Statistics {
	total := w.Len()
	if total == 0 {
		return Statistics{}
	}
	absenceRate := Fraction(w.Count(attendance.Absent), total)
	return Statistics{
		TotalRecords:   total,
		AbsenceRate:    core.Round(absenceRate, 3),
		TardinessRate:  core.Round(Fraction(w.Count(attendance.Late), total), 3),
		AttendanceRate: core.Round(1-absenceRate, 3),
	}
}

// HighSeverityCount counts the high severity findings.
func HighSeverityCount(findings []Finding) int {
	var n int
	for _, f := range findings {
		if f.Severity == RiskHigh {
			n++
		}
	}
	return n
}

// StudentPatterns are the findings of one student.
type StudentPatterns struct {
	StudentID   string     `json:"student_id"`
	StudentName string     `json:"student_name"`
	Patterns    []Finding  `json:"patterns"`
	Statistics  Statistics `json:"statistics"`
}

// RankBySeverity sorts by number of high severity findings, descending. Ties keep their order.
func RankBySeverity(students []StudentPatterns) {
	sort.SliceStable(students, func(i, j int) bool {
		return HighSeverityCount(students[i].Patterns) > HighSeverityCount(students[j].Patterns)
	})
}

// pct formats a fraction as a percentage with one decimal, e.g. 0.31 -> "31.0%".
func pct(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}
