package report

import (
	"time"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/analytics"
	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/student"
)

// NotMarked is the daily status of a student without a record.
const NotMarked = "not_marked"

// Counts are per-status record counts.
type Counts struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Late    int `json:"late"`
	Excused int `json:"excused"`
}

func countsOf(r analytics.Rates) Counts {
	return Counts{Present: r.Present(), Absent: r.Absent(), Late: r.Late(), Excused: r.Excused()}
}

func (c Counts) Total() int { return c.Present + c.Absent + c.Late + c.Excused }

type StudentRef struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	StudentNumber string  `json:"student_id"`
	Grade         int     `json:"grade"`
	ClassID       *string `json:"class_id,omitempty"`
}

func refOf(s student.Student) StudentRef {
	return StudentRef{ID: s.ID, Name: s.FullName(), StudentNumber: s.StudentNumber, Grade: s.Grade}
}

// Daily

type DailyStudent struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	StudentNumber string     `json:"student_id"`
	Status        string     `json:"status"`
	Notes         string     `json:"notes"`
	MarkedAt      *time.Time `json:"marked_at"`
}

type DailyCounts struct {
	Counts
	NotMarked int `json:"not_marked"`
}

func (dc *DailyCounts) add(status attendance.Status) {
	switch status {
	case attendance.Present:
		dc.Present++
	case attendance.Absent:
		dc.Absent++
	case attendance.Late:
		dc.Late++
	case attendance.Excused:
		dc.Excused++
	}
}

type DailyClass struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Subject        string         `json:"subject"`
	TeacherName    string         `json:"teacher_name"`
	TotalStudents  int            `json:"total_students"`
	Summary        DailyCounts    `json:"summary"`
	AttendanceRate float64        `json:"attendance_rate"`
	Students       []DailyStudent `json:"students"`
}

type DailySummary struct {
	TotalStudents int `json:"total_students"`
	DailyCounts
	AttendanceRate float64 `json:"attendance_rate"`
	AbsenceRate    float64 `json:"absence_rate"`
}

type Daily struct {
	Date    core.Date    `json:"date"`
	Summary DailySummary `json:"summary"`
	Classes []DailyClass `json:"classes"`
}

type DailyQuery struct {
	Date    string `query:"date" validate:"omitempty,isodate"`
	ClassID string `query:"class_id"`
}


// Weekly

type DayBreakdown struct {
	Date    core.Date `json:"date"`
	DayName string    `json:"day_name"`
	Counts
	Total          int     `json:"total"`
	AttendanceRate float64 `json:"attendance_rate"`
}

type StudentStatistics struct {
	TotalDays int `json:"total_days"`
	Counts
	AttendanceRate float64 `json:"attendance_rate"`
	AbsenceRate    float64 `json:"absence_rate"`
}

type StudentSummary struct {
	Student    StudentRef        `json:"student"`
	Statistics StudentStatistics `json:"statistics"`
}

type WeeklySummary struct {
	TotalStudents         int     `json:"total_students"`
	DaysAnalyzed          int     `json:"days_analyzed"`
	AverageAttendanceRate float64 `json:"average_attendance_rate"`
	TotalAbsences         int     `json:"total_absences"`
	TotalTardiness        int     `json:"total_tardiness"`
}

type Weekly struct {
	WeekStart        core.Date        `json:"week_start"`
	WeekEnd          core.Date        `json:"week_end"`
	Summary          WeeklySummary    `json:"summary"`
	DailyBreakdown   []DayBreakdown   `json:"daily_breakdown"`
	StudentSummaries []StudentSummary `json:"student_summaries"`
}

type WeeklyQuery struct {
	WeekStart string `query:"week_start" validate:"omitempty,isodate"`
	ClassID   string `query:"class_id"`
}

// Monthly

// AtRiskRate is the attendance percentage below which a student is listed at risk.
const AtRiskRate = 85.0

const topPerformers = 10

type Period struct {
	StartDate  core.Date `json:"start_date"`
	EndDate    core.Date `json:"end_date"`
	TotalDays  int       `json:"total_days"`
	SchoolDays int       `json:"school_days"`
}

type MonthlySummary struct {
	TotalStudents int `json:"total_students"`
	TotalRecords  int `json:"total_records"`
	Counts
	AttendanceRate float64 `json:"attendance_rate"`
	AbsenceRate    float64 `json:"absence_rate"`
}

type Trends struct {
	AttendanceRateChange float64 `json:"attendance_rate_change"`
	TotalAbsencesChange  int     `json:"total_absences_change"`
	ComparisonPeriod     string  `json:"comparison_period"`
}

type Monthly struct {
	Year           int              `json:"year"`
	Month          int              `json:"month"`
	MonthName      string           `json:"month_name"`
	Period         Period           `json:"period"`
	Summary        MonthlySummary   `json:"summary"`
	Trends         *Trends          `json:"trends"`
	TopPerformers  []StudentSummary `json:"top_performers"`
	StudentsAtRisk []StudentSummary `json:"students_at_risk"`
}

type MonthlyQuery struct {
	Year    int    `query:"year" validate:"omitempty,min=1970,max=9999"`
	Month   int    `query:"month" validate:"omitempty,min=1,max=12"`
	ClassID string `query:"class_id"`
}

// Student

const (
	DefaultDaysBack = 30
	recentRecords   = 20
	tardinessRate   = 20.0
	followUpStreak  = 3
)

type StudentRates struct {
	TotalDays int `json:"total_days"`
	Counts
	AttendanceRate float64 `json:"attendance_rate"`
	AbsenceRate    float64 `json:"absence_rate"`
	TardinessRate  float64 `json:"tardiness_rate"`
}

type StudentPeriod struct {
	StartDate    core.Date `json:"start_date"`
	EndDate      core.Date `json:"end_date"`
	DaysAnalyzed int       `json:"days_analyzed"`
}

type Recommendation struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Priority string `json:"priority"`
}

type StudentReport struct {
	Student         StudentRef          `json:"student"`
	Period          StudentPeriod       `json:"period"`
	Statistics      StudentRates        `json:"statistics"`
	Patterns        []analytics.Finding `json:"patterns"`
	RecentRecords   []attendance.Record `json:"recent_records"`
	Recommendations []Recommendation    `json:"recommendations"`
}

type StudentQuery struct {
	DaysBack int `query:"days_back" validate:"omitempty,min=1,max=365"`
}

// Range

type RangeDay struct {
	Date           core.Date `json:"date"`
	TotalPresent   int       `json:"total_present"`
	TotalAbsent    int       `json:"total_absent"`
	Late           int       `json:"late"`
	Excused        int       `json:"excused"`
	TotalExpected  int       `json:"total_expected"`
	AttendanceRate float64   `json:"attendance_rate"`
}

type RangeQuery struct {
	StartDate string `query:"start_date" validate:"required,isodate"`
	EndDate   string `query:"end_date" validate:"required,isodate"`
	ClassID   string `query:"class_id"`
}

type Range struct {
	StartDate core.Date  `json:"start_date"`
	EndDate   core.Date  `json:"end_date"`
	Days      []RangeDay `json:"days"`
}

// Statistics

type Statistics struct {
	analytics.Rates
	StudentsCount int `json:"students_count"`
}
