package prediction

import (
	"time"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/analytics"
	"github.com/trezcool/attendance/core/attendance"
)

// FeatureNames is the model input order.
var FeatureNames = []string{
	"grade", "day_of_week", "month", "day_of_month",
	"attendance_rate_30d", "absence_rate_30d", "tardiness_rate_30d",
	"recent_absence_rate", "consecutive_absences",
	"is_weekend", "is_monday", "is_friday",
	"is_winter", "is_spring", "is_fall",
}

// Features describe a student on a target day. Rates are fractions.
type Features struct {
	Grade               int     `json:"grade"`
	DayOfWeek           int     `json:"day_of_week"` // Monday = 0
	Month               int     `json:"month"`
	DayOfMonth          int     `json:"day_of_month"`
	AttendanceRate30d   float64 `json:"attendance_rate_30d"`
	AbsenceRate30d      float64 `json:"absence_rate_30d"`
	TardinessRate30d    float64 `json:"tardiness_rate_30d"`
	RecentAbsenceRate   float64 `json:"recent_absence_rate"`
	ConsecutiveAbsences int     `json:"consecutive_absences"`
	IsWeekend           bool    `json:"is_weekend"`
	IsMonday            bool    `json:"is_monday"`
	IsFriday            bool    `json:"is_friday"`
	IsWinter            bool    `json:"is_winter"`
	IsSpring            bool    `json:"is_spring"`
	IsFall              bool    `json:"is_fall"`
}

// Vector returns the features in FeatureNames order.
func (f Features) Vector() []float64 {
	return []float64{
		float64(f.Grade), float64(f.DayOfWeek), float64(f.Month), float64(f.DayOfMonth),
		f.AttendanceRate30d, f.AbsenceRate30d, f.TardinessRate30d,
		f.RecentAbsenceRate, float64(f.ConsecutiveAbsences),
		b2f(f.IsWeekend), b2f(f.IsMonday), b2f(f.IsFriday),
		b2f(f.IsWinter), b2f(f.IsSpring), b2f(f.IsFall),
	}
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// BuildFeatures derives the features of a target day from the 30 days before it.
// history must only hold records dated before target.
func BuildFeatures(grade int, target core.Date, history analytics.Window) Features {
	weekday := (int(target.Weekday()) + 6) % 7
	month := target.Month()
	f := Features{
		Grade:             grade,
		DayOfWeek:         weekday,
		Month:             int(month),
		DayOfMonth:        target.Day(),
		AttendanceRate30d: 1,
		IsWeekend:         weekday >= 5,
		IsMonday:          weekday == 0,
		IsFriday:          weekday == 4,
		IsWinter:          month == time.December || month == time.January || month == time.February,
		IsSpring:          month >= time.March && month <= time.May,
		IsFall:            month >= time.September && month <= time.November,
	}
	if f.Grade == 0 {
		f.Grade = defaultGrade
	}

	total := history.Len()
	if total == 0 {
		return f
	}
	absent := history.Count(attendance.Absent)
	f.AttendanceRate30d = analytics.Fraction(total-absent, total)
	f.AbsenceRate30d = analytics.Fraction(absent, total)
	f.TardinessRate30d = analytics.Fraction(history.Count(attendance.Late), total)

	recent := history.Between(target.AddDays(-recentDays), core.Date{})
	if recent.Len() > 0 {
		f.RecentAbsenceRate = analytics.Fraction(recent.Count(attendance.Absent), recent.Len())
		f.ConsecutiveAbsences = recent.Streaks().Current
	}
	return f
}

// Prediction is the absence risk of a student on a day.
type Prediction struct {
	StudentID      string    `json:"student_id"`
	StudentName    string    `json:"student_name"`
	PredictionDate core.Date `json:"prediction_date"`
	analytics.Assessment
	FeaturesUsed      int       `json:"features_used,omitempty"`
	Features          *Features `json:"features,omitempty"`
	HistoricalRecords *int      `json:"historical_records,omitempty"`
}

type BatchError struct {
	StudentID string `json:"student_id"`
	Error     string `json:"error"`
}

type BatchSummary struct {
	TotalRequested        int `json:"total_requested"`
	SuccessfulPredictions int `json:"successful_predictions"`
	FailedPredictions     int `json:"failed_predictions"`
}

type BatchResult struct {
	Predictions []Prediction `json:"predictions"`
	Errors      []BatchError `json:"errors"`
	Summary     BatchSummary `json:"summary"`
}

// ClassPrediction is the attendance-rate based risk of a class member.
type ClassPrediction struct {
	StudentID      string              `json:"student_id"`
	StudentName    string              `json:"student_name"`
	RiskLevel      analytics.RiskLevel `json:"risk_level"`
	AttendanceRate float64             `json:"attendance_rate"` // percent, 1 decimal
	RecentAbsences int                 `json:"recent_absences"`
	TotalRecords   int                 `json:"total_records"`
	Recommendation string              `json:"recommendation"`
}

type RiskSummary struct {
	TotalStudents int `json:"total_students"`
	HighRisk      int `json:"high_risk"`
	MediumRisk    int `json:"medium_risk"`
	LowRisk       int `json:"low_risk"`
}

type ClassPredictions struct {
	ClassID     string            `json:"class_id"`
	Predictions []ClassPrediction `json:"predictions"`
	Errors      []BatchError      `json:"errors"`
	Summary     RiskSummary       `json:"summary"`
}

type StudentRef struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Grade         int    `json:"grade"`
	StudentNumber string `json:"student_id"`
}

type UnusualPattern struct {
	Student    StudentRef           `json:"student"`
	Patterns   []analytics.Finding  `json:"patterns"`
	Statistics analytics.Statistics `json:"statistics"`
}

type AnalysisPeriod struct {
	StartDate    core.Date `json:"start_date"`
	EndDate      core.Date `json:"end_date"`
	DaysAnalyzed int       `json:"days_analyzed"`
}

type PatternSummary struct {
	StudentsAnalyzed     int `json:"students_analyzed"`
	UnusualPatternsFound int `json:"unusual_patterns_found"`
	HighSeverityCases    int `json:"high_severity_cases"`
}

type UnusualPatterns struct {
	UnusualPatterns []UnusualPattern `json:"unusual_patterns"`
	AnalysisPeriod  AnalysisPeriod   `json:"analysis_period"`
	Summary         PatternSummary   `json:"summary"`
	Errors          []BatchError     `json:"errors"`
}

type PatternQuery struct {
	DaysBack   int `query:"days_back" validate:"omitempty,min=1,max=365"`
	MinRecords int `query:"min_records" validate:"omitempty,min=1"`
}
