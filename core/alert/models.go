package alert

import (
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core"
)

type Type string

const (
	AttendanceConcern   Type = "attendance_concern"
	ExcessiveAbsences   Type = "excessive_absences"
	TardinessPattern    Type = "tardiness_pattern"
	ConsecutiveAbsences Type = "consecutive_absences"
	General             Type = "general"
)

var Types = []Type{AttendanceConcern, ExcessiveAbsences, TardinessPattern, ConsecutiveAbsences, General}

var ErrInvalidType = errors.New("invalid alert type")

func (t Type) Valid() bool {
	for _, typ := range Types {
		if t == typ {
			return true
		}
	}
	return false
}

var (
	subjects = map[Type]string{
		AttendanceConcern:   "Attendance Concern",
		ExcessiveAbsences:   "Excessive Absences Notice",
		TardinessPattern:    "Tardiness Pattern Alert",
		ConsecutiveAbsences: "Consecutive Absences Alert",
		General:             "School Notification",
	}
	defaultMessages = map[Type]string{
		AttendanceConcern:   "We have noticed some attendance concerns and would like to discuss this with you.",
		ExcessiveAbsences:   "Your child has exceeded the acceptable number of absences. Please contact the school.",
		TardinessPattern:    "We have observed a pattern of tardiness that may affect your child's academic progress.",
		ConsecutiveAbsences: "Your child has been absent for consecutive days. Please contact the school to discuss.",
		General:             "Please contact the school regarding your child's attendance.",
	}
	labels = map[Type]string{
		AttendanceConcern:   "Attendance concern",
		ExcessiveAbsences:   "Excessive absences",
		TardinessPattern:    "Tardiness pattern",
		ConsecutiveAbsences: "Consecutive absences",
		General:             "General",
	}
)

// Subject returns the email subject of an alert about studentName.
func (t Type) Subject(studentName string) string {
	s, ok := subjects[t]
	if !ok {
		s = subjects[General]
	}
	return s + " - " + studentName
}

func (t Type) DefaultMessage() string {
	if m, ok := defaultMessages[t]; ok {
		return m
	}
	return defaultMessages[General]
}

func (t Type) Label() string {
	if l, ok := labels[t]; ok {
		return l
	}
	return labels[General]
}

type Method string

const (
	MethodEmail      Method = "email"
	MethodSystemOnly Method = "system_only"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Alert is a notification about a student, optionally emailed to the parent.
type Alert struct {
	ID            string     `db:"id" json:"id"`
	StudentID     string     `db:"student_id" json:"student_id"`
	StudentName   string     `db:"student_name" json:"student_name"`
	Type          Type       `db:"type" json:"type"`
	Message       string     `db:"message" json:"message"`
	ParentEmail   string     `db:"parent_email" json:"parent_email"`
	CreatedBy     string     `db:"created_by" json:"created_by"`
	CreatedByName string     `db:"created_by_name" json:"created_by_name"`
	Method        Method     `db:"method" json:"method"`
	Status        Status     `db:"status" json:"status"`
	AutoGenerated bool       `db:"auto_generated" json:"auto_generated"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"` // UTC
	SentAt        *time.Time `db:"sent_at" json:"sent_at"`       // UTC
}

type SendRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	Type      Type   `json:"type" validate:"omitempty,alerttype"`
	Message   string `json:"message"`
	SendEmail *bool  `json:"send_email"` // default true
}

func (sr *SendRequest) clean() {
	sr.StudentID = core.CleanString(sr.StudentID)
	sr.Message = core.CleanString(sr.Message)
	if sr.Type == "" {
		sr.Type = AttendanceConcern
	}
}

func (sr SendRequest) sendEmail() bool {
	return sr.SendEmail == nil || *sr.SendEmail
}

type SendResult struct {
	Alert     Alert  `json:"alert"`
	EmailSent bool   `json:"email_sent"`
	Warning   string `json:"warning,omitempty"`
}

type BulkSent struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	AlertID     string `json:"alert_id"`
	EmailSent   bool   `json:"email_sent"`
}

type BulkError struct {
	StudentID string `json:"student_id"`
	Error     string `json:"error"`
}

type BulkSummary struct {
	TotalProcessed int `json:"total_processed"`
	Successful     int `json:"successful"`
	Failed         int `json:"failed"`
}

type BulkResult struct {
	SuccessfulAlerts []BulkSent  `json:"successful_alerts"`
	FailedAlerts     []BulkError `json:"failed_alerts"`
	Summary          BulkSummary `json:"summary"`
}

// Filter selects alerts; zero fields are ignored.
type Filter struct {
	StudentID string
	Type      Type
	Status    Status
	Since     time.Time
}

func (f Filter) Matches(a Alert) bool {
	return (f.StudentID == "" || a.StudentID == f.StudentID) &&
		(f.Type == "" || a.Type == f.Type) &&
		(f.Status == "" || a.Status == f.Status) &&
		(f.Since.IsZero() || !a.CreatedAt.Before(f.Since))
}

type HistoryQuery struct {
	StudentID string `query:"student_id"`
	Type      string `query:"type" validate:"omitempty,alerttype"`
	Status    string `query:"status" validate:"omitempty,oneof=pending sent failed"`
	DaysBack  int    `query:"days_back" validate:"omitempty,min=0"`
}

const DefaultHistoryDays = 30

type HistorySummary struct {
	Total   int          `json:"total"`
	Sent    int          `json:"sent"`
	Pending int          `json:"pending"`
	ByType  map[Type]int `json:"by_type"`
}

type History struct {
	Alerts  []Alert        `json:"alerts"`
	Summary HistorySummary `json:"summary"`
}

type StudentRef struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	StudentNumber string `json:"student_id"`
	ParentEmail   string `json:"parent_email"`
}

type StudentAlerts struct {
	Student     StudentRef `json:"student"`
	Alerts      []Alert    `json:"alerts"`
	TotalAlerts int        `json:"total_alerts"`
}

// AutoOptions override the configured auto-generation thresholds when set.
type AutoOptions struct {
	DaysToAnalyze        int `json:"days_to_analyze" validate:"omitempty,min=1,max=365"`
	MinAbsences          int `json:"min_absences" validate:"omitempty,min=1"`
	ConsecutiveThreshold int `json:"consecutive_threshold" validate:"omitempty,min=1"`
}

type AutoParameters struct {
	DaysAnalyzed           int     `json:"days_analyzed"`
	MinAbsencesThreshold   int     `json:"min_absences_threshold"`
	ConsecutiveThreshold   int     `json:"consecutive_threshold"`
	TardinessRateThreshold float64 `json:"tardiness_rate_threshold"`
}

type AutoResult struct {
	GeneratedAlerts    []Alert        `json:"generated_alerts"`
	Errors             []BulkError    `json:"errors"`
	AnalysisParameters AutoParameters `json:"analysis_parameters"`
}

// Configuration describes the alert system settings.
type Configuration struct {
	AlertTypes []Type         `json:"alert_types"`
	Thresholds AutoParameters `json:"thresholds"`
	Email      EmailSettings  `json:"email_settings"`
}

type EmailSettings struct {
	Configured  bool   `json:"configured"`
	SenderEmail string `json:"sender_email"`
}
