// Package alert notifies parents about attendance concerns and generates alerts
// from attendance patterns.
package alert

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/analytics"
	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/student"
)

var (
	ErrNotFound      = core.NewNotFoundError("alert")
	ErrNoParentEmail = errors.New("no parent email on file for this student")
)

const autoCreatorName = "Auto-Generated System"

type (
	Repository interface {
		CreateAlert(ctx context.Context, a Alert) (Alert, error)
		UpdateAlert(ctx context.Context, a Alert) (Alert, error)
		// QueryAlerts returns matching alerts, newest first.
		QueryAlerts(ctx context.Context, filter Filter) ([]Alert, error)
	}

	Deps struct {
		Repo       Repository
		Students   *student.Service
		Attendance *attendance.Service
		Mail       core.EmailService
		Logger     core.Logger
		School     core.SchoolConfig
		Conf       core.AlertsConfig
	}

	Service struct {
		repo    Repository
		stdSvc  *student.Service
		attSvc  *attendance.Service
		mailSvc core.EmailService
		logger  core.Logger
		school  core.SchoolConfig
		conf    core.AlertsConfig
		nowFunc func() time.Time
	}
)

func NewService(deps Deps) *Service {
	return &Service{
		repo:    deps.Repo,
		stdSvc:  deps.Students,
		attSvc:  deps.Attendance,
		mailSvc: deps.Mail,
		logger:  deps.Logger,
		school:  deps.School,
		conf:    deps.Conf,
		nowFunc: time.Now,
	}
}

func (svc *Service) now() time.Time { return svc.nowFunc().UTC() }

// Send creates an alert and, when requested, emails it to the parent.
// A delivery failure marks the alert failed but is not an error.
func (svc *Service) Send(ctx context.Context, sr SendRequest, by core.Actor) (SendResult, error) {
	sr.clean()
	if err := core.Validate.Struct(sr); err != nil {
		return SendResult{}, err
	}
	std, err := svc.stdSvc.Get(ctx, sr.StudentID)
	if err != nil {
		return SendResult{}, err
	}
	if sr.sendEmail() && std.ParentEmail == "" {
		return SendResult{}, core.NewValidationError(ErrNoParentEmail, core.FieldError{Field: "student_id", Error: ErrNoParentEmail.Error()})
	}
	return svc.send(ctx, std, sr, by)
}

func (svc *Service) send(ctx context.Context, std student.Student, sr SendRequest, by core.Actor) (SendResult, error) {
	a := Alert{
		ID:            uuid.NewString(),
		StudentID:     std.ID,
		StudentName:   std.FullName(),
		Type:          sr.Type,
		Message:       sr.Message,
		ParentEmail:   std.ParentEmail,
		CreatedBy:     by.ID,
		CreatedByName: by.Name,
		Method:        MethodSystemOnly,
		Status:        StatusPending,
		CreatedAt:     svc.now(),
	}
	if a.CreatedByName == "" {
		a.CreatedByName = "System"
	}
	if sr.sendEmail() {
		a.Method = MethodEmail
	}

	a, err := svc.repo.CreateAlert(ctx, a)
	if err != nil {
		return SendResult{}, errors.Wrap(err, "creating alert")
	}
	res := SendResult{Alert: a}
	if a.Method != MethodEmail || a.ParentEmail == "" {
		return res, nil
	}

	if err := svc.mailSvc.SendMessage(svc.message(a)); err != nil {
		svc.logger.Error("sending alert email", err)
		a.Status = StatusFailed
		res.Warning = "Alert created but email could not be sent"
	} else {
		sentAt := svc.now()
		a.Status, a.SentAt = StatusSent, &sentAt
		res.EmailSent = true
	}
	if res.Alert, err = svc.repo.UpdateAlert(ctx, a); err != nil {
		return SendResult{}, errors.Wrap(err, "updating alert status")
	}
	return res, nil
}

func (svc *Service) message(a Alert) *core.EmailMessage {
	msg := a.Message
	if msg == "" {
		msg = a.Type.DefaultMessage()
	}
	return &core.EmailMessage{
		To:           []mail.Address{{Name: "Parent/Guardian of " + a.StudentName, Address: a.ParentEmail}},
		Subject:      a.Type.Subject(a.StudentName),
		TemplateName: "attendance_alert",
		TemplateData: map[string]interface{}{
			"Message":     msg,
			"StudentName": a.StudentName,
			"Date":        a.CreatedAt.Format("January 2, 2006"),
			"TypeLabel":   a.Type.Label(),
			"School":      svc.school,
		},
	}
}

// BulkSend sends every request independently.
func (svc *Service) BulkSend(ctx context.Context, reqs []SendRequest, by core.Actor) BulkResult {
	res := BulkResult{SuccessfulAlerts: []BulkSent{}, FailedAlerts: []BulkError{}}
	for _, sr := range reqs {
		sr.clean()
		sent, err := svc.bulkSendOne(ctx, sr, by)
		if err != nil {
			id := sr.StudentID
			if id == "" {
				id = "unknown"
			}
			res.FailedAlerts = append(res.FailedAlerts, BulkError{StudentID: id, Error: err.Error()})
			continue
		}
		res.SuccessfulAlerts = append(res.SuccessfulAlerts, sent)
	}
	res.Summary = BulkSummary{
		TotalProcessed: len(reqs),
		Successful:     len(res.SuccessfulAlerts),
		Failed:         len(res.FailedAlerts),
	}
	return res
}

func (svc *Service) bulkSendOne(ctx context.Context, sr SendRequest, by core.Actor) (BulkSent, error) {
	if err := core.Validate.Struct(sr); err != nil {
		return BulkSent{}, err
	}
	std, err := svc.stdSvc.Get(ctx, sr.StudentID)
	if err != nil {
		return BulkSent{}, err
	}
	sent, err := svc.send(ctx, std, sr, by)
	if err != nil {
		return BulkSent{}, err
	}
	return BulkSent{
		StudentID:   std.ID,
		StudentName: std.FullName(),
		AlertID:     sent.Alert.ID,
		EmailSent:   sent.EmailSent,
	}, nil
}

// History returns the alerts matching q, newest first.
func (svc *Service) History(ctx context.Context, q HistoryQuery) (History, error) {
	if err := core.Validate.Struct(q); err != nil {
		return History{}, err
	}
	if q.DaysBack == 0 {
		q.DaysBack = DefaultHistoryDays
	}
	alerts, err := svc.repo.QueryAlerts(ctx, Filter{
		StudentID: core.CleanString(q.StudentID),
		Type:      Type(q.Type),
		Status:    Status(q.Status),
		Since:     svc.now().AddDate(0, 0, -q.DaysBack),
	})
	if err != nil {
		return History{}, errors.Wrap(err, "querying alerts")
	}

	h := History{Alerts: alerts, Summary: HistorySummary{Total: len(alerts), ByType: map[Type]int{}}}
	for _, a := range alerts {
		switch a.Status {
		case StatusSent:
			h.Summary.Sent++
		case StatusPending:
			h.Summary.Pending++
		}
		h.Summary.ByType[a.Type]++
	}
	return h, nil
}

func (svc *Service) ForStudent(ctx context.Context, studentID string) (StudentAlerts, error) {
	std, err := svc.stdSvc.Get(ctx, studentID)
	if err != nil {
		return StudentAlerts{}, err
	}
	alerts, err := svc.repo.QueryAlerts(ctx, Filter{StudentID: std.ID})
	if err != nil {
		return StudentAlerts{}, errors.Wrap(err, "querying alerts")
	}
	return StudentAlerts{
		Student: StudentRef{
			ID:            std.ID,
			Name:          std.FullName(),
			StudentNumber: std.StudentNumber,
			ParentEmail:   std.ParentEmail,
		},
		Alerts:      alerts,
		TotalAlerts: len(alerts),
	}, nil
}

func (svc *Service) parameters(opts AutoOptions) AutoParameters {
	p := AutoParameters{
		DaysAnalyzed:           svc.conf.DaysToAnalyze,
		MinAbsencesThreshold:   svc.conf.MinAbsences,
		ConsecutiveThreshold:   svc.conf.ConsecutiveThreshold,
		TardinessRateThreshold: svc.conf.TardinessThreshold,
	}
	if opts.DaysToAnalyze > 0 {
		p.DaysAnalyzed = opts.DaysToAnalyze
	}
	if opts.MinAbsences > 0 {
		p.MinAbsencesThreshold = opts.MinAbsences
	}
	if opts.ConsecutiveThreshold > 0 {
		p.ConsecutiveThreshold = opts.ConsecutiveThreshold
	}
	return p
}

// Configuration reports the alert settings.
func (svc *Service) Configuration(emailConfigured bool, sender string) Configuration {
	return Configuration{
		AlertTypes: Types,
		Thresholds: svc.parameters(AutoOptions{}),
		Email:      EmailSettings{Configured: emailConfigured, SenderEmail: sender},
	}
}

// AutoGenerate creates pending alerts for every active student whose recent
// attendance crosses a threshold, unless a similar alert was created recently.
// Per-student failures are collected in the result.
func (svc *Service) AutoGenerate(ctx context.Context, opts AutoOptions, by core.Actor) (AutoResult, error) {
	if err := core.Validate.Struct(opts); err != nil {
		return AutoResult{}, err
	}
	params := svc.parameters(opts)
	res := AutoResult{GeneratedAlerts: []Alert{}, Errors: []BulkError{}, AnalysisParameters: params}

	students, err := svc.stdSvc.Active(ctx)
	if err != nil {
		return AutoResult{}, errors.Wrap(err, "querying students")
	}

	today := core.DateOf(svc.now())
	from := today.AddDays(-params.DaysAnalyzed)
	for _, std := range students {
		alerts, err := svc.autoGenerateFor(ctx, std, from, today, params, by)
		if err != nil {
			svc.logger.Warn(fmt.Sprintf("auto-generating alerts for student %s", std.ID), err)
			res.Errors = append(res.Errors, BulkError{StudentID: std.ID, Error: err.Error()})
		}
		res.GeneratedAlerts = append(res.GeneratedAlerts, alerts...)
	}
	return res, nil
}

func (svc *Service) autoGenerateFor(
	ctx context.Context, std student.Student, from, to core.Date, params AutoParameters, by core.Actor,
) ([]Alert, error) {
	recs, err := svc.attSvc.History(ctx, std.ID, from, to)
	if err != nil {
		return nil, err
	}
	w, err := analytics.NewWindow(recs)
	if err != nil {
		return nil, err
	}
	if w.Len() < svc.conf.MinRecords {
		return nil, nil
	}

	var candidates []Alert
	total := w.Len()
	if absent := w.Count(attendance.Absent); absent >= params.MinAbsencesThreshold {
		candidates = append(candidates, Alert{
			Type:    ExcessiveAbsences,
			Message: fmt.Sprintf("Student has been absent %d times in the last %d days.", absent, params.DaysAnalyzed),
		})
	}
	if streak := w.Streaks().Max; streak >= params.ConsecutiveThreshold {
		candidates = append(candidates, Alert{
			Type:    ConsecutiveAbsences,
			Message: fmt.Sprintf("Student has %d consecutive absences.", streak),
		})
	}
	tardy := w.Count(attendance.Late)
	if rate := analytics.Fraction(tardy, total) * 100; rate > params.TardinessRateThreshold {
		candidates = append(candidates, Alert{
			Type:    TardinessPattern,
			Message: fmt.Sprintf("Student has a high tardiness rate: %.1f%% (%d/%d days).", rate, tardy, total),
		})
	}

	var created []Alert
	for _, a := range candidates {
		recent, err := svc.repo.QueryAlerts(ctx, Filter{
			StudentID: std.ID,
			Type:      a.Type,
			Since:     svc.now().AddDate(0, 0, -svc.dedupeDays(a.Type)),
		})
		if err != nil {
			return created, errors.Wrap(err, "querying recent alerts")
		}
		if len(recent) > 0 {
			continue
		}

		a.ID = uuid.NewString()
		a.StudentID = std.ID
		a.StudentName = std.FullName()
		a.ParentEmail = std.ParentEmail
		a.CreatedBy = by.ID
		a.CreatedByName = autoCreatorName
		a.Method = MethodSystemOnly
		if std.ParentEmail != "" {
			a.Method = MethodEmail
		}
		a.Status = StatusPending
		a.AutoGenerated = true
		a.CreatedAt = svc.now()
		if a, err = svc.repo.CreateAlert(ctx, a); err != nil {
			return created, errors.Wrap(err, "creating alert")
		}
		created = append(created, a)
	}
	return created, nil
}

func (svc *Service) dedupeDays(t Type) int {
	switch t {
	case ExcessiveAbsences:
		return svc.conf.AbsenceDedupeDays
	case ConsecutiveAbsences:
		return svc.conf.StreakDedupeDays
	}
	return svc.conf.TardinessDedupeDays
}
