package alert_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/alert"
	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/student"
	"github.com/trezcool/attendance/services/email"
	"github.com/trezcool/attendance/testutil"
)

var now = time.Date(2024, 3, 22, 10, 0, 0, 0, time.UTC)

type brokenMailer struct{}

func (brokenMailer) SendMessages(...*core.EmailMessage)       {}
func (brokenMailer) SendMessage(*core.EmailMessage) error { return errors.New("smtp unavailable") }

type fixture struct {
	env       *testutil.Env
	svc       *alert.Service
	mail      *emailsvc.ConsoleServiceMock
	withEmail student.Student
	noEmail   student.Student
}

func newFixture(t *testing.T, mailer core.EmailService) fixture {
	env := testutil.NewEnv()
	mock := emailsvc.NewConsoleServiceMock()
	if mailer == nil {
		mailer = mock
	}
	svc := alert.NewService(alert.Deps{
		Repo:       env.Repos.Alerts,
		Students:   env.Students,
		Attendance: env.Attendance,
		Mail:       mailer,
		Logger:     testutil.NewLogger(t),
		School:     core.SchoolConfig{Name: "Test High", Phone: "555-0100"},
		Conf:       core.Conf.Alerts,
	})
	svc.SetNow(testutil.Fixed(now))

	return fixture{
		env:  env,
		svc:  svc,
		mail: mock,
		withEmail: testutil.CreateStudent(t, env.Repos.Students, student.Student{
			FirstName: "Paula", LastName: "Parent", ParentEmail: "mom@test.cd",
		}),
		noEmail: testutil.CreateStudent(t, env.Repos.Students, student.Student{FirstName: "Olly", LastName: "Orphan"}),
	}
}

func boolPtr(b bool) *bool { return &b }

func TestService_Send(t *testing.T) {
	ctx := context.Background()
	teacher := core.Actor{ID: "t1", Name: "Ms Teacher"}

	t.Run("email sent", func(t *testing.T) {
		f := newFixture(t, nil)
		res, err := f.svc.Send(ctx, alert.SendRequest{StudentID: f.withEmail.ID}, teacher)
		require.NoError(t, err)

		assert.True(t, res.EmailSent)
		assert.Empty(t, res.Warning)
		assert.Equal(t, alert.AttendanceConcern, res.Alert.Type)
		assert.Equal(t, alert.MethodEmail, res.Alert.Method)
		assert.Equal(t, alert.StatusSent, res.Alert.Status)
		assert.NotNil(t, res.Alert.SentAt)
		assert.Equal(t, "Ms Teacher", res.Alert.CreatedByName)

		sent := f.mail.SentMessages()
		require.Len(t, sent, 1)
		assert.Equal(t, "mom@test.cd", sent[0].To[0].Address)
		assert.Equal(t, "attendance_alert", sent[0].TemplateName)
		assert.Contains(t, sent[0].Subject, "Attendance Concern - Paula Parent")
		assert.Contains(t, sent[0].TextContent, alert.AttendanceConcern.DefaultMessage())
		assert.Contains(t, sent[0].TextContent, "Test High")
	})

	t.Run("system only", func(t *testing.T) {
		f := newFixture(t, nil)
		res, err := f.svc.Send(ctx, alert.SendRequest{
			StudentID: f.noEmail.ID,
			Type:      alert.General,
			Message:   "  Field trip form missing  ",
			SendEmail: boolPtr(false),
		}, core.Actor{ID: "t1"})
		require.NoError(t, err)

		assert.False(t, res.EmailSent)
		assert.Equal(t, alert.MethodSystemOnly, res.Alert.Method)
		assert.Equal(t, alert.StatusPending, res.Alert.Status)
		assert.Equal(t, "Field trip form missing", res.Alert.Message)
		assert.Equal(t, "System", res.Alert.CreatedByName)
		assert.Empty(t, f.mail.SentMessages())
	})

	t.Run("email delivery failure", func(t *testing.T) {
		f := newFixture(t, brokenMailer{})
		res, err := f.svc.Send(ctx, alert.SendRequest{StudentID: f.withEmail.ID, Type: alert.TardinessPattern}, teacher)
		require.NoError(t, err)

		assert.False(t, res.EmailSent)
		assert.Equal(t, alert.StatusFailed, res.Alert.Status)
		assert.Nil(t, res.Alert.SentAt)
		assert.NotEmpty(t, res.Warning)
	})

	tests := []struct {
		name  string
		req   func(f fixture) alert.SendRequest
		check func(t *testing.T, err error)
	}{
		{
			name: "no parent email",
			req:  func(f fixture) alert.SendRequest { return alert.SendRequest{StudentID: f.noEmail.ID} },
			check: func(t *testing.T, err error) {
				assert.IsType(t, &core.ValidationError{}, err)
			},
		},
		{
			name: "unknown type",
			req: func(f fixture) alert.SendRequest {
				return alert.SendRequest{StudentID: f.withEmail.ID, Type: "gossip"}
			},
			check: func(t *testing.T, err error) { assert.Error(t, err) },
		},
		{
			name: "unknown student",
			req:  func(fixture) alert.SendRequest { return alert.SendRequest{StudentID: "nope"} },
			check: func(t *testing.T, err error) {
				assert.True(t, core.IsNotFound(err))
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, nil)
			_, err := f.svc.Send(ctx, tc.req(f), teacher)
			tc.check(t, err)
			assert.Empty(t, f.mail.SentMessages())
		})
	}
}

func TestService_BulkSend(t *testing.T) {
	f := newFixture(t, nil)

	res := f.svc.BulkSend(context.Background(), []alert.SendRequest{
		{StudentID: f.withEmail.ID, Type: alert.ExcessiveAbsences},
		{StudentID: f.noEmail.ID, SendEmail: boolPtr(false)},
		{StudentID: "  "},
		{StudentID: "nope"},
	}, core.Actor{ID: "admin", IsAdmin: true})

	require.Len(t, res.SuccessfulAlerts, 2)
	assert.True(t, res.SuccessfulAlerts[0].EmailSent)
	assert.False(t, res.SuccessfulAlerts[1].EmailSent)
	require.Len(t, res.FailedAlerts, 2)
	assert.Equal(t, "unknown", res.FailedAlerts[0].StudentID)
	assert.Equal(t, "nope", res.FailedAlerts[1].StudentID)
	assert.Equal(t, alert.BulkSummary{TotalProcessed: 4, Successful: 2, Failed: 2}, res.Summary)
}

func TestService_History(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	by := core.Actor{ID: "t1"}

	_, err := f.svc.Send(ctx, alert.SendRequest{StudentID: f.withEmail.ID}, by)
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, alert.SendRequest{StudentID: f.noEmail.ID, Type: alert.General, SendEmail: boolPtr(false)}, by)
	require.NoError(t, err)

	tests := []struct {
		name    string
		q       alert.HistoryQuery
		total   int
		sent    int
		pending int
	}{
		{name: "all", total: 2, sent: 1, pending: 1},
		{name: "by status", q: alert.HistoryQuery{Status: "pending"}, total: 1, pending: 1},
		{name: "by type", q: alert.HistoryQuery{Type: "attendance_concern"}, total: 1, sent: 1},
		{name: "by student", q: alert.HistoryQuery{StudentID: f.noEmail.ID}, total: 1, pending: 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h, err := f.svc.History(ctx, tc.q)
			require.NoError(t, err)
			assert.Len(t, h.Alerts, tc.total)
			assert.Equal(t, tc.total, h.Summary.Total)
			assert.Equal(t, tc.sent, h.Summary.Sent)
			assert.Equal(t, tc.pending, h.Summary.Pending)
		})
	}

	t.Run("invalid status", func(t *testing.T) {
		_, err := f.svc.History(ctx, alert.HistoryQuery{Status: "lost"})
		assert.Error(t, err)
	})

	t.Run("for student", func(t *testing.T) {
		sa, err := f.svc.ForStudent(ctx, f.withEmail.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, sa.TotalAlerts)
		assert.Equal(t, "mom@test.cd", sa.Student.ParentEmail)
	})
}

func TestService_AutoGenerate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	repos := f.env.Repos

	const (
		P = attendance.Present
		A = attendance.Absent
		T = attendance.Late
	)
	from := core.NewDate(2024, 3, 12)
	testutil.Mark(t, repos.Attendance, f.withEmail.ID, "c1", from, A, A, A, P, P, P, P, P, P, P)
	testutil.Mark(t, repos.Attendance, f.noEmail.ID, "c1", from, T, T, T, P, P, P, P, P, P, P)
	few := testutil.CreateStudent(t, repos.Students, student.Student{FirstName: "Fay", LastName: "Few"})
	testutil.Mark(t, repos.Attendance, few.ID, "c1", from, A, A, A, A)

	res, err := f.svc.AutoGenerate(ctx, alert.AutoOptions{}, core.Actor{ID: "admin"})
	require.NoError(t, err)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 14, res.AnalysisParameters.DaysAnalyzed)

	byStudent := map[string][]alert.Type{}
	for _, a := range res.GeneratedAlerts {
		assert.True(t, a.AutoGenerated)
		assert.Equal(t, alert.StatusPending, a.Status)
		assert.Equal(t, "Auto-Generated System", a.CreatedByName)
		byStudent[a.StudentID] = append(byStudent[a.StudentID], a.Type)
	}
	assert.Equal(t, []alert.Type{alert.ExcessiveAbsences, alert.ConsecutiveAbsences}, byStudent[f.withEmail.ID])
	assert.Equal(t, []alert.Type{alert.TardinessPattern}, byStudent[f.noEmail.ID])
	assert.NotContains(t, byStudent, few.ID)
	assert.Empty(t, f.mail.SentMessages())

	t.Run("recent alerts are not duplicated", func(t *testing.T) {
		again, err := f.svc.AutoGenerate(ctx, alert.AutoOptions{}, core.Actor{ID: "admin"})
		require.NoError(t, err)
		assert.Empty(t, again.GeneratedAlerts)
	})

	t.Run("stricter options", func(t *testing.T) {
		opts := alert.AutoOptions{MinAbsences: 4, ConsecutiveThreshold: 4}
		params := f.svc.Configuration(false, "").Thresholds
		assert.Equal(t, 3, params.MinAbsencesThreshold)

		res, err := f.svc.AutoGenerate(ctx, opts, core.Actor{ID: "admin"})
		require.NoError(t, err)
		assert.Equal(t, 4, res.AnalysisParameters.MinAbsencesThreshold)
		assert.Empty(t, res.GeneratedAlerts)
	})

	t.Run("invalid options", func(t *testing.T) {
		_, err := f.svc.AutoGenerate(ctx, alert.AutoOptions{DaysToAnalyze: 1000}, core.Actor{})
		assert.Error(t, err)
	})
}
