package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/report"
	"github.com/trezcool/attendance/core/student"
	"github.com/trezcool/attendance/testutil"
)

func Test_reportApi(t *testing.T) {
	f := setup(t)
	repo := f.env.Repos.Attendance
	from := core.NewDate(2024, 3, 18)
	testutil.Mark(t, repo, f.alice.ID, f.class.ID, from, attendance.Present, attendance.Present, attendance.Late)
	testutil.Mark(t, repo, f.bob.ID, f.class.ID, from, attendance.Absent, attendance.Absent)

	f.run(t, []httpTest{
		{name: "auth required", path: "/v1/reports/daily", wantCode: http.StatusUnauthorized},
		{name: "staff only", path: "/v1/reports/daily", token: f.nobodyToken, wantCode: http.StatusForbidden},
		{name: "daily bad date", path: "/v1/reports/daily?date=18-03-2024", token: f.teacherToken, wantCode: http.StatusBadRequest},
		{name: "monthly bad month", path: "/v1/reports/monthly?month=13", token: f.teacherToken, wantCode: http.StatusBadRequest},
		{name: "range required", path: "/v1/reports/range", token: f.teacherToken, wantCode: http.StatusBadRequest},
		{
			name: "range reversed", path: "/v1/reports/range?start_date=2024-03-20&end_date=2024-03-18",
			token: f.teacherToken, wantCode: http.StatusBadRequest,
		},
		{name: "student unknown", path: "/v1/reports/student/nope", token: f.teacherToken, wantCode: http.StatusNotFound},
		{name: "student default days_back", path: "/v1/reports/student/" + f.alice.ID + "?days_back=0", token: f.teacherToken, wantCode: http.StatusOK},
		{name: "student days_back too big", path: "/v1/reports/student/" + f.alice.ID + "?days_back=400", token: f.teacherToken, wantCode: http.StatusBadRequest},
	})

	t.Run("daily", func(t *testing.T) {
		var rep report.Daily
		decode(t, f.do(http.MethodGet, "/v1/reports/daily?date=2024-03-19&class_id="+f.class.ID, f.teacherToken), http.StatusOK, &rep)
		require.Len(t, rep.Classes, 1)
		assert.Equal(t, 2, rep.Summary.TotalStudents)
		assert.Equal(t, 1, rep.Summary.Present)
		assert.Equal(t, 1, rep.Summary.Absent)
		assert.Equal(t, 50.0, rep.Summary.AttendanceRate)
	})

	t.Run("weekly", func(t *testing.T) {
		var rep report.Weekly
		decode(t, f.do(http.MethodGet, "/v1/reports/weekly?week_start=2024-03-18", f.teacherToken), http.StatusOK, &rep)
		assert.Len(t, rep.DailyBreakdown, 7)
		require.Len(t, rep.StudentSummaries, 2)
		assert.Equal(t, f.bob.ID, rep.StudentSummaries[0].Student.ID)
		assert.Equal(t, 2, rep.Summary.TotalAbsences)
		assert.Equal(t, 1, rep.Summary.TotalTardiness)
	})

	t.Run("monthly", func(t *testing.T) {
		var rep report.Monthly
		decode(t, f.do(http.MethodGet, "/v1/reports/monthly?year=2024&month=3", f.teacherToken), http.StatusOK, &rep)
		assert.Equal(t, "March", rep.MonthName)
		assert.Equal(t, 5, rep.Summary.TotalRecords)
		assert.Nil(t, rep.Trends)
		require.Len(t, rep.StudentsAtRisk, 2)
	})

	t.Run("range", func(t *testing.T) {
		var rep report.Range
		decode(t, f.do(http.MethodGet, "/v1/reports/range?start_date=2024-03-18&end_date=2024-03-31", f.teacherToken), http.StatusOK, &rep)
		require.Len(t, rep.Days, 3)
		assert.Equal(t, "2024-03-20", rep.Days[0].Date.String())
		assert.Equal(t, 1, rep.Days[0].Late)
	})

	t.Run("student", func(t *testing.T) {
		carol := testutil.CreateStudent(t, f.env.Repos.Students, student.Student{FirstName: "Carol", LastName: "Clark"})
		testutil.Mark(t, repo, carol.ID, f.class.ID, core.Today().AddDays(-2), attendance.Absent, attendance.Absent)

		var rep report.StudentReport
		decode(t, f.do(http.MethodGet, "/v1/reports/student/"+carol.ID+"?days_back=7", f.teacherToken), http.StatusOK, &rep)
		assert.Equal(t, 2, rep.Statistics.TotalDays)
		assert.Len(t, rep.RecentRecords, 2)
		assert.NotEmpty(t, rep.Recommendations)
	})
}
