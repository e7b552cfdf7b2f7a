package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/attendance/apps/api/echo"
	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/analytics"
	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/prediction"
	"github.com/trezcool/attendance/testutil"
)

func Test_predictionApi(t *testing.T) {
	f := setup(t)
	repo := f.env.Repos.Attendance
	testutil.Mark(t, repo, f.bob.ID, f.class.ID, core.NewDate(2024, 3, 18), testutil.Repeat(attendance.Absent, 4)...)

	f.run(t, []httpTest{
		{name: "auth required", method: http.MethodPost, path: "/v1/predictions/absence", wantCode: http.StatusUnauthorized},
		{
			name: "staff only", method: http.MethodPost, path: "/v1/predictions/absence",
			token: f.nobodyToken, body: marshallObj(t, PredictRequest{StudentID: f.bob.ID}), wantCode: http.StatusForbidden,
		},
		{
			name: "student required", method: http.MethodPost, path: "/v1/predictions/absence",
			token: f.teacherToken, body: []byte(`{}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "bad date", method: http.MethodPost, path: "/v1/predictions/absence",
			token: f.teacherToken, body: marshallObj(t, PredictRequest{StudentID: f.bob.ID, Date: "tomorrow"}), wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown student", method: http.MethodPost, path: "/v1/predictions/absence",
			token: f.teacherToken, body: marshallObj(t, PredictRequest{StudentID: "nope"}), wantCode: http.StatusNotFound,
		},
		{
			name: "batch needs ids", method: http.MethodPost, path: "/v1/predictions/batch",
			token: f.teacherToken, body: []byte(`{"student_ids": []}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "class of another teacher", path: "/v1/predictions/class/" + f.class.ID,
			token: f.otherToken, wantCode: http.StatusForbidden,
		},
		{name: "unknown class", path: "/v1/predictions/class/nope", token: f.adminToken, wantCode: http.StatusNotFound},
		{name: "patterns bad days_back", path: "/v1/predictions/patterns/unusual?days_back=1000", token: f.teacherToken, wantCode: http.StatusBadRequest},
	})

	t.Run("absence", func(t *testing.T) {
		var p prediction.Prediction
		body := marshallObj(t, PredictRequest{StudentID: f.bob.ID, Date: "2024-03-22"})
		decode(t, f.do(http.MethodPost, "/v1/predictions/absence", f.teacherToken, body), http.StatusOK, &p)
		assert.Equal(t, f.bob.ID, p.StudentID)
		assert.Equal(t, "Bob Brown", p.StudentName)
		assert.Equal(t, "2024-03-22", p.PredictionDate.String())
		assert.Equal(t, analytics.RiskHigh, p.RiskLevel)
		assert.InDelta(t, 1.0, p.Probability, 1e-9)
	})

	t.Run("batch", func(t *testing.T) {
		var res prediction.BatchResult
		body := marshallObj(t, BatchPredictRequest{StudentIDs: []string{f.alice.ID, "nope"}, Date: "2024-03-22"})
		decode(t, f.do(http.MethodPost, "/v1/predictions/batch", f.teacherToken, body), http.StatusOK, &res)
		require.Len(t, res.Predictions, 1)
		assert.Equal(t, f.alice.ID, res.Predictions[0].StudentID)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, prediction.BatchSummary{TotalRequested: 2, SuccessfulPredictions: 1, FailedPredictions: 1}, res.Summary)
	})

	t.Run("class", func(t *testing.T) {
		var res prediction.ClassPredictions
		decode(t, f.do(http.MethodGet, "/v1/predictions/class/"+f.class.ID, f.teacherToken), http.StatusOK, &res)
		assert.Equal(t, f.class.ID, res.ClassID)
		assert.Len(t, res.Predictions, 2)
		assert.Equal(t, 2, res.Summary.TotalStudents)
	})

	t.Run("unusual patterns", func(t *testing.T) {
		recent := core.Today().AddDays(-4)
		testutil.Mark(t, repo, f.alice.ID, f.class.ID, recent, attendance.Present, attendance.Present, attendance.Present)
		testutil.Mark(t, repo, f.bob.ID, f.class.ID, recent, attendance.Absent, attendance.Late, attendance.Absent)

		var res prediction.UnusualPatterns
		decode(t, f.do(http.MethodGet, "/v1/predictions/patterns/unusual?days_back=7&min_records=3", f.teacherToken), http.StatusOK, &res)
		assert.Equal(t, 7, res.AnalysisPeriod.DaysAnalyzed)
		assert.Equal(t, 2, res.Summary.StudentsAnalyzed)
	})
}
