package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/attendance/apps/api/echo"
	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/report"
	"github.com/trezcool/attendance/testutil"
)

func Test_attendanceApi_mark(t *testing.T) {
	f := setup(t)

	mark := func(studentID, status string) []byte {
		return marshallObj(t, attendance.MarkRequest{StudentID: studentID, ClassID: f.class.ID, Date: "2024-03-18", Status: status})
	}

	f.run(t, []httpTest{
		{name: "auth required", method: http.MethodPost, path: "/v1/attendance/mark", body: mark(f.alice.ID, "present"), wantCode: http.StatusUnauthorized},
		{
			name: "staff only", method: http.MethodPost, path: "/v1/attendance/mark",
			token: f.nobodyToken, body: mark(f.alice.ID, "present"), wantCode: http.StatusForbidden,
		},
		{
			name: "not their class", method: http.MethodPost, path: "/v1/attendance/mark",
			token: f.otherToken, body: mark(f.alice.ID, "present"),
			wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "invalid status", method: http.MethodPost, path: "/v1/attendance/mark",
			token: f.teacherToken, body: mark(f.alice.ID, "sick"), wantCode: http.StatusBadRequest,
		},
		{
			name: "malformed date", method: http.MethodPost, path: "/v1/attendance/mark", token: f.teacherToken,
			body:     marshallObj(t, attendance.MarkRequest{StudentID: f.alice.ID, ClassID: f.class.ID, Date: "18/03/2024", Status: "present"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown student", method: http.MethodPost, path: "/v1/attendance/mark",
			token: f.teacherToken, body: mark("nope", "present"), wantCode: http.StatusNotFound,
		},
	})

	t.Run("upserts", func(t *testing.T) {
		var first, second attendance.Record
		decode(t, f.do(http.MethodPost, "/v1/attendance/mark", f.teacherToken, mark(f.alice.ID, " Late ")), http.StatusCreated, &first)
		assert.Equal(t, attendance.Late, first.Status)
		assert.Equal(t, f.teacher.ID, first.MarkedBy)
		assert.Equal(t, "2024-03-18", first.Date.String())

		decode(t, f.do(http.MethodPost, "/v1/attendance/mark", f.adminToken, mark(f.alice.ID, "present")), http.StatusCreated, &second)
		assert.Equal(t, attendance.Present, second.Status)
		assert.Equal(t, f.admin.ID, second.MarkedBy)

		var recs []attendance.Record
		decode(t, f.do(http.MethodGet, "/v1/attendance?student_id="+f.alice.ID, f.teacherToken), http.StatusOK, &recs)
		assert.Len(t, recs, 1)
	})
}

func Test_attendanceApi_bulkMark(t *testing.T) {
	f := setup(t)

	req := func(statuses ...string) []byte {
		var data BulkMarkRequest
		for i, st := range statuses {
			id := f.alice.ID
			if i%2 == 1 {
				id = f.bob.ID
			}
			data.Records = append(data.Records, attendance.MarkRequest{
				StudentID: id, ClassID: f.class.ID, Date: core.NewDate(2024, 3, 18+i/2).String(), Status: st,
			})
		}
		return marshallObj(t, data)
	}

	t.Run("all marked", func(t *testing.T) {
		var res attendance.BulkResult
		decode(t, f.do(http.MethodPost, "/v1/attendance/bulk-mark", f.teacherToken, req("present", "absent")), http.StatusCreated, &res)
		assert.Len(t, res.Records, 2)
		assert.Empty(t, res.Errors)
	})

	t.Run("partial", func(t *testing.T) {
		var res attendance.BulkResult
		decode(t, f.do(http.MethodPost, "/v1/attendance/bulk-mark", f.teacherToken, req("present", "gone", "late")), http.StatusMultiStatus, &res)
		assert.Len(t, res.Records, 2)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, 1, res.Errors[0].Index)
		assert.Equal(t, f.bob.ID, res.Errors[0].StudentID)
	})

	f.run(t, []httpTest{
		{
			name: "all failed", method: http.MethodPost, path: "/v1/attendance/bulk-mark",
			token: f.teacherToken, body: req("gone", "lost"), wantCode: http.StatusBadRequest,
		},
		{
			name: "empty", method: http.MethodPost, path: "/v1/attendance/bulk-mark",
			token: f.teacherToken, body: []byte(`{"attendance_records": []}`), wantCode: http.StatusBadRequest,
		},
	})
}

func Test_attendanceApi_read(t *testing.T) {
	f := setup(t)
	repo := f.env.Repos.Attendance
	from := core.NewDate(2024, 3, 18)
	const (
		P = attendance.Present
		A = attendance.Absent
		T = attendance.Late
	)
	aliceRecs := testutil.Mark(t, repo, f.alice.ID, f.class.ID, from, P, P, T, P, A)
	testutil.Mark(t, repo, f.bob.ID, f.class.ID, from, A, A, A, P, P)

	t.Run("class day", func(t *testing.T) {
		var resp ClassDayResponse
		decode(t, f.do(http.MethodGet, "/v1/attendance/class/"+f.class.ID+"/date/2024-03-20", f.teacherToken), http.StatusOK, &resp)
		assert.Equal(t, "2024-03-20", resp.Date.String())
		assert.Len(t, resp.Records, 2)

		rec := f.do(http.MethodGet, "/v1/attendance/class/"+f.class.ID+"/date/yesterday", f.teacherToken)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		rec = f.do(http.MethodGet, "/v1/attendance/class/nope/date/2024-03-20", f.teacherToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("history", func(t *testing.T) {
		var resp HistoryResponse
		decode(t, f.do(http.MethodGet, "/v1/attendance/student/"+f.alice.ID+"/history", f.teacherToken), http.StatusOK, &resp)
		require.Len(t, resp.History, 5)
		assert.Equal(t, "2024-03-18", resp.History[0].Date.String())
		assert.Equal(t, 5, resp.Stats.Total)
		assert.Equal(t, 60.0, resp.Stats.AttendanceRate)

		decode(t, f.do(http.MethodGet, "/v1/attendance/student/"+f.alice.ID+"/history?limit=2&end_date=2024-03-21", f.teacherToken), http.StatusOK, &resp)
		require.Len(t, resp.History, 2)
		assert.Equal(t, "2024-03-20", resp.History[0].Date.String())
		assert.Equal(t, 50.0, resp.Stats.TardinessRate)
	})

	t.Run("query filters", func(t *testing.T) {
		var recs []attendance.Record
		decode(t, f.do(http.MethodGet, "/v1/attendance?status=absent&start_date=2024-03-19", f.teacherToken), http.StatusOK, &recs)
		assert.Len(t, recs, 3)

		rec := f.do(http.MethodGet, "/v1/attendance?status=sick", f.teacherToken)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("statistics", func(t *testing.T) {
		var stats report.Statistics
		decode(t, f.do(http.MethodGet, "/v1/attendance/statistics?class_id="+f.class.ID, f.teacherToken), http.StatusOK, &stats)
		assert.Equal(t, 10, stats.Total)
		assert.Equal(t, 5, stats.Present())
		assert.Equal(t, 50.0, stats.AttendanceRate)
		assert.Equal(t, 2, stats.StudentsCount)
	})

	t.Run("update", func(t *testing.T) {
		path := "/v1/attendance/" + aliceRecs[4].ID

		rec := f.do(http.MethodPut, path, f.otherToken, []byte(`{"status": "excused"}`))
		assert.Equal(t, http.StatusForbidden, rec.Code)

		var upd attendance.Record
		decode(t, f.do(http.MethodPut, path, f.teacherToken, []byte(`{"status": "EXCUSED", "notes": "doctor"}`)), http.StatusOK, &upd)
		assert.Equal(t, attendance.Excused, upd.Status)
		assert.Equal(t, "doctor", upd.Notes)

		rec = f.do(http.MethodPut, "/v1/attendance/nope", f.teacherToken, []byte(`{"status": "present"}`))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
