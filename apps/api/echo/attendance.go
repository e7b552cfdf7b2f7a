package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/analytics"
	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/report"
)

const defaultHistoryLimit = 30

type attendanceApi struct {
	svc       *attendance.Service
	reportSvc *report.Service
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *attendance.Service, reportSvc *report.Service) {
	api := attendanceApi{svc: svc, reportSvc: reportSvc}

	ag := g.Group("/attendance", jwt)
	ag.GET("", api.query)
	ag.POST("/mark", api.mark, staffMiddleware())
	ag.POST("/bulk-mark", api.bulkMark, staffMiddleware())
	ag.GET("/statistics", api.statistics)
	ag.GET("/class/:class_id/date/:date", api.classDay)
	ag.GET("/student/:id/history", api.history)
	ag.PUT("/:id", api.update, staffMiddleware())
}

type (
	BulkMarkRequest struct {
		Records []attendance.MarkRequest `json:"attendance_records"`
	}

	ClassDayResponse struct {
		ClassID string              `json:"class_id"`
		Date    core.Date           `json:"date"`
		Records []attendance.Record `json:"records"`
	}

	HistoryResponse struct {
		StudentID string              `json:"student_id"`
		History   []attendance.Record `json:"attendance_history"`
		Stats     analytics.Rates     `json:"statistics"`
	}
)

func (api *attendanceApi) mark(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data attendance.MarkRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkRequest")
	}

	rec, err := api.svc.Mark(ctx.Request().Context(), data, actor)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	return ctx.JSON(http.StatusCreated, rec)
}

// bulkMark answers 201 when every record is marked, 207 on partial success and 400 when all fail.
func (api *attendanceApi) bulkMark(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data BulkMarkRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkMarkRequest")
	}
	if len(data.Records) == 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "attendance_records", Error: "at least one record is required"})
	}

	res := api.svc.BulkMark(ctx.Request().Context(), data.Records, actor)
	code := http.StatusCreated
	switch {
	case res.Partial():
		code = http.StatusMultiStatus
	case len(res.Records) == 0:
		code = http.StatusBadRequest
	}
	return ctx.JSON(code, res)
}

func (api *attendanceApi) query(ctx echo.Context) error {
	qp := queryParams(ctx)
	filter, err := qp.Filter()
	if err != nil {
		return err
	}
	recs, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	if recs == nil {
		recs = []attendance.Record{}
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *attendanceApi) statistics(ctx echo.Context) error {
	stats, err := api.reportSvc.Statistics(ctx.Request().Context(), queryParams(ctx))
	if err != nil {
		return errors.Wrap(err, "computing attendance statistics")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *attendanceApi) classDay(ctx echo.Context) error {
	date, err := core.ParseDate(ctx.Param("date"))
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "date", Error: err.Error()})
	}
	classID := ctx.Param("class_id")

	recs, err := api.svc.ClassDay(ctx.Request().Context(), classID, date)
	if err != nil {
		return errors.Wrap(err, "getting class attendance")
	}
	if recs == nil {
		recs = []attendance.Record{}
	}
	return ctx.JSON(http.StatusOK, ClassDayResponse{ClassID: classID, Date: date, Records: recs})
}

// history returns the latest `limit` records of the student, oldest first.
func (api *attendanceApi) history(ctx echo.Context) error {
	from, err := queryDate(ctx, "start_date")
	if err != nil {
		return err
	}
	to, err := queryDate(ctx, "end_date")
	if err != nil {
		return err
	}
	limit, err := queryInt(ctx, "limit")
	if err != nil {
		return err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	studentID := ctx.Param("id")
	recs, err := api.svc.History(ctx.Request().Context(), studentID, from, to)
	if err != nil {
		return errors.Wrap(err, "getting attendance history")
	}
	if classID := ctx.QueryParam("class_id"); classID != "" {
		kept := recs[:0]
		for _, r := range recs {
			if r.ClassID == classID {
				kept = append(kept, r)
			}
		}
		recs = kept
	}
	if len(recs) > limit {
		recs = recs[len(recs)-limit:]
	}
	if recs == nil {
		recs = []attendance.Record{}
	}

	return ctx.JSON(http.StatusOK, HistoryResponse{
		StudentID: studentID,
		History:   recs,
		Stats:     analytics.CalculateRates(recs),
	})
}

func (api *attendanceApi) update(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data attendance.UpdateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRequest")
	}

	rec, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data, actor)
	if err != nil {
		return errors.Wrap(err, "updating attendance")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func queryParams(ctx echo.Context) attendance.QueryParams {
	return attendance.QueryParams{
		StudentID: ctx.QueryParam("student_id"),
		ClassID:   ctx.QueryParam("class_id"),
		Status:    ctx.QueryParam("status"),
		StartDate: ctx.QueryParam("start_date"),
		EndDate:   ctx.QueryParam("end_date"),
	}
}
