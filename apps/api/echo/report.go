package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core/report"
)

type reportApi struct {
	svc *report.Service
}

func registerReportAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *report.Service) {
	api := reportApi{svc: svc}

	rg := g.Group("/reports", jwt, staffMiddleware())
	rg.GET("/daily", api.daily)
	rg.GET("/weekly", api.weekly)
	rg.GET("/monthly", api.monthly)
	rg.GET("/range", api.dateRange)
	rg.GET("/student/:id", api.student)
}

func (api *reportApi) daily(ctx echo.Context) error {
	var q report.DailyQuery
	if err := bindQuery(ctx, &q); err != nil {
		return err
	}
	rep, err := api.svc.Daily(ctx.Request().Context(), q)
	if err != nil {
		return errors.Wrap(err, "building daily report")
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *reportApi) weekly(ctx echo.Context) error {
	var q report.WeeklyQuery
	if err := bindQuery(ctx, &q); err != nil {
		return err
	}
	rep, err := api.svc.Weekly(ctx.Request().Context(), q)
	if err != nil {
		return errors.Wrap(err, "building weekly report")
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *reportApi) monthly(ctx echo.Context) error {
	var q report.MonthlyQuery
	if err := bindQuery(ctx, &q); err != nil {
		return err
	}
	rep, err := api.svc.Monthly(ctx.Request().Context(), q)
	if err != nil {
		return errors.Wrap(err, "building monthly report")
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *reportApi) dateRange(ctx echo.Context) error {
	var q report.RangeQuery
	if err := bindQuery(ctx, &q); err != nil {
		return err
	}
	rep, err := api.svc.Range(ctx.Request().Context(), q)
	if err != nil {
		return errors.Wrap(err, "building range report")
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *reportApi) student(ctx echo.Context) error {
	var q report.StudentQuery
	if err := bindQuery(ctx, &q); err != nil {
		return err
	}
	rep, err := api.svc.Student(ctx.Request().Context(), ctx.Param("id"), q)
	if err != nil {
		return errors.Wrap(err, "building student report")
	}
	return ctx.JSON(http.StatusOK, rep)
}
