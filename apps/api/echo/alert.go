package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/alert"
)

type alertApi struct {
	svc             *alert.Service
	emailConfigured bool
}

func registerAlertAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *alert.Service, emailConfigured bool) {
	api := alertApi{svc: svc, emailConfigured: emailConfigured}

	ag := g.Group("/alerts", jwt, staffMiddleware())
	ag.GET("", api.history)
	ag.GET("/history", api.history)
	ag.GET("/student/:id", api.forStudent)
	ag.POST("/send", api.send)
	ag.POST("/bulk-send", api.bulkSend)
	ag.POST("/auto-generate", api.autoGenerate)
	ag.GET("/configuration", api.configuration, adminMiddleware())
}

type BulkSendRequest struct {
	Alerts []alert.SendRequest `json:"alerts"`
}

func (api *alertApi) history(ctx echo.Context) error {
	q := alert.HistoryQuery{
		StudentID: ctx.QueryParam("student_id"),
		Type:      ctx.QueryParam("type"),
		Status:    ctx.QueryParam("status"),
	}
	var err error
	if q.DaysBack, err = queryInt(ctx, "days_back"); err != nil {
		return err
	}

	h, err := api.svc.History(ctx.Request().Context(), q)
	if err != nil {
		return errors.Wrap(err, "querying alert history")
	}
	return ctx.JSON(http.StatusOK, h)
}

func (api *alertApi) forStudent(ctx echo.Context) error {
	sa, err := api.svc.ForStudent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying student alerts")
	}
	return ctx.JSON(http.StatusOK, sa)
}

func (api *alertApi) send(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data alert.SendRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SendRequest")
	}

	res, err := api.svc.Send(ctx.Request().Context(), data, actor)
	if err != nil {
		return errors.Wrap(err, "sending alert")
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *alertApi) bulkSend(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data BulkSendRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkSendRequest")
	}
	if len(data.Alerts) == 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "alerts", Error: "at least one alert is required"})
	}

	return ctx.JSON(http.StatusOK, api.svc.BulkSend(ctx.Request().Context(), data.Alerts, actor))
}

func (api *alertApi) autoGenerate(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var opts alert.AutoOptions
	if err := ctx.Bind(&opts); err != nil {
		return errors.Wrap(err, "binding to AutoOptions")
	}

	res, err := api.svc.AutoGenerate(ctx.Request().Context(), opts, actor)
	if err != nil {
		return errors.Wrap(err, "auto-generating alerts")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *alertApi) configuration(ctx echo.Context) error {
	sender := core.Conf.DefaultFromEmail()
	return ctx.JSON(http.StatusOK, api.svc.Configuration(api.emailConfigured, sender.Address))
}
