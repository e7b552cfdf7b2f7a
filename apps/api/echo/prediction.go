package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/prediction"
)

type predictionApi struct {
	svc *prediction.Service
}

func registerPredictionAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *prediction.Service) {
	api := predictionApi{svc: svc}

	pg := g.Group("/predictions", jwt, staffMiddleware())
	pg.POST("/absence", api.absence)
	pg.POST("/batch", api.batch)
	pg.GET("/patterns/unusual", api.unusualPatterns)
	pg.GET("/class/:class_id", api.class)
}

type (
	PredictRequest struct {
		StudentID string `json:"student_id" validate:"required"`
		Date      string `json:"date" validate:"omitempty,isodate"`
	}

	BatchPredictRequest struct {
		StudentIDs []string `json:"student_ids" validate:"required,min=1,dive,required"`
		Date       string   `json:"date" validate:"omitempty,isodate"`
	}
)

// parseOptionalDate returns a zero Date when s is empty.
func parseOptionalDate(field, s string) (core.Date, error) {
	if s == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return d, nil
}

func (api *predictionApi) absence(ctx echo.Context) error {
	var data PredictRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PredictRequest")
	}
	data.StudentID = core.CleanString(data.StudentID)
	data.Date = core.CleanString(data.Date)
	if err := core.Validate.Struct(data); err != nil {
		return err
	}
	date, err := parseOptionalDate("date", data.Date)
	if err != nil {
		return err
	}

	p, err := api.svc.Predict(ctx.Request().Context(), data.StudentID, date)
	if err != nil {
		return errors.Wrap(err, "predicting absence")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *predictionApi) batch(ctx echo.Context) error {
	var data BatchPredictRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BatchPredictRequest")
	}
	data.Date = core.CleanString(data.Date)
	if err := core.Validate.Struct(data); err != nil {
		return err
	}
	date, err := parseOptionalDate("date", data.Date)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, api.svc.Batch(ctx.Request().Context(), data.StudentIDs, date))
}

func (api *predictionApi) unusualPatterns(ctx echo.Context) error {
	var q prediction.PatternQuery
	var err error
	if q.DaysBack, err = queryInt(ctx, "days_back"); err != nil {
		return err
	}
	if q.MinRecords, err = queryInt(ctx, "min_records"); err != nil {
		return err
	}

	res, err := api.svc.UnusualPatterns(ctx.Request().Context(), q)
	if err != nil {
		return errors.Wrap(err, "scanning unusual patterns")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *predictionApi) class(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	res, err := api.svc.ClassPredictions(ctx.Request().Context(), ctx.Param("class_id"), actor)
	if err != nil {
		return errors.Wrap(err, "predicting class risk")
	}
	return ctx.JSON(http.StatusOK, res)
}
