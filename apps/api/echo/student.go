package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core/student"
)

type studentApi struct {
	svc *student.Service
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *student.Service) {
	api := studentApi{svc: svc}

	sg := g.Group("/students", jwt)
	sg.GET("", api.query)
	sg.POST("", api.create, staffMiddleware())
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id", api.update, staffMiddleware())
	sg.DELETE("/:id", api.destroy, adminMiddleware())
}

func (api *studentApi) query(ctx echo.Context) error {
	filter := student.QueryFilter{
		Search:  ctx.QueryParam("search"),
		ClassID: ctx.QueryParam("class_id"),
	}
	var err error
	if filter.Grade, err = queryInt(ctx, "grade"); err != nil {
		return err
	}
	if filter.IsActive, err = queryBool(ctx, "is_active"); err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	students, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	std, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, std)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	std, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting student")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *studentApi) update(ctx echo.Context) error {
	var data student.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	std, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}
