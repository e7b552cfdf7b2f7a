package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/class"
	"github.com/trezcool/attendance/core/student"
)

type classApi struct {
	svc    *class.Service
	stdSvc *student.Service
}

func registerClassAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *class.Service, stdSvc *student.Service) {
	api := classApi{svc: svc, stdSvc: stdSvc}

	cg := g.Group("/classes", jwt)
	cg.GET("", api.query)
	cg.POST("", api.create, adminMiddleware())
	cg.GET("/teacher/:teacher_id", api.byTeacher)
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update, adminMiddleware())
	cg.GET("/:id/students", api.students)
	cg.POST("/:id/students", api.enroll, staffMiddleware())
	cg.DELETE("/:id/students/:student_id", api.unenroll, staffMiddleware())
}

func (api *classApi) query(ctx echo.Context) error {
	filter := class.QueryFilter{
		Search:    ctx.QueryParam("search"),
		TeacherID: ctx.QueryParam("teacher_id"),
	}
	var err error
	if filter.Grade, err = queryInt(ctx, "grade"); err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	classes, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []class.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *classApi) create(ctx echo.Context) error {
	var data class.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	cls, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *classApi) byTeacher(ctx echo.Context) error {
	classes, err := api.svc.ByTeacher(ctx.Request().Context(), ctx.Param("teacher_id"))
	if err != nil {
		return errors.Wrap(err, "querying teacher classes")
	}
	if classes == nil {
		classes = []class.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *classApi) retrieve(ctx echo.Context) error {
	cls, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) update(ctx echo.Context) error {
	var data class.UpdateClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClass")
	}
	cls, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) students(ctx echo.Context) error {
	students, err := api.stdSvc.ByClass(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying class students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

type EnrollRequest struct {
	StudentID string `json:"student_id" validate:"required"`
}

func (api *classApi) enroll(ctx echo.Context) error {
	var data EnrollRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollRequest")
	}
	data.StudentID = core.CleanString(data.StudentID)
	if err := core.Validate.Struct(data); err != nil {
		return err
	}

	std, err := api.stdSvc.Enroll(ctx.Request().Context(), ctx.Param("id"), data.StudentID)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *classApi) unenroll(ctx echo.Context) error {
	if err := api.stdSvc.Unenroll(ctx.Request().Context(), ctx.Param("id"), ctx.Param("student_id")); err != nil {
		return errors.Wrap(err, "unenrolling student")
	}
	return ctx.NoContent(http.StatusNoContent)
}
