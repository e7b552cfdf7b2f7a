package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/alert"
	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/class"
	"github.com/trezcool/attendance/core/prediction"
	"github.com/trezcool/attendance/core/report"
	"github.com/trezcool/attendance/core/student"
	"github.com/trezcool/attendance/core/user"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool
		// Shutdown is called when a handler hits an unrecoverable error.
		Shutdown func()
	}

	Deps struct {
		Logger        core.Logger
		UserSvc       *user.Service
		StudentSvc    *student.Service
		ClassSvc      *class.Service
		AttendanceSvc *attendance.Service
		PredictionSvc *prediction.Service
		AlertSvc      *alert.Service
		ReportSvc     *report.Service
		// EmailConfigured tells clients whether alerts can reach parents.
		EmailConfigured bool
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts Options
		deps Deps
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts Options, deps Deps) Server {
	if opts.Shutdown == nil {
		opts.Shutdown = func() {}
	}
	s := &server{
		opts: opts,
		deps: deps,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.opts.Shutdown)
	s.app.Debug = core.Conf.Debug && !core.Conf.TestMode

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerUserAPI(v1, jwt, s.deps.UserSvc)
	registerStudentAPI(v1, jwt, s.deps.StudentSvc)
	registerClassAPI(v1, jwt, s.deps.ClassSvc, s.deps.StudentSvc)
	registerAttendanceAPI(v1, jwt, s.deps.AttendanceSvc, s.deps.ReportSvc)
	registerPredictionAPI(v1, jwt, s.deps.PredictionSvc)
	registerAlertAPI(v1, jwt, s.deps.AlertSvc, s.deps.EmailConfigured)
	registerReportAPI(v1, jwt, s.deps.ReportSvc)
}

func (s *server) Start() error {
	return s.app.Start(s.opts.Address)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the "+core.Conf.AppName+" API!")
}
