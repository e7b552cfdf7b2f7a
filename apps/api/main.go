package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"

	echoapi "github.com/trezcool/attendance/apps/api/echo"
	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/alert"
	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/class"
	"github.com/trezcool/attendance/core/prediction"
	"github.com/trezcool/attendance/core/report"
	"github.com/trezcool/attendance/core/student"
	"github.com/trezcool/attendance/core/user"
	cachesvc "github.com/trezcool/attendance/services/cache"
	emailsvc "github.com/trezcool/attendance/services/email"
	logsvc "github.com/trezcool/attendance/services/logger"
	"github.com/trezcool/attendance/storage/database"
	sqlxrepos "github.com/trezcool/attendance/storage/database/sqlx"
)

func main() {
	conf := core.Conf

	// =========================================================================
	// Set up Dependencies

	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	dbLogger.Enable(!conf.Debug)

	if err := run(conf, logger, dbLogger); err != nil {
		logger.Fatal(fmt.Sprintf("application error: %v", err), err)
	}
}

func run(conf *core.Config, logger, dbLogger *logsvc.RollbarLogger) error {
	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		return errors.Wrap(err, "provisioning database")
	}
	db, err := database.Open(conf)
	if err != nil {
		return errors.Wrap(err, "setting up database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()
	if err = database.Migrate(db.DB, "up"); err != nil {
		return err
	}
	repos := sqlxrepos.NewRepositories(db)

	// set up services
	var mailSvc core.EmailService
	emailConfigured := conf.SendgridApiKey != ""
	if emailConfigured && !conf.Debug {
		mailSvc = emailsvc.NewSendgridService(logger)
	} else {
		mailSvc = emailsvc.NewConsoleService(logger)
	}

	clsSvc := class.NewService(repos.Classes)
	stdSvc := student.NewService(repos.Students, repos.Classes)
	attSvc := attendance.NewService(repos.Attendance, repos.Students, repos.Classes)

	predDeps := prediction.Deps{
		Attendance: attSvc,
		Students:   stdSvc,
		Classes:    clsSvc,
		Models:     prediction.NewModelCache(modelDir(conf)),
		ModelName:  conf.ML.ModelName,
		Logger:     logger,
	}
	if conf.Redis.Addr != "" {
		client, err := cachesvc.NewClient(context.Background(), conf.Redis)
		if err != nil {
			// predictions still work uncached
			logger.Warn("redis unavailable, prediction cache disabled", err)
		} else {
			defer func() { _ = client.Close() }()
			predDeps.Cache = cachesvc.NewPredictionCache(client, conf.Redis.PredictionTTL)
		}
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(
		echoapi.Options{
			Address:  conf.Server.Address(),
			Shutdown: func() {
				select {
				case shutdown <- syscall.SIGTERM:
				default:
				}
			},
		},
		echoapi.Deps{
			Logger:        logger,
			UserSvc:       user.NewService(repos.Users, mailSvc),
			StudentSvc:    stdSvc,
			ClassSvc:      clsSvc,
			AttendanceSvc: attSvc,
			PredictionSvc: prediction.NewService(predDeps),
			AlertSvc: alert.NewService(alert.Deps{
				Repo:       repos.Alerts,
				Students:   stdSvc,
				Attendance: attSvc,
				Mail:       mailSvc,
				Logger:     logger,
				School:     conf.School,
				Conf:       conf.Alerts,
			}),
			ReportSvc:       report.NewService(attSvc, stdSvc, clsSvc),
			EmailConfigured: emailConfigured,
		},
	)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("API listening on %s", conf.Server.Address()))
		serverErrors <- server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-serverErrors:
		return errors.Wrap(err, "server error")

	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Stop(ctx); err != nil {
			return errors.Wrap(err, "could not stop server gracefully")
		}
	}
	return nil
}

func modelDir(conf *core.Config) string {
	if filepath.IsAbs(conf.ML.ModelDir) || conf.WorkDir == "" {
		return conf.ML.ModelDir
	}
	return filepath.Join(conf.WorkDir, conf.ML.ModelDir)
}
