package main

import (
	"log"
	"os"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/alert"
	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/student"
	"github.com/trezcool/attendance/core/user"
	emailsvc "github.com/trezcool/attendance/services/email"
	logsvc "github.com/trezcool/attendance/services/logger"
	"github.com/trezcool/attendance/storage/database"
	sqlxrepos "github.com/trezcool/attendance/storage/database/sqlx"
)

var logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

func main() {
	conf := core.Conf
	appLogger := logsvc.NewRollbarLogger(logger, conf)
	appLogger.Enable(!conf.Debug)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(err)
	}
	repos := sqlxrepos.NewRepositories(db)

	mailSvc := emailsvc.NewConsoleService(appLogger)
	if conf.SendgridApiKey != "" && !conf.Debug {
		mailSvc = emailsvc.NewSendgridService(appLogger)
	}
	stdSvc := student.NewService(repos.Students, repos.Classes)
	attSvc := attendance.NewService(repos.Attendance, repos.Students, repos.Classes)

	// start CLI
	cli := commandLine{
		db:     db.DB,
		usrSvc: user.NewService(repos.Users, mailSvc),
		alertSvc: alert.NewService(alert.Deps{
			Repo:       repos.Alerts,
			Students:   stdSvc,
			Attendance: attSvc,
			Mail:       mailSvc,
			Logger:     appLogger,
			School:     conf.School,
			Conf:       conf.Alerts,
		}),
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
