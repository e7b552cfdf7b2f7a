package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/alert"
)

var systemActor = core.Actor{Name: "Admin CLI", IsAdmin: true}

// autoAlerts runs the alert auto-generation over all active students.
func (cli *commandLine) autoAlerts(days int) error {
	res, err := cli.alertSvc.AutoGenerate(context.Background(), alert.AutoOptions{DaysToAnalyze: days}, systemActor)
	if err != nil {
		return errors.Wrap(err, "auto-generating alerts")
	}
	for _, a := range res.GeneratedAlerts {
		logger.Printf("%s: %s", a.StudentName, a.Type.Label())
	}
	for _, e := range res.Errors {
		logger.Printf("student %s: %s", e.StudentID, e.Error)
	}
	logger.Printf("%d alerts generated over %d days, %d errors",
		len(res.GeneratedAlerts), res.AnalysisParameters.DaysAnalyzed, len(res.Errors))
	return nil
}
