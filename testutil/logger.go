package testutil

import (
	"log"
	"testing"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/services/logger"
)

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

// NewLogger logs to t with Rollbar reporting disabled.
func NewLogger(t *testing.T) core.Logger {
	l := logsvc.NewRollbarLogger(log.New(testWriter{t}, "", 0), core.Conf)
	l.Enable(false)
	return l
}
