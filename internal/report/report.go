// Package report forwards uncaught errors, together with the originating
// request context, to an external error-reporting sink.
package report

import (
	"log/slog"
	"net/http"
)

// Reporter receives errors that escaped every handler.
type Reporter interface {
	Report(err error, req *http.Request)
}

// SlogReporter logs reports through slog. It stands in for a hosted
// error-tracking service in development and tests.
type SlogReporter struct {
	logger *slog.Logger
}

func NewSlogReporter(logger *slog.Logger) *SlogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogReporter{logger: logger}
}

func (r *SlogReporter) Report(err error, req *http.Request) {
	r.logger.Error("uncaught error",
		slog.String("error", err.Error()),
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
	)
}
