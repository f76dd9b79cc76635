// Package telemetry forwards categorised errors to Sentry.
package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/glucoalert/alertcore/internal/conf"
	"github.com/glucoalert/alertcore/internal/errors"
)

// reportedCategories are forwarded; validation-type errors are user input and stay local.
var reportedCategories = map[errors.Category]bool{
	errors.CategoryGeneric:       true,
	errors.CategoryDatabase:      true,
	errors.CategoryConfiguration: true,
	errors.CategoryNetwork:       true,
}

// Init configures the Sentry client and installs the error reporter.
// It is a no-op when telemetry is disabled.
func Init(settings conf.TelemetrySettings, release string) error {
	if !settings.Enabled || settings.DSN == "" {
		return nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.DSN,
		Environment:      settings.Environment,
		Release:          release,
		AttachStacktrace: true,
		SampleRate:       settings.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize sentry: %w", err)
	}
	errors.SetReporter(func(e *errors.EnhancedError) {
		CaptureError(sentry.CurrentHub(), e)
	})
	return nil
}

// CaptureError sends e through hub if its category is reportable.
func CaptureError(hub *sentry.Hub, e *errors.EnhancedError) {
	if hub == nil || !reportedCategories[e.Category()] {
		return
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("category", string(e.Category()))
		if c := e.Component(); c != "" {
			scope.SetTag("component", c)
		}
		if ctx := e.Context(); len(ctx) > 0 {
			scope.SetContext("error", sentry.Context(ctx))
		}
		hub.CaptureException(e.Err)
	})
}

// Flush waits for buffered events and detaches the reporter.
func Flush(timeout time.Duration) {
	errors.SetReporter(nil)
	sentry.Flush(timeout)
}
