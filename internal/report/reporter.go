package report

import (
	"os"
	"runtime"

	"github.com/getsentry/sentry-go"
)

// ConfigureScope tags every event with the service, build and host.
func ConfigureScope(env, version string) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTags(map[string]string{
			"service":     "binfinder",
			"env":         env,
			"app_version": version,
			"go_version":  runtime.Version(),
		})
		scope.SetContext("host_info", map[string]interface{}{
			"hostname": hostname,
			"goarch":   runtime.GOARCH,
		})
	})
}

// SetDatasetScope tags later events with the dataset most recently loaded,
// so a ranking failure can be traced to the exact bytes it ran on.
func SetDatasetScope(key, fingerprint, encoding string, records int) {
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("dataset_fingerprint", fingerprint)
		scope.SetContext("dataset", map[string]interface{}{
			"key":      key,
			"encoding": encoding,
			"records":  records,
		})
	})
}

// ReportError reports err at the given level, LevelError when none is given.
func ReportError(err error, levels ...sentry.Level) {
	level := sentry.LevelError
	if len(levels) > 0 {
		level = levels[0]
	}
	ReportErrorWithSentryOptions(err, SentryReportOptions{Level: level})
}

// SentryReportOptions provides optional data for reporting.
type SentryReportOptions struct {
	ExtraContext map[string]interface{}
	Tags         map[string]string
	Level        sentry.Level
}

// ReportErrorWithSentryOptions reports err with tags and context scoped to this event only.
func ReportErrorWithSentryOptions(err error, opts SentryReportOptions) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		if opts.ExtraContext != nil {
			scope.SetContext("extra", opts.ExtraContext)
		}
		scope.SetTags(opts.Tags)
		if opts.Level != "" {
			scope.SetLevel(opts.Level)
		}
		sentry.CaptureException(err)
	})
}

// SourceEvent describes where a bin data source failed.
type SourceEvent struct {
	Source string
	// Stage is one of read, download, decode or validate.
	Stage string
	// Fingerprint of the raw bytes, when they were read.
	Fingerprint string
}

// ReportSourceError reports a failure to load or validate a bin data source.
// Source problems are the operator's to fix, so they go out as warnings.
func ReportSourceError(err error, ev SourceEvent) {
	tags := map[string]string{"source_stage": ev.Stage}
	if ev.Fingerprint != "" {
		tags["source_fingerprint"] = ev.Fingerprint
	}
	ReportErrorWithSentryOptions(err, SentryReportOptions{
		Tags:         tags,
		ExtraContext: map[string]interface{}{"source": ev.Source},
		Level:        sentry.LevelWarning,
	})
}
