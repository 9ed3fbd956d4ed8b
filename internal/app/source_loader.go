package app

import (
	"context"
	"time"
)

// LoadDefaultSource loads the configured source once so the first request does
// not pay for the download. A failure is logged; requests retry the load.
func (app *Application) LoadDefaultSource(ctx context.Context) {
	settings := app.ConfigService.Config.GetSettings()
	if settings.SourceFile == "" && settings.SourceURL == "" {
		app.Logger.Warn("No default bin data source configured; requests must upload one")
		return
	}
	if _, err := app.SourceService.Dataset(ctx, settings.SourceFile, settings.SourceURL); err != nil {
		app.Logger.Warn("Default bin data source not loaded at startup", "error", err)
	}
}

// StartBackgroundJobs starts the remote source refresh and the session janitor.
// Both stop when ctx is done.
func (app *Application) StartBackgroundJobs(ctx context.Context) {
	settings := app.ConfigService.Config.GetSettings()
	if settings.SourceURL != "" {
		interval := time.Duration(settings.RefreshIntervalMinutes) * time.Minute
		if interval <= 0 {
			interval = time.Hour
		}
		go app.SourceService.RefreshSource(ctx, settings.SourceURL, interval)
	}
	go app.Sessions.RunJanitor(ctx, time.Minute, app.Logger)
}
