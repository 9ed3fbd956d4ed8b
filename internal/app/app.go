package app

import (
	"log/slog"
	"net/http"
	"time"

	"recycle.ecomap.kr/internal/config"
	"recycle.ecomap.kr/internal/ranking"
	"recycle.ecomap.kr/internal/session"
	"recycle.ecomap.kr/internal/source"
)

// SessionTTL is how long an idle two-phase render session is kept.
const SessionTTL = 30 * time.Minute

// Application wires the services behind the HTTP API.
type Application struct {
	ConfigService  *config.ConfigService
	SourceService  *source.SourceService
	RankingService *ranking.RankingService
	Sessions       *session.Store
	Logger         *slog.Logger
	Version        string
}

// New creates and wires all dependencies for the Application.
func New(cfg *config.Config, logger *slog.Logger, client *http.Client, version string) *Application {
	sourceStore := source.NewStore()
	backoffStore := config.NewBackoffStore()

	configService := config.NewConfigService(logger, client, cfg)
	sourceService := source.NewSourceService(sourceStore, backoffStore, logger, client, cfg.CacheDir)
	rankingService := ranking.NewRankingService(logger)

	return &Application{
		ConfigService:  configService,
		SourceService:  sourceService,
		RankingService: rankingService,
		Sessions:       session.NewStore(SessionTTL),
		Logger:         logger,
		Version:        version,
	}
}
