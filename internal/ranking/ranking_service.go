package ranking

import (
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"recycle.ecomap.kr/internal/metrics"
	"recycle.ecomap.kr/internal/models"
	"recycle.ecomap.kr/internal/reference"
	"recycle.ecomap.kr/internal/report"
)

// Request is one ranking invocation. Live and LandmarkKey are both optional.
type Request struct {
	Live        *models.Coordinate
	LandmarkKey string
	TopN        int
}

// Result is the output of one pipeline run. It shares nothing mutable with
// earlier results.
type Result struct {
	Point       models.ReferencePoint
	Entries     []models.RankedEntry
	Fingerprint string
	TotalRows   int
	DroppedRows int
}

type RankingService struct {
	Logger *slog.Logger
}

func NewRankingService(logger *slog.Logger) *RankingService {
	return &RankingService{Logger: logger}
}

// Run resolves the reference point against landmarks and ranks the dataset.
// It is safe to call repeatedly; identical inputs give identical results.
func (rs *RankingService) Run(ds *models.Dataset, landmarks *reference.Table, req Request) (*Result, error) {
	start := time.Now()
	point := landmarks.Resolve(req.Live, req.LandmarkKey)

	entries, err := Rank(point, ds.Records, req.TopN)
	if err != nil {
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags: map[string]string{"provenance": string(point.Provenance)},
			ExtraContext: map[string]interface{}{
				"latitude":    point.Latitude,
				"longitude":   point.Longitude,
				"fingerprint": ds.Fingerprint,
			},
			Level: sentry.LevelError,
		})
		rs.Logger.Error("Failed to rank bins", "provenance", point.Provenance, "error", err)
		return nil, err
	}

	metrics.RankRequests.WithLabelValues(string(point.Provenance)).Inc()
	metrics.RankDuration.Observe(time.Since(start).Seconds())
	rs.Logger.Debug("Ranked bins",
		"provenance", point.Provenance,
		"landmark", point.Landmark,
		"candidates", len(ds.Records),
		"returned", len(entries))

	return &Result{
		Point:       point,
		Entries:     entries,
		Fingerprint: ds.Fingerprint,
		TotalRows:   ds.TotalRows,
		DroppedRows: ds.DroppedRows,
	}, nil
}
