package source

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/getsentry/sentry-go"
	"recycle.ecomap.kr/internal/config"
	"recycle.ecomap.kr/internal/metrics"
	"recycle.ecomap.kr/internal/models"
	"recycle.ecomap.kr/internal/report"
	"recycle.ecomap.kr/internal/utils"
)

// UploadKey is the store slot for sources uploaded along with a request.
const UploadKey = "upload"

var (
	// ErrSourceNotFound is returned when a configured source file does not exist.
	ErrSourceNotFound = errors.New("source not found")
	// ErrNoSource is returned when neither a source file nor a source URL is configured.
	ErrNoSource = errors.New("no bin data source configured")
	// ErrSourceUnavailable is returned when a source URL cannot be downloaded and no cached copy exists.
	ErrSourceUnavailable = errors.New("source unavailable")
)

type SourceService struct {
	Store      *SourceStore
	Backoff    *config.BackoffStore
	Logger     *slog.Logger
	Client     *http.Client
	CacheDir   string
	MaxRetries int
}

func NewSourceService(store *SourceStore, backoff *config.BackoffStore, logger *slog.Logger, client *http.Client, cacheDir string) *SourceService {
	return &SourceService{
		Store:      store,
		Backoff:    backoff,
		Logger:     logger,
		Client:     client,
		CacheDir:   cacheDir,
		MaxRetries: 3,
	}
}

// Fingerprint returns the cache key for raw source bytes.
func Fingerprint(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

// LoadBytes decodes and validates data as the current dataset of key.
// Bytes seen before are served from the cache without being parsed again.
func (ss *SourceService) LoadBytes(key, name string, data []byte) (*models.Dataset, error) {
	return loadBytes(key, name, data, ss.Store, ss.Logger)
}

// LoadFile re-reads path and loads it. An unchanged file is a cache hit.
func (ss *SourceService) LoadFile(path string) (*models.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		report.ReportSourceError(err, report.SourceEvent{Source: path, Stage: "read"})
		ss.Logger.Error("Failed to read bin data source", "source", path, "error", err)
		metrics.ObserveLoad(path, metrics.OutcomeError, 0, 0)
		return nil, err
	}
	return ss.LoadBytes(path, filepath.Base(path), data)
}

// LoadURL downloads url and loads it. When the download fails, the most recent
// cached copy of the same URL is loaded instead, if there is one.
func (ss *SourceService) LoadURL(ctx context.Context, url string) (*models.Dataset, error) {
	data, err := ss.download(ctx, url)
	if err != nil {
		cached, cacheErr := readCachedSource(ss.CacheDir, url)
		if cacheErr != nil {
			report.ReportSourceError(err, report.SourceEvent{Source: url, Stage: "download"})
			ss.Logger.Error("Failed to download bin data source", "source", url, "error", err)
			metrics.ObserveLoad(url, metrics.OutcomeError, 0, 0)
			return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
		}
		ss.Logger.Warn("Download failed, using cached copy", "source", url, "error", err)
		data = cached
	}
	return ss.LoadBytes(url, url, data)
}

// Dataset returns the dataset for the configured source.
//
// A file source is re-read on every call, so edits to the file are picked up and an
// unchanged file costs only a hash. A URL source is downloaded once and afterwards
// kept fresh by RefreshSource.
func (ss *SourceService) Dataset(ctx context.Context, sourceFile, sourceURL string) (*models.Dataset, error) {
	switch {
	case sourceURL != "":
		if ds, ok := ss.Store.Get(sourceURL); ok {
			return ds, nil
		}
		return ss.LoadURL(ctx, sourceURL)
	case sourceFile != "":
		return ss.LoadFile(sourceFile)
	}
	return nil, ErrNoSource
}

// Current returns the dataset last loaded for key without touching the source.
func (ss *SourceService) Current(key string) (*models.Dataset, bool) {
	return ss.Store.Get(key)
}

// RefreshSource periodically downloads url and replaces the cached dataset when
// the content changed. Failed downloads back off per URL.
func (ss *SourceService) RefreshSource(ctx context.Context, url string, interval time.Duration) {
	refreshSource(ctx, ss, url, interval)
}

func (ss *SourceService) download(ctx context.Context, url string) ([]byte, error) {
	data, err := fetchSource(ctx, ss.Client, url, ss.MaxRetries)
	if err != nil {
		return nil, err
	}
	if err := storeCachedSource(ss.CacheDir, url, data); err != nil {
		ss.Logger.Warn("Failed to cache downloaded source", "source", url, "cache_dir", ss.CacheDir, "error", err)
	}
	return data, nil
}

func refreshSource(ctx context.Context, ss *SourceService, url string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			ss.Logger.Info("Stopping source refresh routine", "source", url)
			return
		case now := <-ticker.C:
			if ss.Backoff != nil && ss.Backoff.ShouldSkip(url, now) {
				continue
			}
			data, err := ss.download(ctx, url)
			if err != nil {
				if ss.Backoff != nil {
					ss.Backoff.UpdateBackoff(url)
				}
				report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
					Tags:  utils.Tags("source_url", url, "source_stage", "refresh"),
					Level: sentry.LevelWarning,
				})
				ss.Logger.Error("Failed to refresh bin data source", "source", url, "error", err)
				continue
			}
			if ss.Backoff != nil {
				ss.Backoff.ResetBackoff(url)
			}

			before, _ := ss.Store.Get(url)
			ds, err := ss.LoadBytes(url, url, data)
			if err != nil {
				continue
			}
			if before != nil && before.Fingerprint == ds.Fingerprint {
				ss.Logger.Debug("Bin data source unchanged", "source", url)
			}
		}
	}
}

func loadBytes(key, name string, data []byte, store *SourceStore, logger *slog.Logger) (*models.Dataset, error) {
	fp := Fingerprint(data)
	if ds, ok := store.Lookup(fp); ok {
		store.Set(key, ds)
		metrics.ObserveLoad(key, metrics.OutcomeCacheHit, len(ds.Records), ds.DroppedRows)
		return ds, nil
	}

	result, err := LoadTabular(name, data)
	if err != nil {
		var encErr *UnreadableEncodingError
		if errors.As(err, &encErr) {
			for _, a := range encErr.Attempts {
				metrics.SourceEncodingAttempts.WithLabelValues(a.Encoding).Inc()
			}
		}
		outcome := metrics.OutcomeUnreadableEncoding
		if errors.Is(err, ErrMalformedTable) {
			outcome = metrics.OutcomeMalformed
		}
		metrics.ObserveLoad(key, outcome, 0, 0)
		report.ReportSourceError(err, report.SourceEvent{Source: name, Stage: "decode", Fingerprint: fp})
		logger.Error("Failed to decode bin data source", "source", name, "error", err)
		return nil, err
	}
	for _, a := range result.Attempts {
		metrics.SourceEncodingAttempts.WithLabelValues(a.Encoding).Inc()
		logger.Debug("Encoding attempt failed", "source", name, "encoding", a.Encoding, "error", a.Err)
	}

	validated, err := ValidateTable(result.Table)
	if err != nil {
		metrics.ObserveLoad(key, metrics.OutcomeMissingColumns, 0, 0)
		report.ReportSourceError(err, report.SourceEvent{Source: name, Stage: "validate", Fingerprint: fp})
		logger.Error("Bin data source failed schema validation", "source", name, "error", err)
		return nil, err
	}

	ds := models.NewDataset(fp, name, result.Table.Encoding, validated.Records, validated.TotalRows)
	if ds.DroppedRows > 0 {
		logger.Warn("Dropped rows with unusable coordinates", "source", name, "dropped", ds.DroppedRows, "total", ds.TotalRows)
	}
	store.Set(key, ds)
	report.SetDatasetScope(key, ds.Fingerprint, ds.Encoding, len(ds.Records))
	metrics.ObserveLoad(key, metrics.OutcomeOK, len(ds.Records), ds.DroppedRows)
	logger.Info("Loaded bin data source", "source", name, "encoding", ds.Encoding, "records", len(ds.Records))
	return ds, nil
}
