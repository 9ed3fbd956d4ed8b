package utils

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"recycle.ecomap.kr/internal/report"
)

// CacheFilePrefix returns the file name prefix used for downloads of sourceURL.
func CacheFilePrefix(sourceURL string) string {
	hash := sha1.Sum([]byte(sourceURL))
	return "source_" + hex.EncodeToString(hash[:])
}

// GetLastCachedFile returns the most recently modified file in cacheDir whose
// name starts with prefix.
func GetLastCachedFile(cacheDir string, prefix string) (string, error) {
	files, err := os.ReadDir(cacheDir)
	if err != nil {
		return "", err
	}

	var lastModTime time.Time
	var lastModFile string

	for _, file := range files {
		if !file.IsDir() && strings.HasPrefix(file.Name(), prefix) {
			fileInfo, err := file.Info()
			if err != nil {
				return "", err
			}
			if fileInfo.ModTime().After(lastModTime) {
				lastModTime = fileInfo.ModTime()
				lastModFile = file.Name()
			}
		}
	}

	if lastModFile == "" {
		return "", fmt.Errorf("no cached files found for prefix %s", prefix)
	}

	return filepath.Join(cacheDir, lastModFile), nil
}

// WriteCachedFile stores data as <prefix><ext> in cacheDir, replacing any earlier copy.
// The write goes through a temp file so readers never see a partial download.
func WriteCachedFile(cacheDir, prefix, ext string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(cacheDir, prefix+"-*.tmp")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	path := filepath.Join(cacheDir, prefix+ext)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", err
	}
	return path, nil
}

// CreateCacheDirectory ensures the cache directory exists, creating it if necessary.
func CreateCacheDirectory(cacheDir string, logger *slog.Logger) error {
	stat, err := os.Stat(cacheDir)

	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(cacheDir, os.ModePerm); err != nil {
				report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
					Level: sentry.LevelError,
					ExtraContext: map[string]interface{}{
						"cache_dir": cacheDir,
					},
				})
				return err
			}
			logger.Info("Created cache directory", "cache_dir", cacheDir)
			return nil
		}
		return err

	}
	if !stat.IsDir() {
		err := fmt.Errorf("%s is not a directory", cacheDir)
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Level: sentry.LevelError,
			ExtraContext: map[string]interface{}{
				"cache_dir": cacheDir,
			},
		})
		return err
	}
	return nil
}
