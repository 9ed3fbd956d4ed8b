package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	"recycle.ecomap.kr/internal/config"
	"recycle.ecomap.kr/internal/utils"
)

// maxSourceBytes bounds a single download. The national dataset is a few MB.
const maxSourceBytes = 64 << 20

func fetchSource(ctx context.Context, client *http.Client, sourceURL string, maxRetries int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := config.DoWithBackoff(ctx, client, req, maxRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to download source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download source, status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read source body: %w", err)
	}
	if len(data) > maxSourceBytes {
		return nil, fmt.Errorf("source exceeds %d bytes", maxSourceBytes)
	}
	return data, nil
}

// storeCachedSource keeps a copy of a download for readCachedSource.
func storeCachedSource(cacheDir, sourceURL string, data []byte) error {
	if cacheDir == "" {
		return nil
	}
	_, err := utils.WriteCachedFile(cacheDir, utils.CacheFilePrefix(sourceURL), cacheExt(sourceURL, data), data)
	return err
}

func readCachedSource(cacheDir, sourceURL string) ([]byte, error) {
	if cacheDir == "" {
		return nil, errors.New("no cache directory")
	}
	file, err := utils.GetLastCachedFile(cacheDir, utils.CacheFilePrefix(sourceURL))
	if err != nil {
		return nil, err
	}
	return os.ReadFile(file)
}

func cacheExt(sourceURL string, data []byte) string {
	if isWorkbook("", data) {
		return ".xlsx"
	}
	if u, err := url.Parse(sourceURL); err == nil {
		if ext := strings.ToLower(path.Ext(u.Path)); ext == ".csv" || ext == ".xlsx" {
			return ext
		}
	}
	return ".csv"
}
