package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"recycle.ecomap.kr/internal/config"
)

const testCSV = "설치장소명,소재지도로명주소,위도,경도,상세위치\n" +
	"양재역 2번 출구,서울특별시 서초구 남부순환로 지하 2585,37.484147,127.034631,출구 옆\n" +
	"교대역 앞,서울특별시 서초구 서초대로 지하 294,37.493968,127.014658,\n" +
	"좌표 누락,서울특별시 서초구 어딘가,,127.01,\n" +
	"서초구청 민원실,서울특별시 서초구 남부순환로 2584,37.483574,127.032692,민원실 입구\n"

// newTestApplication builds an Application whose default source is a temp
// file holding csv.
func newTestApplication(t *testing.T, csv string) *Application {
	t.Helper()

	dir := t.TempDir()
	settings := config.Settings{}
	if csv != "" {
		settings.SourceFile = filepath.Join(dir, "bins.csv")
		if err := os.WriteFile(settings.SourceFile, []byte(csv), 0o644); err != nil {
			t.Fatalf("failed to write source file: %v", err)
		}
	}

	cfg := config.NewConfig(4000, "testing", settings)
	cfg.CacheDir = dir
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(cfg, logger, http.DefaultClient, "test-version")
}

// serve runs req through the full router.
func serve(t *testing.T, app *Application, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rr := httptest.NewRecorder()
	app.Routes(ctx).ServeHTTP(rr, req)
	return rr
}
