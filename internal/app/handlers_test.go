package app

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"recycle.ecomap.kr/internal/models"
	"recycle.ecomap.kr/internal/present"
)

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) present.Response {
	t.Helper()
	var resp present.Response
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp
}

func TestHealthcheckHandler(t *testing.T) {
	app := newTestApplication(t, testCSV)

	rr := httptest.NewRecorder()
	request, err := http.NewRequest(http.MethodGet, "/v1/healthcheck", nil)
	if err != nil {
		t.Fatal(err)
	}
	app.healthcheckHandler(rr, request)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 before the source is loaded, got %d", rr.Code)
	}

	app.LoadDefaultSource(context.Background())

	rr = httptest.NewRecorder()
	app.healthcheckHandler(rr, request)
	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	var resp HealthStatus
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "available" {
		t.Errorf("expected status 'available', got %q", resp.Status)
	}
	if resp.Environment != "testing" {
		t.Errorf("expected environment 'testing', got %q", resp.Environment)
	}
	if resp.Version != "test-version" {
		t.Errorf("expected version 'test-version', got %q", resp.Version)
	}
	if resp.Records != 3 || resp.DroppedRows != 1 {
		t.Errorf("expected 3 records and 1 dropped row, got %d and %d", resp.Records, resp.DroppedRows)
	}
	if !resp.Ready {
		t.Errorf("expected ready true, got false")
	}
}

func TestNearestHandler(t *testing.T) {
	app := newTestApplication(t, testCSV)

	t.Run("default landmark", func(t *testing.T) {
		rr := serve(t, app, httptest.NewRequest(http.MethodGet, "/v1/bins/nearest", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		resp := decodeResponse(t, rr)

		if resp.ReferencePoint.Provenance != models.NamedLandmark || resp.ReferencePoint.Landmark != "서초구청 (기본)" {
			t.Errorf("unexpected reference point %+v", resp.ReferencePoint)
		}
		if len(resp.Results) != 3 {
			t.Fatalf("expected 3 results, got %d", len(resp.Results))
		}
		first := resp.Results[0]
		if first.Name != "서초구청 민원실" || first.DistanceMeters != 0 || first.Label != "서초구청 민원실 (0m)" {
			t.Errorf("unexpected first result %+v", first)
		}
		if resp.Results[1].Name != "양재역 2번 출구" {
			t.Errorf("expected 양재역 2번 출구 second, got %q", resp.Results[1].Name)
		}
		if resp.Results[2].Detail != models.NoDetail {
			t.Errorf("expected detail sentinel, got %q", resp.Results[2].Detail)
		}
		if !strings.HasPrefix(first.Links.KakaoDirections, "https://map.kakao.com/link/to/%EC%") {
			t.Errorf("expected percent-encoded kakao link, got %q", first.Links.KakaoDirections)
		}
		if resp.Dataset.DroppedRows != 1 {
			t.Errorf("expected 1 dropped row, got %d", resp.Dataset.DroppedRows)
		}
	})

	t.Run("landmark", func(t *testing.T) {
		rr := serve(t, app, httptest.NewRequest(http.MethodGet, "/v1/bins/nearest?landmark=%EA%B5%90%EB%8C%80%EC%97%AD", nil))
		resp := decodeResponse(t, rr)
		if resp.ReferencePoint.Landmark != "교대역" || resp.Results[0].Name != "교대역 앞" {
			t.Errorf("expected ranking from 교대역, got %+v", resp)
		}
	})

	t.Run("live coordinate wins over landmark", func(t *testing.T) {
		rr := serve(t, app, httptest.NewRequest(http.MethodGet, "/v1/bins/nearest?lat=37.4841&lng=127.0346&landmark=%EA%B5%90%EB%8C%80%EC%97%AD&top_n=1", nil))
		resp := decodeResponse(t, rr)
		if resp.ReferencePoint.Provenance != models.LiveGeolocation {
			t.Errorf("expected live provenance, got %q", resp.ReferencePoint.Provenance)
		}
		if len(resp.Results) != 1 || resp.Results[0].Name != "양재역 2번 출구" {
			t.Errorf("expected only 양재역 2번 출구, got %+v", resp.Results)
		}
	})

	t.Run("responses are deterministic", func(t *testing.T) {
		a := serve(t, app, httptest.NewRequest(http.MethodGet, "/v1/bins/nearest?lat=37.49&lng=127.02", nil))
		b := serve(t, app, httptest.NewRequest(http.MethodGet, "/v1/bins/nearest?lat=37.49&lng=127.02", nil))
		if !bytes.Equal(a.Body.Bytes(), b.Body.Bytes()) {
			t.Errorf("expected identical bodies:\n%s\n%s", a.Body.String(), b.Body.String())
		}
	})
}

func TestNearestHandlerInvalidParams(t *testing.T) {
	app := newTestApplication(t, testCSV)

	for _, query := range []string{
		"top_n=0",
		"top_n=-3",
		"top_n=five",
		"top_n=1000",
		"lat=37.5",
		"lat=abc&lng=127",
		"lat=95&lng=127",
		"lat=NaN&lng=127",
	} {
		t.Run(query, func(t *testing.T) {
			rr := serve(t, app, httptest.NewRequest(http.MethodGet, "/v1/bins/nearest?"+query, nil))
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
			}
			if resp := decodeError(t, rr); resp.Error != "invalid_parameter" {
				t.Errorf("expected invalid_parameter, got %q", resp.Error)
			}
		})
	}
}

func TestNearestHandlerNoSource(t *testing.T) {
	app := newTestApplication(t, "")

	rr := serve(t, app, httptest.NewRequest(http.MethodGet, "/v1/bins/nearest", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	resp := decodeError(t, rr)
	if resp.Error != "source_unavailable" || !strings.Contains(resp.Message, "default data file not available") {
		t.Errorf("unexpected error body %+v", resp)
	}
}

func uploadRequest(t *testing.T, target, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(data)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestNearestHandlerUpload(t *testing.T) {
	app := newTestApplication(t, "")

	t.Run("uploaded source", func(t *testing.T) {
		csv := "설치장소명,소재지도로명주소,위도,경도\n방배역 1번 출구,서울특별시 서초구 방배로 지하 80,37.481533,126.997637\n"
		rr := serve(t, app, uploadRequest(t, "/v1/bins/nearest", "mine.csv", []byte(csv), map[string]string{"landmark": "방배역"}))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		resp := decodeResponse(t, rr)
		if len(resp.Results) != 1 || resp.Results[0].DistanceMeters != 0 {
			t.Errorf("unexpected results %+v", resp.Results)
		}
		if resp.Results[0].Detail != "상세정보 없음" {
			t.Errorf("expected detail sentinel, got %q", resp.Results[0].Detail)
		}
	})

	t.Run("missing columns", func(t *testing.T) {
		csv := "설치장소명,소재지도로명주소,Latitude,경도\n방배역,주소,37.48,126.99\n"
		rr := serve(t, app, uploadRequest(t, "/v1/bins/nearest", "english.csv", []byte(csv), nil))
		if rr.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rr.Code)
		}
		resp := decodeError(t, rr)
		if resp.Error != "missing_columns" || !strings.Contains(resp.Message, "위도") {
			t.Errorf("unexpected error body %+v", resp)
		}
	})

	t.Run("unreadable encoding", func(t *testing.T) {
		rr := serve(t, app, uploadRequest(t, "/v1/bins/nearest", "broken.csv", []byte("a,b\n\xff\xfe\n"), nil))
		if rr.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rr.Code)
		}
		if resp := decodeError(t, rr); resp.Error != "unreadable_source" {
			t.Errorf("expected unreadable_source, got %q", resp.Error)
		}
	})

	t.Run("quotes inside cells", func(t *testing.T) {
		csv := "설치장소명,소재지도로명주소,위도,경도,상세위치\n방배역 1번 출구,서울특별시 서초구 방배로 지하 80,37.481533,126.997637,정문 앞 \"A\"동\n"
		rr := serve(t, app, uploadRequest(t, "/v1/bins/nearest", "quoted.csv", []byte(csv), nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		if resp := decodeResponse(t, rr); resp.Results[0].Detail != `정문 앞 "A"동` {
			t.Errorf("expected quoted detail, got %q", resp.Results[0].Detail)
		}
	})

	t.Run("malformed table", func(t *testing.T) {
		rr := serve(t, app, uploadRequest(t, "/v1/bins/nearest", "wide.csv", []byte("설치장소명,위도\n방배역,37.48,126.99\n"), nil))
		if rr.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rr.Code)
		}
		if resp := decodeError(t, rr); resp.Error != "malformed_source" {
			t.Errorf("expected malformed_source, got %q", resp.Error)
		}
	})

	t.Run("no file falls back to default source", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/bins/nearest", strings.NewReader("--x--\r\n"))
		req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
		rr := serve(t, app, req)
		if rr.Code != http.StatusServiceUnavailable {
			t.Errorf("expected 503 without a default source, got %d: %s", rr.Code, rr.Body.String())
		}
	})
}

func TestNearestGeoJSONHandler(t *testing.T) {
	app := newTestApplication(t, testCSV)

	rr := serve(t, app, httptest.NewRequest(http.MethodGet, "/v1/bins/nearest.geojson?top_n=2", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/geo+json" {
		t.Errorf("unexpected content type %q", ct)
	}

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Properties map[string]interface{} `json:"properties"`
		} `json:"features"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&fc); err != nil {
		t.Fatalf("failed to decode GeoJSON: %v", err)
	}
	if fc.Type != "FeatureCollection" || len(fc.Features) != 3 {
		t.Fatalf("expected a collection of 3 features, got %q with %d", fc.Type, len(fc.Features))
	}
	if fc.Features[0].Properties["label"] != "내 위치" {
		t.Errorf("expected user marker first, got %v", fc.Features[0].Properties)
	}
}

func TestNearestXLSXHandler(t *testing.T) {
	app := newTestApplication(t, testCSV)

	rr := serve(t, app, httptest.NewRequest(http.MethodGet, "/v1/bins/nearest.xlsx", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	f, err := excelize.OpenReader(rr.Body)
	if err != nil {
		t.Fatalf("response is not a workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetList()[0])
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Errorf("expected header and 3 rows, got %d", len(rows))
	}
}

func TestQRHandler(t *testing.T) {
	app := newTestApplication(t, testCSV)

	rr := serve(t, app, httptest.NewRequest(http.MethodGet, "/v1/navigation/qr?url=https%3A%2F%2Fmap.kakao.com%2Flink%2Froadview%2F37.48%2C127.03&size=128", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("unexpected content type %q", ct)
	}
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("expected a PNG body")
	}

	for _, query := range []string{"", "url=https%3A%2F%2Fexample.com%2F", "url=https%3A%2F%2Fmap.kakao.com%2F&size=big"} {
		rr := serve(t, app, httptest.NewRequest(http.MethodGet, "/v1/navigation/qr?"+query, nil))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("query %q: expected 400, got %d", query, rr.Code)
		}
	}
}

func TestLandmarksHandler(t *testing.T) {
	app := newTestApplication(t, testCSV)

	rr := serve(t, app, httptest.NewRequest(http.MethodGet, "/v1/landmarks", nil))
	var resp struct {
		Landmarks []landmarkView `json:"landmarks"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Landmarks) != 6 {
		t.Fatalf("expected 6 landmarks, got %d", len(resp.Landmarks))
	}
	if !resp.Landmarks[0].Default || resp.Landmarks[0].Name != "서초구청 (기본)" {
		t.Errorf("expected district office as default, got %+v", resp.Landmarks[0])
	}
	for _, lm := range resp.Landmarks[1:] {
		if lm.Default {
			t.Errorf("only one landmark may be default, got %+v", lm)
		}
	}
}

func TestRoutesMiddleware(t *testing.T) {
	app := newTestApplication(t, testCSV)

	rr := serve(t, app, httptest.NewRequest(http.MethodGet, "/v1/unknown", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers on every response")
	}
	if resp := decodeError(t, rr); resp.Error != "not_found" {
		t.Errorf("expected not_found, got %q", resp.Error)
	}
}
