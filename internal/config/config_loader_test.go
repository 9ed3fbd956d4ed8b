package config

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"recycle.ecomap.kr/internal/models"
)

const settingsJSON = `{
	"source_file": "bins.csv",
	"source_url": "https://data.example.com/bins.csv",
	"top_n": 3,
	"data_reference_date": "20250218",
	"default_landmark": "Office",
	"landmarks": [
		{"name": "Office", "latitude": 37.483574, "longitude": 127.032692},
		{"name": "Station", "latitude": 37.498095, "longitude": 127.02761}
	],
	"refresh_interval_minutes": 30
}`

func TestLoadConfigFromFile(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		tmpFile, err := os.CreateTemp(t.TempDir(), "config-*.json")
		if err != nil {
			t.Fatalf("Failed to create temporary file: %v", err)
		}
		if _, err := tmpFile.Write([]byte(settingsJSON)); err != nil {
			t.Fatalf("Failed to write to temporary file: %v", err)
		}
		tmpFile.Close()

		settings, err := loadConfigFromFile(tmpFile.Name())
		if err != nil {
			t.Fatalf("loadConfigFromFile failed: %v", err)
		}

		if settings.SourceFile != "bins.csv" || settings.SourceURL != "https://data.example.com/bins.csv" {
			t.Errorf("Unexpected sources: %+v", settings)
		}
		if settings.TopN != 3 {
			t.Errorf("Expected top_n 3, got %d", settings.TopN)
		}
		if settings.DataReferenceDate == nil || settings.DataReferenceDate.Time().Format("2006-01-02") != "2025-02-18" {
			t.Errorf("Unexpected reference date: %v", settings.DataReferenceDate)
		}
		want := models.Landmark{Name: "Station", Latitude: 37.498095, Longitude: 127.02761}
		if len(settings.Landmarks) != 2 || settings.Landmarks[1] != want {
			t.Errorf("Unexpected landmarks: %+v", settings.Landmarks)
		}
	})

	t.Run("DefaultsTopN", func(t *testing.T) {
		tmpFile, err := os.CreateTemp(t.TempDir(), "config-*.json")
		if err != nil {
			t.Fatalf("Failed to create temporary file: %v", err)
		}
		tmpFile.Write([]byte(`{"source_file": "bins.csv"}`))
		tmpFile.Close()

		settings, err := loadConfigFromFile(tmpFile.Name())
		if err != nil {
			t.Fatalf("loadConfigFromFile failed: %v", err)
		}
		if settings.TopN != DefaultTopN {
			t.Errorf("Expected default top_n %d, got %d", DefaultTopN, settings.TopN)
		}
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		tmpFile, err := os.CreateTemp(t.TempDir(), "invalid-config-*.json")
		if err != nil {
			t.Fatalf("Failed to create temporary file: %v", err)
		}
		tmpFile.Write([]byte(`{ this is not valid JSON }`))
		tmpFile.Close()

		_, err = loadConfigFromFile(tmpFile.Name())
		if err == nil {
			t.Errorf("Expected error with invalid JSON, got none")
		}
	})

	t.Run("NonExistentFile", func(t *testing.T) {
		_, err := LoadConfigFromFile("non-existent-file.json")
		if err == nil {
			t.Errorf("Expected error for non-existent file, got none")
		}
	})
}

func TestLoadConfigFromURL(t *testing.T) {
	client := &http.Client{
		Timeout: 10 * time.Second,
	}
	ctx := context.Background()

	t.Run("ValidResponse", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok || user != "user" || pass != "pass" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(settingsJSON))
		}))
		defer ts.Close()

		settings, err := loadConfigFromURL(ctx, client, ts.URL, "user", "pass", 0)
		if err != nil {
			t.Fatalf("loadConfigFromURL failed: %v", err)
		}
		if settings.DefaultLandmark != "Office" || len(settings.Landmarks) != 2 {
			t.Errorf("Unexpected settings %+v", settings)
		}
	})

	t.Run("ErrorResponse", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer ts.Close()

		_, err := loadConfigFromURL(ctx, client, ts.URL, "", "", 0)
		if err == nil {
			t.Errorf("Expected error with 500 response, got none")
		}
	})

	t.Run("InvalidJSONResponse", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{ this is not valid JSON }`))
		}))
		defer ts.Close()

		_, err := LoadConfigFromURL(ctx, client, ts.URL, "", "", 0)
		if err == nil {
			t.Errorf("Expected error for invalid JSON response, got none")
		}
	})

	t.Run("InvalidURL", func(t *testing.T) {
		_, err := loadConfigFromURL(ctx, client, "://invalid-url", "", "", 0)
		if err == nil || !strings.Contains(err.Error(), "failed to create request") {
			t.Errorf("Expected request creation error, got: %v", err)
		}
	})
}

func TestValidateConfigFlags(t *testing.T) {
	tests := []struct {
		name        string
		configFile  string
		configURL   string
		extraArgs   []string
		expectError bool
	}{
		{"No config", "", "", nil, false},
		{"Valid local config", "config.json", "", nil, false},
		{"Valid remote config", "", "http://example.com/config.json", nil, false},
		{"Both config file and URL", "config.json", "http://example.com/config.json", nil, true},
		{"Config file with extra args", "config.json", "", []string{"extraArg"}, true},
		{"Config URL with extra args", "", "http://example.com/config.json", []string{"extraArg"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(tt.name, flag.ContinueOnError)
			var output bytes.Buffer
			flag.CommandLine.SetOutput(&output)

			configFile := flag.String("config-file", "", "Path to config file")
			configURL := flag.String("config-url", "", "URL to config")

			args := []string{}
			if tt.configFile != "" {
				args = append(args, "--config-file="+tt.configFile)
			}
			if tt.configURL != "" {
				args = append(args, "--config-url="+tt.configURL)
			}
			args = append(args, tt.extraArgs...)

			flag.CommandLine.Parse(args)

			err := ValidateConfigFlags(configFile, configURL)

			if (err != nil) != tt.expectError {
				t.Errorf("Expected error: %v, got: %v", tt.expectError, err)
			}
			if err != nil && !strings.Contains(err.Error(), "only one of --config-file or --config-url") {
				t.Errorf("Unexpected error message: %v", err)
			}
		})
	}
}

func TestRefreshConfig(t *testing.T) {
	cfg := NewConfig(4000, "testing", Settings{SourceFile: "old.csv"})

	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	testLogger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var serverHitCount atomic.Int32
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serverHitCount.Add(1)

		user, pass, hasAuth := r.BasicAuth()
		if hasAuth && (user != "testuser" || pass != "testpass") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintln(w, `{"source_file": "refreshed.csv", "top_n": 7}`)
	}))
	defer mockServer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go refreshConfig(ctx, client, mockServer.URL, "testuser", "testpass", cfg, testLogger, 50*time.Millisecond, 0)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cfg.GetSettings().SourceFile == "refreshed.csv" {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	if serverHitCount.Load() == 0 {
		t.Fatal("Mock server was never called")
	}

	settings := cfg.GetSettings()
	if settings.SourceFile != "refreshed.csv" || settings.TopN != 7 {
		t.Errorf("Config not updated with refreshed settings: %+v", settings)
	}
}

func TestSourceOverrideSurvivesRefresh(t *testing.T) {
	cfg := NewConfig(4000, "testing", Settings{SourceFile: "document.csv"})
	cfg.SetSourceOverride("/data/bins.csv", "")

	if got := cfg.GetSettings().SourceFile; got != "/data/bins.csv" {
		t.Fatalf("Expected override to win over the document, got %q", got)
	}

	var served atomic.Int32
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		served.Add(1)
		fmt.Fprintln(w, `{"source_url": "https://remote.example.com/bins.csv", "top_n": 9}`)
	}))
	defer mockServer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go refreshConfig(ctx, mockServer.Client(), mockServer.URL, "", "", cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), 20*time.Millisecond, 0)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && cfg.GetSettings().TopN != 9 {
		time.Sleep(10 * time.Millisecond)
	}
	if served.Load() == 0 {
		t.Fatal("Mock server was never called")
	}

	settings := cfg.GetSettings()
	if settings.TopN != 9 {
		t.Fatalf("Expected refreshed top_n 9, got %d", settings.TopN)
	}
	if settings.SourceFile != "/data/bins.csv" || settings.SourceURL != "" {
		t.Errorf("Expected the override to survive the refresh, got file=%q url=%q", settings.SourceFile, settings.SourceURL)
	}

	cfg.SetSourceOverride("", "")
	if got := cfg.GetSettings().SourceURL; got != "https://remote.example.com/bins.csv" {
		t.Errorf("Expected the document source once the override is cleared, got %q", got)
	}
}

func TestGetSettingsReturnsCopy(t *testing.T) {
	cfg := NewConfig(4000, "testing", Settings{
		Landmarks: []models.Landmark{{Name: "A", Latitude: 1, Longitude: 2}},
	})

	s := cfg.GetSettings()
	s.Landmarks[0].Name = "changed"

	if cfg.GetSettings().Landmarks[0].Name != "A" {
		t.Error("Expected GetSettings to return an independent copy of landmarks")
	}
	if cfg.GetSettings().TopN != DefaultTopN {
		t.Errorf("Expected NewConfig to normalize top_n, got %d", cfg.GetSettings().TopN)
	}
}
