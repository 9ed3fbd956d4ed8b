package config

import (
	"sync"

	"recycle.ecomap.kr/internal/models"
	"recycle.ecomap.kr/internal/utils"
)

// DefaultTopN is the number of nearest bins returned when nothing else is configured.
const DefaultTopN = 5

// Settings is the JSON configuration document, loaded from a file or a URL.
type Settings struct {
	SourceFile string `json:"source_file"`
	SourceURL  string `json:"source_url"`
	TopN       int    `json:"top_n"`
	// DataReferenceDate is the release date stamped on the public dataset.
	DataReferenceDate      *utils.CustomTime `json:"data_reference_date,omitempty"`
	DefaultLandmark        string            `json:"default_landmark"`
	Landmarks              []models.Landmark `json:"landmarks"`
	RefreshIntervalMinutes int               `json:"refresh_interval_minutes"`
}

// Normalize fills unset values with defaults.
func (s *Settings) Normalize() {
	if s.TopN <= 0 {
		s.TopN = DefaultTopN
	}
}

// Config holds all the configuration settings for our application.
type Config struct {
	Port     int
	Env      string
	CacheDir string
	Mu       sync.RWMutex
	Settings Settings

	// source given on the command line; survives settings refreshes
	sourceFileOverride string
	sourceURLOverride  string
}

// NewConfig creates a new instance of a Config struct.
func NewConfig(port int, env string, settings Settings) *Config {
	settings.Normalize()
	return &Config{
		Port:     port,
		Env:      env,
		Settings: settings,
	}
}

// UpdateSettings safely replaces the loaded settings.
func (cfg *Config) UpdateSettings(newSettings Settings) {
	newSettings.Normalize()
	cfg.Mu.Lock()
	defer cfg.Mu.Unlock()
	cfg.Settings = newSettings
}

// SetSourceOverride pins the bin data source to file or url regardless of what
// the configuration document names, now and after every UpdateSettings.
// Both empty removes the override.
func (cfg *Config) SetSourceOverride(file, url string) {
	cfg.Mu.Lock()
	defer cfg.Mu.Unlock()
	cfg.sourceFileOverride = file
	cfg.sourceURLOverride = url
}

// GetSettings safely returns a copy of the settings to avoid
// concurrent modification issues.
func (cfg *Config) GetSettings() Settings {
	cfg.Mu.RLock()
	defer cfg.Mu.RUnlock()
	s := cfg.Settings
	s.Landmarks = append([]models.Landmark(nil), cfg.Settings.Landmarks...)
	if cfg.sourceFileOverride != "" || cfg.sourceURLOverride != "" {
		s.SourceFile = cfg.sourceFileOverride
		s.SourceURL = cfg.sourceURLOverride
	}
	return s
}
