package config

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/pelletier/go-toml/v2"
)

var Configfile = "./config/config.toml"

// GeneralConfig holds server wide settings.
type GeneralConfig struct {
	// Listen is the address the HTTP server binds to.
	Listen string `toml:"listen"`
	// APIKey guards every /api route. Empty disables the check.
	APIKey string `toml:"api_key"`
	// StorageRoot is the directory holding one subdirectory per entry.
	StorageRoot string `toml:"storage_root"`
	// DBFile is the sqlite database path.
	DBFile string `toml:"db_file"`

	LogLevel      string `toml:"log_level"`
	LogFileSize   int    `toml:"log_file_size"`
	LogFileCount  uint8  `toml:"log_file_count"`
	LogCompress   bool   `toml:"log_compress"`
	LogColorize   bool   `toml:"log_colorize"`
	LogToFileOnly bool   `toml:"log_to_file_only"`
	TimeFormat    string `toml:"time_format"`
}

// RelationsConfig configures the episode relation table source.
type RelationsConfig struct {
	// URL serves the full relation document.
	URL string `toml:"url"`
	// DateURL serves only the last-modified stamp for cache validation.
	// Empty means revalidation always refetches the full document.
	DateURL string `toml:"date_url"`
	// RefreshCron re-validates the cached table on this schedule.
	RefreshCron string `toml:"refresh_cron"`
	// TimeoutSeconds bounds a single fetch. Defaults to 30.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// MainConfig is the root of the TOML configuration file.
type MainConfig struct {
	General   GeneralConfig   `toml:"general"`
	Relations RelationsConfig `toml:"relations"`
}

var configSnapshot atomic.Pointer[MainConfig]

// LoadCfgDB loads the application configuration from the config file,
// writing a default file first if none exists.
func LoadCfgDB() error {
	if _, err := os.Stat(Configfile); errors.Is(err, os.ErrNotExist) {
		fmt.Println("Config file not found. Creating new config file.")
		WriteCfg()
	}
	cfg, err := Readconfigtoml()
	if err != nil {
		return err
	}
	applyDefaults(cfg)
	configSnapshot.Store(cfg)
	return nil
}

// Readconfigtoml reads and decodes the configuration file specified by
// Configfile. Returns an error if the file cannot be opened or decoded.
func Readconfigtoml() (*MainConfig, error) {
	content, err := os.Open(Configfile)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file '%s': %w", Configfile, err)
	}
	defer content.Close()

	var config MainConfig
	if err := toml.NewDecoder(content).Decode(&config); err != nil {
		return nil, fmt.Errorf("failed to decode TOML config: %w", err)
	}
	return &config, nil
}

// WriteCfg writes a default configuration file to Configfile.
func WriteCfg() {
	cfg := &MainConfig{}
	applyDefaults(cfg)
	os.MkdirAll("./config", 0o755)
	f, err := os.Create(Configfile)
	if err != nil {
		fmt.Println("could not create config file:", err)
		return
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		fmt.Println("could not encode config file:", err)
	}
}

func applyDefaults(cfg *MainConfig) {
	if cfg.General.Listen == "" {
		cfg.General.Listen = ":9090"
	}
	if cfg.General.StorageRoot == "" {
		cfg.General.StorageRoot = "./entries"
	}
	if cfg.General.DBFile == "" {
		cfg.General.DBFile = "./databases/subdex.db"
	}
	if cfg.General.LogLevel == "" {
		cfg.General.LogLevel = "info"
	}
	if cfg.Relations.URL == "" {
		cfg.Relations.URL = "https://raw.githubusercontent.com/erengy/anime-relations/master/anime-relations.txt"
	}
	if cfg.Relations.RefreshCron == "" {
		cfg.Relations.RefreshCron = "0 30 * * * *"
	}
	if cfg.Relations.TimeoutSeconds == 0 {
		cfg.Relations.TimeoutSeconds = 30
	}
}

// GetSettingsGeneral returns the general settings from the current snapshot.
func GetSettingsGeneral() *GeneralConfig {
	return &configSnapshot.Load().General
}

// GetSettingsRelations returns the relation table settings from the current
// snapshot.
func GetSettingsRelations() *RelationsConfig {
	return &configSnapshot.Load().Relations
}

// SetTestSettings installs the given config as the active snapshot. Only used
// by tests.
func SetTestSettings(cfg *MainConfig) {
	applyDefaults(cfg)
	configSnapshot.Store(cfg)
}
