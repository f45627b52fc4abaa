package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCfgDBDefaults(t *testing.T) {
	dir := t.TempDir()
	orig := Configfile
	Configfile = filepath.Join(dir, "config.toml")
	defer func() { Configfile = orig }()

	if err := os.WriteFile(Configfile, []byte(`
[general]
listen = ":8080"
api_key = "secret"

[relations]
refresh_cron = "0 0 */6 * * *"
`), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := LoadCfgDB(); err != nil {
		t.Fatalf("LoadCfgDB() error: %v", err)
	}

	general := GetSettingsGeneral()
	if general.Listen != ":8080" {
		t.Errorf("Listen = %q; want %q", general.Listen, ":8080")
	}
	if general.APIKey != "secret" {
		t.Errorf("APIKey = %q; want %q", general.APIKey, "secret")
	}
	if general.DBFile == "" {
		t.Error("DBFile default not applied")
	}

	relations := GetSettingsRelations()
	if relations.RefreshCron != "0 0 */6 * * *" {
		t.Errorf("RefreshCron = %q; want override", relations.RefreshCron)
	}
	if relations.URL == "" {
		t.Error("relations URL default not applied")
	}
	if relations.TimeoutSeconds != 30 {
		t.Errorf("TimeoutSeconds = %d; want 30", relations.TimeoutSeconds)
	}
}

func TestReadconfigtomlMissing(t *testing.T) {
	orig := Configfile
	Configfile = filepath.Join(t.TempDir(), "nope.toml")
	defer func() { Configfile = orig }()

	if _, err := Readconfigtoml(); err == nil {
		t.Error("Readconfigtoml() on missing file should error")
	}
}
