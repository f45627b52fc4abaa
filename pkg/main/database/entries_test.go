package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nekomata-dev/subdex/pkg/main/logger"
	"github.com/pkg/errors"
)

func TestDirectoryFlags(t *testing.T) {
	flags := FlagAnime | FlagMovie
	if !flags.Has(FlagAnime) || !flags.Has(FlagMovie) {
		t.Error("expected anime and movie bits set")
	}
	if flags.Has(FlagAdult) {
		t.Error("adult bit must not be set")
	}
	if flags.Has(FlagAnime | FlagAdult) {
		t.Error("Has must require every bit of the mask")
	}
}

func TestSanitizeEntryName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Sousou no Frieren", "sousou-no-frieren"},
		{"Re:Zero kara/Hajimeru", "re-zero-kara-hajimeru"},
		{"Takt Op. Destiny", "takt-op-destiny"},
	}
	for _, tt := range tests {
		if got := SanitizeEntryName(tt.in); got != tt.want {
			t.Errorf("SanitizeEntryName(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestListEntryFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.srt", "a.srt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("sub"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}

	files, err := ListEntryFiles(dir)
	if err != nil {
		t.Fatalf("ListEntryFiles() error = %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files; want 2 (directories skipped)", len(files))
	}
	if files[0].Name != "a.srt" || files[1].Name != "b.srt" {
		t.Errorf("files = %v; want name sorted", files)
	}
	if files[0].Size != 3 {
		t.Errorf("size = %d; want 3", files[0].Size)
	}
}

func TestListEntryFilesMissingDir(t *testing.T) {
	files, err := ListEntryFiles(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("ListEntryFiles() error = %v; want nil for missing dir", err)
	}
	if len(files) != 0 {
		t.Errorf("files = %v; want empty", files)
	}
}

func openTestDB(t *testing.T) {
	t.Helper()
	dbfile := filepath.Join(t.TempDir(), "data.db")
	if err := InitDB(dbfile); err != nil {
		t.Fatalf("InitDB() error = %v", err)
	}
	t.Cleanup(CloseDB)
	if _, err := dbData.Exec(`CREATE TABLE directory_entry (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		japanese_name TEXT NOT NULL DEFAULT '',
		english_name TEXT NOT NULL DEFAULT '',
		anilist_id INTEGER NOT NULL DEFAULT 0,
		tmdb_id TEXT NOT NULL DEFAULT '',
		flags INTEGER NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT '',
		creator_id INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		last_updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
}

func TestDeleteEntry(t *testing.T) {
	openTestDB(t)

	id, err := InsertEntry(&DirectoryEntry{Name: "Sousou no Frieren", Flags: FlagAnime})
	if err != nil {
		t.Fatalf("InsertEntry() error = %v", err)
	}
	if _, err := GetEntry(id); err != nil {
		t.Fatalf("GetEntry() error = %v", err)
	}

	if err := DeleteEntry(id); err != nil {
		t.Fatalf("DeleteEntry() error = %v", err)
	}
	if _, err := GetEntry(id); !errors.Is(err, logger.ErrNotFound) {
		t.Errorf("GetEntry after delete: error = %v; want ErrNotFound", err)
	}
}

func TestGetEntryByAniListID(t *testing.T) {
	openTestDB(t)

	if _, err := InsertEntry(&DirectoryEntry{Name: "Sousou no Frieren", AniListID: 154587}); err != nil {
		t.Fatalf("InsertEntry() error = %v", err)
	}

	entry, err := GetEntryByAniListID(154587)
	if err != nil {
		t.Fatalf("GetEntryByAniListID() error = %v", err)
	}
	if entry.Name != "Sousou no Frieren" {
		t.Errorf("Name = %q; want Sousou no Frieren", entry.Name)
	}
	if _, err := GetEntryByAniListID(1); !errors.Is(err, logger.ErrNotFound) {
		t.Errorf("GetEntryByAniListID(1) error = %v; want ErrNotFound", err)
	}
}

func TestNewAudit(t *testing.T) {
	row, err := NewAudit(7, AuditRename, map[string]int{"success": 3, "failed": 0})
	if err != nil {
		t.Fatalf("NewAudit() error = %v", err)
	}
	if row.EntryID != 7 || row.Action != AuditRename {
		t.Errorf("row = %+v; want entry 7 action rename", row)
	}
	if row.ID == "" {
		t.Error("audit id must be set")
	}
	if row.Data == "" || row.Data == "null" {
		t.Errorf("data = %q; want serialized payload", row.Data)
	}
}
