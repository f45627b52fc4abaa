package database

import (
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/nekomata-dev/subdex/pkg/main/logger"
	"github.com/pkg/errors"
)

// DirectoryFlags is the bitmask describing a directory entry.
type DirectoryFlags uint32

const (
	FlagAnime DirectoryFlags = 1 << iota
	FlagLowQuality
	FlagExternal
	FlagMovie
	FlagAdult
)

// Has reports whether every bit in mask is set.
func (f DirectoryFlags) Has(mask DirectoryFlags) bool {
	return f&mask == mask
}

// DirectoryEntry is one hosted series directory.
type DirectoryEntry struct {
	ID            int64          `db:"id"              json:"id"`
	Name          string         `db:"name"            json:"name"`
	JapaneseName  string         `db:"japanese_name"   json:"japanese_name,omitempty"`
	EnglishName   string         `db:"english_name"    json:"english_name,omitempty"`
	AniListID     int64          `db:"anilist_id"      json:"anilist_id,omitempty"`
	TmdbID        string         `db:"tmdb_id"         json:"tmdb_id,omitempty"`
	Flags         DirectoryFlags `db:"flags"           json:"flags"`
	Notes         string         `db:"notes"           json:"notes,omitempty"`
	CreatorID     int64          `db:"creator_id"      json:"creator_id,omitempty"`
	CreatedAt     time.Time      `db:"created_at"      json:"created_at"`
	LastUpdatedAt time.Time      `db:"last_updated_at" json:"last_updated_at"`
}

// EntryFile is one file inside an entry directory, derived from the
// filesystem rather than a table.
type EntryFile struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// GetEntry looks up one directory entry by id.
func GetEntry(id int64) (*DirectoryEntry, error) {
	var entry DirectoryEntry
	err := dbData.Get(&entry,
		"select id, name, japanese_name, english_name, anilist_id, tmdb_id, flags, notes, creator_id, created_at, last_updated_at from directory_entry where id = ?",
		id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, logger.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get entry")
	}
	return &entry, nil
}

// SearchEntries returns entries whose romaji, english or japanese name
// contains the query, newest update first.
func SearchEntries(query string, limit int) ([]DirectoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	like := "%" + query + "%"
	var entries []DirectoryEntry
	err := dbData.Select(&entries,
		"select id, name, japanese_name, english_name, anilist_id, tmdb_id, flags, notes, creator_id, created_at, last_updated_at from directory_entry where name like ? or english_name like ? or japanese_name like ? order by last_updated_at desc limit ?",
		like, like, like, limit)
	if err != nil {
		return nil, errors.Wrap(err, "search entries")
	}
	return entries, nil
}

// GetEntryByAniListID finds the entry bound to an AniList id.
func GetEntryByAniListID(anilistID int64) (*DirectoryEntry, error) {
	var entry DirectoryEntry
	err := dbData.Get(&entry,
		"select id, name, japanese_name, english_name, anilist_id, tmdb_id, flags, notes, creator_id, created_at, last_updated_at from directory_entry where anilist_id = ?",
		anilistID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, logger.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get entry by anilist id")
	}
	return &entry, nil
}

// InsertEntry stores a new directory entry and returns its id.
func InsertEntry(entry *DirectoryEntry) (int64, error) {
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.LastUpdatedAt.IsZero() {
		entry.LastUpdatedAt = now
	}
	res, err := dbData.Exec(
		"insert into directory_entry (name, japanese_name, english_name, anilist_id, tmdb_id, flags, notes, creator_id, created_at, last_updated_at) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		entry.Name, entry.JapaneseName, entry.EnglishName, entry.AniListID, entry.TmdbID,
		entry.Flags, entry.Notes, entry.CreatorID, entry.CreatedAt, entry.LastUpdatedAt)
	if err != nil {
		return 0, errors.Wrap(err, "insert entry")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "insert entry id")
	}
	entry.ID = id
	return id, nil
}

// TouchEntry bumps the last updated stamp after a file level change.
func TouchEntry(id int64) error {
	_, err := dbData.Exec("update directory_entry set last_updated_at = ? where id = ?", time.Now().UTC(), id)
	if err != nil {
		return errors.Wrap(err, "touch entry")
	}
	return nil
}

// DeleteEntry removes a directory entry row. The audit trail keeps its
// rows so the deletion stays traceable.
func DeleteEntry(id int64) error {
	_, err := dbData.Exec("delete from directory_entry where id = ?", id)
	if err != nil {
		return errors.Wrap(err, "delete entry")
	}
	return nil
}

// SanitizeEntryName turns an entry name into the on-disk directory name:
// romanized, reserved characters stripped.
func SanitizeEntryName(name string) string {
	return logger.Path(logger.StringToSlug(name), false)
}

// EntryDir is the storage directory of one entry.
func EntryDir(root string, id int64) string {
	return filepath.Join(root, strconv.FormatInt(id, 10))
}

// ListEntryFiles lists the files of an entry directory, name sorted.
// A missing directory is an empty listing, not an error.
func ListEntryFiles(dir string) ([]EntryFile, error) {
	dirents, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read entry dir")
	}

	files := make([]EntryFile, 0, len(dirents))
	for _, dirent := range dirents {
		if dirent.IsDir() {
			continue
		}
		info, err := dirent.Info()
		if err != nil {
			continue
		}
		files = append(files, EntryFile{
			Name:         dirent.Name(),
			Size:         info.Size(),
			LastModified: info.ModTime().UTC(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}
