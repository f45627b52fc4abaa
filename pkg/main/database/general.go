package database

import (
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	_ "github.com/golang-migrate/migrate/v4/database/sqlite3" // sqlite migrate driver
	_ "github.com/golang-migrate/migrate/v4/source/file"      // file migration source
	_ "github.com/mattn/go-sqlite3"                           // sqlite driver
)

var (
	dbData *sqlx.DB

	// DBVersion is the migration version the database was at on startup.
	DBVersion string
)

func checkFile(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}

// InitDB opens the sqlite database at the given path, creating the file
// and its parent directory when missing.
func InitDB(dbfile string) error {
	if !checkFile(dbfile) {
		if err := os.MkdirAll(filepath.Dir(dbfile), 0o755); err != nil {
			return errors.Wrap(err, "create database dir")
		}
		f, err := os.Create(dbfile)
		if err != nil {
			return errors.Wrap(err, "create database file")
		}
		f.Close()
	}

	var err error
	dbData, err = sqlx.Connect("sqlite3", "file:"+dbfile+"?_fk=1&mode=rwc&_mutex=full")
	if err != nil {
		return errors.Wrap(err, "connect database")
	}
	dbData.SetMaxIdleConns(15)
	dbData.SetMaxOpenConns(5)
	return nil
}

// UpgradeDB applies pending schema migrations from ./schema/db.
func UpgradeDB(dbfile string) error {
	m, err := migrate.New(
		"file://./schema/db",
		"sqlite3://"+dbfile+"?_fk=1",
	)
	if err != nil {
		return errors.Wrap(err, "init migrations")
	}

	vers, _, _ := m.Version()
	DBVersion = strconv.Itoa(int(vers))

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "apply migrations")
	}
	return nil
}

// CloseDB closes the database connection if it is open.
func CloseDB() {
	if dbData != nil {
		dbData.DB.Close()
	}
}
