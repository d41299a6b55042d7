package db

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	libsql "github.com/tursodatabase/libsql-client-go/libsql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oxhq/clicov/models"
)

// Connect opens the run-history store and migrates the runs table. The DSN
// is a local SQLite path, or a libsql/http(s) URL for a hosted database with
// CLICOV_LIBSQL_AUTH_TOKEN supplying the auth token.
func Connect(dsn string, debug bool) (*gorm.DB, error) {
	if !remoteDSN(dsn) && dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	dialector, conn, err := dialectorFor(dsn)
	if err != nil {
		return nil, err
	}

	config := &gorm.Config{}
	if debug {
		config.Logger = logger.Default.LogMode(logger.Info)
	}

	gdb, err := gorm.Open(dialector, config)
	if err != nil {
		if conn != nil {
			conn.Close()
		}
		return nil, fmt.Errorf("opening run-history store: %w", err)
	}

	if sqlDB, err := gdb.DB(); err == nil {
		sqlDB.Exec("PRAGMA foreign_keys = ON")
	}

	if err := Migrate(gdb); err != nil {
		return nil, fmt.Errorf("migrating runs table: %w", err)
	}
	return gdb, nil
}

// dialectorFor picks the gorm dialector for a DSN. Remote DSNs go through a
// libsql connector; anything else is a plain sqlite file (or :memory:).
func dialectorFor(dsn string) (gorm.Dialector, *sql.DB, error) {
	if !remoteDSN(dsn) {
		return sqlite.Open(dsn), nil, nil
	}

	var (
		connector driver.Connector
		err       error
	)
	if token := os.Getenv("CLICOV_LIBSQL_AUTH_TOKEN"); token != "" {
		connector, err = libsql.NewConnector(dsn, libsql.WithAuthToken(token))
	} else {
		connector, err = libsql.NewConnector(dsn)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("libsql connector for %s: %w", dsn, err)
	}

	conn := sql.OpenDB(connector)
	return sqlite.New(sqlite.Config{
		DriverName: "libsql",
		Conn:       conn,
		DSN:        dsn,
	}), conn, nil
}

// remoteDSN reports whether the DSN names a hosted database rather than a
// local file.
func remoteDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "http://") ||
		strings.HasPrefix(dsn, "https://") ||
		strings.HasPrefix(dsn, "libsql")
}

// Migrate runs database migrations.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&models.Run{})
}

// SaveRun persists one analysis run.
func SaveRun(gdb *gorm.DB, run *models.Run) error {
	if run.ID == "" {
		run.ID = models.NewID()
	}
	return gdb.Create(run).Error
}

// RecentRuns returns up to limit runs, newest first.
func RecentRuns(gdb *gorm.DB, limit int) ([]models.Run, error) {
	if limit <= 0 {
		limit = 10
	}
	var runs []models.Run
	err := gdb.Order("created_at DESC").Limit(limit).Find(&runs).Error
	return runs, err
}

// LastRunFor returns the most recent run for a (cliPath, testDir) pair, or
// nil when none exists.
func LastRunFor(gdb *gorm.DB, cliPath, testDir string) (*models.Run, error) {
	var run models.Run
	err := gdb.Where("cli_path = ? AND test_dir = ?", cliPath, testDir).
		Order("created_at DESC").First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// PreviousRun returns the newest run for the same inputs created before run,
// or nil when run is the first for its pair. Used to compute coverage deltas.
func PreviousRun(gdb *gorm.DB, run *models.Run) (*models.Run, error) {
	var prev models.Run
	err := gdb.Where("cli_path = ? AND test_dir = ? AND created_at < ?",
		run.CLIPath, run.TestDir, run.CreatedAt).
		Order("created_at DESC").First(&prev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &prev, nil
}
