package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/pressly/goose/v3"

	"github.com/rootsreach/rootsreach-backend/pkg/db"
)

// DefaultDir is where new migrations are created on disk.
const DefaultDir = "pkg/migrate/migrations"

// EmbeddedDir is the path of the migrations inside the embedded filesystem.
const EmbeddedDir = "migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Source selects where goose reads migrations from. An empty Dir uses the
// files compiled into the binary.
type Source struct {
	Dir string
}

// prepare points goose at the source and returns the directory to read.
func (s Source) prepare() (string, error) {
	if err := goose.SetDialect(db.DialectPostgres); err != nil {
		return "", fmt.Errorf("set goose dialect: %w", err)
	}
	if s.Dir == "" {
		goose.SetBaseFS(embedded)
		return EmbeddedDir, nil
	}
	goose.SetBaseFS(nil)
	return s.Dir, nil
}

// Run executes a goose command against postgres. sqlite databases are
// auto-migrated from the models instead.
func Run(ctx context.Context, conn *sql.DB, src Source, command string, args ...string) error {
	if conn == nil {
		return fmt.Errorf("db is required")
	}
	dir, err := src.prepare()
	if err != nil {
		return err
	}
	if err := goose.RunContext(ctx, command, conn, dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// MigrateToVersion moves the schema up or down until it sits at target, a
// YYYYMMDDHHMMSS migration version.
func MigrateToVersion(ctx context.Context, conn *sql.DB, src Source, target string) error {
	version, err := strconv.ParseInt(strings.TrimSpace(target), 10, 64)
	if err != nil || version <= 0 {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", target)
	}
	if conn == nil {
		return fmt.Errorf("db is required")
	}
	dir, err := src.prepare()
	if err != nil {
		return err
	}

	current, err := goose.GetDBVersionContext(ctx, conn)
	if err != nil {
		return fmt.Errorf("read db version: %w", err)
	}
	switch {
	case current < version:
		err = goose.UpToContext(ctx, conn, dir, version)
	case current > version:
		err = goose.DownToContext(ctx, conn, dir, version)
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate from %d to %d: %w", current, version, err)
	}
	return nil
}
