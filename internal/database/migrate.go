package database

import (
	"cmp"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"regexp"
	"slices"
	"strconv"

	"campus/internal/middleware"
)

// Migration is one versioned pair of up and down scripts.
type Migration struct {
	Version    int
	Name       string
	UpScript   string
	DownScript string
}

func (m Migration) String() string {
	return fmt.Sprintf("%06d_%s", m.Version, m.Name)
}

//go:embed migrations/*.sql
var migrationFS embed.FS

var migrations []Migration

// upScript matches NNNNNN_name.up.sql. Anything else in the directory is ignored.
var upScript = regexp.MustCompile(`^(\d+)_([A-Za-z0-9_]+)\.up\.sql$`)

func init() {
	if err := RegisterMigrations(migrationFS); err != nil {
		middleware.Logger.Error("embedded migrations are invalid", slog.String("error", err.Error()))
	}
}

// RegisterMigrations replaces the registered set with the scripts under
// migrations/ in fsys.
func RegisterMigrations(fsys fs.FS) error {
	loaded, err := loadMigrations(fsys)
	if err != nil {
		return err
	}
	migrations = loaded
	return nil
}

func readScript(fsys fs.FS, name string) (string, error) {
	b, err := fs.ReadFile(fsys, path.Join("migrations", name))
	if err != nil {
		return "", fmt.Errorf("read migration %s: %w", name, err)
	}
	return string(b), nil
}

// loadMigrations requires every up script to have a matching down script and
// every version to be unique.
func loadMigrations(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var loaded []Migration
	for _, entry := range entries {
		match := upScript.FindStringSubmatch(entry.Name())
		if entry.IsDir() || match == nil {
			continue
		}
		version, err := strconv.Atoi(match[1])
		if err != nil {
			return nil, fmt.Errorf("migration %s: %w", entry.Name(), err)
		}

		m := Migration{Version: version, Name: match[2]}
		if m.UpScript, err = readScript(fsys, entry.Name()); err != nil {
			return nil, err
		}
		if m.DownScript, err = readScript(fsys, match[1]+"_"+match[2]+".down.sql"); err != nil {
			return nil, err
		}
		loaded = append(loaded, m)
	}

	slices.SortFunc(loaded, func(a, b Migration) int { return cmp.Compare(a.Version, b.Version) })
	for i := 1; i < len(loaded); i++ {
		if loaded[i].Version == loaded[i-1].Version {
			return nil, fmt.Errorf("duplicate migration version %06d (%s, %s)",
				loaded[i].Version, loaded[i-1].Name, loaded[i].Name)
		}
	}
	return loaded, nil
}

// GetMigrations returns the registered migrations in version order.
func GetMigrations() []Migration {
	return migrations
}

// GetMigrationByVersion returns the migration with the given version, or nil.
func GetMigrationByVersion(version int) *Migration {
	i, ok := slices.BinarySearchFunc(migrations, version, func(m Migration, v int) int {
		return cmp.Compare(m.Version, v)
	})
	if !ok {
		return nil
	}
	m := migrations[i]
	return &m
}
