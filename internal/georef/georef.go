// Package georef is the offline-built administrative-area reference store:
// a sqlite database of place names to bounding boxes, consulted by the
// type identifier (to resolve the "admin" semantic type) and the spatial
// analyzer (to aggregate admin-area bounds into coverage envelopes).
package georef

import (
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/VIDA-NYU/datamart-profiler/internal/profiler/schema"
	"github.com/VIDA-NYU/datamart-profiler/internal/profiler/types"
)

var _ types.AdminResolver = (*Store)(nil)
var _ types.AdminBoundsResolver = (*Store)(nil)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is a sqlite-backed lookup of administrative areas by name.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the reference database at path and
// brings its schema up to the latest migration.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("georef: opening %s: %w", path, err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("georef: applying pragmas: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrateUp() error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("georef: loading migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("georef: sqlite migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("georef: migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("georef: migrating up: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Area is one administrative-area record.
type Area struct {
	Level      int
	Name       string
	ParentName string
	Envelope   schema.Envelope
}

// Upsert inserts area records, used offline by cmd/geobuild. It does not
// deduplicate; callers populating a fresh database should truncate first.
func (s *Store) Upsert(areas []Area) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("georef: begin upsert: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO admin_areas
		(level, name, parent_name, min_lon, max_lat, max_lon, min_lat)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("georef: prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, a := range areas {
		_, err := stmt.Exec(a.Level, a.Name, a.ParentName,
			a.Envelope.MinLon, a.Envelope.MaxLat, a.Envelope.MaxLon, a.Envelope.MinLat)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("georef: inserting area %q: %w", a.Name, err)
		}
	}
	return tx.Commit()
}

// Truncate removes all admin area rows, used by cmd/geobuild before a
// full rebuild.
func (s *Store) Truncate() error {
	_, err := s.db.Exec(`DELETE FROM admin_areas`)
	return err
}

// Resolve implements types.AdminResolver: it looks up each non-empty value
// as an administrative-area name (case-insensitive exact match) and
// reports the most common level among matches, the matched area names,
// and how many input values resolved.
func (s *Store) Resolve(columnName string, values []string) (level int, areas []string, resolved int) {
	levelCounts := make(map[int]int)
	seen := make(map[string]bool)

	for _, v := range values {
		name := strings.TrimSpace(v)
		if name == "" {
			continue
		}
		var matchedLevel int
		var matchedName string
		err := s.db.QueryRow(
			`SELECT level, name FROM admin_areas WHERE name = ? COLLATE NOCASE LIMIT 1`,
			name,
		).Scan(&matchedLevel, &matchedName)
		if err != nil {
			continue
		}
		resolved++
		levelCounts[matchedLevel]++
		if !seen[matchedName] {
			seen[matchedName] = true
			areas = append(areas, matchedName)
		}
	}

	bestCount := -1
	for l, c := range levelCounts {
		if c > bestCount {
			bestCount = c
			level = l
		}
	}
	return level, areas, resolved
}

// Bounds returns the bounding envelope of every area in names, keyed by
// name, used by the spatial analyzer to aggregate admin-column coverage.
// Names with no match are simply absent from the result.
func (s *Store) Bounds(names []string) (map[string]schema.Envelope, error) {
	envs := make(map[string]schema.Envelope, len(names))
	for _, name := range names {
		var e schema.Envelope
		err := s.db.QueryRow(
			`SELECT min_lon, max_lat, max_lon, min_lat FROM admin_areas WHERE name = ? COLLATE NOCASE LIMIT 1`,
			name,
		).Scan(&e.MinLon, &e.MaxLat, &e.MaxLon, &e.MinLat)
		if err != nil {
			continue
		}
		envs[name] = e
	}
	return envs, nil
}
