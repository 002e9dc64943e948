package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/abramin/launchargs/internal/model"
)

// DefaultDir is the history directory created under a project.
const DefaultDir = ".launchargs"

// timeFormat is fixed width so stored timestamps sort chronologically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned when a resolution does not exist.
var ErrNotFound = errors.New("resolution not found")

// Store persists resolution history to SQLite.
type Store struct {
	db     *sql.DB
	dbPath string
	now    func() time.Time
}

// Open creates or opens the history database in dir (history.db).
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	dbPath := filepath.Join(dir, "history.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	st := &Store{
		db:     db,
		dbPath: dbPath,
		now:    func() time.Time { return time.Now().UTC() },
	}
	if err := st.SetMetadata(context.Background(), MetaSchemaVersion, schemaVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("recording schema version: %w", err)
	}
	return st, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DBPath returns the path to the database file.
func (s *Store) DBPath() string {
	return s.dbPath
}

// Clear removes all recorded history. The schema version is kept.
func (s *Store) Clear(ctx context.Context) error {
	statements := []struct {
		table string
		query string
	}{
		{"selectors", "DELETE FROM selectors"},
		{"resolutions", "DELETE FROM resolutions"},
		{"metadata", "DELETE FROM metadata WHERE key != '" + MetaSchemaVersion + "'"},
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt.query); err != nil {
			return fmt.Errorf("clearing table %s: %w", stmt.table, err)
		}
	}
	return nil
}

// Record stores one resolution attempt. args is nil for a failed attempt and
// resErr describes the failure.
func (s *Store) Record(ctx context.Context, req *model.Request, args *model.LaunchArguments, resErr error) error {
	if req == nil {
		return errors.New("recording nil request")
	}
	r := &Resolution{
		ID:        ResolutionID(uuid.NewString()),
		Project:   req.ProjectName,
		Level:     req.TestLevel,
		Kind:      req.TestKind,
		TestNames: req.TestNames,
		CreatedAt: s.now(),
	}
	if args != nil {
		r.MainClass = args.MainClass
		r.ProgramArgs = args.ProgramArguments
	}
	if resErr != nil {
		r.Error = resErr.Error()
	}
	if _, err := s.Insert(ctx, r); err != nil {
		return err
	}
	if req.ProjectName != "" {
		if err := s.SetMetadata(ctx, MetaLastProject, req.ProjectName); err != nil {
			return fmt.Errorf("recording last project: %w", err)
		}
	}
	return nil
}

// Insert stores r and its selectors in one transaction. An empty ID is
// assigned a new UUID.
func (s *Store) Insert(ctx context.Context, r *Resolution) (ResolutionID, error) {
	if r.ID == "" {
		r.ID = ResolutionID(uuid.NewString())
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}

	var programArgs sql.NullString
	if r.ProgramArgs != nil {
		data, err := json.Marshal(r.ProgramArgs)
		if err != nil {
			return "", fmt.Errorf("marshaling program args: %w", err)
		}
		programArgs = sql.NullString{String: string(data), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO resolutions (id, project, level, kind, main_class, program_args, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, string(r.ID), r.Project, r.Level.String(), r.Kind.String(), r.MainClass, programArgs, r.Error,
		r.CreatedAt.Format(timeFormat))
	if err != nil {
		return "", fmt.Errorf("inserting resolution: %w", err)
	}

	for i, name := range r.TestNames {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO selectors (resolution_id, position, handle)
			VALUES (?, ?, ?)
		`, string(r.ID), i, name)
		if err != nil {
			return "", fmt.Errorf("inserting selector %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing resolution: %w", err)
	}
	return r.ID, nil
}

// Recent returns up to limit resolutions, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]*Resolution, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project, level, kind, main_class, program_args, error, created_at
		FROM resolutions
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying resolutions: %w", err)
	}
	defer rows.Close()

	var out []*Resolution
	for rows.Next() {
		r, err := scanResolution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating resolutions: %w", err)
	}

	for _, r := range out {
		if r.TestNames, err = s.selectors(ctx, r.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Get returns one resolution by ID.
func (s *Store) Get(ctx context.Context, id ResolutionID) (*Resolution, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project, level, kind, main_class, program_args, error, created_at
		FROM resolutions WHERE id = ?
	`, string(id))
	r, err := scanResolution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if r.TestNames, err = s.selectors(ctx, r.ID); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) selectors(ctx context.Context, id ResolutionID) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT handle FROM selectors WHERE resolution_id = ? ORDER BY position", string(id))
	if err != nil {
		return nil, fmt.Errorf("querying selectors: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning selector: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResolution(row scanner) (*Resolution, error) {
	var (
		r                                        Resolution
		id, level, createdAt                     string
		project, kind, mainClass, args, errorMsg sql.NullString
	)
	if err := row.Scan(&id, &project, &level, &kind, &mainClass, &args, &errorMsg, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning resolution: %w", err)
	}

	r.ID = ResolutionID(id)
	r.Project = project.String
	r.MainClass = mainClass.String
	r.Error = errorMsg.String

	var err error
	if r.Level, err = model.ParseTestLevel(level); err != nil {
		return nil, fmt.Errorf("resolution %s: %w", id, err)
	}
	if r.Kind, err = model.ParseTestKind(kind.String); err != nil {
		return nil, fmt.Errorf("resolution %s: %w", id, err)
	}
	if args.Valid {
		if err := json.Unmarshal([]byte(args.String), &r.ProgramArgs); err != nil {
			return nil, fmt.Errorf("resolution %s: decoding program args: %w", id, err)
		}
	}
	if r.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return nil, fmt.Errorf("resolution %s: parsing timestamp: %w", id, err)
	}
	return &r, nil
}

// SetMetadata stores a key-value pair in the metadata table.
func (s *Store) SetMetadata(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value)
		VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// GetMetadata retrieves a value from the metadata table. A missing key
// returns an empty value and no error.
func (s *Store) GetMetadata(ctx context.Context, key string) (string, error) {
	var value sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading metadata %s: %w", key, err)
	}
	return value.String, nil
}

// Stats holds statistics about the recorded history.
type Stats struct {
	ResolutionCount int       `json:"resolution_count"`
	FailureCount    int       `json:"failure_count"`
	SelectorCount   int       `json:"selector_count"`
	LastResolvedAt  time.Time `json:"last_resolved_at"`
	LastProject     string    `json:"last_project,omitempty"`
	SchemaVersion   string    `json:"schema_version"`
}

// GetStats returns statistics about the recorded history.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	rows := []struct {
		name  string
		query string
		dest  *int
	}{
		{"resolutions", "SELECT COUNT(*) FROM resolutions", &stats.ResolutionCount},
		{"failures", "SELECT COUNT(*) FROM resolutions WHERE error IS NOT NULL AND error != ''", &stats.FailureCount},
		{"selectors", "SELECT COUNT(*) FROM selectors", &stats.SelectorCount},
	}

	for _, r := range rows {
		if err := s.db.QueryRowContext(ctx, r.query).Scan(r.dest); err != nil {
			return nil, fmt.Errorf("counting %s: %w", r.name, err)
		}
	}

	var last sql.NullString
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(created_at) FROM resolutions").Scan(&last); err != nil {
		return nil, fmt.Errorf("reading last resolution: %w", err)
	}
	if last.Valid {
		stats.LastResolvedAt, _ = time.Parse(timeFormat, last.String)
	}

	var err error
	if stats.LastProject, err = s.GetMetadata(ctx, MetaLastProject); err != nil {
		return nil, err
	}
	if stats.SchemaVersion, err = s.GetMetadata(ctx, MetaSchemaVersion); err != nil {
		return nil, err
	}
	return stats, nil
}
