package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/heydayle/next-gen-ai/internal/config"
	"github.com/heydayle/next-gen-ai/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store implements domain.SessionStore on an embedded SQLite database.
// Every statement runs in its own implicit transaction; there is no
// multi-operation atomicity.
type Store struct {
	db      *sql.DB
	path    string
	table   string
	version uint
}

// NewStore creates a SQLite-backed session store
func NewStore(cfg config.StorageConfig) *Store {
	return &Store{
		path:    cfg.Path,
		table:   cfg.Collection,
		version: cfg.SchemaVersion,
	}
}

// Open opens the database file and brings the schema to the configured
// version. Safe to call more than once; subsequent calls are no-ops.
func (s *Store) Open(ctx context.Context) error {
	if s.db != nil {
		return nil
	}
	if s.path == "" {
		return fmt.Errorf("%w: database file path is required", domain.ErrStoreUnavailable)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		}
	}

	if err := s.migrateSchema(); err != nil {
		return err
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", s.path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	s.db = db
	return nil
}

func (s *Store) migrateSchema() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, "sqlite://"+s.path)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	defer m.Close()

	if err := m.Migrate(s.version); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate schema to version %d: %w", s.version, err)
	}
	return nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

func (s *Store) Add(ctx context.Context, session *domain.ChatSession) (string, error) {
	if s.db == nil {
		return "", domain.ErrNotInitialized
	}

	history, err := json.Marshal(session.History)
	if err != nil {
		return "", fmt.Errorf("failed to marshal history: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO %q (session_id, history, date) VALUES (?, ?, ?)`, s.table)
	_, err = s.db.ExecContext(ctx, query, session.SessionID, string(history), session.Date.UTC().Format(time.RFC3339Nano))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return "", fmt.Errorf("%w: %s", domain.ErrDuplicateKey, session.SessionID)
		}
		return "", fmt.Errorf("failed to add session: %w", err)
	}
	return session.SessionID, nil
}

func (s *Store) Get(ctx context.Context, id string) (*domain.ChatSession, error) {
	if s.db == nil {
		return nil, domain.ErrNotInitialized
	}

	query := fmt.Sprintf(`SELECT session_id, history, date FROM %q WHERE session_id = ?`, s.table)

	var (
		session domain.ChatSession
		history string
		date    string
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(&session.SessionID, &history, &date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if err := scanRecord(&session, history, date); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *Store) GetAll(ctx context.Context) ([]domain.ChatSession, error) {
	if s.db == nil {
		return nil, domain.ErrNotInitialized
	}

	query := fmt.Sprintf(`SELECT session_id, history, date FROM %q`, s.table)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.ChatSession
	for rows.Next() {
		var (
			session domain.ChatSession
			history string
			date    string
		)
		if err := rows.Scan(&session.SessionID, &history, &date); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if err := scanRecord(&session, history, date); err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return sessions, nil
}

// Update upserts by session ID: overwrites the record if present, inserts
// it if absent.
func (s *Store) Update(ctx context.Context, session *domain.ChatSession) error {
	if s.db == nil {
		return domain.ErrNotInitialized
	}

	history, err := json.Marshal(session.History)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %q (session_id, history, date) VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET history = excluded.history, date = excluded.date
	`, s.table)
	_, err = s.db.ExecContext(ctx, query, session.SessionID, string(history), session.Date.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, id string) error {
	if s.db == nil {
		return domain.ErrNotInitialized
	}

	query := fmt.Sprintf(`DELETE FROM %q WHERE session_id = ?`, s.table)
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}

func scanRecord(session *domain.ChatSession, history, date string) error {
	if err := json.Unmarshal([]byte(history), &session.History); err != nil {
		return fmt.Errorf("failed to unmarshal history for %s: %w", session.SessionID, err)
	}
	parsed, err := time.Parse(time.RFC3339Nano, date)
	if err != nil {
		return fmt.Errorf("failed to parse date for %s: %w", session.SessionID, err)
	}
	session.Date = parsed
	return nil
}
