package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"kiosk-backend/internal/models"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

const queryTimeout = 5 * time.Second

const schema = `
CREATE TABLE IF NOT EXISTS kiosk_sessions (
	id               TEXT PRIMARY KEY,
	created_at       BIGINT NOT NULL,
	citizen_language TEXT NOT NULL,
	status           TEXT NOT NULL DEFAULT 'active',
	transcript       TEXT NOT NULL DEFAULT '',
	summary          TEXT NOT NULL DEFAULT '',
	notes            TEXT NOT NULL DEFAULT '',
	checklist        TEXT NOT NULL DEFAULT '[]',
	responses        TEXT NOT NULL DEFAULT '[]',
	audio_urls       TEXT NOT NULL DEFAULT '[]',
	version          INTEGER NOT NULL DEFAULT 1,
	updated_at       BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS kiosk_sessions_created_at_idx ON kiosk_sessions (created_at DESC);
CREATE INDEX IF NOT EXISTS kiosk_sessions_status_idx ON kiosk_sessions (status);
`

const sessionColumns = `id, created_at, citizen_language, status, transcript, summary, notes,
	checklist, responses, audio_urls, version, updated_at`

// SQLStore keeps sessions in PostgreSQL or SQLite. JSON columns hold the
// checklist, sent responses and audio references.
type SQLStore struct {
	DB      *sql.DB
	Dialect Dialect
}

var _ Store = (*SQLStore)(nil)

func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{DB: db, Dialect: dialect}
}

// OpenPostgres opens a pooled connection and verifies it at startup.
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	// Connection pool: prevents overwhelming DB under concurrent load
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return NewSQLStore(db, DialectPostgres), nil
}

// OpenSQLite opens the database file at path, or a private in-memory
// database when path is ":memory:".
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serialises writers and keeps :memory: databases alive.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return NewSQLStore(db, DialectSQLite), nil
}

func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.Dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) List(ctx context.Context, filter Filter) ([]models.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `SELECT ` + sessionColumns + ` FROM kiosk_sessions`
	var args []any
	if filter.Status == "" {
		query += ` WHERE status <> ?`
		args = append(args, string(models.StatusArchived))
	} else {
		query += ` WHERE status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.DB.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []models.Session{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (s *SQLStore) Insert(ctx context.Context, session models.Session) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	row, err := encodeSession(session)
	if err != nil {
		return err
	}

	query := `INSERT INTO kiosk_sessions (` + sessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.DB.ExecContext(ctx, s.rebind(query),
		session.ID, row.createdAt, session.CitizenLanguage, string(session.Status),
		session.Transcript, session.Summary, session.Notes,
		row.checklist, row.responses, row.audioURLs,
		session.Version, row.updatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", session.ID, err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (models.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `SELECT ` + sessionColumns + ` FROM kiosk_sessions WHERE id = ?`
	session, err := scanSession(s.DB.QueryRowContext(ctx, s.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, ErrSessionNotFound
	}
	return session, err
}

// Save persists every mutable column and bumps the version counter.
func (s *SQLStore) Save(ctx context.Context, session models.Session) (models.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = time.Now().UTC()
	}
	row, err := encodeSession(session)
	if err != nil {
		return models.Session{}, err
	}

	query := `
		UPDATE kiosk_sessions
		SET citizen_language = ?,
		    status           = ?,
		    transcript       = ?,
		    summary          = ?,
		    notes            = ?,
		    checklist        = ?,
		    responses        = ?,
		    audio_urls       = ?,
		    version          = version + 1,
		    updated_at       = ?
		WHERE id = ? AND version = ?
	`
	result, err := s.DB.ExecContext(ctx, s.rebind(query),
		session.CitizenLanguage, string(session.Status), session.Transcript,
		session.Summary, session.Notes, row.checklist, row.responses, row.audioURLs,
		row.updatedAt, session.ID, session.Version,
	)
	if err != nil {
		return models.Session{}, fmt.Errorf("save session %s: %w", session.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return models.Session{}, fmt.Errorf("save session %s: %w", session.ID, err)
	}
	if rows == 0 {
		if _, err := s.Get(ctx, session.ID); err != nil {
			return models.Session{}, err
		}
		return models.Session{}, ErrVersionConflict
	}

	session.Version++
	return session, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.DB.Close()
}

type encodedSession struct {
	createdAt int64
	updatedAt int64
	checklist string
	responses string
	audioURLs string
}

func encodeSession(s models.Session) (encodedSession, error) {
	checklist, err := marshalJSON(s.Checklist, "[]")
	if err != nil {
		return encodedSession{}, fmt.Errorf("encode checklist: %w", err)
	}
	responses, err := marshalJSON(s.Responses, "[]")
	if err != nil {
		return encodedSession{}, fmt.Errorf("encode responses: %w", err)
	}
	audioURLs, err := marshalJSON(s.AudioURLs, "[]")
	if err != nil {
		return encodedSession{}, fmt.Errorf("encode audio urls: %w", err)
	}

	return encodedSession{
		createdAt: s.Timestamp.UnixNano(),
		updatedAt: s.UpdatedAt.UnixNano(),
		checklist: checklist,
		responses: responses,
		audioURLs: audioURLs,
	}, nil
}

func marshalJSON[T any](v []T, empty string) (string, error) {
	if len(v) == 0 {
		return empty, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (models.Session, error) {
	var (
		s                               models.Session
		status                          string
		createdAt, updatedAt            int64
		checklist, responses, audioURLs string
	)

	err := row.Scan(
		&s.ID, &createdAt, &s.CitizenLanguage, &status, &s.Transcript, &s.Summary, &s.Notes,
		&checklist, &responses, &audioURLs, &s.Version, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Session{}, err
		}
		return models.Session{}, fmt.Errorf("scan session: %w", err)
	}

	s.Status = models.SessionStatus(status)
	s.Timestamp = time.Unix(0, createdAt).UTC()
	s.UpdatedAt = time.Unix(0, updatedAt).UTC()

	if err := json.Unmarshal([]byte(checklist), &s.Checklist); err != nil {
		return models.Session{}, fmt.Errorf("decode checklist of %s: %w", s.ID, err)
	}
	if err := json.Unmarshal([]byte(responses), &s.Responses); err != nil {
		return models.Session{}, fmt.Errorf("decode responses of %s: %w", s.ID, err)
	}
	if err := json.Unmarshal([]byte(audioURLs), &s.AudioURLs); err != nil {
		return models.Session{}, fmt.Errorf("decode audio urls of %s: %w", s.ID, err)
	}
	return s, nil
}
