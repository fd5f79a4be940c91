package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/metascan/internal/metadata"

	_ "modernc.org/sqlite"
)

const sqliteTimeLayout = "2006-01-02T15:04:05.000Z"

// SQLite is a Store backed by a pure-Go SQLite database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens the database at path, creating directories as needed.
func OpenSQLite(path string) (*SQLite, error) {
	var dsn string
	if path == "" || path == ":memory:" {
		dsn = "file::memory:?_pragma=foreign_keys(ON)"
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=foreign_keys(ON)&_pragma=journal_mode(WAL)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// a single connection keeps :memory: databases alive and serialises writers
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	return &SQLite{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// InitSchema ensures the descriptor tables exist.
func (s *SQLite) InitSchema(ctx context.Context) error {
	if s.db == nil {
		return ErrNotInitialized
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS descriptors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			type TEXT NOT NULL,
			time_value INTEGER,
			time_scale INTEGER,
			face_id INTEGER,
			string_value TEXT,
			document TEXT NOT NULL,
			stored_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		);`,
		`CREATE INDEX IF NOT EXISTS idx_descriptors_session ON descriptors(session_id, id);`,
		`CREATE INDEX IF NOT EXISTS idx_descriptors_type ON descriptors(type);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Save stores objs under sessionID in one transaction.
func (s *SQLite) Save(ctx context.Context, sessionID string, objs []metadata.Object) error {
	if s.db == nil {
		return ErrNotInitialized
	}
	if len(objs) == 0 {
		return nil
	}

	rows := make([]row, 0, len(objs))
	for _, o := range objs {
		r, err := toRow(o)
		if err != nil {
			return err
		}
		rows = append(rows, r)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO descriptors (session_id, kind, type, time_value, time_scale, face_id, string_value, document, stored_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC().Format(sqliteTimeLayout)
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, sessionID, r.kind, r.typ, r.timeValue, r.timeScale,
			r.faceID, r.stringValue, string(r.document), now); err != nil {
			return fmt.Errorf("insert descriptor: %w", err)
		}
	}
	return tx.Commit()
}

// List returns stored descriptors in insertion order.
func (s *SQLite) List(ctx context.Context, q Query) ([]Record, error) {
	if s.db == nil {
		return nil, ErrNotInitialized
	}

	query := `SELECT id, session_id, stored_at, document FROM descriptors`
	var where []string
	var args []interface{}
	if q.SessionID != "" {
		where = append(where, `session_id = ?`)
		args = append(args, q.SessionID)
	}
	if len(q.Types) > 0 {
		where = append(where, `type IN (?`+strings.Repeat(`, ?`, len(q.Types)-1)+`)`)
		for _, t := range typeStrings(q.Types) {
			args = append(args, t)
		}
	}
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY id ASC LIMIT ?;`
	args = append(args, q.limit())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query descriptors: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			id       int64
			session  string
			storedAt string
			doc      string
		)
		if err := rows.Scan(&id, &session, &storedAt, &doc); err != nil {
			return nil, fmt.Errorf("scan descriptor: %w", err)
		}
		rec, err := fromDocument(id, session, parseSQLiteTime(storedAt), []byte(doc))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate descriptors: %w", err)
	}
	return out, nil
}

// Sessions returns a summary per session, most recent first.
func (s *SQLite) Sessions(ctx context.Context) ([]Session, error) {
	if s.db == nil {
		return nil, ErrNotInitialized
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, COUNT(*), MIN(stored_at), MAX(stored_at)
		 FROM descriptors GROUP BY session_id ORDER BY MAX(id) DESC;`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var (
			sess        Session
			first, last string
		)
		if err := rows.Scan(&sess.ID, &sess.Objects, &first, &last); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.FirstSeen, sess.LastSeen = parseSQLiteTime(first), parseSQLiteTime(last)
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

// MaxFaceID returns the largest stored face ID, or 0.
func (s *SQLite) MaxFaceID(ctx context.Context) (int64, error) {
	if s.db == nil {
		return 0, ErrNotInitialized
	}
	var id sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(face_id) FROM descriptors;`).Scan(&id); err != nil {
		return 0, fmt.Errorf("query max face id: %w", err)
	}
	return id.Int64, nil
}

func parseSQLiteTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, _ = time.Parse(sqliteTimeLayout, s)
	}
	return t
}
