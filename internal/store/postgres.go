package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MeKo-Tech/metascan/internal/metadata"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is a Store backed by PostgreSQL through a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to the database and ensures the schema is initialized.
func OpenPostgres(ctx context.Context, connString string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := initPostgresSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func initPostgresSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS descriptors (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			type TEXT NOT NULL,
			time_value BIGINT,
			time_scale INT,
			face_id BIGINT,
			string_value TEXT,
			document JSONB NOT NULL,
			stored_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS descriptors_session_idx ON descriptors (session_id, id);
		CREATE INDEX IF NOT EXISTS descriptors_type_idx ON descriptors (type);
	`)
	return err
}

// Close releases the pool.
func (s *Postgres) Close() error {
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
	return nil
}

// Save stores objs under sessionID in one batch.
func (s *Postgres) Save(ctx context.Context, sessionID string, objs []metadata.Object) error {
	if s.pool == nil {
		return ErrNotInitialized
	}
	if len(objs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, o := range objs {
		r, err := toRow(o)
		if err != nil {
			return err
		}
		batch.Queue(`
			INSERT INTO descriptors (session_id, kind, type, time_value, time_scale, face_id, string_value, document)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb)
		`, sessionID, r.kind, r.typ, r.timeValue, r.timeScale, r.faceID, r.stringValue, string(r.document))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert descriptors: %w", err)
	}
	return tx.Commit(ctx)
}

// List returns stored descriptors in insertion order.
func (s *Postgres) List(ctx context.Context, q Query) ([]Record, error) {
	if s.pool == nil {
		return nil, ErrNotInitialized
	}

	query := `SELECT id, session_id, stored_at, document::text FROM descriptors`
	var where []string
	var args []any
	if q.SessionID != "" {
		args = append(args, q.SessionID)
		where = append(where, fmt.Sprintf(`session_id = $%d`, len(args)))
	}
	if len(q.Types) > 0 {
		args = append(args, typeStrings(q.Types))
		where = append(where, fmt.Sprintf(`type = ANY($%d)`, len(args)))
	}
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	args = append(args, q.limit())
	query += fmt.Sprintf(` ORDER BY id ASC LIMIT $%d`, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query descriptors: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			id       int64
			session  string
			storedAt time.Time
			doc      string
		)
		if err := rows.Scan(&id, &session, &storedAt, &doc); err != nil {
			return nil, fmt.Errorf("scan descriptor: %w", err)
		}
		rec, err := fromDocument(id, session, storedAt, []byte(doc))
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
func (s *Postgres) Sessions(ctx context.Context) ([]Session, error) {
	if s.pool == nil {
		return nil, ErrNotInitialized
	}
	rows, err := s.pool.Query(ctx, `
		SELECT session_id, COUNT(*), MIN(stored_at), MAX(stored_at)
		FROM descriptors GROUP BY session_id ORDER BY MAX(id) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		var count int64
		if err := rows.Scan(&sess.ID, &count, &sess.FirstSeen, &sess.LastSeen); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.Objects = int(count)
		out = append(out, sess)
	}
	return out, rows.Err()
}

// MaxFaceID returns the largest stored face ID, or 0.
func (s *Postgres) MaxFaceID(ctx context.Context) (int64, error) {
	if s.pool == nil {
		return 0, ErrNotInitialized
	}
	var id *int64
	if err := s.pool.QueryRow(ctx, `SELECT MAX(face_id) FROM descriptors`).Scan(&id); err != nil {
		return 0, fmt.Errorf("query max face id: %w", err)
	}
	if id == nil {
		return 0, nil
	}
	return *id, nil
}
