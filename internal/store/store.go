// Package store persists descriptors per scan session in SQLite or PostgreSQL.
//
// Rows keep the codec JSON document next to a few indexed columns; reading
// decodes the document through the metadata constructors, so a stored row
// that no longer satisfies the descriptor invariants is reported, not
// returned.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MeKo-Tech/metascan/internal/codec"
	"github.com/MeKo-Tech/metascan/internal/metadata"
)

// ErrNotInitialized is returned when a store method is called after Close.
var ErrNotInitialized = errors.New("store not initialized")

// DefaultLimit caps List when the query sets no limit.
const DefaultLimit = 100

// Store persists descriptors grouped by session.
type Store interface {
	Save(ctx context.Context, sessionID string, objs []metadata.Object) error
	List(ctx context.Context, q Query) ([]Record, error)
	Sessions(ctx context.Context) ([]Session, error)
	// MaxFaceID returns the largest face ID ever stored, for resuming allocation.
	MaxFaceID(ctx context.Context) (int64, error)
	Close() error
}

// Query filters stored descriptors. Zero fields match everything.
type Query struct {
	SessionID string
	Types     []metadata.Type
	Limit     int
}

// Record is a stored descriptor.
type Record struct {
	ID        int64
	SessionID string
	StoredAt  time.Time
	Object    metadata.Object
}

// Session summarises one scan session.
type Session struct {
	ID        string
	Objects   int
	FirstSeen time.Time
	LastSeen  time.Time
}

// Open chooses a backend by driver name: "sqlite" takes a file path (or
// ":memory:"), "postgres" a pgx connection string.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3", "":
		s, err := OpenSQLite(dsn)
		if err != nil {
			return nil, err
		}
		if err := s.InitSchema(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	case "postgres", "postgresql", "pgx":
		return OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

// row is the column projection shared by both backends.
type row struct {
	kind        string
	typ         string
	timeValue   *int64
	timeScale   *int32
	faceID      *int64
	stringValue *string
	document    []byte
}

func toRow(o metadata.Object) (row, error) {
	if err := metadata.Validate(o); err != nil {
		return row{}, err
	}
	doc, err := codec.MarshalObject(o)
	if err != nil {
		return row{}, fmt.Errorf("encode descriptor: %w", err)
	}
	r := row{kind: o.Type().Kind().String(), typ: string(o.Type()), document: doc}
	if t := o.Time(); t.IsValid() {
		v, ts := t.Value(), t.Timescale()
		r.timeValue, r.timeScale = &v, &ts
	}
	switch v := o.(type) {
	case *metadata.Face:
		id := v.FaceID()
		r.faceID = &id
	case *metadata.Code:
		if s, ok := v.StringValue(); ok {
			r.stringValue = &s
		}
	}
	return r, nil
}

func fromDocument(id int64, session string, storedAt time.Time, doc []byte) (Record, error) {
	obj, err := codec.UnmarshalObject(doc)
	if err != nil {
		return Record{}, fmt.Errorf("decode stored descriptor %d: %w", id, err)
	}
	return Record{ID: id, SessionID: session, StoredAt: storedAt, Object: obj}, nil
}

func typeStrings(types []metadata.Type) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

func (q Query) limit() int {
	if q.Limit <= 0 {
		return DefaultLimit
	}
	return q.Limit
}

// Objects strips the bookkeeping from records.
func Objects(recs []Record) []metadata.Object {
	out := make([]metadata.Object, len(recs))
	for i, r := range recs {
		out[i] = r.Object
	}
	return out
}
