package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/example/storefront-sync/internal/logger"
)

// ChangeChannel is the LISTEN/NOTIFY channel carrying document changes.
const ChangeChannel = "document_changes"

const postgresSchema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents (collection);
`

// PostgresStore keeps documents as JSONB rows and announces writes with
// NOTIFY so other processes can follow along (see ListenPostgres).
type PostgresStore struct {
	db   *sql.DB
	feed *Feed
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, feed: NewFeed()}
}

// ConnectPostgres opens and verifies a connection pool.
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// EnsureSchema creates the documents table if needed.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Feed() *Feed {
	return s.feed
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (Snapshot, error) {
	if err := checkPath(collection, id); err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{Collection: collection, ID: id}

	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}
	snap.Exists = true
	snap.Data = data
	return snap, nil
}

func (s *PostgresStore) Set(ctx context.Context, collection, id string, data any) error {
	return s.upsert(ctx, collection, id, data, `data = EXCLUDED.data`)
}

func (s *PostgresStore) Merge(ctx context.Context, collection, id string, data any) error {
	return s.upsert(ctx, collection, id, data, `data = documents.data || EXCLUDED.data`)
}

func (s *PostgresStore) upsert(ctx context.Context, collection, id string, data any, onConflict string) error {
	if err := checkPath(collection, id); err != nil {
		return err
	}
	doc, err := encodeFields(data)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (collection, id) DO UPDATE SET ` + onConflict + `, updated_at = NOW()`
	if _, err := s.db.ExecContext(ctx, query, collection, id, string(doc.raw())); err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", collection, id, err)
	}
	s.changed(ctx, collection, id)
	return nil
}

func (s *PostgresStore) Add(ctx context.Context, collection string, data any) (string, error) {
	id := uuid.New().String()
	if err := checkPath(collection, id); err != nil {
		return "", err
	}
	doc, err := encodeFields(data)
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)`,
		collection, id, string(doc.raw()),
	)
	if err != nil {
		return "", fmt.Errorf("failed to add to %s: %w", collection, err)
	}
	s.changed(ctx, collection, id)
	return id, nil
}

func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	if err := checkPath(collection, id); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.changed(ctx, collection, id)
	return nil
}

func (s *PostgresStore) List(ctx context.Context, collection string) ([]Snapshot, error) {
	return s.Query(ctx, collection, Query{})
}

func (s *PostgresStore) Query(ctx context.Context, collection string, q Query) ([]Snapshot, error) {
	query := `SELECT id, data FROM documents WHERE collection = $1`
	args := []any{collection}
	if q.Field != "" {
		query += ` AND data->>$2 = $3`
		args = append(args, q.Field, q.Value)
	}
	if q.OrderBy != "" {
		args = append(args, q.OrderBy)
		query += fmt.Sprintf(` ORDER BY data->$%d`, len(args))
		if q.Desc {
			query += ` DESC`
		}
		query += `, id`
	} else {
		query += ` ORDER BY id`
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		out = append(out, Snapshot{Collection: collection, ID: id, Exists: true, Data: data})
	}
	return out, rows.Err()
}

// changed publishes locally and notifies other listeners. A failed NOTIFY
// only costs remote subscribers a refresh, so it is logged.
func (s *PostgresStore) changed(ctx context.Context, collection, id string) {
	s.feed.Publish(collection, id)

	payload, _ := json.Marshal(Change{Collection: collection, ID: id, Origin: s.feed.Origin()})
	if _, err := s.db.ExecContext(ctx, `SELECT pg_notify($1, $2)`, ChangeChannel, string(payload)); err != nil {
		logger.Component("Postgres").WithError(err).Warn("pg_notify failed")
	}
}
