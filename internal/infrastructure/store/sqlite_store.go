package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       TEXT NOT NULL,
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
	updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
	PRIMARY KEY (collection, id)
);
`

// SQLiteStore keeps documents in a single SQLite file. Change
// notifications are local to the process.
type SQLiteStore struct {
	db   *sql.DB
	feed *Feed
}

// OpenSQLite opens (creating if needed) the database at path and applies
// the schema. Use ":memory:" for a throwaway database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// one connection: SQLite has a single writer and :memory: databases are
	// per connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db, feed: NewFeed()}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Feed() *Feed {
	return s.feed
}

func (s *SQLiteStore) Get(ctx context.Context, collection, id string) (Snapshot, error) {
	if err := checkPath(collection, id); err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{Collection: collection, ID: id}

	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND id = ?`,
		collection, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}
	snap.Exists = true
	snap.Data = []byte(data)
	return snap, nil
}

func (s *SQLiteStore) Set(ctx context.Context, collection, id string, data any) error {
	if err := checkPath(collection, id); err != nil {
		return err
	}
	doc, err := encodeFields(data)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET
			data = excluded.data,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`,
		collection, id, string(doc.raw()),
	)
	if err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", collection, id, err)
	}
	s.feed.Publish(collection, id)
	return nil
}

// Merge reads and rewrites the document inside one transaction.
func (s *SQLiteStore) Merge(ctx context.Context, collection, id string, data any) error {
	if err := checkPath(collection, id); err != nil {
		return err
	}
	patch, err := encodeFields(data)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	existing := fields{}
	var raw string
	err = tx.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND id = ?`,
		collection, id,
	).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("failed to read %s/%s: %w", collection, id, err)
	default:
		if existing, err = encodeFields([]byte(raw)); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET
			data = excluded.data,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`,
		collection, id, string(existing.merge(patch).raw()),
	)
	if err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", collection, id, err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.feed.Publish(collection, id)
	return nil
}

func (s *SQLiteStore) Add(ctx context.Context, collection string, data any) (string, error) {
	id := uuid.New().String()
	if err := checkPath(collection, id); err != nil {
		return "", err
	}
	doc, err := encodeFields(data)
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)`,
		collection, id, string(doc.raw()),
	)
	if err != nil {
		return "", fmt.Errorf("failed to add to %s: %w", collection, err)
	}
	s.feed.Publish(collection, id)
	return id, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, collection, id string) error {
	if err := checkPath(collection, id); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`,
		collection, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.feed.Publish(collection, id)
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, collection string) ([]Snapshot, error) {
	return s.Query(ctx, collection, Query{})
}

func (s *SQLiteStore) Query(ctx context.Context, collection string, q Query) ([]Snapshot, error) {
	query := `SELECT id, data FROM documents WHERE collection = ?`
	args := []any{collection}
	if q.Field != "" {
		query += ` AND json_extract(data, '$."' || ? || '"') = ?`
		args = append(args, q.Field, q.Value)
	}
	if q.OrderBy != "" {
		query += ` ORDER BY json_extract(data, '$."' || ? || '"')`
		args = append(args, q.OrderBy)
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
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		out = append(out, Snapshot{Collection: collection, ID: id, Exists: true, Data: []byte(data)})
	}
	return out, rows.Err()
}
