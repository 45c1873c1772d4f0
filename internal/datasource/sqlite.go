// Package datasource provides the sqlite-backed node store used by filecanvas.
// It implements store.NodeService on a single database file, which is also
// the file the watcher observes for changes made by other processes.
package datasource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/filecanvas/pkg/model"
	"github.com/vanderheijden86/filecanvas/pkg/store"
)

const nodeColumns = `id, session_id, x, y, width, height, z_index, is_locked,
	file_name, file_url, file_size, mime_type, checksum, created_at, updated_at`

// SQLiteStore persists nodes in a sqlite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

var _ store.NodeService = (*SQLiteStore)(nil)

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStore) { s.now = now }
}

// Open opens (creating if needed) the database at path and ensures the schema.
func Open(path string, opts ...Option) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	// One writer keeps sqlite from returning SQLITE_BUSY between our own calls.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, path: path, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// CreateNode inserts a node for an uploaded file on top of the session's
// current stack.
func (s *SQLiteStore) CreateNode(ctx context.Context, sessionID string, data model.NodeData, pos model.Position) (model.Node, error) {
	size := data.Size
	if size.Width <= 0 || size.Height <= 0 {
		size = model.DefaultNodeSize
	}
	now := s.now().UTC()
	n := model.Node{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Position:  pos,
		Size:      size,
		FileName:  data.FileName,
		FileURL:   data.FileURL,
		FileSize:  data.FileSize,
		MimeType:  data.MimeType,
		Checksum:  data.Checksum,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var top sql.NullInt64
		if err := tx.QueryRowContext(ctx,
			`SELECT MAX(z_index) FROM nodes WHERE session_id = ?`, sessionID).Scan(&top); err != nil {
			return fmt.Errorf("read z-index: %w", err)
		}
		n.ZIndex = int(top.Int64) + 1
		return insertNode(ctx, tx, n)
	})
	if err != nil {
		return model.Node{}, fmt.Errorf("create node: %w", err)
	}
	return n, nil
}

// UpdateNode applies a partial update to one node.
func (s *SQLiteStore) UpdateNode(ctx context.Context, id string, update model.NodeUpdate) (model.Node, error) {
	var out model.Node
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		n, err := s.applyUpdate(ctx, tx, id, update)
		out = n
		return err
	})
	if err != nil {
		return model.Node{}, fmt.Errorf("update node %s: %w", id, err)
	}
	return out, nil
}

// UpdateMultipleNodes applies all updates in one transaction.
func (s *SQLiteStore) UpdateMultipleNodes(ctx context.Context, updates []model.NodeUpdateRequest) ([]model.Node, error) {
	out := make([]model.Node, 0, len(updates))
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, u := range updates {
			n, err := s.applyUpdate(ctx, tx, u.ID, u.Data)
			if err != nil {
				return fmt.Errorf("node %s: %w", u.ID, err)
			}
			out = append(out, n)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update %d nodes: %w", len(updates), err)
	}
	return out, nil
}

// DeleteNode removes one node.
func (s *SQLiteStore) DeleteNode(ctx context.Context, id string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return deleteNode(ctx, tx, id)
	})
	if err != nil {
		return fmt.Errorf("delete node %s: %w", id, err)
	}
	return nil
}

// DeleteMultipleNodes removes all ids in one transaction.
func (s *SQLiteStore) DeleteMultipleNodes(ctx context.Context, ids []string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			if err := deleteNode(ctx, tx, id); err != nil {
				return fmt.Errorf("node %s: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete %d nodes: %w", len(ids), err)
	}
	return nil
}

// ListNodesBySession returns a session's nodes bottom to top.
func (s *SQLiteStore) ListNodesBySession(ctx context.Context, sessionID string) ([]model.Node, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+nodeColumns+` FROM nodes WHERE session_id = ? ORDER BY z_index, created_at, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	defer rows.Close()

	var nodes []model.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	return nodes, nil
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLiteStore) applyUpdate(ctx context.Context, tx *sql.Tx, id string, u model.NodeUpdate) (model.Node, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE id = ?`, id)
	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Node{}, store.ErrNotFound
	}
	if err != nil {
		return model.Node{}, err
	}

	n = u.Apply(n)
	n.UpdatedAt = s.now().UTC()
	_, err = tx.ExecContext(ctx, `UPDATE nodes
		SET x = ?, y = ?, width = ?, height = ?, z_index = ?, is_locked = ?, updated_at = ?
		WHERE id = ?`,
		n.Position.X, n.Position.Y, n.Size.Width, n.Size.Height, n.ZIndex, n.IsLocked,
		formatTime(n.UpdatedAt), id)
	if err != nil {
		return model.Node{}, err
	}
	return n, nil
}

func insertNode(ctx context.Context, tx *sql.Tx, n model.Node) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO nodes (`+nodeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.SessionID, n.Position.X, n.Position.Y, n.Size.Width, n.Size.Height,
		n.ZIndex, n.IsLocked, n.FileName, n.FileURL, n.FileSize, n.MimeType, n.Checksum,
		formatTime(n.CreatedAt), formatTime(n.UpdatedAt))
	return err
}

func deleteNode(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(r rowScanner) (model.Node, error) {
	var n model.Node
	var mimeType, checksum sql.NullString
	var createdAt, updatedAt string
	err := r.Scan(
		&n.ID, &n.SessionID, &n.Position.X, &n.Position.Y, &n.Size.Width, &n.Size.Height,
		&n.ZIndex, &n.IsLocked, &n.FileName, &n.FileURL, &n.FileSize, &mimeType, &checksum,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return model.Node{}, err
	}
	n.MimeType = mimeType.String
	n.Checksum = checksum.String
	n.CreatedAt = parseTime(createdAt)
	n.UpdatedAt = parseTime(updatedAt)
	return n, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t
}
