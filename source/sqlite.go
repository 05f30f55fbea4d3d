package source

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/jonwraymond/toolgate/backend"
)

const schema = `
CREATE TABLE IF NOT EXISTS backends (
	id          INTEGER PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	kind        TEXT NOT NULL,
	transport   TEXT NOT NULL DEFAULT '',
	enabled     INTEGER NOT NULL DEFAULT 1,
	connection  TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS backend_roles (
	backend_id INTEGER NOT NULL REFERENCES backends(id) ON DELETE CASCADE,
	role       TEXT NOT NULL,
	PRIMARY KEY (backend_id, role)
);

CREATE TABLE IF NOT EXISTS backend_users (
	backend_id INTEGER NOT NULL REFERENCES backends(id) ON DELETE CASCADE,
	user_id    TEXT NOT NULL,
	PRIMARY KEY (backend_id, user_id)
);
`

// SQLiteConfig configures a SQLite source.
type SQLiteConfig struct {
	// Path is the database file. It is created if it does not exist.
	Path string

	// PoolSize is the number of pooled connections.
	// Default: max(runtime.NumCPU(), 4)
	PoolSize int

	// Logger receives pool events. If nil, nothing is logged.
	Logger backend.Logger
}

// SQLite reads descriptors from a SQLite database. Roles and users live in
// their own tables; connection parameters are a JSON column.
type SQLite struct {
	pool   *sqlitex.Pool
	path   string
	logger backend.Logger
}

var _ backend.Source = (*SQLite)(nil)

// OpenSQLite opens a pooled SQLite source.
func OpenSQLite(cfg SQLiteConfig) (*SQLite, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: sqlite Path is required", backend.ErrConfiguration)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = backend.DiscardLogger()
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = max(runtime.NumCPU(), 4)
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConn,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Path, err)
	}
	logger.Info("sqlite source opened", "path", cfg.Path, "pool_size", poolSize)
	return &SQLite{pool: pool, path: cfg.Path, logger: logger}, nil
}

func prepareConn(conn *sqlite.Conn) error {
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return nil
}

// Close closes the connection pool.
func (s *SQLite) Close() error {
	if err := s.pool.Close(); err != nil {
		s.logger.Error("sqlite source close error", "path", s.path, "error", err)
		return fmt.Errorf("close %s: %w", s.path, err)
	}
	return nil
}

// EnsureSchema creates the tables if they do not exist.
func (s *SQLite) EnsureSchema(ctx context.Context) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("take connection: %w", err)
	}
	defer s.pool.Put(conn)

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// PutDescriptor inserts or replaces the descriptor with d.Name.
func (s *SQLite) PutDescriptor(ctx context.Context, d backend.Descriptor) (err error) {
	if err := d.Validate(); err != nil {
		return err
	}
	r := fromDescriptor(d)
	connJSON, err := json.Marshal(r.connection)
	if err != nil {
		return fmt.Errorf("encode connection for %s: %w", d.Name, err)
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("take connection: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer endTransaction(&err)

	enabled := 0
	if d.Enabled {
		enabled = 1
	}
	err = sqlitex.Execute(conn, `
		INSERT INTO backends (name, description, kind, transport, enabled, connection)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			description = excluded.description,
			kind        = excluded.kind,
			transport   = excluded.transport,
			enabled     = excluded.enabled,
			connection  = excluded.connection`,
		&sqlitex.ExecOptions{
			Args: []any{d.Name, d.Description, string(d.Kind), string(d.Transport), enabled, string(connJSON)},
		})
	if err != nil {
		return fmt.Errorf("upsert %s: %w", d.Name, err)
	}

	var id int64
	err = sqlitex.Execute(conn, "SELECT id FROM backends WHERE name = ?", &sqlitex.ExecOptions{
		Args: []any{d.Name},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			id = stmt.ColumnInt64(0)
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("lookup %s: %w", d.Name, err)
	}

	for _, q := range []string{
		"DELETE FROM backend_roles WHERE backend_id = ?",
		"DELETE FROM backend_users WHERE backend_id = ?",
	} {
		if err = sqlitex.Execute(conn, q, &sqlitex.ExecOptions{Args: []any{id}}); err != nil {
			return fmt.Errorf("clear access for %s: %w", d.Name, err)
		}
	}
	for _, role := range d.RequiredRoles {
		err = sqlitex.Execute(conn, "INSERT OR IGNORE INTO backend_roles (backend_id, role) VALUES (?, ?)",
			&sqlitex.ExecOptions{Args: []any{id, role}})
		if err != nil {
			return fmt.Errorf("insert role for %s: %w", d.Name, err)
		}
	}
	for _, user := range d.AllowedUsers {
		err = sqlitex.Execute(conn, "INSERT OR IGNORE INTO backend_users (backend_id, user_id) VALUES (?, ?)",
			&sqlitex.ExecOptions{Args: []any{id, user}})
		if err != nil {
			return fmt.Errorf("insert user for %s: %w", d.Name, err)
		}
	}
	return nil
}

// DeleteDescriptor removes the descriptor named name, if present.
func (s *SQLite) DeleteDescriptor(ctx context.Context, name string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("take connection: %w", err)
	}
	defer s.pool.Put(conn)

	if err := sqlitex.Execute(conn, "DELETE FROM backends WHERE name = ?", &sqlitex.ExecOptions{Args: []any{name}}); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

// ListDescriptors reads every backend row, in insertion order.
func (s *SQLite) ListDescriptors(ctx context.Context) ([]backend.Descriptor, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("take connection: %w", err)
	}
	defer s.pool.Put(conn)

	var (
		ids     []int64
		records = make(map[int64]*record)
	)
	err = sqlitex.Execute(conn,
		"SELECT id, name, description, kind, transport, enabled, connection FROM backends ORDER BY id",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				id := stmt.ColumnInt64(0)
				enabled := stmt.ColumnInt64(5) != 0
				r := &record{
					Name:        stmt.ColumnText(1),
					Description: stmt.ColumnText(2),
					Kind:        stmt.ColumnText(3),
					Transport:   stmt.ColumnText(4),
					Enabled:     &enabled,
				}
				if raw := stmt.ColumnText(6); raw != "" {
					if err := json.Unmarshal([]byte(raw), &r.connection); err != nil {
						return &backend.ConfigError{Backend: r.Name, Field: "connection", Message: "is not a JSON object", Err: err}
					}
				}
				ids = append(ids, id)
				records[id] = r
				return nil
			},
		})
	if err != nil {
		return nil, err
	}

	err = sqlitex.Execute(conn, "SELECT backend_id, role FROM backend_roles ORDER BY backend_id, role",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				if r, ok := records[stmt.ColumnInt64(0)]; ok {
					r.RequiredRoles = append(r.RequiredRoles, stmt.ColumnText(1))
				}
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("read roles: %w", err)
	}

	err = sqlitex.Execute(conn, "SELECT backend_id, user_id FROM backend_users ORDER BY backend_id, user_id",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				if r, ok := records[stmt.ColumnInt64(0)]; ok {
					r.AllowedUsers = append(r.AllowedUsers, stmt.ColumnText(1))
				}
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("read users: %w", err)
	}

	out := make([]backend.Descriptor, 0, len(ids))
	for _, id := range ids {
		d, err := records[id].descriptor()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
