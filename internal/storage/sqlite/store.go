// Package sqlite provides a SQLite implementation of storage.Backend using
// the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/scrypster/seedgraph/internal/storage"
	"github.com/scrypster/seedgraph/pkg/types"
)

// Store implements storage.Backend using SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ storage.Backend = (*Store)(nil)

// New opens the SQLite database at dsn and creates the schema. If the open
// fails because of WAL files left behind by a crashed process, and no other
// process holds them, they are removed and the open is retried once.
func New(dsn string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	store, err := open(dsn, logger)
	if err == nil {
		return store, nil
	}
	if !isRecoverableWALError(err) {
		return nil, err
	}

	dbPath := dbPathFromDSN(dsn)
	if dbPath == "" || !isWALStale(dbPath) {
		return nil, err
	}
	removeStaleWAL(dbPath, logger)

	store, retryErr := open(dsn, logger)
	if retryErr != nil {
		return nil, fmt.Errorf("failed after WAL recovery: %w (original: %v)", retryErr, err)
	}
	logger.Warn("sqlite: recovered from stale WAL files", "path", dbPath)
	return store, nil
}

func open(dsn string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection serialises writers and keeps ":memory:" databases alive
	// for the lifetime of the store.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []struct {
		stmt string
		what string
	}{
		{"PRAGMA journal_mode=WAL", "enable WAL mode"},
		{"PRAGMA busy_timeout = 5000", "set busy timeout"},
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p.stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to %s: %w", p.what, err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// fail converts a driver error into the error reported to callers. Context
// errors are returned as they are; everything else is storage unavailability.
func fail(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return storage.Unavailable("sqlite: "+op, err)
}

// AddElements upserts elements in a single transaction.
func (s *Store) AddElements(ctx context.Context, elements []types.Element) error {
	if err := storage.ValidateElements(elements); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fail(ctx, "begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, el := range elements {
		switch e := el.(type) {
		case types.Entity:
			props, err := storage.MarshalProperties(e.Properties)
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO entities (grp, vertex, properties) VALUES (?, ?, ?)
				ON CONFLICT(grp, vertex) DO UPDATE SET properties = excluded.properties`,
				string(e.Group), string(e.Vertex), nullableBytes(props))
			if err != nil {
				return fail(ctx, "insert entity", err)
			}
		case types.Edge:
			e = e.Canonical()
			props, err := storage.MarshalProperties(e.Properties)
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO edges (grp, src, dst, directed, properties) VALUES (?, ?, ?, ?, ?)
				ON CONFLICT(grp, src, dst, directed) DO UPDATE SET properties = excluded.properties`,
				string(e.Group), string(e.Source), string(e.Destination), e.Directed, nullableBytes(props))
			if err != nil {
				return fail(ctx, "insert edge", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fail(ctx, "commit", err)
	}
	return nil
}

// EntitiesAt returns the entities at v.
func (s *Store) EntitiesAt(ctx context.Context, v types.VertexID) ([]types.Entity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT grp, vertex, properties FROM entities WHERE vertex = ?`, string(v))
	if err != nil {
		return nil, fail(ctx, "entities at", err)
	}
	defer rows.Close()

	out, err := scanEntities(rows)
	if err != nil {
		return nil, fail(ctx, "entities at", err)
	}
	return out, nil
}

// EdgesBetween returns the edges joining source and destination.
func (s *Store) EdgesBetween(ctx context.Context, source, destination types.VertexID, directed bool) ([]types.Edge, error) {
	want := types.Edge{Source: source, Destination: destination, Directed: directed}.Canonical()
	rows, err := s.db.QueryContext(ctx,
		`SELECT grp, src, dst, directed, properties FROM edges WHERE src = ? AND dst = ? AND directed = ?`,
		string(want.Source), string(want.Destination), directed)
	if err != nil {
		return nil, fail(ctx, "edges between", err)
	}
	defer rows.Close()

	out, err := scanEdges(rows)
	if err != nil {
		return nil, fail(ctx, "edges between", err)
	}
	return out, nil
}

// IncidentEdges returns the edges with v as an endpoint.
func (s *Store) IncidentEdges(ctx context.Context, v types.VertexID) ([]types.Edge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT grp, src, dst, directed, properties FROM edges WHERE src = ? OR dst = ?`,
		string(v), string(v))
	if err != nil {
		return nil, fail(ctx, "incident edges", err)
	}
	defer rows.Close()

	out, err := scanEdges(rows)
	if err != nil {
		return nil, fail(ctx, "incident edges", err)
	}
	return out, nil
}

// ScanGroups calls fn for every element in groups, entities first. Rows are
// passed to fn as they are read. An empty groups slice scans all groups.
func (s *Store) ScanGroups(ctx context.Context, groups []types.Group, fn func(types.Element) error) error {
	where, args := groupClause(groups)

	err := s.each(ctx, "scan entities", `SELECT grp, vertex, properties FROM entities`+where, args,
		func(rows *sql.Rows) (types.Element, error) { return scanEntity(rows) }, fn)
	if err != nil {
		return err
	}
	return s.each(ctx, "scan edges", `SELECT grp, src, dst, directed, properties FROM edges`+where, args,
		func(rows *sql.Rows) (types.Element, error) { return scanEdge(rows) }, fn)
}

// each runs query and passes every decoded row to fn. Errors from fn are
// returned unchanged.
func (s *Store) each(ctx context.Context, op, query string, args []any,
	decode func(*sql.Rows) (types.Element, error), fn func(types.Element) error) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fail(ctx, op, err)
	}
	defer rows.Close()

	for rows.Next() {
		el, err := decode(rows)
		if err != nil {
			return fail(ctx, op, err)
		}
		if err := fn(el); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fail(ctx, op, err)
	}
	return nil
}

// Close flushes the WAL into the main database file and releases resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		s.logger.Warn("sqlite: WAL checkpoint on close failed", "error", err)
	}
	return s.db.Close()
}

func groupClause(groups []types.Group) (string, []any) {
	if len(groups) == 0 {
		return "", nil
	}
	args := make([]any, len(groups))
	for i, g := range groups {
		args[i] = string(g)
	}
	return " WHERE grp IN (" + strings.TrimSuffix(strings.Repeat("?, ", len(groups)), ", ") + ")", args
}

func scanEntities(rows *sql.Rows) ([]types.Entity, error) {
	var out []types.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEntity(rows *sql.Rows) (types.Entity, error) {
	var (
		e     types.Entity
		props sql.NullString
	)
	if err := rows.Scan(&e.Group, &e.Vertex, &props); err != nil {
		return e, err
	}
	p, err := storage.UnmarshalProperties([]byte(props.String))
	if err != nil {
		return e, err
	}
	e.Properties = p
	return e, nil
}

func scanEdges(rows *sql.Rows) ([]types.Edge, error) {
	var out []types.Edge
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEdge(rows *sql.Rows) (types.Edge, error) {
	var (
		e     types.Edge
		props sql.NullString
	)
	if err := rows.Scan(&e.Group, &e.Source, &e.Destination, &e.Directed, &props); err != nil {
		return e, err
	}
	p, err := storage.UnmarshalProperties([]byte(props.String))
	if err != nil {
		return e, err
	}
	e.Properties = p
	return e, nil
}

func nullableBytes(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
