package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/caravela-labs/tenantdash/internal/store"
	"github.com/caravela-labs/tenantdash/internal/store/dialect"
)

// Store is a SQL implementation of the document backend. Every row is keyed
// by (tenant_id, collection, id), so a query can only ever touch the tenant
// partition it names.
type Store struct {
	db      *sqlx.DB
	dialect dialect.Dialect
}

var _ store.Backend = (*Store)(nil)

// Config holds database connection configuration
type Config struct {
	Driver string // Driver name: sqlite, postgres, mysql
	DSN    string // Data source name / connection string
}

// New creates a new SQL backend with the specified configuration.
func New(cfg Config) (*Store, error) {
	d, err := dialect.FromDriverName(cfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("unsupported database driver: %w", err)
	}

	db, err := sqlx.Open(d.DriverName(), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Run dialect-specific initialization (e.g., PRAGMA for SQLite)
	for _, stmt := range d.PragmaStatements() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute pragma: %w", err)
		}
	}

	s := &Store{db: db, dialect: d}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// NewSQLite creates a SQLite backend at the given path.
func NewSQLite(dbPath string) (*Store, error) {
	return New(Config{Driver: "sqlite", DSN: dbPath})
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
tenant_id TEXT NOT NULL,
collection TEXT NOT NULL,
id TEXT NOT NULL,
fields TEXT NOT NULL,
created_at TIMESTAMP NOT NULL,
updated_at TIMESTAMP NOT NULL,
created_by TEXT NOT NULL,
updated_by TEXT NOT NULL,
PRIMARY KEY (tenant_id, collection, id)
)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_partition ON documents(tenant_id, collection)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(s.dialect.Rebind(stmt)); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

func (s *Store) Get(ctx context.Context, tenantID, collection, id string) (*store.Record, error) {
	query := s.dialect.Rebind(`SELECT id, fields, created_at, updated_at, created_by, updated_by
	          FROM documents WHERE tenant_id = ? AND collection = ? AND id = ?`)

	var rec store.Record
	var fieldsJSON string

	err := s.db.QueryRowContext(ctx, query, tenantID, collection, id).Scan(
		&rec.ID, &fieldsJSON, &rec.CreatedAt, &rec.UpdatedAt, &rec.CreatedBy, &rec.UpdatedBy)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s/%s: %w", collection, id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %v: %w", err, store.ErrUnavailable)
	}

	if err := json.Unmarshal([]byte(fieldsJSON), &rec.Fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fields: %v: %w", err, store.ErrUnavailable)
	}

	return &rec, nil
}

// fieldNamePattern restricts filter and order fields to plain identifiers so
// caller input can never reshape the generated SQL.
var fieldNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func sqlOp(op store.Op) (string, error) {
	switch op {
	case store.OpEq:
		return "=", nil
	case store.OpNeq:
		return "!=", nil
	case store.OpGt:
		return ">", nil
	case store.OpGte:
		return ">=", nil
	case store.OpLt:
		return "<", nil
	case store.OpLte:
		return "<=", nil
	default:
		return "", fmt.Errorf("unsupported filter operator %q", op)
	}
}

func (s *Store) List(ctx context.Context, tenantID, collection string, q store.Query) ([]*store.Record, error) {
	query := `SELECT id, fields, created_at, updated_at, created_by, updated_by
	          FROM documents WHERE tenant_id = ? AND collection = ?`
	args := []any{tenantID, collection}

	for _, f := range q.Filters {
		if !fieldNamePattern.MatchString(f.Field) {
			return nil, fmt.Errorf("invalid filter field %q", f.Field)
		}
		op, err := sqlOp(f.Op)
		if err != nil {
			return nil, err
		}
		query += fmt.Sprintf(" AND %s %s ?", s.dialect.JSONExtract("fields", f.Field), op)
		args = append(args, f.Value)
	}

	if q.OrderBy != "" {
		if !fieldNamePattern.MatchString(q.OrderBy) {
			return nil, fmt.Errorf("invalid order field %q", q.OrderBy)
		}
		dir := "ASC"
		if q.Desc {
			dir = "DESC"
		}
		// The metadata stamps order on their columns; anything else is a
		// document field.
		switch q.OrderBy {
		case "created_at", "updated_at":
			query += fmt.Sprintf(" ORDER BY %s %s", q.OrderBy, dir)
		default:
			query += fmt.Sprintf(" ORDER BY %s %s", s.dialect.JSONExtract("fields", q.OrderBy), dir)
		}
	} else {
		query += " ORDER BY created_at ASC"
	}

	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %v: %w", err, store.ErrUnavailable)
	}
	defer rows.Close()

	var records []*store.Record
	for rows.Next() {
		var rec store.Record
		var fieldsJSON string

		if err := rows.Scan(&rec.ID, &fieldsJSON, &rec.CreatedAt, &rec.UpdatedAt,
			&rec.CreatedBy, &rec.UpdatedBy); err != nil {
			return nil, fmt.Errorf("failed to scan document: %v: %w", err, store.ErrUnavailable)
		}

		if err := json.Unmarshal([]byte(fieldsJSON), &rec.Fields); err != nil {
			return nil, fmt.Errorf("failed to unmarshal fields: %v: %w", err, store.ErrUnavailable)
		}

		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read documents: %v: %w", err, store.ErrUnavailable)
	}

	return records, nil
}

func (s *Store) Insert(ctx context.Context, tenantID, collection string, rec *store.Record) error {
	fields, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal fields: %v: %w", err, store.ErrUnavailable)
	}

	query := s.dialect.Rebind(`INSERT INTO documents (tenant_id, collection, id, fields, created_at, updated_at, created_by, updated_by)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)

	// A single statement so concurrent inserts of the same id race on the
	// primary key, not on a read-then-write.
	_, err = s.db.ExecContext(ctx, query,
		tenantID, collection, rec.ID, string(fields),
		rec.CreatedAt, rec.UpdatedAt, rec.CreatedBy, rec.UpdatedBy)

	if err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return fmt.Errorf("document %s/%s: %w", collection, rec.ID, store.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to insert document: %v: %w", err, store.ErrUnavailable)
	}

	return nil
}

func (s *Store) Replace(ctx context.Context, tenantID, collection string, rec *store.Record) error {
	fields, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal fields: %v: %w", err, store.ErrUnavailable)
	}

	query := s.dialect.Rebind(`UPDATE documents SET fields = ?, updated_at = ?, updated_by = ?
	          WHERE tenant_id = ? AND collection = ? AND id = ?`)

	result, err := s.db.ExecContext(ctx, query,
		string(fields), rec.UpdatedAt, rec.UpdatedBy, tenantID, collection, rec.ID)
	if err != nil {
		return fmt.Errorf("failed to update document: %v: %w", err, store.ErrUnavailable)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %v: %w", err, store.ErrUnavailable)
	}
	if rows == 0 {
		return fmt.Errorf("document %s/%s: %w", collection, rec.ID, store.ErrNotFound)
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, tenantID, collection, id string) error {
	query := s.dialect.Rebind(`DELETE FROM documents WHERE tenant_id = ? AND collection = ? AND id = ?`)

	// Deleting an absent document is fine, so the affected row count is
	// deliberately not checked.
	if _, err := s.db.ExecContext(ctx, query, tenantID, collection, id); err != nil {
		return fmt.Errorf("failed to delete document: %v: %w", err, store.ErrUnavailable)
	}

	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
