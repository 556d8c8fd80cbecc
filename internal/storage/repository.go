package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for database operations.
// Satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// RowScanner abstracts *sql.Row and *sql.Rows for adapter scan funcs.
type RowScanner interface {
	Scan(dest ...any) error
}

// Adapter supplies the per-entity pieces the generic repository cannot
// derive from the Meta alone: extracting the identifier, flattening an
// entity into bind values, and scanning a row back.
type Adapter[T any] struct {
	Meta   *Meta
	ID     func(*T) uuid.UUID
	Values func(*T) []any // bind values in Meta column order
	Scan   func(RowScanner) (*T, error)
}

// Page is one page of data together with the total count of rows
// matching the same filter, ignoring pagination.
type Page[T any] struct {
	Data         []*T
	TotalRecords int64
	TotalPages   int
	PageNumber   int
	PageSize     int
}

// Repository provides entity-agnostic CRUD and paged queries. Reads see
// only non-deleted rows; deletes are soft. Every mutating call issues
// exactly one statement; no transaction spans multiple calls.
type Repository[T any] struct {
	db      DBTX
	adapter Adapter[T]
	builder *Builder
}

// NewRepository validates the adapter wiring and returns a repository.
func NewRepository[T any](db DBTX, ad Adapter[T]) (*Repository[T], error) {
	if ad.Meta == nil {
		return nil, errors.New("adapter has no meta")
	}
	if ad.ID == nil || ad.Values == nil || ad.Scan == nil {
		return nil, fmt.Errorf("adapter for %s is missing functions", ad.Meta.EntityName)
	}
	return &Repository[T]{db: db, adapter: ad, builder: NewBuilder(ad.Meta)}, nil
}

// GetAll returns every non-deleted row.
func (r *Repository[T]) GetAll(ctx context.Context) ([]*T, error) {
	rows, err := r.db.QueryContext(ctx, r.builder.SelectAll())
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", r.adapter.Meta.Table, err)
	}
	defer rows.Close()
	return r.collect(rows)
}

// GetByID returns the non-deleted row with the given id, or (nil, nil)
// when no such row exists. The not-found policy belongs to the caller.
func (r *Repository[T]) GetByID(ctx context.Context, id uuid.UUID) (*T, error) {
	row := r.db.QueryRowContext(ctx, r.builder.SelectByID(), id)
	e, err := r.adapter.Scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select %s by id: %w", r.adapter.Meta.Table, err)
	}
	return e, nil
}

// Insert persists the entity and returns it as stored, round-tripped
// through a fresh read rather than echoed back.
func (r *Repository[T]) Insert(ctx context.Context, e *T) (*T, error) {
	if _, err := r.db.ExecContext(ctx, r.builder.Insert(), r.adapter.Values(e)...); err != nil {
		return nil, fmt.Errorf("insert %s: %w", r.adapter.Meta.Table, err)
	}
	return r.GetByID(ctx, r.adapter.ID(e))
}

// Update rewrites every non-identifier column and returns the row as
// stored. Returns (nil, nil) if the id matches no non-deleted row.
func (r *Repository[T]) Update(ctx context.Context, e *T) (*T, error) {
	args := r.updateArgs(e)
	if _, err := r.db.ExecContext(ctx, r.builder.Update(), args...); err != nil {
		return nil, fmt.Errorf("update %s: %w", r.adapter.Meta.Table, err)
	}
	return r.GetByID(ctx, r.adapter.ID(e))
}

// SoftDelete flags one row deleted and reports rows affected.
func (r *Repository[T]) SoftDelete(ctx context.Context, id uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.builder.SoftDelete(), id)
	if err != nil {
		return 0, fmt.Errorf("soft delete %s: %w", r.adapter.Meta.Table, err)
	}
	return res.RowsAffected()
}

// SoftDeleteMany flags a non-empty set of rows deleted in a single
// statement and reports rows affected.
func (r *Repository[T]) SoftDeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error) {
	query, err := r.builder.SoftDeleteMany(len(ids))
	if err != nil {
		return 0, err
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("soft delete %s batch: %w", r.adapter.Meta.Table, err)
	}
	return res.RowsAffected()
}

// GetPaging returns one page of data plus the total count matching the
// same filter. Page bounds must already be positive and within limits.
func (r *Repository[T]) GetPaging(ctx context.Context, q PageQuery) (*Page[T], error) {
	dataSQL, countSQL, args, err := r.builder.Paging(q)
	if err != nil {
		return nil, err
	}

	countArgs := args[:len(args)-2] // count shares the filter, not LIMIT/OFFSET
	var total int64
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count %s: %w", r.adapter.Meta.Table, err)
	}

	rows, err := r.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("page %s: %w", r.adapter.Meta.Table, err)
	}
	defer rows.Close()

	data, err := r.collect(rows)
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(q.PageSize) - 1) / int64(q.PageSize))
	return &Page[T]{
		Data:         data,
		TotalRecords: total,
		TotalPages:   totalPages,
		PageNumber:   q.PageNumber,
		PageSize:     q.PageSize,
	}, nil
}

func (r *Repository[T]) collect(rows *sql.Rows) ([]*T, error) {
	var out []*T
	for rows.Next() {
		e, err := r.adapter.Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", r.adapter.Meta.Table, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows %s: %w", r.adapter.Meta.Table, err)
	}
	return out, nil
}

// updateArgs reorders the full value list for the Update statement:
// non-identifier values first, identifier last.
func (r *Repository[T]) updateArgs(e *T) []any {
	vals := r.adapter.Values(e)
	cols := r.adapter.Meta.Columns()

	args := make([]any, 0, len(vals))
	var idVal any
	for i, col := range cols {
		if col == r.adapter.Meta.IDColumn {
			idVal = vals[i]
			continue
		}
		args = append(args, vals[i])
	}
	return append(args, idVal)
}

// UniqueViolation reports whether err is a Postgres unique-constraint
// violation, returning the constraint name when it is.
func UniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	return "", false
}
