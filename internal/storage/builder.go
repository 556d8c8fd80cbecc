package storage

// builder.go composes parameterized SQL for one entity shape. Column
// and table names come exclusively from the startup-validated Meta;
// caller-supplied sort columns are checked against the Meta whitelist
// and silently fall back to the default order when unknown. Values are
// always bound as $n parameters, never spliced into the text.

import (
	"errors"
	"fmt"
	"strings"
)

// MaxPageSize bounds the number of rows a single page may request.
const MaxPageSize = 100

// ErrEmptyIDSet is returned when a bulk operation receives no ids.
var ErrEmptyIDSet = errors.New("empty id set")

// ErrInvalidPage is returned for non-positive or oversized page bounds.
var ErrInvalidPage = errors.New("invalid page bounds")

// PageQuery carries paging, sorting, and free-text filter input.
type PageQuery struct {
	PageNumber int
	PageSize   int
	SortColumn string // field or column name; ignored if not whitelisted
	SortDir    string // "asc" or "desc", default asc
	Keyword    string // case-insensitive substring over string columns
}

// Builder generates SQL text for the entity described by its Meta.
type Builder struct {
	meta *Meta
}

// NewBuilder returns a Builder for the given mapping.
func NewBuilder(meta *Meta) *Builder {
	return &Builder{meta: meta}
}

// SelectAll lists all non-deleted rows.
func (b *Builder) SelectAll() string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE is_deleted = FALSE",
		strings.Join(b.meta.Columns(), ", "), b.meta.Table)
}

// SelectByID fetches one non-deleted row by its identifier ($1).
func (b *Builder) SelectByID() string {
	return fmt.Sprintf("%s AND %s = $1", b.SelectAll(), b.meta.IDColumn)
}

// Insert covers every column in declaration order; values are bound
// positionally in the same order.
func (b *Builder) Insert() string {
	cols := b.meta.Columns()
	params := make([]string, len(cols))
	for i := range cols {
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		b.meta.Table, strings.Join(cols, ", "), strings.Join(params, ", "))
}

// Update sets every column except the identifier; the identifier binds
// last, as the WHERE parameter.
func (b *Builder) Update() string {
	var sets []string
	n := 1
	for _, col := range b.meta.Columns() {
		if col == b.meta.IDColumn {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", col, n))
		n++
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d",
		b.meta.Table, strings.Join(sets, ", "), b.meta.IDColumn, n)
}

// SoftDelete marks a single row deleted by id ($1).
func (b *Builder) SoftDelete() string {
	return fmt.Sprintf("UPDATE %s SET is_deleted = TRUE WHERE %s = $1",
		b.meta.Table, b.meta.IDColumn)
}

// SoftDeleteMany marks n rows deleted in one statement, each id bound
// as its own parameter inside the IN list.
func (b *Builder) SoftDeleteMany(n int) (string, error) {
	if n <= 0 {
		return "", ErrEmptyIDSet
	}
	params := make([]string, n)
	for i := range params {
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("UPDATE %s SET is_deleted = TRUE WHERE %s IN (%s)",
		b.meta.Table, b.meta.IDColumn, strings.Join(params, ", ")), nil
}

// Paging builds the data query, the matching count query, and the shared
// argument list. The count query reuses the same WHERE and arguments but
// no LIMIT/OFFSET, so both describe the same filtered set.
func (b *Builder) Paging(q PageQuery) (dataSQL, countSQL string, args []any, err error) {
	if q.PageNumber <= 0 || q.PageSize <= 0 || q.PageSize > MaxPageSize {
		return "", "", nil, ErrInvalidPage
	}

	where, args := b.whereClause(q.Keyword)

	countSQL = fmt.Sprintf("SELECT COUNT(*) FROM %s %s", b.meta.Table, where)

	offset := (q.PageNumber - 1) * q.PageSize
	limitIdx := len(args) + 1
	dataSQL = fmt.Sprintf("SELECT %s FROM %s %s %s LIMIT $%d OFFSET $%d",
		strings.Join(b.meta.Columns(), ", "), b.meta.Table, where,
		b.orderClause(q.SortColumn, q.SortDir), limitIdx, limitIdx+1)
	args = append(args, q.PageSize, offset)

	return dataSQL, countSQL, args, nil
}

// whereClause starts every read from "not deleted" and optionally ORs a
// single shared ILIKE parameter across all string columns.
func (b *Builder) whereClause(keyword string) (string, []any) {
	where := "WHERE is_deleted = FALSE"
	var args []any

	if strings.TrimSpace(keyword) != "" {
		cols := b.meta.StringColumns()
		if len(cols) > 0 {
			conds := make([]string, len(cols))
			for i, col := range cols {
				conds[i] = fmt.Sprintf("%s ILIKE $%d", col, len(args)+1)
			}
			where += " AND (" + strings.Join(conds, " OR ") + ")"
			args = append(args, "%"+keyword+"%")
		}
	}

	return where, args
}

// orderClause validates the requested sort column against the Meta
// whitelist. Unknown columns are neutralized by falling back to the
// identifier descending, never surfaced as errors.
func (b *Builder) orderClause(sortColumn, sortDir string) string {
	col := ToSnakeCase(strings.TrimSpace(sortColumn))
	if col == "" || !b.meta.HasColumn(col) {
		return fmt.Sprintf("ORDER BY %s DESC", b.meta.IDColumn)
	}
	dir := "ASC"
	if strings.EqualFold(sortDir, "desc") {
		dir = "DESC"
	}
	return fmt.Sprintf("ORDER BY %s %s", col, dir)
}
