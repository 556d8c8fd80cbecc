// Package storage implements the data-access layer: the column mapper,
// the dynamic query builder, and the repositories built on database/sql.
package storage

import (
	"fmt"
	"strings"
)

// ToSnakeCase converts a PascalCase field or type name to its storage
// name: "CustomerPhoneNumber" -> "customer_phone_number". A separator is
// inserted before each uppercase rune that follows a lowercase rune or a
// digit, so acronym runs stay together ("CustomerID" -> "customer_id").
func ToSnakeCase(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 4)

	prev := rune(0)
	for i, r := range name {
		if i > 0 && r >= 'A' && r <= 'Z' && (prev >= 'a' && prev <= 'z' || prev >= '0' && prev <= '9') {
			b.WriteByte('_')
		}
		b.WriteRune(r)
		prev = r
	}
	return strings.ToLower(b.String())
}

// Field describes one entity field for the mapping table.
type Field struct {
	Name     string // Go field name, e.g. "CustomerPhoneNumber"
	IsString bool   // participates in keyword search
}

// Meta is the startup-validated mapping from an entity shape to its
// table and column names. It is built once per entity and asserted
// injective: no two field names may collapse to the same column.
type Meta struct {
	EntityName string
	Table      string
	IDField    string
	IDColumn   string

	fields    []Field
	columns   []string // derived, same order as fields
	columnSet map[string]struct{}
}

// NewMeta derives the table and column names for an entity. The field
// list must be non-empty, contain the "<EntityName>ID" identifier, and
// map collision-free onto column names.
func NewMeta(entityName string, fields []Field) (*Meta, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("entity %s has no fields", entityName)
	}

	m := &Meta{
		EntityName: entityName,
		Table:      ToSnakeCase(entityName),
		IDField:    entityName + "ID",
		IDColumn:   ToSnakeCase(entityName + "ID"),
		fields:     fields,
		columns:    make([]string, len(fields)),
		columnSet:  make(map[string]struct{}, len(fields)),
	}

	byColumn := make(map[string]string, len(fields))
	hasID := false
	for i, f := range fields {
		col := ToSnakeCase(f.Name)
		if other, dup := byColumn[col]; dup {
			return nil, fmt.Errorf("entity %s: column %q derived from both %q and %q",
				entityName, col, other, f.Name)
		}
		byColumn[col] = f.Name
		m.columns[i] = col
		m.columnSet[col] = struct{}{}
		if f.Name == m.IDField {
			hasID = true
		}
	}
	if !hasID {
		return nil, fmt.Errorf("entity %s: identifier field %s missing", entityName, m.IDField)
	}

	return m, nil
}

// MustMeta builds a Meta and panics on configuration errors. Mapping
// mistakes are startup-time failures, never request-time ones.
func MustMeta(entityName string, fields []Field) *Meta {
	m, err := NewMeta(entityName, fields)
	if err != nil {
		panic(err)
	}
	return m
}

// Columns returns the column names in field declaration order.
func (m *Meta) Columns() []string {
	out := make([]string, len(m.columns))
	copy(out, m.columns)
	return out
}

// HasColumn reports whether col is a real column of this entity.
// Used as the whitelist check before splicing sort columns into SQL.
func (m *Meta) HasColumn(col string) bool {
	_, ok := m.columnSet[col]
	return ok
}

// StringColumns returns the columns of string-typed fields, the set a
// free-text keyword is matched against.
func (m *Meta) StringColumns() []string {
	var out []string
	for i, f := range m.fields {
		if f.IsString {
			out = append(out, m.columns[i])
		}
	}
	return out
}
