package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dvmchung/crm-backend/internal/entity"
)

// Unique index names from schema/customer.sql; used to tell which
// column a 23505 violation came from.
const (
	ConstraintCustomerCode  = "uq_customer_code"
	ConstraintCustomerPhone = "uq_customer_phone"
	ConstraintCustomerEmail = "uq_customer_email"
)

// CustomerMeta is the startup-validated mapping for the customer table.
// Injectivity is asserted here (MustMeta panics on collision) and again
// in the mapper tests.
var CustomerMeta = MustMeta("Customer", []Field{
	{Name: "CustomerID"},
	{Name: "CustomerType", IsString: true},
	{Name: "CustomerCode", IsString: true},
	{Name: "CustomerName", IsString: true},
	{Name: "CustomerPhoneNumber", IsString: true},
	{Name: "CustomerEmail", IsString: true},
	{Name: "CustomerShippingAddress", IsString: true},
	{Name: "CustomerTaxCode", IsString: true},
	{Name: "LastPurchaseDate"},
	{Name: "PurchasedItemCode", IsString: true},
	{Name: "PurchasedItemName", IsString: true},
	{Name: "CustomerAvatarURL", IsString: true},
	{Name: "IsDeleted"},
})

// ExportFilter selects and orders the unbounded result set for export.
// The contains-filters and keyword compose with AND; keyword fans out
// across name, email, phone, and code.
type ExportFilter struct {
	Name       string
	Email      string
	Phone      string
	Keyword    string
	SortColumn string
	SortDir    string
}

func customerAdapter() Adapter[entity.Customer] {
	return Adapter[entity.Customer]{
		Meta: CustomerMeta,
		ID:   func(c *entity.Customer) uuid.UUID { return c.CustomerID },
		Values: func(c *entity.Customer) []any {
			var last sql.NullTime
			if c.LastPurchaseDate != nil {
				last = sql.NullTime{Time: *c.LastPurchaseDate, Valid: true}
			}
			return []any{
				c.CustomerID,
				c.CustomerType,
				c.CustomerCode,
				c.CustomerName,
				c.CustomerPhoneNumber,
				c.CustomerEmail,
				c.CustomerShippingAddress,
				c.CustomerTaxCode,
				last,
				c.PurchasedItemCode,
				c.PurchasedItemName,
				c.CustomerAvatarURL,
				c.IsDeleted,
			}
		},
		Scan: func(rs RowScanner) (*entity.Customer, error) {
			var c entity.Customer
			var last sql.NullTime
			err := rs.Scan(
				&c.CustomerID,
				&c.CustomerType,
				&c.CustomerCode,
				&c.CustomerName,
				&c.CustomerPhoneNumber,
				&c.CustomerEmail,
				&c.CustomerShippingAddress,
				&c.CustomerTaxCode,
				&last,
				&c.PurchasedItemCode,
				&c.PurchasedItemName,
				&c.CustomerAvatarURL,
				&c.IsDeleted,
			)
			if err != nil {
				return nil, err
			}
			if last.Valid {
				t := last.Time
				c.LastPurchaseDate = &t
			}
			return &c, nil
		},
	}
}

// CustomerRepository adds the customer-specific operations on top of
// the generic repository: existence checks, max-code lookup, batch
// insert, and the unbounded export query.
type CustomerRepository struct {
	*Repository[entity.Customer]

	db      DBTX
	adapter Adapter[entity.Customer]
}

// NewCustomerRepository wires the customer adapter to the given handle.
func NewCustomerRepository(db DBTX) (*CustomerRepository, error) {
	ad := customerAdapter()
	base, err := NewRepository(db, ad)
	if err != nil {
		return nil, err
	}
	return &CustomerRepository{Repository: base, db: db, adapter: ad}, nil
}

// IsPhoneExist reports whether a non-deleted customer, other than
// excludeID when given, already holds the phone number.
func (r *CustomerRepository) IsPhoneExist(ctx context.Context, phone string, excludeID *uuid.UUID) (bool, error) {
	return r.exists(ctx, "customer_phone_number", phone, excludeID, false)
}

// IsEmailExist reports whether a non-deleted customer, other than
// excludeID when given, already holds the email. The comparison folds
// case, matching the lower() unique index on the column.
func (r *CustomerRepository) IsEmailExist(ctx context.Context, email string, excludeID *uuid.UUID) (bool, error) {
	return r.exists(ctx, "customer_email", email, excludeID, true)
}

// IsCodeExist reports whether a non-deleted customer holds the code.
func (r *CustomerRepository) IsCodeExist(ctx context.Context, code string) (bool, error) {
	return r.exists(ctx, "customer_code", code, nil, false)
}

func (r *CustomerRepository) exists(ctx context.Context, column, value string, excludeID *uuid.UUID, foldCase bool) (bool, error) {
	predicate := column + " = $1"
	if foldCase {
		predicate = fmt.Sprintf("lower(%s) = lower($1)", column)
	}
	query := fmt.Sprintf(
		"SELECT COUNT(*) FROM customer WHERE %s AND is_deleted = FALSE", predicate)
	args := []any{value}
	if excludeID != nil {
		query += " AND customer_id <> $2"
		args = append(args, *excludeID)
	}

	var n int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("count %s: %w", column, err)
	}
	return n > 0, nil
}

// GetMaxCode returns the greatest customer code sharing the prefix
// among non-deleted rows, comparing by the numeric suffix, or "" when
// no code carries the prefix.
func (r *CustomerRepository) GetMaxCode(ctx context.Context, prefix string) (string, error) {
	const query = `SELECT customer_code
		FROM customer
		WHERE customer_code LIKE $1 AND is_deleted = FALSE
		ORDER BY CAST(SUBSTRING(customer_code FROM $2) AS BIGINT) DESC
		LIMIT 1`

	var code string
	err := r.db.QueryRowContext(ctx, query, prefix+"%", len(prefix)+1).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("max customer code: %w", err)
	}
	return code, nil
}

// InsertMany persists the batch in one multi-row INSERT and returns the
// number of rows the statement affected.
func (r *CustomerRepository) InsertMany(ctx context.Context, customers []*entity.Customer) (int64, error) {
	if len(customers) == 0 {
		return 0, nil
	}

	cols := CustomerMeta.Columns()
	width := len(cols)

	rows := make([]string, len(customers))
	args := make([]any, 0, len(customers)*width)
	for i, c := range customers {
		params := make([]string, width)
		for j := range params {
			params[j] = fmt.Sprintf("$%d", i*width+j+1)
		}
		rows[i] = "(" + strings.Join(params, ", ") + ")"
		args = append(args, r.adapter.Values(c)...)
	}

	query := fmt.Sprintf("INSERT INTO customer (%s) VALUES %s",
		strings.Join(cols, ", "), strings.Join(rows, ", "))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert customer batch: %w", err)
	}
	return res.RowsAffected()
}

// GetForExport materializes the whole filtered, sorted result set with
// no LIMIT. Same WHERE/ORDER BY semantics as paging, unbounded.
func (r *CustomerRepository) GetForExport(ctx context.Context, f ExportFilter) ([]*entity.Customer, error) {
	where := "WHERE is_deleted = FALSE"
	var args []any

	contains := func(column, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		args = append(args, "%"+value+"%")
		where += fmt.Sprintf(" AND %s ILIKE $%d", column, len(args))
	}
	contains("customer_name", f.Name)
	contains("customer_email", f.Email)
	contains("customer_phone_number", f.Phone)

	if strings.TrimSpace(f.Keyword) != "" {
		args = append(args, "%"+f.Keyword+"%")
		n := len(args)
		where += fmt.Sprintf(
			" AND (customer_name ILIKE $%d OR customer_email ILIKE $%d OR customer_phone_number ILIKE $%d OR customer_code ILIKE $%d)",
			n, n, n, n)
	}

	builder := NewBuilder(CustomerMeta)
	query := fmt.Sprintf("SELECT %s FROM customer %s %s",
		strings.Join(CustomerMeta.Columns(), ", "), where,
		builder.orderClause(f.SortColumn, f.SortDir))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("export customers: %w", err)
	}
	defer rows.Close()

	return r.Repository.collect(rows)
}
