// Package customer implements the business rules for customer records:
// CRUD validation, sequential code generation, CSV import, and CSV
// export. It speaks to storage only through the Store interface.
package customer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dvmchung/crm-backend/internal/apperr"
	"github.com/dvmchung/crm-backend/internal/entity"
	"github.com/dvmchung/crm-backend/internal/storage"
)

// Store is the persistence contract the service depends on.
// *storage.CustomerRepository satisfies it.
type Store interface {
	GetAll(ctx context.Context) ([]*entity.Customer, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Customer, error)
	Insert(ctx context.Context, c *entity.Customer) (*entity.Customer, error)
	Update(ctx context.Context, c *entity.Customer) (*entity.Customer, error)
	SoftDelete(ctx context.Context, id uuid.UUID) (int64, error)
	SoftDeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error)
	GetPaging(ctx context.Context, q storage.PageQuery) (*storage.Page[entity.Customer], error)

	IsPhoneExist(ctx context.Context, phone string, excludeID *uuid.UUID) (bool, error)
	IsEmailExist(ctx context.Context, email string, excludeID *uuid.UUID) (bool, error)
	IsCodeExist(ctx context.Context, code string) (bool, error)
	GetMaxCode(ctx context.Context, prefix string) (string, error)
	InsertMany(ctx context.Context, customers []*entity.Customer) (int64, error)
	GetForExport(ctx context.Context, f storage.ExportFilter) ([]*entity.Customer, error)
}

// Options tunes service behavior.
type Options struct {
	// RequireAddress and RequireType make the corresponding import
	// columns mandatory per row. Both default to the permissive
	// variant: optional, length-checked when present.
	RequireAddress bool
	RequireType    bool

	// Clock supplies "now"; defaults to time.Now. Injected in tests.
	Clock func() time.Time
}

// Input carries the caller-supplied customer fields for create and
// update. Identity and code are never taken from input: the id is
// generated, the code is system-assigned and immutable.
type Input struct {
	CustomerType            string
	CustomerName            string
	CustomerPhoneNumber     string
	CustomerEmail           string
	CustomerShippingAddress string
	CustomerTaxCode         string
	LastPurchaseDate        *time.Time
	PurchasedItemCode       string
	PurchasedItemName       string
	CustomerAvatarURL       string
}

// Service orchestrates customer business rules over a Store.
type Service struct {
	store Store
	opts  Options
	clock func() time.Time

	// codeMu serializes in-process code assignment; the unique index
	// on customer_code plus retry covers cross-process races.
	codeMu sync.Mutex
}

// NewService returns a Service with the given store and options.
func NewService(store Store, opts Options) *Service {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{store: store, opts: opts, clock: clock}
}

// GetAll returns every non-deleted customer.
func (s *Service) GetAll(ctx context.Context) ([]*entity.Customer, error) {
	return s.store.GetAll(ctx)
}

// GetByID returns the customer or a NotFound error.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*entity.Customer, error) {
	c, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.NewNotFound("khách hàng", id)
	}
	return c, nil
}

// GetPaging returns one page and the total matching count. Page bounds
// are rejected, not clamped, when out of range.
func (s *Service) GetPaging(ctx context.Context, q storage.PageQuery) (*storage.Page[entity.Customer], error) {
	page, err := s.store.GetPaging(ctx, q)
	if errors.Is(err, storage.ErrInvalidPage) {
		return nil, apperr.NewValidation(fmt.Sprintf(
			"Số trang phải lớn hơn 0 và số bản ghi trên mỗi trang phải từ 1 đến %d", storage.MaxPageSize))
	}
	return page, err
}

// Create validates the input, checks phone and email uniqueness,
// assigns a fresh code, and inserts. A cross-process code collision
// surfaces as a unique violation and is retried with a new code.
func (s *Service) Create(ctx context.Context, in Input) (*entity.Customer, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	if exists, err := s.store.IsPhoneExist(ctx, in.CustomerPhoneNumber, nil); err != nil {
		return nil, err
	} else if exists {
		return nil, apperr.NewDuplicate("Số điện thoại", in.CustomerPhoneNumber)
	}
	if exists, err := s.store.IsEmailExist(ctx, in.CustomerEmail, nil); err != nil {
		return nil, err
	} else if exists {
		return nil, apperr.NewDuplicate("Email", in.CustomerEmail)
	}

	for attempt := 0; ; attempt++ {
		code, err := s.GenerateCode(ctx)
		if err != nil {
			return nil, err
		}

		c := entityFromInput(uuid.New(), code, in)
		created, err := s.store.Insert(ctx, c)
		if err == nil {
			return created, nil
		}

		constraint, unique := storage.UniqueViolation(err)
		if !unique {
			return nil, err
		}
		switch constraint {
		case storage.ConstraintCustomerPhone:
			return nil, apperr.NewDuplicate("Số điện thoại", in.CustomerPhoneNumber)
		case storage.ConstraintCustomerEmail:
			return nil, apperr.NewDuplicate("Email", in.CustomerEmail)
		case storage.ConstraintCustomerCode:
			if attempt < maxCodeRetries {
				slog.Warn("customer code collided, regenerating", "code", code, "attempt", attempt+1)
				continue
			}
			return nil, apperr.NewDuplicate("Mã khách hàng", code)
		default:
			return nil, err
		}
	}
}

// Update rewrites a customer in place. Identity and code are preserved
// from the stored row; phone and email must not belong to a different
// non-deleted customer.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in Input) (*entity.Customer, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, apperr.NewNotFound("khách hàng", id)
	}

	if exists, err := s.store.IsPhoneExist(ctx, in.CustomerPhoneNumber, &id); err != nil {
		return nil, err
	} else if exists {
		return nil, apperr.NewDuplicate("Số điện thoại", in.CustomerPhoneNumber)
	}
	if exists, err := s.store.IsEmailExist(ctx, in.CustomerEmail, &id); err != nil {
		return nil, err
	} else if exists {
		return nil, apperr.NewDuplicate("Email", in.CustomerEmail)
	}

	c := entityFromInput(id, existing.CustomerCode, in)
	return s.store.Update(ctx, c)
}

// Delete soft-deletes one customer, requiring it to exist first.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return apperr.NewNotFound("khách hàng", id)
	}
	_, err = s.store.SoftDelete(ctx, id)
	return err
}

// DeleteMany soft-deletes a non-empty set of customers in a single
// statement and returns rows affected.
func (s *Service) DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error) {
	n, err := s.store.SoftDeleteMany(ctx, ids)
	if errors.Is(err, storage.ErrEmptyIDSet) {
		return 0, apperr.NewValidation("Danh sách ID không được để trống")
	}
	return n, err
}

func entityFromInput(id uuid.UUID, code string, in Input) *entity.Customer {
	return &entity.Customer{
		CustomerID:              id,
		CustomerType:            in.CustomerType,
		CustomerCode:            code,
		CustomerName:            in.CustomerName,
		CustomerPhoneNumber:     in.CustomerPhoneNumber,
		CustomerEmail:           in.CustomerEmail,
		CustomerShippingAddress: in.CustomerShippingAddress,
		CustomerTaxCode:         in.CustomerTaxCode,
		LastPurchaseDate:        in.LastPurchaseDate,
		PurchasedItemCode:       in.PurchasedItemCode,
		PurchasedItemName:       in.PurchasedItemName,
		CustomerAvatarURL:       in.CustomerAvatarURL,
		IsDeleted:               false,
	}
}
