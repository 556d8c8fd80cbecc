package customer

// store_test.go provides the in-memory Store used by the service,
// import, and export tests. It mimics the repository contract: soft
// deletes, live-rows-only uniqueness, numeric max-code ordering.

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/dvmchung/crm-backend/internal/entity"
	"github.com/dvmchung/crm-backend/internal/storage"
)

type fakeStore struct {
	rows map[uuid.UUID]*entity.Customer

	// insertManyErrs is consumed one error per InsertMany call,
	// simulating transient unique violations.
	insertManyErrs  []error
	insertManyCalls int

	// insertErr fails the next Insert once.
	insertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[uuid.UUID]*entity.Customer)}
}

func (f *fakeStore) add(c *entity.Customer) {
	cp := *c
	f.rows[c.CustomerID] = &cp
}

func (f *fakeStore) live() []*entity.Customer {
	var out []*entity.Customer
	for _, c := range f.rows {
		if !c.IsDeleted {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CustomerCode < out[j].CustomerCode
	})
	return out
}

func (f *fakeStore) GetAll(ctx context.Context) ([]*entity.Customer, error) {
	return f.live(), nil
}

func (f *fakeStore) GetByID(ctx context.Context, id uuid.UUID) (*entity.Customer, error) {
	c, ok := f.rows[id]
	if !ok || c.IsDeleted {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) Insert(ctx context.Context, c *entity.Customer) (*entity.Customer, error) {
	if f.insertErr != nil {
		err := f.insertErr
		f.insertErr = nil
		return nil, err
	}
	f.add(c)
	return f.GetByID(ctx, c.CustomerID)
}

func (f *fakeStore) Update(ctx context.Context, c *entity.Customer) (*entity.Customer, error) {
	f.add(c)
	return f.GetByID(ctx, c.CustomerID)
}

func (f *fakeStore) SoftDelete(ctx context.Context, id uuid.UUID) (int64, error) {
	c, ok := f.rows[id]
	if !ok || c.IsDeleted {
		return 0, nil
	}
	c.IsDeleted = true
	return 1, nil
}

func (f *fakeStore) SoftDeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, storage.ErrEmptyIDSet
	}
	var n int64
	for _, id := range ids {
		affected, _ := f.SoftDelete(ctx, id)
		n += affected
	}
	return n, nil
}

func (f *fakeStore) GetPaging(ctx context.Context, q storage.PageQuery) (*storage.Page[entity.Customer], error) {
	if q.PageNumber <= 0 || q.PageSize <= 0 || q.PageSize > storage.MaxPageSize {
		return nil, storage.ErrInvalidPage
	}
	all := f.live()
	total := int64(len(all))
	start := (q.PageNumber - 1) * q.PageSize
	if start > len(all) {
		start = len(all)
	}
	end := start + q.PageSize
	if end > len(all) {
		end = len(all)
	}
	return &storage.Page[entity.Customer]{
		Data:         all[start:end],
		TotalRecords: total,
		TotalPages:   int((total + int64(q.PageSize) - 1) / int64(q.PageSize)),
		PageNumber:   q.PageNumber,
		PageSize:     q.PageSize,
	}, nil
}

func (f *fakeStore) IsPhoneExist(ctx context.Context, phone string, excludeID *uuid.UUID) (bool, error) {
	for _, c := range f.live() {
		if excludeID != nil && c.CustomerID == *excludeID {
			continue
		}
		if c.CustomerPhoneNumber == phone {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) IsEmailExist(ctx context.Context, email string, excludeID *uuid.UUID) (bool, error) {
	for _, c := range f.live() {
		if excludeID != nil && c.CustomerID == *excludeID {
			continue
		}
		if strings.EqualFold(c.CustomerEmail, email) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) IsCodeExist(ctx context.Context, code string) (bool, error) {
	for _, c := range f.live() {
		if c.CustomerCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) GetMaxCode(ctx context.Context, prefix string) (string, error) {
	maxCode := ""
	maxSeq := -1
	for _, c := range f.live() {
		if !strings.HasPrefix(c.CustomerCode, prefix) {
			continue
		}
		seq, err := strconv.Atoi(c.CustomerCode[len(prefix):])
		if err != nil {
			continue
		}
		if seq > maxSeq {
			maxSeq = seq
			maxCode = c.CustomerCode
		}
	}
	return maxCode, nil
}

func (f *fakeStore) InsertMany(ctx context.Context, customers []*entity.Customer) (int64, error) {
	f.insertManyCalls++
	if len(f.insertManyErrs) > 0 {
		err := f.insertManyErrs[0]
		f.insertManyErrs = f.insertManyErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	for _, c := range customers {
		f.add(c)
	}
	return int64(len(customers)), nil
}

func (f *fakeStore) GetForExport(ctx context.Context, filter storage.ExportFilter) ([]*entity.Customer, error) {
	var out []*entity.Customer
	for _, c := range f.live() {
		if filter.Name != "" && !strings.Contains(strings.ToLower(c.CustomerName), strings.ToLower(filter.Name)) {
			continue
		}
		if filter.Email != "" && !strings.Contains(strings.ToLower(c.CustomerEmail), strings.ToLower(filter.Email)) {
			continue
		}
		if filter.Phone != "" && !strings.Contains(c.CustomerPhoneNumber, filter.Phone) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
