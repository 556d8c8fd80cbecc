package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dvmchung/crm-backend/internal/config"
	"github.com/dvmchung/crm-backend/internal/customer"
	"github.com/dvmchung/crm-backend/internal/entity"
	"github.com/dvmchung/crm-backend/internal/storage"
)

// memStore is a minimal in-memory customer.Store for handler tests.
type memStore struct {
	rows map[uuid.UUID]*entity.Customer
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[uuid.UUID]*entity.Customer)}
}

func (m *memStore) live() []*entity.Customer {
	var out []*entity.Customer
	for _, c := range m.rows {
		if !c.IsDeleted {
			out = append(out, c)
		}
	}
	return out
}

func (m *memStore) GetAll(ctx context.Context) ([]*entity.Customer, error) {
	return m.live(), nil
}

func (m *memStore) GetByID(ctx context.Context, id uuid.UUID) (*entity.Customer, error) {
	c, ok := m.rows[id]
	if !ok || c.IsDeleted {
		return nil, nil
	}
	return c, nil
}

func (m *memStore) Insert(ctx context.Context, c *entity.Customer) (*entity.Customer, error) {
	m.rows[c.CustomerID] = c
	return c, nil
}

func (m *memStore) Update(ctx context.Context, c *entity.Customer) (*entity.Customer, error) {
	m.rows[c.CustomerID] = c
	return c, nil
}

func (m *memStore) SoftDelete(ctx context.Context, id uuid.UUID) (int64, error) {
	if c, ok := m.rows[id]; ok && !c.IsDeleted {
		c.IsDeleted = true
		return 1, nil
	}
	return 0, nil
}

func (m *memStore) SoftDeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, storage.ErrEmptyIDSet
	}
	var n int64
	for _, id := range ids {
		affected, _ := m.SoftDelete(ctx, id)
		n += affected
	}
	return n, nil
}

func (m *memStore) GetPaging(ctx context.Context, q storage.PageQuery) (*storage.Page[entity.Customer], error) {
	if q.PageNumber <= 0 || q.PageSize <= 0 || q.PageSize > storage.MaxPageSize {
		return nil, storage.ErrInvalidPage
	}
	all := m.live()
	return &storage.Page[entity.Customer]{
		Data:         all,
		TotalRecords: int64(len(all)),
		TotalPages:   1,
		PageNumber:   q.PageNumber,
		PageSize:     q.PageSize,
	}, nil
}

func (m *memStore) IsPhoneExist(ctx context.Context, phone string, excludeID *uuid.UUID) (bool, error) {
	for _, c := range m.live() {
		if excludeID != nil && c.CustomerID == *excludeID {
			continue
		}
		if c.CustomerPhoneNumber == phone {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) IsEmailExist(ctx context.Context, email string, excludeID *uuid.UUID) (bool, error) {
	for _, c := range m.live() {
		if excludeID != nil && c.CustomerID == *excludeID {
			continue
		}
		if strings.EqualFold(c.CustomerEmail, email) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) IsCodeExist(ctx context.Context, code string) (bool, error) {
	for _, c := range m.live() {
		if c.CustomerCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) GetMaxCode(ctx context.Context, prefix string) (string, error) {
	maxCode := ""
	for _, c := range m.live() {
		if strings.HasPrefix(c.CustomerCode, prefix) && c.CustomerCode > maxCode {
			maxCode = c.CustomerCode
		}
	}
	return maxCode, nil
}

func (m *memStore) InsertMany(ctx context.Context, customers []*entity.Customer) (int64, error) {
	for _, c := range customers {
		m.rows[c.CustomerID] = c
	}
	return int64(len(customers)), nil
}

func (m *memStore) GetForExport(ctx context.Context, f storage.ExportFilter) ([]*entity.Customer, error) {
	return m.live(), nil
}

func newTestServer() *Server {
	svc := customer.NewService(newMemStore(), customer.Options{
		Clock: func() time.Time { return time.Date(2025, 1, 20, 9, 0, 0, 0, time.UTC) },
	})
	return NewServer(svc, nil, config.ServerConfig{
		RequestTimeout: 10 * time.Second,
	}, config.ImportConfig{MaxFileSize: 1 << 20})
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestHandleCreateAndGet(t *testing.T) {
	srv := newTestServer()

	payload := `{
		"customerName": "Nguyễn Văn An",
		"customerPhoneNumber": "0912345678",
		"customerEmail": "an.nguyen@example.com"
	}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/customers/", strings.NewReader(payload))
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := decodeEnvelope(t, rec)
	data := body["data"].(map[string]any)
	if data["customerCode"] != "KH202501000001" {
		t.Errorf("customerCode = %v, want KH202501000001", data["customerCode"])
	}

	id := data["customerID"].(string)
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/customers/"+id, nil)
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleCreate_ValidationError(t *testing.T) {
	srv := newTestServer()

	payload := `{"customerName": "", "customerPhoneNumber": "0912345678", "customerEmail": "a@b.co"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/customers/", strings.NewReader(payload))
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	errBody := body["error"].(map[string]any)
	if errBody["code"] != "2001" {
		t.Errorf("error code = %v, want 2001", errBody["code"])
	}
}

func TestHandleGet_NotFound(t *testing.T) {
	srv := newTestServer()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers/"+uuid.NewString(), nil)
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	errBody := body["error"].(map[string]any)
	if errBody["code"] != "3003" {
		t.Errorf("error code = %v, want 3003", errBody["code"])
	}
}

func TestHandleGet_MalformedID(t *testing.T) {
	srv := newTestServer()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers/not-a-uuid", nil)
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandlePaging_RejectsBadBounds(t *testing.T) {
	srv := newTestServer()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers/paging?pageNumber=0", nil)
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func multipartFile(t *testing.T, field, name, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, name)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

func TestHandleImport(t *testing.T) {
	srv := newTestServer()

	csv := "FullName,Phone,Email,Address,CustomerType\nNguyễn Văn An,0912345678,an.nguyen@example.com,,\n"
	body, contentType := multipartFile(t, "file", "customers.csv", csv)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/customers/import", body)
	req.Header.Set("Content-Type", contentType)
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	data := env["data"].(map[string]any)
	if data["successCount"] != float64(1) {
		t.Errorf("successCount = %v, want 1", data["successCount"])
	}
}

func TestHandleImport_RejectsNonCSV(t *testing.T) {
	srv := newTestServer()

	body, contentType := multipartFile(t, "file", "customers.xlsx", "not a csv")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/customers/import", body)
	req.Header.Set("Content-Type", contentType)
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	errBody := env["error"].(map[string]any)
	if errBody["code"] != "5001" {
		t.Errorf("error code = %v, want 5001", errBody["code"])
	}
}

func TestHandleExport_Headers(t *testing.T) {
	srv := newTestServer()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers/export", nil)
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}
	disp := rec.Header().Get("Content-Disposition")
	if !strings.Contains(disp, "DanhSachKhachHang_") || !strings.Contains(disp, ".csv") {
		t.Errorf("Content-Disposition = %q, want timestamped attachment name", disp)
	}
}

func TestHandleNewCode(t *testing.T) {
	srv := newTestServer()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers/new-code", nil)
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	data := env["data"].(map[string]any)
	if data["customerCode"] != "KH202501000001" {
		t.Errorf("customerCode = %v, want KH202501000001", data["customerCode"])
	}
}
