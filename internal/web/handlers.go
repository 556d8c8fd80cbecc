package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dvmchung/crm-backend/internal/apperr"
	"github.com/dvmchung/crm-backend/internal/customer"
	"github.com/dvmchung/crm-backend/internal/logging"
	"github.com/dvmchung/crm-backend/internal/storage"
)

// dateLayout is the wire format for lastPurchaseDate in requests.
const dateLayout = "2006-01-02"

// customerRequest is the JSON/form body for create and update.
type customerRequest struct {
	CustomerType            string `json:"customerType"`
	CustomerName            string `json:"customerName"`
	CustomerPhoneNumber     string `json:"customerPhoneNumber"`
	CustomerEmail           string `json:"customerEmail"`
	CustomerShippingAddress string `json:"customerShippingAddress"`
	CustomerTaxCode         string `json:"customerTaxCode"`
	LastPurchaseDate        string `json:"lastPurchaseDate"`
	PurchasedItemCode       string `json:"purchasedItemCode"`
	PurchasedItemName       string `json:"purchasedItemName"`
	CustomerAvatarURL       string `json:"customerAvatarUrl"`
}

func (req customerRequest) toInput() (customer.Input, error) {
	in := customer.Input{
		CustomerType:            strings.TrimSpace(req.CustomerType),
		CustomerName:            strings.TrimSpace(req.CustomerName),
		CustomerPhoneNumber:     strings.TrimSpace(req.CustomerPhoneNumber),
		CustomerEmail:           strings.TrimSpace(req.CustomerEmail),
		CustomerShippingAddress: strings.TrimSpace(req.CustomerShippingAddress),
		CustomerTaxCode:         strings.TrimSpace(req.CustomerTaxCode),
		PurchasedItemCode:       strings.TrimSpace(req.PurchasedItemCode),
		PurchasedItemName:       strings.TrimSpace(req.PurchasedItemName),
		CustomerAvatarURL:       strings.TrimSpace(req.CustomerAvatarURL),
	}
	if req.LastPurchaseDate != "" {
		t, err := time.Parse(dateLayout, req.LastPurchaseDate)
		if err != nil {
			return in, apperr.NewValidation("Ngày mua gần nhất không đúng định dạng yyyy-MM-dd")
		}
		in.LastPurchaseDate = &t
	}
	return in, nil
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	customers, err := s.service.GetAll(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, customers)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	c, err := s.service.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, c)
}

func (s *Server) handlePaging(w http.ResponseWriter, r *http.Request) {
	q := storage.PageQuery{
		PageNumber: intParam(r, "pageNumber", 1),
		PageSize:   intParam(r, "pageSize", 10),
		SortColumn: r.URL.Query().Get("sortColumn"),
		SortDir:    r.URL.Query().Get("sortDirection"),
		Keyword:    strings.TrimSpace(r.URL.Query().Get("keyword")),
	}

	page, err := s.service.GetPaging(r.Context(), q)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondPage(w, page.Data, meta{
		TotalRecords: page.TotalRecords,
		TotalPages:   page.TotalPages,
		PageNumber:   page.PageNumber,
		PageSize:     page.PageSize,
	})
}

func (s *Server) handleNewCode(w http.ResponseWriter, r *http.Request) {
	code, err := s.service.GenerateCode(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, map[string]string{"customerCode": code})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, apperr.NewValidation("Dữ liệu gửi lên không hợp lệ"))
		return
	}
	in, err := req.toInput()
	if err != nil {
		respondError(w, r, err)
		return
	}

	created, err := s.service.Create(r.Context(), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, created)
}

// handleCreateWithAvatar accepts a multipart form carrying the customer
// fields plus an optional "avatar" image. The image is uploaded first;
// its URL is persisted on the new customer.
func (s *Server) handleCreateWithAvatar(w http.ResponseWriter, r *http.Request) {
	in, ok := s.inputWithAvatar(w, r)
	if !ok {
		return
	}
	created, err := s.service.Create(r.Context(), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, created)
}

// handleUpdateWithAvatar is the multipart counterpart of handleUpdate.
func (s *Server) handleUpdateWithAvatar(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	in, ok := s.inputWithAvatar(w, r)
	if !ok {
		return
	}
	updated, err := s.service.Update(r.Context(), id, in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, updated)
}

// inputWithAvatar reads the multipart customer fields and, when an
// "avatar" part is present, uploads it and sets the resulting URL.
// On failure the response has already been written and ok is false.
func (s *Server) inputWithAvatar(w http.ResponseWriter, r *http.Request) (customer.Input, bool) {
	var zero customer.Input
	if s.uploader == nil {
		respondError(w, r, apperr.NewValidation("Tính năng tải ảnh đại diện chưa được cấu hình"))
		return zero, false
	}
	if err := r.ParseMultipartForm(s.imports.MaxFileSize); err != nil {
		respondError(w, r, apperr.NewValidation("Dữ liệu gửi lên không hợp lệ"))
		return zero, false
	}

	req := customerRequest{
		CustomerType:            r.FormValue("customerType"),
		CustomerName:            r.FormValue("customerName"),
		CustomerPhoneNumber:     r.FormValue("customerPhoneNumber"),
		CustomerEmail:           r.FormValue("customerEmail"),
		CustomerShippingAddress: r.FormValue("customerShippingAddress"),
		CustomerTaxCode:         r.FormValue("customerTaxCode"),
		LastPurchaseDate:        r.FormValue("lastPurchaseDate"),
		PurchasedItemCode:       r.FormValue("purchasedItemCode"),
		PurchasedItemName:       r.FormValue("purchasedItemName"),
		CustomerAvatarURL:       r.FormValue("customerAvatarUrl"),
	}
	in, err := req.toInput()
	if err != nil {
		respondError(w, r, err)
		return zero, false
	}

	file, header, err := r.FormFile("avatar")
	if err == nil {
		defer file.Close()
		url, upErr := s.uploader.Upload(r.Context(), header.Filename, file)
		if upErr != nil {
			logging.FromContext(r.Context()).Warn("avatar upload failed", "error", upErr)
			respondError(w, r, apperr.NewValidation("Không thể tải ảnh đại diện. Vui lòng thử lại."))
			return zero, false
		}
		in.CustomerAvatarURL = url
	} else if !errors.Is(err, http.ErrMissingFile) {
		respondError(w, r, apperr.NewValidation("Dữ liệu gửi lên không hợp lệ"))
		return zero, false
	}

	return in, true
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, apperr.NewValidation("Dữ liệu gửi lên không hợp lệ"))
		return
	}
	in, err := req.toInput()
	if err != nil {
		respondError(w, r, err)
		return
	}

	updated, err := s.service.Update(r.Context(), id, in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, updated)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.service.Delete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleDeleteMany(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []uuid.UUID `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, apperr.NewValidation("Dữ liệu gửi lên không hợp lệ"))
		return
	}

	n, err := s.service.DeleteMany(r.Context(), req.IDs)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, map[string]int64{"deletedCount": n})
}

// handleImport validates file name and size before handing the stream
// to the import pipeline. Row-level failures come back inside the
// result body, not as an HTTP error.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.imports.MaxFileSize+1024)
	if err := r.ParseMultipartForm(s.imports.MaxFileSize); err != nil {
		respondError(w, r, apperr.New(apperr.CodeFileSizeExceeded,
			sizeLimitMessage(s.imports.MaxFileSize)))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, apperr.NewValidation("Thiếu file CSV trong yêu cầu"))
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		respondError(w, r, apperr.New(apperr.CodeUnsupportedFileFormat,
			"Chỉ hỗ trợ file định dạng CSV."))
		return
	}
	if header.Size > s.imports.MaxFileSize {
		respondError(w, r, apperr.New(apperr.CodeFileSizeExceeded,
			sizeLimitMessage(s.imports.MaxFileSize)))
		return
	}

	result, err := s.service.ImportFromCSV(r.Context(), file)
	if err != nil {
		respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("csv import finished",
		"file", header.Filename,
		"total", result.TotalRows,
		"success", result.SuccessCount,
		"errors", result.ErrorCount,
	)
	respondData(w, http.StatusOK, result)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.ExportFilter{
		Name:       strings.TrimSpace(q.Get("name")),
		Email:      strings.TrimSpace(q.Get("email")),
		Phone:      strings.TrimSpace(q.Get("phone")),
		Keyword:    strings.TrimSpace(q.Get("keyword")),
		SortColumn: q.Get("sortColumn"),
		SortDir:    q.Get("sortDirection"),
	}

	data, err := s.service.ExportCSV(r.Context(), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		`attachment; filename="`+customer.ExportFileName(time.Now())+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func parseID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.NewValidation("ID không hợp lệ: " + raw)
	}
	return id, nil
}

func intParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}

func sizeLimitMessage(max int64) string {
	return "Kích thước file vượt quá giới hạn " +
		strconv.FormatInt(max/(1024*1024), 10) + "MB."
}
