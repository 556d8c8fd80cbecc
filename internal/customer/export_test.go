package customer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dvmchung/crm-backend/internal/entity"
	"github.com/dvmchung/crm-backend/internal/storage"
)

func TestExportCSV(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	date := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	store.add(&entity.Customer{
		CustomerID:              uuid.New(),
		CustomerType:            "VIP",
		CustomerCode:            "KH202501000001",
		CustomerName:            "Nguyễn, Văn An", // comma forces quoting
		CustomerPhoneNumber:     "0912345678",
		CustomerEmail:           "an.nguyen@example.com",
		CustomerShippingAddress: "Hà Nội",
		LastPurchaseDate:        &date,
	})
	store.add(&entity.Customer{
		CustomerID:          uuid.New(),
		CustomerCode:        "KH202501000002",
		CustomerName:        "Trần Thị Bình",
		CustomerPhoneNumber: "0987654321",
		CustomerEmail:       "binh.tran@example.com",
	})

	data, err := svc.ExportCSV(context.Background(), storage.ExportFilter{})
	if err != nil {
		t.Fatalf("ExportCSV() error = %v", err)
	}
	out := string(data)

	if !strings.HasPrefix(out, utf8BOM) {
		t.Error("export missing UTF-8 BOM")
	}

	lines := strings.Split(strings.TrimSuffix(strings.TrimPrefix(out, utf8BOM), "\r\n"), "\r\n")
	if len(lines) != 3 {
		t.Fatalf("export has %d lines, want header + 2 rows", len(lines))
	}

	wantHeader := "STT,Mã khách hàng,Tên khách hàng,Loại khách hàng,Số điện thoại,Email,Địa chỉ giao hàng,Mã số thuế,Ngày mua gần nhất,Mã hàng đã mua,Tên hàng đã mua"
	if lines[0] != wantHeader {
		t.Errorf("header = %q\nwant  %q", lines[0], wantHeader)
	}

	// Row numbering starts at 1; the comma-bearing name is quoted; the
	// date renders dd/MM/yyyy.
	row1 := ParseCSVLine(lines[1])
	if row1[0] != "1" {
		t.Errorf("STT = %q, want 1", row1[0])
	}
	if row1[2] != "Nguyễn, Văn An" {
		t.Errorf("name round-trips as %q", row1[2])
	}
	if row1[8] != "05/01/2025" {
		t.Errorf("date = %q, want 05/01/2025", row1[8])
	}

	// Absent optional values are empty cells, not placeholders.
	row2 := ParseCSVLine(lines[2])
	if row2[0] != "2" {
		t.Errorf("STT = %q, want 2", row2[0])
	}
	if row2[8] != "" {
		t.Errorf("empty date = %q, want empty cell", row2[8])
	}
}

func TestExportCSV_EmptyResult(t *testing.T) {
	svc := newTestService(newFakeStore())

	data, err := svc.ExportCSV(context.Background(), storage.ExportFilter{})
	if err != nil {
		t.Fatalf("ExportCSV() error = %v", err)
	}

	// Header only, still with BOM.
	out := strings.TrimPrefix(string(data), utf8BOM)
	if strings.Count(out, "\r\n") != 1 {
		t.Errorf("empty export = %q, want just the header line", out)
	}
}

func TestExportCSV_Filtered(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	store.add(&entity.Customer{
		CustomerID:          uuid.New(),
		CustomerCode:        "KH202501000001",
		CustomerName:        "Nguyễn Văn An",
		CustomerPhoneNumber: "0912345678",
		CustomerEmail:       "an.nguyen@example.com",
	})
	store.add(&entity.Customer{
		CustomerID:          uuid.New(),
		CustomerCode:        "KH202501000002",
		CustomerName:        "Trần Thị Bình",
		CustomerPhoneNumber: "0987654321",
		CustomerEmail:       "binh.tran@example.com",
	})

	data, err := svc.ExportCSV(context.Background(), storage.ExportFilter{Name: "bình"})
	if err != nil {
		t.Fatalf("ExportCSV() error = %v", err)
	}
	out := string(data)

	if strings.Contains(out, "Nguyễn Văn An") {
		t.Error("filtered export still contains the unmatched customer")
	}
	if !strings.Contains(out, "Trần Thị Bình") {
		t.Error("filtered export dropped the matching customer")
	}
}

func TestExportFileName(t *testing.T) {
	at := time.Date(2025, 1, 20, 9, 30, 45, 0, time.UTC)
	want := "DanhSachKhachHang_20250120_093045.csv"
	if got := ExportFileName(at); got != want {
		t.Errorf("ExportFileName() = %q, want %q", got, want)
	}
}
