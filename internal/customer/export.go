package customer

import (
	"bytes"
	"context"
	"strconv"
	"time"

	"github.com/dvmchung/crm-backend/internal/storage"
)

// exportHeader is the fixed column order of the export file.
var exportHeader = []string{
	"STT",
	"Mã khách hàng",
	"Tên khách hàng",
	"Loại khách hàng",
	"Số điện thoại",
	"Email",
	"Địa chỉ giao hàng",
	"Mã số thuế",
	"Ngày mua gần nhất",
	"Mã hàng đã mua",
	"Tên hàng đã mua",
}

const exportDateLayout = "02/01/2006"

// ExportCSV renders every customer matching the filter as a CSV
// document. The output opens with a UTF-8 BOM so spreadsheet tools
// detect the encoding, rows are numbered from 1, and dates use
// dd/MM/yyyy. Empty optional fields render as empty cells.
func (s *Service) ExportCSV(ctx context.Context, f storage.ExportFilter) ([]byte, error) {
	customers, err := s.store.GetForExport(ctx, f)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(utf8BOM)
	writeCSVRow(&buf, exportHeader)

	for i, c := range customers {
		date := ""
		if c.LastPurchaseDate != nil {
			date = c.LastPurchaseDate.Format(exportDateLayout)
		}
		writeCSVRow(&buf, []string{
			strconv.Itoa(i + 1),
			c.CustomerCode,
			c.CustomerName,
			c.CustomerType,
			c.CustomerPhoneNumber,
			c.CustomerEmail,
			c.CustomerShippingAddress,
			c.CustomerTaxCode,
			date,
			c.PurchasedItemCode,
			c.PurchasedItemName,
		})
	}

	return buf.Bytes(), nil
}

// ExportFileName builds the timestamped download name for an export.
func ExportFileName(t time.Time) string {
	return "DanhSachKhachHang_" + t.Format("20060102_150405") + ".csv"
}

func writeCSVRow(buf *bytes.Buffer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(escapeCSVField(f))
	}
	buf.WriteString("\r\n")
}
