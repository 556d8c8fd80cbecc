package customer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/dvmchung/crm-backend/internal/apperr"
	"github.com/dvmchung/crm-backend/internal/entity"
	"github.com/dvmchung/crm-backend/internal/storage"
)

// Logical import fields. Each resolves against a list of acceptable
// header aliases, case-insensitively.
const (
	fieldFullName = "FullName"
	fieldPhone    = "Phone"
	fieldEmail    = "Email"
	fieldAddress  = "Address"
	fieldType     = "CustomerType"
)

var headerAliases = map[string][]string{
	fieldFullName: {"FullName", "CustomerName", "Tên khách hàng"},
	fieldPhone:    {"Phone", "PhoneNumber", "CustomerPhoneNumber", "Số điện thoại"},
	fieldEmail:    {"Email", "CustomerEmail"},
	fieldAddress:  {"Address", "ShippingAddress", "CustomerShippingAddress", "Địa chỉ"},
	fieldType:     {"CustomerType", "Loại khách hàng"},
}

// requiredFields is the header-level contract: every logical field must
// resolve to some column, even those whose row values may be optional.
var requiredFields = []string{fieldFullName, fieldPhone, fieldEmail, fieldAddress, fieldType}

// RowError records why one data row was rejected. RowNumber is 1-based
// and excludes the header.
type RowError struct {
	RowNumber int      `json:"rowNumber"`
	RowData   string   `json:"rowData"`
	Messages  []string `json:"errorMessages"`
}

// ImportResult summarizes an import run. SuccessCount is the number of
// rows the batch insert actually affected, not merely the number that
// passed validation.
type ImportResult struct {
	TotalRows    int        `json:"totalRows"`
	SuccessCount int        `json:"successCount"`
	ErrorCount   int        `json:"errorCount"`
	Errors       []RowError `json:"errors"`
}

// scanBufSize caps a single CSV line at 1MB.
const scanBufSize = 1 << 20

// ImportFromCSV runs the import pipeline over a UTF-8 CSV stream:
// read header, resolve required columns by alias, then per row parse,
// validate (collecting every failing rule), deduplicate in-file and
// against storage, assign a sequential code, and finally batch-insert
// all accepted rows in one statement.
//
// Row failures are recorded in the result and never abort the run; only
// an empty file or missing required columns fail the whole import.
func (s *Service) ImportFromCSV(ctx context.Context, r io.Reader) (*ImportResult, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), scanBufSize)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read csv header: %w", err)
		}
		return nil, apperr.New(apperr.CodeEmptyFile, "File CSV không có dữ liệu hoặc thiếu header.")
	}

	header := strings.TrimPrefix(scanner.Text(), utf8BOM)
	columns, err := resolveHeader(header)
	if err != nil {
		return nil, err
	}

	// Sequence is seeded once per run from the persisted maximum and
	// advanced in memory for every accepted row, so codes inside one
	// file are strictly sequential and gap-free.
	prefix := codeForMonth(s.clock())
	seq, err := s.seedSequence(ctx, prefix)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	var accepted []*entity.Customer
	phonesInFile := make(map[string]struct{})
	emailsInFile := make(map[string]struct{})

	for scanner.Scan() {
		line := scanner.Text()
		result.TotalRows++

		if strings.TrimSpace(line) == "" {
			continue
		}

		row := ParseCSVLine(line)
		values := rowValues(row, columns)

		messages, err := s.validateImportRow(ctx, values, phonesInFile, emailsInFile)
		if err != nil {
			return nil, err
		}
		if len(messages) > 0 {
			result.Errors = append(result.Errors, RowError{
				RowNumber: result.TotalRows,
				RowData:   line,
				Messages:  messages,
			})
			result.ErrorCount++
			continue
		}

		seq++
		accepted = append(accepted, &entity.Customer{
			CustomerID:              uuid.New(),
			CustomerType:            values[fieldType],
			CustomerCode:            fmt.Sprintf("%s%0*d", prefix, codeSeqLen, seq),
			CustomerName:            values[fieldFullName],
			CustomerPhoneNumber:     values[fieldPhone],
			CustomerEmail:           values[fieldEmail],
			CustomerShippingAddress: values[fieldAddress],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read csv rows: %w", err)
	}

	if len(accepted) > 0 {
		inserted, err := s.insertBatch(ctx, prefix, accepted)
		if err != nil {
			return nil, err
		}
		result.SuccessCount = int(inserted)
	}

	return result, nil
}

// seedSequence reads the persisted max code for the prefix and returns
// the sequence value it encodes (0 when none exists).
func (s *Service) seedSequence(ctx context.Context, prefix string) (int, error) {
	maxCode, err := s.store.GetMaxCode(ctx, prefix)
	if err != nil {
		return 0, err
	}
	if maxCode == "" || len(maxCode) <= len(prefix) {
		return 0, nil
	}
	seq, err := strconv.Atoi(maxCode[len(prefix):])
	if err != nil {
		return 0, fmt.Errorf("parse sequence from code %q: %w", maxCode, err)
	}
	return seq, nil
}

// insertBatch issues the single batch insert, retrying with reassigned
// codes if another process claimed part of the sequence meanwhile.
func (s *Service) insertBatch(ctx context.Context, prefix string, accepted []*entity.Customer) (int64, error) {
	for attempt := 0; ; attempt++ {
		n, err := s.store.InsertMany(ctx, accepted)
		if err == nil {
			return n, nil
		}

		constraint, unique := storage.UniqueViolation(err)
		if !unique || constraint != storage.ConstraintCustomerCode || attempt >= maxCodeRetries {
			return 0, err
		}

		seq, seedErr := s.seedSequence(ctx, prefix)
		if seedErr != nil {
			return 0, seedErr
		}
		for _, c := range accepted {
			seq++
			c.CustomerCode = fmt.Sprintf("%s%0*d", prefix, codeSeqLen, seq)
		}
	}
}

// resolveHeader maps each logical field to its column position via the
// alias lists. Every required field must resolve or the import aborts.
func resolveHeader(headerLine string) (map[string]int, error) {
	cells := ParseCSVLine(headerLine)

	position := make(map[string]int, len(cells))
	for i, cell := range cells {
		name := strings.ToLower(strings.TrimSpace(cell))
		if name == "" {
			continue
		}
		if _, taken := position[name]; !taken {
			position[name] = i
		}
	}

	columns := make(map[string]int, len(requiredFields))
	var missing []string
	for _, field := range requiredFields {
		found := false
		for _, alias := range headerAliases[field] {
			if pos, ok := position[strings.ToLower(alias)]; ok {
				columns[field] = pos
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, field)
		}
	}

	if len(missing) > 0 {
		return nil, apperr.New(apperr.CodeMissingColumns,
			"File CSV thiếu các cột bắt buộc: "+strings.Join(missing, ", ")).
			WithDetails(missing)
	}
	return columns, nil
}

// rowValues extracts the trimmed value of each logical field from a
// parsed row; positions beyond the row yield "".
func rowValues(row []string, columns map[string]int) map[string]string {
	values := make(map[string]string, len(columns))
	for field, pos := range columns {
		if pos < len(row) {
			values[field] = strings.TrimSpace(row[pos])
		} else {
			values[field] = ""
		}
	}
	return values
}

// validateImportRow applies every row rule in order and returns all
// failing messages, not just the first. Phone and email are checked for
// in-file collisions before storage; a duplicate finding does not stop
// the remaining rules. Returns an error only on storage failure.
func (s *Service) validateImportRow(ctx context.Context, values map[string]string, phonesInFile, emailsInFile map[string]struct{}) ([]string, error) {
	var messages []string

	name := values[fieldFullName]
	switch {
	case name == "":
		messages = append(messages, "Tên khách hàng (FullName) không được để trống.")
	case len(name) > maxNameLen:
		messages = append(messages, fmt.Sprintf("Tên khách hàng không được vượt quá %d ký tự.", maxNameLen))
	}

	phone := values[fieldPhone]
	switch {
	case phone == "":
		messages = append(messages, "Số điện thoại (Phone) không được để trống.")
	case !validPhone(phone):
		messages = append(messages, "Số điện thoại phải từ 10-11 số, bắt đầu bằng 03, 05, 07, 08, 09.")
	default:
		if _, inFile := phonesInFile[phone]; inFile {
			messages = append(messages, fmt.Sprintf("Số điện thoại '%s' bị trùng trong file.", phone))
		} else if exists, err := s.store.IsPhoneExist(ctx, phone, nil); err != nil {
			return nil, err
		} else if exists {
			messages = append(messages, fmt.Sprintf("Số điện thoại '%s' đã tồn tại trong hệ thống.", phone))
		} else {
			phonesInFile[phone] = struct{}{}
		}
	}

	email := values[fieldEmail]
	emailKey := strings.ToLower(email)
	switch {
	case email == "":
		messages = append(messages, "Email không được để trống.")
	case !emailPattern.MatchString(email):
		messages = append(messages, "Email không đúng định dạng.")
	case len(email) > maxEmailLen:
		messages = append(messages, fmt.Sprintf("Email không được vượt quá %d ký tự.", maxEmailLen))
	default:
		if _, inFile := emailsInFile[emailKey]; inFile {
			messages = append(messages, fmt.Sprintf("Email '%s' bị trùng trong file.", email))
		} else if exists, err := s.store.IsEmailExist(ctx, email, nil); err != nil {
			return nil, err
		} else if exists {
			messages = append(messages, fmt.Sprintf("Email '%s' đã tồn tại trong hệ thống.", email))
		} else {
			emailsInFile[emailKey] = struct{}{}
		}
	}

	address := values[fieldAddress]
	switch {
	case address == "" && s.opts.RequireAddress:
		messages = append(messages, "Địa chỉ (Address) không được để trống.")
	case len(address) > maxAddressLen:
		messages = append(messages, fmt.Sprintf("Địa chỉ không được vượt quá %d ký tự.", maxAddressLen))
	}

	customerType := values[fieldType]
	switch {
	case customerType == "" && s.opts.RequireType:
		messages = append(messages, "Loại khách hàng (CustomerType) không được để trống.")
	case len(customerType) > maxTypeLen:
		messages = append(messages, fmt.Sprintf("Loại khách hàng không được vượt quá %d ký tự.", maxTypeLen))
	}

	return messages, nil
}
