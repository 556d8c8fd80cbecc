package customer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dvmchung/crm-backend/internal/apperr"
)

// phonePattern accepts 10-11 digit Vietnamese mobile numbers starting
// with 03, 05, 07, 08, or 09.
var phonePattern = regexp.MustCompile(`^0(3|5|7|8|9)\d{8,9}$`)

// emailPattern is a shape check, not a full RFC parse: one @, no
// whitespace, a dotted domain.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

const (
	maxNameLen    = 255
	maxEmailLen   = 100
	maxAddressLen = 255
	maxTypeLen    = 20
	maxTaxCodeLen = 20
	maxItemLen    = 100
	maxAvatarLen  = 500
)

func validPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// validateInput enforces the field rules for direct create and update.
// Name, phone, and email are mandatory; the rest are length-checked
// when present. Unlike import, the first violation is returned
// immediately; the web client surfaces one message at a time.
func validateInput(in Input) error {
	switch {
	case blank(in.CustomerName):
		return apperr.NewValidation("Tên khách hàng không được để trống")
	case len(in.CustomerName) > maxNameLen:
		return apperr.NewValidation(fmt.Sprintf("Tên khách hàng không được vượt quá %d ký tự", maxNameLen))
	case blank(in.CustomerPhoneNumber):
		return apperr.NewValidation("Số điện thoại không được để trống")
	case !validPhone(in.CustomerPhoneNumber):
		return apperr.NewValidation("Số điện thoại phải từ 10-11 số, bắt đầu bằng 03, 05, 07, 08, 09")
	case blank(in.CustomerEmail):
		return apperr.NewValidation("Email không được để trống")
	case !emailPattern.MatchString(in.CustomerEmail):
		return apperr.NewValidation("Email không đúng định dạng")
	case len(in.CustomerEmail) > maxEmailLen:
		return apperr.NewValidation(fmt.Sprintf("Email không được vượt quá %d ký tự", maxEmailLen))
	case len(in.CustomerShippingAddress) > maxAddressLen:
		return apperr.NewValidation(fmt.Sprintf("Địa chỉ giao hàng không được vượt quá %d ký tự", maxAddressLen))
	case len(in.CustomerType) > maxTypeLen:
		return apperr.NewValidation(fmt.Sprintf("Loại khách hàng không được vượt quá %d ký tự", maxTypeLen))
	case len(in.CustomerTaxCode) > maxTaxCodeLen:
		return apperr.NewValidation(fmt.Sprintf("Mã số thuế không được vượt quá %d ký tự", maxTaxCodeLen))
	case len(in.PurchasedItemCode) > maxItemLen:
		return apperr.NewValidation(fmt.Sprintf("Mã hàng hóa không được vượt quá %d ký tự", maxItemLen))
	case len(in.PurchasedItemName) > maxItemLen:
		return apperr.NewValidation(fmt.Sprintf("Tên hàng hóa không được vượt quá %d ký tự", maxItemLen))
	case len(in.CustomerAvatarURL) > maxAvatarLen:
		return apperr.NewValidation(fmt.Sprintf("URL ảnh không được vượt quá %d ký tự", maxAvatarLen))
	}
	return nil
}
