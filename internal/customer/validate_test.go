package customer

import (
	"testing"

	"github.com/dvmchung/crm-backend/internal/apperr"
)

func TestValidPhone(t *testing.T) {
	tests := []struct {
		phone string
		want  bool
	}{
		{"0912345678", true},   // 10 digits, 09
		{"0351234567", true},   // 03
		{"05123456789", true},  // 11 digits, 05
		{"0712345678", true},   // 07
		{"0812345678", true},   // 08
		{"0112345678", false},  // 01 not a valid carrier prefix
		{"0212345678", false},  // 02
		{"0412345678", false},  // 04
		{"0612345678", false},  // 06
		{"091234567", false},   // 9 digits
		{"091234567890", false}, // 12 digits
		{"9123456789", false},  // no leading 0
		{"+84912345678", false},
		{"0912 345 678", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := validPhone(tt.phone); got != tt.want {
			t.Errorf("validPhone(%q) = %v, want %v", tt.phone, got, tt.want)
		}
	}
}

func TestValidateInput_Email(t *testing.T) {
	long := "a"
	for len(long) < 95 {
		long += "a"
	}

	// Format and length are distinct rules with distinct messages.
	tests := []struct {
		email   string
		wantMsg string
	}{
		{"an.nguyen@example.com", ""},
		{"a@b.co", ""},
		{"no-at-sign", "Email không đúng định dạng"},
		{"two@@example.com", "Email không đúng định dạng"},
		{"spaces in@example.com", "Email không đúng định dạng"},
		{"missing@tld", "Email không đúng định dạng"},
		{long + "@example.com", "Email không được vượt quá 100 ký tự"},
		{"", "Email không được để trống"},
	}

	for _, tt := range tests {
		in := validInput()
		in.CustomerEmail = tt.email
		err := validateInput(in)
		if tt.wantMsg == "" {
			if err != nil {
				t.Errorf("validateInput(email=%q) error = %v, want nil", tt.email, err)
			}
			continue
		}
		appErr, ok := apperr.From(err)
		if !ok || appErr.Message != tt.wantMsg {
			t.Errorf("validateInput(email=%q) error = %v, want message %q", tt.email, err, tt.wantMsg)
		}
	}
}
