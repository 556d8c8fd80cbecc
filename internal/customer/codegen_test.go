package customer

import (
	"testing"
	"time"
)

func TestCodeForMonth(t *testing.T) {
	jan := time.Date(2025, 1, 20, 10, 0, 0, 0, time.UTC)
	if got := codeForMonth(jan); got != "KH202501" {
		t.Errorf("codeForMonth(jan 2025) = %q, want KH202501", got)
	}

	dec := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	if got := codeForMonth(dec); got != "KH202512" {
		t.Errorf("codeForMonth(dec 2025) = %q, want KH202512", got)
	}
}

func TestNextCode(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		maxCode string
		want    string
		wantErr bool
	}{
		{"first of month", "KH202501", "", "KH202501000001", false},
		{"increment", "KH202501", "KH202501000041", "KH202501000042", false},
		{"rolls past padding", "KH202501", "KH202501999999", "KH2025011000000", false},
		{"malformed suffix", "KH202501", "KH202501abc", "", true},
		{"prefix only", "KH202501", "KH202501", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := nextCode(tt.prefix, tt.maxCode)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("nextCode(%q, %q) succeeded, want error", tt.prefix, tt.maxCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("nextCode(%q, %q) error = %v", tt.prefix, tt.maxCode, err)
			}
			if got != tt.want {
				t.Errorf("nextCode(%q, %q) = %q, want %q", tt.prefix, tt.maxCode, got, tt.want)
			}
		})
	}
}
