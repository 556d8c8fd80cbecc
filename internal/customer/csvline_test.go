package customer

import (
	"reflect"
	"testing"
)

func TestParseCSVLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{
			name: "plain fields",
			line: "a,b,c",
			want: []string{"a", "b", "c"},
		},
		{
			name: "quoted comma",
			line: `"Nguyễn, Văn An",0912345678`,
			want: []string{"Nguyễn, Văn An", "0912345678"},
		},
		{
			name: "doubled quote inside quoted field",
			line: `"say ""hi""",x`,
			want: []string{`say "hi"`, "x"},
		},
		{
			name: "empty fields preserved",
			line: "a,,c,",
			want: []string{"a", "", "c", ""},
		},
		{
			name: "single field",
			line: "alone",
			want: []string{"alone"},
		},
		{
			name: "empty line is one empty field",
			line: "",
			want: []string{""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseCSVLine(tt.line); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseCSVLine(%q) = %#v, want %#v", tt.line, got, tt.want)
			}
		})
	}
}

func TestEscapeCSVField(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "hello", "hello"},
		{"empty", "", ""},
		{"comma", "a,b", `"a,b"`},
		{"quote", `say "hi"`, `"say ""hi"""`},
		{"newline", "line1\nline2", "\"line1\nline2\""},
		{"unicode untouched", "Trần Thị Bình", "Trần Thị Bình"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := escapeCSVField(tt.input); got != tt.want {
				t.Errorf("escapeCSVField(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestEscapeParseRoundTrip(t *testing.T) {
	// Whatever escape emits, parse must read back verbatim.
	values := []string{
		"plain",
		"with, comma",
		`with "quotes"`,
		`mixed, "both"`,
		"đường Nguyễn Trãi, Quận 1",
	}

	for _, v := range values {
		line := escapeCSVField(v) + "," + escapeCSVField(v)
		got := ParseCSVLine(line)
		if len(got) != 2 || got[0] != v || got[1] != v {
			t.Errorf("round trip of %q produced %#v", v, got)
		}
	}
}
