package customer

import "strings"

// utf8BOM is the byte-order mark both stripped from import input and
// prepended to export output.
const utf8BOM = "\uFEFF"

// ParseCSVLine tokenizes one CSV line. Fields may be wrapped in double
// quotes; a quoted field can contain commas, and a doubled quote inside
// a quoted field stands for one literal quote.
func ParseCSVLine(line string) []string {
	var fields []string
	var cur strings.Builder
	inQuotes := false

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				cur.WriteByte('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case c == ',' && !inQuotes:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}

	fields = append(fields, cur.String())
	return fields
}

// escapeCSVField quote-wraps a value containing a comma, quote, or line
// break, doubling any internal quotes. Other values pass unchanged.
func escapeCSVField(v string) string {
	if v == "" {
		return ""
	}
	if strings.ContainsAny(v, ",\"\n\r") {
		return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
	}
	return v
}
