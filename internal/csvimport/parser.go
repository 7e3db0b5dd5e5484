package csvimport

import (
	"fmt"
	"strings"
)

// File is the tokenized form of a raw CSV export.
type File struct {
	Headers   []string
	Delimiter rune
	Records   []Record
}

// Record is one data row. Line is the 1-based physical line number in the
// source file (the header is line 1).
type Record struct {
	Line   int
	Fields []string
}

// minFields is the smallest record worth normalizing: amount, description
// and date have to come from somewhere.
const minFields = 3

// DetectDelimiter inspects the header line only: a semicolon anywhere makes
// the whole file semicolon-delimited, otherwise comma. Bank exports never
// mix delimiters within one file.
func DetectDelimiter(headerLine string) rune {
	if strings.ContainsRune(headerLine, ';') {
		return ';'
	}
	return ','
}

// Parse tokenizes raw CSV text. Rows with fewer than three fields are
// reported as row-level errors and excluded; they never abort the file.
// maxRows bounds the number of data rows considered (0 means no bound).
func Parse(raw string, maxRows int) (*File, []string) {
	lines := strings.Split(raw, "\n")
	header := ""
	if len(lines) > 0 {
		header = strings.TrimRight(lines[0], "\r")
	}
	delim := DetectDelimiter(header)

	f := &File{Delimiter: delim}
	for _, h := range splitLine(header, delim) {
		f.Headers = append(f.Headers, strings.ToLower(h))
	}

	var errs []string
	for i := 1; i < len(lines); i++ {
		line := strings.TrimSpace(strings.TrimRight(lines[i], "\r"))
		if line == "" {
			continue
		}
		if maxRows > 0 && len(f.Records) >= maxRows {
			errs = append(errs, fmt.Sprintf("Row %d: Row limit of %d exceeded", i+1, maxRows))
			break
		}
		fields := splitLine(line, delim)
		if len(fields) < minFields {
			errs = append(errs, fmt.Sprintf("Row %d: Insufficient data", i+1))
			continue
		}
		f.Records = append(f.Records, Record{Line: i + 1, Fields: fields})
	}
	return f, errs
}

// splitLine tokenizes one line. A quote toggles the in-quotes state and is
// stripped from the output; a doubled quote inside a quoted field emits a
// literal quote. The delimiter only separates fields outside quotes.
func splitLine(line string, delim rune) []string {
	var fields []string
	var current strings.Builder
	inQuotes := false

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				current.WriteRune('"')
				i++
				continue
			}
			inQuotes = !inQuotes
		case c == delim && !inQuotes:
			fields = append(fields, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(c)
		}
	}
	fields = append(fields, strings.TrimSpace(current.String()))
	return fields
}
