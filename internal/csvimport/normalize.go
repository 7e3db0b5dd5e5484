package csvimport

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/financeflow/financeflow/internal/database/repository"
)

// SupportedCurrencies is the fixed set accepted from CSV columns. Anything
// else falls back to the caller's default currency with a warning.
var SupportedCurrencies = []string{"USD", "EUR", "GBP", "NOK", "SEK", "DKK", "CAD", "AUD", "CHF", "JPY"}

// Candidate is a normalized transaction candidate awaiting review or import.
type Candidate struct {
	Amount      decimal.Decimal
	Type        string
	Description string
	Date        time.Time
	Currency    string
	Tags        []string
	Row         int
}

// Result separates per-row failures from per-row warnings: an errored row is
// excluded, a warned row is kept with a defaulted value.
type Result struct {
	Candidates []Candidate
	Errors     []string
	Warnings   []string
}

// dateLayouts are tried in order when parsing the date column.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"02.01.2006",
	"02/01/2006",
	"2/01/2006",
	"01/02/2006",
}

var incomeKeywords = []string{"income", "credit", "deposit"}
var expenseKeywords = []string{"expense", "debit", "withdrawal"}

// Normalize converts every parsed record into a candidate or a row-level
// error. A failure on one row never halts the rest. now supplies the
// fallback date so callers (and tests) control the clock.
func Normalize(f *File, cols ColumnMap, defaultCurrency string, now func() time.Time) Result {
	var res Result
	if now == nil {
		now = time.Now
	}
	if defaultCurrency == "" {
		defaultCurrency = "USD"
	}

	for _, rec := range f.Records {
		field := func(idx int) string {
			if idx < 0 || idx >= len(rec.Fields) {
				return ""
			}
			return rec.Fields[idx]
		}

		// Prefer the original-amount override for foreign-currency rows.
		rawAmount := field(cols.Amount)
		if v := field(cols.OriginalAmount); v != "" {
			rawAmount = v
		}
		amount, err := parseAmount(rawAmount)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d: Invalid amount %q", rec.Line, rawAmount))
			continue
		}

		description := field(cols.Description)
		if main := field(cols.MainCategory); main != "" {
			if sub := field(cols.SubCategory); sub != "" {
				description = fmt.Sprintf("%s (%s - %s)", description, main, sub)
			} else {
				description = fmt.Sprintf("%s (%s)", description, main)
			}
		}
		if description == "" {
			description = "Imported transaction"
		}

		rawDate := field(cols.Date)
		date, ok := parseDate(rawDate)
		if !ok {
			date = now().UTC()
			res.Warnings = append(res.Warnings, fmt.Sprintf("Row %d: Invalid date %q, using today", rec.Line, rawDate))
		}

		currency := defaultCurrency
		if raw := field(cols.Currency); cols.Currency >= 0 && raw != "" {
			if isSupportedCurrency(raw) {
				currency = strings.ToUpper(raw)
			} else {
				res.Warnings = append(res.Warnings, fmt.Sprintf("Row %d: Invalid currency %q, using %s", rec.Line, raw, defaultCurrency))
			}
		}

		txType := repository.TypeExpense
		if cols.Type >= 0 {
			txType = classifyType(field(cols.Type))
		}

		res.Candidates = append(res.Candidates, Candidate{
			Amount:      amount.Abs(),
			Type:        txType,
			Description: description,
			Date:        date,
			Currency:    currency,
			Tags:        []string{},
			Row:         rec.Line,
		})
	}
	return res
}

// parseAmount strips everything except digits, dot and minus before parsing,
// so "1 234,50 kr" style thousand separators and currency suffixes survive.
func parseAmount(raw string) (decimal.Decimal, error) {
	var b strings.Builder
	for _, c := range raw {
		if c >= '0' && c <= '9' || c == '.' || c == '-' {
			b.WriteRune(c)
		}
	}
	return decimal.NewFromString(b.String())
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func isSupportedCurrency(raw string) bool {
	up := strings.ToUpper(strings.TrimSpace(raw))
	for _, c := range SupportedCurrencies {
		if c == up {
			return true
		}
	}
	return false
}

// classifyType maps a free-text type/category token onto INCOME or EXPENSE.
// No keyword match defaults to EXPENSE.
func classifyType(raw string) string {
	v := strings.ToLower(raw)
	for _, kw := range incomeKeywords {
		if strings.Contains(v, kw) {
			return repository.TypeIncome
		}
	}
	for _, kw := range expenseKeywords {
		if strings.Contains(v, kw) {
			return repository.TypeExpense
		}
	}
	return repository.TypeExpense
}
