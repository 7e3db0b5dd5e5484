package csvimport

import "strings"

// Role identifies what a CSV column contributes to a transaction.
type Role string

const (
	RoleAmount      Role = "amount"
	RoleDescription Role = "description"
	RoleDate        Role = "date"
	RoleType        Role = "type"
	RoleCurrency    Role = "currency"

	// Override roles. OriginalAmount is preferred over the plain amount
	// column when present (foreign-currency rows); the category pair
	// enriches the description.
	RoleOriginalAmount Role = "original_amount"
	RoleMainCategory   Role = "main_category"
	RoleSubCategory    Role = "sub_category"
)

// roleKeywords is a data-driven table of lower-cased substrings matched
// against header tokens. Covers English plus Norwegian bank exports; add a
// locale by extending the lists, not the matching code.
var roleKeywords = []struct {
	role     Role
	keywords []string
}{
	{RoleOriginalAmount, []string{"originalt beløp"}},
	{RoleAmount, []string{"amount", "value", "sum", "beløp"}},
	{RoleDescription, []string{"description", "note", "memo", "text", "tekst"}},
	{RoleDate, []string{"date", "time", "dato"}},
	{RoleType, []string{"type", "category", "kategori"}},
	{RoleCurrency, []string{"currency", "valuta"}},
	{RoleMainCategory, []string{"hovedkategori"}},
	{RoleSubCategory, []string{"underkategori"}},
}

// ColumnMap holds the resolved column index per role; -1 means unmapped.
type ColumnMap struct {
	Amount         int
	Description    int
	Date           int
	Type           int
	Currency       int
	OriginalAmount int
	MainCategory   int
	SubCategory    int
}

// MapColumns scans the (lower-cased) header tokens for each role's keywords;
// the first matching header index wins. Required roles without a header
// match fall back to fixed positions: amount=0, description=1, date=2.
func MapColumns(headers []string) ColumnMap {
	m := ColumnMap{
		Amount: -1, Description: -1, Date: -1, Type: -1, Currency: -1,
		OriginalAmount: -1, MainCategory: -1, SubCategory: -1,
	}
	indexes := map[Role]*int{
		RoleAmount:         &m.Amount,
		RoleDescription:    &m.Description,
		RoleDate:           &m.Date,
		RoleType:           &m.Type,
		RoleCurrency:       &m.Currency,
		RoleOriginalAmount: &m.OriginalAmount,
		RoleMainCategory:   &m.MainCategory,
		RoleSubCategory:    &m.SubCategory,
	}
	for _, entry := range roleKeywords {
		dst := indexes[entry.role]
		if *dst >= 0 {
			continue
		}
		for i, h := range headers {
			if matchesAny(h, entry.keywords) {
				// Plain amount must not bind to the override column.
				if entry.role == RoleAmount && i == m.OriginalAmount {
					continue
				}
				*dst = i
				break
			}
		}
	}
	if m.Amount < 0 {
		m.Amount = 0
	}
	if m.Description < 0 {
		m.Description = 1
	}
	if m.Date < 0 {
		m.Date = 2
	}
	return m
}

func matchesAny(header string, keywords []string) bool {
	h := strings.ToLower(header)
	for _, kw := range keywords {
		if strings.Contains(h, kw) {
			return true
		}
	}
	return false
}
