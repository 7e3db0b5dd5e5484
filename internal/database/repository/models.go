package repository

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types. Direction is carried by the type, never by a negative
// amount.
const (
	TypeIncome  = "INCOME"
	TypeExpense = "EXPENSE"
)

// Transaction represents a transaction row. Tags is a denormalized list of
// tag names kept by value; it is maintained by the tag registry's sweep on
// delete, not by foreign keys.
type Transaction struct {
	ID          string
	OwnerID     string
	Amount      decimal.Decimal
	Currency    string
	Type        string
	Description string
	Date        time.Time
	Tags        []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Tag represents a tag row, unique per (owner, name).
type Tag struct {
	ID        string
	OwnerID   string
	Name      string
	Color     string
	CreatedAt time.Time
}

// BudgetItem is one per-tag allocation inside a TagBudget. Tag is a name
// reference and may point at a tag that no longer exists.
type BudgetItem struct {
	Tag    string
	Amount decimal.Decimal
}

// TagBudget represents a named list of tag allocations with an explicit
// display position. Position values form a contiguous 0-based sequence per
// owner; position 0 is the active budget.
type TagBudget struct {
	ID        string
	OwnerID   string
	Name      string
	Position  int
	Items     []BudgetItem
	CreatedAt time.Time
	UpdatedAt time.Time
}
