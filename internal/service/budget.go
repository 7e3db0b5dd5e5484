package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/financeflow/financeflow/internal/database/repository"
)

// Status buckets for a budget item, derived from percentage-of-limit.
const (
	StatusNominal  = "nominal"  // < 60%
	StatusOK       = "ok"       // 60–75%
	StatusWarn     = "warn"     // 75–90%
	StatusCritical = "critical" // >= 90%
)

var hundred = decimal.NewFromInt(100)

// ItemReport is the reconciled view of one budget allocation.
type ItemReport struct {
	Tag         string          `json:"tag"`
	Limit       decimal.Decimal `json:"limit"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Percentage  decimal.Decimal `json:"percentage"`
	Status      string          `json:"status"`
}

// Report aggregates the reconciled items of a budget over a window.
type Report struct {
	BudgetID          string          `json:"budgetId"`
	BudgetName        string          `json:"budgetName"`
	Start             time.Time       `json:"start"`
	End               time.Time       `json:"end"`
	Items             []ItemReport    `json:"items"`
	TotalLimit        decimal.Decimal `json:"totalLimit"`
	TotalOutstanding  decimal.Decimal `json:"totalOutstanding"`
	OverallPercentage decimal.Decimal `json:"overallPercentage"`
	OverallStatus     string          `json:"overallStatus"`
}

// TagGroup is the per-tag actuals rollup offered for budget review.
type TagGroup struct {
	Tag              string          `json:"tag"`
	TotalSpent       decimal.Decimal `json:"totalSpent"`
	TotalIncome      decimal.Decimal `json:"totalIncome"`
	TransactionCount int             `json:"transactionCount"`
}

// Reconcile rolls a window's transactions up against budget items. Income
// under the same tag is treated as a reimbursement that reduces outstanding
// spend, floored at zero: over-reimbursement never creates a credit. A pure
// read computation; the inputs are never mutated.
func Reconcile(items []repository.BudgetItem, transactions []repository.Transaction) ([]ItemReport, decimal.Decimal, decimal.Decimal) {
	reports := make([]ItemReport, 0, len(items))
	totalLimit := decimal.Zero
	totalOutstanding := decimal.Zero

	for _, item := range items {
		expense, income := sumsForTag(transactions, item.Tag)
		outstanding := expense.Abs().Sub(income.Abs())
		if outstanding.IsNegative() {
			outstanding = decimal.Zero
		}
		reports = append(reports, ItemReport{
			Tag:         item.Tag,
			Limit:       item.Amount,
			Outstanding: outstanding,
			Percentage:  percentage(outstanding, item.Amount),
			Status:      statusFor(percentage(outstanding, item.Amount)),
		})
		totalLimit = totalLimit.Add(item.Amount)
		totalOutstanding = totalOutstanding.Add(outstanding)
	}
	return reports, totalLimit, totalOutstanding
}

// SuggestedAmounts computes per-tag absolute expense sums with no income
// netting; used to pre-fill a new budget from a prior window's actuals.
func SuggestedAmounts(transactions []repository.Transaction) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, t := range transactions {
		if t.Type != repository.TypeExpense {
			continue
		}
		for _, tag := range t.Tags {
			out[tag] = out[tag].Add(t.Amount.Abs())
		}
	}
	for tag, v := range out {
		if !v.IsPositive() {
			delete(out, tag)
		}
	}
	return out
}

// GroupByTag builds the per-tag actuals rollup, sorted by spend descending.
// Untagged transactions contribute to no group.
func GroupByTag(transactions []repository.Transaction) []TagGroup {
	groups := make(map[string]*TagGroup)
	for _, t := range transactions {
		for _, tag := range t.Tags {
			g, ok := groups[tag]
			if !ok {
				g = &TagGroup{Tag: tag, TotalSpent: decimal.Zero, TotalIncome: decimal.Zero}
				groups[tag] = g
			}
			if t.Type == repository.TypeExpense {
				g.TotalSpent = g.TotalSpent.Add(t.Amount)
			} else {
				g.TotalIncome = g.TotalIncome.Add(t.Amount)
			}
			g.TransactionCount++
		}
	}
	out := make([]TagGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].TotalSpent.Equal(out[j].TotalSpent) {
			return out[i].TotalSpent.GreaterThan(out[j].TotalSpent)
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}

func sumsForTag(transactions []repository.Transaction, tag string) (expense, income decimal.Decimal) {
	expense, income = decimal.Zero, decimal.Zero
	for _, t := range transactions {
		if !hasTag(t.Tags, tag) {
			continue
		}
		switch t.Type {
		case repository.TypeExpense:
			expense = expense.Add(t.Amount)
		case repository.TypeIncome:
			income = income.Add(t.Amount)
		}
	}
	return expense, income
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// percentage applies the zero-limit rule: with no limit, any outstanding
// spend is already fully over budget.
func percentage(outstanding, limit decimal.Decimal) decimal.Decimal {
	if limit.IsPositive() {
		pct := outstanding.Div(limit).Mul(hundred)
		if pct.GreaterThan(hundred) {
			return hundred
		}
		return pct
	}
	if outstanding.IsPositive() {
		return hundred
	}
	return decimal.Zero
}

func statusFor(pct decimal.Decimal) string {
	switch {
	case pct.GreaterThanOrEqual(decimal.NewFromInt(90)):
		return StatusCritical
	case pct.GreaterThanOrEqual(decimal.NewFromInt(75)):
		return StatusWarn
	case pct.GreaterThanOrEqual(decimal.NewFromInt(60)):
		return StatusOK
	default:
		return StatusNominal
	}
}

// ResolveWindow turns a named period into an inclusive [start, end] range.
// "current" and "last" are calendar months of now; "custom" uses the
// explicit bounds.
func ResolveWindow(period string, start, end time.Time, now time.Time) (time.Time, time.Time, error) {
	switch period {
	case "", "current":
		s := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return s, s.AddDate(0, 1, 0).Add(-time.Second), nil
	case "last":
		s := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
		return s, s.AddDate(0, 1, 0).Add(-time.Second), nil
	case "custom":
		if start.IsZero() || end.IsZero() {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: custom period requires start and end dates", ErrValidation)
		}
		return start, end, nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("%w: unknown period %q", ErrValidation, period)
	}
}

// BudgetService owns TagBudget CRUD, ordering and reconciliation views. The
// engine itself never writes; only create/update/delete/reorder touch the
// store.
type BudgetService struct {
	Budgets      *repository.BudgetRepo
	Transactions *repository.TransactionRepo
	Log          zerolog.Logger
}

// BudgetItemInput is a caller-supplied allocation.
type BudgetItemInput struct {
	Tag    string          `json:"tag"`
	Amount decimal.Decimal `json:"amount"`
}

// Create validates and persists a new budget at the end of the owner's
// order. Validation failures reject the whole request; no partial budget is
// ever created.
func (s *BudgetService) Create(ctx context.Context, ownerID, name string, items []BudgetItemInput) (repository.TagBudget, error) {
	cleaned, err := validateBudget(name, items)
	if err != nil {
		return repository.TagBudget{}, err
	}
	budget := repository.TagBudget{
		ID:      uuid.NewString(),
		OwnerID: ownerID,
		Name:    strings.TrimSpace(name),
		Items:   cleaned,
	}
	return s.Budgets.Insert(ctx, budget)
}

// Update replaces an owned budget's name and items atomically.
func (s *BudgetService) Update(ctx context.Context, ownerID, id, name string, items []BudgetItemInput) (*repository.TagBudget, error) {
	cleaned, err := validateBudget(name, items)
	if err != nil {
		return nil, err
	}
	found, err := s.Budgets.Update(ctx, ownerID, id, strings.TrimSpace(name), cleaned)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return s.Budgets.Get(ctx, ownerID, id)
}

// Delete removes an owned budget; the repository renumbers the remainder
// into a contiguous 0-based sequence in the same transaction.
func (s *BudgetService) Delete(ctx context.Context, ownerID, id string) error {
	found, err := s.Budgets.Delete(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

// Reorder applies the caller-supplied order: position = index. Ids not owned
// by the caller are ignored. Applying the same order twice is a no-op.
func (s *BudgetService) Reorder(ctx context.Context, ownerID string, ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: budget ids are required", ErrValidation)
	}
	return s.Budgets.Reorder(ctx, ownerID, ids)
}

func (s *BudgetService) List(ctx context.Context, ownerID string) ([]repository.TagBudget, error) {
	return s.Budgets.List(ctx, ownerID)
}

// Active returns the budget at position 0, the one default views surface.
func (s *BudgetService) Active(ctx context.Context, ownerID string) (*repository.TagBudget, error) {
	return s.Budgets.Active(ctx, ownerID)
}

// Report reconciles an owned budget against the transactions in the window.
func (s *BudgetService) Report(ctx context.Context, ownerID, budgetID string, start, end time.Time) (*Report, error) {
	budget, err := s.Budgets.Get(ctx, ownerID, budgetID)
	if err != nil {
		return nil, err
	}
	if budget == nil {
		return nil, ErrNotFound
	}
	transactions, err := s.Transactions.ListByWindow(ctx, ownerID, start, end)
	if err != nil {
		return nil, err
	}
	items, totalLimit, totalOutstanding := Reconcile(budget.Items, transactions)
	overall := percentage(totalOutstanding, totalLimit)
	return &Report{
		BudgetID:          budget.ID,
		BudgetName:        budget.Name,
		Start:             start,
		End:               end,
		Items:             items,
		TotalLimit:        totalLimit,
		TotalOutstanding:  totalOutstanding,
		OverallPercentage: overall,
		OverallStatus:     statusFor(overall),
	}, nil
}

// Suggestions returns per-tag absolute expense sums for a window, typically
// the prior month, to pre-fill a new budget's amounts.
func (s *BudgetService) Suggestions(ctx context.Context, ownerID string, start, end time.Time) (map[string]decimal.Decimal, error) {
	transactions, err := s.Transactions.ListByWindow(ctx, ownerID, start, end)
	if err != nil {
		return nil, err
	}
	return SuggestedAmounts(transactions), nil
}

// Actuals returns the tag rollup plus window-wide totals.
func (s *BudgetService) Actuals(ctx context.Context, ownerID string, start, end time.Time) ([]TagGroup, decimal.Decimal, decimal.Decimal, error) {
	transactions, err := s.Transactions.ListByWindow(ctx, ownerID, start, end)
	if err != nil {
		return nil, decimal.Zero, decimal.Zero, err
	}
	totalSpent, totalIncome := decimal.Zero, decimal.Zero
	for _, t := range transactions {
		if t.Type == repository.TypeExpense {
			totalSpent = totalSpent.Add(t.Amount)
		} else {
			totalIncome = totalIncome.Add(t.Amount)
		}
	}
	return GroupByTag(transactions), totalSpent, totalIncome, nil
}

func validateBudget(name string, items []BudgetItemInput) ([]repository.BudgetItem, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: budget name is required", ErrValidation)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: budget items are required", ErrValidation)
	}
	out := make([]repository.BudgetItem, 0, len(items))
	for _, item := range items {
		tag := strings.TrimSpace(item.Tag)
		if tag == "" {
			return nil, fmt.Errorf("%w: budget item tag is required", ErrValidation)
		}
		if item.Amount.IsNegative() {
			return nil, fmt.Errorf("%w: budget item amount must not be negative", ErrValidation)
		}
		out = append(out, repository.BudgetItem{Tag: tag, Amount: item.Amount})
	}
	return out, nil
}
