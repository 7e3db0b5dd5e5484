package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/financeflow/financeflow/internal/database/repository"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func expense(amount string, tags ...string) repository.Transaction {
	return repository.Transaction{Type: repository.TypeExpense, Amount: dec(amount), Tags: tags}
}

func income(amount string, tags ...string) repository.Transaction {
	return repository.Transaction{Type: repository.TypeIncome, Amount: dec(amount), Tags: tags}
}

func TestReconcile_ReimbursementNetting(t *testing.T) {
	t.Parallel()
	items := []repository.BudgetItem{{Tag: "Food", Amount: dec("80")}}
	txs := []repository.Transaction{
		expense("100", "Food"),
		income("30", "Food"),
	}

	reports, totalLimit, totalOutstanding := Reconcile(items, txs)
	require.Len(t, reports, 1)
	require.True(t, reports[0].Outstanding.Equal(dec("70")))
	require.True(t, totalLimit.Equal(dec("80")))
	require.True(t, totalOutstanding.Equal(dec("70")))
}

func TestReconcile_OverReimbursementFloorsAtZero(t *testing.T) {
	t.Parallel()
	items := []repository.BudgetItem{{Tag: "Travel", Amount: dec("500")}}
	txs := []repository.Transaction{
		expense("100", "Travel"),
		income("250", "Travel"),
	}

	reports, _, _ := Reconcile(items, txs)
	require.True(t, reports[0].Outstanding.IsZero())
	require.True(t, reports[0].Percentage.IsZero())
	require.Equal(t, StatusNominal, reports[0].Status)
}

func TestReconcile_IgnoresOtherTags(t *testing.T) {
	t.Parallel()
	items := []repository.BudgetItem{{Tag: "Food", Amount: dec("100")}}
	txs := []repository.Transaction{
		expense("40", "Food"),
		expense("999", "Rent"),
		expense("10"), // untagged
	}

	reports, _, totalOutstanding := Reconcile(items, txs)
	require.True(t, reports[0].Outstanding.Equal(dec("40")))
	require.True(t, totalOutstanding.Equal(dec("40")))
}

func TestPercentage_Boundaries(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name        string
		outstanding string
		limit       string
		want        string
	}{
		{"at limit", "100", "100", "100"},
		{"over limit capped", "150", "100", "100"},
		{"zero limit with spend", "50", "0", "100"},
		{"zero limit no spend", "0", "0", "0"},
		{"partial", "50", "200", "25"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := percentage(dec(tc.outstanding), dec(tc.limit))
			require.True(t, got.Equal(dec(tc.want)), "got %s want %s", got, tc.want)
		})
	}
}

func TestStatusBuckets(t *testing.T) {
	t.Parallel()
	require.Equal(t, StatusNominal, statusFor(dec("0")))
	require.Equal(t, StatusNominal, statusFor(dec("59.99")))
	require.Equal(t, StatusOK, statusFor(dec("60")))
	require.Equal(t, StatusOK, statusFor(dec("74.99")))
	require.Equal(t, StatusWarn, statusFor(dec("75")))
	require.Equal(t, StatusWarn, statusFor(dec("89.99")))
	require.Equal(t, StatusCritical, statusFor(dec("90")))
	require.Equal(t, StatusCritical, statusFor(dec("100")))
}

func TestSuggestedAmounts_ExpensesOnly(t *testing.T) {
	t.Parallel()
	txs := []repository.Transaction{
		expense("100", "Food"),
		expense("50", "Food", "Shared"),
		income("500", "Food"), // income never shapes suggestions
	}

	got := SuggestedAmounts(txs)
	require.Len(t, got, 2)
	require.True(t, got["Food"].Equal(dec("150")))
	require.True(t, got["Shared"].Equal(dec("50")))
}

func TestGroupByTag_SortedBySpend(t *testing.T) {
	t.Parallel()
	txs := []repository.Transaction{
		expense("10", "Coffee"),
		expense("300", "Rent"),
		expense("50", "Food"),
		income("20", "Food"),
	}

	groups := GroupByTag(txs)
	require.Len(t, groups, 3)
	require.Equal(t, "Rent", groups[0].Tag)
	require.Equal(t, "Food", groups[1].Tag)
	require.Equal(t, "Coffee", groups[2].Tag)
	require.True(t, groups[1].TotalSpent.Equal(dec("50")))
	require.True(t, groups[1].TotalIncome.Equal(dec("20")))
	require.Equal(t, 2, groups[1].TransactionCount)
}

func TestResolveWindow(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

	start, end, err := ResolveWindow("current", time.Time{}, time.Time{}, now)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), start)
	require.Equal(t, time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC), end)

	start, end, err = ResolveWindow("last", time.Time{}, time.Time{}, now)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), start)
	require.Equal(t, time.Date(2026, 2, 28, 23, 59, 59, 0, time.UTC), end)

	custom := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	start, end, err = ResolveWindow("custom", custom, custom.AddDate(0, 0, 7), now)
	require.NoError(t, err)
	require.Equal(t, custom, start)
	require.Equal(t, custom.AddDate(0, 0, 7), end)

	_, _, err = ResolveWindow("custom", time.Time{}, time.Time{}, now)
	require.ErrorIs(t, err, ErrValidation)

	_, _, err = ResolveWindow("fortnight", time.Time{}, time.Time{}, now)
	require.ErrorIs(t, err, ErrValidation)
}

func TestDefaultTagColor_Deterministic(t *testing.T) {
	t.Parallel()
	require.Equal(t, DefaultTagColor("Food"), DefaultTagColor("Food"))
	require.Contains(t, TagColors(), DefaultTagColor("Food"))
}
