package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/financeflow/financeflow/internal/database/repository"
)

func TestResolve_CreatesThenReuses(t *testing.T) {
	t.Parallel()
	env, ctx := setupServiceTest(t)

	tag, created, err := env.registry.Resolve(ctx, "alice", "  Food ")
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "Food", tag.Name)
	require.Equal(t, DefaultTagColor("Food"), tag.Color)

	again, created, err := env.registry.Resolve(ctx, "alice", "Food")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, tag.ID, again.ID)

	// Another owner's namespace is independent.
	other, created, err := env.registry.Resolve(ctx, "bob", "Food")
	require.NoError(t, err)
	require.True(t, created)
	require.NotEqual(t, tag.ID, other.ID)
}

func TestResolve_RejectsBlankName(t *testing.T) {
	t.Parallel()
	env, ctx := setupServiceTest(t)

	_, _, err := env.registry.Resolve(ctx, "alice", "   ")
	require.ErrorIs(t, err, ErrValidation)
}

func TestResolve_ConcurrentSameName(t *testing.T) {
	t.Parallel()
	env, ctx := setupServiceTest(t)

	const n = 8
	ids := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tag, _, err := env.registry.Resolve(ctx, "alice", "Food")
			if err == nil {
				ids[i] = tag.ID
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, ids[0], ids[i])
	}
	tags, err := env.tags.List(ctx, "alice", "")
	require.NoError(t, err)
	require.Len(t, tags, 1)
}

func TestRename_KeepsHistoricalTransactions(t *testing.T) {
	t.Parallel()
	env, ctx := setupServiceTest(t)

	tag, _, err := env.registry.Resolve(ctx, "alice", "Food")
	require.NoError(t, err)
	tx, err := env.importer.Create(ctx, "alice", candidate("50", repository.TypeExpense, "Groceries", testDate, "Food"))
	require.NoError(t, err)

	renamed, err := env.registry.Rename(ctx, "alice", tag.ID, "Meals")
	require.NoError(t, err)
	require.Equal(t, "Meals", renamed.Name)

	// Past transactions are immutable snapshots; they keep the old name.
	got, err := env.transactions.Get(ctx, "alice", tx.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"Food"}, got.Tags)
}

func TestRename_ConflictAndMissing(t *testing.T) {
	t.Parallel()
	env, ctx := setupServiceTest(t)

	food, _, err := env.registry.Resolve(ctx, "alice", "Food")
	require.NoError(t, err)
	_, _, err = env.registry.Resolve(ctx, "alice", "Rent")
	require.NoError(t, err)

	_, err = env.registry.Rename(ctx, "alice", food.ID, "Rent")
	require.ErrorIs(t, err, ErrValidation)

	_, err = env.registry.Rename(ctx, "alice", "missing-id", "Whatever")
	require.ErrorIs(t, err, ErrNotFound)

	// Renaming to its own name is a no-op, not a conflict.
	same, err := env.registry.Rename(ctx, "alice", food.ID, "Food")
	require.NoError(t, err)
	require.Equal(t, "Food", same.Name)
}

func TestDelete_SweepsTransactions(t *testing.T) {
	t.Parallel()
	env, ctx := setupServiceTest(t)

	tag, _, err := env.registry.Resolve(ctx, "alice", "Food")
	require.NoError(t, err)
	tx1, err := env.importer.Create(ctx, "alice", candidate("50", repository.TypeExpense, "Groceries", testDate, "Food"))
	require.NoError(t, err)
	tx2, err := env.importer.Create(ctx, "alice", candidate("20", repository.TypeExpense, "Lunch", testDate, "Food", "Work"))
	require.NoError(t, err)
	untouched, err := env.importer.Create(ctx, "alice", candidate("10", repository.TypeExpense, "Bus", testDate, "Transport"))
	require.NoError(t, err)

	res, err := env.registry.Delete(ctx, "alice", tag.ID)
	require.NoError(t, err)
	require.Equal(t, "Food", res.DeletedTag)
	require.Equal(t, 2, res.UpdatedTransactions)

	got, err := env.transactions.Get(ctx, "alice", tx1.ID)
	require.NoError(t, err)
	require.Empty(t, got.Tags)

	got, err = env.transactions.Get(ctx, "alice", tx2.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"Work"}, got.Tags)

	got, err = env.transactions.Get(ctx, "alice", untouched.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"Transport"}, got.Tags)

	_, err = env.registry.Delete(ctx, "alice", tag.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSearch_SubstringThenFuzzy(t *testing.T) {
	t.Parallel()
	env, ctx := setupServiceTest(t)

	for _, name := range []string{"Food", "Fuel", "Rent"} {
		_, _, err := env.registry.Resolve(ctx, "alice", name)
		require.NoError(t, err)
	}

	got, err := env.registry.Search(ctx, "alice", "foo")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Food", got[0].Name)

	// No substring hit; near matches within edit distance 2 step in.
	got, err = env.registry.Search(ctx, "alice", "Fod")
	require.NoError(t, err)
	require.NotEmpty(t, got)
	require.Equal(t, "Food", got[0].Name)

	got, err = env.registry.Search(ctx, "alice", "Groceries")
	require.NoError(t, err)
	require.Empty(t, got)

	got, err = env.registry.Search(ctx, "alice", "")
	require.NoError(t, err)
	require.Len(t, got, 3)
}

func TestColorOverrides(t *testing.T) {
	t.Parallel()
	env, ctx := setupServiceTest(t)

	tag, _, err := env.registry.Resolve(ctx, "alice", "Food")
	require.NoError(t, err)

	color, err := env.registry.DisplayColor(ctx, "alice", "Food")
	require.NoError(t, err)
	require.Equal(t, tag.Color, color)

	require.NoError(t, env.registry.SetColorOverride(ctx, "alice", "Food", "#000000"))
	color, err = env.registry.DisplayColor(ctx, "alice", "Food")
	require.NoError(t, err)
	require.Equal(t, "#000000", color)

	// Overrides are per owner.
	color, err = env.registry.DisplayColor(ctx, "bob", "Food")
	require.NoError(t, err)
	require.Equal(t, DefaultTagColor("Food"), color)

	require.NoError(t, env.registry.ClearColorOverride(ctx, "alice", "Food"))
	color, err = env.registry.DisplayColor(ctx, "alice", "Food")
	require.NoError(t, err)
	require.Equal(t, tag.Color, color)

	require.ErrorIs(t, env.registry.SetColorOverride(ctx, "alice", "Food", " "), ErrValidation)
}
