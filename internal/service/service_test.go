package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/financeflow/financeflow/internal/database"
	"github.com/financeflow/financeflow/internal/database/repository"
)

// testEnv bundles the wired services over a fresh migrated database.
type testEnv struct {
	transactions *repository.TransactionRepo
	tags         *repository.TagRepo
	budgets      *repository.BudgetRepo
	registry     *TagRegistry
	importer     *Importer
	budgetSvc    *BudgetService
}

func setupServiceTest(t *testing.T) (*testEnv, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.RunMigrations(db))

	txRepo := repository.NewTransactionRepo(db)
	tagRepo := repository.NewTagRepo(db)
	budgetRepo := repository.NewBudgetRepo(db)
	colorRepo := repository.NewColorOverrideRepo(db)

	registry := &TagRegistry{Tags: tagRepo, Transactions: txRepo, Colors: colorRepo, Log: zerolog.Nop()}
	return &testEnv{
		transactions: txRepo,
		tags:         tagRepo,
		budgets:      budgetRepo,
		registry:     registry,
		importer:     &Importer{Transactions: txRepo, Registry: registry, DefaultCurrency: "USD", Log: zerolog.Nop()},
		budgetSvc:    &BudgetService{Budgets: budgetRepo, Transactions: txRepo, Log: zerolog.Nop()},
	}, ctx
}

func candidate(amount, txType, description string, date time.Time, tags ...string) ImportCandidate {
	return ImportCandidate{
		Amount:      dec(amount),
		Type:        txType,
		Description: description,
		Date:        date,
		Tags:        tags,
	}
}

var testDate = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
