package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/financeflow/financeflow/internal/api"
	"github.com/financeflow/financeflow/internal/api/handlers"
	"github.com/financeflow/financeflow/internal/config"
	"github.com/financeflow/financeflow/internal/database"
	"github.com/financeflow/financeflow/internal/database/repository"
	"github.com/financeflow/financeflow/internal/service"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		log.Fatal().Err(err).Str("path", cfg.Database.Path).Msg("Failed to create data directory")
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	transactionRepo := repository.NewTransactionRepo(db)
	tagRepo := repository.NewTagRepo(db)
	budgetRepo := repository.NewBudgetRepo(db)
	colorRepo := repository.NewColorOverrideRepo(db)

	registry := &service.TagRegistry{
		Tags:         tagRepo,
		Transactions: transactionRepo,
		Colors:       colorRepo,
		Log:          log.With().Str("component", "tags").Logger(),
	}
	importer := &service.Importer{
		Transactions:    transactionRepo,
		Registry:        registry,
		BatchSize:       cfg.Import.BatchSize,
		DefaultCurrency: cfg.Defaults.Currency,
		Log:             log.With().Str("component", "importer").Logger(),
	}
	budgetSvc := &service.BudgetService{
		Budgets:      budgetRepo,
		Transactions: transactionRepo,
		Log:          log.With().Str("component", "budgets").Logger(),
	}

	router := api.NewRouter(log,
		&handlers.TransactionsHandler{
			Transactions: transactionRepo,
			Importer:     importer,
			MaxRows:      cfg.Import.MaxRows,
			Log:          log.With().Str("handler", "transactions").Logger(),
		},
		&handlers.TagsHandler{
			Registry: registry,
			Log:      log.With().Str("handler", "tags").Logger(),
		},
		&handlers.BudgetsHandler{
			Budgets: budgetSvc,
			Log:     log.With().Str("handler", "budgets").Logger(),
		},
		&handlers.AccountHandler{
			Maintenance: &service.MaintenanceService{DB: db, Log: log.With().Str("component", "maintenance").Logger()},
			Log:         log.With().Str("handler", "account").Logger(),
		},
	)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown incomplete")
	}
}
