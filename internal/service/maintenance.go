package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/financeflow/financeflow/internal/database"
)

// MaintenanceService houses destructive ops actions.
type MaintenanceService struct {
	DB  *sql.DB
	Log zerolog.Logger
}

// ResetOwner wipes one user's data in a single transaction. Budget items go
// with their budgets via the cascade. The schema stays intact so the app can
// continue running.
func (s *MaintenanceService) ResetOwner(ctx context.Context, ownerID string) error {
	if s.DB == nil {
		return fmt.Errorf("maintenance: db not configured")
	}
	if ownerID == "" {
		return fmt.Errorf("%w: owner id is required", ErrValidation)
	}
	if err := database.WithTx(s.DB, func(tx *sql.Tx) error {
		tables := []string{
			"tag_budgets",
			"color_overrides",
			"transactions",
			"tags",
		}
		for _, t := range tables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+t+" WHERE owner_id = ?", ownerID); err != nil {
				return fmt.Errorf("reset table %s: %w", t, err)
			}
		}
		return nil
	}); err != nil {
		return err
	}
	s.Log.Info().Str("owner", ownerID).Msg("account data reset")
	return nil
}
