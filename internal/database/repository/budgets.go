package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BudgetRepo handles tag budgets and their items. Multi-row writes (create,
// delete with renumber, reorder) run inside a single transaction so position
// values stay a contiguous 0-based sequence per owner.
type BudgetRepo struct {
	db *sql.DB
}

func NewBudgetRepo(db *sql.DB) *BudgetRepo { return &BudgetRepo{db: db} }

// Insert creates a budget at the end of the owner's order.
func (r *BudgetRepo) Insert(ctx context.Context, b TagBudget) (TagBudget, error) {
	err := r.withTx(func(tx *sql.Tx) error {
		var next int
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position) + 1, 0) FROM tag_budgets WHERE owner_id = ?`, b.OwnerID).Scan(&next); err != nil {
			return err
		}
		b.Position = next
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO tag_budgets(id, owner_id, name, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP);
		`, b.ID, b.OwnerID, b.Name, b.Position); err != nil {
			return err
		}
		return insertItems(ctx, tx, b.ID, b.Items)
	})
	return b, err
}

// Update replaces the name and the whole items list of an owned budget.
func (r *BudgetRepo) Update(ctx context.Context, ownerID, id, name string, items []BudgetItem) (bool, error) {
	found := false
	err := r.withTx(func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE tag_budgets SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND owner_id = ?`, name, id, ownerID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		found = true
		if _, err := tx.ExecContext(ctx, `DELETE FROM tag_budget_items WHERE budget_id = ?`, id); err != nil {
			return err
		}
		return insertItems(ctx, tx, id, items)
	})
	return found, err
}

// Delete removes an owned budget and renumbers the remaining budgets into a
// contiguous 0-based sequence ordered by their prior position.
func (r *BudgetRepo) Delete(ctx context.Context, ownerID, id string) (bool, error) {
	found := false
	err := r.withTx(func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM tag_budgets WHERE id = ? AND owner_id = ?`, id, ownerID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		found = true
		return renumber(ctx, tx, ownerID)
	})
	return found, err
}

// Reorder assigns position = index for each owned id in order. Ids not owned
// by ownerID are ignored. The whole reorder is atomic.
func (r *BudgetRepo) Reorder(ctx context.Context, ownerID string, ids []string) error {
	return r.withTx(func(tx *sql.Tx) error {
		for i, id := range ids {
			if _, err := tx.ExecContext(ctx, `UPDATE tag_budgets SET position = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND owner_id = ?`, i, id, ownerID); err != nil {
				return fmt.Errorf("reorder budget %s: %w", id, err)
			}
		}
		return nil
	})
}

func (r *BudgetRepo) Get(ctx context.Context, ownerID, id string) (*TagBudget, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, owner_id, name, position, created_at, updated_at FROM tag_budgets WHERE id = ? AND owner_id = ?`, id, ownerID)
	b, err := scanBudget(row)
	if err != nil || b == nil {
		return b, err
	}
	b.Items, err = r.fetchItems(ctx, b.ID)
	return b, err
}

// Active returns the budget at position 0, or nil when the owner has none.
func (r *BudgetRepo) Active(ctx context.Context, ownerID string) (*TagBudget, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, owner_id, name, position, created_at, updated_at FROM tag_budgets WHERE owner_id = ? ORDER BY position LIMIT 1`, ownerID)
	b, err := scanBudget(row)
	if err != nil || b == nil {
		return b, err
	}
	b.Items, err = r.fetchItems(ctx, b.ID)
	return b, err
}

// List returns owned budgets ordered by position, items included.
func (r *BudgetRepo) List(ctx context.Context, ownerID string) ([]TagBudget, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, owner_id, name, position, created_at, updated_at FROM tag_budgets WHERE owner_id = ? ORDER BY position`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TagBudget
	for rows.Next() {
		var b TagBudget
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.Name, &b.Position, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		items, err := r.fetchItems(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

func (r *BudgetRepo) fetchItems(ctx context.Context, budgetID string) ([]BudgetItem, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT tag, amount FROM tag_budget_items WHERE budget_id = ? ORDER BY item_index`, budgetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BudgetItem
	for rows.Next() {
		var tag, amount string
		if err := rows.Scan(&tag, &amount); err != nil {
			return nil, err
		}
		dec, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("decode item amount %q: %w", amount, err)
		}
		items = append(items, BudgetItem{Tag: tag, Amount: dec})
	}
	return items, rows.Err()
}

func (r *BudgetRepo) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func insertItems(ctx context.Context, tx *sql.Tx, budgetID string, items []BudgetItem) error {
	for i, item := range items {
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO tag_budget_items(id, budget_id, tag, amount, item_index) VALUES (?, ?, ?, ?, ?);
		`, uuid.NewString(), budgetID, item.Tag, item.Amount.String(), i); err != nil {
			return err
		}
	}
	return nil
}

func renumber(ctx context.Context, tx *sql.Tx, ownerID string) error {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM tag_budgets WHERE owner_id = ? ORDER BY position`, ownerID)
	if err != nil {
		return err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for i, id := range ids {
		if _, err := tx.ExecContext(ctx, `UPDATE tag_budgets SET position = ? WHERE id = ?`, i, id); err != nil {
			return err
		}
	}
	return nil
}

func scanBudget(row *sql.Row) (*TagBudget, error) {
	var b TagBudget
	if err := row.Scan(&b.ID, &b.OwnerID, &b.Name, &b.Position, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}
