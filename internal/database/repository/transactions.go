package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionFilters defines list filters. Zero values mean no filter.
type TransactionFilters struct {
	Limit  int
	Offset int
}

// TransactionRepo handles transactions. Every operation is scoped to an
// owner; a mismatched owner behaves like a missing record.
type TransactionRepo struct {
	db *sql.DB
}

func NewTransactionRepo(db *sql.DB) *TransactionRepo { return &TransactionRepo{db: db} }

func (r *TransactionRepo) Insert(ctx context.Context, t Transaction) error {
	tags, err := encodeTags(t.Tags)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
	INSERT INTO transactions(id, owner_id, amount, currency, type, description, date, tags, created_at, updated_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP);
	`, t.ID, t.OwnerID, t.Amount.String(), t.Currency, t.Type, t.Description, t.Date, tags)
	return err
}

// Update rewrites the mutable fields of an owned transaction. It reports
// whether a row was actually updated.
func (r *TransactionRepo) Update(ctx context.Context, t Transaction) (bool, error) {
	tags, err := encodeTags(t.Tags)
	if err != nil {
		return false, err
	}
	res, err := r.db.ExecContext(ctx, `
	UPDATE transactions
	SET amount = ?, currency = ?, type = ?, description = ?, date = ?, tags = ?, updated_at = CURRENT_TIMESTAMP
	WHERE id = ? AND owner_id = ?;
	`, t.Amount.String(), t.Currency, t.Type, t.Description, t.Date, tags, t.ID, t.OwnerID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// RewriteTags replaces the tags array of a single transaction.
func (r *TransactionRepo) RewriteTags(ctx context.Context, ownerID, id string, tags []string) error {
	encoded, err := encodeTags(tags)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `UPDATE transactions SET tags = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND owner_id = ?`, encoded, id, ownerID)
	return err
}

func (r *TransactionRepo) Delete(ctx context.Context, ownerID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteBatch removes the given ids, skipping any not owned by ownerID, and
// returns how many rows were actually deleted.
func (r *TransactionRepo) DeleteBatch(ctx context.Context, ownerID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, 0, len(ids)+1)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, ownerID)
	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM transactions WHERE id IN (%s) AND owner_id = ?`, placeholders), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *TransactionRepo) Get(ctx context.Context, ownerID, id string) (*Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND owner_id = ?`, id, ownerID)
	t, err := scanTransaction(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// List returns owned transactions ordered by date descending.
func (r *TransactionRepo) List(ctx context.Context, ownerID string, f TransactionFilters) ([]Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE owner_id = ? ORDER BY date DESC, created_at DESC`
	args := []interface{}{ownerID}
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}
	return r.queryMany(ctx, query, args...)
}

func (r *TransactionRepo) Count(ctx context.Context, ownerID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE owner_id = ?`, ownerID).Scan(&n)
	return n, err
}

// ListByWindow returns owned transactions with start <= date <= end.
func (r *TransactionRepo) ListByWindow(ctx context.Context, ownerID string, start, end time.Time) ([]Transaction, error) {
	return r.queryMany(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE owner_id = ? AND date >= ? AND date <= ? ORDER BY date DESC, created_at DESC`,
		ownerID, start, end)
}

// ListByTag returns owned transactions whose tags array contains name. The
// LIKE clause is a coarse prefilter over the JSON column; membership is
// re-checked after decoding.
func (r *TransactionRepo) ListByTag(ctx context.Context, ownerID, name string) ([]Transaction, error) {
	pattern := "%" + string(mustEncodeJSON(name)) + "%"
	candidates, err := r.queryMany(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE owner_id = ? AND tags LIKE ?`,
		ownerID, pattern)
	if err != nil {
		return nil, err
	}
	var out []Transaction
	for _, t := range candidates {
		for _, tag := range t.Tags {
			if tag == name {
				out = append(out, t)
				break
			}
		}
	}
	return out, nil
}

func (r *TransactionRepo) queryMany(ctx context.Context, query string, args ...interface{}) ([]Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

const transactionColumns = `id, owner_id, amount, currency, type, description, date, tags, created_at, updated_at`

// scanner handles both Row and Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row scanner) (Transaction, error) {
	var t Transaction
	var amount, tags string
	if err := row.Scan(&t.ID, &t.OwnerID, &amount, &t.Currency, &t.Type, &t.Description,
		&t.Date, &tags, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return Transaction{}, err
	}
	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return Transaction{}, fmt.Errorf("decode amount %q: %w", amount, err)
	}
	t.Amount = dec
	if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil {
		return Transaction{}, fmt.Errorf("decode tags: %w", err)
	}
	return t, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func mustEncodeJSON(s string) []byte {
	b, _ := json.Marshal(s)
	return b
}
