package repository

import (
	"context"
	"database/sql"
	"strings"
)

// TagRepo handles tags. Names are unique per (owner, name); Insert surfaces
// the constraint violation so the caller can resolve the race.
type TagRepo struct {
	db *sql.DB
}

func NewTagRepo(db *sql.DB) *TagRepo { return &TagRepo{db: db} }

func (r *TagRepo) Insert(ctx context.Context, t Tag) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO tags(id, owner_id, name, color, created_at) VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP);
	`, t.ID, t.OwnerID, t.Name, t.Color)
	return err
}

// IsConflict reports whether err is a uniqueness constraint violation.
func IsConflict(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE")
}

func (r *TagRepo) ByName(ctx context.Context, ownerID, name string) (*Tag, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, owner_id, name, color, created_at FROM tags WHERE owner_id = ? AND name = ?`, ownerID, name)
	return scanTag(row)
}

func (r *TagRepo) Get(ctx context.Context, ownerID, id string) (*Tag, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, owner_id, name, color, created_at FROM tags WHERE id = ? AND owner_id = ?`, id, ownerID)
	return scanTag(row)
}

// List returns owned tags ordered by name, optionally filtered by a
// case-insensitive substring query.
func (r *TagRepo) List(ctx context.Context, ownerID, query string) ([]Tag, error) {
	q := `SELECT id, owner_id, name, color, created_at FROM tags WHERE owner_id = ?`
	args := []interface{}{ownerID}
	if query != "" {
		q += ` AND name LIKE ? COLLATE NOCASE`
		args = append(args, "%"+query+"%")
	}
	q += ` ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.Name, &t.Color, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Rename updates the name field only. Transactions keep the old name; see
// the tag registry for the sweep semantics on delete.
func (r *TagRepo) Rename(ctx context.Context, ownerID, id, name string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE tags SET name = ? WHERE id = ? AND owner_id = ?`, name, id, ownerID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *TagRepo) SetColor(ctx context.Context, ownerID, id, color string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE tags SET color = ? WHERE id = ? AND owner_id = ?`, color, id, ownerID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *TagRepo) Delete(ctx context.Context, ownerID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tags WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func scanTag(row *sql.Row) (*Tag, error) {
	var t Tag
	if err := row.Scan(&t.ID, &t.OwnerID, &t.Name, &t.Color, &t.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}
