package repository

import (
	"context"
	"database/sql"
)

// ColorOverrideRepo stores per-(owner, tag name) display colors. An override
// takes precedence over the tag's canonical color and survives tag
// recreation; it replaces the browser-local store the web client used.
type ColorOverrideRepo struct {
	db *sql.DB
}

func NewColorOverrideRepo(db *sql.DB) *ColorOverrideRepo { return &ColorOverrideRepo{db: db} }

func (r *ColorOverrideRepo) Set(ctx context.Context, ownerID, tagName, color string) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO color_overrides(owner_id, tag_name, color) VALUES (?, ?, ?)
	ON CONFLICT(owner_id, tag_name) DO UPDATE SET color=excluded.color;
	`, ownerID, tagName, color)
	return err
}

func (r *ColorOverrideRepo) Remove(ctx context.Context, ownerID, tagName string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM color_overrides WHERE owner_id = ? AND tag_name = ?`, ownerID, tagName)
	return err
}

func (r *ColorOverrideRepo) Get(ctx context.Context, ownerID, tagName string) (string, error) {
	var color string
	err := r.db.QueryRowContext(ctx, `SELECT color FROM color_overrides WHERE owner_id = ? AND tag_name = ?`, ownerID, tagName).Scan(&color)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return color, err
}

// All returns every override for an owner keyed by tag name.
func (r *ColorOverrideRepo) All(ctx context.Context, ownerID string) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT tag_name, color FROM color_overrides WHERE owner_id = ?`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var name, color string
		if err := rows.Scan(&name, &color); err != nil {
			return nil, err
		}
		out[name] = color
	}
	return out, rows.Err()
}
