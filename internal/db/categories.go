package db

import (
	"context"
	"database/sql"

	"github.com/theLastOfCats/carsaiplay-go-server/internal/model"
)

func (db *DB) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (db *DB) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	var c model.Category
	if err := db.QueryRowContext(ctx, `SELECT id, name FROM categories WHERE id = ?`, id).Scan(&c.ID, &c.Name); err != nil {
		return nil, err
	}
	return &c, nil
}

// CategoryNameTaken compares names case-insensitively, ignoring excludeID.
func (db *DB) CategoryNameTaken(ctx context.Context, name string, excludeID int64) (bool, error) {
	var taken bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM categories WHERE LOWER(name) = LOWER(?) AND id <> ?)`, name, excludeID,
	).Scan(&taken)
	return taken, err
}

// CountExistingCategories returns how many of ids exist.
func (tx *Tx) CountExistingCategories(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return countRows(ctx, tx, `SELECT COUNT(*) FROM categories WHERE id IN (`+placeholders(len(ids))+`)`, int64Args(ids)...)
}

func (db *DB) InsertCategory(ctx context.Context, name string) (int64, error) {
	res, err := db.ExecContext(ctx, `INSERT INTO categories (name) VALUES (?)`, name)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UpdateCategory renames a category. It returns sql.ErrNoRows when id does not exist.
func (db *DB) UpdateCategory(ctx context.Context, id int64, name string) error {
	if _, err := db.GetCategory(ctx, id); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, `UPDATE categories SET name = ? WHERE id = ?`, name, id)
	return err
}

// DeleteCategory removes the category and its content links. It returns
// sql.ErrNoRows when id does not exist.
func (db *DB) DeleteCategory(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
