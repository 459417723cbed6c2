package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/theLastOfCats/carsaiplay-go-server/internal/model"
)

// GetSettings returns the singleton row, or the defaults when it is missing.
func (db *DB) GetSettings(ctx context.Context) (model.Settings, error) {
	var s model.Settings
	err := db.QueryRowContext(ctx, `SELECT id, site_name, logo_url FROM settings WHERE id = 1`).Scan(&s.ID, &s.SiteName, &s.LogoURL)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultSettings(), nil
	}
	if err != nil {
		return model.Settings{}, err
	}
	return s, nil
}

func (db *DB) UpdateSettings(ctx context.Context, u model.SettingsUpdate) error {
	var (
		sets []string
		args []any
	)
	if u.SiteName != nil {
		sets = append(sets, "site_name = ?")
		args = append(args, *u.SiteName)
	}
	if u.LogoURL != nil {
		sets = append(sets, "logo_url = ?")
		args = append(args, nullIfEmpty(*u.LogoURL))
	}
	if len(sets) == 0 {
		return nil
	}

	return db.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.ExecContext(ctx,
			insertIgnore(tx.dialect)+` settings (id, site_name) VALUES (1, ?)`, model.DefaultSiteName); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE settings SET `+strings.Join(sets, ", ")+` WHERE id = 1`, args...)
		return err
	})
}
