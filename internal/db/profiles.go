package db

import (
	"context"
	"database/sql"
	"strings"

	"github.com/theLastOfCats/carsaiplay-go-server/internal/model"
)

const profileColumns = `id, name, email, avatar_url, is_admin, is_blocked, created_at`

func (tx *Tx) InsertProfile(ctx context.Context, id int64, name, email string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO profiles (id, name, email, created_at) VALUES (?, ?, ?, ?)`,
		id, name, email, nowMillis())
	return err
}

func scanProfile(row interface{ Scan(...any) error }) (*model.Profile, error) {
	var p model.Profile
	if err := row.Scan(&p.ID, &p.Name, &p.Email, &p.AvatarURL, &p.IsAdmin, &p.IsBlocked, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Favorites, p.WatchLater, p.Watched = []int64{}, []int64{}, []int64{}
	return &p, nil
}

// GetProfile returns the profile with its three lists in insertion order.
func (db *DB) GetProfile(ctx context.Context, id int64) (*model.Profile, error) {
	p, err := scanProfile(db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	byID := map[int64]*model.Profile{p.ID: p}
	if err := db.attachLists(ctx, byID, `WHERE user_id = ?`, id); err != nil {
		return nil, err
	}
	return p, nil
}

func (db *DB) ListProfiles(ctx context.Context) ([]*model.Profile, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*model.Profile
	byID := make(map[int64]*model.Profile)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
		byID[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return profiles, nil
	}
	if err := db.attachLists(ctx, byID, ``); err != nil {
		return nil, err
	}
	return profiles, nil
}

func (db *DB) attachLists(ctx context.Context, byID map[int64]*model.Profile, where string, args ...any) error {
	rows, err := db.QueryContext(ctx,
		`SELECT user_id, list, content_id FROM profile_lists `+where+` ORDER BY created_at, content_id`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			userID, contentID int64
			list              string
		)
		if err := rows.Scan(&userID, &list, &contentID); err != nil {
			return err
		}
		p, ok := byID[userID]
		if !ok {
			continue
		}
		switch model.ListKind(list) {
		case model.ListFavorites:
			p.Favorites = append(p.Favorites, contentID)
		case model.ListWatchLater:
			p.WatchLater = append(p.WatchLater, contentID)
		case model.ListWatched:
			p.Watched = append(p.Watched, contentID)
		}
	}
	return rows.Err()
}

// UpdateProfile applies the non-nil fields of u. It returns sql.ErrNoRows
// when the profile does not exist.
func (db *DB) UpdateProfile(ctx context.Context, id int64, u model.ProfileUpdate) error {
	var (
		sets []string
		args []any
	)
	if u.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *u.Name)
	}
	if u.AvatarURL != nil {
		sets = append(sets, "avatar_url = ?")
		args = append(args, nullIfEmpty(*u.AvatarURL))
	}
	return db.updateProfileColumns(ctx, id, sets, args)
}

// UpdateUserFlags applies an administrator's partial update.
func (db *DB) UpdateUserFlags(ctx context.Context, id int64, u model.UserUpdate) error {
	var (
		sets []string
		args []any
	)
	if u.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *u.Name)
	}
	if u.IsAdmin != nil {
		sets = append(sets, "is_admin = ?")
		args = append(args, *u.IsAdmin)
	}
	if u.IsBlocked != nil {
		sets = append(sets, "is_blocked = ?")
		args = append(args, *u.IsBlocked)
	}
	return db.updateProfileColumns(ctx, id, sets, args)
}

func (db *DB) updateProfileColumns(ctx context.Context, id int64, sets []string, args []any) error {
	exists, err := db.ProfileExists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return sql.ErrNoRows
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	_, err = db.ExecContext(ctx, `UPDATE profiles SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	return err
}

func (db *DB) ProfileExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM profiles WHERE id = ?)`, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// AddToList inserts (user, list, content). Adding an existing member is a no-op.
func (db *DB) AddToList(ctx context.Context, userID int64, kind model.ListKind, contentID int64) error {
	_, err := db.ExecContext(ctx,
		insertIgnore(db.Dialect)+` profile_lists (user_id, list, content_id, created_at) VALUES (?, ?, ?, ?)`,
		userID, string(kind), contentID, nowMillis())
	return err
}

// RemoveFromList deletes (user, list, content). Removing a non-member is a no-op.
func (db *DB) RemoveFromList(ctx context.Context, userID int64, kind model.ListKind, contentID int64) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM profile_lists WHERE user_id = ? AND list = ? AND content_id = ?`,
		userID, string(kind), contentID)
	return err
}

// ToggleListItem removes the item when present and adds it otherwise, in
// one transaction. It reports whether the item is now a member.
func (db *DB) ToggleListItem(ctx context.Context, userID int64, kind model.ListKind, contentID int64) (bool, error) {
	var added bool
	err := db.WithTx(ctx, func(tx *Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM profile_lists WHERE user_id = ? AND list = ? AND content_id = ?`,
			userID, string(kind), contentID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n > 0 {
			added = false
			return nil
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO profile_lists (user_id, list, content_id, created_at) VALUES (?, ?, ?, ?)`,
			userID, string(kind), contentID, nowMillis())
		added = err == nil
		return err
	})
	return added, err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
